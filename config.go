package main

type Config struct {
	HTTPPort             string
	Method               string // preferred conversion method: "xe" or "oer"
	CacheDir             string // directory holding the cache files
	JournalFile          string // completed conversion log, empty disables it
	OERAPIKey            string
	CurrenciesExpiration int      // currency directory cache window, minutes
	RatesExpiration      int      // rate table cache window, minutes
	OverrideCurrencies   []string // convert-to-all target override, empty = all known
}
