package model

// Currency holds information
// on a single known currency
type Currency struct {
	Code   string `json:"code"`   // 3-letter uppercase code
	Symbol string `json:"symbol"` // Symbol of the currency
	Name   string `json:"name"`   // Name of the currency
}

// Request describes one conversion request.
// To is empty when the amount should be
// converted to every known currency.
type Request struct {
	Amount float64
	From   string
	To     string
}

// Result is the outcome of a conversion request
type Result struct {
	Input  Input              `json:"input"`
	Output map[string]float64 `json:"output"`
}

// Input echoes the resolved request back to the caller
type Input struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}
