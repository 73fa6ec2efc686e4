package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/kylycht/curconv/model"
	"github.com/kylycht/curconv/storage/cachefile"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultURL is the remote currency map source
	DefaultURL = "http://www.localeplanet.com/api/auto/currencymap.json?name=Y"

	cacheFile = "cache_currencies.json"
)

// Entry is the directory value for one currency code
type Entry struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Directory is the authoritative code -> {symbol, name} map.
// It is loaded at most once per process run, through the cache
// refresh cycle, and read-only afterwards.
type Directory struct {
	sourceURL   *url.URL      // remote currency map location
	httpClient  *http.Client  // HTTP client used to communicate with the source
	rateLimiter *rate.Limiter // rate limiter for the source
	store       *cachefile.Store[map[string]Entry]
	window      time.Duration    // cache expiration window
	currencies  map[string]Entry // loaded directory, nil until Load
}

func New(rawURL, cacheDir string, window time.Duration) (*Directory, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	return &Directory{
		sourceURL:   u,
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 10),
		httpClient:  &http.Client{},
		store:       cachefile.New[map[string]Entry](filepath.Join(cacheDir, cacheFile), "currencies"),
		window:      window,
	}, nil
}

// Load populates the directory on first use. Subsequent calls are
// no-ops: the directory is never reloaded within a run. A hard
// failure (service.ErrNoData) means no conversion is possible at all.
func (d *Directory) Load(ctx context.Context) error {
	if d.currencies != nil {
		return nil
	}

	currencies, err := d.store.Refresh(ctx, d.window, d.fetch)
	if err != nil {
		return err
	}

	d.currencies = currencies
	return nil
}

func (d *Directory) fetch(ctx context.Context) (map[string]Entry, error) {
	if err := d.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	log.Debug().Str("url", d.sourceURL.String()).Msg("fetching currency directory")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.sourceURL.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unable to fetch currency directory due to code: %d", resp.StatusCode)
	}

	currencies := map[string]Entry{}
	if err := json.NewDecoder(resp.Body).Decode(&currencies); err != nil {
		return nil, err
	}

	return currencies, nil
}

// Resolve matches a token first as a currency code, case-insensitive,
// then as an exact currency symbol. Symbol lookup is exact-match only:
// no substring matching against other entry fields.
func (d *Directory) Resolve(token string) (string, bool) {
	code := strings.ToUpper(token)
	if _, ok := d.currencies[code]; ok {
		return code, true
	}

	for c, entry := range d.currencies {
		if entry.Symbol == token {
			return c, true
		}
	}

	return "", false
}

// List returns every known currency in directory iteration order
func (d *Directory) List() []model.Currency {
	list := make([]model.Currency, 0, len(d.currencies))

	for code, entry := range d.currencies {
		list = append(list, model.Currency{
			Code:   code,
			Symbol: entry.Symbol,
			Name:   entry.Name,
		})
	}

	return list
}

// Codes returns just the known currency codes, in directory iteration order
func (d *Directory) Codes() []string {
	codes := make([]string, 0, len(d.currencies))
	for code := range d.currencies {
		codes = append(codes, code)
	}
	return codes
}
