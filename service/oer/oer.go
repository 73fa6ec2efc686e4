package oer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/kylycht/curconv/service"
	"github.com/kylycht/curconv/storage/cachefile"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultURL is the rate table endpoint
	DefaultURL = "https://openexchangerates.org/api/latest.json"

	cacheFile = "cache_rates.json"

	// pivot currency: every rate in the table is units per 1 USD,
	// the table carries no USD entry of its own
	pivot = "USD"
)

// Response is the rate table endpoint payload
type Response struct {
	Timestamp int64              `json:"timestamp"`
	Rates     map[string]float64 `json:"rates"`
}

// Client converts locally from a cached USD-denominated rate table.
// The table is loaded lazily on the first conversion of the run,
// through the cache refresh cycle, and reused for every conversion
// afterwards.
type Client struct {
	baseURL     *url.URL      // rate table endpoint location
	httpClient  *http.Client  // HTTP client used to communicate with the API
	rateLimiter *rate.Limiter // rate limiter for the API
	store       *cachefile.Store[map[string]float64]
	window      time.Duration      // rates cache expiration window
	rates       map[string]float64 // loaded table, nil until first Convert
}

func New(rawURL, appID, cacheDir string, window time.Duration) (*Client, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:     base,
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 10),
		httpClient: &http.Client{
			Transport: roundTripperFn(
				func(req *http.Request) (*http.Response, error) {

					params := req.URL.Query()
					params.Set("app_id", appID)
					req.URL.RawQuery = params.Encode()

					return http.DefaultTransport.RoundTrip(req)
				},
			),
		},
		store:  cachefile.New[map[string]float64](filepath.Join(cacheDir, cacheFile), "rates"),
		window: window,
	}, nil
}

// Name implements service.Converter.
func (c *Client) Name() string { return "oer" }

// Convert implements service.Converter.
// The free rate table plan only quotes against USD, so a pair with
// USD on either side converts directly and everything else pivots
// through USD in exactly two hops.
func (c *Client) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	if err := c.load(ctx); err != nil {
		return 0, &service.NetworkError{Method: c.Name(), Err: err}
	}

	from = strings.ToUpper(from)
	to = strings.ToUpper(to)

	switch {
	case from == pivot:
		outRate, ok := c.rates[to]
		if !ok {
			return 0, &service.UnsupportedError{Code: to}
		}
		return amount * outRate, nil

	case to == pivot:
		inRate, ok := c.rates[from]
		if !ok {
			return 0, &service.UnsupportedError{Code: from}
		}
		return amount / inRate, nil

	default:
		// two hops: from -> USD, then USD -> to
		inRate, ok := c.rates[from]
		if !ok {
			return 0, &service.UnsupportedError{Code: from}
		}
		outRate, ok := c.rates[to]
		if !ok {
			return 0, &service.UnsupportedError{Code: to}
		}
		return (amount / inRate) * outRate, nil
	}
}

func (c *Client) load(ctx context.Context) error {
	if c.rates != nil {
		return nil
	}

	rates, err := c.store.Refresh(ctx, c.window, c.fetch)
	if err != nil {
		return err
	}

	c.rates = rates
	return nil
}

func (c *Client) fetch(ctx context.Context) (map[string]float64, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	log.Debug().Str("url", c.baseURL.String()).Msg("fetching exchange rates")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unable to fetch rates due to code: %d", resp.StatusCode)
	}

	r := Response{}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, err
	}

	if r.Rates == nil {
		return nil, fmt.Errorf("rates missing from response")
	}

	return r.Rates, nil
}

type roundTripperFn func(*http.Request) (*http.Response, error)

func (fn roundTripperFn) RoundTrip(r *http.Request) (*http.Response, error) {
	return fn(r)
}
