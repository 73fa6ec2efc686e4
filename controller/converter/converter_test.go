package converter_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kylycht/curconv/controller/converter"
	"github.com/kylycht/curconv/model"
	"github.com/kylycht/curconv/service/convert"
	"github.com/kylycht/curconv/service/directory"
	"github.com/stretchr/testify/require"
)

type fakeConverter struct {
	name string
	fn   func(amount float64, from, to string) (float64, error)
}

func (f *fakeConverter) Name() string { return f.name }

func (f *fakeConverter) Convert(_ context.Context, amount float64, from, to string) (float64, error) {
	return f.fn(amount, from, to)
}

func newApp(t *testing.T, cacheDir string) *fiber.App {
	t.Helper()

	d, err := directory.New("http://127.0.0.1:0/", cacheDir, time.Hour)
	require.NoError(t, err)

	times := func(rate float64) func(float64, string, string) (float64, error) {
		return func(amount float64, _, _ string) (float64, error) { return amount * rate, nil }
	}

	svc := convert.New(d,
		&fakeConverter{name: "xe", fn: times(0.9)},
		&fakeConverter{name: "oer", fn: times(0.9)},
		"xe", nil, nil)

	app := fiber.New()
	ctrl := converter.New(svc)
	app.Get("/convert", ctrl.Convert)
	app.Get("/currencies", ctrl.Currencies)
	return app
}

func seededCacheDir(t *testing.T) string {
	t.Helper()

	cacheDir := t.TempDir()
	currencies := map[string]directory.Entry{
		"USD": {Symbol: "$", Name: "US Dollar"},
		"EUR": {Symbol: "€", Name: "Euro"},
	}
	content, err := json.Marshal(map[string]any{"timestamp": time.Now().Unix(), "currencies": currencies})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "cache_currencies.json"), content, 0o644))
	return cacheDir
}

func get(t *testing.T, app *fiber.App, target string) (*http.Response, string) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestConvertHandler(t *testing.T) {
	app := newApp(t, seededCacheDir(t))

	resp, body := get(t, app, "/convert?amount=100&input_currency=USD&output_currency=EUR")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result model.Result
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	require.Equal(t, "USD", result.Input.Currency)
	require.Equal(t, 90.0, result.Output["EUR"])
}

func TestConvertHandlerMissingAmount(t *testing.T) {
	app := newApp(t, seededCacheDir(t))

	resp, body := get(t, app, "/convert?input_currency=USD")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "Request Error")
	require.Contains(t, body, "amount")
}

func TestConvertHandlerBadAmount(t *testing.T) {
	app := newApp(t, seededCacheDir(t))

	resp, body := get(t, app, "/convert?amount=abc&input_currency=USD")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "not a valid number")
}

func TestConvertHandlerMissingInputCurrency(t *testing.T) {
	app := newApp(t, seededCacheDir(t))

	resp, body := get(t, app, "/convert?amount=100")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "input_currency")
}

func TestConvertHandlerUnknownInputCurrency(t *testing.T) {
	app := newApp(t, seededCacheDir(t))

	resp, body := get(t, app, "/convert?amount=100&input_currency=NOPE")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "not a valid currency code or symbol")
}

func TestConvertHandlerNoDataIsServerError(t *testing.T) {
	// empty cache dir and unreachable source: nothing to serve
	app := newApp(t, t.TempDir())

	resp, body := get(t, app, "/convert?amount=100&input_currency=USD")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Contains(t, body, "no currencies data available")
}

func TestCurrenciesHandler(t *testing.T) {
	app := newApp(t, seededCacheDir(t))

	resp, body := get(t, app, "/currencies")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var currencies []model.Currency
	require.NoError(t, json.Unmarshal([]byte(body), &currencies))
	require.Len(t, currencies, 2)
}
