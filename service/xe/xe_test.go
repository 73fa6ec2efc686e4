package xe_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kylycht/curconv/service"
	"github.com/kylycht/curconv/service/xe"
	"github.com/stretchr/testify/require"
)

func page(amount, fromText, toCode string) string {
	return fmt.Sprintf(`<html><body>
		<div class="converterResult">
			<span class="uccResultAmount">%s</span>
			<span class="uccFromResultAmount">%s</span>
			<span class="uccToCurrencyCode">%s</span>
		</div>
	</body></html>`, amount, fromText, toCode)
}

func newClient(t *testing.T, handler http.HandlerFunc) (*xe.Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := xe.New(server.URL)
	require.NoError(t, err)
	return client, server
}

func TestConvert(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "100", r.URL.Query().Get("Amount"))
		require.Equal(t, "EUR", r.URL.Query().Get("From"))
		require.Equal(t, "GBP", r.URL.Query().Get("To"))

		fmt.Fprint(w, page("88.8889", "100.00 EUR", "GBP"))
	})

	converted, err := client.Convert(context.Background(), 100, "EUR", "GBP")
	require.NoError(t, err)
	require.InDelta(t, 88.8889, converted, 1e-9) // no rounding at this layer
}

func TestConvertStripsGroupingSeparators(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page("1,234,567.89", "1,000,000.00 USD", "JPY"))
	})

	converted, err := client.Convert(context.Background(), 1000000, "USD", "JPY")
	require.NoError(t, err)
	require.InDelta(t, 1234567.89, converted, 1e-9)
}

func TestConvertRejectsSubstitutedOutputCurrency(t *testing.T) {
	// the remote falls back to USD when it does not know the code
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page("100.00", "100.00 EUR", "USD"))
	})

	_, err := client.Convert(context.Background(), 100, "EUR", "XYZ")

	var unsupported *service.UnsupportedError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, "XYZ", unsupported.Code)
}

func TestConvertRejectsSubstitutedInputCurrency(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page("100.00", "100.00 USD", "EUR"))
	})

	_, err := client.Convert(context.Background(), 100, "XYZ", "EUR")

	var unsupported *service.UnsupportedError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, "XYZ", unsupported.Code)
}

func TestConvertMissingFieldsIsNetworkFailure(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>maintenance</p></body></html>`)
	})

	_, err := client.Convert(context.Background(), 100, "EUR", "GBP")

	var netErr *service.NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Equal(t, "xe", netErr.Method)
}

func TestConvertBadStatusIsNetworkFailure(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Convert(context.Background(), 100, "EUR", "GBP")

	var netErr *service.NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestConvertUnreachableIsNetworkFailure(t *testing.T) {
	client, server := newClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := client.Convert(context.Background(), 100, "EUR", "GBP")

	var netErr *service.NetworkError
	require.ErrorAs(t, err, &netErr)
}
