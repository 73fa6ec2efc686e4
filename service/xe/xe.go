package xe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/kylycht/curconv/service"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

// DefaultURL is the live conversion page scraped by this method
const DefaultURL = "http://www.xe.com/currencyconverter/convert/"

const (
	classResultAmount     = "uccResultAmount"
	classFromResultAmount = "uccFromResultAmount"
	classToCurrencyCode   = "uccToCurrencyCode"
)

// Client converts through a scraped live conversion service.
// One remote request per conversion, no local state beyond the
// connection. The remote service silently substitutes its default
// currency for codes it does not recognize, so every response is
// cross-checked against the request before the number is trusted.
type Client struct {
	baseURL     *url.URL      // conversion page location
	httpClient  *http.Client  // HTTP client used to communicate with the service
	rateLimiter *rate.Limiter // rate limiter for the service
}

func New(rawURL string) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:     u,
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 10),
		httpClient:  &http.Client{},
	}, nil
}

// Name implements service.Converter.
func (c *Client) Name() string { return "xe" }

// Convert implements service.Converter.
// GET /?Amount=100&From=USD&To=EUR
func (c *Client) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, &service.NetworkError{Method: c.Name(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String(), nil)
	if err != nil {
		return 0, &service.NetworkError{Method: c.Name(), Err: err}
	}

	query := req.URL.Query()
	query.Set("Amount", strconv.FormatFloat(amount, 'f', -1, 64))
	query.Set("From", from)
	query.Set("To", to)
	req.URL.RawQuery = query.Encode()

	log.Debug().Str("url", req.URL.String()).Msg("fetching conversion from live service")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &service.NetworkError{Method: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &service.NetworkError{
			Method: c.Name(),
			Err:    fmt.Errorf("unable to fetch conversion due to code: %d", resp.StatusCode),
		}
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return 0, &service.NetworkError{Method: c.Name(), Err: err}
	}

	converted, echoedFrom, echoedTo, err := extract(doc)
	if err != nil {
		return 0, &service.NetworkError{Method: c.Name(), Err: err}
	}

	// The service replaces unknown codes with its default currency;
	// an echo mismatch means the number is for the wrong pair.
	if echoedFrom != strings.ToUpper(from) {
		return 0, &service.UnsupportedError{Code: from}
	}
	if echoedTo != strings.ToUpper(to) {
		return 0, &service.UnsupportedError{Code: to}
	}

	return converted, nil
}

// extract pulls the converted amount and the echoed currency codes
// out of the response document. Grouping separators are stripped
// from the amount; no rounding happens at this layer.
func extract(doc *html.Node) (float64, string, string, error) {
	amountText, ok := findSpanText(doc, classResultAmount)
	if !ok {
		return 0, "", "", fmt.Errorf("result amount not found in response")
	}

	fromText, ok := findSpanText(doc, classFromResultAmount)
	if !ok {
		return 0, "", "", fmt.Errorf("source currency not found in response")
	}

	toText, ok := findSpanText(doc, classToCurrencyCode)
	if !ok {
		return 0, "", "", fmt.Errorf("destination currency not found in response")
	}

	amountText = strings.ReplaceAll(strings.TrimSpace(amountText), ",", "")
	converted, err := strconv.ParseFloat(amountText, 64)
	if err != nil {
		return 0, "", "", fmt.Errorf("unable to parse converted amount %q: %w", amountText, err)
	}

	return converted, trailingCode(fromText), trailingCode(toText), nil
}

// findSpanText walks the document tree for the first span carrying
// the given class and returns its concatenated text content.
func findSpanText(n *html.Node, class string) (string, bool) {
	if n.Type == html.ElementNode && n.Data == "span" {
		for _, attr := range n.Attr {
			if attr.Key == "class" && hasClass(attr.Val, class) {
				return textContent(n), true
			}
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if text, ok := findSpanText(child, class); ok {
			return text, ok
		}
	}

	return "", false
}

func hasClass(attrVal, class string) bool {
	for _, c := range strings.Fields(attrVal) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}

	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(textContent(child))
	}
	return b.String()
}

// trailingCode extracts the currency code the service echoed back:
// the last whitespace-separated token of the span text, letters only,
// uppercased. The from span reads like "100.00 USD".
func trailingCode(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}

	var b strings.Builder
	for _, r := range fields[len(fields)-1] {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}

	return strings.ToUpper(b.String())
}
