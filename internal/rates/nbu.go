// Package rates looks up official exchange rates from the National Bank of
// Ukraine. The NBU quotes every currency in hryvnia; rates against another
// base currency are derived as a cross rate.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"earntracker/internal/cache"
	"earntracker/internal/core"
	"earntracker/internal/log"
)

// ErrRateUnavailable is returned when the NBU has no quote for the request.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

const (
	hryvnia       = "UAH"
	nbuDateLayout = "20060102"
)

// Source yields the number of base currency units per one unit of currency
// on a given date.
type Source interface {
	Rate(ctx context.Context, currency string, date core.Date) (decimal.Decimal, error)
}

// Quote is the NBU wire format of one exchange rate.
type Quote struct {
	Code         int             `json:"r030"`
	Name         string          `json:"txt"`
	Rate         decimal.Decimal `json:"rate"`
	Currency     string          `json:"cc"`
	ExchangeDate string          `json:"exchangedate"`
}

// NBUClient implements Source over the NBU statdirectory API.
type NBUClient struct {
	baseURL      string
	baseCurrency string
	httpClient   *http.Client
	cache        *cache.LRUCache[decimal.Decimal]
	now          func() time.Time
	logger       *log.Logger
}

type Option func(*NBUClient)

func WithHTTPClient(c *http.Client) Option {
	return func(n *NBUClient) { n.httpClient = c }
}

func WithCache(c *cache.LRUCache[decimal.Decimal]) Option {
	return func(n *NBUClient) { n.cache = c }
}

func WithClock(now func() time.Time) Option {
	return func(n *NBUClient) { n.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(n *NBUClient) { n.logger = l.WithComponent(log.ComponentRates) }
}

func NewNBUClient(baseURL, baseCurrency string, opts ...Option) *NBUClient {
	n := &NBUClient{
		baseURL:      baseURL,
		baseCurrency: core.NormalizeCurrency(baseCurrency),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		cache:        cache.NewLRUCache[decimal.Decimal](256, 12*time.Hour),
		now:          time.Now,
		logger:       log.New(log.DefaultConfig()).WithComponent(log.ComponentRates),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Rate returns how many base currency units one unit of currency was worth
// on date. A zero date means today. The base currency itself is always 1.
func (n *NBUClient) Rate(ctx context.Context, currency string, date core.Date) (decimal.Decimal, error) {
	currency = core.NormalizeCurrency(currency)
	if !core.IsCurrencyCode(currency) {
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrInvalidCurrency, currency)
	}
	if currency == n.baseCurrency {
		return decimal.NewFromInt(1), nil
	}
	if date.IsZero() {
		now := n.now().UTC()
		date = core.NewDate(now.Year(), int(now.Month()), now.Day())
	}

	quote, err := n.hryvniaRate(ctx, currency, date)
	if err != nil {
		return decimal.Zero, err
	}
	if n.baseCurrency == hryvnia {
		return quote, nil
	}

	base, err := n.hryvniaRate(ctx, n.baseCurrency, date)
	if err != nil {
		return decimal.Zero, err
	}
	return quote.Div(base), nil
}

func (n *NBUClient) hryvniaRate(ctx context.Context, currency string, date core.Date) (decimal.Decimal, error) {
	if currency == hryvnia {
		return decimal.NewFromInt(1), nil
	}

	key := currency + ":" + date.Format(nbuDateLayout)
	if rate, ok := n.cache.Get(key); ok {
		return rate, nil
	}

	quotes, err := n.fetch(ctx, currency, date)
	if err != nil {
		return decimal.Zero, err
	}
	for _, q := range quotes {
		if strings.EqualFold(q.Currency, currency) && q.Rate.IsPositive() {
			n.cache.Set(key, q.Rate)
			n.logger.DebugContext(ctx, "Exchange rate fetched",
				log.FieldCurrency, currency, "date", date.String(), "rate", q.Rate.String())
			return q.Rate, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s on %s", ErrRateUnavailable, currency, date)
}

func (n *NBUClient) fetch(ctx context.Context, currency string, date core.Date) ([]Quote, error) {
	u, err := url.Parse(n.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse rates URL: %w", err)
	}
	q := u.Query()
	q.Set("valcode", currency)
	q.Set("date", date.Format(nbuDateLayout))
	u.RawQuery = q.Encode() + "&json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRateUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: NBU responded %s", ErrRateUnavailable, resp.Status)
	}

	var quotes []Quote
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return nil, fmt.Errorf("%w: decode NBU response: %w", ErrRateUnavailable, err)
	}
	return quotes, nil
}
