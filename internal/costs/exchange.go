package costs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-admin/internal/observability/metrics"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

const (
	DefaultExchangeRateURL = "https://economia.awesomeapi.com.br/last/USD-BRL"
	DefaultExchangeRateTTL = time.Hour
	FallbackExchangeRate   = 5.0

	exchangeRateTimeout = 5 * time.Second
	exchangeRateKey     = "clinic:fx:usd_brl"
)

// Rate is a USD to BRL quote. Cached is false only for a fresh remote read.
type Rate struct {
	Value  float64
	Cached bool
}

// RateProvider quotes USD to BRL. It never fails; it degrades to a fallback.
type RateProvider interface {
	USDToBRL(ctx context.Context) Rate
}

// ExchangeRateConfig configures ExchangeRateClient.
type ExchangeRateConfig struct {
	URL        string
	TTL        time.Duration
	HTTPClient *http.Client
	Redis      *redis.Client
}

// ExchangeRateClient fetches the USD-BRL bid from awesomeapi. Quotes are cached
// in Redis when configured so every instance shares one TTL window, with the
// last value seen by this process as a second tier.
type ExchangeRateClient struct {
	url     string
	ttl     time.Duration
	http    *http.Client
	redis   *redis.Client
	metrics *metrics.AdminMetrics
	logger  *logging.Logger
	now     func() time.Time

	mu       sync.Mutex
	last     float64
	lastSeen time.Time
}

// NewExchangeRateClient builds a client with defaults filled in.
func NewExchangeRateClient(cfg ExchangeRateConfig, logger *logging.Logger) *ExchangeRateClient {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultExchangeRateURL
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultExchangeRateTTL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: exchangeRateTimeout}
	}
	return &ExchangeRateClient{
		url:    cfg.URL,
		ttl:    cfg.TTL,
		http:   cfg.HTTPClient,
		redis:  cfg.Redis,
		logger: logger,
		now:    time.Now,
	}
}

// WithMetrics records which tier served each quote.
func (c *ExchangeRateClient) WithMetrics(m *metrics.AdminMetrics) *ExchangeRateClient {
	c.metrics = m
	return c
}

// USDToBRL returns the current quote.
func (c *ExchangeRateClient) USDToBRL(ctx context.Context) Rate {
	if rate, ok := c.fromRedis(ctx); ok {
		c.metrics.ObserveExchangeRate("redis")
		return Rate{Value: rate, Cached: true}
	}
	if c.redis == nil {
		if rate, ok := c.fresh(); ok {
			c.metrics.ObserveExchangeRate("memory")
			return Rate{Value: rate, Cached: true}
		}
	}

	rate, err := c.fetch(ctx)
	if err == nil {
		c.remember(ctx, rate)
		c.metrics.ObserveExchangeRate("remote")
		return Rate{Value: rate}
	}

	c.logger.Warn("exchange rate lookup failed, using fallback", "error", err)
	c.mu.Lock()
	last := c.last
	c.mu.Unlock()
	if last > 0 {
		c.metrics.ObserveExchangeRate("memory")
		return Rate{Value: last, Cached: true}
	}
	c.metrics.ObserveExchangeRate("fallback")
	return Rate{Value: FallbackExchangeRate, Cached: true}
}

func (c *ExchangeRateClient) fromRedis(ctx context.Context) (float64, bool) {
	if c.redis == nil {
		return 0, false
	}
	raw, err := c.redis.Get(ctx, exchangeRateKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("exchange rate cache read failed", "error", err)
		}
		return 0, false
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil || rate <= 0 {
		return 0, false
	}
	return rate, true
}

func (c *ExchangeRateClient) fresh() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last > 0 && c.now().Sub(c.lastSeen) < c.ttl {
		return c.last, true
	}
	return 0, false
}

func (c *ExchangeRateClient) remember(ctx context.Context, rate float64) {
	c.mu.Lock()
	c.last = rate
	c.lastSeen = c.now()
	c.mu.Unlock()

	if c.redis == nil {
		return
	}
	value := strconv.FormatFloat(rate, 'f', -1, 64)
	if err := c.redis.Set(ctx, exchangeRateKey, value, c.ttl).Err(); err != nil {
		c.logger.Warn("exchange rate cache write failed", "error", err)
	}
}

type awesomeQuote struct {
	USDBRL struct {
		Bid string `json:"bid"`
	} `json:"USDBRL"`
}

func (c *ExchangeRateClient) fetch(ctx context.Context) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, exchangeRateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, fmt.Errorf("costs: build exchange rate request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("costs: exchange rate request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("costs: exchange rate status %d", resp.StatusCode)
	}

	var quote awesomeQuote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return 0, fmt.Errorf("costs: decode exchange rate: %w", err)
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(quote.USDBRL.Bid), 64)
	if err != nil || rate <= 0 {
		return 0, fmt.Errorf("costs: invalid exchange rate %q", quote.USDBRL.Bid)
	}
	return rate, nil
}
