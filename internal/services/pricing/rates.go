package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	rateCachePrefix = "fossa:rate:"
	rateCacheTTL    = 30 * time.Second

	satsPerBtc = 100_000_000
)

// HTTPRateSource fetches BTC prices from an LNbits-compatible rate endpoint
// (GET {base}/api/v1/rate/{currency} -> {"rate": <price of 1 BTC>}) and
// caches them briefly in Redis so a busy ATM does not hammer the rate API.
type HTTPRateSource struct {
	baseURL string
	client  *http.Client
	cache   *redis.Client
	log     *logrus.Entry
}

func NewHTTPRateSource(baseURL string, cache *redis.Client) *HTTPRateSource {
	return &HTTPRateSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
		log:     logrus.WithField("component", "rates"),
	}
}

func (r *HTTPRateSource) FiatAsSats(ctx context.Context, amount float64, currency string) (int64, error) {
	rate, err := r.btcRate(ctx, currency)
	if err != nil {
		return 0, err
	}
	if rate <= 0 {
		return 0, fmt.Errorf("non-positive rate %f for %s", rate, currency)
	}
	return int64(amount / rate * satsPerBtc), nil
}

// btcRate returns the price of one BTC in the given currency.
func (r *HTTPRateSource) btcRate(ctx context.Context, currency string) (float64, error) {
	cacheKey := rateCachePrefix + currency

	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, cacheKey).Result(); err == nil {
			if rate, err := strconv.ParseFloat(cached, 64); err == nil {
				return rate, nil
			}
		}
	}

	url := fmt.Sprintf("%s/api/v1/rate/%s", r.baseURL, currency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate endpoint returned %d", resp.StatusCode)
	}

	var body struct {
		Rate float64 `json:"rate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, cacheKey, strconv.FormatFloat(body.Rate, 'f', -1, 64), rateCacheTTL).Err(); err != nil {
			r.log.WithError(err).Warn("failed to cache rate")
		}
	}
	return body.Rate, nil
}
