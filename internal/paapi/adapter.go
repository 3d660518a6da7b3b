package paapi

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/dealsentry/dealsentry/internal/catalog"
	"github.com/dealsentry/dealsentry/internal/telemetry"
)

// Upstream hard limits: ten items per search page, ten pages deep,
// ten ASINs per lookup call.
const (
	maxItemsPerPage  = 10
	maxUpstreamPages = 10
	maxBatchASINs    = 10
)

// PriceSource is the pluggable fallback used when batch lookup is
// degraded or the breaker is open: ASIN in, rupees-or-nil out. Not
// part of the core's invariants.
type PriceSource interface {
	PriceRupees(ctx context.Context, asin string) (*int, error)
}

// AdapterConfig tunes the adapter. Zero values fall back to the
// documented defaults.
type AdapterConfig struct {
	RatePerSec    float64       `yaml:"rate_per_sec"`
	MaxRetries    int           `yaml:"max_retries"`
	SearchTimeout time.Duration `yaml:"search_timeout"`
	PagedTimeout  time.Duration `yaml:"paged_timeout"`
	BatchTimeout  time.Duration `yaml:"batch_timeout"`

	PartnerTag  string `yaml:"partner_tag"`
	Marketplace string `yaml:"marketplace"`
}

func (c *AdapterConfig) defaults() {
	if c.RatePerSec <= 0 {
		c.RatePerSec = 1
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = 5 * time.Second
	}
	if c.PagedTimeout <= 0 {
		c.PagedTimeout = 60 * time.Second
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 90 * time.Second
	}
	if c.Marketplace == "" {
		c.Marketplace = "www.amazon.in"
	}
}

// SearchParams describe one logical search before pagination.
type SearchParams struct {
	Keywords    string
	SearchIndex string
	MinPrice    *int // rupees
	MaxPrice    *int // rupees
	BrowseNode  string
	ItemCount   int
	ResourceSet ResourceSetID
}

// SearchMeta reports upstream facts the pipeline needs for
// provenance.
type SearchMeta struct {
	TotalResults int
	PagesFetched int
	Partial      bool
	// PriceRangeWorkaround is set when both price bounds were given:
	// only the min went upstream, max must be applied client-side.
	PriceRangeWorkaround bool
}

// Lookup is one GetItem result with its availability signal.
type Lookup struct {
	Product catalog.Product
	InStock bool
}

// Adapter is the sole point of contact with the upstream product API.
// It owns the process-wide token bucket (1 rps, burst 1), the circuit
// breaker (five consecutive failures open it for 60s), retry backoff
// and unit normalization.
type Adapter struct {
	transport Transport
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	cfg       AdapterConfig
	metrics   *telemetry.Metrics
	prices    PriceSource

	// sleep is swapped in tests to avoid real pagination delays.
	sleep func(ctx context.Context, d time.Duration) error

	mu  sync.Mutex
	rng *rand.Rand
}

// NewAdapter builds the adapter. priceSource may be nil; metrics may
// be telemetry.Nop().
func NewAdapter(transport Transport, cfg AdapterConfig, metrics *telemetry.Metrics, priceSource PriceSource) *Adapter {
	cfg.defaults()
	if metrics == nil {
		metrics = telemetry.Nop()
	}
	a := &Adapter{
		transport: transport,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		cfg:       cfg,
		metrics:   metrics,
		prices:    priceSource,
		sleep:     sleepCtx,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	a.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "paapi",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				metrics.BreakerState.Set(1)
			} else {
				metrics.BreakerState.Set(0)
			}
			log.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("upstream breaker state change")
		},
	})
	return a
}

// Search issues one request of up to ten items.
func (a *Adapter) Search(ctx context.Context, params SearchParams) ([]catalog.Product, SearchMeta, error) {
	ctx, cancel := withDefaultTimeout(ctx, a.cfg.SearchTimeout)
	defer cancel()
	return a.searchPage(ctx, params, 1)
}

// SearchPaginated issues up to pages sequential requests respecting
// the rate limit and adaptive inter-page delays, returning the unique
// concatenated product set. A later page failure returns what
// succeeded with the partial marker set.
func (a *Adapter) SearchPaginated(ctx context.Context, params SearchParams, pages int) ([]catalog.Product, SearchMeta, error) {
	if pages < 1 {
		pages = 1
	}
	if pages > maxUpstreamPages {
		pages = maxUpstreamPages
	}
	ctx, cancel := withDefaultTimeout(ctx, a.cfg.PagedTimeout)
	defer cancel()

	var (
		all  []catalog.Product
		seen = map[string]bool{}
		meta SearchMeta
	)
	for page := 1; page <= pages; page++ {
		if page > 1 {
			if err := a.sleep(ctx, a.interPageDelay(pages)); err != nil {
				meta.Partial = true
				break
			}
		}
		products, pageMeta, err := a.searchPage(ctx, params, page)
		if err != nil {
			if page == 1 {
				return nil, meta, err
			}
			log.Warn().Err(err).Int("page", page).Msg("paginated search degraded")
			meta.Partial = true
			break
		}
		meta.TotalResults = pageMeta.TotalResults
		meta.PriceRangeWorkaround = pageMeta.PriceRangeWorkaround
		meta.PagesFetched = page
		for _, p := range products {
			if !seen[p.ASIN] {
				seen[p.ASIN] = true
				all = append(all, p)
			}
		}
		if len(products) < maxItemsPerPage {
			break // upstream ran out of results
		}
	}
	return all, meta, nil
}

// GetItem fetches one listing with the requested resource set.
func (a *Adapter) GetItem(ctx context.Context, asin string, set ResourceSetID) (*Lookup, error) {
	ctx, cancel := withDefaultTimeout(ctx, a.cfg.SearchTimeout)
	defer cancel()

	req := &GetItemsRequest{
		ItemIDs:     []string{asin},
		Resources:   Resources(set),
		PartnerTag:  a.cfg.PartnerTag,
		PartnerType: "Associates",
		Marketplace: a.cfg.Marketplace,
	}
	var resp *GetItemsResponse
	err := a.do(ctx, "get_item", func(ctx context.Context) error {
		var err error
		resp, err = a.transport.GetItems(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	for i := range resp.ItemsResult.Items {
		item := &resp.ItemsResult.Items[i]
		if item.ASIN == asin {
			return &Lookup{Product: toProduct(item), InStock: inStock(item)}, nil
		}
	}
	return nil, fmt.Errorf("asin %s: %w", asin, catalog.ErrTransient)
}

// GetItemsBatch looks up to len(asins) listings, ten per upstream
// call. When a chunk fails and a PriceSource is wired, missing ASINs
// get a best-effort price-only entry. The returned map may be partial.
func (a *Adapter) GetItemsBatch(ctx context.Context, asins []string, set ResourceSetID) (map[string]catalog.Product, error) {
	ctx, cancel := withDefaultTimeout(ctx, a.cfg.BatchTimeout)
	defer cancel()

	out := make(map[string]catalog.Product, len(asins))
	var firstErr error
	for start := 0; start < len(asins); start += maxBatchASINs {
		end := start + maxBatchASINs
		if end > len(asins) {
			end = len(asins)
		}
		chunk := asins[start:end]

		req := &GetItemsRequest{
			ItemIDs:     chunk,
			Resources:   Resources(set),
			PartnerTag:  a.cfg.PartnerTag,
			PartnerType: "Associates",
			Marketplace: a.cfg.Marketplace,
		}
		var resp *GetItemsResponse
		err := a.do(ctx, "get_items_batch", func(ctx context.Context) error {
			var err error
			resp, err = a.transport.GetItems(ctx, req)
			return err
		})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			a.scavengePrices(ctx, chunk, out)
			continue
		}
		for i := range resp.ItemsResult.Items {
			item := &resp.ItemsResult.Items[i]
			out[item.ASIN] = toProduct(item)
		}
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// scavengePrices consults the fallback price source for ASINs the
// degraded upstream could not serve.
func (a *Adapter) scavengePrices(ctx context.Context, asins []string, out map[string]catalog.Product) {
	if a.prices == nil {
		return
	}
	for _, asin := range asins {
		if _, ok := out[asin]; ok {
			continue
		}
		price, err := a.prices.PriceRupees(ctx, asin)
		if err != nil || price == nil {
			continue
		}
		out[asin] = catalog.Product{
			ASIN:             asin,
			PriceRupees:      price,
			FeaturesList:     []string{},
			TechnicalDetails: map[string]string{},
		}
	}
}

func (a *Adapter) searchPage(ctx context.Context, params SearchParams, page int) ([]catalog.Product, SearchMeta, error) {
	req := &SearchItemsRequest{
		Keywords:     params.Keywords,
		SearchIndex:  params.SearchIndex,
		ItemCount:    params.ItemCount,
		ItemPage:     page,
		BrowseNodeID: params.BrowseNode,
		Resources:    Resources(params.ResourceSet),
		PartnerTag:   a.cfg.PartnerTag,
		PartnerType:  "Associates",
		Marketplace:  a.cfg.Marketplace,
	}
	if req.ItemCount <= 0 || req.ItemCount > maxItemsPerPage {
		req.ItemCount = maxItemsPerPage
	}

	var meta SearchMeta
	// Combined MinPrice+MaxPrice is unreliable upstream: send only the
	// min and let the pipeline enforce the max client-side.
	switch {
	case params.MinPrice != nil && params.MaxPrice != nil:
		req.MinPrice = rupeesToPaise(*params.MinPrice)
		meta.PriceRangeWorkaround = true
	case params.MinPrice != nil:
		req.MinPrice = rupeesToPaise(*params.MinPrice)
	case params.MaxPrice != nil:
		req.MaxPrice = rupeesToPaise(*params.MaxPrice)
	}

	var resp *SearchItemsResponse
	err := a.do(ctx, "search", func(ctx context.Context) error {
		var err error
		resp, err = a.transport.SearchItems(ctx, req)
		return err
	})
	if err != nil {
		return nil, meta, err
	}

	meta.TotalResults = resp.SearchResult.TotalResultCount
	meta.PagesFetched = 1
	products := make([]catalog.Product, 0, len(resp.SearchResult.Items))
	for i := range resp.SearchResult.Items {
		products = append(products, toProduct(&resp.SearchResult.Items[i]))
	}
	return products, meta, nil
}

// do wraps one upstream call with the breaker, the shared token
// bucket and retry backoff. An open breaker fails before the limiter
// so tokens are untouched.
func (a *Adapter) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if a.breaker.State() == gobreaker.StateOpen {
		a.metrics.UpstreamRequests.WithLabelValues(op, "breaker_open").Inc()
		return fmt.Errorf("%s: breaker open: %w", op, catalog.ErrUnavailable)
	}

	var lastErr error
	for attempt := 0; attempt <= a.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			a.metrics.UpstreamRetries.WithLabelValues(op).Inc()
			if err := a.sleep(ctx, a.backoff(attempt)); err != nil {
				return fmt.Errorf("%s: %w", op, catalog.ErrTransient)
			}
		}
		if err := a.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limiter: %w", op, catalog.ErrTransient)
		}

		_, err := a.breaker.Execute(func() (interface{}, error) {
			return nil, fn(ctx)
		})
		if err == nil {
			a.metrics.UpstreamRequests.WithLabelValues(op, "ok").Inc()
			return nil
		}

		kind := classify(err)
		switch kind {
		case catalog.ErrUnavailable:
			a.metrics.UpstreamRequests.WithLabelValues(op, "unavailable").Inc()
			return fmt.Errorf("%s: %w", op, catalog.ErrUnavailable)
		case catalog.ErrInvalidInput:
			a.metrics.UpstreamRequests.WithLabelValues(op, "rejected").Inc()
			return fmt.Errorf("%s: %w", op, catalog.ErrInvalidInput)
		}
		// Transient: throttle, 5xx, network, timeout. Retry.
		var he *httpError
		if errors.As(err, &he) && he.Status == 429 {
			a.metrics.UpstreamThrottle.Inc()
		}
		a.metrics.UpstreamRequests.WithLabelValues(op, "transient").Inc()
		lastErr = err
		if ctx.Err() != nil {
			break // deadline consumed, retrying is pointless
		}
	}
	return fmt.Errorf("%s: retries exhausted: %v: %w", op, lastErr, catalog.ErrTransient)
}

// classify maps raw transport errors onto the canonical taxonomy.
func classify(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return catalog.ErrUnavailable
	}
	var he *httpError
	if errors.As(err, &he) {
		switch {
		case he.Status == 429:
			return catalog.ErrTransient
		case he.Status == 401 || he.Status == 403:
			return catalog.ErrUnavailable // credentials definitively broken
		case he.Status >= 500:
			return catalog.ErrTransient
		case he.Status >= 400:
			return catalog.ErrInvalidInput
		}
	}
	return catalog.ErrTransient
}

// backoff is exponential from 2s doubling to a 30s cap, with full
// jitter.
func (a *Adapter) backoff(attempt int) time.Duration {
	base := 2 * time.Second << uint(attempt-1)
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	a.mu.Lock()
	jittered := time.Duration(a.rng.Float64() * float64(base))
	a.mu.Unlock()
	if jittered < 100*time.Millisecond {
		jittered = 100 * time.Millisecond
	}
	return jittered
}

// interPageDelay slows pagination as depth grows: deeper scans burn
// quota faster than a single page.
func (a *Adapter) interPageDelay(totalPages int) time.Duration {
	switch {
	case totalPages > 5:
		return 4500 * time.Millisecond
	case totalPages >= 3:
		return 3500 * time.Millisecond
	default:
		return 2500 * time.Millisecond
	}
}

// rupeesToPaise converts a rupee filter to the upstream's unit.
func rupeesToPaise(rupees int) int {
	return rupees * 100
}

func withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
