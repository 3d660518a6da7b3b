package pipeline

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dealsentry/dealsentry/internal/analyze"
	"github.com/dealsentry/dealsentry/internal/cache"
	"github.com/dealsentry/dealsentry/internal/catalog"
	"github.com/dealsentry/dealsentry/internal/features"
	"github.com/dealsentry/dealsentry/internal/paapi"
	"github.com/dealsentry/dealsentry/internal/score"
	"github.com/dealsentry/dealsentry/internal/selection"
	"github.com/dealsentry/dealsentry/internal/telemetry"
)

// Config tunes the selection pipeline. Zero values fall back to the
// documented defaults.
type Config struct {
	Deadline       time.Duration `yaml:"deadline"`
	AnalyzeWorkers int           `yaml:"analyze_workers"`
	BasePages      int           `yaml:"base_pages"`
	MaxPages       int           `yaml:"max_pages"`
	// EnrichLimit caps how many thin listings one request may look up.
	EnrichLimit int `yaml:"enrich_limit"`
}

func (c *Config) defaults() {
	if c.Deadline <= 0 {
		c.Deadline = 15 * time.Second
	}
	if c.AnalyzeWorkers <= 0 {
		c.AnalyzeWorkers = 8
	}
	if c.BasePages <= 0 {
		c.BasePages = 3
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 8
	}
	if c.EnrichLimit <= 0 {
		c.EnrichLimit = 20
	}
}

// Searcher is the slice of the upstream adapter the pipeline consumes.
type Searcher interface {
	SearchPaginated(ctx context.Context, params paapi.SearchParams, pages int) ([]catalog.Product, paapi.SearchMeta, error)
	GetItemsBatch(ctx context.Context, asins []string, set paapi.ResourceSetID) (map[string]catalog.Product, error)
}

// Pipeline runs one selection end to end: extract, search, enrich,
// filter, analyze, score, select, present. Safe for concurrent use.
type Pipeline struct {
	cfg       Config
	extractor *features.Extractor
	analyzer  *analyze.CachedAnalyzer
	engine    *score.Engine
	models    *selection.ModelSelector
	multicard *selection.MultiCardSelector
	searcher  Searcher
	results   cache.SearchCacheRepo
	metrics   *telemetry.Metrics

	now func() time.Time
}

// New wires the pipeline. results may be nil to disable the search
// cache; metrics may be telemetry.Nop().
func New(cfg Config, extractor *features.Extractor, analyzer *analyze.CachedAnalyzer,
	engine *score.Engine, models *selection.ModelSelector, multicard *selection.MultiCardSelector,
	searcher Searcher, results cache.SearchCacheRepo, metrics *telemetry.Metrics) *Pipeline {
	cfg.defaults()
	if metrics == nil {
		metrics = telemetry.Nop()
	}
	return &Pipeline{
		cfg:       cfg,
		extractor: extractor,
		analyzer:  analyzer,
		engine:    engine,
		models:    models,
		multicard: multicard,
		searcher:  searcher,
		results:   results,
		metrics:   metrics,
		now:       time.Now,
	}
}

// RunSelection executes one query under the pipeline deadline. userID
// seeds the random selection model so repeated identical requests from
// one user are reproducible within a session.
func (p *Pipeline) RunSelection(ctx context.Context, query catalog.Query, userID int64) (*catalog.SelectionResult, error) {
	if strings.TrimSpace(query.Text) == "" {
		return nil, catalog.ErrInvalidInput
	}
	if query.Filters.MinPrice != nil && query.Filters.MaxPrice != nil &&
		*query.Filters.MinPrice > *query.Filters.MaxPrice {
		return nil, catalog.ErrInvalidInput
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Deadline)
	defer cancel()
	started := p.now()

	user := p.stageExtract(query)
	budget := p.budgetRupees(query, user)

	products, prov, err := p.stageSearch(ctx, query, user, budget)
	if err != nil {
		return nil, err
	}

	products, err = filterBrand(products, query.Filters.Brand)
	if err != nil {
		return nil, err
	}

	products, degraded := p.stageEnrich(ctx, query, products)
	prov.Degraded = prov.Degraded || degraded
	prov.EnrichedASINs = len(products)
	if len(products) == 0 {
		return nil, catalog.NoMatch(catalog.NoMatchPostEnrich)
	}

	products, err = filterPrice(products, query.Filters.MinPrice, query.Filters.MaxPrice)
	if err != nil {
		return nil, err
	}
	products, err = filterDiscount(products, query.Filters.MinDiscountPercent)
	if err != nil {
		return nil, err
	}
	p.metrics.StageCandidates.WithLabelValues("filter").Set(float64(len(products)))

	candidates := p.stageAnalyzeScore(ctx, user, products, budget)
	if len(candidates) == 0 {
		return nil, catalog.NoMatch(catalog.NoMatchPostEnrich)
	}
	sortCandidates(candidates, budget)

	outcome, err := p.models.Select(user, candidates, requestSeed(query.Text, userID))
	if err != nil {
		return nil, err
	}

	mode := p.multicard.Decide(outcome.Ranked, budget)
	n := mode.Slice()
	if n > len(outcome.Ranked) {
		n = len(outcome.Ranked)
	}
	presented := outcome.Ranked[:n]

	result := &catalog.SelectionResult{
		Mode:           mode,
		ModelUsed:      outcome.ModelUsed,
		FallbackReason: outcome.FallbackReason,
		ProcessingMS:   p.now().Sub(started).Milliseconds(),
		Provenance:     prov,
	}
	for _, c := range presented {
		result.Products = append(result.Products, c.Product)
		result.Scores = append(result.Scores, c.Score)
	}
	if n >= 2 {
		result.Comparison = selection.BuildComparison(user, presented)
	}

	p.metrics.SelectionTotal.WithLabelValues(string(outcome.ModelUsed), string(mode)).Inc()
	log.Info().
		Str("model", string(outcome.ModelUsed)).
		Str("mode", string(mode)).
		Int("candidates", len(candidates)).
		Int64("ms", result.ProcessingMS).
		Msg("selection complete")
	return result, nil
}

func (p *Pipeline) stageExtract(query catalog.Query) catalog.FeatureSet {
	defer p.observe("extract")()
	user := p.extractor.Extract(query.Text, query.Filters.CategoryHint)
	log.Debug().
		Str("category", user.Category).
		Bool("technical", user.TechnicalQuery).
		Int("features", len(user.Features)).
		Msg("query extracted")
	return user
}

// stageSearch consults the result cache, then runs the paginated
// upstream search with budget-driven keyword enhancement and depth.
func (p *Pipeline) stageSearch(ctx context.Context, query catalog.Query, user catalog.FeatureSet, budget int) ([]catalog.Product, catalog.Provenance, error) {
	defer p.observe("search")()

	keywords, added := enhanceKeywords(query.Text, user.Category, budget)
	prov := catalog.Provenance{EnhancedKeywords: added}

	params := paapi.SearchParams{
		Keywords:    keywords,
		SearchIndex: searchIndexFor(user.Category),
		MinPrice:    query.Filters.MinPrice,
		MaxPrice:    query.Filters.MaxPrice,
		ResourceSet: paapi.ResourceSetAISearch,
	}
	key := cache.SearchKey{
		Keywords:      keywords,
		SearchIndex:   params.SearchIndex,
		MinPrice:      deref(query.Filters.MinPrice),
		MaxPrice:      deref(query.Filters.MaxPrice),
		ItemCount:     10,
		ResourceSetID: string(params.ResourceSet),
	}
	if p.results != nil {
		if products, ok := p.results.Get(ctx, key); ok {
			prov.CacheHit = true
			p.metrics.StageCandidates.WithLabelValues("search").Set(float64(len(products)))
			return products, prov, nil
		}
	}

	pages := searchDepth(p.cfg.BasePages, p.cfg.MaxPages, budget)
	products, meta, err := p.searcher.SearchPaginated(ctx, params, pages)
	if err != nil {
		return nil, prov, err
	}
	prov.PagesFetched = meta.PagesFetched
	prov.PartialSearch = meta.Partial
	prov.PriceRangeWorkaround = meta.PriceRangeWorkaround
	if len(products) == 0 {
		return nil, prov, catalog.NoMatch(catalog.NoSearchResults)
	}
	if p.results != nil && !meta.Partial {
		p.results.Put(ctx, key, products, cache.SearchTTL)
	}
	p.metrics.StageCandidates.WithLabelValues("search").Set(float64(len(products)))
	return products, prov, nil
}

// stageEnrich looks up listings the search returned without a price or
// without any analyzable text. Enrichment is best-effort: a degraded
// batch keeps whatever the search already provided.
func (p *Pipeline) stageEnrich(ctx context.Context, query catalog.Query, products []catalog.Product) ([]catalog.Product, bool) {
	defer p.observe("enrich")()

	needsPrice := query.Filters.MinPrice != nil || query.Filters.MaxPrice != nil ||
		query.Filters.MinDiscountPercent != nil
	var thin []string
	for _, prod := range products {
		if len(thin) == p.cfg.EnrichLimit {
			break
		}
		enrich := (needsPrice && !prod.HasPrice()) ||
			(len(prod.FeaturesList) == 0 && len(prod.TechnicalDetails) == 0)
		if enrich {
			thin = append(thin, prod.ASIN)
		}
	}
	if len(thin) == 0 {
		return products, false
	}

	fetched, err := p.searcher.GetItemsBatch(ctx, thin, paapi.ResourceSetAILookup)
	degraded := err != nil || len(fetched) < len(thin)
	if err != nil {
		log.Warn().Err(err).Int("asins", len(thin)).Msg("enrichment degraded")
	}
	for i := range products {
		if enriched, ok := fetched[products[i].ASIN]; ok {
			products[i] = mergeProduct(products[i], enriched)
		}
	}
	return products, degraded
}

// mergeProduct overlays enriched fields onto the search result without
// losing review signals the lookup resource set does not carry.
func mergeProduct(base, enriched catalog.Product) catalog.Product {
	out := enriched
	if out.Title == "" {
		out.Title = base.Title
	}
	if out.Brand == "" {
		out.Brand = base.Brand
	}
	if out.ImageURL == "" {
		out.ImageURL = base.ImageURL
	}
	if out.PriceRupees == nil {
		out.PriceRupees = base.PriceRupees
	}
	if len(out.FeaturesList) == 0 {
		out.FeaturesList = base.FeaturesList
	}
	if len(out.TechnicalDetails) == 0 {
		out.TechnicalDetails = base.TechnicalDetails
	}
	out.RatingCount = base.RatingCount
	out.AverageRating = base.AverageRating
	return out
}

// stageAnalyzeScore runs analysis and scoring across a bounded worker
// pool. Workers check the context between products so an expired
// deadline yields the candidates finished so far.
func (p *Pipeline) stageAnalyzeScore(ctx context.Context, user catalog.FeatureSet, products []catalog.Product, budget int) []selection.Candidate {
	defer p.observe("analyze_score")()

	var budgetPtr *int
	if budget > 0 {
		budgetPtr = &budget
	}

	out := make([]selection.Candidate, len(products))
	done := make([]bool, len(products))
	jobs := make(chan int)

	workers := p.cfg.AnalyzeWorkers
	if workers > len(products) {
		workers = len(products)
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					return
				}
				prod := products[idx]
				pf := p.analyzer.Analyze(&prod, user.Category)
				sc := p.engine.Score(user, pf, user.Category, prod.PriceRupees, budgetPtr)
				out[idx] = selection.Candidate{Product: prod, Features: pf, Score: sc}
				done[idx] = true
			}
		}()
	}
dispatch:
	for i := range products {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	candidates := make([]selection.Candidate, 0, len(products))
	for i := range out {
		if done[i] {
			candidates = append(candidates, out[i])
		}
	}
	p.metrics.StageCandidates.WithLabelValues("analyze_score").Set(float64(len(candidates)))
	return candidates
}

// budgetRupees resolves the effective budget: structured filter first,
// then the price feature extracted from the query text.
func (p *Pipeline) budgetRupees(query catalog.Query, user catalog.FeatureSet) int {
	if query.Filters.MaxPrice != nil && *query.Filters.MaxPrice > 0 {
		return *query.Filters.MaxPrice
	}
	if v, ok := user.Get(catalog.FeaturePrice); ok && v.IsNumeric {
		return int(v.Numeric)
	}
	return 0
}

func (p *Pipeline) observe(stage string) func() {
	start := p.now()
	return func() {
		p.metrics.StageDuration.WithLabelValues(stage).Observe(p.now().Sub(start).Seconds())
	}
}

func searchIndexFor(category string) string {
	switch category {
	case features.CategoryMonitor, features.CategoryGamingMonitor, features.CategoryLaptop:
		return "Computers"
	default:
		return "Electronics"
	}
}

// requestSeed makes the weighted-random model reproducible for an
// identical (query, user) pair.
func requestSeed(text string, userID int64) int64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(text))))
	return int64(h.Sum64()) ^ userID
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
