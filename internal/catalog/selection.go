package catalog

// PresentationMode is the chosen presentation size of a selection.
type PresentationMode string

const (
	ModeSingle PresentationMode = "single"
	ModeDuo    PresentationMode = "duo"
	ModeTrio   PresentationMode = "trio"
)

// Slice returns the number of products the mode presents.
func (m PresentationMode) Slice() int {
	switch m {
	case ModeTrio:
		return 3
	case ModeDuo:
		return 2
	default:
		return 1
	}
}

// SelectionModel identifies which selection model produced a result.
type SelectionModel string

const (
	ModelFeatureMatch SelectionModel = "feature_match"
	ModelPopularity   SelectionModel = "popularity"
	ModelRandom       SelectionModel = "random"
)

// ScoreWeights are the component mixing weights; they sum to 1.
type ScoreWeights struct {
	Technical  float64 `json:"technical"`
	Value      float64 `json:"value"`
	Budget     float64 `json:"budget"`
	Excellence float64 `json:"excellence"`
}

// Sum returns the total of all component weights.
func (w ScoreWeights) Sum() float64 {
	return w.Technical + w.Value + w.Budget + w.Excellence
}

// Score is the full breakdown for one (user, product, category)
// scoring. All components are in [0,1] and Final is the weighted mix.
type Score struct {
	Technical  float64      `json:"technical"`
	Value      float64      `json:"value"`
	Budget     float64      `json:"budget"`
	Excellence float64      `json:"excellence"`
	Weights    ScoreWeights `json:"weights"`
	Final      float64      `json:"final"`

	// MatchedFeatures lists feature names that scored above 0.7.
	MatchedFeatures []string `json:"matched_features,omitempty"`
	// MissingFeatures lists user features the product lacks.
	MissingFeatures []string `json:"missing_features,omitempty"`
	Rationale       string   `json:"rationale,omitempty"`

	// Confidence mirrors the product's analysis confidence, carried
	// through for tie-breaking.
	Confidence float64 `json:"confidence"`
}

// ComparisonRow is one differing, user-relevant feature across the
// presented set.
type ComparisonRow struct {
	FeatureName string   `json:"feature_name"`
	Values      []string `json:"values"`
	UserTarget  string   `json:"user_target,omitempty"`
}

// ComparisonTable holds at most four rows, user-expressed features
// first.
type ComparisonTable struct {
	Rows []ComparisonRow `json:"rows"`
}

// Provenance records how a selection was produced, for transports and
// debugging. It is informational only.
type Provenance struct {
	EnhancedKeywords []string `json:"enhanced_keywords,omitempty"`
	PagesFetched     int      `json:"pages_fetched,omitempty"`
	PartialSearch    bool     `json:"partial_search,omitempty"`
	EnrichedASINs    int      `json:"enriched_asins,omitempty"`
	// PriceRangeWorkaround is set when both min and max price were
	// supplied: the upstream saw only the min, max was applied
	// client-side.
	PriceRangeWorkaround bool `json:"price_range_workaround,omitempty"`
	CacheHit             bool `json:"cache_hit,omitempty"`
	Degraded             bool `json:"degraded,omitempty"`
}

// SelectionResult is what the pipeline returns to the transport.
// Products and Scores are parallel and ASINs are unique.
type SelectionResult struct {
	Mode           PresentationMode `json:"mode"`
	Products       []Product        `json:"products"`
	Scores         []Score          `json:"scores"`
	Comparison     *ComparisonTable `json:"comparison,omitempty"`
	ModelUsed      SelectionModel   `json:"model_used"`
	FallbackReason string           `json:"fallback_reason,omitempty"`
	ProcessingMS   int64            `json:"processing_ms"`
	Provenance     Provenance       `json:"provenance"`
}
