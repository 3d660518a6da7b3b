package catalog

// Well-known feature names shared by the extractor, analyzer and
// scoring engine. Vocabularies may define more; these are the ones
// the core reasons about explicitly.
const (
	FeatureRefreshRate  = "refresh_rate"
	FeatureSize         = "size"
	FeatureResolution   = "resolution"
	FeatureCurvature    = "curvature"
	FeaturePanelType    = "panel_type"
	FeatureBrand        = "brand"
	FeatureUsageContext = "usage_context"
	FeaturePrice        = "price"
	FeatureCategory     = "category"
)

// FeatureValue is one extracted or analyzed feature with the
// confidence of its source.
type FeatureValue struct {
	// Value is the canonical string form: "144" for refresh rate,
	// "1440p" for resolution, "curved" for curvature, "lg" for brand.
	Value string `json:"value"`
	// Numeric carries the parsed number for numeric features
	// (refresh_rate in Hz, size in inches, price in rupees).
	Numeric   float64 `json:"numeric,omitempty"`
	IsNumeric bool    `json:"is_numeric,omitempty"`

	Confidence float64 `json:"confidence"`
}

// FeatureSet is the structured interpretation of a query or listing:
// a mapping from feature name to value plus derived signals.
type FeatureSet struct {
	Features map[string]FeatureValue `json:"features"`

	// Order preserves extraction order, used to prioritize
	// user-expressed features in comparison tables.
	Order []string `json:"order,omitempty"`

	// Category is the detected product category ("gaming_monitor"),
	// empty when undetected.
	Category string `json:"category,omitempty"`

	// TechnicalQuery is true when the query contains at least one
	// numeric specification, two category-specific technical terms,
	// or a category term plus a recognized spec name. Only meaningful
	// for user queries.
	TechnicalQuery bool `json:"technical_query,omitempty"`
}

// Empty reports whether nothing was extracted.
func (fs *FeatureSet) Empty() bool {
	return len(fs.Features) == 0
}

// Get returns the named feature value.
func (fs *FeatureSet) Get(name string) (FeatureValue, bool) {
	v, ok := fs.Features[name]
	return v, ok
}

// ProductFeatures is a listing's analyzed feature record: the same
// shape as an extracted query plus an overall confidence in [0,1].
type ProductFeatures struct {
	FeatureSet
	OverallConfidence float64 `json:"overall_confidence"`
}
