package analyze

import (
	"strings"

	"github.com/dealsentry/dealsentry/internal/catalog"
	"github.com/dealsentry/dealsentry/internal/features"
	"github.com/dealsentry/dealsentry/internal/score"
)

// Source confidences. Technical details are curated by the seller,
// feature bullets less so, and titles are marketing copy.
const (
	confTechnicalDetails = 0.95
	confFeaturesList     = 0.85
	confTitle            = 0.60
)

// Per-feature confidence adjustments.
var confidenceDelta = map[string]float64{
	catalog.FeatureBrand:       +0.08,
	catalog.FeatureRefreshRate: +0.05,
	catalog.FeaturePanelType:   -0.05,
}

// Validation ranges. Out-of-range values are dropped, not clamped: a
// "700Hz" monitor is a parsing artifact, not a product.
type validRange struct{ min, max float64 }

var validationRanges = map[string]validRange{
	catalog.FeatureRefreshRate: {30, 480},
	catalog.FeatureSize:        {10, 65},
}

// Analyzer normalizes marketplace listings into comparable feature
// records. Stateless after construction; safe for concurrent use.
type Analyzer struct{}

// NewAnalyzer builds a product analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze extracts the target category's features from a product,
// consulting technical details, then feature bullets, then the title.
// A feature found in a higher-precedence source wins. If every source
// is empty the result is an empty record with zero confidence, which
// callers use to skip scoring.
func (a *Analyzer) Analyze(p *catalog.Product, category string) catalog.ProductFeatures {
	pf := catalog.ProductFeatures{
		FeatureSet: catalog.FeatureSet{
			Features: map[string]catalog.FeatureValue{},
			Category: category,
		},
	}
	if p == nil {
		return pf
	}

	vocab := features.VocabularyFor(category)
	orderedNames := []string{
		catalog.FeatureRefreshRate, catalog.FeatureSize,
		catalog.FeatureResolution, catalog.FeatureCurvature,
		catalog.FeaturePanelType, catalog.FeatureBrand,
		catalog.FeatureUsageContext,
	}

	title := scrubTitle(p.Title)
	bullets := strings.ToLower(strings.Join(p.FeaturesList, " \n "))

	for _, name := range orderedNames {
		if fv, ok := a.fromTechnicalDetails(p, vocab, name); ok {
			a.put(&pf, name, fv, confTechnicalDetails)
			continue
		}
		if fv, ok := matchFeature(vocab, name, bullets); ok {
			a.put(&pf, name, fv, confFeaturesList)
			continue
		}
		if fv, ok := matchFeature(vocab, name, title); ok {
			a.put(&pf, name, fv, confTitle)
		}
	}

	// The structured brand field outranks any text source.
	if p.Brand != "" {
		a.put(&pf, catalog.FeatureBrand, catalog.FeatureValue{
			Value: strings.ToLower(strings.TrimSpace(p.Brand)),
		}, confTechnicalDetails)
	}

	pf.OverallConfidence = a.overallConfidence(p, &pf, category)
	return pf
}

// put applies the per-feature delta and the validation range, then
// stores the value. Later sources never override earlier ones.
func (a *Analyzer) put(pf *catalog.ProductFeatures, name string, fv catalog.FeatureValue, sourceConf float64) {
	if _, exists := pf.Features[name]; exists && name != catalog.FeatureBrand {
		return
	}
	if r, ok := validationRanges[name]; ok && fv.IsNumeric {
		if fv.Numeric < r.min || fv.Numeric > r.max {
			return
		}
	}
	conf := sourceConf + confidenceDelta[name]
	if conf > 1 {
		conf = 1
	}
	if conf < 0 {
		conf = 0
	}
	fv.Confidence = conf
	if _, exists := pf.Features[name]; !exists {
		pf.Order = append(pf.Order, name)
	}
	pf.Features[name] = fv
}

// fromTechnicalDetails scans the structured key/value block for a
// feature. Keys are matched loosely ("Refresh Rate", "Maximum Refresh
// Rate"); values run through the same normalizers as queries.
func (a *Analyzer) fromTechnicalDetails(p *catalog.Product, vocab *features.Vocabulary, name string) (catalog.FeatureValue, bool) {
	if len(p.TechnicalDetails) == 0 {
		return catalog.FeatureValue{}, false
	}
	keyHints := technicalKeyHints[name]
	for key, val := range p.TechnicalDetails {
		lk := strings.ToLower(key)
		hinted := false
		for _, h := range keyHints {
			if strings.Contains(lk, h) {
				hinted = true
				break
			}
		}
		if !hinted {
			continue
		}
		if fv, ok := matchFeature(vocab, name, strings.ToLower(val)); ok {
			return fv, true
		}
		// Some sellers fill bare values ("144" under "Refresh Rate").
		if fv, ok := normalizeBare(name, val); ok {
			return fv, true
		}
	}
	return catalog.FeatureValue{}, false
}

var technicalKeyHints = map[string][]string{
	catalog.FeatureRefreshRate: {"refresh"},
	catalog.FeatureSize:        {"size", "screen", "display"},
	catalog.FeatureResolution:  {"resolution"},
	catalog.FeatureCurvature:   {"curvature", "curve", "form factor"},
	catalog.FeaturePanelType:   {"panel"},
	catalog.FeatureBrand:       {"brand"},
}

// overallConfidence is the category-weighted mean of per-feature
// confidences, scaled by a structure bonus for richly specified
// listings.
func (a *Analyzer) overallConfidence(p *catalog.Product, pf *catalog.ProductFeatures, category string) float64 {
	if len(pf.Features) == 0 {
		return 0
	}
	weights := score.WeightsFor(category)
	var num, den float64
	for name, fv := range pf.Features {
		w := weights.Weight(name)
		num += fv.Confidence * w
		den += w
	}
	conf := num / den

	if len(p.TechnicalDetails) >= 3 {
		conf += 0.05
	}
	if len(p.FeaturesList) >= 5 {
		conf += 0.05
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}
