package analyze

import (
	"regexp"
	"strings"

	"github.com/dealsentry/dealsentry/internal/catalog"
	"github.com/dealsentry/dealsentry/internal/features"
)

// Listing titles carry ornamental tokens that trip the query patterns:
// model numbers that look like specs, year suffixes, warranty clauses.
// scrubTitle removes them before pattern matching.
var (
	reModelNumber = regexp.MustCompile(`\b[A-Z]{2,}\d{3,}[A-Z0-9-]*\b`)
	reYearSuffix  = regexp.MustCompile(`(?i)\(\s*20\d{2}\s*(?:model|edition|launch)?\s*\)`)
	reWarranty    = regexp.MustCompile(`(?i)\b\d+\s*(?:year|yr)s?\s*(?:onsite\s*)?warranty\b`)
)

func scrubTitle(title string) string {
	s := reModelNumber.ReplaceAllString(title, " ")
	s = reYearSuffix.ReplaceAllString(s, " ")
	s = reWarranty.ReplaceAllString(s, " ")
	return strings.ToLower(s)
}

// matchFeature delegates to the shared vocabulary matcher.
func matchFeature(vocab *features.Vocabulary, name, text string) (catalog.FeatureValue, bool) {
	if strings.TrimSpace(text) == "" {
		return catalog.FeatureValue{}, false
	}
	return features.MatchFeature(vocab, name, text)
}

// normalizeBare handles technical-details values without units: "144"
// under a "Refresh Rate" key, "27" under "Screen Size".
func normalizeBare(name, raw string) (catalog.FeatureValue, bool) {
	raw = strings.TrimSpace(raw)
	switch name {
	case catalog.FeatureRefreshRate:
		if hz, ok := features.NormalizeRefreshRate(raw); ok {
			return catalog.FeatureValue{Value: features.FormatHz(hz), Numeric: float64(hz), IsNumeric: true}, true
		}
	case catalog.FeatureSize:
		if in, ok := features.NormalizeSize(raw); ok {
			return catalog.FeatureValue{Value: features.FormatSize(in), Numeric: in, IsNumeric: true}, true
		}
	case catalog.FeatureResolution:
		if res, ok := features.NormalizeResolution(raw); ok {
			return catalog.FeatureValue{Value: res}, true
		}
	case catalog.FeatureBrand:
		if raw != "" {
			return catalog.FeatureValue{Value: strings.ToLower(raw)}, true
		}
	}
	return catalog.FeatureValue{}, false
}
