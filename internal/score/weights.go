package score

import (
	"github.com/dealsentry/dealsentry/internal/catalog"
	"github.com/dealsentry/dealsentry/internal/features"
)

// CategoryWeights is the per-feature importance table for one
// category. The technical component divides by the summed weights of
// features the user expressed, so the table itself need not sum to 1.
type CategoryWeights map[string]float64

var gamingMonitorWeights = CategoryWeights{
	catalog.FeatureUsageContext: 2.5,
	catalog.FeatureRefreshRate:  2.0,
	catalog.FeatureResolution:   1.8,
	catalog.FeatureSize:         1.5,
	catalog.FeatureCurvature:    1.2,
	catalog.FeaturePanelType:    1.0,
	catalog.FeatureBrand:        0.8,
	catalog.FeaturePrice:        0.5,
	catalog.FeatureCategory:     0.3,
}

var monitorWeights = CategoryWeights{
	catalog.FeatureUsageContext: 1.5,
	catalog.FeatureResolution:   2.0,
	catalog.FeatureSize:         1.8,
	catalog.FeatureRefreshRate:  1.2,
	catalog.FeaturePanelType:    1.2,
	catalog.FeatureCurvature:    0.8,
	catalog.FeatureBrand:        0.8,
	catalog.FeaturePrice:        0.5,
	catalog.FeatureCategory:     0.3,
}

var generalWeights = CategoryWeights{
	catalog.FeatureBrand:        1.5,
	catalog.FeatureSize:         1.2,
	catalog.FeatureResolution:   1.0,
	catalog.FeatureRefreshRate:  1.0,
	catalog.FeaturePanelType:    1.0,
	catalog.FeatureCurvature:    1.0,
	catalog.FeatureUsageContext: 1.0,
	catalog.FeaturePrice:        0.5,
	catalog.FeatureCategory:     0.3,
}

var categoryWeightTable = map[string]CategoryWeights{
	features.CategoryGamingMonitor: gamingMonitorWeights,
	features.CategoryMonitor:       monitorWeights,
	features.CategoryLaptop:        generalWeights,
	features.CategoryGeneral:       generalWeights,
}

// WeightsFor returns the feature weight table for a category, falling
// back to the general set.
func WeightsFor(category string) CategoryWeights {
	if w, ok := categoryWeightTable[category]; ok {
		return w
	}
	return generalWeights
}

// Weight returns the weight of one feature, defaulting to 1.0 for
// features the table does not name.
func (cw CategoryWeights) Weight(feature string) float64 {
	if w, ok := cw[feature]; ok {
		return w
	}
	return 1.0
}

// Component mixing weights (sum to 1). Gaming intent leans harder on
// the technical match; everything else favors value.
var (
	gamingMix  = catalog.ScoreWeights{Technical: 0.45, Value: 0.30, Budget: 0.20, Excellence: 0.05}
	defaultMix = catalog.ScoreWeights{Technical: 0.35, Value: 0.40, Budget: 0.20, Excellence: 0.05}
)

// MixFor picks the component mixing weights from user context and
// category.
func MixFor(category string, user catalog.FeatureSet) catalog.ScoreWeights {
	if category == features.CategoryGamingMonitor {
		return gamingMix
	}
	if ctx, ok := user.Get(catalog.FeatureUsageContext); ok && ctx.Value == "gaming" {
		return gamingMix
	}
	return defaultMix
}
