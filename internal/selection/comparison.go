package selection

import (
	"github.com/dealsentry/dealsentry/internal/catalog"
)

const maxComparisonRows = 4

// BuildComparison produces the comparison table for a multi-card
// presentation: only rows where the presented products differ, with
// user-expressed features first (in extraction order) and the user's
// target value attached where known. Capped at four rows.
func BuildComparison(user catalog.FeatureSet, presented []Candidate) *catalog.ComparisonTable {
	if len(presented) < 2 {
		return nil
	}

	// User-expressed features first, then the remaining technical
	// features in a stable order.
	candidateOrder := make([]string, 0, 8)
	seen := map[string]bool{}
	for _, name := range user.Order {
		if name == catalog.FeaturePrice || name == catalog.FeatureCategory {
			continue
		}
		if !seen[name] {
			candidateOrder = append(candidateOrder, name)
			seen[name] = true
		}
	}
	for _, name := range []string{
		catalog.FeatureRefreshRate, catalog.FeatureSize,
		catalog.FeatureResolution, catalog.FeatureCurvature,
		catalog.FeaturePanelType, catalog.FeatureBrand,
	} {
		if !seen[name] {
			candidateOrder = append(candidateOrder, name)
			seen[name] = true
		}
	}

	table := &catalog.ComparisonTable{}
	for _, name := range candidateOrder {
		values := make([]string, len(presented))
		distinct := map[string]bool{}
		anyPresent := false
		for i, c := range presented {
			if v, ok := c.Features.Features[name]; ok {
				values[i] = v.Value
				anyPresent = true
			} else {
				values[i] = "-"
			}
			// "-" counts as a value: present-vs-absent is a difference
			// worth showing.
			distinct[values[i]] = true
		}
		if !anyPresent || len(distinct) < 2 {
			continue // identical or absent everywhere, nothing to compare
		}
		row := catalog.ComparisonRow{FeatureName: name, Values: values}
		if uv, ok := user.Features[name]; ok {
			row.UserTarget = uv.Value
		}
		table.Rows = append(table.Rows, row)
		if len(table.Rows) == maxComparisonRows {
			break
		}
	}
	if len(table.Rows) == 0 {
		return nil
	}
	return table
}
