package pipeline

import (
	"strings"

	"github.com/dealsentry/dealsentry/internal/features"
)

// Budget-tier enhancement terms. Higher budgets widen the search
// toward premium listings the raw query would miss; below ten thousand
// rupees the query goes upstream untouched.
var tierTerms = []struct {
	minBudget int
	terms     []string
}{
	{100000, []string{"professional", "studio", "flagship"}},
	{50000, []string{"business", "workstation"}},
	{25000, []string{"performance", "quality"}},
}

// Monitor queries with real budgets also pull in the panel vocabulary
// buyers at that price expect.
var monitorPremiumTerms = []string{"4k", "uhd", "hdr", "ips", "144hz"}

// enhanceKeywords appends budget-tier terms to the search keywords.
// Terms already present in the query are not duplicated, and nothing
// is added when the budget is unknown or under ten thousand rupees.
// Returns the enhanced keyword string and the terms actually added.
func enhanceKeywords(keywords, category string, budget int) (string, []string) {
	if budget < 10000 {
		return keywords, nil
	}

	lower := strings.ToLower(keywords)
	var added []string
	add := func(term string) {
		if strings.Contains(lower, term) {
			return
		}
		for _, a := range added {
			if a == term {
				return
			}
		}
		added = append(added, term)
	}

	for _, tier := range tierTerms {
		if budget >= tier.minBudget {
			for _, t := range tier.terms {
				add(t)
			}
			break // only the highest qualifying tier applies
		}
	}

	isMonitor := category == features.CategoryMonitor || category == features.CategoryGamingMonitor
	if isMonitor && budget >= 30000 {
		for _, t := range monitorPremiumTerms {
			add(t)
		}
	}

	if len(added) == 0 {
		return keywords, nil
	}
	return keywords + " " + strings.Join(added, " "), added
}

// searchDepth decides how many result pages to fetch: deeper for
// bigger budgets where the good listings sit past page one.
func searchDepth(base, max, budget int) int {
	depth := base
	switch {
	case budget >= 100000:
		depth = max
	case budget >= 50000:
		depth = base + 2
	}
	if depth > max {
		depth = max
	}
	if depth < 1 {
		depth = 1
	}
	return depth
}
