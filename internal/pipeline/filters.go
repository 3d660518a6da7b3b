package pipeline

import (
	"strings"

	"github.com/dealsentry/dealsentry/internal/catalog"
)

// User-stated filters are never relaxed: each stage either keeps a
// non-empty set or fails with the reason that emptied it, in the fixed
// order brand, price, discount.

func filterBrand(products []catalog.Product, brand string) ([]catalog.Product, error) {
	if brand == "" {
		return products, nil
	}
	want := strings.ToLower(strings.TrimSpace(brand))
	kept := products[:0]
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Brand), want) ||
			strings.Contains(strings.ToLower(p.Manufacturer), want) ||
			strings.Contains(strings.ToLower(p.Title), want) {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil, catalog.NoMatch(catalog.NoMatchBrandFilter)
	}
	return kept, nil
}

// filterPrice enforces both bounds client-side. The upstream only ever
// saw one of them (see the adapter's price range workaround), and
// prices may have arrived via enrichment after the search.
func filterPrice(products []catalog.Product, minPrice, maxPrice *int) ([]catalog.Product, error) {
	if minPrice == nil && maxPrice == nil {
		return products, nil
	}
	kept := products[:0]
	for _, p := range products {
		if !p.HasPrice() {
			continue // unpriced listings cannot satisfy a price constraint
		}
		if minPrice != nil && p.Price() < *minPrice {
			continue
		}
		if maxPrice != nil && p.Price() > *maxPrice {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return nil, catalog.NoMatch(catalog.NoMatchPriceFilter)
	}
	return kept, nil
}

func filterDiscount(products []catalog.Product, minDiscount *int) ([]catalog.Product, error) {
	if minDiscount == nil {
		return products, nil
	}
	kept := products[:0]
	for _, p := range products {
		if p.Discount() >= *minDiscount {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil, catalog.NoMatch(catalog.NoMatchDiscount)
	}
	return kept, nil
}
