package paapi

import (
	"math"
	"strings"

	"github.com/dealsentry/dealsentry/internal/catalog"
)

// toProduct normalizes one upstream item into the core's Product.
// Paise become rupees here and nowhere else; multi-size images reduce
// to one URL (large preferred); dropped structured fields come back
// empty, never nil.
func toProduct(item *Item) catalog.Product {
	p := catalog.Product{
		ASIN:             item.ASIN,
		Title:            strings.TrimSpace(item.ItemInfo.Title.DisplayValue),
		Brand:            strings.TrimSpace(item.ItemInfo.ByLineInfo.Brand.DisplayValue),
		Manufacturer:     strings.TrimSpace(item.ItemInfo.ByLineInfo.Manufacturer.DisplayValue),
		RatingCount:      item.CustomerReviews.Count,
		AverageRating:    item.CustomerReviews.StarRating.Value,
		FeaturesList:     []string{},
		TechnicalDetails: map[string]string{},
	}

	if item.Images.Primary.Large.URL != "" {
		p.ImageURL = item.Images.Primary.Large.URL
	} else if item.Images.Primary.Medium.URL != "" {
		p.ImageURL = item.Images.Primary.Medium.URL
	}

	if len(item.ItemInfo.Features.DisplayValues) > 0 {
		p.FeaturesList = append(p.FeaturesList, item.ItemInfo.Features.DisplayValues...)
	}
	for _, d := range item.ItemInfo.TechnicalInfo.Details {
		if d.Name != "" {
			p.TechnicalDetails[d.Name] = d.Value
		}
	}

	if len(item.Offers.Listings) > 0 {
		listing := item.Offers.Listings[0]
		if listing.Price.Amount > 0 {
			price := paiseToRupees(listing.Price.Amount)
			p.PriceRupees = &price
		}
		if listing.SavingBasis.Amount > 0 {
			list := paiseToRupees(listing.SavingBasis.Amount)
			p.ListPriceRupees = &list
		}
	}
	if d, ok := discountPercent(p.PriceRupees, p.ListPriceRupees); ok {
		p.DiscountPercent = &d
	}
	return p
}

// paiseToRupees rounds to the nearest rupee.
func paiseToRupees(paise int) int {
	return int(math.Round(float64(paise) / 100.0))
}

// discountPercent derives the integer discount from list and current
// price when both are present and sane.
func discountPercent(price, list *int) (int, bool) {
	if price == nil || list == nil || *list <= 0 || *price >= *list {
		return 0, false
	}
	d := int(math.Round((1.0 - float64(*price)/float64(*list)) * 100))
	if d <= 0 || d >= 100 {
		return 0, false
	}
	return d, true
}

// inStock reports upstream availability for restock detection.
func inStock(item *Item) bool {
	for _, l := range item.Offers.Listings {
		if l.Availability.Type == "" || strings.EqualFold(l.Availability.Type, "Now") {
			return true
		}
	}
	return false
}
