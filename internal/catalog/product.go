package catalog

import "time"

// Product is an immutable snapshot of a marketplace listing at fetch
// time. Prices are integer rupees; nil means the upstream did not
// return a price and enrichment is required before price-sensitive
// selection (see pipeline).
type Product struct {
	ASIN         string `json:"asin"`
	Title        string `json:"title"`
	ImageURL     string `json:"image_url,omitempty"`
	Brand        string `json:"brand,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`

	PriceRupees     *int `json:"price_rupees,omitempty"`
	ListPriceRupees *int `json:"list_price_rupees,omitempty"`
	DiscountPercent *int `json:"discount_percent,omitempty"`

	RatingCount   int     `json:"rating_count"`
	AverageRating float64 `json:"average_rating"`

	// FeaturesList and TechnicalDetails are always non-nil; the
	// adapter returns them empty when the upstream drops the fields.
	FeaturesList     []string          `json:"features_list"`
	TechnicalDetails map[string]string `json:"technical_details"`
}

// HasPrice reports whether the listing carries a buyable price.
func (p *Product) HasPrice() bool {
	return p.PriceRupees != nil
}

// Price returns the price in rupees, or 0 when unknown.
func (p *Product) Price() int {
	if p.PriceRupees == nil {
		return 0
	}
	return *p.PriceRupees
}

// Discount returns the discount percent, or 0 when unknown.
func (p *Product) Discount() int {
	if p.DiscountPercent == nil {
		return 0
	}
	return *p.DiscountPercent
}

// PricePoint is one observation of a product's price over time.
type PricePoint struct {
	ASIN            string `json:"asin" db:"asin"`
	PriceRupees     int    `json:"price_rupees" db:"price_rupees"`
	ListPriceRupees *int   `json:"list_price_rupees,omitempty" db:"list_price_rupees"`
	ObservedAt      time.Time `json:"observed_at" db:"observed_at"`
}
