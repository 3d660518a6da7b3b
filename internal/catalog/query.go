package catalog

// Query is a single user request: free text plus optional structured
// filters. Immutable per request.
type Query struct {
	Text    string  `json:"text"`
	Filters Filters `json:"filters"`
}

// Filters are user-stated constraints. A stated filter is never
// relaxed: if the candidate set empties, selection fails with NoMatch.
type Filters struct {
	MaxPrice           *int   `json:"max_price,omitempty"`
	MinPrice           *int   `json:"min_price,omitempty"`
	MinDiscountPercent *int   `json:"min_discount_percent,omitempty"`
	Brand              string `json:"brand,omitempty"`
	CategoryHint       string `json:"category_hint,omitempty"`
}

// Empty reports whether no structured filter is set.
func (f Filters) Empty() bool {
	return f.MaxPrice == nil && f.MinPrice == nil &&
		f.MinDiscountPercent == nil && f.Brand == "" && f.CategoryHint == ""
}
