package paapi

// Wire shapes for the upstream product-advertising API. Prices arrive
// as integer paise for the India marketplace; the transform converts
// to rupees before anything leaves this package.

// SearchItemsRequest is one page of a keyword search.
type SearchItemsRequest struct {
	Keywords     string   `json:"Keywords"`
	SearchIndex  string   `json:"SearchIndex,omitempty"`
	ItemCount    int      `json:"ItemCount,omitempty"`
	ItemPage     int      `json:"ItemPage,omitempty"`
	MinPrice     int      `json:"MinPrice,omitempty"`
	MaxPrice     int      `json:"MaxPrice,omitempty"`
	BrowseNodeID string   `json:"BrowseNodeId,omitempty"`
	Resources    []string `json:"Resources,omitempty"`
	PartnerTag   string   `json:"PartnerTag"`
	PartnerType  string   `json:"PartnerType"`
	Marketplace  string   `json:"Marketplace"`
}

// GetItemsRequest looks up to ten ASINs in one call.
type GetItemsRequest struct {
	ItemIDs     []string `json:"ItemIds"`
	Resources   []string `json:"Resources,omitempty"`
	PartnerTag  string   `json:"PartnerTag"`
	PartnerType string   `json:"PartnerType"`
	Marketplace string   `json:"Marketplace"`
}

// SearchItemsResponse is the upstream search payload.
type SearchItemsResponse struct {
	SearchResult struct {
		TotalResultCount int    `json:"TotalResultCount"`
		Items            []Item `json:"Items"`
	} `json:"SearchResult"`
	Errors []APIError `json:"Errors,omitempty"`
}

// GetItemsResponse is the upstream lookup payload.
type GetItemsResponse struct {
	ItemsResult struct {
		Items []Item `json:"Items"`
	} `json:"ItemsResult"`
	Errors []APIError `json:"Errors,omitempty"`
}

// APIError is an upstream-reported error record.
type APIError struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

// Item is one marketplace listing as the upstream returns it.
type Item struct {
	ASIN          string `json:"ASIN"`
	DetailPageURL string `json:"DetailPageURL,omitempty"`

	Images struct {
		Primary struct {
			Large  ImageSpec `json:"Large"`
			Medium ImageSpec `json:"Medium"`
		} `json:"Primary"`
	} `json:"Images"`

	ItemInfo struct {
		Title struct {
			DisplayValue string `json:"DisplayValue"`
		} `json:"Title"`
		ByLineInfo struct {
			Brand        DisplayValue `json:"Brand"`
			Manufacturer DisplayValue `json:"Manufacturer"`
		} `json:"ByLineInfo"`
		Features struct {
			DisplayValues []string `json:"DisplayValues"`
		} `json:"Features"`
		TechnicalInfo struct {
			Details []NameValue `json:"Details"`
		} `json:"TechnicalInfo"`
	} `json:"ItemInfo"`

	Offers struct {
		Listings []Listing `json:"Listings"`
	} `json:"Offers"`

	CustomerReviews struct {
		Count      int `json:"Count"`
		StarRating struct {
			Value float64 `json:"Value"`
		} `json:"StarRating"`
	} `json:"CustomerReviews"`
}

// ImageSpec is one rendered image size.
type ImageSpec struct {
	URL    string `json:"URL"`
	Height int    `json:"Height,omitempty"`
	Width  int    `json:"Width,omitempty"`
}

// DisplayValue wraps the upstream's display-value envelope.
type DisplayValue struct {
	DisplayValue string `json:"DisplayValue"`
}

// NameValue is one technical-detail row.
type NameValue struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// Listing is one offer with its price in paise.
type Listing struct {
	Price struct {
		Amount   int    `json:"Amount"`
		Currency string `json:"Currency"`
	} `json:"Price"`
	SavingBasis struct {
		Amount int `json:"Amount"`
	} `json:"SavingBasis"`
	Availability struct {
		Type string `json:"Type"` // "Now", "OutOfStock"
	} `json:"Availability"`
}
