package paapi

// Resource sets are frozen presets: the upstream returns only the
// fields named in the request, so the two AI paths pin exactly what
// the analyzer and the watch evaluator need.

// ResourceSetID names a preset for cache keys and logs.
type ResourceSetID string

const (
	// ResourceSetAISearch is requested on search: everything the
	// analyzer and scorer consume, including review signals.
	ResourceSetAISearch ResourceSetID = "ai_search"
	// ResourceSetAILookup is requested on single/batch lookup:
	// detailed price including the saving basis, no review data.
	ResourceSetAILookup ResourceSetID = "ai_lookup"
)

var aiSearchResources = []string{
	"ItemInfo.Title",
	"ItemInfo.Features",
	"ItemInfo.TechnicalInfo",
	"ItemInfo.ByLineInfo",
	"Offers.Listings.Price",
	"Images.Primary.Large",
	"Images.Primary.Medium",
	"CustomerReviews.Count",
	"CustomerReviews.StarRating",
}

var aiLookupResources = []string{
	"ItemInfo.Title",
	"ItemInfo.Features",
	"ItemInfo.TechnicalInfo",
	"ItemInfo.ByLineInfo",
	"Offers.Listings.Price",
	"Offers.Listings.SavingBasis",
	"Offers.Listings.Availability.Type",
	"Images.Primary.Large",
	"Images.Primary.Medium",
}

// Resources returns the upstream field list for a preset.
func Resources(id ResourceSetID) []string {
	if id == ResourceSetAILookup {
		return aiLookupResources
	}
	return aiSearchResources
}
