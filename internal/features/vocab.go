package features

import "regexp"

// Category identifiers used across extraction, analysis and scoring.
const (
	CategoryGamingMonitor = "gaming_monitor"
	CategoryMonitor       = "monitor"
	CategoryLaptop        = "laptop"
	CategoryGeneral       = "general"
)

// Vocabulary is the static pattern set for one product category:
// feature name to matching patterns, plus the term lists the
// technical-query heuristic consults.
type Vocabulary struct {
	Category string

	// Patterns match feature values inside free text. Capture group 1
	// is the raw value handed to the normalizer.
	Patterns map[string][]*regexp.Regexp

	// TechnicalTerms are category-specific spec words ("ips", "hdr").
	TechnicalTerms []string

	// CategoryTerms identify the category itself ("monitor").
	CategoryTerms []string
}

var (
	reRefreshRate = regexp.MustCompile(`(?i)\b(\d{2,3})\s*(?:hz|fps|hertz)\b`)
	reSizeInches  = regexp.MustCompile(`(?i)\b(\d{2}(?:\.\d)?)\s*(?:"|''|-?inch(?:es)?|in\b)`)
	reSizeCM      = regexp.MustCompile(`(?i)\b(\d{2,3}(?:\.\d)?)\s*cm\b`)
	reResolution  = regexp.MustCompile(`(?i)\b(1080p|1440p|2160p|4320p|fhd|full\s?hd|qhd|wqhd|uwqhd|2k|4k|8k|uhd|ultra\s?hd|ultrawide|1920x1080|2560x1440|3840x2160)\b`)
	reCurvature   = regexp.MustCompile(`(?i)\b(curved|flat|\d{3,4}r)\b`)
	rePanelType   = regexp.MustCompile(`(?i)\b(ips|va|tn|oled|qled|mini[- ]?led)\b`)

	// Price patterns are always-on: a budget ceiling ("under 60000",
	// "below ₹60k") or a plain rupee amount.
	reBudgetMax = regexp.MustCompile(`(?i)\b(?:under|below|within|upto|up\s+to|max(?:imum)?)\s*(₹?\s*(?:rs\.?\s*)?[\d,]+(?:\.\d+)?k?)`)
	reBudgetMin = regexp.MustCompile(`(?i)\b(?:above|over|min(?:imum)?|at\s+least)\s*(₹?\s*(?:rs\.?\s*)?[\d,]+(?:\.\d+)?k?)`)
	rePriceTag  = regexp.MustCompile(`(?i)(₹\s*[\d,]+(?:\.\d+)?k?|\brs\.?\s*[\d,]+(?:\.\d+)?k?\b)`)

	reGamingCtx       = regexp.MustCompile(`(?i)\b(gaming|gamer|esports|fps\s+games?)\b`)
	reProfessionalCtx = regexp.MustCompile(`(?i)\b(professional|office|work(?:station)?|business|editing|designer?)\b`)
	reBudgetCtx       = regexp.MustCompile(`(?i)\b(budget|cheap|affordable|entry[- ]level|sasta)\b`)
)

// knownBrands is the generic brand token list shared by all
// categories. Lowercase canonical forms.
var knownBrands = []string{
	"lg", "samsung", "dell", "hp", "lenovo", "asus", "acer", "benq",
	"msi", "aoc", "viewsonic", "gigabyte", "zebronics", "boat", "sony",
	"mi", "xiaomi", "oneplus", "apple", "philips", "tcl",
}

var reBrand = func() *regexp.Regexp {
	alt := ""
	for i, b := range knownBrands {
		if i > 0 {
			alt += "|"
		}
		alt += b
	}
	return regexp.MustCompile(`(?i)\b(` + alt + `)\b`)
}()

// hindiFillers are transliterated mixed-language tokens stripped from
// queries before matching. They never affect numeric features.
var hindiFillers = map[string]bool{
	"ka": true, "ki": true, "ke": true, "wala": true, "wali": true,
	"chahiye": true, "chaiye": true, "liye": true, "mein": true,
	"accha": true, "acha": true, "bhi": true, "hai": true,
}

// defaultMarketingDenylist terms are ornamental and never become
// features. Configurable additions are merged at construction.
var defaultMarketingDenylist = []string{
	"cinematic", "eye-care", "eyecare", "stunning", "immersive",
	"ultra-slim", "ultraslim", "sleek", "stylish", "premium-looking",
	"best", "amazing", "beautiful", "gorgeous", "vibrant",
}

var monitorVocabulary = &Vocabulary{
	Category: CategoryMonitor,
	Patterns: map[string][]*regexp.Regexp{
		"refresh_rate": {reRefreshRate},
		"size":         {reSizeInches, reSizeCM},
		"resolution":   {reResolution},
		"curvature":    {reCurvature},
		"panel_type":   {rePanelType},
	},
	TechnicalTerms: []string{
		"ips", "va", "tn", "oled", "hdr", "hdr10", "freesync", "g-sync",
		"gsync", "srgb", "nits", "response", "1ms", "displayport", "hdmi",
	},
	CategoryTerms: []string{"monitor", "display", "screen"},
}

var laptopVocabulary = &Vocabulary{
	Category: CategoryLaptop,
	Patterns: map[string][]*regexp.Regexp{
		"refresh_rate": {reRefreshRate},
		"size":         {reSizeInches, reSizeCM},
		"resolution":   {reResolution},
		"panel_type":   {rePanelType},
	},
	TechnicalTerms: []string{
		"ram", "ssd", "nvme", "ryzen", "intel", "i5", "i7", "rtx", "gtx",
		"graphics", "core", "battery",
	},
	CategoryTerms: []string{"laptop", "notebook", "ultrabook"},
}

// vocabularies indexes every known category. gaming_monitor shares the
// monitor pattern set; the category split only changes scoring weights
// and enhancement.
var vocabularies = map[string]*Vocabulary{
	CategoryMonitor:       monitorVocabulary,
	CategoryGamingMonitor: monitorVocabulary,
	CategoryLaptop:        laptopVocabulary,
}

// VocabularyFor returns the vocabulary for a category, falling back to
// the monitor set for unknown categories (it carries the generic
// display patterns).
func VocabularyFor(category string) *Vocabulary {
	if v, ok := vocabularies[category]; ok {
		return v
	}
	return monitorVocabulary
}
