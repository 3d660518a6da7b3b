package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unit normalization for extracted feature values. Every normalizer is
// idempotent: feeding its own output back returns the same value.

const cmToInch = 0.3937

// NormalizeRefreshRate canonicalizes "144Hz", "144 fps", "144hertz"
// to integer hertz. Returns false when the token is not a rate.
func NormalizeRefreshRate(raw string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, suffix := range []string{"hertz", "hz", "fps"} {
		s = strings.TrimSuffix(s, suffix)
	}
	s = strings.TrimSpace(s)
	hz, err := strconv.Atoi(s)
	if err != nil || hz <= 0 {
		return 0, false
	}
	return hz, true
}

// NormalizeSize canonicalizes screen sizes to inches rounded to one
// decimal. Accepts `"`, "in", "inch", "inches" and "cm" suffixes; a
// bare number is treated as inches.
func NormalizeSize(raw string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	cm := false
	switch {
	case strings.HasSuffix(s, "cm"):
		cm = true
		s = strings.TrimSuffix(s, "cm")
	case strings.HasSuffix(s, "inches"):
		s = strings.TrimSuffix(s, "inches")
	case strings.HasSuffix(s, "inch"):
		s = strings.TrimSuffix(s, "inch")
	case strings.HasSuffix(s, "in"):
		s = strings.TrimSuffix(s, "in")
	case strings.HasSuffix(s, `"`):
		s = strings.TrimSuffix(s, `"`)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	if cm {
		v *= cmToInch
	}
	return math.Round(v*10) / 10, true
}

// resolutionSynonyms maps marketplace spellings to the closed
// canonical set {1080p, 1440p, 4k, 8k, ultrawide}.
var resolutionSynonyms = map[string]string{
	"1080p":     "1080p",
	"1080":      "1080p",
	"fhd":       "1080p",
	"full hd":   "1080p",
	"fullhd":    "1080p",
	"1920x1080": "1080p",
	"1440p":     "1440p",
	"1440":      "1440p",
	"qhd":       "1440p",
	"wqhd":      "1440p",
	"2k":        "1440p",
	"2560x1440": "1440p",
	"4k":        "4k",
	"uhd":       "4k",
	"ultra hd":  "4k",
	"2160p":     "4k",
	"3840x2160": "4k",
	"8k":        "8k",
	"4320p":     "8k",
	"ultrawide": "ultrawide",
	"uwqhd":     "ultrawide",
}

// NormalizeResolution canonicalizes resolution synonyms.
func NormalizeResolution(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	v, ok := resolutionSynonyms[s]
	return v, ok
}

// NormalizeCurvature canonicalizes curvature tokens. A radius like
// "1500R" implies curved; the radius is retained in the numeric slot
// by the caller.
func NormalizeCurvature(raw string) (value string, radius int, ok bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "curved":
		return "curved", 0, true
	case "flat":
		return "flat", 0, true
	}
	if strings.HasSuffix(s, "r") {
		if r, err := strconv.Atoi(strings.TrimSuffix(s, "r")); err == nil && r >= 500 && r <= 4000 {
			return "curved", r, true
		}
	}
	return "", 0, false
}

// NormalizePrice parses rupee amounts: "60000", "60,000", "60k",
// "1.2k", optionally prefixed with a currency marker.
func NormalizePrice(raw string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "₹")
	s = strings.TrimPrefix(s, "rs.")
	s = strings.TrimPrefix(s, "rs")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	mult := 1.0
	if strings.HasSuffix(s, "k") {
		mult = 1000
		s = strings.TrimSuffix(s, "k")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return int(math.Round(v * mult)), true
}

// FormatSize renders a normalized size back to its canonical string
// form ("31.5" not "31.50").
func FormatSize(inches float64) string {
	if inches == math.Trunc(inches) {
		return strconv.Itoa(int(inches))
	}
	return strconv.FormatFloat(inches, 'f', 1, 64)
}

// FormatHz renders a refresh rate canonical string.
func FormatHz(hz int) string {
	return fmt.Sprintf("%d", hz)
}
