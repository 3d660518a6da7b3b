package features

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dealsentry/dealsentry/internal/catalog"
)

// Query-side extraction confidences. Pattern strength decides the
// figure: an explicit numeric spec with a unit is near-certain, a
// contextual word less so.
const (
	confNumericSpec = 0.95
	confCategorical = 0.90
	confBrand       = 0.90
	confContext     = 0.80
)

// Extractor turns a free-text query into a structured feature set by
// layered pattern matching against category vocabularies. It holds no
// mutable state after construction and is safe for concurrent use.
type Extractor struct {
	denylist map[string]bool
}

// NewExtractor builds an extractor. extraDeny terms are merged into
// the built-in marketing deny-list.
func NewExtractor(extraDeny []string) *Extractor {
	deny := make(map[string]bool, len(defaultMarketingDenylist)+len(extraDeny))
	for _, t := range defaultMarketingDenylist {
		deny[strings.ToLower(t)] = true
	}
	for _, t := range extraDeny {
		deny[strings.ToLower(t)] = true
	}
	return &Extractor{denylist: deny}
}

type match struct {
	name string
	val  catalog.FeatureValue
	pos  int
}

// Extract interprets a query. It never fails: an uninterpretable query
// yields an empty feature set, which downstream treats as a
// non-technical request.
func (e *Extractor) Extract(query, categoryHint string) catalog.FeatureSet {
	fs := catalog.FeatureSet{Features: map[string]catalog.FeatureValue{}}
	cleaned := e.clean(query)
	if cleaned == "" {
		return fs
	}

	category := e.detectCategory(cleaned, categoryHint)
	vocab := VocabularyFor(category)

	var matches []match
	addMatch := func(name string, val catalog.FeatureValue, pos int) {
		for _, m := range matches {
			if m.name == name {
				return // first match wins
			}
		}
		matches = append(matches, match{name: name, val: val, pos: pos})
	}

	// Category vocabulary patterns.
	for _, name := range []string{
		catalog.FeatureRefreshRate, catalog.FeatureSize,
		catalog.FeatureResolution, catalog.FeatureCurvature,
		catalog.FeaturePanelType,
	} {
		patterns := vocab.Patterns[name]
		for _, re := range patterns {
			loc := re.FindStringSubmatchIndex(cleaned)
			if loc == nil {
				continue
			}
			raw := cleaned[loc[2]:loc[3]]
			if name == catalog.FeatureSize && re == reSizeCM {
				raw += "cm"
			}
			if v, ok := normalizeQueryFeature(name, raw); ok {
				addMatch(name, v, loc[0])
				break
			}
		}
	}

	// Always-on: budget / price.
	if v, pos, ok := extractBudget(cleaned); ok {
		addMatch(catalog.FeaturePrice, v, pos)
	}

	// Always-on: brand tokens.
	if loc := reBrand.FindStringSubmatchIndex(cleaned); loc != nil {
		addMatch(catalog.FeatureBrand, catalog.FeatureValue{
			Value:      strings.ToLower(cleaned[loc[2]:loc[3]]),
			Confidence: confBrand,
		}, loc[0])
	}

	// Usage context.
	if ctx, pos, ok := extractContext(cleaned); ok {
		addMatch(catalog.FeatureUsageContext, catalog.FeatureValue{
			Value:      ctx,
			Confidence: confContext,
		}, pos)
	}

	// Preserve textual order so downstream can prioritize what the
	// user said first.
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })
	for _, m := range matches {
		fs.Features[m.name] = m.val
		fs.Order = append(fs.Order, m.name)
	}

	// Refine category once features are known: a monitor query with a
	// gaming signal is a gaming monitor.
	if category == CategoryMonitor {
		if v, ok := fs.Features[catalog.FeatureUsageContext]; ok && v.Value == "gaming" {
			category = CategoryGamingMonitor
		}
	}
	if len(fs.Features) > 0 || containsCategoryTerm(cleaned, vocab) {
		fs.Category = category
	}
	fs.TechnicalQuery = e.isTechnical(cleaned, vocab, fs)
	return fs
}

// clean lowercases the query and drops mixed-language filler and
// marketing terms token-wise. Numeric tokens are never touched.
func (e *Extractor) clean(query string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	kept := fields[:0]
	for _, f := range fields {
		bare := strings.Trim(f, ".,!?")
		if hindiFillers[bare] || e.denylist[bare] {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func (e *Extractor) detectCategory(cleaned, hint string) string {
	if hint != "" {
		return hint
	}
	ordered := []struct {
		cat   string
		vocab *Vocabulary
	}{
		{CategoryMonitor, monitorVocabulary},
		{CategoryLaptop, laptopVocabulary},
	}
	for _, c := range ordered {
		if containsCategoryTerm(cleaned, c.vocab) {
			if c.cat == CategoryMonitor && reGamingCtx.MatchString(cleaned) {
				return CategoryGamingMonitor
			}
			return c.cat
		}
	}
	return CategoryGeneral
}

// isTechnical implements the three-way test: one numeric spec, or two
// category technical terms, or a category term plus a spec name.
func (e *Extractor) isTechnical(cleaned string, vocab *Vocabulary, fs catalog.FeatureSet) bool {
	if fs.Empty() && !containsCategoryTerm(cleaned, vocab) {
		return false
	}
	for _, name := range []string{catalog.FeatureRefreshRate, catalog.FeatureSize} {
		if v, ok := fs.Features[name]; ok && v.IsNumeric {
			return true
		}
	}
	termCount := 0
	for _, term := range vocab.TechnicalTerms {
		if containsWord(cleaned, term) {
			termCount++
		}
	}
	if termCount >= 2 {
		return true
	}
	if containsCategoryTerm(cleaned, vocab) {
		specNames := []string{"resolution", "refresh", "panel", "size", "curved", "flat"}
		for _, s := range specNames {
			if strings.Contains(cleaned, s) {
				return true
			}
		}
		// An extracted categorical spec counts too.
		for _, name := range []string{catalog.FeatureResolution, catalog.FeaturePanelType, catalog.FeatureCurvature} {
			if _, ok := fs.Features[name]; ok {
				return true
			}
		}
	}
	return false
}

// MatchFeature runs one feature's vocabulary patterns over arbitrary
// text and normalizes the first hit. The analyzer shares this with
// query extraction so listings and queries canonicalize identically.
func MatchFeature(vocab *Vocabulary, name, text string) (catalog.FeatureValue, bool) {
	for _, re := range vocab.Patterns[name] {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		raw := text[loc[2]:loc[3]]
		if name == catalog.FeatureSize && re == reSizeCM {
			raw += "cm"
		}
		if v, ok := normalizeQueryFeature(name, raw); ok {
			return v, true
		}
	}
	switch name {
	case catalog.FeatureBrand:
		if loc := reBrand.FindStringSubmatchIndex(text); loc != nil {
			return catalog.FeatureValue{Value: strings.ToLower(text[loc[2]:loc[3]])}, true
		}
	case catalog.FeatureUsageContext:
		if ctx, _, ok := extractContext(text); ok {
			return catalog.FeatureValue{Value: ctx}, true
		}
	}
	return catalog.FeatureValue{}, false
}

func normalizeQueryFeature(name, raw string) (catalog.FeatureValue, bool) {
	switch name {
	case catalog.FeatureRefreshRate:
		hz, ok := NormalizeRefreshRate(raw)
		if !ok {
			return catalog.FeatureValue{}, false
		}
		return catalog.FeatureValue{Value: FormatHz(hz), Numeric: float64(hz), IsNumeric: true, Confidence: confNumericSpec}, true
	case catalog.FeatureSize:
		in, ok := NormalizeSize(raw)
		if !ok || in < 10 || in > 65 {
			return catalog.FeatureValue{}, false
		}
		return catalog.FeatureValue{Value: FormatSize(in), Numeric: in, IsNumeric: true, Confidence: confNumericSpec}, true
	case catalog.FeatureResolution:
		res, ok := NormalizeResolution(raw)
		if !ok {
			return catalog.FeatureValue{}, false
		}
		return catalog.FeatureValue{Value: res, Confidence: confCategorical}, true
	case catalog.FeatureCurvature:
		val, radius, ok := NormalizeCurvature(raw)
		if !ok {
			return catalog.FeatureValue{}, false
		}
		fv := catalog.FeatureValue{Value: val, Confidence: confCategorical}
		if radius > 0 {
			fv.Numeric = float64(radius)
			fv.IsNumeric = true
		}
		return fv, true
	case catalog.FeaturePanelType:
		return catalog.FeatureValue{Value: strings.ToLower(strings.TrimSpace(raw)), Confidence: confCategorical}, true
	}
	return catalog.FeatureValue{}, false
}

func extractBudget(cleaned string) (catalog.FeatureValue, int, bool) {
	if loc := reBudgetMax.FindStringSubmatchIndex(cleaned); loc != nil {
		if price, ok := NormalizePrice(cleaned[loc[2]:loc[3]]); ok {
			return catalog.FeatureValue{
				Value: strconv.Itoa(price), Numeric: float64(price),
				IsNumeric: true, Confidence: confNumericSpec,
			}, loc[0], true
		}
	}
	if loc := rePriceTag.FindStringSubmatchIndex(cleaned); loc != nil {
		if price, ok := NormalizePrice(cleaned[loc[2]:loc[3]]); ok {
			return catalog.FeatureValue{
				Value: strconv.Itoa(price), Numeric: float64(price),
				IsNumeric: true, Confidence: confNumericSpec,
			}, loc[0], true
		}
	}
	return catalog.FeatureValue{}, 0, false
}

func extractContext(cleaned string) (string, int, bool) {
	type ctxPattern struct {
		name string
		re   *regexp.Regexp
	}
	for _, cp := range []ctxPattern{
		{"gaming", reGamingCtx},
		{"professional", reProfessionalCtx},
		{"budget", reBudgetCtx},
	} {
		if loc := cp.re.FindStringIndex(cleaned); loc != nil {
			return cp.name, loc[0], true
		}
	}
	return "", 0, false
}

func containsCategoryTerm(cleaned string, vocab *Vocabulary) bool {
	for _, term := range vocab.CategoryTerms {
		if containsWord(cleaned, term) {
			return true
		}
	}
	return false
}

func containsWord(s, word string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isWordChar(s[i-1])
		after := i+len(word) >= len(s) || !isWordChar(s[i+len(word)])
		if before && after {
			return true
		}
		idx = i + len(word)
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '-'
}
