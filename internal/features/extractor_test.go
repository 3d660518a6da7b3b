package features

import (
	"reflect"
	"testing"

	"github.com/dealsentry/dealsentry/internal/catalog"
)

func TestExtractGamingMonitorQuery(t *testing.T) {
	e := NewExtractor(nil)
	fs := e.Extract("gaming monitor 144hz 27 inch under 30000", "")

	if fs.Category != CategoryGamingMonitor {
		t.Errorf("category = %q, want gaming_monitor", fs.Category)
	}
	if !fs.TechnicalQuery {
		t.Error("query with numeric specs should be technical")
	}

	rr, ok := fs.Get(catalog.FeatureRefreshRate)
	if !ok || rr.Numeric != 144 {
		t.Errorf("refresh_rate = %+v, want 144", rr)
	}
	size, ok := fs.Get(catalog.FeatureSize)
	if !ok || size.Numeric != 27 {
		t.Errorf("size = %+v, want 27", size)
	}
	price, ok := fs.Get(catalog.FeaturePrice)
	if !ok || price.Numeric != 30000 {
		t.Errorf("price = %+v, want 30000", price)
	}
	ctx, ok := fs.Get(catalog.FeatureUsageContext)
	if !ok || ctx.Value != "gaming" {
		t.Errorf("usage_context = %+v, want gaming", ctx)
	}
}

func TestExtractPreservesTextualOrder(t *testing.T) {
	e := NewExtractor(nil)
	fs := e.Extract("27 inch curved monitor 144hz", "")

	idx := map[string]int{}
	for i, name := range fs.Order {
		idx[name] = i
	}
	if idx[catalog.FeatureSize] > idx[catalog.FeatureCurvature] ||
		idx[catalog.FeatureCurvature] > idx[catalog.FeatureRefreshRate] {
		t.Errorf("order = %v, want size before curvature before refresh_rate", fs.Order)
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := NewExtractor(nil)
	query := "lg ultrawide 34in gaming monitor 1500r under ₹45,000"
	first := e.Extract(query, "")
	for i := 0; i < 20; i++ {
		got := e.Extract(query, "")
		if !reflect.DeepEqual(first, got) {
			t.Fatalf("extraction not stable on run %d:\nfirst %+v\ngot   %+v", i, first, got)
		}
	}
}

func TestExtractCentimetreSizes(t *testing.T) {
	e := NewExtractor(nil)
	fs := e.Extract("80cm monitor", "")
	size, ok := fs.Get(catalog.FeatureSize)
	if !ok || size.Numeric != 31.5 {
		t.Errorf("80cm = %+v, want 31.5 inches", size)
	}
}

func TestExtractHindiFillers(t *testing.T) {
	e := NewExtractor(nil)
	fs := e.Extract("gaming ke liye accha monitor chahiye 144hz wala", "")
	rr, ok := fs.Get(catalog.FeatureRefreshRate)
	if !ok || rr.Numeric != 144 {
		t.Errorf("refresh_rate = %+v, want 144 despite filler tokens", rr)
	}
	if fs.Category != CategoryGamingMonitor {
		t.Errorf("category = %q, want gaming_monitor", fs.Category)
	}
}

func TestExtractMarketingOnlyQuery(t *testing.T) {
	e := NewExtractor(nil)
	fs := e.Extract("stunning immersive cinematic best amazing", "")
	if !fs.Empty() {
		t.Errorf("marketing-only query extracted %+v, want empty", fs.Features)
	}
	if fs.TechnicalQuery {
		t.Error("marketing-only query must not be technical")
	}
}

func TestExtractCustomDenylist(t *testing.T) {
	e := NewExtractor([]string{"gamechanger"})
	fs := e.Extract("gamechanger monitor", "")
	if _, ok := fs.Get(catalog.FeatureBrand); ok {
		t.Error("denied token should not leak into features")
	}
	if fs.Category != CategoryMonitor {
		t.Errorf("category = %q, want monitor", fs.Category)
	}
}

func TestExtractBrand(t *testing.T) {
	e := NewExtractor(nil)
	fs := e.Extract("LG monitor 27 inch", "")
	brand, ok := fs.Get(catalog.FeatureBrand)
	if !ok || brand.Value != "lg" {
		t.Errorf("brand = %+v, want lg", brand)
	}
}

func TestExtractCategoryHintWins(t *testing.T) {
	e := NewExtractor(nil)
	fs := e.Extract("something 144hz", "laptop")
	if fs.Category != CategoryLaptop {
		t.Errorf("category = %q, want hint laptop", fs.Category)
	}
}

func TestExtractNonTechnicalQuery(t *testing.T) {
	e := NewExtractor(nil)
	fs := e.Extract("good monitor for home", "")
	if fs.TechnicalQuery {
		t.Error("no specs and one category term should not be technical")
	}
}

func TestExtractTwoTechnicalTerms(t *testing.T) {
	e := NewExtractor(nil)
	fs := e.Extract("ips monitor with hdr", "")
	if !fs.TechnicalQuery {
		t.Error("two technical terms should flag the query technical")
	}
}

func TestExtractEmptyQuery(t *testing.T) {
	e := NewExtractor(nil)
	fs := e.Extract("   ", "")
	if !fs.Empty() || fs.Category != "" || fs.TechnicalQuery {
		t.Errorf("blank query = %+v, want empty set", fs)
	}
}

func TestExtractBudgetForms(t *testing.T) {
	e := NewExtractor(nil)
	cases := map[string]float64{
		"monitor under 60000":   60000,
		"monitor below ₹60k":    60000,
		"monitor upto 25,000":   25000,
		"monitor within rs 40k": 40000,
	}
	for query, want := range cases {
		fs := e.Extract(query, "")
		price, ok := fs.Get(catalog.FeaturePrice)
		if !ok || price.Numeric != want {
			t.Errorf("Extract(%q) price = %+v, want %v", query, price, want)
		}
	}
}
