package paapi

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealsentry/dealsentry/internal/catalog"
	"github.com/dealsentry/dealsentry/internal/telemetry"
)

// fakeTransport scripts upstream behavior per call.
type fakeTransport struct {
	searches    int
	gets        int
	searchFn    func(call int, req *SearchItemsRequest) (*SearchItemsResponse, error)
	getFn       func(call int, req *GetItemsRequest) (*GetItemsResponse, error)
	searchReqs  []*SearchItemsRequest
	getRequests []*GetItemsRequest
}

func (f *fakeTransport) SearchItems(_ context.Context, req *SearchItemsRequest) (*SearchItemsResponse, error) {
	f.searches++
	f.searchReqs = append(f.searchReqs, req)
	return f.searchFn(f.searches, req)
}

func (f *fakeTransport) GetItems(_ context.Context, req *GetItemsRequest) (*GetItemsResponse, error) {
	f.gets++
	f.getRequests = append(f.getRequests, req)
	return f.getFn(f.gets, req)
}

func testAdapter(t *testing.T, tr Transport) *Adapter {
	t.Helper()
	a := NewAdapter(tr, AdapterConfig{
		RatePerSec: 1000, // tests must not wait on the real quota
		MaxRetries: 2,
		PartnerTag: "test-21",
	}, telemetry.Nop(), nil)
	a.sleep = func(context.Context, time.Duration) error { return nil }
	return a
}

func searchItem(asin string, pricePaise int) Item {
	var it Item
	it.ASIN = asin
	it.ItemInfo.Title.DisplayValue = "Monitor " + asin
	if pricePaise > 0 {
		it.Offers.Listings = []Listing{{}}
		it.Offers.Listings[0].Price.Amount = pricePaise
	}
	return it
}

func pageOf(asins []string, total int) *SearchItemsResponse {
	resp := &SearchItemsResponse{}
	resp.SearchResult.TotalResultCount = total
	for _, a := range asins {
		resp.SearchResult.Items = append(resp.SearchResult.Items, searchItem(a, 2599900))
	}
	return resp
}

func asinPage(page, n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("B%02d%02d", page, i))
	}
	return out
}

func TestSearchConvertsPaiseToRupees(t *testing.T) {
	tr := &fakeTransport{searchFn: func(_ int, _ *SearchItemsRequest) (*SearchItemsResponse, error) {
		return pageOf([]string{"B0001"}, 1), nil
	}}
	a := testAdapter(t, tr)

	products, _, err := a.Search(context.Background(), SearchParams{Keywords: "monitor"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.NotNil(t, products[0].PriceRupees)
	assert.Equal(t, 25999, *products[0].PriceRupees)
	assert.NotNil(t, products[0].FeaturesList)
	assert.NotNil(t, products[0].TechnicalDetails)
}

func TestSearchPaginatedStopsOnShortPage(t *testing.T) {
	tr := &fakeTransport{searchFn: func(call int, _ *SearchItemsRequest) (*SearchItemsResponse, error) {
		if call == 1 {
			return pageOf(asinPage(1, 10), 14), nil
		}
		return pageOf(asinPage(2, 4), 14), nil
	}}
	a := testAdapter(t, tr)

	products, meta, err := a.SearchPaginated(context.Background(), SearchParams{Keywords: "monitor"}, 5)
	require.NoError(t, err)
	assert.Len(t, products, 14)
	assert.Equal(t, 2, tr.searches, "a short page means the upstream ran out")
	assert.Equal(t, 2, meta.PagesFetched)
	assert.False(t, meta.Partial)
}

func TestSearchPaginatedDeduplicatesASINs(t *testing.T) {
	tr := &fakeTransport{searchFn: func(call int, _ *SearchItemsRequest) (*SearchItemsResponse, error) {
		// Page 2 repeats half of page 1.
		if call == 1 {
			return pageOf(asinPage(1, 10), 20), nil
		}
		return pageOf(append(asinPage(1, 5), asinPage(2, 5)...), 20), nil
	}}
	a := testAdapter(t, tr)

	products, _, err := a.SearchPaginated(context.Background(), SearchParams{Keywords: "monitor"}, 2)
	require.NoError(t, err)
	assert.Len(t, products, 15)
}

func TestSearchPaginatedPartialOnLaterFailure(t *testing.T) {
	tr := &fakeTransport{searchFn: func(call int, _ *SearchItemsRequest) (*SearchItemsResponse, error) {
		if call == 1 {
			return pageOf(asinPage(1, 10), 30), nil
		}
		return nil, &httpError{Status: 500}
	}}
	a := testAdapter(t, tr)

	products, meta, err := a.SearchPaginated(context.Background(), SearchParams{Keywords: "monitor"}, 3)
	require.NoError(t, err, "a later page failing degrades, not fails")
	assert.Len(t, products, 10)
	assert.True(t, meta.Partial)
}

func TestSearchFirstPageFailureSurfaces(t *testing.T) {
	tr := &fakeTransport{searchFn: func(int, *SearchItemsRequest) (*SearchItemsResponse, error) {
		return nil, &httpError{Status: 500}
	}}
	a := testAdapter(t, tr)

	_, _, err := a.SearchPaginated(context.Background(), SearchParams{Keywords: "monitor"}, 3)
	assert.ErrorIs(t, err, catalog.ErrTransient)
}

func TestSearchPriceRangeWorkaround(t *testing.T) {
	tr := &fakeTransport{searchFn: func(_ int, req *SearchItemsRequest) (*SearchItemsResponse, error) {
		return pageOf([]string{"B0001"}, 1), nil
	}}
	a := testAdapter(t, tr)

	minP, maxP := 20000, 40000
	_, meta, err := a.Search(context.Background(), SearchParams{
		Keywords: "monitor", MinPrice: &minP, MaxPrice: &maxP,
	})
	require.NoError(t, err)
	assert.True(t, meta.PriceRangeWorkaround)

	req := tr.searchReqs[0]
	assert.Equal(t, 2000000, req.MinPrice, "min goes upstream in paise")
	assert.Zero(t, req.MaxPrice, "max must never reach the upstream alongside min")
}

func TestSearchMaxPriceAloneGoesUpstream(t *testing.T) {
	tr := &fakeTransport{searchFn: func(_ int, req *SearchItemsRequest) (*SearchItemsResponse, error) {
		return pageOf([]string{"B0001"}, 1), nil
	}}
	a := testAdapter(t, tr)

	maxP := 40000
	_, meta, err := a.Search(context.Background(), SearchParams{Keywords: "monitor", MaxPrice: &maxP})
	require.NoError(t, err)
	assert.False(t, meta.PriceRangeWorkaround)
	assert.Equal(t, 4000000, tr.searchReqs[0].MaxPrice)
}

func TestRetryOnThrottleThenSuccess(t *testing.T) {
	tr := &fakeTransport{searchFn: func(call int, _ *SearchItemsRequest) (*SearchItemsResponse, error) {
		if call == 1 {
			return nil, &httpError{Status: 429}
		}
		return pageOf([]string{"B0001"}, 1), nil
	}}
	a := testAdapter(t, tr)

	products, _, err := a.Search(context.Background(), SearchParams{Keywords: "monitor"})
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 2, tr.searches)
}

func TestInvalidInputNotRetried(t *testing.T) {
	tr := &fakeTransport{searchFn: func(int, *SearchItemsRequest) (*SearchItemsResponse, error) {
		return nil, &httpError{Status: 400}
	}}
	a := testAdapter(t, tr)

	_, _, err := a.Search(context.Background(), SearchParams{Keywords: "monitor"})
	assert.ErrorIs(t, err, catalog.ErrInvalidInput)
	assert.Equal(t, 1, tr.searches)
}

func TestCredentialFailureIsUnavailable(t *testing.T) {
	tr := &fakeTransport{searchFn: func(int, *SearchItemsRequest) (*SearchItemsResponse, error) {
		return nil, &httpError{Status: 403}
	}}
	a := testAdapter(t, tr)

	_, _, err := a.Search(context.Background(), SearchParams{Keywords: "monitor"})
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
	assert.Equal(t, 1, tr.searches)
}

func TestBreakerOpensAndSkipsLimiter(t *testing.T) {
	tr := &fakeTransport{searchFn: func(int, *SearchItemsRequest) (*SearchItemsResponse, error) {
		return nil, &httpError{Status: 500}
	}}
	a := NewAdapter(tr, AdapterConfig{RatePerSec: 1000, MaxRetries: 0, PartnerTag: "t"}, telemetry.Nop(), nil)
	a.sleep = func(context.Context, time.Duration) error { return nil }

	// Five consecutive failures trip the breaker.
	for i := 0; i < 5; i++ {
		_, _, err := a.Search(context.Background(), SearchParams{Keywords: "monitor"})
		require.Error(t, err)
	}
	callsBefore := tr.searches
	tokensBefore := a.limiter.Tokens()

	_, _, err := a.Search(context.Background(), SearchParams{Keywords: "monitor"})
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
	assert.Equal(t, callsBefore, tr.searches, "open breaker must not reach the transport")
	assert.InDelta(t, tokensBefore, a.limiter.Tokens(), 1.0,
		"open breaker fails before the limiter consumes a token")
}

func TestGetItemsBatchChunksOfTen(t *testing.T) {
	tr := &fakeTransport{getFn: func(_ int, req *GetItemsRequest) (*GetItemsResponse, error) {
		resp := &GetItemsResponse{}
		for _, asin := range req.ItemIDs {
			resp.ItemsResult.Items = append(resp.ItemsResult.Items, searchItem(asin, 1999900))
		}
		return resp, nil
	}}
	a := testAdapter(t, tr)

	asins := asinPage(1, 10)
	asins = append(asins, asinPage(2, 10)...)
	asins = append(asins, asinPage(3, 3)...)

	out, err := a.GetItemsBatch(context.Background(), asins, ResourceSetAILookup)
	require.NoError(t, err)
	assert.Len(t, out, 23)
	assert.Equal(t, 3, tr.gets, "23 ASINs need three upstream calls")
	for _, req := range tr.getRequests {
		assert.LessOrEqual(t, len(req.ItemIDs), 10)
	}
}

func TestGetItemsBatchPartialKeepsSuccesses(t *testing.T) {
	tr := &fakeTransport{getFn: func(call int, req *GetItemsRequest) (*GetItemsResponse, error) {
		if call > 1 {
			return nil, &httpError{Status: 500}
		}
		resp := &GetItemsResponse{}
		for _, asin := range req.ItemIDs {
			resp.ItemsResult.Items = append(resp.ItemsResult.Items, searchItem(asin, 1999900))
		}
		return resp, nil
	}}
	a := testAdapter(t, tr)

	asins := append(asinPage(1, 10), asinPage(2, 5)...)
	out, err := a.GetItemsBatch(context.Background(), asins, ResourceSetAILookup)
	require.NoError(t, err, "partial batch returns what succeeded")
	assert.Len(t, out, 10)
}

type stubPrices struct{ prices map[string]int }

func (s *stubPrices) PriceRupees(_ context.Context, asin string) (*int, error) {
	if p, ok := s.prices[asin]; ok {
		return &p, nil
	}
	return nil, nil
}

func TestGetItemsBatchScavengesPrices(t *testing.T) {
	tr := &fakeTransport{getFn: func(int, *GetItemsRequest) (*GetItemsResponse, error) {
		return nil, &httpError{Status: 500}
	}}
	a := NewAdapter(tr, AdapterConfig{RatePerSec: 1000, MaxRetries: 0, PartnerTag: "t"},
		telemetry.Nop(), &stubPrices{prices: map[string]int{"B0001": 25999}})
	a.sleep = func(context.Context, time.Duration) error { return nil }

	out, err := a.GetItemsBatch(context.Background(), []string{"B0001", "B0002"}, ResourceSetAILookup)
	require.NoError(t, err)
	require.Contains(t, out, "B0001")
	assert.Equal(t, 25999, *out["B0001"].PriceRupees)
	assert.NotContains(t, out, "B0002")
}

func TestGetItemInStock(t *testing.T) {
	tr := &fakeTransport{getFn: func(_ int, req *GetItemsRequest) (*GetItemsResponse, error) {
		resp := &GetItemsResponse{}
		it := searchItem(req.ItemIDs[0], 1999900)
		it.Offers.Listings[0].Availability.Type = "Now"
		resp.ItemsResult.Items = append(resp.ItemsResult.Items, it)
		return resp, nil
	}}
	a := testAdapter(t, tr)

	lookup, err := a.GetItem(context.Background(), "B0001", ResourceSetAILookup)
	require.NoError(t, err)
	assert.True(t, lookup.InStock)
	assert.Equal(t, "B0001", lookup.Product.ASIN)
}

func TestDiscountDerivedFromSavingBasis(t *testing.T) {
	var it Item
	it.ASIN = "B0001"
	it.Offers.Listings = []Listing{{}}
	it.Offers.Listings[0].Price.Amount = 2000000      // 20000 rupees
	it.Offers.Listings[0].SavingBasis.Amount = 2500000 // 25000 rupees

	p := toProduct(&it)
	require.NotNil(t, p.DiscountPercent)
	assert.Equal(t, 20, *p.DiscountPercent)
}
