package marketfeed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"eventhorizon/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.FeedConfig{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		RatePerSec: 1000,
		RateBurst:  1000,
		MaxRetries: 3,
	}, nil)
}

func TestListMarkets_PolymarketMapping(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		w.Write([]byte(`{"markets":[
			{"id":"pm1","platform":"polymarket","title":"Rate cut in March?","yes_price":0.62,"tags":["economics"],"volume_total":1500}
		]}`))
	})
	markets, err := c.ListMarkets(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(markets) != 1 {
		t.Fatalf("markets=%d want 1", len(markets))
	}
	m := markets[0]
	if m.Platform != PlatformPolymarket {
		t.Fatalf("platform=%q", m.Platform)
	}
	if m.Status != "open" {
		t.Fatalf("status=%q want open", m.Status)
	}
	if m.YesPrice == nil || *m.YesPrice != 0.62 {
		t.Fatalf("yesPrice=%v want 0.62", m.YesPrice)
	}
	if m.Category != "economics" {
		t.Fatalf("category=%q want economics", m.Category)
	}
}

func TestListMarkets_PolymarketResolved(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"markets":[
			{"id":"pm1","platform":"polymarket","title":"T","winning_side":"Yes"},
			{"id":"pm2","platform":"polymarket","title":"T2","winning_side":"No"}
		]}`))
	})
	markets, err := c.ListMarkets(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if markets[0].Status != "resolved" || *markets[0].Outcome != 1 {
		t.Fatalf("pm1 status=%q outcome=%v", markets[0].Status, markets[0].Outcome)
	}
	if markets[1].Status != "resolved" || *markets[1].Outcome != 0 {
		t.Fatalf("pm2 status=%q outcome=%v", markets[1].Status, markets[1].Outcome)
	}
}

func TestListMarkets_KalshiCentPrices(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"markets":[
			{"ticker":"KX-FED-26","platform":"kalshi","title":"T","yes_bid":38,"status":"active"},
			{"ticker":"KX-DONE","platform":"kalshi","title":"T2","result":"yes","status":"settled"}
		]}`))
	})
	markets, err := c.ListMarkets(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	open := markets[0]
	if open.ID != "KX-FED-26" {
		t.Fatalf("id=%q want ticker", open.ID)
	}
	if open.YesPrice == nil || *open.YesPrice != 0.38 {
		t.Fatalf("yesPrice=%v want 0.38", open.YesPrice)
	}
	done := markets[1]
	if done.Status != "resolved" || done.Outcome == nil || *done.Outcome != 1 {
		t.Fatalf("done status=%q outcome=%v", done.Status, done.Outcome)
	}
}

func TestMarketsWithKnownOutcome_FiltersToRequested(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"markets":[
			{"id":"m1","platform":"polymarket","title":"A","winning_side":"yes"},
			{"id":"m2","platform":"polymarket","title":"B","winning_side":"no"},
			{"id":"m3","platform":"polymarket","title":"C","status":"closed"}
		]}`))
	})
	outcomes, err := c.MarketsWithKnownOutcome(context.Background(), []string{"m1", "m3", "m9"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	// m2 not requested; m3 closed without outcome; m9 unknown to the feed.
	if len(outcomes) != 1 {
		t.Fatalf("outcomes=%d want 1", len(outcomes))
	}
	if outcomes[0].MarketID != "m1" || outcomes[0].Outcome != 1 {
		t.Fatalf("outcome=%+v", outcomes[0])
	}
}

func TestMarketsWithKnownOutcome_PaginatesPastFirstPage(t *testing.T) {
	fullPage := func(prefix string) string {
		var sb strings.Builder
		sb.WriteString(`{"markets":[`)
		for i := 0; i < outcomePageLimit; i++ {
			if i > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, `{"id":"%s%d","platform":"polymarket","title":"T","status":"closed"}`, prefix, i)
		}
		sb.WriteString(`]}`)
		return sb.String()
	}
	var offsets []string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		offsets = append(offsets, r.URL.Query().Get("offset"))
		if r.URL.Query().Get("offset") == "" {
			w.Write([]byte(fullPage("a")))
			return
		}
		w.Write([]byte(`{"markets":[
			{"id":"deep","platform":"polymarket","title":"T","winning_side":"yes"}
		]}`))
	})
	outcomes, err := c.MarketsWithKnownOutcome(context.Background(), []string{"deep"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(outcomes) != 1 || outcomes[0].MarketID != "deep" || outcomes[0].Outcome != 1 {
		t.Fatalf("outcomes=%+v want deep resolved yes", outcomes)
	}
	if len(offsets) != 2 || offsets[1] != "200" {
		t.Fatalf("offsets=%v want two pages with offset 200", offsets)
	}
}

func TestMarketsWithKnownOutcome_StopsWhenAllFound(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var sb strings.Builder
		sb.WriteString(`{"markets":[{"id":"m1","platform":"polymarket","title":"T","winning_side":"no"}`)
		for i := 1; i < outcomePageLimit; i++ {
			fmt.Fprintf(&sb, `,{"id":"pad%d","platform":"polymarket","title":"T","status":"closed"}`, i)
		}
		sb.WriteString(`]}`)
		w.Write([]byte(sb.String()))
	})
	outcomes, err := c.MarketsWithKnownOutcome(context.Background(), []string{"m1"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Outcome != 0 {
		t.Fatalf("outcomes=%+v", outcomes)
	}
	// The page was full but every wanted market was seen.
	if calls != 1 {
		t.Fatalf("calls=%d want 1", calls)
	}
}

func TestInferCategory_OverlappingKeywords(t *testing.T) {
	// "AI election bet" matches both politics and science keywords; the
	// classification must not depend on iteration order.
	for i := 0; i < 20; i++ {
		if got := inferCategory("Will the AI election bet pay out?", nil); got != "politics" {
			t.Fatalf("category=%q want politics", got)
		}
	}
	if got := inferCategory("New AI model released?", nil); got != "science" {
		t.Fatalf("category=%q want science", got)
	}
}

func TestMarketHistory_KalshiDivisor(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"points":[
			{"timestamp":1767225600000,"price":42},
			{"timestamp":1767312000000,"price":45}
		]}`))
	})
	points, err := c.MarketHistory(context.Background(), PlatformKalshi, "KX-1", 7)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(points) != 2 {
		t.Fatalf("points=%d want 2", len(points))
	}
	if points[0].Probability != 0.42 {
		t.Fatalf("probability=%v want 0.42", points[0].Probability)
	}
}

func TestMarketHistory_PolymarketNoDivisor(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"points":[{"timestamp":1767225600000,"price":0.42}]}`))
	})
	points, err := c.MarketHistory(context.Background(), PlatformPolymarket, "pm1", 7)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if points[0].Probability != 0.42 {
		t.Fatalf("probability=%v want 0.42", points[0].Probability)
	}
}

func TestDoRequest_NonRetryableStatus(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	})
	if _, err := c.ListMarkets(context.Background(), ListOptions{}); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls=%d want 1 (no retry on 404)", calls)
	}
}

func TestDoRequest_RetriesServerErrors(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"markets":[]}`))
	})
	if _, err := c.ListMarkets(context.Background(), ListOptions{}); err != nil {
		t.Fatalf("err=%v", err)
	}
	if calls != 3 {
		t.Fatalf("calls=%d want 3", calls)
	}
}
