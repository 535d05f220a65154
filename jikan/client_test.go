package jikan

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"

	"anidex/config"
)

func newTestClient(transport *httpmock.MockTransport) *Client {
	cfg := config.DefaultConfig()
	cfg.RequestsPerSecond = 1000
	metrics := NewMetrics()
	sched := NewScheduler(cfg, metrics, discardLogger()).WithClock(newFakeClock())
	return NewClient(cfg, sched, metrics, discardLogger()).WithTransport(transport)
}

const topPageBody = `{
  "data": [
    {
      "mal_id": 5114,
      "title": "Hagane no Renkinjutsushi: Fullmetal Alchemist",
      "title_english": "Fullmetal Alchemist: Brotherhood",
      "images": {"jpg": {"image_url": "small.jpg", "large_image_url": "large.jpg"}},
      "aired": {"from": "2010-04-05T00:00:00+00:00", "to": null},
      "genres": [{"mal_id": 1, "name": "Action"}, {"mal_id": 8, "name": "Drama"}],
      "score": 9.1,
      "members": 3500000,
      "type": "TV",
      "synopsis": "Two brothers search for a Philosopher's Stone."
    },
    {
      "mal_id": 40028,
      "title": "Shingeki no Kyojin: The Final Season",
      "title_english": null,
      "images": {"jpg": {"image_url": "aot.jpg"}},
      "aired": {"from": null, "to": null},
      "genres": [],
      "score": null,
      "members": 2000000,
      "type": "TV",
      "synopsis": null
    }
  ],
  "pagination": {"last_visible_page": 1, "has_next_page": false}
}`

func TestClientTopDecodesPage(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponderWithQuery(
		"GET", "https://api.jikan.moe/v4/top/anime",
		map[string]string{"limit": "25", "type": "tv"},
		httpmock.NewStringResponder(200, topPageBody),
	)

	c := newTestClient(transport)
	page, err := c.Top(context.Background(), TopParams{Limit: 25, Type: "tv"})
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(page.Data) != 2 {
		t.Fatalf("records = %d, want 2", len(page.Data))
	}

	first := page.Data[0]
	if first.MalID != 5114 {
		t.Fatalf("mal_id = %d, want 5114", first.MalID)
	}
	if first.TitleEnglish != "Fullmetal Alchemist: Brotherhood" {
		t.Fatalf("title_english = %q", first.TitleEnglish)
	}
	if first.Score == nil || *first.Score != 9.1 {
		t.Fatalf("score = %v, want 9.1", first.Score)
	}
	if first.Aired.From == nil || first.Aired.From.Year() != 2010 {
		t.Fatalf("aired.from = %v, want year 2010", first.Aired.From)
	}
	if !first.HasGenre(8) {
		t.Fatalf("expected genre 8 on first record")
	}

	second := page.Data[1]
	if second.Score != nil {
		t.Fatalf("absent score should decode as nil, got %v", *second.Score)
	}
	if second.Aired.From != nil {
		t.Fatalf("absent aired.from should decode as nil")
	}
	if second.StartYear() != 0 {
		t.Fatalf("start year = %d, want 0 sentinel", second.StartYear())
	}
}

func TestClientSearchBuildsQuery(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponderWithQuery(
		"GET", "https://api.jikan.moe/v4/anime",
		map[string]string{
			"q":         "naruto",
			"order_by":  "members",
			"sort":      "desc",
			"limit":     "20",
			"min_score": "5",
		},
		httpmock.NewStringResponder(200, `{"data":[],"pagination":{"last_visible_page":1,"has_next_page":false}}`),
	)

	c := newTestClient(transport)
	page, err := c.Search(context.Background(), SearchParams{
		Query:    "naruto",
		OrderBy:  "members",
		Sort:     "desc",
		Limit:    20,
		MinScore: 5.0,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page.Data) != 0 {
		t.Fatalf("records = %d, want 0", len(page.Data))
	}
	if transport.GetTotalCallCount() != 1 {
		t.Fatalf("calls = %d, want 1", transport.GetTotalCallCount())
	}
}

func TestClientRetriesAfterThrottling(t *testing.T) {
	transport := httpmock.NewMockTransport()
	calls := 0
	transport.RegisterResponder("GET", "https://api.jikan.moe/v4/anime",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return httpmock.NewStringResponse(429, ""), nil
			}
			return httpmock.NewStringResponse(200, `{"data":[],"pagination":{"last_visible_page":1,"has_next_page":false}}`), nil
		},
	)

	c := newTestClient(transport)
	_, err := c.Search(context.Background(), SearchParams{Query: "bleach", Limit: 5})
	if err != nil {
		t.Fatalf("search should succeed after retry, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 (one throttled, one retry)", calls)
	}
}

func TestClientTerminalStatus(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://api.jikan.moe/v4/top/anime",
		httpmock.NewStringResponder(500, "internal error"))

	c := newTestClient(transport)
	_, err := c.Top(context.Background(), TopParams{Limit: 9})

	var status ErrStatus
	if !errors.As(err, &status) || status.Code != 500 {
		t.Fatalf("err = %v, want ErrStatus 500", err)
	}
}

func TestErrorTypeLabels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil", err: nil, expected: "unknown"},
		{name: "rate limited", err: ErrRateLimited{Err: errors.New("http status 429")}, expected: "rate_limited"},
		{name: "status", err: ErrStatus{Code: 503}, expected: "upstream_status"},
		{name: "timeout", err: classifyError(context.DeadlineExceeded), expected: "timeout"},
		{name: "net timeout", err: classifyError(&net.DNSError{IsTimeout: true}), expected: "timeout"},
		{name: "connection", err: classifyError(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}), expected: "connection"},
		{name: "other", err: errors.New("some other error"), expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(tt.err); got != tt.expected {
				t.Fatalf("errorTypeLabel = %q, want %q", got, tt.expected)
			}
		})
	}
}
