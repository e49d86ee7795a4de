package msgraph_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/Tiliavir/ttt-timeline/internal/msgraph"
)

func TestGetCalendarViewFollowsPages(t *testing.T) {
	var srv *httptest.Server
	var prefer string
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/calendarView" {
			http.NotFound(w, r)
			return
		}
		prefer = r.Header.Get("Prefer")
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"value": []map[string]any{{"id": "b", "subject": "Second"}},
			})
			return
		}
		if got := r.URL.Query().Get("startDateTime"); got != "2026-02-27T00:00:00Z" {
			t.Errorf("startDateTime = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"value":           []map[string]any{{"id": "a", "subject": "First"}},
			"@odata.nextLink": srv.URL + "/me/calendarView?page=2",
		})
	}))
	defer srv.Close()

	client := msgraph.NewClientWithHTTP(srv.Client(), srv.URL)
	from := time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)
	events, err := client.GetCalendarView(context.Background(), from, from.AddDate(0, 0, 1), "Europe/Berlin")
	if err != nil {
		t.Fatalf("GetCalendarView: %v", err)
	}
	if len(events) != 2 || events[0].ID != "a" || events[1].ID != "b" {
		t.Fatalf("events = %+v, want a then b", events)
	}
	if prefer != `outlook.timezone="Europe/Berlin"` {
		t.Errorf("Prefer = %q", prefer)
	}
}

func TestGetCalendarViewError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"InvalidAuthenticationToken"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := msgraph.NewClientWithHTTP(srv.Client(), srv.URL)
	_, err := client.GetCalendarView(context.Background(), time.Now(), time.Now(), "")
	if err == nil {
		t.Fatal("expected an error for a 401 response")
	}
}

func TestTokenCacheRoundTrip(t *testing.T) {
	cache := msgraph.DefaultTokenCache(t.TempDir())

	tok, err := cache.Load()
	if err != nil || tok != nil {
		t.Fatalf("Load on empty cache = %v, %v; want nil, nil", tok, err)
	}

	want := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}
	if err := cache.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := cache.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AccessToken != "access" || got.RefreshToken != "refresh" {
		t.Errorf("Load = %+v", got)
	}
}
