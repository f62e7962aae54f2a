package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logx "ghwatch/pkg/logx"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Config{
		Token:      "test-token",
		BaseURL:    srv.URL,
		RatePerSec: 1000,
	}, logx.Nop())
	return c, srv
}

func TestListNotificationsFollowsPagination(t *testing.T) {
	var requests int
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/notifications" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("X-Poll-Interval", "75")
			w.Header().Set("Link", fmt.Sprintf(
				`<%s/notifications?per_page=50&page=2>; rel="next", <%s/notifications?per_page=50&page=2>; rel="last"`,
				srvURL(r), srvURL(r)))
			fmt.Fprint(w, `[{"id":"t1","unread":true,"updated_at":"2026-08-24T10:30:00Z"}]`)
		case "2":
			fmt.Fprint(w, `[{"id":"t2","unread":true,"updated_at":"2026-08-24T10:00:00Z"}]`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
			fmt.Fprint(w, `[]`)
		}
	}))

	threads, interval, err := c.ListNotifications(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if requests != 2 {
		t.Fatalf("expected 2 page fetches, got %d", requests)
	}
	// The older thread on page 2 must be in the window; the caller
	// advances its since cursor to the newest updatedAt, so a thread
	// missing here would be excluded by that cursor forever.
	if len(threads) != 2 || threads[0].ID != "t1" || threads[1].ID != "t2" {
		t.Fatalf("expected [t1 t2], got %+v", threads)
	}
	if interval != 75*time.Second {
		t.Fatalf("expected 75s poll interval, got %v", interval)
	}
}

func TestListNotificationsSinglePage(t *testing.T) {
	var requests int
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, `[{"id":"t1","unread":true,"updated_at":"2026-08-24T10:30:00Z"}]`)
	}))

	threads, interval, err := c.ListNotifications(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if requests != 1 {
		t.Fatalf("no Link header must mean a single fetch, got %d", requests)
	}
	if len(threads) != 1 || interval != 0 {
		t.Fatalf("unexpected result: %d threads, interval %v", len(threads), interval)
	}
}

func TestListNotificationsStopsAtPageCap(t *testing.T) {
	var requests int
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		// Always advertise another page.
		w.Header().Set("Link", fmt.Sprintf(`<%s/notifications?page=999>; rel="next"`, srvURL(r)))
		fmt.Fprint(w, `[{"id":"x","unread":true,"updated_at":"2026-08-24T10:00:00Z"}]`)
	}))

	threads, _, err := c.ListNotifications(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if requests != maxFeedPages {
		t.Fatalf("expected walk capped at %d pages, got %d", maxFeedPages, requests)
	}
	if len(threads) != maxFeedPages {
		t.Fatalf("expected %d threads, got %d", maxFeedPages, len(threads))
	}
}

func srvURL(r *http.Request) string {
	return "http://" + r.Host
}
