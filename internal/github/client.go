package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	logx "ghwatch/pkg/logx"
)

const (
	defaultBaseURL = "https://api.github.com"
	acceptDefault  = "application/vnd.github+json"
	// The timeline endpoint still sits behind the mockingbird preview
	// media type on older GHE versions.
	acceptTimeline = "application/vnd.github.mockingbird-preview+json, application/vnd.github+json"
)

type Config struct {
	Token      string
	BaseURL    string
	Timeout    time.Duration
	RatePerSec float64 // token bucket for all outgoing calls
}

// Client is a thin GitHub REST client covering exactly the calls the
// watcher needs: the notifications feed, issue/PR timelines, workflow
// runs, the viewer identity, and mark-as-read.
//
// All calls pass through a shared token bucket so a burst of
// enrichment fetches cannot trip secondary rate limits.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	log     logx.Logger

	mu     sync.Mutex
	viewer string
}

func New(cfg Config, log logx.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 5
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		baseURL: base,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		log:     log,
	}
}

// maxFeedPages bounds one poll's pagination walk. 10 pages of 50 is
// far beyond a realistic unread backlog; hitting the cap is logged so
// a pathological feed is visible rather than silent.
const maxFeedPages = 10

// ListNotifications returns unread notification threads updated since
// the given cursor (zero means "all unread"), plus the server-advised
// poll interval from X-Poll-Interval (zero when absent).
//
// The feed pages newest-first; every rel="next" page is followed so
// the caller sees the complete window. Returning only page 1 would let
// the caller advance its since cursor past the older threads on later
// pages and lose them for good.
func (c *Client) ListNotifications(ctx context.Context, since time.Time) ([]RawThread, time.Duration, error) {
	q := url.Values{}
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339))
	}
	q.Set("per_page", "50")

	var (
		threads  []RawThread
		interval time.Duration
	)
	for page := 1; ; page++ {
		if page > 1 {
			q.Set("page", strconv.Itoa(page))
		}

		var batch []RawThread
		hdr, err := c.get(ctx, "/notifications", q, acceptDefault, &batch)
		if err != nil {
			return nil, 0, err
		}
		threads = append(threads, batch...)

		if page == 1 {
			if v := hdr.Get("X-Poll-Interval"); v != "" {
				if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
					interval = time.Duration(secs) * time.Second
				}
			}
		}

		if !hasNextPage(hdr.Get("Link")) {
			break
		}
		if page >= maxFeedPages {
			c.log.Warn("notification feed truncated at page cap",
				logx.Int("pages", page),
				logx.Int("threads", len(threads)))
			break
		}
	}
	return threads, interval, nil
}

// ListTimeline returns the most recent window of timeline events for
// an issue or pull request, oldest first.
//
// The API pages oldest-first, so when more than one page exists the
// last page (per the Link header) is fetched to get the newest events.
func (c *Client) ListTimeline(ctx context.Context, repo string, number, perPage int) ([]TimelineEvent, error) {
	if perPage <= 0 {
		perPage = 50
	}
	path := fmt.Sprintf("/repos/%s/issues/%d/timeline", repo, number)
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(perPage))

	var events []TimelineEvent
	hdr, err := c.get(ctx, path, q, acceptTimeline, &events)
	if err != nil {
		return nil, err
	}

	if last := lastPage(hdr.Get("Link")); last > 1 {
		q.Set("page", strconv.Itoa(last))
		events = events[:0]
		if _, err := c.get(ctx, path, q, acceptTimeline, &events); err != nil {
			return nil, err
		}
	}
	return events, nil
}

// Viewer returns the authenticated user's login, cached for the
// process lifetime.
func (c *Client) Viewer(ctx context.Context) (string, error) {
	c.mu.Lock()
	v := c.viewer
	c.mu.Unlock()
	if v != "" {
		return v, nil
	}

	var resp viewerResponse
	if _, err := c.get(ctx, "/user", nil, acceptDefault, &resp); err != nil {
		return "", err
	}
	if resp.Login == "" {
		return "", fmt.Errorf("viewer lookup returned empty login")
	}

	c.mu.Lock()
	c.viewer = resp.Login
	c.mu.Unlock()
	return resp.Login, nil
}

// MarkThreadRead marks one notification thread as read.
func (c *Client) MarkThreadRead(ctx context.Context, threadID string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	u := c.baseURL + "/notifications/threads/" + url.PathEscape(threadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, nil)
	if err != nil {
		return err
	}
	c.decorate(req, acceptDefault)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mark thread %s read: %w", threadID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusResetContent && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mark thread %s read: unexpected status %d", threadID, resp.StatusCode)
	}
	return nil
}

// LatestRunConclusion returns the conclusion ("success", "failure",
// ...) of the most recent completed workflow run on a branch, or ""
// when the branch has no completed runs.
func (c *Client) LatestRunConclusion(ctx context.Context, repo, branch string) (string, error) {
	path := fmt.Sprintf("/repos/%s/actions/runs", repo)
	q := url.Values{}
	q.Set("branch", branch)
	q.Set("status", "completed")
	q.Set("per_page", "1")

	var resp workflowRunsResponse
	if _, err := c.get(ctx, path, q, acceptDefault, &resp); err != nil {
		return "", err
	}
	if len(resp.WorkflowRuns) == 0 {
		return "", nil
	}
	return resp.WorkflowRuns[0].Conclusion, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, accept string, out any) (http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.decorate(req, accept)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s: unexpected status %d: %s", path, resp.StatusCode, firstLine(body))
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("GET %s: decode: %w", path, err)
		}
	}
	return resp.Header, nil
}

func (c *Client) decorate(req *http.Request, accept string) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "ghwatch")
}

var (
	lastPageRe = regexp.MustCompile(`[?&]page=(\d+)[^>]*>;\s*rel="last"`)
	nextPageRe = regexp.MustCompile(`>;\s*rel="next"`)
)

func hasNextPage(link string) bool {
	return nextPageRe.MatchString(link)
}

func lastPage(link string) int {
	m := lastPageRe.FindStringSubmatch(link)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
