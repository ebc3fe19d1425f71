// Package search queries Google Programmable Search (Custom Search JSON
// API) for recent web results.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zulandar/takehome/internal/metrics"
)

// DefaultBaseURL is the Custom Search JSON API endpoint.
const DefaultBaseURL = "https://www.googleapis.com/customsearch/v1"

const (
	defaultMonths  = 6
	defaultResults = 8
)

// ErrNotConfigured is returned when the API key or engine id is missing.
var ErrNotConfigured = errors.New("search: GOOGLE_API_KEY and GOOGLE_CSE_ID must be set")

var (
	tokenRegex      = regexp.MustCompile(`(?i)\b(months|num)\s*:\s*(\d+)\b`)
	extraSpaceRegex = regexp.MustCompile(`\s{2,}`)
)

// Searcher runs recent web searches.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Options configures a Client.
type Options struct {
	APIKey        string
	EngineID      string
	BaseURL       string
	DefaultMonths int
	DefaultNum    int
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// Client calls the Custom Search API.
type Client struct {
	apiKey     string
	engineID   string
	baseURL    string
	months     int
	num        int
	httpClient *http.Client
}

// New creates a client. Missing credentials surface as ErrNotConfigured
// from Search.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.DefaultMonths <= 0 {
		opts.DefaultMonths = defaultMonths
	}
	if opts.DefaultNum <= 0 {
		opts.DefaultNum = defaultResults
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		apiKey:     opts.APIKey,
		engineID:   opts.EngineID,
		baseURL:    opts.BaseURL,
		months:     clamp(opts.DefaultMonths, 1, 12),
		num:        clamp(opts.DefaultNum, 1, 10),
		httpClient: hc,
	}
}

// Query is a search string with its inline tokens resolved.
type Query struct {
	Text   string
	Months int
	Num    int
}

// ParseQuery extracts the inline tokens months:N (clamped to 1-12) and
// num:N (clamped to 1-10) from raw; the remaining text is the query.
func ParseQuery(raw string, defaultMonths, defaultNum int) Query {
	q := Query{Months: defaultMonths, Num: defaultNum}
	for _, m := range tokenRegex.FindAllStringSubmatch(raw, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		switch strings.ToLower(m[1]) {
		case "months":
			q.Months = clamp(n, 1, 12)
		case "num":
			q.Num = clamp(n, 1, 10)
		}
	}
	text := tokenRegex.ReplaceAllString(raw, "")
	text = strings.TrimSpace(extraSpaceRegex.ReplaceAllString(text, " "))
	if text == "" {
		text = strings.TrimSpace(raw)
	}
	q.Text = text
	return q
}

type apiResponse struct {
	Items []Result `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Search runs one query restricted to the last N months. Results whose
// title or snippet look like raw JSON payloads are dropped.
func (c *Client) Search(ctx context.Context, raw string) ([]Result, error) {
	if c.apiKey == "" || c.engineID == "" {
		return nil, ErrNotConfigured
	}
	q := ParseQuery(raw, c.months, c.num)

	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("num", strconv.Itoa(q.Num))
	params.Set("dateRestrict", fmt.Sprintf("m%d", q.Months))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("search: create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.SearchRequest("error")
		return nil, fmt.Errorf("search: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.SearchRequest("error")
		return nil, fmt.Errorf("search: read response: %w", err)
	}

	var out apiResponse
	if resp.StatusCode != http.StatusOK {
		metrics.SearchRequest(strconv.Itoa(resp.StatusCode))
		if json.Unmarshal(body, &out) == nil && out.Error != nil {
			return nil, fmt.Errorf("search: status %d: %s", resp.StatusCode, out.Error.Message)
		}
		return nil, fmt.Errorf("search: status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		metrics.SearchRequest("error")
		return nil, fmt.Errorf("search: parse response: %w", err)
	}
	metrics.SearchRequest("ok")

	results := make([]Result, 0, len(out.Items))
	for _, item := range out.Items {
		item.Title = oneLine(item.Title)
		item.Link = strings.TrimSpace(item.Link)
		item.Snippet = oneLine(item.Snippet)
		if item.Title == "" || item.Link == "" || item.Snippet == "" {
			continue
		}
		if looksLikePayload(item.Title) || looksLikePayload(item.Snippet) {
			continue
		}
		results = append(results, item)
		if len(results) == q.Num {
			break
		}
	}
	return results, nil
}

// Format renders results as an indented bullet list for prompts and logs.
func Format(results []Result) string {
	if len(results) == 0 {
		return "No well-formed search results available in the requested window."
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s\n  %s\n  %s", r.Title, r.Link, r.Snippet)
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

func looksLikePayload(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

func clamp(n, lo, hi int) int {
	return max(lo, min(hi, n))
}
