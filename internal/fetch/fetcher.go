package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"jobdraft/internal/config"
	"jobdraft/internal/services"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultMaxChars  = 8000
	defaultUserAgent = "jobdraft"

	// maxBodyBytes bounds how much of a response is read before parsing.
	maxBodyBytes = 4 << 20

	// blockBreak marks block element boundaries during text extraction.
	blockBreak = "\u2029"
)

var (
	// chromeSelectors are removed before text extraction.
	chromeSelectors = "script, style, noscript, template, svg, iframe, form, nav, header, footer, aside, [aria-hidden=true]"

	// contentSelectors are tried in order for the main content root.
	contentSelectors = []string{"main", "article", "[role=main]", "#content", ".job-description", "body"}
	blockSelectors   = "p, div, section, li, ul, ol, dl, dt, dd, tr, table, h1, h2, h3, h4, h5, h6, br, pre, blockquote"
)

// Page is the readable content of a fetched reference posting.
type Page struct {
	URL       string
	Title     string
	Text      string
	Truncated bool
}

// Fetcher retrieves pages over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxChars  int
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua = strings.TrimSpace(ua); ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxChars caps the returned text.
func WithMaxChars(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxChars = n
		}
	}
}

// New constructs a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
		maxChars:  defaultMaxChars,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFromConfig applies the [fetch] configuration section.
func NewFromConfig(cfg *config.Config) *Fetcher {
	if cfg == nil {
		return New()
	}
	return New(
		WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout()}),
		WithUserAgent(cfg.Fetch.UserAgent),
		WithMaxChars(cfg.Fetch.MaxBodyChars),
	)
}

// Fetch downloads rawURL and extracts its readable text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, services.Wrap(services.ErrFetch, "fetch", "parse url", fmt.Sprintf("%q is not an absolute http(s) URL", rawURL), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrFetch, "fetch", "build request", "", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrFetch, "fetch", "request", parsed.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, services.Wrap(services.ErrFetch, "fetch", "request", fmt.Sprintf("%s returned %s", parsed.Host, resp.Status), nil)
	}

	body := io.LimitReader(resp.Body, maxBodyBytes)
	page := &Page{URL: resp.Request.URL.String()}
	switch mediaType(resp.Header.Get("Content-Type")) {
	case "text/html", "application/xhtml+xml", "":
		doc, err := goquery.NewDocumentFromReader(body)
		if err != nil {
			return nil, services.Wrap(services.ErrFetch, "fetch", "parse document", "", err)
		}
		page.Title = pageTitle(doc)
		page.Text = readableText(doc)
	case "text/plain":
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, services.Wrap(services.ErrFetch, "fetch", "read body", "", err)
		}
		page.Text = normalizeLines(strings.ToValidUTF8(string(data), ""), "\n")
	default:
		return nil, services.Wrap(services.ErrFetch, "fetch", "content type", fmt.Sprintf("unsupported content type %q", resp.Header.Get("Content-Type")), nil)
	}

	if page.Text == "" {
		return nil, services.Wrap(services.ErrFetch, "fetch", "extract", "page has no readable text", nil)
	}
	page.Text, page.Truncated = truncate(page.Text, f.maxChars)
	return page, nil
}

// IsFetchError reports whether err came from a failed fetch.
func IsFetchError(err error) bool {
	return errors.Is(err, services.ErrFetch)
}

func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(header, ";")[0]))
	}
	return mt
}

func pageTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if title := collapse(og); title != "" {
			return title
		}
	}
	if title := collapse(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return collapse(doc.Find("h1").First().Text())
}

func readableText(doc *goquery.Document) string {
	doc.Find(chromeSelectors).Remove()
	root := doc.Selection
	for _, selector := range contentSelectors {
		if candidate := doc.Find(selector).First(); candidate.Length() > 0 && strings.TrimSpace(candidate.Text()) != "" {
			root = candidate
			break
		}
	}
	root.Find(blockSelectors).Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml(blockBreak)
		s.AppendHtml(blockBreak)
	})
	return normalizeLines(root.Text(), blockBreak)
}

// normalizeLines splits text on sep, collapses whitespace within each piece,
// and joins the non-empty pieces with newlines.
func normalizeLines(text, sep string) string {
	lines := strings.Split(text, sep)
	out := lines[:0]
	for _, line := range lines {
		if line = collapse(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(text string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text, false
	}
	return string([]rune(text)[:limit]), true
}
