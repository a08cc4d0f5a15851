// Package extract turns title pages from supported catalog sites into
// normalized records. Every strategy is two-phase: an embedded schema.org
// block first, then per-field locator fallbacks. Extraction is
// best-effort, a field that cannot be located is simply left empty.
package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/charmap"

	"videofinder/searchservice/internal/domain"
	"videofinder/searchservice/internal/metrics"
)

const (
	defaultUserAgent = "videofinder-search/1.0"
	defaultRecordTTL = 2 * time.Minute
	maxPageBytes     = 4 << 20
)

var (
	yearPattern   = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	ratingPattern = regexp.MustCompile(`[\d.]+`)
)

// strategy is one supported site schema. fill runs the fallback phase
// only, the structured phase is shared across sites. classify always
// runs, it reads cheap signals (URL path, page title, breadcrumbs)
// independent of either phase.
type strategy interface {
	site() string
	match(pageURL string) bool
	classify(doc *goquery.Document, pageURL string) domain.ContentType
	fill(doc *goquery.Document, pageURL string, rec *domain.TitleRecord)
}

type cachedRecord struct {
	record   domain.TitleRecord
	storedAt time.Time
}

// Extractor dispatches a page URL to its site strategy and keeps a
// short-lived per-URL record cache for same-page re-reads.
type Extractor struct {
	client    *http.Client
	userAgent string
	listeners []func(domain.TitleRecord)
	recordTTL time.Duration
	now       func() time.Time

	mu      sync.RWMutex
	records map[string]cachedRecord

	strategies []strategy
}

type Option func(*Extractor)

func WithHTTPClient(client *http.Client) Option {
	return func(e *Extractor) {
		if client != nil {
			e.client = client
		}
	}
}

func WithUserAgent(agent string) Option {
	return func(e *Extractor) {
		if strings.TrimSpace(agent) != "" {
			e.userAgent = agent
		}
	}
}

// WithListener registers a callback invoked after every non-empty
// extraction, the push half of the extraction boundary.
func WithListener(fn func(domain.TitleRecord)) Option {
	return func(e *Extractor) {
		if fn != nil {
			e.listeners = append(e.listeners, fn)
		}
	}
}

func WithRecordTTL(ttl time.Duration) Option {
	return func(e *Extractor) {
		if ttl > 0 {
			e.recordTTL = ttl
		}
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{
		client:    &http.Client{Timeout: 15 * time.Second},
		userAgent: defaultUserAgent,
		recordTTL: defaultRecordTTL,
		now:       time.Now,
		records:   make(map[string]cachedRecord),
		strategies: []strategy{
			catalogRU{},
			catalogIntl{},
			catalogAnime{},
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Supports reports whether any strategy claims the URL.
func (e *Extractor) Supports(pageURL string) bool {
	return e.strategyFor(pageURL) != nil
}

// Extract parses already-fetched page content. The returned record is
// empty (Empty() == true) when the URL is unsupported or nothing could
// be located; that is an outcome, not an error.
func (e *Extractor) Extract(pageURL, pageHTML string) domain.TitleRecord {
	s := e.strategyFor(pageURL)
	if s == nil {
		return domain.TitleRecord{}
	}

	if rec, ok := e.cachedFor(pageURL); ok {
		return rec
	}

	rec := domain.TitleRecord{
		SourceSite:   s.site(),
		CanonicalURL: strings.TrimSpace(pageURL),
		ExtractedAt:  e.now(),
		ContentType:  domain.ContentTypeUnknown,
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues(s.site(), "empty").Inc()
		return domain.TitleRecord{}
	}

	phase := "jsonld"
	applyStructured(doc, &rec)
	if rec.Title == "" {
		phase = "fallback"
		s.fill(doc, pageURL, &rec)
	}
	rec.ContentType = s.classify(doc, pageURL)
	if rec.Title == "" {
		phase = "empty"
	}
	metrics.ExtractionsTotal.WithLabelValues(s.site(), phase).Inc()

	// Partial records are valid results; only titled ones are worth
	// remembering and announcing.
	if !rec.Empty() {
		e.remember(pageURL, rec)
		for _, fn := range e.listeners {
			fn(rec)
		}
	}
	return rec
}

// ExtractURL fetches the page and extracts it. Network failures are
// real errors here, unlike extraction gaps.
func (e *Extractor) ExtractURL(ctx context.Context, pageURL string) (domain.TitleRecord, error) {
	s := e.strategyFor(pageURL)
	if s == nil {
		return domain.TitleRecord{}, fmt.Errorf("unsupported page url %q", pageURL)
	}
	if rec, ok := e.cachedFor(pageURL); ok {
		return rec, nil
	}

	startedAt := time.Now()
	defer func() {
		metrics.ExtractionDuration.WithLabelValues(s.site()).Observe(time.Since(startedAt).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(pageURL), nil)
	if err != nil {
		return domain.TitleRecord{}, fmt.Errorf("build page request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return domain.TitleRecord{}, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.TitleRecord{}, fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return domain.TitleRecord{}, fmt.Errorf("read page body: %w", err)
	}

	return e.Extract(pageURL, decodeHTML(payload)), nil
}

func (e *Extractor) strategyFor(pageURL string) strategy {
	lowered := strings.ToLower(strings.TrimSpace(pageURL))
	if lowered == "" {
		return nil
	}
	for _, s := range e.strategies {
		if s.match(lowered) {
			return s
		}
	}
	return nil
}

func (e *Extractor) cachedFor(pageURL string) (domain.TitleRecord, bool) {
	key := strings.TrimSpace(pageURL)

	e.mu.RLock()
	entry, ok := e.records[key]
	e.mu.RUnlock()
	if !ok {
		return domain.TitleRecord{}, false
	}
	if e.now().Sub(entry.storedAt) > e.recordTTL {
		e.mu.Lock()
		delete(e.records, key)
		e.mu.Unlock()
		return domain.TitleRecord{}, false
	}
	return entry.record, true
}

func (e *Extractor) remember(pageURL string, rec domain.TitleRecord) {
	key := strings.TrimSpace(pageURL)

	e.mu.Lock()
	e.records[key] = cachedRecord{record: rec, storedAt: e.now()}
	e.mu.Unlock()
}

// Sites parsed by rutracker-style trackers ship windows-1251 bodies
// without a charset header.
func decodeHTML(payload []byte) string {
	if utf8.Valid(payload) {
		return string(payload)
	}
	decoded, err := charmap.Windows1251.NewDecoder().Bytes(payload)
	if err != nil {
		return string(payload)
	}
	return string(decoded)
}

// firstText probes selectors in order and returns the first non-empty
// trimmed text. The order encodes observed layout reliability, keep it.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

// firstAttr is firstText for an attribute value.
func firstAttr(doc *goquery.Document, attr string, selectors ...string) string {
	for _, selector := range selectors {
		value, ok := doc.Find(selector).First().Attr(attr)
		if ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func collectTexts(doc *goquery.Document, selector string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

func yearFrom(text string) int {
	match := yearPattern.FindString(text)
	if match == "" {
		return 0
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return year
}

func ratingFrom(text string) float64 {
	match := ratingPattern.FindString(text)
	if match == "" {
		return 0
	}
	rating, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return rating
}
