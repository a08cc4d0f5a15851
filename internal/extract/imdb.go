package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"videofinder/searchservice/internal/domain"
)

var minutesPattern = regexp.MustCompile(`(\d+)\s*min`)

// catalogIntl handles imdb title pages.
type catalogIntl struct{}

func (catalogIntl) site() string { return "imdb" }

func (catalogIntl) match(pageURL string) bool {
	return strings.Contains(pageURL, "imdb.com")
}

func (catalogIntl) classify(doc *goquery.Document, pageURL string) domain.ContentType {
	lowered := strings.ToLower(pageURL)
	if strings.Contains(lowered, "/tv/") {
		return domain.ContentTypeSeries
	}
	pageTitle := strings.ToLower(doc.Find("title").First().Text())
	if strings.Contains(pageTitle, "tv series") || strings.Contains(pageTitle, "tv mini series") {
		return domain.ContentTypeSeries
	}
	return domain.ContentTypeMovie
}

func (catalogIntl) fill(doc *goquery.Document, _ string, rec *domain.TitleRecord) {
	rec.Title = firstText(doc,
		"h1",
		`[data-testid="hero-title-block__title"]`,
	)
	if text := firstText(doc,
		`[data-testid="hero-title-block__metadata"]`,
		".sc-8c396aa2-2",
	); text != "" {
		rec.Year = yearFrom(text)
	}
	rec.PosterURL = firstAttr(doc, "src",
		`[data-testid="hero-media__poster"] img`,
		`img[alt*="Poster"]`,
	)
	if text := firstText(doc,
		`[data-testid="hero-rating-bar__aggregate-rating"]`,
		".sc-7ab21ed2-1",
	); text != "" {
		rec.Rating = ratingFrom(text)
	}
	rec.Description = firstText(doc, `[data-testid="plot"] span`)
	rec.Genres = collectTexts(doc, `[data-testid="genres"] a`)
	rec.DurationMinutes = intlDurationMinutes(firstText(doc,
		`[data-testid="title-techspec_runtime"]`,
		`[data-testid="hero-title-block__metadata"] li:last-child`,
	))
}

// intlDurationMinutes parses "148 min" style labels.
func intlDurationMinutes(text string) int {
	m := minutesPattern.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return 0
	}
	minutes, _ := strconv.Atoi(m[1])
	return minutes
}
