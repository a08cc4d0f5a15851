package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"videofinder/searchservice/internal/domain"
)

var (
	ruHoursPattern   = regexp.MustCompile(`(\d+)ч`)
	ruMinutesPattern = regexp.MustCompile(`(\d+)м`)
)

// catalogRU handles kinopoisk title pages. The selector lists come from
// observed layout generations, newest first; do not reorder them.
type catalogRU struct{}

func (catalogRU) site() string { return "kinopoisk" }

func (catalogRU) match(pageURL string) bool {
	return strings.Contains(pageURL, "kinopoisk")
}

func (catalogRU) classify(doc *goquery.Document, pageURL string) domain.ContentType {
	if strings.Contains(strings.ToLower(pageURL), "/series/") {
		return domain.ContentTypeSeries
	}
	pageTitle := strings.ToLower(doc.Find("title").First().Text())
	if strings.Contains(pageTitle, "сериал") || strings.Contains(pageTitle, "сезон") {
		return domain.ContentTypeSeries
	}
	for _, crumb := range collectTexts(doc, ".breadcrumbs__item") {
		if strings.Contains(strings.ToLower(crumb), "сериал") {
			return domain.ContentTypeSeries
		}
	}
	return domain.ContentTypeMovie
}

func (catalogRU) fill(doc *goquery.Document, _ string, rec *domain.TitleRecord) {
	rec.Title = firstText(doc,
		`[data-testid="hero-title-block__title"]`,
		"h1",
		".styles_title",
	)
	rec.OriginalTitle = firstText(doc,
		`[data-testid="hero-title-block__original-title"]`,
		".styles_originalTitle",
	)
	if text := firstText(doc,
		`a[href*="/lists/movies/"]`,
		".styles_year",
		`[data-testid="hero-title-block__metadata"]`,
	); text != "" {
		rec.Year = yearFrom(text)
	}
	rec.PosterURL = firstAttr(doc, "src",
		`[data-testid="hero-media__poster"] img`,
		".film-poster img",
		`img[alt*="постер"]`,
	)
	if text := firstText(doc,
		`[data-testid="hero-rating-bar__aggregate-rating"]`,
		".film-rating-value",
	); text != "" {
		rec.Rating = ratingFrom(text)
	}
	rec.Description = firstText(doc,
		`[data-testid="plot"] span`,
		".styles_synopsis",
	)
	rec.Genres = collectTexts(doc, `[data-testid="genres"] a, .styles_genres a`)
	rec.Countries = collectTexts(doc, `[data-testid="country"] a, .styles_country a`)
	rec.DurationMinutes = ruDurationMinutes(firstText(doc, `[data-testid="duration"]`))
}

// ruDurationMinutes parses "2ч 28м" style labels. Either half may be
// absent and counts as zero.
func ruDurationMinutes(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	var total int
	if m := ruHoursPattern.FindStringSubmatch(text); m != nil {
		hours, _ := strconv.Atoi(m[1])
		total += hours * 60
	}
	if m := ruMinutesPattern.FindStringSubmatch(text); m != nil {
		minutes, _ := strconv.Atoi(m[1])
		total += minutes
	}
	return total
}
