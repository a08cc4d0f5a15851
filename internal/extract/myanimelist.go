package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"videofinder/searchservice/internal/domain"
)

// catalogAnime handles myanimelist title pages. The site carries anime
// exclusively, so classification is a constant.
type catalogAnime struct{}

func (catalogAnime) site() string { return "myanimelist" }

func (catalogAnime) match(pageURL string) bool {
	return strings.Contains(pageURL, "myanimelist.net")
}

func (catalogAnime) classify(_ *goquery.Document, _ string) domain.ContentType {
	return domain.ContentTypeAnime
}

func (catalogAnime) fill(doc *goquery.Document, _ string, rec *domain.TitleRecord) {
	rec.Title = firstText(doc,
		"h1.title-name",
		".h1-title",
	)
	rec.OriginalTitle = firstText(doc, `span[itemprop="alternativeHeadline"]`)
	if text := firstText(doc, `span[itemprop="startDate"]`); text != "" {
		rec.Year = yearFrom(text)
	}
	rec.PosterURL = firstAttr(doc, "src", `img[itemprop="image"]`)
	if text := firstText(doc, `[itemprop="ratingValue"]`); text != "" {
		rec.Rating = ratingFrom(text)
	}
	rec.Description = firstText(doc, `[itemprop="description"]`)
	rec.Genres = collectTexts(doc, `span[itemprop="genre"]`)
	rec.DurationMinutes = intlDurationMinutes(firstText(doc, `span[itemprop="duration"]`))
}
