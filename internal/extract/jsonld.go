package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"videofinder/searchservice/internal/domain"
)

// structuredBlock is the subset of a schema.org movie/series object the
// fast path reads. Sites disagree on value shapes, so the flexible
// fields decode to json.RawMessage and get coerced afterwards.
type structuredBlock struct {
	Name            string          `json:"name"`
	AlternateName   string          `json:"alternateName"`
	DateCreated     string          `json:"dateCreated"`
	DatePublished   string          `json:"datePublished"`
	Image           json.RawMessage `json:"image"`
	Description     string          `json:"description"`
	Genre           json.RawMessage `json:"genre"`
	AggregateRating *struct {
		RatingValue json.RawMessage `json:"ratingValue"`
	} `json:"aggregateRating"`
}

// applyStructured runs the structured-metadata phase: the first
// ld+json block that parses and names a title populates the record.
// A malformed block is skipped, never fatal.
func applyStructured(doc *goquery.Document, rec *domain.TitleRecord) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var block structuredBlock
		if err := json.Unmarshal([]byte(sel.Text()), &block); err != nil {
			return true
		}
		title := strings.TrimSpace(block.Name)
		if title == "" {
			return true
		}

		rec.Title = title
		rec.OriginalTitle = strings.TrimSpace(block.AlternateName)
		rec.Description = strings.TrimSpace(block.Description)
		if year := yearFrom(block.DateCreated); year > 0 {
			rec.Year = year
		} else if year := yearFrom(block.DatePublished); year > 0 {
			rec.Year = year
		}
		if image := coerceString(block.Image); image != "" {
			rec.PosterURL = image
		}
		if genres := coerceStrings(block.Genre); len(genres) > 0 {
			rec.Genres = genres
		}
		if block.AggregateRating != nil {
			rec.Rating = coerceFloat(block.AggregateRating.RatingValue)
		}
		return false
	})
}

// coerceString accepts "x", ["x", ...] and {"url": "x"}.
func coerceString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return strings.TrimSpace(list[0])
	}
	var object struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &object); err == nil {
		return strings.TrimSpace(object.URL)
	}
	return ""
}

func coerceStrings(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && strings.TrimSpace(single) != "" {
		return []string{strings.TrimSpace(single)}
	}
	return nil
}

// coerceFloat accepts 8.1 and "8.1".
func coerceFloat(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if value, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			return value
		}
	}
	return 0
}
