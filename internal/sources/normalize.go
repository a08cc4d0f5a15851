// Package sources obtains candidate playback sources for a resolved
// identifier and filters, groups, and sorts them.
package sources

import (
	"strconv"
	"strings"
	"time"

	"videofinder/searchservice/internal/domain"
)

// audioTypeLabels maps lowercase site labels to canonical audio types.
// The source sites mostly label dubbing in Russian.
var audioTypeLabels = map[string]domain.AudioType{
	"профессиональная": domain.AudioProfessional,
	"профессиональный": domain.AudioProfessional,
	"дубляж":           domain.AudioProfessional,
	"любительская":     domain.AudioAmateur,
	"любительский":     domain.AudioAmateur,
	"одноголосая":      domain.AudioAmateur,
	"оригинал":         domain.AudioOriginal,
	"оригинальная":     domain.AudioOriginal,
	"субтитры":         domain.AudioSubtitles,
	"professional":     domain.AudioProfessional,
	"amateur":          domain.AudioAmateur,
	"original":         domain.AudioOriginal,
	"subtitles":        domain.AudioSubtitles,
}

var languageLabels = map[string]domain.Language{
	"русский":       domain.LanguageRU,
	"русская":       domain.LanguageRU,
	"английский":    domain.LanguageEN,
	"японский":      domain.LanguageJP,
	"мультиязычный": domain.LanguageMulti,
	"мульти":        domain.LanguageMulti,
	"ru":            domain.LanguageRU,
	"en":            domain.LanguageEN,
	"jp":            domain.LanguageJP,
	"multi":         domain.LanguageMulti,
}

func NormalizeAudioLabel(raw string) domain.AudioType {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return domain.AudioUnknown
	}
	if audio, ok := audioTypeLabels[key]; ok {
		return audio
	}
	return domain.NormalizeAudioType(key)
}

func NormalizeLanguageLabel(raw string) domain.Language {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return domain.LanguageUnknown
	}
	if lang, ok := languageLabels[key]; ok {
		return lang
	}
	return domain.NormalizeLanguage(key)
}

// rawSource is a record the way source sites present it: everything is
// a display string.
type rawSource struct {
	WebsiteName string
	URL         string
	Quality     string
	Dubbing     string
	Language    string
	Title       string
	Year        string
	Thumbnail   string
	Duration    string
	Rating      string
	Subtitles   bool
	HDR         bool
	Active      bool
	CreatedAt   *time.Time
}

// normalizeSource converts a site-shaped record into the internal
// representation. Unparseable numeric fields degrade to zero values.
func normalizeSource(raw rawSource) domain.SourceRecord {
	year := 0
	if parsed, err := strconv.Atoi(strings.TrimSpace(raw.Year)); err == nil {
		year = parsed
	}
	rating := 0.0
	if parsed, err := strconv.ParseFloat(strings.TrimSpace(raw.Rating), 64); err == nil {
		rating = parsed
	}
	return domain.SourceRecord{
		WebsiteName:   strings.TrimSpace(raw.WebsiteName),
		URL:           strings.TrimSpace(raw.URL),
		Quality:       domain.NormalizeQuality(raw.Quality),
		AudioType:     NormalizeAudioLabel(raw.Dubbing),
		AudioLanguage: NormalizeLanguageLabel(raw.Language),
		Title:         strings.TrimSpace(raw.Title),
		Year:          year,
		ThumbnailURL:  strings.TrimSpace(raw.Thumbnail),
		DurationLabel: strings.TrimSpace(raw.Duration),
		Rating:        rating,
		HasSubtitles:  raw.Subtitles,
		HasHDR:        raw.HDR,
		IsActive:      raw.Active,
		CreatedAt:     raw.CreatedAt,
	}
}
