package domain

import "time"

type ContentType string

const (
	ContentTypeMovie   ContentType = "movie"
	ContentTypeSeries  ContentType = "series"
	ContentTypeAnime   ContentType = "anime"
	ContentTypeUnknown ContentType = "unknown"
)

func NormalizeContentType(raw string) ContentType {
	switch ContentType(raw) {
	case ContentTypeMovie:
		return ContentTypeMovie
	case ContentTypeSeries:
		return ContentTypeSeries
	case ContentTypeAnime:
		return ContentTypeAnime
	default:
		return ContentTypeUnknown
	}
}

// ExternalID identifies a title in exactly one upstream catalog.
// Immutable once produced by the resolver.
type ExternalID struct {
	ID          string      `json:"id"`
	Provider    string      `json:"provider"`
	ContentType ContentType `json:"contentType"`
}

// TitleRecord is the normalized result of extracting a catalog page.
// Only Title, SourceSite, CanonicalURL and ExtractedAt are guaranteed;
// every other field is best-effort and may be absent.
type TitleRecord struct {
	Title           string      `json:"title"`
	OriginalTitle   string      `json:"originalTitle,omitempty"`
	Year            int         `json:"year,omitempty"`
	Rating          float64     `json:"rating,omitempty"`
	PosterURL       string      `json:"posterUrl,omitempty"`
	Description     string      `json:"description,omitempty"`
	Genres          []string    `json:"genres,omitempty"`
	Countries       []string    `json:"countries,omitempty"`
	DurationMinutes int         `json:"durationMinutes,omitempty"`
	ContentType     ContentType `json:"contentType"`
	SourceSite      string      `json:"sourceSite"`
	CanonicalURL    string      `json:"canonicalUrl"`
	ExtractedAt     time.Time   `json:"extractedAt"`
}

func (r TitleRecord) Empty() bool {
	return r.Title == ""
}

// SourceRecord is one candidate playback source after normalization.
type SourceRecord struct {
	WebsiteName   string     `json:"websiteName"`
	URL           string     `json:"url"`
	Quality       string     `json:"quality,omitempty"`
	AudioType     AudioType  `json:"audioType,omitempty"`
	AudioLanguage Language   `json:"audioLanguage,omitempty"`
	Title         string     `json:"title,omitempty"`
	Year          int        `json:"year,omitempty"`
	ThumbnailURL  string     `json:"thumbnailUrl,omitempty"`
	DurationLabel string     `json:"durationLabel,omitempty"`
	Rating        float64    `json:"rating,omitempty"`
	HasSubtitles  bool       `json:"hasSubtitles,omitempty"`
	HasHDR        bool       `json:"hasHdr,omitempty"`
	IsActive      bool       `json:"isActive"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
}
