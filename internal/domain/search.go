package domain

import "strings"

type AudioType string

const (
	AudioOriginal     AudioType = "original"
	AudioProfessional AudioType = "professional"
	AudioAmateur      AudioType = "amateur"
	AudioSubtitles    AudioType = "subtitles"
	AudioUnknown      AudioType = ""
)

type Language string

const (
	LanguageRU      Language = "ru"
	LanguageEN      Language = "en"
	LanguageJP      Language = "jp"
	LanguageMulti   Language = "multi"
	LanguageUnknown Language = ""
)

// FilterSet constrains aggregation output. Empty fields mean "unconstrained";
// Sources is an allow-list of website names, empty meaning all.
type FilterSet struct {
	Quality  string    `json:"quality,omitempty"`
	Dubbing  AudioType `json:"dubbing,omitempty"`
	Language Language  `json:"language,omitempty"`
	Sources  []string  `json:"sources,omitempty"`
}

func (f FilterSet) Empty() bool {
	return f.Quality == "" && f.Dubbing == "" && f.Language == "" && len(f.Sources) == 0
}

// Query is a title lookup request. Year is a disambiguation hint only
// (0 means unknown), never a hard filter.
type Query struct {
	Title   string    `json:"title"`
	Year    int       `json:"year,omitempty"`
	Filters FilterSet `json:"filters"`
}

type SortKey string

const (
	SortByQuality SortKey = "quality"
	SortByRating  SortKey = "rating"
	SortByDate    SortKey = "date"
)

type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

func NormalizeSortOrder(raw string) SortOrder {
	switch SortOrder(strings.ToLower(strings.TrimSpace(raw))) {
	case SortOrderAsc:
		return SortOrderAsc
	default:
		return SortOrderDesc
	}
}

// qualityRank orders quality labels best first; anything unrecognized
// sorts after the known labels under the "unknown" bucket.
var qualityRank = []string{"2160", "1440", "1080", "720", "480", "360", QualityUnknown}

const QualityUnknown = "unknown"

// QualityRank returns the position of a quality label in the fixed rank
// table, lower meaning better. Unrecognized labels rank as unknown.
func QualityRank(quality string) int {
	value := NormalizeQuality(quality)
	for i, known := range qualityRank {
		if known == value {
			return i
		}
	}
	return len(qualityRank) - 1
}

// QualityOrder exposes the rank table for bucket iteration, best first.
func QualityOrder() []string {
	return append([]string(nil), qualityRank...)
}

func NormalizeQuality(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.TrimSuffix(value, "p")
	switch value {
	case "2160", "4k", "uhd":
		return "2160"
	case "1440", "2k":
		return "1440"
	case "1080", "fullhd", "fhd":
		return "1080"
	case "720", "hd":
		return "720"
	case "480":
		return "480"
	case "360":
		return "360"
	default:
		return QualityUnknown
	}
}

func NormalizeAudioType(raw string) AudioType {
	switch AudioType(strings.ToLower(strings.TrimSpace(raw))) {
	case AudioOriginal:
		return AudioOriginal
	case AudioProfessional:
		return AudioProfessional
	case AudioAmateur:
		return AudioAmateur
	case AudioSubtitles:
		return AudioSubtitles
	default:
		return AudioUnknown
	}
}

func NormalizeLanguage(raw string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(raw))) {
	case LanguageRU:
		return LanguageRU
	case LanguageEN:
		return LanguageEN
	case LanguageJP:
		return LanguageJP
	case LanguageMulti:
		return LanguageMulti
	default:
		return LanguageUnknown
	}
}

// SearchResult is the envelope returned across the UI boundary for the
// search action: success with sources, or a typed error string.
type SearchResult struct {
	Success bool           `json:"success"`
	Data    []SourceRecord `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ProviderInfo describes one entry of the resolution chain.
type ProviderInfo struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	Priority   int    `json:"priority"`
	Configured bool   `json:"configured"`
}
