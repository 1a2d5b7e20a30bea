package models

// ReportPeriod - окно отчета в днях; PeriodAll без фильтра
type ReportPeriod string

const (
	Period7   ReportPeriod = "7"
	Period30  ReportPeriod = "30"
	PeriodAll ReportPeriod = "all"
)

// Days - длина окна; ok=false для PeriodAll
func (p ReportPeriod) Days() (int, bool) {
	switch p {
	case Period7:
		return 7, true
	case Period30:
		return 30, true
	}
	return 0, false
}

func (p ReportPeriod) Valid() bool {
	return p == Period7 || p == Period30 || p == PeriodAll
}

type InsightReport struct {
	Period     ReportPeriod `json:"period"`
	DreamCount int          `json:"dreamCount"`
	Report     string       `json:"report"`
}

type GlobalTrends struct {
	Themes []ThemeCount `json:"themes"`
	Report string       `json:"report"`
}

type ThemeCount struct {
	Theme string `json:"theme"`
	Count int    `json:"count"`
}

type GroundingSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type CommunityInsight struct {
	Text    string            `json:"text"`
	Sources []GroundingSource `json:"sources"`
}

type DreamArt struct {
	DreamID      string `json:"dreamId"`
	AspectRatio  string `json:"aspectRatio"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Prompt       string `json:"prompt"`
}
