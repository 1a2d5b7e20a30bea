package models

import "time"

type DreamMood string

const (
	MoodHappy   DreamMood = "Happy"
	MoodCalm    DreamMood = "Calm"
	MoodSad     DreamMood = "Sad"
	MoodFearful DreamMood = "Fearful"
)

// Valid - пустое настроение допустимо (не указано)
func (m DreamMood) Valid() bool {
	switch m {
	case "", MoodHappy, MoodCalm, MoodSad, MoodFearful:
		return true
	}
	return false
}

type ChatRole string

const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// DreamIDLayout - id сна это момент создания в UTC
const DreamIDLayout = time.RFC3339Nano

// TimestampLayout - человекочитаемая дата, часть до запятой используется в отчетах
const TimestampLayout = "1/2/2006, 3:04:05 PM"

type Dream struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	Text         string         `json:"text"`
	Mood         DreamMood      `json:"mood,omitempty"`
	Timestamp    string         `json:"timestamp"`
	Analysis     *DreamAnalysis `json:"analysis"`
	ChatHistory  []ChatMessage  `json:"chatHistory,omitempty"`
	ArtURL       string         `json:"artUrl,omitempty"`
	ThumbnailURL string         `json:"thumbnailUrl,omitempty"`
}

// CreatedAt разбирает id как дату. ok=false для id, которые не являются датой.
func (d Dream) CreatedAt() (time.Time, bool) {
	t, err := time.Parse(DreamIDLayout, d.ID)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// AnalysisOptions - дополнительные разделы анализа (Pro/триал)
type AnalysisOptions struct {
	Narrative  bool `json:"narrative"`
	Archetypes bool `json:"archetypes"`
	Symbols    bool `json:"symbols"`
}

// Any - запрошен ли хотя бы один дополнительный раздел
func (o AnalysisOptions) Any() bool {
	return o.Narrative || o.Archetypes || o.Symbols
}
