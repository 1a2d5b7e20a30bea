package models

type Emotion string

const (
	EmotionJoy      Emotion = "joy"
	EmotionFear     Emotion = "fear"
	EmotionSadness  Emotion = "sadness"
	EmotionAnger    Emotion = "anger"
	EmotionSurprise Emotion = "surprise"
	EmotionAnxiety  Emotion = "anxiety"
)

// Emotions - фиксированный словарь в каноническом порядке
var Emotions = []Emotion{
	EmotionJoy,
	EmotionFear,
	EmotionSadness,
	EmotionAnger,
	EmotionSurprise,
	EmotionAnxiety,
}

type EmotionScores struct {
	Joy      float64 `json:"joy"`
	Fear     float64 `json:"fear"`
	Sadness  float64 `json:"sadness"`
	Anger    float64 `json:"anger"`
	Surprise float64 `json:"surprise"`
	Anxiety  float64 `json:"anxiety"`
}

// Score возвращает оценку по имени эмоции
func (s EmotionScores) Score(e Emotion) float64 {
	switch e {
	case EmotionJoy:
		return s.Joy
	case EmotionFear:
		return s.Fear
	case EmotionSadness:
		return s.Sadness
	case EmotionAnger:
		return s.Anger
	case EmotionSurprise:
		return s.Surprise
	case EmotionAnxiety:
		return s.Anxiety
	}
	return 0
}

// Dominant - эмоция с максимальной оценкой; при равенстве побеждает первая по словарю.
// ok=false, если все оценки нулевые.
func (s EmotionScores) Dominant() (Emotion, bool) {
	var best Emotion
	bestScore := 0.0
	for _, e := range Emotions {
		if v := s.Score(e); v > bestScore {
			best, bestScore = e, v
		}
	}
	return best, bestScore > 0
}

// Above - эмоции с оценкой строго выше порога, в порядке словаря
func (s EmotionScores) Above(threshold float64) []Emotion {
	var out []Emotion
	for _, e := range Emotions {
		if s.Score(e) > threshold {
			out = append(out, e)
		}
	}
	return out
}

type CharacterArchetype struct {
	NameInDream string `json:"nameInDream"`
	Archetype   string `json:"archetype"`
	Description string `json:"description"`
}

type RecurringSymbol struct {
	Symbol         string  `json:"symbol"`
	Interpretation string  `json:"interpretation"`
	Appearances    float64 `json:"appearances"`
}

type DreamAnalysis struct {
	Themes              []string             `json:"themes"`
	Emotions            EmotionScores        `json:"emotions"`
	Summary             string               `json:"summary"`
	Interpretation      string               `json:"interpretation"`
	Prompts             []string             `json:"prompts"`
	NarrativeStructure  string               `json:"narrativeStructure,omitempty"`
	CharacterArchetypes []CharacterArchetype `json:"characterArchetypes,omitempty"`
	RecurringSymbols    []RecurringSymbol    `json:"recurringSymbols,omitempty"`
}
