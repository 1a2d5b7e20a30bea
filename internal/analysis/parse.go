package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"dreamweaver_backend/internal/models"
)

var ErrMalformedResponse = errors.New("analysis: malformed response")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

// Parse проверяет форму ответа и декодирует его.
// Разделы, которые не запрашивались, отбрасываются; запрошенные обязательны.
func Parse(raw string, requested map[string]bool) (*models.DreamAnalysis, error) {
	raw = stripFences(raw)
	if !gjson.Valid(raw) {
		return nil, malformed("not valid JSON")
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return nil, malformed("top level is not an object")
	}

	if err := requireStringArray(doc, FieldThemes); err != nil {
		return nil, err
	}
	if err := requireStringArray(doc, FieldPrompts); err != nil {
		return nil, err
	}
	for _, field := range []string{FieldSummary, FieldInterpretation} {
		if v := doc.Get(field); v.Type != gjson.String || strings.TrimSpace(v.Str) == "" {
			return nil, malformed("%s must be a non-empty string", field)
		}
	}

	emotions := doc.Get(FieldEmotions)
	if !emotions.IsObject() {
		return nil, malformed("emotions must be an object")
	}
	for _, e := range models.Emotions {
		score := emotions.Get(string(e))
		if score.Type != gjson.Number {
			return nil, malformed("emotion %s must be a number", e)
		}
		if score.Num < 0 || score.Num > 1 {
			return nil, malformed("emotion %s score %v is outside [0,1]", e, score.Num)
		}
	}

	if requested[FieldNarrativeStructure] {
		if v := doc.Get(FieldNarrativeStructure); v.Type != gjson.String || v.Str == "" {
			return nil, malformed("narrativeStructure was requested but is missing")
		}
	}
	if requested[FieldCharacterArchetypes] && !doc.Get(FieldCharacterArchetypes).IsArray() {
		return nil, malformed("characterArchetypes was requested but is missing")
	}
	if requested[FieldRecurringSymbols] && !doc.Get(FieldRecurringSymbols).IsArray() {
		return nil, malformed("recurringSymbols was requested but is missing")
	}

	var out models.DreamAnalysis
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, malformed("decode: %v", err)
	}

	if !requested[FieldNarrativeStructure] {
		out.NarrativeStructure = ""
	}
	if !requested[FieldCharacterArchetypes] {
		out.CharacterArchetypes = nil
	}
	if !requested[FieldRecurringSymbols] {
		out.RecurringSymbols = nil
	}
	return &out, nil
}

// requireStringArray требует непустой массив строк.
// Диапазоны из схемы (3-5 тем, 2-3 вопроса) здесь не проверяются.
func requireStringArray(doc gjson.Result, field string) error {
	v := doc.Get(field)
	if !v.IsArray() {
		return malformed("%s must be an array", field)
	}
	items := v.Array()
	if len(items) == 0 {
		return malformed("%s must not be empty", field)
	}
	for _, item := range items {
		if item.Type != gjson.String {
			return malformed("%s must contain only strings", field)
		}
	}
	return nil
}

// stripFences снимает ```json обертку, если модель ее добавила
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}
