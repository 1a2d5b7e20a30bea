package analysis

import (
	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/internal/oracle"
)

// Названия свойств ответа
const (
	FieldThemes              = "themes"
	FieldEmotions            = "emotions"
	FieldSummary             = "summary"
	FieldInterpretation      = "interpretation"
	FieldPrompts             = "prompts"
	FieldNarrativeStructure  = "narrativeStructure"
	FieldCharacterArchetypes = "characterArchetypes"
	FieldRecurringSymbols    = "recurringSymbols"
)

// Request - вход анализа
type Request struct {
	DreamText string
	Prior     []models.Dream
	Options   models.AnalysisOptions
}

// Extension - необязательный раздел анализа.
// Apply добавляет свойство в схему и возвращает true, если раздел применился.
type Extension struct {
	Name  string // фрагмент инструкции: "narrative structure"
	Apply func(schema *oracle.Schema, req Request) bool
}

// Extensions - порядок применения расширений
var Extensions = []Extension{
	{Name: "narrative structure", Apply: applyNarrative},
	{Name: "character archetypes", Apply: applyArchetypes},
	{Name: "recurring symbols", Apply: applySymbols},
}

// BaseSchema - новый экземпляр базового дескриптора
func BaseSchema() *oracle.Schema {
	emotionProps := make(map[string]*oracle.Schema, len(models.Emotions))
	for _, e := range models.Emotions {
		emotionProps[string(e)] = &oracle.Schema{
			Type:        oracle.TypeNumber,
			Description: "Score from 0.0 to 1.0 representing " + string(e) + ".",
		}
	}

	return &oracle.Schema{
		Type: oracle.TypeObject,
		Properties: map[string]*oracle.Schema{
			FieldThemes: {
				Type:        oracle.TypeArray,
				Items:       &oracle.Schema{Type: oracle.TypeString},
				Description: "A list of 3-5 main themes or subjects in the dream (e.g., 'flying', 'being chased').",
			},
			FieldEmotions: {
				Type:        oracle.TypeObject,
				Properties:  emotionProps,
				Description: "A scoring of key emotions present in the dream, from 0.0 to 1.0.",
			},
			FieldSummary: {
				Type:        oracle.TypeString,
				Description: "A concise, one-sentence summary of the dream's narrative.",
			},
			FieldInterpretation: {
				Type: oracle.TypeString,
				Description: "A thoughtful, psychological interpretation of the dream, exploring what the symbols and narrative " +
					"might represent in the user's waking life. Keep it grounded and avoid overly mystical language. " +
					"If context from previous dreams is provided, reference any recurring patterns or themes.",
			},
			FieldPrompts: {
				Type:  oracle.TypeArray,
				Items: &oracle.Schema{Type: oracle.TypeString},
				Description: "A list of 2-3 open-ended reflection questions to help the user think deeper about the dream " +
					"(e.g., 'What in your life feels like an endless chase?').",
			},
		},
		Required: []string{FieldThemes, FieldEmotions, FieldSummary, FieldInterpretation, FieldPrompts},
	}
}

// BuildSchema применяет расширения по порядку.
// Возвращает схему и названия примененных разделов для инструкции.
func BuildSchema(req Request) (*oracle.Schema, []string) {
	schema := BaseSchema()
	var requested []string
	for _, ext := range Extensions {
		if ext.Apply(schema, req) {
			requested = append(requested, ext.Name)
		}
	}
	return schema, requested
}

func applyNarrative(schema *oracle.Schema, req Request) bool {
	if !req.Options.Narrative {
		return false
	}
	schema.Attach(FieldNarrativeStructure, &oracle.Schema{
		Type: oracle.TypeString,
		Description: "Analyze the dream's narrative structure. Describe its plot, pacing (e.g., slow, frantic), " +
			"and overall story arc (e.g., linear, fragmented, cyclical).",
	})
	return true
}

func applyArchetypes(schema *oracle.Schema, req Request) bool {
	if !req.Options.Archetypes {
		return false
	}
	schema.Attach(FieldCharacterArchetypes, &oracle.Schema{
		Type: oracle.TypeArray,
		Items: &oracle.Schema{
			Type: oracle.TypeObject,
			Properties: map[string]*oracle.Schema{
				"nameInDream": {
					Type:        oracle.TypeString,
					Description: "The name or description of the character/entity in the dream (e.g., 'a shadowy figure', 'my mother').",
				},
				"archetype": {
					Type:        oracle.TypeString,
					Description: "The Jungian or common archetype this character represents (e.g., 'The Mentor', 'The Shadow', 'The Anima/Animus').",
				},
				"description": {
					Type:        oracle.TypeString,
					Description: "A brief explanation of why this character fits the archetype and their role in the dream's narrative.",
				},
			},
			Required: []string{"nameInDream", "archetype", "description"},
		},
		Description: "Identify key characters or figures in the dream and analyze them based on common archetypes.",
	})
	return true
}

// applySymbols - только при наличии предыдущих снов
func applySymbols(schema *oracle.Schema, req Request) bool {
	if !req.Options.Symbols || len(req.Prior) == 0 {
		return false
	}
	schema.Attach(FieldRecurringSymbols, &oracle.Schema{
		Type: oracle.TypeArray,
		Items: &oracle.Schema{
			Type: oracle.TypeObject,
			Properties: map[string]*oracle.Schema{
				"symbol": {
					Type:        oracle.TypeString,
					Description: "The recurring symbol or theme found in the new dream and previous dreams.",
				},
				"interpretation": {
					Type: oracle.TypeString,
					Description: "An interpretation of what this recurring symbol might mean for the user, " +
						"noting any evolution in its context or appearance.",
				},
				"appearances": {
					Type:        oracle.TypeNumber,
					Description: "The total count of how many times this symbol has appeared, including the current dream.",
				},
			},
			Required: []string{"symbol", "interpretation", "appearances"},
		},
		Description: "Identify symbols or themes from the new dream that have also appeared in the provided previous dreams. " +
			"Analyze their significance and potential evolution.",
	})
	return true
}
