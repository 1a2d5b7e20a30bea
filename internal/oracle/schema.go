package oracle

type SchemaType string

const (
	TypeObject SchemaType = "OBJECT"
	TypeArray  SchemaType = "ARRAY"
	TypeString SchemaType = "STRING"
	TypeNumber SchemaType = "NUMBER"
)

// Schema - подмножество OpenAPI схемы, которое понимает structured output
type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	Required    []string
	Items       *Schema
}

// Clone - глубокая копия, чтобы расширения не трогали базовый дескриптор
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	cp := &Schema{
		Type:        s.Type,
		Description: s.Description,
		Items:       s.Items.Clone(),
	}
	if s.Required != nil {
		cp.Required = append([]string(nil), s.Required...)
	}
	if s.Properties != nil {
		cp.Properties = make(map[string]*Schema, len(s.Properties))
		for name, prop := range s.Properties {
			cp.Properties[name] = prop.Clone()
		}
	}
	return cp
}

// HasProperty - есть ли свойство верхнего уровня
func (s *Schema) HasProperty(name string) bool {
	_, ok := s.Properties[name]
	return ok
}

// IsRequired - входит ли свойство в required
func (s *Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Attach добавляет обязательное свойство
func (s *Schema) Attach(name string, prop *Schema) {
	if s.Properties == nil {
		s.Properties = make(map[string]*Schema)
	}
	s.Properties[name] = prop
	if !s.IsRequired(name) {
		s.Required = append(s.Required, name)
	}
}
