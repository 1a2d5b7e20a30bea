package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dreamInput struct {
	Text        string  `json:"text" validate:"notblank,max=5000"`
	Mood        string  `json:"mood" validate:"dream-mood"`
	AspectRatio string  `json:"aspectRatio" validate:"aspect-ratio"`
	Period      string  `json:"period" validate:"report-period"`
	Email       string  `json:"email" validate:"omitempty,email"`
	Lat         float64 `json:"lat" validate:"latitude"`
}

func TestValidate_UsesJSONNames(t *testing.T) {
	v := New()

	err := v.Validate(&dreamInput{Text: "   ", Mood: "Angry", AspectRatio: "2:1", Period: "90", Email: "nope", Lat: 120})
	require.Error(t, err)

	vErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, "Must not be blank", vErr.Errors["text"])
	assert.Contains(t, vErr.Errors["mood"], "Happy")
	assert.Contains(t, vErr.Errors["aspectRatio"], "16:9")
	assert.Contains(t, vErr.Errors["period"], "all")
	assert.Equal(t, "Must be a valid email address", vErr.Errors["email"])
	assert.Equal(t, "Must be a valid coordinate", vErr.Errors["lat"])
}

func TestValidate_AcceptsValidInput(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(&dreamInput{Text: "flying", Mood: "Calm", AspectRatio: "9:16", Period: "all", Lat: 51.1}))
	assert.NoError(t, v.Validate(&dreamInput{Text: "flying"}))
}

func TestIsAspectRatio(t *testing.T) {
	assert.True(t, IsAspectRatio("4:3"))
	assert.False(t, IsAspectRatio("4:5"))
}

type nestedInput struct {
	Query   string `json:"query" validate:"max=5"`
	Options struct {
		Mode string `json:"mode" validate:"oneof=fast slow"`
	} `json:"options"`
}

func TestValidate_NestedPathsAndMessages(t *testing.T) {
	v := New()

	in := nestedInput{Query: "too long"}
	in.Options.Mode = "medium"
	err := v.Validate(&in)
	require.Error(t, err)

	vErr := err.(*ValidationError)
	assert.Equal(t, "Must be at most 5 characters long", vErr.Errors["query"])
	assert.Equal(t, "Must be one of: fast, slow", vErr.Errors["options.mode"])
	assert.Equal(t,
		"Validation failed: field 'options.mode': Must be one of: fast, slow; field 'query': Must be at most 5 characters long",
		vErr.Error())
}
