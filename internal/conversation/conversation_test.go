package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/internal/oracle"
	"dreamweaver_backend/internal/oracle/oracletest"
	"dreamweaver_backend/pkg/apperrors"
)

func sampleDream() *models.Dream {
	return &models.Dream{
		ID:   "2025-06-01T08:00:00Z",
		Text: "I was lost in a library",
		Analysis: &models.DreamAnalysis{
			Themes:  []string{"searching"},
			Summary: "Lost among books.",
		},
		ChatHistory: []models.ChatMessage{
			{Role: models.RoleUser, Content: "Why a library?"},
			{Role: models.RoleModel, Content: "Libraries can stand for knowledge."},
		},
	}
}

func TestContinue_ReplaysHistoryAndGroundsOnDream(t *testing.T) {
	fake := oracletest.ReplyText("Perhaps you are looking for answers.")
	o := NewOrchestrator(fake, "gemini-2.5-flash")

	reply, err := o.Continue(context.Background(), sampleDream(), "What about the lost part?")
	require.NoError(t, err)
	assert.Equal(t, "Perhaps you are looking for answers.", reply)

	req := fake.LastText()
	assert.Equal(t, "gemini-2.5-flash", req.Model)
	assert.Contains(t, req.SystemInstruction, `The user's dream was: "I was lost in a library"`)
	assert.Contains(t, req.SystemInstruction, `"summary":"Lost among books."`)
	assert.Equal(t, []oracle.Message{
		{Role: oracle.RoleUser, Text: "Why a library?"},
		{Role: oracle.RoleModel, Text: "Libraries can stand for knowledge."},
		{Role: oracle.RoleUser, Text: "What about the lost part?"},
	}, req.Contents)
	assert.Nil(t, req.Schema)
}

func TestContinue_Failure(t *testing.T) {
	o := NewOrchestrator(oracletest.Failing(), "m")
	_, err := o.Continue(context.Background(), sampleDream(), "hi")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConversationFailed))
}

func TestSystemInstruction_NullAnalysis(t *testing.T) {
	d := &models.Dream{Text: "t"}
	assert.Contains(t, SystemInstruction(d), "Your initial analysis was: null")
}
