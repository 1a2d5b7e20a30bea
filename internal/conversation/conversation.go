// Package conversation ведет уточняющий диалог о конкретном сне.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/internal/oracle"
	"dreamweaver_backend/pkg/apperrors"
)

// FallbackReply - сообщение модели, которое сохраняется вместо ответа при ошибке
const FallbackReply = "Sorry, I couldn't process that. Please try again."

type Orchestrator interface {
	// Continue - ответ модели на newMessage; история сна уже содержит сообщения до него
	Continue(ctx context.Context, dream *models.Dream, newMessage string) (string, error)
}

type OrchestratorImpl struct {
	client oracle.Client
	model  string
}

func NewOrchestrator(client oracle.Client, model string) Orchestrator {
	return &OrchestratorImpl{client: client, model: model}
}

// SystemInstruction привязывает диалог к тексту сна и исходному анализу
func SystemInstruction(dream *models.Dream) string {
	analysisJSON, err := json.Marshal(dream.Analysis)
	if err != nil {
		analysisJSON = []byte("null")
	}
	return fmt.Sprintf(`You are a dream analyst continuing a conversation with a user about their dream.
The user's dream was: "%s"
Your initial analysis was: %s

Now, engage with the user's follow-up questions based on the conversation history. Provide thoughtful, concise, and helpful responses that build upon the initial analysis.`,
		dream.Text, analysisJSON)
}

// Contents - вся история плюс новое сообщение пользователя
func Contents(history []models.ChatMessage, newMessage string) []oracle.Message {
	out := make([]oracle.Message, 0, len(history)+1)
	for _, m := range history {
		role := oracle.RoleUser
		if m.Role == models.RoleModel {
			role = oracle.RoleModel
		}
		out = append(out, oracle.Message{Role: role, Text: m.Content})
	}
	return append(out, oracle.Message{Role: oracle.RoleUser, Text: newMessage})
}

func (o *OrchestratorImpl) Continue(ctx context.Context, dream *models.Dream, newMessage string) (string, error) {
	resp, err := o.client.GenerateText(ctx, &oracle.TextRequest{
		Operation:         "conversation",
		Model:             o.model,
		SystemInstruction: SystemInstruction(dream),
		Contents:          Contents(dream.ChatHistory, newMessage),
	})
	if err != nil {
		logger.CtxWithError(ctx, "Dream conversation call failed", err, "dream_id", dream.ID)
		return "", apperrors.ErrConversationFailed(err)
	}
	return resp.Text, nil
}
