package dto

import "dreamweaver_backend/internal/models"

// SubmitDreamRequest - новый сон для анализа
type SubmitDreamRequest struct {
	Text    string                 `json:"text" validate:"notblank,max=10000"`
	Mood    models.DreamMood       `json:"mood" validate:"dream-mood"`
	Options models.AnalysisOptions `json:"options"`
}

// ChatMessageRequest - вопрос пользователя о сне
type ChatMessageRequest struct {
	Message string `json:"message" validate:"notblank,max=4000"`
}

// ChatMessageResponse - сон с обновленной историей.
// Reply пустой, если модель не ответила (в истории тогда стоит запасное сообщение).
type ChatMessageResponse struct {
	Dream *models.Dream `json:"dream"`
	Reply string        `json:"reply,omitempty"`
}

// GenerateArtRequest - пропорции изображения
type GenerateArtRequest struct {
	AspectRatio string `json:"aspectRatio" validate:"required,aspect-ratio"`
}

// JournalSnapshot - все, что клиент рисует на главном экране
type JournalSnapshot struct {
	User            models.User    `json:"user"`
	IsEntitled      bool           `json:"isEntitled"`
	Dreams          []models.Dream `json:"dreams"`
	DreamsThisMonth int            `json:"dreamsThisMonth"`
	MonthlyLimit    int            `json:"monthlyLimit"`
}
