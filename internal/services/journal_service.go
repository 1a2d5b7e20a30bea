package services

import (
	"context"
	"strings"
	"time"

	"dreamweaver_backend/internal/analysis"
	"dreamweaver_backend/internal/conversation"
	"dreamweaver_backend/internal/entitlement"
	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/internal/metrics"
	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/internal/repositories"
	"dreamweaver_backend/internal/services/dto"
	"dreamweaver_backend/pkg/apperrors"
)

type JournalService interface {
	SubmitDream(ctx context.Context, userID, text string, mood models.DreamMood, opts models.AnalysisOptions) (*models.Dream, error)
	ListDreams(ctx context.Context, userID string) ([]models.Dream, error)
	GetDream(ctx context.Context, userID, dreamID string) (*models.Dream, error)
	// SendChatMessage всегда возвращает актуальный сон; при сбое модели вместе с ним
	// возвращается ErrConversationFailed, а в истории стоит запасной ответ.
	SendChatMessage(ctx context.Context, userID, dreamID, message string) (*models.Dream, string, error)
	Snapshot(ctx context.Context, userID string) (*dto.JournalSnapshot, error)
}

type JournalServiceImpl struct {
	userRepo     repositories.UserRepository
	dreamRepo    repositories.DreamRepository
	analyzer     analysis.Analyzer
	conversation conversation.Orchestrator
	now          func() time.Time
}

func NewJournalService(
	userRepo repositories.UserRepository,
	dreamRepo repositories.DreamRepository,
	analyzer analysis.Analyzer,
	orchestrator conversation.Orchestrator,
	now func() time.Time,
) JournalService {
	if now == nil {
		now = time.Now
	}
	return &JournalServiceImpl{
		userRepo:     userRepo,
		dreamRepo:    dreamRepo,
		analyzer:     analyzer,
		conversation: orchestrator,
		now:          now,
	}
}

// loadUser - авторитетная запись тарифа берется из хранилища, а не из сессии
func loadUser(ctx context.Context, repo repositories.UserRepository, userID string) (models.User, error) {
	stored, err := repo.FindByID(ctx, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return models.User{}, apperrors.ErrUserNotFound
		}
		return models.User{}, apperrors.InternalError(err)
	}
	return stored.Public(), nil
}

// SubmitDream - гейт тарифа, анализ с контекстом прошлых снов, сохранение
func (s *JournalServiceImpl) SubmitDream(ctx context.Context, userID, text string, mood models.DreamMood, opts models.AnalysisOptions) (*models.Dream, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.ValidationError(map[string]string{"text": "Must not be blank"})
	}
	if !mood.Valid() {
		return nil, apperrors.ValidationError(map[string]string{"mood": "Must be one of: Happy, Calm, Sad, Fearful"})
	}

	user, err := loadUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}

	dreams, err := s.dreamRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	now := s.now()
	if err := entitlement.AllowOptions(user, opts, now); err != nil {
		metrics.RecordGateRejection("options")
		return nil, err
	}
	if err := entitlement.CheckQuota(user, dreams, now); err != nil {
		metrics.RecordGateRejection("quota")
		logger.CtxInfo(ctx, "Monthly quota reached", "user_id", userID)
		return nil, err
	}

	result, err := s.analyzer.Analyze(ctx, text, dreams, opts)
	if err != nil {
		return nil, err
	}
	// Клиент ушел - результат не сохраняем
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Пока шел анализ, параллельный запрос мог занять последний слот квоты
	dream, err := s.dreamRepo.CreateDreamIf(ctx, userID, text, mood, result, func(current []models.Dream) error {
		return entitlement.CheckQuota(user, current, s.now())
	})
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			if apperrors.Is(appErr, apperrors.ErrQuotaExceeded) {
				metrics.RecordGateRejection("quota")
			}
			return nil, appErr
		}
		return nil, apperrors.InternalError(err)
	}

	metrics.RecordDreamCreated()
	logger.CtxInfo(ctx, "Dream analyzed", "user_id", userID, "dream_id", dream.ID, "themes", len(result.Themes))
	return dream, nil
}

func (s *JournalServiceImpl) ListDreams(ctx context.Context, userID string) ([]models.Dream, error) {
	dreams, err := s.dreamRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return dreams, nil
}

func (s *JournalServiceImpl) GetDream(ctx context.Context, userID, dreamID string) (*models.Dream, error) {
	return getDream(ctx, s.dreamRepo, userID, dreamID)
}

func getDream(ctx context.Context, repo repositories.DreamRepository, userID, dreamID string) (*models.Dream, error) {
	dream, err := repo.Get(ctx, userID, dreamID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrDreamNotFound) {
			return nil, apperrors.ErrDreamNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return dream, nil
}

func (s *JournalServiceImpl) SendChatMessage(ctx context.Context, userID, dreamID, message string) (*models.Dream, string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, "", apperrors.ValidationError(map[string]string{"message": "Must not be blank"})
	}

	// Снимок до записи: история без нового сообщения уходит в модель
	before, err := getDream(ctx, s.dreamRepo, userID, dreamID)
	if err != nil {
		return nil, "", err
	}

	// Сообщение пользователя сохраняется до запроса ответа
	dream, err := s.dreamRepo.AppendChatMessage(ctx, userID, dreamID, models.ChatMessage{Role: models.RoleUser, Content: message})
	if err != nil {
		return nil, "", apperrors.InternalError(err)
	}
	if dream == nil {
		return nil, "", apperrors.ErrDreamNotFound
	}

	reply, replyErr := s.conversation.Continue(ctx, before, message)
	content := reply
	if replyErr != nil {
		logger.CtxWithError(ctx, "Conversation failed, storing fallback reply", replyErr, "dream_id", dreamID)
		content = conversation.FallbackReply
	}

	// Запись ответа не должна теряться из-за ушедшего клиента
	updated, err := s.dreamRepo.AppendChatMessage(context.WithoutCancel(ctx), userID, dreamID, models.ChatMessage{Role: models.RoleModel, Content: content})
	if err != nil {
		return dream, "", apperrors.InternalError(err)
	}
	if updated != nil {
		dream = updated
	}

	if replyErr != nil {
		return dream, "", replyErr
	}
	return dream, reply, nil
}

// Snapshot - пользователь, права и журнал одним ответом
func (s *JournalServiceImpl) Snapshot(ctx context.Context, userID string) (*dto.JournalSnapshot, error) {
	user, err := loadUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}
	dreams, err := s.ListDreams(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &dto.JournalSnapshot{
		User:            user,
		IsEntitled:      entitlement.IsEntitled(user, now),
		Dreams:          dreams,
		DreamsThisMonth: entitlement.DreamsThisMonth(dreams, now),
		MonthlyLimit:    entitlement.MonthlyFreeLimit,
	}, nil
}
