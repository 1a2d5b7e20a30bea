package services

import (
	"context"
	"strings"
	"time"

	"dreamweaver_backend/internal/auth"
	"dreamweaver_backend/internal/entitlement"
	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/internal/repositories"
	"dreamweaver_backend/internal/services/dto"
	"dreamweaver_backend/pkg/apperrors"
)

type AuthService interface {
	SignUp(ctx context.Context, email, password string) (*dto.AuthResponse, error)
	LogIn(ctx context.Context, email, password string) (*dto.AuthResponse, error)
	LogOut(ctx context.Context, userID string) error
	StartFreeTrial(ctx context.Context, userID string) (*models.User, error)
	// UpdateUser сливает непустые поля в сохраненную запись. Неизвестный id - тихий no-op (nil, nil).
	UpdateUser(ctx context.Context, user models.User) (*models.User, error)
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
	// ValidateSession проверяет токен и наличие живой сессии
	ValidateSession(ctx context.Context, token string) (*models.User, error)
}

type AuthServiceImpl struct {
	userRepo repositories.UserRepository
	tokens   *auth.TokenManager
	now      func() time.Time
}

func NewAuthService(userRepo repositories.UserRepository, tokens *auth.TokenManager, now func() time.Time) AuthService {
	if now == nil {
		now = time.Now
	}
	return &AuthServiceImpl{
		userRepo: userRepo,
		tokens:   tokens,
		now:      now,
	}
}

// NormalizeEmail - email в нижнем регистре без пробелов, он же id пользователя
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp - регистрация нового пользователя
func (s *AuthServiceImpl) SignUp(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	if err := auth.ValidatePassword(password); err != nil {
		return nil, apperrors.ErrWeakPassword
	}

	id := NormalizeEmail(email)
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user := &models.StoredUser{
		User: models.User{
			ID:    id,
			Email: id,
			Plan:  models.PlanFree,
		},
		PasswordHash: hashedPassword,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if apperrors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, apperrors.ErrDuplicateAccount
		}
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "User signed up", "user_id", id)
	return s.startSession(ctx, user.Public())
}

// LogIn - аутентификация пользователя
func (s *AuthServiceImpl) LogIn(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	user, err := s.userRepo.FindByID(ctx, NormalizeEmail(email))
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.InternalError(err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.startSession(ctx, user.Public())
}

func (s *AuthServiceImpl) startSession(ctx context.Context, user models.User) (*dto.AuthResponse, error) {
	if err := s.userRepo.SaveSession(ctx, user); err != nil {
		return nil, apperrors.InternalError(err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		User:        user,
	}, nil
}

// LogOut - закрывает сессию; повторный вызов не ошибка
func (s *AuthServiceImpl) LogOut(ctx context.Context, userID string) error {
	if err := s.userRepo.DeleteSession(ctx, userID); err != nil {
		return apperrors.InternalError(err)
	}
	logger.CtxInfo(ctx, "User logged out", "user_id", userID)
	return nil
}

// StartFreeTrial - 30 дней Pro функций
func (s *AuthServiceImpl) StartFreeTrial(ctx context.Context, userID string) (*models.User, error) {
	trialEnd := entitlement.TrialEnd(s.now())

	stored, err := s.userRepo.Update(ctx, userID, func(u *models.StoredUser) {
		u.TrialEndDate = &trialEnd
	})
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	user := stored.Public()
	if err := s.refreshSession(ctx, user); err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Free trial started", "user_id", userID, "trial_end", trialEnd)
	return &user, nil
}

func (s *AuthServiceImpl) UpdateUser(ctx context.Context, user models.User) (*models.User, error) {
	stored, err := s.userRepo.Update(ctx, user.ID, func(u *models.StoredUser) {
		if user.Email != "" {
			u.Email = user.Email
		}
		if user.Plan != "" {
			u.Plan = user.Plan
		}
		if user.TrialEndDate != nil {
			t := *user.TrialEndDate
			u.TrialEndDate = &t
		}
	})
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			logger.CtxWarn(ctx, "Update for unknown user ignored", "user_id", user.ID)
			return nil, nil
		}
		return nil, apperrors.InternalError(err)
	}

	updated := stored.Public()
	if err := s.refreshSession(ctx, updated); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &updated, nil
}

// refreshSession обновляет копию в сессии, только если пользователь залогинен
func (s *AuthServiceImpl) refreshSession(ctx context.Context, user models.User) error {
	_, err := s.userRepo.FindSession(ctx, user.ID)
	if apperrors.Is(err, repositories.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.userRepo.SaveSession(ctx, user)
}

func (s *AuthServiceImpl) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.FindSession(ctx, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrSessionNotFound) {
			return nil, apperrors.ErrSessionExpired
		}
		return nil, apperrors.InternalError(err)
	}
	return user, nil
}

func (s *AuthServiceImpl) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	return s.CurrentUser(ctx, claims.UserID)
}
