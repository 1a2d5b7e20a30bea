package dto

import "dreamweaver_backend/internal/models"

// SignUpRequest - запрос регистрации
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LogInRequest - запрос входа
type LogInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse - пользователь и токен доступа
type AuthResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"` // секунды
	User        models.User `json:"user"`
}
