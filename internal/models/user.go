package models

import "time"

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// User - публичный профиль. ID совпадает с нормализованным email.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Plan         Plan       `json:"plan"`
	TrialEndDate *time.Time `json:"trialEndDate,omitempty"`
}

// StoredUser - запись в хранилище: профиль плюс секреты, которые наружу не отдаются
type StoredUser struct {
	User
	PasswordHash     string `json:"passwordHash"`
	StripeCustomerID string `json:"stripeCustomerId,omitempty"`
}

// Public возвращает копию без секретов
func (u StoredUser) Public() User {
	pub := u.User
	if u.TrialEndDate != nil {
		t := *u.TrialEndDate
		pub.TrialEndDate = &t
	}
	return pub
}
