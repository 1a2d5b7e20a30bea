// Package entitlement решает, что доступно пользователю по тарифу и триалу.
// Все функции чистые и вычисляются на каждый вызов: истечение триала зависит от времени.
package entitlement

import (
	"time"

	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/pkg/apperrors"
)

const (
	// MonthlyFreeLimit - снов в календарный месяц без Pro/триала
	MonthlyFreeLimit = 5
	// TrialDuration - длина бесплатного триала
	TrialDuration = 30 * 24 * time.Hour
)

// IsEntitled - Pro, либо триал заканчивается строго позже now
func IsEntitled(user models.User, now time.Time) bool {
	if user.Plan == models.PlanPro {
		return true
	}
	return user.TrialEndDate != nil && user.TrialEndDate.After(now)
}

// DreamsThisMonth считает сны, id которых попадает в текущий месяц и год (в зоне now).
// Неразбираемые id не считаются.
func DreamsThisMonth(dreams []models.Dream, now time.Time) int {
	year, month, _ := now.Date()
	count := 0
	for _, d := range dreams {
		created, ok := d.CreatedAt()
		if !ok {
			continue
		}
		y, m, _ := created.In(now.Location()).Date()
		if y == year && m == month {
			count++
		}
	}
	return count
}

// CheckQuota блокирует новый сон, когда бесплатный лимит исчерпан
func CheckQuota(user models.User, dreams []models.Dream, now time.Time) error {
	if IsEntitled(user, now) {
		return nil
	}
	if DreamsThisMonth(dreams, now) >= MonthlyFreeLimit {
		return apperrors.ErrQuotaExceeded
	}
	return nil
}

// AllowOptions - расширенный анализ только для Pro/триала
func AllowOptions(user models.User, opts models.AnalysisOptions, now time.Time) error {
	if opts.Any() && !IsEntitled(user, now) {
		return apperrors.ErrUpgradeRequired
	}
	return nil
}

// AllowReportPeriod - окна 30 и all только для Pro/триала
func AllowReportPeriod(user models.User, period models.ReportPeriod, now time.Time) error {
	if period == models.Period7 {
		return nil
	}
	if !IsEntitled(user, now) {
		return apperrors.ErrUpgradeRequired
	}
	return nil
}

// TrialEnd - конец триала, начатого в момент now
func TrialEnd(now time.Time) time.Time {
	return now.Add(TrialDuration)
}
