package validator

import (
	"log"
	"strings"

	"dreamweaver_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// AspectRatios - пропорции, которые поддерживает генерация изображений
var AspectRatios = []string{"1:1", "16:9", "9:16", "4:3", "3:4"}

// IsAspectRatio - входит ли значение в AspectRatios
func IsAspectRatio(value string) bool {
	for _, r := range AspectRatios {
		if r == value {
			return true
		}
	}
	return false
}

// registerCustomRules регистрирует все кастомные функции валидации в
// переданном экземпляре валидатора.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// Ошибка времени запуска, дальше работать нельзя
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	// 'notblank': строка не пустая после trim
	mustRegister("notblank", validateNotBlank)

	// 'dream-mood': Happy, Calm, Sad, Fearful или пусто
	mustRegister("dream-mood", validateDreamMood)

	// 'aspect-ratio': одна из AspectRatios
	mustRegister("aspect-ratio", validateAspectRatio)

	// 'report-period': 7, 30 или all
	mustRegister("report-period", validateReportPeriod)
}

// --- Функции валидации ---

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateDreamMood(fl validator.FieldLevel) bool {
	return models.DreamMood(fl.Field().String()).Valid()
}

func validateAspectRatio(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // 'required' обрабатывает пустые
	}
	return IsAspectRatio(value)
}

func validateReportPeriod(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.ReportPeriod(value).Valid()
}
