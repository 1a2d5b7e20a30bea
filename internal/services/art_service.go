package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"dreamweaver_backend/internal/imageprocessor"
	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/internal/oracle"
	"dreamweaver_backend/internal/repositories"
	"dreamweaver_backend/internal/storage"
	"dreamweaver_backend/internal/validator"
	"dreamweaver_backend/pkg/apperrors"

	"github.com/google/uuid"
)

// ArtService рисует иллюстрацию к проанализированному сну
type ArtService interface {
	GenerateArt(ctx context.Context, userID, dreamID, aspectRatio string) (*models.DreamArt, error)
}

type ArtServiceImpl struct {
	dreamRepo  repositories.DreamRepository
	client     oracle.Client
	model      string
	storage    storage.Storage
	processor  *imageprocessor.Processor
	thumbWidth int
}

func NewArtService(
	dreamRepo repositories.DreamRepository,
	client oracle.Client,
	model string,
	store storage.Storage,
	processor *imageprocessor.Processor,
	thumbWidth int,
) ArtService {
	return &ArtServiceImpl{
		dreamRepo:  dreamRepo,
		client:     client,
		model:      model,
		storage:    store,
		processor:  processor,
		thumbWidth: thumbWidth,
	}
}

var emotionTones = map[models.Emotion]string{
	models.EmotionJoy:      "vibrant, uplifting, with warm and bright glowing colors",
	models.EmotionFear:     "dark, mysterious, using cool and unsettling tones like deep blues and purples",
	models.EmotionSadness:  "somber, melancholic, with muted blue and gray colors",
	models.EmotionAnger:    "chaotic, intense, with sharp, jagged lines and deep red hues",
	models.EmotionSurprise: "dynamic, high-contrast, with bright, unexpected flashes of color",
	models.EmotionAnxiety:  "tense, distorted, with swirling, uneasy patterns",
}

const defaultTone = "balanced and calm"

// BuildArtPrompt - промпт изображения: тема сна и настроение доминирующей эмоции
func BuildArtPrompt(a *models.DreamAnalysis) string {
	emotion := "neutral"
	tone := defaultTone
	if dominant, ok := a.Emotions.Dominant(); ok {
		emotion = string(dominant)
		if t, ok := emotionTones[dominant]; ok {
			tone = t
		}
	}

	return fmt.Sprintf(
		"A digital art piece capturing a dream. The dream's main subject is: \"%s\". "+
			"Key themes to visualize are: %s. "+
			"The emotional atmosphere is %s, so the art should have a %s mood. "+
			"The style is simple, elegant neon line art on a dark, deep space background. "+
			"The lines should be glowing and ethereal. Minimalist, but evocative.",
		a.Summary, strings.Join(a.Themes, ", "), emotion, tone,
	)
}

func (s *ArtServiceImpl) GenerateArt(ctx context.Context, userID, dreamID, aspectRatio string) (*models.DreamArt, error) {
	if !validator.IsAspectRatio(aspectRatio) {
		return nil, apperrors.ErrInvalidAspectRatio
	}

	dream, err := getDream(ctx, s.dreamRepo, userID, dreamID)
	if err != nil {
		return nil, err
	}
	if dream.Analysis == nil {
		return nil, apperrors.NewBadRequestError("This dream has not been analyzed yet.")
	}

	prompt := BuildArtPrompt(dream.Analysis)
	image, err := s.client.GenerateImage(ctx, &oracle.ImageRequest{
		Operation:   "art",
		Model:       s.model,
		Prompt:      prompt,
		AspectRatio: aspectRatio,
	})
	if err != nil {
		logger.CtxWithError(ctx, "Art generation failed", err, "dream_id", dreamID)
		return nil, apperrors.ErrArtGenerationFailed(err)
	}

	art, err := s.store(ctx, image)
	if err != nil {
		logger.CtxWithError(ctx, "Failed to store generated art", err, "dream_id", dreamID)
		return nil, apperrors.ErrArtGenerationFailed(err)
	}
	art.DreamID = dreamID
	art.AspectRatio = aspectRatio
	art.Prompt = prompt

	if _, err := s.dreamRepo.SetArt(ctx, userID, dreamID, art.URL, art.ThumbnailURL); err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Dream art generated", "dream_id", dreamID, "aspect_ratio", aspectRatio, "bytes", len(image))
	return art, nil
}

// store сохраняет оригинал и превью; при сбое превью оригинал удаляется
func (s *ArtServiceImpl) store(ctx context.Context, image []byte) (*models.DreamArt, error) {
	thumb, err := s.processor.Thumbnail(image, s.thumbWidth)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	originalPath := fmt.Sprintf("art/%s.jpg", id)
	thumbPath := fmt.Sprintf("art/%s_thumb.jpg", id)

	if err := s.storage.Save(ctx, originalPath, bytes.NewReader(image), "image/jpeg"); err != nil {
		return nil, err
	}
	if err := s.storage.Save(ctx, thumbPath, bytes.NewReader(thumb), "image/jpeg"); err != nil {
		if delErr := s.storage.Delete(ctx, originalPath); delErr != nil {
			logger.CtxWithError(ctx, "Failed to clean up original art", delErr, "path", originalPath)
		}
		return nil, err
	}

	url, err := s.storage.GetURL(ctx, originalPath)
	if err != nil {
		return nil, err
	}
	thumbURL, err := s.storage.GetURL(ctx, thumbPath)
	if err != nil {
		return nil, err
	}
	return &models.DreamArt{URL: url, ThumbnailURL: thumbURL}, nil
}
