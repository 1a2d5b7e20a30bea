package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"dreamweaver_backend/internal/entitlement"
	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/internal/oracle"
	"dreamweaver_backend/internal/repositories"
	"dreamweaver_backend/pkg/apperrors"
)

const (
	// MinReportDreams - минимум проанализированных снов в окне отчета
	MinReportDreams = 3
	// MinTrendDreams - тренды строятся, только если проанализированных снов больше
	MinTrendDreams = 2
	// TopThemes - сколько тем уходит в модель для трендов
	TopThemes = 10
	// reportEmotionThreshold - эмоции ниже порога не попадают в отчет
	reportEmotionThreshold = 0.2
)

const reportPersona = "You are an expert psychological analyst specializing in dream patterns. " +
	"The user has provided their dream analyses from a specific period. " +
	"Synthesize this data into a cohesive report, written in markdown format. " +
	"Identify the most prominent recurring themes and emotions. " +
	"Note any shifts or progressions you see over this period. " +
	"Conclude with a gentle, insightful summary of what their subconscious may be focusing on. " +
	"Do not give medical advice. " +
	"The tone should be reflective, empowering, and use headings and lists to be easily readable."

const trendsPersona = "Analyze this anonymized global dream data (simulated from a user's history). " +
	"Identify the top 3 most significant trends. " +
	"For each trend, write a short, engaging summary suitable for a public feed. " +
	"Format the output in markdown with headings for each trend."

// InsightModels - модели для отчетов, трендов и поиска по сообществу
type InsightModels struct {
	Report    string
	Trends    string
	Community string
}

type InsightService interface {
	GenerateReport(ctx context.Context, userID string, period models.ReportPeriod) (*models.InsightReport, error)
	// GlobalTrends не возвращает ошибку модели: сбой логируется, отчет пустой
	GlobalTrends(ctx context.Context, userID string) (*models.GlobalTrends, error)
	CommunityInsights(ctx context.Context, query string, lat, lng float64) (*models.CommunityInsight, error)
}

type InsightServiceImpl struct {
	userRepo  repositories.UserRepository
	dreamRepo repositories.DreamRepository
	client    oracle.Client
	models    InsightModels
	now       func() time.Time
}

func NewInsightService(
	userRepo repositories.UserRepository,
	dreamRepo repositories.DreamRepository,
	client oracle.Client,
	m InsightModels,
	now func() time.Time,
) InsightService {
	if now == nil {
		now = time.Now
	}
	return &InsightServiceImpl{
		userRepo:  userRepo,
		dreamRepo: dreamRepo,
		client:    client,
		models:    m,
		now:       now,
	}
}

func analyzed(dreams []models.Dream) []models.Dream {
	out := make([]models.Dream, 0, len(dreams))
	for _, d := range dreams {
		if d.Analysis != nil {
			out = append(out, d)
		}
	}
	return out
}

// FilterPeriod оставляет сны не старше окна (в днях, включительно). PeriodAll не фильтрует.
func FilterPeriod(dreams []models.Dream, period models.ReportPeriod, now time.Time) []models.Dream {
	days, windowed := period.Days()
	if !windowed {
		return dreams
	}

	limit := time.Duration(days) * 24 * time.Hour
	out := make([]models.Dream, 0, len(dreams))
	for _, d := range dreams {
		created, ok := d.CreatedAt()
		if !ok {
			continue
		}
		if now.Sub(created) <= limit {
			out = append(out, d)
		}
	}
	return out
}

// ReportContent - данные снов для отчета, разделенные "---"
func ReportContent(dreams []models.Dream) string {
	entries := make([]string, 0, len(dreams))
	for _, d := range dreams {
		date, _, _ := strings.Cut(d.Timestamp, ",")
		mood := string(d.Mood)
		if mood == "" {
			mood = "Not recorded"
		}

		var summary, themes, emotions string
		if d.Analysis != nil {
			summary = d.Analysis.Summary
			themes = strings.Join(d.Analysis.Themes, ", ")
			names := make([]string, 0, len(models.Emotions))
			for _, e := range d.Analysis.Emotions.Above(reportEmotionThreshold) {
				names = append(names, string(e))
			}
			emotions = strings.Join(names, ", ")
		}
		if emotions == "" {
			emotions = "N/A"
		}

		entries = append(entries, fmt.Sprintf("Date: %s\nMood: %s\nSummary: %s\nThemes: %s\nEmotions: %s",
			date, mood, summary, themes, emotions))
	}
	return "Based on the following dream data, generate a psychological insight report for me:\n\n" +
		strings.Join(entries, "\n---\n")
}

func (s *InsightServiceImpl) GenerateReport(ctx context.Context, userID string, period models.ReportPeriod) (*models.InsightReport, error) {
	if !period.Valid() {
		return nil, apperrors.ValidationError(map[string]string{"period": "Must be one of: 7, 30, all"})
	}

	user, err := loadUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := entitlement.AllowReportPeriod(user, period, now); err != nil {
		return nil, err
	}

	dreams, err := s.dreamRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	selected := FilterPeriod(analyzed(dreams), period, now)
	if len(selected) < MinReportDreams {
		return nil, apperrors.ErrNotEnoughDreams(len(selected))
	}

	resp, err := s.client.GenerateText(ctx, &oracle.TextRequest{
		Operation:         "report",
		Model:             s.models.Report,
		SystemInstruction: reportPersona,
		Contents:          oracle.UserText(ReportContent(selected)),
	})
	if err != nil {
		logger.CtxWithError(ctx, "Insight report failed", err, "period", string(period))
		return nil, apperrors.ErrReportFailed(err)
	}

	return &models.InsightReport{
		Period:     period,
		DreamCount: len(selected),
		Report:     resp.Text,
	}, nil
}

// CountThemes - частоты тем по убыванию, при равенстве по имени; не больше limit
func CountThemes(dreams []models.Dream, limit int) []models.ThemeCount {
	counts := make(map[string]int)
	for _, d := range dreams {
		if d.Analysis == nil {
			continue
		}
		for _, theme := range d.Analysis.Themes {
			counts[theme]++
		}
	}

	out := make([]models.ThemeCount, 0, len(counts))
	for theme, n := range counts {
		out = append(out, models.ThemeCount{Theme: theme, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Theme < out[j].Theme
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TrendsContent - "Top Themes: theme (xN), ..."
func TrendsContent(themes []models.ThemeCount) string {
	parts := make([]string, len(themes))
	for i, t := range themes {
		parts[i] = fmt.Sprintf("%s (x%d)", t.Theme, t.Count)
	}
	return "Top Themes: " + strings.Join(parts, ", ")
}

func (s *InsightServiceImpl) GlobalTrends(ctx context.Context, userID string) (*models.GlobalTrends, error) {
	dreams, err := s.dreamRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	result := &models.GlobalTrends{Themes: []models.ThemeCount{}}
	if len(analyzed(dreams)) <= MinTrendDreams {
		return result, nil
	}

	result.Themes = CountThemes(dreams, TopThemes)
	resp, err := s.client.GenerateText(ctx, &oracle.TextRequest{
		Operation:         "trends",
		Model:             s.models.Trends,
		SystemInstruction: trendsPersona,
		Contents:          oracle.UserText(TrendsContent(result.Themes)),
	})
	if err != nil {
		logger.CtxWarn(ctx, "Global trends unavailable", "error", apperrors.ErrTrendsFailed(err).Error())
		return result, nil
	}

	result.Report = resp.Text
	return result, nil
}

// CommunityPrompt - вопрос пользователя с координатами для поиска
func CommunityPrompt(query string, lat, lng float64) string {
	return fmt.Sprintf("As an AI expert on dream patterns, answer the user's question about what people are dreaming about in specific locations. "+
		"Use the available tools to provide geographically relevant and interesting insights. "+
		"The user is located near latitude %.4f, longitude %.4f. Query: \"%s\"", lat, lng, query)
}

func (s *InsightServiceImpl) CommunityInsights(ctx context.Context, query string, lat, lng float64) (*models.CommunityInsight, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.ValidationError(map[string]string{"query": "Must not be blank"})
	}

	resp, err := s.client.GenerateText(ctx, &oracle.TextRequest{
		Operation: "community",
		Model:     s.models.Community,
		Contents:  oracle.UserText(CommunityPrompt(query, lat, lng)),
		WebSearch: true,
	})
	if err != nil {
		logger.CtxWithError(ctx, "Community insights failed", err)
		return nil, apperrors.ErrInsightsQueryFailed(err)
	}

	sources := make([]models.GroundingSource, 0, len(resp.Sources))
	for _, src := range resp.Sources {
		sources = append(sources, models.GroundingSource{URI: src.URI, Title: src.Title})
	}
	return &models.CommunityInsight{Text: resp.Text, Sources: sources}, nil
}
