// Package analysis собирает запрос на анализ сна и разбирает структурированный ответ.
package analysis

import (
	"context"

	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/internal/oracle"
	"dreamweaver_backend/pkg/apperrors"
)

type Analyzer interface {
	Analyze(ctx context.Context, dreamText string, prior []models.Dream, opts models.AnalysisOptions) (*models.DreamAnalysis, error)
}

type AnalyzerImpl struct {
	client oracle.Client
	model  string
}

func NewAnalyzer(client oracle.Client, model string) Analyzer {
	return &AnalyzerImpl{client: client, model: model}
}

// BuildRequest - запрос к модели без вызова; отдельно для тестов
func BuildRequest(model string, req Request) (*oracle.TextRequest, map[string]bool) {
	schema, requested := BuildSchema(req)

	fields := make(map[string]bool, 3)
	for _, name := range []string{FieldNarrativeStructure, FieldCharacterArchetypes, FieldRecurringSymbols} {
		if schema.HasProperty(name) {
			fields[name] = true
		}
	}

	return &oracle.TextRequest{
		Operation:         "analysis",
		Model:             model,
		SystemInstruction: SystemInstruction(requested),
		Contents:          oracle.UserText(UserContent(req)),
		Schema:            schema,
	}, fields
}

// Analyze возвращает полный анализ или AnalysisFailed; частичных результатов нет
func (a *AnalyzerImpl) Analyze(ctx context.Context, dreamText string, prior []models.Dream, opts models.AnalysisOptions) (*models.DreamAnalysis, error) {
	textReq, requested := BuildRequest(a.model, Request{DreamText: dreamText, Prior: prior, Options: opts})

	resp, err := a.client.GenerateText(ctx, textReq)
	if err != nil {
		logger.CtxWithError(ctx, "Dream analysis call failed", err)
		return nil, apperrors.ErrAnalysisFailed(err)
	}

	result, err := Parse(resp.Text, requested)
	if err != nil {
		logger.CtxWithError(ctx, "Dream analysis response rejected", err)
		return nil, apperrors.ErrAnalysisFailed(err)
	}
	return result, nil
}
