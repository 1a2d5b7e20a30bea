package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"dreamweaver_backend/internal/conversation"
	"dreamweaver_backend/internal/entitlement"
	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/internal/oracle"
	"dreamweaver_backend/internal/oracle/oracletest"
	"dreamweaver_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJournal(env *testEnv, analyzer *fakeAnalyzer, client oracle.Client) JournalService {
	return NewJournalService(env.userRepo, env.dreamRepo, analyzer, conversation.NewOrchestrator(client, "chat-model"), env.clock.Now)
}

func TestSubmitDream_QuotaForFreeUsers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.signUp(t, "a@b.com")
	analyzer := &fakeAnalyzer{}
	journal := newJournal(env, analyzer, oracletest.ReplyText("hi"))

	// Сон прошлого месяца в квоту не входит
	env.addDream(t, id, env.clock.Now().AddDate(0, -1, 0), sampleAnalysis())
	for i := 4; i > 0; i-- {
		env.addDream(t, id, env.clock.Now().Add(-time.Duration(i)*time.Hour), sampleAnalysis())
	}

	// 4 сна в этом месяце - пятый еще можно
	dream, err := journal.SubmitDream(ctx, id, "I was flying", models.MoodHappy, models.AnalysisOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.MoodHappy, dream.Mood)
	assert.Equal(t, 1, analyzer.calls)

	// 5 снов - лимит
	_, err = journal.SubmitDream(ctx, id, "Again", "", models.AnalysisOptions{})
	assert.ErrorIs(t, err, apperrors.ErrQuotaExceeded)
	assert.Equal(t, 1, analyzer.calls)

	// Триал снимает лимит
	_, err = env.auth.StartFreeTrial(ctx, id)
	require.NoError(t, err)
	_, err = journal.SubmitDream(ctx, id, "Again", "", models.AnalysisOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, analyzer.calls)
}

func TestSubmitDream_ConcurrentSubmissionsShareLastSlot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.signUp(t, "a@b.com")
	for i := 4; i > 0; i-- {
		env.addDream(t, id, env.clock.Now().Add(-time.Duration(i)*time.Hour), sampleAnalysis())
	}

	analyzer := &fakeAnalyzer{entered: make(chan struct{}, 2), gate: make(chan struct{})}
	journal := newJournal(env, analyzer, oracletest.ReplyText("hi"))

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := journal.SubmitDream(ctx, id, "A shared dream", "", models.AnalysisOptions{})
			errs <- err
		}()
	}

	// Оба запроса прошли первую проверку квоты и ждут анализа
	<-analyzer.entered
	<-analyzer.entered
	close(analyzer.gate)

	var saved, rejected int
	for i := 0; i < 2; i++ {
		if err := <-errs; err == nil {
			saved++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrQuotaExceeded)
			rejected++
		}
	}
	assert.Equal(t, 1, saved)
	assert.Equal(t, 1, rejected)

	dreams, err := env.dreamRepo.ListForUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entitlement.MonthlyFreeLimit, entitlement.DreamsThisMonth(dreams, env.clock.Now()))
}

func TestSubmitDream_ExtendedOptionsRequirePro(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.signUp(t, "a@b.com")
	analyzer := &fakeAnalyzer{}
	journal := newJournal(env, analyzer, oracletest.ReplyText("hi"))

	opts := models.AnalysisOptions{Archetypes: true}
	_, err := journal.SubmitDream(ctx, id, "A dream", "", opts)
	assert.ErrorIs(t, err, apperrors.ErrUpgradeRequired)
	assert.Zero(t, analyzer.calls)

	env.setPlan(t, id, models.PlanPro)
	_, err = journal.SubmitDream(ctx, id, "A dream", "", opts)
	require.NoError(t, err)
	assert.Equal(t, opts, analyzer.opts)
}

func TestSubmitDream_PassesPriorDreamsNewestFirst(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.signUp(t, "a@b.com")
	analyzer := &fakeAnalyzer{}
	journal := newJournal(env, analyzer, oracletest.ReplyText("hi"))

	older := env.addDream(t, id, env.clock.Now().Add(-2*time.Hour), sampleAnalysis("old"))
	newer := env.addDream(t, id, env.clock.Now().Add(-time.Hour), sampleAnalysis("new"))

	created, err := journal.SubmitDream(ctx, id, "  third  ", "", models.AnalysisOptions{})
	require.NoError(t, err)
	assert.Equal(t, "third", created.Text)

	require.Len(t, analyzer.prior, 2)
	assert.Equal(t, newer.ID, analyzer.prior[0].ID)
	assert.Equal(t, older.ID, analyzer.prior[1].ID)

	dreams, err := journal.ListDreams(ctx, id)
	require.NoError(t, err)
	require.Len(t, dreams, 3)
	assert.Equal(t, created.ID, dreams[0].ID)
}

func TestSubmitDream_AnalysisFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.signUp(t, "a@b.com")
	analyzer := &fakeAnalyzer{err: apperrors.ErrAnalysisFailed(errors.New("boom"))}
	journal := newJournal(env, analyzer, oracletest.ReplyText("hi"))

	_, err := journal.SubmitDream(ctx, id, "A dream", "", models.AnalysisOptions{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAnalysisFailed))

	dreams, err := journal.ListDreams(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, dreams)
}

func TestSubmitDream_Validation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.signUp(t, "a@b.com")
	journal := newJournal(env, &fakeAnalyzer{}, oracletest.ReplyText("hi"))

	_, err := journal.SubmitDream(ctx, id, "   ", "", models.AnalysisOptions{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = journal.SubmitDream(ctx, id, "text", "Angry", models.AnalysisOptions{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = journal.SubmitDream(ctx, "ghost@b.com", "text", "", models.AnalysisOptions{})
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestSendChatMessage_UserMessageThenReply(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.signUp(t, "a@b.com")
	client := oracletest.ReplyText("It may mean freedom.")
	journal := newJournal(env, &fakeAnalyzer{}, client)
	dream := env.addDream(t, id, env.clock.Now(), sampleAnalysis())

	updated, reply, err := journal.SendChatMessage(ctx, id, dream.ID, "What does flying mean?")
	require.NoError(t, err)
	assert.Equal(t, "It may mean freedom.", reply)
	assert.Equal(t, []models.ChatMessage{
		{Role: models.RoleUser, Content: "What does flying mean?"},
		{Role: models.RoleModel, Content: "It may mean freedom."},
	}, updated.ChatHistory)

	// В модель уходит прошлая история плюс новое сообщение
	req := client.LastText()
	require.Len(t, req.Contents, 1)
	assert.Equal(t, "What does flying mean?", req.Contents[0].Text)

	_, _, err = journal.SendChatMessage(ctx, id, dream.ID, "And the city?")
	require.NoError(t, err)
	req = client.LastText()
	require.Len(t, req.Contents, 3)
	assert.Equal(t, oracle.RoleModel, req.Contents[1].Role)
	assert.Equal(t, "And the city?", req.Contents[2].Text)
}

func TestSendChatMessage_FailureStoresFallback(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.signUp(t, "a@b.com")
	journal := newJournal(env, &fakeAnalyzer{}, oracletest.Failing())
	dream := env.addDream(t, id, env.clock.Now(), sampleAnalysis())

	updated, reply, err := journal.SendChatMessage(ctx, id, dream.ID, "Hello?")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConversationFailed))
	assert.Empty(t, reply)
	require.NotNil(t, updated)
	assert.Equal(t, []models.ChatMessage{
		{Role: models.RoleUser, Content: "Hello?"},
		{Role: models.RoleModel, Content: conversation.FallbackReply},
	}, updated.ChatHistory)

	stored, err := journal.GetDream(ctx, id, dream.ID)
	require.NoError(t, err)
	assert.Len(t, stored.ChatHistory, 2)
}

func TestSendChatMessage_UnknownDream(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.signUp(t, "a@b.com")
	client := oracletest.ReplyText("hi")
	journal := newJournal(env, &fakeAnalyzer{}, client)

	_, _, err := journal.SendChatMessage(ctx, id, "2020-01-01T00:00:00Z", "Hello?")
	assert.ErrorIs(t, err, apperrors.ErrDreamNotFound)
	assert.Zero(t, client.TextCalls())
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.signUp(t, "a@b.com")
	journal := newJournal(env, &fakeAnalyzer{}, oracletest.ReplyText("hi"))
	env.addDream(t, id, env.clock.Now().AddDate(0, -2, 0), nil)
	env.addDream(t, id, env.clock.Now().Add(-time.Hour), nil)

	snap, err := journal.Snapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, snap.User.ID)
	assert.False(t, snap.IsEntitled)
	assert.Len(t, snap.Dreams, 2)
	assert.Equal(t, 1, snap.DreamsThisMonth)
	assert.Equal(t, entitlement.MonthlyFreeLimit, snap.MonthlyLimit)
}
