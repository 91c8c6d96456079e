package services

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/studybuddy/internal/coercer"
	"github.com/yoockh/studybuddy/internal/models"
	"github.com/yoockh/studybuddy/internal/observability"
	"github.com/yoockh/studybuddy/internal/utils"
)

func newChat(t *testing.T, f *storeFixture) (ChatService, *observability.Metrics) {
	t.Helper()
	m := observability.NewMetrics("test", prometheus.NewRegistry())
	svc := NewChatService(NewContextAssembler(f.store), f.gw, coercer.Default(), f.store, f.log, m)
	return svc, m
}

func TestProcessTurnStructuredAnswer(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t, nil)
	f.gw.reply = "Sure! {\"answer\":\"A BST is...\",\"key_points\":[\"ordered\",\"O(log n) average\"],\"follow_up_questions\":[\"What about AVL trees?\"],\"references\":[]}"
	svc, m := newChat(t, f)

	got, err := svc.ProcessTurn(ctx, "user_1", nil, "What is a binary search tree?", 12)
	require.NoError(t, err)

	assert.Equal(t, "A BST is...", got.Answer)
	assert.Equal(t, []string{"ordered", "O(log n) average"}, got.KeyPoints)
	assert.Equal(t, []string{"What about AVL trees?"}, got.FollowUpQuestions)
	assert.Equal(t, []string{}, got.References)

	turns, err := f.store.Read(ctx, "user_1", 12)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, "What is a binary search tree?", turns[0].Content)
	assert.Equal(t, models.RoleAssistant, turns[1].Role)
	assert.Equal(t, "A BST is...", turns[1].Content)

	require.Len(t, f.gw.prompts, 1)
	assert.Contains(t, f.gw.prompts[0], "Chat history:\n\n\nStudent question:\nWhat is a binary search tree?")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Coercions.WithLabelValues("strict")))
}

func TestProcessTurnPlainProseFallsBack(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t, nil)
	f.gw.reply = "I think the answer is 42."
	svc, m := newChat(t, f)

	got, err := svc.ProcessTurn(ctx, "user_1", nil, "What is six times seven?", 12)
	require.NoError(t, err)
	assert.Equal(t, models.FallbackAnswer("I think the answer is 42."), got)

	turns, err := f.store.Read(ctx, "user_1", 12)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "I think the answer is 42.", turns[1].Content)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Coercions.WithLabelValues("fallback")))
}

func TestProcessTurnGatewayErrorPersistsNothing(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t, nil)
	f.gw.err = utils.E(utils.CodeGateway, "Gateway.Complete", "model call failed", errBoom)
	svc, m := newChat(t, f)

	_, err := svc.ProcessTurn(ctx, "user_1", nil, "anything", 12)
	require.Error(t, err)
	assert.Equal(t, utils.CodeGateway, utils.CodeOf(err))

	turns, err := f.store.Read(ctx, "user_1", 12)
	require.NoError(t, err)
	assert.Empty(t, turns)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("gateway_error")))
}

func TestProcessTurnUsesMemoryWindow(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t, nil)
	appendN(t, f, "user_1", 6)
	f.gw.reply = `{"answer":"ok"}`
	svc, _ := newChat(t, f)

	_, err := svc.ProcessTurn(ctx, "user_1", nil, "next", 4)
	require.NoError(t, err)

	p := f.gw.prompts[0]
	assert.NotContains(t, p, "msg b")
	assert.Contains(t, p, "Student: msg c\nAssistant: msg d\nStudent: msg e\nAssistant: msg f")
}

func TestProcessTurnKeepsSessionID(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t, nil)
	f.gw.reply = `{"answer":"ok"}`
	svc, _ := newChat(t, f)

	sid := "sess-1"
	_, err := svc.ProcessTurn(ctx, "user_1", &sid, "q", 12)
	require.NoError(t, err)

	turns, err := f.store.Read(ctx, "user_1", 2)
	require.NoError(t, err)
	for _, turn := range turns {
		require.NotNil(t, turn.SessionID)
		assert.Equal(t, sid, *turn.SessionID)
	}
}

func TestProcessTurnRejectsEmptyQuestion(t *testing.T) {
	f := newStoreFixture(t, nil)
	svc, _ := newChat(t, f)

	_, err := svc.ProcessTurn(context.Background(), "user_1", nil, "   ", 12)
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err))
	assert.Empty(t, f.gw.prompts)
}

func TestHistoryReturnsTrailingMemoryK(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t, nil)
	appendN(t, f, "user_1", 9)
	svc, _ := newChat(t, f)

	got, err := svc.History(ctx, "user_1", 4)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "msg f", got[0].Content)
	assert.True(t, strings.HasSuffix(got[3].Content, "i"))
}
