package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/studybuddy/internal/models"
	"github.com/yoockh/studybuddy/internal/utils"
)

func appendN(t *testing.T, f *storeFixture, user string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		_, err := f.store.Append(context.Background(), user, role, "msg "+string(rune('a'+i)), nil)
		require.NoError(t, err)
		f.advance(time.Second)
	}
}

func TestReadReturnsSuffixOfLengthMinKLen(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t, nil)
	appendN(t, f, "user_1", 7)

	for k := 0; k <= 9; k++ {
		short, err := f.store.Read(ctx, "user_1", k)
		require.NoError(t, err)
		long, err := f.store.Read(ctx, "user_1", k+1)
		require.NoError(t, err)

		assert.Len(t, short, min(k, 7), "k=%d", k)
		assert.Equal(t, long[len(long)-len(short):], short, "k=%d", k)
	}
}

func TestReadNonPositiveAndMissing(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t, nil)

	got, err := f.store.Read(ctx, "nobody", 12)
	require.NoError(t, err)
	assert.Empty(t, got)

	appendN(t, f, "user_1", 2)
	got, err = f.store.Read(ctx, "user_1", -3)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAppendWritesIndexEntryWithStableID(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t, nil)

	a, err := f.store.Append(ctx, "user_1", models.RoleUser, "same", nil)
	require.NoError(t, err)
	b, err := f.store.Append(ctx, "user_1", models.RoleUser, "same", nil)
	require.NoError(t, err)

	require.Equal(t, a.Timestamp, b.Timestamp)
	assert.Equal(t, models.IndexIDForTurn(a), models.IndexIDForTurn(b))
	assert.Len(t, f.index.upserts, 2)
	assert.Len(t, f.index.entries, 1)

	e := f.index.entries[models.IndexIDForTurn(a)]
	assert.Equal(t, models.IndexCollection, e.Collection)
	assert.Equal(t, "same", e.Content)

	var meta models.IndexMetadata
	require.NoError(t, json.Unmarshal(e.Metadata, &meta))
	assert.Equal(t, "user_1", meta.UserID)
	assert.Equal(t, models.RoleUser, meta.Role)
	assert.Nil(t, meta.SessionID)
}

func TestAppendTimestampsNeverGoBackwards(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t, nil)

	first, err := f.store.Append(ctx, "user_1", models.RoleUser, "q", nil)
	require.NoError(t, err)
	f.advance(-time.Hour)
	second, err := f.store.Append(ctx, "user_1", models.RoleAssistant, "a", nil)
	require.NoError(t, err)

	assert.Equal(t, first.Timestamp, second.Timestamp)
}

func TestAppendSurvivesIndexFailure(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t, nil)
	f.index.err = errBoom

	_, err := f.store.Append(ctx, "user_1", models.RoleUser, "hello", nil)
	require.NoError(t, err)

	turns, err := f.store.Read(ctx, "user_1", 10)
	require.NoError(t, err)
	assert.Len(t, turns, 1)

	last := f.hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.WarnLevel, last.Level)
	assert.Equal(t, "log succeeded, index entry missing", last.Message)
	assert.Equal(t, "upsert", last.Data["stage"])
}

func TestAppendQueuesFailedIndexWrites(t *testing.T) {
	ctx := context.Background()
	q := &fakeQueue{}
	f := newStoreFixture(t, func(o *MessageStoreOptions) { o.Queue = q })
	f.gw.embedErr = errBoom

	turn, err := f.store.Append(ctx, "user_1", models.RoleUser, "hello", nil)
	require.NoError(t, err)

	require.Len(t, q.turns, 1)
	assert.Equal(t, turn, q.turns[0])
	assert.Equal(t, "embed", f.hook.LastEntry().Data["stage"])
}

func TestAppendRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t, nil)

	_, err := f.store.Append(ctx, "", models.RoleUser, "x", nil)
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err))

	_, err = f.store.Append(ctx, "user_1", models.Role("system"), "x", nil)
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err))

	_, err = f.store.Append(ctx, "../etc", models.RoleUser, "x", nil)
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err))
}

func TestClearThenReadIsEmpty(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t, nil)
	appendN(t, f, "user_1", 4)

	require.NoError(t, f.store.Clear(ctx, "user_1"))
	for _, k := range []int{1, 4, 50} {
		got, err := f.store.Read(ctx, "user_1", k)
		require.NoError(t, err)
		assert.Empty(t, got)
	}

	// clearing twice is fine
	require.NoError(t, f.store.Clear(ctx, "user_1"))
	// index is left alone
	assert.Len(t, f.index.entries, 4)
}

func TestExportWritesFullHistoryInOrder(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t, nil)
	appendN(t, f, "user_1", 5)

	res, err := f.store.Export(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, 5, res.Turns)
	assert.Empty(t, res.RemoteURI)
	assert.Equal(t, filepath.Join(f.dir, "samples", "user_1_20260301T093005Z.json"), res.Path)

	b, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n  {\n    \"user_id\"")

	var turns []models.Turn
	require.NoError(t, json.Unmarshal(b, &turns))
	require.Len(t, turns, 5)
	for i, turn := range turns {
		assert.Equal(t, "msg "+string(rune('a'+i)), turn.Content)
	}
}

func TestExportEmptyHistory(t *testing.T) {
	f := newStoreFixture(t, nil)

	res, err := f.store.Export(context.Background(), "user_new")
	require.NoError(t, err)

	b, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(b))
}

func TestExportUploadsWhenConfigured(t *testing.T) {
	ctx := context.Background()
	up := &fakeUploader{}
	f := newStoreFixture(t, func(o *MessageStoreOptions) { o.Uploader = up })
	appendN(t, f, "user_1", 2)

	res, err := f.store.Export(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "gs://bucket/exports/"+filepath.Base(res.Path), res.RemoteURI)

	local, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, local, up.objects["exports/"+filepath.Base(res.Path)])
}

func TestExportUploadFailureKeepsLocalFile(t *testing.T) {
	f := newStoreFixture(t, func(o *MessageStoreOptions) { o.Uploader = &fakeUploader{err: errBoom} })

	res, err := f.store.Export(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Empty(t, res.RemoteURI)
	assert.FileExists(t, res.Path)
}

func TestRenderTurns(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t, nil)

	out, err := NewContextAssembler(f.store).Render(ctx, "user_1", 12)
	require.NoError(t, err)
	assert.Equal(t, "", out)

	_, err = f.store.Append(ctx, "user_1", models.RoleUser, "What is a heap?", nil)
	require.NoError(t, err)
	_, err = f.store.Append(ctx, "user_1", models.RoleAssistant, "A tree with an ordering.", nil)
	require.NoError(t, err)
	_, err = f.store.Append(ctx, "user_1", models.RoleUser, "Min or max?", nil)
	require.NoError(t, err)

	out, err = NewContextAssembler(f.store).Render(ctx, "user_1", 2)
	require.NoError(t, err)
	assert.Equal(t, "Assistant: A tree with an ordering.\nStudent: Min or max?", out)
}
