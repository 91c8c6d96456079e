package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/studybuddy/config"
	"github.com/yoockh/studybuddy/internal/models"
)

func localConfig(t *testing.T, embed string) config.Config {
	dir := t.TempDir()
	return config.Config{
		LLMProvider:      "openai",
		OpenAIAPIKey:     "sk-test",
		OpenAIModel:      "gpt-4o-mini",
		Temperature:      0.2,
		EmbedProvider:    embed,
		EmbedModel:       "bge-small",
		TEIURL:           "http://127.0.0.1:1",
		ConversationsDir: filepath.Join(dir, "conversations"),
		ExportDir:        filepath.Join(dir, "samples"),
		IndexDir:         filepath.Join(dir, ".index"),
		DefaultMemoryK:   12,
		EmbedCacheSize:   16,
		MetricsNamespace: "test",
	}
}

func TestBuildLocalStack(t *testing.T) {
	ctx := context.Background()
	log, _ := test.NewNullLogger()

	a, err := Build(ctx, localConfig(t, "tei"), log)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Indexer)
	assert.Nil(t, a.Redis)
	assert.NoError(t, a.StartWorkers(ctx))

	sess, err := a.Sessions.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, sess.MemoryK)

	// the TEI endpoint is unreachable, so the index write fails but the log write stands
	_, err = a.Store.Append(ctx, sess.UserID, models.RoleUser, "hello", &sess.SessionID)
	require.NoError(t, err)
	turns, err := a.Store.Read(ctx, sess.UserID, 12)
	require.NoError(t, err)
	assert.Len(t, turns, 1)

	mfs, err := a.Registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["test_index_write_failures_total"])
}

func TestBuildWithoutEmbeddings(t *testing.T) {
	log, _ := test.NewNullLogger()

	a, err := Build(context.Background(), localConfig(t, "none"), log)
	require.NoError(t, err)
	assert.Nil(t, a.Indexer)
	assert.NoError(t, a.Close())
}
