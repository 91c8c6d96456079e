package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/studybuddy/internal/models"
	"github.com/yoockh/studybuddy/internal/repositories/jsonl"
)

type fakeGateway struct {
	reply    string
	err      error
	embedErr error
	prompts  []string
}

func (g *fakeGateway) Complete(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

func (g *fakeGateway) Embed(_ context.Context, text string) ([]float32, error) {
	if g.embedErr != nil {
		return nil, g.embedErr
	}
	return []float32{float32(len(text)), 1}, nil
}

type fakeIndexRepo struct {
	mu      sync.Mutex
	entries map[string]*models.IndexEntry
	upserts []string
	err     error
}

func newFakeIndexRepo() *fakeIndexRepo {
	return &fakeIndexRepo{entries: map[string]*models.IndexEntry{}}
}

func (r *fakeIndexRepo) Upsert(_ context.Context, e *models.IndexEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.upserts = append(r.upserts, e.ID)
	if _, ok := r.entries[e.ID]; !ok {
		r.entries[e.ID] = e
	}
	return nil
}

type fakeQueue struct {
	turns []models.Turn
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, t models.Turn) error {
	if q.err != nil {
		return q.err
	}
	q.turns = append(q.turns, t)
	return nil
}

type fakeUploader struct {
	objects map[string][]byte
	err     error
}

func (u *fakeUploader) Upload(_ context.Context, name, _ string, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[name] = b
	return "gs://bucket/" + name, nil
}

var errBoom = errors.New("boom")

type storeFixture struct {
	store   MessageStore
	convos  jsonl.ConversationRepo
	index   *fakeIndexRepo
	gw      *fakeGateway
	hook    *test.Hook
	log     *logrus.Logger
	dir     string
	advance func(d time.Duration)
}

func newStoreFixture(t *testing.T, mutate func(o *MessageStoreOptions)) *storeFixture {
	t.Helper()

	dir := t.TempDir()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	convos, err := jsonl.NewConversationRepo(dir+"/conversations", log)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	gw := &fakeGateway{}
	idx := newFakeIndexRepo()

	o := MessageStoreOptions{
		Conversations: convos,
		Indexer:       NewIndexer(gw, idx),
		ExportDir:     dir + "/samples",
		Logger:        log,
		Now:           func() time.Time { return now },
	}
	if mutate != nil {
		mutate(&o)
	}

	return &storeFixture{
		store:   NewMessageStore(o),
		convos:  convos,
		index:   idx,
		gw:      gw,
		hook:    hook,
		log:     log,
		dir:     dir,
		advance: func(d time.Duration) { now = now.Add(d) },
	}
}
