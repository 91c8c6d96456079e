// Package jsonl stores each user's conversation as one append-only JSON Lines
// file: <dir>/<user_id>.jsonl.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/studybuddy/internal/models"
)

var ErrInvalidUserID = errors.New("invalid user id")

type ConversationRepo interface {
	Append(ctx context.Context, turn models.Turn) error
	// List returns every readable turn in append order; a missing log is empty.
	List(ctx context.Context, userID string) ([]models.Turn, error)
	Delete(ctx context.Context, userID string) error
}

type conversationRepo struct {
	dir string
	log logrus.FieldLogger
}

func NewConversationRepo(dir string, log logrus.FieldLogger) (ConversationRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversations dir: %w", err)
	}
	return &conversationRepo{dir: dir, log: log}, nil
}

func (r *conversationRepo) path(userID string) (string, error) {
	if userID == "" || userID != filepath.Base(userID) || strings.HasPrefix(userID, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidUserID, userID)
	}
	return filepath.Join(r.dir, userID+".jsonl"), nil
}

func (r *conversationRepo) Append(_ context.Context, turn models.Turn) error {
	p, err := r.path(turn.UserID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(turn); err != nil { // Encode appends the newline
		return err
	}

	f, err := os.OpenFile(p, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (r *conversationRepo) List(_ context.Context, userID string) ([]models.Turn, error) {
	p, err := r.path(userID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Turn{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	turns := []models.Turn{}
	rd := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		line, rerr := rd.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			var t models.Turn
			if err := json.Unmarshal(line, &t); err != nil {
				// a torn last line after a crash is the usual cause
				r.log.WithFields(logrus.Fields{
					"user_id": userID,
					"line":    lineNo,
				}).WithError(err).Warn("skipping unreadable conversation line")
			} else {
				turns = append(turns, t)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, rerr
		}
	}
	return turns, nil
}

func (r *conversationRepo) Delete(_ context.Context, userID string) error {
	p, err := r.path(userID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
