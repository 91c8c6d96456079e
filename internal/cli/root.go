// Package cli implements the studycli terminal front end.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yoockh/studybuddy/internal/models"
	"github.com/yoockh/studybuddy/internal/services"
)

// ErrReported marks a failure whose notice is already on stderr.
var ErrReported = errors.New("already reported")

type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() []error { return []error{e.err, ErrReported} }

// reported writes the failure notice and wraps err so Run stays quiet.
func reported(w io.Writer, err error) error {
	fmt.Fprintln(w, models.FailureNotice)
	return reportedError{err: err}
}

// Backend is what the commands need from the service graph.
type Backend struct {
	Chat  services.ChatService
	Store services.MessageStore
	Close func() error
}

// Opener builds a Backend for one command invocation.
type Opener func(ctx context.Context) (*Backend, error)

type options struct {
	userID  string
	memoryK int
	format  string
}

func NewRootCmd(open Opener) *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:           "studycli",
		Short:         "Study assistant in the terminal",
		Long:          "Ask study questions, browse the conversation and export or clear it. History is shared with the HTTP server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if o.userID == "" {
				return fmt.Errorf("--user is required")
			}
			if !models.ValidMemoryK(o.memoryK) {
				return fmt.Errorf("--memory-k must be between %d and %d", models.MemoryKMin, models.MemoryKMax)
			}
			if o.format != "json" && o.format != "text" {
				return fmt.Errorf("--format must be json or text")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&o.userID, "user", "u", "", "Conversation owner, e.g. user_1a2b3c4d")
	root.PersistentFlags().IntVarP(&o.memoryK, "memory-k", "k", models.MemoryKDefault, "Turns of history to use and show")
	root.PersistentFlags().StringVarP(&o.format, "format", "f", "text", "Output format: json or text")

	root.AddCommand(
		newAskCmd(open, o),
		newChatCmd(open, o),
		newHistoryCmd(open, o),
		newExportCmd(open, o),
		newClearCmd(open, o),
	)
	return root
}

// Run executes the command line and returns the process exit code.
func Run(ctx context.Context, open Opener, args []string, in io.Reader, out, errOut io.Writer) int {
	cmd := NewRootCmd(open)
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrReported) {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
		return 1
	}
	return 0
}

func withBackend(cmd *cobra.Command, open Opener, fn func(b *Backend) error) error {
	b, err := open(cmd.Context())
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	if b.Close != nil {
		defer b.Close()
	}
	return fn(b)
}

func writeAnswer(w io.Writer, format string, a models.StudyAnswer) error {
	if format == "json" {
		return writeJSON(w, a)
	}

	fmt.Fprintln(w, a.Answer)
	section(w, "Key points", a.KeyPoints)
	section(w, "Follow-up questions", a.FollowUpQuestions)
	section(w, "References", a.References)
	return nil
}

func section(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
}

func writeTurns(w io.Writer, format string, turns []models.Turn) error {
	if format == "json" {
		return writeJSON(w, turns)
	}
	if len(turns) == 0 {
		fmt.Fprintln(w, "(no history)")
		return nil
	}
	out := services.RenderTurns(turns)
	fmt.Fprintln(w, strings.TrimRight(out, "\n"))
	return nil
}
