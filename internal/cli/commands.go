package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yoockh/studybuddy/internal/models"
)

func newAskCmd(open Opener, o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			return withBackend(cmd, open, func(b *Backend) error {
				answer, err := b.Chat.ProcessTurn(cmd.Context(), o.userID, nil, question, o.memoryK)
				if err != nil {
					return reported(cmd.ErrOrStderr(), err)
				}
				return writeAnswer(cmd.OutOrStdout(), o.format, answer)
			})
		},
	}
}

// newChatCmd reads one question per line until EOF or "/quit".
func newChatCmd(open Opener, o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive session, one question per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(b *Backend) error {
				out := cmd.OutOrStdout()
				sc := bufio.NewScanner(cmd.InOrStdin())
				for {
					fmt.Fprint(out, "> ")
					if !sc.Scan() {
						fmt.Fprintln(out)
						return sc.Err()
					}
					line := strings.TrimSpace(sc.Text())
					switch line {
					case "":
						continue
					case "/quit", "/exit":
						return nil
					case "/history":
						turns, err := b.Chat.History(cmd.Context(), o.userID, o.memoryK)
						if err != nil {
							return err
						}
						if err := writeTurns(out, o.format, turns); err != nil {
							return err
						}
						continue
					}

					answer, err := b.Chat.ProcessTurn(cmd.Context(), o.userID, nil, line, o.memoryK)
					if err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), models.FailureNotice)
						continue
					}
					if err := writeAnswer(out, o.format, answer); err != nil {
						return err
					}
					fmt.Fprintln(out)
				}
			})
		},
	}
}

func newHistoryCmd(open Opener, o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the last memory-k turns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(b *Backend) error {
				turns, err := b.Chat.History(cmd.Context(), o.userID, o.memoryK)
				if err != nil {
					return err
				}
				return writeTurns(cmd.OutOrStdout(), o.format, turns)
			})
		},
	}
}

func newExportCmd(open Opener, o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the full conversation to a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(b *Backend) error {
				res, err := b.Store.Export(cmd.Context(), o.userID)
				if err != nil {
					return err
				}
				if o.format == "json" {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d turns to %s\n", res.Turns, res.Path)
				if res.RemoteURI != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Uploaded to %s\n", res.RemoteURI)
				}
				return nil
			})
		},
	}
}

func newClearCmd(open Opener, o *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the conversation log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear %s without --yes", o.userID)
			}
			return withBackend(cmd, open, func(b *Backend) error {
				if err := b.Store.Clear(cmd.Context(), o.userID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
