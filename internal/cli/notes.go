package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/saythanks/saythanks/internal/server/export"
	"github.com/saythanks/saythanks/internal/server/models"
	"github.com/spf13/cobra"
)

func newNotesCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Browse, submit and manage notes",
	}
	cmd.AddCommand(
		newNotesListCommand(r),
		newNotesSearchCommand(r),
		newNotesArchivedCommand(r),
		newNotesExportCommand(r),
		newNotesSubmitCommand(r),
		newNotesShowCommand(r),
		newNotesArchiveCommand(r),
		newNotesNotifyCommand(r),
	)
	return cmd
}

type pageFlags struct {
	page, size int
	asJSON     bool
}

func (p *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.page, "page", 1, "1-based page number")
	cmd.Flags().IntVar(&p.size, "size", 25, "notes per page")
	cmd.Flags().BoolVar(&p.asJSON, "json", false, "output JSON")
}

func newNotesListCommand(r *runner) *cobra.Command {
	var pf pageFlags

	cmd := &cobra.Command{
		Use:   "list <slug>",
		Short: "List an inbox's notes, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, b Backend) error {
				p, err := b.Inboxes().Notes(ctx, args[0], pf.page, pf.size)
				if err != nil {
					return err
				}
				if pf.asJSON {
					return writeJSON(cmd.OutOrStdout(), p)
				}
				return writePage(cmd.OutOrStdout(), p)
			})
		},
	}
	pf.register(cmd)
	return cmd
}

func newNotesSearchCommand(r *runner) *cobra.Command {
	var pf pageFlags

	cmd := &cobra.Command{
		Use:   "search <slug> <text>",
		Short: "Find notes whose body or byline contains text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, b Backend) error {
				p, err := b.Inboxes().SearchNotes(ctx, args[0], args[1], pf.page, pf.size)
				if err != nil {
					return err
				}
				if pf.asJSON {
					return writeJSON(cmd.OutOrStdout(), p)
				}
				return writePage(cmd.OutOrStdout(), p)
			})
		},
	}
	pf.register(cmd)
	return cmd
}

func newNotesArchivedCommand(r *runner) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "archived <slug>",
		Short: "List an inbox's archived notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, b Backend) error {
				notes, err := b.Inboxes().ArchivedNotes(ctx, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), notes)
				}
				return writeNotes(cmd.OutOrStdout(), notes)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func newNotesExportCommand(r *runner) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export <slug>",
		Short: "Export non-archived notes",
		Long: fmt.Sprintf(`Writes every non-archived note of the inbox in one of: %s.
Output goes to stdout unless -o names a file.`, strings.Join(export.Formats(), ", ")),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, b Backend) error {
				data, err := b.Inboxes().Export(ctx, args[0], format)
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				return os.WriteFile(output, data, 0o644)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatCSV, "export format")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newNotesSubmitCommand(r *runner) *cobra.Command {
	var body, byline, audioPath, audioFile, topic string
	var notifyOwner bool

	cmd := &cobra.Command{
		Use:   "submit <slug>",
		Short: "Leave a note in an inbox",
		Long: `Stores a note for <slug>. --audio-file uploads a recording to object
storage first; --audio references an object that is already stored.
With --notify the owner is emailed if they opted in.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if audioPath != "" && audioFile != "" {
				return errors.New("--audio and --audio-file are mutually exclusive")
			}
			slug := args[0]

			return r.run(cmd, func(ctx context.Context, b Backend) error {
				inboxes := b.Inboxes()

				submit := func() (*models.Note, error) {
					if audioFile == "" {
						return inboxes.SubmitNote(ctx, slug, body, byline, audioPath)
					}
					f, err := os.Open(audioFile)
					if err != nil {
						return nil, err
					}
					defer f.Close()
					return inboxes.SubmitVoiceNote(ctx, slug, body, byline, f, audioContentType(audioFile))
				}
				note, err := submit()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", note.ID)

				if notifyOwner {
					sent, err := inboxes.NotifyOwner(ctx, slug, note, topic)
					if err != nil {
						return err
					}
					if sent {
						fmt.Fprintln(cmd.OutOrStdout(), "owner notified")
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&body, "body", "", "note text")
	cmd.Flags().StringVar(&byline, "byline", "", "sender name")
	cmd.Flags().StringVar(&audioPath, "audio", "", "key of a stored recording")
	cmd.Flags().StringVar(&audioFile, "audio-file", "", "recording to upload")
	cmd.Flags().BoolVar(&notifyOwner, "notify", false, "email the owner if enabled")
	cmd.Flags().StringVar(&topic, "topic", "", "topic for the notification subject")
	_ = cmd.MarkFlagRequired("body")
	_ = cmd.MarkFlagRequired("byline")
	return cmd
}

// audioContentType guesses a MIME type from the file extension.
func audioContentType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func newNotesShowCommand(r *runner) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, b Backend) error {
				note, err := b.Notes().Fetch(ctx, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), note)
				}
				return writeNote(cmd.OutOrStdout(), note)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func newNotesArchiveCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Hide a note from the default listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, b Backend) error {
				note, err := b.Notes().Fetch(ctx, args[0])
				if err != nil {
					return err
				}
				if err := b.Notes().Archive(ctx, note); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "archived %s\n", note.ID)
				return nil
			})
		},
	}
}

func newNotesNotifyCommand(r *runner) *cobra.Command {
	var to, topic string

	cmd := &cobra.Command{
		Use:   "notify <id>",
		Short: "Email a note",
		Long: `Emails the note to --to. Without --to the inbox owner is emailed, and
only if they enabled email delivery.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, b Backend) error {
				note, err := b.Notes().Fetch(ctx, args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if to != "" {
					if err := b.Notes().Notify(ctx, note, to, topic, note.AudioPath); err != nil {
						return err
					}
					fmt.Fprintf(out, "sent to %s\n", to)
					return nil
				}

				sent, err := b.Inboxes().NotifyOwner(ctx, note.Inbox, note, topic)
				if err != nil {
					return err
				}
				if sent {
					fmt.Fprintln(out, "owner notified")
				} else {
					fmt.Fprintln(out, "owner has email delivery disabled")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient address (default: inbox owner)")
	cmd.Flags().StringVar(&topic, "topic", "", "topic for the subject line")
	return cmd
}
