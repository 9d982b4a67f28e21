package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/saythanks/saythanks/internal/server/models"
)

const previewWidth = 60

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeInbox(w io.Writer, inbox *models.Inbox) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "slug\t%s\n", inbox.Slug)
	fmt.Fprintf(tw, "account\t%s\n", inbox.AuthID)
	fmt.Fprintf(tw, "email\t%s\n", inbox.Email)
	fmt.Fprintf(tw, "enabled\t%t\n", inbox.Enabled)
	fmt.Fprintf(tw, "email enabled\t%t\n", inbox.EmailEnabled)
	return tw.Flush()
}

// preview flattens body to one line and cuts it to previewWidth runes.
func preview(body string) string {
	s := strings.Join(strings.Fields(body), " ")
	if utf8.RuneCountInString(s) <= previewWidth {
		return s
	}
	r := []rune(s)
	return string(r[:previewWidth-1]) + "…"
}

func writeNotes(w io.Writer, notes []*models.Note) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIMESTAMP\tBYLINE\tBODY")
	for _, n := range notes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.ID, n.Timestamp.UTC().Format(time.RFC3339), n.Byline, preview(n.Body))
	}
	return tw.Flush()
}

func writePage(w io.Writer, p *models.NotePage) error {
	if err := writeNotes(w, p.Notes); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "page %d of %d (%d notes)\n", p.Page, p.TotalPages, p.TotalNotes)
	return err
}

func writeNote(w io.Writer, n *models.Note) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%s\n", n.ID)
	fmt.Fprintf(tw, "inbox\t%s\n", n.Inbox)
	fmt.Fprintf(tw, "timestamp\t%s\n", n.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "byline\t%s\n", n.Byline)
	fmt.Fprintf(tw, "archived\t%t\n", n.Archived)
	if n.AudioPath != "" {
		fmt.Fprintf(tw, "audio\t%s\n", n.AudioPath)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n", n.Body)
	return err
}
