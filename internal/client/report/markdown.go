// Package report renders a user's allergen profile and scan history as a
// Markdown document.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/foodie/internal/client/models"
	"github.com/dmitrijs2005/foodie/internal/filex"
	"github.com/nao1215/markdown"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// History is the input of a report.
type History struct {
	User        *models.User
	Profile     models.AllergenProfile
	Records     []models.ScanRecord
	GeneratedAt time.Time
}

// WriteMarkdown renders h to w.
func WriteMarkdown(w io.Writer, h History) error {
	md := markdown.NewMarkdown(w)

	md.H1("Allergen Scan History")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"User", displayName(h.User)},
			{"Generated", h.GeneratedAt.Format(timeLayout)},
			{"Allergens", tokenList(h.Profile.Allergens, "none declared")},
			{"Scans", strconv.Itoa(len(h.Records))},
		},
	})
	md.PlainText("")

	writeAlert(md, h.Records)
	writeRecords(md, h.Records)

	return md.Build()
}

// ExportFile renders h into the file at path, replacing it atomically.
func ExportFile(path string, h History) error {
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, h); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return filex.WriteFile(path, buf.Bytes())
}

func displayName(u *models.User) string {
	if u == nil {
		return "-"
	}
	if u.Email == "" {
		return u.DisplayName
	}
	return fmt.Sprintf("%s (%s)", u.DisplayName, u.Email)
}

func tokenList(tokens []models.Token, empty string) string {
	if len(tokens) == 0 {
		return empty
	}
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

func writeAlert(md *markdown.Markdown, records []models.ScanRecord) {
	var danger, caution int
	for _, r := range records {
		switch r.Status {
		case models.StatusDanger:
			danger++
		case models.StatusCaution:
			caution++
		}
	}

	switch {
	case danger > 0:
		md.Cautionf("%d scan(s) matched a severe allergen.", danger)
	case caution > 0:
		md.Warningf("%d scan(s) need a closer look.", caution)
	case len(records) > 0:
		md.Tip("No declared allergen was found in any scan.")
	default:
		md.Note("No scans recorded yet.")
	}
	md.PlainText("")
}

func statusLabel(s models.Status) string {
	switch s {
	case models.StatusDanger:
		return "🔴 DANGER"
	case models.StatusCaution:
		return "🟡 CAUTION"
	default:
		return "🟢 SAFE"
	}
}

func writeRecords(md *markdown.Markdown, records []models.ScanRecord) {
	if len(records) == 0 {
		return
	}

	md.H2("Scans")
	md.PlainText("")

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		thumb := "no"
		if r.Thumbnail != "" {
			thumb = "yes"
		}
		rows = append(rows, []string{
			r.Timestamp.Format(timeLayout),
			statusLabel(r.Status),
			tokenList(r.DetectedAllergens, "-"),
			r.Message,
			thumb,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"When", "Status", "Detected", "Message", "Thumbnail"},
		Rows:   rows,
	})
	md.PlainText("")
}
