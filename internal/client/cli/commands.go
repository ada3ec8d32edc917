package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/foodie/internal/client/classifier"
	"github.com/dmitrijs2005/foodie/internal/client/models"
	"github.com/dmitrijs2005/foodie/internal/client/report"
	"github.com/dmitrijs2005/foodie/internal/client/scan"
)

const timeLayout = "2006-01-02 15:04"

func joinTokens(tokens []models.Token) string {
	if len(tokens) == 0 {
		return "-"
	}
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

func (a *App) ShowAllergies(ctx context.Context) error {
	p, err := a.session().Profile.Load(ctx)
	if err != nil {
		return err
	}
	if len(p.Allergens) == 0 {
		a.println("No allergens declared. Use setallergies to add some.")
	} else {
		a.println("Your allergens:", joinTokens(p.Allergens))
	}
	a.println("Known allergens:", joinTokens(classifier.Known))
	return nil
}

func (a *App) SetAllergies(ctx context.Context, args []string) error {
	line := strings.Join(args, " ")
	if line == "" {
		var err error
		line, err = getSimpleText(a.reader, "Enter allergens (comma or space separated, empty to clear)", a.out)
		if err != nil {
			return err
		}
	}

	p, err := a.session().SetAllergies(ctx, SplitList(line))
	if err != nil {
		return err
	}
	a.println("Saved:", joinTokens(p.Allergens))
	return nil
}

func (a *App) Scan(ctx context.Context, args []string) error {
	var image []byte
	if len(args) > 0 {
		var err error
		image, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
	}
	return a.runScan(ctx, image)
}

func (a *App) ScanText(ctx context.Context) error {
	text, err := GetMultiline(a.reader, "Paste the ingredient list", a.out)
	if err != nil {
		return err
	}
	if text == "" {
		return errors.New("no ingredients given")
	}
	return a.runScan(ctx, nil, scan.WithDetector(&classifier.IngredientTextDetector{Text: text}))
}

func (a *App) runScan(ctx context.Context, image []byte, opts ...scan.SubmitOption) error {
	a.println("Analyzing label...")

	out, err := a.session().Scan(ctx, image, opts...)
	if err != nil {
		return err
	}

	a.printf("%s: %s\n", out.Verdict.Status, out.Verdict.Message)
	if len(out.Verdict.Detail) > 0 {
		a.println("Detected:", joinTokens(out.Verdict.Detail))
	}
	if out.Thumbnail != nil {
		a.printf("Thumbnail: %dx%d\n", out.Thumbnail.Width, out.Thumbnail.Height)
	}
	if !out.Recorded {
		a.println("Warning: the result could not be saved to your history")
	}
	return nil
}

func (a *App) History(ctx context.Context) error {
	records, err := a.session().Ledger.Load(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.println("No scans yet.")
		return nil
	}
	for _, r := range records {
		a.printf("%s  %-7s  %-24s  %s\n",
			r.Timestamp.Local().Format(timeLayout), r.Status, joinTokens(r.DetectedAllergens), r.Message)
	}
	return nil
}

func (a *App) Export(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: export <file.md>")
	}

	s := a.session()
	p, err := s.Profile.Load(ctx)
	if err != nil {
		return err
	}
	records, err := s.Ledger.Load(ctx)
	if err != nil {
		return err
	}

	if err := report.ExportFile(args[0], report.History{
		User:        s.User,
		Profile:     p,
		Records:     records,
		GeneratedAt: time.Now(),
	}); err != nil {
		return err
	}
	a.println("History exported to", args[0])
	return nil
}

func (a *App) Status(ctx context.Context) error {
	server := a.config.ServerEndpointAddr
	if server == "" {
		server = "none"
	}
	a.printf("Server: %s (%s)\n", server, a.Mode())

	s := a.session()
	if s == nil {
		a.println("Not logged in.")
		return nil
	}
	a.printf("User: %s <%s> [%s]\n", s.User.DisplayName, s.User.Email, s.User.AuthMode)
	a.printf("Syncing: %t\n", s.Sub.Syncing())
	return nil
}
