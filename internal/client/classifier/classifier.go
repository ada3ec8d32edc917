// Package classifier decides how risky a food label is for an allergen
// profile.
//
// Classification is split in two: a Detector turns a label into a Signal
// (the allergen tokens it found) and a Classifier turns profile × signal into
// a Verdict. Both are interfaces so the scan pipeline never depends on which
// strategy is installed.
package classifier

import (
	"cmp"
	"slices"

	"github.com/dmitrijs2005/foodie/internal/client/models"
)

// Tier is a severity bucket. Higher tiers win.
type Tier int

const (
	TierNone Tier = iota
	TierCaution
	TierDanger
)

func (t Tier) String() string {
	switch t {
	case TierDanger:
		return "danger"
	case TierCaution:
		return "caution"
	default:
		return "none"
	}
}

// Signal is what a detector extracted from a label.
type Signal struct {
	Tokens []models.Token
	// Source names the detector that produced the signal.
	Source string
}

// Verdict is the outcome of a classification.
type Verdict struct {
	Status  models.Status
	Message string
	// Detail lists the matched tokens, most severe first. Empty for SAFE.
	Detail []models.Token
}

type Classifier interface {
	Classify(profile []models.Token, signal Signal) Verdict
}

const (
	MessageSafe     = "This food looks safe for your profile."
	MessageCaution  = "Caution: ingredients from your profile were detected."
	MessageDanger   = "Danger: allergens from your profile were detected!"
	MessageDegraded = "Analysis was incomplete. Check the label yourself before eating."
)

// DefaultTriageTable partitions the known allergens into severity tiers.
// Tokens missing from the table are untiered.
func DefaultTriageTable() map[models.Token]Tier {
	return map[models.Token]Tier{
		"peanut": TierDanger,
		"shrimp": TierDanger,
		"crab":   TierDanger,
		"milk":   TierCaution,
		"egg":    TierCaution,
	}
}

// TriageClassifier is the reference Classifier: the verdict is the highest
// tier among tokens present in both the profile and the signal.
type TriageClassifier struct {
	table map[models.Token]Tier
}

// NewTriageClassifier uses DefaultTriageTable when table is nil.
func NewTriageClassifier(table map[models.Token]Tier) *TriageClassifier {
	if table == nil {
		table = DefaultTriageTable()
	}
	return &TriageClassifier{table: table}
}

func (c *TriageClassifier) Tier(t models.Token) Tier {
	return c.table[t]
}

// TieredTokens returns every token with a tier, most severe first.
func (c *TriageClassifier) TieredTokens() []models.Token {
	out := make([]models.Token, 0, len(c.table))
	for t, tier := range c.table {
		if tier > TierNone {
			out = append(out, t)
		}
	}
	c.sortBySeverity(out)
	return out
}

func (c *TriageClassifier) Classify(profile []models.Token, signal Signal) Verdict {
	inProfile := make(map[models.Token]struct{}, len(profile))
	for _, t := range profile {
		inProfile[t] = struct{}{}
	}

	var matched []models.Token
	seen := make(map[models.Token]struct{}, len(signal.Tokens))
	worst := TierNone
	for _, t := range signal.Tokens {
		if _, ok := inProfile[t]; !ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}

		tier := c.table[t]
		if tier == TierNone {
			continue
		}
		matched = append(matched, t)
		worst = max(worst, tier)
	}

	switch worst {
	case TierDanger:
		c.sortBySeverity(matched)
		return Verdict{Status: models.StatusDanger, Message: MessageDanger, Detail: matched}
	case TierCaution:
		c.sortBySeverity(matched)
		return Verdict{Status: models.StatusCaution, Message: MessageCaution, Detail: matched}
	default:
		return Verdict{Status: models.StatusSafe, Message: MessageSafe}
	}
}

func (c *TriageClassifier) sortBySeverity(tokens []models.Token) {
	slices.SortFunc(tokens, func(a, b models.Token) int {
		if n := cmp.Compare(c.table[b], c.table[a]); n != 0 {
			return n
		}
		return cmp.Compare(a, b)
	})
}

// Degraded is the verdict used when analysis could not finish in time.
func Degraded() Verdict {
	return Verdict{Status: models.StatusCaution, Message: MessageDegraded}
}
