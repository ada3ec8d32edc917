package classifier

import (
	"slices"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/foodie/internal/client/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Known allergen tokens. The set matches the options users pick from.
var Known = []models.Token{
	"egg", "milk", "peanut", "shrimp", "crab",
	"wheat", "soy", "tree_nut", "peach", "tomato",
}

var aliases = map[string]models.Token{
	"peanuts":    "peanut",
	"groundnut":  "peanut",
	"groundnuts": "peanut",
	"땅콩":         "peanut",

	"dairy": "milk",
	"우유":    "milk",

	"shrimps": "shrimp",
	"prawn":   "shrimp",
	"prawns":  "shrimp",
	"새우":      "shrimp",

	"crabs": "crab",
	"게":     "crab",

	"eggs": "egg",
	"계란":   "egg",
	"달걀":   "egg",

	"flour": "wheat",
	"밀":     "wheat",

	"soya":     "soy",
	"soybean":  "soy",
	"soybeans": "soy",
	"대두":       "soy",

	"tree_nuts": "tree_nut",
	"nut":       "tree_nut",
	"nuts":      "tree_nut",
	"almond":    "tree_nut",
	"almonds":   "tree_nut",
	"walnut":    "tree_nut",
	"walnuts":   "tree_nut",
	"hazelnut":  "tree_nut",
	"hazelnuts": "tree_nut",
	"견과류":       "tree_nut",

	"peaches": "peach",
	"복숭아":     "peach",

	"tomatoes": "tomato",
	"토마토":      "tomato",
}

// Normalize maps free-form allergen input to a token: NFC, case folded,
// inner whitespace and dashes collapsed to "_", then aliases resolved.
// Unknown words are returned normalized but otherwise unchanged.
func Normalize(s string) models.Token {
	s = norm.NFC.String(strings.TrimSpace(s))
	s = cases.Fold().String(s)

	s = strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	}), "_")

	if t, ok := aliases[s]; ok {
		return t
	}
	return models.Token(s)
}

// NormalizeAll normalizes every input and returns a sorted set.
func NormalizeAll(in []string) []models.Token {
	out := make([]models.Token, 0, len(in))
	for _, s := range in {
		out = append(out, Normalize(s))
	}
	return models.SortedTokens(out)
}

// IsKnown reports whether t is one of the Known tokens.
func IsKnown(t models.Token) bool {
	return slices.Contains(Known, t)
}
