package models

import (
	"slices"
	"time"
)

// Token is a normalized allergen identifier such as "peanut" or "milk".
type Token string

// AllergenProfile is the set of allergens a user declared.
// Allergens is kept sorted and free of duplicates.
type AllergenProfile struct {
	UserID    string    `json:"user_id"`
	Allergens []Token   `json:"allergens"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Has reports whether t is part of the profile.
func (p AllergenProfile) Has(t Token) bool {
	_, found := slices.BinarySearch(p.Allergens, t)
	return found
}

// SortedTokens returns a sorted copy of tokens without duplicates or empties.
func SortedTokens(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
