package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_Syncs(t *testing.T) {
	var nilUser *User
	assert.False(t, nilUser.Syncs())
	assert.False(t, (&User{AuthMode: AuthModeAnonymous}).Syncs())
	assert.False(t, (&User{AuthMode: AuthModeLocal}).Syncs())
	assert.True(t, (&User{AuthMode: AuthModeFederated}).Syncs())
}

func TestSortedTokens(t *testing.T) {
	got := SortedTokens([]Token{"milk", "", "peanut", "egg", "milk"})
	assert.Equal(t, []Token{"egg", "milk", "peanut"}, got)

	assert.Empty(t, SortedTokens(nil))
}

func TestAllergenProfile_Has(t *testing.T) {
	p := AllergenProfile{Allergens: SortedTokens([]Token{"peanut", "milk"})}
	assert.True(t, p.Has("milk"))
	assert.True(t, p.Has("peanut"))
	assert.False(t, p.Has("crab"))
}

func TestStatus_UnmarshalRejectsUnknown(t *testing.T) {
	var rec ScanRecord
	require.NoError(t, json.Unmarshal([]byte(`{"status":"DANGER"}`), &rec))
	assert.Equal(t, StatusDanger, rec.Status)

	err := json.Unmarshal([]byte(`{"status":"MAYBE"}`), &rec)
	require.Error(t, err)
}
