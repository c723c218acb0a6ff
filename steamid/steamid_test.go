package steamid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptySteamID64(t *testing.T) {
	_, err := ParseSteamID64("")
	require.Error(t, err)
}

func TestNonNumberSteamID64(t *testing.T) {
	_, err := ParseSteamID64("not a number")
	require.Error(t, err)
}

func TestValidSteamID64(t *testing.T) {
	steamID, err := ParseSteamID64("76561197960287930")
	require.NoError(t, err)

	assert.True(t, steamID.IsValid())
	assert.True(t, steamID.IsValidIndividual())
	assert.Equal(t, uint32(22202), steamID.AccountID())
	assert.Equal(t, "76561197960287930", steamID.String())
}

func TestFromAccountID(t *testing.T) {
	steamID := FromAccountID(22202)

	assert.True(t, steamID.IsValidIndividual())
	assert.Equal(t, uint64(76561197960287930), steamID.ToUint64())
}

func TestRoundTrip(t *testing.T) {
	original := uint64(76561198012345678)
	steamID := FromUint64(original)
	assert.Equal(t, original, steamID.ToUint64())
}
