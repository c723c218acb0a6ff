package econ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustItem(t *testing.T, realAppID uint32, itemType ItemType, amount uint32) *Item {
	t.Helper()
	item, err := NewItem(SteamAppID, SteamCommunityContextID, 1, amount, realAppID, itemType)
	require.NoError(t, err)
	return item
}

func TestNewTradeOfferValidation(t *testing.T) {
	_, err := NewTradeOffer(0, 1, StateActive)
	require.ErrorIs(t, err, ErrInvalidTradeOffer)

	_, err = NewTradeOffer(1, 0, StateActive)
	require.ErrorIs(t, err, ErrInvalidTradeOffer)

	_, err = NewTradeOffer(1, 1, StateUnknown)
	require.ErrorIs(t, err, ErrInvalidTradeOffer)

	offer, err := NewTradeOffer(1, 22202, StateActive)
	require.NoError(t, err)
	assert.Equal(t, "76561197960287930", offer.OtherSteamID().String())
}

func TestIsFairTypesExchange(t *testing.T) {
	offer, err := NewTradeOffer(1, 1, StateActive)
	require.NoError(t, err)

	// Empty give side is trivially fair.
	assert.True(t, offer.IsFairTypesExchange())

	// One card for one card of the same game.
	offer.ItemsToGive = []*Item{mustItem(t, 440, TradingCard, 1)}
	offer.ItemsToReceive = []*Item{mustItem(t, 440, TradingCard, 1)}
	assert.True(t, offer.IsFairTypesExchange())

	// Receiving more of the same key stays fair.
	offer.ItemsToReceive = append(offer.ItemsToReceive, mustItem(t, 440, TradingCard, 3))
	assert.True(t, offer.IsFairTypesExchange())

	// Extra receive items of unrelated keys never make it unfair.
	offer.ItemsToReceive = append(offer.ItemsToReceive, mustItem(t, 570, BoosterPack, 1))
	assert.True(t, offer.IsFairTypesExchange())
}

func TestIsFairTypesExchangeMissingGame(t *testing.T) {
	offer, err := NewTradeOffer(1, 1, StateActive)
	require.NoError(t, err)

	offer.ItemsToGive = []*Item{mustItem(t, 440, TradingCard, 1)}
	offer.ItemsToReceive = []*Item{mustItem(t, 570, TradingCard, 1)}
	assert.False(t, offer.IsFairTypesExchange(), "receiving side lacks the given game")
}

func TestIsFairTypesExchangeMissingType(t *testing.T) {
	offer, err := NewTradeOffer(1, 1, StateActive)
	require.NoError(t, err)

	offer.ItemsToGive = []*Item{mustItem(t, 440, FoilTradingCard, 1)}
	offer.ItemsToReceive = []*Item{mustItem(t, 440, TradingCard, 5)}
	assert.False(t, offer.IsFairTypesExchange(), "foil for plain card is a downgrade")
}

func TestIsFairTypesExchangeAmountsSum(t *testing.T) {
	offer, err := NewTradeOffer(1, 1, StateActive)
	require.NoError(t, err)

	// Give 2+3, receive 4: unfair. Receive one more and it flips.
	offer.ItemsToGive = []*Item{
		mustItem(t, 440, TradingCard, 2),
		mustItem(t, 440, TradingCard, 3),
	}
	offer.ItemsToReceive = []*Item{mustItem(t, 440, TradingCard, 4)}
	assert.False(t, offer.IsFairTypesExchange())

	offer.ItemsToReceive = append(offer.ItemsToReceive, mustItem(t, 440, TradingCard, 1))
	assert.True(t, offer.IsFairTypesExchange())
}

func TestIsFairTypesExchangeOneDirectional(t *testing.T) {
	offer, err := NewTradeOffer(1, 1, StateActive)
	require.NoError(t, err)

	// We give nothing of game 570 yet receive some; fairness does not
	// require the reverse mapping to exist.
	offer.ItemsToGive = []*Item{mustItem(t, 440, TradingCard, 1)}
	offer.ItemsToReceive = []*Item{
		mustItem(t, 440, TradingCard, 1),
		mustItem(t, 570, SteamGems, 100),
	}
	assert.True(t, offer.IsFairTypesExchange())
}

func TestIsSteamCardsRequest(t *testing.T) {
	offer, err := NewTradeOffer(1, 1, StateActive)
	require.NoError(t, err)

	// Vacuously true on an empty give set.
	assert.True(t, offer.IsSteamCardsRequest())

	offer.ItemsToGive = []*Item{
		mustItem(t, 440, TradingCard, 1),
		mustItem(t, 570, TradingCard, 1),
	}
	assert.True(t, offer.IsSteamCardsRequest())

	foil := mustItem(t, 440, FoilTradingCard, 1)
	offer.ItemsToGive = append(offer.ItemsToGive, foil)
	assert.False(t, offer.IsSteamCardsRequest())
}

func TestIsSteamCardsRequestWrongContext(t *testing.T) {
	offer, err := NewTradeOffer(1, 1, StateActive)
	require.NoError(t, err)

	item, err := NewItem(440, 2, 1, 1, 440, TradingCard)
	require.NoError(t, err)
	offer.ItemsToGive = []*Item{item}
	assert.False(t, offer.IsSteamCardsRequest(), "game item outside the community context")
}
