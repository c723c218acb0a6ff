package econ

import (
	"errors"

	"github.com/farmkit/steam/steamid"
)

type TradeOfferState byte

const (
	StateUnknown TradeOfferState = iota
	StateInvalid
	// StateActive is the only actionable state; everything past it is
	// terminal or informational.
	StateActive
	StateAccepted
	StateCountered
	StateExpired
	StateCanceled
	StateDeclined
	StateInvalidItems
	StateEmailPending
	StateEmailCanceled
	StateOnHold
)

var ErrInvalidTradeOffer = errors.New("econ: trade offer requires non-zero id, counterparty and a known state")

// TradeOffer is one inbound offer. It is constructed only from validated
// remote data and never exists partially built.
type TradeOffer struct {
	ID             uint64
	OtherAccountID uint32
	State          TradeOfferState

	ItemsToGive    []*Item
	ItemsToReceive []*Item
}

func NewTradeOffer(id uint64, otherAccountID uint32, state TradeOfferState) (*TradeOffer, error) {
	if id == 0 || otherAccountID == 0 || state == StateUnknown {
		return nil, ErrInvalidTradeOffer
	}

	return &TradeOffer{
		ID:             id,
		OtherAccountID: otherAccountID,
		State:          state,
	}, nil
}

// OtherSteamID is recomputed on demand rather than cached; the conversion
// is cheap and keeping it pure avoids hidden mutable state.
func (t *TradeOffer) OtherSteamID() steamid.SteamID {
	return steamid.FromAccountID(t.OtherAccountID)
}

// IsFairTypesExchange reports whether the offer is not a downgrade: for
// every (game, item type) pair we would give away, the receiving side must
// carry an equal or greater summed amount for that exact pair. Extra
// received items never hurt; this is one-directional, not an equality test.
func (t *TradeOffer) IsFairTypesExchange() bool {
	givePerGame := amountsPerGameAndType(t.ItemsToGive)
	receivePerGame := amountsPerGameAndType(t.ItemsToReceive)

	for appID, giveAmounts := range givePerGame {
		receiveAmounts, ok := receivePerGame[appID]
		if !ok {
			return false
		}

		for itemType, giveAmount := range giveAmounts {
			receiveAmount, ok := receiveAmounts[itemType]
			if !ok {
				return false
			}

			if giveAmount > receiveAmount {
				return false
			}
		}
	}

	return true
}

func amountsPerGameAndType(items []*Item) map[uint32]map[ItemType]uint64 {
	result := make(map[uint32]map[ItemType]uint64)
	for _, item := range items {
		perType, ok := result[item.RealAppID]
		if !ok {
			perType = make(map[ItemType]uint64)
			result[item.RealAppID] = perType
		}
		perType[item.Type] += uint64(item.Amount)
	}
	return result
}

// IsSteamCardsRequest reports whether every item we would give is a plain
// Steam trading card. An empty give set is vacuously true.
func (t *TradeOffer) IsSteamCardsRequest() bool {
	for _, item := range t.ItemsToGive {
		if item.AppID != SteamAppID || item.ContextID != SteamCommunityContextID || item.Type != TradingCard {
			return false
		}
	}

	return true
}
