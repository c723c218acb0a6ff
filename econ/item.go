// Package econ models Steam economy assets: inventory items, their type
// classification, and trade offers built from them.
package econ

import (
	"errors"
	"strconv"
	"strings"
)

const (
	// SteamAppID owns community items: cards, backgrounds, emoticons.
	SteamAppID uint32 = 753
	// SteamCommunityContextID is the community item namespace inside 753.
	SteamCommunityContextID uint64 = 6
)

type ItemType byte

const (
	Unknown ItemType = iota
	BoosterPack
	Emoticon
	FoilTradingCard
	ProfileBackground
	TradingCard
	SteamGems
)

// ParseItemType classifies a human-readable description type. Two names
// match exactly, four families match by suffix; the foil check has to run
// before the plain trading card one.
func ParseItemType(name string) ItemType {
	switch name {
	case "Booster Pack":
		return BoosterPack
	case "Steam Gems":
		return SteamGems
	}

	switch {
	case strings.HasSuffix(name, "Emoticon"):
		return Emoticon
	case strings.HasSuffix(name, "Foil Trading Card"):
		return FoilTradingCard
	case strings.HasSuffix(name, "Profile Background"):
		return ProfileBackground
	case strings.HasSuffix(name, "Trading Card"):
		return TradingCard
	}

	return Unknown
}

// AppIDFromMarketHashName recovers the owning game from a market hash name
// of the form "<appID>-<item name>". Returns 0 when the prefix is absent or
// not numeric.
func AppIDFromMarketHashName(hashName string) uint32 {
	index := strings.IndexByte(hashName, '-')
	if index <= 0 {
		return 0
	}

	appID, err := strconv.ParseUint(hashName[:index], 10, 32)
	if err != nil {
		return 0
	}

	return uint32(appID)
}

// ClassDescription is the resolved classification for one class id, shared
// by every duplicate item of that class.
type ClassDescription struct {
	RealAppID uint32
	Type      ItemType
}

var ErrInvalidItem = errors.New("econ: item requires non-zero appID, contextID, classID and amount")

// Item is a single asset stack. AppID, ContextID, RealAppID and Type are
// late-bound once the class description resolves; the rest never changes
// after construction.
type Item struct {
	AppID      uint32   `json:"appid"`
	ContextID  uint64   `json:"contextid,string"`
	ClassID    uint64   `json:"classid,string,omitempty"`
	AssetID    uint64   `json:"assetid,string,omitempty"`
	Amount     uint32   `json:"amount,string"`
	RealAppID  uint32   `json:"-"`
	Type       ItemType `json:"-"`
}

// NewItem fails fast on a malformed asset instead of producing a partially
// valid one.
func NewItem(appID uint32, contextID, classID uint64, amount uint32, realAppID uint32, itemType ItemType) (*Item, error) {
	if appID == 0 || contextID == 0 || classID == 0 || amount == 0 {
		return nil, ErrInvalidItem
	}

	if realAppID == 0 {
		realAppID = appID
	}

	return &Item{
		AppID:     appID,
		ContextID: contextID,
		ClassID:   classID,
		Amount:    amount,
		RealAppID: realAppID,
		Type:      itemType,
	}, nil
}

// Key is the identity tuple used for set deduplication.
type Key struct {
	AppID     uint32
	ContextID uint64
	ClassID   uint64
	AssetID   uint64
}

func (i *Item) Key() Key {
	return Key{
		AppID:     i.AppID,
		ContextID: i.ContextID,
		ClassID:   i.ClassID,
		AssetID:   i.AssetID,
	}
}
