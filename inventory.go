package steam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/farmkit/steam/econ"
)

// inventoryCursor tolerates Steam's habit of sending `false` instead of a
// number when there is no next page.
type inventoryCursor uint32

func (c *inventoryCursor) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("false")) {
		*c = 0
		return nil
	}

	var value uint32
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}

	*c = inventoryCursor(value)
	return nil
}

type inventoryAsset struct {
	ID      uint64 `json:"id,string"`
	ClassID uint64 `json:"classid,string"`
	Amount  uint32 `json:"amount,string"`
}

type inventoryDescription struct {
	AppID          uint32 `json:"appid,string"`
	ClassID        uint64 `json:"classid,string"`
	MarketHashName string `json:"market_hash_name"`
	Type           string `json:"type"`
}

// assetMap and descriptionMap accept an empty JSON array in place of the
// usual object, which Steam emits for empty inventories.
type assetMap map[string]inventoryAsset

func (m *assetMap) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, (*map[string]inventoryAsset)(m))
}

type descriptionMap map[string]inventoryDescription

func (m *descriptionMap) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, (*map[string]inventoryDescription)(m))
}

type inventoryPage struct {
	Success      bool            `json:"success"`
	More         bool            `json:"more"`
	MoreStart    inventoryCursor `json:"more_start"`
	Assets       assetMap        `json:"rgInventory"`
	Descriptions descriptionMap  `json:"rgDescriptions"`
}

// GetMySteamInventory walks the logged-in account's Steam community
// inventory page by page. Inventory access is globally throttled to a
// single walk at a time, with a mandatory cooldown released in the
// background once the walk completes.
//
// wantedTypes and wantedRealAppIDs are optional filters; empty slices mean
// no filtering on that axis.
func (h *WebHandler) GetMySteamInventory(ctx context.Context, tradableOnly bool, wantedTypes []econ.ItemType, wantedRealAppIDs []uint32) ([]*econ.Item, error) {
	if err := h.inventorySem.Acquire(ctx, 1); err != nil {
		return nil, eris.Wrap(err, "waiting for inventory slot")
	}
	defer h.releaseInventorySlotAfterCooldown()

	trading := "0"
	if tradableOnly {
		trading = "1"
	}

	typeFilter := make(map[econ.ItemType]struct{}, len(wantedTypes))
	for _, t := range wantedTypes {
		typeFilter[t] = struct{}{}
	}

	appFilter := make(map[uint32]struct{}, len(wantedRealAppIDs))
	for _, id := range wantedRealAppIDs {
		appFilter[id] = struct{}{}
	}

	var (
		result      []*econ.Item
		seen        = make(map[econ.Key]struct{})
		classes     = make(map[uint64]econ.ClassDescription)
		currentPage uint32
	)

	for {
		if !h.refreshSessionIfNeeded(ctx) {
			return nil, ErrSessionUnavailable
		}

		requestURL := fmt.Sprintf("%s/my/inventory/json/%d/%d?l=english&trading=%s&start=%d",
			SteamCommunityURL, econ.SteamAppID, econ.SteamCommunityContextID, trading, currentPage)

		var page inventoryPage
		if err := h.transport.GetJSON(ctx, requestURL, &page); err != nil {
			return nil, eris.Wrapf(err, "fetching inventory page %d", currentPage)
		}

		if !page.Success {
			return nil, eris.Wrapf(ErrMalformedResponse, "inventory page %d reported failure", currentPage)
		}

		// Empty inventories are legitimate: Steam sends no descriptions at
		// all rather than an empty set.
		if len(page.Descriptions) == 0 {
			return result, nil
		}

		for _, desc := range page.Descriptions {
			if desc.ClassID == 0 {
				return nil, eris.Wrap(ErrMalformedResponse, "description without classid")
			}

			itemType := econ.ParseItemType(desc.Type)
			if len(typeFilter) > 0 {
				if _, ok := typeFilter[itemType]; !ok {
					continue
				}
			}

			realAppID := econ.AppIDFromMarketHashName(desc.MarketHashName)
			if realAppID == 0 {
				realAppID = desc.AppID
			}
			if len(appFilter) > 0 {
				if _, ok := appFilter[realAppID]; !ok {
					continue
				}
			}

			classes[desc.ClassID] = econ.ClassDescription{RealAppID: realAppID, Type: itemType}
		}

		for _, asset := range page.Assets {
			class, ok := classes[asset.ClassID]
			if !ok {
				continue
			}

			item, err := econ.NewItem(econ.SteamAppID, econ.SteamCommunityContextID, asset.ClassID, asset.Amount, class.RealAppID, class.Type)
			if err != nil {
				return nil, eris.Wrapf(err, "asset %d", asset.ID)
			}
			item.AssetID = asset.ID

			if _, dup := seen[item.Key()]; dup {
				continue
			}
			seen[item.Key()] = struct{}{}
			result = append(result, item)
		}

		if !page.More {
			return result, nil
		}

		nextPage := uint32(page.MoreStart)
		if nextPage <= currentPage {
			return nil, eris.Wrapf(ErrMalformedResponse, "inventory cursor did not advance (%d -> %d)", currentPage, nextPage)
		}
		currentPage = nextPage
	}
}

// GetMyTradableInventory is the trading path's view of the inventory: only
// tradable items, and only of the types the caller actually wants.
func (h *WebHandler) GetMyTradableInventory(ctx context.Context, wantedTypes []econ.ItemType, wantedRealAppIDs []uint32) ([]*econ.Item, error) {
	if len(wantedTypes) == 0 {
		return nil, ErrNoWantedTypes
	}

	return h.GetMySteamInventory(ctx, true, wantedTypes, wantedRealAppIDs)
}

// releaseInventorySlotAfterCooldown holds the inventory slot for the
// configured cooldown before releasing it, without blocking the caller.
func (h *WebHandler) releaseInventorySlotAfterCooldown() {
	go func() {
		time.Sleep(time.Duration(h.conf.InventoryLimiterDelay) * time.Second)
		h.inventorySem.Release(1)
	}()
}

// MarkInventory touches the inventory page so Steam registers recent
// activity; it shares the inventory throttle with real walks.
func (h *WebHandler) MarkInventory(ctx context.Context) error {
	if err := h.inventorySem.Acquire(ctx, 1); err != nil {
		return eris.Wrap(err, "waiting for inventory slot")
	}
	defer h.releaseInventorySlotAfterCooldown()

	if !h.refreshSessionIfNeeded(ctx) {
		return ErrSessionUnavailable
	}

	return h.transport.Head(ctx, SteamCommunityURL+"/my/inventory")
}

// MarkSentTrades touches the sent trade offers page so Steam registers the
// account as active after sending offers.
func (h *WebHandler) MarkSentTrades(ctx context.Context) error {
	if !h.refreshSessionIfNeeded(ctx) {
		return ErrSessionUnavailable
	}

	return h.transport.Head(ctx, SteamCommunityURL+"/my/trades")
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
