package econ

const (
	// MaxItemsPerTrade caps a single outbound offer payload.
	MaxItemsPerTrade = 255
	// MaxTradesPerAccount caps how many offers one send may produce.
	MaxTradesPerAccount = 5
)

// TradeOfferRequest is the community send endpoint's json_tradeoffer shape.
type TradeOfferRequest struct {
	NewVersion bool     `json:"newversion"`
	Version    int      `json:"version"`
	Me         ItemList `json:"me"`
	Them       ItemList `json:"them"`
}

type ItemList struct {
	Assets   []*Item    `json:"assets"`
	Currency []struct{} `json:"currency"`
	Ready    bool       `json:"ready"`
}

func newTradeOfferRequest() *TradeOfferRequest {
	return &TradeOfferRequest{
		NewVersion: true,
		Version:    3,
		Me:         ItemList{Assets: make([]*Item, 0, MaxItemsPerTrade), Currency: []struct{}{}},
		Them:       ItemList{Currency: []struct{}{}},
	}
}

// PackTradeOffers splits an item set into successive give-only requests,
// each holding at most MaxItemsPerTrade items, stopping after
// MaxTradesPerAccount requests. The second result is how many items were
// actually packed; callers compare it against len(items) to detect
// truncation and re-invoke for the remainder.
func PackTradeOffers(items []*Item) ([]*TradeOfferRequest, int) {
	if len(items) == 0 {
		return nil, 0
	}

	current := newTradeOfferRequest()
	requests := []*TradeOfferRequest{current}

	packed := 0
	for _, item := range items {
		if len(current.Me.Assets) >= MaxItemsPerTrade {
			if len(requests) >= MaxTradesPerAccount {
				break
			}

			current = newTradeOfferRequest()
			requests = append(requests, current)
		}

		current.Me.Assets = append(current.Me.Assets, item)
		packed++
	}

	return requests, packed
}
