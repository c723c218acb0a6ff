package steam

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/farmkit/steam/totp"
)

// MobileAuthenticator is the Steam Guard mobile app's role: it produces
// login codes and signs and drives mobile confirmations, with its clock
// aligned to Steam's through the two-factor time service.
type MobileAuthenticator struct {
	handler *WebHandler
	state   *totp.State

	mu          sync.Mutex
	offset      int64
	offsetKnown bool
}

func NewMobileAuthenticator(handler *WebHandler, sharedSecret, identitySecret string) (*MobileAuthenticator, error) {
	if handler == nil {
		return nil, eris.Wrap(ErrInvalidArgument, "handler")
	}

	state, err := totp.NewState(sharedSecret, identitySecret)
	if err != nil {
		return nil, err
	}

	return &MobileAuthenticator{handler: handler, state: state}, nil
}

// steamTime returns the current time shifted by Steam's reported clock
// drift. The drift is queried once and reused; Steam's clock does not move
// relative to ours within a session.
func (a *MobileAuthenticator) steamTime(ctx context.Context) (time.Time, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.offsetKnown {
		serverTime, err := a.handler.webAPI.QueryTime(ctx)
		if err != nil {
			return time.Time{}, eris.Wrap(err, "querying server time")
		}

		a.offset = serverTime - time.Now().UTC().Unix()
		a.offsetKnown = true
	}

	return totp.Time(a.offset), nil
}

// GenerateCode produces the current 5-character Steam Guard login code.
func (a *MobileAuthenticator) GenerateCode(ctx context.Context) (string, error) {
	t, err := a.steamTime(ctx)
	if err != nil {
		return "", err
	}
	return a.state.GenerateCode(t)
}

// DeviceID derives the android device identifier for the logged-in account.
func (a *MobileAuthenticator) DeviceID() (string, error) {
	steamID := a.handler.SteamID()
	if steamID == 0 {
		return "", ErrSessionUnavailable
	}
	return totp.DeviceID(formatUint(steamID)), nil
}

// signedRequest prepares the (deviceID, key, time) triple for one
// confirmation endpoint call with the given tag.
func (a *MobileAuthenticator) signedRequest(ctx context.Context, tag string) (string, []byte, uint64, error) {
	deviceID, err := a.DeviceID()
	if err != nil {
		return "", nil, 0, err
	}

	t, err := a.steamTime(ctx)
	if err != nil {
		return "", nil, 0, err
	}

	key, err := a.state.GenerateConfirmationKey(t, tag)
	if err != nil {
		return "", nil, 0, err
	}

	return deviceID, key, uint64(t.Unix()), nil
}

// FetchConfirmations lists the account's pending mobile confirmations.
func (a *MobileAuthenticator) FetchConfirmations(ctx context.Context) ([]*Confirmation, error) {
	deviceID, key, t, err := a.signedRequest(ctx, "conf")
	if err != nil {
		return nil, err
	}
	return a.handler.GetConfirmations(ctx, deviceID, key, t)
}

// FetchConfirmationDetails resolves what a single confirmation is for.
func (a *MobileAuthenticator) FetchConfirmationDetails(ctx context.Context, confirmation *Confirmation) (*ConfirmationDetails, error) {
	deviceID, key, t, err := a.signedRequest(ctx, "details")
	if err != nil {
		return nil, err
	}
	return a.handler.GetConfirmationDetails(ctx, deviceID, key, t, confirmation)
}

// HandleConfirmations accepts or cancels the given confirmations in one
// batch request.
func (a *MobileAuthenticator) HandleConfirmations(ctx context.Context, confirmations []*Confirmation, accept bool) (bool, error) {
	tag := "cancel"
	if accept {
		tag = "allow"
	}

	deviceID, key, t, err := a.signedRequest(ctx, tag)
	if err != nil {
		return false, err
	}
	return a.handler.HandleConfirmations(ctx, deviceID, key, t, confirmations, accept)
}

// AcceptTradeConfirmations confirms pending trade confirmations. With no
// tradeOfferIDs given every trade confirmation is accepted; otherwise only
// those matching the listed offers are. Returns false when a wanted offer
// had no pending confirmation yet.
func (a *MobileAuthenticator) AcceptTradeConfirmations(ctx context.Context, tradeOfferIDs []uint64) (bool, error) {
	confirmations, err := a.FetchConfirmations(ctx)
	if err != nil {
		return false, err
	}

	wanted := make(map[uint64]struct{}, len(tradeOfferIDs))
	for _, id := range tradeOfferIDs {
		wanted[id] = struct{}{}
	}

	var accepting []*Confirmation
	for _, confirmation := range confirmations {
		details, err := a.FetchConfirmationDetails(ctx, confirmation)
		if err != nil {
			return false, err
		}
		if details.Type != ConfirmationTrade {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[details.TradeOfferID]; !ok {
				continue
			}
			delete(wanted, details.TradeOfferID)
		}

		accepting = append(accepting, confirmation)
	}

	if len(accepting) == 0 {
		return len(wanted) == 0, nil
	}

	ok, err := a.HandleConfirmations(ctx, accepting, true)
	if err != nil {
		return false, err
	}

	return ok && len(wanted) == 0, nil
}
