// Package steamlang mirrors the subset of Steam's shared result enums the
// web handler interprets.
package steamlang

import (
	"net/http"
	"strconv"

	"github.com/rotisserie/eris"
)

type EResult int

const (
	InvalidResult            EResult = 0
	OKResult                 EResult = 1
	FailResult               EResult = 2
	NoConnectionResult       EResult = 3
	InvalidPasswordResult    EResult = 5
	InvalidStateResult       EResult = 11
	AccessDeniedResult       EResult = 15
	TimeoutResult            EResult = 16
	ServiceUnavailableResult EResult = 20
	NotLoggedOnResult        EResult = 21
	LimitExceededResult      EResult = 25
	ExpiredResult            EResult = 27
	AlreadyRedeemedResult    EResult = 28
	DuplicateRequestResult   EResult = 29
	RateLimitExceededResult  EResult = 84
)

// EPurchaseResultDetail is returned alongside EResult by the wallet code
// redemption endpoint.
type EPurchaseResultDetail int

const (
	PurchaseDetailNoDetail             EPurchaseResultDetail = 0
	PurchaseDetailAVSFailure           EPurchaseResultDetail = 1
	PurchaseDetailInvalidPaymentMethod EPurchaseResultDetail = 3
	PurchaseDetailContactSupport       EPurchaseResultDetail = 4
	PurchaseDetailTimeout              EPurchaseResultDetail = 5
	PurchaseDetailAlreadyPurchased     EPurchaseResultDetail = 9
	PurchaseDetailBadActivationCode    EPurchaseResultDetail = 14
	PurchaseDetailDuplicateActivation  EPurchaseResultDetail = 15
	PurchaseDetailRateLimited          EPurchaseResultDetail = 53
)

func (r EResult) Succeeded() bool {
	return r == OKResult
}

// EnsureSuccessResponse fails on any non-2xx HTTP status.
func EnsureSuccessResponse(httpResponse *http.Response) error {
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return eris.Errorf("steam returned status %d for %s", httpResponse.StatusCode, httpResponse.Request.URL)
	}
	return nil
}

// EnsureEResultResponse inspects the x-eresult header some endpoints attach
// to an otherwise-200 response.
func EnsureEResultResponse(httpResponse *http.Response) error {
	header := httpResponse.Header.Get("x-eresult")
	if header == "" {
		return nil
	}

	code, err := strconv.Atoi(header)
	if err != nil {
		return eris.Wrapf(err, "unparseable x-eresult header %q", header)
	}

	if result := EResult(code); !result.Succeeded() {
		return eris.Errorf("steam returned eresult %d for %s", result, httpResponse.Request.URL)
	}

	return nil
}
