package steam

import "errors"

var (
	ErrInvalidArgument    = errors.New("steam: required argument is empty or zero")
	ErrSessionUnavailable = errors.New("steam: web session is unavailable")
	ErrApiKeyUnavailable  = errors.New("steam: web api key is unavailable")
	ErrNoWantedTypes      = errors.New("steam: no wanted item types given")
	ErrMalformedResponse  = errors.New("steam: malformed remote response")
)
