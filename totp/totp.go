// Package totp implements the Steam Guard one-time code and mobile
// confirmation key derivations.
package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"
)

// codeChars is the alphabet Steam Guard codes are drawn from.
const codeChars = "23456789BCDFGHJKMNPQRTVWXY"

const codeLength = 5

type State struct {
	sharedSecret   []byte
	identitySecret []byte
}

func NewState(sharedSecret string, identitySecret string) (*State, error) {
	sharedKey, err := base64.StdEncoding.DecodeString(sharedSecret)
	if err != nil {
		return nil, fmt.Errorf("totp: decoding shared secret: %w", err)
	}

	identityKey, err := base64.StdEncoding.DecodeString(identitySecret)
	if err != nil {
		return nil, fmt.Errorf("totp: decoding identity secret: %w", err)
	}

	return &State{
		sharedSecret:   sharedKey,
		identitySecret: identityKey,
	}, nil
}

// Time returns the current UTC time shifted by an offset in seconds,
// typically the drift reported by the two-factor time service.
func Time(offset int64) time.Time {
	return time.Now().UTC().Add(time.Second * time.Duration(offset))
}

// GenerateCode derives the 5-character Steam Guard login code for the
// 30-second window containing t.
func (s *State) GenerateCode(t time.Time) (string, error) {
	if len(s.sharedSecret) == 0 {
		return "", fmt.Errorf("totp: no shared secret configured")
	}

	window := make([]byte, 8)
	binary.BigEndian.PutUint64(window, uint64(t.Unix())/30)

	mac := hmac.New(sha1.New, s.sharedSecret)
	mac.Write(window)
	digest := mac.Sum(nil)

	// Low nibble of the last byte selects the 4-byte slice; the top bit
	// of the slice is dropped.
	start := digest[len(digest)-1] & 0xf
	fullCode := int(binary.BigEndian.Uint32(digest[start:start+4]) & (1<<31 - 1))

	code := make([]byte, codeLength)
	for i := range code {
		code[i] = codeChars[fullCode%len(codeChars)]
		fullCode /= len(codeChars)
	}

	return string(code), nil
}

// GenerateConfirmationKey signs the (time, tag) pair with the identity
// secret. The tag names the confirmation operation: "conf", "details",
// "allow" or "cancel".
func (s *State) GenerateConfirmationKey(t time.Time, tag string) ([]byte, error) {
	if len(s.identitySecret) == 0 {
		return nil, fmt.Errorf("totp: no identity secret configured")
	}

	tagBytes := []byte(tag)
	if len(tagBytes) > 32 {
		tagBytes = tagBytes[:32]
	}

	buffer := make([]byte, 8+len(tagBytes))
	binary.BigEndian.PutUint64(buffer, uint64(t.Unix()))
	copy(buffer[8:], tagBytes)

	mac := hmac.New(sha1.New, s.identitySecret)
	if _, err := mac.Write(buffer); err != nil {
		return nil, err
	}

	return mac.Sum(nil), nil
}

// DeviceID derives the stable android device identifier for a SteamID64.
func DeviceID(steamID64 string) string {
	checksum := sha1.Sum([]byte(steamID64))
	return fmt.Sprintf("android:%s", base64.StdEncoding.EncodeToString(checksum[:]))
}
