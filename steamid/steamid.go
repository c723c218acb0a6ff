// Package steamid converts between the SteamID64 wire format and its
// universe/type/instance/account components.
package steamid

import (
	"errors"
	"strconv"

	"github.com/rotisserie/eris"
)

type Universe uint
type Type uint
type Instance uint

const (
	UniverseInvalid Universe = iota
	UniversePublic
	UniverseBeta
	UniverseInternal
	UniverseDev
)

const (
	TypeInvalid Type = iota
	TypeIndividual
	TypeMultiseat
	TypeGameServer
	TypeAnonGameServer
	TypePending
	TypeContentServer
	TypeClan
	TypeChat
	TypeP2pSuperSeeder
	TypeAnonUser
)

const (
	InstanceAll Instance = iota
	InstanceDesktop
	InstanceConsole
	InstanceWeb
)

const (
	AccountIDMask       uint64 = 0xFFFFFFFF
	AccountInstanceMask uint64 = 0x000FFFFF
	AccountTypeMask     uint64 = 0xF
)

var ErrEmpty = errors.New("can't parse empty string as SteamID64")

type SteamID struct {
	universe  Universe
	idType    Type
	instance  Instance
	accountID uint32
}

func ParseSteamID64(s string) (SteamID, error) {
	if s == "" {
		return SteamID{}, ErrEmpty
	}

	parsedID, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return SteamID{}, eris.Wrapf(err, "can't parse %q as SteamID64", s)
	}

	return FromUint64(parsedID), nil
}

func FromUint64(id uint64) SteamID {
	return SteamID{
		accountID: uint32(id & AccountIDMask),
		instance:  Instance((id >> 32) & AccountInstanceMask),
		idType:    Type((id >> 52) & AccountTypeMask),
		universe:  Universe(id >> 56),
	}
}

// FromAccountID builds the public individual desktop identity for a bare
// 32-bit account id, the form the trade offer API reports counterparties in.
func FromAccountID(accountID uint32) SteamID {
	return SteamID{
		universe:  UniversePublic,
		idType:    TypeIndividual,
		instance:  InstanceDesktop,
		accountID: accountID,
	}
}

func (id SteamID) ToUint64() uint64 {
	return uint64(id.universe)<<56 |
		uint64(id.idType)<<52 |
		uint64(id.instance)<<32 |
		uint64(id.accountID)
}

func (id SteamID) String() string {
	return strconv.FormatUint(id.ToUint64(), 10)
}

func (id SteamID) IsValid() bool {
	switch {
	case id.idType <= TypeInvalid || id.idType > TypeAnonUser:
		return false
	case id.universe <= UniverseInvalid || id.universe > UniverseDev:
		return false
	case id.idType == TypeIndividual && (id.accountID == 0 || id.instance > InstanceWeb):
		return false
	case id.idType == TypeClan && (id.accountID == 0 || id.instance != InstanceAll):
		return false
	case id.idType == TypeGameServer && id.accountID == 0:
		return false
	}

	return true
}

func (id SteamID) IsValidIndividual() bool {
	return id.universe == UniversePublic &&
		id.idType == TypeIndividual &&
		id.instance == InstanceDesktop &&
		id.accountID != 0
}

func (id SteamID) AccountID() uint32 {
	return id.accountID
}
