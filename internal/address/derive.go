// Package address derives the stable, collision-resistant 32-byte identities
// used in place of explicit pointers throughout the stream and market
// ledgers (see the "Derived-address protocol" in the design notes). Every
// persistent record's primary key is the output of Derive over a
// domain-separation tag and a seed tuple; two callers that agree on the tag
// and seeds always agree on the identity without a lookup.
package address

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
)

var errInvalidJSON = errors.New("address: invalid JSON identity literal")

// ID is a derived 32-byte record identity.
type ID [32]byte

// Tags used for each record kind. Keeping them here centralizes the seed
// tuples documented in the external-interfaces section, so every call site
// derives from the same constants.
const (
	TagStream           = "stream"
	TagDonorAccount     = "donor"
	TagBettingMarket    = "betting_market"
	TagMarketResolution = "market_resolution"
	TagBettorPosition   = "bettor_position"
	TagMarketVault      = "market_vault"
	TagStreamEscrow     = "stream_escrow"
	TagValidatorReward  = "validator_reward_log"
	TagUserPrincipal    = "user_principal"
)

// Derive computes the collision-resistant identity for tag and seeds.
// Each seed is length-prefixed before hashing so that, for example,
// Derive("x", []byte("ab"), []byte("c")) can never collide with
// Derive("x", []byte("a"), []byte("bc")): naive concatenation of
// variable-length seeds would not have that guarantee.
func Derive(tag string, seeds ...[]byte) ID {
	h := sha256.New()
	writeFramed(h, []byte(tag))
	for _, s := range seeds {
		writeFramed(h, s)
	}
	var id ID
	copy(id[:], h.Sum(nil))
	return id
}

// writeFramed writes a big-endian length prefix followed by b, so hash
// input framing is unambiguous regardless of seed contents.
func writeFramed(h interface{ Write([]byte) (int, error) }, b []byte) {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(b)))
	_, _ = h.Write(lenBuf[:])
	_, _ = h.Write(b)
}

// Stream derives a stream's identity from its host and name.
func Stream(hostID, name []byte) ID {
	return Derive(TagStream, []byte("stream"), name, hostID)
}

// DonorAccount derives a donor sub-ledger identity within a stream.
func DonorAccount(streamID ID, donorID []byte) ID {
	return Derive(TagDonorAccount, streamID[:], donorID)
}

// BettingMarket derives the (at most one) market bound to a stream.
func BettingMarket(streamID ID) ID {
	return Derive(TagBettingMarket, streamID[:])
}

// MarketResolution derives the resolution record for a market.
func MarketResolution(marketID ID) ID {
	return Derive(TagMarketResolution, marketID[:])
}

// BettorPosition derives a bettor's position identity within a market.
func BettorPosition(marketID ID, bettorID []byte) ID {
	return Derive(TagBettorPosition, marketID[:], bettorID)
}

// MarketVault derives the token vault identity owned by a market.
func MarketVault(marketID ID) ID {
	return Derive(TagMarketVault, marketID[:])
}

// StreamEscrow derives a stream's single token escrow account identity.
func StreamEscrow(streamID ID) ID {
	return Derive(TagStreamEscrow, streamID[:])
}

// ValidatorReward derives the audit-log identity for one validator's reward
// payout on one market.
func ValidatorReward(marketID ID, validatorID []byte) ID {
	return Derive(TagValidatorReward, marketID[:], validatorID)
}

// UserPrincipal derives the on-ledger identity a registered account presents
// as a host, donor, or bettor.
func UserPrincipal(userID []byte) ID {
	return Derive(TagUserPrincipal, userID)
}

// String renders the identity as lowercase hex, matching how the rest of
// the module logs and persists derived identities.
func (id ID) String() string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 64)
	for i, b := range id {
		buf[i*2] = hexDigits[b>>4]
		buf[i*2+1] = hexDigits[b&0x0f]
	}
	return string(buf)
}

// MarshalJSON renders id as a quoted lowercase hex string.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

// UnmarshalJSON parses a quoted lowercase hex string produced by MarshalJSON.
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errInvalidJSON
	}
	return id.Scan(string(data[1 : len(data)-1]))
}

// IsZero reports whether id is the zero value (never a valid derived
// identity, since sha256 never produces an all-zero digest for any
// practical input in this module).
func (id ID) IsZero() bool {
	for _, b := range id {
		if b != 0 {
			return false
		}
	}
	return true
}
