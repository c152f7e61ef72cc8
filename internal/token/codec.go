package token

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Rejection reasons returned by Verify. Callers surface the specific reason
// to the client rather than a generic failure.
var (
	ErrMalformed           = errors.New("token malformed")
	ErrSignatureMismatch   = errors.New("token signature mismatch")
	ErrExpired             = errors.New("token expired")
	ErrUnrecognizedPayload = errors.New("token payload unrecognized")
)

// Reason maps a Verify error to its stable wire identifier.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrSignatureMismatch):
		return "SIGNATURE_MISMATCH"
	case errors.Is(err, ErrExpired):
		return "EXPIRED"
	case errors.Is(err, ErrUnrecognizedPayload):
		return "UNRECOGNIZED_PAYLOAD"
	default:
		return "MALFORMED"
	}
}

// Kind discriminates the two payload shapes a verified token may carry.
type Kind string

const (
	KindUnit   Kind = "unit"
	KindMaster Kind = "master"
)

// Payload is the tagged variant revealed by a successful Verify. A unit
// payload carries Name/StationID/UnitID; a master payload carries only
// BatchID.
type Payload struct {
	Kind      Kind
	Name      string
	StationID string
	UnitID    string
	BatchID   string
}

// UnitPayload builds a unit-token payload.
func UnitPayload(name, stationID, unitID string) Payload {
	return Payload{Kind: KindUnit, Name: name, StationID: stationID, UnitID: unitID}
}

// MasterPayload builds a master-token payload.
func MasterPayload(batchID string) Payload {
	return Payload{Kind: KindMaster, BatchID: batchID}
}

type claims struct {
	Name      string `json:"name,omitempty"`
	StationID string `json:"station_id,omitempty"`
	UnitID    string `json:"unit_id,omitempty"`
	BatchID   string `json:"batch_id,omitempty"`
	jwt.RegisteredClaims
}

// Codec issues and verifies signed product tokens over a single shared
// secret. Tokens are non-expiring by default: a printed label outlives any
// session-style TTL. A positive ttl is honored when configured.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec builds a codec. ttlMinutes <= 0 disables the expiry claim.
func NewCodec(secret string, ttlMinutes int) *Codec {
	var ttl time.Duration
	if ttlMinutes > 0 {
		ttl = time.Duration(ttlMinutes) * time.Minute
	}
	return &Codec{secret: []byte(secret), ttl: ttl}
}

// Issue signs the payload and returns the token string. The payload bytes
// are fixed at signing time; a token is never re-signed.
func (c *Codec) Issue(p Payload) (string, error) {
	now := time.Now()
	cl := &claims{
		Name:      p.Name,
		StationID: p.StationID,
		UnitID:    p.UnitID,
		BatchID:   p.BatchID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if c.ttl > 0 {
		cl.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, cl)
	return tok.SignedString(c.secret)
}

// Verify recomputes the signature over the claimed payload and, on success,
// discriminates its shape. The shape check runs on every verified token:
// a non-empty unit id makes it a unit token, a batch id without a unit id
// makes it a master token, anything else is rejected.
func (c *Codec) Verify(tokenStr string) (Payload, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrSignatureMismatch
		}
		return c.secret, nil
	})
	if err != nil {
		return Payload{}, mapParseError(err)
	}

	cl, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return Payload{}, ErrMalformed
	}

	switch {
	case cl.UnitID != "":
		return UnitPayload(cl.Name, cl.StationID, cl.UnitID), nil
	case cl.BatchID != "":
		return MasterPayload(cl.BatchID), nil
	default:
		return Payload{}, ErrUnrecognizedPayload
	}
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrSignatureMismatch):
		return ErrSignatureMismatch
	default:
		return ErrMalformed
	}
}
