// internal/rounds/ticket.go
//
// Round tickets: opaque, signed identifiers issued with each record so the
// scoring endpoint can look the truth up server-side instead of trusting
// the record a client echoes back.
//
// A ticket is an HS256 JWT: sub = car id, jti = random uuid, exp = issue
// time + TTL. Single use is enforced by a Ledger, not by the token itself.

package rounds

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const issuer = "carguess"

var (
	ErrTicketInvalid = errors.New("rounds: invalid ticket")
	ErrTicketUsed    = errors.New("rounds: ticket already scored")
)

// Ticket is the verified content of a round ticket.
type Ticket struct {
	ID        string
	CarID     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer signs and verifies tickets.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

// NewIssuer returns an Issuer. A nil clock means the real clock.
func NewIssuer(secret string, ttl time.Duration, clock clockwork.Clock) *Issuer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, clock: clock}
}

// Issue creates a ticket for carID.
func (i *Issuer) Issue(carID string) (string, Ticket, error) {
	now := i.clock.Now().Truncate(time.Second)
	t := Ticket{
		ID:        uuid.NewString(),
		CarID:     carID,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   t.CarID,
		ID:        t.ID,
		IssuedAt:  jwt.NewNumericDate(t.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(t.ExpiresAt),
	})
	ss, err := tok.SignedString(i.secret)
	if err != nil {
		return "", Ticket{}, fmt.Errorf("sign ticket: %w", err)
	}
	return ss, t, nil
}

// Verify checks signature, issuer and expiry. Any failure is reported as
// ErrTicketInvalid (wrapping the cause).
func (i *Issuer) Verify(token string) (Ticket, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		return Ticket{}, fmt.Errorf("%w: %v", ErrTicketInvalid, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return Ticket{}, fmt.Errorf("%w: missing subject or id", ErrTicketInvalid)
	}
	t := Ticket{ID: claims.ID, CarID: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}
	if claims.IssuedAt != nil {
		t.IssuedAt = claims.IssuedAt.Time
	}
	return t, nil
}
