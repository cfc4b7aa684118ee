package core

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
)

type SessionID string

const sessionTimestampLayout = "20060102150405"

const suffixBytes = 4

var ErrEntropyUnavailable = errors.New("entropy source unavailable")

var sessionIDPattern = regexp.MustCompile(`^\d{14}-[0-9a-fA-F]{8}$`)

type EntropySource func(buf []byte) error

// A zero IDGenerator uses the wall clock, with uuid as fallback for crypto/rand.
type IDGenerator struct {
	Now      func() time.Time
	Primary  EntropySource
	Fallback EntropySource
}

func NewSessionID() (SessionID, error) {
	return IDGenerator{}.NewSessionID()
}

func (g IDGenerator) NewSessionID() (SessionID, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	suffix, err := g.suffix()
	if err != nil {
		return "", err
	}

	return SessionID(now().UTC().Format(sessionTimestampLayout) + "-" + suffix), nil
}

func (g IDGenerator) suffix() (string, error) {
	primary := g.Primary
	if primary == nil {
		primary = cryptoEntropy
	}
	fallback := g.Fallback
	if fallback == nil {
		fallback = uuidEntropy
	}

	buf := make([]byte, suffixBytes)

	primaryErr := primary(buf)
	if primaryErr == nil {
		return hex.EncodeToString(buf), nil
	}
	slog.Debug("primary entropy source failed, using fallback", "error", primaryErr)

	fallbackErr := fallback(buf)
	if fallbackErr == nil {
		return hex.EncodeToString(buf), nil
	}

	return "", fmt.Errorf("%w: %w", ErrEntropyUnavailable, errors.Join(primaryErr, fallbackErr))
}

func cryptoEntropy(buf []byte) error {
	_, err := rand.Read(buf)
	return err
}

// uuidEntropy takes the leading bytes of a version 4 UUID; those carry no
// version or variant bits.
func uuidEntropy(buf []byte) error {
	id, err := uuid.NewRandom()
	if err != nil {
		return err
	}
	if len(buf) > 6 {
		return fmt.Errorf("uuid fallback supplies at most 6 random leading bytes, need %d", len(buf))
	}
	copy(buf, id[:len(buf)])
	return nil
}

func ValidSessionID(s string) bool {
	return sessionIDPattern.MatchString(s)
}

func (id SessionID) CreatedAt() time.Time {
	s := string(id)
	if !ValidSessionID(s) {
		return time.Time{}
	}

	t, err := time.Parse(sessionTimestampLayout, s[:14])
	if err != nil {
		return time.Time{}
	}
	return t
}
