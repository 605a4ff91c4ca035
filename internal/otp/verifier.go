package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/notify"
)

// ErrNotificationFailed is returned by Issue when the code could not be
// delivered. The code was still stored and remains valid until it expires.
var ErrNotificationFailed = errors.New("verification code delivery failed")

// Verifier issues and checks one-time passcodes that gate customer
// registration.
type Verifier struct {
	cache  *Cache
	sender notify.Sender
	log    *slog.Logger
}

func NewVerifier(cache *Cache, sender notify.Sender, log *slog.Logger) *Verifier {
	if log == nil {
		log = slog.Default()
	}
	return &Verifier{cache: cache, sender: sender, log: log}
}

// Issue generates a 6-digit code, stores it for the phone number (replacing
// any earlier unconsumed code) and sends it out-of-band. Delivery failure does
// not undo the issuance.
func (v *Verifier) Issue(ctx context.Context, phone string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	v.cache.Put(phone, code)
	msg := fmt.Sprintf("Gasolineras Pantaleon: Tu código de verificación es %s. NO lo compartas.", code)
	if err := v.sender.Send(ctx, phone, msg); err != nil {
		v.log.Error("verification code delivery failed", "phone", phone, "error", err)
		return code, fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	return code, nil
}

// Check verifies a submitted code. True at most once per issued code.
func (v *Verifier) Check(phone, submitted string) bool {
	return v.cache.Verify(phone, submitted)
}

// generateCode returns a uniformly random 6-digit numeric code, leading
// zeros allowed.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
