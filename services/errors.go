package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotConfigured      = errors.New("integration not configured")
	ErrInvalidSignature   = errors.New("invalid signature")

	ErrInsufficientPoints = errors.New("insufficient points")
	ErrRewardUnavailable  = errors.New("reward is not available")
	ErrOutOfStock         = errors.New("reward is out of stock")
	ErrAlreadyUsed        = errors.New("redemption already used")

	ErrQRCodeInactive   = errors.New("qr code is inactive")
	ErrQRCodeExpired    = errors.New("qr code has expired")
	ErrScanLimitReached = errors.New("qr code scan limit reached")
	ErrScanCooldown     = errors.New("already scanned at this business recently")

	ErrBelowPayoutMinimum = errors.New("pending balance below payout minimum")
	ErrAgentNotActive     = errors.New("sales agent is not active")

	ErrAlreadyReviewed  = errors.New("business already reviewed")
	ErrAlreadyReplied   = errors.New("review already has a reply")
	ErrAlreadyJoined    = errors.New("challenge already joined")
	ErrChallengeClosed  = errors.New("challenge is not running")
	ErrFeaturedOverflow = errors.New("featured businesses exceed tier limit")
)

// invalid wraps ErrInvalidInput with a message meant for the caller
func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// CooldownError is returned when a scan falls inside the cooldown window
type CooldownError struct {
	NextEligibleAt time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s; next eligible at %s", ErrScanCooldown.Error(), e.NextEligibleAt.Format(time.RFC3339))
}

func (e *CooldownError) Unwrap() error { return ErrScanCooldown }
