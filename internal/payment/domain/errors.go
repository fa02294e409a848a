package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrMovieNotFound = errors.New("movie not found")

	ErrCardServiceUnavailable     = errors.New("card checker unavailable")
	ErrRegistryServiceUnavailable = errors.New("payment registry unavailable")
	ErrRegistryRecordingFailed    = errors.New("payment registration failed")

	ErrUnexpectedCardStatus = errors.New("unexpected card checker status")
)

// InvalidCardError carries the card checker's reply so callers can surface
// the rejection diagnostics.
type InvalidCardError struct {
	Result CardCheckResult
}

func (e *InvalidCardError) Error() string {
	return fmt.Sprintf("invalid card: %s", e.Result.Status)
}
