package domain

import (
	"errors"
	"regexp"
	"time"
)

type Status string

const (
	StatusSuccess     Status = "SUCCESS"
	StatusInvalidCard Status = "INVALID_CARD"
)

// CardDetails travels to the card checker and nowhere else. It is never
// persisted and must never appear in logs.
type CardDetails struct {
	CardNumber     string `json:"cardNumber"`
	CardHolder     string `json:"cardHolder"`
	ExpirationDate string `json:"expirationDate"`
	SecurityCode   int    `json:"securityCode"`
}

// PaymentIntent is the caller input for one payment attempt.
type PaymentIntent struct {
	MovieID int64
	Amount  int64
	Card    CardDetails
}

var (
	cardNumberRe = regexp.MustCompile(`^[0-9]{16}$`)
	expiryRe     = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)
)

func (i PaymentIntent) Validate() error {
	if i.MovieID <= 0 {
		return errors.New("movie id must be positive")
	}
	if i.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	if !cardNumberRe.MatchString(i.Card.CardNumber) {
		return errors.New("card number must be 16 digits")
	}
	if i.Card.CardHolder == "" {
		return errors.New("card holder is required")
	}
	if !expiryRe.MatchString(i.Card.ExpirationDate) {
		return errors.New("expiration date must be MM/YY")
	}
	if i.Card.SecurityCode < 0 || i.Card.SecurityCode > 999 {
		return errors.New("security code must be between 0 and 999")
	}
	return nil
}

// ChargeRequest is the card checker wire payload.
type ChargeRequest struct {
	Total int64       `json:"total"`
	Card  CardDetails `json:"card"`
}

type CardCheckResult struct {
	Status Status `json:"status"`
}

// RegistryRequest is sent for every attempt, rejected cards included; the
// registry keeps the audit trail of failed attempts too.
type RegistryRequest struct {
	UserID  string `json:"userId"`
	MovieID int64  `json:"movieId"`
	Total   int64  `json:"total"`
	Amount  int64  `json:"amount"`
	Status  Status `json:"status"`
}

type RegistryResult struct {
	Status Status `json:"status"`
}

type User struct {
	ID string
}

type Movie struct {
	ID    int64
	Price int64
}

// Payment is owned by the registry service; this service only reads it.
type Payment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	MovieID   int64     `json:"movieId"`
	Total     int64     `json:"total"`
	Amount    int64     `json:"amount"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}
