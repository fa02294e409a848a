package application

import (
	"context"

	"github.com/croissantlabs/ticketflow/internal/payment/domain"
)

// Store is the read-only persistence collaborator. Payment rows are written
// by the registry service, never here.
type Store interface {
	FindUser(ctx context.Context, id string) (domain.User, error)
	FindMoviePrice(ctx context.Context, id int64) (domain.Movie, error)
	ListPayments(ctx context.Context, q PaymentQuery) ([]domain.Payment, error)
	CountPayments(ctx context.Context, status domain.Status) (int64, error)
	ListUserPayments(ctx context.Context, userID string) ([]domain.Payment, error)
}

type CardChecker interface {
	Check(ctx context.Context, req domain.ChargeRequest) (domain.CardCheckResult, error)
}

type PaymentRegistry interface {
	Register(ctx context.Context, req domain.RegistryRequest) (domain.RegistryResult, error)
}
