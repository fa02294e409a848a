package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/croissantlabs/ticketflow/internal/payment/domain"
	"github.com/croissantlabs/ticketflow/pkg/metrics"
)

const defaultPageSize = 10

// PaymentQuery filters and paginates the payment listing. Page is 1-based.
type PaymentQuery struct {
	Status        domain.Status
	Page          int
	PageSize      int
	CreatedAtDesc bool
}

type PaymentPage struct {
	Payments  []domain.Payment `json:"payments"`
	Count     int64            `json:"count"`
	Page      int              `json:"page"`
	PageSize  int              `json:"pageSize"`
	PageCount int64            `json:"pageCount"`
}

type Service struct {
	log      *slog.Logger
	store    Store
	checker  CardChecker
	registry PaymentRegistry
	metrics  *metrics.Metrics
}

func NewService(log *slog.Logger, store Store, checker CardChecker, registry PaymentRegistry, m *metrics.Metrics) *Service {
	return &Service{
		log:      log,
		store:    store,
		checker:  checker,
		registry: registry,
		metrics:  m,
	}
}

// CreatePayment runs one payment attempt end to end: resolve the user and
// the movie price, authorize the charge with the card checker, then record
// the attempt with the registry. The registry call is made regardless of
// the card check verdict so rejected attempts are on record too; it is
// skipped only when the checker never answered. Every downstream failure is
// terminal for this invocation, nothing is retried here.
func (s *Service) CreatePayment(ctx context.Context, userID string, intent domain.PaymentIntent) (domain.CardCheckResult, error) {
	res, err := s.createPayment(ctx, userID, intent)
	s.metrics.PaymentOutcomes.WithLabelValues(outcomeLabel(err)).Inc()
	return res, err
}

func (s *Service) createPayment(ctx context.Context, userID string, intent domain.PaymentIntent) (domain.CardCheckResult, error) {
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return domain.CardCheckResult{}, err
	}

	movie, err := s.store.FindMoviePrice(ctx, intent.MovieID)
	if err != nil {
		// A lookup failure is indistinguishable from a missing movie for
		// the caller.
		return domain.CardCheckResult{}, domain.ErrMovieNotFound
	}

	total := movie.Price * intent.Amount

	checkReply, err := s.checker.Check(ctx, domain.ChargeRequest{
		Total: total,
		Card:  intent.Card,
	})
	if err != nil {
		s.log.Warn("card check failed", "user_id", user.ID, "movie_id", movie.ID, "err", err)
		return domain.CardCheckResult{}, domain.ErrCardServiceUnavailable
	}

	regReply, err := s.registry.Register(ctx, domain.RegistryRequest{
		UserID:  user.ID,
		MovieID: movie.ID,
		Total:   total,
		Amount:  intent.Amount,
		Status:  checkReply.Status,
	})
	if err != nil {
		s.log.Warn("payment registration failed", "user_id", user.ID, "movie_id", movie.ID, "err", err)
		return domain.CardCheckResult{}, domain.ErrRegistryServiceUnavailable
	}
	if regReply.Status == "" {
		return domain.CardCheckResult{}, domain.ErrRegistryRecordingFailed
	}

	return mapOutcome(checkReply)
}

// FindAllPayments lists payments with an optional status filter. A failing
// count degrades to zero rather than failing the whole listing. Page and
// PageSize are normalized to sane values so callers cannot trip the page
// arithmetic.
func (s *Service) FindAllPayments(ctx context.Context, q PaymentQuery) (PaymentPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}

	payments, err := s.store.ListPayments(ctx, q)
	if err != nil {
		return PaymentPage{}, err
	}

	count, err := s.store.CountPayments(ctx, q.Status)
	if err != nil {
		s.log.Warn("payment count failed", "err", err)
		count = 0
	}

	pageCount := count / int64(q.PageSize)
	if count%int64(q.PageSize) != 0 {
		pageCount++
	}

	return PaymentPage{
		Payments:  payments,
		Count:     count,
		Page:      q.Page,
		PageSize:  q.PageSize,
		PageCount: pageCount,
	}, nil
}

// FindUserPayments lists the caller's own payments.
func (s *Service) FindUserPayments(ctx context.Context, userID string) ([]domain.Payment, error) {
	return s.store.ListUserPayments(ctx, userID)
}

// FindUserPaymentsChecked is the admin path: it verifies the user exists
// before listing, so a bad user id surfaces as not-found instead of an
// empty list.
func (s *Service) FindUserPaymentsChecked(ctx context.Context, userID string) ([]domain.Payment, error) {
	if _, err := s.store.FindUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListUserPayments(ctx, userID)
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, domain.ErrMovieNotFound):
		return "movie_not_found"
	case errors.Is(err, domain.ErrCardServiceUnavailable):
		return "card_service_unavailable"
	case errors.Is(err, domain.ErrRegistryServiceUnavailable):
		return "registry_unavailable"
	case errors.Is(err, domain.ErrRegistryRecordingFailed):
		return "registry_recording_failed"
	case errors.Is(err, domain.ErrUnexpectedCardStatus):
		return "unexpected_card_status"
	default:
		var invalid *domain.InvalidCardError
		if errors.As(err, &invalid) {
			return "invalid_card"
		}
		return "error"
	}
}
