package application

import "github.com/croissantlabs/ticketflow/internal/payment/domain"

// mapOutcome translates the card checker's verdict into the caller-facing
// result. By the time it runs the registry has already recorded the attempt
// under whatever status the checker produced, which is why an unknown
// status is treated as an internal inconsistency rather than a rejection.
func mapOutcome(reply domain.CardCheckResult) (domain.CardCheckResult, error) {
	switch reply.Status {
	case domain.StatusSuccess:
		return reply, nil
	case domain.StatusInvalidCard:
		return domain.CardCheckResult{}, &domain.InvalidCardError{Result: reply}
	default:
		return domain.CardCheckResult{}, domain.ErrUnexpectedCardStatus
	}
}
