package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/croissantlabs/ticketflow/internal/payment/application"
	"github.com/croissantlabs/ticketflow/internal/payment/domain"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("payment-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/payments/create", h.createPayment)
	r.Get("/payments/find-all", h.findAllPayments)
	r.Get("/payments/user/{userID}", h.findUserPaymentsChecked)
	r.Get("/payments/user", h.findUserPayments)

	return r
}

type createPaymentReq struct {
	UserID  string             `json:"userId"`
	MovieID int64              `json:"movieId"`
	Amount  int64              `json:"amount"`
	Card    domain.CardDetails `json:"card"`
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreatePayment")
	defer span.End()

	var req createPaymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	intent := domain.PaymentIntent{
		MovieID: req.MovieID,
		Amount:  req.Amount,
		Card:    req.Card,
	}
	if err := intent.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.CreatePayment(ctx, req.UserID, intent)
	if err != nil {
		h.writePaymentError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) writePaymentError(w http.ResponseWriter, err error) {
	var invalid *domain.InvalidCardError

	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrMovieNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrCardServiceUnavailable),
		errors.Is(err, domain.ErrRegistryServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "invalid card",
			"error":   invalid.Result,
		})
	case errors.Is(err, domain.ErrRegistryRecordingFailed):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("create payment failed", "err", err)
		writeError(w, http.StatusInternalServerError, "payment processing failed")
	}
}

func (h *Handler) findAllPayments(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "FindAllPayments")
	defer span.End()

	q := application.PaymentQuery{
		Status:        domain.Status(r.URL.Query().Get("status")),
		Page:          queryInt(r, "page", 1),
		PageSize:      queryInt(r, "pageSize", 10),
		CreatedAtDesc: r.URL.Query().Get("order") != "asc",
	}
	if q.Page < 1 || q.PageSize < 1 || q.PageSize > 100 {
		writeError(w, http.StatusBadRequest, "invalid pagination")
		return
	}

	page, err := h.service.FindAllPayments(ctx, q)
	if err != nil {
		h.log.Error("find all payments failed", "err", err)
		writeError(w, http.StatusInternalServerError, "payment lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) findUserPaymentsChecked(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "FindUserPayments")
	defer span.End()

	payments, err := h.service.FindUserPaymentsChecked(ctx, chi.URLParam(r, "userID"))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error("find user payments failed", "err", err)
		writeError(w, http.StatusInternalServerError, "payment lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *Handler) findUserPayments(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "FindOwnPayments")
	defer span.End()

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	payments, err := h.service.FindUserPayments(ctx, userID)
	if err != nil {
		h.log.Error("find user payments failed", "err", err)
		writeError(w, http.StatusInternalServerError, "payment lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
