package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/croissantlabs/ticketflow/internal/payment/application"
	"github.com/croissantlabs/ticketflow/internal/payment/domain"
)

// Repository reads users, movies and payments. Payments are written by the
// registry service; nothing here mutates them.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) FindUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, `SELECT id FROM users WHERE id=$1`, id).Scan(&u.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (r *Repository) FindMoviePrice(ctx context.Context, id int64) (domain.Movie, error) {
	var m domain.Movie
	err := r.pool.QueryRow(ctx, `SELECT id, price FROM movies WHERE id=$1`, id).Scan(&m.ID, &m.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Movie{}, domain.ErrMovieNotFound
	}
	if err != nil {
		return domain.Movie{}, err
	}
	return m, nil
}

func (r *Repository) ListPayments(ctx context.Context, q application.PaymentQuery) ([]domain.Payment, error) {
	order := "ASC"
	if q.CreatedAtDesc {
		order = "DESC"
	}
	query := `SELECT id, user_id, movie_id, total, amount, status, created_at
		FROM payments
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at ` + order + `
		LIMIT $2 OFFSET $3`

	offset := (q.Page - 1) * q.PageSize
	rows, err := r.pool.Query(ctx, query, string(q.Status), q.PageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPayments(rows)
}

func (r *Repository) CountPayments(ctx context.Context, status domain.Status) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM payments WHERE ($1 = '' OR status = $1)`,
		string(status),
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) ListUserPayments(ctx context.Context, userID string) ([]domain.Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, movie_id, total, amount, status, created_at
		 FROM payments WHERE user_id=$1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPayments(rows)
}

func scanPayments(rows pgx.Rows) ([]domain.Payment, error) {
	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.MovieID, &p.Total, &p.Amount, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
