package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cindycandyy/fe-kpl/internal/domain/booking"
	"github.com/cindycandyy/fe-kpl/internal/domain/transaction"
)

type bookingRow struct {
	ID             string    `db:"id"`
	EventID        string    `db:"event_id"`
	TicketTypeID   string    `db:"ticket_type_id"`
	UserID         string    `db:"user_id"`
	Quantity       int       `db:"quantity"`
	UnitPrice      int64     `db:"unit_price"`
	TotalPrice     int64     `db:"total_price"`
	Status         string    `db:"status"`
	IdempotencyKey string    `db:"idempotency_key"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r *bookingRow) toEntity() *booking.Booking {
	return &booking.Booking{
		ID: r.ID, EventID: r.EventID, TicketTypeID: r.TicketTypeID, UserID: r.UserID,
		Quantity: r.Quantity, UnitPrice: r.UnitPrice, TotalPrice: r.TotalPrice,
		Status: booking.Status(r.Status), IdempotencyKey: r.IdempotencyKey, CreatedAt: r.CreatedAt,
	}
}

const bookingColumns = `id, event_id, ticket_type_id, user_id, quantity, unit_price, total_price, status, idempotency_key, created_at`

// BookingRepository は予約送信サービスと予約参照のPostgreSQL実装
// 残数の減算と予約の登録を1トランザクションで行う
type BookingRepository struct {
	db  *sqlx.DB
	txm transaction.Manager
}

func NewBookingRepository(db *sqlx.DB, txm transaction.Manager) *BookingRepository {
	return &BookingRepository{db: db, txm: txm}
}

// Submit は残数を減らして予約を確定する
// 残数が足りない場合は booking.ErrCapacityExceeded を返す
func (r *BookingRepository) Submit(ctx context.Context, req booking.Request) (*booking.Booking, error) {
	if existing, err := r.GetByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey); err == nil {
		return sameRequest(existing, req)
	} else if !errors.Is(err, booking.ErrBookingNotFound) {
		return nil, fmt.Errorf("%w: %v", booking.ErrServiceError, err)
	}

	var created *booking.Booking
	err := transaction.Run(ctx, r.txm, func(t transaction.Tx) error {
		tx := unwrapTx(t)

		var unitPrice int64
		err := tx.QueryRowContext(ctx, `
			UPDATE ticket_types SET available = available - $1
			WHERE event_id = $2 AND id = $3 AND available >= $1
			RETURNING price`,
			req.Quantity, req.EventID, req.TicketTypeID,
		).Scan(&unitPrice)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return booking.ErrCapacityExceeded
			}
			return fmt.Errorf("%w: 残数の更新に失敗: %v", booking.ErrServiceError, err)
		}

		b := booking.NewBooking(req, unitPrice)
		err = tx.QueryRowContext(ctx, `
			INSERT INTO bookings (event_id, ticket_type_id, user_id, quantity, unit_price, total_price, status, idempotency_key, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			b.EventID, b.TicketTypeID, b.UserID, b.Quantity, b.UnitPrice, b.TotalPrice, string(b.Status), b.IdempotencyKey, b.CreatedAt,
		).Scan(&b.ID)
		if err != nil {
			return err
		}
		created = b
		return nil
	})
	if err == nil {
		return created, nil
	}
	// 同じ冪等性キーの予約が先に確定していれば、同じ内容の場合に限りそれを返す
	if hasPQCode(err, pqUniqueViolation) {
		existing, gerr := r.GetByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
		if gerr != nil {
			return nil, gerr
		}
		return sameRequest(existing, req)
	}
	if errors.Is(err, booking.ErrCapacityExceeded) || errors.Is(err, booking.ErrServiceError) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %v", booking.ErrServiceError, err)
}

func sameRequest(existing *booking.Booking, req booking.Request) (*booking.Booking, error) {
	if !existing.Matches(req) {
		return nil, booking.ErrIdempotencyKeyReused
	}
	return existing, nil
}

// GetByID はIDから予約を取得する
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

// GetByIdempotencyKey はユーザーと冪等性キーから予約を取得する
func (r *BookingRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*booking.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 AND idempotency_key = $2`, userID, key)
}

// ListByUser はユーザーの予約一覧を新しい順に取得する
func (r *BookingRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	var rows []bookingRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗しました: %w", err)
	}
	bookings := make([]*booking.Booking, len(rows))
	for i := range rows {
		bookings[i] = rows[i].toEntity()
	}
	return bookings, nil
}

func (r *BookingRepository) getOne(ctx context.Context, query string, args ...any) (*booking.Booking, error) {
	var row bookingRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) || hasPQCode(err, pqInvalidTextRepresent) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

var (
	_ booking.Submitter  = (*BookingRepository)(nil)
	_ booking.Repository = (*BookingRepository)(nil)
)
