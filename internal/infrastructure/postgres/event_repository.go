package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cindycandyy/fe-kpl/internal/domain/event"
	"github.com/cindycandyy/fe-kpl/internal/domain/transaction"
)

type eventRow struct {
	ID                string         `db:"id"`
	Title             string         `db:"title"`
	Description       sql.NullString `db:"description"`
	Type              sql.NullString `db:"type"`
	StartAt           time.Time      `db:"start_at"`
	Location          sql.NullString `db:"location"`
	Image             sql.NullString `db:"image"`
	Organizer         sql.NullString `db:"organizer"`
	MaxTicketsPerUser int            `db:"max_tickets_per_user"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

type ticketTypeRow struct {
	EventID     string         `db:"event_id"`
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Price       int64          `db:"price"`
	Quota       int            `db:"quota"`
	Available   int            `db:"available"`
	Description sql.NullString `db:"description"`
}

func (r *eventRow) toEntity(tickets []ticketTypeRow) *event.Event {
	e := &event.Event{
		ID:                r.ID,
		Title:             r.Title,
		Description:       r.Description.String,
		Type:              r.Type.String,
		StartAt:           r.StartAt,
		Location:          r.Location.String,
		Image:             r.Image.String,
		Organizer:         r.Organizer.String,
		MaxTicketsPerUser: r.MaxTicketsPerUser,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		TicketTypes:       make([]event.TicketType, 0, len(tickets)),
	}
	for _, t := range tickets {
		e.TicketTypes = append(e.TicketTypes, event.TicketType{
			ID:          t.ID,
			EventID:     t.EventID,
			Name:        t.Name,
			Price:       t.Price,
			Quota:       t.Quota,
			Available:   t.Available,
			Description: t.Description.String,
		})
	}
	return e
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const eventColumns = `id, title, description, type, start_at, location, image, organizer, max_tickets_per_user, created_at, updated_at`

// EventRepository はイベントリポジトリのPostgreSQL実装
type EventRepository struct {
	db  *sqlx.DB
	txm transaction.Manager
}

func NewEventRepository(db *sqlx.DB, txm transaction.Manager) *EventRepository {
	return &EventRepository{db: db, txm: txm}
}

// Create はイベントと券種を1トランザクションで作成する
func (r *EventRepository) Create(ctx context.Context, e *event.Event) error {
	return transaction.Run(ctx, r.txm, func(t transaction.Tx) error {
		tx := unwrapTx(t)
		err := tx.QueryRowContext(ctx, `
			INSERT INTO events (title, description, type, start_at, location, image, organizer, max_tickets_per_user, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`,
			e.Title, nullString(e.Description), nullString(e.Type), e.StartAt, nullString(e.Location),
			nullString(e.Image), nullString(e.Organizer), e.MaxTicketsPerUser, e.CreatedAt, e.UpdatedAt,
		).Scan(&e.ID)
		if err != nil {
			return fmt.Errorf("イベント作成に失敗しました: %w", err)
		}

		for i := range e.TicketTypes {
			tt := &e.TicketTypes[i]
			tt.EventID = e.ID
			_, err := tx.ExecContext(ctx, `
				INSERT INTO ticket_types (event_id, id, position, name, price, quota, available, description)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				e.ID, tt.ID, i, tt.Name, tt.Price, tt.Quota, tt.Available, nullString(tt.Description),
			)
			if err != nil {
				return fmt.Errorf("券種作成に失敗しました: %w", err)
			}
		}
		return nil
	})
}

// GetByID はIDからイベントのスナップショットを取得する
func (r *EventRepository) GetByID(ctx context.Context, id string) (*event.Event, error) {
	var row eventRow
	err := r.db.GetContext(ctx, &row, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	if err != nil {
		// UUID形式でないIDも存在しないものとして扱う
		if errors.Is(err, sql.ErrNoRows) || hasPQCode(err, pqInvalidTextRepresent) {
			return nil, event.ErrEventNotFound
		}
		return nil, fmt.Errorf("%w: %v", event.ErrEventUnavailable, err)
	}

	var tickets []ticketTypeRow
	err = r.db.SelectContext(ctx, &tickets, `
		SELECT event_id, id, name, price, quota, available, description
		FROM ticket_types WHERE event_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", event.ErrEventUnavailable, err)
	}
	return row.toEntity(tickets), nil
}

// List はイベント一覧を開催日時の昇順で取得する
func (r *EventRepository) List(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	var rows []eventRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+eventColumns+` FROM events ORDER BY start_at ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", event.ErrEventUnavailable, err)
	}
	if len(rows) == 0 {
		return []*event.Event{}, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	var tickets []ticketTypeRow
	err = r.db.SelectContext(ctx, &tickets, `
		SELECT event_id, id, name, price, quota, available, description
		FROM ticket_types WHERE event_id::text = ANY($1) ORDER BY event_id, position`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", event.ErrEventUnavailable, err)
	}
	byEvent := make(map[string][]ticketTypeRow, len(rows))
	for _, t := range tickets {
		byEvent[t.EventID] = append(byEvent[t.EventID], t)
	}

	events := make([]*event.Event, len(rows))
	for i := range rows {
		events[i] = rows[i].toEntity(byEvent[rows[i].ID])
	}
	return events, nil
}

var _ event.Repository = (*EventRepository)(nil)
