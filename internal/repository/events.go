package repository

import (
	"context"
	"database/sql"

	"fastticket/internal/database"
	"fastticket/internal/models"
)

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (name, description, location, price, total_tickets, tickets_sold, date)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		RETURNING id, tickets_sold, created_at`

	return r.db.QueryRowContext(ctx, query,
		event.Name,
		event.Description,
		event.Location,
		event.Price,
		event.TotalTickets,
		event.Date,
	).Scan(&event.ID, &event.TicketsSold, &event.CreatedAt)
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event := &models.Event{}
	query := `
		SELECT id, name, description, location, price, total_tickets, tickets_sold, date, created_at
		FROM events
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Name,
		&event.Description,
		&event.Location,
		&event.Price,
		&event.TotalTickets,
		&event.TicketsSold,
		&event.Date,
		&event.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return event, err
}

func (r *EventRepository) List(ctx context.Context, offset, limit int) ([]models.Event, error) {
	var events []models.Event
	query := `
		SELECT id, name, description, location, price, total_tickets, tickets_sold, date, created_at
		FROM events
		ORDER BY date
		OFFSET $1 LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID,
			&event.Name,
			&event.Description,
			&event.Location,
			&event.Price,
			&event.TotalTickets,
			&event.TicketsSold,
			&event.Date,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
