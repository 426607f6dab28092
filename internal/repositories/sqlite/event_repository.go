package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/Genoux/website/internal/domain"
	"github.com/Genoux/website/internal/repositories"
)

const eventColumns = `id, slug, name, date, time, price, currency, poster, game, form_type, description, location, created_at, updated_at`

// EventRepository reads and writes the events table.
type EventRepository struct {
	db *sql.DB
}

var _ repositories.EventRepository = (*EventRepository)(nil)

func (r *EventRepository) List(ctx context.Context) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY date ASC, time ASC, id ASC`)
	if err != nil {
		return nil, wrapError("events.list", err)
	}
	defer rows.Close()

	var list []domain.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, wrapError("events.list", err)
		}
		list = append(list, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("events.list", err)
	}
	return list, nil
}

func (r *EventRepository) ListIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM events ORDER BY date ASC, time ASC, id ASC`)
	if err != nil {
		return nil, wrapError("events.list_ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapError("events.list_ids", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("events.list_ids", err)
	}
	return ids, nil
}

func (r *EventRepository) FindByID(ctx context.Context, id string) (domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return domain.Event{}, err
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, strings.TrimSpace(id))
	ev, err := scanEvent(row)
	if err != nil {
		return domain.Event{}, wrapError("events.get", err)
	}
	return ev, nil
}

func (r *EventRepository) FindBySlug(ctx context.Context, slug string) (domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return domain.Event{}, err
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Event{}, notFound("events.by_slug", "event with empty slug")
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = ?`, slug)
	ev, err := scanEvent(row)
	if err != nil {
		return domain.Event{}, wrapError("events.by_slug", err)
	}
	return ev, nil
}

func (r *EventRepository) Upsert(ctx context.Context, ev domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO events (`+eventColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    slug = excluded.slug,
    name = excluded.name,
    date = excluded.date,
    time = excluded.time,
    price = excluded.price,
    currency = excluded.currency,
    poster = excluded.poster,
    game = excluded.game,
    form_type = excluded.form_type,
    description = excluded.description,
    location = excluded.location,
    updated_at = excluded.updated_at`,
		ev.ID, ev.Slug, ev.Name, ev.Date, ev.Time, ev.Price, ev.Currency, ev.Poster,
		string(ev.Game), string(ev.FormType), ev.Description, ev.Location,
		toMillis(ev.CreatedAt), toMillis(ev.UpdatedAt),
	)
	return wrapError("events.upsert", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (domain.Event, error) {
	var (
		ev                   domain.Event
		game, formType       string
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&ev.ID, &ev.Slug, &ev.Name, &ev.Date, &ev.Time, &ev.Price, &ev.Currency, &ev.Poster,
		&game, &formType, &ev.Description, &ev.Location, &createdAt, &updatedAt,
	); err != nil {
		return domain.Event{}, err
	}
	ev.Game = domain.GameTag(game)
	ev.FormType = domain.FormType(formType)
	ev.CreatedAt = fromMillis(createdAt)
	ev.UpdatedAt = fromMillis(updatedAt)
	return ev, nil
}
