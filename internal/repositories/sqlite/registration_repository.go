package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Genoux/website/internal/domain"
	"github.com/Genoux/website/internal/repositories"
)

const registrationColumns = `id, event_id, name, email, discord, riot_id, rank, fields_json, status, checkout_session_id, payment_intent_id, created_at, updated_at, paid_at`

// RegistrationRepository reads and writes the event_registrations table.
type RegistrationRepository struct {
	db *sql.DB
}

var _ repositories.RegistrationRepository = (*RegistrationRepository)(nil)

func (r *RegistrationRepository) Insert(ctx context.Context, reg domain.Registration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fields, err := encodeFields(reg.Fields)
	if err != nil {
		return err
	}
	var paidAt sql.NullInt64
	if reg.PaidAt != nil {
		paidAt = sql.NullInt64{Int64: toMillis(*reg.PaidAt), Valid: true}
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO event_registrations (`+registrationColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.ID, reg.EventID, reg.Name, reg.Email, reg.Discord, reg.RiotID, reg.Rank, fields,
		string(reg.Status), reg.CheckoutSessionID, reg.PaymentIntentID,
		toMillis(reg.CreatedAt), toMillis(reg.UpdatedAt), paidAt,
	)
	return wrapError("event_registrations.insert", err)
}

func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (domain.Registration, error) {
	if err := ctx.Err(); err != nil {
		return domain.Registration{}, err
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM event_registrations WHERE id = ?`, strings.TrimSpace(id))
	reg, err := scanRegistration(row)
	if err != nil {
		return domain.Registration{}, wrapError("event_registrations.get", err)
	}
	return reg, nil
}

func (r *RegistrationRepository) FindByCheckoutSession(ctx context.Context, sessionID string) (domain.Registration, error) {
	if err := ctx.Err(); err != nil {
		return domain.Registration{}, err
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Registration{}, notFound("event_registrations.by_session", "registration with empty session")
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM event_registrations WHERE checkout_session_id = ? LIMIT 1`, sessionID)
	reg, err := scanRegistration(row)
	if err != nil {
		return domain.Registration{}, wrapError("event_registrations.by_session", err)
	}
	return reg, nil
}

func (r *RegistrationRepository) AttachCheckoutSession(ctx context.Context, id, sessionID string, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE event_registrations SET checkout_session_id = ?, updated_at = ? WHERE id = ?`,
		sessionID, toMillis(updatedAt), id,
	)
	return r.expectOne("event_registrations.attach_session", id, res, err)
}

func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id string, update repositories.StatusUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var paidAt sql.NullInt64
	if update.PaidAt != nil {
		paidAt = sql.NullInt64{Int64: toMillis(*update.PaidAt), Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE event_registrations SET
    status = ?,
    updated_at = ?,
    payment_intent_id = CASE WHEN ? <> '' THEN ? ELSE payment_intent_id END,
    paid_at = COALESCE(?, paid_at)
WHERE id = ?`,
		string(update.Status), toMillis(update.UpdatedAt),
		update.PaymentIntentID, update.PaymentIntentID,
		paidAt, id,
	)
	return r.expectOne("event_registrations.update_status", id, res, err)
}

func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]domain.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+registrationColumns+` FROM event_registrations WHERE event_id = ? ORDER BY created_at ASC, id ASC`, eventID)
	if err != nil {
		return nil, wrapError("event_registrations.list", err)
	}
	defer rows.Close()

	var list []domain.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, wrapError("event_registrations.list", err)
		}
		list = append(list, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("event_registrations.list", err)
	}
	return list, nil
}

func (r *RegistrationRepository) expectOne(op, id string, res sql.Result, err error) error {
	if err != nil {
		return wrapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapError(op, err)
	}
	if n == 0 {
		return notFound(op, "registration "+id)
	}
	return nil
}

func encodeFields(fields map[string]string) (string, error) {
	if len(fields) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode registration fields: %w", err)
	}
	return string(data), nil
}

func scanRegistration(row rowScanner) (domain.Registration, error) {
	var (
		reg                  domain.Registration
		fields, status       string
		createdAt, updatedAt int64
		paidAt               sql.NullInt64
	)
	if err := row.Scan(
		&reg.ID, &reg.EventID, &reg.Name, &reg.Email, &reg.Discord, &reg.RiotID, &reg.Rank, &fields,
		&status, &reg.CheckoutSessionID, &reg.PaymentIntentID, &createdAt, &updatedAt, &paidAt,
	); err != nil {
		return domain.Registration{}, err
	}
	if fields != "" && fields != "{}" {
		if err := json.Unmarshal([]byte(fields), &reg.Fields); err != nil {
			return domain.Registration{}, fmt.Errorf("decode registration fields: %w", err)
		}
	}
	reg.Status = domain.RegistrationStatus(status)
	reg.CreatedAt = fromMillis(createdAt)
	reg.UpdatedAt = fromMillis(updatedAt)
	if paidAt.Valid {
		t := fromMillis(paidAt.Int64)
		reg.PaidAt = &t
	}
	return reg, nil
}
