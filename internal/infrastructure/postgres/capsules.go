package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/time-capsule-api/internal/domain"
)

// CapsuleRepo provides typed Postgres operations for capsules and their members.
type CapsuleRepo struct {
	db *pgxpool.Pool
}

func NewCapsuleRepo(db *pgxpool.Pool) *CapsuleRepo {
	return &CapsuleRepo{db: db}
}

const capsuleColumns = `
	c.id, c.owner_id, c.title, c.message, c.unlock_date, c.is_group, c.created_at,
	c.reminder_sent_at, c.created_email_sent_at,
	COALESCE(ARRAY(SELECT m.user_id FROM capsule_members m WHERE m.capsule_id = c.id ORDER BY m.user_id), '{}')`

// Create inserts the capsule and, for group capsules, one membership row per member.
func (r *CapsuleRepo) Create(ctx context.Context, c *domain.Capsule) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO capsules (id, owner_id, title, message, unlock_date, is_group, created_at)
			VALUES (@id, @owner_id, @title, @message, @unlock_date, @is_group, @created_at)`,
			pgx.NamedArgs{
				"id":          c.ID,
				"owner_id":    c.OwnerID,
				"title":       c.Title,
				"message":     c.Message,
				"unlock_date": c.UnlockDate,
				"is_group":    c.IsGroup,
				"created_at":  c.CreatedAt,
			})
		if err != nil {
			return fmt.Errorf("insert capsule: %w", err)
		}
		if !c.IsGroup {
			return nil
		}
		c.Members = dedupe(c.Members, c.OwnerID)
		for _, member := range c.Members {
			if _, err := tx.Exec(ctx,
				`INSERT INTO capsule_members (capsule_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				c.ID, member); err != nil {
				return fmt.Errorf("insert member: %w", err)
			}
		}
		return nil
	})
}

func (r *CapsuleRepo) Get(ctx context.Context, capsuleID string) (*domain.Capsule, error) {
	row := r.db.QueryRow(ctx, `SELECT `+capsuleColumns+` FROM capsules c WHERE c.id = $1`, capsuleID)
	c, err := scanCapsule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("capsule not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListOwned returns capsules owned by userID, newest first.
func (r *CapsuleRepo) ListOwned(ctx context.Context, userID string) ([]domain.Capsule, error) {
	return r.list(ctx, `SELECT `+capsuleColumns+`
		FROM capsules c
		WHERE c.owner_id = $1
		ORDER BY c.created_at DESC, c.id DESC`, userID)
}

// ListShared returns group capsules where userID is a member, newest first.
func (r *CapsuleRepo) ListShared(ctx context.Context, userID string) ([]domain.Capsule, error) {
	return r.list(ctx, `SELECT `+capsuleColumns+`
		FROM capsules c
		JOIN capsule_members cm ON cm.capsule_id = c.id
		WHERE cm.user_id = $1 AND c.is_group
		ORDER BY c.created_at DESC, c.id DESC`, userID)
}

// ListDueForReminder returns capsules with from < unlock_date <= to and no reminder sent yet.
func (r *CapsuleRepo) ListDueForReminder(ctx context.Context, from, to time.Time) ([]domain.Capsule, error) {
	return r.list(ctx, `SELECT `+capsuleColumns+`
		FROM capsules c
		WHERE c.unlock_date > $1 AND c.unlock_date <= $2 AND c.reminder_sent_at IS NULL
		ORDER BY c.unlock_date ASC`, from, to)
}

func (r *CapsuleRepo) Update(ctx context.Context, capsuleID string, updates map[string]interface{}) error {
	set, args, err := buildPatch(updates)
	if err != nil {
		return err
	}
	args["id"] = capsuleID
	tag, err := r.db.Exec(ctx, `UPDATE capsules SET `+set+` WHERE id = @id`, args)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("capsule not found: %w", domain.ErrNotFound)
	}
	return nil
}

// MarkReminderSent stamps the reminder only if no reminder was stamped before.
func (r *CapsuleRepo) MarkReminderSent(ctx context.Context, capsuleID string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE capsules SET reminder_sent_at = $2 WHERE id = $1 AND reminder_sent_at IS NULL`,
		capsuleID, at)
	return err
}

func (r *CapsuleRepo) MarkCreatedEmailSent(ctx context.Context, capsuleID string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE capsules SET created_email_sent_at = $2 WHERE id = $1`, capsuleID, at)
	return err
}

// Delete removes the capsule; media and membership rows cascade.
func (r *CapsuleRepo) Delete(ctx context.Context, capsuleID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM capsules WHERE id = $1`, capsuleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("capsule not found: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *CapsuleRepo) list(ctx context.Context, query string, args ...any) ([]domain.Capsule, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Capsule
	for rows.Next() {
		c, err := scanCapsule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanCapsule(row pgx.Row) (*domain.Capsule, error) {
	var c domain.Capsule
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Title, &c.Message, &c.UnlockDate, &c.IsGroup, &c.CreatedAt,
		&c.ReminderSentAt, &c.CreatedEmailSentAt, &c.Members,
	)
	if err != nil {
		return nil, err
	}
	c.UnlockDate = c.UnlockDate.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}
