package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"nomen/internal/sentinel"
	"nomen/internal/user/models"
)

// Postgres persists user records in PostgreSQL, users and names in separate
// tables joined by name_id. Save writes both rows inside one transaction; the
// single-key read-your-writes guarantee the service relies on comes from
// that, nothing stronger.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const userColumns = `
	u.id, u.username, u.full_name, u.first_name, u.last_name,
	u.created_at, u.updated_at,
	n.id, n.first_name, n.last_name, n.created_at, n.updated_at
`

const userSelect = `
	SELECT ` + userColumns + `
	FROM users u
	LEFT JOIN names n ON n.id = u.name_id
`

// FindByID retrieves a user by its surrogate id.
func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, userSelect+` WHERE u.id = $1`, id))
}

// FindByUsername retrieves a user by its natural key.
func (s *Postgres) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, userSelect+` WHERE u.username = $1`, username))
}

// Save upserts the user and its name sub-record in one transaction.
func (s *Postgres) Save(ctx context.Context, user *models.User) (*models.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var nameID any
	if user.Name != nil {
		nameID = user.Name.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO names (id, first_name, last_name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				updated_at = EXCLUDED.updated_at
		`, user.Name.ID, nullStr(user.Name.FirstName), nullStr(user.Name.LastName),
			user.Name.CreatedAt, user.Name.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("save name: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, username, full_name, first_name, last_name, name_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			name_id = EXCLUDED.name_id,
			updated_at = EXCLUDED.updated_at
	`, user.ID, user.Username, nullStr(user.FullName), nullStr(user.FirstName),
		nullStr(user.LastName), nameID, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("username must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return nil, fmt.Errorf("save user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit save: %w", err)
	}
	return s.FindByUsername(ctx, user.Username)
}

// DeleteByUsername removes the user and its name sub-record, returning the
// previous value.
func (s *Postgres) DeleteByUsername(ctx context.Context, username string) (*models.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	previous, err := scanUser(tx.QueryRowContext(ctx, userSelect+` WHERE u.username = $1`, username))
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE username = $1`, username); err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}
	if previous.Name != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM names WHERE id = $1`, previous.Name.ID); err != nil {
			return nil, fmt.Errorf("delete name: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete: %w", err)
	}
	return previous, nil
}

// FindMigrationEligible returns every record missing split names or the name
// sub-record.
func (s *Postgres) FindMigrationEligible(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, userSelect+`
		WHERE u.name_id IS NULL
		   OR (u.first_name IS NULL AND u.full_name IS NOT NULL)
	`)
	if err != nil {
		return nil, fmt.Errorf("find migration eligible: %w", err)
	}
	defer rows.Close()

	var eligible []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		eligible = append(eligible, u)
	}
	return eligible, rows.Err()
}

// FindNameByID retrieves a name sub-record by id.
func (s *Postgres) FindNameByID(ctx context.Context, id uuid.UUID) (*models.Name, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, created_at, updated_at
		FROM names WHERE id = $1
	`, id)

	var n models.Name
	var first, last sql.NullString
	err := row.Scan(&n.ID, &first, &last, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find name: %w", err)
	}
	n.FirstName = first.String
	n.LastName = last.String
	return &n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var fullName, firstName, lastName sql.NullString
	var nameID uuid.NullUUID
	var nameFirst, nameLast sql.NullString
	var nameCreated, nameUpdated sql.NullTime

	err := row.Scan(
		&u.ID, &u.Username, &fullName, &firstName, &lastName,
		&u.CreatedAt, &u.UpdatedAt,
		&nameID, &nameFirst, &nameLast, &nameCreated, &nameUpdated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.FullName = fullName.String
	u.FirstName = firstName.String
	u.LastName = lastName.String
	if nameID.Valid {
		u.Name = &models.Name{
			ID:        nameID.UUID,
			FirstName: nameFirst.String,
			LastName:  nameLast.String,
			CreatedAt: nameCreated.Time,
			UpdatedAt: nameUpdated.Time,
		}
	}
	return &u, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
