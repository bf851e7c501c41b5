package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicateEmail is returned by Save when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Repository persists users.
type Repository interface {
	// FindByEmail loads the user row only.
	FindByEmail(ctx context.Context, email string) (User, error)
	// FindByEmailWithRole loads the user together with its role and the role's authorities.
	FindByEmailWithRole(ctx context.Context, email string) (User, error)
	// Save inserts a new user. It writes the user row and nothing else.
	Save(ctx context.Context, user User) (User, error)
}

// DBTX is the subset of pgx used by PostgresRepository. *pgxpool.Pool, *pgx.Conn
// and pgx.Tx all satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DBTX = (*pgxpool.Pool)(nil)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db DBTX
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save inserts a new user. A concurrent insert of the same email surfaces as ErrDuplicateEmail.
func (r *PostgresRepository) Save(ctx context.Context, user User) (User, error) {
	user = prepareInsert(ctx, user, time.Now().UTC().Truncate(time.Microsecond))
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return User{}, fmt.Errorf("parse user id: %w", err)
	}
	var roleID *uuid.UUID
	if user.RoleID != "" {
		id, err := uuid.Parse(user.RoleID)
		if err != nil {
			return User{}, fmt.Errorf("parse role id: %w", err)
		}
		roleID = &id
	}

	_, err = r.db.Exec(ctx, `INSERT INTO users (id, email, password_hash, name, surname, phone, role_id, created_at, updated_at, created_by, updated_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		userID, user.Email, user.PasswordHash, user.Name, user.Surname, user.Phone, roleID,
		user.CreatedAt, user.UpdatedAt, user.CreatedBy, user.UpdatedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	user.Role = nil
	return user, nil
}

// FindByEmail fetches a user by email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT id::text, email, password_hash, name, surname, phone, COALESCE(role_id::text, ''),
        created_at, updated_at, COALESCE(created_by, ''), COALESCE(updated_by, '')
        FROM users WHERE lower(email) = $1`, NormalizeEmail(email))
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Surname, &user.Phone, &user.RoleID,
		&user.CreatedAt, &user.UpdatedAt, &user.CreatedBy, &user.UpdatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}

// FindByEmailWithRole fetches a user, its role and the role's authorities in one query.
func (r *PostgresRepository) FindByEmailWithRole(ctx context.Context, email string) (User, error) {
	const query = `
        SELECT u.id::text, u.email, u.password_hash, u.name, u.surname, u.phone, COALESCE(u.role_id::text, ''),
               u.created_at, u.updated_at, COALESCE(u.created_by, ''), COALESCE(u.updated_by, ''),
               COALESCE(r.name, ''), COALESCE(a.id::text, ''), COALESCE(a.name, '')
        FROM users u
        LEFT JOIN roles r ON r.id = u.role_id
        LEFT JOIN role_authorities ra ON ra.role_id = r.id
        LEFT JOIN authorities a ON a.id = ra.authority_id
        WHERE lower(u.email) = $1
        ORDER BY a.name`
	rows, err := r.db.Query(ctx, query, NormalizeEmail(email))
	if err != nil {
		return User{}, fmt.Errorf("find user with role: %w", err)
	}
	defer rows.Close()

	var (
		user  User
		found bool
	)
	for rows.Next() {
		var roleName, authorityID, authorityName string
		if err := rows.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Surname, &user.Phone, &user.RoleID,
			&user.CreatedAt, &user.UpdatedAt, &user.CreatedBy, &user.UpdatedBy,
			&roleName, &authorityID, &authorityName); err != nil {
			return User{}, fmt.Errorf("scan user with role: %w", err)
		}
		found = true
		if user.RoleID == "" {
			continue
		}
		if user.Role == nil {
			user.Role = &Role{ID: user.RoleID, Name: roleName}
		}
		if authorityID != "" {
			user.Role.Authorities = append(user.Role.Authorities, Authority{ID: authorityID, Name: authorityName})
		}
	}
	if err := rows.Err(); err != nil {
		return User{}, fmt.Errorf("iterate user with role: %w", err)
	}
	if !found {
		return User{}, ErrNotFound
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}
