package postgres

import (
	"context"
	"errors"
	"time"

	"volterra/admin-service/internal/models"
	"volterra/admin-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// mapError translates constraint violations into store sentinels.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return store.ErrConflict
	case "23503":
		return store.ErrInvalidReference
	default:
		return err
	}
}

func (s *Store) GetUser(ctx context.Context, userID int64) (models.User, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, name, email, role, image, password_hash, created_at
		FROM users
		WHERE user_id = $1
	`, userID)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, name, email, role, image, password_hash, created_at
		FROM users
		WHERE lower(email) = lower($1)
	`, email)
	return scanUser(row)
}

func scanUser(row pgx.Row) (models.User, bool, error) {
	var user models.User
	var role string
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &role, &user.Image, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, false, nil
		}
		return models.User{}, false, err
	}
	user.Role = models.Role(role)
	user.CreatedAt = user.CreatedAt.UTC()
	return user, true, nil
}

func (s *Store) UpsertUser(ctx context.Context, user models.User) (models.User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, role, image, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ((lower(email))) DO UPDATE
		SET name = EXCLUDED.name, role = EXCLUDED.role, image = EXCLUDED.image, password_hash = EXCLUDED.password_hash
		RETURNING user_id, created_at
	`, user.Name, user.Email, string(user.Role), user.Image, user.PasswordHash)
	if err := row.Scan(&user.ID, &user.CreatedAt); err != nil {
		return models.User{}, mapError(err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

func (s *Store) CreateSession(ctx context.Context, userID int64, expiresAt time.Time) (models.Session, error) {
	session := models.Session{SessionID: uuid.NewString(), UserID: userID, ExpiresAt: expiresAt.UTC()}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO sessions (session_id, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, session.SessionID, userID, session.ExpiresAt)
	if err := row.Scan(&session.CreatedAt); err != nil {
		return models.Session{}, mapError(err)
	}
	session.CreatedAt = session.CreatedAt.UTC()
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	var session models.Session
	row := s.pool.QueryRow(ctx, `
		SELECT session_id, user_id, expires_at, created_at
		FROM sessions
		WHERE session_id = $1 AND expires_at > NOW()
	`, sessionID)
	if err := row.Scan(&session.SessionID, &session.UserID, &session.ExpiresAt, &session.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, store.ErrSessionNotFound
		}
		return models.Session{}, err
	}
	session.ExpiresAt = session.ExpiresAt.UTC()
	session.CreatedAt = session.CreatedAt.UTC()
	return session, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	return err
}
