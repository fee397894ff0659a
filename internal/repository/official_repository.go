package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
)

var (
	// ErrDuplicateEmail is returned when an official with the same email exists.
	ErrDuplicateEmail = errors.New("official email already exists")

	// ErrRefreshTokenRevoked is returned when a refresh token was revoked by an earlier call.
	ErrRefreshTokenRevoked = errors.New("refresh token already revoked")
)

const officialColumns = "id, email, password_hash, full_name, role, department, designation, block, active, last_login, created_at, updated_at"

// OfficialRepository provides database access for officials and their sessions.
type OfficialRepository struct {
	db      *sqlx.DB
	builder squirrel.StatementBuilderType
}

// NewOfficialRepository creates a new instance of OfficialRepository.
func NewOfficialRepository(db *sqlx.DB) *OfficialRepository {
	return &OfficialRepository{db: db, builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

// FindByEmail returns an official by email address.
func (r *OfficialRepository) FindByEmail(ctx context.Context, email string) (*models.Official, error) {
	query := `SELECT ` + officialColumns + ` FROM officials WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var official models.Official
	if err := r.db.GetContext(ctx, &official, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find official by email: %w", err)
	}
	return &official, nil
}

// FindByID returns an official by identifier.
func (r *OfficialRepository) FindByID(ctx context.Context, id string) (*models.Official, error) {
	query := `SELECT ` + officialColumns + ` FROM officials WHERE id = $1 LIMIT 1`
	var official models.Official
	if err := r.db.GetContext(ctx, &official, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find official by id: %w", err)
	}
	return &official, nil
}

// FindOfficerByName looks up an active admin officer by display name.
func (r *OfficialRepository) FindOfficerByName(ctx context.Context, name string) (*models.Officer, error) {
	const query = `SELECT id, full_name, department, designation FROM officials WHERE role = $1 AND active = TRUE AND LOWER(full_name) = LOWER($2) ORDER BY created_at LIMIT 1`
	var officer models.Officer
	if err := r.db.GetContext(ctx, &officer, query, models.RoleAdmin, strings.TrimSpace(name)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find officer by name: %w", err)
	}
	return &officer, nil
}

// ListOfficers returns the active officers applications can be assigned to.
func (r *OfficialRepository) ListOfficers(ctx context.Context, department string) ([]models.Officer, error) {
	q := r.builder.Select("id", "full_name", "department", "designation").
		From("officials").
		Where(squirrel.Eq{"role": models.RoleAdmin, "active": true}).
		OrderBy("full_name")
	if department != "" {
		q = q.Where(squirrel.Eq{"department": department})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list officers: %w", err)
	}
	var officers []models.Officer
	if err := r.db.SelectContext(ctx, &officers, query, args...); err != nil {
		return nil, fmt.Errorf("list officers: %w", err)
	}
	return officers, nil
}

// List returns officials based on filters with total count.
func (r *OfficialRepository) List(ctx context.Context, filter models.OfficialFilter, page, pageSize int) ([]models.Official, int, error) {
	where := squirrel.And{}
	if filter.Role != nil {
		where = append(where, squirrel.Eq{"role": *filter.Role})
	}
	if filter.Active != nil {
		where = append(where, squirrel.Eq{"active": *filter.Active})
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		where = append(where, squirrel.Or{
			squirrel.Like{"LOWER(email)": pattern},
			squirrel.Like{"LOWER(full_name)": pattern},
		})
	}

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").From("officials").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count officials: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countSQL, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count officials: %w", err)
	}

	page, pageSize = normalisePage(page, pageSize)
	listSQL, listArgs, err := r.builder.Select(strings.Split(officialColumns, ", ")...).
		From("officials").
		Where(where).
		OrderBy("full_name").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list officials: %w", err)
	}
	var officials []models.Official
	if err := r.db.SelectContext(ctx, &officials, listSQL, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list officials: %w", err)
	}
	return officials, total, nil
}

// Create inserts a new official.
func (r *OfficialRepository) Create(ctx context.Context, official *models.Official) error {
	if official.ID == "" {
		official.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if official.CreatedAt.IsZero() {
		official.CreatedAt = now
	}
	official.UpdatedAt = now

	const query = `INSERT INTO officials (id, email, password_hash, full_name, role, department, designation, block, active, created_at, updated_at) VALUES (:id, :email, :password_hash, :full_name, :role, :department, :designation, :block, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, official); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create official: %w", err)
	}
	return nil
}

// UpdateLastLogin updates the last_login timestamp for an official.
func (r *OfficialRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE officials SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *OfficialRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE officials SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// CreateRefreshToken persists a refresh token entry.
func (r *OfficialRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (id, official_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent) VALUES (:id, :official_id, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns a refresh token by token string.
func (r *OfficialRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, official_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks a live token as revoked. Only one caller can revoke
// a given token; the rest get ErrRefreshTokenRevoked.
func (r *OfficialRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1 AND revoked = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, revokedAt)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if affected != 1 {
		return ErrRefreshTokenRevoked
	}
	return nil
}

// RevokeOfficialRefreshTokens revokes all refresh tokens for an official.
func (r *OfficialRepository) RevokeOfficialRefreshTokens(ctx context.Context, officialID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE official_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, officialID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke official refresh tokens: %w", err)
	}
	return nil
}
