package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/database"
)

// ErrDuplicateApplication is returned when the applicant identifier is already taken.
var ErrDuplicateApplication = errors.New("application already exists")

const uniqueViolation = "23505"

var applicationColumns = []string{
	"applicant_id",
	"applicant_name",
	"application_date",
	"contact_phone",
	"contact_email",
	"subject",
	"originating_block",
	"attachment_reference",
	"status",
	"assigned_officer",
	"assigned_department",
	"timeline",
	"version",
	"created_at",
	"updated_at",
}

// ApplicationRepository persists grievance applications. The timeline lives in the
// same row as the record so every transition is a single-row update.
type ApplicationRepository struct {
	db      *sqlx.DB
	builder squirrel.StatementBuilderType
}

// NewApplicationRepository creates a new instance of ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new application. A taken identifier yields ErrDuplicateApplication.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = app.CreatedAt
	if app.Version == 0 {
		app.Version = 1
	}

	const query = `INSERT INTO applications (applicant_id, applicant_name, application_date, contact_phone, contact_email, subject, originating_block, attachment_reference, status, assigned_officer, assigned_department, timeline, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.db.ExecContext(ctx, query,
		app.ApplicantID,
		app.ApplicantName,
		app.ApplicationDate,
		app.ContactPhone,
		app.ContactEmail,
		app.Subject,
		app.Block,
		app.Attachment,
		app.Status,
		app.AssignedOfficer,
		app.AssignedDepartment,
		app.Timeline,
		app.Version,
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateApplication
		}
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// FindByID returns an application by applicant identifier.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE applicant_id = $1 LIMIT 1", strings.Join(applicationColumns, ", "))
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return &app, nil
}

// Update locks the row, hands a copy to mutate and persists the result in the same
// transaction. If mutate returns an error nothing is written and the error is returned as is.
func (r *ApplicationRepository) Update(ctx context.Context, id string, mutate func(app *models.Application) error) (*models.Application, error) {
	var updated *models.Application
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := fmt.Sprintf("SELECT %s FROM applications WHERE applicant_id = $1 FOR UPDATE", strings.Join(applicationColumns, ", "))
		var current models.Application
		if err := tx.GetContext(ctx, &current, query, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sql.ErrNoRows
			}
			return fmt.Errorf("lock application: %w", err)
		}

		next := current.Clone()
		if err := mutate(next); err != nil {
			return err
		}
		next.ApplicantID = current.ApplicantID
		next.Version = current.Version + 1
		next.UpdatedAt = time.Now().UTC()

		const updateQuery = `UPDATE applications SET attachment_reference = $2, status = $3, assigned_officer = $4, assigned_department = $5, timeline = $6, version = $7, updated_at = $8 WHERE applicant_id = $1 AND version = $9`
		res, err := tx.ExecContext(ctx, updateQuery,
			next.ApplicantID,
			next.Attachment,
			next.Status,
			next.AssignedOfficer,
			next.AssignedDepartment,
			next.Timeline,
			next.Version,
			next.UpdatedAt,
			current.Version,
		)
		if err != nil {
			return fmt.Errorf("update application: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected != 1 {
			return fmt.Errorf("update application: expected 1 row, got %d", affected)
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// List returns applications matching the filter along with the total count.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	where := applicationConditions(filter)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").From("applications").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count applications: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countSQL, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	page, pageSize := normalisePage(filter.Page, filter.PageSize)
	listSQL, listArgs, err := r.builder.Select(applicationColumns...).
		From("applications").
		Where(where).
		OrderBy("created_at DESC", "applicant_id ASC").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list applications: %w", err)
	}

	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, listSQL, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	return apps, total, nil
}

// Summary aggregates status counts per originating block.
func (r *ApplicationRepository) Summary(ctx context.Context, filter models.ApplicationFilter) ([]models.BlockSummary, error) {
	query, args, err := r.builder.Select(
		"originating_block AS block",
		"COUNT(*) AS total",
		fmt.Sprintf("COUNT(*) FILTER (WHERE status = '%s') AS pending", models.StatusNotAssignedYet),
		fmt.Sprintf("COUNT(*) FILTER (WHERE status = '%s') AS in_process", models.StatusInProcess),
		fmt.Sprintf("COUNT(*) FILTER (WHERE status = '%s') AS compliance", models.StatusCompliance),
		fmt.Sprintf("COUNT(*) FILTER (WHERE status = '%s') AS disposed", models.StatusDisposed),
	).
		From("applications").
		Where(applicationConditions(filter)).
		GroupBy("originating_block").
		OrderBy("originating_block").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build application summary: %w", err)
	}

	var rows []models.BlockSummary
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("application summary: %w", err)
	}
	return rows, nil
}

func applicationConditions(filter models.ApplicationFilter) squirrel.And {
	where := squirrel.And{}
	if len(filter.Status) > 0 {
		statuses := make([]string, 0, len(filter.Status))
		for _, s := range filter.Status {
			statuses = append(statuses, string(s))
		}
		where = append(where, squirrel.Eq{"status": statuses})
	}
	if filter.Block != "" {
		where = append(where, squirrel.Eq{"originating_block": filter.Block})
	}
	if filter.Officer != "" {
		where = append(where, squirrel.Eq{"assigned_officer": filter.Officer})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		where = append(where, squirrel.Or{
			squirrel.ILike{"applicant_id": pattern},
			squirrel.ILike{"applicant_name": pattern},
			squirrel.ILike{"subject": pattern},
		})
	}
	if filter.From != nil {
		where = append(where, squirrel.GtOrEq{"application_date": *filter.From})
	}
	if filter.To != nil {
		where = append(where, squirrel.LtOrEq{"application_date": *filter.To})
	}
	return where
}

func normalisePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
