package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/repository"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
)

type mockOfficialRepo struct {
	officials  map[string]*models.Official
	officers   []models.Officer
	listFilter models.OfficialFilter
	createErr  error
	listErr    error
}

func (m *mockOfficialRepo) List(ctx context.Context, filter models.OfficialFilter, page, pageSize int) ([]models.Official, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	m.listFilter = filter
	var out []models.Official
	for _, o := range m.officials {
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (m *mockOfficialRepo) ListOfficers(ctx context.Context, department string) ([]models.Officer, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if department == "" {
		return m.officers, nil
	}
	var out []models.Officer
	for _, o := range m.officers {
		if o.Department == department {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOfficialRepo) FindByID(ctx context.Context, id string) (*models.Official, error) {
	if o, ok := m.officials[id]; ok {
		copy := *o
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockOfficialRepo) Create(ctx context.Context, official *models.Official) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.officials == nil {
		m.officials = make(map[string]*models.Official)
	}
	copy := *official
	m.officials[official.ID] = &copy
	return nil
}

var supervisor = models.Actor{OfficialID: "sup-1", Name: "Supervisor", Role: models.RoleSupervisor}

func TestOfficialServiceCreate(t *testing.T) {
	repo := &mockOfficialRepo{}
	audit := &recordingAudit{}
	svc := NewOfficialService(repo, audit, nil, zap.NewNop())

	official, err := svc.Create(context.Background(), supervisor, CreateOfficialRequest{
		Email:      " Sharma@Example.com ",
		FullName:   "Dr. Sharma",
		Role:       models.RoleAdmin,
		Department: "Revenue",
		Password:   "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "sharma@example.com", official.Email)
	assert.True(t, official.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(official.PasswordHash), []byte("password123")))
	require.Contains(t, repo.officials, official.ID)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionOfficialCreate, audit.entries[0].Action)
	require.NotNil(t, audit.entries[0].OfficialID)
	assert.Equal(t, "sup-1", *audit.entries[0].OfficialID)
}

func TestOfficialServiceCreateValidation(t *testing.T) {
	svc := NewOfficialService(&mockOfficialRepo{}, nil, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), supervisor, CreateOfficialRequest{
		Email: "not-an-email", FullName: "X", Role: models.RoleAdmin, Password: "short",
	})
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	fields := map[string]string{}
	for _, d := range appErr.Details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be at least 8 characters", fields["password"])
	assert.Equal(t, "is required for ADMIN officials", fields["department"])

	_, err = svc.Create(context.Background(), supervisor, CreateOfficialRequest{
		Email: "a@example.com", FullName: "X", Role: "CLERK", Password: "password123",
	})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestOfficialServiceCreateDuplicateEmail(t *testing.T) {
	svc := NewOfficialService(&mockOfficialRepo{createErr: repository.ErrDuplicateEmail}, nil, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), supervisor, CreateOfficialRequest{
		Email: "a@example.com", FullName: "Mrs. Verma", Role: models.RoleSupervisor, Block: "Koilwar", Password: "password123",
	})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestOfficialServiceOfficers(t *testing.T) {
	repo := &mockOfficialRepo{officers: []models.Officer{
		{ID: "1", Name: "Dr. Sharma", Department: "Revenue"},
		{ID: "2", Name: "Mr. Singh", Department: "Health"},
	}}
	svc := NewOfficialService(repo, nil, nil, nil)

	all, err := svc.Officers(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	health, err := svc.Officers(context.Background(), " Health ")
	require.NoError(t, err)
	require.Len(t, health, 1)
	assert.Equal(t, "Mr. Singh", health[0].Name)

	none, err := svc.Officers(context.Background(), "Education")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	repo.listErr = errors.New("db down")
	_, err = svc.Officers(context.Background(), "")
	assert.Equal(t, appErrors.ErrStorage.Code, appErrors.FromError(err).Code)
}

func TestOfficialServiceList(t *testing.T) {
	repo := &mockOfficialRepo{officials: map[string]*models.Official{"1": {ID: "1", Role: models.RoleAdmin}}}
	svc := NewOfficialService(repo, nil, nil, nil)

	officials, pagination, err := svc.List(context.Background(), ListOfficialsRequest{Role: "admin", PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, officials, 1)
	assert.Equal(t, 20, pagination.PageSize)
	require.NotNil(t, repo.listFilter.Role)
	assert.Equal(t, models.RoleAdmin, *repo.listFilter.Role)

	_, _, err = svc.List(context.Background(), ListOfficialsRequest{Role: "clerk"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Get(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
