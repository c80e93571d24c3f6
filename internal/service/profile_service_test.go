package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybercell/cybercell-api/internal/models"
	appErrors "github.com/cybercell/cybercell-api/pkg/errors"
	"github.com/cybercell/cybercell-api/pkg/upload"
)

type mockProfileRepo struct {
	user     *models.User
	profile  *models.Profile
	created  *models.Profile
	saved    *models.Profile
	saveErr  error
	officers []models.User
	users    []models.User
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockProfileRepo) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if m.profile == nil {
		return nil, sql.ErrNoRows
	}
	return m.profile, nil
}

func (m *mockProfileRepo) CreateProfile(ctx context.Context, profile *models.Profile) error {
	m.created = profile
	return nil
}

func (m *mockProfileRepo) SaveProfile(ctx context.Context, profile *models.Profile) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = profile
	return nil
}

func (m *mockProfileRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return m.users, len(m.users), nil
}

func (m *mockProfileRepo) ListOfficers(ctx context.Context) ([]models.User, error) {
	return m.officers, nil
}

type mockPictureStorage struct {
	saved   string
	deleted []string
}

func (m *mockPictureStorage) SaveStream(bucket, filename string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	m.saved = bucket + "/" + filename
	return m.saved, nil
}

func (m *mockPictureStorage) Delete(path string) error {
	m.deleted = append(m.deleted, path)
	return nil
}

func newProfileService(repo *mockProfileRepo) *ProfileService {
	return NewProfileService(repo, &mockPictureStorage{}, nil, nil, nil)
}

func TestGetCreatesMissingProfile(t *testing.T) {
	repo := &mockProfileRepo{user: &models.User{ID: "u1", Username: "jdoe"}}
	svc := newProfileService(repo)

	profile, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleCitizen, profile.Role)
	require.NotNil(t, repo.created)
	assert.Equal(t, "u1", repo.created.UserID)
}

func TestGetUnknownUser(t *testing.T) {
	svc := newProfileService(&mockProfileRepo{})

	_, err := svc.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUpdateRejectsInvalidPhone(t *testing.T) {
	repo := &mockProfileRepo{profile: &models.Profile{UserID: "u1", Role: models.RoleCitizen}}
	svc := newProfileService(repo)

	_, err := svc.Update(context.Background(), "u1", UpdateProfileRequest{PhoneNumber: "abc"})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Fields, "phone_number")
	assert.Nil(t, repo.saved)
}

func TestUpdateRoleRequiresAdmin(t *testing.T) {
	repo := &mockProfileRepo{profile: &models.Profile{UserID: "u2", Role: models.RoleCitizen}}
	svc := newProfileService(repo)

	_, err := svc.UpdateRole(context.Background(), policeClaims("officer1"), "u2", UpdateRoleRequest{Role: models.RolePolice})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUpdateRolePromotionToPoliceNeedsBadgeAndDepartment(t *testing.T) {
	repo := &mockProfileRepo{profile: &models.Profile{UserID: "u2", Role: models.RoleCitizen}}
	svc := newProfileService(repo)

	_, err := svc.UpdateRole(context.Background(), adminClaims("a1"), "u2", UpdateRoleRequest{Role: models.RolePolice})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Contains(t, appErr.Fields, "badge_number")
	assert.Contains(t, appErr.Fields, "department")
	assert.Nil(t, repo.saved)
}

func TestUpdateRoleDemotionClearsPoliceFields(t *testing.T) {
	repo := &mockProfileRepo{profile: &models.Profile{
		UserID:      "u2",
		Role:        models.RolePolice,
		BadgeNumber: "B-100",
		Department:  "Cyber",
	}}
	svc := newProfileService(repo)

	profile, err := svc.UpdateRole(context.Background(), adminClaims("a1"), "u2", UpdateRoleRequest{
		Role:        models.RoleCitizen,
		BadgeNumber: "B-100",
		Department:  "Cyber",
	})
	require.NoError(t, err)
	assert.Empty(t, profile.BadgeNumber)
	assert.Empty(t, profile.Department)
	require.NotNil(t, repo.saved)
}

func TestSetPictureRejectsPDF(t *testing.T) {
	repo := &mockProfileRepo{profile: &models.Profile{UserID: "u1", Role: models.RoleCitizen}}
	metrics := &mockInstrumentation{}
	svc := NewProfileService(repo, &mockPictureStorage{}, nil, metrics, nil)

	file := upload.File{
		Filename: "document.pdf",
		Size:     128,
		MimeType: "application/pdf",
		Content:  bytes.NewReader([]byte("%PDF-1.7 content")),
	}
	_, err := svc.SetPicture(context.Background(), "u1", file)
	require.Error(t, err)
	assert.Nil(t, repo.saved)
	assert.NotEmpty(t, metrics.rejections)
}

func TestSetPictureStoresValidPNG(t *testing.T) {
	repo := &mockProfileRepo{profile: &models.Profile{UserID: "u1", Role: models.RoleCitizen}}
	store := &mockPictureStorage{}
	svc := NewProfileService(repo, store, nil, nil, nil)

	content := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0x00}, 32)...)
	file := upload.File{
		Filename: "avatar.png",
		Size:     int64(len(content)),
		MimeType: "image/png",
		Content:  bytes.NewReader(content),
	}
	profile, err := svc.SetPicture(context.Background(), "u1", file)
	require.NoError(t, err)
	assert.Equal(t, store.saved, profile.ProfilePicture)
	require.NotNil(t, repo.saved)
}

func TestSetPictureRemovesFileWhenSaveFails(t *testing.T) {
	repo := &mockProfileRepo{
		profile: &models.Profile{UserID: "u1", Role: models.RoleCitizen},
		saveErr: errors.New("save failed"),
	}
	store := &mockPictureStorage{}
	svc := NewProfileService(repo, store, nil, nil, nil)

	content := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0x00}, 32)...)
	file := upload.File{
		Filename: "avatar.png",
		Size:     int64(len(content)),
		MimeType: "image/png",
		Content:  bytes.NewReader(content),
	}
	_, err := svc.SetPicture(context.Background(), "u1", file)
	require.Error(t, err)
	require.Len(t, store.deleted, 1)
	assert.Equal(t, store.saved, store.deleted[0])
}

func TestOfficersStaffOnly(t *testing.T) {
	repo := &mockProfileRepo{officers: []models.User{{ID: "o1", Username: "officer1"}}}
	svc := newProfileService(repo)

	_, err := svc.Officers(context.Background(), citizenClaims("u1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	officers, err := svc.Officers(context.Background(), policeClaims("officer1"))
	require.NoError(t, err)
	assert.Len(t, officers, 1)
}

func TestListUsersAdminOnly(t *testing.T) {
	repo := &mockProfileRepo{users: []models.User{{ID: "u1"}}}
	svc := newProfileService(repo)

	_, _, err := svc.List(context.Background(), policeClaims("officer1"), models.UserFilter{})
	require.Error(t, err)

	users, pagination, err := svc.List(context.Background(), adminClaims("a1"), models.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, pagination.TotalCount)
}
