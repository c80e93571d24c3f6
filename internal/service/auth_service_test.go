package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cybercell/cybercell-api/internal/models"
	appErrors "github.com/cybercell/cybercell-api/pkg/errors"
)

type mockAuthRepo struct {
	userByUsername *models.User
	userByID       *models.User
	profile        *models.Profile
	findErr        error
	profileErr     error
	createErr      error
	created        *models.Account
}

func (m *mockAuthRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.userByUsername, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.userByID != nil {
		return m.userByID, nil
	}
	return m.userByUsername, nil
}

func (m *mockAuthRepo) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	return m.profile, nil
}

func (m *mockAuthRepo) CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) (*models.Account, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	user.ID = "u1"
	profile.UserID = user.ID
	account := &models.Account{User: *user, Profile: *profile}
	m.created = account
	return account, nil
}

func newAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "cybercell-api",
	})
}

func TestRegisterCreatesCitizenAccount(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := newAuthService(repo)

	account, err := svc.Register(context.Background(), RegisterRequest{
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Password: "password123",
		FullName: "J Doe",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCitizen, account.Profile.Role)
	assert.True(t, account.User.Active)
	assert.NotEqual(t, "password123", account.User.PasswordHash)
}

func TestRegisterRejectsInvalidPhoneNumber(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{})

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username:    "jdoe",
		Email:       "jdoe@example.com",
		Password:    "password123",
		FullName:    "J Doe",
		PhoneNumber: "not-a-number",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "phone_number")
}

func TestRegisterMapsUniqueViolationToConflict(t *testing.T) {
	repo := &mockAuthRepo{createErr: &pq.Error{Code: "23505", Constraint: "users_username_key"}}
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Password: "password123",
		FullName: "J Doe",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	// Constraint detail must not leak into the response message.
	assert.NotContains(t, appErr.Message, "users_username_key")
}

func TestLoginSuccessEmbedsRoleInClaims(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{
		userByUsername: &models.User{ID: "u1", Username: "officer1", PasswordHash: string(hash), Active: true},
		profile:        &models.Profile{UserID: "u1", Role: models.RolePolice},
	}
	svc := newAuthService(repo)

	res, err := svc.Login(context.Background(), LoginRequest{Username: "officer1", Password: "password123"})
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RolePolice, claims.Role)
	assert.Equal(t, "u1", claims.UserID)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{
		userByUsername: &models.User{ID: "u1", Username: "jdoe", PasswordHash: string(hash), Active: true},
		profile:        &models.Profile{UserID: "u1", Role: models.RoleCitizen},
	}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), LoginRequest{Username: "jdoe", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginRejectsUnknownUserWithSameError(t *testing.T) {
	repo := &mockAuthRepo{findErr: sql.ErrNoRows}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), LoginRequest{Username: "ghost", Password: "password123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{
		userByUsername: &models.User{ID: "u1", Username: "jdoe", PasswordHash: string(hash), Active: false},
	}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), LoginRequest{Username: "jdoe", Password: "password123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{})

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
