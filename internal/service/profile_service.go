package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cybercell/cybercell-api/internal/models"
	appErrors "github.com/cybercell/cybercell-api/pkg/errors"
	"github.com/cybercell/cybercell-api/pkg/storage"
	"github.com/cybercell/cybercell-api/pkg/upload"
)

type profileRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	CreateProfile(ctx context.Context, profile *models.Profile) error
	SaveProfile(ctx context.Context, profile *models.Profile) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	ListOfficers(ctx context.Context) ([]models.User, error)
}

type pictureStorage interface {
	SaveStream(bucket, filename string, r io.Reader) (string, error)
	Delete(path string) error
}

type uploadMetrics interface {
	RecordUploadRejection(code string)
}

// UpdateProfileRequest carries self-service profile edits. Role is not here;
// role changes go through UpdateRole.
type UpdateProfileRequest struct {
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
}

// UpdateRoleRequest carries an admin role change.
type UpdateRoleRequest struct {
	Role        models.Role `json:"role"`
	BadgeNumber string      `json:"badge_number"`
	Department  string      `json:"department"`
}

// ProfileService manages profile reads and mutations, including the lazy
// default-profile guard for identities without one.
type ProfileService struct {
	repo     profileRepository
	storage  pictureStorage
	pictures *upload.Validator
	metrics  uploadMetrics
	logger   *zap.Logger
}

// NewProfileService constructs a ProfileService. Metrics may be nil.
func NewProfileService(repo profileRepository, store pictureStorage, pictures *upload.Validator, metrics uploadMetrics, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pictures == nil {
		pictures = upload.NewValidator(upload.ImageExtensions, upload.DefaultMaxSize, []string{"image/jpeg", "image/png"})
	}
	return &ProfileService{repo: repo, storage: store, pictures: pictures, metrics: metrics, logger: logger}
}

// Get returns the profile for a user, creating a default citizen profile when
// none exists. Capability checks must never run against a missing profile.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}

	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	fallback := &models.Profile{UserID: userID, Role: models.RoleCitizen}
	if err := s.repo.CreateProfile(ctx, fallback); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMissingProfile.Code, appErrors.ErrMissingProfile.Status, "identity has no profile")
	}
	s.logger.Warn("created missing profile", zap.String("user_id", userID))
	return fallback, nil
}

// IsPoliceOrAdmin resolves the capability from the stored profile.
func (s *ProfileService) IsPoliceOrAdmin(ctx context.Context, userID string) (bool, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return profile.IsPoliceOrAdmin(), nil
}

// Update applies self-service edits to the caller's own profile.
func (s *ProfileService) Update(ctx context.Context, userID string, req UpdateProfileRequest) (*models.Profile, error) {
	if !models.ValidPhoneNumber(req.PhoneNumber) {
		return nil, appErrors.Field("phone_number", "Phone number must be entered in the format '+999999999'. Up to 15 digits allowed.")
	}

	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.PhoneNumber = req.PhoneNumber
	profile.Address = req.Address
	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save profile")
	}
	return profile, nil
}

// SetPicture validates and stores a profile picture, updating the stored path.
func (s *ProfileService) SetPicture(ctx context.Context, userID string, file upload.File) (*models.Profile, error) {
	if errs := s.pictures.Validate(file); len(errs) > 0 {
		if s.metrics != nil {
			for _, e := range errs {
				s.metrics.RecordUploadRejection(e.Code)
			}
		}
		return nil, mergeUploadErrors("profile_picture", errs)
	}

	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s%s", uuid.NewString(), strings.ToLower(filepath.Ext(file.Filename)))
	path, err := s.storage.SaveStream(storage.BucketProfilePics, filename, file.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store profile picture")
	}

	profile.ProfilePicture = path
	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		if delErr := s.storage.Delete(path); delErr != nil {
			s.logger.Warn("failed to remove orphaned profile picture", zap.String("path", path), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save profile")
	}
	return profile, nil
}

// UpdateRole changes a user's role. Admin only. Promoting to police requires
// badge number and department; any other role clears both.
func (s *ProfileService) UpdateRole(ctx context.Context, actor *models.JWTClaims, userID string, req UpdateRoleRequest) (*models.Profile, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if !models.ValidRole(req.Role) {
		return nil, appErrors.Field("role", "unknown role")
	}

	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.Role = req.Role
	profile.BadgeNumber = req.BadgeNumber
	profile.Department = req.Department

	if fields := profile.MissingPoliceFields(); fields != nil {
		return nil, appErrors.Validation(fields)
	}
	profile.Normalize()

	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save profile")
	}
	return profile, nil
}

// List returns users for the management listing. Admin only.
func (s *ProfileService) List(ctx context.Context, actor *models.JWTClaims, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, nil, appErrors.ErrForbidden
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Officers returns the assignable staff identities. Police or admin only.
func (s *ProfileService) Officers(ctx context.Context, actor *models.JWTClaims) ([]models.User, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RolePolice && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	users, err := s.repo.ListOfficers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list officers")
	}
	return users, nil
}

// mergeUploadErrors folds pipeline failures into a single response error. A
// lone failure keeps its typed code; multiple failures aggregate into one
// field-scoped validation error.
func mergeUploadErrors(field string, errs []*appErrors.Error) *appErrors.Error {
	if len(errs) == 1 {
		return errs[0]
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Message)
	}
	return appErrors.Field(field, strings.Join(messages, " "))
}
