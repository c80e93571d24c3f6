package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cybercell/cybercell-api/internal/models"
)

// UserRepository provides database access for identities and profiles.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, full_name, active, created_at, updated_at`

// FindByUsername returns a user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// CreateWithProfile inserts a user and its profile in one transaction and
// returns the stored aggregate. Profile creation is an explicit step of
// registration, not a side effect.
func (r *UserRepository) CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) (*models.Account, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	profile.UserID = user.ID
	profile.CreatedAt = now
	profile.UpdatedAt = now
	profile.Normalize()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin registration tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const userQuery = `INSERT INTO users (id, username, email, password_hash, full_name, active, created_at, updated_at)
VALUES (:id, :username, :email, :password_hash, :full_name, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, userQuery, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	const profileQuery = `INSERT INTO profiles (user_id, role, phone_number, address, badge_number, department, profile_picture, created_at, updated_at)
VALUES (:user_id, :role, :phone_number, :address, :badge_number, :department, :profile_picture, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, profileQuery, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit registration tx: %w", err)
	}
	return &models.Account{User: *user, Profile: *profile}, nil
}

const profileColumns = `user_id, role, phone_number, address, badge_number, department, profile_picture, created_at, updated_at`

// GetProfile returns the profile attached to a user.
func (r *UserRepository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	const query = `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1 LIMIT 1`
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &profile, nil
}

// CreateProfile inserts a profile row. Used by the lazy default-profile guard
// for identities that predate profile enforcement.
func (r *UserRepository) CreateProfile(ctx context.Context, profile *models.Profile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	profile.Normalize()
	const query = `INSERT INTO profiles (user_id, role, phone_number, address, badge_number, department, profile_picture, created_at, updated_at)
VALUES (:user_id, :role, :phone_number, :address, :badge_number, :department, :profile_picture, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// SaveProfile updates mutable profile fields. Badge number and department are
// cleared for non-police roles before the write.
func (r *UserRepository) SaveProfile(ctx context.Context, profile *models.Profile) error {
	profile.Normalize()
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE profiles SET role = :role, phone_number = :phone_number, address = :address,
badge_number = :badge_number, department = :department, profile_picture = :profile_picture, updated_at = :updated_at
WHERE user_id = :user_id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// ListOfficers returns users whose profile role is police or admin, the only
// identities eligible for report assignment.
func (r *UserRepository) ListOfficers(ctx context.Context) ([]models.User, error) {
	const query = `SELECT u.id, u.username, u.email, u.password_hash, u.full_name, u.active, u.created_at, u.updated_at
FROM users u JOIN profiles p ON p.user_id = u.id
WHERE p.role IN ($1, $2) AND u.active = TRUE
ORDER BY u.username`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, models.RolePolice, models.RoleAdmin); err != nil {
		return nil, fmt.Errorf("list officers: %w", err)
	}
	return users, nil
}

// List returns users with their profile role based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users u JOIN profiles p ON p.user_id = u.id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("p.role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("u.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.username) LIKE $%d OR LOWER(u.email) LIKE $%d OR LOWER(u.full_name) LIKE $%d OR p.phone_number LIKE $%d)", len(args)+1, len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"username":   true,
		"email":      true,
		"created_at": true,
		"full_name":  true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT u.id, u.username, u.email, u.password_hash, u.full_name, u.active, u.created_at, u.updated_at %s ORDER BY u.%s %s LIMIT %d OFFSET %d", baseQuery, sortBy, sortOrder, pageSize, offset)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}
