package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/models"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var folder = cases.Fold()

// FoldKey returns the case-insensitive comparison key for usernames and emails.
func FoldKey(s string) string {
	return folder.String(strings.TrimSpace(s))
}

// CreateUserRequest holds parameters for registering a user.
type CreateUserRequest struct {
	Username    string `validate:"required,min=3,max=64,excludesall= /\\"`
	Email       string `validate:"required,email,max=254"`
	DisplayName string `validate:"max=128"`
	Password    string `validate:"omitempty,min=8,max=72"`
	IsSystem    bool
}

// UpdateUserRequest holds the mutable user attributes. Nil fields are kept.
type UpdateUserRequest struct {
	Email       *string `validate:"omitempty,email,max=254"`
	DisplayName *string `validate:"omitempty,max=128"`
}

var userListSpec = listSpec{
	searchColumns: []string{"username", "email", "display_name"},
	sortColumns: map[string]string{
		"username":   "username_key",
		"email":      "email_key",
		"created_at": "created_at",
	},
	defaultSort: "username_key",
}

// UserService is the identity store.
type UserService struct {
	db        *gorm.DB
	logger    *slog.Logger
	Lifecycle *Lifecycle[models.User]
}

// NewUserService creates a UserService. Purging a user drops its role edges.
func NewUserService(db *gorm.DB, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	purge := func(ctx context.Context, tx *gorm.DB, id any) error {
		return tx.Where("user_id = ?", id).Delete(&models.UserRole{}).Error
	}
	return &UserService{
		db:        db,
		logger:    logger,
		Lifecycle: NewLifecycle[models.User](db, "user", purge, logger),
	}
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks if a password matches the hash. Accounts without a
// password (external logins only) never match.
func VerifyPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Create validates and stores a new active user. Username and email must be
// unique ignoring case, soft-deleted users included.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, actor uuid.UUID) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	user := models.User{
		Username:    req.Username,
		UsernameKey: FoldKey(req.Username),
		Email:       req.Email,
		EmailKey:    FoldKey(req.Email),
		DisplayName: strings.TrimSpace(req.DisplayName),
		IsActive:    true,
		IsSystem:    req.IsSystem,
	}
	if req.Password != "" {
		hash, err := HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	user.Stamp(actor)

	db := GetDB(ctx, s.db)
	if err := s.ensureFree(db, "username_key", user.UsernameKey, "username", uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.ensureFree(db, "email_key", user.EmailKey, "email", uuid.Nil); err != nil {
		return nil, err
	}

	if err := db.Create(&user).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, &ConflictError{Message: "username or email is already taken"}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("Created user", "user_id", user.ID, "username", user.Username)
	return &user, nil
}

// GetByID returns a user that is not in the recycle bin.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.findOne(ctx, "id = ?", id)
}

// GetByUsername looks a user up ignoring case.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, "username_key = ?", FoldKey(username))
}

// GetByEmail looks a user up ignoring case.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, "email_key = ?", FoldKey(email))
}

// FindForLogin resolves a login identifier, which may be a username or an
// email address.
func (s *UserService) FindForLogin(ctx context.Context, identifier string) (*models.User, error) {
	key := FoldKey(identifier)
	if key == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, "username_key = ? OR email_key = ?", key, key)
}

// List returns active-listing users (not soft-deleted).
func (s *UserService) List(ctx context.Context, opts QueryOptions) (*Page[models.User], error) {
	q := GetDB(ctx, s.db).Model(&models.User{}).Where("is_deleted = ?", false)
	return list[models.User](q, userListSpec, opts)
}

// Update changes the email and/or display name of a user.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, req UpdateUserRequest, actor uuid.UUID) (*models.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	db := GetDB(ctx, s.db)
	updates := map[string]any{
		"modified_at":         time.Now().UTC(),
		"modified_by_user_id": models.ActorRef(actor),
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		key := FoldKey(email)
		if key != user.EmailKey {
			if err := s.ensureFree(db, "email_key", key, "email", user.ID); err != nil {
				return nil, err
			}
		}
		updates["email"] = email
		updates["email_key"] = key
	}
	if req.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*req.DisplayName)
	}

	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, &ConflictError{Message: "email is already taken"}
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetByID(ctx, id)
}

// SetActive activates or deactivates a user. Deactivated users cannot log
// in and hold no effective roles. System users cannot be deactivated.
func (s *UserService) SetActive(ctx context.Context, id uuid.UUID, active bool, actor uuid.UUID) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !active && user.IsSystem {
		return nil, ErrSystemProtected
	}
	err = GetDB(ctx, s.db).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"is_active":           active,
		"modified_at":         time.Now().UTC(),
		"modified_by_user_id": models.ActorRef(actor),
	}).Error
	if err != nil {
		return nil, fmt.Errorf("set user active: %w", err)
	}
	s.logger.Info("Changed user active flag", "user_id", id, "active", active, "actor", actor)
	user.IsActive = active
	return user, nil
}

// SetPassword replaces the password hash of a user.
func (s *UserService) SetPassword(ctx context.Context, id uuid.UUID, password string, actor uuid.UUID) error {
	if err := validate.Var(password, "required,min=8,max=72"); err != nil {
		return &ValidationError{Message: "password must be between 8 and 72 characters"}
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return GetDB(ctx, s.db).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"password_hash":       hash,
		"modified_at":         time.Now().UTC(),
		"modified_by_user_id": models.ActorRef(actor),
	}).Error
}

// RecordLogin stamps the last successful login time.
func (s *UserService) RecordLogin(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, s.db).Model(&models.User{}).Where("id = ?", id).
		UpdateColumn("last_login_at", time.Now().UTC()).Error
}

func (s *UserService) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var user models.User
	err := GetDB(ctx, s.db).Where("is_deleted = ?", false).Where(query, args...).First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// ensureFree checks a unique key across all rows, deleted ones included.
func (s *UserService) ensureFree(db *gorm.DB, column, key, label string, self uuid.UUID) error {
	var count int64
	q := db.Model(&models.User{}).Where(column+" = ?", key)
	if self != uuid.Nil {
		q = q.Where("id <> ?", self)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("check %s: %w", label, err)
	}
	if count > 0 {
		return &ConflictError{Message: fmt.Sprintf("%s is already taken", label)}
	}
	return nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Message: fmt.Sprintf("%s failed %q validation", strings.ToLower(fe.Field()), fe.Tag())}
	}
	return &ValidationError{Message: err.Error()}
}
