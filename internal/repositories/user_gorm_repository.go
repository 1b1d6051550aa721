package repositories

import (
	"context"
	"fmt"
	"time"

	"cardanocart/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{db: db}
}

// Create inserts user, assigning an ID when it has none.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	return wrap("failed to create user", conn(ctx, r.db).Create(user).Error)
}

func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *GORMUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *GORMUserRepository) first(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db).First(&user, query, arg).Error; err != nil {
		return nil, wrap(fmt.Sprintf("failed to get user (%s %s)", query, arg), err)
	}
	return &user, nil
}

// ExistsByEmailOrUsername reports whether any row, deleted or not, holds
// email or username.
func (r *GORMUserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.User{}).
		Where("email = ? OR username = ?", email, username).
		Count(&count).Error
	if err != nil {
		return false, wrap("failed to check user identity", err)
	}
	return count > 0, nil
}

// List returns every user that has not been soft-deleted.
func (r *GORMUserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := conn(ctx, r.db).Where("is_deleted = ?", false).Order("created_at").Find(&users).Error
	if err != nil {
		return nil, wrap("failed to list users", err)
	}
	return users, nil
}

// Update saves every column of user.
func (r *GORMUserRepository) Update(ctx context.Context, user *models.User) error {
	res := conn(ctx, r.db).Model(user).Select("*").Omit("CreatedAt").Updates(user)
	if res.Error != nil {
		return wrap("failed to update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with ID %s not found for update: %w", user.ID, ErrNotFound)
	}
	return nil
}

// GORMTokenRepository is a GORM implementation of TokenRepository.
type GORMTokenRepository struct {
	db *gorm.DB
}

// NewGORMTokenRepository creates a new instance of GORMTokenRepository.
func NewGORMTokenRepository(db *gorm.DB) *GORMTokenRepository {
	return &GORMTokenRepository{db: db}
}

// Blacklist records token.JTI. A second insert of the same JTI returns
// ErrDuplicate, which callers use to detect concurrent reuse.
func (r *GORMTokenRepository) Blacklist(ctx context.Context, token *models.BlacklistedToken) error {
	return wrap("failed to blacklist token", conn(ctx, r.db).Create(token).Error)
}

func (r *GORMTokenRepository) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.BlacklistedToken{}).Where("jti = ?", jti).Count(&count).Error
	if err != nil {
		return false, wrap("failed to check token blacklist", err)
	}
	return count > 0, nil
}

// PurgeExpired drops entries whose token would be rejected on expiry anyway.
func (r *GORMTokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := conn(ctx, r.db).Where("expires_at < ?", now).Delete(&models.BlacklistedToken{})
	if res.Error != nil {
		return 0, wrap("failed to purge expired tokens", res.Error)
	}
	return res.RowsAffected, nil
}
