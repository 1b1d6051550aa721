package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User represents a user of the store.
type User struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username      string    `json:"username" gorm:"uniqueIndex;type:varchar(150);not null"`
	Email         string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Password      string    `json:"-" gorm:"type:varchar(255)"` // bcrypt hash, empty for federated-only accounts
	FirstName     string    `json:"first_name" gorm:"type:varchar(150)"`
	LastName      string    `json:"last_name" gorm:"type:varchar(150)"`
	Address       string    `json:"address" gorm:"type:text"`
	PhoneNumber   string    `json:"phone_number" gorm:"type:varchar(32)"`
	Role          Role      `json:"role" gorm:"type:varchar(20);not null"`
	WalletID      string    `json:"wallet_id" gorm:"type:varchar(255)"`
	Avatar        string    `json:"avatar" gorm:"type:varchar(512)"`
	EmailVerified bool      `json:"email_verified"`
	IsActive      bool      `json:"is_active"`
	IsDeleted     bool      `json:"-" gorm:"index"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SetPassword hashes password with bcrypt and stores the hash.
func (u *User) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

// CheckPassword reports whether password matches the stored hash.
// Accounts without a usable password never match.
func (u *User) CheckPassword(password string) bool {
	if u.Password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// CanAuthenticate reports whether the account may obtain tokens.
func (u *User) CanAuthenticate() bool {
	return u.IsActive && !u.IsDeleted
}

// OwnerID makes a user the owner of its own profile.
func (u *User) OwnerID() string { return u.ID }
