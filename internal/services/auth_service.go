package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"cardanocart/internal/apperr"
	"cardanocart/internal/models"
	"cardanocart/internal/repositories"
	"cardanocart/pkg/googleauth"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// reconcileAttempts bounds retries when a concurrent federated login
// creates the same account first.
const reconcileAttempts = 3

// AuthService handles registration, credential login, federated login and
// refresh token rotation.
type AuthService struct {
	users    repositories.UserRepository
	tokens   repositories.TokenRepository
	tx       repositories.TxManager
	sessions *TokenService
	verifier IdentityVerifier
	events   EventPublisher
}

// NewAuthService creates a new AuthService. verifier and events may be nil.
func NewAuthService(
	users repositories.UserRepository,
	tokens repositories.TokenRepository,
	tx repositories.TxManager,
	sessions *TokenService,
	verifier IdentityVerifier,
	events EventPublisher,
) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		tx:       tx,
		sessions: sessions,
		verifier: verifier,
		events:   events,
	}
}

// RegisterInput is the data accepted when creating an account.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Address     string
	PhoneNumber string
	WalletID    string
}

// Register creates an active customer account. Any email or username
// collision, whether found by the check or raised by the unique index,
// yields the same DUPLICATE_IDENTITY error.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	var missing []string
	if strings.TrimSpace(in.Username) == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(in.Email) == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, apperr.Missing(missing...)
	}

	user := &models.User{
		Username:    strings.TrimSpace(in.Username),
		Email:       normalizeEmail(in.Email),
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Address:     in.Address,
		PhoneNumber: in.PhoneNumber,
		WalletID:    in.WalletID,
		Role:        models.RoleCustomer,
		IsActive:    true,
	}
	// Hash outside the transaction; bcrypt is slow.
	if err := user.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exists, err := s.users.ExistsByEmailOrUsername(ctx, user.Email, user.Username)
		if err != nil {
			return err
		}
		if exists {
			return errDuplicateIdentity()
		}
		return s.users.Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, errDuplicateIdentity()
		}
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("User registered")
	publishEvent(s.events, "user.registered", map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
		"email":    user.Email,
		"provider": "password",
	})
	return user, nil
}

// Login authenticates by email and password. Unknown email, wrong password
// and an inactive or deleted account are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.AuthFailure()
		}
		return nil, fmt.Errorf("failed to load user for login: %w", err)
	}

	if !user.CheckPassword(password) || !user.CanAuthenticate() {
		logrus.WithField("user_id", user.ID).Info("Rejected login")
		return nil, apperr.AuthFailure()
	}

	return s.sessions.IssueSession(user)
}

// FederatedLogin verifies a Google ID token and signs in the matching account.
func (s *AuthService) FederatedLogin(ctx context.Context, credential string) (*Session, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, apperr.Validation("No token provided", nil)
	}
	if s.verifier == nil {
		return nil, apperr.Validation("Invalid token", nil)
	}

	assertion, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		logrus.WithError(err).Info("Federated credential rejected")
		return nil, apperr.Validation("Invalid token", nil)
	}
	return s.ReconcileFederatedIdentity(ctx, assertion)
}

// ReconcileFederatedIdentity finds or creates the account for the asserted
// email. A newly created account is usable at once; an existing one must
// not be deleted or inactive.
func (s *AuthService) ReconcileFederatedIdentity(ctx context.Context, assertion *googleauth.Assertion) (*Session, error) {
	email := normalizeEmail(assertion.Email)
	if email == "" {
		return nil, apperr.Validation("Invalid token", nil)
	}

	var (
		user    *models.User
		created bool
		err     error
	)
	for attempt := 0; attempt < reconcileAttempts; attempt++ {
		user, created, err = s.getOrCreateFederated(ctx, email, assertion)
		if !errors.Is(err, repositories.ErrDuplicate) {
			break
		}
		logrus.WithField("email", email).Debug("Federated account created concurrently, retrying lookup")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile federated identity: %w", err)
	}

	if !created {
		if user.IsDeleted {
			return nil, apperr.AccountDeleted()
		}
		if !user.IsActive {
			return nil, apperr.AccountInactive()
		}
	} else {
		publishEvent(s.events, "user.registered", map[string]interface{}{
			"user_id":  user.ID,
			"username": user.Username,
			"email":    user.Email,
			"provider": "google",
		})
	}

	return s.sessions.IssueSession(user)
}

func (s *AuthService) getOrCreateFederated(ctx context.Context, email string, assertion *googleauth.Assertion) (*models.User, bool, error) {
	var (
		user    *models.User
		created bool
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.users.GetByEmail(ctx, email)
		if err == nil {
			user = existing
			return nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return err
		}

		username, err := s.availableUsername(ctx, email)
		if err != nil {
			return err
		}
		user = &models.User{
			Username:      username,
			Email:         email,
			FirstName:     assertion.GivenName,
			LastName:      assertion.FamilyName,
			Role:          models.RoleCustomer,
			EmailVerified: true,
			IsActive:      true,
		}
		created = true
		return s.users.Create(ctx, user)
	})
	return user, created, err
}

var usernameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_.+-]`)

// availableUsername derives a username from the email local part and
// appends a short random suffix while it is taken.
func (s *AuthService) availableUsername(ctx context.Context, email string) (string, error) {
	base := usernameUnsafe.ReplaceAllString(strings.SplitN(email, "@", 2)[0], "")
	if base == "" {
		base = "user"
	}

	candidate := base
	for i := 0; i < 5; i++ {
		_, err := s.users.GetByUsername(ctx, candidate)
		if errors.Is(err, repositories.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = base + "_" + uuid.New().String()[:6]
	}
	return candidate, nil
}

// Refresh rotates a refresh token: the presented token is blacklisted and
// a new pair is issued. A token can be rotated at most once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.sessions.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		listed, err := s.tokens.IsBlacklisted(ctx, claims.JTI)
		if err != nil {
			return err
		}
		if listed {
			return apperr.InvalidToken()
		}

		owner, err := s.users.GetByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return apperr.InvalidToken()
			}
			return err
		}
		if !owner.CanAuthenticate() {
			return apperr.InvalidToken()
		}

		if err := s.tokens.Blacklist(ctx, &models.BlacklistedToken{
			JTI:       claims.JTI,
			UserID:    claims.UserID,
			ExpiresAt: claims.ExpiresAt,
		}); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return apperr.InvalidToken()
			}
			return err
		}
		user = owner
		return nil
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return s.sessions.IssueSession(user)
}

// Logout revokes a refresh token. Revoking an already revoked token succeeds.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.sessions.ParseRefresh(refreshToken)
	if err != nil {
		return err
	}
	err = s.tokens.Blacklist(ctx, &models.BlacklistedToken{
		JTI:       claims.JTI,
		UserID:    claims.UserID,
		ExpiresAt: claims.ExpiresAt,
	})
	if err != nil && !errors.Is(err, repositories.ErrDuplicate) {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// Authenticate validates an access token and loads its user, so a role
// change or a deactivation takes effect before the token expires.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.sessions.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.InvalidToken()
		}
		return nil, fmt.Errorf("failed to load token user: %w", err)
	}
	if !user.CanAuthenticate() {
		logrus.WithField("user_id", user.ID).Info("Rejected token of disabled account")
		return nil, apperr.InvalidToken()
	}
	return user, nil
}
