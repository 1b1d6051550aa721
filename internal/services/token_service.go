package services

import (
	"fmt"
	"time"

	"cardanocart/internal/apperr"
	"cardanocart/internal/models"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenService signs and parses the HS256 access and refresh tokens.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessClaims identify the caller of an authenticated request.
type AccessClaims struct {
	UserID   string
	Username string
	Role     models.Role
}

// RefreshClaims identify a refresh token for rotation and revocation.
type RefreshClaims struct {
	UserID    string
	JTI       string
	ExpiresAt time.Time
}

// Session is the token pair handed to a client after authentication.
type Session struct {
	AccessToken  string       `json:"access"`
	RefreshToken string       `json:"refresh"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	User         *models.User `json:"user"`
}

func (s *TokenService) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// IssueSession signs a fresh access and refresh token for user.
func (s *TokenService) IssueSession(user *models.User) (*Session, error) {
	now := time.Now()

	access, err := s.sign(jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     string(user.Role),
		"type":     tokenTypeAccess,
		"exp":      now.Add(s.accessTTL).Unix(),
		"iat":      now.Unix(),
	})
	if err != nil {
		return nil, err
	}

	refresh, err := s.sign(jwt.MapClaims{
		"user_id": user.ID,
		"jti":     uuid.New().String(),
		"type":    tokenTypeRefresh,
		"exp":     now.Add(s.refreshTTL).Unix(),
		"iat":     now.Unix(),
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		User:         user,
	}, nil
}

func (s *TokenService) parse(tokenString, wantType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		logrus.WithError(err).Debug("Token validation failed")
		return nil, apperr.InvalidToken()
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, apperr.InvalidToken()
	}
	if typ, _ := claims["type"].(string); typ != wantType {
		return nil, apperr.InvalidToken()
	}
	if id, _ := claims["user_id"].(string); id == "" {
		return nil, apperr.InvalidToken()
	}
	return claims, nil
}

// ValidateToken accepts only unexpired access tokens signed with our secret.
func (s *TokenService) ValidateToken(tokenString string) (*AccessClaims, error) {
	claims, err := s.parse(tokenString, tokenTypeAccess)
	if err != nil {
		return nil, err
	}
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	return &AccessClaims{
		UserID:   claims["user_id"].(string),
		Username: username,
		Role:     models.Role(role),
	}, nil
}

// ParseRefresh accepts only unexpired refresh tokens. It does not consult
// the blacklist.
func (s *TokenService) ParseRefresh(tokenString string) (*RefreshClaims, error) {
	claims, err := s.parse(tokenString, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	jti, _ := claims["jti"].(string)
	exp, _ := claims["exp"].(float64)
	if jti == "" || exp == 0 {
		return nil, apperr.InvalidToken()
	}
	return &RefreshClaims{
		UserID:    claims["user_id"].(string),
		JTI:       jti,
		ExpiresAt: time.Unix(int64(exp), 0),
	}, nil
}
