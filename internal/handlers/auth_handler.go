package handlers

import (
	"cardanocart/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRoutes registers the authentication routes. limit guards the
// credential endpoints and may be nil.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, limit fiber.Handler) {
	authRoutes := router.Group("/auth")
	if limit == nil {
		limit = func(c *fiber.Ctx) error { return c.Next() }
	}
	authRoutes.Post("/register", limit, h.HandleRegister)
	authRoutes.Post("/login", limit, h.HandleLogin)
	authRoutes.Post("/google", limit, h.HandleGoogleLogin)
	authRoutes.Post("/refresh", h.HandleRefresh)
	authRoutes.Post("/logout", h.HandleLogout)
}

type registerRequest struct {
	Username    string `json:"username" validate:"omitempty,max=150"`
	Email       string `json:"email" validate:"omitempty,email,max=255"`
	Password    string `json:"password" validate:"omitempty,min=8,max=128"`
	FirstName   string `json:"first_name" validate:"max=150"`
	LastName    string `json:"last_name" validate:"max=150"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number" validate:"max=32"`
	WalletID    string `json:"wallet_id" validate:"max=255"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	user, err := h.authService.Register(c.UserContext(), services.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		WalletID:    req.WalletID,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Account created successfully",
		"user":    user,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin exchanges email and password for a token pair.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	session, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

type googleLoginRequest struct {
	Credential string `json:"credential"`
}

// HandleGoogleLogin signs in with a Google ID token, creating the account
// on first use.
func (h *AuthHandler) HandleGoogleLogin(c *fiber.Ctx) error {
	var req googleLoginRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	session, err := h.authService.FederatedLogin(c.UserContext(), req.Credential)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// HandleRefresh rotates a refresh token.
func (h *AuthHandler) HandleRefresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	session, err := h.authService.Refresh(c.UserContext(), req.Refresh)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

// HandleLogout revokes the presented refresh token.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	var req refreshRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	if err := h.authService.Logout(c.UserContext(), req.Refresh); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}
