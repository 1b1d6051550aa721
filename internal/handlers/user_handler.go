package handlers

import (
	"cardanocart/internal/middleware"
	"cardanocart/internal/models"
	"cardanocart/internal/services"
	"cardanocart/pkg/storage"

	"github.com/gofiber/fiber/v2"
)

// UserHandler serves user profiles.
type UserHandler struct {
	users      *services.UserService
	avatarOpts storage.UploadOptions
}

// NewUserHandler creates a new UserHandler. maxImageSize overrides the
// default avatar size limit when positive.
func NewUserHandler(users *services.UserService, maxImageSize int64) *UserHandler {
	return &UserHandler{
		users:      users,
		avatarOpts: storage.DefaultUploadOptions("avatars", maxImageSize),
	}
}

// RegisterRoutes registers the user routes. Every route requires auth.
func (h *UserHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	userRoutes := router.Group("/users", auth)
	userRoutes.Get("/", h.HandleListUsers)
	userRoutes.Get("/me", h.HandleMe)
	userRoutes.Get("/:id", h.HandleGetUser)
	userRoutes.Put("/:id", h.HandleUpdateUser)
	userRoutes.Delete("/:id", h.HandleDeleteUser)
}

func (h *UserHandler) HandleListUsers(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if users == nil {
		users = []models.User{}
	}
	return c.JSON(users)
}

func (h *UserHandler) HandleMe(c *fiber.Ctx) error {
	user, err := h.users.Me(c.UserContext(), middleware.CurrentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) HandleGetUser(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

type updateUserRequest struct {
	Username        *string      `json:"username" validate:"omitempty,max=150"`
	Email           *string      `json:"email" validate:"omitempty,email,max=255"`
	FirstName       *string      `json:"first_name" validate:"omitempty,max=150"`
	LastName        *string      `json:"last_name" validate:"omitempty,max=150"`
	Address         *string      `json:"address"`
	PhoneNumber     *string      `json:"phone_number" validate:"omitempty,max=32"`
	WalletID        *string      `json:"wallet_id" validate:"omitempty,max=255"`
	Role            *models.Role `json:"role"`
	CurrentPassword *string      `json:"current_password"`
	NewPassword     *string      `json:"new_password" validate:"omitempty,min=8,max=128"`
}

// bind reads the update from JSON or from a multipart form.
func (r *updateUserRequest) bind(c *fiber.Ctx) error {
	if !isMultipart(c) {
		return parseBody(c, r)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return parseBody(c, r)
	}
	r.Username = formValue(form, "username")
	r.Email = formValue(form, "email")
	r.FirstName = formValue(form, "first_name")
	r.LastName = formValue(form, "last_name")
	r.Address = formValue(form, "address")
	r.PhoneNumber = formValue(form, "phone_number")
	r.WalletID = formValue(form, "wallet_id")
	r.CurrentPassword = formValue(form, "current_password")
	r.NewPassword = formValue(form, "new_password")
	if role := formValue(form, "role"); role != nil {
		value := models.Role(*role)
		r.Role = &value
	}
	return validateStruct(r)
}

// HandleUpdateUser applies a partial profile update. An avatar may be sent
// as the multipart file field "avatar".
func (h *UserHandler) HandleUpdateUser(c *fiber.Ctx) error {
	actor := middleware.CurrentActor(c)
	if err := h.users.Authorize(c.UserContext(), actor, c.Params("id")); err != nil {
		return respondError(c, err)
	}

	var req updateUserRequest
	if err := req.bind(c); err != nil {
		return respondError(c, err)
	}
	uploads, err := readUploads(c, "avatar", h.avatarOpts)
	if err != nil {
		return respondError(c, err)
	}

	in := services.UpdateUserInput{
		Username:        req.Username,
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Address:         req.Address,
		PhoneNumber:     req.PhoneNumber,
		WalletID:        req.WalletID,
		Role:            req.Role,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}
	if len(uploads) > 0 {
		in.Avatar = &uploads[0]
	}

	user, err := h.users.Update(c.UserContext(), actor, c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "User updated successfully",
		"user":    user,
	})
}

func (h *UserHandler) HandleDeleteUser(c *fiber.Ctx) error {
	if err := h.users.Delete(c.UserContext(), middleware.CurrentActor(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
