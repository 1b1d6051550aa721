package handlers

import (
	"cardanocart/internal/models"
	"cardanocart/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CategoryHandler serves categories and subcategories.
type CategoryHandler struct {
	categories *services.CategoryService
}

func NewCategoryHandler(categories *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// RegisterRoutes registers category and subcategory routes. Reads are
// open; writes need auth.
func (h *CategoryHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	categoryRoutes := router.Group("/categories")
	categoryRoutes.Get("/", h.HandleListCategories)
	categoryRoutes.Get("/:id", h.HandleGetCategory)
	categoryRoutes.Post("/", auth, h.HandleCreateCategory)
	categoryRoutes.Put("/:id", auth, h.HandleUpdateCategory)
	categoryRoutes.Delete("/:id", auth, h.HandleDeleteCategory)

	subcategoryRoutes := router.Group("/subcategories")
	subcategoryRoutes.Get("/", h.HandleListSubcategories)
	subcategoryRoutes.Get("/:id", h.HandleGetSubcategory)
	subcategoryRoutes.Post("/", auth, h.HandleCreateSubcategory)
	subcategoryRoutes.Put("/:id", auth, h.HandleUpdateSubcategory)
	subcategoryRoutes.Delete("/:id", auth, h.HandleDeleteSubcategory)
}

type categoryRequest struct {
	Name *string `json:"name" validate:"omitempty,max=100"`
}

type subcategoryRequest struct {
	Name       *string `json:"name" validate:"omitempty,max=100"`
	CategoryID *string `json:"category_id"`
}

func (h *CategoryHandler) HandleListCategories(c *fiber.Ctx) error {
	categories, err := h.categories.ListCategories(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return c.JSON(categories)
}

func (h *CategoryHandler) HandleGetCategory(c *fiber.Ctx) error {
	category, err := h.categories.GetCategory(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(category)
}

func (h *CategoryHandler) HandleCreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	category, err := h.categories.CreateCategory(c.UserContext(), req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

func (h *CategoryHandler) HandleUpdateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	category, err := h.categories.UpdateCategory(c.UserContext(), c.Params("id"), req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(category)
}

// HandleDeleteCategory deletes the category and its subcategories.
func (h *CategoryHandler) HandleDeleteCategory(c *fiber.Ctx) error {
	if err := h.categories.DeleteCategory(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleListSubcategories lists subcategories, optionally of one category.
func (h *CategoryHandler) HandleListSubcategories(c *fiber.Ctx) error {
	subcategories, err := h.categories.ListSubcategories(c.UserContext(), c.Query("category_id"))
	if err != nil {
		return respondError(c, err)
	}
	if subcategories == nil {
		subcategories = []models.Subcategory{}
	}
	return c.JSON(subcategories)
}

func (h *CategoryHandler) HandleGetSubcategory(c *fiber.Ctx) error {
	subcategory, err := h.categories.GetSubcategory(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(subcategory)
}

func (h *CategoryHandler) HandleCreateSubcategory(c *fiber.Ctx) error {
	var req subcategoryRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	subcategory, err := h.categories.CreateSubcategory(c.UserContext(), services.SubcategoryInput{
		Name:       req.Name,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(subcategory)
}

func (h *CategoryHandler) HandleUpdateSubcategory(c *fiber.Ctx) error {
	var req subcategoryRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	subcategory, err := h.categories.UpdateSubcategory(c.UserContext(), c.Params("id"), services.SubcategoryInput{
		Name:       req.Name,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(subcategory)
}

func (h *CategoryHandler) HandleDeleteSubcategory(c *fiber.Ctx) error {
	if err := h.categories.DeleteSubcategory(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
