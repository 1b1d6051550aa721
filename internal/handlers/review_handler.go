package handlers

import (
	"cardanocart/internal/middleware"
	"cardanocart/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ReviewHandler serves reviews nested under a product.
type ReviewHandler struct {
	reviews *services.ReviewService
}

func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// RegisterRoutes registers the review routes under /products/:product_id/reviews.
func (h *ReviewHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	reviewRoutes := router.Group("/products/:product_id/reviews")
	reviewRoutes.Get("/", h.HandleListReviews)
	reviewRoutes.Get("/:review_id", h.HandleGetReview)
	reviewRoutes.Post("/", auth, h.HandleCreateReview)
	reviewRoutes.Put("/:review_id", auth, h.HandleUpdateReview)
	reviewRoutes.Delete("/:review_id", auth, h.HandleDeleteReview)
}

type reviewRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

func (r reviewRequest) input() services.ReviewInput {
	return services.ReviewInput{Rating: r.Rating, Comment: r.Comment}
}

func (h *ReviewHandler) HandleListReviews(c *fiber.Ctx) error {
	reviews, err := h.reviews.List(c.UserContext(), c.Params("product_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reviews)
}

func (h *ReviewHandler) HandleGetReview(c *fiber.Ctx) error {
	review, err := h.reviews.Get(c.UserContext(), c.Params("product_id"), c.Params("review_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(review)
}

func (h *ReviewHandler) HandleCreateReview(c *fiber.Ctx) error {
	var req reviewRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	review, err := h.reviews.Create(c.UserContext(), middleware.CurrentActor(c), c.Params("product_id"), req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}

func (h *ReviewHandler) HandleUpdateReview(c *fiber.Ctx) error {
	actor := middleware.CurrentActor(c)
	productID, reviewID := c.Params("product_id"), c.Params("review_id")
	if err := h.reviews.Authorize(c.UserContext(), actor, productID, reviewID); err != nil {
		return respondError(c, err)
	}

	var req reviewRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	review, err := h.reviews.Update(c.UserContext(), actor, productID, reviewID, req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(review)
}

func (h *ReviewHandler) HandleDeleteReview(c *fiber.Ctx) error {
	err := h.reviews.Delete(c.UserContext(), middleware.CurrentActor(c), c.Params("product_id"), c.Params("review_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
