package handlers

import (
	"encoding/json"
	"strconv"

	"cardanocart/internal/apperr"
	"cardanocart/internal/middleware"
	"cardanocart/internal/models"
	"cardanocart/internal/repositories"
	"cardanocart/internal/services"
	"cardanocart/pkg/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	products  *services.ProductService
	imageOpts storage.UploadOptions
}

// NewProductHandler creates a new ProductHandler. maxImageSize overrides
// the default image size limit when positive.
func NewProductHandler(products *services.ProductService, maxImageSize int64) *ProductHandler {
	return &ProductHandler{
		products:  products,
		imageOpts: storage.DefaultUploadOptions("products", maxImageSize),
	}
}

// RegisterRoutes registers the product routes. Reads are open; writes need auth.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/:id", h.HandleGetProduct)
	productRoutes.Post("/", auth, h.HandleCreateProduct)
	productRoutes.Put("/:id", auth, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", auth, h.HandleDeleteProduct)
}

// HandleListProducts returns every product, or one page of them when page
// or limit is given.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	filter := repositories.ProductFilter{
		Page:          c.QueryInt("page"),
		Limit:         c.QueryInt("limit"),
		SubcategoryID: c.Query("subcategory_id"),
	}
	if filter.Page < 0 || filter.Limit < 0 {
		return respondError(c, apperr.Validation("Invalid pagination", map[string]string{
			"page": "page and limit must be positive integers.",
		}))
	}
	if filter.Page > 0 && filter.Limit == 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	page, err := h.products.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	if filter.Limit == 0 {
		return c.JSON(page.Items)
	}
	return c.JSON(page)
}

func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.products.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

type productRequest struct {
	Name           *string          `json:"name" validate:"omitempty,max=255"`
	Description    *string          `json:"description"`
	Price          *decimal.Decimal `json:"price"`
	Stock          int              `json:"stock"`
	SKU            *string          `json:"sku" validate:"omitempty,max=100"`
	Specifications models.JSONMap   `json:"specifications"`
	SubcategoryID  *string          `json:"subcategory_id"`
}

// bind reads the product from JSON or from a multipart form, where
// specifications is a JSON-encoded field.
func (r *productRequest) bind(c *fiber.Ctx) error {
	if !isMultipart(c) {
		return parseBody(c, r)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return apperr.Validation("Invalid multipart form", map[string]string{"body": err.Error()})
	}

	details := map[string]string{}
	r.Name = formValue(form, "name")
	r.Description = formValue(form, "description")
	r.SKU = formValue(form, "sku")
	r.SubcategoryID = formValue(form, "subcategory_id")
	if v := formValue(form, "price"); v != nil {
		price, err := decimal.NewFromString(*v)
		if err != nil {
			details["price"] = "A valid number is required."
		} else {
			r.Price = &price
		}
	}
	if v := formValue(form, "stock"); v != nil && *v != "" {
		stock, err := strconv.Atoi(*v)
		if err != nil {
			details["stock"] = "A valid integer is required."
		}
		r.Stock = stock
	}
	if v := formValue(form, "specifications"); v != nil && *v != "" {
		if err := json.Unmarshal([]byte(*v), &r.Specifications); err != nil {
			details["specifications"] = "Value must be valid JSON."
		}
	}
	if len(details) > 0 {
		return apperr.Validation("Invalid product data", details)
	}
	return validateStruct(r)
}

func (r productRequest) input() services.ProductInput {
	return services.ProductInput{
		Name:           r.Name,
		Description:    r.Description,
		Price:          r.Price,
		Stock:          r.Stock,
		SKU:            r.SKU,
		Specifications: r.Specifications,
		SubcategoryID:  r.SubcategoryID,
	}
}

// HandleCreateProduct creates a product owned by the caller. Images are
// sent as the multipart file field "images".
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := req.bind(c); err != nil {
		return respondError(c, err)
	}
	uploads, err := readUploads(c, "images", h.imageOpts)
	if err != nil {
		return respondError(c, err)
	}

	product, err := h.products.Create(c.UserContext(), middleware.CurrentActor(c), req.input(), uploads)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Product added successfully",
		"product": product,
	})
}

// HandleUpdateProduct replaces the product. Sending images replaces the
// stored ones; sending none keeps them. Existence and ownership are
// checked before the body is read.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	actor := middleware.CurrentActor(c)
	if err := h.products.Authorize(c.UserContext(), actor, c.Params("id")); err != nil {
		return respondError(c, err)
	}

	var req productRequest
	if err := req.bind(c); err != nil {
		return respondError(c, err)
	}
	uploads, err := readUploads(c, "images", h.imageOpts)
	if err != nil {
		return respondError(c, err)
	}

	product, err := h.products.Update(c.UserContext(), actor, c.Params("id"), req.input(), uploads)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Product updated successfully",
		"product": product,
	})
}

func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.products.Delete(c.UserContext(), middleware.CurrentActor(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted successfully."})
}
