package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"reflect"
	"strings"

	"cardanocart/internal/apperr"
	"cardanocart/internal/services"
	"cardanocart/pkg/storage"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var validate = newValidator()

// newValidator reports fields by their json name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

type errorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// FieldError is one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindInvalidReference:
		return fiber.StatusBadRequest
	case apperr.KindDuplicate:
		return fiber.StatusConflict
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindPermissionDenied, apperr.KindAccountInactive, apperr.KindAccountDeleted:
		return fiber.StatusForbidden
	case apperr.KindAuthFailure:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// codeFor names framework errors that carry only a status.
func codeFor(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnsupportedMediaType:
		return string(apperr.KindValidation)
	case fiber.StatusUnauthorized:
		return string(apperr.KindAuthFailure)
	case fiber.StatusForbidden:
		return string(apperr.KindPermissionDenied)
	case fiber.StatusNotFound:
		return string(apperr.KindNotFound)
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusTooManyRequests:
		return "RATE_LIMITED"
	default:
		return string(apperr.KindInternal)
	}
}

// respondError writes err as the JSON error envelope. Errors outside the
// domain taxonomy are logged and reported as INTERNAL without their text.
func respondError(c *fiber.Ctx, err error) error {
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindInternal {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("Request failed")
		if !ok {
			e = apperr.Internal(err)
		}
	}
	return c.Status(statusFor(e.Kind)).JSON(errorResponse{Error: errorBody{
		Code:    string(e.Kind),
		Message: e.Message,
		Details: e.Details,
	}})
}

// ErrorHandler is the fiber.Config ErrorHandler. It renders errors returned
// by middleware and by the framework itself.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errorResponse{Error: errorBody{
			Code:    codeFor(fe.Code),
			Message: fe.Message,
		}})
	}
	return respondError(c, err)
}

// parseBody decodes the request body into dst and runs its validate tags.
func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("Invalid request body", map[string]string{"body": err.Error()})
	}
	return validateStruct(dst)
}

func validateStruct(dst interface{}) error {
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apperr.Validation("Invalid request body", nil)
		}
		details := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, FieldError{
				Field:   fe.Field(),
				Tag:     fe.Tag(),
				Message: fieldMessage(fe),
			})
		}
		return apperr.Validation("Validation failed", details)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Field '%s' failed on the '%s' tag", fe.Field(), fe.Tag())
	}
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// formValue returns nil when key is absent from the multipart form.
func formValue(form *multipart.Form, key string) *string {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

// readUploads reads and checks the image files sent under field. Requests
// that are not multipart carry no files.
func readUploads(c *fiber.Ctx, field string, opts storage.UploadOptions) ([]services.ImageUpload, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperr.Validation("Invalid multipart form", map[string]string{"body": err.Error()})
	}

	files := form.File[field]
	uploads := make([]services.ImageUpload, 0, len(files))
	for _, fh := range files {
		data, err := readFile(fh)
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
		}
		contentType, err := storage.ValidateImage(fh.Filename, data, opts)
		if err != nil {
			return nil, apperr.Validation("Invalid image upload", map[string]string{field: err.Error()})
		}
		uploads = append(uploads, services.ImageUpload{
			Filename:    fh.Filename,
			ContentType: contentType,
			Data:        data,
		})
	}
	return uploads, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
