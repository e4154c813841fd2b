// Package service holds the application operations behind the HTTP API:
// alert submission and querying, moderation, and sessions.
package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/mr1hm/disaster-reports/internal/apperr"
	"github.com/mr1hm/disaster-reports/internal/models"
	"github.com/mr1hm/disaster-reports/internal/repository"
)

// Page is a requested window over a listing. Zero values take the defaults.
type Page struct {
	Limit  int
	Offset int
}

// PageLimits bounds the page size accepted from callers.
type PageLimits struct {
	Default int
	Max     int
}

var DefaultPageLimits = PageLimits{Default: 20, Max: 100}

func (l PageLimits) normalize(p Page) Page {
	if p.Limit <= 0 {
		p.Limit = l.Default
	}
	if p.Limit > l.Max {
		p.Limit = l.Max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json names so field errors match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	must(v.RegisterValidation("notblank", validators.NotBlank))
	must(v.RegisterValidation("alert_type", func(fl validator.FieldLevel) bool {
		return models.AlertType(fl.Field().String()).Valid()
	}))
	must(v.RegisterValidation("severity", func(fl validator.FieldLevel) bool {
		return models.AlertSeverity(fl.Field().String()).Valid()
	}))
	must(v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		var letter, digit bool
		for _, r := range fl.Field().String() {
			switch {
			case unicode.IsLetter(r):
				letter = true
			case unicode.IsDigit(r):
				digit = true
			}
		}
		return letter && digit
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// validationError runs the struct validator and converts every violation
// into a single field -> reason map.
func validationError(message string, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(message, map[string]string{"body": err.Error()})
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = reason(fe)
	}
	return apperr.Validation(message, fields)
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "notblank":
		return "must not be blank"
	case "email":
		return "must be a valid email address"
	case "alert_type":
		return "must be one of " + joinValues(models.AlertTypes)
	case "severity":
		return "must be one of " + joinValues(models.AlertSeverities)
	case "password":
		return "must contain at least one letter and one digit"
	default:
		return "is invalid"
	}
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func requireID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperr.Validation("invalid request", map[string]string{field: "is required"})
	}
	return nil
}

func requireIdentity(id *models.Identity) error {
	if id == nil || id.UserID == "" {
		return apperr.Authentication("authentication required")
	}
	return nil
}

func requireAdmin(id *models.Identity) error {
	if err := requireIdentity(id); err != nil {
		return err
	}
	if !id.IsAdmin() {
		return apperr.Authorization("admin access required")
	}
	return nil
}

// notFoundOr maps repository.ErrNotFound to a NotFound error and anything
// else to a storage error.
func notFoundOr(err error, what, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("%s %s not found", what, id)
	}
	return apperr.Storage("failed to load "+what, err)
}
