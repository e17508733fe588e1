package handler

import (
	"spicesense/internal/model"
	"spicesense/pkg/config"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var cfg *config.Config

// Init stores the loaded configuration for handlers that need business
// thresholds (stock ledger) or cookie settings.
func Init(c *config.Config) {
	cfg = c
}

// RequestValidator adapts go-playground/validator to echo's Validator
// interface so handlers can call c.Validate on bound request structs.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator builds the validator used by the echo instance.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// Validate implements echo.Validator.
func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// currentUserID returns the authenticated user id set by AuthMiddleware.
func currentUserID(c echo.Context) (uint, bool) {
	id, ok := c.Get("user_id").(uint)
	return id, ok
}

// currentRole returns the authenticated role set by AuthMiddleware.
func currentRole(c echo.Context) string {
	role, _ := c.Get("role").(string)
	return role
}

// adminOrOwner reports whether the authenticated user may act on a resource
// owned by the supplier ownerID: admins always may, suppliers only on their
// own resources, every other role never.
func adminOrOwner(c echo.Context, ownerID uint) bool {
	switch currentRole(c) {
	case model.RoleAdmin:
		return true
	case model.RoleSupplier:
		id, ok := currentUserID(c)
		return ok && id == ownerID
	}
	return false
}
