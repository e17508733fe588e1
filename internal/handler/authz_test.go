package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"spicesense/internal/model"

	"github.com/labstack/echo/v4"
)

func authedContext(role string, userID uint) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	if role != "" {
		c.Set("role", role)
	}
	if userID != 0 {
		c.Set("user_id", userID)
	}
	return c
}

func TestAdminOrOwner(t *testing.T) {
	const ownerID = uint(42)

	cases := []struct {
		name   string
		role   string
		userID uint
		want   bool
	}{
		{"admin on any resource", model.RoleAdmin, 1, true},
		{"supplier on own resource", model.RoleSupplier, ownerID, true},
		{"supplier on foreign resource", model.RoleSupplier, 7, false},
		{"customer", model.RoleCustomer, ownerID, false},
		{"employee", model.RoleEmployee, ownerID, false},
		{"no role set", "", ownerID, false},
		{"supplier without user id", model.RoleSupplier, 0, false},
	}
	for _, tc := range cases {
		c := authedContext(tc.role, tc.userID)
		if got := adminOrOwner(c, ownerID); got != tc.want {
			t.Errorf("%s: adminOrOwner = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCurrentUserID(t *testing.T) {
	if id, ok := currentUserID(authedContext(model.RoleSupplier, 9)); !ok || id != 9 {
		t.Errorf("currentUserID = (%d, %v), want (9, true)", id, ok)
	}
	if _, ok := currentUserID(authedContext("", 0)); ok {
		t.Error("currentUserID reported ok without an authenticated user")
	}
}

func TestCurrentRole(t *testing.T) {
	if got := currentRole(authedContext(model.RoleAdmin, 1)); got != model.RoleAdmin {
		t.Errorf("currentRole = %q, want admin", got)
	}
	if got := currentRole(authedContext("", 0)); got != "" {
		t.Errorf("currentRole without auth = %q, want empty", got)
	}
}
