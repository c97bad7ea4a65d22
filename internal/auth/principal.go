package auth

import (
	"github.com/labstack/echo/v4"

	"tasktracker/internal/model"
)

// PrincipalContextKey is the echo context key holding the resolved *Principal.
const PrincipalContextKey = "principal"

// Principal is the identity attached to a request after token validation.
type Principal struct {
	UserID uint       `json:"id"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
}

// PrincipalFromUser builds the principal for a stored user.
func PrincipalFromUser(u *model.User) Principal {
	return Principal{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// PrincipalFrom returns the principal attached to the request, if any.
func PrincipalFrom(c echo.Context) (*Principal, bool) {
	p, ok := c.Get(PrincipalContextKey).(*Principal)
	return p, ok && p != nil
}
