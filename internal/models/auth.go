// Package models defines the entities and payloads exchanged with the
// task-management API.
package models

import (
	"net/mail"
	"strings"

	"github.com/p-blackswan/taskboard/internal/apierr"
)

// Role is a user's account-wide role.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Profile is the authenticated user as returned by the API.
type Profile struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
	Role  Role   `json:"role" yaml:"role"`
}

// LoginPayload is the body of POST /auth/login.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginData is the data field of a successful login response.
type LoginData struct {
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken"`
	UserDetails  Profile `json:"userDetails"`
}

// RegisterPayload is the registration form. ConfirmPassword is checked
// locally and never sent.
type RegisterPayload struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
}

const minPasswordLen = 6

// Validate applies the login form rules.
func (p LoginPayload) Validate() error {
	var v apierr.ValidationErrors
	validateEmail(&v, p.Email)
	validatePassword(&v, p.Password)
	return v.Err("auth.login")
}

// Validate applies the registration form rules.
func (p RegisterPayload) Validate() error {
	var v apierr.ValidationErrors
	if len([]rune(strings.TrimSpace(p.Name))) < 2 {
		v.Add("name", "Full name is required")
	}
	validateEmail(&v, p.Email)
	validatePassword(&v, p.Password)
	switch {
	case p.ConfirmPassword == "":
		v.Add("confirmPassword", "Confirm Password is required")
	case p.ConfirmPassword != p.Password:
		v.Add("confirmPassword", "Passwords do not match")
	}
	return v.Err("auth.register")
}

func validateEmail(v *apierr.ValidationErrors, email string) {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		v.Add("email", "Email is invalid")
	}
}

func validatePassword(v *apierr.ValidationErrors, password string) {
	switch {
	case password == "":
		v.Add("password", "Password is required")
	case len(password) < minPasswordLen:
		v.Add("password", "Password must be at least 6 characters")
	}
}
