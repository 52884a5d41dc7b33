// Package auth manages portal accounts and sessions: the credential store,
// login and logout, and the session principal handed to every operation.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials or inactive user")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("forbidden")
	ErrNoSession          = errors.New("no active session")
)

// UserMessage returns the Spanish text shown to the user for err.
func UserMessage(err error) string {
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "Usuario o contraseña incorrectos, o el usuario está inactivo."
	case errors.Is(err, ErrUsernameTaken):
		return "El nombre de usuario ya existe."
	case errors.As(err, &verr):
		return "Faltan campos obligatorios: " + strings.Join(verr.Fields, ", ") + "."
	case errors.Is(err, ErrForbidden):
		return "No tiene permisos para realizar esta acción."
	case errors.Is(err, ErrNoSession):
		return "Debe iniciar sesión."
	default:
		return ""
	}
}

// Role is a portal role.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleStudent       Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdministrator || r == RoleStudent
}

// Status is the lifecycle state of an account. Archiving is a soft delete.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// PersonalData is the identity information captured at registration.
type PersonalData struct {
	IdentificationType   string `json:"identificationType"`
	IdentificationNumber string `json:"identificationNumber"`
	FullName             string `json:"fullName"`
	City                 string `json:"city"`
	Country              string `json:"country"`
	Profession           string `json:"profession"`
}

// Credentials holds the login name and bcrypt hash. The hash never leaves
// the process.
type Credentials struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// User is a portal account.
type User struct {
	ID           string       `json:"id"`
	PersonalData PersonalData `json:"personalData"`
	Credentials  Credentials  `json:"credentials"`
	Role         Role         `json:"role"`
	Status       Status       `json:"status"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Active reports whether the account may log in.
func (u User) Active() bool { return u.Status == StatusActive }

// Principal returns the session projection of u.
func (u User) Principal() Principal {
	return Principal{ID: u.ID, Username: u.Credentials.Username, Role: u.Role}
}

// Principal is the reduced identity carried by a session.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Valid reports whether every field is present and the role is known.
func (p Principal) Valid() bool {
	return p.ID != "" && p.Username != "" && p.Role.Valid()
}

// IsAdmin reports whether p holds the administrator role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdministrator }

// NewUser is an administrator's registration request.
type NewUser struct {
	PersonalData PersonalData `json:"personalData"`
	Username     string       `json:"username"`
	Password     string       `json:"password"`
	Role         Role         `json:"role"`
}

// ValidationError lists the registration fields that are missing or invalid.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or invalid fields: %s", strings.Join(e.Fields, ", "))
}

// Validate trims the request and checks required fields. An empty role
// defaults to student.
func (n *NewUser) Validate() error {
	n.Username = strings.TrimSpace(n.Username)
	n.PersonalData.FullName = strings.TrimSpace(n.PersonalData.FullName)
	n.PersonalData.IdentificationNumber = strings.TrimSpace(n.PersonalData.IdentificationNumber)
	if n.Role == "" {
		n.Role = RoleStudent
	}

	var missing []string
	if n.PersonalData.FullName == "" {
		missing = append(missing, "fullName")
	}
	if n.PersonalData.IdentificationNumber == "" {
		missing = append(missing, "identificationNumber")
	}
	if n.Username == "" {
		missing = append(missing, "username")
	}
	if n.Password == "" {
		missing = append(missing, "password")
	}
	if !n.Role.Valid() {
		missing = append(missing, "role")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}
