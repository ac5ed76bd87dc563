package dto

import (
	"fmt"
	"strings"

	"github.com/hongminglow/dealer-gateway/internal/auth"
	"github.com/hongminglow/dealer-gateway/internal/directory"
	"github.com/hongminglow/dealer-gateway/internal/models"
)

// ValidationError reports a request body that failed its schema check.
type ValidationError struct {
	Field   string
	Problem string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Problem)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Problem: "is required"}
	}
	return nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Validate checks required fields.
func (r LoginRequest) Validate() error {
	for _, f := range [][2]string{{"username", r.Username}, {"password", r.Password}, {"role", r.Role}} {
		if err := required(f[0], f[1]); err != nil {
			return err
		}
	}
	return nil
}

// Normalized trims every field and folds the role.
func (r LoginRequest) Normalized() LoginRequest {
	return LoginRequest{
		Username: strings.TrimSpace(r.Username),
		Password: strings.TrimSpace(r.Password),
		Role:     models.NormalizeRole(r.Role),
	}
}

type LoginResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	User    *models.Account `json:"user,omitempty"`
}

type SetupAccountRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Validate checks required fields, that the username survives normalization,
// and that the password fits bcrypt's input limit.
func (r SetupAccountRequest) Validate() error {
	for _, f := range [][2]string{{"email", r.Email}, {"username", r.Username}, {"password", r.Password}, {"role", r.Role}} {
		if err := required(f[0], f[1]); err != nil {
			return err
		}
	}
	if directory.Normalize(r.Username) == "" {
		return &ValidationError{Field: "username", Problem: "must contain more than periods and spaces"}
	}
	if len(strings.TrimSpace(r.Password)) > auth.MaxPasswordBytes {
		return &ValidationError{Field: "password", Problem: fmt.Sprintf("must be at most %d bytes", auth.MaxPasswordBytes)}
	}
	return nil
}

type QueryRequest struct {
	Username string `json:"username"`
	Query    string `json:"query"`
}

// Validate checks required fields.
func (r QueryRequest) Validate() error {
	if err := required("username", r.Username); err != nil {
		return err
	}
	return required("query", r.Query)
}

type QueryResponse struct {
	Success bool   `json:"success"`
	Answer  string `json:"answer"`
}
