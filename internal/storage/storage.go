package storage

import (
	"context"
	"errors"

	"github.com/hongminglow/dealer-gateway/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrAlreadySetUp indicates the record already holds a username or password.
var ErrAlreadySetUp = errors.New("account already set up")

// UserStore captures the directory operations the gateway needs.
type UserStore interface {
	// FindByUsername matches the username column exactly.
	FindByUsername(ctx context.Context, username string) (models.User, error)
	// FindByEmail matches the email column exactly.
	FindByEmail(ctx context.Context, email string) (models.User, error)
	// ListUsers returns every record ordered by user id.
	ListUsers(ctx context.Context) ([]models.User, error)
	// UpdateCredentials sets username and password hash on the record with the
	// given email. Only records with neither set are written; others yield
	// ErrAlreadySetUp.
	UpdateCredentials(ctx context.Context, email, username, passwordHash string) error
	// CreateUser inserts a provisioned record. Used by fixtures, not by the gateway.
	CreateUser(ctx context.Context, user models.User) (models.User, error)
}
