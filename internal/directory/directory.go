// Package directory resolves user-entered usernames to directory records.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hongminglow/dealer-gateway/internal/models"
	"github.com/hongminglow/dealer-gateway/internal/storage"
)

// ErrAmbiguous indicates more than one record normalizes to the same username.
var ErrAmbiguous = errors.New("username matches more than one record")

// Normalize folds a username for tolerant matching: surrounding whitespace is
// trimmed, case is lowered, and periods are removed.
func Normalize(username string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(username)), ".", "")
}

// Directory performs username lookups against a UserStore.
type Directory struct {
	store storage.UserStore
}

// New wraps store.
func New(store storage.UserStore) *Directory {
	return &Directory{store: store}
}

// Exact returns the record whose username equals username byte for byte.
func (d *Directory) Exact(ctx context.Context, username string) (models.User, error) {
	return d.store.FindByUsername(ctx, username)
}

// ByEmail returns the record with the given email.
func (d *Directory) ByEmail(ctx context.Context, email string) (models.User, error) {
	return d.store.FindByEmail(ctx, email)
}

// UpdateCredentials writes a new username and password hash for the record with email.
func (d *Directory) UpdateCredentials(ctx context.Context, email, username, passwordHash string) error {
	return d.store.UpdateCredentials(ctx, email, username, passwordHash)
}

// Resolve scans the directory for the record whose normalized username equals
// the normalized input. It returns storage.ErrNotFound when nothing matches and
// ErrAmbiguous when several records match.
func (d *Directory) Resolve(ctx context.Context, username string) (models.User, error) {
	want := Normalize(username)
	if want == "" {
		return models.User{}, storage.ErrNotFound
	}
	users, err := d.store.ListUsers(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("resolve username: %w", err)
	}

	var (
		match models.User
		found bool
	)
	for _, u := range users {
		if Normalize(u.Username) != want {
			continue
		}
		if found {
			return models.User{}, fmt.Errorf("%w: user ids %d and %d", ErrAmbiguous, match.ID, u.ID)
		}
		match, found = u, true
	}
	if !found {
		return models.User{}, storage.ErrNotFound
	}
	return match, nil
}

// Taken reports whether a record other than the one registered under
// exceptEmail already normalizes to username.
func (d *Directory) Taken(ctx context.Context, username, exceptEmail string) (bool, error) {
	want := Normalize(username)
	users, err := d.store.ListUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	for _, u := range users {
		if u.Email != exceptEmail && u.Username != "" && Normalize(u.Username) == want {
			return true, nil
		}
	}
	return false, nil
}
