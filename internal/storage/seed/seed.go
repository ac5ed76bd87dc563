// Package seed loads provisioning fixtures into a users directory.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hongminglow/dealer-gateway/internal/auth"
	"github.com/hongminglow/dealer-gateway/internal/directory"
	"github.com/hongminglow/dealer-gateway/internal/models"
	"github.com/hongminglow/dealer-gateway/internal/storage"
)

// Fixture is the YAML document accepted by Load.
//
//	users:
//	  - email: alice@example.com
//	    username: Alice.B
//	    password: secret
//	    role: dealer
//	    dealer_id: 42
//	    is_verified: true
type Fixture struct {
	Users []Entry `yaml:"users"`
}

// Entry provisions one record. Password is plaintext in the fixture and is
// hashed before it reaches the store; leave it empty for records that still
// need account setup.
type Entry struct {
	Email      string `yaml:"email"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Role       string `yaml:"role"`
	DealerID   *int64 `yaml:"dealer_id"`
	IsVerified bool   `yaml:"is_verified"`
}

// Parse decodes a fixture and checks it before anything is written.
// Usernames must be unique after normalization.
func Parse(r io.Reader) (Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}

	seen := make(map[string]string)
	for i, e := range f.Users {
		if strings.TrimSpace(e.Email) == "" || strings.TrimSpace(e.Role) == "" {
			return Fixture{}, fmt.Errorf("users[%d]: email and role are required", i)
		}
		if e.DealerID != nil && models.NormalizeRole(e.Role) != models.RoleDealer {
			return Fixture{}, fmt.Errorf("users[%d]: dealer_id is only valid for dealer accounts", i)
		}
		if e.Username == "" {
			continue
		}
		key := directory.Normalize(e.Username)
		if prev, ok := seen[key]; ok {
			return Fixture{}, fmt.Errorf("users[%d]: username %q collides with %q", i, e.Username, prev)
		}
		seen[key] = e.Username
	}
	return f, nil
}

// Result summarizes a Load run.
type Result struct {
	Created int
	Skipped int
}

// Load writes every entry to store. Entries whose email already exists are
// skipped; a username clash with another record is an error.
func Load(ctx context.Context, store storage.UserStore, f Fixture) (Result, error) {
	var res Result
	for i, e := range f.Users {
		user := models.User{
			Email:      strings.TrimSpace(e.Email),
			Username:   strings.TrimSpace(e.Username),
			Role:       models.NormalizeRole(e.Role),
			DealerID:   e.DealerID,
			IsVerified: e.IsVerified,
		}
		if e.Password != "" {
			hash, err := auth.HashPassword(e.Password)
			if err != nil {
				return res, fmt.Errorf("users[%d]: hash password: %w", i, err)
			}
			user.PasswordHash = hash
		}
		if _, err := store.CreateUser(ctx, user); err != nil {
			if !errors.Is(err, storage.ErrAlreadyExists) {
				return res, fmt.Errorf("users[%d]: %w", i, err)
			}
			if _, lookupErr := store.FindByEmail(ctx, user.Email); lookupErr != nil {
				if errors.Is(lookupErr, storage.ErrNotFound) {
					return res, fmt.Errorf("users[%d]: username %q conflicts with an existing record", i, user.Username)
				}
				return res, fmt.Errorf("users[%d]: %w", i, lookupErr)
			}
			res.Skipped++
			continue
		}
		res.Created++
	}
	return res, nil
}
