// Package identity holds the per-request identity established by the gateway.
package identity

import (
	"context"

	"github.com/hongminglow/dealer-gateway/internal/models"
)

// Context is the trusted identity of one request. It is a value type;
// callers copy it rather than share it.
type Context struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	DealerID *int64 `json:"dealer_id"`
}

// Build copies the identity fields from a resolved record. Callers validate
// the record before building.
func Build(user models.User) Context {
	c := Context{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}
	if user.DealerID != nil {
		id := *user.DealerID
		c.DealerID = &id
	}
	return c
}

// DealerScoped reports whether data visible to this identity is limited to its dealer.
func (c Context) DealerScoped() bool {
	return models.NormalizeRole(c.Role) == models.RoleDealer && c.DealerID != nil
}

type contextKey struct{}

// WithContext returns ctx carrying the identity.
func WithContext(ctx context.Context, id Context) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored in ctx, if any.
func FromContext(ctx context.Context) (Context, bool) {
	id, ok := ctx.Value(contextKey{}).(Context)
	return id, ok
}
