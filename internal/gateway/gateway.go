// Package gateway implements login, account setup, and identity-scoped query
// submission on top of the users directory.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hongminglow/dealer-gateway/internal/auth"
	"github.com/hongminglow/dealer-gateway/internal/directory"
	"github.com/hongminglow/dealer-gateway/internal/identity"
	"github.com/hongminglow/dealer-gateway/internal/models"
	"github.com/hongminglow/dealer-gateway/internal/models/dto"
	"github.com/hongminglow/dealer-gateway/internal/observability"
	"github.com/hongminglow/dealer-gateway/internal/query"
	"github.com/hongminglow/dealer-gateway/internal/storage"
)

// Service orchestrates directory lookups, credential checks, and delegation.
type Service struct {
	dir       *directory.Directory
	processor query.Processor
	timeout   time.Duration
	log       *slog.Logger
}

// Options configures a Service.
type Options struct {
	// Timeout bounds each directory and delegate call. Zero disables it.
	Timeout time.Duration
	Logger  *slog.Logger
}

// New constructs the service.
func New(store storage.UserStore, processor query.Processor, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		dir:       directory.New(store),
		processor: processor,
		timeout:   opts.Timeout,
		log:       logger,
	}
}

func (s *Service) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Login checks username, password, and role against the directory and returns
// the public projection of the matching record.
func (s *Service) Login(ctx context.Context, req dto.LoginRequest) (models.Account, error) {
	req = req.Normalized()
	log := s.log.With("op", "login", "username", req.Username)

	lookupCtx, cancel := s.bounded(ctx)
	user, err := s.dir.Exact(lookupCtx, req.Username)
	cancel()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Account{}, s.refuseLogin(log, ReasonUserNotFound)
		}
		observability.RecordOutcome("login", "fault")
		return models.Account{}, &Fault{Op: "lookup user", Err: err}
	}
	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		return models.Account{}, s.refuseLogin(log, ReasonPasswordMismatch)
	}
	if !models.SameRole(user.Role, req.Role) {
		return models.Account{}, s.refuseLogin(log, ReasonRoleMismatch)
	}

	observability.RecordOutcome("login", "success")
	log.Info("login succeeded", "user_id", user.ID)
	return user.Account(), nil
}

func (s *Service) refuseLogin(log *slog.Logger, reason Reason) error {
	observability.RecordOutcome("login", string(reason))
	log.Info("login refused", "reason", reason)
	return &CredentialError{Reason: reason}
}

// SetupAccount sets the username and password of a provisioned, verified record.
// Records that already carry a username or password are never rewritten.
func (s *Service) SetupAccount(ctx context.Context, req dto.SetupAccountRequest) error {
	email := strings.TrimSpace(req.Email)
	username := strings.TrimSpace(req.Username)
	log := s.log.With("op", "setup_account", "email", email)

	lookupCtx, cancel := s.bounded(ctx)
	defer cancel()

	user, err := s.dir.ByEmail(lookupCtx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return s.refuseSetup(log, ReasonNotFound)
		}
		observability.RecordOutcome("setup_account", "fault")
		return &Fault{Op: "lookup email", Err: err}
	}
	if !user.IsVerified {
		return s.refuseSetup(log, ReasonNotVerified)
	}
	if !models.SameRole(user.Role, req.Role) {
		return s.refuseSetup(log, ReasonRoleMismatch)
	}
	if user.Username != "" || user.PasswordHash != "" {
		return s.refuseSetup(log, ReasonAlreadySetUp)
	}

	taken, err := s.dir.Taken(lookupCtx, username, user.Email)
	if err != nil {
		observability.RecordOutcome("setup_account", "fault")
		return &Fault{Op: "check username", Err: err}
	}
	if taken {
		return s.refuseSetup(log, ReasonUsernameTaken)
	}

	hash, err := auth.HashPassword(strings.TrimSpace(req.Password))
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return s.refuseSetup(log, ReasonPasswordTooLong)
		}
		observability.RecordOutcome("setup_account", "fault")
		return &Fault{Op: "hash password", Err: err}
	}
	if err := s.dir.UpdateCredentials(lookupCtx, user.Email, username, hash); err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			return s.refuseSetup(log, ReasonUsernameTaken)
		case errors.Is(err, storage.ErrAlreadySetUp):
			return s.refuseSetup(log, ReasonAlreadySetUp)
		}
		observability.RecordOutcome("setup_account", "update_failed")
		log.Error("account setup update failed", "error", err)
		return &UpdateError{Err: err}
	}

	observability.RecordOutcome("setup_account", "success")
	log.Info("account setup completed", "user_id", user.ID)
	return nil
}

func (s *Service) refuseSetup(log *slog.Logger, reason Reason) error {
	observability.RecordOutcome("setup_account", string(reason))
	log.Info("account setup refused", "reason", reason)
	return &ValidationError{Reason: reason}
}

// SubmitQuery resolves the caller's identity and delegates the query under it.
// The identity is passed explicitly and through ctx; nothing is shared between
// concurrent requests.
func (s *Service) SubmitQuery(ctx context.Context, req dto.QueryRequest) (answer string, err error) {
	log := s.log.With("op", "query", "username", req.Username)
	log.Debug("resolving identity")

	lookupCtx, cancel := s.bounded(ctx)
	user, err := s.dir.Resolve(lookupCtx, req.Username)
	cancel()
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound), errors.Is(err, directory.ErrAmbiguous):
			observability.RecordOutcome("query", "unauthorized")
			log.Info("identity unresolved", "error", err)
			return "", ErrUnauthorized
		default:
			observability.RecordOutcome("query", "fault")
			return "", &Fault{Op: "resolve identity", Err: err}
		}
	}

	id := identity.Build(user)
	log = log.With("user_id", id.UserID)
	log.Debug("identity resolved", "role", id.Role, "dealer_scoped", id.DealerScoped())

	delegateCtx, cancel := s.bounded(identity.WithContext(ctx, id))
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			observability.RecordOutcome("query", "fault")
			answer, err = "", &Fault{Op: "process query", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	log.Debug("delegating query")
	start := time.Now()
	answer, err = s.processor.Process(delegateCtx, req.Query, id)
	observability.DelegateLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.RecordOutcome("query", "fault")
		return "", &Fault{Op: "process query", Err: err}
	}

	observability.RecordOutcome("query", "answered")
	log.Debug("query answered")
	return answer, nil
}
