package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hongminglow/dealer-gateway/internal/auth"
	"github.com/hongminglow/dealer-gateway/internal/identity"
	"github.com/hongminglow/dealer-gateway/internal/models"
	"github.com/hongminglow/dealer-gateway/internal/models/dto"
	"github.com/hongminglow/dealer-gateway/internal/storage"
)

type memStore struct {
	mu      sync.Mutex
	users   []models.User
	err     error
	updErr  error
	updates int
}

func (s *memStore) find(match func(models.User) bool) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.User{}, s.err
	}
	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (s *memStore) FindByUsername(_ context.Context, username string) (models.User, error) {
	return s.find(func(u models.User) bool { return u.Username == username })
}

func (s *memStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	return s.find(func(u models.User) bool { return u.Email == email })
}

func (s *memStore) ListUsers(context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.User(nil), s.users...), nil
}

func (s *memStore) UpdateCredentials(_ context.Context, email, username, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updErr != nil {
		return s.updErr
	}
	for i := range s.users {
		if s.users[i].Email == email {
			if s.users[i].Username != "" || s.users[i].PasswordHash != "" {
				return storage.ErrAlreadySetUp
			}
			s.users[i].Username = username
			s.users[i].PasswordHash = hash
			s.updates++
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *memStore) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = int64(len(s.users) + 1)
	s.users = append(s.users, user)
	return user, nil
}

type processorFunc func(ctx context.Context, query string, id identity.Context) (string, error)

func (f processorFunc) Process(ctx context.Context, query string, id identity.Context) (string, error) {
	return f(ctx, query, id)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return hash
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(store storage.UserStore, p processorFunc) *Service {
	if p == nil {
		p = func(context.Context, string, identity.Context) (string, error) { return "", nil }
	}
	return New(store, p, Options{Timeout: time.Second, Logger: quietLogger()})
}

func dealerID(v int64) *int64 { return &v }

func aliceStore(t *testing.T) *memStore {
	return &memStore{users: []models.User{{
		ID:           1,
		Username:     "Alice.B",
		Email:        "alice@example.com",
		PasswordHash: mustHash(t, "secret"),
		Role:         "dealer",
		DealerID:     dealerID(42),
		IsVerified:   true,
	}}}
}

func TestLogin(t *testing.T) {
	svc := newService(aliceStore(t), nil)

	tests := []struct {
		name   string
		req    dto.LoginRequest
		reason Reason
	}{
		{name: "success", req: dto.LoginRequest{Username: "Alice.B", Password: "secret", Role: "dealer"}},
		{name: "trims and folds role", req: dto.LoginRequest{Username: " Alice.B ", Password: " secret ", Role: " DEALER "}},
		{name: "unknown user", req: dto.LoginRequest{Username: "aliceb", Password: "secret", Role: "dealer"}, reason: ReasonUserNotFound},
		{name: "wrong password", req: dto.LoginRequest{Username: "Alice.B", Password: "nope", Role: "dealer"}, reason: ReasonPasswordMismatch},
		{name: "wrong role", req: dto.LoginRequest{Username: "Alice.B", Password: "secret", Role: "admin"}, reason: ReasonRoleMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := svc.Login(context.Background(), tt.req)
			if tt.reason == "" {
				if err != nil {
					t.Fatalf("login: %v", err)
				}
				if account.UserID != 1 || account.DealerID == nil || *account.DealerID != 42 {
					t.Fatalf("unexpected account: %+v", account)
				}
				return
			}
			var credErr *CredentialError
			if !errors.As(err, &credErr) {
				t.Fatalf("error = %v, want CredentialError", err)
			}
			if credErr.Reason != tt.reason {
				t.Fatalf("reason = %s, want %s", credErr.Reason, tt.reason)
			}
		})
	}
}

func TestLoginStoreFault(t *testing.T) {
	store := aliceStore(t)
	store.err = errors.New("connection reset")
	_, err := newService(store, nil).Login(context.Background(), dto.LoginRequest{Username: "Alice.B", Password: "secret", Role: "dealer"})
	var fault *Fault
	if !errors.As(err, &fault) {
		t.Fatalf("error = %v, want Fault", err)
	}
	var credErr *CredentialError
	if errors.As(err, &credErr) {
		t.Fatal("store fault must not be reported as a credential failure")
	}
}

func provisioned(verified bool, role string) *memStore {
	return &memStore{users: []models.User{
		{ID: 1, Username: "Alice.B", Email: "alice@example.com", Role: "dealer", IsVerified: true},
		{ID: 2, Email: "new@example.com", Role: role, IsVerified: verified},
	}}
}

func TestSetupAccount(t *testing.T) {
	store := provisioned(true, "Dealer")
	svc := newService(store, nil)

	err := svc.SetupAccount(context.Background(), dto.SetupAccountRequest{
		Email: "new@example.com", Username: "bob.c", Password: "hunter22", Role: " dealer ",
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	got, _ := store.FindByEmail(context.Background(), "new@example.com")
	if got.Username != "bob.c" {
		t.Fatalf("username = %q, want bob.c", got.Username)
	}
	if got.PasswordHash == "" || got.PasswordHash == "hunter22" || !auth.VerifyPassword("hunter22", got.PasswordHash) {
		t.Fatalf("password hash not stored: %q", got.PasswordHash)
	}

	if _, err := svc.Login(context.Background(), dto.LoginRequest{Username: "bob.c", Password: "hunter22", Role: "dealer"}); err != nil {
		t.Fatalf("login after setup: %v", err)
	}
}

func TestSetupAccountRejections(t *testing.T) {
	tests := []struct {
		name   string
		store  *memStore
		req    dto.SetupAccountRequest
		reason Reason
	}{
		{
			name:   "unknown email",
			store:  provisioned(true, "dealer"),
			req:    dto.SetupAccountRequest{Email: "ghost@example.com", Username: "g", Password: "p", Role: "dealer"},
			reason: ReasonNotFound,
		},
		{
			name:   "not verified",
			store:  provisioned(false, "dealer"),
			req:    dto.SetupAccountRequest{Email: "new@example.com", Username: "bob", Password: "p", Role: "dealer"},
			reason: ReasonNotVerified,
		},
		{
			name:   "role mismatch",
			store:  provisioned(true, "user"),
			req:    dto.SetupAccountRequest{Email: "new@example.com", Username: "bob", Password: "p", Role: "dealer"},
			reason: ReasonRoleMismatch,
		},
		{
			name:   "username taken after normalization",
			store:  provisioned(true, "dealer"),
			req:    dto.SetupAccountRequest{Email: "new@example.com", Username: "ALICEB", Password: "p", Role: "dealer"},
			reason: ReasonUsernameTaken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newService(tt.store, nil).SetupAccount(context.Background(), tt.req)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if vErr.Reason != tt.reason {
				t.Fatalf("reason = %s, want %s", vErr.Reason, tt.reason)
			}
			if tt.store.updates != 0 {
				t.Fatal("rejected setup must not write")
			}
		})
	}
}

func TestSetupAccountKeepsEstablishedCredentials(t *testing.T) {
	store := aliceStore(t)
	svc := newService(store, nil)
	ctx := context.Background()

	err := svc.SetupAccount(ctx, dto.SetupAccountRequest{
		Email: "alice@example.com", Username: "Alice.B", Password: "attacker", Role: "dealer",
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Reason != ReasonAlreadySetUp {
		t.Fatalf("error = %v, want ValidationError(%s)", err, ReasonAlreadySetUp)
	}
	if store.updates != 0 {
		t.Fatal("established record must not be written")
	}
	if _, err := svc.Login(ctx, dto.LoginRequest{Username: "Alice.B", Password: "secret", Role: "dealer"}); err != nil {
		t.Fatalf("original password no longer works: %v", err)
	}
	if _, err := svc.Login(ctx, dto.LoginRequest{Username: "Alice.B", Password: "attacker", Role: "dealer"}); err == nil {
		t.Fatal("replacement password must not log in")
	}
}

// A concurrent setup can complete between the email lookup and the write.
func TestSetupAccountLosesWriteRace(t *testing.T) {
	store := provisioned(true, "dealer")
	store.updErr = storage.ErrAlreadySetUp

	err := newService(store, nil).SetupAccount(context.Background(), dto.SetupAccountRequest{
		Email: "new@example.com", Username: "bob", Password: "p", Role: "dealer",
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Reason != ReasonAlreadySetUp {
		t.Fatalf("error = %v, want ValidationError(%s)", err, ReasonAlreadySetUp)
	}
}

func TestSetupAccountPasswordTooLong(t *testing.T) {
	store := provisioned(true, "dealer")
	err := newService(store, nil).SetupAccount(context.Background(), dto.SetupAccountRequest{
		Email: "new@example.com", Username: "bob", Password: strings.Repeat("x", 73), Role: "dealer",
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Reason != ReasonPasswordTooLong {
		t.Fatalf("error = %v, want ValidationError(%s)", err, ReasonPasswordTooLong)
	}
	var fault *Fault
	if errors.As(err, &fault) {
		t.Fatal("oversized password must not be reported as a fault")
	}
}

func TestSetupAccountUpdateFailure(t *testing.T) {
	store := provisioned(true, "dealer")
	boom := errors.New("check constraint violated")
	store.updErr = boom

	err := newService(store, nil).SetupAccount(context.Background(), dto.SetupAccountRequest{
		Email: "new@example.com", Username: "bob", Password: "p", Role: "dealer",
	})
	var updErr *UpdateError
	if !errors.As(err, &updErr) {
		t.Fatalf("error = %v, want UpdateError", err)
	}
	if !errors.Is(err, boom) {
		t.Fatal("update error must carry the underlying cause")
	}
}

func TestSubmitQueryEndToEnd(t *testing.T) {
	store := aliceStore(t)
	var seen identity.Context
	svc := newService(store, func(ctx context.Context, query string, id identity.Context) (string, error) {
		seen = id
		if fromCtx, ok := identity.FromContext(ctx); !ok || fromCtx.UserID != id.UserID {
			t.Errorf("identity missing from context: %+v %v", fromCtx, ok)
		}
		return "orders for " + query, nil
	})

	if _, err := svc.Login(context.Background(), dto.LoginRequest{Username: "Alice.B", Password: "secret", Role: "dealer"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	answer, err := svc.SubmitQuery(context.Background(), dto.QueryRequest{Username: "aliceb", Query: "show my orders"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if answer != "orders for show my orders" {
		t.Fatalf("answer = %q", answer)
	}
	if seen.UserID != 1 || seen.DealerID == nil || *seen.DealerID != 42 || !seen.DealerScoped() {
		t.Fatalf("collaborator saw identity %+v", seen)
	}
}

func TestSubmitQueryUnauthorized(t *testing.T) {
	called := false
	svc := newService(aliceStore(t), func(context.Context, string, identity.Context) (string, error) {
		called = true
		return "", nil
	})
	_, err := svc.SubmitQuery(context.Background(), dto.QueryRequest{Username: "mallory", Query: "q"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	var fault *Fault
	if errors.As(err, &fault) {
		t.Fatal("unresolved identity must not be a fault")
	}
	if called {
		t.Fatal("collaborator must not be called without an identity")
	}
}

func TestSubmitQueryAmbiguousIsUnauthorized(t *testing.T) {
	store := &memStore{users: []models.User{
		{ID: 1, Username: "ann.lee", Role: "user"},
		{ID: 2, Username: "Ann.Lee", Role: "admin"},
	}}
	_, err := newService(store, nil).SubmitQuery(context.Background(), dto.QueryRequest{Username: "annlee", Query: "q"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
}

func TestSubmitQueryFaults(t *testing.T) {
	t.Run("directory", func(t *testing.T) {
		store := aliceStore(t)
		store.err = errors.New("timeout")
		_, err := newService(store, nil).SubmitQuery(context.Background(), dto.QueryRequest{Username: "aliceb", Query: "q"})
		var fault *Fault
		if !errors.As(err, &fault) || errors.Is(err, ErrUnauthorized) {
			t.Fatalf("error = %v, want Fault", err)
		}
	})
	t.Run("collaborator error", func(t *testing.T) {
		svc := newService(aliceStore(t), func(context.Context, string, identity.Context) (string, error) {
			return "", errors.New("model unavailable")
		})
		_, err := svc.SubmitQuery(context.Background(), dto.QueryRequest{Username: "aliceb", Query: "q"})
		var fault *Fault
		if !errors.As(err, &fault) {
			t.Fatalf("error = %v, want Fault", err)
		}
	})
	t.Run("collaborator panic", func(t *testing.T) {
		svc := newService(aliceStore(t), func(context.Context, string, identity.Context) (string, error) {
			panic("nil map")
		})
		answer, err := svc.SubmitQuery(context.Background(), dto.QueryRequest{Username: "aliceb", Query: "q"})
		var fault *Fault
		if !errors.As(err, &fault) || answer != "" {
			t.Fatalf("answer, error = %q, %v; want Fault", answer, err)
		}
	})
	t.Run("collaborator deadline", func(t *testing.T) {
		store := aliceStore(t)
		svc := New(store, processorFunc(func(ctx context.Context, _ string, _ identity.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}), Options{Timeout: 20 * time.Millisecond, Logger: quietLogger()})
		_, err := svc.SubmitQuery(context.Background(), dto.QueryRequest{Username: "aliceb", Query: "q"})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("error = %v, want deadline exceeded", err)
		}
	})
}

func TestSubmitQueryConcurrentIdentitiesStayIsolated(t *testing.T) {
	store := &memStore{users: []models.User{
		{ID: 1, Username: "Alice.B", Role: "dealer", DealerID: dealerID(42)},
		{ID: 2, Username: "Carl.D", Role: "dealer", DealerID: dealerID(77)},
	}}
	svc := newService(store, func(ctx context.Context, _ string, id identity.Context) (string, error) {
		time.Sleep(time.Millisecond)
		fromCtx, _ := identity.FromContext(ctx)
		return fmt.Sprintf("%d/%d/%d", id.UserID, *id.DealerID, fromCtx.UserID), nil
	})

	want := map[string]string{"aliceb": "1/42/1", "carld": "2/77/2"}
	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for i := 0; i < 100; i++ {
		for username, expected := range want {
			wg.Add(1)
			go func(username, expected string) {
				defer wg.Done()
				answer, err := svc.SubmitQuery(context.Background(), dto.QueryRequest{Username: username, Query: "q"})
				if err != nil {
					errs <- err
					return
				}
				if answer != expected {
					errs <- fmt.Errorf("%s got %q, want %q", username, answer, expected)
				}
			}(username, expected)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
