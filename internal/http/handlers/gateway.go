package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hongminglow/dealer-gateway/internal/gateway"
	"github.com/hongminglow/dealer-gateway/internal/http/respond"
	"github.com/hongminglow/dealer-gateway/internal/models"
	"github.com/hongminglow/dealer-gateway/internal/models/dto"
)

const maxBodyBytes = 1 << 20

// Gateway is the subset of gateway.Service the handlers call.
type Gateway interface {
	Login(ctx context.Context, req dto.LoginRequest) (models.Account, error)
	SetupAccount(ctx context.Context, req dto.SetupAccountRequest) error
	SubmitQuery(ctx context.Context, req dto.QueryRequest) (string, error)
}

// GatewayHandler owns the login, setup-account, and query endpoints.
type GatewayHandler struct {
	svc Gateway
	log *slog.Logger
}

// NewGatewayHandler constructs the handler.
func NewGatewayHandler(svc Gateway, logger *slog.Logger) *GatewayHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GatewayHandler{svc: svc, log: logger}
}

// Register attaches gateway routes to the mux.
func (h *GatewayHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/login", h.handleLogin)
	mux.HandleFunc("/api/setup-account", h.handleSetupAccount)
	mux.HandleFunc("/api/query", h.handleQuery)
}

type validator interface {
	Validate() error
}

// decode reads a JSON body into dst and runs its schema check. It writes the
// 400 response itself and reports whether the caller may continue.
func decode(w http.ResponseWriter, r *http.Request, dst validator) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	if err := dst.Validate(); err != nil {
		var vErr *dto.ValidationError
		if errors.As(err, &vErr) {
			respond.Failure(w, http.StatusBadRequest, vErr.Error())
			return false
		}
		respond.Failure(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

func (h *GatewayHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	account, err := h.svc.Login(r.Context(), req)
	if err != nil {
		var credErr *gateway.CredentialError
		if errors.As(err, &credErr) {
			respond.JSON(w, http.StatusOK, dto.LoginResponse{Message: "Invalid credentials"})
			return
		}
		h.log.Error("login failed", "error", err)
		respond.Fault(w, http.StatusInternalServerError, "Internal server error", "internal_error")
		return
	}
	respond.JSON(w, http.StatusOK, dto.LoginResponse{Success: true, Message: "Login successful", User: &account})
}

func (h *GatewayHandler) handleSetupAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.SetupAccountRequest
	if !decode(w, r, &req) {
		return
	}

	err := h.svc.SetupAccount(r.Context(), req)
	if err == nil {
		respond.OK(w)
		return
	}

	var (
		vErr   *gateway.ValidationError
		updErr *gateway.UpdateError
	)
	switch {
	case errors.As(err, &vErr):
		status, message := setupRefusal(vErr.Reason)
		respond.Failure(w, status, message)
	case errors.As(err, &updErr):
		respond.Failure(w, http.StatusBadRequest, "Update failed")
	default:
		h.log.Error("setup account failed", "error", err)
		respond.Failure(w, http.StatusInternalServerError, "Internal server error")
	}
}

func setupRefusal(reason gateway.Reason) (int, string) {
	switch reason {
	case gateway.ReasonNotFound:
		return http.StatusNotFound, "User with this email does not exist."
	case gateway.ReasonNotVerified:
		return http.StatusForbidden, "Email not verified."
	case gateway.ReasonRoleMismatch:
		return http.StatusForbidden, "Role does not match the assigned role."
	case gateway.ReasonUsernameTaken:
		return http.StatusConflict, "Username is already taken."
	case gateway.ReasonAlreadySetUp:
		return http.StatusForbidden, "Account is already set up."
	case gateway.ReasonPasswordTooLong:
		return http.StatusBadRequest, "password is too long"
	default:
		return http.StatusBadRequest, fmt.Sprintf("account setup rejected: %s", reason)
	}
}

func (h *GatewayHandler) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.QueryRequest
	if !decode(w, r, &req) {
		return
	}

	answer, err := h.svc.SubmitQuery(r.Context(), req)
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			respond.Failure(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		h.log.Error("query failed", "error", err)
		respond.Failure(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respond.JSON(w, http.StatusOK, dto.QueryResponse{Success: true, Answer: answer})
}
