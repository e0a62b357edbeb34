package auth

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/catalog-api/internal/api"
)

type AuthHandler struct {
	AuthService AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		logger:      logger,
		AuthService: authService,
	}
}

// Register godoc
// @Summary      Register a user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        user body RegisterRequest true "New account"
// @Success      200 {object} UserResponse
// @Failure      400 {object} api.Response
// @Failure      503 {object} api.Response
// @Router       /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Register")
	defer span.End()
	l := h.logger.With(slog.String("handler", "Register"))

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Bad request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	span.SetAttributes(attribute.String("username", req.Username))

	user, err := h.AuthService.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		span.SetStatus(codes.Error, "registration failed")
		api.WriteError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "registered")
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

// Token godoc
// @Summary      Obtain an access token
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        username formData string true "Username"
// @Param        password formData string true "Password"
// @Success      200 {object} TokenResponse
// @Failure      400 {object} api.Response
// @Failure      401 {object} api.Response
// @Router       /auth/token [post]
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Token")
	defer span.End()
	l := h.logger.With(slog.String("handler", "Token"))

	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := r.ParseForm(); err != nil {
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid form body")
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if username == "" || password == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "username and password are required")
		return
	}
	l.DebugContext(ctx, "Authentication attempt",
		slog.String("username", username),
		slog.String("remote_addr", r.RemoteAddr))

	token, err := h.AuthService.Login(ctx, username, password)
	if err != nil {
		span.SetStatus(codes.Error, "login failed")
		api.WriteError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "token issued")
	api.WriteJSONResponse(w, r, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me godoc
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200 {object} UserResponse
// @Failure      401 {object} api.Response
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		api.WriteError(w, r, h.logger, api.ErrUnauthenticated)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, user.Public())
}
