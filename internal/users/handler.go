package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"verisight-backend/internal/shared/server/middleware"
	"verisight-backend/internal/shared/server/respond"
	"verisight-backend/internal/shared/telemetry"
)

type Handler struct {
	Svc *Service
	// SecureCookie marks the session cookie Secure with SameSite=None.
	SecureCookie bool
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, SecureCookie: true}
}

// RegisterPublicRoutes attaches sign-up, login and logout.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
	rg.POST("/logout", h.logout)
	rg.GET("/logout", h.logout)
}

// RegisterRoutes attaches routes that need an authenticated caller.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/user", h.currentUser)
	rg.GET("/admin/summary", h.adminSummary)
}

type registerRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Email     string `json:"email" binding:"omitempty,email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	User
	SessionToken string `json:"sessionToken"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) && len(vErrs) > 0 && vErrs[0].Field() == "Email" {
			respond.FieldError(c, http.StatusBadRequest, "email", "Invalid email address")
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_failed", "Username and password required")
		return
	}
	_, err := h.Svc.Register(c.Request.Context(), RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	switch {
	case errors.Is(err, ErrMissingCredentials):
		respond.Error(c, http.StatusBadRequest, "validation_failed", "Username and password required")
	case errors.Is(err, ErrUsernameTaken):
		respond.FieldError(c, http.StatusBadRequest, "username", "Username already exists")
	case err != nil:
		respond.Error(c, http.StatusInternalServerError, "internal", "Internal server error")
	default:
		respond.JSON(c, http.StatusCreated, gin.H{"message": "User registered successfully"})
	}
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_failed", "Username and password required")
		return
	}
	user, token, err := h.Svc.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
		return
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "Internal server error")
		return
	}
	c.Set("userId", user.ID)
	h.setSessionCookie(c, token, int(h.Svc.Signer.TTL().Seconds()))
	respond.OK(c, loginResponse{User: user, SessionToken: token})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.Svc.Logout(c.Request.Context(), middleware.TokenFromRequest(c)); err != nil {
		telemetry.Error("user.logout_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal", "Logout failed")
		return
	}
	h.setSessionCookie(c, "", -1)
	respond.OK(c, gin.H{"message": "Logged out"})
}

func (h *Handler) currentUser(c *gin.Context) {
	user, err := h.Svc.GetByID(c.Request.Context(), middleware.UserIDFromContext(c))
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "Internal server error")
		return
	}
	respond.OK(c, user)
}

func (h *Handler) adminSummary(c *gin.Context) {
	if !h.Svc.IsAdmin(middleware.UserIDFromContext(c)) {
		respond.Error(c, http.StatusForbidden, "forbidden", "Forbidden")
		return
	}
	summary, err := h.Svc.Summary(c.Request.Context())
	if err != nil {
		telemetry.Error("admin.summary_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal", "Failed to fetch summary")
		return
	}
	respond.OK(c, summary)
}

func (h *Handler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	if h.SecureCookie {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(middleware.SessionCookie, value, maxAge, "/", "", h.SecureCookie, true)
}
