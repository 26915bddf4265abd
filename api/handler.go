package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"concorda/agreement"
	"concorda/auth"
	"concorda/dashboard"
	"concorda/preference"
	"concorda/profile"
	"concorda/suggest"
	"concorda/tip"
)

// Accounts registers users, issues tokens and changes passwords.
type Accounts interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	UpdatePassword(ctx context.Context, userID string, req auth.UpdatePasswordRequest) error
}

// Profiles reads and edits the signed-in user's profile.
type Profiles interface {
	Get(ctx context.Context, userID string) (profile.Profile, error)
	Update(ctx context.Context, userID string, req profile.UpdateRequest) (profile.Profile, error)
}

// Agreements creates and reads agreements scoped to their creator.
type Agreements interface {
	Create(ctx context.Context, ownerID string, params agreement.CreateParams) (agreement.Agreement, error)
	Get(ctx context.Context, ownerID, id string) (agreement.Agreement, error)
	List(ctx context.Context, filters agreement.ListFilters) ([]agreement.Agreement, int, error)
}

// Lifecycle runs the signed transitions and extensions of an agreement.
type Lifecycle interface {
	Load(ctx context.Context, ownerID, id string) (agreement.Agreement, error)
	Ratify(ctx context.Context, ownerID, id string, sigs *agreement.Collector) (agreement.Agreement, error)
	Complete(ctx context.Context, ownerID, id string, sigs *agreement.Collector) (agreement.Agreement, error)
	Fail(ctx context.Context, ownerID, id string, sigs *agreement.Collector) (agreement.Agreement, error)
	Extend(ctx context.Context, ownerID, id, validity string) (agreement.Agreement, error)
}

// Tips serves the tip of the day and its history.
type Tips interface {
	Today(ctx context.Context) (tip.Tip, error)
	List(ctx context.Context, limit int) ([]tip.Tip, error)
}

// Preferences loads and saves the user's favorite tips.
type Preferences interface {
	Load(ctx context.Context, userID string) (preference.Preferences, error)
	Save(ctx context.Context, userID string, p preference.Preferences) (preference.Preferences, error)
	ToggleFavorite(ctx context.Context, userID, tipID string) (preference.Preferences, error)
}

// Dashboard builds the home screen summary.
type Dashboard interface {
	Summary(ctx context.Context, ownerID string) (dashboard.Summary, error)
}

// Services groups the dependencies of Handler.
type Services struct {
	Accounts    Accounts
	Profiles    Profiles
	Agreements  Agreements
	Lifecycle   Lifecycle
	Suggester   suggest.Suggester
	Tips        Tips
	Preferences Preferences
	Dashboard   Dashboard
}

// Handler serves every route of the API.
type Handler struct {
	svc Services
	log zerolog.Logger
}

// NewHandler builds a Handler over svc.
func NewHandler(svc Services, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Register mounts the public auth routes and every protected route behind
// authMiddleware.
func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	router.POST("/auth/register", h.register)
	router.POST("/auth/login", h.login)

	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.PUT("/auth/password", h.updatePassword)
	protected.GET("/profile", h.getProfile)
	protected.PUT("/profile", h.updateProfile)

	protected.GET("/agreements", h.listAgreements)
	protected.POST("/agreements", h.createAgreement)
	protected.GET("/agreements/export.xlsx", h.exportHistory)
	protected.GET("/agreements/:id", h.getAgreement)
	protected.GET("/agreements/:id/certificate.pdf", h.certificate)
	protected.POST("/agreements/:id/ratify", h.ratify)
	protected.POST("/agreements/:id/complete", h.complete)
	protected.POST("/agreements/:id/fail", h.fail)
	protected.POST("/agreements/:id/extend", h.extend)
	protected.GET("/templates", h.templates)

	protected.POST("/suggestions/rules", h.suggestRules)
	protected.POST("/suggestions/penalties", h.suggestPenalties)
	protected.POST("/suggestions/title", h.suggestTitle)

	protected.GET("/tips/today", h.todayTip)
	protected.GET("/tips", h.listTips)
	protected.GET("/preferences", h.getPreferences)
	protected.PUT("/preferences", h.savePreferences)
	protected.POST("/preferences/favorites/:tipId", h.toggleFavorite)

	protected.GET("/dashboard", h.dashboard)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) userID(c *gin.Context) (string, bool) {
	id, ok := MustUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
	}
	return id, ok
}
