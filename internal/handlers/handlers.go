package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/contacts"
	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/models"
	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/stats"
	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/store"
	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/templates"
)

type Handler struct {
	store     store.Store
	contacts  *contacts.Manager
	stats     *stats.Projector
	templates *templates.Library
	log       *zap.Logger
}

func New(s store.Store, m *contacts.Manager, p *stats.Projector, l *templates.Library, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{store: s, contacts: m, stats: p, templates: l, log: log}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api")

	api.POST("/users", h.createUser)
	api.GET("/users/:id", h.getUser)
	api.PUT("/users/:id", h.updateUser)
	api.GET("/users/:id/credits", h.creditHistory)

	api.POST("/contacts", h.submitContact)
	api.GET("/contacts", h.listContacts)
	api.GET("/contacts/pending", h.listPending)
	api.GET("/contacts/user/:userId", h.listBySubmitter)
	api.GET("/contacts/:id", h.getContact)
	api.PUT("/contacts/:id/status", h.decideContact)
	api.GET("/contacts/:id/approvals", h.contactApprovals)

	api.GET("/leaderboard", h.leaderboard)
	api.GET("/stats/:userId", h.userStats)

	api.POST("/ai/personalize", h.personalize)
	api.POST("/ai/templates", h.saveTemplate)
	api.GET("/ai/templates", h.listTemplates)

	api.GET("/settings", h.settings)
}

func ok(c *gin.Context, code int, data any) {
	c.JSON(code, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"success": false, "error": msg})
}

// bind decodes the JSON body into req, writing the error response on failure.
func bind(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		fail(c, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	fail(c, http.StatusBadRequest, err.Error())
	return false
}

// failErr maps core errors onto status codes.
func (h *Handler) failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, contacts.ErrValidation):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, contacts.ErrInvalidTransition):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, contacts.ErrPendingLimit):
		fail(c, http.StatusTooManyRequests, err.Error())
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "ambassador API is running"})
}

// User handlers

type userCreateReq struct {
	Email    string  `json:"email" binding:"required,email"`
	Name     string  `json:"name" binding:"required"`
	Role     string  `json:"role" binding:"omitempty,oneof=ambassador admin"`
	TeamRole *string `json:"team_role" binding:"omitempty,oneof=troopers cold_outreach outreach"`
}

// createUser registers the caller on first login and returns the existing
// account on later ones.
func (h *Handler) createUser(c *gin.Context) {
	var req userCreateReq
	if !bind(c, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var (
		u       models.User
		created bool
		denied  string
	)
	err := h.store.Update(c.Request.Context(), func(tx store.Tx) error {
		entries, err := tx.Settings()
		if err != nil {
			return err
		}
		domain := models.ParseSettings(entries).AllowedEmailDomain
		if domain != "" && !strings.HasSuffix(email, "@"+strings.ToLower(domain)) {
			denied = domain
			return nil
		}
		existing, err := tx.UserByEmail(email)
		if err == nil {
			u = *existing
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		role := req.Role
		if role == "" {
			role = models.RoleAmbassador
		}
		now := store.Now()
		u = models.User{
			ID:        store.NewID(),
			Email:     email,
			Name:      req.Name,
			Role:      role,
			TeamRole:  req.TeamRole,
			CreatedAt: now,
			UpdatedAt: now,
		}
		created = true
		return tx.InsertUser(&u)
	})
	if err != nil {
		h.failErr(c, err)
		return
	}
	if denied != "" {
		fail(c, http.StatusForbidden, "only @"+denied+" email addresses may register")
		return
	}
	if created {
		h.log.Info("user registered", zap.String("user_id", u.ID), zap.String("role", u.Role))
		ok(c, http.StatusCreated, u)
		return
	}
	ok(c, http.StatusOK, u)
}

func (h *Handler) getUser(c *gin.Context) {
	var u *models.User
	err := h.store.View(c.Request.Context(), func(tx store.Tx) error {
		var err error
		u, err = tx.User(c.Param("id"))
		return err
	})
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

type userUpdateReq struct {
	Name     *string `json:"name"`
	TeamRole *string `json:"team_role" binding:"omitempty,oneof='' troopers cold_outreach outreach"`
}

// updateUser changes profile fields only. An empty team_role clears it.
func (h *Handler) updateUser(c *gin.Context) {
	var req userUpdateReq
	if !bind(c, &req) {
		return
	}
	var u *models.User
	err := h.store.Update(c.Request.Context(), func(tx store.Tx) error {
		var err error
		u, err = tx.User(c.Param("id"))
		if err != nil {
			return err
		}
		if req.Name != nil {
			u.Name = *req.Name
		}
		if req.TeamRole != nil {
			if *req.TeamRole == "" {
				u.TeamRole = nil
			} else {
				role := *req.TeamRole
				u.TeamRole = &role
			}
		}
		u.UpdatedAt = store.Now()
		return tx.SaveUser(u)
	})
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

func (h *Handler) creditHistory(c *gin.Context) {
	entries, err := h.contacts.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, entries)
}

// Contact handlers

type contactCreateReq struct {
	contacts.Input
	SubmittedBy string `json:"submitted_by"`
}

func (h *Handler) submitContact(c *gin.Context) {
	var req contactCreateReq
	if !bind(c, &req) {
		return
	}
	contact, err := h.contacts.Submit(c.Request.Context(), req.SubmittedBy, req.Input)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, contact)
}

func (h *Handler) listContacts(c *gin.Context) {
	status := c.DefaultQuery("status", models.StatusPending)
	list, err := h.contacts.ListByStatus(c.Request.Context(), status)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

func (h *Handler) listPending(c *gin.Context) {
	list, err := h.contacts.ListByStatus(c.Request.Context(), models.StatusPending)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

func (h *Handler) listBySubmitter(c *gin.Context) {
	list, err := h.contacts.ListBySubmitter(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

func (h *Handler) getContact(c *gin.Context) {
	contact, err := h.contacts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, contact)
}

type statusReq struct {
	Status  string  `json:"status" binding:"required"`
	AdminID string  `json:"adminId" binding:"required"`
	Notes   *string `json:"notes"`
}

func (h *Handler) decideContact(c *gin.Context) {
	var req statusReq
	if !bind(c, &req) {
		return
	}
	contact, err := h.contacts.Decide(c.Request.Context(), c.Param("id"), req.Status, req.AdminID, req.Notes)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, contact)
}

func (h *Handler) contactApprovals(c *gin.Context) {
	records, err := h.contacts.Approvals(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, records)
}

// Leaderboard and stats

func (h *Handler) leaderboard(c *gin.Context) {
	limit := stats.DefaultLimit
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	board, err := h.stats.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, board)
}

func (h *Handler) userStats(c *gin.Context) {
	st, err := h.stats.UserStats(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// Templates

type personalizeReq struct {
	Template  string            `json:"template" binding:"required"`
	Variables map[string]string `json:"variables"`
}

func (h *Handler) personalize(c *gin.Context) {
	var req personalizeReq
	if !bind(c, &req) {
		return
	}
	ok(c, http.StatusOK, gin.H{"content": templates.Personalize(req.Template, req.Variables)})
}

func (h *Handler) saveTemplate(c *gin.Context) {
	var req templates.Input
	if !bind(c, &req) {
		return
	}
	tpl, err := h.templates.Save(c.Request.Context(), req)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, tpl)
}

func (h *Handler) listTemplates(c *gin.Context) {
	list, err := h.templates.List(c.Request.Context(), c.Query("type"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

func (h *Handler) settings(c *gin.Context) {
	var entries []models.Setting
	err := h.store.View(c.Request.Context(), func(tx store.Tx) error {
		var err error
		entries, err = tx.Settings()
		return err
	})
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, models.ParseSettings(entries))
}
