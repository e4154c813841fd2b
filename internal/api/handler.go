package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/disaster-reports/internal/apperr"
	"github.com/mr1hm/disaster-reports/internal/service"
)

type Handler struct {
	alerts     *service.AlertService
	query      *service.QueryService
	moderation *service.ModerationService
	sessions   *service.SessionService
}

func NewHandler(
	alerts *service.AlertService,
	query *service.QueryService,
	moderation *service.ModerationService,
	sessions *service.SessionService,
) *Handler {
	return &Handler{
		alerts:     alerts,
		query:      query,
		moderation: moderation,
		sessions:   sessions,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	authGroup := r.Group("/auth")
	authGroup.POST("/register", h.register)
	authGroup.POST("/login", h.login)
	authGroup.GET("/me", h.requireAuth, h.me)
	authGroup.POST("/refresh", h.requireAuth, h.refresh)
	authGroup.POST("/logout", h.requireAuth, h.logout)

	alerts := r.Group("/alerts", h.requireAuth)
	alerts.POST("", h.submitAlert)
	alerts.GET("", h.listAlerts)
	alerts.GET("/:id", h.getAlert)

	admin := r.Group("/admin", h.requireAuth, h.requireAdmin)
	admin.GET("/alerts", h.listAlerts)
	admin.GET("/users", h.listUsers)
	admin.GET("/stats", h.stats)
	admin.POST("/verify-alert", h.verifyAlert)
	admin.POST("/delete-alert", h.deleteAlert)
	admin.POST("/verify-user", h.verifyUser)
	admin.POST("/block-user", h.blockUser)
	admin.POST("/unblock-user", h.unblockUser)
	admin.POST("/delete-user", h.deleteUser)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Auth

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errBadBody)
		return
	}

	user, err := h.sessions.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "user registered successfully",
		"userId":  user.ID,
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errBadBody)
		return
	}

	sess, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.sessions.Me(c.Request.Context(), c.GetString(tokenKey))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) refresh(c *gin.Context) {
	sess, err := h.sessions.Refresh(c.Request.Context(), c.GetString(tokenKey))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context(), c.GetString(tokenKey)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Alerts

func (h *Handler) submitAlert(c *gin.Context) {
	var req service.SubmitAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errBadBody)
		return
	}

	alert, err := h.alerts.Submit(c.Request.Context(), currentIdentity(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

func (h *Handler) listAlerts(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		writeError(c, err)
		return
	}

	q := service.AlertQuery{
		Type:     c.Query("type"),
		Severity: c.Query("severity"),
		Location: c.Query("location"),
	}

	result, err := h.query.List(c.Request.Context(), q, page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getAlert(c *gin.Context) {
	alert, err := h.query.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// Admin

type alertActionRequest struct {
	AlertID string `json:"alertId"`
	Reason  string `json:"reason"`
}

type userActionRequest struct {
	UserID string `json:"userId"`
	Reason string `json:"reason"`
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.query.Aggregate(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) listUsers(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.moderation.ListUsers(c.Request.Context(), currentIdentity(c), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) verifyAlert(c *gin.Context) {
	var req alertActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errBadBody)
		return
	}

	alert, err := h.moderation.VerifyAlert(c.Request.Context(), currentIdentity(c), req.AlertID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) deleteAlert(c *gin.Context) {
	var req alertActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errBadBody)
		return
	}

	if err := h.moderation.DeleteAlert(c.Request.Context(), currentIdentity(c), req.AlertID, req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "alert deleted",
		"alertId": req.AlertID,
		"reason":  req.Reason,
	})
}

func (h *Handler) verifyUser(c *gin.Context) {
	h.userAction(c, func(req userActionRequest) (any, error) {
		return h.moderation.VerifyUser(c.Request.Context(), currentIdentity(c), req.UserID)
	})
}

func (h *Handler) blockUser(c *gin.Context) {
	h.userAction(c, func(req userActionRequest) (any, error) {
		return h.moderation.BlockUser(c.Request.Context(), currentIdentity(c), req.UserID, req.Reason)
	})
}

func (h *Handler) unblockUser(c *gin.Context) {
	h.userAction(c, func(req userActionRequest) (any, error) {
		return h.moderation.UnblockUser(c.Request.Context(), currentIdentity(c), req.UserID)
	})
}

func (h *Handler) deleteUser(c *gin.Context) {
	h.userAction(c, func(req userActionRequest) (any, error) {
		res, err := h.moderation.DeleteUser(c.Request.Context(), currentIdentity(c), req.UserID)
		if err != nil {
			return nil, err
		}
		return gin.H{
			"message":       "user and authored alerts deleted",
			"userId":        res.UserID,
			"alertsDeleted": res.AlertsDeleted,
		}, nil
	})
}

func (h *Handler) userAction(c *gin.Context, do func(userActionRequest) (any, error)) {
	var req userActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errBadBody)
		return
	}

	result, err := do(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func parsePage(c *gin.Context) (service.Page, error) {
	var (
		page   service.Page
		fields = map[string]string{}
	)
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			fields["limit"] = "must be an integer"
		}
		page.Limit = n
	}
	if o := c.Query("offset"); o != "" {
		n, err := strconv.Atoi(o)
		if err != nil {
			fields["offset"] = "must be an integer"
		}
		page.Offset = n
	}
	if len(fields) > 0 {
		return page, apperr.Validation("invalid pagination", fields)
	}
	return page, nil
}
