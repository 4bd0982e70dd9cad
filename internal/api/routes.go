package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/notify"
	"github.com/zulandar/switchboard/internal/ticket"
	"gorm.io/gorm"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, opts Opts) {
	router.GET("/healthz", handleHealth(opts.DB))
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")

	req := v1.Group("/request")
	req.GET("/all", handleListAll(opts.Tickets))
	req.GET("", handleHistory(opts.Tickets))
	req.GET("/agent/dashboard", handleDashboard(opts.Tickets))
	req.POST("/create", handleCreate(opts.Tickets))
	req.DELETE("/delete", handleDelete(opts.Tickets))
	req.PUT("/confirm", handleConfirm(opts.Tickets))
	req.PUT("/finish", handleFinish(opts.Tickets))
	req.PUT("/rate", handleRate(opts.Tickets))

	v1.PUT("/agent/status", handleAgentStatus(opts.Tickets))

	v1.GET("/notifications", handleInbox(opts.DB))
	v1.PUT("/notifications/:id/ack", handleAcknowledge(opts.DB))

	if opts.Scheduler != nil {
		v1.POST("/scheduler/tick", handleTick(opts.Scheduler))
	}
}

// writeError maps domain errors to 400 with their message and everything
// else to an opaque 500.
func writeError(c *gin.Context, err error) {
	if e := apperr.As(err); e != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, messageResponse{Message: e.Error()})
		return
	}
	c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
}

func badRequest(c *gin.Context, format string, args ...interface{}) {
	c.AbortWithStatusJSON(http.StatusBadRequest, messageResponse{Message: fmt.Sprintf(format, args...)})
}

func parseID(c *gin.Context, raw, name string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, strconv.IntSize)
	if err != nil || id == 0 {
		badRequest(c, "Invalid %s: %q", name, raw)
		return 0, false
	}
	return uint(id), true
}

func queryID(c *gin.Context) (uint, bool) {
	return parseID(c, c.Query("id"), "id")
}

func queryEmail(c *gin.Context) (string, bool) {
	email := c.Query("email")
	if email == "" {
		badRequest(c, "email is required")
		return "", false
	}
	return email, true
}

func handleHealth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func handleListAll(svc *ticket.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqs, err := svc.ListAll(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, newRequestViews(reqs))
	}
}

func handleHistory(svc *ticket.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, ok := queryEmail(c)
		if !ok {
			return
		}
		id, ok := queryID(c)
		if !ok {
			return
		}
		reqs, err := svc.History(c.Request.Context(), email, id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, newRequestViews(reqs))
	}
}

func handleDashboard(svc *ticket.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, ok := queryEmail(c)
		if !ok {
			return
		}
		id, ok := queryID(c)
		if !ok {
			return
		}
		reqs, err := svc.AgentDashboard(c.Request.Context(), email, id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, newRequestViews(reqs))
	}
}

func handleCreate(svc *ticket.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := queryID(c)
		if !ok {
			return
		}
		req, msg, err := svc.Create(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, createResponse{Message: msg, Request: newRequestView(*req)})
	}
}

func handleDelete(svc *ticket.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, ok := queryEmail(c)
		if !ok {
			return
		}
		id, ok := queryID(c)
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), email, id); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, messageResponse{Message: "Request is deleted."})
	}
}

// transition wraps the agent-driven Confirm and Finish operations, which
// share the same query parameters.
func transition(op func(context.Context, string, uint) error, done string) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, ok := queryEmail(c)
		if !ok {
			return
		}
		id, ok := queryID(c)
		if !ok {
			return
		}
		if err := op(c.Request.Context(), email, id); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, messageResponse{Message: done})
	}
}

func handleConfirm(svc *ticket.Service) gin.HandlerFunc {
	return transition(func(ctx context.Context, email string, id uint) error {
		_, err := svc.Confirm(ctx, email, id)
		return err
	}, "Request is confirmed!")
}

func handleFinish(svc *ticket.Service) gin.HandlerFunc {
	return transition(func(ctx context.Context, email string, id uint) error {
		_, err := svc.Finish(ctx, email, id)
		return err
	}, "Request is finished!")
}

func handleRate(svc *ticket.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body ticket.FeedbackOpts
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "Invalid feedback body: %v", err)
			return
		}
		if _, err := svc.SetFeedback(c.Request.Context(), body); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, messageResponse{Message: "Feedback score is set to the request."})
	}
}

func handleAgentStatus(svc *ticket.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := queryID(c)
		if !ok {
			return
		}
		agent, err := svc.ChangeAgentAvailability(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, newAgentView(agent))
	}
}

func handleInbox(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := queryID(c)
		if !ok {
			return
		}
		ns, err := notify.Inbox(db.WithContext(c.Request.Context()), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, newNotificationViews(ns))
	}
}

func handleAcknowledge(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, c.Param("id"), "notification id")
		if !ok {
			return
		}
		if err := notify.Acknowledge(db.WithContext(c.Request.Context()), id); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, messageResponse{Message: "Notification acknowledged."})
	}
}

func handleTick(s Ticker) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := s.Tick(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		v := tickView{
			ID:         res.ID,
			Contended:  res.Contended,
			Scanned:    res.Scanned,
			Stale:      res.Stale,
			Reassigned: res.Reassigned,
			Requeued:   res.Requeued,
			Skipped:    res.Skipped,
		}
		for _, f := range res.Failures {
			v.Failures = append(v.Failures, fmt.Sprintf("request %d: %v", f.RequestID, f.Err))
		}
		c.JSON(http.StatusOK, v)
	}
}
