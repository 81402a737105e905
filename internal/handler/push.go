package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/config"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/dto"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/middleware"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/push"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/store"
)

type PushHdlr interface {
	GetVAPIDKey(c *gin.Context) // GET  /api/push/vapid-key
	Subscribe(c *gin.Context)   // POST /api/push/subscribe
	Send(c *gin.Context)        // POST /api/push/send
}

type PushHandler struct {
	logger     *zap.SugaredLogger
	subs       store.SubscriptionStore
	dispatcher *push.Dispatcher
	vapid      config.VAPIDConfig
}

func NewPushHandler(logger *zap.SugaredLogger, subs store.SubscriptionStore, dispatcher *push.Dispatcher, vapid config.VAPIDConfig) PushHdlr {
	return &PushHandler{
		logger:     logger,
		subs:       subs,
		dispatcher: dispatcher,
		vapid:      vapid,
	}
}

func (p *PushHandler) GetVAPIDKey(c *gin.Context) {
	if !p.vapid.Configured() {
		p.logger.Error("VAPID keys are not configured")
		c.JSON(http.StatusInternalServerError, dto.Error{Error: "push notifications are not configured"})
		return
	}
	c.JSON(http.StatusOK, dto.VAPIDKeyResponse{PublicKey: p.vapid.PublicKey})
}

func (p *PushHandler) Subscribe(c *gin.Context) {
	userID := c.MustGet(middleware.SubjectKey).(string)

	var req dto.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		p.logger.Debugf("invalid subscribe request: %v", err)
		c.JSON(http.StatusBadRequest, dto.Error{Error: "endpoint, p256dh and auth are required"})
		return
	}

	sub, err := p.subs.Upsert(c.Request.Context(), userID, req.Endpoint, req.P256dh, req.Auth)
	if err != nil {
		p.logger.Errorw("error upserting subscription", "userId", userID, "error", err)
		c.JSON(http.StatusInternalServerError, dto.Error{Error: "failed to store subscription"})
		return
	}

	c.JSON(http.StatusOK, dto.SubscribeResponse{Success: true, Subscription: *sub})
}

func (p *PushHandler) Send(c *gin.Context) {
	var req dto.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		p.logger.Debugf("invalid send request: %v", err)
		c.JSON(http.StatusBadRequest, dto.Error{Error: "title and body are required"})
		return
	}

	data := req.Data
	if req.URL != "" {
		if data == nil {
			data = make(map[string]string, 1)
		}
		data["url"] = req.URL
	}

	result, err := p.dispatcher.Send(c.Request.Context(), req.UserID, push.Payload{
		Title:              req.Title,
		Body:               req.Body,
		Icon:               req.Icon,
		Badge:              req.Badge,
		Tag:                req.Tag,
		Data:               data,
		RequireInteraction: req.RequireInteraction,
	})
	if err != nil {
		switch {
		case errors.Is(err, push.ErrNotConfigured):
			c.JSON(http.StatusInternalServerError, dto.Error{Error: "push notifications are not configured"})
		case errors.Is(err, push.ErrInvalidPayload):
			c.JSON(http.StatusBadRequest, dto.Error{Error: "title and body are required"})
		default:
			p.logger.Errorw("error dispatching notification", "error", err)
			c.JSON(http.StatusInternalServerError, dto.Error{Error: "failed to send notification"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
