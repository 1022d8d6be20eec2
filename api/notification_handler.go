package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	db "github.com/minhvu/taskhive-BE/internal/db/sqlc"
	"github.com/minhvu/taskhive-BE/internal/notification"
	"github.com/minhvu/taskhive-BE/internal/worker"
	"github.com/rs/zerolog/log"
)

type createNotificationRequest struct {
	RecipientID string          `json:"recipient_id" binding:"required"`
	Kind        string          `json:"kind" binding:"required"`
	Payload     json.RawMessage `json:"payload" binding:"required"`
	RelatedType *string         `json:"related_type"`
	RelatedID   *string         `json:"related_id"`
}

// createNotification persists a notification for an upstream business event
// and enqueues its fan-out. The caller never blocks on transport pushes.
func (server *Server) createNotification(c *gin.Context) {
	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	n, err := server.notifier.Create(c.Request.Context(), notification.CreateParams{
		RecipientID: req.RecipientID,
		Kind:        db.NotificationKind(req.Kind),
		Payload:     req.Payload,
		RelatedType: req.RelatedType,
		RelatedID:   req.RelatedID,
	})
	if err != nil {
		if errors.Is(err, notification.ErrUnknownKind) {
			violations := []*FieldViolation{fieldViolation("kind", err)}
			c.JSON(http.StatusBadRequest, failedValidationError(violations))
			return
		}
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	err = server.taskDistributor.DistributeTaskDeliverNotification(c.Request.Context(), &worker.PayloadDeliverNotification{
		NotificationID: n.ID,
	}, asynq.Queue(worker.QueueCritical))
	if err != nil {
		// The record is durable; the recipient still gets it lazily on
		// next connect even if the queue is down.
		log.Error().Err(err).Str("notification_id", n.ID.String()).Msg("failed to enqueue fan-out task")
	}

	if event, ok := notification.AutomationEvent(n, authenticatedUserID(c)); ok {
		err = server.taskDistributor.DistributeTaskEmitWebhook(c.Request.Context(), &worker.PayloadEmitWebhook{
			Event: event,
		}, asynq.Queue(worker.QueueDefault))
		if err != nil {
			// The emitter dedups by event content, so a later retry of the
			// same business event is still safe.
			log.Error().Err(err).Str("event_id", event.EventID.String()).Msg("failed to enqueue webhook task")
		}
	}

	c.JSON(http.StatusCreated, n)
}

// markNotificationRead sets the read flag on behalf of the recipient.
func (server *Server) markNotificationRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(errors.New("invalid notification ID format")))
		return
	}

	n, err := server.notifier.MarkRead(c.Request.Context(), id, authenticatedUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, db.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, errorResponse(errors.New("notification not found")))
		case errors.Is(err, notification.ErrPermissionDenied):
			c.JSON(http.StatusForbidden, errorResponse(err))
		default:
			c.JSON(http.StatusInternalServerError, errorResponse(err))
		}
		return
	}

	c.JSON(http.StatusOK, n)
}

type listNotificationsRequest struct {
	UnreadOnly bool  `form:"unread_only"`
	Limit      int32 `form:"limit,default=20"`
	Offset     int32 `form:"offset,default=0"`
}

func (server *Server) listMyNotifications(c *gin.Context) {
	var req listNotificationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	notifications, err := server.dbStore.ListNotificationsByRecipient(c.Request.Context(), db.ListNotificationsByRecipientParams{
		RecipientID: authenticatedUserID(c),
		UnreadOnly:  req.UnreadOnly,
		Limit:       req.Limit,
		Offset:      req.Offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, notifications)
}

func (server *Server) countMyUnreadNotifications(c *gin.Context) {
	count, err := server.dbStore.CountUnreadNotifications(c.Request.Context(), authenticatedUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}
