package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/minhvu/taskhive-BE/internal/reconciler"
)

// runReconciliation triggers an on-demand assignment reconciliation run and
// reports the number of updated records.
func (server *Server) runReconciliation(c *gin.Context) {
	updated, err := server.reconciler.Reconcile(c.Request.Context())
	if err != nil {
		if errors.Is(err, reconciler.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, errorResponse(err))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (server *Server) getTaskInfo(c *gin.Context) {
	info, err := server.taskInspector.GetTaskInfo(c.Request.Context(), c.Param("queue"), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        info.ID,
		"queue":     info.Queue,
		"type":      info.Type,
		"state":     info.State.String(),
		"max_retry": info.MaxRetry,
		"retried":   info.Retried,
	})
}

func (server *Server) deleteTask(c *gin.Context) {
	if err := server.taskInspector.DeleteTask(c.Request.Context(), c.Param("queue"), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, errorResponse(err))
		return
	}

	c.Status(http.StatusNoContent)
}
