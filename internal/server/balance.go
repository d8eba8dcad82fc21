package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tirta/internal/authorization"
	"github.com/smallbiznis/tirta/internal/jobs"
)

func (s *Server) ReconcileBalances(c *gin.Context) {
	async, err := flag(c.Query("async"), "async")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	if async {
		if err := s.authzSvc.Authorize(ctx, authorization.ObjectBalance, authorization.ActionBalanceReconcile); err != nil {
			AbortWithError(c, err)
			return
		}
		taskID, err := s.enqueuer().EnqueueReconcile(ctx, jobs.ReconcilePayload{RequestedBy: requestedBy(c)})
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"data": gin.H{"task_id": taskID}})
		return
	}

	resp, err := s.balanceSvc.ReconcileAll(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
