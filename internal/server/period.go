package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tirta/internal/auditcontext"
	"github.com/smallbiznis/tirta/internal/authorization"
	billdomain "github.com/smallbiznis/tirta/internal/bill/domain"
	bulkdomain "github.com/smallbiznis/tirta/internal/bulkbilling/domain"
	"github.com/smallbiznis/tirta/internal/jobs"
	"github.com/smallbiznis/tirta/internal/period"
)

func (s *Server) ListPeriodSummaries(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a number"))
		return
	}
	n := 0
	if limit != nil {
		n = *limit
	}

	resp, err := s.billSvc.Summaries(c.Request.Context(), n)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeletePeriodBills(c *gin.Context) {
	deleted, err := s.billSvc.DeleteByPeriod(c.Request.Context(), c.Param("period"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"period": c.Param("period"), "deleted": deleted}})
}

// GeneratePeriodBills runs a bulk generation inline, or hands it to the worker
// with ?async=true.
func (s *Server) GeneratePeriodBills(c *gin.Context) {
	var req bulkdomain.GenerateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	req.Period = c.Param("period")

	async, err := flag(c.Query("async"), "async")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if async {
		s.enqueueGeneration(c, req)
		return
	}

	resp, err := s.bulkSvc.GenerateForPeriod(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) enqueueGeneration(c *gin.Context, req bulkdomain.GenerateRequest) {
	ctx := c.Request.Context()
	// The worker runs as the system actor, so the caller is checked here.
	if err := s.authzSvc.Authorize(ctx, authorization.ObjectBill, authorization.ActionBillBulkCreate); err != nil {
		AbortWithError(c, err)
		return
	}
	p, err := period.Parse(req.Period)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	taskID, err := s.enqueuer().EnqueueGeneratePeriod(ctx, jobs.GeneratePeriodPayload{
		Period:      p.String(),
		Usage:       req.Usage,
		RequestedBy: requestedBy(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": gin.H{"task_id": taskID, "period": p.String()}})
}

func (s *Server) ImportPeriod(c *gin.Context) {
	var req billdomain.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Period = c.Param("period")

	resp, err := s.billSvc.Import(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) enqueuer() jobs.Enqueuer {
	if s.jobs == nil {
		return (*jobs.Client)(nil)
	}
	return s.jobs
}

func requestedBy(c *gin.Context) string {
	actor, ok := auditcontext.ActorFromContext(c.Request.Context())
	if !ok {
		return ""
	}
	return actor.Subject()
}
