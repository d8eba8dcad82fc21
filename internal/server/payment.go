package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/tirta/internal/payment/domain"
)

// AllocatePayment spreads a customer payment over unpaid bills oldest first.
func (s *Server) AllocatePayment(c *gin.Context) {
	var req paymentdomain.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.CustomerID = c.Param("id")

	resp, err := s.paymentSvc.Allocate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
