package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
)

const adminCtxKey = "admin.email"

type adminLoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

type statusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

func adminMiddleware(admins adminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		email, err := admins.Authorize(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		c.Set(adminCtxKey, email)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func (h *handlers) adminLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "email and password are required"})
		return
	}
	token, err := h.deps.AdminSvc.Login(req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, adminLoginResponse{Token: token, ExpiresIn: h.deps.AdminSvc.TTLSeconds()})
}

func (h *handlers) adminReport(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.ReportSvc.Summarize(c.Request.Context()))
}

// adminUpdateStatus accepts the raw status verbatim; unknown values are a
// transition error rather than being coerced to pending.
func (h *handlers) adminUpdateStatus(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "status is required"})
		return
	}
	status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if status == "canceled" {
		status = domain.OrderCancelled
	}
	o, err := h.deps.OrderQuery.UpdateStatus(c.Request.Context(), c.Param("orderId"), status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
