package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	customersvc "storefront/internal/service/customer"
)

type signupRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Customer *domain.Account `json:"customer"`
	sessionResponse
}

func (h *handlers) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "email and password are required"})
		return
	}
	acct, err := h.deps.CustomerSvc.Signup(c.Request.Context(), customersvc.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	h.startUserSession(c, http.StatusCreated, acct)
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "email and password are required"})
		return
	}
	acct, err := h.deps.CustomerSvc.Login(c.Request.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	h.startUserSession(c, http.StatusOK, acct)
}

// startUserSession promotes the current session to acct's identity. Any guest
// cart lines move into the user's cart as part of the promotion.
func (h *handlers) startUserSession(c *gin.Context, status int, acct *domain.Account) {
	identity, token, err := h.deps.SessionSvc.Promote(c.Request.Context(), identityFrom(c), customersvc.Profile(acct))
	if err != nil {
		writeError(c, err)
		return
	}
	setIdentity(c, identity, token)
	c.JSON(status, authResponse{
		Customer: acct,
		sessionResponse: sessionResponse{
			Session:   identity,
			Token:     token,
			ExpiresIn: h.deps.SessionSvc.TTLSeconds(),
		},
	})
}

func (h *handlers) logout(c *gin.Context) {
	identity, token, err := h.deps.SessionSvc.Demote(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	setIdentity(c, identity, token)
	c.JSON(http.StatusOK, sessionResponse{
		Session:   identity,
		Token:     token,
		ExpiresIn: h.deps.SessionSvc.TTLSeconds(),
	})
}
