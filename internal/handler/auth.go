package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventhorizon/internal/auth"
)

type AuthHandler struct {
	Service *auth.Service
	Logger  *zap.Logger
}

func (h *AuthHandler) Register(r *gin.Engine) {
	group := r.Group("/api/auth")
	group.POST("/nonce", h.issueNonce)
	group.POST("/login", h.login)
}

type nonceRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
}

func (h *AuthHandler) issueNonce(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req nonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "walletAddress is required", nil)
		return
	}
	nonce, err := h.Service.IssueNonce(c.Request.Context(), req.WalletAddress)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{
		"nonce":     nonce.Nonce,
		"expiresAt": nonce.ExpiresAt,
	}, nil)
}

type loginRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	Nonce         string `json:"nonce" binding:"required"`
	Signature     string `json:"signature" binding:"required"`
}

func (h *AuthHandler) login(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "walletAddress, nonce and signature are required", nil)
		return
	}
	token, forecaster, err := h.Service.Login(c.Request.Context(), req.WalletAddress, req.Nonce, req.Signature)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{
		"token":      token,
		"forecaster": forecaster,
	}, nil)
}
