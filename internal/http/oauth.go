package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tazhibayda/todo-service/internal/domain"
)

type googleReq struct {
	Credential string `json:"credential"`
}

type codeReq struct {
	Code string `json:"code"`
}

type oauthUser struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

type oauthResp struct {
	Success bool       `json:"success"`
	Token   string     `json:"token"`
	User    *oauthUser `json:"user,omitempty"`
}

func (h *Handler) oauthLogin(c *gin.Context, provider domain.AuthOrigin, credential string, withUser bool) {
	s, err := h.Auth.OAuthLogin(c.Request.Context(), provider, credential)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := oauthResp{Success: true, Token: s.Token}
	if withUser {
		resp.User = &oauthUser{Email: s.User.Email, Name: s.User.Name, Picture: s.User.ProfilePic}
	}
	c.JSON(http.StatusOK, resp)
}

// GoogleAuth godoc
// @Summary Sign in with a Google ID token (or authorization code)
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body googleReq true "credential"
// @Success 200 {object} oauthResp
// @Failure 400 {object} messageResp
// @Failure 401 {object} messageResp
// @Router /api/auth/google [post]
func (h *Handler) GoogleAuth(c *gin.Context) {
	var in googleReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c)
		return
	}
	h.oauthLogin(c, domain.OriginGoogle, in.Credential, true)
}

// GitHubAuth godoc
// @Summary Sign in with a GitHub authorization code
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body codeReq true "code"
// @Success 200 {object} oauthResp
// @Failure 400 {object} messageResp
// @Failure 401 {object} messageResp
// @Router /api/auth/github [post]
func (h *Handler) GitHubAuth(c *gin.Context) {
	var in codeReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c)
		return
	}
	h.oauthLogin(c, domain.OriginGitHub, in.Code, true)
}

// FacebookAuth godoc
// @Summary Sign in with a Facebook authorization code
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body codeReq true "code"
// @Success 200 {object} oauthResp
// @Failure 400 {object} messageResp
// @Failure 401 {object} messageResp
// @Router /api/auth/facebook [post]
func (h *Handler) FacebookAuth(c *gin.Context) {
	var in codeReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c)
		return
	}
	h.oauthLogin(c, domain.OriginFacebook, in.Code, false)
}
