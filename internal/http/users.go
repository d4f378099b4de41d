package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tazhibayda/todo-service/internal/domain"
	"github.com/tazhibayda/todo-service/internal/service"
)

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	Token string `json:"token"`
}

type messageResp struct {
	Message string `json:"message"`
}

// Register godoc
// @Summary Register a local account
// @Tags users
// @Accept json
// @Produce json
// @Param payload body registerReq true "register"
// @Success 201 {object} tokenResp
// @Failure 400 {object} messageResp
// @Router /api/users/register [post]
func (h *Handler) Register(c *gin.Context) {
	var in registerReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c)
		return
	}
	s, err := h.Auth.Register(c.Request.Context(), in.Name, in.Email, in.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tokenResp{Token: s.Token})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login godoc
// @Summary Sign in with email and password
// @Tags users
// @Accept json
// @Produce json
// @Param payload body loginReq true "login"
// @Success 200 {object} tokenResp
// @Failure 400 {object} messageResp
// @Router /api/users/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c)
		return
	}
	s, err := h.Auth.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResp{Token: s.Token})
}

type profileResp struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	ProfilePic  string            `json:"profilePic"`
	AuthType    domain.AuthOrigin `json:"authType"`
	PasswordSet bool              `json:"passwordSet"`
}

// Me godoc
// @Summary Current user's profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} profileResp
// @Failure 401 {object} messageResp
// @Failure 404 {object} messageResp
// @Router /api/users/me [get]
func (h *Handler) Me(c *gin.Context) {
	u, err := h.Profile.GetProfile(c.Request.Context(), uid(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profileResp{
		ID: u.ID, Name: u.Name, Email: u.Email, ProfilePic: u.ProfilePic,
		AuthType: u.AuthType, PasswordSet: u.PasswordSet,
	})
}

type updateMeReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UpdateMe godoc
// @Summary Update name and/or email
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body updateMeReq true "fields to change"
// @Success 200 {object} map[string]string
// @Failure 400 {object} messageResp
// @Router /api/users/me [put]
func (h *Handler) UpdateMe(c *gin.Context) {
	var in updateMeReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c)
		return
	}
	u, err := h.Profile.UpdateProfile(c.Request.Context(), uid(c), service.ProfileUpdate{Name: in.Name, Email: in.Email})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "name": u.Name, "email": u.Email})
}

// UploadProfilePic godoc
// @Summary Upload a profile picture (jpeg/png, 5MB max)
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "user id (must be the caller)"
// @Param profilePic formData file true "picture"
// @Success 200 {object} map[string]string
// @Failure 400 {object} messageResp
// @Failure 404 {object} messageResp
// @Router /api/users/upload-profile-pic/{id} [post]
func (h *Handler) UploadProfilePic(c *gin.Context) {
	target, ok := pathID(c)
	if !ok {
		writeError(c, domain.E(domain.ErrNotFound, "User not found"))
		return
	}
	fh, err := c.FormFile("profilePic")
	if err != nil {
		writeError(c, domain.E(domain.ErrValidation, "No image uploaded"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	ref, err := h.Profile.UpdateProfilePicture(c.Request.Context(), uid(c), target, &service.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile picture updated successfully!", "profilePic": ref})
}

type setPasswordReq struct {
	Password string `json:"password"`
}

// SetPassword godoc
// @Summary Add a local password to a social account
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body setPasswordReq true "password"
// @Success 200 {object} messageResp
// @Failure 400 {object} messageResp
// @Router /api/users/set-password [post]
func (h *Handler) SetPassword(c *gin.Context) {
	var in setPasswordReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c)
		return
	}
	if err := h.Auth.SetPassword(c.Request.Context(), uid(c), in.Password); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResp{Message: "Password set"})
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword godoc
// @Summary Change the local password
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body changePasswordReq true "passwords"
// @Success 200 {object} messageResp
// @Failure 400 {object} messageResp
// @Router /api/users/change-password [post]
func (h *Handler) ChangePassword(c *gin.Context) {
	var in changePasswordReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c)
		return
	}
	if err := h.Auth.ChangePassword(c.Request.Context(), uid(c), in.CurrentPassword, in.NewPassword); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResp{Message: "Password changed successfully"})
}

type forgotReq struct {
	Email string `json:"email"`
}

// ForgotPassword godoc
// @Summary Email a one-time reset code
// @Tags recovery
// @Accept json
// @Produce json
// @Param payload body forgotReq true "email"
// @Success 200 {object} messageResp
// @Failure 400 {object} messageResp
// @Failure 404 {object} messageResp
// @Router /api/users/forgot-password [post]
func (h *Handler) ForgotPassword(c *gin.Context) {
	var in forgotReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c)
		return
	}
	if err := h.Recovery.RequestReset(c.Request.Context(), in.Email); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResp{Message: "OTP sent to your email"})
}

type verifyOTPReq struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type verifyOTPResp struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken"`
}

// VerifyOTP godoc
// @Summary Exchange the emailed code for a single-use reset token
// @Tags recovery
// @Accept json
// @Produce json
// @Param payload body verifyOTPReq true "email and code"
// @Success 200 {object} verifyOTPResp
// @Failure 400 {object} messageResp
// @Router /api/users/verify-otp [post]
func (h *Handler) VerifyOTP(c *gin.Context) {
	var in verifyOTPReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c)
		return
	}
	token, err := h.Recovery.VerifyOTP(c.Request.Context(), in.Email, in.OTP)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, verifyOTPResp{Message: "OTP verified", ResetToken: token})
}

type resetPasswordReq struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
	ResetToken  string `json:"resetToken"`
}

// ResetPassword godoc
// @Summary Set a new password with a reset token
// @Tags recovery
// @Accept json
// @Produce json
// @Param payload body resetPasswordReq true "reset"
// @Success 200 {object} messageResp
// @Failure 400 {object} messageResp
// @Failure 404 {object} messageResp
// @Router /api/users/reset-password [post]
func (h *Handler) ResetPassword(c *gin.Context) {
	var in resetPasswordReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c)
		return
	}
	if err := h.Recovery.ResetPassword(c.Request.Context(), in.Email, in.NewPassword, in.ResetToken); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResp{Message: "Password reset successful"})
}
