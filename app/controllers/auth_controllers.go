package controllers

import (
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/response"
)

type AuthController struct {
	service *services.AuthService
}

func NewAuthController(service *services.AuthService) *AuthController {
	return &AuthController{service: service}
}

// Register handles POST /auth/register.
func (h *AuthController) Register(c *ctx.Context) {
	var in services.RegisterInput
	if !c.BindJSON(&in) {
		return
	}
	u, err := h.service.Register(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created("User Registered Successfully", response.M{"user": u})
}

// Login handles POST /auth/login.
func (h *AuthController) Login(c *ctx.Context) {
	var in services.LoginInput
	if !c.BindJSON(&in) {
		return
	}
	u, token, err := h.service.Login(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("logged in successfully", response.M{"user": u.Profile(), "token": token})
}

// ForgotPassword handles POST /auth/forgot-password.
func (h *AuthController) ForgotPassword(c *ctx.Context) {
	var in services.ForgotPasswordInput
	if !c.BindJSON(&in) {
		return
	}
	if err := h.service.ForgotPassword(c.Context(), in); err != nil {
		c.Fail(err)
		return
	}
	c.OK("Password Reset Successfully", nil)
}

// Check answers the route guards' verdict: reaching it means the guards
// passed. Used by GET /auth/user-auth and /auth/admin-auth.
func (h *AuthController) Check(c *ctx.Context) {
	c.OK("", response.M{"ok": true})
}

// UpdateProfile handles PUT /auth/update-profile.
func (h *AuthController) UpdateProfile(c *ctx.Context) {
	userID, _ := c.UserID()

	var in services.ProfileInput
	if !c.BindJSON(&in) {
		return
	}
	u, err := h.service.UpdateProfile(c.Context(), userID, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Profile Updated Successfully", response.M{"updatedUser": u})
}

// Test handles GET /auth/test.
func (h *AuthController) Test(c *ctx.Context) {
	c.OK("protected routes", nil)
}
