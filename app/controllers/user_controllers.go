package controllers

import (
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/response"
)

// UserController is the admin account listing.
type UserController struct {
	service *services.UserService
}

func NewUserController(service *services.UserService) *UserController {
	return &UserController{service: service}
}

func (h *UserController) All(c *ctx.Context) {
	users, err := h.service.Latest(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Fetched all the users successfully", response.M{"users": users})
}

func (h *UserController) Delete(c *ctx.Context) {
	if err := h.service.Delete(c.Context(), c.Param("uId")); err != nil {
		c.Fail(err)
		return
	}
	c.OK("User Deleted Successfully", nil)
}

func (h *UserController) Count(c *ctx.Context) {
	n, err := h.service.Count(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("", response.M{"totalUserCount": n})
}

func (h *UserController) Page(c *ctx.Context) {
	users, err := h.service.Page(c.Context(), c.ParamInt("page", 1))
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("", response.M{"usersListPerPage": users})
}

func (h *UserController) Search(c *ctx.Context) {
	users, err := h.service.Search(c.Context(), c.Param("keyword"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("", response.M{"users": users})
}
