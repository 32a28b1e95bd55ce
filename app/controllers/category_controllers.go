package controllers

import (
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/response"
)

type CategoryController struct {
	service *services.CategoryService
}

func NewCategoryController(service *services.CategoryService) *CategoryController {
	return &CategoryController{service: service}
}

func (h *CategoryController) Create(c *ctx.Context) {
	var in services.CategoryInput
	if !c.BindJSON(&in) {
		return
	}
	cat, created, err := h.service.Create(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	if !created {
		c.OK("Category already exists", response.M{"category": cat})
		return
	}
	c.Created("New category created", response.M{"category": cat})
}

func (h *CategoryController) Update(c *ctx.Context) {
	var in services.CategoryInput
	if !c.BindJSON(&in) {
		return
	}
	cat, err := h.service.Update(c.Context(), c.Param("id"), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Category Updated Successfully", response.M{"category": cat})
}

func (h *CategoryController) Index(c *ctx.Context) {
	cats, err := h.service.All(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("All Categories List", response.M{"category": cats})
}

func (h *CategoryController) Show(c *ctx.Context) {
	cat, err := h.service.BySlug(c.Context(), c.Param("slug"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Get Category List Successfully", response.M{"category": cat})
}

func (h *CategoryController) Delete(c *ctx.Context) {
	if err := h.service.Delete(c.Context(), c.Param("id")); err != nil {
		c.Fail(err)
		return
	}
	c.OK("Category Deleted Successfully", nil)
}
