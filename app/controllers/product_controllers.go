package controllers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/apperror"
	"github.com/shashiranjanraj/storefront/pkg/bind"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/response"
)

// formOverhead is the room left for text fields next to the photo.
const formOverhead = 64 << 10

type ProductController struct {
	service  *services.ProductService
	maxPhoto int64
}

func NewProductController(service *services.ProductService, maxPhoto int64) *ProductController {
	return &ProductController{service: service, maxPhoto: maxPhoto}
}

// readForm parses the multipart product form. The photo is optional; its
// content type is sniffed from the bytes rather than trusted from the
// client.
func (h *ProductController) readForm(c *ctx.Context) (services.ProductInput, *services.PhotoUpload, func(), bool) {
	noop := func() {}
	if err := bind.Multipart(c.W, c.R, h.maxPhoto+formOverhead); err != nil {
		c.Fail(apperror.Validation(err.Error(), nil))
		return services.ProductInput{}, nil, noop, false
	}

	in := services.ProductInput{
		Name:        c.R.FormValue("name"),
		Description: c.R.FormValue("description"),
		Price:       c.R.FormValue("price"),
		Category:    c.R.FormValue("category"),
		Quantity:    c.R.FormValue("quantity"),
		Shipping:    c.R.FormValue("shipping"),
	}
	if !c.Validate(&in) {
		return in, nil, noop, false
	}

	file, header, err := c.R.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, noop, true
	}
	if err != nil {
		c.Fail(apperror.Validation("Validation failed", map[string]string{"photo": "The photo could not be read."}))
		return in, nil, noop, false
	}

	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	head = head[:n]

	return in, &services.PhotoUpload{
		Body:        io.MultiReader(bytes.NewReader(head), file),
		Size:        header.Size,
		ContentType: http.DetectContentType(head),
	}, func() { file.Close() }, true
}

func (h *ProductController) Create(c *ctx.Context) {
	in, photo, done, ok := h.readForm(c)
	defer done()
	if !ok {
		return
	}
	p, err := h.service.Create(c.Context(), in, photo)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created("Product Created Successfully", response.M{"products": p})
}

func (h *ProductController) Update(c *ctx.Context) {
	in, photo, done, ok := h.readForm(c)
	defer done()
	if !ok {
		return
	}
	p, err := h.service.Update(c.Context(), c.Param("pid"), in, photo)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Product Updated Successfully", response.M{"products": p})
}

func (h *ProductController) Index(c *ctx.Context) {
	ps, err := h.service.Latest(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("All Products List", response.M{"totalCount": len(ps), "product": ps})
}

func (h *ProductController) Show(c *ctx.Context) {
	p, err := h.service.BySlug(c.Context(), c.Param("slug"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Single Product Fetched Successfully", response.M{"product": p})
}

// Photo streams the raw image bytes.
func (h *ProductController) Photo(c *ctx.Context) {
	rc, photo, err := h.service.Photo(c.Context(), c.Param("id"))
	if err != nil {
		c.Fail(err)
		return
	}
	defer rc.Close()

	c.W.Header().Set("Cache-Control", "public, max-age=300")
	c.Stream(http.StatusOK, photo.ContentType, rc)
}

func (h *ProductController) Delete(c *ctx.Context) {
	if err := h.service.Delete(c.Context(), c.Param("pid")); err != nil {
		c.Fail(err)
		return
	}
	c.OK("Product Deleted Successfully", nil)
}

func (h *ProductController) Filter(c *ctx.Context) {
	var in services.FilterInput
	if !c.BindJSON(&in) {
		return
	}
	ps, err := h.service.Filter(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Product Filtered Successfully", response.M{"products": ps})
}

func (h *ProductController) Count(c *ctx.Context) {
	n, err := h.service.Count(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("", response.M{"total": n})
}

func (h *ProductController) Page(c *ctx.Context) {
	ps, err := h.service.Page(c.Context(), c.ParamInt("page", 1))
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("", response.M{"products": ps})
}

func (h *ProductController) Search(c *ctx.Context) {
	ps, err := h.service.Search(c.Context(), c.Param("keyword"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("", response.M{"products": ps})
}

func (h *ProductController) Related(c *ctx.Context) {
	ps, err := h.service.Related(c.Context(), c.Param("pid"), c.Param("cid"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("", response.M{"products": ps})
}

func (h *ProductController) ByCategory(c *ctx.Context) {
	cat, ps, err := h.service.ByCategory(c.Context(), c.Param("slug"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("", response.M{"category": cat, "products": ps})
}
