package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/service"
)

type ProdutosHandler struct{ svc service.CatalogService }

func NewProdutosHandler(svc service.CatalogService) *ProdutosHandler {
	return &ProdutosHandler{svc: svc}
}

// Listar godoc
// @Summary      Listar o catálogo de produtos
// @Tags         produtos
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} model.Product
// @Router       /v1/produtos [get]
func (h *ProdutosHandler) Listar(c *gin.Context) {
	products, err := h.svc.List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// Detalhe godoc
// @Summary      Detalhar um produto por id ou nome
// @Tags         produtos
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "ID ou nome do produto"
// @Success      200 {object} model.Product
// @Failure      404 {object} apierror.APIError
// @Router       /v1/produtos/{id} [get]
func (h *ProdutosHandler) Detalhe(c *gin.Context) {
	product, err := h.svc.FindProduct(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}
