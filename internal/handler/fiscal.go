package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/apierror"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/dto"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/repository"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/service"
)

type FiscalHandler struct{ svc service.FiscalPoolService }

func NewFiscalHandler(svc service.FiscalPoolService) *FiscalHandler {
	return &FiscalHandler{svc: svc}
}

// Listar godoc
// @Summary      Listar o pool fiscal
// @Tags         fiscal
// @Produce      json
// @Security     BearerAuth
// @Param        origem query string false "restaurant | reception | reception_charge"
// @Param        status query string false "pending | emitted | error | ignored"
// @Param        inicio query string false "YYYY-MM-DD"
// @Param        fim    query string false "YYYY-MM-DD"
// @Success      200 {array} model.FiscalPoolEntry
// @Router       /v1/fiscal [get]
func (h *FiscalHandler) Listar(c *gin.Context) {
	var q dto.FiscalFilter
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}

	filter := repository.FiscalFilter{Origin: q.Origem, Status: q.Status}
	if q.Inicio != "" {
		if t, err := time.Parse("2006-01-02", q.Inicio); err == nil {
			filter.From = t
		}
	}
	if q.Fim != "" {
		if t, err := time.Parse("2006-01-02", q.Fim); err == nil {
			filter.To = t.Add(24*time.Hour - time.Nanosecond)
		}
	}

	entries, err := h.svc.List(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Emitir godoc
// @Summary      Emitir nota de uma entrada do pool
// @Description  Permitido de pending ou error; reemissão de nota emitida é no-op.
// @Tags         fiscal
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID da entrada"
// @Success      200 {object} model.FiscalPoolEntry
// @Failure      400 {object} apierror.APIError
// @Router       /v1/fiscal/{id}/emitir [post]
func (h *FiscalHandler) Emitir(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	operator := currentOperator(c)
	entry, err := h.svc.Emit(c.Request.Context(), id, operator.Username)
	if err != nil {
		// The entry reflects the failure; return it with the error detail.
		if entry != nil {
			c.JSON(http.StatusBadGateway, gin.H{"detail": err.Error(), "entry": entry})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Ignorar godoc
// @Summary      Ignorar uma entrada do pool
// @Description  Entradas emitidas não podem ser ignoradas.
// @Tags         fiscal
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                 true "UUID da entrada"
// @Param        body body dto.IgnorarNotaRequest false "Justificativa"
// @Success      204
// @Failure      400 {object} apierror.APIError
// @Router       /v1/fiscal/{id}/ignorar [post]
func (h *FiscalHandler) Ignorar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	if err := h.svc.Ignore(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Processar godoc
// @Summary      Processar entradas pendentes do pool
// @Description  Percorre pendentes e com erro; para quando o sidecar abre o circuito.
// @Tags         fiscal
// @Produce      json
// @Security     BearerAuth
// @Success      202
// @Router       /v1/fiscal/processar [post]
func (h *FiscalHandler) Processar(c *gin.Context) {
	go h.svc.ProcessPending(context.WithoutCancel(c.Request.Context()))
	c.Status(http.StatusAccepted)
}
