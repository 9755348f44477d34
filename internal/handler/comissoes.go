package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/apierror"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/dto"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/service"
)

type ComissoesHandler struct{ svc service.CommissionService }

func NewComissoesHandler(svc service.CommissionService) *ComissoesHandler {
	return &ComissoesHandler{svc: svc}
}

// Ranking godoc
// @Summary      Ranking de comissões por garçom
// @Description  Soma os rateios das vendas no período; vendas sem taxa de serviço ficam fora da base de comissão.
// @Tags         comissoes
// @Produce      json
// @Security     BearerAuth
// @Param        inicio query string false "YYYY-MM-DD (default: primeiro dia do mês)"
// @Param        fim    query string false "YYYY-MM-DD (default: hoje)"
// @Success      200 {object} dto.RankingResponse
// @Router       /v1/comissoes/ranking [get]
func (h *ComissoesHandler) Ranking(c *gin.Context) {
	var q dto.RankingFilter
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}

	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := now
	if q.Inicio != "" {
		if t, err := time.Parse("2006-01-02", q.Inicio); err == nil {
			start = t
		}
	}
	if q.Fim != "" {
		if t, err := time.Parse("2006-01-02", q.Fim); err == nil {
			end = t.Add(24*time.Hour - time.Nanosecond)
		}
	}

	ranks, err := h.svc.Ranking(start, end, decimal.Zero)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.RankingResponse{
		Inicio:  start.Format("2006-01-02"),
		Fim:     end.Format("2006-01-02"),
		Ranking: make([]dto.RankingEntryResponse, 0, len(ranks)),
	}
	for _, r := range ranks {
		resp.Ranking = append(resp.Ranking, dto.RankingEntryResponse{
			Garcom:       r.Waiter,
			TotalVendido: r.Gross,
			Comissao:     r.Commission,
		})
	}
	c.JSON(http.StatusOK, resp)
}
