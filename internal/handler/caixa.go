package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/apierror"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/dto"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/service"
)

type CaixaHandler struct{ svc service.CashierService }

func NewCaixaHandler(svc service.CashierService) *CaixaHandler { return &CaixaHandler{svc: svc} }

// Abrir godoc
// @Summary      Abrir caixa
// @Description  No máximo um caixa aberto por tipo.
// @Tags         caixa
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.AbrirCaixaRequest true "Tipo e saldo inicial"
// @Success      201  {object} model.CashierSession
// @Failure      409  {object} apierror.APIError
// @Router       /v1/caixa [post]
func (h *CaixaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCaixaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operator := currentOperator(c)
	session, err := h.svc.OpenSession(req.Tipo, operator.Username, req.SaldoInicial)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// Ativo godoc
// @Summary      Consultar o caixa aberto de um tipo
// @Tags         caixa
// @Produce      json
// @Security     BearerAuth
// @Param        tipo path string true "restaurant | guest_consumption | daily_rates"
// @Success      200 {object} model.CashierSession
// @Failure      404 {object} apierror.APIError
// @Router       /v1/caixa/ativo/{tipo} [get]
func (h *CaixaHandler) Ativo(c *gin.Context) {
	session, err := h.svc.GetActive(c.Param("tipo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Lancar godoc
// @Summary      Registrar entrada, saída, depósito ou sangria
// @Tags         caixa
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tipo path string                true "Tipo do caixa"
// @Param        body body dto.LancamentoRequest true "Lançamento"
// @Success      201  {object} model.CashierTransaction
// @Failure      400  {object} apierror.APIError
// @Router       /v1/caixa/{tipo}/lancamentos [post]
func (h *CaixaHandler) Lancar(c *gin.Context) {
	var req dto.LancamentoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operator := currentOperator(c)
	tx, err := h.svc.Record(c.Param("tipo"), model.CashierTransaction{
		Type:          req.Tipo,
		Amount:        req.Valor,
		Description:   req.Descricao,
		PaymentMethod: req.Metodo,
		User:          operator.Username,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// Fechar godoc
// @Summary      Fechar caixa
// @Description  Deriva o saldo esperado, registra o contado e dispara o lote fiscal e o relatório.
// @Tags         caixa
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                 true "UUID da sessão"
// @Param        body body dto.FecharCaixaRequest true "Saldo contado"
// @Success      200  {object} dto.FecharCaixaResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/caixa/fechar/{id} [post]
func (h *CaixaHandler) Fechar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	var req dto.FecharCaixaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operator := currentOperator(c)
	session, err := h.svc.CloseSession(c.Request.Context(), id, operator.Username, req.SaldoContado)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := dto.FecharCaixaResponse{SessaoID: session.ID.String()}
	if session.ClosingBalance != nil {
		resp.SaldoEsperado = *session.ClosingBalance
	}
	resp.SaldoContado = session.CountedClosing
	resp.Diferenca = session.ClosingDiff
	c.JSON(http.StatusOK, resp)
}

// Historico godoc
// @Summary      Histórico de caixas fechados
// @Tags         caixa
// @Produce      json
// @Security     BearerAuth
// @Param        inicio query string false "YYYY-MM-DD (default: 30 dias atrás)"
// @Param        fim    query string false "YYYY-MM-DD (default: hoje)"
// @Param        tipo   query string false "Filtrar por tipo"
// @Success      200 {array} model.CashierSession
// @Router       /v1/caixa/historico [get]
func (h *CaixaHandler) Historico(c *gin.Context) {
	var filter dto.CaixaHistoricoFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}

	end := time.Now()
	start := end.AddDate(0, 0, -30)
	if filter.Inicio != "" {
		if t, err := time.Parse("2006-01-02", filter.Inicio); err == nil {
			start = t
		}
	}
	if filter.Fim != "" {
		if t, err := time.Parse("2006-01-02", filter.Fim); err == nil {
			end = t.Add(24*time.Hour - time.Nanosecond)
		}
	}

	sessions, err := h.svc.History(start, end, filter.Tipo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}
