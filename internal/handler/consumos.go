package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/apierror"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/dto"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/service"
)

type ConsumosHandler struct{ svc service.ChargeLedgerService }

func NewConsumosHandler(svc service.ChargeLedgerService) *ConsumosHandler {
	return &ConsumosHandler{svc: svc}
}

// Listar godoc
// @Summary      Listar consumos pendentes
// @Tags         consumos
// @Produce      json
// @Security     BearerAuth
// @Param        quarto query string false "Filtrar por quarto"
// @Success      200 {array} model.RoomCharge
// @Router       /v1/consumos [get]
func (h *ConsumosHandler) Listar(c *gin.Context) {
	charges, err := h.svc.ListPending(c.Query("quarto"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, charges)
}

// Lancar godoc
// @Summary      Lançar consumo direto no quarto
// @Description  Consumo de frigobar ou lançamento da recepção, sem mesa de origem.
// @Tags         consumos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.LancarConsumoRequest true "Itens e quarto"
// @Success      201  {object} model.RoomCharge
// @Failure      400  {object} apierror.APIError
// @Router       /v1/consumos [post]
func (h *ConsumosHandler) Lancar(c *gin.Context) {
	var req dto.LancarConsumoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	inputs := make([]service.ItemInput, 0, len(req.Itens))
	for _, it := range req.Itens {
		inputs = append(inputs, service.ItemInput{
			Product: it.Produto,
			Qty:     it.Qtd,
			Waiter:  it.Garcom,
		})
	}
	charge, err := h.svc.CreateDirect(c.Request.Context(), req.Quarto, inputs, req.Origem, currentOperator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, charge)
}

// Pagar godoc
// @Summary      Pagar um consumo avulso
// @Description  Exige caixa de consumo de hóspedes aberto; enfileira a nota no pool fiscal.
// @Tags         consumos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                  true "UUID do consumo"
// @Param        body body dto.PagarConsumoRequest true "Pagamentos"
// @Success      200  {object} model.RoomCharge
// @Failure      400  {object} apierror.APIError
// @Router       /v1/consumos/{id}/pagar [post]
func (h *ConsumosHandler) Pagar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	var req dto.PagarConsumoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	payments := make([]service.PaymentInput, 0, len(req.Pagamentos))
	for _, p := range req.Pagamentos {
		payments = append(payments, service.PaymentInput{Method: p.Metodo, Amount: p.Valor})
	}
	charge, err := h.svc.Pay(c.Request.Context(), id, service.PayCharge{
		Payments:    payments,
		EmitInvoice: req.EmitirNota,
		CustomerInfo: model.CustomerInfo{
			Name:    req.NomeCliente,
			CPFCNPJ: req.CPFCNPJCliente,
		},
	}, currentOperator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, charge)
}

// FecharConta godoc
// @Summary      Fechar a conta consolidada do quarto
// @Description  Marca todos os consumos pendentes como pagos em uma única gravação e gera uma única nota ROOM_<n>.
// @Tags         consumos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        quarto path string                       true "Número do quarto"
// @Param        body   body dto.FecharContaQuartoRequest true "Pagamentos"
// @Success      200    {object} dto.FecharContaQuartoResponse
// @Failure      400    {object} apierror.APIError
// @Router       /v1/consumos/quarto/{quarto}/fechar [post]
func (h *ConsumosHandler) FecharConta(c *gin.Context) {
	var req dto.FecharContaQuartoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	payments := make([]service.PaymentInput, 0, len(req.Pagamentos))
	for _, p := range req.Pagamentos {
		payments = append(payments, service.PaymentInput{Method: p.Metodo, Amount: p.Valor})
	}
	result, err := h.svc.CloseAccount(c.Request.Context(), c.Param("quarto"), payments, currentOperator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ids := make([]string, 0, len(result.ChargeIDs))
	for _, id := range result.ChargeIDs {
		ids = append(ids, id.String())
	}
	c.JSON(http.StatusOK, dto.FecharContaQuartoResponse{
		Quarto:   result.RoomNumber,
		Consumos: ids,
		Total:    result.Total,
	})
}

// Editar godoc
// @Summary      Editar um consumo
// @Description  Edição append-only: adições e estornos viram novas linhas com justificativa.
// @Tags         consumos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                   true "UUID do consumo"
// @Param        body body dto.EditarConsumoRequest true "Alterações"
// @Success      200  {object} model.RoomCharge
// @Failure      400  {object} apierror.APIError
// @Router       /v1/consumos/{id} [patch]
func (h *ConsumosHandler) Editar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	var req dto.EditarConsumoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	additions := make([]service.ItemInput, 0, len(req.Adicionar))
	for _, it := range req.Adicionar {
		additions = append(additions, service.ItemInput{
			Product: it.Produto,
			Qty:     it.Qtd,
			Waiter:  it.Garcom,
		})
	}
	charge, err := h.svc.Edit(c.Request.Context(), id, service.ChargeEdit{
		Additions:        additions,
		RemoveItemIDs:    req.RemoverItens,
		RemoveServiceFee: req.RemoverTaxa,
		Justification:    req.Justificativa,
	}, currentOperator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, charge)
}

// Cancelar godoc
// @Summary      Cancelar um consumo pendente
// @Tags         consumos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                     true "UUID do consumo"
// @Param        body body dto.CancelarConsumoRequest true "Justificativa"
// @Success      204
// @Failure      403 {object} apierror.APIError
// @Router       /v1/consumos/{id} [delete]
func (h *ConsumosHandler) Cancelar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	var req dto.CancelarConsumoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Cancel(c.Request.Context(), id, req.Justificativa, currentOperator(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
