package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/apierror"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/dto"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/service"
)

type MesasHandler struct{ svc service.OrderBookService }

func NewMesasHandler(svc service.OrderBookService) *MesasHandler { return &MesasHandler{svc: svc} }

// Abrir godoc
// @Summary      Abrir mesa, conta de quarto ou conta de funcionário
// @Description  Idempotente: abrir uma mesa já aberta retorna a mesa existente.
// @Tags         mesas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.AbrirMesaRequest true "Dados da abertura"
// @Success      201  {object} model.TableOrder
// @Failure      400  {object} apierror.APIError
// @Router       /v1/mesas [post]
func (h *MesasHandler) Abrir(c *gin.Context) {
	var req dto.AbrirMesaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	order, err := h.svc.Open(c.Request.Context(), service.OpenTable{
		TableID:      req.MesaID,
		CustomerType: req.TipoCliente,
		NumAdults:    req.NumAdultos,
		Waiter:       req.Garcom,
		RoomNumber:   req.Quarto,
		StaffName:    req.NomeFuncionario,
	}, currentOperator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// Listar godoc
// @Summary      Listar mesas abertas
// @Tags         mesas
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} model.TableOrder
// @Router       /v1/mesas [get]
func (h *MesasHandler) Listar(c *gin.Context) {
	orders, err := h.svc.List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// Detalhe godoc
// @Summary      Detalhar uma mesa aberta
// @Tags         mesas
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "ID da mesa"
// @Success      200 {object} model.TableOrder
// @Failure      404 {object} apierror.APIError
// @Router       /v1/mesas/{id} [get]
func (h *MesasHandler) Detalhe(c *gin.Context) {
	order, err := h.svc.Find(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// AdicionarItens godoc
// @Summary      Lançar itens em uma mesa
// @Description  Deduplicado por batch_id contra toques duplos dos tablets.
// @Tags         mesas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                    true "ID da mesa"
// @Param        body body dto.AdicionarItensRequest true "Lote de itens"
// @Success      200  {object} service.AddItemsResult
// @Failure      409  {object} apierror.APIError
// @Router       /v1/mesas/{id}/itens [post]
func (h *MesasHandler) AdicionarItens(c *gin.Context) {
	var req dto.AdicionarItensRequest
	if !bindAndValidate(c, &req) {
		return
	}
	inputs := make([]service.ItemInput, 0, len(req.Itens))
	for _, it := range req.Itens {
		inputs = append(inputs, service.ItemInput{
			Product:        it.Produto,
			Qty:            it.Qtd,
			ComplementIDs:  it.Complementos,
			Accompaniments: it.Acompanhamentos,
			Observations:   it.Observacoes,
			Waiter:         it.Garcom,
			Source:         it.Origem,
		})
	}
	result, err := h.svc.AddItems(c.Request.Context(), c.Param("id"), req.BatchID, inputs, req.Garcom, currentOperator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RemoverItem godoc
// @Summary      Remover item de uma mesa
// @Description  Exige justificativa e perfil de gestão ou senha de gerente.
// @Tags         mesas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                 true "ID da mesa"
// @Param        item_id path int                    true "ID do item"
// @Param        body    body dto.RemoverItemRequest true "Justificativa"
// @Success      204
// @Failure      403 {object} apierror.APIError
// @Router       /v1/mesas/{id}/itens/{item_id} [delete]
func (h *MesasHandler) RemoverItem(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("item_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID de item inválido"))
		return
	}
	var req dto.RemoverItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	err = h.svc.RemoveItem(c.Request.Context(), c.Param("id"), itemID, req.Qtd,
		req.Justificativa, currentOperator(c), req.SenhaGerente)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TransferirItem godoc
// @Summary      Transferir item entre mesas
// @Description  Restrito a gerente/admin; movimenta na mesma gravação.
// @Tags         mesas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                    true "Mesa de origem"
// @Param        body body dto.TransferirItemRequest true "Destino e item"
// @Success      204
// @Failure      403 {object} apierror.APIError
// @Router       /v1/mesas/{id}/transferir-item [post]
func (h *MesasHandler) TransferirItem(c *gin.Context) {
	var req dto.TransferirItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	err := h.svc.TransferItem(c.Request.Context(), c.Param("id"), req.MesaDestino,
		req.ItemID, req.Qtd, currentOperator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TransferirQuarto godoc
// @Summary      Transferir mesa para a conta do quarto
// @Description  Converte a mesa em um consumo pendente do quarto e a fecha.
// @Tags         mesas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                      true "ID da mesa"
// @Param        body body dto.TransferirQuartoRequest true "Quarto destino"
// @Success      201  {object} model.RoomCharge
// @Failure      400  {object} apierror.APIError
// @Router       /v1/mesas/{id}/transferir-quarto [post]
func (h *MesasHandler) TransferirQuarto(c *gin.Context) {
	var req dto.TransferirQuartoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	charge, err := h.svc.TransferToRoom(c.Request.Context(), c.Param("id"), req.Quarto, currentOperator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, charge)
}

// PuxarConta godoc
// @Summary      Puxar a conta da mesa
// @Description  Trava a mesa contra novos lançamentos e gera o PDF de conferência.
// @Tags         mesas
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "ID da mesa"
// @Success      200 {object} dto.ContaResponse
// @Router       /v1/mesas/{id}/conta [post]
func (h *MesasHandler) PuxarConta(c *gin.Context) {
	path, err := h.svc.PullBill(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ContaResponse{MesaID: c.Param("id"), Travada: true, PDFPath: path})
}

// Destravar godoc
// @Summary      Reabrir mesa após conta puxada
// @Description  Remove a trava; remoções subsequentes ficam sinalizadas para auditoria.
// @Tags         mesas
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "ID da mesa"
// @Success      204
// @Router       /v1/mesas/{id}/destravar [post]
func (h *MesasHandler) Destravar(c *gin.Context) {
	if err := h.svc.Unlock(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Fechar godoc
// @Summary      Fechar mesa no caixa do restaurante
// @Description  Registra os pagamentos, apaga a mesa e enfileira a nota no pool fiscal.
// @Tags         mesas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                true "ID da mesa"
// @Param        body body dto.FecharMesaRequest true "Pagamentos e ajustes"
// @Success      200  {object} dto.FecharMesaResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/mesas/{id}/fechar [post]
func (h *MesasHandler) Fechar(c *gin.Context) {
	var req dto.FecharMesaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	payments := make([]service.PaymentInput, 0, len(req.Pagamentos))
	for _, p := range req.Pagamentos {
		payments = append(payments, service.PaymentInput{Method: p.Metodo, Amount: p.Valor})
	}
	discount := req.Desconto
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	result, err := h.svc.Close(c.Request.Context(), c.Param("id"), service.CloseTable{
		Payments:         payments,
		Discount:         discount,
		RemoveServiceFee: req.RemoverTaxa,
		CustomerName:     req.NomeCliente,
		CustomerCPFCNPJ:  req.CPFCNPJCliente,
		PartialOnly:      req.Parcial,
	}, currentOperator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FecharMesaResponse{
		JaFechada:   result.AlreadyClosed,
		Fechada:     result.Closed,
		Parcial:     result.Partial,
		TotalItens:  result.ItemsTotal,
		TaxaServico: result.ServiceFee,
		TotalGeral:  result.GrandTotal,
		ValorPago:   result.PaidAmount,
		Troco:       result.Change,
	})
}

// Cancelar godoc
// @Summary      Cancelar mesa
// @Description  Apaga a mesa e estorna o estoque. Restrito a perfis de gestão.
// @Tags         mesas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                  true "ID da mesa"
// @Param        body body dto.CancelarMesaRequest true "Justificativa"
// @Success      204
// @Failure      403 {object} apierror.APIError
// @Router       /v1/mesas/{id} [delete]
func (h *MesasHandler) Cancelar(c *gin.Context) {
	var req dto.CancelarMesaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Cancel(c.Request.Context(), c.Param("id"), req.Justificativa, currentOperator(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reimprimir godoc
// @Summary      Reimprimir itens com erro de impressão
// @Tags         mesas
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "ID da mesa"
// @Success      200 {object} service.AddItemsResult
// @Router       /v1/mesas/{id}/reimprimir [post]
func (h *MesasHandler) Reimprimir(c *gin.Context) {
	result, err := h.svc.Reprint(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
