package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type LancarConsumoRequest struct {
	Quarto string              `json:"quarto" validate:"required,min=1,max=10"`
	Origem string              `json:"origem" validate:"omitempty,oneof=minibar reception_edit"`
	Itens  []ItemPedidoRequest `json:"itens"  validate:"required,min=1,dive"`
}

type PagarConsumoRequest struct {
	Pagamentos     []PagamentoRequest `json:"pagamentos"       validate:"required,min=1,dive"`
	EmitirNota     bool               `json:"emitir_nota"`
	NomeCliente    string             `json:"nome_cliente"     validate:"omitempty,max=150"`
	CPFCNPJCliente string             `json:"cpf_cnpj_cliente" validate:"omitempty,max=20"`
}

type FecharContaQuartoRequest struct {
	Pagamentos []PagamentoRequest `json:"pagamentos" validate:"required,min=1,dive"`
}

type EditarConsumoRequest struct {
	Adicionar     []ItemPedidoRequest `json:"adicionar"     validate:"omitempty,dive"`
	RemoverItens  []int               `json:"remover_itens" validate:"omitempty,dive,min=1"`
	RemoverTaxa   bool                `json:"remover_taxa"`
	Justificativa string              `json:"justificativa" validate:"required,min=3,max=300"`
}

type CancelarConsumoRequest struct {
	Justificativa string `json:"justificativa" validate:"required,min=3,max=300"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type FecharContaQuartoResponse struct {
	Quarto   string          `json:"quarto"`
	Consumos []string        `json:"consumos"`
	Total    decimal.Decimal `json:"total"`
}
