package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCaixaRequest struct {
	Tipo         string          `json:"tipo"          validate:"required,oneof=restaurant guest_consumption daily_rates"`
	SaldoInicial decimal.Decimal `json:"saldo_inicial" validate:"omitempty"`
}

type LancamentoRequest struct {
	Tipo      string          `json:"tipo"      validate:"required,oneof=in out deposit withdrawal"`
	Valor     decimal.Decimal `json:"valor"     validate:"required"`
	Descricao string          `json:"descricao" validate:"required,min=3,max=200"`
	Metodo    string          `json:"metodo"    validate:"omitempty,max=60"`
}

type FecharCaixaRequest struct {
	// SaldoContado is the physically counted drawer; optional.
	SaldoContado *decimal.Decimal `json:"saldo_contado" validate:"omitempty"`
}

// CaixaHistoricoFilter is bound from query string of GET /v1/caixa/historico.
type CaixaHistoricoFilter struct {
	Inicio string `form:"inicio"` // YYYY-MM-DD; empty = 30 days back
	Fim    string `form:"fim"`    // YYYY-MM-DD; empty = today
	Tipo   string `form:"tipo"   validate:"omitempty,oneof=restaurant guest_consumption daily_rates"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type FecharCaixaResponse struct {
	SessaoID      string           `json:"sessao_id"`
	SaldoEsperado decimal.Decimal  `json:"saldo_esperado"`
	SaldoContado  *decimal.Decimal `json:"saldo_contado,omitempty"`
	Diferenca     *decimal.Decimal `json:"diferenca,omitempty"`
}
