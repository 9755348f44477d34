package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirMesaRequest struct {
	MesaID      string `json:"mesa_id"      validate:"required,min=1,max=60"`
	TipoCliente string `json:"tipo_cliente" validate:"omitempty,oneof=passante hospede funcionario"`
	NumAdultos  int    `json:"num_adultos"  validate:"min=0,max=50"`
	Garcom      string `json:"garcom"       validate:"omitempty,max=100"`
	Quarto      string `json:"quarto"       validate:"omitempty,max=10"`
	// NomeFuncionario identifies the staff account when tipo_cliente=funcionario.
	NomeFuncionario string `json:"nome_funcionario" validate:"omitempty,max=100"`
}

type ItemPedidoRequest struct {
	Produto         string          `json:"produto"         validate:"required,min=1"`
	Qtd             decimal.Decimal `json:"qtd"             validate:"omitempty"`
	Complementos    []string        `json:"complementos"    validate:"omitempty,dive,min=1"`
	Acompanhamentos []string        `json:"acompanhamentos" validate:"omitempty,dive,min=1"`
	Observacoes     []string        `json:"observacoes"     validate:"omitempty,dive,max=200"`
	Garcom          string          `json:"garcom"          validate:"omitempty,max=100"`
	Origem          string          `json:"origem"          validate:"omitempty,oneof=restaurant minibar"`
}

type AdicionarItensRequest struct {
	// BatchID deduplicates double-taps from the waiter tablets.
	BatchID string              `json:"batch_id" validate:"required,min=8,max=80"`
	Garcom  string              `json:"garcom"   validate:"omitempty,max=100"`
	Itens   []ItemPedidoRequest `json:"itens"    validate:"required,min=1,dive"`
}

type RemoverItemRequest struct {
	Qtd           decimal.Decimal `json:"qtd"            validate:"omitempty"`
	Justificativa string          `json:"justificativa"  validate:"required,min=3,max=300"`
	// SenhaGerente authorizes the removal when the caller lacks the role.
	SenhaGerente string `json:"senha_gerente" validate:"omitempty,max=100"`
}

type TransferirItemRequest struct {
	MesaDestino string          `json:"mesa_destino" validate:"required,min=1,max=60"`
	ItemID      int             `json:"item_id"      validate:"required,min=1"`
	Qtd         decimal.Decimal `json:"qtd"          validate:"omitempty"`
}

type TransferirQuartoRequest struct {
	Quarto string `json:"quarto" validate:"required,min=1,max=10"`
}

type PagamentoRequest struct {
	Metodo string          `json:"metodo" validate:"required,min=1,max=60"`
	Valor  decimal.Decimal `json:"valor"  validate:"required"`
}

type FecharMesaRequest struct {
	Pagamentos     []PagamentoRequest `json:"pagamentos"       validate:"omitempty,dive"`
	Desconto       decimal.Decimal    `json:"desconto"         validate:"omitempty"`
	RemoverTaxa    bool               `json:"remover_taxa"`
	NomeCliente    string             `json:"nome_cliente"     validate:"omitempty,max=150"`
	CPFCNPJCliente string             `json:"cpf_cnpj_cliente" validate:"omitempty,max=20"`
	// Parcial registers the payments without finalizing the table.
	Parcial bool `json:"parcial"`
}

type CancelarMesaRequest struct {
	Justificativa string `json:"justificativa" validate:"required,min=3,max=300"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type FecharMesaResponse struct {
	JaFechada    bool            `json:"ja_fechada,omitempty"`
	Fechada      bool            `json:"fechada"`
	Parcial      bool            `json:"parcial,omitempty"`
	TotalItens   decimal.Decimal `json:"total_itens"`
	TaxaServico  decimal.Decimal `json:"taxa_servico"`
	TotalGeral   decimal.Decimal `json:"total_geral"`
	ValorPago    decimal.Decimal `json:"valor_pago"`
	Troco        decimal.Decimal `json:"troco"`
}

type ContaResponse struct {
	MesaID  string `json:"mesa_id"`
	Travada bool   `json:"travada"`
	PDFPath string `json:"pdf_path,omitempty"`
}
