package dto

import "github.com/shopspring/decimal"

// RankingFilter is bound from query string of GET /v1/comissoes/ranking.
type RankingFilter struct {
	Inicio string `form:"inicio"` // YYYY-MM-DD; empty = first of month
	Fim    string `form:"fim"`    // YYYY-MM-DD; empty = today
}

type RankingEntryResponse struct {
	Garcom       string          `json:"garcom"`
	TotalVendido decimal.Decimal `json:"total_vendido"`
	Comissao     decimal.Decimal `json:"comissao"`
}

type RankingResponse struct {
	Inicio  string                 `json:"inicio"`
	Fim     string                 `json:"fim"`
	Ranking []RankingEntryResponse `json:"ranking"`
}
