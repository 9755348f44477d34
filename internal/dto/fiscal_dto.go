package dto

// ─── Filter / List ───────────────────────────────────────────────────────────

// FiscalFilter is bound from query string of GET /v1/fiscal.
type FiscalFilter struct {
	Origem string `form:"origem" validate:"omitempty,oneof=restaurant reception reception_charge"`
	Status string `form:"status" validate:"omitempty,oneof=pending emitted error ignored"`
	Inicio string `form:"inicio"` // YYYY-MM-DD
	Fim    string `form:"fim"`    // YYYY-MM-DD
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type IgnorarNotaRequest struct {
	Justificativa string `json:"justificativa" validate:"omitempty,max=300"`
}
