package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// FiscalItem is one line of the emission payload.
type FiscalItem struct {
	Name      string          `json:"name"`
	Qty       decimal.Decimal `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// FiscalPayload is sent to the fiscal sidecar, which owns the SEFAZ
// conversation (certificates, XML, transmission) and returns the document id.
type FiscalPayload struct {
	EmitterCNPJ     string          `json:"emitter_cnpj"`
	OriginalID      string          `json:"original_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Items           []FiscalItem    `json:"items"`
	PaymentMethods  []string        `json:"payment_methods"`
	CustomerCPFCNPJ string          `json:"customer_cpf_cnpj,omitempty"`
	CustomerName    string          `json:"customer_name,omitempty"`
}

// FiscalResponse is returned by the sidecar after transmission.
type FiscalResponse struct {
	Success bool   `json:"success"`
	Data    struct {
		ID string `json:"id"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// FiscalClient delegates tax-authority communication to the sidecar over
// HTTP. The decoupling keeps SEFAZ failures out of the settlement path:
// emission errors only flip pool entries to status=error.
type FiscalClient struct {
	sidecarURL string
	httpClient *http.Client
}

func NewFiscalClient(sidecarURL string) *FiscalClient {
	return &FiscalClient{
		sidecarURL: sidecarURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Emit posts the payload and returns the fiscal document uuid.
func (c *FiscalClient) Emit(ctx context.Context, payload FiscalPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("fiscal: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sidecarURL+"/emitir", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("fiscal: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fiscal: sidecar unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fiscal: sidecar returned %d", resp.StatusCode)
	}

	var result FiscalResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("fiscal: decode response: %w", err)
	}
	if !result.Success {
		return "", fmt.Errorf("fiscal: emissão recusada: %s", result.Error)
	}
	return result.Data.ID, nil
}
