// Package printing dispatches kitchen/bar tickets to the print agent.
// Dispatch is fire-and-forget from the order book's point of view: a failed
// or timed-out dispatch flags items print_status=error and never blocks
// persistence of the order itself.
package printing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/domain"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
)

// DispatchTimeout bounds one agent round trip. Past it, all submitted items
// are reported failed and stay eligible for reprint.
const DispatchTimeout = 10 * time.Second

// SkipMarker in an item observation suppresses printing for that item.
const SkipMarker = "não imprimir"

// Job is one submission to the agent: the items of a single add-items batch
// routed to their printers.
type Job struct {
	TableID        string            `json:"table_id"`
	WaiterName     string            `json:"waiter_name"`
	Items          []model.OrderItem `json:"items"`
	PrinterRouting map[int]string    `json:"printer_routing"` // item id → printer id
}

// Result reports per-item outcomes.
type Result struct {
	PrintedIDs []int          `json:"printed_ids"`
	Errors     map[int]string `json:"errors"`
}

// Dispatcher is implemented by the HTTP agent client and by test stubs.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) (*Result, error)
}

// AgentClient talks to the local print agent over HTTP.
type AgentClient struct {
	agentURL   string
	httpClient *http.Client
}

func NewAgentClient(agentURL string) *AgentClient {
	return &AgentClient{
		agentURL:   agentURL,
		httpClient: &http.Client{Timeout: DispatchTimeout},
	}
}

// Dispatch posts the job and decodes per-item results. A timeout maps to
// domain.ErrPrinterTimeout so the order book can flag items.
func (c *AgentClient) Dispatch(ctx context.Context, job Job) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, DispatchTimeout)
	defer cancel()

	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("printing: marshal job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.agentURL+"/print", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("printing: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.ErrPrinterTimeout
		}
		return nil, fmt.Errorf("printing: agent unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("printing: agent returned %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("printing: decode result: %w", err)
	}
	return &result, nil
}

// ShouldPrint decides whether an item goes to the agent: the product asks
// for printing and no observation carries the skip marker.
func ShouldPrint(product *model.Product, item model.OrderItem) bool {
	if product == nil || !product.ShouldPrint {
		return false
	}
	for _, obs := range item.Observations {
		if obs == SkipMarker {
			return false
		}
	}
	return true
}
