package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"
	"whatsapp_crm/internal/infrastructure"
	"whatsapp_crm/internal/interfaces"
	"whatsapp_crm/internal/repository"
)

// HealthTables are the tables the database check counts.
var HealthTables = []string{
	"whatsapp_instances",
	"whatsapp_webhooks",
	"chats",
	"messages",
	"quotes",
	"quote_items",
	"products",
	"agents",
}

const (
	StatusHealthy       = "healthy"
	StatusDegraded      = "degraded"
	StatusNotConfigured = "not_configured"
	StatusError         = "error"
	StatusUnreachable   = "unreachable"
)

type DBHealth struct {
	Status    string                          `json:"status"`
	Timestamp time.Time                       `json:"timestamp"`
	Tables    map[string]repository.TableStat `json:"tables"`
}

type EnvCheck struct {
	Configured bool    `json:"configured"`
	Value      *string `json:"value"`
}

type Connectivity struct {
	Status string  `json:"status"`
	Error  *string `json:"error"`
}

type EvolutionHealth struct {
	Status       string              `json:"status"`
	Timestamp    time.Time           `json:"timestamp"`
	Environment  map[string]EnvCheck `json:"environment"`
	Connectivity Connectivity        `json:"connectivity"`
}

func (h EvolutionHealth) Healthy() bool {
	return h.Status == StatusHealthy
}

type HealthUsecase struct {
	tables  interfaces.TableCounter
	gateway interfaces.Gateway
	apiURL  string
	apiKey  string
	now     func() time.Time
}

func NewHealthUsecase(tables interfaces.TableCounter, gateway interfaces.Gateway, apiURL, apiKey string) *HealthUsecase {
	return &HealthUsecase{tables: tables, gateway: gateway, apiURL: apiURL, apiKey: apiKey, now: time.Now}
}

// CheckDatabase is healthy only when every table answers a count.
func (h *HealthUsecase) CheckDatabase(ctx context.Context) DBHealth {
	stats := h.tables.CountRows(ctx, HealthTables)
	status := StatusHealthy
	for _, t := range HealthTables {
		if !stats[t].Exists {
			status = StatusDegraded
			break
		}
	}
	return DBHealth{Status: status, Timestamp: h.now().UTC(), Tables: stats}
}

func (h *HealthUsecase) CheckEvolution(ctx context.Context) EvolutionHealth {
	res := EvolutionHealth{
		Timestamp: h.now().UTC(),
		Environment: map[string]EnvCheck{
			"EVOLUTION_API_URL": {Configured: h.apiURL != ""},
			"EVOLUTION_API_KEY": {Configured: h.apiKey != ""},
		},
	}
	if h.apiURL != "" {
		v := truncate(h.apiURL, 20) + "..."
		res.Environment["EVOLUTION_API_URL"] = EnvCheck{Configured: true, Value: &v}
	}
	if h.apiKey != "" {
		v := infrastructure.MaskSecret(h.apiKey)
		res.Environment["EVOLUTION_API_KEY"] = EnvCheck{Configured: true, Value: &v}
	}

	res.Connectivity = h.checkGateway(ctx)
	res.Status = StatusDegraded
	if h.apiURL != "" && h.apiKey != "" && res.Connectivity.Status == StatusHealthy {
		res.Status = StatusHealthy
	}
	return res
}

func (h *HealthUsecase) checkGateway(ctx context.Context) Connectivity {
	if h.apiURL == "" || h.apiKey == "" || h.gateway == nil {
		msg := "Missing required environment variables"
		return Connectivity{Status: StatusNotConfigured, Error: &msg}
	}
	err := h.gateway.FetchInstances(ctx)
	if err == nil {
		return Connectivity{Status: StatusHealthy}
	}
	var apiErr *infrastructure.APIError
	if errors.As(err, &apiErr) {
		msg := fmt.Sprintf("HTTP %d: %s", apiErr.StatusCode, apiErr.Message)
		return Connectivity{Status: StatusError, Error: &msg}
	}
	msg := err.Error()
	return Connectivity{Status: StatusUnreachable, Error: &msg}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
