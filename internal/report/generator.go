// Package report wraps the hosted generative-AI service for fleet report
// generation. It forwards structured fleet data inside a prompt template;
// no analysis happens locally.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is used when no chat model is configured.
const DefaultModel = "gemini-2.0-flash"

// ErrUnavailable is returned when no AI client is configured.
var ErrUnavailable = errors.New("report generation is not configured")

// requestTimeout bounds a single generation call.
const requestTimeout = 30 * time.Second

// Generator produces narrative fleet reports from structured summaries.
type Generator struct {
	client *genai.Client
	model  string
}

// NewGenerator creates a Generator. A nil client is allowed and makes
// Available() report false; handlers answer 503 in that case.
func NewGenerator(client *genai.Client, model string) *Generator {
	if model == "" {
		model = DefaultModel
	}
	return &Generator{client: client, model: model}
}

// Available reports whether the AI backend is configured.
func (g *Generator) Available() bool {
	return g.client != nil
}

// VehicleLine is one vehicle's row in the snapshot fed to the model.
type VehicleLine struct {
	CarID      string  `json:"carId"`
	Chassis    string  `json:"chassis"`
	KmPerLiter float64 `json:"kmPerLiter"`
	Tier       string  `json:"tier"`
}

// FleetSnapshot is the structured data the report is generated from.
type FleetSnapshot struct {
	PeriodDays       int           `json:"periodDays"`
	ActiveVehicles   int           `json:"activeVehicles"`
	InactiveVehicles int           `json:"inactiveVehicles"`
	Trips            int           `json:"trips"`
	Fuelings         int           `json:"fuelings"`
	Inspections      int           `json:"inspections"`
	Checklists       int           `json:"checklists"`
	Vehicles         []VehicleLine `json:"vehicles"`
}

// FleetReport asks the model for a management summary of the snapshot.
func (g *Generator) FleetReport(ctx context.Context, snap FleetSnapshot) (string, error) {
	if g.client == nil {
		return "", ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(buildPrompt(snap)), nil)
	if err != nil {
		return "", fmt.Errorf("generate fleet report: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("model returned an empty report")
	}
	return text, nil
}

// buildPrompt renders the snapshot as a Portuguese prompt. The operator's
// managers read the reports in Portuguese.
func buildPrompt(snap FleetSnapshot) string {
	var b strings.Builder

	b.WriteString("Você é um analista de frota de ônibus urbanos. ")
	b.WriteString("Escreva um relatório gerencial curto (3 a 5 parágrafos) em português ")
	b.WriteString("a partir dos dados abaixo. Destaque veículos fora da meta de eficiência ")
	b.WriteString("e tendências no período. Não invente números.\n\n")

	fmt.Fprintf(&b, "Período: últimos %d dias\n", snap.PeriodDays)
	fmt.Fprintf(&b, "Veículos ativos: %d (inativos: %d)\n", snap.ActiveVehicles, snap.InactiveVehicles)
	fmt.Fprintf(&b, "Registros: %d viagens, %d abastecimentos, %d inspeções de pneu, %d checklists\n\n",
		snap.Trips, snap.Fuelings, snap.Inspections, snap.Checklists)

	if len(snap.Vehicles) > 0 {
		b.WriteString("Eficiência por veículo (km/l e faixa atingida):\n")
		for _, v := range snap.Vehicles {
			fmt.Fprintf(&b, "- carro %s (%s): %.2f km/l, faixa %s\n",
				v.CarID, v.Chassis, v.KmPerLiter, v.Tier)
		}
	}

	return b.String()
}
