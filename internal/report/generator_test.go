package report

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestFleetReport_Unconfigured(t *testing.T) {
	g := NewGenerator(nil, "")

	if g.Available() {
		t.Error("Available() = true with nil client")
	}
	if _, err := g.FleetReport(context.Background(), FleetSnapshot{}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("FleetReport() error = %v, want ErrUnavailable", err)
	}
}

func TestBuildPrompt(t *testing.T) {
	snap := FleetSnapshot{
		PeriodDays:     30,
		ActiveVehicles: 42,
		Trips:          120,
		Vehicles: []VehicleLine{
			{CarID: "101", Chassis: "CONVENCIONAL", KmPerLiter: 2.35, Tier: "green"},
		},
	}

	prompt := buildPrompt(snap)

	for _, want := range []string{"30 dias", "42", "120 viagens", "carro 101", "2.35"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPrompt_NoVehicles(t *testing.T) {
	prompt := buildPrompt(FleetSnapshot{PeriodDays: 7})

	if strings.Contains(prompt, "Eficiência por veículo") {
		t.Error("prompt lists vehicles when the snapshot has none")
	}
}
