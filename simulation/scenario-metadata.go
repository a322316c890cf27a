package simulation

import (
	"fmt"
	"math"
	"os"

	"virus-model/model"

	"gopkg.in/yaml.v3"
)

type ScenarioMetadata struct {
	UniqueName string `yaml:"unique_name" json:"unique_name"`

	// Seed fixes the random stream; a time-based seed is drawn when unset
	Seed *uint64 `yaml:"seed,omitempty" json:"seed,omitempty"`

	model.VirusModelParams   `yaml:",inline"`
	model.CollectItemOptions `yaml:",inline"`

	MaxSimulationStep  int  `yaml:"max_simulation_step" json:"max_simulation_step"`
	StopOnExtinction   bool `yaml:"stop_on_extinction" json:"stop_on_extinction"`
	ExtinctionPatience int  `yaml:"extinction_patience" json:"extinction_patience"`
}

// DefaultScenarioMetadata returns metadata with the default model parameters
func DefaultScenarioMetadata() *ScenarioMetadata {
	return &ScenarioMetadata{
		UniqueName:       "default",
		VirusModelParams: *model.DefaultVirusModelParams(),
		CollectItemOptions: model.CollectItemOptions{
			InfectionEvent:    true,
			OutcomeEvent:      true,
			VaccinationEvent:  true,
			TransmissionGraph: true,
		},
		MaxSimulationStep:  1000,
		StopOnExtinction:   true,
		ExtinctionPatience: 60,
	}
}

// LoadScenarioMetadata reads a YAML (or JSON) file on top of the defaults
func LoadScenarioMetadata(path string) (*ScenarioMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata file: %w", err)
	}

	metadata := DefaultScenarioMetadata()
	if err := yaml.Unmarshal(data, metadata); err != nil {
		return nil, fmt.Errorf("parsing metadata file: %w", err)
	}

	if err := metadata.Validate(); err != nil {
		return nil, err
	}
	return metadata, nil
}

// Validate checks the scenario settings and the model parameters
func (m *ScenarioMetadata) Validate() error {
	if m.UniqueName == "" {
		return fmt.Errorf("unique_name is required")
	}
	if m.MaxSimulationStep < 0 {
		return fmt.Errorf("max_simulation_step must be non-negative, got %d", m.MaxSimulationStep)
	}
	if m.ExtinctionPatience < 0 {
		return fmt.Errorf("extinction_patience must be non-negative, got %d", m.ExtinctionPatience)
	}
	if m.AgentTrajectory && (m.Width > math.MaxInt16 || m.Height > math.MaxInt16) {
		return fmt.Errorf("agent_trajectory supports grids up to %d cells per side", math.MaxInt16)
	}
	return m.VirusModelParams.Validate()
}
