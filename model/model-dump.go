package model

import (
	"encoding"
	"fmt"

	utils "virus-model/utils"

	"github.com/google/uuid"
)

type AgentDumpData struct {
	ID             int64
	X              int
	Y              int
	Status         HealthStatus
	InfectionTimer int
	RecoveryTimer  *int
	Symptomatic    *bool
	IsVaccinated   bool
}

type VirusModelDumpData struct {
	RunID        string
	CurStep      int
	Params       VirusModelParams
	Agents       []AgentDumpData
	Metrics      []MetricsRecord
	RandomState  []byte
	Transmission *utils.NetworkXGraph
}

// Dump captures everything needed to continue the run elsewhere.
// The random stream must support binary marshaling.
func (m *VirusModel) Dump() (*VirusModelDumpData, error) {
	marshaler, ok := m.Random.(encoding.BinaryMarshaler)
	if !ok {
		return nil, fmt.Errorf("random stream %T cannot be captured", m.Random)
	}
	state, err := marshaler.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("capturing random state: %w", err)
	}

	ret := &VirusModelDumpData{
		RunID:       m.RunID.String(),
		CurStep:     m.CurStep,
		Params:      *m.Params,
		Agents:      make([]AgentDumpData, len(m.Schedule.Agents)),
		Metrics:     m.Metrics.Records(),
		RandomState: state,
	}
	for i, agent := range m.Schedule.Agents {
		ret.Agents[i] = AgentDumpData{
			ID:             agent.ID,
			X:              agent.Pos.X,
			Y:              agent.Pos.Y,
			Status:         agent.Status,
			InfectionTimer: agent.InfectionTimer,
			RecoveryTimer:  agent.RecoveryTimer,
			Symptomatic:    agent.Symptomatic,
			IsVaccinated:   agent.IsVaccinated,
		}
	}
	if m.Transmission != nil {
		ret.Transmission = utils.SerializeGraph(m.Transmission)
	}
	return ret, nil
}

// Load rebuilds a model equivalent to the dumped one
func (d *VirusModelDumpData) Load(
	collectItems *CollectItemOptions,
	eventLogger func(*EventRecord),
) (*VirusModel, error) {
	params := d.Params
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(d.Agents) != params.InitialAgents {
		return nil, fmt.Errorf("dump holds %d agents, params expect %d", len(d.Agents), params.InitialAgents)
	}

	rng := NewStream(0)
	if err := rng.UnmarshalBinary(d.RandomState); err != nil {
		return nil, fmt.Errorf("restoring random state: %w", err)
	}

	model := newVirusModel(&params, collectItems, eventLogger, rng)
	if runID, err := uuid.Parse(d.RunID); err == nil {
		model.RunID = runID
	}

	// recover agents in scheduler order
	for i, ad := range d.Agents {
		if ad.ID != int64(i) {
			return nil, fmt.Errorf("agent at index %d has id %d", i, ad.ID)
		}
		if !ad.Status.IsValid() {
			return nil, fmt.Errorf("agent %d has unknown status %d", ad.ID, ad.Status)
		}
		pos := Position{ad.X, ad.Y}
		if model.Grid.OutOfBounds(pos) || !model.Grid.IsCellEmpty(pos) {
			return nil, fmt.Errorf("agent %d cannot be placed on %v", ad.ID, pos)
		}
		agent := &VirusAgent{
			ID:             ad.ID,
			Model:          model,
			Status:         ad.Status,
			InfectionTimer: ad.InfectionTimer,
			RecoveryTimer:  ad.RecoveryTimer,
			Symptomatic:    ad.Symptomatic,
			IsVaccinated:   ad.IsVaccinated,
		}
		model.Grid.PlaceAgent(agent, pos)
		model.Schedule.AddAgent(agent)
	}

	// recover step and metrics
	model.CurStep = d.CurStep
	model.eventStep = d.CurStep
	for _, r := range d.Metrics {
		model.Metrics.Record(r)
	}

	if model.Transmission != nil && d.Transmission != nil {
		model.Transmission = utils.DeserializeGraph(d.Transmission)
	}

	return model, nil
}
