package model

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/graph/simple"
)

var (
	ErrInvalidParams = errors.New("invalid model parameters")
	ErrGridFull      = errors.New("no empty cell left on the grid")
)

// VirusModelParams contains configuration parameters for the virus model
type VirusModelParams struct {
	Width                          int     `yaml:"width" json:"width"`
	Height                         int     `yaml:"height" json:"height"`
	InitialAgents                  int     `yaml:"initial_agents" json:"initial_agents"`
	InfectionProbability           float64 `yaml:"infection_probability" json:"infection_probability"`
	RecoverySteps                  int     `yaml:"recovery_steps" json:"recovery_steps"`
	InitialInfectedPct             float64 `yaml:"initial_infected_pct" json:"initial_infected_pct"`
	EnableMobility                 bool    `yaml:"enable_mobility" json:"enable_mobility"`
	EnableAsymptomatic             bool    `yaml:"enable_asymptomatic" json:"enable_asymptomatic"`
	AsymptomaticFraction           float64 `yaml:"asymptomatic_fraction" json:"asymptomatic_fraction"`
	AsymptomaticTransmissionFactor float64 `yaml:"asymptomatic_transmission_factor" json:"asymptomatic_transmission_factor"`
	FatalityRate                   float64 `yaml:"fatality_rate" json:"fatality_rate"`
	ImmunityDuration               int     `yaml:"immunity_duration" json:"immunity_duration"`
	VaccinationStartStep           int     `yaml:"vaccination_start_step" json:"vaccination_start_step"`
	VaccinationRate                float64 `yaml:"vaccination_rate" json:"vaccination_rate"`
	VaccinationEfficacy            float64 `yaml:"vaccination_efficacy" json:"vaccination_efficacy"`
}

// DefaultVirusModelParams creates a new parameters struct with default values
func DefaultVirusModelParams() *VirusModelParams {
	return &VirusModelParams{
		Width:                          50,
		Height:                         50,
		InitialAgents:                  750,
		InfectionProbability:           0.05,
		RecoverySteps:                  14,
		InitialInfectedPct:             0.02,
		EnableMobility:                 true,
		EnableAsymptomatic:             true,
		AsymptomaticFraction:           0.4,
		AsymptomaticTransmissionFactor: 0.8,
		FatalityRate:                   0.09,
		ImmunityDuration:               30,
		VaccinationStartStep:           100,
		VaccinationRate:                0.01,
		VaccinationEfficacy:            0.8,
	}
}

// Validate checks the parameters before any agent is created
func (p *VirusModelParams) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: grid must be at least 1x1, got %dx%d", ErrInvalidParams, p.Width, p.Height)
	}
	if p.InitialAgents < 0 || p.InitialAgents > p.Width*p.Height {
		return fmt.Errorf("%w: initial_agents must be between 0 and %d, got %d",
			ErrInvalidParams, p.Width*p.Height, p.InitialAgents)
	}

	probabilities := []struct {
		name  string
		value float64
	}{
		{"infection_probability", p.InfectionProbability},
		{"initial_infected_pct", p.InitialInfectedPct},
		{"asymptomatic_fraction", p.AsymptomaticFraction},
		{"asymptomatic_transmission_factor", p.AsymptomaticTransmissionFactor},
		{"fatality_rate", p.FatalityRate},
		{"vaccination_rate", p.VaccinationRate},
		{"vaccination_efficacy", p.VaccinationEfficacy},
	}
	for _, prob := range probabilities {
		if math.IsNaN(prob.value) || prob.value < 0 || prob.value > 1 {
			return fmt.Errorf("%w: %s must be between 0 and 1, got %f", ErrInvalidParams, prob.name, prob.value)
		}
	}

	counts := []struct {
		name  string
		value int
	}{
		{"recovery_steps", p.RecoverySteps},
		{"immunity_duration", p.ImmunityDuration},
		{"vaccination_start_step", p.VaccinationStartStep},
	}
	for _, c := range counts {
		if c.value < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %d", ErrInvalidParams, c.name, c.value)
		}
	}

	return nil
}

// StepStats counts the transitions that happened during one tick
type StepStats struct {
	NewInfections int
	Recoveries    int
	Deaths        int
	Vaccinations  int
}

// VirusModel represents the spatial virus spread model
type VirusModel struct {
	RunID        uuid.UUID
	Params       *VirusModelParams
	CollectItems *CollectItemOptions
	EventLogger  func(*EventRecord)
	Random       RandomStream
	CurStep      int
	Grid         *MultiGrid
	Schedule     *RandomActivation
	Metrics      *MetricsLog
	// Transmission holds infector -> infectee edges weighted by step; nil unless collected
	Transmission *simple.DirectedGraph

	eventStep int
	stats     StepStats
}

// newVirusModel builds a model with an empty population
func newVirusModel(
	params *VirusModelParams,
	collectItems *CollectItemOptions,
	eventLogger func(*EventRecord),
	rng RandomStream,
) *VirusModel {
	if collectItems == nil {
		collectItems = &CollectItemOptions{}
	}
	if rng == nil {
		rng = NewStream(uint64(time.Now().UnixNano()))
	}

	model := &VirusModel{
		RunID:        uuid.New(),
		Params:       params,
		CollectItems: collectItems,
		EventLogger:  eventLogger,
		Random:       rng,
		CurStep:      0,
		Metrics:      NewMetricsLog(),
		eventStep:    -1,
	}

	model.Grid = NewMultiGrid(params.Width, params.Height)
	model.Schedule = NewRandomActivation(model)
	if collectItems.TransmissionGraph {
		model.Transmission = simple.NewDirectedGraph()
	}

	return model
}

// NewVirusModel validates the parameters, then creates and places the population.
// A nil params uses the defaults; a nil rng draws a time-based seed.
func NewVirusModel(
	params *VirusModelParams,
	collectItems *CollectItemOptions,
	eventLogger func(*EventRecord),
	rng RandomStream,
) (*VirusModel, error) {
	if params == nil {
		params = DefaultVirusModelParams()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	model := newVirusModel(params, collectItems, eventLogger, rng)
	if err := model.createAgents(); err != nil {
		return nil, err
	}
	return model, nil
}

func (m *VirusModel) createAgents() error {
	for i := range m.Params.InitialAgents {
		agent := NewVirusAgent(int64(i), m)
		pos, err := m.randomEmptyCell()
		if err != nil {
			return fmt.Errorf("placing agent %d: %w", i, err)
		}
		m.Grid.PlaceAgent(agent, pos)
		m.Schedule.AddAgent(agent)

		// randomly seed the infection
		if Bernoulli(m.Random, m.Params.InitialInfectedPct) {
			agent.BecomeInfected(nil)
		}
	}
	return nil
}

// randomEmptyCell draws uniform cells until an empty one comes up
func (m *VirusModel) randomEmptyCell() (Position, error) {
	if m.Grid.EmptyCount() == 0 {
		return Position{}, ErrGridFull
	}
	for {
		pos := Position{m.Random.IntN(m.Params.Width), m.Random.IntN(m.Params.Height)}
		if m.Grid.IsCellEmpty(pos) {
			return pos, nil
		}
	}
}

// Step advances the model by one tick
func (m *VirusModel) Step() StepStats {
	m.stats = StepStats{}
	m.eventStep = m.CurStep

	m.Metrics.Record(m.SnapshotCounts())
	m.Schedule.Step()
	m.CurStep++

	if m.CurStep >= m.Params.VaccinationStartStep {
		m.VaccinateAgents()
	}

	return m.stats
}

// VaccinateAgents runs one vaccination pass over the susceptible, unvaccinated pool.
// It returns how many agents were selected and how many were protected.
func (m *VirusModel) VaccinateAgents() (int, int) {
	quota := int(math.Floor(float64(m.Params.InitialAgents) * m.Params.VaccinationRate))

	candidates := make([]*VirusAgent, 0)
	for _, agent := range m.Schedule.Agents {
		if agent.Status == Susceptible && !agent.IsVaccinated {
			candidates = append(candidates, agent)
		}
	}
	if len(candidates) == 0 {
		return 0, 0
	}

	selected := Sample(m.Random, candidates, quota)
	vaccinated := 0
	for _, agent := range selected {
		success := Bernoulli(m.Random, m.Params.VaccinationEfficacy)
		if success {
			agent.IsVaccinated = true
			vaccinated++
		}
		m.logEvent(&EventRecord{
			Type:    VaccinationEvent,
			AgentID: agent.ID,
			Step:    m.eventStep,
			Body:    VaccinationEventBody{Success: success},
		})
	}
	m.stats.Vaccinations += vaccinated

	return len(selected), vaccinated
}

// CountByStatus counts the agents currently in the given status
func (m *VirusModel) CountByStatus(status HealthStatus) int {
	count := 0
	for _, agent := range m.Schedule.Agents {
		if agent.Status == status {
			count++
		}
	}
	return count
}

// CountVaccinated counts the agents carrying vaccine protection
func (m *VirusModel) CountVaccinated() int {
	count := 0
	for _, agent := range m.Schedule.Agents {
		if agent.IsVaccinated {
			count++
		}
	}
	return count
}

// SnapshotCounts samples all counts at the current step
func (m *VirusModel) SnapshotCounts() MetricsRecord {
	ret := MetricsRecord{Step: m.CurStep}
	for _, agent := range m.Schedule.Agents {
		switch agent.Status {
		case Susceptible:
			ret.Susceptible++
		case Infected:
			ret.Infected++
		case Recovered:
			ret.Recovered++
		case Dead:
			ret.Dead++
		}
		if agent.IsVaccinated {
			ret.Vaccinated++
		}
	}
	return ret
}

// GetAgent returns the agent with the given id, or nil
func (m *VirusModel) GetAgent(id int64) *VirusAgent {
	if id < 0 || id >= int64(len(m.Schedule.Agents)) {
		return nil
	}
	return m.Schedule.Agents[id]
}

func (m *VirusModel) logEvent(event *EventRecord) {
	if m.EventLogger != nil && m.CollectItems.wants(event.Type) {
		m.EventLogger(event)
	}
}

func (m *VirusModel) recordInfection(source *VirusAgent, target *VirusAgent) {
	sourceID := int64(-1)
	if source != nil {
		sourceID = source.ID
		m.stats.NewInfections++
	}

	if m.Transmission != nil {
		if m.Transmission.Node(target.ID) == nil {
			m.Transmission.AddNode(simple.Node(target.ID))
		}
		if source != nil {
			m.Transmission.SetEdge(simple.WeightedEdge{
				F: simple.Node(source.ID),
				T: simple.Node(target.ID),
				W: float64(m.eventStep),
			})
		}
	}

	m.logEvent(&EventRecord{
		Type:    InfectionEvent,
		AgentID: target.ID,
		Step:    m.eventStep,
		Body: InfectionEventBody{
			Source:       sourceID,
			Asymptomatic: target.IsAsymptomatic(),
		},
	})
}

func (m *VirusModel) recordOutcome(agent *VirusAgent, died bool) {
	if died {
		m.stats.Deaths++
	} else {
		m.stats.Recoveries++
	}

	m.logEvent(&EventRecord{
		Type:    OutcomeEvent,
		AgentID: agent.ID,
		Step:    m.eventStep,
		Body: OutcomeEventBody{
			Died:           died,
			InfectionTimer: agent.InfectionTimer,
		},
	})
}
