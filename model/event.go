package model

// event types
const (
	InfectionEvent   = "Infection"
	OutcomeEvent     = "Outcome"
	VaccinationEvent = "Vaccination"
	WaningEvent      = "WaningImmunity"
)

// EventRecord is a single state change reported through the model's EventLogger.
// Step is the tick in which the change happened; changes made while the
// population is created carry step -1.
type EventRecord struct {
	Type    string
	AgentID int64
	Step    int
	Body    any
}

// InfectionEventBody describes a new infection; Source is -1 for seed infections
type InfectionEventBody struct {
	Source       int64
	Asymptomatic bool
}

type OutcomeEventBody struct {
	Died           bool
	InfectionTimer int
}

type VaccinationEventBody struct {
	Success bool
}

type WaningEventBody struct {
	RecoveryTimer int
}

// CollectItemOptions selects which events and records the model produces
type CollectItemOptions struct {
	InfectionEvent    bool `yaml:"infection_event" json:"infection_event"`
	OutcomeEvent      bool `yaml:"outcome_event" json:"outcome_event"`
	VaccinationEvent  bool `yaml:"vaccination_event" json:"vaccination_event"`
	WaningEvent       bool `yaml:"waning_event" json:"waning_event"`
	TransmissionGraph bool `yaml:"transmission_graph" json:"transmission_graph"`
	AgentTrajectory   bool `yaml:"agent_trajectory" json:"agent_trajectory"`
}

func (c *CollectItemOptions) wants(eventType string) bool {
	switch eventType {
	case InfectionEvent:
		return c.InfectionEvent
	case OutcomeEvent:
		return c.OutcomeEvent
	case VaccinationEvent:
		return c.VaccinationEvent
	case WaningEvent:
		return c.WaningEvent
	}
	return false
}
