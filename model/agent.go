package model

// VirusAgent represents one individual on the grid
type VirusAgent struct {
	ID             int64
	Model          *VirusModel
	Pos            Position
	Status         HealthStatus
	InfectionTimer int
	// RecoveryTimer is non-nil only while the agent is Recovered
	RecoveryTimer *int
	// Symptomatic is nil until the first infection
	Symptomatic  *bool
	IsVaccinated bool
}

// NewVirusAgent creates a susceptible, unvaccinated agent
func NewVirusAgent(id int64, model *VirusModel) *VirusAgent {
	return &VirusAgent{
		ID:     id,
		Model:  model,
		Status: Susceptible,
	}
}

// IsAsymptomatic reports whether the current infection was rolled asymptomatic
func (a *VirusAgent) IsAsymptomatic() bool {
	return a.Symptomatic != nil && !*a.Symptomatic
}

// exposable agents can be infected by a neighbor
func (a *VirusAgent) exposable() bool {
	return a.Status == Susceptible && !a.IsVaccinated
}

// Step performs a single tick for this agent
func (a *VirusAgent) Step() {
	if a.Status.IsTerminal() {
		return
	}

	// vaccinated susceptible agents sit the tick out entirely
	if a.IsVaccinated && a.Status == Susceptible {
		return
	}

	if a.Model.Params.EnableMobility {
		a.move()
	}

	switch a.Status {
	case Infected:
		a.InfectionTimer++
		a.spread()
		if a.InfectionTimer >= a.Model.Params.RecoverySteps {
			a.resolveInfection()
		}

	case Recovered:
		elapsed := 1
		if a.RecoveryTimer != nil {
			elapsed += *a.RecoveryTimer
		}
		a.RecoveryTimer = &elapsed
		if elapsed >= a.Model.Params.ImmunityDuration {
			a.loseImmunity()
		}
	}
}

// move relocates the agent to a random empty neighboring cell, if there is one
func (a *VirusAgent) move() {
	grid := a.Model.Grid
	var empty []Position
	for _, cell := range grid.Neighborhood(a.Pos) {
		if grid.IsCellEmpty(cell) {
			empty = append(empty, cell)
		}
	}
	if len(empty) > 0 {
		grid.MoveAgent(a, Choose(a.Model.Random, empty))
	}
}

// transmissionChance is the per-contact infection probability of this carrier
func (a *VirusAgent) transmissionChance() float64 {
	p := a.Model.Params
	chance := p.InfectionProbability
	if p.EnableAsymptomatic && a.IsAsymptomatic() {
		chance *= p.AsymptomaticTransmissionFactor
	}
	return chance
}

// spread rolls one transmission trial against every exposable neighbor
func (a *VirusAgent) spread() {
	chance := a.transmissionChance()
	for _, neighbor := range a.Model.Grid.GetNeighbors(a.Pos) {
		if !neighbor.exposable() {
			continue
		}
		if Bernoulli(a.Model.Random, chance) {
			neighbor.BecomeInfected(a)
		}
	}
}

// BecomeInfected moves a susceptible agent into Infected and rolls its presentation.
// source is nil for seed infections.
func (a *VirusAgent) BecomeInfected(source *VirusAgent) {
	m := a.Model
	a.Status = Infected
	a.InfectionTimer = 0

	symptomatic := true
	if m.Params.EnableAsymptomatic && Bernoulli(m.Random, m.Params.AsymptomaticFraction) {
		symptomatic = false
	}
	a.Symptomatic = &symptomatic

	m.recordInfection(source, a)
}

// resolveInfection ends the infection in death or recovery
func (a *VirusAgent) resolveInfection() {
	m := a.Model
	died := Bernoulli(m.Random, m.Params.FatalityRate)
	if died {
		a.Status = Dead
	} else {
		a.Status = Recovered
		zero := 0
		a.RecoveryTimer = &zero
	}

	m.recordOutcome(a, died)
}

// loseImmunity returns a recovered agent to the susceptible pool
func (a *VirusAgent) loseImmunity() {
	elapsed := *a.RecoveryTimer
	a.Status = Susceptible
	a.RecoveryTimer = nil

	a.Model.logEvent(&EventRecord{
		Type:    WaningEvent,
		AgentID: a.ID,
		Step:    a.Model.eventStep,
		Body:    WaningEventBody{RecoveryTimer: elapsed},
	})
}
