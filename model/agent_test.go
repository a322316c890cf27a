package model

import "testing"

// newTestModel builds an empty 10x10 model with mobility and vaccination off
func newTestModel(t *testing.T, mutate func(p *VirusModelParams)) *VirusModel {
	t.Helper()
	p := DefaultVirusModelParams()
	p.Width = 10
	p.Height = 10
	p.InitialAgents = 0
	p.EnableMobility = false
	p.VaccinationStartStep = 1_000_000
	if mutate != nil {
		mutate(p)
	}
	collect := &CollectItemOptions{
		InfectionEvent:    true,
		OutcomeEvent:      true,
		VaccinationEvent:  true,
		WaningEvent:       true,
		TransmissionGraph: true,
	}
	m, err := NewVirusModel(p, collect, nil, NewStream(1))
	if err != nil {
		t.Fatalf("NewVirusModel: %v", err)
	}
	return m
}

// addAgent places a new agent with the next sequential id
func addAgent(m *VirusModel, pos Position, status HealthStatus) *VirusAgent {
	a := NewVirusAgent(int64(len(m.Schedule.Agents)), m)
	a.Status = status
	m.Grid.PlaceAgent(a, pos)
	m.Schedule.AddAgent(a)
	return a
}

func TestDeadAgentIsInert(t *testing.T) {
	m := newTestModel(t, func(p *VirusModelParams) { p.EnableMobility = true })
	a := addAgent(m, Position{5, 5}, Dead)

	for i := 0; i < 10; i++ {
		m.Step()
	}
	if a.Status != Dead || a.Pos != (Position{5, 5}) {
		t.Errorf("dead agent changed: status %v, pos %v", a.Status, a.Pos)
	}
}

func TestVaccinatedSusceptibleIsInert(t *testing.T) {
	m := newTestModel(t, func(p *VirusModelParams) {
		p.EnableMobility = true
		p.InfectionProbability = 1
		p.RecoverySteps = 1000
	})
	protected := addAgent(m, Position{0, 0}, Susceptible)
	protected.IsVaccinated = true
	carrier := addAgent(m, Position{1, 1}, Infected)
	yes := true
	carrier.Symptomatic = &yes

	for i := 0; i < 30; i++ {
		m.Step()
		if protected.Status != Susceptible {
			t.Fatalf("vaccinated agent became %v at tick %d", protected.Status, m.CurStep)
		}
		if protected.Pos != (Position{0, 0}) {
			t.Fatalf("vaccinated susceptible agent moved to %v", protected.Pos)
		}
	}
}

func TestInfectionTimerIncrementsEachTick(t *testing.T) {
	m := newTestModel(t, func(p *VirusModelParams) { p.RecoverySteps = 5 })
	a := addAgent(m, Position{5, 5}, Infected)

	for k := 1; k < 5; k++ {
		m.Step()
		if a.Status != Infected || a.InfectionTimer != k {
			t.Fatalf("after %d ticks: status %v timer %d", k, a.Status, a.InfectionTimer)
		}
	}
	m.Step()
	if a.Status == Infected {
		t.Errorf("agent still infected after reaching recovery_steps")
	}
}

func TestIsolatedCarrierDiesAtRecoverySteps(t *testing.T) {
	m := newTestModel(t, func(p *VirusModelParams) {
		p.RecoverySteps = 3
		p.FatalityRate = 1
	})
	a := addAgent(m, Position{5, 5}, Infected)

	for k := 1; k <= 2; k++ {
		m.Step()
		if a.Status != Infected {
			t.Fatalf("agent left Infected early at tick %d: %v", k, a.Status)
		}
	}
	m.Step()
	if a.Status != Dead {
		t.Fatalf("expected Dead at tick 3, got %v", a.Status)
	}
	if m.CountByStatus(Susceptible) != 0 || m.CountByStatus(Recovered) != 0 {
		t.Errorf("unexpected susceptible/recovered counts")
	}

	for i := 0; i < 5; i++ {
		m.Step()
	}
	if a.Status != Dead {
		t.Errorf("dead agent left the absorbing state: %v", a.Status)
	}
}

func TestRecoveryAndWaningImmunity(t *testing.T) {
	m := newTestModel(t, func(p *VirusModelParams) {
		p.RecoverySteps = 2
		p.FatalityRate = 0
		p.ImmunityDuration = 3
	})
	a := addAgent(m, Position{5, 5}, Infected)

	m.Step()
	if a.Status != Infected {
		t.Fatalf("tick 1: expected Infected, got %v", a.Status)
	}
	m.Step()
	if a.Status != Recovered || a.RecoveryTimer == nil || *a.RecoveryTimer != 0 {
		t.Fatalf("tick 2: expected Recovered with timer 0, got %v %v", a.Status, a.RecoveryTimer)
	}
	for k := 1; k <= 2; k++ {
		m.Step()
		if a.Status != Recovered || *a.RecoveryTimer != k {
			t.Fatalf("recovered tick %d: status %v timer %v", k, a.Status, a.RecoveryTimer)
		}
	}
	m.Step()
	if a.Status != Susceptible || a.RecoveryTimer != nil {
		t.Errorf("expected immunity to wane, got %v timer %v", a.Status, a.RecoveryTimer)
	}
}

func TestCertainTransmissionReachesOnlyNeighbors(t *testing.T) {
	m := newTestModel(t, func(p *VirusModelParams) {
		p.InfectionProbability = 1
		p.RecoverySteps = 100
		p.EnableAsymptomatic = false
	})
	carrier := addAgent(m, Position{5, 5}, Infected)
	neighbor := addAgent(m, Position{5, 6}, Susceptible)
	far := addAgent(m, Position{0, 0}, Susceptible)

	stats := m.Step()

	if neighbor.Status != Infected {
		t.Errorf("adjacent agent not infected: %v", neighbor.Status)
	}
	if neighbor.Symptomatic == nil || !*neighbor.Symptomatic {
		t.Errorf("infection without asymptomatic modelling should be symptomatic")
	}
	if far.Status != Susceptible {
		t.Errorf("distant agent infected")
	}
	if stats.NewInfections != 1 {
		t.Errorf("expected 1 new infection, got %d", stats.NewInfections)
	}
	if !m.Transmission.HasEdgeFromTo(carrier.ID, neighbor.ID) {
		t.Errorf("transmission edge %d -> %d missing", carrier.ID, neighbor.ID)
	}
}

func TestAsymptomaticTransmissionFactor(t *testing.T) {
	run := func(enableAsymptomatic bool) HealthStatus {
		m := newTestModel(t, func(p *VirusModelParams) {
			p.InfectionProbability = 1
			p.RecoverySteps = 100
			p.EnableAsymptomatic = enableAsymptomatic
			p.AsymptomaticTransmissionFactor = 0
		})
		carrier := addAgent(m, Position{5, 5}, Infected)
		no := false
		carrier.Symptomatic = &no
		neighbor := addAgent(m, Position{4, 4}, Susceptible)
		for i := 0; i < 5; i++ {
			m.Step()
		}
		return neighbor.Status
	}

	if got := run(true); got != Susceptible {
		t.Errorf("asymptomatic carrier with factor 0 infected its neighbor")
	}
	if got := run(false); got != Infected {
		t.Errorf("factor should be ignored without asymptomatic modelling, neighbor is %v", got)
	}
}

func TestBecomeInfectedPresentation(t *testing.T) {
	tests := []struct {
		name        string
		enabled     bool
		fraction    float64
		symptomatic bool
	}{
		{"always asymptomatic", true, 1, false},
		{"never asymptomatic", true, 0, true},
		{"modelling disabled", false, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, func(p *VirusModelParams) {
				p.EnableAsymptomatic = tt.enabled
				p.AsymptomaticFraction = tt.fraction
			})
			a := addAgent(m, Position{1, 1}, Susceptible)
			a.InfectionTimer = 7
			a.BecomeInfected(nil)

			if a.Status != Infected || a.InfectionTimer != 0 {
				t.Errorf("got status %v timer %d", a.Status, a.InfectionTimer)
			}
			if a.Symptomatic == nil || *a.Symptomatic != tt.symptomatic {
				t.Errorf("Symptomatic = %v, want %v", a.Symptomatic, tt.symptomatic)
			}
		})
	}
}

func TestMovementTargetsEmptyNeighbor(t *testing.T) {
	m := newTestModel(t, func(p *VirusModelParams) { p.EnableMobility = true })
	walker := addAgent(m, Position{0, 0}, Susceptible)
	addAgent(m, Position{0, 1}, Dead)
	addAgent(m, Position{1, 0}, Dead)

	m.Step()
	if walker.Pos != (Position{1, 1}) {
		t.Errorf("expected move to the only empty neighbor (1,1), got %v", walker.Pos)
	}

	// fully boxed in
	m2 := newTestModel(t, func(p *VirusModelParams) { p.EnableMobility = true })
	stuck := addAgent(m2, Position{0, 0}, Susceptible)
	addAgent(m2, Position{0, 1}, Dead)
	addAgent(m2, Position{1, 0}, Dead)
	addAgent(m2, Position{1, 1}, Dead)

	m2.Step()
	if stuck.Pos != (Position{0, 0}) {
		t.Errorf("boxed-in agent moved to %v", stuck.Pos)
	}
}
