package simulation

import (
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"virus-model/model"
)

func sampleEvents() []*model.EventRecord {
	return []*model.EventRecord{
		{Type: model.InfectionEvent, AgentID: 3, Step: -1, Body: model.InfectionEventBody{Source: -1, Asymptomatic: true}},
		{Type: model.InfectionEvent, AgentID: 7, Step: 2, Body: model.InfectionEventBody{Source: 3}},
		{Type: model.OutcomeEvent, AgentID: 3, Step: 14, Body: model.OutcomeEventBody{Died: false, InfectionTimer: 14}},
		{Type: model.OutcomeEvent, AgentID: 7, Step: 16, Body: model.OutcomeEventBody{Died: true, InfectionTimer: 14}},
		{Type: model.VaccinationEvent, AgentID: 9, Step: 30, Body: model.VaccinationEventBody{Success: true}},
		{Type: model.WaningEvent, AgentID: 3, Step: 44, Body: model.WaningEventBody{RecoveryTimer: 30}},
	}
}

func TestEventDBStoreAndQuery(t *testing.T) {
	db, err := OpenEventDB(filepath.Join(t.TempDir(), "events.db"), 4)
	if err != nil {
		t.Fatalf("OpenEventDB: %v", err)
	}
	defer db.Close()

	seed := uint64(42)
	if err := db.RegisterRun("run-1", "test", &seed); err != nil {
		t.Fatalf("RegisterRun: %v", err)
	}
	if err := db.RegisterRun("run-1", "test", &seed); err != nil {
		t.Fatalf("registering twice should be ignored: %v", err)
	}

	events := sampleEvents()
	for _, e := range events {
		if err := db.StoreEvent(e); err != nil {
			t.Fatalf("StoreEvent: %v", err)
		}
	}

	loaded, err := db.GetEvents()
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if !reflect.DeepEqual(loaded, events) {
		t.Errorf("loaded events differ:\n got %+v\nwant %+v", loaded, events)
	}

	counts, err := db.CountEventsByType()
	if err != nil {
		t.Fatalf("CountEventsByType: %v", err)
	}
	want := map[string]int{
		model.InfectionEvent:   2,
		model.OutcomeEvent:     2,
		model.VaccinationEvent: 1,
		model.WaningEvent:      1,
	}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("counts %v, want %v", counts, want)
	}
}

func TestEventDBDeleteAfterStep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	db, err := OpenEventDB(path, 100)
	if err != nil {
		t.Fatalf("OpenEventDB: %v", err)
	}
	for _, e := range sampleEvents() {
		db.StoreEvent(e)
	}

	// unflushed events are deleted as well
	if err := db.DeleteEventsAfterStep(16); err != nil {
		t.Fatalf("DeleteEventsAfterStep: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err = OpenEventDB(path, 100)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	loaded, err := db.GetEvents()
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("expected 3 events before step 16, got %d", len(loaded))
	}
	for _, e := range loaded {
		if e.Step >= 16 {
			t.Errorf("event at step %d survived deletion", e.Step)
		}
	}
}

func TestEventDBRejectsUnknownBody(t *testing.T) {
	db, err := OpenEventDB(filepath.Join(t.TempDir(), "events.db"), 1)
	if err != nil {
		t.Fatalf("OpenEventDB: %v", err)
	}
	defer db.Close()

	err = db.StoreEvent(&model.EventRecord{Type: "Unknown", AgentID: 1, Body: struct{}{}})
	if err == nil {
		t.Errorf("expected an error for an unknown event body")
	}
}

func TestEventDBKeepsFullSeedRange(t *testing.T) {
	db, err := OpenEventDB(filepath.Join(t.TempDir(), "events.db"), 1)
	if err != nil {
		t.Fatalf("OpenEventDB: %v", err)
	}
	defer db.Close()

	big := uint64(math.MaxUint64)
	if err := db.RegisterRun("run-big", "big", &big); err != nil {
		t.Fatalf("RegisterRun: %v", err)
	}
	if err := db.RegisterRun("run-unseeded", "plain", nil); err != nil {
		t.Fatalf("RegisterRun: %v", err)
	}

	runs, err := db.GetRuns()
	if err != nil {
		t.Fatalf("GetRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Seed == nil || *runs[0].Seed != big {
		t.Errorf("seed stored as %v, want %d", runs[0].Seed, big)
	}
	if runs[1].Seed != nil {
		t.Errorf("unseeded run got seed %d", *runs[1].Seed)
	}
}
