package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"virus-model/model"

	"github.com/charmbracelet/log"
	"github.com/schollz/progressbar/v3"
)

type Scenario struct {
	dir        string
	metadata   *ScenarioMetadata
	Model      *model.VirusModel
	acc        *AccumulativeModelState
	serializer *SimulationSerializer
	db         *EventDB
	logger     *log.Logger
	progress   io.Writer

	// successive ticks that ended with nobody infected
	extinctTicks int
	// first storage error raised from the event callback
	eventErr error
}

func NewScenario(dir string, metadata *ScenarioMetadata, logger *log.Logger) *Scenario {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Scenario{
		dir:        dir,
		metadata:   metadata,
		serializer: NewSimulationSerializer(dir, metadata.UniqueName, MAX_SNAPSHOT_COUNT),
		logger:     logger.With("scenario", metadata.UniqueName),
		progress:   os.Stderr,
	}
}

// SetProgressOutput redirects the progress bar
func (s *Scenario) SetProgressOutput(w io.Writer) {
	s.progress = w
}

func (s *Scenario) Serializer() *SimulationSerializer {
	return s.serializer
}

const MAX_SNAPSHOT_COUNT = 3
const MAX_INFECTION_EVENT_INTERVAL = 500
const DB_CACHE_SIZE = 2000
const SAVE_INTERVAL = 300 // seconds

func (s *Scenario) eventDBPath() string {
	return filepath.Join(s.dir, s.metadata.UniqueName, "events.db")
}

// ErrScenarioExists is returned by Init when the scenario directory already holds
// a snapshot or a finish mark
var ErrScenarioExists = errors.New("scenario already has saved progress")

// Init starts a fresh run. It refuses to touch a scenario that already saved progress,
// so a failed Load never silently replaces an earlier run.
func (s *Scenario) Init() error {
	exists, err := s.serializer.HasProgress()
	if err != nil {
		return fmt.Errorf("failed to inspect scenario folder: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrScenarioExists, filepath.Join(s.dir, s.metadata.UniqueName))
	}

	if err := os.MkdirAll(filepath.Join(s.dir, s.metadata.UniqueName), 0755); err != nil {
		return fmt.Errorf("failed to create scenario dump folder: %w", err)
	}

	if s.metadata.Seed == nil {
		seed := uint64(time.Now().UnixNano())
		s.metadata.Seed = &seed
	}
	if err := s.serializer.SaveMetadata(s.metadata); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	db, err := OpenEventDB(s.eventDBPath(), DB_CACHE_SIZE)
	if err != nil {
		return fmt.Errorf("failed to create event db logger: %w", err)
	}
	s.db = db
	// events from an attempt that crashed before its first snapshot
	if err := db.DeleteEventsAfterStep(-1); err != nil {
		return err
	}

	// seed infections are logged while the model is being built
	params := s.metadata.VirusModelParams
	collectItems := s.metadata.CollectItemOptions
	m, err := model.NewVirusModel(&params, &collectItems, s.logEvent, model.NewStream(*s.metadata.Seed))
	if err != nil {
		return err
	}
	s.Model = m

	if err := db.RegisterRun(m.RunID.String(), s.metadata.UniqueName, s.metadata.Seed); err != nil {
		return err
	}

	s.acc = NewAccumulativeModelState()
	s.extinctTicks = 0

	s.logger.Info("scenario initialized",
		"run", m.RunID, "seed", *s.metadata.Seed,
		"agents", params.InitialAgents, "infected", m.CountByStatus(model.Infected),
	)
	return s.eventErr
}

// Load resumes from the newest snapshot that restores cleanly, falling back to
// older kept snapshots; false means nothing could be restored
func (s *Scenario) Load() bool {
	dumps, err := s.serializer.GetSnapshots()
	if err != nil {
		s.logger.Warn("failed to load model dump", "err", err)
		return false
	}
	if len(dumps) == 0 {
		return false
	}

	collectItems := s.metadata.CollectItemOptions
	var m *model.VirusModel
	acc := NewAccumulativeModelState()
	for _, dump := range dumps {
		m, err = dump.Load(&collectItems, s.logEvent)
		if err != nil {
			s.logger.Warn("failed to restore snapshot", "step", dump.CurStep, "err", err)
			continue
		}
		if collectItems.AgentTrajectory {
			loaded, err := s.serializer.GetAccumulativeStateAt(m.CurStep)
			if err != nil || loaded == nil || !loaded.validate(m) {
				s.logger.Warn("no accumulative state matches the snapshot", "step", m.CurStep, "err", err)
				m = nil
				continue
			}
			acc = loaded
		}
		if dump.Params != s.metadata.VirusModelParams {
			s.logger.Warn("metadata parameters differ from the snapshot; continuing with the snapshot's")
		}
		break
	}
	if m == nil {
		return false
	}

	db, err := OpenEventDB(s.eventDBPath(), DB_CACHE_SIZE)
	if err != nil {
		s.logger.Warn("failed to open event db", "err", err)
		return false
	}

	// events past the snapshot will be produced again
	if err := db.DeleteEventsAfterStep(m.CurStep); err != nil {
		s.logger.Warn("failed to trim event db", "err", err)
		db.Close()
		return false
	}

	s.db = db
	s.Model = m
	s.acc = acc
	s.extinctTicks = trailingExtinctTicks(m)

	s.logger.Info("scenario loaded", "run", m.RunID, "step", m.CurStep)
	return true
}

// trailingExtinctTicks counts the most recent ticks that ended with nobody infected
func trailingExtinctTicks(m *model.VirusModel) int {
	if m.CurStep == 0 || m.CountByStatus(model.Infected) > 0 {
		return 0
	}
	records := m.Metrics.Records()
	count := 1
	// records[k] holds the state left by tick k-1
	for k := len(records) - 1; k >= 1 && records[k].Infected == 0; k-- {
		count++
	}
	return count
}

func (s *Scenario) Dump() error {
	if err := s.db.Flush(); err != nil {
		return err
	}
	dump, err := s.Model.Dump()
	if err != nil {
		return err
	}
	if err := s.serializer.SaveSnapshot(dump); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	if s.metadata.AgentTrajectory {
		if err := s.serializer.SaveAccumulativeState(s.acc); err != nil {
			return fmt.Errorf("failed to save accumulative state: %w", err)
		}
	}
	return nil
}

func (s *Scenario) Step() model.StepStats {
	stats := s.Model.Step()

	// events are logged through the callback

	if s.metadata.AgentTrajectory {
		s.acc.accumulate(s.Model)
	}
	s.acc.UnsafeInfectionEvent += stats.NewInfections

	if s.Model.Transmission != nil && s.acc.UnsafeInfectionEvent > MAX_INFECTION_EVENT_INTERVAL {
		if err := s.serializer.SaveGraph(s.Model.Transmission, s.Model.CurStep); err != nil {
			s.logger.Warn("failed to save transmission graph", "err", err)
		}
		s.acc.UnsafeInfectionEvent = 0
	}

	if s.Model.CountByStatus(model.Infected) == 0 {
		s.extinctTicks++
	} else {
		s.extinctTicks = 0
	}

	s.logger.Debug("step",
		"step", s.Model.CurStep,
		"new_infections", stats.NewInfections,
		"recoveries", stats.Recoveries,
		"deaths", stats.Deaths,
		"vaccinations", stats.Vaccinations,
	)
	return stats
}

func (s *Scenario) IsFinished() bool {
	finished, err := s.serializer.IsFinished()
	if err != nil {
		s.logger.Warn("failed to read finish mark", "err", err)
	}
	return finished
}

// StepTillEnd runs until the step limit or extinction, dumping at a fixed interval.
// A cancelled context dumps the current state without marking the run finished and
// returns the context's error; a failed dump is returned instead of it.
func (s *Scenario) StepTillEnd(ctx context.Context) error {
	if s.IsFinished() {
		return nil
	}

	maxStep := s.metadata.MaxSimulationStep
	bar := progressbar.NewOptions(maxStep,
		progressbar.OptionSetWriter(s.progress),
		progressbar.OptionSetDescription(s.metadata.UniqueName),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	bar.Set(s.Model.CurStep)

	lastSaveTime := time.Now()
	reason := "max-step"

	for s.Model.CurStep < maxStep {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("interrupted, saving progress", "step", s.Model.CurStep)
			if dumpErr := s.Dump(); dumpErr != nil {
				return fmt.Errorf("failed to save interrupted run: %w", dumpErr)
			}
			return err
		}

		s.Step()
		bar.Set(s.Model.CurStep)
		if s.eventErr != nil {
			return fmt.Errorf("failed to store events: %w", s.eventErr)
		}

		if s.metadata.StopOnExtinction && s.extinctTicks > s.metadata.ExtinctionPatience {
			reason = "extinction"
			break
		}

		if time.Since(lastSaveTime).Seconds() >= SAVE_INTERVAL {
			lastSaveTime = time.Now()
			if err := s.Dump(); err != nil {
				return err
			}
		}
	}
	bar.Finish()

	// finally save everything
	if err := s.Dump(); err != nil {
		return err
	}
	if err := s.serializer.MarkFinished(s.Model.CurStep, reason); err != nil {
		return err
	}
	if s.Model.Transmission != nil {
		if err := s.serializer.SaveGraph(s.Model.Transmission, s.Model.CurStep); err != nil {
			return err
		}
	}

	counts := s.Model.SnapshotCounts()
	s.logger.Info("scenario finished",
		"step", s.Model.CurStep, "reason", reason,
		"susceptible", counts.Susceptible, "infected", counts.Infected,
		"recovered", counts.Recovered, "dead", counts.Dead,
		"vaccinated", counts.Vaccinated,
	)
	return nil
}

// Close flushes and releases the event db
func (s *Scenario) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Scenario) logEvent(event *model.EventRecord) {
	// the model only forwards the event types selected in the metadata
	if err := s.db.StoreEvent(event); err != nil && s.eventErr == nil {
		s.eventErr = err
	}
}
