package simulation

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"virus-model/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"
)

const eventSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	unique_name TEXT NOT NULL,
	seed TEXT,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL,
	agent_id INTEGER NOT NULL,
	step INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS events_step ON events(step);
CREATE TABLE IF NOT EXISTS infection_events (
	event_id INTEGER PRIMARY KEY,
	source INTEGER NOT NULL,
	asymptomatic BOOLEAN NOT NULL,
	FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS outcome_events (
	event_id INTEGER PRIMARY KEY,
	died BOOLEAN NOT NULL,
	infection_timer INTEGER NOT NULL,
	FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS vaccination_events (
	event_id INTEGER PRIMARY KEY,
	success BOOLEAN NOT NULL,
	FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS waning_events (
	event_id INTEGER PRIMARY KEY,
	data BLOB NOT NULL,
	FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
);
`

// EventDB stores model events in sqlite, buffering them until the cache fills
type EventDB struct {
	db        *sqlx.DB
	cacheSize int
	cache     []*model.EventRecord
}

// OpenEventDB opens or creates the event database
func OpenEventDB(filename string, cacheSize int) (*EventDB, error) {
	db, err := sqlx.Open("sqlite3", filename+"?_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(eventSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create event tables: %w", err)
	}

	return &EventDB{
		db:        db,
		cacheSize: max(cacheSize, 1),
		cache:     make([]*model.EventRecord, 0, max(cacheSize, 1)),
	}, nil
}

// Close flushes pending events and closes the connection
func (edb *EventDB) Close() error {
	flushErr := edb.Flush()
	if err := edb.db.Close(); err != nil {
		return err
	}
	return flushErr
}

// RegisterRun records the run identity; registering the same run twice is a no-op
func (edb *EventDB) RegisterRun(runID string, uniqueName string, seed *uint64) error {
	// uint64 seeds do not fit sqlite's signed integers
	var seedValue any
	if seed != nil {
		seedValue = strconv.FormatUint(*seed, 10)
	}
	_, err := edb.db.Exec(
		"INSERT OR IGNORE INTO runs (run_id, unique_name, seed, created_at) VALUES (?, ?, ?, ?)",
		runID, uniqueName, seedValue, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to register run: %w", err)
	}
	return nil
}

type RunRecord struct {
	RunID      string
	UniqueName string
	Seed       *uint64
	CreatedAt  string
}

// GetRuns lists the registered runs in creation order
func (edb *EventDB) GetRuns() ([]RunRecord, error) {
	var rows []struct {
		RunID      string         `db:"run_id"`
		UniqueName string         `db:"unique_name"`
		Seed       sql.NullString `db:"seed"`
		CreatedAt  string         `db:"created_at"`
	}
	err := edb.db.Select(&rows, "SELECT run_id, unique_name, seed, created_at FROM runs ORDER BY rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	ret := make([]RunRecord, 0, len(rows))
	for _, row := range rows {
		run := RunRecord{RunID: row.RunID, UniqueName: row.UniqueName, CreatedAt: row.CreatedAt}
		if row.Seed.Valid {
			seed, err := strconv.ParseUint(row.Seed.String, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("run %s has a malformed seed: %w", row.RunID, err)
			}
			run.Seed = &seed
		}
		ret = append(ret, run)
	}
	return ret, nil
}

// StoreEvent queues an event and flushes when the cache is full
func (edb *EventDB) StoreEvent(event *model.EventRecord) error {
	edb.cache = append(edb.cache, event)
	if len(edb.cache) >= edb.cacheSize {
		return edb.Flush()
	}
	return nil
}

// Flush writes all queued events in one transaction
func (edb *EventDB) Flush() (err error) {
	if len(edb.cache) == 0 {
		return nil
	}

	tx, err := edb.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, event := range edb.cache {
		if err = storeEvent(tx, event); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}

	edb.cache = edb.cache[:0]
	return nil
}

func storeEvent(tx *sqlx.Tx, event *model.EventRecord) error {
	result, err := tx.Exec(
		"INSERT INTO events (type, agent_id, step) VALUES (?, ?, ?)",
		event.Type, event.AgentID, event.Step,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	eventID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	switch body := event.Body.(type) {
	case model.InfectionEventBody:
		_, err = tx.Exec(
			"INSERT INTO infection_events (event_id, source, asymptomatic) VALUES (?, ?, ?)",
			eventID, body.Source, body.Asymptomatic,
		)
	case model.OutcomeEventBody:
		_, err = tx.Exec(
			"INSERT INTO outcome_events (event_id, died, infection_timer) VALUES (?, ?, ?)",
			eventID, body.Died, body.InfectionTimer,
		)
	case model.VaccinationEventBody:
		_, err = tx.Exec(
			"INSERT INTO vaccination_events (event_id, success) VALUES (?, ?)",
			eventID, body.Success,
		)
	case model.WaningEventBody:
		data, merr := msgpack.Marshal(body)
		if merr != nil {
			return fmt.Errorf("failed to marshal WaningEventBody: %w", merr)
		}
		_, err = tx.Exec("INSERT INTO waning_events (event_id, data) VALUES (?, ?)", eventID, data)
	default:
		return fmt.Errorf("unknown body %T for event type %s", event.Body, event.Type)
	}
	if err != nil {
		return fmt.Errorf("failed to insert %s event: %w", event.Type, err)
	}
	return nil
}

// DeleteEventsAfterStep removes all events with step >= the given value
func (edb *EventDB) DeleteEventsAfterStep(step int) error {
	if err := edb.Flush(); err != nil {
		return err
	}
	_, err := edb.db.Exec("DELETE FROM events WHERE step >= ?", step)
	if err != nil {
		return fmt.Errorf("failed to delete events: %w", err)
	}
	return nil
}

type eventRow struct {
	ID      int64  `db:"id"`
	Type    string `db:"type"`
	AgentID int64  `db:"agent_id"`
	Step    int    `db:"step"`
}

type infectionRow struct {
	Source       int64 `db:"source"`
	Asymptomatic bool  `db:"asymptomatic"`
}

type outcomeRow struct {
	Died           bool `db:"died"`
	InfectionTimer int  `db:"infection_timer"`
}

// GetEvents loads every stored event ordered by step, then insertion
func (edb *EventDB) GetEvents() ([]*model.EventRecord, error) {
	if err := edb.Flush(); err != nil {
		return nil, err
	}

	var rows []eventRow
	err := edb.db.Select(&rows, "SELECT id, type, agent_id, step FROM events ORDER BY step ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	events := make([]*model.EventRecord, 0, len(rows))
	for _, row := range rows {
		event := &model.EventRecord{Type: row.Type, AgentID: row.AgentID, Step: row.Step}

		switch row.Type {
		case model.InfectionEvent:
			var body infectionRow
			err = edb.db.Get(&body, "SELECT source, asymptomatic FROM infection_events WHERE event_id = ?", row.ID)
			event.Body = model.InfectionEventBody{Source: body.Source, Asymptomatic: body.Asymptomatic}

		case model.OutcomeEvent:
			var body outcomeRow
			err = edb.db.Get(&body, "SELECT died, infection_timer FROM outcome_events WHERE event_id = ?", row.ID)
			event.Body = model.OutcomeEventBody{Died: body.Died, InfectionTimer: body.InfectionTimer}

		case model.VaccinationEvent:
			var success bool
			err = edb.db.Get(&success, "SELECT success FROM vaccination_events WHERE event_id = ?", row.ID)
			event.Body = model.VaccinationEventBody{Success: success}

		case model.WaningEvent:
			var data []byte
			err = edb.db.Get(&data, "SELECT data FROM waning_events WHERE event_id = ?", row.ID)
			if err == nil {
				var body model.WaningEventBody
				err = msgpack.Unmarshal(data, &body)
				event.Body = body
			}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s event %d: %w", row.Type, row.ID, err)
		}

		events = append(events, event)
	}

	return events, nil
}

// CountEventsByType returns the number of stored events per type
func (edb *EventDB) CountEventsByType() (map[string]int, error) {
	if err := edb.Flush(); err != nil {
		return nil, err
	}

	var rows []struct {
		Type  string `db:"type"`
		Count int    `db:"count"`
	}
	if err := edb.db.Select(&rows, "SELECT type, COUNT(*) AS count FROM events GROUP BY type"); err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}

	ret := make(map[string]int, len(rows))
	for _, row := range rows {
		ret[row.Type] = row.Count
	}
	return ret, nil
}
