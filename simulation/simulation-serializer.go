package simulation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"virus-model/model"
	"virus-model/utils"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/graph/simple"
	"gopkg.in/yaml.v3"
)

const (
	snapshotFile = "snapshot"
	finishedFile = "finished"
	accStateFile = "acc-state"
	metadataFile = "metadata.yaml"
	timeLayout   = "20060102T150405.000000000Z"
)

// SimulationSerializer manages the files of one scenario directory
type SimulationSerializer struct {
	baseDir          string
	simulationID     string
	maxSnapshotCount int
}

func NewSimulationSerializer(baseDir string, simulationID string, maxSnapshotCount int) *SimulationSerializer {
	return &SimulationSerializer{
		baseDir:          baseDir,
		simulationID:     simulationID,
		maxSnapshotCount: maxSnapshotCount,
	}
}

func (s *SimulationSerializer) getSimulationDir() string {
	return filepath.Join(s.baseDir, s.simulationID)
}

// Exists reports whether the scenario directory is present
func (s *SimulationSerializer) Exists() bool {
	_, err := os.Stat(s.getSimulationDir())
	return !os.IsNotExist(err)
}

func (s *SimulationSerializer) ensureSimulationDir() error {
	return os.MkdirAll(s.getSimulationDir(), 0755)
}

// #region serialize

// list returns the matching files sorted oldest first
func (s *SimulationSerializer) list(fileType string, suffix string) ([]string, error) {
	dir := s.getSimulationDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, fileType+"-") && strings.HasSuffix(name, suffix) {
			files = append(files, filepath.Join(dir, name))
		}
	}

	// fixed-width UTC timestamps sort chronologically
	slices.Sort(files)
	return files, nil
}

func (s *SimulationSerializer) latest(fileType string, suffix string) (string, error) {
	files, err := s.list(fileType, suffix)
	if err != nil || len(files) == 0 {
		return "", err
	}
	return files[len(files)-1], nil
}

func (s *SimulationSerializer) getFilePath(fileType string, suffix string) string {
	timestamp := time.Now().UTC().Format(timeLayout)
	return filepath.Join(s.getSimulationDir(), fmt.Sprintf("%s-%s%s", fileType, timestamp, suffix))
}

func readMsgpack[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ret T
	if err := msgpack.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return &ret, nil
}

// writeFileAtomic writes to a temporary file in the same directory and renames it
// into place, so a crash never leaves a truncated file under the final name
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *SimulationSerializer) write(fileType string, value any) error {
	if err := s.ensureSimulationDir(); err != nil {
		return err
	}

	data, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.getFilePath(fileType, ".msgpack"), data); err != nil {
		return err
	}

	return s.clean(fileType, ".msgpack")
}

// clean removes the oldest files beyond maxSnapshotCount
func (s *SimulationSerializer) clean(fileType string, suffix string) error {
	if s.maxSnapshotCount <= 0 {
		return nil
	}

	files, err := s.list(fileType, suffix)
	if err != nil {
		return err
	}

	for i := range max(len(files)-s.maxSnapshotCount, 0) {
		if err := os.Remove(files[i]); err != nil {
			return err
		}
	}
	return nil
}

// #endregion

// #region snapshot

// GetSnapshots decodes the kept snapshots, newest first, skipping unreadable files.
// It fails only when snapshots exist and none of them can be read.
func (s *SimulationSerializer) GetSnapshots() ([]*model.VirusModelDumpData, error) {
	files, err := s.list(snapshotFile, ".msgpack")
	if err != nil {
		return nil, err
	}

	var ret []*model.VirusModelDumpData
	var errs []error
	for i := len(files) - 1; i >= 0; i-- {
		dump, err := readMsgpack[model.VirusModelDumpData](files[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ret = append(ret, dump)
	}
	if len(ret) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("no readable snapshot: %w", errors.Join(errs...))
	}
	return ret, nil
}

// GetLatestSnapshot returns the newest readable snapshot, or nil when none exists
func (s *SimulationSerializer) GetLatestSnapshot() (*model.VirusModelDumpData, error) {
	dumps, err := s.GetSnapshots()
	if err != nil || len(dumps) == 0 {
		return nil, err
	}
	return dumps[0], nil
}

// HasProgress reports whether a snapshot or finish mark exists for this scenario
func (s *SimulationSerializer) HasProgress() (bool, error) {
	for _, fileType := range []string{snapshotFile, finishedFile} {
		path, err := s.latest(fileType, ".msgpack")
		if err != nil || path != "" {
			return path != "", err
		}
	}
	return false, nil
}

func (s *SimulationSerializer) SaveSnapshot(snapshot *model.VirusModelDumpData) error {
	return s.write(snapshotFile, snapshot)
}

// #endregion

// #region finished mark

type FinishMark struct {
	Step   int    `msgpack:"step"`
	Reason string `msgpack:"reason"`
}

func (s *SimulationSerializer) MarkFinished(step int, reason string) error {
	return s.write(finishedFile, &FinishMark{Step: step, Reason: reason})
}

func (s *SimulationSerializer) IsFinished() (bool, error) {
	path, err := s.latest(finishedFile, ".msgpack")
	return path != "", err
}

// GetFinishMark returns nil when the scenario has not finished
func (s *SimulationSerializer) GetFinishMark() (*FinishMark, error) {
	path, err := s.latest(finishedFile, ".msgpack")
	if err != nil || path == "" {
		return nil, err
	}
	return readMsgpack[FinishMark](path)
}

// #endregion

// #region acc-state

// GetAccumulativeStateAt returns the newest readable trajectory holding exactly
// the given number of steps, or nil when no kept file matches
func (s *SimulationSerializer) GetAccumulativeStateAt(step int) (*AccumulativeModelState, error) {
	files, err := s.list(accStateFile, ".lz4")
	if err != nil {
		return nil, err
	}
	for i := len(files) - 1; i >= 0; i-- {
		state, err := LoadAccumulativeModelState(files[i])
		if err == nil && len(state.Statuses) == step && len(state.Positions) == step {
			return state, nil
		}
	}
	return nil, nil
}

func (s *SimulationSerializer) SaveAccumulativeState(state *AccumulativeModelState) error {
	if err := s.ensureSimulationDir(); err != nil {
		return err
	}
	if err := SaveAccumulativeModelState(s.getFilePath(accStateFile, ".lz4"), state); err != nil {
		return err
	}
	return s.clean(accStateFile, ".lz4")
}

// #endregion

// #region graph

func (s *SimulationSerializer) graphPath(step int) string {
	return filepath.Join(s.getSimulationDir(), fmt.Sprintf("graph-%d.msgpack", step))
}

// SaveGraph stores the transmission graph as it stood at the given step
func (s *SimulationSerializer) SaveGraph(g *simple.DirectedGraph, step int) error {
	if err := s.ensureSimulationDir(); err != nil {
		return err
	}
	return utils.SaveGraphToFile(g, s.graphPath(step))
}

// LoadGraph returns nil without error when no graph was saved at that step
func (s *SimulationSerializer) LoadGraph(step int) (*simple.DirectedGraph, error) {
	g, err := utils.LoadGraphFromFile(s.graphPath(step))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return g, err
}

// #endregion

// #region metadata

func (s *SimulationSerializer) SaveMetadata(metadata *ScenarioMetadata) error {
	if err := s.ensureSimulationDir(); err != nil {
		return err
	}

	data, err := yaml.Marshal(metadata)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.getSimulationDir(), metadataFile), data, 0644)
}

// LoadMetadata returns nil without error when the scenario was never initialized
func (s *SimulationSerializer) LoadMetadata() (*ScenarioMetadata, error) {
	path := filepath.Join(s.getSimulationDir(), metadataFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return LoadScenarioMetadata(path)
}

// #endregion
