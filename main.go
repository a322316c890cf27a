package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"syscall"

	"virus-model/model"
	"virus-model/simulation"
	"virus-model/utils"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "virus-model",
		Short: "Spatial agent-based virus spread simulation",
		Long: `virus-model runs an agent-based epidemic on a two-dimensional grid.

Agents wander, infect their neighbours, recover or die, lose their
immunity over time and get vaccinated once a campaign starts. Runs are
resumable: a scenario directory keeps snapshots and an event database.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newRunCmd(),
		newSummaryCmd(),
		newEventsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cmd *cobra.Command) (*log.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	level, err := log.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
	}), nil
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <base-dir> <metadata-file>",
		Short: "Run a scenario, resuming it when a snapshot exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd)
			if err != nil {
				return err
			}

			metadata, err := simulation.LoadScenarioMetadata(args[1])
			if err != nil {
				return fmt.Errorf("failed to load metadata file: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			scenario := simulation.NewScenario(args[0], metadata, logger)
			defer scenario.Close()

			if !scenario.Load() {
				if err := scenario.Init(); err != nil {
					return err
				}
			}

			if err := scenario.StepTillEnd(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("run interrupted; rerun the same command to resume")
					return nil
				}
				return err
			}

			counts := scenario.Model.SnapshotCounts()
			fmt.Printf("step=%d susceptible=%d infected=%d recovered=%d dead=%d vaccinated=%d\n",
				scenario.Model.CurStep,
				counts.Susceptible, counts.Infected, counts.Recovered, counts.Dead, counts.Vaccinated,
			)
			return nil
		},
	}
}

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary <base-dir> <name>",
		Short: "Summarize the latest snapshot of a scenario",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			top, _ := cmd.Flags().GetInt("top")

			serializer := simulation.NewSimulationSerializer(args[0], args[1], simulation.MAX_SNAPSHOT_COUNT)
			dump, err := serializer.GetLatestSnapshot()
			if err != nil {
				return err
			}
			if dump == nil {
				return fmt.Errorf("no snapshot found for scenario %q", args[1])
			}

			m, err := dump.Load(&model.CollectItemOptions{TransmissionGraph: true}, nil)
			if err != nil {
				return err
			}

			summary := m.Metrics.Summary()
			counts := m.SnapshotCounts()
			fmt.Printf("run:              %s\n", m.RunID)
			fmt.Printf("step:             %d\n", m.CurStep)
			if mark, err := serializer.GetFinishMark(); err == nil && mark != nil {
				fmt.Printf("finished:         %s at step %d\n", mark.Reason, mark.Step)
			}
			fmt.Printf("current:          S=%d I=%d R=%d D=%d V=%d\n",
				counts.Susceptible, counts.Infected, counts.Recovered, counts.Dead, counts.Vaccinated)
			fmt.Printf("peak infected:    %d at step %d\n", summary.PeakInfected, summary.PeakStep)
			fmt.Printf("mean infected:    %.2f (sd %.2f)\n", summary.MeanInfected, summary.StdDevInfected)

			if m.Transmission != nil && top > 0 {
				spreaders := utils.TopSpreaders(m.Transmission, top)
				fmt.Printf("top spreaders:\n")
				for _, sp := range spreaders {
					fmt.Printf("  agent %-6d %d infections\n", sp.AgentID, sp.Infections)
				}
			}
			return nil
		},
	}
	cmd.Flags().Int("top", 5, "Number of top spreaders to list")
	return cmd
}

func newEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events <base-dir> <name>",
		Short: "Count the stored events of a scenario by type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(args[0], args[1], "events.db")
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("no event db for scenario %q: %w", args[1], err)
			}

			db, err := simulation.OpenEventDB(path, 1)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.GetRuns()
			if err != nil {
				return err
			}
			for _, run := range runs {
				seed := "-"
				if run.Seed != nil {
					seed = strconv.FormatUint(*run.Seed, 10)
				}
				fmt.Printf("run %s  seed %s  created %s\n", run.RunID, seed, run.CreatedAt)
			}

			counts, err := db.CountEventsByType()
			if err != nil {
				return err
			}

			types := make([]string, 0, len(counts))
			for t := range counts {
				types = append(types, t)
			}
			slices.Sort(types)
			for _, t := range types {
				fmt.Printf("%-16s %d\n", t, counts[t])
			}
			return nil
		},
	}
}
