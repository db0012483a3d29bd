// Package main provides the flownet CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hydrotools/flownet/pkg/flownet"
	"github.com/hydrotools/flownet/pkg/flownet/config"
	"github.com/hydrotools/flownet/pkg/flownet/output"
)

// Version is the current flownet CLI version.
var Version = "0.3.1"

var (
	flagVerbose bool
	flagRunID   string
	flagDB      string
)

var rootCmd = &cobra.Command{
	Use:           "flownet",
	Short:         "flownet - composable 1-D flow-network simulation",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run a simulation scenario and record its output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScenario(cmd.Context(), args[0])
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <scenario.yaml>",
	Short: "Print the resolved network topology without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scenario, err := config.Load(args[0])
		if err != nil {
			return err
		}
		graph, err := scenario.BuildGraph()
		if err != nil {
			return err
		}
		fmt.Printf("%d nodes, evaluation order:\n", graph.Len())
		for _, ref := range graph.Order() {
			ups := graph.Upstream(ref)
			if len(ups) == 0 {
				fmt.Printf("  %s (headwater)\n", ref)
				continue
			}
			fmt.Printf("  %s <- %v\n", ref, ups)
		}
		fmt.Printf("terminals: %v\n", graph.Terminals())
		return nil
	},
}

func runScenario(ctx context.Context, path string) error {
	scenario, err := config.Load(path)
	if err != nil {
		return err
	}
	graph, err := scenario.BuildGraph()
	if err != nil {
		return err
	}

	var sink output.Sink = output.Discard{}
	dbPath := scenario.Output.SQLite
	if flagDB != "" {
		dbPath = flagDB
	}
	if dbPath != "" {
		s, err := output.NewSQLiteSink(dbPath)
		if err != nil {
			return err
		}
		sink = s
	}

	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	runID := scenario.Run.RunID
	if flagRunID != "" {
		runID = flagRunID
	}

	run := graph.NewRun(
		flownet.WithRunID(runID),
		flownet.WithLogger(logger),
		flownet.WithSink(sink),
	)

	simErr := run.Simulate(ctx, scenario.Run.Steps, scenario.Run.DT)
	if err := run.Finalize(); err != nil && simErr == nil {
		simErr = err
	}
	if simErr != nil {
		return simErr
	}

	budget := run.GraphBudget()
	fmt.Printf("run %s: %d steps, graph residual %.6g\n",
		run.RunID(), budget.Steps, budget.Residual())
	if dbPath != "" {
		fmt.Printf("output written to %s\n", dbPath)
	}
	return nil
}

func main() {
	runCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	runCmd.Flags().StringVar(&flagRunID, "run-id", "", "override the run identifier")
	runCmd.Flags().StringVar(&flagDB, "db", "", "override the output database path")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
