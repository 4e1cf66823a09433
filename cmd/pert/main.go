package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sauravsvt/PERT-CPM/internal/config"
	"github.com/sauravsvt/PERT-CPM/internal/graph"
	"github.com/sauravsvt/PERT-CPM/internal/logging"
	"github.com/sauravsvt/PERT-CPM/internal/pipeline"
	"github.com/sauravsvt/PERT-CPM/internal/project"
	"github.com/sauravsvt/PERT-CPM/internal/reporter"
	"github.com/sauravsvt/PERT-CPM/internal/state"
	"github.com/sauravsvt/PERT-CPM/internal/ui"
	"github.com/sauravsvt/PERT-CPM/internal/viewer"
)

var (
	flagConfig   string
	flagLogLevel string
	flagNoColor  bool
	flagJSON     bool
)

// Loaded in PersistentPreRunE for every command.
var (
	cfg *config.Config
	log *logging.Logger
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.BoldRed("error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pert",
		Short: "PERT network analysis: schedules, critical paths and deadline risk",
		Long: `pert reads a project of tasks with three-point estimates, builds the
dependency network, computes the critical path schedule and estimates the
probability of finishing by a deadline.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				log.Close()
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ./pert.yaml or "+config.ConfigFile()+")")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(vizCmd())
	rootCmd.AddCommand(deadlineCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())

	return rootCmd
}

func setup(cmd *cobra.Command, args []string) error {
	if err := config.Init(flagConfig); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded

	ui.SetColor(cfg.Output.Color && !flagNoColor)
	if cfg.Output.Format == "json" {
		flagJSON = true
	}

	if cfg.Logging.File != "" {
		log, err = logging.Open(cfg.Logging.File, cfg.Logging.Level)
		if err != nil {
			return err
		}
	} else {
		log = logging.New(ui.NewLogFormatter(cmd.ErrOrStderr()), cfg.Logging.Level)
	}
	return nil
}

func pipelineOptions() pipeline.Options {
	return pipeline.Options{
		Epsilon:  cfg.Analysis.Epsilon,
		MaxPaths: cfg.Analysis.MaxCriticalPaths,
		Logger:   log,
	}
}

// runFile loads a project file and runs the full pipeline on it. deadline
// overrides the file's deadline when non-nil.
func runFile(ctx context.Context, path string, deadline *float64) (*pipeline.Analysis, error) {
	proj, err := project.Load(path)
	if err != nil {
		return nil, err
	}

	in := pipeline.Input{Name: proj.Name, Tasks: proj.Tasks, Deadline: deadline}
	if in.Deadline == nil {
		switch {
		case proj.Deadline > 0:
			in.Deadline = &proj.Deadline
		case cfg.Probability.DefaultDeadline > 0:
			d := cfg.Probability.DefaultDeadline
			in.Deadline = &d
		}
	}

	log.With("file", path).Debug("project loaded", "tasks", len(proj.Tasks))
	return pipeline.Run(ctx, in, pipelineOptions())
}

func analyzeCmd() *cobra.Command {
	var (
		flagDeadline float64
		flagSave     bool
		flagPublish  string
	)

	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Schedule the network and evaluate the deadline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var deadline *float64
			if cmd.Flags().Changed("deadline") {
				deadline = &flagDeadline
			}

			a, err := runFile(cmd.Context(), args[0], deadline)
			if err != nil {
				return err
			}

			if flagSave {
				store := state.NewStore(cfg.State.Dir)
				if err := store.Save(a); err != nil {
					return err
				}
				log.Info("analysis saved", "analysis_id", a.ID, "path", store.Path())
			}
			if flagPublish != "" {
				if err := viewer.Publish(cmd.Context(), flagPublish, a); err != nil {
					return err
				}
				log.Info("analysis published", "analysis_id", a.ID, "url", flagPublish)
			}

			return printAnalysis(cmd.OutOrStdout(), a)
		},
	}

	cmd.Flags().Float64Var(&flagDeadline, "deadline", 0, "Deadline to evaluate (overrides the project file)")
	cmd.Flags().BoolVar(&flagSave, "save", false, "Save the analysis for 'pert show'")
	cmd.Flags().StringVar(&flagPublish, "publish", "", "Send the analysis to a running 'pert serve' (e.g. http://localhost:8080)")

	return cmd
}

func validateCmd() *cobra.Command {
	var flagWrite string

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a project file for invalid tasks and cycles",
		Long: `Check a project file for invalid tasks and cycles.

With --write, the validated tasks are saved as a YAML task list in
topological order. Activity-on-arrow input ("1-2" activities) is written
out as ordinary tasks with explicit predecessors.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := project.Load(args[0])
			if err != nil {
				return err
			}
			n, err := graph.Build(proj.Tasks)
			if err != nil {
				return err
			}

			if flagWrite != "" {
				normalized := &project.Project{Name: proj.Name, Deadline: proj.Deadline, Tasks: n.Tasks()}
				if err := project.Save(flagWrite, normalized); err != nil {
					return err
				}
				log.Info("task list written", "path", flagWrite, "tasks", n.TaskCount())
			}

			w := cmd.OutOrStdout()
			if flagJSON {
				return outputJSON(w, map[string]interface{}{
					"valid": true,
					"tasks": n.TaskCount(),
					"edges": len(n.Edges()),
				})
			}
			fmt.Fprintf(w, "%s %d tasks, %d edges, no cycles\n", ui.BoldGreen("✓"), n.TaskCount(), len(n.Edges()))
			return nil
		},
	}

	cmd.Flags().StringVar(&flagWrite, "write", "", "Save the validated tasks as a YAML task list")

	return cmd
}

func vizCmd() *cobra.Command {
	var flagFormat string

	cmd := &cobra.Command{
		Use:   "viz FILE",
		Short: "Print the project network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := runFile(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}

			g := viewer.ToGraph(a)
			w := cmd.OutOrStdout()
			switch flagFormat {
			case "dot":
				return viewer.WriteDOT(w, g)
			case "json":
				return outputJSON(w, g)
			case "ascii":
				return viewer.WriteASCII(w, g)
			default:
				return fmt.Errorf("unknown format %q (want ascii, dot or json)", flagFormat)
			}
		},
	}

	cmd.Flags().StringVar(&flagFormat, "format", "ascii", "Output format (ascii, dot, json)")

	return cmd
}

func deadlineCmd() *cobra.Command {
	var flagConfidence float64

	cmd := &cobra.Command{
		Use:   "deadline FILE",
		Short: "Compute the deadline met with a given confidence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			confidence := cfg.Probability.Confidence
			if cmd.Flags().Changed("confidence") {
				confidence = flagConfidence
			}

			a, err := runFile(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}
			d, err := a.DeadlineFor(confidence)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if flagJSON {
				return outputJSON(w, map[string]interface{}{
					"confidence": confidence,
					"deadline":   d,
				})
			}
			reporter.PrintDeadline(w, confidence, d)
			return nil
		},
	}

	cmd.Flags().Float64Var(&flagConfidence, "confidence", 0.95, "Confidence level in (0, 1)")

	return cmd
}

func showCmd() *cobra.Command {
	var flagClean bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Reprint the last saved analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := state.NewStore(cfg.State.Dir)
			if flagClean {
				return store.Clean()
			}
			if !store.Exists() {
				return fmt.Errorf("no saved analysis in %s (run 'pert analyze --save' first)", cfg.State.Dir)
			}

			a, err := store.Load()
			if err != nil {
				return err
			}
			return printAnalysis(cmd.OutOrStdout(), a)
		},
	}

	cmd.Flags().BoolVar(&flagClean, "clean", false, "Remove the saved analysis")

	return cmd
}

func serveCmd() *cobra.Command {
	var (
		flagAddr string
		flagSave bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := cfg.Server.Addr
			if flagAddr != "" {
				addr = flagAddr
			}

			srvCfg := viewer.ServerConfig{
				Pipeline: pipelineOptions(),
				Logger:   log,
			}
			if flagSave {
				store := state.NewStore(cfg.State.Dir)
				srvCfg.OnAnalysis = func(a *pipeline.Analysis) {
					if err := store.Save(a); err != nil {
						log.Error("failed to save analysis", "analysis_id", a.ID, "error", err)
					}
				}
			}

			if viewer.IsPortOpen(addr) {
				return fmt.Errorf("address %s is already in use", addr)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ui.PrintBanner(cmd.OutOrStdout())
			fmt.Fprintf(cmd.OutOrStdout(), "🌐 %s %s\n", ui.BoldCyan("Listening on"), addr)
			return viewer.NewServer(srvCfg).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&flagSave, "save", false, "Save every analysis for 'pert show'")

	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if flagJSON {
				return outputJSON(w, viper.AllSettings())
			}
			if used := viper.ConfigFileUsed(); used != "" {
				fmt.Fprintf(w, "# %s\n", used)
			}
			data, err := yaml.Marshal(viper.AllSettings())
			if err != nil {
				return err
			}
			_, err = w.Write(data)
			return err
		},
	}
}

// --- Output helpers ---

func printAnalysis(w io.Writer, a *pipeline.Analysis) error {
	if flagJSON {
		data, err := reporter.New(a).JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	}
	reporter.New(a).PrintReport(w)
	return nil
}

func outputJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}
