package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/san-kum/climemu/internal/config"
	"github.com/san-kum/climemu/internal/logging"
	"github.com/san-kum/climemu/internal/params"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	paramsFile string
	logLevel   string
	logFormat  string

	model         string
	models        []string
	ensemble      string
	pathway       string
	emissions     []float64
	dt            float64
	startYear     int
	forcingFactor float64
	configFile    string
	preset        string
	workers       int
	noSave        bool
	showPlot      bool
	theme         string

	addr string

	env    config.Env
	logger logging.Logger = logging.Noop()
)

// main registers the commands and runs the root command. It exits with
// status 1 when a command fails.
func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "climemu",
		Short:        "two-box climate emulator",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default $CLIMEMU_DATA or ./data)")
	rootCmd.PersistentFlags().StringVar(&paramsFile, "params", "", "parameter table (yaml), overlaid on the built-in DICE calibration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run one model against an emissions pathway",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&showPlot, "plot", true, "plot the temperature anomaly")

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "run several models or a named ensemble in parallel",
		Args:  cobra.NoArgs,
		RunE:  runBatch,
	}
	addRunFlags(batchCmd)
	batchCmd.Flags().StringSliceVar(&models, "models", nil, "models to run")
	batchCmd.Flags().StringVar(&ensemble, "ensemble", "", "named ensemble (CMIP5, CMIP6)")
	batchCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (default GOMAXPROCS)")
	batchCmd.Flags().BoolVar(&showPlot, "plot", true, "plot the ensemble")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list calibrated models",
		Args:  cobra.NoArgs,
		RunE:  listModels,
	}

	ensemblesCmd := &cobra.Command{
		Use:   "ensembles [name]",
		Short: "list ensembles or the members of one",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listEnsembles,
	}

	scenarioCmd := &cobra.Command{
		Use:   "scenario [pathway]",
		Short: "list emission pathways or plot one",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showScenario,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list run presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run (latest when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&theme, "theme", "thermal", "plot color theme")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "interactive model browser",
		Args:  cobra.NoArgs,
		RunE:  browse,
	}
	browseCmd.Flags().StringSliceVar(&models, "models", nil, "models to browse (default all)")
	browseCmd.Flags().StringVar(&theme, "theme", "thermal", "color theme")
	browseCmd.Flags().Float64Var(&forcingFactor, "forcing-factor", 1.1, "CO2 forcing scale")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the JSON API and Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default $CLIMEMU_ADDR or :8080)")
	serveCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs per ensemble request")

	rootCmd.AddCommand(runCmd, batchCmd, modelsCmd, ensemblesCmd, scenarioCmd, presetsCmd,
		listCmd, plotCmd, exportCSVCmd, exportJSONCmd, browseCmd, serveCmd)
	addAutomationCommands(rootCmd)
	return rootCmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&model, "model", params.DICE2016, "model")
	cmd.Flags().StringVar(&pathway, "pathway", "baseline", "emission pathway")
	cmd.Flags().Float64SliceVar(&emissions, "emissions", nil, "explicit emissions in GtC/yr, one per step")
	cmd.Flags().Float64Var(&dt, "dt", 1.0, "timestep in years")
	cmd.Flags().IntVar(&startYear, "start-year", 2020, "first year of explicit emissions")
	cmd.Flags().Float64Var(&forcingFactor, "forcing-factor", 1.1, "CO2 forcing scale")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	cmd.Flags().StringVar(&theme, "theme", "thermal", "plot color theme")
}

// setup fills unset global flags from the environment and builds the
// logger.
func setup(cmd *cobra.Command) error {
	e, err := config.LoadEnv()
	if err != nil {
		return err
	}
	env = e
	if dataDir == "" {
		dataDir = env.DataDir
	}
	if paramsFile == "" {
		paramsFile = env.Params
	}
	if logLevel == "" {
		logLevel = env.LogLevel
	}
	if logFormat == "" {
		logFormat = env.LogFormat
	}
	logger = logging.New(logging.Config{Level: logLevel, Format: logFormat})
	return nil
}

// resolveConfig applies preset, then config file, then explicitly set
// flags on top of the defaults.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if cfg.Params == "" {
		cfg.Params = paramsFile
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Model = model
	}
	if flags.Changed("pathway") {
		cfg.Pathway = pathway
		cfg.Scenario = nil
		cfg.Emissions = nil
	}
	if flags.Changed("emissions") {
		cfg.Emissions = emissions
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("start-year") {
		cfg.StartYear = startYear
	}
	if flags.Changed("forcing-factor") {
		cfg.ForcingFactor = forcingFactor
	}
	if flags.Lookup("models") != nil && flags.Changed("models") {
		cfg.Models = models
		cfg.Ensemble = ""
	}
	if flags.Lookup("ensemble") != nil && flags.Changed("ensemble") {
		cfg.Ensemble = ensemble
	}
	return cfg, nil
}

func provider() (params.Provider, error) {
	cfg := config.DefaultConfig()
	cfg.Params = paramsFile
	return cfg.Provider()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
