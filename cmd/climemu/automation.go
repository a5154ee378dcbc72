package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/san-kum/climemu/internal/automation"
	"github.com/san-kum/climemu/internal/export"
	"github.com/san-kum/climemu/internal/metrics"
	"github.com/san-kum/climemu/internal/optim"
	"github.com/san-kum/climemu/internal/sim"
	"github.com/san-kum/climemu/internal/storage"
	"github.com/san-kum/climemu/internal/viz"
	"github.com/spf13/cobra"
)

var (
	sweepParam string
	sweepFrom  float64
	sweepTo    float64
	sweepN     int

	trials    int
	ecsMean   float64
	ecsSD     float64
	ecsMin    float64
	ecsMax    float64
	seed      int64
	threshold float64

	metricName string
	target     float64

	outFile string
)

func addAutomationCommands(root *cobra.Command) {
	planCmd := &cobra.Command{
		Use:   "plan [file]",
		Short: "execute a YAML run plan",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlan,
	}
	planCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one parameter over a range",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	addRangeFlags(sweepCmd, automation.ParamForcingFactor, 1.0, 1.2, 5)
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (default GOMAXPROCS)")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "sample climate sensitivity and report the peak warming distribution",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	addRunFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 100, "number of trials")
	monteCarloCmd.Flags().Float64Var(&ecsMean, "ecs-mean", 0, "mean ECS (default the model's own)")
	monteCarloCmd.Flags().Float64Var(&ecsSD, "ecs-sd", 0.8, "ECS standard deviation")
	monteCarloCmd.Flags().Float64Var(&ecsMin, "ecs-min", 1.5, "lowest ECS sampled")
	monteCarloCmd.Flags().Float64Var(&ecsMax, "ecs-max", 6, "highest ECS sampled")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default time based)")
	monteCarloCmd.Flags().Float64Var(&threshold, "threshold", 2, "peak warming threshold to count")

	targetCmd := &cobra.Command{
		Use:   "target",
		Short: "grid-search the emission scale (or another parameter) so a metric hits a target",
		Args:  cobra.NoArgs,
		RunE:  runTarget,
	}
	addRunFlags(targetCmd)
	addRangeFlags(targetCmd, automation.ParamEmissionScale, 0, 1.5, 31)
	targetCmd.Flags().StringVar(&metricName, "metric", "peak_warming", "metric to match")
	targetCmd.Flags().Float64Var(&target, "target", 2, "target metric value")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export a run chart to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	root.AddCommand(planCmd, sweepCmd, monteCarloCmd, targetCmd, exportSVGCmd)
}

func addRangeFlags(cmd *cobra.Command, param string, from, to float64, n int) {
	cmd.Flags().StringVar(&sweepParam, "param", param, fmt.Sprintf("parameter %v", automation.Params()))
	cmd.Flags().Float64Var(&sweepFrom, "from", from, "first value")
	cmd.Flags().Float64Var(&sweepTo, "to", to, "last value")
	cmd.Flags().IntVar(&sweepN, "n", n, "number of values")
}

func setting(cmd *cobra.Command) (automation.Setting, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return automation.Setting{}, err
	}
	prov, err := cfg.Provider()
	if err != nil {
		return automation.Setting{}, err
	}
	return automation.Setting{Config: cfg, Provider: prov}, nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	plan, err := automation.LoadPlan(args[0])
	if err != nil {
		return err
	}
	prov, err := provider()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("plan %s: %d runs\n", plan.Name, len(plan.Runs))
	results, err := automation.RunPlan(ctx, plan, prov,
		sim.WithMetrics(metrics.Defaults()...), sim.WithLogger(logger))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tMODEL\tPEAK\tFINAL\tRUN ID")
	for i, res := range results {
		id := "-"
		if !noSave {
			var serr error
			if id, serr = save(res, plan.Runs[i].Config, plan.Name); serr != nil {
				return serr
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%.3f\t%s\n",
			plan.Runs[i].Name, res.Model, res.Metrics["peak_warming"], res.Metrics["final_warming"], id)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := setting(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	sweep := &automation.ParameterSweep{
		Base:    base,
		Param:   sweepParam,
		Values:  automation.Span(sweepFrom, sweepTo, sweepN),
		Workers: workers,
	}
	results, err := automation.RunSweep(ctx, sweep, sim.WithLogger(logger))
	if err != nil {
		return err
	}

	peaks := make([]float64, len(results))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tPEAK\tFINAL\tYEARS>2°C\n", sweepParam)
	for i, r := range results {
		peaks[i] = r.Result.Metrics["peak_warming"]
		fmt.Fprintf(w, "%.4g\t%.3f\t%.3f\t%g\n",
			r.Value, peaks[i], r.Result.Metrics["final_warming"], r.Result.Metrics["years_above_2"])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(peaks) > 1 {
		fmt.Println()
		fmt.Println(viz.PlotSeries(peaks, viz.PlotOptions{
			Caption: fmt.Sprintf("peak warming (°C) vs %s %g..%g", sweepParam, sweepFrom, sweepTo),
			Theme:   viz.GetTheme(theme),
		}))
	}
	return nil
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	base, err := setting(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %d trials...\n", trials)
	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:      base,
		ECSMean:   ecsMean,
		ECSStdDev: ecsSD,
		Min:       ecsMin,
		Max:       ecsMax,
		NumTrials: trials,
		Seed:      seed,
	}, sim.WithLogger(logger))
	if err != nil {
		return err
	}

	s := automation.Summarize(results, threshold)
	fmt.Println(viz.Separator(60))
	fmt.Printf("trials:        %d\n", s.Trials)
	fmt.Printf("peak warming:  %.3f ± %.3f °C\n", s.Mean, s.StdDev)
	fmt.Printf("5/50/95%%:      %.3f / %.3f / %.3f °C\n", s.P5, s.P50, s.P95)
	fmt.Printf("above %g °C:    %d (%.1f%%)\n", threshold, s.AboveThreshold, 100*float64(s.AboveThreshold)/float64(s.Trials))
	return nil
}

func runTarget(cmd *cobra.Command, args []string) error {
	base, err := setting(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	g := optim.NewGridSearch([]string{sweepParam}, [][]float64{automation.Span(sweepFrom, sweepTo, sweepN)})
	fit, err := g.Search(ctx, base, metricName, target)
	if err != nil {
		return err
	}
	fmt.Printf("best %s: %.4g\n", sweepParam, fit.Params[sweepParam])
	fmt.Printf("%s: %.4f (target %.4f, error %.2g)\n", metricName, fit.Value, target, fit.Error)
	fmt.Printf("evaluations: %d\n", fit.Evals)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	res, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	if outFile == "" {
		return export.WriteResultSVG(os.Stdout, res, export.ChartOptions{})
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	if err := export.WriteResultSVG(f, res, export.ChartOptions{}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
