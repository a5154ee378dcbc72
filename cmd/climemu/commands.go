package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/san-kum/climemu/internal/config"
	"github.com/san-kum/climemu/internal/emission"
	"github.com/san-kum/climemu/internal/logging"
	"github.com/san-kum/climemu/internal/metrics"
	"github.com/san-kum/climemu/internal/observability"
	"github.com/san-kum/climemu/internal/params"
	"github.com/san-kum/climemu/internal/server"
	"github.com/san-kum/climemu/internal/sim"
	"github.com/san-kum/climemu/internal/storage"
	"github.com/san-kum/climemu/internal/viz"
	"github.com/spf13/cobra"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	prov, err := cfg.Provider()
	if err != nil {
		return err
	}
	series, err := cfg.EmissionSeries()
	if err != nil {
		return err
	}

	opts := append(cfg.RunnerOptions(series),
		sim.WithMetrics(metrics.Defaults()...),
		sim.WithLogger(logger),
	)
	runner, err := sim.NewRunner(prov, series.Values, opts...)
	if err != nil {
		return err
	}

	fmt.Printf("running %s over %d steps...\n", cfg.Model, runner.Steps())
	start := time.Now()
	if _, _, err := runner.Run(); err != nil {
		return err
	}
	elapsed := time.Since(start)
	res := runner.Result()

	fmt.Printf("completed in %v\n", elapsed)
	if !noSave {
		id, err := save(res, cfg, "")
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", id)
	}
	fmt.Println(viz.RenderSummary(res))

	if showPlot {
		fmt.Println()
		lo, hi := runner.TatmRange()
		lower, upper := viz.RangeBounds(lo, hi)
		fmt.Println(viz.PlotTemperatures(res, viz.PlotOptions{Lower: lower, Upper: upper, Theme: viz.GetTheme(theme)}))
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	names, err := cfg.ModelNames()
	if err != nil {
		return err
	}
	prov, err := cfg.Provider()
	if err != nil {
		return err
	}
	if missing := params.Missing(prov, names); len(missing) > 0 {
		return fmt.Errorf("no calibration for %s; supply them with --params", strings.Join(missing, ", "))
	}
	series, err := cfg.EmissionSeries()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	opts := append(cfg.RunnerOptions(series), sim.WithLogger(logger))
	ens := sim.NewEnsemble(prov, series.Values, workers, opts...).WithMetrics(metrics.Defaults)

	fmt.Printf("running %d models over %d steps...\n", len(names), series.Len())
	start := time.Now()
	results, err := ens.Run(ctx, names)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	batch := fmt.Sprintf("batch_%d", start.UnixNano())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tPEAK\tFINAL\tYEARS>2°C\tRUN ID")
	temps := make(map[string]sim.Temperatures, len(results))
	for _, res := range results {
		temps[res.Model] = res.Temperatures()
		id := "-"
		if !noSave {
			if id, err = save(res, cfg, batch); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%g\t%s\n",
			res.Model,
			res.Metrics["peak_warming"],
			res.Metrics["final_warming"],
			res.Metrics["years_above_2"],
			id,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if showPlot {
		fmt.Println()
		fmt.Println(viz.PlotEnsemble(temps, viz.PlotOptions{Theme: viz.GetTheme(theme)}))
	}
	return nil
}

func save(res *sim.Result, cfg *config.Config, batch string) (string, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return "", err
	}
	scenario := cfg.Pathway
	switch {
	case len(cfg.Emissions) > 0:
		scenario = "explicit"
	case cfg.Scenario != nil:
		scenario = "custom"
	}
	id, err := st.Save(res, storage.SaveOptions{
		ForcingFactor: cfg.ForcingFactor,
		Scenario:      scenario,
		Batch:         batch,
	})
	if err != nil {
		return "", err
	}
	logger.Debug(context.Background(), "run saved", logging.String("id", id))
	return id, nil
}

func listModels(cmd *cobra.Command, args []string) error {
	prov, err := provider()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tCARBON\tC1\tC3\tC4\tLAMBDA\tF2X\tECS")
	for _, name := range prov.Models() {
		cal, err := prov.Lookup(name)
		if err != nil {
			fmt.Fprintf(w, "%s\t%s\n", name, err)
			continue
		}
		ecs := cal.Temp.ECS
		if ecs == 0 && cal.Temp.Lambda > 0 {
			ecs = cal.F2xCO2 / cal.Temp.Lambda
		}
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.2f\n",
			name, cal.CarbonSet, cal.Temp.C1, cal.Temp.C3, cal.Temp.C4, cal.Temp.Lambda, cal.F2xCO2, ecs)
	}
	return w.Flush()
}

func listEnsembles(cmd *cobra.Command, args []string) error {
	prov, err := provider()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ENSEMBLE\tMEMBERS\tCALIBRATED")
		for _, name := range params.Ensembles() {
			members, _ := params.Ensemble(name)
			missing := params.Missing(prov, members)
			fmt.Fprintf(w, "%s\t%d\t%d\n", name, len(members), len(members)-len(missing))
		}
		return w.Flush()
	}

	members, err := params.Ensemble(args[0])
	if err != nil {
		return err
	}
	missing := make(map[string]bool)
	for _, m := range params.Missing(prov, members) {
		missing[m] = true
	}
	fmt.Printf("%s (%d members)\n", args[0], len(members))
	for _, m := range members {
		mark := viz.MetricValue.Render("ok")
		if missing[m] {
			mark = viz.ErrorText.Render("missing")
		}
		fmt.Printf("  %-16s %s\n", m, mark)
	}
	return nil
}

func showScenario(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Println("emission pathways:")
		for _, name := range emission.ListPresets() {
			sc, _ := emission.Preset(name)
			fmt.Printf("  %-10s peak %.1fx in %d, half by %d, %.2fx in %d\n",
				name, sc.PeakFactor, sc.PeakYear, sc.HalveYear, sc.EndFactor, sc.EndYear)
		}
		return nil
	}

	sc, ok := emission.Preset(args[0])
	if !ok {
		return fmt.Errorf("unknown pathway: %s (available: %v)", args[0], emission.ListPresets())
	}
	series, err := sc.Series()
	if err != nil {
		return err
	}
	peakYear, peak, err := series.Peak()
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d-%d, peak %.2f GtC/yr in %d, cumulative %.1f GtC\n",
		args[0], series.Years[0], series.Years[series.Len()-1], peak, peakYear, series.Cumulative())
	fmt.Println(viz.PlotSeries(series.Values, viz.PlotOptions{Caption: "emissions (GtC/yr)"}))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tYEARS\tDT\tSCENARIO\tPEAK")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d-%g\t%g\t%s\t%.3f\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.StartYear,
			float64(run.StartYear)+float64(run.Steps)*run.Dt,
			run.Dt,
			run.Scenario,
			run.Metrics["peak_warming"],
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	var runID string
	if len(args) > 0 {
		runID = args[0]
	} else {
		latest, err := st.Latest()
		if err != nil {
			return err
		}
		runID = latest
	}

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	res, err := st.LoadResult(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("steps: %d\n", meta.Steps)
	fmt.Println(viz.Separator(80))
	fmt.Println()

	fmt.Println(viz.PlotTemperatures(res, viz.PlotOptions{Theme: viz.GetTheme(theme)}))
	fmt.Println()
	fmt.Println(viz.PlotSeries(res.MAt, viz.PlotOptions{Caption: "atmospheric carbon (GtC)"}))
	fmt.Println()
	fmt.Println(viz.PlotSeries(res.Forcing, viz.PlotOptions{Caption: "radiative forcing (W/m²)"}))
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	res, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	return storage.WriteCSV(os.Stdout, res)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	res, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	res.Metrics = meta.Metrics
	return storage.WriteJSON(os.Stdout, res)
}

func browse(cmd *cobra.Command, args []string) error {
	prov, err := provider()
	if err != nil {
		return err
	}
	return viz.RunBrowser(prov, viz.BrowserOptions{
		Models: models,
		Theme:  theme,
		Runner: []sim.Option{sim.WithForcingFactor(forcingFactor), sim.WithLogger(logger)},
	})
}

func serve(cmd *cobra.Command, args []string) error {
	prov, err := provider()
	if err != nil {
		return err
	}
	collector, err := observability.NewRunCollector(nil)
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	if addr == "" {
		addr = env.Addr
	}

	srv := server.New(prov,
		server.WithCollector(collector),
		server.WithStore(st),
		server.WithLogger(logger),
		server.WithWorkers(workers),
	)

	ctx, cancel := signalContext()
	defer cancel()
	return srv.ListenAndServe(ctx, addr)
}
