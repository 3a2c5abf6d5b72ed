package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jonaspleyer/cellular-control/internal/cell"
	"github.com/jonaspleyer/cellular-control/internal/config"
	"github.com/jonaspleyer/cellular-control/internal/domain"
	"github.com/jonaspleyer/cellular-control/internal/engine"
	"github.com/jonaspleyer/cellular-control/internal/metrics"
	"github.com/jonaspleyer/cellular-control/internal/models"
	"github.com/jonaspleyer/cellular-control/internal/storage"
	"github.com/jonaspleyer/cellular-control/internal/tui"
	"github.com/jonaspleyer/cellular-control/internal/vec"
)

var (
	configFile string
	preset     string
	dataDir    string
	logLevel   string
	threads    int
	steps      int
	dt         float64
	seed       uint64
	nCells     int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cellsim",
		Short: "partitioned cellular agent simulation",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".cellsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation",
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "run a simulation with a live terminal view",
		RunE:  watchSimulation,
	}
	addRunFlags(watchCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the metric series of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	decompCmd := &cobra.Command{
		Use:   "decomp [n_voxels] [n_regions]",
		Short: "inspect the voxel decomposition for a region count",
		Args:  cobra.ExactArgs(2),
		RunE:  showDecomposition,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
		},
	}

	rootCmd.AddCommand(runCmd, watchCmd, listCmd, plotCmd, decompCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&threads, "threads", config.DefaultThreads, "number of worker partitions")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of simulation steps")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&nCells, "cells", config.DefaultCellCount, "initial cell count")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("threads") {
		cfg.Threads = threads
	}
	if cmd.Flags().Changed("steps") {
		cfg.Steps = steps
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("cells") {
		cfg.Cells.Count = nCells
	}
	if cmd.Flags().Changed("data") || cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	if cmd.Flags().Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = logLevel
	}
	return cfg, cfg.Validate()
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

func buildDomain(cfg *config.Config) (*domain.CartesianCuboid, error) {
	min := vec.Vector(cfg.Domain.Min)
	max := vec.Vector(cfg.Domain.Max)
	var dom *domain.CartesianCuboid
	var err error
	if len(cfg.Domain.NVoxels) > 0 {
		dom, err = domain.NewCartesianCuboidFromVoxelCounts(min, max, cfg.Domain.NVoxels, cfg.Seed)
	} else {
		dom, err = domain.NewCartesianCuboidFromInteractionRange(min, max, cfg.Domain.InteractionRange, cfg.Seed)
	}
	if err != nil {
		return nil, err
	}
	if len(cfg.Gravity) > 0 {
		dom.Field = &models.ConstantField{Force: vec.Vector(cfg.Gravity)}
	}
	return dom, nil
}

// seedCells scatters the initial population uniformly over the domain from
// the master seed, independent of thread count.
func seedCells(cfg *config.Config, dom *domain.CartesianCuboid) []cell.Cell {
	rng := rand.New(rand.NewPCG(cfg.Seed, 0))
	params := models.SphereParams{
		Mass:        cfg.Cells.Mass,
		Damping:     cfg.Cells.Damping,
		Epsilon:     cfg.Cells.Epsilon,
		Sigma:       cfg.Cells.Sigma,
		Bound:       cfg.Cells.Bound,
		Cutoff:      cfg.Cells.Cutoff,
		DivisionAge: cfg.Cells.DivisionAge,
	}
	cells := make([]cell.Cell, 0, cfg.Cells.Count)
	for i := 0; i < cfg.Cells.Count; i++ {
		pos := vec.Zero(dom.Dim())
		for k := range pos {
			pos[k] = dom.Min[k] + rng.Float64()*(dom.Max[k]-dom.Min[k])
		}
		cells = append(cells, models.NewSphere(pos, vec.Zero(dom.Dim()), params))
	}
	return cells
}

func setupRunner(cfg *config.Config, logger zerolog.Logger) (*engine.Runner, error) {
	dom, err := buildDomain(cfg)
	if err != nil {
		return nil, err
	}
	dec, err := dom.CreatePartitions(cfg.Threads)
	if err != nil {
		return nil, err
	}
	return engine.NewRunner(dom, dec, seedCells(cfg, dom), logger)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	run, err := st.Begin()
	if err != nil {
		return err
	}

	runner, err := setupRunner(cfg, logger)
	if err != nil {
		return err
	}

	population := metrics.NewPopulation()
	meanSpeed := metrics.NewMeanSpeed()
	runner.AddObserver(population)
	runner.AddObserver(meanSpeed)

	settings := engine.Settings{Dt: cfg.Dt, Steps: cfg.Steps, SaveInterval: cfg.SaveInt}

	start := time.Now()
	if err := runner.Run(context.Background(), settings, run); err != nil {
		return err
	}
	elapsed := time.Since(start)

	final := runner.Cells()
	meta := storage.RunMetadata{
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		Steps:      cfg.Steps,
		Threads:    runner.NumPartitions(),
		CellsStart: cfg.Cells.Count,
		CellsEnd:   len(final),
		Metrics: map[string]float64{
			population.Name(): population.Value(),
			meanSpeed.Name():  meanSpeed.Value(),
		},
	}
	series := map[string][]float64{
		population.Name(): population.Series(),
		meanSpeed.Name():  meanSpeed.Series(),
	}
	if err := run.Finish(meta, series); err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", run.ID())
	fmt.Printf("partitions: %d\n", runner.NumPartitions())
	fmt.Printf("cells: %d -> %d\n", cfg.Cells.Count, len(final))
	return nil
}

func watchSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(cfg.Domain.Min) < 2 {
		return fmt.Errorf("watch requires a domain with at least 2 dimensions")
	}
	// The live view owns the terminal; keep the log quiet.
	logger := newLogger("error")

	runner, err := setupRunner(cfg, logger)
	if err != nil {
		return err
	}

	obs := tui.NewFrameObserver(runner.NumPartitions())
	runner.AddObserver(obs)

	runErr := make(chan error, 1)
	go func() {
		defer obs.Close()
		settings := engine.Settings{Dt: cfg.Dt, Steps: cfg.Steps}
		runErr <- runner.Run(context.Background(), settings, nil)
	}()

	view := tui.NewModel(
		[2]float64{cfg.Domain.Min[0], cfg.Domain.Min[1]},
		[2]float64{cfg.Domain.Max[0], cfg.Domain.Max[1]},
		cfg.Steps, obs,
	)
	if _, err := tea.NewProgram(view).Run(); err != nil {
		return err
	}
	return <-runErr
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
	fmt.Fprintln(w, "ID\tTIME\tSTEPS\tDT\tTHREADS\tCELLS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\t%d\t%d -> %d\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Dt,
			run.Threads,
			run.CellsStart,
			run.CellsEnd,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.LoadMeta(args[0])
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("steps: %d, threads: %d\n\n", meta.Steps, meta.Threads)

	for _, name := range []string{"population", "mean_speed"} {
		data, ok := series[name]
		if !ok || len(data) == 0 {
			continue
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func showDecomposition(cmd *cobra.Command, args []string) error {
	var nVoxels, nRegions int
	if _, err := fmt.Sscanf(args[0], "%d", &nVoxels); err != nil {
		return fmt.Errorf("invalid voxel count %q", args[0])
	}
	if _, err := fmt.Sscanf(args[1], "%d", &nRegions); err != nil {
		return fmt.Errorf("invalid region count %q", args[1])
	}

	res, err := domain.Decompose(nVoxels, nRegions)
	if err != nil {
		return err
	}
	fmt.Printf("%d voxels over %d regions: %d x %d voxels + %d x %d voxels\n",
		nVoxels, nRegions, res.N, res.AverageLen, res.M, res.AverageLen-1)
	return nil
}
