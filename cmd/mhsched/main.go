// Command mhsched runs the GVNS or PBIG scheduler over one of the bundled
// demonstration problems (ONEMAX, ONEPERM, MAXSAT), driven by the shared
// parameter registry in internal/param. Grounded on the teacher's cobra
// root-command/subcommand layout.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mhsched/mhsched/internal/param"
	"github.com/mhsched/mhsched/pkg/duphash"
	"github.com/mhsched/mhsched/pkg/method"
	"github.com/mhsched/mhsched/pkg/mhlog"
	"github.com/mhsched/mhsched/pkg/opslog"
	"github.com/mhsched/mhsched/pkg/population"
	"github.com/mhsched/mhsched/pkg/resultstore"
	"github.com/mhsched/mhsched/pkg/scheduler"
	"github.com/mhsched/mhsched/pkg/selector"
	"github.com/mhsched/mhsched/pkg/solution"
	"github.com/mhsched/mhsched/pkg/solutions/bitstring"
	"github.com/mhsched/mhsched/pkg/solutions/maxsat"
	"github.com/mhsched/mhsched/pkg/solutions/permutation"
	"github.com/mhsched/mhsched/pkg/statusapi"
)

func main() {
	if err := ExpandAndExecute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "mhsched:", err)
		os.Exit(1)
	}
}

// ExpandAndExecute expands any "@file" tokens in argv and runs the root
// command, split out from main for testability.
func ExpandAndExecute(argv []string) error {
	expanded, err := param.ExpandArgFiles(argv)
	if err != nil {
		return err
	}
	root := newRootCmd()
	root.SetArgs(expanded)
	return root.Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mhsched",
		Short:         "parallel GRASP/VNS/VND/LNS metaheuristic scheduler",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cfg := param.NewRootFlags(root)
	root.PersistentFlags().String("scheduler", "gvns", "scheduler to drive: gvns or pbig")
	root.PersistentFlags().Int("vars", 100, "problem size (bit/permutation length)")
	root.PersistentFlags().String("instance", "", "MAXSAT instance file (DIMACS CNF), required for the maxsat subcommand")
	root.PersistentFlags().Int("shakek", 3, "shaking strength (bits/swaps per shake)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("config") {
			explicit := map[string]string{}
			cmd.Flags().Visit(func(f *pflag.Flag) { explicit[f.Name] = f.Value.String() })
			if err := param.LoadYAML(cfg, cfg.ConfigFile); err != nil {
				return err
			}
			// Flags given on the command line take precedence over the YAML file.
			for name, v := range explicit {
				if err := cmd.Flags().Set(name, v); err != nil {
					return err
				}
			}
		}
		cfg.NoteTObjProvided(cmd.Flags().Changed("tobj"))
		return nil
	}

	root.AddCommand(
		newProblemCmd(cfg, "onemax", "run the ONEMAX demonstration problem", runOneMax),
		newProblemCmd(cfg, "oneperm", "run the ONEPERM demonstration problem", runOnePerm),
		newProblemCmd(cfg, "maxsat", "run the MAXSAT demonstration problem from a DIMACS CNF instance", runMaxSAT),
	)
	return root
}

func newProblemCmd(cfg *param.Config, name, short string, run func(cmd *cobra.Command, cfg *param.Config) error) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg)
		},
	}
}

// runnerDeps is the common infrastructure every problem subcommand builds
// before constructing its scheduler.
type runnerDeps struct {
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *slog.Logger
	logOut   io.WriteCloser
	term     *scheduler.Termination
	maximize bool
	rootSeed int64
}

func setupRunner(cfg *param.Config) (*runnerDeps, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	format := opslog.JSON
	if cfg.LogFormat == "text" {
		format = opslog.Text
	}
	logger := opslog.New(format, slog.LevelInfo)

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	termCfg := scheduler.TerminationConfig{
		MaxIter:                 int64(cfg.TIter),
		MaxIterSinceImprovement: int64(cfg.TCIter),
		TargetObjective:         cfg.TObj,
		HasTarget:               cfg.HasTObj,
		MaxDuration:             time.Duration(cfg.TTime * float64(time.Second)),
		UseWallClock:            true, // Go has no per-goroutine CPU-time API; see DESIGN.md
		Maximize:                cfg.Maxi,
	}
	term := scheduler.NewTermination(ctx, termCfg)

	return &runnerDeps{
		ctx: ctx, cancel: cancel, logger: logger, term: term,
		maximize: cfg.Maxi, rootSeed: seed,
	}, nil
}

func (d *runnerDeps) openLog(cfg *param.Config) (*mhlog.Writer, error) {
	if cfg.OName == "NULL" {
		return nil, nil
	}
	var w io.Writer = os.Stdout
	isTerminal := true
	if cfg.OName != "@" {
		path := filepath.Join(cfg.ODir, cfg.OName+cfg.LogExt)
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("mhsched: creating log file %s: %w", path, err)
		}
		d.logOut = f
		w = f
		isTerminal = false
	}
	freq := mhlog.Frequency(cfg.LFreq)
	return mhlog.New(w, mhlog.Options{
		Freq: freq, ChangeOnly: mhlog.ChangeOnly(cfg.LChOnly),
		BufferSize: cfg.LBuffer, IsTerminal: isTerminal,
		WithDup: cfg.DupElim != 0, WithTime: cfg.LTime,
	}), nil
}

func (d *runnerDeps) close() {
	if d.logOut != nil {
		d.logOut.Close()
	}
	d.cancel()
}

// runProvider adapts a *scheduler.Base to statusapi.Provider.
type runProvider struct {
	base   *scheduler.Base
	runID  string
	cancel context.CancelFunc
}

func (p *runProvider) Snapshot() statusapi.RunStats {
	p.base.Mu.Lock()
	defer p.base.Mu.Unlock()
	return statusapi.RunStats{
		RunID:     p.runID,
		Iteration: p.base.Stats.Iteration(),
		BestObj:   p.base.Pop.Best().Objective(),
		Mean:      p.base.Pop.Mean(),
		Worst:     p.base.Pop.WorstObjective(),
		Finished:  p.base.Terminate(),
	}
}

func (p *runProvider) Cancel() { p.cancel() }

// buildPool assembles a method.Pool from three per-problem method blocks
// and returns the flat, dense name slice in registration order.
func buildPool(cons, loc, shake []*method.Method) (*method.Pool, []string, error) {
	pool, err := method.NewPool(cons, loc, shake)
	if err != nil {
		return nil, nil, err
	}
	names := make([]string, pool.Size())
	for i := 0; i < pool.Size(); i++ {
		names[i] = pool.At(i).Name
	}
	return pool, names, nil
}

func strategyOf(v int) selector.Strategy {
	if v < int(selector.SeqRep) || v > int(selector.TimeAdapt) {
		return selector.SeqRep
	}
	return selector.Strategy(v)
}

// runScenario wires population + method pool + base + scheduler + optional
// ambient surfaces, then runs to termination and reports results.
func runScenario(cmd *cobra.Command, cfg *param.Config, problem string, tmpl solution.Solution, pool *method.Pool, names []string) error {
	deps, err := setupRunner(cfg)
	if err != nil {
		return err
	}
	defer deps.close()

	logWriter, err := deps.openLog(cfg)
	if err != nil {
		return err
	}

	schedulerName, _ := cmd.Flags().GetString("scheduler")

	var hashIndex population.HashIndex
	var dupIdx *duphash.Index
	var pop *population.Population
	if cfg.DupElimDSN != "" {
		dupIdx, err = duphash.New(deps.ctx, cfg.DupElimDSN, "mhsched:"+problem, func(slot int) solution.Solution {
			if pop == nil {
				return nil
			}
			return pop.At(slot)
		})
		if err != nil {
			return err
		}
		defer dupIdx.Close()
		hashIndex = dupIdx
	}

	popSize := cfg.PopSize
	if schedulerName == "gvns" {
		// GVNS keeps only the single shared global incumbent here; each
		// worker's own two-slot working population is allocated inside
		// scheduler.NewWorker.
		popSize = 1
	}
	popRnd := rand.New(rand.NewSource(deps.rootSeed))
	pop = population.New(tmpl, popSize, population.Options{
		Maximize: deps.maximize,
		DupMode:  population.DupElimMode(cfg.DupElim),
		UseHash:  cfg.DupElim != 0 || hashIndex != nil,
		UseHeap:  schedulerName == "pbig",
		HashIndex: hashIndex,
		Rand:     popRnd,
	})

	base := scheduler.NewBase(pop, pool, names, logWriter, deps.term, deps.maximize)

	if cfg.StatusAddr != "" {
		prov := &runProvider{base: base, runID: problem, cancel: deps.cancel}
		srv := statusapi.New(prov, statusapi.Options{
			Addr: cfg.StatusAddr, Logger: deps.logger, TokenSecret: cfg.StatusToken,
			TokenTTL: time.Hour,
		})
		go srv.Start(deps.ctx)
	}

	var runErr error
	switch schedulerName {
	case "pbig":
		sched, err := scheduler.NewPBIG(base, scheduler.PBIGOptions{
			DestroyRecreateStrat: strategyOf(cfg.SchLISel),
			Rand:                 rand.New(rand.NewSource(deps.rootSeed + 1)),
		})
		if err != nil {
			return err
		}
		runErr = sched.Run()
	default:
		sched, err := scheduler.NewGVNS(base, tmpl, scheduler.GVNSOptions{
			NumWorkers:   cfg.SchThreads,
			LocImpStrat:  strategyOf(cfg.SchLISel),
			ShakingStrat: strategyOf(cfg.SchShaSel),
			SchLIRep:     cfg.SchLIRep,
			SchSync:      cfg.SchSync,
			SchPMig:      cfg.SchPMig,
			RandForWorker: func(workerID int) *rand.Rand {
				return rand.New(rand.NewSource(deps.rootSeed + 1 + int64(workerID)))
			},
		})
		if err != nil {
			return err
		}
		runErr = sched.Run()
	}

	if runErr != nil {
		deps.logger.Error("scheduler run failed", "problem", problem, "error", runErr)
		return runErr
	}

	base.PrintStatistics(os.Stdout)
	fmt.Fprintf(os.Stdout, "best objective: %g\n", pop.Best().Objective())
	pop.Best().Write(os.Stdout, 1)

	if cfg.ResultDSN != "" {
		store, err := resultstore.Open(deps.ctx, cfg.ResultDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		now := time.Now()
		if err := store.SaveRun(deps.ctx, resultstore.RunSummary{
			ID: problem + "-" + now.Format(time.RFC3339Nano),
			Scheduler: schedulerName, Problem: problem,
			BestObj: pop.Best().Objective(), Iterations: base.Stats.Iteration(),
			Duration: deps.term.Elapsed().Seconds(), Terminated: "ok",
			StartedAt: now, FinishedAt: now,
		}); err != nil {
			return err
		}
	}

	return nil
}

func intFlag(cmd *cobra.Command, name string) int {
	v, _ := cmd.Flags().GetInt(name)
	return v
}

func runOneMax(cmd *cobra.Command, cfg *param.Config) error {
	n := intFlag(cmd, "vars")
	k := intFlag(cmd, "shakek")
	rnd := rand.New(rand.NewSource(cfg.Seed + 9001))
	tmpl := bitstring.New(n, rnd, bitstring.OneMaxObjective)

	cons := []*method.Method{method.New("construct", method.Arity0, 0, bitstring.ConstructRandom)}
	loc := []*method.Method{method.New("1-flip", method.Arity1, 1, bitstring.LocalImproveKFlip(1))}
	shk := []*method.Method{method.New(fmt.Sprintf("%d-flip-shake", k), method.Arity1, k, bitstring.ShakeFlipK(k))}

	pool, names, err := buildPool(cons, loc, shk)
	if err != nil {
		return err
	}
	return runScenario(cmd, cfg, "onemax", tmpl, pool, names)
}

func runOnePerm(cmd *cobra.Command, cfg *param.Config) error {
	n := intFlag(cmd, "vars")
	k := intFlag(cmd, "shakek")
	rnd := rand.New(rand.NewSource(cfg.Seed + 9002))
	tmpl := permutation.New(n, rnd, permutation.OnePermObjective)

	cons := []*method.Method{method.New("construct", method.Arity0, 0, permutation.ConstructRandom)}
	loc := []*method.Method{method.New("swap", method.Arity1, 1, permutation.LocalImproveSwap)}
	shk := []*method.Method{method.New(fmt.Sprintf("%d-swap-shake", k), method.Arity1, k, permutation.ShakeSwapK(k))}

	pool, names, err := buildPool(cons, loc, shk)
	if err != nil {
		return err
	}
	return runScenario(cmd, cfg, "oneperm", tmpl, pool, names)
}

func runMaxSAT(cmd *cobra.Command, cfg *param.Config) error {
	instPath, _ := cmd.Flags().GetString("instance")
	if instPath == "" {
		return fmt.Errorf("mhsched: --instance is required for the maxsat subcommand")
	}
	inst, err := maxsat.Load(instPath)
	if err != nil {
		return err
	}
	k := intFlag(cmd, "shakek")
	rnd := rand.New(rand.NewSource(cfg.Seed + 9003))
	tmpl := maxsat.New(inst, rnd)

	cons := []*method.Method{method.New("construct", method.Arity0, 0, maxsat.Construct)}
	loc := []*method.Method{method.New("1-flip", method.Arity1, 1, maxsat.LocalImprove)}
	shk := []*method.Method{method.New(fmt.Sprintf("%d-flip-shake", k), method.Arity1, k, maxsat.ShakeFlipK(k))}

	pool, names, err := buildPool(cons, loc, shk)
	if err != nil {
		return err
	}
	return runScenario(cmd, cfg, "maxsat", tmpl, pool, names)
}
