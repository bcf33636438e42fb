// Command mdpsolve solves the MDP and POMDP model files matching a glob, or
// the built-in windy gridworld, with value iteration.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"

	"github.com/CodeStranger-Fred/markov/config"
	"github.com/CodeStranger-Fred/markov/errors"
	"github.com/CodeStranger-Fred/markov/gridworld"
	"github.com/CodeStranger-Fred/markov/markov"
	"github.com/CodeStranger-Fred/markov/mdp"
	"github.com/CodeStranger-Fred/markov/report"
	"github.com/CodeStranger-Fred/markov/vi"
	"github.com/logrusorgru/aurora"
)

// defaultModels is relative to the repository root, where models/ ships
// the student MDP and the tiger POMDP.
const defaultModels = "models/**/*.yaml"

type options struct {
	models    string
	epsilon   float64
	maxSweeps int
	gridworld bool
	walk      int
	seed      uint64
	chart     string
	colors    bool
	verbose   bool
}

func main() {
	modelsFlag := flag.String("models", defaultModels, "Glob of model files to solve")
	epsilonFlag := flag.Float64("epsilon", 0, "Maximum error of the solution (overrides the model files)")
	maxSweepsFlag := flag.Int("max-sweeps", 0, "Give up after this many sweeps (0 for no cap)")
	gridworldFlag := flag.Bool("gridworld", false, "Solve the built-in 4x4 windy gridworld")
	walkFlag := flag.Int("walk", 0, "Print a random walk of this many states under the optimal policy")
	seedFlag := flag.Uint64("seed", 1, "Seed for random walks")
	chartFlag := flag.String("chart", "", "Write a convergence chart to this HTML file")
	noColorFlag := flag.Bool("no-color", false, "Disable coloured output")
	verboseFlag := flag.Bool("v", false, "Log solver progress to stderr")
	flag.Parse()

	o := options{
		models:    *modelsFlag,
		epsilon:   *epsilonFlag,
		maxSweeps: *maxSweepsFlag,
		gridworld: *gridworldFlag,
		walk:      *walkFlag,
		seed:      *seedFlag,
		chart:     *chartFlag,
		colors:    !*noColorFlag,
		verbose:   *verboseFlag,
	}
	if *gridworldFlag && !isSet("models") {
		o.models = ""
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, o, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		stop()
		os.Exit(1)
	}
}

func isSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func run(ctx context.Context, o options, stdout, stderr io.Writer) error {
	if o.epsilon < 0 {
		return errors.Wrapf(vi.ErrInvalidEpsilon, "-epsilon %g", o.epsilon)
	}
	logger := log.New(io.Discard, "", 0)
	if o.verbose {
		logger = log.New(stderr, "mdpsolve: ", log.LstdFlags)
	}

	var series []report.Series
	if o.gridworld {
		s, err := solveGridworld(ctx, o, logger, stdout)
		if err != nil {
			return err
		}
		series = append(series, s)
	}

	if o.models != "" {
		paths, err := config.Discover(o.models)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return errors.New("no model files match %s", o.models)
		}
		for _, path := range paths {
			s, err := solveFile(ctx, o, logger, stdout, path)
			if err != nil {
				return err
			}
			series = append(series, s)
		}
	}

	if len(series) == 0 {
		return errors.New("nothing to solve: pass -models or -gridworld")
	}
	if o.chart != "" {
		return writeChart(o.chart, series)
	}
	return nil
}

func solveGridworld(ctx context.Context, o options, logger *log.Logger, stdout io.Writer) (report.Series, error) {
	w := gridworld.Default()
	model, err := w.Model(0.9)
	if err != nil {
		return report.Series{}, err
	}
	solver, err := solve(ctx, o, logger, "gridworld", model, config.DefaultEpsilon, 0)
	if err != nil {
		return report.Series{}, err
	}
	values, _ := solver.Value()
	policy, _ := solver.Policy()

	au := aurora.NewAurora(o.colors)
	fmt.Fprintf(stdout, "%s (%d sweeps)\n", au.Bold(au.Cyan("gridworld")), solver.Sweeps())
	w.Render(stdout, values, policy, o.colors)
	if o.walk > 0 {
		if err := printWalk(stdout, model, policy, w.State(w.Rows-1, 0), o.walk, o.seed); err != nil {
			return report.Series{}, err
		}
	}
	return report.Series{Name: "gridworld", Deltas: solver.Deltas()}, nil
}

func solveFile(ctx context.Context, o options, logger *log.Logger, stdout io.Writer, path string) (report.Series, error) {
	m, err := config.Load(path)
	if err != nil {
		return report.Series{}, err
	}

	var agent *mdp.MDPAgent[string, string]
	if m.IsPOMDP() {
		pomdp, err := m.POMDP()
		if err != nil {
			return report.Series{}, err
		}
		if err := pomdp.Diagnose(); err != nil {
			return report.Series{}, errors.Wrapf(err, "model %s", m.Name)
		}
		// observations do not enter value iteration
		agent = pomdp.MDPAgent
	} else {
		if agent, err = m.Agent(); err != nil {
			return report.Series{}, err
		}
		if err := agent.Diagnose(); err != nil {
			return report.Series{}, errors.Wrapf(err, "model %s", m.Name)
		}
	}

	solver, err := solve(ctx, o, logger, m.Name, agent, m.Epsilon, m.MaxSweeps)
	if err != nil {
		return report.Series{}, err
	}
	values, _ := solver.Value()
	policy, _ := solver.Policy()
	report.Table(stdout, m.Name, agent.States(), values, policy, solver.Sweeps(), o.colors)
	if o.walk > 0 {
		if err := printWalk(stdout, agent, policy, 0, o.walk, o.seed); err != nil {
			return report.Series{}, err
		}
	}
	return report.Series{Name: m.Name, Deltas: solver.Deltas()}, nil
}

// solve runs value iteration, letting the command line flags override the
// model's own epsilon and sweep cap.
func solve[S, A comparable](ctx context.Context, o options, logger *log.Logger, name string, model mdp.Model[S, A], epsilon float64, maxSweeps int) (*vi.Solver[S, A], error) {
	if o.maxSweeps > 0 {
		maxSweeps = o.maxSweeps
	}
	if o.epsilon > 0 {
		epsilon = o.epsilon
	}
	solver, err := vi.New(model, epsilon,
		vi.WithMaxSweeps(maxSweeps),
		vi.WithLogger(logger),
		vi.WithObserver(func(s vi.Sweep) {
			logger.Printf("%s: sweep %d delta %g", name, s.Index, s.Delta)
		}))
	if err != nil {
		return nil, errors.Wrapf(err, "model %s", name)
	}
	if err := solver.SolveContext(ctx); err != nil {
		return nil, errors.Wrapf(err, "model %s", name)
	}
	return solver, nil
}

// printWalk samples the chain the policy induces, starting from the state
// at position start.
func printWalk[S, A comparable](out io.Writer, model mdp.Model[S, A], policy map[S]A, start, length int, seed uint64) error {
	chain, err := markov.FromPolicy(model, policy)
	if err != nil {
		return err
	}
	path, err := chain.RandomWalk(start, length, rand.NewPCG(seed, seed))
	if err != nil {
		return err
	}
	states := model.States()
	names := make([]string, len(path))
	for i, p := range path {
		names[i] = fmt.Sprint(states[p])
	}
	fmt.Fprintf(out, "  walk: %s\n", strings.Join(names, " -> "))
	return nil
}

func writeChart(path string, series []report.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "could not create chart")
	}
	if err := report.ConvergenceChart(f, series...); err != nil {
		f.Close()
		return errors.Wrapf(err, "could not render chart")
	}
	return f.Close()
}
