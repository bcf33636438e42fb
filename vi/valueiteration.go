// Package vi computes optimal value functions and greedy policies of finite
// MDPs by synchronous value iteration.
package vi

import (
	"context"
	"math"

	"github.com/CodeStranger-Fred/markov/errors"
	"github.com/CodeStranger-Fred/markov/mdp"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidEpsilon reports a convergence tolerance that is not a
	// positive finite number.
	ErrInvalidEpsilon = errors.Sentinel("invalid epsilon")
	// ErrNoConvergence reports a solve that hit the sweep cap or whose
	// values stopped being finite.
	ErrNoConvergence = errors.Sentinel("no convergence")
)

type Status int

const (
	Uninitialized Status = iota
	Solving
	Converged
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Solving:
		return "solving"
	case Converged:
		return "converged"
	}
	return "unknown"
}

// Solver runs value iteration against a borrowed, read-only model. It is not
// safe for concurrent use; separate solvers may share one model.
type Solver[S, A comparable] struct {
	model   mdp.Model[S, A]
	epsilon float64
	cfg     settings

	states  []S
	actions []A
	gamma   float64

	status Status
	values []float64
	policy []int
	deltas []float64
}

// New checks the model and tolerance and returns an unsolved Solver.
func New[S, A comparable](model mdp.Model[S, A], epsilon float64, opts ...Option) (*Solver[S, A], error) {
	if !(epsilon > 0) || math.IsInf(epsilon, 1) {
		return nil, errors.Wrapf(ErrInvalidEpsilon, "epsilon %g must be positive and finite", epsilon)
	}
	gamma := model.Discount()
	if err := mdp.CheckDiscount(gamma); err != nil {
		return nil, err
	}
	states, actions := model.States(), model.Actions()
	if len(states) == 0 || len(actions) == 0 {
		return nil, errors.Wrapf(mdp.ErrMalformedModel, "model has %d states and %d actions", len(states), len(actions))
	}
	return &Solver[S, A]{
		model:   model,
		epsilon: epsilon,
		cfg:     newSettings(opts),
		states:  states,
		actions: actions,
		gamma:   gamma,
	}, nil
}

func (v *Solver[S, A]) Status() Status {
	return v.status
}

// Threshold is the sup-norm change below which a sweep stops the solve:
// epsilon(1-gamma)/gamma.
func (v *Solver[S, A]) Threshold() float64 {
	return v.epsilon * (1 - v.gamma) / v.gamma
}

// Solve runs value iteration from a zero value function until convergence.
func (v *Solver[S, A]) Solve() error {
	return v.SolveContext(context.Background())
}

// SolveContext is Solve with cancellation. The context is only checked
// between sweeps.
func (v *Solver[S, A]) SolveContext(ctx context.Context) error {
	n := len(v.states)
	v.status = Solving
	v.values = make([]float64, n)
	v.policy = make([]int, n)
	v.deltas = v.deltas[:0]

	threshold := v.Threshold()
	next := make([]float64, n)
	for {
		if err := ctx.Err(); err != nil {
			v.status = Uninitialized
			return errors.Wrapf(err, "value iteration stopped after %d sweeps", len(v.deltas))
		}

		v.sweep(next)
		delta := floats.Distance(next, v.values, math.Inf(1))
		if !finite(delta) || !allFinite(next) {
			v.status = Uninitialized
			v.cfg.logger.Printf("value iteration diverged at sweep %d", len(v.deltas)+1)
			return errors.Wrapf(ErrNoConvergence, "values diverged at sweep %d", len(v.deltas)+1)
		}
		v.values, next = next, v.values
		v.deltas = append(v.deltas, delta)

		sweep := Sweep{Index: len(v.deltas), Delta: delta}
		if v.cfg.observer != nil {
			v.cfg.observer(sweep)
		}

		if delta <= threshold {
			v.status = Converged
			v.cfg.logger.Printf("value iteration converged after %d sweeps (delta %g <= %g)", sweep.Index, delta, threshold)
			return nil
		}
		if v.cfg.maxSweeps > 0 && sweep.Index >= v.cfg.maxSweeps {
			v.status = Uninitialized
			v.cfg.logger.Printf("value iteration gave up after %d sweeps (delta %g > %g)", sweep.Index, delta, threshold)
			return errors.Wrapf(ErrNoConvergence, "delta %g still above %g after %d sweeps", delta, threshold, sweep.Index)
		}
	}
}

// sweep writes one Bellman optimality backup of v.values into next and
// records the greedy action of every state.
func (v *Solver[S, A]) sweep(next []float64) {
	for i := range v.states {
		best := v.backup(i, 0)
		bestAction := 0
		for j := 1; j < len(v.actions); j++ {
			if q := v.backup(i, j); q > best {
				best = q
				bestAction = j
			}
		}
		next[i] = best
		v.policy[i] = bestAction
	}
}

// backup is Q(s,a) against the previous sweep's values.
func (v *Solver[S, A]) backup(i, j int) (q float64) {
	s, a := v.states[i], v.actions[j]
	for k, s2 := range v.states {
		p := v.model.Transition(s, a, s2)
		if p == 0 {
			continue
		}
		q += p * (v.model.Reward(s, a, s2) + v.gamma*v.values[k])
	}
	return
}

func (v *Solver[S, A]) solved() error {
	if v.status != Converged {
		return errors.Wrapf(mdp.ErrNotSolved, "solver is %s", v.status)
	}
	return nil
}

// Value returns the converged value function.
func (v *Solver[S, A]) Value() (map[S]float64, error) {
	if err := v.solved(); err != nil {
		return nil, err
	}
	out := make(map[S]float64, len(v.states))
	for i, s := range v.states {
		out[s] = v.values[i]
	}
	return out, nil
}

// ValueVector returns the converged values ordered like the model's states.
func (v *Solver[S, A]) ValueVector() (*mat.VecDense, error) {
	if err := v.solved(); err != nil {
		return nil, err
	}
	return mat.NewVecDense(len(v.values), append([]float64(nil), v.values...)), nil
}

// Policy returns the greedy policy of the last sweep.
func (v *Solver[S, A]) Policy() (map[S]A, error) {
	if err := v.solved(); err != nil {
		return nil, err
	}
	out := make(map[S]A, len(v.states))
	for i, s := range v.states {
		out[s] = v.actions[v.policy[i]]
	}
	return out, nil
}

// Sweeps is the number of sweeps run by the last solve.
func (v *Solver[S, A]) Sweeps() int {
	return len(v.deltas)
}

// Deltas returns the sup-norm change of every sweep of the last solve.
func (v *Solver[S, A]) Deltas() []float64 {
	return append([]float64(nil), v.deltas...)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func allFinite(xs []float64) bool {
	for _, x := range xs {
		if !finite(x) {
			return false
		}
	}
	return true
}
