package mdp

import (
	"math"
	"slices"

	"github.com/CodeStranger-Fred/markov/errors"
	"gonum.org/v1/gonum/floats/scalar"
)

// DefaultTolerance is the absolute slack allowed when checking that a
// distribution sums to one or that the total reward is zero.
const DefaultTolerance = 1e-6

type settings struct {
	tolerance float64
}

// Option configures an agent at construction.
type Option func(*settings)

// WithTolerance sets the absolute tolerance used by Validate and Diagnose.
func WithTolerance(tol float64) Option {
	return func(s *settings) {
		s.tolerance = tol
	}
}

func applyOptions(opts []Option) (settings, error) {
	cfg := settings{tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.tolerance < 0 || math.IsNaN(cfg.tolerance) || math.IsInf(cfg.tolerance, 0) {
		return cfg, errors.Wrapf(ErrMalformedModel, "tolerance %g must be a finite non-negative number", cfg.tolerance)
	}
	return cfg, nil
}

// MDPAgent is an immutable finite MDP: ordered state and action sets, a
// transition provider, a reward provider and a discount factor.
type MDPAgent[S, A comparable] struct {
	states      []S
	actions     []A
	transitions TransitionModel[S, A]
	rewards     RewardModel[S, A]
	discount    float64
	tolerance   float64
}

// NewMDPAgent builds an MDP over explicit state and action sets. The order
// of states and actions is kept and used as enumeration order.
func NewMDPAgent[S, A comparable](states []S, actions []A, transitions TransitionModel[S, A], rewards RewardModel[S, A], discount float64, opts ...Option) (*MDPAgent[S, A], error) {
	if err := checkSet("state", states); err != nil {
		return nil, err
	}
	if err := checkSet("action", actions); err != nil {
		return nil, err
	}
	if transitions == nil || rewards == nil {
		return nil, errors.Wrapf(ErrMalformedModel, "transition and reward providers are required")
	}
	if err := CheckDiscount(discount); err != nil {
		return nil, err
	}
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &MDPAgent[S, A]{
		states:      slices.Clone(states),
		actions:     slices.Clone(actions),
		transitions: transitions,
		rewards:     rewards,
		discount:    discount,
		tolerance:   cfg.tolerance,
	}, nil
}

// NewMatrixMDPAgent builds a dense MDP with states 0..nbStates-1 and
// actions 0..nbActions-1 from arrays indexed [state][action][next state].
func NewMatrixMDPAgent(nbStates, nbActions int, transitions, rewards [][][]float64, discount float64, opts ...Option) (*MDPAgent[int, int], error) {
	t, err := NewMatrixTransition(nbStates, nbActions, transitions)
	if err != nil {
		return nil, err
	}
	r, err := NewMatrixReward(nbStates, nbActions, rewards)
	if err != nil {
		return nil, err
	}
	return NewMDPAgent[int, int](indices(nbStates), indices(nbActions), t, r, discount, opts...)
}

func (m *MDPAgent[S, A]) States() []S {
	return slices.Clone(m.states)
}

func (m *MDPAgent[S, A]) Actions() []A {
	return slices.Clone(m.actions)
}

func (m *MDPAgent[S, A]) Discount() float64 {
	return m.discount
}

func (m *MDPAgent[S, A]) Tolerance() float64 {
	return m.tolerance
}

func (m *MDPAgent[S, A]) Transition(s1 S, a A, s2 S) float64 {
	return m.transitions.Transition(s1, a, s2)
}

func (m *MDPAgent[S, A]) Reward(s1 S, a A, s2 S) float64 {
	return m.rewards.Reward(s1, a, s2)
}

// Validate reports whether every transition row sums to one and the reward
// signal is not zero everywhere.
func (m *MDPAgent[S, A]) Validate() bool {
	return m.Diagnose() == nil
}

// Diagnose runs the Validate checks and returns the first failure, wrapping
// ErrInvalidDistribution or ErrDegenerateReward.
func (m *MDPAgent[S, A]) Diagnose() error {
	var total float64
	for _, s1 := range m.states {
		for _, a := range m.actions {
			var sum float64
			for _, s2 := range m.states {
				sum += m.transitions.Transition(s1, a, s2)
				total += math.Abs(m.rewards.Reward(s1, a, s2))
			}
			if !scalar.EqualWithinAbs(sum, 1, m.tolerance) {
				return errors.Wrapf(ErrInvalidDistribution, "transition row (%v, %v) sums to %g", s1, a, sum)
			}
		}
	}
	if scalar.EqualWithinAbs(total, 0, m.tolerance) {
		return errors.Wrapf(ErrDegenerateReward, "total reward magnitude is %g", total)
	}
	return nil
}

func checkSet[K comparable](kind string, keys []K) error {
	if len(keys) == 0 {
		return errors.Wrapf(ErrMalformedModel, "%s set is empty", kind)
	}
	seen := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			return errors.Wrapf(ErrMalformedModel, "duplicate %s %v", kind, k)
		}
		seen[k] = struct{}{}
	}
	return nil
}
