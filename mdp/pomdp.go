package mdp

import (
	"slices"

	"github.com/CodeStranger-Fred/markov/errors"
	"gonum.org/v1/gonum/floats/scalar"
)

// POMDPAgent is an MDPAgent whose state is observed only through an
// emission model. The embedded MDP is the underlying fully observable
// process and can be handed to any solver as is.
type POMDPAgent[S, A, O comparable] struct {
	*MDPAgent[S, A]
	observations []O
	emissions    EmissionModel[S, A, O]
}

func NewPOMDPAgent[S, A, O comparable](states []S, actions []A, observations []O, transitions TransitionModel[S, A], emissions EmissionModel[S, A, O], rewards RewardModel[S, A], discount float64, opts ...Option) (*POMDPAgent[S, A, O], error) {
	m, err := NewMDPAgent(states, actions, transitions, rewards, discount, opts...)
	if err != nil {
		return nil, err
	}
	if err := checkSet("observation", observations); err != nil {
		return nil, err
	}
	if emissions == nil {
		return nil, errors.Wrapf(ErrMalformedModel, "emission provider is required")
	}
	return &POMDPAgent[S, A, O]{
		MDPAgent:     m,
		observations: slices.Clone(observations),
		emissions:    emissions,
	}, nil
}

// NewMatrixPOMDPAgent is the dense counterpart of NewMatrixMDPAgent;
// emissions are indexed [state][action][observation].
func NewMatrixPOMDPAgent(nbStates, nbActions, nbObservations int, transitions, emissions, rewards [][][]float64, discount float64, opts ...Option) (*POMDPAgent[int, int, int], error) {
	t, err := NewMatrixTransition(nbStates, nbActions, transitions)
	if err != nil {
		return nil, err
	}
	e, err := NewMatrixEmission(nbStates, nbActions, nbObservations, emissions)
	if err != nil {
		return nil, err
	}
	r, err := NewMatrixReward(nbStates, nbActions, rewards)
	if err != nil {
		return nil, err
	}
	return NewPOMDPAgent[int, int, int](indices(nbStates), indices(nbActions), indices(nbObservations), t, e, r, discount, opts...)
}

func (p *POMDPAgent[S, A, O]) Observations() []O {
	return slices.Clone(p.observations)
}

func (p *POMDPAgent[S, A, O]) Emission(s S, a A, o O) float64 {
	return p.emissions.Emission(s, a, o)
}

// Validate reports whether both the MDP checks and the emission check pass.
func (p *POMDPAgent[S, A, O]) Validate() bool {
	return p.Diagnose() == nil
}

func (p *POMDPAgent[S, A, O]) Diagnose() error {
	if err := p.MDPAgent.Diagnose(); err != nil {
		return err
	}
	for _, s := range p.states {
		for _, a := range p.actions {
			var sum float64
			for _, o := range p.observations {
				sum += p.emissions.Emission(s, a, o)
			}
			if !scalar.EqualWithinAbs(sum, 1, p.tolerance) {
				return errors.Wrapf(ErrInvalidDistribution, "emission row (%v, %v) sums to %g", s, a, sum)
			}
		}
	}
	return nil
}
