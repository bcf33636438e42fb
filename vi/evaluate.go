package vi

import (
	"math"

	"github.com/CodeStranger-Fred/markov/errors"
	"github.com/CodeStranger-Fred/markov/mdp"
	"gonum.org/v1/gonum/floats"
)

// EvaluatePolicy computes the value of following policy in model, sweeping
// synchronously until the change drops to epsilon(1-gamma)/gamma.
func EvaluatePolicy[S, A comparable](model mdp.Model[S, A], policy map[S]A, epsilon float64) (map[S]float64, error) {
	if !(epsilon > 0) || math.IsInf(epsilon, 1) {
		return nil, errors.Wrapf(ErrInvalidEpsilon, "epsilon %g must be positive and finite", epsilon)
	}
	gamma := model.Discount()
	if err := mdp.CheckDiscount(gamma); err != nil {
		return nil, err
	}
	states := model.States()
	actions := make([]A, len(states))
	for i, s := range states {
		a, ok := policy[s]
		if !ok {
			return nil, errors.Wrapf(mdp.ErrMalformedModel, "policy has no action for state %v", s)
		}
		actions[i] = a
	}

	threshold := epsilon * (1 - gamma) / gamma
	V := make([]float64, len(states))
	next := make([]float64, len(states))
	for {
		for i, s0 := range states {
			var v1 float64
			for k, s1 := range states {
				p := model.Transition(s0, actions[i], s1)
				if p == 0 {
					continue
				}
				v1 += p * (model.Reward(s0, actions[i], s1) + gamma*V[k])
			}
			next[i] = v1
		}
		delta := floats.Distance(next, V, math.Inf(1))
		if !finite(delta) || !allFinite(next) {
			return nil, errors.Wrapf(ErrNoConvergence, "policy values diverged")
		}
		V, next = next, V
		if delta <= threshold {
			break
		}
	}

	out := make(map[S]float64, len(states))
	for i, s := range states {
		out[s] = V[i]
	}
	return out, nil
}
