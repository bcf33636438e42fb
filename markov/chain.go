// Package markov holds finite Markov chains: the process an MDP reduces to
// once a policy fixes the action taken in every state.
package markov

import (
	"fmt"
	"math/rand/v2"

	"github.com/CodeStranger-Fred/markov/errors"
	"github.com/CodeStranger-Fred/markov/mdp"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Chain is an immutable row-stochastic transition matrix over states
// 0..Len()-1.
type Chain struct {
	p *mat.Dense
	n int
}

// NewChain checks that transitions is square, that every entry lies in
// [0, 1] and that every row sums to one within mdp.DefaultTolerance.
func NewChain(transitions [][]float64) (*Chain, error) {
	return newChain(transitions, mdp.DefaultTolerance)
}

func newChain(transitions [][]float64, tolerance float64) (*Chain, error) {
	n := len(transitions)
	if n == 0 {
		return nil, errors.Wrapf(mdp.ErrMalformedModel, "chain has no states")
	}
	data := make([]float64, 0, n*n)
	for i, row := range transitions {
		if len(row) != n {
			return nil, errors.Wrapf(mdp.ErrMalformedModel, "row %d has length %d for %d states", i, len(row), n)
		}
		for j, p := range row {
			if !(p >= 0 && p <= 1) {
				return nil, errors.Wrapf(mdp.ErrInvalidDistribution, "P(%d, %d) = %g is not a probability", i, j, p)
			}
		}
		if sum := floats.Sum(row); !scalar.EqualWithinAbs(sum, 1, tolerance) {
			return nil, errors.Wrapf(mdp.ErrInvalidDistribution, "row %d sums to %g", i, sum)
		}
		data = append(data, row...)
	}
	return &Chain{p: mat.NewDense(n, n, data), n: n}, nil
}

// FromPolicy returns the chain induced on model by always playing
// policy[s] in state s. States are numbered in model.States() order.
func FromPolicy[S, A comparable](model mdp.Model[S, A], policy map[S]A) (*Chain, error) {
	states := model.States()
	rows := make([][]float64, len(states))
	for i, s := range states {
		a, ok := policy[s]
		if !ok {
			return nil, errors.Wrapf(mdp.ErrMalformedModel, "policy has no action for state %v", s)
		}
		rows[i] = make([]float64, len(states))
		for k, s2 := range states {
			rows[i][k] = model.Transition(s, a, s2)
		}
	}
	tolerance := mdp.DefaultTolerance
	if t, ok := model.(interface{ Tolerance() float64 }); ok {
		tolerance = t.Tolerance()
	}
	return newChain(rows, tolerance)
}

func (c *Chain) Len() int {
	return c.n
}

// Probability panics if i or j is out of range.
func (c *Chain) Probability(i, j int) float64 {
	return c.p.At(i, j)
}

// Distribution propagates the state distribution initial through steps
// transitions.
func (c *Chain) Distribution(initial []float64, steps int) ([]float64, error) {
	if len(initial) != c.n {
		return nil, errors.Wrapf(mdp.ErrMalformedModel, "initial distribution has length %d for %d states", len(initial), c.n)
	}
	if steps < 0 {
		return nil, errors.New("negative step count %d", steps)
	}
	x := mat.NewVecDense(c.n, append([]float64(nil), initial...))
	next := mat.NewVecDense(c.n, nil)
	for t := 0; t < steps; t++ {
		next.MulVec(c.p.T(), x)
		x, next = next, x
	}
	return x.RawVector().Data, nil
}

// RandomWalk samples a trajectory of length states starting at start,
// drawing from src.
func (c *Chain) RandomWalk(start, length int, src rand.Source) ([]int, error) {
	if start < 0 || start >= c.n {
		return nil, errors.Wrapf(mdp.ErrMalformedModel, "start state %d out of range for %d states", start, c.n)
	}
	if length < 1 {
		return nil, errors.New("walk length %d must be positive", length)
	}
	samplers := make([]sampleuv.Weighted, c.n)
	for i := range samplers {
		samplers[i] = sampleuv.NewWeighted(mat.Row(nil, i, c.p), src)
	}

	walk := make([]int, 1, length)
	walk[0] = start
	current := start
	for len(walk) < length {
		next, ok := samplers[current].Take()
		if !ok {
			return walk, errors.New("state %d has no outgoing transition", current)
		}
		// Take draws without replacement; put the weight back.
		samplers[current].Reweight(next, c.p.At(current, next))
		walk = append(walk, next)
		current = next
	}
	return walk, nil
}

func (c *Chain) String() string {
	return fmt.Sprintf("s: %d,\nt: \n%v", c.n, mat.Formatted(c.p, mat.Prefix(" "), mat.Squeeze()))
}
