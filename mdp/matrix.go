package mdp

import (
	"fmt"

	"github.com/CodeStranger-Fred/markov/errors"
	"gonum.org/v1/gonum/mat"
)

// table holds a dense [outer][middle][inner] array, one matrix per outer
// index with middle rows and inner columns.
type table struct {
	name                 string
	outer, middle, inner int
	slabs                []*mat.Dense
}

func newTable(name, innerKind string, outer, middle, inner int, values [][][]float64) (*table, error) {
	if outer <= 0 || middle <= 0 || inner <= 0 {
		return nil, errors.Wrapf(ErrMalformedModel, "%s: dimensions %dx%dx%d must be positive", name, outer, middle, inner)
	}
	if len(values) != outer {
		return nil, errors.Wrapf(ErrMalformedModel, "%s has size %d for %d states", name, len(values), outer)
	}
	t := &table{
		name:   name,
		outer:  outer,
		middle: middle,
		inner:  inner,
		slabs:  make([]*mat.Dense, outer),
	}
	for i, rows := range values {
		if len(rows) != middle {
			return nil, errors.Wrapf(ErrMalformedModel, "%s[%d] has size %d for %d actions", name, i, len(rows), middle)
		}
		data := make([]float64, 0, middle*inner)
		for j, row := range rows {
			if len(row) != inner {
				return nil, errors.Wrapf(ErrMalformedModel, "%s[%d][%d] has size %d for %d %s", name, i, j, len(row), inner, innerKind)
			}
			data = append(data, row...)
		}
		t.slabs[i] = mat.NewDense(middle, inner, data)
	}
	return t, nil
}

func (t *table) at(i, j, k int) float64 {
	if i < 0 || i >= t.outer || j < 0 || j >= t.middle || k < 0 || k >= t.inner {
		panic(fmt.Sprintf("%s: index (%d, %d, %d) out of range for %dx%dx%d", t.name, i, j, k, t.outer, t.middle, t.inner))
	}
	return t.slabs[i].At(j, k)
}

// MatrixTransition is a TransitionModel over dense integer states and
// actions. Values are stored as given, without normalization.
type MatrixTransition struct {
	t *table
}

// NewMatrixTransition builds a transition table from values indexed
// [state][action][next state].
func NewMatrixTransition(nbStates, nbActions int, values [][][]float64) (*MatrixTransition, error) {
	t, err := newTable("transition", "states", nbStates, nbActions, nbStates, values)
	if err != nil {
		return nil, err
	}
	return &MatrixTransition{t: t}, nil
}

// Transition panics if any index is out of range.
func (m *MatrixTransition) Transition(s1, a, s2 int) float64 {
	return m.t.at(s1, a, s2)
}

// MatrixReward is a RewardModel over dense integer states and actions.
type MatrixReward struct {
	t *table
}

// NewMatrixReward builds a reward table from values indexed
// [state][action][next state].
func NewMatrixReward(nbStates, nbActions int, values [][][]float64) (*MatrixReward, error) {
	t, err := newTable("reward", "states", nbStates, nbActions, nbStates, values)
	if err != nil {
		return nil, err
	}
	return &MatrixReward{t: t}, nil
}

// Reward panics if any index is out of range.
func (m *MatrixReward) Reward(s1, a, s2 int) float64 {
	return m.t.at(s1, a, s2)
}

// MatrixEmission is an EmissionModel over dense integer states, actions and
// observations.
type MatrixEmission struct {
	t *table
}

// NewMatrixEmission builds an emission table from values indexed
// [state][action][observation].
func NewMatrixEmission(nbStates, nbActions, nbObservations int, values [][][]float64) (*MatrixEmission, error) {
	t, err := newTable("emission", "observations", nbStates, nbActions, nbObservations, values)
	if err != nil {
		return nil, err
	}
	return &MatrixEmission{t: t}, nil
}

// Emission panics if any index is out of range.
func (m *MatrixEmission) Emission(s, a, o int) float64 {
	return m.t.at(s, a, o)
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
