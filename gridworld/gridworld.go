// Package gridworld builds the stochastic windy gridworld as an MDP: an
// agent moves on a Rows x Cols board while a per-column wind pushes it
// upwards by zero, one or two extra cells.
package gridworld

import (
	"fmt"
	"io"
	"math"

	"github.com/CodeStranger-Fred/markov/errors"
	"github.com/CodeStranger-Fred/markov/mdp"
	"github.com/logrusorgru/aurora"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// Actions are listed in the order the solver breaks ties in.
var Actions = []string{"left", "right", "up", "down"}

type WindyGridWorld struct {
	Rows     int
	Cols     int
	BaseWind []int
	// StochasticWind0, 1 and 2 are the probabilities that the wind adds
	// nothing, BaseWind[col] or BaseWind[col]+1 rows of upward drift.
	StochasticWind0 float64
	StochasticWind1 float64
	StochasticWind2 float64
	StepReward      float64
}

// Default is the 4x4 board with winds 1,2,2,1 and a 0.1/0.8/0.1 gust.
func Default() WindyGridWorld {
	return WindyGridWorld{
		Rows:            4,
		Cols:            4,
		BaseWind:        []int{1, 2, 2, 1},
		StochasticWind0: 0.1,
		StochasticWind1: 0.8,
		StochasticWind2: 0.1,
		StepReward:      -1,
	}
}

func (w WindyGridWorld) Check() error {
	if w.Rows < 1 || w.Cols < 1 {
		return errors.Wrapf(mdp.ErrMalformedModel, "board is %dx%d", w.Rows, w.Cols)
	}
	if len(w.BaseWind) != w.Cols {
		return errors.Wrapf(mdp.ErrMalformedModel, "%d wind values for %d columns", len(w.BaseWind), w.Cols)
	}
	for c, b := range w.BaseWind {
		if b < 0 {
			return errors.Wrapf(mdp.ErrMalformedModel, "negative wind %d in column %d", b, c)
		}
	}
	gusts := []float64{w.StochasticWind0, w.StochasticWind1, w.StochasticWind2}
	for _, p := range gusts {
		if !(p >= 0 && p <= 1) {
			return errors.Wrapf(mdp.ErrInvalidDistribution, "wind probability %g", p)
		}
	}
	if sum := floats.Sum(gusts); !scalar.EqualWithinAbs(sum, 1, 1e-9) {
		return errors.Wrapf(mdp.ErrInvalidDistribution, "wind probabilities sum to %g", sum)
	}
	if math.IsNaN(w.StepReward) || math.IsInf(w.StepReward, 0) || w.StepReward == 0 {
		return errors.Wrapf(mdp.ErrDegenerateReward, "step reward %g", w.StepReward)
	}
	return nil
}

// Model returns the board as an agent over states 0..Rows*Cols-1. The top
// left and bottom right corners are absorbing and pay nothing.
func (w WindyGridWorld) Model(discount float64, opts ...mdp.Option) (*mdp.MDPAgent[int, string], error) {
	if err := w.Check(); err != nil {
		return nil, err
	}
	states := make([]int, w.Rows*w.Cols)
	for s := range states {
		states[s] = s
	}
	return mdp.NewMDPAgent[int, string](states, Actions, w, w, discount, opts...)
}

func (w WindyGridWorld) Terminal(s int) bool {
	return s == 0 || s == w.Rows*w.Cols-1
}

func (w WindyGridWorld) Transition(s0 int, a string, s1 int) float64 {
	if w.Terminal(s0) {
		if s1 == s0 {
			return 1
		}
		return 0
	}
	shifted := w.Shift(s0, a)
	r, c := w.Coordinates(shifted)
	var p float64
	if s1 == shifted {
		p += w.StochasticWind0
	}
	if s1 == w.State(w.ClipRow(r-w.BaseWind[c]), c) {
		p += w.StochasticWind1
	}
	if s1 == w.State(w.ClipRow(r-w.BaseWind[c]-1), c) {
		p += w.StochasticWind2
	}
	return p
}

func (w WindyGridWorld) Reward(s0 int, a string, s1 int) float64 {
	if w.Terminal(s0) {
		return 0
	}
	return w.StepReward
}

func (w WindyGridWorld) State(r, c int) int {
	if r < 0 || c < 0 || r >= w.Rows || c >= w.Cols {
		panic(fmt.Sprintf("gridworld: (%d, %d) is off the %dx%d board", r, c, w.Rows, w.Cols))
	}
	return r*w.Cols + c
}

func (w WindyGridWorld) Coordinates(s int) (int, int) {
	if s < 0 || s >= w.Rows*w.Cols {
		panic(fmt.Sprintf("gridworld: state %d is off the %dx%d board", s, w.Rows, w.Cols))
	}
	return s / w.Cols, s % w.Cols
}

// Shift moves one cell in direction a, staying on the board.
func (w WindyGridWorld) Shift(s int, a string) int {
	r, c := w.Coordinates(s)
	switch a {
	case "up":
		r--
	case "down":
		r++
	case "right":
		c++
	case "left":
		c--
	default:
		panic("gridworld: unhandled action: " + a)
	}
	return w.State(w.ClipRow(r), w.ClipCol(c))
}

func (w WindyGridWorld) ClipRow(r int) int {
	return min(max(r, 0), w.Rows-1)
}

func (w WindyGridWorld) ClipCol(c int) int {
	return min(max(c, 0), w.Cols-1)
}

var arrows = map[string]string{"left": "<", "right": ">", "up": "^", "down": "v"}

// RenderState prints the board with current highlighted.
func (w WindyGridWorld) RenderState(out io.Writer, current int, colors bool) {
	au := aurora.NewAurora(colors)
	for r := 0; r < w.Rows; r++ {
		for c := 0; c < w.Cols; c++ {
			st := w.State(r, c)
			cell := fmt.Sprintf("%5d ", st)
			if st == current {
				fmt.Fprint(out, au.Green(cell))
			} else {
				fmt.Fprint(out, au.Blue(cell))
			}
			fmt.Fprint(out, au.White("|"))
		}
		fmt.Fprintln(out)
	}
}

// Render prints each cell's value followed by its policy arrow. Terminal
// cells are drawn in green and show no arrow.
func (w WindyGridWorld) Render(out io.Writer, values map[int]float64, policy map[int]string, colors bool) {
	au := aurora.NewAurora(colors)
	for r := 0; r < w.Rows; r++ {
		for c := 0; c < w.Cols; c++ {
			st := w.State(r, c)
			cell := format2x2(values[st])
			if w.Terminal(st) {
				fmt.Fprint(out, au.Green(cell+"  "))
			} else {
				fmt.Fprint(out, au.Blue(cell), " ", au.Yellow(arrows[policy[st]]))
			}
			fmt.Fprint(out, au.White("|"))
		}
		fmt.Fprintln(out)
	}
}

func format2x2(x float64) string {
	if x < 0 {
		return " -" + fmt.Sprintf("%05.2f", -x)
	}
	return fmt.Sprintf(" %05.2f", x)
}
