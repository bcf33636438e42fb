// Package config reads MDP and POMDP definitions from YAML files.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/CodeStranger-Fred/markov/errors"
	"github.com/CodeStranger-Fred/markov/mdp"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

const DefaultEpsilon = 0.01

// Model is one model file. Sets are given either by name (States) or by
// size (NumStates), in which case the names are "0", "1", ... A nil
// Tolerance means mdp.DefaultTolerance.
type Model struct {
	Name            string        `yaml:"name"`
	Discount        float64       `yaml:"discount"`
	Epsilon         float64       `yaml:"epsilon"`
	Tolerance       *float64      `yaml:"tolerance"`
	MaxSweeps       int           `yaml:"max_sweeps"`
	States          []string      `yaml:"states"`
	NumStates       int           `yaml:"num_states"`
	Actions         []string      `yaml:"actions"`
	NumActions      int           `yaml:"num_actions"`
	Observations    []string      `yaml:"observations"`
	NumObservations int           `yaml:"num_observations"`
	Transitions     [][][]float64 `yaml:"transitions"`
	Rewards         [][][]float64 `yaml:"rewards"`
	Emissions       [][][]float64 `yaml:"emissions"`

	Path string `yaml:"-"`
}

// Load reads and parses the model at path. A model without a name is named
// after its file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read model")
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "error loading %s", path)
	}
	m.Path = path
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return m, nil
}

// Parse decodes a single YAML document. Unknown keys are an error.
func Parse(data []byte) (*Model, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	m := &Model{}
	if err := dec.Decode(m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.Wrapf(mdp.ErrMalformedModel, "empty model")
		}
		return nil, errors.Wrapf(mdp.ErrMalformedModel, "%v", err)
	}
	if err := m.normalize(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) normalize() error {
	var err error
	if m.States, m.NumStates, err = names("state", m.States, m.NumStates); err != nil {
		return err
	}
	if m.Actions, m.NumActions, err = names("action", m.Actions, m.NumActions); err != nil {
		return err
	}
	if m.IsPOMDP() {
		if m.Observations, m.NumObservations, err = names("observation", m.Observations, m.NumObservations); err != nil {
			return err
		}
	}
	if m.Epsilon == 0 {
		m.Epsilon = DefaultEpsilon
	}
	if m.Tolerance == nil {
		tol := mdp.DefaultTolerance
		m.Tolerance = &tol
	}
	if m.MaxSweeps < 0 {
		return errors.Wrapf(mdp.ErrMalformedModel, "max_sweeps is %d", m.MaxSweeps)
	}
	return nil
}

func names(kind string, given []string, n int) ([]string, int, error) {
	switch {
	case len(given) == 0 && n <= 0:
		return nil, 0, errors.Wrapf(mdp.ErrMalformedModel, "no %ss given", kind)
	case len(given) == 0:
		given = make([]string, n)
		for i := range given {
			given[i] = strconv.Itoa(i)
		}
	case n != 0 && n != len(given):
		return nil, 0, errors.Wrapf(mdp.ErrMalformedModel, "%d %ss named but num_%ss is %d", len(given), kind, kind, n)
	}
	return given, len(given), nil
}

func (m *Model) tolerance() float64 {
	if m.Tolerance == nil {
		return mdp.DefaultTolerance
	}
	return *m.Tolerance
}

// IsPOMDP reports whether the file describes observations.
func (m *Model) IsPOMDP() bool {
	return len(m.Emissions) > 0 || len(m.Observations) > 0 || m.NumObservations > 0
}

// Agent builds the fully observable part of the model. Queries with a name
// outside the declared sets panic.
func (m *Model) Agent() (*mdp.MDPAgent[string, string], error) {
	t, err := mdp.NewMatrixTransition(m.NumStates, m.NumActions, m.Transitions)
	if err != nil {
		return nil, errors.Wrapf(err, "model %s", m.Name)
	}
	r, err := mdp.NewMatrixReward(m.NumStates, m.NumActions, m.Rewards)
	if err != nil {
		return nil, errors.Wrapf(err, "model %s", m.Name)
	}
	si, ai := index("state", m.States), index("action", m.Actions)
	agent, err := mdp.NewMDPAgent(m.States, m.Actions,
		mdp.TransitionFunc[string, string](func(s1, a, s2 string) float64 {
			return t.Transition(si(s1), ai(a), si(s2))
		}),
		mdp.RewardFunc[string, string](func(s1, a, s2 string) float64 {
			return r.Reward(si(s1), ai(a), si(s2))
		}),
		m.Discount, mdp.WithTolerance(m.tolerance()))
	return agent, errors.Wrapf(err, "model %s", m.Name)
}

// POMDP builds the model with its observation set and emission table.
func (m *Model) POMDP() (*mdp.POMDPAgent[string, string, string], error) {
	if !m.IsPOMDP() {
		return nil, errors.Wrapf(mdp.ErrMalformedModel, "model %s has no observations", m.Name)
	}
	agent, err := m.Agent()
	if err != nil {
		return nil, err
	}
	e, err := mdp.NewMatrixEmission(m.NumStates, m.NumActions, m.NumObservations, m.Emissions)
	if err != nil {
		return nil, errors.Wrapf(err, "model %s", m.Name)
	}
	si, ai, oi := index("state", m.States), index("action", m.Actions), index("observation", m.Observations)
	pomdp, err := mdp.NewPOMDPAgent(m.States, m.Actions, m.Observations, agent,
		mdp.EmissionFunc[string, string, string](func(s, a, o string) float64 {
			return e.Emission(si(s), ai(a), oi(o))
		}),
		agent, m.Discount, mdp.WithTolerance(m.tolerance()))
	return pomdp, errors.Wrapf(err, "model %s", m.Name)
}

func index(kind string, keys []string) func(string) int {
	pos := make(map[string]int, len(keys))
	for i, k := range keys {
		pos[k] = i
	}
	return func(k string) int {
		i, ok := pos[k]
		if !ok {
			panic(fmt.Sprintf("config: unknown %s %q", kind, k))
		}
		return i
	}
}

// Discover expands doublestar patterns such as "models/**/*.yaml" and
// returns the matching paths sorted and without duplicates.
func Discover(patterns ...string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid glob pattern '%s'", pattern)
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)
	return slices.Compact(paths), nil
}
