package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/CodeStranger-Fred/markov/mdp"
	"github.com/CodeStranger-Fred/markov/vi"
)

func load(t *testing.T, path string) *Model {
	t.Helper()
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%s): %v", path, err)
	}
	return m
}

func TestStudentRoundTrip(t *testing.T) {
	m := load(t, "testdata/student.yaml")
	if m.Name != "student" || m.NumStates != 4 || m.NumActions != 2 || m.IsPOMDP() {
		t.Fatalf("unexpected model %+v", m)
	}
	agent, err := m.Agent()
	if err != nil {
		t.Fatalf("Agent: %v", err)
	}
	if err := agent.Diagnose(); err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	solver, err := vi.New(agent, m.Epsilon)
	if err != nil {
		t.Fatalf("vi.New: %v", err)
	}
	if err := solver.Solve(); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	values, _ := solver.Value()
	policy, _ := solver.Policy()
	for s, want := range map[string]float64{"class1": 24.3060, "class2": 27.6831, "facebook": 19.8851, "passed": 19.9908} {
		if math.Abs(values[s]-want) > 0.0002 {
			t.Errorf("U(%s) = %.4f, want %.4f", s, values[s], want)
		}
	}
	for s, want := range map[string]string{"class1": "study", "class2": "study", "facebook": "study", "passed": "distract"} {
		if policy[s] != want {
			t.Errorf("policy(%s) = %s, want %s", s, policy[s], want)
		}
	}
}

func TestTigerPOMDP(t *testing.T) {
	m := load(t, "testdata/nested/tiger.yaml")
	if m.Name != "tiger" {
		t.Errorf("name %q should come from the file name", m.Name)
	}
	if !m.IsPOMDP() || m.NumObservations != 2 || *m.Tolerance != 1e-9 {
		t.Fatalf("unexpected model %+v", m)
	}
	pomdp, err := m.POMDP()
	if err != nil {
		t.Fatalf("POMDP: %v", err)
	}
	if err := pomdp.Diagnose(); err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if got := pomdp.Emission("tiger_left", "listen", "roar_left"); got != 0.85 {
		t.Errorf("E(tiger_left, listen, roar_left) = %g", got)
	}
	if got := pomdp.Reward("tiger_right", "open_right", "tiger_right"); got != -100 {
		t.Errorf("R(tiger_right, open_right, tiger_right) = %g", got)
	}
	if !slices.Equal(pomdp.Observations(), []string{"roar_left", "roar_right"}) {
		t.Errorf("observations %v", pomdp.Observations())
	}
}

func TestSizedSets(t *testing.T) {
	m := load(t, "testdata/dense.yaml")
	if !slices.Equal(m.States, []string{"0", "1"}) || !slices.Equal(m.Actions, []string{"0"}) {
		t.Errorf("generated names %v %v", m.States, m.Actions)
	}
	if m.Epsilon != DefaultEpsilon || *m.Tolerance != mdp.DefaultTolerance || m.MaxSweeps != 100 {
		t.Errorf("defaults not applied: %+v", m)
	}
	agent, err := m.Agent()
	if err != nil {
		t.Fatalf("Agent: %v", err)
	}
	if !agent.Validate() {
		t.Errorf("Validate: %v", agent.Diagnose())
	}
}

func TestZeroTolerance(t *testing.T) {
	const doc = `
discount: 0.9
states: [a, b]
actions: [x]
transitions: [[[0.5, 0.500000001]], [[0, 1]]]
rewards: [[[1, 0]], [[0, 1]]]
`
	exact, err := Parse([]byte(doc + "tolerance: 0\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if *exact.Tolerance != 0 {
		t.Fatalf("tolerance 0 replaced by %g", *exact.Tolerance)
	}
	agent, err := exact.Agent()
	if err != nil {
		t.Fatalf("Agent: %v", err)
	}
	if err := agent.Diagnose(); !errors.Is(err, mdp.ErrInvalidDistribution) {
		t.Errorf("expected ErrInvalidDistribution with an exact check, got %v", err)
	}

	loose, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if agent, err = loose.Agent(); err != nil {
		t.Fatalf("Agent: %v", err)
	}
	if err := agent.Diagnose(); err != nil {
		t.Errorf("default tolerance should accept the row: %v", err)
	}

	// a Model built in code without Parse falls back to the default
	m := &Model{Discount: 0.9, States: []string{"a"}, NumStates: 1, Actions: []string{"x"}, NumActions: 1,
		Transitions: [][][]float64{{{1}}}, Rewards: [][][]float64{{{1}}}}
	if agent, err = m.Agent(); err != nil || agent.Tolerance() != mdp.DefaultTolerance {
		t.Errorf("Agent = %v, %v", agent, err)
	}
}

func TestParseRejects(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
	}{
		{"Empty", ""},
		{"UnknownKey", "discount: 0.9\nstates: [a]\nactions: [x]\ngamma: 0.9\n"},
		{"NoStates", "discount: 0.9\nactions: [x]\n"},
		{"NoActions", "discount: 0.9\nnum_states: 2\n"},
		{"CountMismatch", "discount: 0.9\nstates: [a, b]\nnum_states: 3\nactions: [x]\n"},
		{"NoObservations", "discount: 0.9\nstates: [a]\nactions: [x]\nemissions: [[[1]]]\n"},
		{"NegativeCap", "discount: 0.9\nstates: [a]\nactions: [x]\nmax_sweeps: -1\n"},
		{"NotYAML", "states: [a\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.yaml)); !errors.Is(err, mdp.ErrMalformedModel) {
				t.Errorf("expected ErrMalformedModel, got %v", err)
			}
		})
	}
}

func TestAgentRejects(t *testing.T) {
	m, err := Parse([]byte(`
discount: 0.9
states: [a, b]
actions: [x]
transitions: [[[1, 0]], [[0]]]
rewards: [[[1, 0]], [[0, 1]]]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := m.Agent(); !errors.Is(err, mdp.ErrMalformedModel) {
		t.Errorf("expected ErrMalformedModel, got %v", err)
	}
	if _, err := m.POMDP(); !errors.Is(err, mdp.ErrMalformedModel) {
		t.Errorf("expected ErrMalformedModel for a model without observations, got %v", err)
	}

	m.Transitions = [][][]float64{{{1, 0}}, {{0, 1}}}
	m.Discount = 1
	if _, err := m.Agent(); !errors.Is(err, mdp.ErrInvalidDiscount) {
		t.Errorf("expected ErrInvalidDiscount, got %v", err)
	}
}

func TestUnknownNamePanics(t *testing.T) {
	agent, err := load(t, "testdata/student.yaml").Agent()
	if err != nil {
		t.Fatalf("Agent: %v", err)
	}
	defer func() {
		r := recover()
		if r == nil || !strings.Contains(r.(string), `unknown state "library"`) {
			t.Errorf("unexpected recover value %v", r)
		}
	}()
	agent.Transition("library", "study", "class1")
}

func TestDiscover(t *testing.T) {
	paths, err := Discover("testdata/**/*.yaml", "testdata/*.yaml")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{
		filepath.Join("testdata", "dense.yaml"),
		filepath.Join("testdata", "nested", "tiger.yaml"),
		filepath.Join("testdata", "student.yaml"),
	}
	if !slices.Equal(paths, want) {
		t.Errorf("Discover = %v, want %v", paths, want)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "walk.yaml")
	data := "discount: 0.5\nnum_states: 1\nnum_actions: 1\ntransitions: [[[1]]]\nrewards: [[[1]]]\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	paths, err = Discover(filepath.Join(dir, "**", "*.yaml"))
	if err != nil || len(paths) != 1 {
		t.Fatalf("Discover = %v, %v", paths, err)
	}
	if m := load(t, paths[0]); m.Name != "walk" || m.Path != path {
		t.Errorf("unexpected model %+v", m)
	}
}
