package mdp

import (
	"errors"
	"testing"
)

var (
	tigerStates       = []string{"tiger_left", "tiger_right"}
	tigerActions      = []string{"open_left", "open_right", "listen"}
	tigerObservations = []string{"roar_left", "roar_right", "nothing"}
)

func tigerTransition(s1, a, s2 string) float64 {
	if s1 == s2 {
		return 1
	}
	return 0
}

func tigerEmission(s, a, o string) float64 {
	if a != "listen" {
		if o == "nothing" {
			return 1
		}
		return 0
	}
	switch {
	case o == "nothing":
		return 0
	case (s == "tiger_left") == (o == "roar_left"):
		return 0.8
	default:
		return 0.2
	}
}

func tigerReward(s1, a, s2 string) float64 {
	switch {
	case a == "listen":
		return 0
	case (s1 == "tiger_left") == (a == "open_left"):
		return -100
	default:
		return 100
	}
}

func newTiger(t *testing.T, tr TransitionFunc[string, string], em EmissionFunc[string, string, string], rw RewardFunc[string, string]) *POMDPAgent[string, string, string] {
	t.Helper()
	agent, err := NewPOMDPAgent(tigerStates, tigerActions, tigerObservations, tr, em, rw, 0.9)
	if err != nil {
		t.Fatalf("NewPOMDPAgent: %v", err)
	}
	return agent
}

func TestTigerPOMDP(t *testing.T) {
	valid := newTiger(t, tigerTransition, tigerEmission, tigerReward)
	if !valid.Validate() {
		t.Fatalf("expected valid tiger POMDP: %v", valid.Diagnose())
	}
	if got := valid.Emission("tiger_right", "listen", "roar_right"); got != 0.8 {
		t.Errorf("Emission = %g, want 0.8", got)
	}
	if got := valid.Observations(); len(got) != 3 || got[0] != "roar_left" {
		t.Errorf("unexpected observations %v", got)
	}

	testCases := []struct {
		name  string
		agent *POMDPAgent[string, string, string]
		want  error
	}{
		{"InvalidTransition", newTiger(t, func(s1, a, s2 string) float64 { return 1 }, tigerEmission, tigerReward), ErrInvalidDistribution},
		{"InvalidEmission", newTiger(t, tigerTransition, func(s, a, o string) float64 { return 0.9 }, tigerReward), ErrInvalidDistribution},
		{"ZeroReward", newTiger(t, tigerTransition, tigerEmission, func(s1, a, s2 string) float64 { return 0 }), ErrDegenerateReward},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.agent.Validate() {
				t.Fatal("expected Validate to fail")
			}
			if err := tc.agent.Diagnose(); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestMatrixPOMDP(t *testing.T) {
	emissions := func() [][][]float64 {
		return [][][]float64{
			{{0.8, 0.2}, {0.5, 0.5}},
			{{1.0, 0.0}, {0.9, 0.1}},
			{{0.0, 1.0}, {0.0, 1.0}},
		}
	}

	agent, err := NewMatrixPOMDPAgent(3, 2, 2, threeStateTransitions(), emissions(), threeStateRewards(), 0.9)
	if err != nil {
		t.Fatalf("NewMatrixPOMDPAgent: %v", err)
	}
	if !agent.Validate() {
		t.Fatalf("expected valid POMDP: %v", agent.Diagnose())
	}
	if !agent.MDPAgent.Validate() {
		t.Error("the underlying MDP should validate on its own")
	}

	badTransitions := threeStateTransitions()
	badTransitions[1][0] = []float64{0.8, 0.5, 0.1}
	bad, err := NewMatrixPOMDPAgent(3, 2, 2, badTransitions, emissions(), threeStateRewards(), 0.9)
	if err != nil {
		t.Fatalf("NewMatrixPOMDPAgent: %v", err)
	}
	if bad.Validate() {
		t.Error("transition row summing to 1.4 should fail")
	}

	badEmissions := emissions()
	badEmissions[0][0] = []float64{0.8, 0.3}
	bad, err = NewMatrixPOMDPAgent(3, 2, 2, threeStateTransitions(), badEmissions, threeStateRewards(), 0.9)
	if err != nil {
		t.Fatalf("NewMatrixPOMDPAgent: %v", err)
	}
	if bad.Validate() {
		t.Error("emission row summing to 1.1 should fail")
	}
	if !bad.MDPAgent.Validate() {
		t.Error("emission errors must not leak into the MDP check")
	}

	bad, err = NewMatrixPOMDPAgent(3, 2, 2, threeStateTransitions(), emissions(), zeroRewards(3, 2), 0.9)
	if err != nil {
		t.Fatalf("NewMatrixPOMDPAgent: %v", err)
	}
	if bad.Validate() {
		t.Error("zero reward should fail")
	}

	if _, err := NewMatrixPOMDPAgent(3, 2, 3, threeStateTransitions(), emissions(), threeStateRewards(), 0.9); !errors.Is(err, ErrMalformedModel) {
		t.Errorf("emission rows of length 2 for 3 observations should be malformed, got %v", err)
	}
}

func TestPOMDPRejectsDuplicateObservations(t *testing.T) {
	_, err := NewPOMDPAgent(tigerStates, tigerActions, []string{"nothing", "nothing"},
		TransitionFunc[string, string](tigerTransition), EmissionFunc[string, string, string](tigerEmission), RewardFunc[string, string](tigerReward), 0.9)
	if !errors.Is(err, ErrMalformedModel) {
		t.Errorf("expected ErrMalformedModel, got %v", err)
	}
}
