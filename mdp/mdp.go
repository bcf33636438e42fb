// Package mdp models finite Markov Decision Processes and their partially
// observable extension.
//
// A model is assembled from capability providers: a TransitionModel, a
// RewardModel and, for POMDPs, an EmissionModel. Providers are plain query
// contracts over (state, action, next state or observation), so a dense
// array-backed table and a hand-written closure are interchangeable.
//
// States, actions and observations are any comparable type. Agents keep
// them as ordered slices and that order is the enumeration order every
// solver sweeps in and breaks ties with.
package mdp

// TransitionModel gives the probability of reaching s2 from s1 under a.
type TransitionModel[S, A comparable] interface {
	Transition(s1 S, a A, s2 S) float64
}

// RewardModel gives the immediate reward for the step s1 -a-> s2.
type RewardModel[S, A comparable] interface {
	Reward(s1 S, a A, s2 S) float64
}

// EmissionModel gives the probability of observing o in state s after a.
type EmissionModel[S, A, O comparable] interface {
	Emission(s S, a A, o O) float64
}

type TransitionFunc[S, A comparable] func(s1 S, a A, s2 S) float64

func (f TransitionFunc[S, A]) Transition(s1 S, a A, s2 S) float64 {
	return f(s1, a, s2)
}

type RewardFunc[S, A comparable] func(s1 S, a A, s2 S) float64

func (f RewardFunc[S, A]) Reward(s1 S, a A, s2 S) float64 {
	return f(s1, a, s2)
}

type EmissionFunc[S, A, O comparable] func(s S, a A, o O) float64

func (f EmissionFunc[S, A, O]) Emission(s S, a A, o O) float64 {
	return f(s, a, o)
}

// Model is the read-only view of an MDP that solvers work against.
// States and Actions must return the same elements in the same order on
// every call.
type Model[S, A comparable] interface {
	TransitionModel[S, A]
	RewardModel[S, A]
	States() []S
	Actions() []A
	Discount() float64
}
