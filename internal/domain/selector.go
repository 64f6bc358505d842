package domain

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Exercise count bounds for a plan.
const (
	MinExercises       = 4
	MaxExercises       = 8
	MinutesPerExercise = 8
)

// RandomSource is the injectable randomness used for sampling and the
// intensity predictor. *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
	Float64() float64
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int   { return rand.IntN(n) }
func (globalRandom) Float64() float64 { return rand.Float64() }

// lockedRandom serializes an injected source that is not safe for concurrent use.
type lockedRandom struct {
	mu  sync.Mutex
	src RandomSource
}

func (l *lockedRandom) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

func (l *lockedRandom) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

// TargetCount is clamp(duration/8, 4, 8) capped at the pool size.
func TargetCount(durationMinutes, poolSize int) int {
	count := durationMinutes / MinutesPerExercise
	count = max(count, MinExercises)
	count = min(count, MaxExercises)
	return min(count, poolSize)
}

// Sample draws n distinct exercises uniformly without replacement.
func Sample(pool []ExerciseDefinition, n int, rnd RandomSource) []ExerciseDefinition {
	n = min(n, len(pool))
	shuffled := make([]ExerciseDefinition, len(pool))
	copy(shuffled, pool)
	for i := 0; i < n; i++ {
		j := i + rnd.IntN(len(shuffled)-i)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:n]
}

// Prescription is the sets/reps/rest triple attached to an exercise.
type Prescription struct {
	Sets        int
	Reps        string
	RestSeconds int
}

// Prescribe looks up the parameters for a category and experience tier.
func Prescribe(category Category, tier Difficulty, durationMinutes int) Prescription {
	switch category {
	case Strength:
		if tier == Beginner {
			return Prescription{Sets: 3, Reps: "8-12", RestSeconds: 60}
		}
		return Prescription{Sets: 4, Reps: "6-10", RestSeconds: 90}
	case Cardio:
		return Prescription{Sets: 1, Reps: fmt.Sprintf("%d seconds", 30+durationMinutes/10), RestSeconds: 15}
	case Flexibility:
		return Prescription{Sets: 2, Reps: "30 seconds", RestSeconds: 30}
	default:
		return Prescription{Sets: 2, Reps: "10-15", RestSeconds: 30}
	}
}

// DefaultInstructions is the templated coaching cue for an exercise.
func DefaultInstructions(name string) string {
	return fmt.Sprintf("Perform %s focusing on proper form", name)
}

// NewEntry builds a plan entry from a catalog definition. Blank instructions
// fall back to the template.
func NewEntry(def ExerciseDefinition, p Prescription, instructions string) ExerciseEntry {
	if instructions == "" {
		instructions = DefaultInstructions(def.Name)
	}
	return ExerciseEntry{
		Name:         def.Name,
		MuscleGroups: cloneStrings(def.MuscleGroups),
		Equipment:    cloneStrings(def.Equipment),
		Sets:         p.Sets,
		Reps:         p.Reps,
		RestSeconds:  p.RestSeconds,
		Instructions: instructions,
		Difficulty:   def.Difficulty,
	}
}

// Select samples the eligible pool and parameterizes each pick.
func Select(eligible []ExerciseDefinition, req PlanRequest, rnd RandomSource) []ExerciseEntry {
	picks := Sample(eligible, TargetCount(req.DurationMinutes, len(eligible)), rnd)
	p := Prescribe(req.WorkoutType, req.ExperienceLevel, req.DurationMinutes)
	entries := make([]ExerciseEntry, 0, len(picks))
	for _, def := range picks {
		entries = append(entries, NewEntry(def, p, ""))
	}
	return entries
}

func cloneStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}
