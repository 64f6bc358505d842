// Package domain holds the plan generation engine: catalog types, constraint
// filtering, selection, estimation and the orchestrating Service.
package domain

import (
	"slices"
	"strings"
	"time"
)

// Difficulty is an ordered experience tier.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// Rank orders tiers; unknown tiers rank above every known one.
func (d Difficulty) Rank() int {
	switch d {
	case Beginner:
		return 0
	case Intermediate:
		return 1
	case Advanced:
		return 2
	default:
		return 99
	}
}

// Valid reports whether d is one of the fixed tiers.
func (d Difficulty) Valid() bool {
	return d.Rank() <= Advanced.Rank()
}

// Category is the workout type requested by a user.
type Category string

const (
	Strength    Category = "strength"
	Cardio      Category = "cardio"
	Flexibility Category = "flexibility"
	Mixed       Category = "mixed"
)

// Title returns the display form used in plan names.
func (c Category) Title() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// Source records which path produced a plan.
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// FullBody is reported when a request names no target muscles.
const FullBody = "full_body"

// ExerciseDefinition is an immutable catalog entry.
type ExerciseDefinition struct {
	Name         string     `json:"name" yaml:"name"`
	Difficulty   Difficulty `json:"difficulty" yaml:"difficulty"`
	Equipment    []string   `json:"equipment" yaml:"equipment"`
	MuscleGroups []string   `json:"muscle_groups" yaml:"muscle_groups"`
}

// Bodyweight reports whether the exercise needs no equipment.
func (e ExerciseDefinition) Bodyweight() bool {
	return len(e.Equipment) == 0
}

// MuscleBucket groups strength exercises by muscle group.
type MuscleBucket struct {
	Name      string               `yaml:"bucket"`
	Exercises []ExerciseDefinition `yaml:"exercises"`
}

// Catalog is the versioned exercise registry. It is built once and shared
// read-only by every request.
type Catalog struct {
	Version     string
	Strength    []MuscleBucket
	Cardio      []ExerciseDefinition
	Flexibility []ExerciseDefinition
}

// Bucket returns the strength exercises for a muscle group.
func (c Catalog) Bucket(name string) ([]ExerciseDefinition, bool) {
	for _, b := range c.Strength {
		if b.Name == name {
			return b.Exercises, true
		}
	}
	return nil, false
}

// All returns every exercise in catalog order: strength buckets, cardio, flexibility.
func (c Catalog) All() []ExerciseDefinition {
	out := make([]ExerciseDefinition, 0, c.Size())
	for _, b := range c.Strength {
		out = append(out, b.Exercises...)
	}
	out = append(out, c.Cardio...)
	out = append(out, c.Flexibility...)
	return out
}

// Size counts catalog entries.
func (c Catalog) Size() int {
	n := len(c.Cardio) + len(c.Flexibility)
	for _, b := range c.Strength {
		n += len(b.Exercises)
	}
	return n
}

// PlanRequest is the workout generation input.
type PlanRequest struct {
	UserID             string     `json:"user_id" validate:"required,max=128"`
	ExperienceLevel    Difficulty `json:"experience_level" validate:"required,oneof=beginner intermediate advanced"`
	DurationMinutes    int        `json:"duration_minutes"`
	WorkoutType        Category   `json:"workout_type" validate:"required,oneof=strength cardio flexibility mixed"`
	TargetMuscleGroups []string   `json:"target_muscle_groups" validate:"max=16,dive,max=64"`
	AvailableEquipment []string   `json:"available_equipment" validate:"max=32,dive,max=64"`
	FitnessGoals       []string   `json:"fitness_goals" validate:"max=16,dive,max=256"`
	Limitations        []string   `json:"injuries_limitations" validate:"max=16,dive,max=256"`
}

// Normalize lower-cases enumerations and de-duplicates list fields.
func (r PlanRequest) Normalize() PlanRequest {
	r.UserID = strings.TrimSpace(r.UserID)
	r.ExperienceLevel = Difficulty(strings.ToLower(strings.TrimSpace(string(r.ExperienceLevel))))
	r.WorkoutType = Category(strings.ToLower(strings.TrimSpace(string(r.WorkoutType))))
	r.TargetMuscleGroups = normalizeKeys(r.TargetMuscleGroups)
	r.AvailableEquipment = normalizeKeys(r.AvailableEquipment)
	r.FitnessGoals = normalizeText(r.FitnessGoals)
	r.Limitations = normalizeText(r.Limitations)
	return r
}

// ExerciseEntry is one prescribed exercise within a plan.
type ExerciseEntry struct {
	Name         string     `json:"name"`
	MuscleGroups []string   `json:"muscle_groups"`
	Equipment    []string   `json:"equipment"`
	Sets         int        `json:"sets"`
	Reps         string     `json:"reps"`
	RestSeconds  int        `json:"rest_seconds"`
	Instructions string     `json:"instructions"`
	Difficulty   Difficulty `json:"difficulty"`
}

// WorkoutInsights carries the intensity predictor's recommendations.
type WorkoutInsights struct {
	RecommendedIntensity float64 `json:"recommended_intensity"`
	OptimalDuration      int     `json:"optimal_duration"`
	RecoveryHours        int     `json:"recovery_time"`
}

// GeneratedPlan is the engine's workout output.
type GeneratedPlan struct {
	ID                 string           `json:"id"`
	UserID             string           `json:"user_id"`
	Name               string           `json:"name"`
	Description        string           `json:"description"`
	DurationMinutes    int              `json:"duration_minutes"`
	Difficulty         Difficulty       `json:"difficulty"`
	WorkoutType        Category         `json:"workout_type"`
	Exercises          []ExerciseEntry  `json:"exercises"`
	EstimatedCalories  int              `json:"estimated_calories"`
	TargetMuscleGroups []string         `json:"target_muscle_groups"`
	EquipmentNeeded    []string         `json:"equipment_needed"`
	CreatedAt          time.Time        `json:"created_at"`
	Source             Source           `json:"source"`
	Insights           *WorkoutInsights `json:"ml_insights,omitempty"`
}

// CachedPlanRecord is the serialized cache value for a workout plan.
type CachedPlanRecord struct {
	Plan      GeneratedPlan `json:"plan"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// PreferenceSnapshot is the last accepted request of a user.
type PreferenceSnapshot struct {
	UserID    string      `json:"user_id"`
	Request   PlanRequest `json:"request"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Interaction categories written to the log.
const (
	CategoryWorkoutGeneration   = "workout_generation"
	CategoryNutritionGeneration = "nutrition_generation"
)

// InteractionRecord is one append-only audit row.
type InteractionRecord struct {
	UserID    string    `json:"user_id"`
	Input     string    `json:"message"`
	Output    string    `json:"response"`
	Category  string    `json:"message_type"`
	LatencyMS float64   `json:"response_time_ms"`
	CreatedAt time.Time `json:"created_at"`
}

func normalizeKeys(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		clean := strings.ToLower(strings.TrimSpace(v))
		clean = strings.ReplaceAll(clean, " ", "_")
		if clean == "" || slices.Contains(out, clean) {
			continue
		}
		out = append(out, clean)
	}
	return out
}

func normalizeText(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		clean := strings.TrimSpace(v)
		if clean == "" || slices.Contains(out, clean) {
			continue
		}
		out = append(out, clean)
	}
	return out
}
