package domain

// DefaultStrengthBuckets are used when a strength request names no muscles.
var DefaultStrengthBuckets = []string{"chest", "legs", "back"}

// Eligible returns the catalog exercises that satisfy the request's category,
// equipment and difficulty constraints, in catalog order. An empty result is
// reported as ErrNoEligibleExercises.
func Eligible(req PlanRequest, catalog Catalog) ([]ExerciseDefinition, error) {
	available := make(map[string]struct{}, len(req.AvailableEquipment))
	for _, item := range req.AvailableEquipment {
		available[item] = struct{}{}
	}

	seen := make(map[string]struct{})
	out := make([]ExerciseDefinition, 0)
	for _, ex := range candidatePool(req, catalog) {
		if _, dup := seen[ex.Name]; dup {
			continue
		}
		if !equipmentAllowed(ex, available) || !difficultyAllowed(ex.Difficulty, req.ExperienceLevel) {
			continue
		}
		seen[ex.Name] = struct{}{}
		out = append(out, ex)
	}
	if len(out) == 0 {
		return nil, ErrNoEligibleExercises
	}
	return out, nil
}

func candidatePool(req PlanRequest, catalog Catalog) []ExerciseDefinition {
	switch req.WorkoutType {
	case Strength:
		buckets := req.TargetMuscleGroups
		if len(buckets) == 0 {
			buckets = DefaultStrengthBuckets
		}
		var pool []ExerciseDefinition
		for _, name := range buckets {
			if exercises, ok := catalog.Bucket(name); ok {
				pool = append(pool, exercises...)
			}
		}
		return pool
	case Cardio:
		return catalog.Cardio
	case Flexibility:
		return catalog.Flexibility
	default:
		return catalog.All()
	}
}

// equipmentAllowed accepts bodyweight exercises and any exercise sharing at
// least one item with the available set.
func equipmentAllowed(ex ExerciseDefinition, available map[string]struct{}) bool {
	if ex.Bodyweight() {
		return true
	}
	for _, item := range ex.Equipment {
		if _, ok := available[item]; ok {
			return true
		}
	}
	return false
}

// difficultyAllowed implements monotonic inclusion: a tier sees its own
// exercises and every easier one.
func difficultyAllowed(exercise, tier Difficulty) bool {
	if !exercise.Valid() || !tier.Valid() {
		return false
	}
	return exercise.Rank() <= tier.Rank()
}
