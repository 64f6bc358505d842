package domain

import (
	"context"
	"errors"
	"sync"
	"time"
)

func ex(name string, d Difficulty, equipment []string, muscles ...string) ExerciseDefinition {
	return ExerciseDefinition{Name: name, Difficulty: d, Equipment: equipment, MuscleGroups: muscles}
}

func testCatalog() Catalog {
	return Catalog{
		Version: "test",
		Strength: []MuscleBucket{
			{Name: "chest", Exercises: []ExerciseDefinition{
				ex("Push-ups", Beginner, nil, "chest", "triceps", "shoulders"),
				ex("Bench Press", Intermediate, []string{"barbell", "bench"}, "chest", "triceps", "shoulders"),
				ex("Incline Dumbbell Press", Intermediate, []string{"dumbbells", "bench"}, "chest", "shoulders"),
				ex("Chest Dips", Advanced, []string{"dip_bars"}, "chest", "triceps"),
			}},
			{Name: "legs", Exercises: []ExerciseDefinition{
				ex("Bodyweight Squats", Beginner, nil, "quadriceps", "glutes"),
				ex("Lunges", Beginner, nil, "quadriceps", "glutes", "hamstrings"),
				ex("Deadlifts", Intermediate, []string{"barbell"}, "hamstrings", "glutes", "back"),
				ex("Bulgarian Split Squats", Advanced, nil, "quadriceps", "glutes"),
			}},
			{Name: "back", Exercises: []ExerciseDefinition{
				ex("Pull-ups", Intermediate, []string{"pull_up_bar"}, "back", "biceps"),
				ex("Bent-over Rows", Intermediate, []string{"barbell"}, "back", "biceps"),
				ex("Lat Pulldowns", Beginner, []string{"cable_machine"}, "back", "biceps"),
			}},
		},
		Cardio: []ExerciseDefinition{
			ex("Jumping Jacks", Beginner, nil, "full_body"),
			ex("High Knees", Beginner, nil, "legs", "core"),
			ex("Burpees", Advanced, nil, "full_body"),
			ex("Mountain Climbers", Intermediate, nil, "core", "shoulders"),
		},
		Flexibility: []ExerciseDefinition{
			ex("Cat-Cow Stretch", Beginner, nil, "back", "core"),
			ex("Downward Dog", Beginner, nil, "hamstrings", "calves", "shoulders"),
			ex("Pigeon Pose", Intermediate, nil, "hips", "glutes"),
		},
	}
}

func names(defs []ExerciseDefinition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Name)
	}
	return out
}

func entryNames(entries []ExerciseEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	failSet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSet {
		return errors.New("cache offline")
	}
	c.entries[key] = append([]byte(nil), value...)
	c.ttls[key] = ttl
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

type recordingLog struct {
	mu      sync.Mutex
	records []InteractionRecord
	err     error
}

func (l *recordingLog) Append(_ context.Context, rec InteractionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return l.err
}

func (l *recordingLog) all() []InteractionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]InteractionRecord(nil), l.records...)
}

type stubGenerator struct {
	text    string
	err     error
	block   bool
	prompts []Prompt
	mu      sync.Mutex
}

func (g *stubGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.block {
		select {}
	}
	return g.text, g.err
}

func (g *stubGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}
