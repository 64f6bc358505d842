package domain

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.March, 3, 9, 30, 0, 0, time.UTC)

func newTestService(gen Generator, cache PlanCache, log InteractionLog, opts ...Option) *Service {
	base := []Option{
		WithRandom(rand.New(rand.NewPCG(11, 13))),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "abcd1234" }),
	}
	return NewService(testCatalog(), gen, cache, log, append(base, opts...)...)
}

func strengthRequest() PlanRequest {
	return PlanRequest{
		UserID:             "user-1",
		ExperienceLevel:    "Intermediate",
		DurationMinutes:    45,
		WorkoutType:        "strength",
		AvailableEquipment: []string{"Barbell", "bench"},
	}
}

func TestGenerateWorkoutPrimary(t *testing.T) {
	gen := &stubGenerator{text: `{"exercises":[
		{"name":"Bench Press","instructions":"Control the descent"},
		{"name":"Deadlifts"},
		{"name":"Push-ups"},
		{"name":"Lunges"},
		{"name":"Bent-over Rows"}
	]}`}
	cache := newMemoryCache()
	log := &recordingLog{}
	svc := newTestService(gen, cache, log)

	plan, err := svc.GenerateWorkout(context.Background(), strengthRequest())
	require.NoError(t, err)
	require.Equal(t, SourcePrimary, plan.Source)
	require.Equal(t, "AI-Generated Strength Workout", plan.Name)
	require.Equal(t, "Personalized intermediate level strength workout", plan.Description)
	require.Equal(t, "workout_user-1_1740994200_abcd1234", plan.ID)
	require.Equal(t, 270, plan.EstimatedCalories)
	require.Equal(t, []string{FullBody}, plan.TargetMuscleGroups)
	require.Equal(t, []string{"barbell", "bench"}, plan.EquipmentNeeded)
	require.Equal(t, []string{"Bench Press", "Deadlifts", "Push-ups", "Lunges", "Bent-over Rows"}, entryNames(plan.Exercises))
	require.Equal(t, "Control the descent", plan.Exercises[0].Instructions)
	require.Equal(t, "Perform Deadlifts focusing on proper form", plan.Exercises[1].Instructions)
	require.Equal(t, 4, plan.Exercises[0].Sets)
	require.Equal(t, "6-10", plan.Exercises[0].Reps)
	require.Nil(t, plan.Insights)

	require.Equal(t, 1, gen.calls())
	require.Contains(t, gen.prompts[0].User, "- Available Equipment: barbell, bench")

	raw, ok, err := cache.Get(context.Background(), "workout_plan:"+plan.ID)
	require.NoError(t, err)
	require.True(t, ok)
	var rec CachedPlanRecord
	require.NoError(t, json.Unmarshal(raw, &rec))
	require.Equal(t, plan.ID, rec.Plan.ID)
	require.Equal(t, fixedNow.Add(time.Hour), rec.ExpiresAt)
	require.Equal(t, time.Hour, cache.ttls["workout_plan:"+plan.ID])
	require.Equal(t, 24*time.Hour, cache.ttls["user_preferences:user-1"])

	records := log.all()
	require.Len(t, records, 1)
	require.Equal(t, InteractionRecord{
		UserID:    "user-1",
		Input:     "Generate workout: strength",
		Output:    "Created workout plan " + plan.ID,
		Category:  CategoryWorkoutGeneration,
		CreatedAt: fixedNow,
	}, records[0])
}

func TestGenerateWorkoutFallsBackOnError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("503 from upstream")}
	log := &recordingLog{}
	svc := newTestService(gen, newMemoryCache(), log)

	plan, err := svc.GenerateWorkout(context.Background(), strengthRequest())
	require.NoError(t, err)
	require.Equal(t, SourceFallback, plan.Source)
	require.Equal(t, "Custom Strength Workout", plan.Name)
	require.Len(t, plan.Exercises, 5)
	require.Len(t, log.all(), 1)
}

func TestGenerateWorkoutFallsBackOnUnusableResponse(t *testing.T) {
	gen := &stubGenerator{text: "Try 3 sets of curls and some yoga."}
	svc := newTestService(gen, newMemoryCache(), &recordingLog{})

	plan, err := svc.GenerateWorkout(context.Background(), strengthRequest())
	require.NoError(t, err)
	require.Equal(t, SourceFallback, plan.Source)
}

func TestGenerateWorkoutFallsBackOnTimeout(t *testing.T) {
	gen := &stubGenerator{block: true}
	svc := newTestService(gen, newMemoryCache(), &recordingLog{}, WithPrimaryTimeout(50*time.Millisecond))

	started := time.Now()
	plan, err := svc.GenerateWorkout(context.Background(), strengthRequest())
	require.NoError(t, err)
	require.Equal(t, SourceFallback, plan.Source)
	require.Less(t, time.Since(started), 5*time.Second)
}

func TestGenerateWorkoutWithoutGeneratorUsesFallback(t *testing.T) {
	svc := newTestService(nil, newMemoryCache(), &recordingLog{})
	req := strengthRequest()
	req.WorkoutType = Cardio
	req.ExperienceLevel = Beginner
	req.DurationMinutes = 120

	plan, err := svc.GenerateWorkout(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, SourceFallback, plan.Source)
	require.ElementsMatch(t, []string{"Jumping Jacks", "High Knees"}, entryNames(plan.Exercises))
	require.Empty(t, plan.EquipmentNeeded)
	require.NotNil(t, plan.EquipmentNeeded)
}

func TestGenerateWorkoutRejectsInvalidRequest(t *testing.T) {
	gen := &stubGenerator{}
	cache := newMemoryCache()
	log := &recordingLog{}
	svc := newTestService(gen, cache, log)

	req := strengthRequest()
	req.DurationMinutes = 5
	req.WorkoutType = "pilates"
	_, err := svc.GenerateWorkout(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidRequest)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Rule
	}
	require.Equal(t, "range", fields["duration_minutes"])
	require.Equal(t, "oneof", fields["workout_type"])

	require.Zero(t, gen.calls())
	require.Empty(t, cache.entries)
	require.Empty(t, log.all())
}

func TestGenerateWorkoutHonoursConfiguredLimits(t *testing.T) {
	svc := newTestService(nil, newMemoryCache(), &recordingLog{}, WithLimits(Limits{MinDuration: 15, MaxDuration: 60}))
	req := strengthRequest()
	req.DurationMinutes = 90
	_, err := svc.GenerateWorkout(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidRequest)
	require.Contains(t, err.Error(), "duration_minutes: range=15..60")
}

func TestGenerateWorkoutEmptyPool(t *testing.T) {
	gen := &stubGenerator{}
	log := &recordingLog{}
	svc := newTestService(gen, newMemoryCache(), log)

	req := strengthRequest()
	req.WorkoutType = Strength
	req.TargetMuscleGroups = []string{"back"}
	req.ExperienceLevel = Beginner
	req.AvailableEquipment = []string{"unobtainium"}
	_, err := svc.GenerateWorkout(context.Background(), req)
	require.ErrorIs(t, err, ErrNoEligibleExercises)
	require.Zero(t, gen.calls())

	records := log.all()
	require.Len(t, records, 1)
	require.Equal(t, ErrNoEligibleExercises.Error(), records[0].Output)
}

func TestGenerateWorkoutSideEffectFailuresAreSwallowed(t *testing.T) {
	cache := newMemoryCache()
	cache.failSet = true
	log := &recordingLog{err: errors.New("disk full")}
	svc := newTestService(nil, cache, log)

	plan, err := svc.GenerateWorkout(context.Background(), strengthRequest())
	require.NoError(t, err)
	require.NotEmpty(t, plan.Exercises)
}

func TestGenerateWorkoutAttachesInsights(t *testing.T) {
	svc := newTestService(nil, newMemoryCache(), &recordingLog{},
		WithPredictor(NewRandomPredictor(rand.New(rand.NewPCG(5, 5)))))
	plan, err := svc.GenerateWorkout(context.Background(), strengthRequest())
	require.NoError(t, err)
	require.NotNil(t, plan.Insights)
	require.GreaterOrEqual(t, plan.Insights.OptimalDuration, 30)
}

func TestLookupWorkoutPlan(t *testing.T) {
	cache := newMemoryCache()
	now := fixedNow
	svc := NewService(testCatalog(), nil, cache, &recordingLog{}, WithClock(func() time.Time { return now }))

	plan, err := svc.GenerateWorkout(context.Background(), strengthRequest())
	require.NoError(t, err)

	first, err := svc.LookupWorkoutPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	second, err := svc.LookupWorkoutPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, entryNames(plan.Exercises), entryNames(first.Exercises))

	_, err = svc.LookupWorkoutPlan(context.Background(), "workout_missing")
	require.ErrorIs(t, err, ErrPlanNotFound)

	now = fixedNow.Add(2 * time.Hour)
	_, err = svc.LookupWorkoutPlan(context.Background(), plan.ID)
	require.ErrorIs(t, err, ErrPlanNotFound)
}

func TestPreferencesSnapshot(t *testing.T) {
	svc := newTestService(nil, newMemoryCache(), &recordingLog{})
	_, err := svc.Preferences(context.Background(), "user-1")
	require.ErrorIs(t, err, ErrPreferencesNotFound)

	_, err = svc.GenerateWorkout(context.Background(), strengthRequest())
	require.NoError(t, err)

	snap, err := svc.Preferences(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, Intermediate, snap.Request.ExperienceLevel)
	require.Equal(t, []string{"barbell", "bench"}, snap.Request.AvailableEquipment)
}

func TestGenerateNutrition(t *testing.T) {
	cache := newMemoryCache()
	log := &recordingLog{}
	svc := newTestService(nil, cache, log)
	profile := BodyProfile{Sex: "male", WeightKG: 80, HeightCM: 180, Age: 30}

	plan, err := svc.GenerateNutrition(context.Background(), NutritionRequest{
		UserID:           "user-1",
		DailyCalorieGoal: 2400,
		ActivityLevel:    "Active",
		Profile:          &profile,
	})
	require.NoError(t, err)
	require.Equal(t, "nutrition_user-1_1740994200_abcd1234", plan.ID)
	require.Len(t, plan.Meals, 4)
	require.Equal(t, 600, plan.Meals[0].Calories)
	require.Equal(t, DefaultMacroSplit, plan.Macros)
	require.NotNil(t, plan.Needs)
	require.Equal(t, int(BMR(profile)*1.725), plan.Needs.DailyCalories)

	got, err := svc.LookupNutritionPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	require.Equal(t, plan.ID, got.ID)

	records := log.all()
	require.Len(t, records, 1)
	require.Equal(t, CategoryNutritionGeneration, records[0].Category)
	require.Equal(t, "Generate nutrition plan: 2400 kcal", records[0].Input)
}

func TestGenerateNutritionValidation(t *testing.T) {
	svc := newTestService(nil, newMemoryCache(), &recordingLog{})
	_, err := svc.GenerateNutrition(context.Background(), NutritionRequest{
		UserID:           "user-1",
		DailyCalorieGoal: 800,
		MealCount:        9,
		ActivityLevel:    "couch",
	})
	require.ErrorIs(t, err, ErrInvalidRequest)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 3)
}

func TestChat(t *testing.T) {
	gen := &stubGenerator{text: "Warm up for ten minutes first."}
	log := &recordingLog{}
	svc := newTestService(gen, newMemoryCache(), log)

	reply, err := svc.Chat(context.Background(), ChatMessage{UserID: "user-1", Message: " How should I start? "})
	require.NoError(t, err)
	require.Equal(t, "Warm up for ten minutes first.", reply.Response)
	require.Equal(t, MessageGeneral, reply.MessageType)
	require.False(t, reply.Degraded)
	require.Equal(t, ChatSuggestions, reply.Suggestions)
	require.Equal(t, "How should I start?", gen.prompts[0].User)

	records := log.all()
	require.Len(t, records, 1)
	require.Equal(t, MessageGeneral, records[0].Category)
}

func TestChatDegradesOnFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("boom")}
	svc := newTestService(gen, newMemoryCache(), &recordingLog{})

	reply, err := svc.Chat(context.Background(), ChatMessage{UserID: "user-1", Message: "hi", MessageType: "motivation"})
	require.NoError(t, err)
	require.True(t, reply.Degraded)
	require.Equal(t, ChatFallbackResponse, reply.Response)
	require.Equal(t, MessageMotivation, reply.MessageType)

	_, err = svc.Chat(context.Background(), ChatMessage{UserID: "user-1", Message: "hi", MessageType: "gossip"})
	require.ErrorIs(t, err, ErrInvalidRequest)
}
