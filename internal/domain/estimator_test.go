package domain

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalories(t *testing.T) {
	require.Equal(t, 450, Calories(45, Cardio, Intermediate))
	require.Equal(t, 144, Calories(30, Strength, Beginner))
	require.Equal(t, 108, Calories(30, Flexibility, Advanced))
	require.Equal(t, 70, Calories(10, Category("yoga"), Difficulty("elite")))
}

func TestBMR(t *testing.T) {
	male := BodyProfile{Sex: "male", WeightKG: 80, HeightCM: 180, Age: 30}
	require.InDelta(t, 1853.632, BMR(male), 1e-9)

	female := BodyProfile{Sex: "female", WeightKG: 60, HeightCM: 165, Age: 28}
	require.InDelta(t, 447.593+9.247*60+3.098*165-4.330*28, BMR(female), 1e-9)

	unspecified := female
	unspecified.Sex = ""
	require.Equal(t, BMR(female), BMR(unspecified))
}

func TestNeeds(t *testing.T) {
	p := BodyProfile{Sex: "male", WeightKG: 80, HeightCM: 180, Age: 30}
	needs := Needs(p, 0)
	tdee := BMR(p) * DefaultActivityMultiplier
	require.Equal(t, int(tdee), needs.DailyCalories)
	require.Equal(t, 176, needs.ProteinGrams)
	require.Equal(t, int(tdee*0.45/4), needs.CarbGrams)
	require.Equal(t, int(tdee*0.25/9), needs.FatGrams)

	require.Equal(t, int(BMR(p)*1.9), Needs(p, ActivityMultiplier("very_active")).DailyCalories)
	require.Equal(t, DefaultActivityMultiplier, ActivityMultiplier("unknown"))
}

func TestMealSplit(t *testing.T) {
	meals := MealSplit(2000, 3)
	require.Len(t, meals, 4)
	require.Equal(t, Meal{Name: "Breakfast", Calories: 500, Foods: []string{"Oatmeal with berries", "Greek yogurt"}}, meals[0])
	require.Equal(t, 700, meals[1].Calories)
	require.Equal(t, 600, meals[2].Calories)
	require.Equal(t, "Snacks", meals[3].Name)
	require.Equal(t, 200, meals[3].Calories)

	meals = MealSplit(2000, 6)
	require.Len(t, meals, 6)
	require.Equal(t, "Snack 3", meals[5].Name)
	require.Equal(t, 66, meals[5].Calories)
}

func TestRandomPredictorBounds(t *testing.T) {
	p := NewRandomPredictor(rand.New(rand.NewPCG(9, 9)))
	for range 200 {
		got := p.Predict(context.Background(), nil)
		require.GreaterOrEqual(t, got.RecommendedIntensity, 0.6)
		require.Less(t, got.RecommendedIntensity, 0.9)
		require.GreaterOrEqual(t, got.OptimalDuration, 30)
		require.Less(t, got.OptimalDuration, 90)
		require.Equal(t, int(24+(1-got.RecommendedIntensity)*24), got.RecoveryHours)
		require.GreaterOrEqual(t, got.RecoveryHours, 26)
		require.LessOrEqual(t, got.RecoveryHours, 33)
	}
}
