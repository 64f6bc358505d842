package domain

import (
	"context"
	"fmt"
	"strings"
)

var calorieRates = map[Category]int{
	Strength:    6,
	Cardio:      10,
	Flexibility: 3,
	Mixed:       7,
}

var calorieMultipliers = map[Difficulty]float64{
	Beginner:     0.8,
	Intermediate: 1.0,
	Advanced:     1.2,
}

const (
	defaultCalorieRate       = 7
	defaultCalorieMultiplier = 1.0
)

// Calories estimates energy burned for a session, truncated toward zero.
func Calories(durationMinutes int, category Category, tier Difficulty) int {
	rate, ok := calorieRates[category]
	if !ok {
		rate = defaultCalorieRate
	}
	mult, ok := calorieMultipliers[tier]
	if !ok {
		mult = defaultCalorieMultiplier
	}
	return int(float64(durationMinutes*rate) * mult)
}

// BodyProfile is the optional anthropometric input for nutrition estimates.
type BodyProfile struct {
	Sex      string  `json:"sex" validate:"omitempty,oneof=male female other"`
	WeightKG float64 `json:"weight_kg" validate:"gt=0,lte=500"`
	HeightCM float64 `json:"height_cm" validate:"gt=0,lte=300"`
	Age      int     `json:"age" validate:"gt=0,lte=130"`
}

// BMR is the Harris-Benedict basal metabolic rate. Any sex other than male
// uses the second formula.
func BMR(p BodyProfile) float64 {
	if strings.EqualFold(p.Sex, "male") {
		return 88.362 + 13.397*p.WeightKG + 4.799*p.HeightCM - 5.677*float64(p.Age)
	}
	return 447.593 + 9.247*p.WeightKG + 3.098*p.HeightCM - 4.330*float64(p.Age)
}

// DefaultActivityMultiplier applies when no activity level is known.
const DefaultActivityMultiplier = 1.4

var activityMultipliers = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

// ActivityMultiplier maps an activity level to its TDEE multiplier.
func ActivityMultiplier(level string) float64 {
	if m, ok := activityMultipliers[level]; ok {
		return m
	}
	return DefaultActivityMultiplier
}

// NutritionNeeds is the derived daily target for a body profile.
type NutritionNeeds struct {
	BMR           float64 `json:"bmr"`
	DailyCalories int     `json:"daily_calories"`
	ProteinGrams  int     `json:"protein_grams"`
	CarbGrams     int     `json:"carb_grams"`
	FatGrams      int     `json:"fat_grams"`
}

// Needs derives TDEE and macro grams. A non-positive multiplier uses the default.
func Needs(p BodyProfile, activityMultiplier float64) NutritionNeeds {
	if activityMultiplier <= 0 {
		activityMultiplier = DefaultActivityMultiplier
	}
	bmr := BMR(p)
	tdee := bmr * activityMultiplier
	return NutritionNeeds{
		BMR:           bmr,
		DailyCalories: int(tdee),
		ProteinGrams:  int(p.WeightKG * 2.2),
		CarbGrams:     int(tdee * 0.45 / 4),
		FatGrams:      int(tdee * 0.25 / 9),
	}
}

// Meal is one slot in a nutrition plan.
type Meal struct {
	Name     string   `json:"name"`
	Calories int      `json:"calories"`
	Foods    []string `json:"foods"`
}

// MacroSplit is the reported macro distribution in percent.
type MacroSplit struct {
	Protein int `json:"protein"`
	Carbs   int `json:"carbs"`
	Fat     int `json:"fat"`
}

// DefaultMacroSplit is reported with every nutrition plan.
var DefaultMacroSplit = MacroSplit{Protein: 25, Carbs: 45, Fat: 30}

var (
	breakfastFoods = []string{"Oatmeal with berries", "Greek yogurt"}
	lunchFoods     = []string{"Grilled chicken salad", "Brown rice"}
	dinnerFoods    = []string{"Salmon", "Quinoa", "Steamed vegetables"}
	snackFoods     = []string{"Nuts", "Apple"}
)

// MealSplit distributes daily calories 25/35/30 across the main meals and
// the remaining 10% across snacks. A three-meal plan has a single snack slot;
// larger counts add one snack per extra meal.
func MealSplit(dailyCalories, mealCount int) []Meal {
	daily := float64(dailyCalories)
	meals := []Meal{
		{Name: "Breakfast", Calories: int(daily * 0.25), Foods: cloneStrings(breakfastFoods)},
		{Name: "Lunch", Calories: int(daily * 0.35), Foods: cloneStrings(lunchFoods)},
		{Name: "Dinner", Calories: int(daily * 0.30), Foods: cloneStrings(dinnerFoods)},
	}
	snacks := max(mealCount-3, 1)
	if snacks == 1 {
		return append(meals, Meal{Name: "Snacks", Calories: int(daily * 0.10), Foods: cloneStrings(snackFoods)})
	}
	share := daily * 0.10 / float64(snacks)
	for i := 1; i <= snacks; i++ {
		meals = append(meals, Meal{
			Name:     fmt.Sprintf("Snack %d", i),
			Calories: int(share),
			Foods:    cloneStrings(snackFoods),
		})
	}
	return meals
}

// IntensityPredictor recommends session parameters. Implementations must be
// safe for concurrent use.
type IntensityPredictor interface {
	Predict(ctx context.Context, profile *BodyProfile) WorkoutInsights
}

// RandomPredictor is the placeholder predictor: intensity is drawn from
// [0.6, 0.9) and duration from [30, 90).
type RandomPredictor struct {
	rnd RandomSource
}

// NewRandomPredictor builds a predictor. A nil source uses the global generator.
func NewRandomPredictor(rnd RandomSource) *RandomPredictor {
	if rnd == nil {
		rnd = globalRandom{}
	} else {
		rnd = &lockedRandom{src: rnd}
	}
	return &RandomPredictor{rnd: rnd}
}

func (p *RandomPredictor) Predict(_ context.Context, _ *BodyProfile) WorkoutInsights {
	intensity := 0.6 + p.rnd.Float64()*0.3
	duration := int(30 + p.rnd.Float64()*60)
	return WorkoutInsights{
		RecommendedIntensity: intensity,
		OptimalDuration:      duration,
		RecoveryHours:        int(24 + (1-intensity)*24),
	}
}
