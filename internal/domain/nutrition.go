package domain

import (
	"strings"
	"time"
)

// NutritionRequest is the nutrition plan input.
type NutritionRequest struct {
	UserID              string       `json:"user_id" validate:"required,max=128"`
	DailyCalorieGoal    int          `json:"daily_calorie_goal" validate:"gte=1000,lte=5000"`
	DietaryRestrictions []string     `json:"dietary_restrictions" validate:"max=16,dive,max=128"`
	FoodPreferences     []string     `json:"food_preferences" validate:"max=16,dive,max=128"`
	MealCount           int          `json:"meal_count" validate:"gte=3,lte=6"`
	ActivityLevel       string       `json:"activity_level" validate:"required,oneof=sedentary light moderate active very_active"`
	HealthGoals         []string     `json:"health_goals" validate:"max=16,dive,max=256"`
	Profile             *BodyProfile `json:"profile,omitempty"`
}

// DefaultMealCount applies when a request leaves meal_count unset.
const DefaultMealCount = 3

// Normalize fills defaults and canonicalizes enumerations.
func (r NutritionRequest) Normalize() NutritionRequest {
	r.UserID = strings.TrimSpace(r.UserID)
	r.ActivityLevel = strings.ToLower(strings.TrimSpace(r.ActivityLevel))
	if r.MealCount == 0 {
		r.MealCount = DefaultMealCount
	}
	r.DietaryRestrictions = normalizeText(r.DietaryRestrictions)
	r.FoodPreferences = normalizeText(r.FoodPreferences)
	r.HealthGoals = normalizeText(r.HealthGoals)
	return r
}

// NutritionPlan is the generated daily meal plan.
type NutritionPlan struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Name          string          `json:"name"`
	DailyCalories int             `json:"daily_calories"`
	Meals         []Meal          `json:"meals"`
	Macros        MacroSplit      `json:"macros"`
	Needs         *NutritionNeeds `json:"ml_recommendations,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CachedNutritionRecord is the serialized cache value for a nutrition plan.
type CachedNutritionRecord struct {
	Plan      NutritionPlan `json:"plan"`
	ExpiresAt time.Time     `json:"expires_at"`
}
