package domain

import (
	"fmt"
	"strings"
)

// Prompt is a structured request to the generative service.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

const (
	workoutSystemPrompt = "You are an expert fitness trainer and exercise physiologist. Create detailed, safe, and effective workout plans."
	chatSystemPrompt    = "You are FitSync AI, a knowledgeable fitness and nutrition assistant. Provide helpful, encouraging, and scientifically-backed advice."

	workoutMaxTokens = 1500
	chatMaxTokens    = 500
	promptTemp       = 0.7
)

// BuildWorkoutPrompt renders the workout request and restricts the answer to
// names from the eligible pool.
func BuildWorkoutPrompt(req PlanRequest, eligible []ExerciseDefinition, target int) Prompt {
	var b strings.Builder
	b.WriteString("Create a personalized workout plan with the following requirements:\n")
	fmt.Fprintf(&b, "- Experience Level: %s\n", req.ExperienceLevel)
	fmt.Fprintf(&b, "- Duration: %d minutes\n", req.DurationMinutes)
	fmt.Fprintf(&b, "- Workout Type: %s\n", req.WorkoutType)
	fmt.Fprintf(&b, "- Target Muscle Groups: %s\n", joinOr(req.TargetMuscleGroups, "full body"))
	fmt.Fprintf(&b, "- Available Equipment: %s\n", joinOr(req.AvailableEquipment, "bodyweight only"))
	fmt.Fprintf(&b, "- Fitness Goals: %s\n", joinOr(req.FitnessGoals, "general fitness"))
	fmt.Fprintf(&b, "- Limitations: %s\n", joinOr(req.Limitations, "none"))
	b.WriteString("\nChoose exactly ")
	fmt.Fprintf(&b, "%d exercises, using only names from this list:\n", target)
	for _, ex := range eligible {
		fmt.Fprintf(&b, "- %s\n", ex.Name)
	}
	b.WriteString("\nRespond with JSON only, in the form ")
	b.WriteString(`{"exercises":[{"name":"...","instructions":"..."}]}`)
	return Prompt{
		System:      workoutSystemPrompt,
		User:        b.String(),
		MaxTokens:   workoutMaxTokens,
		Temperature: promptTemp,
	}
}

// BuildChatPrompt wraps a chat message with the assistant persona.
func BuildChatPrompt(msg ChatMessage) Prompt {
	return Prompt{
		System:      chatSystemPrompt,
		User:        msg.Message,
		MaxTokens:   chatMaxTokens,
		Temperature: promptTemp,
	}
}

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}
