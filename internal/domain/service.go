package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"example.com/fitplan/internal/observability"
)

// PlanCache is the key-value store holding generated plans and preferences.
type PlanCache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// InteractionLog is the append-only audit sink.
type InteractionLog interface {
	Append(ctx context.Context, record InteractionRecord) error
}

// Generator is the external generative service. Implementations must honour
// ctx cancellation; the Service also stops waiting when ctx expires.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Defaults for Service options.
const (
	DefaultPrimaryTimeout = 20 * time.Second
	DefaultPlanTTL        = time.Hour
	DefaultPreferenceTTL  = 24 * time.Hour
)

// Service orchestrates plan generation: validation, filtering, the primary
// attempt with fallback, assembly, caching and interaction logging.
type Service struct {
	catalog   Catalog
	generator Generator
	cache     PlanCache
	log       InteractionLog
	predictor IntensityPredictor

	validator      *requestValidator
	limits         Limits
	rnd            RandomSource
	now            func() time.Time
	newID          func() string
	logger         *zap.Logger
	tracer         trace.Tracer
	primaryTimeout time.Duration
	planTTL        time.Duration
	preferenceTTL  time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRandom injects the sampling source. It is serialized internally.
func WithRandom(rnd RandomSource) Option {
	return func(s *Service) {
		if rnd != nil {
			s.rnd = &lockedRandom{src: rnd}
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the plan identifier suffix.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLimits sets the accepted duration range.
func WithLimits(limits Limits) Option {
	return func(s *Service) {
		if limits.MinDuration > 0 && limits.MaxDuration >= limits.MinDuration {
			s.limits = limits
		}
	}
}

// WithPrimaryTimeout bounds each generative call.
func WithPrimaryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.primaryTimeout = d
		}
	}
}

// WithPlanTTL sets the cache lifetime of generated plans.
func WithPlanTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.planTTL = d
		}
	}
}

// WithPreferenceTTL sets the cache lifetime of preference snapshots.
func WithPreferenceTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.preferenceTTL = d
		}
	}
}

// WithPredictor attaches workout insights to generated plans.
func WithPredictor(p IntensityPredictor) Option {
	return func(s *Service) { s.predictor = p }
}

// WithTracer sets the span tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewService constructs a Service. A nil generator disables the primary path.
func NewService(catalog Catalog, generator Generator, cache PlanCache, log InteractionLog, opts ...Option) *Service {
	s := &Service{
		catalog:        catalog,
		generator:      generator,
		cache:          cache,
		log:            log,
		limits:         DefaultLimits,
		rnd:            globalRandom{},
		now:            func() time.Time { return time.Now().UTC() },
		newID:          func() string { return uuid.NewString()[:8] },
		logger:         zap.NewNop(),
		tracer:         noop.NewTracerProvider().Tracer("fitplan/domain"),
		primaryTimeout: DefaultPrimaryTimeout,
		planTTL:        DefaultPlanTTL,
		preferenceTTL:  DefaultPreferenceTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validator = newRequestValidator(s.limits)
	return s
}

// Catalog returns the registry the service filters against.
func (s *Service) Catalog() Catalog {
	return s.catalog
}

// GenerateWorkout produces a plan for req. Only ErrInvalidRequest and
// ErrNoEligibleExercises reach the caller; generative failures fall back to
// the rule-based selector and side-effect failures are logged.
func (s *Service) GenerateWorkout(ctx context.Context, req PlanRequest) (GeneratedPlan, error) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "domain.GenerateWorkout")
	defer span.End()

	req = req.Normalize()
	if err := s.validator.workout(req); err != nil {
		s.reject(span, "invalid_request", err)
		return GeneratedPlan{}, err
	}
	span.SetAttributes(
		attribute.String("workout.type", string(req.WorkoutType)),
		attribute.String("workout.level", string(req.ExperienceLevel)),
		attribute.Int("workout.duration", req.DurationMinutes),
	)

	input := fmt.Sprintf("Generate workout: %s", req.WorkoutType)
	eligible, err := Eligible(req, s.catalog)
	if err != nil {
		s.recordInteraction(ctx, req.UserID, input, err.Error(), CategoryWorkoutGeneration, start)
		s.reject(span, "no_eligible_exercises", err)
		return GeneratedPlan{}, err
	}

	target := TargetCount(req.DurationMinutes, len(eligible))
	source := SourcePrimary
	exercises, ok := s.primaryAttempt(ctx, req, eligible, target)
	if !ok {
		source = SourceFallback
		exercises = Select(eligible, req, s.rnd)
	}

	plan := s.assemble(ctx, req, exercises, source)
	span.SetAttributes(attribute.String("plan.source", string(source)), attribute.String("plan.id", plan.ID))

	s.storePlan(ctx, plan)
	s.storePreferences(ctx, req)
	s.recordInteraction(ctx, req.UserID, input, fmt.Sprintf("Created workout plan %s", plan.ID), CategoryWorkoutGeneration, start)

	observability.RecordPlanGenerated(string(source), plan.CreatedAt)
	observability.ObserveGeneration("workout", s.now().Sub(start))
	s.logger.Info("workout plan generated",
		zap.String("plan_id", plan.ID),
		zap.String("user_id", req.UserID),
		zap.String("source", string(source)),
		zap.Int("exercises", len(plan.Exercises)),
	)
	return plan, nil
}

// primaryAttempt asks the generator for a plan and validates the answer
// against the eligible pool. It reports false whenever the fallback must run.
func (s *Service) primaryAttempt(ctx context.Context, req PlanRequest, eligible []ExerciseDefinition, target int) ([]ExerciseEntry, bool) {
	if s.generator == nil {
		return nil, false
	}
	ctx, span := s.tracer.Start(ctx, "domain.PrimaryAttempt")
	defer span.End()

	text, err := s.generate(ctx, BuildWorkoutPrompt(req, eligible, target))
	if err != nil {
		s.primaryFailed(span, req.UserID, err)
		return nil, false
	}
	defs, instructions, err := ExtractExercises(text, eligible, target)
	if err != nil {
		s.primaryFailed(span, req.UserID, err)
		return nil, false
	}

	p := Prescribe(req.WorkoutType, req.ExperienceLevel, req.DurationMinutes)
	entries := make([]ExerciseEntry, 0, len(defs))
	for i, def := range defs {
		entries = append(entries, NewEntry(def, p, instructions[i]))
	}
	return entries, true
}

// generate calls the generator under the primary timeout and stops waiting
// once the deadline passes even if the generator ignores ctx.
func (s *Service) generate(ctx context.Context, prompt Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.primaryTimeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := s.generator.Generate(ctx, prompt)
		done <- result{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("%w: %w", ErrPrimaryServiceUnavailable, res.err)
		}
		return res.text, nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrPrimaryServiceUnavailable, ctx.Err())
	}
}

func (s *Service) primaryFailed(span trace.Span, userID string, err error) {
	reason := "error"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = "timeout"
	case errors.Is(err, context.Canceled):
		reason = "canceled"
	case errors.Is(err, errUnusableResponse):
		reason = "unparseable"
	}
	observability.RecordPrimaryFailure(reason)
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	s.logger.Warn("primary generation failed, using fallback",
		zap.String("user_id", userID),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

func (s *Service) assemble(ctx context.Context, req PlanRequest, exercises []ExerciseEntry, source Source) GeneratedPlan {
	now := s.now()
	name := fmt.Sprintf("AI-Generated %s Workout", req.WorkoutType.Title())
	if source == SourceFallback {
		name = fmt.Sprintf("Custom %s Workout", req.WorkoutType.Title())
	}

	targets := cloneStrings(req.TargetMuscleGroups)
	if len(targets) == 0 {
		targets = []string{FullBody}
	}

	equipment := make([]string, 0)
	for _, ex := range exercises {
		for _, item := range ex.Equipment {
			if !slices.Contains(equipment, item) {
				equipment = append(equipment, item)
			}
		}
	}
	slices.Sort(equipment)

	plan := GeneratedPlan{
		ID:                 fmt.Sprintf("workout_%s_%d_%s", req.UserID, now.Unix(), s.newID()),
		UserID:             req.UserID,
		Name:               name,
		Description:        fmt.Sprintf("Personalized %s level %s workout", req.ExperienceLevel, req.WorkoutType),
		DurationMinutes:    req.DurationMinutes,
		Difficulty:         req.ExperienceLevel,
		WorkoutType:        req.WorkoutType,
		Exercises:          exercises,
		EstimatedCalories:  Calories(req.DurationMinutes, req.WorkoutType, req.ExperienceLevel),
		TargetMuscleGroups: targets,
		EquipmentNeeded:    equipment,
		CreatedAt:          now,
		Source:             source,
	}
	if s.predictor != nil {
		insights := s.predictor.Predict(ctx, nil)
		plan.Insights = &insights
	}
	return plan
}

// LookupWorkoutPlan returns a cached plan or ErrPlanNotFound.
func (s *Service) LookupWorkoutPlan(ctx context.Context, id string) (GeneratedPlan, error) {
	rec, ok, err := getRecord[CachedPlanRecord](ctx, s.cache, workoutPlanKey(id))
	if err != nil {
		return GeneratedPlan{}, fmt.Errorf("lookup workout plan: %w", err)
	}
	if !ok || !rec.ExpiresAt.After(s.now()) {
		return GeneratedPlan{}, ErrPlanNotFound
	}
	return rec.Plan, nil
}

// Preferences returns the most recent accepted workout request for a user.
func (s *Service) Preferences(ctx context.Context, userID string) (PreferenceSnapshot, error) {
	snap, ok, err := getRecord[PreferenceSnapshot](ctx, s.cache, preferencesKey(userID))
	if err != nil {
		return PreferenceSnapshot{}, fmt.Errorf("lookup preferences: %w", err)
	}
	if !ok {
		return PreferenceSnapshot{}, ErrPreferencesNotFound
	}
	return snap, nil
}

// GenerateNutrition builds a meal plan around the requested calorie goal.
// When a body profile is supplied the derived needs are attached.
func (s *Service) GenerateNutrition(ctx context.Context, req NutritionRequest) (NutritionPlan, error) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "domain.GenerateNutrition")
	defer span.End()

	req = req.Normalize()
	if err := s.validator.check(req); err != nil {
		s.reject(span, "invalid_request", err)
		return NutritionPlan{}, err
	}

	now := s.now()
	plan := NutritionPlan{
		ID:            fmt.Sprintf("nutrition_%s_%d_%s", req.UserID, now.Unix(), s.newID()),
		UserID:        req.UserID,
		Name:          "AI-Generated Nutrition Plan",
		DailyCalories: req.DailyCalorieGoal,
		Meals:         MealSplit(req.DailyCalorieGoal, req.MealCount),
		Macros:        DefaultMacroSplit,
		CreatedAt:     now,
	}
	if req.Profile != nil {
		needs := Needs(*req.Profile, ActivityMultiplier(req.ActivityLevel))
		plan.Needs = &needs
	}

	rec := CachedNutritionRecord{Plan: plan, ExpiresAt: now.Add(s.planTTL)}
	s.storeRecord(ctx, nutritionPlanKey(plan.ID), rec, s.planTTL, "plan_cache")
	s.recordInteraction(ctx, req.UserID,
		fmt.Sprintf("Generate nutrition plan: %d kcal", req.DailyCalorieGoal),
		fmt.Sprintf("Created nutrition plan %s", plan.ID),
		CategoryNutritionGeneration, start)

	observability.ObserveGeneration("nutrition", s.now().Sub(start))
	return plan, nil
}

// LookupNutritionPlan returns a cached nutrition plan or ErrPlanNotFound.
func (s *Service) LookupNutritionPlan(ctx context.Context, id string) (NutritionPlan, error) {
	rec, ok, err := getRecord[CachedNutritionRecord](ctx, s.cache, nutritionPlanKey(id))
	if err != nil {
		return NutritionPlan{}, fmt.Errorf("lookup nutrition plan: %w", err)
	}
	if !ok || !rec.ExpiresAt.After(s.now()) {
		return NutritionPlan{}, ErrPlanNotFound
	}
	return rec.Plan, nil
}

// Chat answers a user message. Generative failures produce a degraded canned
// reply rather than an error.
func (s *Service) Chat(ctx context.Context, msg ChatMessage) (ChatReply, error) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "domain.Chat")
	defer span.End()

	msg = msg.Normalize()
	if err := s.validator.check(msg); err != nil {
		s.reject(span, "invalid_request", err)
		return ChatReply{}, err
	}

	reply := ChatReply{
		MessageType: msg.MessageType,
		Suggestions: cloneStrings(ChatSuggestions),
	}
	var err error
	if s.generator == nil {
		err = ErrPrimaryServiceUnavailable
	} else {
		reply.Response, err = s.generate(ctx, BuildChatPrompt(msg))
		if err == nil && reply.Response == "" {
			err = fmt.Errorf("%w: empty response", ErrPrimaryServiceUnavailable)
		}
	}
	if err != nil {
		s.logger.Warn("chat generation failed", zap.String("user_id", msg.UserID), zap.Error(err))
		observability.RecordPrimaryFailure("chat")
		reply.Response = ChatFallbackResponse
		reply.Degraded = true
	}
	reply.Timestamp = s.now()

	s.recordInteraction(ctx, msg.UserID, msg.Message, reply.Response, msg.MessageType, start)
	observability.ObserveGeneration("chat", s.now().Sub(start))
	return reply, nil
}

func (s *Service) reject(span trace.Span, reason string, err error) {
	observability.RecordRejected(reason)
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
}

func (s *Service) storePlan(ctx context.Context, plan GeneratedPlan) {
	rec := CachedPlanRecord{Plan: plan, ExpiresAt: plan.CreatedAt.Add(s.planTTL)}
	s.storeRecord(ctx, workoutPlanKey(plan.ID), rec, s.planTTL, "plan_cache")
}

func (s *Service) storePreferences(ctx context.Context, req PlanRequest) {
	snap := PreferenceSnapshot{UserID: req.UserID, Request: req, UpdatedAt: s.now()}
	s.storeRecord(ctx, preferencesKey(req.UserID), snap, s.preferenceTTL, "preference_cache")
}

// storeRecord writes a JSON value to the cache. Failures are logged and
// counted; the write is not cancelled with the request.
func (s *Service) storeRecord(ctx context.Context, key string, value any, ttl time.Duration, target string) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err == nil {
		err = s.cache.Set(context.WithoutCancel(ctx), key, data, ttl)
	}
	if err != nil {
		observability.RecordSideEffectFailure(target)
		s.logger.Warn("cache write failed",
			zap.String("key", key),
			zap.Error(fmt.Errorf("%w: %w", ErrSideEffectWrite, err)),
		)
	}
}

func (s *Service) recordInteraction(ctx context.Context, userID, input, output, category string, start time.Time) {
	if s.log == nil {
		return
	}
	rec := InteractionRecord{
		UserID:    userID,
		Input:     input,
		Output:    output,
		Category:  category,
		LatencyMS: float64(s.now().Sub(start)) / float64(time.Millisecond),
		CreatedAt: s.now(),
	}
	if err := s.log.Append(context.WithoutCancel(ctx), rec); err != nil {
		observability.RecordSideEffectFailure("interaction_log")
		s.logger.Warn("interaction log write failed",
			zap.String("user_id", userID),
			zap.Error(fmt.Errorf("%w: %w", ErrSideEffectWrite, err)),
		)
	}
}

func getRecord[T any](ctx context.Context, cache PlanCache, key string) (T, bool, error) {
	var zero T
	if cache == nil {
		return zero, false, nil
	}
	data, ok, err := cache.Get(ctx, key)
	if err != nil {
		return zero, false, err
	}
	observability.RecordCacheLookup(ok)
	if !ok {
		return zero, false, nil
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, true, nil
}

func workoutPlanKey(id string) string   { return "workout_plan:" + id }
func nutritionPlanKey(id string) string { return "nutrition_plan:" + id }
func preferencesKey(user string) string { return "user_preferences:" + user }
