package treatment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/completion"
	"github.com/sharma-sugurthi/HealthAI/internal/platform/validate"
)

const (
	minConditionLen = 3
	maxConditionLen = 200
	maxTitleLen     = 255
)

type Completer interface {
	Complete(ctx context.Context, req completion.Request) (*completion.Result, error)
}

type ProfileSource interface {
	CompletionProfile(ctx context.Context, userID uuid.UUID) (*completion.Profile, error)
}

type Service struct {
	repo     PlanRepository
	gateway  Completer
	profiles ProfileSource
	logger   zerolog.Logger
}

func NewService(repo PlanRepository, gateway Completer, profiles ProfileSource, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		gateway:  gateway,
		profiles: profiles,
		logger:   logger.With().Str("component", "treatment").Logger(),
	}
}

// Generate asks the gateway for a plan for condition, personalized with the
// user's age and gender, and stores it. An empty title becomes
// "Treatment plan: <condition>".
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, condition, title string) (*Plan, error) {
	condition, err := validate.Text("condition", condition, minConditionLen, maxConditionLen)
	if err != nil {
		return nil, err
	}
	title, err = validate.OptionalText("title", title, maxTitleLen)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = "Treatment plan: " + condition
	}

	req := completion.Request{Kind: completion.KindTreatmentPlan, Text: condition}
	if s.profiles != nil {
		profile, err := s.profiles.CompletionProfile(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load profile: %w", err)
		}
		req.Profile = profile
	}

	res, err := s.gateway.Complete(context.WithoutCancel(ctx), req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		s.logger.Warn().Str("user_id", userID.String()).Msg("caller gone, discarding treatment plan")
		return nil, err
	}

	body := res.Text
	if req.Profile != nil {
		if alerts := completion.AllergyAlerts(body, req.Profile.Allergens); len(alerts) > 0 {
			s.logger.Warn().Str("user_id", userID.String()).Int("alerts", len(alerts)).Msg("treatment plan names a recorded allergen")
			body = completion.WithAllergyAlerts(body, alerts)
		}
	}

	p := &Plan{UserID: userID, Title: title, Condition: condition, Plan: body}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", userID.String()).Str("plan_id", p.ID.String()).Msg("treatment plan generated")
	return p, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Plan, int, error) {
	return s.repo.List(ctx, userID, limit, offset)
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Plan, error) {
	return s.repo.GetByID(ctx, userID, id)
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}
