package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/completion"
	"github.com/sharma-sugurthi/HealthAI/internal/platform/validate"
)

const (
	maxMessageLen  = 5000
	minSymptomsLen = 10
	maxSymptomsLen = 2000
	minTopicLen    = 3
	maxTopicLen    = 200
)

// Completer is the completion gateway as seen by this package.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) (*completion.Result, error)
}

// ProfileSource supplies the age and gender used to personalize prompts.
type ProfileSource interface {
	CompletionProfile(ctx context.Context, userID uuid.UUID) (*completion.Profile, error)
}

type Service struct {
	repo         MessageRepository
	gateway      Completer
	profiles     ProfileSource
	historyTurns int
	logger       zerolog.Logger
}

func NewService(repo MessageRepository, gateway Completer, profiles ProfileSource, historyTurns int, logger zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		gateway:      gateway,
		profiles:     profiles,
		historyTurns: historyTurns,
		logger:       logger.With().Str("component", "chat").Logger(),
	}
}

// Send continues the user's conversation, carrying the last historyTurns
// chat exchanges as context. With useRecord the patient's profile and
// medical record open the prompt for this message only; history keeps the
// bare text.
func (s *Service) Send(ctx context.Context, userID uuid.UUID, text string, useRecord bool) (*Message, error) {
	text, err := validate.Text("message", text, 1, maxMessageLen)
	if err != nil {
		return nil, err
	}

	recent, err := s.repo.Recent(ctx, userID, completion.KindChat, s.historyTurns)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	history := make([]completion.Turn, len(recent))
	for i, m := range recent {
		history[i] = m.turn()
	}

	req := completion.Request{Kind: completion.KindChat, Text: text, History: history}
	if useRecord && s.profiles != nil {
		profile, err := s.profiles.CompletionProfile(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load profile: %w", err)
		}
		req.Profile = profile
	}
	return s.exchange(ctx, userID, req, true)
}

func (s *Service) AnalyzeSymptoms(ctx context.Context, userID uuid.UUID, symptoms string) (*Message, error) {
	symptoms, err := validate.Text("symptoms", symptoms, minSymptomsLen, maxSymptomsLen)
	if err != nil {
		return nil, err
	}
	req := completion.Request{Kind: completion.KindSymptomCheck, Text: symptoms}
	if s.profiles != nil {
		profile, err := s.profiles.CompletionProfile(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load profile: %w", err)
		}
		req.Profile = profile
	}
	return s.exchange(ctx, userID, req, true)
}

func (s *Service) Advice(ctx context.Context, userID uuid.UUID, topic string) (*Message, error) {
	topic, err := validate.Text("topic", topic, minTopicLen, maxTopicLen)
	if err != nil {
		return nil, err
	}
	return s.exchange(ctx, userID, completion.Request{Kind: completion.KindGeneralAdvice, Text: topic}, false)
}

// exchange runs req through the gateway and persists the result. The
// gateway call is detached from ctx so an in-flight request completes, but
// nothing is stored for a caller who has gone away.
func (s *Service) exchange(ctx context.Context, userID uuid.UUID, req completion.Request, screen bool) (*Message, error) {
	res, err := s.gateway.Complete(context.WithoutCancel(ctx), req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		s.logger.Warn().Str("user_id", userID.String()).Str("kind", string(req.Kind)).Msg("caller gone, discarding completion")
		return nil, err
	}

	response := res.Text
	if req.Profile != nil {
		if alerts := completion.AllergyAlerts(response, req.Profile.Allergens); len(alerts) > 0 {
			s.logger.Warn().Str("user_id", userID.String()).Str("kind", string(req.Kind)).Int("alerts", len(alerts)).Msg("answer names a recorded allergen")
			response = completion.WithAllergyAlerts(response, alerts)
		}
	}
	if screen {
		if kw := completion.DetectEmergency(req.Text); kw != "" {
			s.logger.Warn().Str("user_id", userID.String()).Str("kind", string(req.Kind)).Str("keyword", kw).Msg("emergency keywords detected")
			response = completion.EmergencyNotice + response
		}
	}

	m := &Message{UserID: userID, Kind: req.Kind, Request: req.Text, Response: response}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	return s.repo.List(ctx, userID, limit, offset)
}

// Clear deletes every message the user has and reports how many there were.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.repo.Clear(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Str("user_id", userID.String()).Int("deleted", n).Msg("chat history cleared")
	return n, nil
}
