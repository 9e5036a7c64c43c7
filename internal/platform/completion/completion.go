// Package completion turns healthcare requests into role-templated prompts
// and runs them against a hosted chat-completions API with bounded,
// exponentially backed-off retries.
package completion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Kind string

const (
	KindChat          Kind = "chat"
	KindSymptomCheck  Kind = "symptom_check"
	KindTreatmentPlan Kind = "treatment_plan"
	KindGeneralAdvice Kind = "general_advice"
)

func (k Kind) Valid() bool {
	_, ok := preambles[k]
	return ok
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Profile personalizes symptom checks and treatment plans. The list fields
// hold one short line per active entry of the patient's medical record.
// Allergens carries the same allergies by name for screening answers.
type Profile struct {
	Age         int
	Gender      string
	Conditions  []string
	Medications []string
	Allergies   []string
	Allergens   []Allergen
}

// Allergen is an active allergy as named in the patient's record.
type Allergen struct {
	Name     string
	Severity string
}

// Turn is one earlier chat exchange, oldest first in Request.History.
type Turn struct {
	Request  string
	Response string
}

type Request struct {
	Kind    Kind
	Text    string
	Profile *Profile
	History []Turn
}

type Result struct {
	Kind     Kind   `json:"kind"`
	Text     string `json:"text"`
	Model    string `json:"model,omitempty"`
	Attempts int    `json:"-"`
}

// ChatRequest is what a Transport sends for one attempt.
type ChatRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

type ChatResponse struct {
	Text  string
	Model string
}

// Transport performs a single completion call. Implementations must return a
// *TransportError for failures that can be classified.
type Transport interface {
	Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

const defaultAttemptTimeout = 45 * time.Second

type Config struct {
	Model          string
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
	MaxTokens      int
	Temperature    float64
	Jitter         bool
	HistoryTurns   int
}

// Gateway holds only immutable configuration and is safe for concurrent use.
type Gateway struct {
	cfg       Config
	transport Transport
	logger    zerolog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, transport Transport, logger zerolog.Logger) *Gateway {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = defaultAttemptTimeout
	}
	return &Gateway{
		cfg:       cfg,
		transport: transport,
		logger:    logger.With().Str("component", "completion").Logger(),
		sleep:     sleepContext,
	}
}

// Backoff is the wait after failed attempt number attempt (0-based):
// base * 2^attempt, capped at max when max is positive. Without a cap the
// doubling saturates at the largest Duration.
func Backoff(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		if max > 0 && d >= max {
			return max
		}
		if d > math.MaxInt64/2 {
			d = math.MaxInt64
			break
		}
		d *= 2
	}
	if max > 0 && d > max {
		return max
	}
	return d
}

// delay is Backoff under this gateway's configuration, with optional full
// jitter drawn from [d/2, d].
func (g *Gateway) delay(attempt int) time.Duration {
	d := Backoff(g.cfg.BaseDelay, g.cfg.MaxDelay, attempt)
	if g.cfg.Jitter && d > 1 {
		half := d / 2
		d = half + time.Duration(rand.Int64N(int64(d-half)+1))
	}
	return d
}

// Complete runs req through at most MaxAttempts calls. Transient failures are
// retried after delay(attempt); fatal failures stop immediately. When no
// attempt succeeds the returned error matches ErrUnavailable.
func (g *Gateway) Complete(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}

	chatReq := &ChatRequest{
		Model:       g.cfg.Model,
		Messages:    BuildMessages(req, g.cfg.HistoryTurns),
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	}

	var last error
	attempts := 0
	for attempt := 0; attempt < g.cfg.MaxAttempts; attempt++ {
		attempts++
		start := time.Now()
		resp, err := g.attempt(ctx, chatReq)
		if err == nil {
			g.logger.Info().
				Str("kind", string(req.Kind)).
				Int("attempt", attempts).
				Dur("latency", time.Since(start)).
				Msg("completion succeeded")
			if HasPrescriptionLanguage(resp.Text) {
				g.logger.Warn().Str("kind", string(req.Kind)).Msg("completion contains prescription language")
			}
			model := resp.Model
			if model == "" {
				model = g.cfg.Model
			}
			return &Result{Kind: req.Kind, Text: resp.Text, Model: model, Attempts: attempts}, nil
		}
		last = err

		if !IsTransient(err) {
			g.logger.Error().Err(err).
				Str("kind", string(req.Kind)).
				Int("attempt", attempts).
				Msg("completion failed with non-retryable error")
			break
		}
		if attempt == g.cfg.MaxAttempts-1 {
			break
		}

		wait := g.delay(attempt)
		g.logger.Warn().Err(err).
			Str("kind", string(req.Kind)).
			Int("attempt", attempts).
			Dur("retry_in", wait).
			Msg("completion attempt failed, retrying")
		if err := g.sleep(ctx, wait); err != nil {
			last = fmt.Errorf("retry wait aborted: %w", err)
			break
		}
	}

	g.logger.Error().Err(last).
		Str("kind", string(req.Kind)).
		Int("attempts", attempts).
		Msg("completion unavailable")
	return nil, &UnavailableError{Kind: req.Kind, Attempts: attempts, Last: last}
}

func (g *Gateway) attempt(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	actx, cancel := context.WithTimeout(ctx, g.cfg.AttemptTimeout)
	defer cancel()

	resp, err := g.transport.Complete(actx, req)
	if err != nil {
		if ctx.Err() != nil {
			// Caller is gone; retrying cannot help.
			return nil, &TransportError{Transient: false, Err: ctx.Err()}
		}
		if errors.Is(actx.Err(), context.DeadlineExceeded) {
			return nil, &TransportError{Transient: true, Err: fmt.Errorf("attempt timed out after %s: %w", g.cfg.AttemptTimeout, err)}
		}
		return nil, err
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return nil, &TransportError{Transient: false, Err: errEmptyCompletion}
	}
	return resp, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
