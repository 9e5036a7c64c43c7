package medical

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/completion"
	"github.com/sharma-sugurthi/HealthAI/internal/platform/validate"
)

const (
	maxNameLen   = 200
	maxDetailLen = 500

	// maxProfileEntries caps each record section sent with a prompt.
	maxProfileEntries = 10
	// recordScanLimit bounds the rows read to build a summary.
	recordScanLimit = 200
)

// ProfileSource supplies the account half of the completion profile.
type ProfileSource interface {
	CompletionProfile(ctx context.Context, userID uuid.UUID) (*completion.Profile, error)
}

type Service struct {
	repo     EntryRepository
	accounts ProfileSource
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo EntryRepository, accounts ProfileSource, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		logger:   logger.With().Str("component", "medical").Logger(),
		now:      time.Now,
	}
}

// Add validates in and stores it as an active entry. Allergies default to
// moderate severity.
func (s *Service) Add(ctx context.Context, userID uuid.UUID, in EntryInput) (*Entry, error) {
	category, err := ParseCategory(in.Category)
	if err != nil {
		return nil, err
	}
	name, err := validate.Text("name", in.Name, 1, maxNameLen)
	if err != nil {
		return nil, err
	}
	detail, err := validate.OptionalText("detail", in.Detail, maxDetailLen)
	if err != nil {
		return nil, err
	}
	if category == CategoryAllergy && detail == "" {
		return nil, validate.Errorf("detail", "must describe the reaction")
	}
	severity, err := parseSeverity(category, in.Severity)
	if err != nil {
		return nil, err
	}

	e := &Entry{
		UserID:   userID,
		Category: category,
		Name:     name,
		Detail:   detail,
		Severity: severity,
		Active:   true,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("user_id", userID.String()).
		Str("category", string(category)).
		Msg("medical entry added")
	return e, nil
}

func parseSeverity(category Category, raw string) (string, error) {
	sev := strings.ToLower(strings.TrimSpace(raw))
	sev = strings.NewReplacer(" ", "_", "-", "_").Replace(sev)
	allowed := severities[category]
	if sev == "" {
		if category == CategoryAllergy {
			return "moderate", nil
		}
		return "", nil
	}
	if len(allowed) == 0 {
		return "", validate.Errorf("severity", "is not recorded for %ss", category)
	}
	if !slices.Contains(allowed, sev) {
		return "", validate.Errorf("severity", "must be one of %s", strings.Join(allowed, ", "))
	}
	return sev, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, f Filter, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, userID, f, limit, offset)
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// SetActive marks a condition resolved, a medication discontinued or an
// allergy outgrown, or reverses that.
func (s *Service) SetActive(ctx context.Context, userID, id uuid.UUID, active bool) (*Entry, error) {
	if err := s.repo.SetActive(ctx, userID, id, active, s.now()); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, userID, id)
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", userID.String()).Msg("medical entry deleted")
	return nil
}

// Summary renders the active record, one line per entry, with severe
// allergies repeated in SevereAllergies.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	entries, err := s.activeEntries(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summarize(entries), nil
}

func (s *Service) activeEntries(ctx context.Context, userID uuid.UUID) ([]*Entry, error) {
	active := true
	entries, _, err := s.repo.List(ctx, userID, Filter{Active: &active}, recordScanLimit, 0)
	return entries, err
}

func summarize(entries []*Entry) *Summary {
	sum := &Summary{
		Conditions:      []string{},
		Medications:     []string{},
		Allergies:       []string{},
		SevereAllergies: []string{},
	}
	for _, e := range entries {
		switch e.Category {
		case CategoryCondition:
			sum.Conditions = append(sum.Conditions, e.Line())
		case CategoryMedication:
			sum.Medications = append(sum.Medications, e.Line())
		case CategoryAllergy:
			sum.Allergies = append(sum.Allergies, e.Line())
			if e.Severe() {
				sum.SevereAllergies = append(sum.SevereAllergies, e.Line())
			}
		}
	}
	return sum
}

// CompletionProfile adds the active medical record to the account profile.
// A failed record lookup is logged and the account profile returned alone.
func (s *Service) CompletionProfile(ctx context.Context, userID uuid.UUID) (*completion.Profile, error) {
	profile, err := s.accounts.CompletionProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.activeEntries(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("medical record unavailable, prompting without it")
		return profile, nil
	}
	sum := summarize(entries)

	out := *profile
	out.Conditions = capLines(sum.Conditions)
	out.Medications = capLines(sum.Medications)
	// Severe allergies go first so the cap never drops them.
	allergies := append([]string{}, sum.SevereAllergies...)
	for _, a := range sum.Allergies {
		if !slices.Contains(sum.SevereAllergies, a) {
			allergies = append(allergies, a)
		}
	}
	out.Allergies = capLines(allergies)
	out.Allergens = allergens(entries)
	return &out, nil
}

// allergens lists the active allergies by name, severe ones first, under
// the same cap as the prompt lines.
func allergens(entries []*Entry) []completion.Allergen {
	var severe, rest []completion.Allergen
	for _, e := range entries {
		if e.Category != CategoryAllergy {
			continue
		}
		a := completion.Allergen{Name: e.Name, Severity: e.Severity}
		if e.Severe() {
			severe = append(severe, a)
		} else {
			rest = append(rest, a)
		}
	}
	out := append(severe, rest...)
	if len(out) > maxProfileEntries {
		out = out[:maxProfileEntries]
	}
	return out
}

func capLines(lines []string) []string {
	if len(lines) == 0 {
		return nil
	}
	if len(lines) > maxProfileEntries {
		return lines[:maxProfileEntries]
	}
	return lines
}
