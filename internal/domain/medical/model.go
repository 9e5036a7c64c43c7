package medical

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/validate"
)

var ErrEntryNotFound = errors.New("medical entry not found")

// Category is the part of the medical record an entry belongs to.
type Category string

const (
	CategoryCondition  Category = "condition"
	CategoryMedication Category = "medication"
	CategoryAllergy    Category = "allergy"
)

// severities lists the accepted severity values per category. Medications
// carry none.
var severities = map[Category][]string{
	CategoryCondition:  {"mild", "moderate", "severe"},
	CategoryMedication: nil,
	CategoryAllergy:    {"mild", "moderate", "severe", "life_threatening"},
}

// ParseCategory accepts the category name in any case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := severities[c]; !ok {
		if c == "" {
			return "", validate.Errorf("category", "is required")
		}
		return "", validate.Errorf("category", "must be one of condition, medication, allergy")
	}
	return c, nil
}

// Entry is one condition, medication or allergy in a user's medical record.
// Inactive entries (resolved conditions, discontinued medications) stay in
// the record but are left out of prompts.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Category  Category  `json:"category"`
	Name      string    `json:"name"`
	Detail    string    `json:"detail"`
	Severity  string    `json:"severity,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const maxReactionInLine = 50

// Line renders the entry the way it appears in a personalized prompt.
func (e *Entry) Line() string {
	if e.Category == CategoryMedication {
		return strings.TrimSpace(e.Name + " " + e.Detail)
	}
	line := e.Name
	if e.Severity != "" {
		line += " (" + strings.ReplaceAll(e.Severity, "_", "-") + ")"
	}
	if e.Category == CategoryAllergy && e.Detail != "" {
		line += ": " + truncate(e.Detail, maxReactionInLine)
	}
	return line
}

// Severe reports whether an allergy is severe or life threatening.
func (e *Entry) Severe() bool {
	return e.Category == CategoryAllergy && (e.Severity == "severe" || e.Severity == "life_threatening")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "..."
}

// Filter narrows List. The zero value matches every entry.
type Filter struct {
	Category Category
	Active   *bool
}

type EntryInput struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Detail   string `json:"detail"`
	Severity string `json:"severity"`
}

// Summary is the active medical record rendered for display and prompts.
type Summary struct {
	Conditions      []string `json:"conditions"`
	Medications     []string `json:"medications"`
	Allergies       []string `json:"allergies"`
	SevereAllergies []string `json:"severe_allergies"`
}
