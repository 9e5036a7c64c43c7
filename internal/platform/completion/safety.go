package completion

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// EmergencyNotice is prepended to answers whose input mentions an emergency.
const EmergencyNotice = "⚠️ EMERGENCY WARNING: The symptoms you described may indicate a medical emergency. " +
	"Call your local emergency number or go to the nearest emergency room immediately.\n\n"

var emergencyKeywords = []string{
	"chest pain",
	"difficulty breathing",
	"can't breathe",
	"severe bleeding",
	"loss of consciousness",
	"severe headache",
	"stroke",
	"heart attack",
	"suicidal",
	"suicide",
	"severe allergic reaction",
	"anaphylaxis",
	"seizure",
	"severe abdominal pain",
	"coughing blood",
	"coughing up blood",
	"sudden vision loss",
	"severe burns",
	"poisoning",
	"overdose",
}

// DetectEmergency returns the first emergency keyword found in text, or "".
func DetectEmergency(text string) string {
	lower := strings.ToLower(text)
	for _, kw := range emergencyKeywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

var prescriptionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)take \d+\s*mg`),
	regexp.MustCompile(`(?i)prescribe \w+`),
	regexp.MustCompile(`(?i)dosage of \d+`),
	regexp.MustCompile(`(?i)start taking \w+`),
	regexp.MustCompile(`(?i)\d+\s*mg\s+of\s+\w+`),
	regexp.MustCompile(`(?i)you should take \w+`),
}

// HasPrescriptionLanguage reports whether a model answer reads like a
// medication order. Answers are not rewritten; the flag is logged.
func HasPrescriptionLanguage(text string) bool {
	for _, re := range prescriptionPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// AllergyAlerts returns one alert per allergen named in answer, matched
// case-insensitively on word boundaries so "latex" does not hit "latexes"
// but does hit "Latex gloves".
func AllergyAlerts(answer string, allergens []Allergen) []string {
	if len(allergens) == 0 || answer == "" {
		return nil
	}
	lower := strings.ToLower(answer)
	var alerts []string
	seen := make(map[string]bool)
	for _, a := range allergens {
		name := strings.ToLower(strings.TrimSpace(a.Name))
		if name == "" || seen[name] || !containsWord(lower, name) {
			continue
		}
		seen[name] = true
		alert := "⚠️ ALLERGY ALERT: Patient allergic to " + strings.TrimSpace(a.Name)
		if a.Severity != "" {
			alert += " (" + strings.ReplaceAll(a.Severity, "_", "-") + ")"
		}
		alerts = append(alerts, alert)
	}
	return alerts
}

// WithAllergyAlerts prepends alerts to answer, one per line.
func WithAllergyAlerts(answer string, alerts []string) string {
	if len(alerts) == 0 {
		return answer
	}
	return strings.Join(alerts, "\n") + "\n\n" + answer
}

func containsWord(text, word string) bool {
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], word)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(word)
		if !wordRuneBefore(text, start) && !wordRuneAfter(text, end) {
			return true
		}
		from = start + 1
	}
	return false
}

func wordRuneBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return isWordRune(r)
}

func wordRuneAfter(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
