package completion

import (
	"fmt"
	"strings"
)

// DisclaimerInstruction is part of every system preamble.
const DisclaimerInstruction = "Always end your answer with a short disclaimer stating that you are an AI assistant, " +
	"not a doctor, and that this information is not a substitute for professional medical advice, " +
	"diagnosis or treatment."

const chatPreamble = `You are HealthAI, an intelligent healthcare assistant. Your role is to:
1. Provide accurate, evidence-based health information
2. Be empathetic and supportive
3. Encourage users to consult healthcare professionals for serious concerns
4. Be clear and concise in your responses
5. Ask clarifying questions when needed

`

const symptomPreamble = `You are a medical symptom analyzer. Based on the symptoms provided:
1. List possible conditions that could cause these symptoms (from most to least likely)
2. Explain why each condition might be relevant
3. Suggest when to seek immediate medical attention
4. Recommend appropriate next steps

Emphasize that this is not a diagnosis and that a healthcare professional must evaluate the symptoms.

Format your response with these sections:
- Possible Conditions (with likelihood)
- When to Seek Immediate Care
- Recommended Next Steps

`

const treatmentPreamble = `You are a healthcare planning assistant. Generate a comprehensive wellness plan that includes:
1. Overview of the condition
2. Recommended lifestyle modifications
3. Dietary recommendations
4. Exercise suggestions
5. When to follow up with healthcare providers
6. Warning signs to watch for

This is a general wellness plan, not a prescription. Remind the user to consult their healthcare provider before starting any treatment.

`

const advicePreamble = `You are a health educator. Provide clear, evidence-based information about health topics.
Include:
1. Key facts about the topic
2. Best practices
3. Common misconceptions
4. When to consult a healthcare provider

Keep responses informative but accessible to general audiences.

`

var preambles = map[Kind]string{
	KindChat:          chatPreamble + DisclaimerInstruction,
	KindSymptomCheck:  symptomPreamble + DisclaimerInstruction,
	KindTreatmentPlan: treatmentPreamble + DisclaimerInstruction,
	KindGeneralAdvice: advicePreamble + DisclaimerInstruction,
}

// Preamble returns the system message for kind.
func Preamble(kind Kind) string {
	return preambles[kind]
}

// BuildMessages renders a request into the system/user/assistant sequence
// sent to the model. Only chat requests carry history, trimmed to the last
// maxTurns exchanges.
func BuildMessages(req Request, maxTurns int) []Message {
	msgs := []Message{{Role: RoleSystem, Content: Preamble(req.Kind)}}

	if req.Kind == KindChat && maxTurns > 0 {
		history := req.History
		if len(history) > maxTurns {
			history = history[len(history)-maxTurns:]
		}
		for _, turn := range history {
			msgs = append(msgs,
				Message{Role: RoleUser, Content: turn.Request},
				Message{Role: RoleAssistant, Content: turn.Response},
			)
		}
	}

	return append(msgs, Message{Role: RoleUser, Content: userPrompt(req)})
}

func userPrompt(req Request) string {
	text := strings.TrimSpace(req.Text)
	switch req.Kind {
	case KindSymptomCheck:
		prompt := "Please analyze these symptoms and provide possible conditions:\n\n" + text
		if ctx := patientContext(req.Profile); ctx != "" {
			prompt = ctx + "\n\n" + prompt
		}
		return prompt
	case KindTreatmentPlan:
		var b strings.Builder
		if ctx := patientContext(req.Profile); ctx != "" {
			b.WriteString(ctx)
			b.WriteString("\n\n")
		}
		b.WriteString("Condition: ")
		b.WriteString(text)
		b.WriteString("\n\nPlease generate a comprehensive treatment and wellness plan.")
		if req.Profile != nil && len(req.Profile.Allergies) > 0 {
			b.WriteString(" Do not suggest anything the patient is allergic to.")
		}
		return b.String()
	case KindGeneralAdvice:
		return "Please provide information and advice about: " + text
	default:
		// Chat carries a profile only when the user opted in.
		if ctx := patientContext(req.Profile); ctx != "" {
			return ctx + "\n\n" + text
		}
		return text
	}
}

// patientContext renders the profile as the block that opens personalized
// prompts. Empty record sections are omitted.
func patientContext(p *Profile) string {
	if p == nil {
		return ""
	}
	lines := make([]string, 0, 4)
	if line := patientLine(p); line != "" {
		lines = append(lines, line)
	}
	lines = appendSection(lines, "Medical history", p.Conditions)
	lines = appendSection(lines, "Current medications", p.Medications)
	lines = appendSection(lines, "Allergies", p.Allergies)
	return strings.Join(lines, "\n")
}

func appendSection(lines []string, title string, items []string) []string {
	if len(items) == 0 {
		return lines
	}
	return append(lines, title+": "+strings.Join(items, "; "))
}

func patientLine(p *Profile) string {
	if p == nil || p.Age <= 0 {
		return ""
	}
	gender := strings.ReplaceAll(p.Gender, "_", " ")
	if gender == "" || p.Gender == "prefer_not_to_say" {
		return fmt.Sprintf("Patient: %d years old", p.Age)
	}
	return fmt.Sprintf("Patient: %d years old, %s", p.Age, gender)
}
