package analysis

import (
	"fmt"
	"strings"
)

const persona = "You are a dream analyst AI. Provide a detailed analysis of the user's new dream based on psychological " +
	"principles and common dream symbolism. The tone should be calm, insightful, and scientific, not mystical. " +
	"If context from previous dreams is provided, look for recurring themes, symbols, or emotional patterns and " +
	"incorporate this into your analysis of the new dream to provide personalized insights."

// MaxContextDreams - сколько последних снов идет в контекст
const MaxContextDreams = 3

const excerptLength = 100

// SystemInstruction - персона плюс перечень запрошенных разделов
func SystemInstruction(requested []string) string {
	if len(requested) == 0 {
		return persona
	}
	return persona + fmt.Sprintf(" In addition to the standard analysis, the user has specifically requested an analysis "+
		"of the following: %s. Ensure these sections are included in your response.", strings.Join(requested, ", "))
}

// UserContent - текст сна и блок контекста из не более чем трех последних снов
func UserContent(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this new dream:\n\n\"%s\"", req.DreamText)

	if len(req.Prior) == 0 {
		return b.String()
	}

	recent := req.Prior
	if len(recent) > MaxContextDreams {
		recent = recent[:MaxContextDreams]
	}

	entries := make([]string, 0, len(recent))
	for i, d := range recent {
		summary := excerpt(d.Text) + "..."
		themes := "N/A"
		if d.Analysis != nil {
			if d.Analysis.Summary != "" {
				summary = d.Analysis.Summary
			}
			if len(d.Analysis.Themes) > 0 {
				themes = strings.Join(d.Analysis.Themes, ", ")
			}
		}
		entries = append(entries, fmt.Sprintf("Previous Dream %d:\n- Summary: %s\n- Themes: %s", i+1, summary, themes))
	}

	b.WriteString("\n\n---\nFor additional context, here are the user's most recent dreams. ")
	b.WriteString("Compare the new dream with these to find connections.\n\n")
	b.WriteString(strings.Join(entries, "\n\n"))
	b.WriteString("\n---")
	return b.String()
}

// excerpt - первые 100 символов (рун) текста
func excerpt(text string) string {
	r := []rune(text)
	if len(r) <= excerptLength {
		return text
	}
	return string(r[:excerptLength])
}
