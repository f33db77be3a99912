package prompts

import (
	"fmt"
	"strings"

	"github.com/avvvet/companion-chat/internal/characters"
)

const PersonaPrompt = `You are %s, %s.
Your personality: %s.
Reply in %s. Stay in character and respond naturally to the conversation so far.
Keep replies short (50-100 words) and in your character's speaking style.`

const AdultAddendum = `

You may use more direct and intimate language in this conversation. Flirting, innuendo and suggestive content are allowed, but keep it tasteful and never explicit. Stay in character and keep the conversation engaging.`

const SummaryPrompt = `Write a short summary (at most 50 words) of the following conversation.
Character: %s
The summary should cover:
1. The main topics of the conversation
2. How the relationship between the user and the character developed
3. Important emotions or events

Return only the summary text, nothing else.`

const SummaryPreviousPrompt = `

Summary of the earlier conversation: %s
Summarize only the new conversation below.`

// SummaryInstruction is the final user turn of a summary request
const SummaryInstruction = "Please summarize the conversation."

var personalityTone = map[string]string{
	"tsundere":     "Keep a tsundere tone: cold on the surface but caring underneath.",
	"sweet":        "Keep a warm, upbeat tone full of positive energy.",
	"intellectual": "Use a rational, academic way of speaking; you may cite theories or scientific ideas.",
	"rebellious":   "Keep a casual, untamed, slightly cheeky tone.",
	"gentle":       "Keep a gentle, considerate and attentive tone, as if looking after someone.",
	"mysterious":   "Keep a calm, enigmatic tone and hint at more than you say.",
}

// summaryContext is the system entry that carries a rolling summary, per language
var summaryContext = map[string]string{
	"zh-TW": "之前的對話摘要：%s\n\n請基於這個摘要和最近的對話繼續回應。",
	"zh-CN": "之前的对话摘要：%s\n\n请基于这个摘要和最近的对话继续回应。",
	"en":    "Summary of the earlier conversation: %s\n\nContinue the conversation consistently with this summary and the recent messages.",
}

// BuildPersonaPrompt builds the system prompt for a reply call
func BuildPersonaPrompt(ch *characters.Character, language string, adult bool) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf(PersonaPrompt,
		ch.Name,
		ch.Description,
		ch.Personality,
		characters.LanguageName(language)))

	if tone, ok := personalityTone[ch.Personality]; ok {
		builder.WriteString("\n")
		builder.WriteString(tone)
	}

	if adult {
		builder.WriteString(AdultAddendum)
	}

	return builder.String()
}

// BuildSummaryPrompt builds the system prompt for a summary call
func BuildSummaryPrompt(characterName, previousSummary string) string {
	prompt := fmt.Sprintf(SummaryPrompt, characterName)
	if strings.TrimSpace(previousSummary) != "" {
		prompt += fmt.Sprintf(SummaryPreviousPrompt, previousSummary)
	}
	return prompt
}

// SummaryContext renders the summary entry for a language
func SummaryContext(summary, language string) string {
	tmpl, ok := summaryContext[language]
	if !ok {
		if strings.HasPrefix(language, "zh") {
			tmpl = summaryContext["zh-TW"]
		} else {
			tmpl = summaryContext["en"]
		}
	}
	return fmt.Sprintf(tmpl, summary)
}
