package validator

import "strings"

// ServiceKind identifies the validation strategy family for a vendor service.
type ServiceKind string

const (
	KindOpenAI     ServiceKind = "openai"
	KindElevenLabs ServiceKind = "elevenlabs"
	KindRunway     ServiceKind = "runway"
	KindStability  ServiceKind = "stability"
	KindAnthropic  ServiceKind = "anthropic"
	KindGemini     ServiceKind = "gemini"
	KindOpenRouter ServiceKind = "openrouter"
	KindGeneric    ServiceKind = "generic"
)

// classifyRule matches when every substring appears in the lowercased name.
type classifyRule struct {
	substrings []string
	kind       ServiceKind
}

// classifyRules are evaluated in order; the first match wins. Multi-substring
// rules let "Stable Diffusion XL" land on the Stability strategy without
// claiming every name containing "stable".
var classifyRules = []classifyRule{
	{[]string{"openrouter"}, KindOpenRouter},
	{[]string{"openai"}, KindOpenAI},
	{[]string{"gpt"}, KindOpenAI},
	{[]string{"elevenlabs"}, KindElevenLabs},
	{[]string{"eleven", "labs"}, KindElevenLabs},
	{[]string{"runway"}, KindRunway},
	{[]string{"stability"}, KindStability},
	{[]string{"stable", "diffusion"}, KindStability},
	{[]string{"anthropic"}, KindAnthropic},
	{[]string{"claude"}, KindAnthropic},
	{[]string{"gemini"}, KindGemini},
	{[]string{"google", "ai"}, KindGemini},
}

// ClassifyService maps a service name to a ServiceKind by case-insensitive
// substring matching. It is total: unrecognized names classify as KindGeneric.
func ClassifyService(serviceName string) ServiceKind {
	name := strings.ToLower(serviceName)
	for _, rule := range classifyRules {
		if matchesAll(name, rule.substrings) {
			return rule.kind
		}
	}
	return KindGeneric
}

func matchesAll(name string, substrings []string) bool {
	for _, s := range substrings {
		if !strings.Contains(name, s) {
			return false
		}
	}
	return true
}
