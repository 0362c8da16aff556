package enhance

import "strings"

// modelCapabilities is the explicit table of models known to support the
// extended reasoning needed for multi-stage retrieval. Unknown models fall
// through to the name heuristics below.
var modelCapabilities = map[string]bool{
	"qwen2.5":          true,
	"qwen3":            true,
	"llama3.1":         true,
	"llama3.3":         true,
	"deepseek-r1":      true,
	"gemini-1.5-pro":   true,
	"gemini-2.0-flash": true,
	"mistral-small":    false,
	"phi3":             false,
	"tinyllama":        false,
}

// SupportsReasoning reports whether a model can run the enhancement step.
// Checks the capability table first, then model-name heuristics.
func SupportsReasoning(model string) bool {
	lower := strings.ToLower(strings.TrimSpace(model))
	if lower == "" {
		return false
	}

	if supported, known := modelCapabilities[lower]; known {
		return supported
	}

	// Heuristics for versioned or vendor-prefixed names.
	for name, supported := range modelCapabilities {
		if strings.HasPrefix(lower, name) {
			return supported
		}
	}
	for _, marker := range []string{"-r1", "reasoner", "think", "-o1", "-o3"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	return false
}

// ShouldUseEnhancedRAG gates the enhancement and multi-stage retrieval path.
// All three conditions must hold; otherwise retrieval runs single-pass.
func ShouldUseEnhancedRAG(ragDisabled bool, reasoningMode bool, model string) bool {
	if ragDisabled {
		return false
	}
	if !reasoningMode {
		return false
	}
	return SupportsReasoning(model)
}
