// Package artifact reads and writes the per-family master artifact: the best
// tactic so far followed by the base instructions it refines.
package artifact

import "strings"

const (
	TacticHeader   = "=== OPTIMIZED TACTIC (Family Version) ==="
	OriginalMarker = "=== ORIGINAL PROMPT ==="
)

// Render lays out a master artifact.
func Render(tactic, baseInstructions string) string {
	return TacticHeader + "\n" + tactic + "\n\n" + OriginalMarker + "\n" + baseInstructions
}

// Parse splits an artifact into tactic and base instructions. Content without
// the original-prompt marker is a seed: all of it is base instructions.
func Parse(content string) (tactic, baseInstructions string) {
	head, base, ok := strings.Cut(content, OriginalMarker)
	if !ok {
		return "", strings.TrimSpace(content)
	}
	tactic = strings.TrimSpace(strings.Replace(head, TacticHeader, "", 1))
	return tactic, strings.TrimSpace(base)
}
