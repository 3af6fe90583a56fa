package rewrite

import (
	"fmt"
	"strings"

	"github.com/STARREPORTS/internal/stringutils"
)

const basePrompt = `You rewrite teacher comments for school progress reports.
Keep every fact the teacher wrote, add nothing new, and keep roughly the same length.
Answer with the rewritten comment only, without quotes or preamble.`

// Prompt is the provider-neutral instruction pair
type Prompt struct {
	System string
	User   string
}

// BuildPrompt turns a request into system and user messages
func BuildPrompt(req Request) Prompt {
	var sys strings.Builder
	sys.WriteString(basePrompt)
	if style := strings.TrimSpace(req.StyleGuide); style != "" {
		sys.WriteString("\n\nFollow this school writing style:\n")
		sys.WriteString(style)
	}
	if name := strings.TrimSpace(req.StudentName); name != "" {
		fmt.Fprintf(&sys, "\n\nThe student is called %s. Refer to them by this name.", name)
	}

	return Prompt{
		System: sys.String(),
		User:   stringutils.NormalizeWhitespace(req.Text),
	}
}
