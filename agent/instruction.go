package agent

import (
	_ "embed"
	"strings"

	"github.com/hupe1980/dreamer/internal/util"
	"github.com/hupe1980/dreamer/tool"
)

// DefaultInstruction is the system instruction used when Options leaves
// SystemInstruction empty. It references the tool manifest as {{.tools}}.
//
//go:embed instructions/default.md
var DefaultInstruction string

const (
	toolsPlaceholder = "{{.tools}}"
	toolsSection     = "\n\n## Tools\n\n" + toolsPlaceholder + "\n"
)

// renderInstruction resolves the system instruction against the registry.
// Only DefaultInstruction is a template. Caller text is kept verbatim apart
// from the literal {{.tools}} marker, which is substituted when describe is
// set; without the marker a tools section is appended.
func renderInstruction(text string, reg *tool.Registry, describe bool) (string, error) {
	manifest := ""
	if describe {
		manifest = reg.Manifest()
	}

	if text == "" {
		return util.RenderTemplate(DefaultInstruction, map[string]any{"tools": manifest})
	}
	if !describe {
		return text, nil
	}

	if !strings.Contains(text, toolsPlaceholder) {
		text = strings.TrimRight(text, "\n") + toolsSection
	}
	return strings.ReplaceAll(text, toolsPlaceholder, manifest), nil
}
