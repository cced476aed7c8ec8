package artifact

import (
	"slices"
	"strings"

	"github.com/agentic-research/corpuscheck/internal/corpus"
)

// ToolchainPin holds the facts of a toolchain descriptor.
type ToolchainPin struct {
	Path       string
	Channel    string
	Components []string
}

// Has reports whether the pin requests component.
func (t *ToolchainPin) Has(component string) bool {
	return slices.Contains(t.Components, component)
}

// Toolchain reads the toolchain pin of p.
func (r *Reader) Toolchain(p corpus.Project) (*ToolchainPin, error) {
	data, file, err := r.read(p, r.artifacts.Toolchain)
	if err != nil {
		return nil, err
	}
	return ParseToolchain(data, file)
}

// ParseToolchain accepts both the TOML form ([toolchain] channel = ...)
// and the legacy form where the file holds only the channel name.
func ParseToolchain(data []byte, file string) (*ToolchainPin, error) {
	if channel, ok := legacyChannel(data); ok {
		return &ToolchainPin{Path: file, Channel: channel}, nil
	}
	doc, err := decode(data, file)
	if err != nil {
		return nil, err
	}
	t := &ToolchainPin{Path: file}
	if t.Channel, err = stringField(doc, file, "toolchain.channel"); err != nil {
		return nil, err
	}
	if t.Components, err = stringsField(doc, file, "toolchain.components"); err != nil {
		return nil, err
	}
	return t, nil
}

func legacyChannel(data []byte) (string, bool) {
	s := strings.TrimSpace(string(data))
	if s == "" || strings.ContainsAny(s, "=[]\"'#\n \t") {
		return "", false
	}
	return s, true
}
