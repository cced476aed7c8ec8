package format

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	gofumpt "mvdan.cc/gofumpt/format"
)

// GofumptFormatter checks Go files in process. A file fails when gofumpt
// would change it or cannot parse it; the diff goes to Stdout.
type GofumptFormatter struct {
	Options gofumpt.Options
}

// Check implements Formatter.
func (f *GofumptFormatter) Check(_ context.Context, src Source) (*Violation, error) {
	content, err := src.Read()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Path, err)
	}
	formatted, err := gofumpt.Source(content, f.Options)
	if err != nil {
		return &Violation{Path: src.Path, Stderr: err.Error()}, nil
	}
	if bytes.Equal(content, formatted) {
		return nil, nil
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(content)),
		B:        difflib.SplitLines(string(formatted)),
		FromFile: src.Rel,
		ToFile:   src.Rel + " (gofumpt)",
		Context:  3,
	})
	if err != nil {
		return nil, fmt.Errorf("diff %s: %w", src.Path, err)
	}
	return &Violation{Path: src.Path, Stdout: diff}, nil
}

func (f *GofumptFormatter) String() string { return "gofumpt" }
