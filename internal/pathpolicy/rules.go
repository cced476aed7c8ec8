// Package pathpolicy flags configuration files that appear where the
// corpus does not allow them.
//
// The policy is a table of rules. Each rule names a file (a bare name or a
// slash-separated path suffix such as ".cargo/config.toml") and lists the
// allowances under which that file may exist. A general rule has no
// allowances, so its file is never permitted.
package pathpolicy

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/agentic-research/corpuscheck/api"
)

// Class separates never-allowed files from files allowed in a few places.
type Class int

const (
	General Class = iota
	Specific
)

func (c Class) String() string {
	if c == General {
		return "general"
	}
	return "specific"
}

// Allowance admits a rule match at a location. dirs are the components of
// the directory holding the match, relative to the corpus root.
type Allowance interface {
	Allows(dirs []string) bool
	String() string
}

// UnderDir admits a match at any depth beneath one of the named top-level
// directories. A nested directory sharing such a name admits nothing.
type UnderDir []string

func (u UnderDir) Allows(dirs []string) bool {
	return len(dirs) > 0 && slices.Contains(u, dirs[0])
}

func (u UnderDir) String() string { return "under " + strings.Join(u, ", ") }

// CategoryRoot admits a match only directly inside one of the named
// top-level categories.
type CategoryRoot []string

func (c CategoryRoot) Allows(dirs []string) bool {
	return len(dirs) == 1 && slices.Contains(c, dirs[0])
}

func (c CategoryRoot) String() string { return "at the root of " + strings.Join(c, ", ") }

// Rule is one forbidden file and where it may still appear.
type Rule struct {
	Name       string
	Class      Class
	Allowances []Allowance
}

// Rules builds the rule table for a policy.
func Rules(f api.Forbidden) []Rule {
	var rules []Rule
	for _, name := range f.General {
		rules = append(rules, Rule{Name: name, Class: General})
	}
	allow := []Allowance{UnderDir(f.AllowedDirs), CategoryRoot(f.CategoryRoots)}
	for _, name := range f.Specific {
		rules = append(rules, Rule{Name: name, Class: Specific, Allowances: allow})
	}
	return rules
}

// match reports whether rel ends with the rule's name and returns the
// directory components in front of it.
func (r Rule) match(rel string) ([]string, bool) {
	if rel == r.Name {
		return nil, true
	}
	prefix, ok := strings.CutSuffix(rel, "/"+r.Name)
	if !ok {
		return nil, false
	}
	return strings.Split(path.Clean(prefix), "/"), true
}

// PolicyViolation reports a forbidden file found outside its allowances.
type PolicyViolation struct {
	Rule  string
	Class Class
	// Path is the offending file relative to the corpus root.
	Path    string
	Allowed []string
}

func (v *PolicyViolation) Error() string {
	if v.Class == General {
		return fmt.Sprintf("forbidden file %s found: %s", v.Rule, v.Path)
	}
	return fmt.Sprintf("forbidden file %s found in non-allowed directory: %s (allowed %s)", v.Rule, v.Path, strings.Join(v.Allowed, "; "))
}

// Evaluate classifies one corpus-relative, slash-separated path against
// every rule. It returns nil when the path is permitted.
func Evaluate(rules []Rule, rel string) *PolicyViolation {
	for _, r := range rules {
		dirs, ok := r.match(rel)
		if !ok {
			continue
		}
		if slices.ContainsFunc(r.Allowances, func(a Allowance) bool { return a.Allows(dirs) }) {
			continue
		}
		v := &PolicyViolation{Rule: r.Name, Class: r.Class, Path: rel}
		for _, a := range r.Allowances {
			v.Allowed = append(v.Allowed, a.String())
		}
		return v
	}
	return nil
}
