package corpus

import "slices"

// Exemptions is a set of opt-outs for one invariant. An entry matches a
// project by name, by category, or by category/name.
type Exemptions []string

// Exempt reports whether p opts out.
func (e Exemptions) Exempt(p Project) bool {
	return slices.ContainsFunc(e, func(entry string) bool {
		return entry == p.Name || entry == p.Category || entry == p.Rel
	})
}
