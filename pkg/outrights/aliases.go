package outrights

import "strings"

// TeamAlias describes a historical or alternate team code that should be
// normalized to a contemporary code before a TeamSeason is considered part
// of the training or current corpus. Adapted from the teacher's TeamConfig/
// AltNames JSON shape (pkg/outrights-mle/events.go), generalized from a
// league-specific JSON file load into a fixed in-process alias table (the
// hockey league's franchise relocations/rebrands are few enough in number
// that a fixed table, not a loaded file, is the right shape).
type TeamAlias struct {
	Canonical string
	AltCodes  []string
}

// defaultAliases is the fixed alias table applied once by AliasTable.Normalize.
// Entries are illustrative placeholders for a 32-team league with a handful
// of historical rebrands/relocations; callers of NewAliasTable may supply
// their own table built the same way.
var defaultAliases = []TeamAlias{
	{Canonical: "ARI", AltCodes: []string{"PHX"}},
	{Canonical: "UTA", AltCodes: []string{"ARI2024"}},
}

// AliasTable normalizes alternate/historical team codes to their
// contemporary code.
type AliasTable struct {
	toCanonical map[string]string
}

// NewAliasTable builds an AliasTable from a slice of TeamAlias entries.
func NewAliasTable(aliases []TeamAlias) *AliasTable {
	t := &AliasTable{toCanonical: make(map[string]string)}
	for _, a := range aliases {
		canon := strings.ToUpper(a.Canonical)
		t.toCanonical[canon] = canon
		for _, alt := range a.AltCodes {
			t.toCanonical[strings.ToUpper(alt)] = canon
		}
	}
	return t
}

// DefaultAliasTable returns an AliasTable built from defaultAliases.
func DefaultAliasTable() *AliasTable {
	return NewAliasTable(defaultAliases)
}

// Normalize maps an alternate team code to its contemporary code, applying
// the table once. Codes not present in the table pass through unchanged
// (upper-cased), since most teams never rebrand.
func (t *AliasTable) Normalize(code string) string {
	up := strings.ToUpper(strings.TrimSpace(code))
	if canon, ok := t.toCanonical[up]; ok {
		return canon
	}
	return up
}
