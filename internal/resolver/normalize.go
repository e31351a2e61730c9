package resolver

import (
	"regexp"
	"strings"
)

var nameCutoff = regexp.MustCompile(`\s+-|\s+\(`)

// normalizeName drops subtitle/parenthetical qualifiers from a display name.
// "Pikachu - Holo" and "Charizard (Shiny)" both reduce to the bare name.
func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if loc := nameCutoff.FindStringIndex(name); loc != nil {
		name = name[:loc[0]]
	}
	return strings.TrimSpace(name)
}

// normalizeNumber keeps the portion before "/" and strips leading zeros.
// "001/102" becomes "1"; non-numeric forms like "SV01" pass through.
func normalizeNumber(number string) string {
	number = strings.TrimSpace(number)
	if number == "" {
		return ""
	}
	if idx := strings.Index(number, "/"); idx >= 0 {
		number = number[:idx]
	}
	number = strings.TrimSpace(number)
	trimmed := strings.TrimLeft(number, "0")
	if trimmed == "" && number != "" {
		return "0"
	}
	return trimmed
}

// normalizeSetName truncates an edition label at the first ":".
func normalizeSetName(set string) string {
	if idx := strings.Index(set, ":"); idx >= 0 {
		set = set[:idx]
	}
	return strings.TrimSpace(set)
}

// buildQuery assembles the external search string from normalized item
// attributes. The number is omitted when the item has none.
func buildQuery(name, number string) string {
	n := normalizeName(name)
	num := normalizeNumber(number)
	if num == "" {
		return n
	}
	return n + " " + num
}
