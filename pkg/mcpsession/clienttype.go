package mcpsession

import "strings"

// knownClientTypes maps a substring found in a declared client_info name to
// the normalized client_type recorded on the session row. Matching is
// case-insensitive and checks substrings rather than exact equality since
// clients often send a longer descriptive name (e.g. "Visual Studio Code -
// Cline").
var knownClientTypes = []struct {
	match string
	label string
}{
	{"claude code", "claude-code"},
	{"claude-code", "claude-code"},
	{"cursor", "cursor"},
	{"windsurf", "windsurf"},
	{"cline", "cline"},
	{"kiro", "kiro"},
	{"augment", "augment"},
	{"gemini", "gemini"},
}

// UnknownClientType is recorded when a client's declared name doesn't match
// any entry in the known-client table.
const UnknownClientType = "unknown-client"

// DeriveClientType maps a declared client_info name to a normalized
// client_type, falling back to UnknownClientType for anything unrecognized.
func DeriveClientType(clientInfoName string) string {
	lower := strings.ToLower(clientInfoName)
	for _, known := range knownClientTypes {
		if strings.Contains(lower, known.match) {
			return known.label
		}
	}
	return UnknownClientType
}
