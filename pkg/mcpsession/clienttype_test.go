package mcpsession

import "testing"

func TestDeriveClientType(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Claude Code", "claude-code"},
		{"claude-code/1.2.3", "claude-code"},
		{"Cursor", "cursor"},
		{"Windsurf IDE", "windsurf"},
		{"Visual Studio Code - Cline", "cline"},
		{"Kiro Desktop", "kiro"},
		{"Augment Agent", "augment"},
		{"Gemini CLI", "gemini"},
		{"SomeOtherTool/2.0", UnknownClientType},
		{"", UnknownClientType},
	}
	for _, c := range cases {
		if got := DeriveClientType(c.name); got != c.want {
			t.Errorf("DeriveClientType(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}
