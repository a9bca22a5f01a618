package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare national mobile", "11999990000", "+5511999990000"},
		{"formatted national", "(11) 99999-0000", "+5511999990000"},
		{"already e164", "+5511999990000", "+5511999990000"},
		{"e164 with spaces", "+55 (11) 99999-0000", "+5511999990000"},
		{"landline", "1133334444", "+551133334444"},
		{"whitespace trimmed", "  11999990000  ", "+5511999990000"},
		{"empty", "", ""},
		{"unparseable kept as typed", "abc", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeE164(tt.input); got != tt.want {
				t.Errorf("NormalizeE164(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
