package digest

import "testing"

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"tags", "<b>bold</b> and <i>italic</i>", "bold and italic"},
		{"caption markup", `<font color="#ffffff">台股</font> 大盤`, "台股 大盤"},
		{"surrounding space", "  text  ", "text"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanHTML(tt.in); got != tt.want {
				t.Errorf("CleanHTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", `{"a":1};rest`, `{"a":1}`},
		{"nested", `{"a":{"b":[1,2]}} trailing`, `{"a":{"b":[1,2]}}`},
		{"braces in strings", `{"a":"}{"}`, `{"a":"}{"}`},
		{"unbalanced", `{"a":1`, ""},
		{"not json", `var x = 1`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(ExtractJSON([]byte(tt.in)))
			if got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTitleForLog(t *testing.T) {
	long := ""
	for range 30 {
		long += "財經週報"
	}
	got := TitleForLog(long)
	if len([]rune(got)) > 61 { // 60 + ellipsis
		t.Errorf("TitleForLog did not cap length: %d runes", len([]rune(got)))
	}
	if TitleForLog(" short ") != "short" {
		t.Errorf("TitleForLog trimmed form = %q", TitleForLog(" short "))
	}
}
