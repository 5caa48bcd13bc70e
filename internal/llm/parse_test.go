package llm

import "testing"

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"ok": true}`, `{"ok": true}`},
		{"json fence", "```json\n{\"ok\": true}\n```", `{"ok": true}`},
		{"plain fence", "```\n{\"ok\": true}\n```", `{"ok": true}`},
		{"leading whitespace", "  \n{\"ok\": true}", `{"ok": true}`},
	}

	for _, tt := range tests {
		if got := StripCodeFences(tt.in); got != tt.want {
			t.Errorf("%s: StripCodeFences = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDecodeJudgment(t *testing.T) {
	var out struct {
		Allowed bool   `json:"allowed"`
		Reason  string `json:"reason"`
	}
	content := "```json\n{\"allowed\": false, \"reason\": \"trivia arithmetic\"}\n```"
	if err := DecodeJudgment(content, &out); err != nil {
		t.Fatalf("DecodeJudgment: %v", err)
	}
	if out.Allowed || out.Reason != "trivia arithmetic" {
		t.Errorf("decoded = %+v", out)
	}
}

func TestDecodeJudgment_Malformed(t *testing.T) {
	var out struct{}
	if err := DecodeJudgment("the model rambled instead of JSON", &out); err == nil {
		t.Fatal("expected error for non-JSON content")
	}
}

func TestMockClientSatisfiesEveryJudgmentShape(t *testing.T) {
	m := NewMockClient()
	resp, err := m.Generate(t.Context(), "sys", "user")
	if err != nil {
		t.Fatalf("mock generate: %v", err)
	}

	var out struct {
		Answerable    bool    `json:"answerable"`
		Allowed       bool    `json:"allowed"`
		LanguageOK    bool    `json:"language_ok"`
		SelectedIndex int     `json:"selected_index"`
		Confidence    int     `json:"confidence"`
		Score         float64 `json:"score"`
		Agrees        bool    `json:"agrees"`
		Acceptable    bool    `json:"acceptable"`
	}
	if err := DecodeJudgment(resp.Content, &out); err != nil {
		t.Fatalf("mock content does not decode: %v", err)
	}
	if !out.Answerable || !out.Allowed || !out.Agrees || !out.Acceptable {
		t.Errorf("mock judgment should pass every policy check: %+v", out)
	}
	if out.Confidence >= 70 {
		t.Errorf("mock confidence %d would trigger a disagreement flag", out.Confidence)
	}
}
