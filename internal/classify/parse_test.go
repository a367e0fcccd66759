package classify

import (
	"strings"
	"testing"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		expected Result
	}{
		{
			name: "full reply",
			reply: "Company: Arrowhead Pharmaceuticals\nTicker: ARWR\nType: Approval\nImpact: 8.5\nKoreanSummary: 애로우헤드 신약 승인",
			expected: Classified{Ticker: "ARWR", Type: "approval", Impact: 8.5, Summary: "애로우헤드 신약 승인"},
		},
		{
			name:     "none ticker",
			reply:    "Company: N/A\nTicker: NONE\nType: policy\nImpact: 2",
			expected: NoCompany{},
		},
		{
			name:     "none ticker lower case",
			reply:    "ticker: none",
			expected: NoCompany{},
		},
		{
			name:     "missing impact",
			reply:    "Ticker: NVS\nType: warning",
			expected: Classified{Ticker: "NVS", Type: "warning", ImpactMissing: true},
		},
		{
			name:     "missing type and summary",
			reply:    "Ticker: MRNA\nImpact: 6",
			expected: Classified{Ticker: "MRNA", Type: "unknown", Impact: 6},
		},
		{
			name:     "markdown bold labels",
			reply:    "**Ticker:** LLY\n**Type:** breakthrough\n**Impact:** 7\n**KoreanSummary:** 혁신 치료제 지정",
			expected: Classified{Ticker: "LLY", Type: "breakthrough", Impact: 7, Summary: "혁신 치료제 지정"},
		},
		{
			name:     "bold label with colon outside",
			reply:    "**Ticker**: PFE\n**Impact**: 4.0",
			expected: Classified{Ticker: "PFE", Type: "unknown", Impact: 4},
		},
		{
			name:     "bracketed placeholder style",
			reply:    "Ticker: [ABBV]\nType: [rejection]\nImpact: [2]",
			expected: Classified{Ticker: "ABBV", Type: "rejection", Impact: 2},
		},
		{
			name:     "impact out of range",
			reply:    "Ticker: GILD\nImpact: 42",
			expected: Classified{Ticker: "GILD", Type: "unknown", ImpactMissing: true},
		},
		{
			name:     "lower case ticker letters",
			reply:    "Ticker: arwr",
			expected: Unparsable{Reply: "Ticker: arwr"},
		},
		{
			name:     "ticker too long",
			reply:    "Ticker: ABCDEFG",
			expected: Unparsable{Reply: "Ticker: ABCDEFG"},
		},
		{
			name:     "no ticker line",
			reply:    "I could not find a company in this article.",
			expected: Unparsable{Reply: "I could not find a company in this article."},
		},
		{
			name:     "empty reply",
			reply:    "",
			expected: Unparsable{Reply: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseReply(tt.reply)
			if got != tt.expected {
				t.Errorf("ParseReply() = %#v, want %#v", got, tt.expected)
			}
		})
	}
}

func TestParseReplySummaryIsCapped(t *testing.T) {
	reply := "Ticker: BIIB\nKoreanSummary: " + strings.Repeat("가", MaxSummaryRunes+30)
	c, ok := ParseReply(reply).(Classified)
	if !ok {
		t.Fatalf("expected Classified, got %#v", ParseReply(reply))
	}
	if n := len([]rune(c.Summary)); n != MaxSummaryRunes {
		t.Errorf("expected summary capped at %d runes, got %d", MaxSummaryRunes, n)
	}
}

func TestClassifiedScore(t *testing.T) {
	if s := (Classified{Impact: 8}).Score(5); s != 8 {
		t.Errorf("expected 8, got %v", s)
	}
	if s := (Classified{ImpactMissing: true}).Score(5); s != 5 {
		t.Errorf("expected neutral 5, got %v", s)
	}
}

func TestPrompt(t *testing.T) {
	p := Prompt("FDA approves X", "")
	if !strings.Contains(p, "Title: FDA approves X") {
		t.Errorf("prompt missing title:\n%s", p)
	}
	if !strings.Contains(p, "Summary: N/A") {
		t.Errorf("expected N/A for empty summary:\n%s", p)
	}
	if !strings.Contains(p, `"Ticker: NONE"`) {
		t.Errorf("prompt missing NONE instruction:\n%s", p)
	}

	p = Prompt("t", "  body text ")
	if !strings.Contains(p, "Summary: body text\n") {
		t.Errorf("expected trimmed summary:\n%s", p)
	}
}
