package classify

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxSummaryRunes caps the localized one-line summary.
const MaxSummaryRunes = 120

const noneTicker = "NONE"

// Field labels are matched case-insensitively and may be wrapped in
// markdown bold ("**Ticker:** ABCD"). Ticker letters must be uppercase.
var (
	tickerRe  = regexp.MustCompile(`(?i:\bticker)\**\s*:\s*\**\s*\[?((?i:none)|[A-Z]{2,5})\b`)
	typeRe    = regexp.MustCompile(`(?i)\btype\**\s*:\s*\**\s*\[?(\w+)`)
	impactRe  = regexp.MustCompile(`(?i)\bimpact\**\s*:\s*\**\s*\[?(\d+(?:\.\d+)?)`)
	summaryRe = regexp.MustCompile(`(?i)\bkoreansummary\**\s*:\s*\**[ \t]*(.+)`)
)

// Result is the parsed form of a completion reply: exactly one of
// Classified, NoCompany or Unparsable.
type Result interface {
	result()
}

// Classified is a reply that names a listed company.
type Classified struct {
	Ticker  string
	Type    string
	Impact  float64
	Summary string

	// ImpactMissing is set when the reply carried no usable Impact line;
	// Impact is then zero and callers substitute their neutral score.
	ImpactMissing bool
}

// NoCompany is a reply with "Ticker: NONE".
type NoCompany struct{}

// Unparsable is a reply with no recognisable Ticker line.
type Unparsable struct {
	Reply string
}

func (Classified) result() {}
func (NoCompany) result()  {}
func (Unparsable) result() {}

// Score returns the impact, or neutral when the reply had none.
func (c Classified) Score(neutral float64) float64 {
	if c.ImpactMissing {
		return neutral
	}
	return c.Impact
}

// ParseReply extracts the classification fields from a free-text reply.
func ParseReply(reply string) Result {
	m := tickerRe.FindStringSubmatch(reply)
	if m == nil {
		return Unparsable{Reply: reply}
	}

	ticker := strings.ToUpper(m[1])
	if ticker == noneTicker {
		return NoCompany{}
	}

	c := Classified{
		Ticker:        ticker,
		Type:          "unknown",
		ImpactMissing: true,
	}

	if m := typeRe.FindStringSubmatch(reply); m != nil {
		c.Type = strings.ToLower(m[1])
	}

	if m := impactRe.FindStringSubmatch(reply); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 0 && v <= 10 {
			c.Impact = v
			c.ImpactMissing = false
		}
	}

	if m := summaryRe.FindStringSubmatch(reply); m != nil {
		c.Summary = cleanSummary(m[1])
	}

	return c
}

func cleanSummary(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*[] \t\r")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > MaxSummaryRunes {
		s = string([]rune(s)[:MaxSummaryRunes])
	}
	return s
}
