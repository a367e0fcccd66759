package classify

import (
	"fmt"
	"strings"
)

const promptTemplate = `Analyze this pharmaceutical/biotech news item, identify the company it is about, and give a one-line summary in Korean.
Impact rates how strongly the news should move that company's share price. The size of a move is inversely related to market capitalization. A score of 7 or more means a significant rise is expected; 3 or less means a significant fall is expected.

Title: %s
Summary: %s

Please answer in this exact format:
Company: [Company name]
Ticker: [US stock ticker, e.g., ARWR]
Type: [approval/warning/breakthrough/rejection/policy]
Impact: [score 0-10]
KoreanSummary: [one-line summary in Korean, 20 characters or fewer]
If no specific company is mentioned, write "Ticker: NONE".`

// Prompt renders the classification prompt for one news item. An empty
// summary is rendered as N/A.
func Prompt(title, summary string) string {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		summary = "N/A"
	}
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(title), summary)
}
