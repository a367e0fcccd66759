package report

import (
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"pharmawatch/internal/models"
)

const titleWidth = 60

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Bold(true)
)

// Render writes the summary and the row table to w.
func Render(w io.Writer, r *Report) error {
	s := r.Stats
	summary := fmt.Sprintf("%s %d   %s %d   %s %d   %s %d\n%s %s .. %s\n",
		labelStyle.Render("total"), s.Total,
		labelStyle.Render("analyzed"), s.Analyzed,
		labelStyle.Render("pending"), s.Pending,
		labelStyle.Render("with ticker"), s.WithTicker,
		labelStyle.Render("pub_date"), orDash(s.MinPubDate), orDash(s.MaxPubDate),
	)
	if _, err := io.WriteString(w, summary); err != nil {
		return err
	}

	if len(r.Items) == 0 {
		_, err := io.WriteString(w, "\nno matching news\n")
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "PUB DATE", "SOURCE", "TICKER", "TYPE", "IMPACT", "TITLE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, item := range r.Items {
		t.Row(Row(item)...)
	}

	_, err := fmt.Fprintf(w, "\n%s\n%d of %d rows shown\n", t.String(), len(r.Items), s.Total)
	return err
}

// Row formats one item as table cells.
func Row(item models.NewsItem) []string {
	analyzed := "-"
	if item.ImpactScore != nil {
		analyzed = strconv.FormatFloat(*item.ImpactScore, 'f', 1, 64)
	}
	if !item.Analyzed {
		analyzed = "pending"
	}
	return []string{
		strconv.FormatInt(item.ID, 10),
		item.PubDate,
		item.Source,
		deref(item.Ticker),
		deref(item.NewsType),
		analyzed,
		clip(item.Title, titleWidth),
	}
}

func deref(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
