package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/communitykit/unisearch/pkg/index"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	classStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	snippetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			PaddingLeft(2)

	summaryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("32"))

	noResultsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

func renderResults(results *index.Results) string {
	var out strings.Builder

	if len(results.Rows) == 0 {
		out.WriteString(noResultsStyle.Render("No results found"))
		out.WriteString("\n")
		return out.String()
	}

	for i, row := range results.Rows {
		title := row.Title.String
		if !row.Title.Valid {
			title = "(comment)"
		}
		out.WriteString(fmt.Sprintf("%d. %s %s\n",
			(results.Page-1)*results.PerPage+i+1,
			titleStyle.Render(title),
			classStyle.Render("["+string(row.Class)+"]"),
		))
		out.WriteString(metaStyle.Render(fmt.Sprintf("   author %d · updated %s",
			row.AuthorID,
			time.Unix(row.DateUpdated, 0).Format("2006-01-02 15:04"),
		)))
		out.WriteString("\n")
		if snippet := excerpt(row.Content, 140); snippet != "" {
			out.WriteString(snippetStyle.Render(snippet))
			out.WriteString("\n")
		}
	}

	out.WriteString("\n")
	out.WriteString(summaryStyle.Render(fmt.Sprintf("Page %d of %d · %d results total",
		results.Page, results.TotalPages(), results.Total)))
	out.WriteString("\n")
	return out.String()
}

func excerpt(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	cut := strings.LastIndex(s[:max], " ")
	if cut <= 0 {
		cut = max
	}
	return s[:cut] + "…"
}
