package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/starford/notebase/internal/frontmatter"
	"github.com/starford/notebase/internal/models"
	"github.com/starford/notebase/internal/query"
)

const maxTitleWidth = 48

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func check(done bool) string {
	if done {
		return "x"
	}
	return ""
}

func renderList(w io.Writer, res models.ListResult, filter string) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Type", "Title", "Done", "Path", "Updated"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: maxTitleWidth, WidthMaxEnforcer: text.Trim},
		{Name: "Done", Align: text.AlignCenter},
	})
	for _, item := range res.Items {
		d := item.Display()
		t.AppendRow(table.Row{d.ID, d.Type, d.Title, check(d.Done), d.Path, d.Updated})
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("page %d/%d", res.Page, res.TotalPages), "",
		fmt.Sprintf("%d items", res.TotalItems),
	})
	t.Render()
	fmt.Fprintf(w, "filter: %s\n", filter)
}

func renderItem(w io.Writer, item models.Item) {
	fm := item.Frontmatter
	t := newTable(w)
	t.AppendRow(table.Row{"ID", item.ID})
	t.AppendRow(table.Row{"Title", item.Title()})
	t.AppendRow(table.Row{"Type", fm.Type})
	t.AppendRow(table.Row{"Path", item.Path})
	t.AppendRow(table.Row{"Completed", fm.Completed})
	if len(fm.Tags) > 0 {
		t.AppendRow(table.Row{"Tags", strings.Join(fm.Tags, ", ")})
	}

	switch fm.Type {
	case frontmatter.TypeTask:
		for _, f := range []struct {
			name string
			v    *string
		}{{"Due", fm.Due}, {"Priority", fm.Priority}, {"Status", fm.Status}} {
			if f.v != nil {
				t.AppendRow(table.Row{f.name, *f.v})
			}
		}
	case frontmatter.TypeDebt:
		currency := ""
		if fm.Currency != nil {
			currency = " " + *fm.Currency
		}
		t.AppendRow(table.Row{"Balance", strconv.FormatFloat(fm.Balance(), 'f', 2, 64) + currency})
	case frontmatter.TypeTrack:
		if fm.Season != nil {
			t.AppendRow(table.Row{"Season", *fm.Season})
		}
		if fm.Episode != nil {
			t.AppendRow(table.Row{"Episode", *fm.Episode})
		}
		if fm.NextEpisode != nil {
			t.AppendRow(table.Row{"Next episode", *fm.NextEpisode})
		}
		if fm.URL != nil {
			t.AppendRow(table.Row{"URL", *fm.URL})
		}
	}
	t.AppendRow(table.Row{"Updated", item.Updated})
	t.Render()

	if fm.Type == frontmatter.TypeDebt && len(fm.Transactions) > 0 {
		renderTransactions(w, fm.Transactions)
	}
	if fm.Type == frontmatter.TypeGroceries {
		renderChecklist(w, fm.Checklist)
	}
	if body := strings.TrimSpace(item.Content); body != "" {
		fmt.Fprintf(w, "\n%s\n", body)
	}
}

func renderTransactions(w io.Writer, txs []frontmatter.Transaction) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Transaction", "Amount", "Created", "Comment"})
	t.SetColumnConfigs([]table.ColumnConfig{{Name: "Amount", Align: text.AlignRight}})
	for _, tx := range txs {
		comment := ""
		if tx.Comment != nil {
			comment = *tx.Comment
		}
		t.AppendRow(table.Row{tx.ID, strconv.FormatFloat(tx.Amount, 'f', 2, 64), tx.Created, comment})
	}
	t.Render()
}

func renderChecklist(w io.Writer, list []frontmatter.ChecklistItem) {
	t := newTable(w)
	t.AppendHeader(table.Row{"", "Entry"})
	for _, c := range list {
		t.AppendRow(table.Row{check(c.Done), c.Name})
	}
	t.Render()
}

func renderSavedFilters(w io.Writer, current query.FilterState, saved []query.SavedFilter) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Label", "Filter"})
	for _, f := range saved {
		label := f.Label
		if f.FilterState == current {
			label += " *"
		}
		t.AppendRow(table.Row{f.ID, label, query.Build(f.FilterState)})
	}
	t.Render()
	fmt.Fprintf(w, "current: %s\n", query.Build(current))
}
