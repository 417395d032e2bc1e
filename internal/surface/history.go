package surface

import (
	"strings"

	"github.com/Lllllllleong/prescriptionreader/internal/history"
)

const (
	HistoryTitle = "Scan History"
	CloseLabel   = "Close"
)

// ItemKind distinguishes rows of the history list.
type ItemKind int

const (
	ItemText ItemKind = iota
	// ItemDivider is a 1px gray rule.
	ItemDivider
)

// Item is one row of the history list.
type Item struct {
	Kind ItemKind
	Text string
}

// HistoryDialog lists past scans, newest first.
type HistoryDialog struct {
	Entries []history.Entry
}

func (d *HistoryDialog) Title() string { return HistoryTitle }

// Items returns the entries' texts with a divider between consecutive entries.
func (d *HistoryDialog) Items() []Item {
	items := make([]Item, 0, 2*len(d.Entries))
	for i, e := range d.Entries {
		if i > 0 {
			items = append(items, Item{Kind: ItemDivider})
		}
		items = append(items, Item{Kind: ItemText, Text: e.Text})
	}
	return items
}

// Render draws the dialog as plain text for terminals.
func (d *HistoryDialog) Render() string {
	var b strings.Builder
	b.WriteString(HistoryTitle)
	b.WriteString("\n\n")
	for _, item := range d.Items() {
		if item.Kind == ItemDivider {
			b.WriteString(strings.Repeat("─", 40))
			b.WriteByte('\n')
			continue
		}
		b.WriteString(strings.TrimRight(item.Text, "\n"))
		b.WriteByte('\n')
	}
	b.WriteString("\n[" + CloseLabel + "]\n")
	return b.String()
}
