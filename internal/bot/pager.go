package bot

import (
	"fmt"
	"strings"

	"bookshop-bot/internal/catalog"
)

const booksPerPage = 10

// clampPage pulls a page index back into [0, lastPage] for the given
// catalog size. Shrinking catalogs and double-taps on the nav buttons
// both land here instead of erroring.
func clampPage(page, total int) int {
	last := 0
	if total > 0 {
		last = (total - 1) / booksPerPage
	}
	if page < 0 {
		return 0
	}
	if page > last {
		return last
	}
	return page
}

// renderCatalogPage produces the book-selection message for one page:
// the listing text, the id buttons in rows of five, and a nav row. The
// returned page is the clamped one actually rendered.
func renderCatalogPage(entries []catalog.Entry, page int) (string, [][]Button, int) {
	page = clampPage(page, len(entries))

	start := page * booksPerPage
	end := start + booksPerPage
	if end > len(entries) {
		end = len(entries)
	}
	visible := entries[start:end]

	var text strings.Builder
	text.WriteString("📚 Choose a book by its number:\n\n")
	for _, e := range visible {
		fmt.Fprintf(&text, "%s. %s\n📂 %s\n💰 %s\n\n", e.ID, e.Book.Name, e.Book.Category, e.Book.Price)
	}

	var buttons [][]Button
	var row []Button
	for _, e := range visible {
		row = append(row, Button{Label: e.ID, Data: "book_" + e.ID})
		if len(row) == 5 {
			buttons = append(buttons, row)
			row = nil
		}
	}
	if len(row) > 0 {
		buttons = append(buttons, row)
	}

	totalPages := 1
	if len(entries) > 0 {
		totalPages = (len(entries) + booksPerPage - 1) / booksPerPage
	}

	var nav []Button
	if page > 0 {
		nav = append(nav, Button{Label: "◀️", Data: "page_prev"})
	}
	if totalPages > 1 {
		nav = append(nav, Button{Label: fmt.Sprintf("%d/%d", page+1, totalPages), Data: "page_info"})
	}
	if page < totalPages-1 {
		nav = append(nav, Button{Label: "▶️", Data: "page_next"})
	}
	if len(nav) > 0 {
		buttons = append(buttons, nav)
	}
	buttons = append(buttons, []Button{{Label: "❌ Close", Data: "page_close"}})

	return text.String(), buttons, page
}
