package entity

import (
	"fmt"
	"strings"
)

// Page is the normalized text of one document page. Numbers start at 1.
type Page struct {
	Number int    `json:"page_number"`
	Text   string `json:"text"`
}

// TotalChars sums the text length over pages.
func TotalChars(pages []Page) int {
	n := 0
	for _, p := range pages {
		n += len(p.Text)
	}
	return n
}

// HasText reports whether any page carries non-blank text.
func HasText(pages []Page) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

// CombinePages joins pages into one prompt body with a marker per page so the
// provider can report source page numbers.
func CombinePages(pages []Page) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, fmt.Sprintf("--- PAGE %d ---\n%s", p.Number, p.Text))
	}
	return strings.Join(parts, "\n\n")
}

// SplitPages turns raw text into pages on form feeds. Text without form feeds
// is a single page.
func SplitPages(text string) []Page {
	chunks := strings.Split(text, "\f")
	pages := make([]Page, 0, len(chunks))
	for i, c := range chunks {
		pages = append(pages, Page{Number: i + 1, Text: strings.TrimSpace(c)})
	}
	// pdftotext ends output with a trailing form feed
	for len(pages) > 1 && pages[len(pages)-1].Text == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}
