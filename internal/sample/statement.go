// Package sample renders small credit-card statement PDFs for demos and tests.
package sample

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// Line is one statement entry as printed on the page.
type Line struct {
	Date        string
	Description string
	Amount      string
}

// Statement describes a document to render. Each element of Pages becomes one
// PDF page.
type Statement struct {
	Issuer string
	Holder string
	Pages  [][]Line
}

// DefaultStatement is a two-page statement with a handful of purchases.
func DefaultStatement() Statement {
	return Statement{
		Issuer: "Nubank",
		Holder: "MARIA SILVA",
		Pages: [][]Line{
			{
				{Date: "05/02/2024", Description: "SUPERMERCADO PAO DE ACUCAR", Amount: "245,90"},
				{Date: "07/02/2024", Description: "UBER *TRIP", Amount: "32,15"},
				{Date: "09/02/2024", Description: "NETFLIX.COM", Amount: "55,90"},
			},
			{
				{Date: "12/02/2024", Description: "MAGAZINE LUIZA PARC 02/10", Amount: "189,99"},
				{Date: "15/02/2024", Description: "POSTO SHELL", Amount: "210,00"},
			},
		},
	}
}

// Render writes s as a PDF.
func Render(s Statement) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)

	for i, lines := range s.Pages {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 14)
		pdf.Cell(0, 8, fmt.Sprintf("%s - Fatura do cartao", s.Issuer))
		pdf.Ln(10)
		pdf.SetFont("Helvetica", "", 10)
		pdf.Cell(0, 6, fmt.Sprintf("Titular: %s   Pagina %d/%d", s.Holder, i+1, len(s.Pages)))
		pdf.Ln(10)
		for _, l := range lines {
			pdf.CellFormat(30, 6, l.Date, "", 0, "L", false, 0, "")
			pdf.CellFormat(110, 6, l.Description, "", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, "R$ "+l.Amount, "", 1, "R", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render statement: %w", err)
	}
	return buf.Bytes(), nil
}

// Blank renders a PDF with pages but no text, standing in for an image-only scan.
func Blank(pages int) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.SetFillColor(200, 200, 200)
		pdf.Rect(20, 20, 100, 60, "F")
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render blank: %w", err)
	}
	return buf.Bytes(), nil
}
