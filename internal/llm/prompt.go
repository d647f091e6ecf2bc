package llm

import "strings"

const (
	extractionSystemPrompt = "You are a financial data extraction system. Return only valid JSON."
	bankSystemPrompt       = "You are a bank identification system. Return only valid JSON."

	// maxPromptChars bounds the statement text sent in one request.
	maxPromptChars = 60000
)

// BuildExtractionPrompt wraps the combined page text with extraction rules.
func BuildExtractionPrompt(text string) string {
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}
	rules := []string{
		"Extract every purchase transaction from the credit card statement below.",
		"Pages are delimited by lines like '--- PAGE n ---'; report the page each transaction appears on.",
		"Return a JSON object: {\"invoice_due_date\": string or null, \"transactions\": [ ... ]}.",
		"Each transaction has: date (YYYY-MM-DD; if the year is missing use the statement year), description (as printed), " +
			"amount (positive number, no currency symbol), installment (e.g. \"02/10\", or null), currency (ISO 4217, default BRL), " +
			"page (integer), confidence (0.0 to 1.0).",
		"Skip payments, credits, balances, totals, interest summaries and fees tables.",
		"Do not invent transactions. If none are present return {\"transactions\": []}.",
	}
	var b strings.Builder
	b.WriteString(strings.Join(rules, "\n"))
	b.WriteString("\n\nStatement text:\n")
	b.WriteString(text)
	return b.String()
}

// BuildBankPrompt asks for the issuer of a statement given its first page.
func BuildBankPrompt(firstPage string) string {
	if len(firstPage) > 4000 {
		firstPage = firstPage[:4000]
	}
	return "Identify the bank or card issuer that produced this credit card statement.\n" +
		"Return a JSON object: {\"name\": string, \"confidence\": number between 0 and 1}.\n" +
		"Use \"Unknown\" when the issuer is not evident.\n\nFirst page:\n" + firstPage
}

// StripCodeFences removes a surrounding markdown code block, which local
// models add even when asked for raw JSON.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
