package llm

// BuildTransactionsJSONSchema returns the JSON Schema a provider answer must
// satisfy after sanitization.
func BuildTransactionsJSONSchema() map[string]any {
	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type":    "object",
		"properties": map[string]any{
			"invoice_due_date": map[string]any{"type": []any{"string", "null"}},
			"transactions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"date":        map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
						"description": map[string]any{"type": "string", "minLength": 1},
						"amount":      map[string]any{"type": "number", "exclusiveMinimum": 0},
						"installment": map[string]any{"type": "string"},
						"currency":    map[string]any{"type": "string", "pattern": "^[A-Z]{3}$"},
						"page":        map[string]any{"type": "integer", "minimum": 1},
						"confidence":  map[string]any{"type": "number", "minimum": 0, "maximum": 1},
						"bank":        map[string]any{"type": "string"},
					},
					"required": []any{"date", "description", "amount", "currency", "page", "confidence"},
				},
			},
		},
		"required": []any{"transactions"},
	}
}
