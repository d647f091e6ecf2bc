package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// ErrNoTransactions is returned when a provider answer yields no valid rows.
var ErrNoTransactions = errors.New("no transactions found in provider response")

// ParseReport summarizes what ParseTransactions discarded.
type ParseReport struct {
	Received   int
	Kept       int
	Duplicates int
	Dropped    []string
}

// ParseTransactions turns a raw provider answer into validated, deduplicated
// rows stamped with bank. Rows keep the provider's order.
func ParseTransactions(raw []byte, bank string, logger *slog.Logger) ([]entity.Transaction, ParseReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var rep ParseReport

	body := []byte(StripCodeFences(string(raw)))
	if !json.Valid(body) {
		return nil, rep, fmt.Errorf("invalid JSON response from provider")
	}

	var probe map[string]any
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, rep, fmt.Errorf("provider response is not a JSON object: %w", err)
	}
	if items, ok := probe["transactions"].([]any); ok {
		rep.Received = len(items)
	}

	cleaned, srep, err := SanitizeTransactions(body)
	if err != nil {
		return nil, rep, err
	}
	rep.Dropped = append(rep.Dropped, srep.DroppedItems...)
	if len(srep.DroppedKeys) > 0 {
		logger.Debug("llm.parse.unknown_keys", "keys", srep.DroppedKeys)
	}

	if err := ValidateTransactionsJSON(cleaned); err != nil {
		return nil, rep, err
	}

	var doc struct {
		Transactions []entity.Transaction `json:"transactions"`
	}
	if err := json.Unmarshal(cleaned, &doc); err != nil {
		return nil, rep, fmt.Errorf("unmarshal transactions: %w", err)
	}

	bank = constants.CanonicalBank(bank)
	seen := make(map[string]struct{}, len(doc.Transactions))
	out := make([]entity.Transaction, 0, len(doc.Transactions))
	for i, t := range doc.Transactions {
		if t.Bank == "" {
			t.Bank = bank
		} else {
			t.Bank = constants.CanonicalBank(t.Bank)
		}
		if err := t.Validate(); err != nil {
			rep.Dropped = append(rep.Dropped, fmt.Sprintf("%d: %v", i, err))
			continue
		}
		key := dedupeKey(t)
		if _, dup := seen[key]; dup {
			rep.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	rep.Kept = len(out)

	if len(rep.Dropped) > 0 {
		logger.Warn("llm.parse.rows_dropped", "count", len(rep.Dropped), "reasons", rep.Dropped)
	}
	if len(out) == 0 {
		return nil, rep, ErrNoTransactions
	}
	return out, rep, nil
}

func dedupeKey(t entity.Transaction) string {
	return fmt.Sprintf("%s|%s|%.2f", t.Date, strings.ToLower(strings.TrimSpace(t.Description)), t.Amount)
}
