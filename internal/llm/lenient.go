package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

var (
	reISODate    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reDMY        = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})[/.-](\d{2,4})$`)
	reCurrency   = regexp.MustCompile(`^[A-Z]{3}$`)
	reAmountJunk = regexp.MustCompile(`[^0-9,.\-]`)
)

// allowed keys on a transaction item; anything else is dropped
var transactionKeys = map[string]struct{}{
	"date": {}, "description": {}, "amount": {}, "installment": {},
	"currency": {}, "page": {}, "confidence": {}, "bank": {},
}

// SanitizeReport lists what sanitization changed.
type SanitizeReport struct {
	DroppedItems []string // "index: reason"
	DroppedKeys  []string
}

// SanitizeTransactions coerces a provider answer toward the transactions
// schema: a missing "transactions" key becomes an empty list, amounts are
// parsed from strings with either decimal separator and made positive, dates
// in DD/MM/YYYY become ISO, currency defaults to BRL, page and confidence get
// defaults. Items that cannot be repaired are removed and reported.
func SanitizeTransactions(doc []byte) ([]byte, SanitizeReport, error) {
	var rep SanitizeReport

	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, rep, fmt.Errorf("sanitize: decode: %w", err)
	}

	items, _ := m["transactions"].([]any)
	cleaned := make([]any, 0, len(items))
	for i, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			rep.DroppedItems = append(rep.DroppedItems, fmt.Sprintf("%d: not an object", i))
			continue
		}
		if reason := sanitizeItem(obj, &rep); reason != "" {
			rep.DroppedItems = append(rep.DroppedItems, fmt.Sprintf("%d: %s", i, reason))
			continue
		}
		cleaned = append(cleaned, obj)
	}

	out := map[string]any{"transactions": cleaned}
	if due, ok := m["invoice_due_date"].(string); ok && strings.TrimSpace(due) != "" {
		out["invoice_due_date"] = strings.TrimSpace(due)
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, rep, fmt.Errorf("sanitize: encode: %w", err)
	}
	return b, rep, nil
}

func sanitizeItem(obj map[string]any, rep *SanitizeReport) string {
	for k := range obj {
		if _, ok := transactionKeys[k]; !ok {
			delete(obj, k)
			rep.DroppedKeys = append(rep.DroppedKeys, k)
		}
	}

	desc, _ := obj["description"].(string)
	desc = strings.Join(strings.Fields(desc), " ")
	if desc == "" {
		return "missing description"
	}
	obj["description"] = desc

	amount, ok := ParseAmount(obj["amount"])
	if !ok || amount == 0 {
		return "invalid amount"
	}
	obj["amount"] = amount

	date, _ := obj["date"].(string)
	iso, ok := NormalizeDate(date)
	if !ok {
		return fmt.Sprintf("invalid date %q", date)
	}
	obj["date"] = iso

	switch v := obj["installment"].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			obj["installment"] = s
		} else {
			delete(obj, "installment")
		}
	case float64:
		obj["installment"] = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		delete(obj, "installment")
	}

	cur, _ := obj["currency"].(string)
	cur = strings.ToUpper(strings.TrimSpace(cur))
	if cur == "R$" || !reCurrency.MatchString(cur) {
		cur = entity.DefaultCurrency
	}
	obj["currency"] = cur

	page := 1
	switch v := obj["page"].(type) {
	case float64:
		if v >= 1 {
			page = int(v)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 1 {
			page = n
		}
	}
	obj["page"] = page

	conf := 1.0
	switch v := obj["confidence"].(type) {
	case float64:
		conf = v
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			conf = f
		}
	}
	obj["confidence"] = math.Max(0, math.Min(1, conf))

	if bank, ok := obj["bank"].(string); !ok || strings.TrimSpace(bank) == "" {
		delete(obj, "bank")
	}
	return ""
}

// ParseAmount reads a monetary value given as a JSON number or as a string
// like "1.234,56", "1,234.56", "R$ 12,90" or "-45.00". The result is the
// absolute value rounded to cents.
func ParseAmount(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		s := reAmountJunk.ReplaceAllString(strings.TrimSpace(t), "")
		if s == "" {
			return 0, false
		}
		lastComma := strings.LastIndex(s, ",")
		lastDot := strings.LastIndex(s, ".")
		switch {
		case lastComma >= 0 && lastDot >= 0:
			if lastComma > lastDot {
				s = strings.ReplaceAll(s, ".", "")
				s = strings.Replace(s, ",", ".", 1)
			} else {
				s = strings.ReplaceAll(s, ",", "")
			}
		case lastComma >= 0:
			s = strings.Replace(s, ",", ".", 1)
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return math.Round(math.Abs(f)*100) / 100, true
}

// NormalizeDate accepts YYYY-MM-DD or DD/MM/YYYY (also with '.' or '-' and
// two-digit years) and returns YYYY-MM-DD.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if reISODate.MatchString(s) {
		if _, err := time.Parse("2006-01-02", s); err == nil {
			return s, true
		}
		return "", false
	}
	m := reDMY.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year += 2000
	} else if len(m[3]) != 4 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return "", false
	}
	return t.Format("2006-01-02"), true
}
