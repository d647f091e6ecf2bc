package constants

import (
	"strings"
)

// UnknownBank is reported when the issuer could not be identified.
const UnknownBank = "Unknown"

var knownBanks = []string{
	"Banco do Brasil",
	"Bradesco",
	"Caixa",
	"C6 Bank",
	"Inter",
	"Itaú",
	"Mercado Pago",
	"Nubank",
	"PicPay",
	"Santander",
	"XP",
}

// CanonicalBank maps an issuer name reported by a provider to its canonical
// spelling. Names that match nothing are returned trimmed; empty input maps to
// UnknownBank.
func CanonicalBank(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return UnknownBank
	}
	normalized := strings.ToLower(trimmed)

	synonyms := map[string]string{
		"nu":               "Nubank",
		"nu pagamentos":    "Nubank",
		"itau":             "Itaú",
		"itau unibanco":    "Itaú",
		"banco itau":       "Itaú",
		"bb":               "Banco do Brasil",
		"banco inter":      "Inter",
		"caixa economica":  "Caixa",
		"caixa econômica":  "Caixa",
		"banco santander":  "Santander",
		"banco bradesco":   "Bradesco",
		"c6":               "C6 Bank",
		"unknown":          UnknownBank,
		"desconhecido":     UnknownBank,
		"banco c6":         "C6 Bank",
		"mercadopago":      "Mercado Pago",
		"xp investimentos": "XP",
	}
	if bank, ok := synonyms[normalized]; ok {
		return bank
	}
	for _, bank := range knownBanks {
		if normalized == strings.ToLower(bank) {
			return bank
		}
	}
	return trimmed
}
