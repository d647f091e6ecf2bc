package entity

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

// DefaultCurrency applies when the provider omits a currency.
const DefaultCurrency = "BRL"

// Transaction is one row of the output spreadsheet.
type Transaction struct {
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Description string  `json:"description" validate:"required,max=500"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Installment string  `json:"installment,omitempty" validate:"max=20"`
	Currency    string  `json:"currency" validate:"required,len=3,uppercase"`
	Page        int     `json:"page" validate:"gte=1"`
	Confidence  float64 `json:"confidence" validate:"gte=0,lte=1"`
	Bank        string  `json:"bank"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks field constraints on t.
func (t Transaction) Validate() error {
	return structValidator().Struct(t)
}
