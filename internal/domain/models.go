// internal/domain/models.go
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog SKU
type Product struct {
	SKU       string    `json:"sku" db:"sku"`
	Name      string    `json:"name" db:"name"`
	Category  string    `json:"category" db:"category"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewProduct normalizes and validates a catalog entry.
func NewProduct(sku, name, category string) (Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return Product{}, fmt.Errorf("%w: empty sku", ErrInvalidProduct)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Product " + sku
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = "Unknown"
	}
	return Product{SKU: sku, Name: name, Category: category}, nil
}

// BatchPolicy fixes how a withdrawal is turned into a batch: the shrink factor
// applied to the gross quantity and the lengths of the thaw and shelf windows.
type BatchPolicy struct {
	ShrinkFactor decimal.Decimal
	ThawDays     int
	ShelfDays    int
}

// Batch represents one day's frozen withdrawal as it thaws and sells
type Batch struct {
	ID               int64           `json:"id" db:"id"`
	ProductSKU       string          `json:"product_sku" db:"product_sku"`
	GrossQuantity    decimal.Decimal `json:"gross_quantity" db:"gross_quantity"`
	NetQuantity      decimal.Decimal `json:"net_quantity" db:"net_quantity"`
	AgeDays          int             `json:"age_days" db:"age_days"`
	Status           BatchStatus     `json:"status" db:"status"`
	WithdrawalDate   time.Time       `json:"withdrawal_date" db:"withdrawal_date"`
	SaleEligibleDate time.Time       `json:"sale_eligible_date" db:"sale_eligible_date"`
	ExpirationDate   time.Time       `json:"expiration_date" db:"expiration_date"`
}

// NewBatch builds a thawing batch for a withdrawal of gross kg on the given day.
func NewBatch(sku string, gross decimal.Decimal, withdrawal time.Time, policy BatchPolicy) (Batch, error) {
	if strings.TrimSpace(sku) == "" {
		return Batch{}, fmt.Errorf("%w: empty sku", ErrInvalidProduct)
	}
	if gross.IsNegative() {
		return Batch{}, fmt.Errorf("%w: gross quantity %s", ErrInvalidQuantity, gross)
	}

	day := Day(withdrawal)
	b := Batch{
		ProductSKU:       sku,
		GrossQuantity:    gross,
		NetQuantity:      gross.Mul(policy.ShrinkFactor),
		Status:           StatusThawing,
		WithdrawalDate:   day,
		SaleEligibleDate: AddDays(day, policy.ThawDays),
		ExpirationDate:   AddDays(day, policy.ThawDays+policy.ShelfDays),
	}
	return b, b.Validate(policy.ShrinkFactor)
}

// InitialNet is the sellable quantity the batch started with.
func (b Batch) InitialNet(shrink decimal.Decimal) decimal.Decimal {
	return b.GrossQuantity.Mul(shrink)
}

// Validate checks 0 <= net <= gross*shrink and a known status.
func (b Batch) Validate(shrink decimal.Decimal) error {
	if !b.Status.Valid() {
		return fmt.Errorf("%w: batch %d has unknown status %q", ErrDataIntegrity, b.ID, b.Status)
	}
	if b.NetQuantity.IsNegative() {
		return fmt.Errorf("%w: batch %d net quantity %s is negative", ErrDataIntegrity, b.ID, b.NetQuantity)
	}
	if b.NetQuantity.GreaterThan(b.InitialNet(shrink)) {
		return fmt.Errorf("%w: batch %d net quantity %s exceeds %s",
			ErrDataIntegrity, b.ID, b.NetQuantity, b.InitialNet(shrink))
	}
	return nil
}

// Sellable reports whether the batch may be allocated against on date.
func (b Batch) Sellable(date time.Time) bool {
	if b.Status != StatusAvailable && b.Status != StatusSurplus {
		return false
	}
	return !b.SaleEligibleDate.After(Day(date))
}

// Sale is an aggregate sale record for a product on a day
type Sale struct {
	ID         int64     `json:"id" db:"id"`
	ProductSKU string    `json:"product_sku" db:"product_sku"`
	Date       time.Time `json:"date" db:"sale_date"`
	Quantity   float64   `json:"quantity" db:"quantity"`
}

// Forecast is the predicted demand for a product on a day
type Forecast struct {
	ProductSKU string    `json:"product_sku" db:"product_sku"`
	Date       time.Time `json:"date" db:"forecast_date"`
	Quantity   float64   `json:"quantity" db:"quantity"`
}

// ForecastActual pairs a forecast with the sale recorded on the same day.
type ForecastActual struct {
	Date      time.Time `db:"pair_date"`
	Predicted float64   `db:"predicted"`
	Actual    float64   `db:"actual"`
}

// Error is actual minus predicted.
func (p ForecastActual) Error() float64 {
	return p.Actual - p.Predicted
}

// RunControl records the last day a named routine executed
type RunControl struct {
	RoutineName string    `json:"routine_name" db:"routine_name"`
	LastRunDate time.Time `json:"last_run_date" db:"last_run_date"`
}
