package pricing

import (
	"fmt"
	"math"
)

// OrderItem is one (documentTypeId, tier, quantity) tuple. Items are
// ephemeral: recomputed from the draft file set whenever it changes.
type OrderItem struct {
	DocumentTypeID string `json:"documentTypeId"`
	Tier           string `json:"tier"`
	Quantity       int    `json:"quantity"`
	FileName       string `json:"fileName,omitempty"`
	FileID         string `json:"fileId,omitempty"`
}

// BreakdownLine is one priced row of an order calculation.
type BreakdownLine struct {
	DocumentType string  `json:"documentType"`
	Tier         string  `json:"tier"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unitPrice"`
	TotalPrice   float64 `json:"totalPrice"`
}

// OrderCalculation is the derived total for an order. Never persisted on its
// own; callers snapshot it into the ledger at payment time.
type OrderCalculation struct {
	Subtotal     float64         `json:"subtotal"`
	BulkDiscount float64         `json:"bulkDiscount"`
	GSTAmount    float64         `json:"gstAmount"`
	TotalAmount  float64         `json:"totalAmount"`
	Breakdown    []BreakdownLine `json:"breakdown"`
}

// Engine computes order totals from the static catalog and configured
// discount policy. Calculate is a pure function of its inputs.
type Engine struct {
	gstRatePercent        float64
	bulkDiscountThreshold int
	bulkDiscountPercent   float64
}

// NewEngine creates a pricing engine. gstRatePercent is e.g. 18,
// bulkDiscountPercent e.g. 10 off the subtotal once the item count
// reaches bulkDiscountThreshold.
func NewEngine(gstRatePercent float64, bulkDiscountThreshold int, bulkDiscountPercent float64) *Engine {
	return &Engine{
		gstRatePercent:        gstRatePercent,
		bulkDiscountThreshold: bulkDiscountThreshold,
		bulkDiscountPercent:   bulkDiscountPercent,
	}
}

// roundMoney rounds to 2 decimals, half away from zero.
func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// UnitPrice returns basePrice(documentTypeId) x tierMultiplier(tier).
func (e *Engine) UnitPrice(documentTypeID, tier string) (float64, error) {
	dt := FindDocumentType(documentTypeID)
	if dt == nil {
		return 0, fmt.Errorf("unknown document type: %s", documentTypeID)
	}
	mult, ok := TierMultipliers[tier]
	if !ok {
		return 0, fmt.Errorf("unknown tier: %s", tier)
	}
	return roundMoney(dt.BasePrice * mult), nil
}

// Calculate derives the order totals. An empty item list yields an all-zero
// calculation rather than an error. Unknown types, unknown tiers and
// non-positive quantities contribute nothing; callers that need hard
// failures validate first via ValidateItems.
func (e *Engine) Calculate(items []OrderItem) OrderCalculation {
	calc := OrderCalculation{Breakdown: []BreakdownLine{}}
	if len(items) == 0 {
		return calc
	}

	totalCount := 0
	for _, item := range items {
		dt := FindDocumentType(item.DocumentTypeID)
		if dt == nil {
			continue
		}
		mult, ok := TierMultipliers[item.Tier]
		if !ok {
			continue
		}
		qty := item.Quantity
		if qty <= 0 {
			continue
		}
		unit := roundMoney(dt.BasePrice * mult)
		line := roundMoney(unit * float64(qty))
		calc.Breakdown = append(calc.Breakdown, BreakdownLine{
			DocumentType: dt.Name,
			Tier:         item.Tier,
			Quantity:     qty,
			UnitPrice:    unit,
			TotalPrice:   line,
		})
		calc.Subtotal = roundMoney(calc.Subtotal + line)
		totalCount += qty
	}

	if totalCount >= e.bulkDiscountThreshold && e.bulkDiscountPercent > 0 {
		calc.BulkDiscount = roundMoney(calc.Subtotal * e.bulkDiscountPercent / 100)
	}
	calc.GSTAmount = roundMoney((calc.Subtotal - calc.BulkDiscount) * e.gstRatePercent / 100)
	calc.TotalAmount = roundMoney(calc.Subtotal - calc.BulkDiscount + calc.GSTAmount)
	return calc
}

// Paise converts a rupee amount to integer paise, rounding to nearest.
func Paise(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ValidateItems rejects unknown document types, unknown tiers and
// non-positive quantities.
func (e *Engine) ValidateItems(items []OrderItem) []string {
	var errs []string
	if len(items) == 0 {
		errs = append(errs, "no documents in order")
		return errs
	}
	for i, item := range items {
		if FindDocumentType(item.DocumentTypeID) == nil {
			errs = append(errs, fmt.Sprintf("invalid document type for item %d", i+1))
		}
		if _, ok := TierMultipliers[item.Tier]; !ok {
			errs = append(errs, fmt.Sprintf("invalid tier for item %d", i+1))
		}
		if item.Quantity <= 0 {
			errs = append(errs, fmt.Sprintf("invalid quantity for item %d", i+1))
		}
	}
	return errs
}

// EstimateProcessingTime takes the maximum declared processing hours across
// the selected document types, applies the fastest selected tier's speedup
// (Premium wins over Express), and renders hours up to 24h, days beyond.
func (e *Engine) EstimateProcessingTime(items []OrderItem) string {
	if len(items) == 0 {
		return "N/A"
	}

	maxHours := 0
	hasExpress, hasPremium := false, false
	for _, item := range items {
		if dt := FindDocumentType(item.DocumentTypeID); dt != nil && dt.ProcessingHours > maxHours {
			maxHours = dt.ProcessingHours
		}
		switch item.Tier {
		case TierExpress:
			hasExpress = true
		case TierPremium:
			hasPremium = true
		}
	}

	if hasPremium {
		maxHours = int(math.Ceil(float64(maxHours) * tierSpeedups[TierPremium]))
	} else if hasExpress {
		maxHours = int(math.Ceil(float64(maxHours) * tierSpeedups[TierExpress]))
	}

	if maxHours <= 24 {
		return fmt.Sprintf("%d hours", maxHours)
	}
	days := int(math.Ceil(float64(maxHours) / 24))
	if maxHours <= 48 {
		if days > 1 {
			return fmt.Sprintf("%d days", days)
		}
		return fmt.Sprintf("%d day", days)
	}
	return fmt.Sprintf("%d days", days)
}
