package pricing

// DocumentType describes one service in the static catalog.
type DocumentType struct {
	ID              string
	Name            string
	BasePrice       float64 // rupees
	ProcessingHours int     // declared upper bound
	UDINRequired    bool
}

// Tier names accepted on order lines.
const (
	TierStandard = "Standard"
	TierExpress  = "Express"
	TierPremium  = "Premium"
)

// TierMultipliers scale the base price of a document type.
var TierMultipliers = map[string]float64{
	TierStandard: 1.0,
	TierExpress:  1.5,
	TierPremium:  2.0,
}

// tierSpeedups scale the declared processing hours. Premium halves the
// turnaround, Express cuts a third.
var tierSpeedups = map[string]float64{
	TierStandard: 1.0,
	TierExpress:  0.67,
	TierPremium:  0.5,
}

// DocumentTypes is the service catalog. Prices are in rupees.
var DocumentTypes = []DocumentType{
	{ID: "gst-certificate", Name: "GST Certificate", BasePrice: 500, ProcessingHours: 48, UDINRequired: true},
	{ID: "income-tax-return", Name: "Income Tax Return", BasePrice: 750, ProcessingHours: 72, UDINRequired: true},
	{ID: "balance-sheet", Name: "Balance Sheet", BasePrice: 1000, ProcessingHours: 96, UDINRequired: true},
	{ID: "profit-loss-statement", Name: "Profit & Loss Statement", BasePrice: 800, ProcessingHours: 72, UDINRequired: true},
	{ID: "audit-report", Name: "Audit Report", BasePrice: 1500, ProcessingHours: 120, UDINRequired: true},
	{ID: "net-worth-certificate", Name: "Net Worth Certificate", BasePrice: 600, ProcessingHours: 48, UDINRequired: true},
	{ID: "turnover-certificate", Name: "Turnover Certificate", BasePrice: 450, ProcessingHours: 24, UDINRequired: true},
	{ID: "form-16", Name: "Form 16", BasePrice: 300, ProcessingHours: 24, UDINRequired: false},
	{ID: "bank-statement", Name: "Bank Statement Attestation", BasePrice: 350, ProcessingHours: 24, UDINRequired: false},
	{ID: "other-document", Name: "Other Document", BasePrice: 400, ProcessingHours: 48, UDINRequired: false},
}

// FindDocumentType returns the catalog entry for id, or nil.
func FindDocumentType(id string) *DocumentType {
	for i := range DocumentTypes {
		if DocumentTypes[i].ID == id {
			return &DocumentTypes[i]
		}
	}
	return nil
}
