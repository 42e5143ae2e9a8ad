package models

// VendorBill is the payload posted to the ERP for an accepted invoice.
type VendorBill struct {
	VendorID      string     `json:"vendor_id"`
	InvoiceNumber string     `json:"invoice_number"`
	InvoiceDate   string     `json:"invoice_date"`
	Currency      string     `json:"currency"`
	Lines         []BillLine `json:"lines"`
}

type BillLine struct {
	Description string  `json:"description"`
	Qty         float64 `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
	GLAccount   string  `json:"gl_account"`
}

// NewVendorBill maps an invoice onto the ERP payload. Missing vendor and
// currency fall back to UNKNOWN and USD; lines without a GL account get defaultGL.
func NewVendorBill(inv *Invoice, defaultGL string) VendorBill {
	bill := VendorBill{
		VendorID:      inv.VendorID(),
		InvoiceNumber: inv.InvoiceNumber,
		InvoiceDate:   inv.InvoiceDate,
		Currency:      inv.Currency,
		Lines:         make([]BillLine, 0, len(inv.Lines)),
	}
	if bill.VendorID == "" {
		bill.VendorID = "UNKNOWN"
	}
	if bill.Currency == "" {
		bill.Currency = "USD"
	}
	for _, l := range inv.Lines {
		gl := l.GLAccount
		if gl == "" {
			gl = defaultGL
		}
		desc := l.Description
		if desc == "" {
			desc = "Item"
		}
		bill.Lines = append(bill.Lines, BillLine{
			Description: desc,
			Qty:         l.Qty,
			UnitPrice:   l.UnitPrice,
			GLAccount:   gl,
		})
	}
	return bill
}
