package models

// CanonicalInvoiceDocument is the structured form of one X12 810 interchange.
type CanonicalInvoiceDocument struct {
	Meta    Meta    `json:"meta"`
	Invoice Invoice `json:"invoice"`
}

// Meta carries envelope control numbers. Informational only, never validated.
type Meta struct {
	InterchangeControl string `json:"interchange_control,omitempty"` // ISA13
	SenderID           string `json:"sender_id,omitempty"`           // ISA06
	ReceiverID         string `json:"receiver_id,omitempty"`         // ISA08
	GroupControl       string `json:"group_control,omitempty"`       // GS06
	TransactionControl string `json:"transaction_control,omitempty"` // ST02
}

// Invoice is the business content of one 810 transaction set.
type Invoice struct {
	// Header (BIG)
	InvoiceNumber string `json:"invoice_number,omitempty"`
	InvoiceDate   string `json:"invoice_date,omitempty"` // ISO-8601 (YYYY-MM-DD)
	PONumber      string `json:"po_number,omitempty"`

	// Terms is "NET" + due days, NET30 when no ITD segment says otherwise
	Terms    string `json:"terms"`
	Currency string `json:"currency,omitempty"` // set downstream, never by the parser

	Parties Parties `json:"parties"`

	Lines   []LineItem    `json:"lines"`
	Tax     []TaxEntry    `json:"tax"`
	Charges []ChargeEntry `json:"charges"`
	Totals  Totals        `json:"totals"`

	// Populated by downstream collaborators after validation
	Enrichment  *Enrichment `json:"enrichment,omitempty"`
	Anomaly     *float64    `json:"anomaly,omitempty"`
	Explanation string      `json:"explanation,omitempty"`
}

// Parties maps N1 roles to identifiers.
type Parties struct {
	BillToID  string `json:"bill_to_id,omitempty"`  // N1*RE
	RemitToID string `json:"remit_to_id,omitempty"` // N1*RI
}

// LineItem is one IT1 baseline item.
type LineItem struct {
	LineNo      int     `json:"line_no"`
	Qty         float64 `json:"qty"`
	UOM         string  `json:"uom"`
	UnitPrice   float64 `json:"unit_price"`
	Item        string  `json:"item,omitempty"`
	Description string  `json:"description"`
	ExtPrice    float64 `json:"ext_price"` // always round(qty*unit_price, 2)
	GLAccount   string  `json:"gl_account,omitempty"`
}

// TaxEntry is one TXI tax amount.
type TaxEntry struct {
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
}

// ChargeEntry is a SAC allowance ("A", negative amount) or charge ("C", positive amount).
type ChargeEntry struct {
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
}

// Totals holds the declared TDS total and CTT line count. Nil means absent.
type Totals struct {
	InvoiceTotal *float64 `json:"invoice_total,omitempty"`
	LineCount    *int     `json:"line_count,omitempty"`
}

// Enrichment is vendor metadata attached by the enrichment collaborator.
type Enrichment struct {
	Website      string `json:"website,omitempty" yaml:"website"`
	Category     string `json:"category,omitempty" yaml:"category"`
	GLSuggestion string `json:"gl_suggestion" yaml:"gl_suggestion"`
}

// VendorID is the remit-to party, the identity downstream stages key on.
func (inv *Invoice) VendorID() string {
	return inv.Parties.RemitToID
}

// Float64 returns a pointer to v, for optional totals.
func Float64(v float64) *float64 {
	return &v
}

// Int returns a pointer to v, for optional totals.
func Int(v int) *int {
	return &v
}
