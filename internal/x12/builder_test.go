package x12

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceagent/pkg/models"
)

const fullInvoice = `ISA*00*          *00*          *ZZ*ACMESENDER     *ZZ*BUYERRECV      *240115*1200*U*00401*000000123*0*P*>~
GS*IN*ACMESENDER*BUYERRECV*20240115*1200*77*X*004010~
ST*810*0001~
BIG*20240115*INV-200*PO-9~
N1*RE*Buyer Corp*92*BILL-1~
N1*RI*Acme Supply*92*ACME-42~
ITD*01*3*****45~
IT1*1*2*EA*10.00***SKU-1~
IT1*2*3*CS*5.50***SKU-2~
TXI*ST*250~
SAC*C****4.00~
TDS*4300~
CTT*2~
SE*12*0001~
GE*1*77~
IEA*1*000000123~`

func TestParse_FullInvoice(t *testing.T) {
	doc := Parse(fullInvoice)

	assert.Equal(t, models.Meta{
		InterchangeControl: "000000123",
		SenderID:           "ACMESENDER",
		ReceiverID:         "BUYERRECV",
		GroupControl:       "77",
		TransactionControl: "0001",
	}, doc.Meta)

	inv := doc.Invoice
	assert.Equal(t, "INV-200", inv.InvoiceNumber)
	assert.Equal(t, "2024-01-15", inv.InvoiceDate)
	assert.Equal(t, "PO-9", inv.PONumber)
	assert.Equal(t, "NET45", inv.Terms)
	assert.Equal(t, models.Parties{BillToID: "BILL-1", RemitToID: "ACME-42"}, inv.Parties)
	assert.Equal(t, "ACME-42", inv.VendorID())

	require.Len(t, inv.Lines, 2)
	assert.Equal(t, models.LineItem{
		LineNo: 1, Qty: 2, UOM: "EA", UnitPrice: 10, Item: "SKU-1",
		Description: "Item SKU-1", ExtPrice: 20,
	}, inv.Lines[0])
	assert.Equal(t, 16.5, inv.Lines[1].ExtPrice)
	assert.Equal(t, "CS", inv.Lines[1].UOM)

	assert.Equal(t, []models.TaxEntry{{Type: "ST", Amount: 2.5}}, inv.Tax)
	assert.Equal(t, []models.ChargeEntry{{Type: "C", Amount: 4}}, inv.Charges)

	require.NotNil(t, inv.Totals.InvoiceTotal)
	assert.Equal(t, 43.0, *inv.Totals.InvoiceTotal)
	require.NotNil(t, inv.Totals.LineCount)
	assert.Equal(t, 2, *inv.Totals.LineCount)
}

func TestParse_ScenarioCleanInvoice(t *testing.T) {
	doc := Parse("BIG*20240115*INV-100**~IT1*1*2*EA*10.00***WIDGET~TDS*2000~CTT*1~")

	inv := doc.Invoice
	assert.Equal(t, "INV-100", inv.InvoiceNumber)
	assert.Equal(t, "2024-01-15", inv.InvoiceDate)
	assert.Empty(t, inv.PONumber)
	require.Len(t, inv.Lines, 1)
	assert.Equal(t, 20.0, inv.Lines[0].ExtPrice)
	assert.Equal(t, "Item WIDGET", inv.Lines[0].Description)
	require.NotNil(t, inv.Totals.InvoiceTotal)
	assert.Equal(t, 20.0, *inv.Totals.InvoiceTotal)
	assert.Equal(t, DefaultTerms, inv.Terms)
}

func TestParse_AllowanceIsNegative(t *testing.T) {
	doc := Parse("BIG*20240115*INV-102~IT1*1*10*EA*10.00~SAC*A****10.00~SAC*c****2.5~SAC*****1~TDS*9000~")

	assert.Equal(t, []models.ChargeEntry{
		{Type: "A", Amount: -10},
		{Type: "C", Amount: 2.5},
		{Type: "C", Amount: 1},
	}, doc.Invoice.Charges)
	assert.Equal(t, 90.0, *doc.Invoice.Totals.InvoiceTotal)
}

func TestParse_SACWithoutAmountIsSkipped(t *testing.T) {
	doc, warnings := ParseWithWarnings("BIG*20240115*INV-1~SAC*A*D240~SAC*C****abc~CTT*0~")

	assert.Empty(t, doc.Invoice.Charges)
	require.Len(t, warnings, 1)
	assert.Equal(t, "SAC", warnings[0].Tag)
	assert.Equal(t, 4, warnings[0].Element)
	assert.Equal(t, 2, warnings[0].Segment)
}

func TestParse_ImpliedCents(t *testing.T) {
	tests := []struct {
		segment string
		want    float64
	}{
		{"TXI*LOC*500", 5.00},
		{"TXI*LOC*5.00", 5.00},
		{"TXI*LOC*5", 0.05},
		{"TXI*ST*12.345", 12.35},
		{"TXI*ST*-3.10", -3.10},
	}

	for _, tt := range tests {
		t.Run(tt.segment, func(t *testing.T) {
			doc := Parse("BIG*20240115*INV-1~IT1*1*1*EA*1~" + tt.segment + "~")
			require.Len(t, doc.Invoice.Tax, 1)
			assert.Equal(t, tt.want, doc.Invoice.Tax[0].Amount)
		})
	}
}

func TestParse_TaxParseFailureIsDropped(t *testing.T) {
	doc, warnings := ParseWithWarnings("BIG*20240115*INV-1~TXI*ST~TXI*ST*12,50~TXI*ST*100~")

	assert.Equal(t, []models.TaxEntry{{Type: "ST", Amount: 1}}, doc.Invoice.Tax)
	require.Len(t, warnings, 2)
	assert.Equal(t, "missing tax amount", warnings[0].Reason)
	assert.Equal(t, "12,50", warnings[1].Raw)
}

func TestParse_TDSHeuristic(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"2000", 20.00},
		{"0", 0},
		{"20.50", 20.50},
		{"99.99", 99.99},
		{"150.25", 1.50},
		// known limitation: a whole-dollar total reads as cents
		{"75", 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			doc := Parse("BIG*20240115*INV-1~CTT*0~TDS*" + tt.raw + "~")
			require.NotNil(t, doc.Invoice.Totals.InvoiceTotal)
			assert.Equal(t, tt.want, *doc.Invoice.Totals.InvoiceTotal)
		})
	}
}

func TestParse_MalformedTotalsLeaveFieldsUnset(t *testing.T) {
	doc, warnings := ParseWithWarnings("BIG*20240115*INV-1~TDS*12A~CTT*two~CTT~")

	assert.Nil(t, doc.Invoice.Totals.InvoiceTotal)
	assert.Nil(t, doc.Invoice.Totals.LineCount)
	require.Len(t, warnings, 3)
	assert.Equal(t, []string{"TDS", "CTT", "CTT"}, []string{warnings[0].Tag, warnings[1].Tag, warnings[2].Tag})
}

func TestParse_LineDefaults(t *testing.T) {
	doc := Parse("BIG*20240115*INV-1~IT1~IT1*A7~IT1*9*1.5*LB*2.333~IT1*0*1*EA*1~")

	lines := doc.Invoice.Lines
	require.Len(t, lines, 4)

	assert.Equal(t, models.LineItem{LineNo: 1, UOM: "EA", Description: "Item 1"}, lines[0])
	assert.Equal(t, 2, lines[1].LineNo)
	assert.Equal(t, "Item 2", lines[1].Description)

	assert.Equal(t, 9, lines[2].LineNo)
	assert.Equal(t, "LB", lines[2].UOM)
	assert.Equal(t, 3.5, lines[2].ExtPrice)

	assert.Equal(t, 4, lines[3].LineNo)
}

func TestParse_ExtendedPriceIsDerived(t *testing.T) {
	doc := Parse("BIG*20240115*INV-1~IT1*1*3*EA*0.10~IT1*2*7*EA*1.005~IT1*3*0.5*EA*3.33~")

	for _, l := range doc.Invoice.Lines {
		want, err := extendedPrice(l.Qty, l.UnitPrice)
		require.NoError(t, err)
		assert.Equal(t, want, l.ExtPrice, "line %d", l.LineNo)
	}
	assert.Equal(t, 0.30, doc.Invoice.Lines[0].ExtPrice)
	assert.Equal(t, 7.04, doc.Invoice.Lines[1].ExtPrice)
	assert.Equal(t, 1.67, doc.Invoice.Lines[2].ExtPrice)
}

func TestParse_MalformedQuantityWarns(t *testing.T) {
	doc, warnings := ParseWithWarnings("BIG*20240115*INV-1~IT1*1*two*EA*x~CTT*1~")

	require.Len(t, doc.Invoice.Lines, 1)
	assert.Zero(t, doc.Invoice.Lines[0].Qty)
	assert.Zero(t, doc.Invoice.Lines[0].UnitPrice)
	require.Len(t, warnings, 2)
	assert.Equal(t, 1, warnings[0].Element)
	assert.Equal(t, 3, warnings[1].Element)
}

func TestParse_BadInvoiceDateWarns(t *testing.T) {
	doc, warnings := ParseWithWarnings("BIG*2024-01-15*INV-1~IT1*1*1*EA*1~CTT*1~")

	assert.Empty(t, doc.Invoice.InvoiceDate)
	assert.Equal(t, "INV-1", doc.Invoice.InvoiceNumber)
	require.Len(t, warnings, 1)
	assert.Equal(t, "BIG", warnings[0].Tag)
}

func TestParse_N1(t *testing.T) {
	doc := Parse("N1*RI*Acme~N1*RE*Buyer*92~N1*RE*Buyer*92*B-1~N1*ST*Ship*92*S-1~N1*RI*Acme*92*A-1~")

	assert.Equal(t, models.Parties{BillToID: "B-1", RemitToID: "A-1"}, doc.Invoice.Parties)
}

func TestParse_ITDTerms(t *testing.T) {
	tests := []struct {
		segment string
		want    string
	}{
		{"ITD*01*3*****60", "NET60"},
		{"ITD*01*3******15", "NET15"},
		{"ITD*01*3", "NET30"},
		{"", "NET30"},
	}
	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.segment, func(t *testing.T) {
			doc := Parse("BIG*20240115*INV-1~CTT*0~TDS*0~" + tt.segment + "~")
			assert.Equal(t, tt.want, doc.Invoice.Terms)
		})
	}
}

func TestParse_UnknownTagsIgnored(t *testing.T) {
	withExtras := Parse("BIG*20240115*INV-1~REF*IA*123~ZZZ*1~IT1*1*1*EA*1~CTT*1~")
	without := Parse("BIG*20240115*INV-1~IT1*1*1*EA*1~CTT*1~")

	assert.Equal(t, without, withExtras)
}

func TestParse_Idempotent(t *testing.T) {
	first := Parse(fullInvoice)
	second := Parse(fullInvoice)

	assert.Equal(t, first, second)
	first.Invoice.Lines[0].Qty = 99
	assert.NotEqual(t, first.Invoice.Lines[0].Qty, second.Invoice.Lines[0].Qty)
}

func TestParse_NewlineAndTildeAgree(t *testing.T) {
	tilde := Parse(fullInvoice)
	newlineText := strings.NewReplacer("~\n", "\n", "~", "\n").Replace(fullInvoice)
	newline := Parse(newlineText)
	crlf := Parse(strings.ReplaceAll(newlineText, "\n", "\r\n"))

	assert.Equal(t, tilde, newline)
	assert.Equal(t, tilde, crlf)
}

func TestParse_EmptyInput(t *testing.T) {
	doc := Parse("")

	assert.Empty(t, doc.Invoice.Lines)
	assert.NotNil(t, doc.Invoice.Lines)
	assert.Nil(t, doc.Invoice.Totals.InvoiceTotal)
	assert.Equal(t, DefaultTerms, doc.Invoice.Terms)
}

func TestParseStrict(t *testing.T) {
	doc, err := ParseStrict("BIG*20240115*INV-100**~IT1*1*2*EA*10.00***WIDGET~TDS*2000~CTT*1~")
	require.NoError(t, err)
	assert.Equal(t, "INV-100", doc.Invoice.InvoiceNumber)

	_, err = ParseStrict("BIG*20240115*INV-1~IT1*1*1*EA*1~TDS*abc~CTT*1~")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedElement))

	var malformed *MalformedElementError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "TDS", malformed.Warning.Tag)
	assert.Equal(t, 2, malformed.Warning.Segment)
}

func TestBuilder_Apply(t *testing.T) {
	b := NewBuilder()
	b.Apply(Segment{Tag: "BIG", Elements: Elements{"20240115", "INV-7"}})
	b.Apply(Segment{Tag: "IT1", Elements: Elements{"1", "4", "EA", "2.50"}})
	b.Apply(Segment{Tag: "TDS"})

	doc := b.Document()
	assert.Equal(t, "INV-7", doc.Invoice.InvoiceNumber)
	assert.Equal(t, 10.0, doc.Invoice.Lines[0].ExtPrice)
	require.Len(t, b.Warnings(), 1)
	assert.Equal(t, 2, b.Warnings()[0].Segment)
}

func TestParse_NonFiniteAmountsWarn(t *testing.T) {
	huge := "1" + strings.Repeat("0", 200)

	tests := []struct {
		name    string
		text    string
		tag     string
		element int
	}{
		{"NaN quantity", "IT1*1*NaN*EA*10.00", "IT1", 1},
		{"Inf unit price", "IT1*1*2*EA*Inf", "IT1", 3},
		{"negative infinity unit price", "IT1*1*2*EA*-infinity", "IT1", 3},
		{"exponent quantity", "IT1*1*1e300*EA*1", "IT1", 1},
		{"overflowing extended price", "IT1*1*" + huge + "*EA*" + huge, "IT1", 3},
		{"NaN tax", "TXI*ST*NaN", "TXI", 1},
		{"exponent charge", "SAC*C****1e400", "SAC", 4},
		{"exponent total", "TDS*1e400", "TDS", 0},
		{"Inf total", "TDS*Inf", "TDS", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc *models.CanonicalInvoiceDocument
			var warnings []models.ParseWarning
			require.NotPanics(t, func() {
				doc, warnings = ParseWithWarnings("BIG*20240115*INV-1~" + tt.text + "~")
			})

			require.NotEmpty(t, warnings)
			assert.Equal(t, tt.tag, warnings[0].Tag)
			assert.Equal(t, tt.element, warnings[0].Element)

			inv := doc.Invoice
			assert.Nil(t, inv.Totals.InvoiceTotal)
			assert.Empty(t, inv.Tax)
			assert.Empty(t, inv.Charges)
			for _, l := range inv.Lines {
				assert.Zero(t, l.ExtPrice)
			}

			_, err := json.Marshal(doc)
			assert.NoError(t, err, "document must stay encodable")
		})
	}
}

func TestParseStrict_NonFiniteAmount(t *testing.T) {
	_, err := ParseStrict("BIG*20240115*INV-1~IT1*1*NaN*EA*10.00~")
	assert.ErrorIs(t, err, ErrMalformedElement)
}
