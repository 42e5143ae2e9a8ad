package x12

import (
	"strconv"
	"strings"
	"time"

	"invoiceagent/pkg/models"
)

// interpreter folds one segment's elements into the builder's document.
type interpreter func(b *Builder, el Elements)

func defaultInterpreters() map[string]interpreter {
	return map[string]interpreter{
		"ISA": applyISA,
		"GS":  applyGS,
		"ST":  applyST,
		"BIG": applyBIG,
		"N1":  applyN1,
		"ITD": applyITD,
		"IT1": applyIT1,
		"TXI": applyTXI,
		"SAC": applySAC,
		"TDS": applyTDS,
		"CTT": applyCTT,
	}
}

// x12Date is the BIG01 layout (CCYYMMDD).
const x12Date = "20060102"

func applyISA(b *Builder, el Elements) {
	m := &b.doc.Meta
	m.InterchangeControl = el.Value(12)
	m.SenderID = el.Value(5)
	m.ReceiverID = el.Value(7)
}

func applyGS(b *Builder, el Elements) {
	b.doc.Meta.GroupControl = el.Value(5)
}

func applyST(b *Builder, el Elements) {
	b.doc.Meta.TransactionControl = el.Value(1)
}

func applyBIG(b *Builder, el Elements) {
	inv := &b.doc.Invoice
	if raw := el.Value(0); raw != "" {
		if d, err := time.Parse(x12Date, raw); err != nil {
			b.warn("BIG", 0, raw, "invoice date is not CCYYMMDD")
		} else {
			inv.InvoiceDate = d.Format(time.DateOnly)
		}
	}
	inv.InvoiceNumber = el.Value(1)
	if po := el.Value(2); po != "" {
		inv.PONumber = po
	}
}

func applyN1(b *Builder, el Elements) {
	id, ok := el.Get(3)
	if !ok {
		return
	}
	switch el.Value(0) {
	case "RE":
		b.doc.Invoice.Parties.BillToID = id
	case "RI":
		b.doc.Invoice.Parties.RemitToID = id
	}
}

func applyITD(b *Builder, el Elements) {
	days := el.Value(6)
	if days == "" {
		days = el.Value(7)
	}
	if days == "" {
		b.doc.Invoice.Terms = DefaultTerms
		return
	}
	b.doc.Invoice.Terms = "NET" + days
}

func applyIT1(b *Builder, el Elements) {
	inv := &b.doc.Invoice
	line := models.LineItem{
		LineNo: len(inv.Lines) + 1,
		UOM:    "EA",
		Item:   el.Value(6),
	}
	if raw := el.Value(0); isDigits(raw) {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			line.LineNo = n
		}
	}
	if raw := el.Value(1); raw != "" {
		if v, err := parseFloat(raw); err != nil {
			b.warn("IT1", 1, raw, "quantity "+err.Error())
		} else {
			line.Qty = v
		}
	}
	if uom := el.Value(2); uom != "" {
		line.UOM = uom
	}
	if raw := el.Value(3); raw != "" {
		if v, err := parseFloat(raw); err != nil {
			b.warn("IT1", 3, raw, "unit price "+err.Error())
		} else {
			line.UnitPrice = v
		}
	}

	if ext, err := extendedPrice(line.Qty, line.UnitPrice); err != nil {
		b.warn("IT1", 3, el.Value(3), "extended price "+err.Error())
	} else {
		line.ExtPrice = ext
	}
	if line.Item != "" {
		line.Description = "Item " + line.Item
	} else {
		line.Description = "Item " + strconv.Itoa(line.LineNo)
	}
	inv.Lines = append(inv.Lines, line)
}

func applyTXI(b *Builder, el Elements) {
	raw, ok := el.Get(1)
	if !ok {
		b.warn("TXI", 1, "", "missing tax amount")
		return
	}
	amt, err := impliedCents(raw)
	if err != nil {
		b.warn("TXI", 1, raw, "tax amount "+err.Error())
		return
	}
	b.doc.Invoice.Tax = append(b.doc.Invoice.Tax, models.TaxEntry{
		Type:   el.Value(0),
		Amount: amt,
	})
}

func applySAC(b *Builder, el Elements) {
	raw := el.Value(4)
	if raw == "" {
		return
	}
	d, err := parseDecimal(raw)
	if err != nil {
		b.warn("SAC", 4, raw, "allowance/charge amount "+err.Error())
		return
	}

	kind := strings.ToUpper(el.Value(0))
	if kind == "A" {
		d = d.Neg()
	}
	if kind == "" {
		kind = "C"
	}
	amt, err := roundCents(d)
	if err != nil {
		b.warn("SAC", 4, raw, "allowance/charge amount "+err.Error())
		return
	}
	b.doc.Invoice.Charges = append(b.doc.Invoice.Charges, models.ChargeEntry{
		Type:   kind,
		Amount: amt,
	})
}

func applyTDS(b *Builder, el Elements) {
	raw, ok := el.Get(0)
	if !ok {
		b.warn("TDS", 0, "", "missing invoice total")
		return
	}
	total, err := totalAmount(raw)
	if err != nil {
		b.warn("TDS", 0, raw, "invoice total "+err.Error())
		return
	}
	b.doc.Invoice.Totals.InvoiceTotal = models.Float64(total)
}

func applyCTT(b *Builder, el Elements) {
	raw, ok := el.Get(0)
	if !ok {
		b.warn("CTT", 0, "", "missing line count")
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		b.warn("CTT", 0, raw, "line count is not an integer")
		return
	}
	b.doc.Invoice.Totals.LineCount = models.Int(n)
}
