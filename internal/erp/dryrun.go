package erp

import (
	"context"
	"fmt"
	"time"

	"invoiceagent/pkg/models"
)

// DryRun accepts every bill without contacting the ERP.
type DryRun struct {
	Now func() time.Time
}

// PostVendorBill returns a DEMO-{unix seconds} id.
func (d DryRun) PostVendorBill(ctx context.Context, _ models.VendorBill) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	return fmt.Sprintf("DEMO-%d", now().Unix()), nil
}
