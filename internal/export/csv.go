package export

import (
	"fmt"
	"strings"

	"github.com/mhartley/claim-audit/internal/models"
)

// csvColumns is the fixed bulk-export column order.
var csvColumns = []string{"id", "date", "staff", "location", "amount", "status"}

// WriteCSV renders the record collection as comma-separated text in the
// fixed column order. Values containing the delimiter are not escaped;
// downstream consumers accept this and RFC 4180 compliance is explicitly
// not guaranteed.
func WriteCSV(records []*models.ReimbursementRecord) string {
	var b strings.Builder

	b.WriteString(strings.Join(csvColumns, ","))
	b.WriteString("\n")

	for _, r := range records {
		fmt.Fprintf(&b, "%s,%s,%s,%s,%s,%s\n",
			r.ID,
			r.CreatedAt.Format("2006-01-02"),
			r.StaffName,
			r.ClientLocation,
			r.Amount.StringFixed(2),
			r.Status)
	}

	return b.String()
}
