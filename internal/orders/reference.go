package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const referencePrefix = "HL"

// NewReferenceNo builds the external order reference, HL-YYYYMMDD-XXXXXXXX,
// quoted to the payment gateway and printed on receipts.
func NewReferenceNo(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("%s-%s-%s", referencePrefix, now.UTC().Format("20060102"), suffix)
}
