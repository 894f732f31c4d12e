package utils

import (
	"fmt"
	"math/rand"
	"time"
)

// GenerateWorkToken returns a human-readable request token in the form
// REQ-<year>-<sequence>, zero-padded to five digits. Sequences past 99999
// simply widen the field so tokens stay unique.
func GenerateWorkToken(sequence uint) string {
	return fmt.Sprintf("REQ-%d-%05d", time.Now().Year(), sequence)
}

// GenerateInvoiceNumber returns an invoice identifier in the form
// INV-<year>-<4-digit-random>.
func GenerateInvoiceNumber() string {
	return fmt.Sprintf("INV-%d-%04d", time.Now().Year(), 1000+rand.Intn(9000))
}
