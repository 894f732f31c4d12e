package services

import (
	"os"
	"regexp"
	"testing"

	"github.com/onestep-solution/field-service-api/models"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
)

func invoiceFixtures() (*models.Bill, *models.Work, *models.User, *models.User) {
	bill := &models.Bill{
		Items: []models.BillItem{
			{Name: "valve", Qty: 2, Price: 150},
		},
		ServiceCharge: 100,
		Taxes:         25,
		TotalAmount:   425,
		PaymentMethod: models.PayCash,
	}
	work := &models.Work{Token: "REQ-2026-00050", ServiceType: "pipe repair"}
	client := &models.User{Name: "Asha", Email: "asha@test.com", Phone: "9000000001"}
	tech := &models.User{Name: "Ravi", Phone: "9000000002"}
	return bill, work, client, tech
}

func TestPDFInvoiceService_GeneratesCashInvoice(t *testing.T) {
	svc := &PDFInvoiceService{outputDir: t.TempDir()}
	bill, work, client, tech := invoiceFixtures()

	filePath, invoiceID, err := svc.Generate(bill, work, client, tech, nil)
	assert.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^INV-\d{4}-\d{4}$`), invoiceID)

	info, statErr := os.Stat(filePath)
	assert.NoError(t, statErr)
	assert.Greater(t, info.Size(), int64(0))
}

func TestPDFInvoiceService_GeneratesUPIInvoiceWithQR(t *testing.T) {
	svc := &PDFInvoiceService{outputDir: t.TempDir()}
	bill, work, client, tech := invoiceFixtures()
	bill.PaymentMethod = models.PayUPI

	qrPNG, err := qrcode.Encode("upi://pay?pa=onestep@upi&am=425.00", qrcode.Medium, 256)
	assert.NoError(t, err)

	filePath, invoiceID, err := svc.Generate(bill, work, client, tech, qrPNG)
	assert.NoError(t, err)
	assert.NotEmpty(t, invoiceID)

	info, statErr := os.Stat(filePath)
	assert.NoError(t, statErr)
	assert.Greater(t, info.Size(), int64(0))
}
