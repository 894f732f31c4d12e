package services

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
	appConfig "github.com/onestep-solution/field-service-api/config"
	"github.com/onestep-solution/field-service-api/models"
	"github.com/onestep-solution/field-service-api/utils"
)

// InvoiceGenerator defines the interface for rendering invoice documents
type InvoiceGenerator interface {
	Generate(bill *models.Bill, work *models.Work, client, technician *models.User, upiQR []byte) (filePath, invoiceID string, err error)
}

var invoiceGeneratorInstance InvoiceGenerator

// InitInvoiceService initializes the PDF invoice generator
func InitInvoiceService() InvoiceGenerator {
	cfg := appConfig.GetConfig()
	invoiceGeneratorInstance = &PDFInvoiceService{outputDir: cfg.InvoiceDir}
	return invoiceGeneratorInstance
}

// GetInvoiceService returns the invoice generator instance
func GetInvoiceService() InvoiceGenerator {
	return invoiceGeneratorInstance
}

// SetInvoiceService sets the invoice generator instance (primarily for testing)
func SetInvoiceService(g InvoiceGenerator) {
	invoiceGeneratorInstance = g
}

// PDFInvoiceService renders service bills as PDF documents on local disk.
type PDFInvoiceService struct {
	outputDir string
}

// Generate renders the bill into a PDF and returns its path together with a
// freshly assigned invoice identifier. Pure rendering: the only branching is
// the cash-vs-UPI payment instruction block.
func (s *PDFInvoiceService) Generate(bill *models.Bill, work *models.Work, client, technician *models.User, upiQR []byte) (string, string, error) {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create invoice directory: %w", err)
	}

	invoiceID := utils.GenerateInvoiceNumber()
	filePath := filepath.Join(s.outputDir, fmt.Sprintf("%s.pdf", invoiceID))

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "One Step Solution", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 8, "Service Bill", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Invoice #: %s", invoiceID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Work token: %s", work.Token), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Service: %s", work.ServiceType), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, "Client", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Name: %s", client.Name), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Email: %s", client.Email), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Phone: %s", client.Phone), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, "Technician", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Name: %s", technician.Name), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Phone: %s", technician.Phone), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, "Items Used", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	if len(bill.Items) == 0 {
		pdf.CellFormat(0, 6, "No material items used.", "", 1, "L", false, 0, "")
	} else {
		for i, item := range bill.Items {
			line := fmt.Sprintf("%d. %s - Qty: %d x Rs %.2f = Rs %.2f",
				i+1, item.Name, item.Qty, item.Price, float64(item.Qty)*item.Price)
			pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(2)

	pdf.CellFormat(0, 6, fmt.Sprintf("Materials: Rs %.2f", bill.ItemTotal()), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Service Charge: Rs %.2f", bill.ServiceCharge), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Subtotal: Rs %.2f", bill.ItemTotal()+bill.ServiceCharge), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Taxes: Rs %.2f", bill.Taxes), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, fmt.Sprintf("Total Amount: Rs %.2f", bill.TotalAmount), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, "Payment", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	if bill.PaymentMethod == models.PayUPI {
		pdf.CellFormat(0, 6, "UPI payment - scan the QR code below or use the link in your email.", "", 1, "L", false, 0, "")
		if len(upiQR) > 0 {
			opts := gofpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader("upi-qr", opts, bytes.NewReader(upiQR))
			pdf.ImageOptions("upi-qr", pdf.GetX(), pdf.GetY(), 40, 40, true, opts, 0, "")
		}
	} else {
		pdf.CellFormat(0, 6, "Cash payment - please pay the technician directly.", "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Thank you for choosing our service!", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 5, "This is a system-generated bill.", "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", "", fmt.Errorf("failed to write invoice PDF: %w", err)
	}

	return filePath, invoiceID, nil
}
