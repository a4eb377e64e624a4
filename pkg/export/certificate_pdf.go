package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateDocument carries the fields rendered onto a completion certificate.
type CertificateDocument struct {
	CertificateNumber string
	RequestNumber     string
	HostelName        string
	WorkSummary       string
	CompletedBy       string
	VerifiedBy        string
	WorkStartDate     time.Time
	CompletionDate    time.Time
	VerificationDate  time.Time
	IssueDate         time.Time
	WarrantyUntil     *time.Time
	IssuerName        string
}

// CertificatePDF renders maintenance completion certificates.
type CertificatePDF struct{}

// NewCertificatePDF constructs the renderer.
func NewCertificatePDF() *CertificatePDF {
	return &CertificatePDF{}
}

// Render produces the certificate PDF bytes.
func (e *CertificatePDF) Render(doc CertificateDocument) ([]byte, error) {
	if doc.CertificateNumber == "" {
		return nil, fmt.Errorf("certificate number required")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "MAINTENANCE COMPLETION CERTIFICATE", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, doc.CertificateNumber, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	rows := [][2]string{
		{"Request", doc.RequestNumber},
		{"Hostel", doc.HostelName},
		{"Work summary", doc.WorkSummary},
		{"Completed by", doc.CompletedBy},
		{"Verified by", doc.VerifiedBy},
		{"Work started", doc.WorkStartDate.Format("02 Jan 2006")},
		{"Completed", doc.CompletionDate.Format("02 Jan 2006")},
		{"Verified", doc.VerificationDate.Format("02 Jan 2006")},
		{"Issued", doc.IssueDate.Format("02 Jan 2006")},
	}
	if doc.WarrantyUntil != nil {
		rows = append(rows, [2]string{"Warranty valid until", doc.WarrantyUntil.Format("02 Jan 2006")})
	}

	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 8, row[0], "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(130, 8, row[1], "1", 1, "", false, 0, "")
	}

	pdf.Ln(14)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued by %s", doc.IssuerName), "", 1, "R", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
