package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData carries everything printed on a clearance certificate.
type CertificateData struct {
	SerialNo       string
	StudentName    string
	RegistrationNo string
	School         string
	Course         string
	Branch         string
	IssuedOn       string
	Departments    []CertificateDepartment
}

// CertificateDepartment is one cleared department line.
type CertificateDepartment struct {
	Name      string
	ClearedOn string
}

// CertificateRenderer renders no-dues clearance certificates.
type CertificateRenderer struct{}

// NewCertificateRenderer constructs a renderer.
func NewCertificateRenderer() *CertificateRenderer {
	return &CertificateRenderer{}
}

// Render produces the certificate PDF bytes.
func (r *CertificateRenderer) Render(data CertificateData) ([]byte, error) {
	if data.SerialNo == "" || data.RegistrationNo == "" {
		return nil, fmt.Errorf("certificate requires a serial and registration number")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "NO DUES CERTIFICATE", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Serial No: %s", data.SerialNo), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(0, 7, fmt.Sprintf(
		"This is to certify that %s (Registration No. %s), %s, %s, %s, has no outstanding dues with any of the departments listed below.",
		data.StudentName, data.RegistrationNo, data.School, data.Course, data.Branch,
	), "", "L", false)
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(120, 8, "Department", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 8, "Cleared On", "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, dept := range data.Departments {
		pdf.CellFormat(120, 7, dept.Name, "1", 0, "", false, 0, "")
		pdf.CellFormat(50, 7, dept.ClearedOn, "1", 1, "C", false, 0, "")
	}

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued on %s. This certificate is system generated.", data.IssuedOn), "", 1, "L", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
