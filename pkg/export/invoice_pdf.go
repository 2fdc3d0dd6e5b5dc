package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/noah-isme/bimbel-api/internal/models"
)

// InvoicePDF renders an invoice snapshot into a printable PDF document.
type InvoicePDF struct{}

// NewInvoicePDF constructs the renderer.
func NewInvoicePDF() *InvoicePDF {
	return &InvoicePDF{}
}

// Render produces the PDF bytes for a single invoice.
func (e *InvoicePDF) Render(inv models.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "INVOICE", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, inv.Number, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Tagihan untuk", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, inv.StudentName, "", 1, "", false, 0, "")
	pdf.CellFormat(0, 5, inv.StudentEmail, "", 1, "", false, 0, "")
	if inv.StudentPhone != "" {
		pdf.CellFormat(0, 5, inv.StudentPhone, "", 1, "", false, 0, "")
	}
	pdf.Ln(4)

	rows := [][2]string{
		{"Program", inv.ProgramName},
		{"Kelas", inv.SectionLabel},
		{"Periode", fmt.Sprintf("%s s/d %s", inv.PeriodStart.Format("02 Jan 2006"), inv.PeriodEnd.Format("02 Jan 2006"))},
		{"Jatuh tempo", inv.DueDate.Format("02 Jan 2006")},
		{"Status", string(inv.Status)},
	}
	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		pdf.CellFormat(45, 7, row[0], "1", 0, "", false, 0, "")
		pdf.CellFormat(135, 7, row[1], "1", 1, "", false, 0, "")
	}
	pdf.Ln(4)

	amounts := [][2]string{
		{"Jumlah", formatRupiah(inv.Amount)},
		{"Pajak", formatRupiah(inv.Tax)},
		{"Diskon", formatRupiah(-inv.Discount)},
	}
	for _, row := range amounts {
		pdf.CellFormat(135, 7, row[0], "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 7, row[1], "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(135, 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(45, 8, formatRupiah(inv.Total), "1", 1, "R", false, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 5, fmt.Sprintf("Dicetak %s", time.Now().Format("02 Jan 2006 15:04")), "", 1, "", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func formatRupiah(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%d", v)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "." + s[i:]
	}
	if neg {
		return "-Rp " + s
	}
	return "Rp " + s
}
