package export

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/pricing"
)

type pdfColumn struct {
	title string
	width float64
	align string
}

var offerColumns = []pdfColumn{
	{"Product", 70, "L"},
	{"Qty", 15, "R"},
	{"Unit (net)", 25, "R"},
	{"Discount", 20, "R"},
	{"VAT %", 15, "R"},
	{"Total", 35, "R"},
}

// OfferPDF writes a one-document summary of o: header, lines and totals.
// o must have its items and owner loaded.
func OfferPDF(w io.Writer, o *models.Offer, now time.Time) error {
	totals := o.Totals()

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Offer "+Reference(o), true)
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Offer "+Reference(o)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(102, 102, 102)
	pdf.CellFormat(0, 6, "Exported "+now.Format(dateLayout), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	meta := [][2]string{
		{"Status", StatusLabel(o.Status)},
		{"Prepared by", ownerName(o)},
		{"Sent", formatTime(o.SentAt)},
	}
	if o.User != nil && o.User.OrganizationName != "" {
		meta = append(meta, [2]string{"Supplier", o.User.OrganizationName})
	}
	if o.RejectReason != "" {
		meta = append(meta, [2]string{"Reject reason", o.RejectReason})
	}
	if o.InvoiceNumber != "" {
		meta = append(meta,
			[2]string{"Invoice", o.InvoiceNumber + " / " + formatDate(o.InvoiceDate)},
			[2]string{"Delivery deadline", formatDate(o.DeliveryDeadline)},
		)
	}
	for _, m := range meta {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, tr(m[0]), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(m[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(47, 111, 237)
	pdf.SetTextColor(255, 255, 255)
	for _, c := range offerColumns {
		pdf.CellFormat(c.width, 8, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for i, item := range o.Items {
		lt := totals.Lines[i]
		cells := []string{
			tr(truncate(item.ProductName, 38)),
			fmt.Sprint(item.Quantity),
			money(item.UnitPrice),
			discountLabel(item.DiscountType, item.DiscountValue.StringFixed(2)),
			fmt.Sprint(item.VATRate),
			money(lt.TotalPrice),
		}
		for j, c := range offerColumns {
			pdf.CellFormat(c.width, 7, cells[j], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	writeTotals(pdf, totals)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render offer pdf: %w", err)
	}
	return pdf.Output(w)
}

func writeTotals(pdf *gofpdf.Fpdf, t pricing.OrderTotals) {
	rows := [][2]string{
		{"Subtotal (net)", money(t.ItemsSubtotalNet)},
		{"Item discounts", money(t.TotalItemDiscounts)},
		{"Overall discount", money(t.OverallDiscountAmount)},
		{"Net total", money(t.NetAfterOverallDiscount)},
		{"VAT", money(t.VATAfterOverallDiscount)},
	}
	pdf.SetFont("Helvetica", "", 10)
	for _, r := range rows {
		pdf.CellFormat(145, 6, r[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, r[1], "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(145, 8, "Total", "T", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, money(t.FinalTotal), "T", 1, "R", false, 0, "")
}

func discountLabel(kind pricing.DiscountType, value string) string {
	switch kind {
	case pricing.DiscountPercent:
		return "%" + value
	case pricing.DiscountAmount:
		return value
	default:
		return "-"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "..."
}
