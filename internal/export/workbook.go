package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/diewo77/go-offers/internal/models"
)

// sheet wraps an excelize file while a report is written row by row.
type sheet struct {
	f      *excelize.File
	name   string
	row    int
	header int
	title  int
	err    error
}

func newWorkbook(first string) (*excelize.File, *sheet, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), first); err != nil {
		f.Close()
		return nil, nil, err
	}
	s, err := newSheet(f, first)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, s, nil
}

func newSheet(f *excelize.File, name string) (*sheet, error) {
	if idx, _ := f.GetSheetIndex(name); idx < 0 {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Family: "Arial", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F6FED"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, err
	}
	title, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "1A3A6B", Family: "Arial", Size: 14},
	})
	if err != nil {
		return nil, err
	}
	return &sheet{f: f, name: name, header: header, title: title}, nil
}

// titleRow writes a bold single-cell row.
func (s *sheet) titleRow(text string) {
	s.append([]any{text})
	s.style(s.row, 1, s.row, 1, s.title)
}

// headerRow writes column titles and sets their widths.
func (s *sheet) headerRow(titles []string, widths []float64) {
	row := make([]any, len(titles))
	for i, t := range titles {
		row[i] = t
	}
	s.append(row)
	s.style(s.row, 1, s.row, len(titles), s.header)
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			s.fail(err)
			return
		}
		s.fail(s.f.SetColWidth(s.name, col, col, w))
	}
}

func (s *sheet) append(values []any) {
	if s.err != nil {
		return
	}
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		s.fail(err)
		return
	}
	s.fail(s.f.SetSheetRow(s.name, cell, &values))
}

func (s *sheet) blank() { s.row++ }

func (s *sheet) style(r1, c1, r2, c2, style int) {
	if s.err != nil {
		return
	}
	from, err := excelize.CoordinatesToCellName(c1, r1)
	if err != nil {
		s.fail(err)
		return
	}
	to, err := excelize.CoordinatesToCellName(c2, r2)
	if err != nil {
		s.fail(err)
		return
	}
	s.fail(s.f.SetCellStyle(s.name, from, to, style))
}

func (s *sheet) fail(err error) {
	if s.err == nil && err != nil {
		s.err = err
	}
}

func finish(f *excelize.File, w io.Writer, sheets ...*sheet) error {
	defer f.Close()
	for _, s := range sheets {
		if s.err != nil {
			return fmt.Errorf("write sheet %s: %w", s.name, s.err)
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

// OfferWorkbook writes one offer: a summary sheet and a line sheet. o must
// have its items and owner loaded.
func OfferWorkbook(w io.Writer, o *models.Offer, now time.Time) error {
	f, info, err := newWorkbook("Offer")
	if err != nil {
		return err
	}
	totals := o.Totals()

	info.titleRow("Offer " + Reference(o))
	info.append([]any{"Exported", now.Format(dateLayout)})
	info.blank()
	info.headerRow([]string{"Field", "Value"}, []float64{24, 48})
	info.append([]any{"Status", StatusLabel(o.Status)})
	info.append([]any{"Prepared by", ownerName(o)})
	if o.User != nil {
		info.append([]any{"Supplier", orDash(o.User.OrganizationName)})
	}
	info.append([]any{"Created", formatTime(&o.CreatedAt)})
	info.append([]any{"Sent", formatTime(o.SentAt)})
	info.append([]any{"Approved", formatTime(o.ApprovedAt)})
	info.append([]any{"Rejected", formatTime(o.RejectedAt)})
	info.append([]any{"Reject reason", orDash(o.RejectReason)})
	info.append([]any{"Revision note", orDash(o.RevisionNote)})
	info.append([]any{"Invoice number", orDash(o.InvoiceNumber)})
	info.append([]any{"Invoice date", formatDate(o.InvoiceDate)})
	info.append([]any{"Delivery deadline", formatDate(o.DeliveryDeadline)})
	info.blank()
	info.headerRow([]string{"Totals", ""}, nil)
	info.append([]any{"Subtotal (net)", totals.ItemsSubtotalNet.InexactFloat64()})
	info.append([]any{"Item discounts", totals.TotalItemDiscounts.InexactFloat64()})
	info.append([]any{"Overall discount", totals.OverallDiscountAmount.InexactFloat64()})
	info.append([]any{"Net total", totals.NetAfterOverallDiscount.InexactFloat64()})
	info.append([]any{"VAT", totals.VATAfterOverallDiscount.InexactFloat64()})
	info.append([]any{"Total", totals.FinalTotal.InexactFloat64()})

	lines, err := newSheet(f, "Lines")
	if err != nil {
		f.Close()
		return err
	}
	lines.headerRow(
		[]string{"#", "Product", "Barcode", "Quantity", "Unit price (net)", "VAT %", "Discount", "Line net", "VAT", "Line total", "Delivery address"},
		[]float64{6, 40, 16, 10, 16, 8, 12, 14, 12, 14, 40},
	)
	for i, item := range o.Items {
		lt := totals.Lines[i]
		barcode, address := "-", "-"
		if item.Product != nil && item.Product.Barcode != nil {
			barcode = *item.Product.Barcode
		}
		if item.DeliveryAddress != nil {
			address = item.DeliveryAddress.Title + ": " + item.DeliveryAddress.FullAddress()
		}
		lines.append([]any{
			i + 1,
			item.ProductName,
			barcode,
			item.Quantity,
			item.UnitPrice.InexactFloat64(),
			item.VATRate,
			discountLabel(item.DiscountType, item.DiscountValue.StringFixed(2)),
			lt.LineSubtotal.InexactFloat64(),
			lt.VATAmount.InexactFloat64(),
			lt.TotalPrice.InexactFloat64(),
			address,
		})
	}
	return finish(f, w, info, lines)
}

// OfferListWorkbook writes one row per offer with its totals. Offers must
// have their items and owner loaded.
func OfferListWorkbook(w io.Writer, offers []models.Offer, now time.Time) error {
	f, s, err := newWorkbook("Offers")
	if err != nil {
		return err
	}
	s.titleRow("Offer report")
	s.append([]any{"Exported " + now.Format(dateLayout)})
	s.blank()
	s.headerRow(
		[]string{"Offer", "Revision", "Prepared by", "Status", "Sent", "Decided", "Lines", "Net total", "VAT", "Total", "Reject reason"},
		[]float64{10, 10, 24, 12, 18, 18, 8, 14, 12, 14, 40},
	)
	for i := range offers {
		o := &offers[i]
		t := o.Totals()
		revision := "-"
		if o.RevisionNumber > 1 {
			revision = "Rev." + fmt.Sprint(o.RevisionNumber)
		}
		decided := o.ApprovedAt
		if decided == nil {
			decided = o.RejectedAt
		}
		s.append([]any{
			fmt.Sprintf("#%d", o.RootID()),
			revision,
			ownerName(o),
			StatusLabel(o.Status),
			formatTime(o.SentAt),
			formatTime(decided),
			len(o.Items),
			t.NetAfterOverallDiscount.InexactFloat64(),
			t.VATAfterOverallDiscount.InexactFloat64(),
			t.FinalTotal.InexactFloat64(),
			orDash(o.RejectReason),
		})
	}
	return finish(f, w, s)
}

// ProductListWorkbook writes the catalogue, one product per row.
func ProductListWorkbook(w io.Writer, products []models.Product, now time.Time) error {
	f, s, err := newWorkbook("Products")
	if err != nil {
		return err
	}
	s.titleRow("Product list")
	s.append([]any{fmt.Sprintf("Exported %s | %d products", now.Format(dateLayout), len(products))})
	s.blank()
	s.headerRow(
		[]string{"#", "Name", "Barcode", "Price (VAT incl.)", "VAT %", "Price updated", "Added"},
		[]float64{6, 40, 18, 16, 8, 18, 18},
	)
	for i := range products {
		p := &products[i]
		barcode := "-"
		if p.Barcode != nil {
			barcode = *p.Barcode
		}
		s.append([]any{
			i + 1,
			p.Name,
			barcode,
			p.Price.InexactFloat64(),
			p.VATRate,
			formatTime(&p.PriceUpdatedAt),
			formatTime(&p.CreatedAt),
		})
	}
	return finish(f, w, s)
}
