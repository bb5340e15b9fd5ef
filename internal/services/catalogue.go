package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/validation"
)

// ProductInput is the editable part of a catalogue product. Price is gross.
type ProductInput struct {
	Name    string          `json:"name"`
	Barcode string          `json:"barcode"`
	Price   decimal.Decimal `json:"price"`
	VATRate *int            `json:"vat_rate"`
}

func (in *ProductInput) normalize() error {
	in.Name = strings.ToUpper(strings.TrimSpace(in.Name))
	in.Barcode = strings.TrimSpace(in.Barcode)
	if in.VATRate == nil {
		rate := models.DefaultVATRate
		in.VATRate = &rate
	}
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 255, v)
	validation.MaxLen("barcode", in.Barcode, 64, v)
	validation.NonNegativeDecimal("price", in.Price, v)
	validation.RangeInt("vat_rate", *in.VATRate, 0, 100, v)
	return invalid(v)
}

func (in *ProductInput) apply(p *models.Product) {
	p.Name = in.Name
	p.Barcode = nil
	if in.Barcode != "" {
		b := in.Barcode
		p.Barcode = &b
	}
	p.Price = in.Price.Round(2)
	p.VATRate = *in.VATRate
}

// ProductFilter selects a page of the catalogue.
type ProductFilter struct {
	Query  string
	Limit  int
	Offset int
}

// CatalogueService manages the shared product catalogue.
type CatalogueService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewCatalogueService(db *gorm.DB) *CatalogueService {
	return &CatalogueService{db: db, now: time.Now}
}

// List returns one page of products by name and the total match count.
// Query matches the name or the barcode.
func (s *CatalogueService) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	q := s.db.WithContext(ctx).Model(&models.Product{})
	if term := strings.TrimSpace(f.Query); term != "" {
		q = q.Where("name LIKE ? OR barcode LIKE ?", "%"+strings.ToUpper(term)+"%", "%"+term+"%")
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	products := []models.Product{}
	if err := q.Order("name").Limit(f.Limit).Offset(f.Offset).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// All returns every live product matching term, ordered by name.
func (s *CatalogueService) All(ctx context.Context, term string) ([]models.Product, error) {
	q := s.db.WithContext(ctx)
	if term = strings.TrimSpace(term); term != "" {
		q = q.Where("name LIKE ? OR barcode LIKE ?", "%"+strings.ToUpper(term)+"%", "%"+term+"%")
	}
	products := []models.Product{}
	if err := q.Order("name").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *CatalogueService) Get(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create adds a product. Names are stored upper-case and must be unique.
func (s *CatalogueService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	p := &models.Product{PriceUpdatedAt: s.now()}
	in.apply(p)
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return p, nil
}

// Update edits a product. Existing offer items keep their snapshots.
func (s *CatalogueService) Update(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	oldPrice := p.Price
	in.apply(p)
	if !p.Price.Equal(oldPrice) {
		p.PriceUpdatedAt = s.now()
	}
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return p, nil
}

// UpdatePrice sets the gross price and stamps PriceUpdatedAt.
func (s *CatalogueService) UpdatePrice(ctx context.Context, id uint, price decimal.Decimal) (*models.Product, error) {
	v := validation.Violations{}
	validation.NonNegativeDecimal("price", price, v)
	if err := invalid(v); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Price = price.Round(2)
	p.PriceUpdatedAt = s.now()
	if err := s.db.WithContext(ctx).Model(p).Updates(map[string]any{
		"price":            p.Price,
		"price_updated_at": p.PriceUpdatedAt,
	}).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// Delete soft-deletes a product; offer items referencing it are kept.
func (s *CatalogueService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ImportResult counts the outcome of a spreadsheet import.
type ImportResult struct {
	Added   int      `json:"added"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// maxImportErrors caps the row messages kept in an ImportResult.
const maxImportErrors = 50

// Import reads products from the active sheet of an xlsx workbook. Columns
// are name, barcode, gross price and VAT rate; the first row is a header.
// Rows without a name are ignored, rows that fail to parse or insert are
// counted as skipped.
func (s *CatalogueService) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}

	log := zerolog.Ctx(ctx)
	res := &ImportResult{}
	skip := func(line int, err error) {
		res.Skipped++
		if len(res.Errors) < maxImportErrors {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", line, err))
		}
	}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if strings.TrimSpace(cell(row, 0)) == "" {
			continue
		}
		in, err := parseProductRow(row)
		if err != nil {
			skip(i+1, err)
			continue
		}
		if _, err := s.Create(ctx, in); err != nil {
			skip(i+1, err)
			continue
		}
		res.Added++
	}
	log.Info().Int("added", res.Added).Int("skipped", res.Skipped).Msg("product import finished")
	return res, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseProductRow(row []string) (ProductInput, error) {
	in := ProductInput{Name: cell(row, 0), Barcode: cell(row, 1), Price: decimal.Zero}
	if raw := cell(row, 2); raw != "" {
		price, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
		if err != nil {
			return in, fmt.Errorf("invalid price %q", raw)
		}
		in.Price = price
	}
	if raw := cell(row, 3); raw != "" {
		rate, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			return in, fmt.Errorf("invalid vat rate %q", raw)
		}
		vat := int(rate)
		in.VATRate = &vat
	}
	return in, nil
}
