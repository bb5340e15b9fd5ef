// Package export renders offers and the product catalogue as PDF and xlsx
// documents.
package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/diewo77/go-offers/internal/models"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

const dateLayout = "02.01.2006 15:04"

// FileName builds a download name like "offer-12-1a2b3c4d.pdf". The random
// suffix keeps repeated downloads from overwriting each other.
func FileName(base, ext string) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return base + "-" + suffix + "." + ext
}

var statusLabels = map[models.OfferStatus]string{
	models.OfferDraft:    "Draft",
	models.OfferSent:     "Waiting",
	models.OfferApproved: "Approved",
	models.OfferRejected: "Rejected",
	models.OfferRevised:  "Revised",
}

// StatusLabel is the display name of an offer status.
func StatusLabel(s models.OfferStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Reference is "#<root id>" plus " (Rev.N)" for revisions.
func Reference(o *models.Offer) string {
	ref := "#" + strconv.FormatUint(uint64(o.RootID()), 10)
	if o.RevisionNumber > 1 {
		ref += " (Rev." + strconv.Itoa(o.RevisionNumber) + ")"
	}
	return ref
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func ownerName(o *models.Offer) string {
	if o.User == nil {
		return "-"
	}
	if o.User.Name != "" {
		return o.User.Name
	}
	return o.User.Email
}
