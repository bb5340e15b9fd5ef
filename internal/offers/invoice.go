package offers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-offers/gate"
	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/policy"
)

// InvoiceInput is the invoice metadata the pharmacy enters on an approved offer.
type InvoiceInput struct {
	Number           string
	Date             *time.Time
	DeliveryDeadline *time.Time
}

// UpdateInvoice stores invoice number, date and delivery deadline. Once all
// three are set they are locked until an invoice revision is approved; saving
// clears the revision flags again.
func (s *Service) UpdateInvoice(ctx context.Context, offerID, actorID uint, in InvoiceInput) (*models.Offer, error) {
	const op = "update_invoice"
	in.Number = strings.TrimSpace(in.Number)
	if in.Date != nil && in.DeliveryDeadline != nil && in.DeliveryDeadline.Before(*in.Date) {
		return nil, validationErr(op, "delivery deadline is before the invoice date")
	}

	out, err := s.invoiceStep(ctx, op, offerID, actorID, policy.CapInvoiceEnter, func(tx *gorm.DB, o *models.Offer) error {
		cond := map[string]any{}
		if o.InvoiceComplete() {
			if !o.InvoiceRevisionApproved {
				return stateErr(op, "invoice details are locked, request a revision first")
			}
			cond["invoice_revision_approved"] = true
		}
		return transition(tx, op, o.ID, models.OfferApproved, cond, map[string]any{
			"invoice_number":                   in.Number,
			"invoice_date":                     in.Date,
			"delivery_deadline":                in.DeliveryDeadline,
			"invoice_revision_pending":         false,
			"invoice_revision_approved":        false,
			"invoice_revision_reason":          "",
			"invoice_revision_requested_by_id": nil,
			"invoice_revision_requested_at":    nil,
		})
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, activity(actorID, models.ActivityInvoiceUpdated, out, &out.UserID,
		fmt.Sprintf("Invoice details of %s saved (%s)", out.Label(), orDash(out.InvoiceNumber)), nil))
	return out, nil
}

// RequestInvoiceRevision asks the pharmacist to unlock the invoice details.
func (s *Service) RequestInvoiceRevision(ctx context.Context, offerID, actorID uint, reason string) (*models.Offer, error) {
	const op = "request_invoice_revision"
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validationErr(op, "a reason is required")
	}

	out, err := s.invoiceStep(ctx, op, offerID, actorID, policy.CapInvoiceEnter, func(tx *gorm.DB, o *models.Offer) error {
		if o.InvoiceRevisionPending {
			return stateErr(op, "an invoice revision is already pending")
		}
		return transition(tx, op, o.ID, models.OfferApproved, map[string]any{"invoice_revision_pending": false}, map[string]any{
			"invoice_revision_pending":         true,
			"invoice_revision_approved":        false,
			"invoice_revision_reason":          reason,
			"invoice_revision_requested_by_id": actorID,
			"invoice_revision_requested_at":    s.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	for _, m := range s.invoiceApprovers(ctx, actorID) {
		s.notify(ctx, offerNotification(out, m.ID, models.NotifyWarning, "Invoice revision requested",
			fmt.Sprintf("An invoice revision was requested for %s. Reason: %s", out.Label(), reason)))
	}
	s.record(ctx, activity(actorID, models.ActivityInvoiceRevisionRequested, out, nil,
		fmt.Sprintf("Invoice revision requested for %s: %s", out.Label(), reason), map[string]any{"reason": reason}))
	return out, nil
}

// ApproveInvoiceRevision unlocks the invoice details for one more edit.
func (s *Service) ApproveInvoiceRevision(ctx context.Context, offerID, actorID uint) (*models.Offer, error) {
	const op = "approve_invoice_revision"
	out, err := s.invoiceStep(ctx, op, offerID, actorID, policy.CapInvoiceApproveRevision, func(tx *gorm.DB, o *models.Offer) error {
		if !o.InvoiceRevisionPending {
			return stateErr(op, "no invoice revision is pending")
		}
		return transition(tx, op, o.ID, models.OfferApproved, map[string]any{"invoice_revision_pending": true}, map[string]any{
			"invoice_revision_pending":  false,
			"invoice_revision_approved": true,
		})
	})
	if err != nil {
		return nil, err
	}
	s.notifyRequester(ctx, out, models.NotifySuccess, "Invoice revision approved",
		fmt.Sprintf("The invoice revision for %s was approved.", out.Label()))
	s.record(ctx, activity(actorID, models.ActivityInvoiceRevisionApproved, out, out.InvoiceRevisionRequestedByID,
		"Invoice revision approved for "+out.Label(), nil))
	return out, nil
}

// RejectInvoiceRevision declines the request and forgets its reason and requester.
func (s *Service) RejectInvoiceRevision(ctx context.Context, offerID, actorID uint) (*models.Offer, error) {
	const op = "reject_invoice_revision"
	var requester *uint
	out, err := s.invoiceStep(ctx, op, offerID, actorID, policy.CapInvoiceApproveRevision, func(tx *gorm.DB, o *models.Offer) error {
		if !o.InvoiceRevisionPending {
			return stateErr(op, "no invoice revision is pending")
		}
		requester = o.InvoiceRevisionRequestedByID
		return transition(tx, op, o.ID, models.OfferApproved, map[string]any{"invoice_revision_pending": true}, map[string]any{
			"invoice_revision_pending":         false,
			"invoice_revision_approved":        false,
			"invoice_revision_reason":          "",
			"invoice_revision_requested_by_id": nil,
			"invoice_revision_requested_at":    nil,
		})
	})
	if err != nil {
		return nil, err
	}
	if requester != nil {
		s.notify(ctx, offerNotification(out, *requester, models.NotifyError, "Invoice revision rejected",
			fmt.Sprintf("The invoice revision for %s was rejected.", out.Label())))
	}
	s.record(ctx, activity(actorID, models.ActivityInvoiceRevisionRejected, out, requester,
		"Invoice revision rejected for "+out.Label(), nil))
	return out, nil
}

func (s *Service) invoiceStep(ctx context.Context, op string, offerID, actorID uint, perm gate.Permission, apply func(*gorm.DB, *models.Offer) error) (*models.Offer, error) {
	var out *models.Offer
	allowed := s.has(ctx, actorID, perm)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.loadOffer(ctx, tx, op, offerID)
		if err != nil {
			return err
		}
		if o.Status != models.OfferApproved {
			return stateErr(op, "invoice details only apply to approved offers")
		}
		if !allowed {
			return authErr(op, "missing capability "+string(perm))
		}
		if err := apply(tx, o); err != nil {
			return err
		}
		out, err = s.loadOffer(ctx, tx, op, o.ID)
		return err
	})
	return out, err
}

func (s *Service) notifyRequester(ctx context.Context, o *models.Offer, kind models.NotificationKind, title, msg string) {
	if o.InvoiceRevisionRequestedByID == nil {
		return
	}
	s.notify(ctx, offerNotification(o, *o.InvoiceRevisionRequestedByID, kind, title, msg))
}

// invoiceApprovers are the pharmacy managers of the requesting user's side.
func (s *Service) invoiceApprovers(ctx context.Context, requesterID uint) []models.User {
	var requester models.User
	if err := s.db.WithContext(ctx).First(&requester, requesterID).Error; err != nil {
		return nil
	}
	var managers []models.User
	q := s.db.WithContext(ctx).Where("is_manager = ? AND is_active = ? AND role = ?", true, true, requester.Role)
	if requester.ManagerID != nil {
		q = q.Where("id = ?", *requester.ManagerID)
	}
	if err := q.Find(&managers).Error; err != nil {
		return nil
	}
	eligible := managers[:0]
	for _, m := range managers {
		if m.ID != requesterID && s.has(ctx, m.ID, policy.CapInvoiceApproveRevision) {
			eligible = append(eligible, m)
		}
	}
	return eligible
}
