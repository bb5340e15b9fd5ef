package offers

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/policy"
	"github.com/diewo77/go-offers/internal/pricing"
)

func offerLink(id uint) string {
	return fmt.Sprintf("/offers/%d", id)
}

// SubmitResult tells the caller where a submitted offer went.
type SubmitResult struct {
	Offer *models.Offer
	// Escalated is true when the offer stays draft awaiting the manager.
	Escalated bool
}

// Submit sends a draft to the pharmacy. A draft whose gross total reaches the
// high-value threshold goes to the owner's manager instead unless the actor
// holds offer:send_high_value. Either way the draft leaves the cart slot.
func (s *Service) Submit(ctx context.Context, offerID, actorID uint) (*SubmitResult, error) {
	const op = "submit"
	var res SubmitResult
	var owner *models.User
	g := s.grantsOf(ctx, actorID, policy.CapOfferSend, policy.CapOfferSendHighValue, policy.CapOfferManagerApprove)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.loadOffer(ctx, tx, op, offerID)
		if err != nil {
			return err
		}
		actor, err := s.loadUser(ctx, tx, op, actorID)
		if err != nil {
			return err
		}
		owner, err = s.loadUser(ctx, tx, op, o.UserID)
		if err != nil {
			return err
		}

		if !o.IsDraft() {
			return stateErr(op, "only draft offers can be submitted")
		}
		if o.AwaitingManager() {
			return stateErr(op, "offer is already awaiting manager approval")
		}
		if actor.ID != owner.ID && !isManagerOf(actor, owner, g) {
			return authErr(op, "only the owner or the owner's manager can submit this offer")
		}
		if len(o.Items) == 0 {
			return validationErr(op, "offer has no items")
		}

		notPending := map[string]any{"manager_approval_pending": false}
		now := s.now()

		if s.IsHighValue(o) && !g[policy.CapOfferSendHighValue] {
			err := transition(tx, op, o.ID, models.OfferDraft, notPending, map[string]any{
				"requires_manager_approval": true,
				"manager_approval_pending":  true,
				"manager_rejection_reason":  "",
				"cart_owner_id":             nil,
			})
			if err != nil {
				return err
			}
			res.Escalated = true
		} else {
			if !s.IsHighValue(o) && !g[policy.CapOfferSend] {
				return authErr(op, "missing capability "+string(policy.CapOfferSend))
			}
			err := transition(tx, op, o.ID, models.OfferDraft, notPending, map[string]any{
				"status":        models.OfferSent,
				"sent_at":       now,
				"cart_owner_id": nil,
			})
			if err != nil {
				return err
			}
		}

		res.Offer, err = s.loadOffer(ctx, tx, op, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	o := res.Offer
	gross := o.Totals().ItemsSubtotalGross
	meta := map[string]any{"gross_total": gross.StringFixed(2)}
	if res.Escalated {
		for _, m := range s.managersOf(ctx, owner) {
			s.notify(ctx, offerNotification(o, m.ID, models.NotifyWarning, "Manager approval required",
				fmt.Sprintf("%s by %s (%s) is waiting for your approval.", o.Label(), owner.DisplayName(), gross.StringFixed(2))))
		}
		s.record(ctx, activity(actorID, models.ActivityOfferSentForApproval, o, nil,
			fmt.Sprintf("%s (%s) sent for manager approval", o.Label(), gross.StringFixed(2)), meta))
	} else {
		s.record(ctx, activity(actorID, models.ActivityOfferSent, o, nil,
			fmt.Sprintf("%s sent to the pharmacy, total %s", o.Label(), gross.StringFixed(2)), meta))
	}
	return &res, nil
}

// ManagerApprove sends a high-value draft on to the pharmacy.
func (s *Service) ManagerApprove(ctx context.Context, offerID, actorID uint) (*models.Offer, error) {
	const op = "manager_approve"
	o, err := s.managerDecision(ctx, op, offerID, actorID, func(tx *gorm.DB, o *models.Offer) error {
		now := s.now()
		return transition(tx, op, o.ID, models.OfferDraft, map[string]any{"manager_approval_pending": true}, map[string]any{
			"status":                   models.OfferSent,
			"sent_at":                  now,
			"manager_approval_pending": false,
			"approved_by_manager_id":   actorID,
			"manager_approved_at":      now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, offerNotification(o, o.UserID, models.NotifySuccess, "Offer approved by manager",
		fmt.Sprintf("%s was approved by your manager and sent to the pharmacy.", o.Label())))
	s.record(ctx, activity(actorID, models.ActivityManagerApprovedOffer, o, &o.UserID,
		o.Label()+" approved by manager and sent to the pharmacy", nil))
	return o, nil
}

// ManagerReject returns a high-value draft to its owner with a reason.
func (s *Service) ManagerReject(ctx context.Context, offerID, actorID uint, reason string) (*models.Offer, error) {
	const op = "manager_reject"
	reason = strings.TrimSpace(reason)
	o, err := s.managerDecision(ctx, op, offerID, actorID, func(tx *gorm.DB, o *models.Offer) error {
		return transition(tx, op, o.ID, models.OfferDraft, map[string]any{"manager_approval_pending": true}, map[string]any{
			"manager_approval_pending":  false,
			"requires_manager_approval": false,
			"manager_rejection_reason":  reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, offerNotification(o, o.UserID, models.NotifyError, "Offer rejected by manager",
		fmt.Sprintf("%s was rejected by your manager. Reason: %s", o.Label(), orDash(reason))))
	s.record(ctx, activity(actorID, models.ActivityManagerRejectedOffer, o, &o.UserID,
		o.Label()+" rejected by manager: "+orDash(reason), map[string]any{"reason": reason}))
	return o, nil
}

func (s *Service) managerDecision(ctx context.Context, op string, offerID, actorID uint, apply func(*gorm.DB, *models.Offer) error) (*models.Offer, error) {
	var out *models.Offer
	g := s.grantsOf(ctx, actorID, policy.CapOfferManagerApprove)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.loadOffer(ctx, tx, op, offerID)
		if err != nil {
			return err
		}
		if !o.AwaitingManager() {
			return stateErr(op, "offer is not awaiting manager approval")
		}
		actor, err := s.loadUser(ctx, tx, op, actorID)
		if err != nil {
			return err
		}
		owner, err := s.loadUser(ctx, tx, op, o.UserID)
		if err != nil {
			return err
		}
		if !isManagerOf(actor, owner, g) {
			return authErr(op, "only the owner's manager can decide on this offer")
		}
		if err := apply(tx, o); err != nil {
			return err
		}
		out, err = s.loadOffer(ctx, tx, op, o.ID)
		return err
	})
	return out, err
}

// Approve accepts a sent offer on the pharmacy side. High-value offers need
// offer:approve_high_value in addition to offer:approve.
func (s *Service) Approve(ctx context.Context, offerID, actorID uint) (*models.Offer, error) {
	const op = "approve"
	var out *models.Offer
	g := s.grantsOf(ctx, actorID, policy.CapOfferApprove, policy.CapOfferApproveHigh)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.loadOffer(ctx, tx, op, offerID)
		if err != nil {
			return err
		}
		if o.Status != models.OfferSent {
			return stateErr(op, "only sent offers can be approved")
		}
		if !g[policy.CapOfferApprove] {
			return authErr(op, "missing capability "+string(policy.CapOfferApprove))
		}
		if s.IsHighValue(o) && !g[policy.CapOfferApproveHigh] {
			return thresholdErr(op, fmt.Sprintf("offers of %s and above need %s",
				s.cfg.HighValueThreshold.StringFixed(2), policy.CapOfferApproveHigh))
		}
		err = transition(tx, op, o.ID, models.OfferSent, nil, map[string]any{
			"status":         models.OfferApproved,
			"approved_at":    s.now(),
			"approved_by_id": actorID,
			"rejected_at":    nil,
			"rejected_by_id": nil,
			"reject_reason":  "",
		})
		if err != nil {
			return err
		}
		out, err = s.loadOffer(ctx, tx, op, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, offerNotification(out, out.UserID, models.NotifySuccess, "Offer approved",
		out.Label()+" was approved by the pharmacy."))
	s.record(ctx, activity(actorID, models.ActivityOfferApproved, out, &out.UserID,
		fmt.Sprintf("%s approved, total %s", out.Label(), out.Totals().ItemsSubtotalGross.StringFixed(2)), nil))
	return out, nil
}

// Reject declines a sent offer on the pharmacy side.
func (s *Service) Reject(ctx context.Context, offerID, actorID uint, reason string) (*models.Offer, error) {
	const op = "reject"
	reason = strings.TrimSpace(reason)
	var out *models.Offer
	canReject := s.has(ctx, actorID, policy.CapOfferReject)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.loadOffer(ctx, tx, op, offerID)
		if err != nil {
			return err
		}
		if o.Status != models.OfferSent {
			return stateErr(op, "only sent offers can be rejected")
		}
		if !canReject {
			return authErr(op, "missing capability "+string(policy.CapOfferReject))
		}
		err = transition(tx, op, o.ID, models.OfferSent, nil, map[string]any{
			"status":         models.OfferRejected,
			"rejected_at":    s.now(),
			"rejected_by_id": actorID,
			"reject_reason":  reason,
			"approved_at":    nil,
			"approved_by_id": nil,
		})
		if err != nil {
			return err
		}
		out, err = s.loadOffer(ctx, tx, op, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, offerNotification(out, out.UserID, models.NotifyError, "Offer rejected",
		fmt.Sprintf("%s was rejected by the pharmacy. Reason: %s", out.Label(), orDash(reason))))
	s.record(ctx, activity(actorID, models.ActivityOfferRejected, out, &out.UserID,
		out.Label()+" rejected: "+orDash(reason), map[string]any{"reason": reason}))
	return out, nil
}

// Revise turns a rejected offer into a new draft of the same chain. The new
// draft points at the chain root, takes the next revision number and gets a
// copy of every item; the rejected offer becomes revised.
func (s *Service) Revise(ctx context.Context, offerID, actorID uint, note string) (*models.Offer, error) {
	const op = "revise"
	var out *models.Offer
	g := s.grantsOf(ctx, actorID, policy.CapOfferRevise, policy.CapOfferEditAll, policy.CapOfferManagerApprove)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.loadOffer(ctx, tx, op, offerID)
		if err != nil {
			return err
		}
		if o.Status != models.OfferRejected {
			return stateErr(op, "only rejected offers can be revised")
		}
		actor, err := s.loadUser(ctx, tx, op, actorID)
		if err != nil {
			return err
		}
		owner, err := s.loadUser(ctx, tx, op, o.UserID)
		if err != nil {
			return err
		}
		if !canRevise(actor, owner, g) {
			return authErr(op, "not allowed to revise this offer")
		}

		now := s.now()
		if err := transition(tx, op, o.ID, models.OfferRejected, nil, map[string]any{"status": models.OfferRevised}); err != nil {
			return err
		}

		root := o.RootID()
		var last int
		err = tx.Model(&models.Offer{}).
			Where("id = ? OR original_offer_id = ?", root, root).
			Select("COALESCE(MAX(revision_number), 1)").
			Scan(&last).Error
		if err != nil {
			return err
		}

		draft := models.Offer{
			UserID:              actor.ID,
			Status:              models.OfferDraft,
			OverallDiscountType: pricing.DiscountNone,
			OriginalOfferID:     &root,
			RevisionNumber:      last + 1,
			RevisedAt:           &now,
			RevisionNote:        strings.TrimSpace(note),
		}
		if err := tx.Create(&draft).Error; err != nil {
			return err
		}
		if len(o.Items) > 0 {
			items := make([]models.OfferItem, len(o.Items))
			for i, it := range o.Items {
				items[i] = models.OfferItem{
					OfferID:       draft.ID,
					ProductID:     it.ProductID,
					ProductName:   it.ProductName,
					Quantity:      it.Quantity,
					UnitPrice:     it.UnitPrice,
					VATRate:       it.VATRate,
					DiscountType:  it.DiscountType,
					DiscountValue: it.DiscountValue,
					Note:          it.Note,
				}
			}
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		out, err = s.loadOffer(ctx, tx, op, draft.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, activity(actorID, models.ActivityOfferRevised, out, nil,
		fmt.Sprintf("Offer #%d revised into %s", offerID, out.Label()),
		map[string]any{"revised_offer_id": offerID, "revision_number": out.RevisionNumber}))
	return out, nil
}

func canRevise(actor, owner *models.User, g grants) bool {
	switch {
	case actor.ID == owner.ID && g[policy.CapOfferRevise]:
		return true
	case isManagerOf(actor, owner, g):
		return true
	default:
		return g[policy.CapOfferEditAll]
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
