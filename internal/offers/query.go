package offers

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/policy"
	"github.com/diewo77/go-offers/internal/pricing"
)

// pharmacyStatuses are the statuses the pharmacy side can see.
var pharmacyStatuses = []models.OfferStatus{models.OfferSent, models.OfferApproved, models.OfferRejected, models.OfferRevised}

// visible restricts an offer query to what actor may see: everything with
// offer:view_all, every non-draft offer on the pharmacy side, and own plus
// team offers on the supplier side.
func (s *Service) visible(ctx context.Context, actor *models.User) func(*gorm.DB) *gorm.DB {
	viewAll := s.has(ctx, actor.ID, policy.CapOfferViewAll)
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case viewAll:
			return db
		case actor.IsEczane():
			return db.Where("offers.status IN ?", pharmacyStatuses)
		case actor.IsManager:
			team := db.Session(&gorm.Session{NewDB: true}).Model(&models.User{}).Select("id").Where("manager_id = ?", actor.ID)
			return db.Where("offers.user_id = ? OR offers.user_id IN (?)", actor.ID, team)
		default:
			return db.Where("offers.user_id = ?", actor.ID)
		}
	}
}

// CanView reports whether actor may see the offer.
func (s *Service) CanView(ctx context.Context, actorID, offerID uint) bool {
	actor, err := s.loadUser(ctx, s.db, "view", actorID)
	if err != nil {
		return false
	}
	var n int64
	err = s.db.WithContext(ctx).Model(&models.Offer{}).Scopes(s.visible(ctx, actor)).
		Where("offers.id = ?", offerID).Count(&n).Error
	return err == nil && n == 1
}

// Get loads an offer with its items, products, delivery addresses and owner.
func (s *Service) Get(ctx context.Context, offerID, actorID uint) (*models.Offer, error) {
	const op = "get"
	var o models.Offer
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("offer_items.id") }).
		Preload("Items.Product").
		Preload("Items.DeliveryAddress").
		Preload("User").
		First(&o, offerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(op, "offer")
	}
	if err != nil {
		return nil, err
	}
	if !s.CanView(ctx, actorID, offerID) {
		return nil, authErr(op, "not allowed to view this offer")
	}
	return &o, nil
}

// Totals computes the totals of a visible offer.
func (s *Service) Totals(ctx context.Context, offerID, actorID uint) (pricing.OrderTotals, error) {
	o, err := s.Get(ctx, offerID, actorID)
	if err != nil {
		return pricing.OrderTotals{}, err
	}
	return o.Totals(), nil
}

func (s *Service) chain(ctx context.Context, op string, offerID uint, scopes ...func(*gorm.DB) *gorm.DB) ([]models.Offer, error) {
	o, err := s.loadOffer(ctx, s.db, op, offerID)
	if err != nil {
		return nil, err
	}
	root := o.RootID()
	var chain []models.Offer
	err = s.db.WithContext(ctx).Scopes(scopes...).
		Where("offers.id = ? OR offers.original_offer_id = ?", root, root).
		Order("revision_number").
		Find(&chain).Error
	return chain, err
}

// History returns the members of the revision chain actor may see, oldest
// first.
func (s *Service) History(ctx context.Context, offerID, actorID uint) ([]models.Offer, error) {
	const op = "history"
	actor, err := s.loadUser(ctx, s.db, op, actorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadOffer(ctx, s.db, op, offerID); err != nil {
		return nil, err
	}
	if !s.CanView(ctx, actorID, offerID) {
		return nil, authErr(op, "not allowed to view this offer")
	}
	return s.chain(ctx, op, offerID, s.visible(ctx, actor))
}

// Latest returns the chain member with the highest revision number.
func (s *Service) Latest(ctx context.Context, offerID uint) (*models.Offer, error) {
	chain, err := s.chain(ctx, "latest", offerID)
	if err != nil {
		return nil, err
	}
	return &chain[len(chain)-1], nil
}

// IsLatest reports whether no later revision of the offer exists.
func (s *Service) IsLatest(ctx context.Context, offerID uint) (bool, error) {
	latest, err := s.Latest(ctx, offerID)
	if err != nil {
		return false, err
	}
	return latest.ID == offerID, nil
}

// ListFilter narrows ListForUser. Zero values mean no filter.
type ListFilter struct {
	Status models.OfferStatus
	Limit  int
}

// ListForUser returns the offers actor may see, newest first.
func (s *Service) ListForUser(ctx context.Context, actorID uint, f ListFilter) ([]models.Offer, error) {
	actor, err := s.loadUser(ctx, s.db, "list", actorID)
	if err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Scopes(s.visible(ctx, actor)).
		Preload("Items").
		Preload("User").
		Order("offers.created_at DESC, offers.id DESC")
	if f.Status != "" {
		q = q.Where("offers.status = ?", f.Status)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	list := []models.Offer{}
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Inbox lists sent offers waiting for a pharmacy decision, newest first.
func (s *Service) Inbox(ctx context.Context, actorID uint) ([]models.Offer, error) {
	const op = "inbox"
	if !s.has(ctx, actorID, policy.CapOfferApprove) && !s.has(ctx, actorID, policy.CapOfferReject) {
		return nil, authErr(op, "missing pharmacy capabilities")
	}
	var list []models.Offer
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("User").
		Where("status = ?", models.OfferSent).
		Order("sent_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

// PendingManagerApproval lists the drafts waiting for actor's decision.
func (s *Service) PendingManagerApproval(ctx context.Context, actorID uint) ([]models.Offer, error) {
	actor, err := s.loadUser(ctx, s.db, "pending", actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsManager {
		return nil, nil
	}
	var candidates []models.Offer
	err = s.db.WithContext(ctx).
		Preload("Items").
		Preload("User").
		Where("status = ? AND manager_approval_pending = ?", models.OfferDraft, true).
		Order("updated_at DESC").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	g := s.grantsOf(ctx, actorID, policy.CapOfferManagerApprove)
	out := candidates[:0]
	for _, o := range candidates {
		if o.User != nil && isManagerOf(actor, o.User, g) {
			out = append(out, o)
		}
	}
	return out, nil
}

// Stats summarises the offers actor may see.
type Stats struct {
	ByStatus               map[models.OfferStatus]int64 `json:"by_status"`
	Total                  int64                        `json:"total"`
	PendingManagerApproval int64                        `json:"pending_manager_approval"`
}

// Stats counts visible offers per status plus the drafts awaiting actor.
func (s *Service) Stats(ctx context.Context, actorID uint) (*Stats, error) {
	actor, err := s.loadUser(ctx, s.db, "stats", actorID)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Status models.OfferStatus
		Count  int64
	}
	err = s.db.WithContext(ctx).Model(&models.Offer{}).Scopes(s.visible(ctx, actor)).
		Select("offers.status AS status, COUNT(*) AS count").
		Group("offers.status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	st := &Stats{ByStatus: make(map[models.OfferStatus]int64, len(rows))}
	for _, r := range rows {
		st.ByStatus[r.Status] = r.Count
		st.Total += r.Count
	}
	pending, err := s.PendingManagerApproval(ctx, actorID)
	if err != nil {
		return nil, err
	}
	st.PendingManagerApproval = int64(len(pending))
	return st, nil
}
