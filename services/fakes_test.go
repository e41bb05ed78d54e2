package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"firebase.google.com/go/v4/messaging"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/websocket"
)

var errMockStore = errors.New("mock store error")

// failures queues errors for named fake operations; each queued error is
// returned once, in order
type failures struct {
	mu     sync.Mutex
	queued map[string][]error
}

func (f *failures) inject(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queued == nil {
		f.queued = map[string][]error{}
	}
	f.queued[op] = append(f.queued[op], err)
}

func (f *failures) next(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	errs := f.queued[op]
	if len(errs) == 0 {
		return nil
	}
	f.queued[op] = errs[1:]
	return errs[0]
}

func newID(id *primitive.ObjectID) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
}

// fakeUsers implements UserStore in memory. beforeDecay runs at the start
// of DecayKarma, outside the lock.
type fakeUsers struct {
	mu          sync.Mutex
	byID        map[primitive.ObjectID]*models.User
	fail        failures
	beforeDecay func(id primitive.ObjectID)
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[primitive.ObjectID]*models.User{}}
}

func (f *fakeUsers) add(u models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	newID(&u.ID)
	f.byID[u.ID] = &u
	out := u
	return &out
}

func (f *fakeUsers) get(id primitive.ObjectID) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.byID[id]
}

func (f *fakeUsers) find(match func(*models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if match(u) {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeUsers) update(id primitive.ObjectID, fn func(*models.User) error) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	out := *u
	return &out, nil
}

func (f *fakeUsers) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == user.Email || (user.ReferralCode != "" && u.ReferralCode == user.ReferralCode) {
			return ErrConflict
		}
	}
	newID(&user.ID)
	stored := *user
	f.byID[user.ID] = &stored
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == email })
}

func (f *fakeUsers) FindByReferralCode(_ context.Context, code string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ReferralCode == code })
}

func (f *fakeUsers) FindByAppAccountToken(_ context.Context, token string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.AppAccountToken == token })
}

func (f *fakeUsers) FindByStripeCustomer(_ context.Context, customerID string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.StripeCustomerID == customerID })
}

func (f *fakeUsers) AdjustPoints(_ context.Context, id primitive.ObjectID, delta, lifetimeDelta int) (*models.User, error) {
	if err := f.fail.next("adjustPoints"); err != nil {
		return nil, err
	}
	return f.update(id, func(u *models.User) error {
		if delta < 0 && u.Points+delta < 0 {
			return ErrInsufficientPoints
		}
		u.Points += delta
		u.LifetimePoints += lifetimeDelta
		return nil
	})
}

func (f *fakeUsers) SetLoyaltyTier(_ context.Context, id primitive.ObjectID, tier string) error {
	_, err := f.update(id, func(u *models.User) error { u.LoyaltyTier = tier; return nil })
	return err
}

func (f *fakeUsers) AddKarma(_ context.Context, id primitive.ObjectID, delta int, at time.Time) (*models.User, error) {
	return f.update(id, func(u *models.User) error {
		u.Karma += delta
		u.KarmaLastActivityAt = at
		return nil
	})
}

func (f *fakeUsers) DecayKarma(_ context.Context, id primitive.ObjectID, loss int, at, inactiveSince time.Time) (bool, error) {
	if f.beforeDecay != nil {
		f.beforeDecay(id)
	}
	applied := false
	_, err := f.update(id, func(u *models.User) error {
		if u.KarmaLastActivityAt.After(inactiveSince) {
			return nil
		}
		applied = true
		u.Karma -= loss
		if u.Karma < 0 {
			u.Karma = 0
		}
		u.KarmaLastDecayAt = &at
		return nil
	})
	return applied, err
}

func (f *fakeUsers) ListKarmaDecayCandidates(_ context.Context, inactiveSince time.Time) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.byID {
		if u.Karma > 0 && !u.KarmaLastActivityAt.After(inactiveSince) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUsers) SetSubscriptionTier(_ context.Context, id primitive.ObjectID, tier string) error {
	_, err := f.update(id, func(u *models.User) error { u.SubscriptionTier = tier; return nil })
	return err
}

func (f *fakeUsers) SetStripeCustomer(_ context.Context, id primitive.ObjectID, customerID string) error {
	_, err := f.update(id, func(u *models.User) error { u.StripeCustomerID = customerID; return nil })
	return err
}

func (f *fakeUsers) SetFCMToken(_ context.Context, id primitive.ObjectID, token string) error {
	_, err := f.update(id, func(u *models.User) error { u.FCMToken = token; return nil })
	return err
}

func (f *fakeUsers) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

// fakeBusinesses implements BusinessStore in memory
type fakeBusinesses struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Business
}

func newFakeBusinesses() *fakeBusinesses {
	return &fakeBusinesses{byID: map[primitive.ObjectID]*models.Business{}}
}

func (f *fakeBusinesses) add(b models.Business) *models.Business {
	f.mu.Lock()
	defer f.mu.Unlock()
	newID(&b.ID)
	f.byID[b.ID] = &b
	out := b
	return &out
}

func (f *fakeBusinesses) get(id primitive.ObjectID) models.Business {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.byID[id]
}

func (f *fakeBusinesses) set(id primitive.ObjectID, fn func(*models.Business)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(b)
	return nil
}

func (f *fakeBusinesses) Insert(_ context.Context, b *models.Business) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	newID(&b.ID)
	stored := *b
	f.byID[b.ID] = &stored
	return nil
}

func (f *fakeBusinesses) Update(_ context.Context, b *models.Business) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[b.ID]; !ok {
		return ErrNotFound
	}
	stored := *b
	f.byID[b.ID] = &stored
	return nil
}

func (f *fakeBusinesses) FindByID(_ context.Context, id primitive.ObjectID) (*models.Business, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *b
	return &out, nil
}

func (f *fakeBusinesses) FindBySlug(_ context.Context, slug string) (*models.Business, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.byID {
		if b.Slug == slug {
			out := *b
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeBusinesses) SlugExists(ctx context.Context, slug string) (bool, error) {
	_, err := f.FindBySlug(ctx, slug)
	return err == nil, nil
}

func (f *fakeBusinesses) List(_ context.Context, filter models.BusinessFilter) ([]models.Business, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Business
	for _, b := range f.byID {
		if b.IsActive && (filter.Category == "" || b.Category == filter.Category) {
			all = append(all, *b)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := int64(len(all))
	if filter.Skip >= total {
		return nil, total, nil
	}
	end := filter.Skip + filter.Limit
	if end > total {
		end = total
	}
	return all[filter.Skip:end], total, nil
}

func (f *fakeBusinesses) ListActive(_ context.Context) ([]models.Business, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Business
	for _, b := range f.byID {
		if b.IsActive {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (f *fakeBusinesses) ListByOwner(_ context.Context, ownerID primitive.ObjectID) ([]models.Business, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Business
	for _, b := range f.byID {
		if b.OwnerID == ownerID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBusinesses) SetRating(_ context.Context, id primitive.ObjectID, average float64, count int) error {
	return f.set(id, func(b *models.Business) { b.AverageRating, b.ReviewCount = average, count })
}

func (f *fakeBusinesses) SetVerified(_ context.Context, id primitive.ObjectID, verified bool) error {
	return f.set(id, func(b *models.Business) { b.IsVerified = verified })
}

func (f *fakeBusinesses) SetSubscriptionTier(_ context.Context, id primitive.ObjectID, tier string) error {
	return f.set(id, func(b *models.Business) { b.SubscriptionTier = tier })
}

func (f *fakeBusinesses) SetLogo(_ context.Context, id primitive.ObjectID, url string) error {
	return f.set(id, func(b *models.Business) { b.LogoURL = url })
}

func (f *fakeBusinesses) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

// fakeVerifications implements VerificationStore in memory
type fakeVerifications struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.BusinessVerification
}

func newFakeVerifications() *fakeVerifications {
	return &fakeVerifications{byID: map[primitive.ObjectID]*models.BusinessVerification{}}
}

func (f *fakeVerifications) Insert(_ context.Context, v *models.BusinessVerification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.BusinessID == v.BusinessID && existing.Status == models.VerificationPending {
			return ErrConflict
		}
	}
	newID(&v.ID)
	stored := *v
	f.byID[v.ID] = &stored
	return nil
}

func (f *fakeVerifications) FindByID(_ context.Context, id primitive.ObjectID) (*models.BusinessVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *v
	return &out, nil
}

func (f *fakeVerifications) ListPending(_ context.Context) ([]models.BusinessVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BusinessVerification
	for _, v := range f.byID {
		if v.Status == models.VerificationPending {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeVerifications) Decide(_ context.Context, id primitive.ObjectID, status, notes string, reviewer primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byID[id]
	if !ok || v.Status != models.VerificationPending {
		return ErrNotFound
	}
	v.Status, v.AdminNotes, v.ReviewedBy, v.ReviewedAt = status, notes, &reviewer, &at
	return nil
}

// fakeQRCodes implements QRCodeStore in memory
type fakeQRCodes struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.QRCode
}

func newFakeQRCodes() *fakeQRCodes {
	return &fakeQRCodes{byID: map[primitive.ObjectID]*models.QRCode{}}
}

func (f *fakeQRCodes) get(id primitive.ObjectID) models.QRCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.byID[id]
}

func (f *fakeQRCodes) Insert(_ context.Context, qr *models.QRCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	newID(&qr.ID)
	stored := *qr
	f.byID[qr.ID] = &stored
	return nil
}

func (f *fakeQRCodes) FindByID(_ context.Context, id primitive.ObjectID) (*models.QRCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	qr, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *qr
	return &out, nil
}

func (f *fakeQRCodes) FindByToken(_ context.Context, token string) (*models.QRCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, qr := range f.byID {
		if qr.Token == token {
			out := *qr
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeQRCodes) ListByBusiness(_ context.Context, businessID primitive.ObjectID) ([]models.QRCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.QRCode
	for _, qr := range f.byID {
		if qr.BusinessID == businessID {
			out = append(out, *qr)
		}
	}
	return out, nil
}

func (f *fakeQRCodes) SetActive(_ context.Context, id primitive.ObjectID, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	qr, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	qr.IsActive = active
	return nil
}

func (f *fakeQRCodes) IncrementScanCount(_ context.Context, id primitive.ObjectID, limit int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	qr, ok := f.byID[id]
	if !ok || (limit > 0 && qr.ScanCount >= limit) {
		return false, nil
	}
	qr.ScanCount++
	return true, nil
}

func (f *fakeQRCodes) DecrementScanCount(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if qr, ok := f.byID[id]; ok && qr.ScanCount > 0 {
		qr.ScanCount--
	}
	return nil
}

func (f *fakeQRCodes) DeleteByBusiness(_ context.Context, businessID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, qr := range f.byID {
		if qr.BusinessID == businessID {
			delete(f.byID, id)
		}
	}
	return nil
}

// fakeScans implements ScanStore in memory
type fakeScans struct {
	mu    sync.Mutex
	scans []models.QRScan
	fail  failures
}

func (f *fakeScans) all() []models.QRScan {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.QRScan(nil), f.scans...)
}

func (f *fakeScans) Insert(_ context.Context, scan *models.QRScan) error {
	if err := f.fail.next("insert"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	newID(&scan.ID)
	f.scans = append(f.scans, *scan)
	return nil
}

func (f *fakeScans) LastScan(_ context.Context, userID, businessID primitive.ObjectID) (*models.QRScan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *models.QRScan
	for i := range f.scans {
		s := f.scans[i]
		if s.UserID == userID && s.BusinessID == businessID && (last == nil || s.ScannedAt.After(last.ScannedAt)) {
			last = &s
		}
	}
	return last, nil
}

func (f *fakeScans) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.scans {
		if s.ID == id {
			f.scans = append(f.scans[:i], f.scans[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeScans) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.scans[:0]
	for _, s := range f.scans {
		if s.UserID != userID {
			kept = append(kept, s)
		}
	}
	f.scans = kept
	return nil
}

// fakeLedger implements LedgerStore in memory
type fakeLedger struct {
	mu  sync.Mutex
	txs []models.Transaction
}

func (f *fakeLedger) all() []models.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Transaction(nil), f.txs...)
}

func (f *fakeLedger) Insert(_ context.Context, tx *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	newID(&tx.ID)
	f.txs = append(f.txs, *tx)
	return nil
}

func (f *fakeLedger) ListByUser(_ context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Transaction, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var mine []models.Transaction
	for i := len(f.txs) - 1; i >= 0; i-- {
		if f.txs[i].UserID == userID {
			mine = append(mine, f.txs[i])
		}
	}
	total := int64(len(mine))
	if skip >= total {
		return nil, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return mine[skip:end], total, nil
}

func (f *fakeLedger) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.txs[:0]
	for _, tx := range f.txs {
		if tx.UserID != userID {
			kept = append(kept, tx)
		}
	}
	f.txs = kept
	return nil
}

// fakeRewards implements RewardStore in memory. stockRace makes the next
// TakeStock lose as if another customer took the last item.
type fakeRewards struct {
	mu        sync.Mutex
	byID      map[primitive.ObjectID]*models.Reward
	stockRace bool
}

func newFakeRewards() *fakeRewards {
	return &fakeRewards{byID: map[primitive.ObjectID]*models.Reward{}}
}

func (f *fakeRewards) get(id primitive.ObjectID) models.Reward {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.byID[id]
}

func (f *fakeRewards) Insert(_ context.Context, r *models.Reward) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	newID(&r.ID)
	stored := *r
	f.byID[r.ID] = &stored
	return nil
}

func (f *fakeRewards) Update(_ context.Context, r *models.Reward) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[r.ID]; !ok {
		return ErrNotFound
	}
	stored := *r
	f.byID[r.ID] = &stored
	return nil
}

func (f *fakeRewards) FindByID(_ context.Context, id primitive.ObjectID) (*models.Reward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *r
	return &out, nil
}

func (f *fakeRewards) List(_ context.Context, businessID *primitive.ObjectID, activeOnly bool) ([]models.Reward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Reward
	for _, r := range f.byID {
		if activeOnly && !r.IsActive {
			continue
		}
		if businessID != nil && (r.BusinessID == nil || *r.BusinessID != *businessID) {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeRewards) TakeStock(_ context.Context, id primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return false, ErrNotFound
	}
	if f.stockRace {
		f.stockRace = false
		r.Stock = 0
		return false, nil
	}
	switch {
	case r.Stock < 0:
		return true, nil
	case r.Stock > 0:
		r.Stock--
		return true, nil
	}
	return false, nil
}

func (f *fakeRewards) ReturnStock(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.byID[id]; ok && r.Stock >= 0 {
		r.Stock++
	}
	return nil
}

func (f *fakeRewards) DeleteByBusiness(_ context.Context, businessID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.byID {
		if r.BusinessID != nil && *r.BusinessID == businessID {
			delete(f.byID, id)
		}
	}
	return nil
}

// fakeRedemptions implements RedemptionStore in memory
type fakeRedemptions struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Redemption
	fail failures
}

func newFakeRedemptions() *fakeRedemptions {
	return &fakeRedemptions{byID: map[primitive.ObjectID]*models.Redemption{}}
}

func (f *fakeRedemptions) Insert(_ context.Context, r *models.Redemption) error {
	if err := f.fail.next("insert"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Code == r.Code {
			return ErrConflict
		}
	}
	newID(&r.ID)
	stored := *r
	f.byID[r.ID] = &stored
	return nil
}

func (f *fakeRedemptions) FindByCode(_ context.Context, code string) (*models.Redemption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.Code == code {
			out := *r
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRedemptions) MarkUsed(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok || r.Status != models.RedemptionIssued {
		return false, nil
	}
	r.Status = models.RedemptionUsed
	r.UsedAt = &at
	return true, nil
}

func (f *fakeRedemptions) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Redemption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Redemption
	for _, r := range f.byID {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRedemptions) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.byID {
		if r.UserID == userID {
			delete(f.byID, id)
		}
	}
	return nil
}

// fakeKarmaEvents implements KarmaEventStore in memory
type fakeKarmaEvents struct {
	mu     sync.Mutex
	events []models.KarmaEvent
}

func (f *fakeKarmaEvents) all() []models.KarmaEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.KarmaEvent(nil), f.events...)
}

func (f *fakeKarmaEvents) Insert(_ context.Context, e *models.KarmaEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	newID(&e.ID)
	f.events = append(f.events, *e)
	return nil
}

func (f *fakeKarmaEvents) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.events[:0]
	for _, e := range f.events {
		if e.UserID != userID {
			kept = append(kept, e)
		}
	}
	f.events = kept
	return nil
}

// fakeAgents implements AgentStore in memory
type fakeAgents struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.SalesAgent
}

func newFakeAgents() *fakeAgents {
	return &fakeAgents{byID: map[primitive.ObjectID]*models.SalesAgent{}}
}

func (f *fakeAgents) add(a models.SalesAgent) *models.SalesAgent {
	f.mu.Lock()
	defer f.mu.Unlock()
	newID(&a.ID)
	f.byID[a.ID] = &a
	out := a
	return &out
}

func (f *fakeAgents) find(match func(*models.SalesAgent) bool) (*models.SalesAgent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if match(a) {
			out := *a
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeAgents) Insert(_ context.Context, a *models.SalesAgent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.UserID == a.UserID {
			return ErrConflict
		}
	}
	newID(&a.ID)
	stored := *a
	f.byID[a.ID] = &stored
	return nil
}

func (f *fakeAgents) FindByID(_ context.Context, id primitive.ObjectID) (*models.SalesAgent, error) {
	return f.find(func(a *models.SalesAgent) bool { return a.ID == id })
}

func (f *fakeAgents) FindByUserID(_ context.Context, userID primitive.ObjectID) (*models.SalesAgent, error) {
	return f.find(func(a *models.SalesAgent) bool { return a.UserID == userID })
}

func (f *fakeAgents) FindByCode(_ context.Context, code string) (*models.SalesAgent, error) {
	return f.find(func(a *models.SalesAgent) bool { return a.ReferralCode != "" && a.ReferralCode == code })
}

func (f *fakeAgents) ListByStatus(_ context.Context, status string) ([]models.SalesAgent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SalesAgent
	for _, a := range f.byID {
		if a.Status == status {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAgents) SetStatus(_ context.Context, id primitive.ObjectID, status, code string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	if code != "" {
		a.ReferralCode = code
	}
	if status == models.AgentActive {
		a.ApprovedAt = &at
	}
	a.UpdatedAt = at
	return nil
}

func (f *fakeAgents) SetConnectAccount(_ context.Context, id primitive.ObjectID, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.StripeAccountID = accountID
	return nil
}

func (f *fakeAgents) CountRecruits(_ context.Context, recruiterID primitive.ObjectID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.byID {
		if a.RecruitedBy != nil && *a.RecruitedBy == recruiterID {
			n++
		}
	}
	return n, nil
}

func (f *fakeAgents) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, a := range f.byID {
		if a.UserID == userID {
			delete(f.byID, id)
		}
	}
	return nil
}

// fakeBusinessReferrals implements BusinessReferralStore in memory
type fakeBusinessReferrals struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.BusinessReferral
}

func newFakeBusinessReferrals() *fakeBusinessReferrals {
	return &fakeBusinessReferrals{byID: map[primitive.ObjectID]*models.BusinessReferral{}}
}

func (f *fakeBusinessReferrals) Insert(_ context.Context, r *models.BusinessReferral) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.BusinessID == r.BusinessID {
			return ErrConflict
		}
	}
	newID(&r.ID)
	stored := *r
	f.byID[r.ID] = &stored
	return nil
}

func (f *fakeBusinessReferrals) FindByBusiness(_ context.Context, businessID primitive.ObjectID) (*models.BusinessReferral, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.BusinessID == businessID {
			out := *r
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeBusinessReferrals) ListByAgent(_ context.Context, agentID primitive.ObjectID) ([]models.BusinessReferral, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BusinessReferral
	for _, r := range f.byID {
		if r.AgentID == agentID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeBusinessReferrals) CountActive(_ context.Context, agentID primitive.ObjectID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.byID {
		if r.AgentID == agentID && r.Status == models.ReferralActive {
			n++
		}
	}
	return n, nil
}

func (f *fakeBusinessReferrals) Activate(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok || r.Status != models.ReferralPending {
		return false, nil
	}
	r.Status = models.ReferralActive
	r.ActivatedAt = &at
	return true, nil
}

// fakeCommissions implements CommissionStore in memory; (agent, invoice,
// kind) is unique like the Mongo index. Insert failures are keyed
// "insert:<kind>". claimRace makes the next Claim skip one row as if a
// concurrent payout had taken it.
type fakeCommissions struct {
	mu        sync.Mutex
	rows      []models.Commission
	fail      failures
	claimRace bool
}

func (f *fakeCommissions) all() []models.Commission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Commission(nil), f.rows...)
}

func (f *fakeCommissions) Insert(_ context.Context, c *models.Commission) error {
	if err := f.fail.next("insert:" + c.Kind); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if existing.AgentID == c.AgentID && existing.InvoiceID == c.InvoiceID && existing.Kind == c.Kind {
			return ErrConflict
		}
	}
	newID(&c.ID)
	f.rows = append(f.rows, *c)
	return nil
}

func (f *fakeCommissions) ListPending(_ context.Context, agentID primitive.ObjectID) ([]models.Commission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Commission
	for _, c := range f.rows {
		if c.AgentID == agentID && c.Status == models.CommissionStatusPending {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCommissions) Claim(_ context.Context, ids []primitive.ObjectID, payoutID primitive.ObjectID) (int, error) {
	if err := f.fail.next("claim"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	claimed := 0
	for i := range f.rows {
		if wanted[f.rows[i].ID] && f.claimRace {
			f.claimRace = false
			continue
		}
		if wanted[f.rows[i].ID] && f.rows[i].Status == models.CommissionStatusPending {
			f.rows[i].Status = models.CommissionStatusProcessing
			pid := payoutID
			f.rows[i].PayoutID = &pid
			claimed++
		}
	}
	return claimed, nil
}

func (f *fakeCommissions) claimedBy(payoutID primitive.ObjectID, apply func(*models.Commission)) {
	for i := range f.rows {
		c := &f.rows[i]
		if c.Status == models.CommissionStatusProcessing && c.PayoutID != nil && *c.PayoutID == payoutID {
			apply(c)
		}
	}
}

func (f *fakeCommissions) Settle(_ context.Context, payoutID primitive.ObjectID, at time.Time) error {
	if err := f.fail.next("settle"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimedBy(payoutID, func(c *models.Commission) {
		c.Status = models.CommissionStatusPaid
		c.PaidAt = &at
	})
	return nil
}

func (f *fakeCommissions) Release(_ context.Context, payoutID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimedBy(payoutID, func(c *models.Commission) {
		c.Status = models.CommissionStatusPending
		c.PayoutID = nil
	})
	return nil
}

func (f *fakeCommissions) Totals(_ context.Context, agentID primitive.ObjectID) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pending, paid int64
	for _, c := range f.rows {
		if c.AgentID != agentID {
			continue
		}
		if c.Status == models.CommissionStatusPaid {
			paid += c.AmountCents
		} else {
			pending += c.AmountCents
		}
	}
	return pending, paid, nil
}

// fakePayouts implements PayoutStore in memory
type fakePayouts struct {
	mu   sync.Mutex
	rows []models.Payout
	fail failures
}

func (f *fakePayouts) all() []models.Payout {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Payout(nil), f.rows...)
}

func (f *fakePayouts) Insert(_ context.Context, p *models.Payout) error {
	if err := f.fail.next("insert"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	newID(&p.ID)
	f.rows = append(f.rows, *p)
	return nil
}

func (f *fakePayouts) FindOpen(_ context.Context, agentID primitive.ObjectID) (*models.Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.rows {
		if p.AgentID == agentID && p.Status == models.PayoutPending {
			out := p
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakePayouts) set(id primitive.ObjectID, fn func(*models.Payout)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			fn(&f.rows[i])
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakePayouts) Complete(_ context.Context, id primitive.ObjectID, method, transferID string, at time.Time) error {
	if err := f.fail.next("complete"); err != nil {
		return err
	}
	return f.set(id, func(p *models.Payout) {
		p.Status = models.PayoutCompleted
		p.Method = method
		p.TransferID = transferID
		p.CompletedAt = &at
	})
}

func (f *fakePayouts) SetStatus(_ context.Context, id primitive.ObjectID, status string) error {
	return f.set(id, func(p *models.Payout) { p.Status = status })
}

// fakeSubscriptions implements SubscriptionStore in memory
type fakeSubscriptions struct {
	mu   sync.Mutex
	rows map[primitive.ObjectID]*models.Subscription
}

func newFakeSubscriptions() *fakeSubscriptions {
	return &fakeSubscriptions{rows: map[primitive.ObjectID]*models.Subscription{}}
}

func (f *fakeSubscriptions) list(match func(*models.Subscription) bool) []models.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Subscription
	for _, s := range f.rows {
		if match(s) {
			out = append(out, *s)
		}
	}
	return out
}

func (f *fakeSubscriptions) Upsert(_ context.Context, s *models.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, existing := range f.rows {
		if existing.Source == s.Source && existing.ExternalID == s.ExternalID {
			s.ID = id
		}
	}
	newID(&s.ID)
	stored := *s
	f.rows[s.ID] = &stored
	return nil
}

func (f *fakeSubscriptions) FindByExternalID(_ context.Context, source, externalID string) (*models.Subscription, error) {
	found := f.list(func(s *models.Subscription) bool { return s.Source == source && s.ExternalID == externalID })
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return &found[0], nil
}

func (f *fakeSubscriptions) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Subscription, error) {
	return f.list(func(s *models.Subscription) bool { return s.UserID == userID }), nil
}

func (f *fakeSubscriptions) ListByTarget(_ context.Context, audience string, userID primitive.ObjectID, targetID *primitive.ObjectID) ([]models.Subscription, error) {
	return f.list(func(s *models.Subscription) bool {
		if s.Audience != audience {
			return false
		}
		if targetID == nil {
			return s.UserID == userID
		}
		return s.TargetID != nil && *s.TargetID == *targetID
	}), nil
}

func (f *fakeSubscriptions) ListLapsed(_ context.Context, cutoff time.Time) ([]models.Subscription, error) {
	return f.list(func(s *models.Subscription) bool {
		switch s.Status {
		case models.SubscriptionActive, models.SubscriptionTrialing, models.SubscriptionPastDue:
			return s.CurrentPeriodEnd.Before(cutoff)
		}
		return false
	}), nil
}

func (f *fakeSubscriptions) SetStatus(_ context.Context, id primitive.ObjectID, status string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return ErrNotFound
	}
	s.Status, s.UpdatedAt = status, at
	return nil
}

func (f *fakeSubscriptions) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.rows {
		if s.UserID == userID {
			delete(f.rows, id)
		}
	}
	return nil
}

// fakeProcessedEvents implements ProcessedEventStore in memory
type fakeProcessedEvents struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeProcessedEvents() *fakeProcessedEvents {
	return &fakeProcessedEvents{seen: map[string]bool{}}
}

func (f *fakeProcessedEvents) MarkProcessed(_ context.Context, source, eventID string, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := source + ":" + eventID
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeProcessedEvents) Forget(_ context.Context, source, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seen, source+":"+eventID)
	return nil
}

// fakeSponsors implements SponsorStore in memory
type fakeSponsors struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.SponsorProfile
}

func newFakeSponsors() *fakeSponsors {
	return &fakeSponsors{byID: map[primitive.ObjectID]*models.SponsorProfile{}}
}

func (f *fakeSponsors) get(id primitive.ObjectID) models.SponsorProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.byID[id]
}

func (f *fakeSponsors) Insert(_ context.Context, s *models.SponsorProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	newID(&s.ID)
	stored := *s
	f.byID[s.ID] = &stored
	return nil
}

func (f *fakeSponsors) FindByID(_ context.Context, id primitive.ObjectID) (*models.SponsorProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *s
	return &out, nil
}

func (f *fakeSponsors) FindByUserID(_ context.Context, userID primitive.ObjectID) (*models.SponsorProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.byID {
		if s.UserID == userID {
			out := *s
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeSponsors) ListActive(_ context.Context) ([]models.SponsorProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SponsorProfile
	for _, s := range f.byID {
		if s.Status == models.SponsorStatusActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSponsors) SetStatus(_ context.Context, id primitive.ObjectID, status, tier string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	s.Status, s.Tier, s.UpdatedAt = status, tier, at
	return nil
}

func (f *fakeSponsors) SetFeatured(_ context.Context, id primitive.ObjectID, businessIDs []primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	s.FeaturedBusinessIDs, s.UpdatedAt = businessIDs, at
	return nil
}

func (f *fakeSponsors) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.byID {
		if s.UserID == userID {
			delete(f.byID, id)
		}
	}
	return nil
}

// fakeReviews implements ReviewStore in memory
type fakeReviews struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Review
}

func newFakeReviews() *fakeReviews {
	return &fakeReviews{byID: map[primitive.ObjectID]*models.Review{}}
}

func (f *fakeReviews) Insert(_ context.Context, r *models.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.BusinessID == r.BusinessID && existing.UserID == r.UserID {
			return ErrConflict
		}
	}
	newID(&r.ID)
	stored := *r
	f.byID[r.ID] = &stored
	return nil
}

func (f *fakeReviews) FindByID(_ context.Context, id primitive.ObjectID) (*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *r
	return &out, nil
}

func (f *fakeReviews) ListByBusiness(_ context.Context, businessID primitive.ObjectID, skip, limit int64) ([]models.Review, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Review
	for _, r := range f.byID {
		if r.BusinessID == businessID {
			out = append(out, *r)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeReviews) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Review
	for _, r := range f.byID {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReviews) SetReply(_ context.Context, id primitive.ObjectID, reply models.ReviewReply) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok || r.Reply != nil {
		return false, nil
	}
	r.Reply = &reply
	return true, nil
}

func (f *fakeReviews) RatingStats(_ context.Context, businessID primitive.ObjectID) (float64, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum, n := 0, 0
	for _, r := range f.byID {
		if r.BusinessID == businessID {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(n), n, nil
}

func (f *fakeReviews) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.byID {
		if r.UserID == userID {
			delete(f.byID, id)
		}
	}
	return nil
}

// fakeChallenges implements ChallengeStore in memory
type fakeChallenges struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Challenge
}

func newFakeChallenges() *fakeChallenges {
	return &fakeChallenges{byID: map[primitive.ObjectID]*models.Challenge{}}
}

func (f *fakeChallenges) Insert(_ context.Context, c *models.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	newID(&c.ID)
	stored := *c
	f.byID[c.ID] = &stored
	return nil
}

func (f *fakeChallenges) FindByID(_ context.Context, id primitive.ObjectID) (*models.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (f *fakeChallenges) ListActive(_ context.Context, at time.Time) ([]models.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Challenge
	for _, c := range f.byID {
		if running(c, at) {
			out = append(out, *c)
		}
	}
	return out, nil
}

// fakeParticipations implements ParticipationStore in memory
type fakeParticipations struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.ChallengeParticipation
}

func newFakeParticipations() *fakeParticipations {
	return &fakeParticipations{byID: map[primitive.ObjectID]*models.ChallengeParticipation{}}
}

func (f *fakeParticipations) Insert(_ context.Context, p *models.ChallengeParticipation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.ChallengeID == p.ChallengeID && existing.UserID == p.UserID {
			return ErrConflict
		}
	}
	newID(&p.ID)
	stored := *p
	f.byID[p.ID] = &stored
	return nil
}

func (f *fakeParticipations) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.ChallengeParticipation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChallengeParticipation
	for _, p := range f.byID {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeParticipations) ListOpen(_ context.Context, userID primitive.ObjectID, activityType string) ([]models.ChallengeParticipation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChallengeParticipation
	for _, p := range f.byID {
		if p.UserID == userID && p.ActivityType == activityType && !p.Completed {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeParticipations) IncrementProgress(_ context.Context, id primitive.ObjectID) (*models.ChallengeParticipation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Progress++
	out := *p
	return &out, nil
}

func (f *fakeParticipations) Complete(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok || p.Completed {
		return false, nil
	}
	p.Completed = true
	p.CompletedAt = &at
	return true, nil
}

func (f *fakeParticipations) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range f.byID {
		if p.UserID == userID {
			delete(f.byID, id)
		}
	}
	return nil
}

// fakeFlags implements FeatureFlagStore in memory
type fakeFlags struct {
	mu    sync.Mutex
	flags map[string]models.FeatureFlag
	lists int
}

func newFakeFlags() *fakeFlags {
	return &fakeFlags{flags: map[string]models.FeatureFlag{}}
}

func (f *fakeFlags) Upsert(_ context.Context, flag *models.FeatureFlag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[flag.Key] = *flag
	return nil
}

func (f *fakeFlags) List(_ context.Context) ([]models.FeatureFlag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	out := make([]models.FeatureFlag, 0, len(f.flags))
	for _, flag := range f.flags {
		out = append(out, flag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeFlags) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.flags[key]; !ok {
		return ErrNotFound
	}
	delete(f.flags, key)
	return nil
}

// fakeNotifications implements NotificationStore in memory
type fakeNotifications struct {
	mu   sync.Mutex
	rows []models.Notification
}

func (f *fakeNotifications) Insert(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	newID(&n.ID)
	f.rows = append(f.rows, *n)
	return nil
}

func (f *fakeNotifications) ListByUser(_ context.Context, userID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for i := len(f.rows) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if f.rows[i].UserID == userID {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, id, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id && f.rows[i].UserID == userID {
			f.rows[i].IsRead = true
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeNotifications) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	for _, n := range f.rows {
		if n.UserID != userID {
			kept = append(kept, n)
		}
	}
	f.rows = kept
	return nil
}

// fakeCache implements Cache and Locker in memory
type fakeCache struct {
	mu    sync.Mutex
	items map[string][]byte
	locks map[string]bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[string][]byte{}, locks: map[string]bool{}}
}

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.items[key]
	return v, ok, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[key] = value
	return nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, key)
	return nil
}

func (f *fakeCache) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locks[key] {
		return false, nil
	}
	f.locks[key] = true
	return true, nil
}

func (f *fakeCache) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locks, key)
	return nil
}

// recordingNotifier captures Notify calls
type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingNotifier) Notify(_ context.Context, _ primitive.ObjectID, notifType, _, _ string, _ map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, notifType)
}

func (r *recordingNotifier) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// recordingTracker captures Track calls
type recordingTracker struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingTracker) Track(_, event string, _ map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// recordingMailer captures sent mail
type recordingMailer struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingMailer) Send(to, subject, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, to+"|"+subject)
	return nil
}

// mockGateway implements PaymentGateway
// mockGateway records calls. Transfers replay by reference like Stripe
// idempotency keys.
type mockGateway struct {
	mu          sync.Mutex
	Event       *BillingEvent
	ParseErr    error
	TransferErr error
	Transfers   []int64
	Cancelled   []string
	Checkouts   []CheckoutParams
	references  map[string]string
}

func (m *mockGateway) CreateCheckoutSession(_ context.Context, params CheckoutParams) (*CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Checkouts = append(m.Checkouts, params)
	return &CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func (m *mockGateway) CreatePortalSession(_ context.Context, customerID, returnURL string) (string, error) {
	return "https://billing.stripe.test/" + customerID, nil
}

func (m *mockGateway) CancelSubscription(_ context.Context, subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancelled = append(m.Cancelled, subscriptionID)
	return nil
}

func (m *mockGateway) Transfer(_ context.Context, _ string, amountCents int64, reference string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TransferErr != nil {
		return "", m.TransferErr
	}
	if id, ok := m.references[reference]; ok {
		return id, nil
	}
	if m.references == nil {
		m.references = map[string]string{}
	}
	m.Transfers = append(m.Transfers, amountCents)
	id := fmt.Sprintf("tr_test_%d", len(m.Transfers))
	m.references[reference] = id
	return id, nil
}

func (m *mockGateway) ParseWebhook(_ []byte, _ string) (*BillingEvent, error) {
	if m.ParseErr != nil {
		return nil, m.ParseErr
	}
	ev := *m.Event
	return &ev, nil
}

// mockApple implements AppleVerifier
type mockApple struct {
	Notification *AppleNotification
}

func (m *mockApple) Decode(string) (*AppleNotification, error) {
	n := *m.Notification
	return &n, nil
}

// mockRealtime implements RealtimeSender
type mockRealtime struct {
	mu   sync.Mutex
	sent []websocket.Notification
	err  error
}

func (m *mockRealtime) SendToUser(_ primitive.ObjectID, n websocket.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

// mockPush implements PushSender
type mockPush struct {
	mu   sync.Mutex
	sent []*messaging.Message
}

func (m *mockPush) Send(_ context.Context, msg *messaging.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return "projects/test/messages/1", nil
}

// fixedClock returns a Now func that can be moved forward
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fixedClock {
	return &fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
