package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/anjiri1684/course_academy/models"
	"github.com/anjiri1684/course_academy/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memState struct {
	users     map[uuid.UUID]models.User
	courses   map[uuid.UUID]models.Course
	lessons   map[uuid.UUID]models.Lesson
	products  map[uuid.UUID]models.ShopProduct
	purchases []models.Purchase
	sessions  map[string]models.PaymentSession
	referrals []models.Referral
	payouts   map[uuid.UUID]models.PayoutRequest
}

func newMemState() *memState {
	return &memState{
		users:    map[uuid.UUID]models.User{},
		courses:  map[uuid.UUID]models.Course{},
		lessons:  map[uuid.UUID]models.Lesson{},
		products: map[uuid.UUID]models.ShopProduct{},
		sessions: map[string]models.PaymentSession{},
		payouts:  map[uuid.UUID]models.PayoutRequest{},
	}
}

func (s *memState) clone() memState {
	c := *newMemState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.courses {
		v.IncludedCourseIDs = append([]string(nil), v.IncludedCourseIDs...)
		c.courses[k] = v
	}
	for k, v := range s.lessons {
		c.lessons[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.payouts {
		c.payouts[k] = v
	}
	c.purchases = append([]models.Purchase(nil), s.purchases...)
	c.referrals = append([]models.Referral(nil), s.referrals...)
	return c
}

// memRepo is an in-memory store.Repository. Transactions hold a single mutex
// and roll back by restoring a snapshot, which gives the same serialisation
// the row locks and conditional updates give in PostgreSQL.
type memRepo struct {
	mu   *sync.Mutex
	st   *memState
	inTx bool
}

var _ store.Repository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{mu: &sync.Mutex{}, st: newMemState()}
}

func (r *memRepo) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

func (r *memRepo) Transaction(ctx context.Context, fn func(tx store.Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.st.clone()
	if err := fn(&memRepo{mu: r.mu, st: r.st, inTx: true}); err != nil {
		*r.st = snapshot
		return err
	}
	return nil
}

func (r *memRepo) CreateUser(ctx context.Context, user *models.User) error {
	defer r.lock()()
	for _, u := range r.st.users {
		if u.Email == user.Email || u.AffiliateCode == user.AffiliateCode {
			return store.ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if user.Role == "" {
		user.Role = models.RoleMember
	}
	r.st.users[user.ID] = *user
	return nil
}

func (r *memRepo) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	defer r.lock()()
	u, ok := r.st.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (r *memRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer r.lock()()
	for _, u := range r.st.users {
		if equalFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func (r *memRepo) FindUserByAffiliateCode(ctx context.Context, code string) (*models.User, error) {
	defer r.lock()()
	for _, u := range r.st.users {
		if u.AffiliateCode == code {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *memRepo) AffiliateCodeExists(ctx context.Context, code string) (bool, error) {
	_, err := r.FindUserByAffiliateCode(ctx, code)
	return err == nil, nil
}

func (r *memRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	defer r.lock()()
	out := make([]models.User, 0, len(r.st.users))
	for _, u := range r.st.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memRepo) LockUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.FindUserByID(ctx, id)
}

func (r *memRepo) updateUser(id uuid.UUID, fn func(u *models.User) error) error {
	defer r.lock()()
	u, ok := r.st.users[id]
	if !ok {
		return store.ErrNotFound
	}
	if err := fn(&u); err != nil {
		return err
	}
	r.st.users[id] = u
	return nil
}

func (r *memRepo) SetSubscription(ctx context.Context, userID uuid.UUID, status string, plan *string) error {
	return r.updateUser(userID, func(u *models.User) error {
		u.SubscriptionStatus = status
		u.SubscriptionPlan = plan
		return nil
	})
}

func (r *memRepo) SetReferrer(ctx context.Context, userID uuid.UUID, code string, at time.Time) (bool, error) {
	set := false
	err := r.updateUser(userID, func(u *models.User) error {
		if u.ReferredBy != nil {
			return nil
		}
		u.ReferredBy = &code
		u.ReferredAt = &at
		set = true
		return nil
	})
	if err == store.ErrNotFound {
		return false, nil
	}
	return set, err
}

func (r *memRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, fullName string, passwordHash *string) error {
	return r.updateUser(userID, func(u *models.User) error {
		u.FullName = fullName
		if passwordHash != nil {
			u.Password = *passwordHash
		}
		return nil
	})
}

func (r *memRepo) SetPayoutMethod(ctx context.Context, userID uuid.UUID, method, details string) error {
	return r.updateUser(userID, func(u *models.User) error {
		u.PayoutMethod = &method
		u.PayoutDetails = &details
		return nil
	})
}

func (r *memRepo) AdjustAffiliateBalance(ctx context.Context, userID uuid.UUID, balanceDelta, earned decimal.Decimal) error {
	err := r.updateUser(userID, func(u *models.User) error {
		next := u.AffiliateBalance.Add(balanceDelta)
		if next.IsNegative() {
			return store.ErrInsufficientBalance
		}
		u.AffiliateBalance = next
		u.AffiliateTotalEarned = u.AffiliateTotalEarned.Add(earned)
		return nil
	})
	if err == store.ErrNotFound {
		return store.ErrInsufficientBalance
	}
	return err
}

func (r *memRepo) MarkCommissionPaid(ctx context.Context, userID uuid.UUID) error {
	return r.updateUser(userID, func(u *models.User) error {
		u.CommissionPaid = true
		return nil
	})
}

func (r *memRepo) CreateReferral(ctx context.Context, referral *models.Referral) error {
	defer r.lock()()
	for _, ref := range r.st.referrals {
		if ref.ReferredUserID == referral.ReferredUserID {
			return store.ErrDuplicate
		}
	}
	referral.ID = uuid.New()
	referral.CreatedAt = time.Now()
	r.st.referrals = append(r.st.referrals, *referral)
	return nil
}

func (r *memRepo) CompleteReferral(ctx context.Context, referredUserID uuid.UUID, reward decimal.Decimal, sessionRef string) error {
	defer r.lock()()
	for i, ref := range r.st.referrals {
		if ref.ReferredUserID == referredUserID && ref.Status == models.ReferralPending {
			r.st.referrals[i].Status = models.ReferralCompleted
			r.st.referrals[i].RewardAmount = reward
			r.st.referrals[i].SessionRef = &sessionRef
		}
	}
	return nil
}

func (r *memRepo) CountReferrals(ctx context.Context, referrerID uuid.UUID) (int64, error) {
	defer r.lock()()
	var n int64
	for _, ref := range r.st.referrals {
		if ref.ReferrerID == referrerID {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) ListCourses(ctx context.Context) ([]models.Course, error) {
	defer r.lock()()
	out := make([]models.Course, 0, len(r.st.courses))
	for _, c := range r.st.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memRepo) FindCourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	defer r.lock()()
	c, ok := r.st.courses[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (r *memRepo) CreateCourse(ctx context.Context, course *models.Course) error {
	defer r.lock()()
	if course.ID == uuid.Nil {
		course.ID = uuid.New()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now()
	}
	r.st.courses[course.ID] = *course
	return nil
}

func (r *memRepo) UpdateCourse(ctx context.Context, course *models.Course) error {
	defer r.lock()()
	r.st.courses[course.ID] = *course
	return nil
}

func (r *memRepo) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	defer r.lock()()
	if _, ok := r.st.courses[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.st.courses, id)
	for lid, l := range r.st.lessons {
		if l.CourseID == id {
			delete(r.st.lessons, lid)
		}
	}
	return nil
}

func (r *memRepo) ListLessons(ctx context.Context, courseID uuid.UUID) ([]models.Lesson, error) {
	defer r.lock()()
	out := []models.Lesson{}
	for _, l := range r.st.lessons {
		if l.CourseID == courseID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memRepo) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	defer r.lock()()
	lesson.ID = uuid.New()
	lesson.CreatedAt = time.Now()
	r.st.lessons[lesson.ID] = *lesson
	return nil
}

func (r *memRepo) UpdateLesson(ctx context.Context, lesson *models.Lesson) error {
	defer r.lock()()
	existing, ok := r.st.lessons[lesson.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.Title, existing.VideoURL, existing.Order = lesson.Title, lesson.VideoURL, lesson.Order
	r.st.lessons[lesson.ID] = existing
	return nil
}

func (r *memRepo) DeleteLesson(ctx context.Context, id uuid.UUID) error {
	defer r.lock()()
	if _, ok := r.st.lessons[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.st.lessons, id)
	return nil
}

func (r *memRepo) FindShopProductByID(ctx context.Context, id uuid.UUID) (*models.ShopProduct, error) {
	defer r.lock()()
	p, ok := r.st.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (r *memRepo) ListShopProducts(ctx context.Context) ([]models.ShopProduct, error) {
	defer r.lock()()
	out := make([]models.ShopProduct, 0, len(r.st.products))
	for _, p := range r.st.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r *memRepo) CreateShopProduct(ctx context.Context, product *models.ShopProduct) error {
	defer r.lock()()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	r.st.products[product.ID] = *product
	return nil
}

func (r *memRepo) UpdateShopProduct(ctx context.Context, product *models.ShopProduct) error {
	defer r.lock()()
	r.st.products[product.ID] = *product
	return nil
}

func (r *memRepo) DeleteShopProduct(ctx context.Context, id uuid.UUID) error {
	defer r.lock()()
	if _, ok := r.st.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.st.products, id)
	return nil
}

func (r *memRepo) ListPurchasedCourseIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	defer r.lock()()
	var ids []uuid.UUID
	for _, p := range r.st.purchases {
		if p.UserID == userID {
			ids = append(ids, p.CourseID)
		}
	}
	return ids, nil
}

func (r *memRepo) HasPurchase(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	defer r.lock()()
	for _, p := range r.st.purchases {
		if p.UserID == userID && p.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) CreatePurchase(ctx context.Context, purchase *models.Purchase) (bool, error) {
	defer r.lock()()
	for _, p := range r.st.purchases {
		if p.UserID == purchase.UserID && p.CourseID == purchase.CourseID {
			return false, nil
		}
		if p.SessionRef != nil && purchase.SessionRef != nil && *p.SessionRef == *purchase.SessionRef {
			return false, nil
		}
	}
	purchase.ID = uuid.New()
	purchase.CreatedAt = time.Now()
	r.st.purchases = append(r.st.purchases, *purchase)
	return true, nil
}

func (r *memRepo) DeletePurchase(ctx context.Context, userID, courseID uuid.UUID) error {
	defer r.lock()()
	for i, p := range r.st.purchases {
		if p.UserID == userID && p.CourseID == courseID {
			r.st.purchases = append(r.st.purchases[:i], r.st.purchases[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (r *memRepo) CreatePaymentSession(ctx context.Context, session *models.PaymentSession) error {
	defer r.lock()()
	if _, ok := r.st.sessions[session.SessionRef]; ok {
		return store.ErrDuplicate
	}
	session.ID = uuid.New()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	r.st.sessions[session.SessionRef] = *session
	return nil
}

func (r *memRepo) FindPaymentSession(ctx context.Context, sessionRef string) (*models.PaymentSession, error) {
	defer r.lock()()
	s, ok := r.st.sessions[sessionRef]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (r *memRepo) ListOpenSessionsBefore(ctx context.Context, before time.Time) ([]models.PaymentSession, error) {
	defer r.lock()()
	var out []models.PaymentSession
	for _, s := range r.st.sessions {
		if s.Status == models.SessionOpen && s.CreatedAt.Before(before) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memRepo) CountPaidSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	defer r.lock()()
	var n int64
	for _, s := range r.st.sessions {
		if s.UserID == userID && s.Status == models.SessionPaid {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) transitionSession(ref, to string, paidAt *time.Time) (bool, error) {
	defer r.lock()()
	s, ok := r.st.sessions[ref]
	if !ok || s.Status != models.SessionOpen {
		return false, nil
	}
	s.Status = to
	s.PaidAt = paidAt
	r.st.sessions[ref] = s
	return true, nil
}

func (r *memRepo) ClaimPaymentSession(ctx context.Context, sessionRef string, paidAt time.Time) (bool, error) {
	return r.transitionSession(sessionRef, models.SessionPaid, &paidAt)
}

func (r *memRepo) ExpirePaymentSession(ctx context.Context, sessionRef string) (bool, error) {
	return r.transitionSession(sessionRef, models.SessionExpired, nil)
}

func (r *memRepo) CreatePayoutRequest(ctx context.Context, req *models.PayoutRequest) error {
	defer r.lock()()
	for _, p := range r.st.payouts {
		if p.UserID == req.UserID && p.Status == models.PayoutPending && req.Status == models.PayoutPending {
			return store.ErrDuplicate
		}
	}
	req.ID = uuid.New()
	req.CreatedAt = time.Now()
	r.st.payouts[req.ID] = *req
	return nil
}

func (r *memRepo) HasPendingPayout(ctx context.Context, userID uuid.UUID) (bool, error) {
	defer r.lock()()
	for _, p := range r.st.payouts {
		if p.UserID == userID && p.Status == models.PayoutPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) LockPayoutRequest(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	defer r.lock()()
	p, ok := r.st.payouts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (r *memRepo) ResolvePayoutRequest(ctx context.Context, id uuid.UUID, status string, notes *string, at time.Time) error {
	defer r.lock()()
	p, ok := r.st.payouts[id]
	if !ok || p.Status != models.PayoutPending {
		return fmt.Errorf("payout request %s: %w", id, store.ErrNotFound)
	}
	p.Status = status
	p.AdminNotes = notes
	p.ProcessedAt = &at
	r.st.payouts[id] = p
	return nil
}

func (r *memRepo) ListPayoutRequests(ctx context.Context, filter store.PayoutFilter) ([]models.PayoutRequest, error) {
	defer r.lock()()
	out := []models.PayoutRequest{}
	for _, p := range r.st.payouts {
		if filter.UserID != nil && p.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memRepo) Stats(ctx context.Context) (store.Stats, error) {
	defer r.lock()()
	var s store.Stats
	s.TotalUsers = int64(len(r.st.users))
	for _, u := range r.st.users {
		if u.SubscriptionStatus == models.SubscriptionActive {
			s.ActiveSubscriptions++
		}
	}
	s.TotalCourses = int64(len(r.st.courses))
	for _, ps := range r.st.sessions {
		if ps.Status == models.SessionPaid {
			s.TotalPayments++
		}
	}
	for _, p := range r.st.payouts {
		if p.Status == models.PayoutPending {
			s.PendingPayouts++
		}
	}
	return s, nil
}

// test helpers

func (r *memRepo) user(id uuid.UUID) models.User {
	defer r.lock()()
	return r.st.users[id]
}

func (r *memRepo) session(ref string) models.PaymentSession {
	defer r.lock()()
	return r.st.sessions[ref]
}

func (r *memRepo) purchaseCount(userID uuid.UUID) int {
	defer r.lock()()
	n := 0
	for _, p := range r.st.purchases {
		if p.UserID == userID {
			n++
		}
	}
	return n
}

func (r *memRepo) payoutCount(userID uuid.UUID) int {
	defer r.lock()()
	n := 0
	for _, p := range r.st.payouts {
		if p.UserID == userID {
			n++
		}
	}
	return n
}

func (r *memRepo) addUser(u models.User) *models.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.AffiliateCode == "" {
		u.AffiliateCode = u.ID.String()[:8]
	}
	if u.Email == "" {
		u.Email = u.AffiliateCode + "@example.com"
	}
	if u.Role == "" {
		u.Role = models.RoleMember
	}
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = models.SubscriptionInactive
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	defer r.lock()()
	r.st.users[u.ID] = u
	return &u
}

func (r *memRepo) addCourse(c models.Course) *models.Course {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CourseType == "" {
		c.CourseType = models.CourseTypeSingle
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	defer r.lock()()
	r.st.courses[c.ID] = c
	return &c
}
