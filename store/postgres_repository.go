package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anjiri1684/course_academy/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *PostgresRepository) findUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *PostgresRepository) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.findUser(ctx, "id = ?", id)
}

func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findUser(ctx, "lower(email) = lower(?)", email)
}

func (r *PostgresRepository) FindUserByAffiliateCode(ctx context.Context, code string) (*models.User, error) {
	return r.findUser(ctx, "affiliate_code = ?", code)
}

func (r *PostgresRepository) AffiliateCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("affiliate_code = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *PostgresRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Order("created_at desc").Find(&users).Error
	return users, err
}

func (r *PostgresRepository) LockUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *PostgresRepository) SetSubscription(ctx context.Context, userID uuid.UUID, status string, plan *string) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]any{"subscription_status": status, "subscription_plan": plan})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, userID uuid.UUID, fullName string, passwordHash *string) error {
	updates := map[string]any{"full_name": fullName}
	if passwordHash != nil {
		updates["password"] = *passwordHash
	}
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SetReferrer(ctx context.Context, userID uuid.UUID, code string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND referred_by IS NULL", userID).
		Updates(map[string]any{"referred_by": code, "referred_at": at})
	return result.RowsAffected == 1, result.Error
}

func (r *PostgresRepository) SetPayoutMethod(ctx context.Context, userID uuid.UUID, method, details string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]any{"payout_method": method, "payout_details": details}).Error
}

func (r *PostgresRepository) AdjustAffiliateBalance(ctx context.Context, userID uuid.UUID, balanceDelta, earned decimal.Decimal) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND affiliate_balance + ? >= 0", userID, balanceDelta).
		Updates(map[string]any{
			"affiliate_balance":      gorm.Expr("affiliate_balance + ?", balanceDelta),
			"affiliate_total_earned": gorm.Expr("affiliate_total_earned + ?", earned),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func (r *PostgresRepository) MarkCommissionPaid(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Update("commission_paid", true).Error
}

func (r *PostgresRepository) CreateReferral(ctx context.Context, referral *models.Referral) error {
	return translate(r.db.WithContext(ctx).Create(referral).Error)
}

func (r *PostgresRepository) CompleteReferral(ctx context.Context, referredUserID uuid.UUID, reward decimal.Decimal, sessionRef string) error {
	return r.db.WithContext(ctx).Model(&models.Referral{}).
		Where("referred_user_id = ? AND status = ?", referredUserID, models.ReferralPending).
		Updates(map[string]any{
			"status":        models.ReferralCompleted,
			"reward_amount": reward,
			"session_ref":   sessionRef,
		}).Error
}

func (r *PostgresRepository) CountReferrals(ctx context.Context, referrerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Referral{}).Where("referrer_id = ?", referrerID).Count(&count).Error
	return count, err
}

func (r *PostgresRepository) ListCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	err := r.db.WithContext(ctx).Order(`"order" asc`).Order("created_at asc").Find(&courses).Error
	return courses, err
}

func (r *PostgresRepository) FindCourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &course, nil
}

func (r *PostgresRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	return translate(r.db.WithContext(ctx).Create(course).Error)
}

func (r *PostgresRepository) UpdateCourse(ctx context.Context, course *models.Course) error {
	return translate(r.db.WithContext(ctx).Save(course).Error)
}

func (r *PostgresRepository) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", id).Delete(&models.Lesson{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Course{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *PostgresRepository) ListLessons(ctx context.Context, courseID uuid.UUID) ([]models.Lesson, error) {
	var lessons []models.Lesson
	err := r.db.WithContext(ctx).Where("course_id = ?", courseID).
		Order(`"order" asc`).Order("created_at asc").Find(&lessons).Error
	return lessons, err
}

func (r *PostgresRepository) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	return translate(r.db.WithContext(ctx).Create(lesson).Error)
}

func (r *PostgresRepository) UpdateLesson(ctx context.Context, lesson *models.Lesson) error {
	result := r.db.WithContext(ctx).Model(&models.Lesson{}).Where("id = ?", lesson.ID).
		Updates(map[string]any{"title": lesson.Title, "video_url": lesson.VideoURL, "order": lesson.Order})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteLesson(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Lesson{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) FindShopProductByID(ctx context.Context, id uuid.UUID) (*models.ShopProduct, error) {
	var product models.ShopProduct
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *PostgresRepository) ListShopProducts(ctx context.Context) ([]models.ShopProduct, error) {
	var products []models.ShopProduct
	err := r.db.WithContext(ctx).Order(`"order" asc`).Find(&products).Error
	return products, err
}

func (r *PostgresRepository) CreateShopProduct(ctx context.Context, product *models.ShopProduct) error {
	return translate(r.db.WithContext(ctx).Create(product).Error)
}

func (r *PostgresRepository) UpdateShopProduct(ctx context.Context, product *models.ShopProduct) error {
	return translate(r.db.WithContext(ctx).Save(product).Error)
}

func (r *PostgresRepository) DeleteShopProduct(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ShopProduct{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListPurchasedCourseIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Pluck("course_id", &ids).Error
	return ids, err
}

func (r *PostgresRepository) HasPurchase(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).Count(&count).Error
	return count > 0, err
}

func (r *PostgresRepository) CreatePurchase(ctx context.Context, purchase *models.Purchase) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(purchase)
	return result.RowsAffected == 1, result.Error
}

func (r *PostgresRepository) DeletePurchase(ctx context.Context, userID, courseID uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID).Delete(&models.Purchase{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) CreatePaymentSession(ctx context.Context, session *models.PaymentSession) error {
	return translate(r.db.WithContext(ctx).Create(session).Error)
}

func (r *PostgresRepository) FindPaymentSession(ctx context.Context, sessionRef string) (*models.PaymentSession, error) {
	var session models.PaymentSession
	if err := r.db.WithContext(ctx).First(&session, "session_ref = ?", sessionRef).Error; err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (r *PostgresRepository) ListOpenSessionsBefore(ctx context.Context, before time.Time) ([]models.PaymentSession, error) {
	var sessions []models.PaymentSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.SessionOpen, before).
		Order("created_at asc").
		Limit(200).
		Find(&sessions).Error
	return sessions, err
}

func (r *PostgresRepository) CountPaidSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PaymentSession{}).
		Where("user_id = ? AND status = ?", userID, models.SessionPaid).Count(&count).Error
	return count, err
}

func (r *PostgresRepository) ClaimPaymentSession(ctx context.Context, sessionRef string, paidAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.PaymentSession{}).
		Where("session_ref = ? AND status = ?", sessionRef, models.SessionOpen).
		Updates(map[string]any{"status": models.SessionPaid, "paid_at": paidAt})
	return result.RowsAffected == 1, result.Error
}

func (r *PostgresRepository) ExpirePaymentSession(ctx context.Context, sessionRef string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.PaymentSession{}).
		Where("session_ref = ? AND status = ?", sessionRef, models.SessionOpen).
		Update("status", models.SessionExpired)
	return result.RowsAffected == 1, result.Error
}

func (r *PostgresRepository) CreatePayoutRequest(ctx context.Context, req *models.PayoutRequest) error {
	return translate(r.db.WithContext(ctx).Create(req).Error)
}

func (r *PostgresRepository) HasPendingPayout(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PayoutRequest{}).
		Where("user_id = ? AND status = ?", userID, models.PayoutPending).Count(&count).Error
	return count > 0, err
}

func (r *PostgresRepository) LockPayoutRequest(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	var req models.PayoutRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *PostgresRepository) ResolvePayoutRequest(ctx context.Context, id uuid.UUID, status string, notes *string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.PayoutRequest{}).
		Where("id = ? AND status = ?", id, models.PayoutPending).
		Updates(map[string]any{"status": status, "admin_notes": notes, "processed_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("payout request %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) ListPayoutRequests(ctx context.Context, filter PayoutFilter) ([]models.PayoutRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.PayoutRequest{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	var requests []models.PayoutRequest
	err := query.Order("created_at desc").Find(&requests).Error
	return requests, err
}

func (r *PostgresRepository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.User{}).Count(&s.TotalUsers).Error; err != nil {
		return s, err
	}
	if err := db.Model(&models.User{}).Where("subscription_status = ?", models.SubscriptionActive).Count(&s.ActiveSubscriptions).Error; err != nil {
		return s, err
	}
	if err := db.Model(&models.Course{}).Count(&s.TotalCourses).Error; err != nil {
		return s, err
	}
	if err := db.Model(&models.PaymentSession{}).Where("status = ?", models.SessionPaid).Count(&s.TotalPayments).Error; err != nil {
		return s, err
	}
	err := db.Model(&models.PayoutRequest{}).Where("status = ?", models.PayoutPending).Count(&s.PendingPayouts).Error
	return s, err
}
