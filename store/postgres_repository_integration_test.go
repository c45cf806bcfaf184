//go:build integration

package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/course_academy/database"
	"github.com/anjiri1684/course_academy/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Run with: TEST_DATABASE_URL=postgres://... go test -tags integration ./store/
func newIntegrationRepo(t *testing.T) *PostgresRepository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.ConnectDB(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := database.Migrate(db, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewPostgresRepository(db)
}

func createTestUser(t *testing.T, r *PostgresRepository, balance string) *models.User {
	t.Helper()
	id := uuid.New()
	user := &models.User{
		ID:               id,
		FullName:         "Integration User",
		Email:            id.String() + "@example.com",
		Password:         "x",
		AffiliateCode:    strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:10]),
		AffiliateBalance: decimal.RequireFromString(balance),
	}
	if err := r.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() {
		r.db.Where("user_id = ?", id).Delete(&models.PayoutRequest{})
		r.db.Where("user_id = ?", id).Delete(&models.Purchase{})
		r.db.Where("user_id = ?", id).Delete(&models.PaymentSession{})
		r.db.Where("id = ?", id).Delete(&models.User{})
	})
	return user
}

func TestPostgresClaimPaymentSession_SingleWinner(t *testing.T) {
	r := newIntegrationRepo(t)
	ctx := context.Background()
	user := createTestUser(t, r, "0")

	ref := "cs_test_" + uuid.NewString()
	err := r.CreatePaymentSession(ctx, &models.PaymentSession{
		ID:         uuid.New(),
		SessionRef: ref,
		Provider:   "stripe",
		Intent:     "course:" + uuid.NewString(),
		UserID:     user.ID,
		Amount:     decimal.RequireFromString("30.00"),
		Currency:   "eur",
		Status:     models.SessionOpen,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := r.ClaimPaymentSession(ctx, ref, time.Now())
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			if won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one claim to win, got %d", wins)
	}
	if expired, err := r.ExpirePaymentSession(ctx, ref); err != nil || expired {
		t.Fatalf("a paid session must not expire, got %v %v", expired, err)
	}
}

func TestPostgresAdjustAffiliateBalance_NeverNegative(t *testing.T) {
	r := newIntegrationRepo(t)
	ctx := context.Background()
	user := createTestUser(t, r, "0")

	if err := r.AdjustAffiliateBalance(ctx, user.ID, decimal.RequireFromString("10.00"), decimal.RequireFromString("10.00")); err != nil {
		t.Fatalf("credit: %v", err)
	}
	err := r.AdjustAffiliateBalance(ctx, user.ID, decimal.RequireFromString("-10.01"), decimal.Zero)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := r.AdjustAffiliateBalance(ctx, user.ID, decimal.RequireFromString("-10.00"), decimal.Zero); err != nil {
		t.Fatalf("debit: %v", err)
	}

	got, err := r.FindUserByID(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.AffiliateBalance.IsZero() || !got.AffiliateTotalEarned.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("unexpected balances %s / %s", got.AffiliateBalance, got.AffiliateTotalEarned)
	}
}

func TestPostgresCreatePurchase_Idempotent(t *testing.T) {
	r := newIntegrationRepo(t)
	ctx := context.Background()
	user := createTestUser(t, r, "0")
	courseID := uuid.New()

	created, err := r.CreatePurchase(ctx, &models.Purchase{ID: uuid.New(), UserID: user.ID, CourseID: courseID, Source: "admin"})
	if err != nil || !created {
		t.Fatalf("first purchase: created=%v err=%v", created, err)
	}
	created, err = r.CreatePurchase(ctx, &models.Purchase{ID: uuid.New(), UserID: user.ID, CourseID: courseID, Source: "admin"})
	if err != nil || created {
		t.Fatalf("duplicate purchase: created=%v err=%v", created, err)
	}
}

func TestPostgresOnePendingPayoutPerUser(t *testing.T) {
	r := newIntegrationRepo(t)
	ctx := context.Background()
	user := createTestUser(t, r, "0")

	newRequest := func() *models.PayoutRequest {
		return &models.PayoutRequest{
			ID:      uuid.New(),
			UserID:  user.ID,
			Amount:  decimal.RequireFromString("50.00"),
			Method:  models.PayoutMethodPayPal,
			Details: "payee@example.com",
			Status:  models.PayoutPending,
		}
	}

	first := newRequest()
	if err := r.CreatePayoutRequest(ctx, first); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if err := r.CreatePayoutRequest(ctx, newRequest()); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for a second pending request, got %v", err)
	}

	if err := r.ResolvePayoutRequest(ctx, first.ID, models.PayoutCompleted, nil, time.Now()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := r.ResolvePayoutRequest(ctx, first.ID, models.PayoutRejected, nil, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a resolved request to stay resolved, got %v", err)
	}
	if err := r.CreatePayoutRequest(ctx, newRequest()); err != nil {
		t.Fatalf("request after resolution: %v", err)
	}
}
