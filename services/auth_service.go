package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anjiri1684/course_academy/models"
	"github.com/anjiri1684/course_academy/store"
	"github.com/anjiri1684/course_academy/utils"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthConfig struct {
	JWTSecret     string
	JWTExpiration time.Duration
}

type AuthService struct {
	repo       store.Repository
	affiliates *AffiliateService
	captcha    CaptchaVerifier
	cfg        AuthConfig
	log        *zap.Logger
	now        func() time.Time
}

func NewAuthService(repo store.Repository, affiliates *AffiliateService, captcha CaptchaVerifier, cfg AuthConfig, log *zap.Logger) *AuthService {
	return &AuthService{
		repo:       repo,
		affiliates: affiliates,
		captcha:    captcha,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

type RegisterInput struct {
	FullName     string
	Email        string
	Password     string
	CaptchaToken string
	RemoteIP     string

	// ReferralCode is an affiliate code captured before registration.
	ReferralCode       string
	ReferralCapturedAt *time.Time
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *AuthService) IssueToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"role":    user.Role,
		"exp":     s.now().Add(s.cfg.JWTExpiration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ParseToken verifies a bearer token and returns the user it was issued to.
func (s *AuthService) ParseToken(raw string) (uuid.UUID, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidCredentials
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidCredentials
	}
	raw, _ = claims["user_id"].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidCredentials
	}
	return id, nil
}

func (s *AuthService) newUser(ctx context.Context, fullName, email, password, role string) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	code, err := utils.GenerateUniqueAffiliateCode(ctx, s.repo.AffiliateCodeExists)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		FullName:           strings.TrimSpace(fullName),
		Email:              strings.ToLower(strings.TrimSpace(email)),
		Password:           string(hashed),
		Role:               role,
		SubscriptionStatus: models.SubscriptionInactive,
		AffiliateCode:      code,
		CreatedAt:          s.now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// Register creates a member account. A captured referral code is committed
// in the same call; a stale or unknown code never fails registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if s.captcha != nil {
		if err := s.captcha.Verify(ctx, in.CaptchaToken, in.RemoteIP); err != nil {
			s.log.Info("captcha rejected", zap.String("email", in.Email), zap.Error(err))
			return nil, ErrCaptchaFailed
		}
	}

	_, err := s.repo.FindUserByEmail(ctx, in.Email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	user, err := s.newUser(ctx, in.FullName, in.Email, in.Password, models.RoleMember)
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", user.ID.String()))

	if in.ReferralCode != "" && s.affiliates != nil {
		capturedAt := user.CreatedAt
		if in.ReferralCapturedAt != nil {
			capturedAt = *in.ReferralCapturedAt
		}
		if _, err := s.affiliates.CommitReferrer(ctx, user, in.ReferralCode, capturedAt, user.CreatedAt); err != nil {
			s.log.Error("failed to commit referral", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.repo.FindUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

type ProfileInput struct {
	FullName        *string
	CurrentPassword string
	NewPassword     string
}

// UpdateProfile changes the caller's display name and password. A new
// password is only accepted together with the current one.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*models.User, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	name := user.FullName
	if in.FullName != nil {
		name = strings.TrimSpace(*in.FullName)
	}

	var hash *string
	if in.NewPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.CurrentPassword)); err != nil {
			return nil, ErrInvalidCredentials
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		h := string(hashed)
		hash = &h
	}

	if err := s.repo.UpdateProfile(ctx, userID, name, hash); err != nil {
		return nil, err
	}
	return s.Me(ctx, userID)
}

// EnsureAdmin creates the bootstrap admin account if no user holds email yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, fullName, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := s.repo.FindUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	user, err := s.newUser(ctx, fullName, email, password, models.RoleAdmin)
	if err != nil {
		return err
	}
	s.log.Info("admin account created", zap.String("user_id", user.ID.String()))
	return nil
}
