package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/utils"
)

// ReferralSignupPoints is credited to a user whose referral code is used
const ReferralSignupPoints = 50

const referralCodeAttempts = 3

// TokenIssuer signs an access token for a user
type TokenIssuer func(user *models.User) (string, error)

type AuthService struct {
	users   UserStore
	loyalty *LoyaltyService
	karma   *KarmaService
	issue   TokenIssuer

	Now func() time.Time
}

func NewAuthService(users UserStore, loyalty *LoyaltyService, karma *KarmaService, issue TokenIssuer) *AuthService {
	return &AuthService{users: users, loyalty: loyalty, karma: karma, issue: issue, Now: systemNow}
}

// Signup creates an account. A referral code from another user credits
// that user with points and karma.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	if req.UserType == models.UserTypeAdmin {
		return nil, ErrForbidden
	}
	phone, err := utils.SanitizePhone(req.Phone)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var referrer *models.User
	if req.ReferralCode != "" {
		referrer, err = s.users.FindByReferralCode(ctx, utils.NormalizeCode(req.ReferralCode))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, invalid("unknown referral code")
			}
			return nil, err
		}
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	user := &models.User{
		Email:               email,
		Password:            hashed,
		FullName:            utils.SanitizeInput(req.FullName),
		UserType:            req.UserType,
		Phone:               phone,
		IsActive:            true,
		LoyaltyTier:         LoyaltyTiers[0].Name,
		KarmaLastActivityAt: now,
		SubscriptionTier:    models.TierFree,
		AppAccountToken:     uuid.New().String(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if referrer != nil {
		user.ReferredBy = &referrer.ID
	}
	for attempt := 0; ; attempt++ {
		user.ReferralCode, err = utils.GenerateReferralCode(utils.UserCode)
		if err == nil {
			err = s.users.Create(ctx, user)
		}
		if err == nil || !errors.Is(err, ErrConflict) || attempt+1 >= referralCodeAttempts {
			break
		}
		// a conflict on email means a concurrent signup won
		if _, ferr := s.users.FindByEmail(ctx, email); ferr == nil {
			return nil, ErrConflict
		}
	}
	if err != nil {
		return nil, err
	}

	if referrer != nil {
		s.creditReferrer(ctx, referrer.ID, user.ID)
	}
	return s.respond(user)
}

func (s *AuthService) creditReferrer(ctx context.Context, referrerID, newUserID primitive.ObjectID) {
	_, err := s.loyalty.Credit(ctx, referrerID, nil, models.TxBonus, ReferralSignupPoints, "Referral signup bonus", newUserID.Hex())
	logIfErr(err, "Failed to credit referral bonus to user %s", referrerID.Hex())
	logIfErr(s.karma.Reward(ctx, referrerID, KarmaForReferral, "referred a new member"),
		"Failed to award referral karma to user %s", referrerID.Hex())
}

// Login checks credentials and issues a token
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(user.Password, req.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrForbidden
	}
	return s.respond(user)
}

func (s *AuthService) respond(user *models.User) (*models.AuthResponse, error) {
	token, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return &models.AuthResponse{Token: token, User: *user}, nil
}

// Me returns the caller's profile without the password hash
func (s *AuthService) Me(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

func (s *AuthService) SetFCMToken(ctx context.Context, userID primitive.ObjectID, token string) error {
	return s.users.SetFCMToken(ctx, userID, strings.TrimSpace(token))
}
