package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/utils"
)

const maxSlugAttempts = 50

// BusinessReferrer attaches a sales agent to a newly listed business
type BusinessReferrer interface {
	AttachBusiness(ctx context.Context, businessID primitive.ObjectID, agentCode string) (*models.BusinessReferral, error)
}

type BusinessService struct {
	businesses    BusinessStore
	verifications VerificationStore
	referrer      BusinessReferrer
	notifier      Notifier

	// SaveLogo persists a processed logo and returns its URL
	SaveLogo func(filename string, data []byte) (string, error)
	Now      func() time.Time
}

func NewBusinessService(businesses BusinessStore, verifications VerificationStore, referrer BusinessReferrer, notifier Notifier) *BusinessService {
	return &BusinessService{
		businesses:    businesses,
		verifications: verifications,
		referrer:      referrer,
		notifier:      orNopNotifier(notifier),
		SaveLogo: func(filename string, data []byte) (string, error) {
			return utils.SaveUpload("logos", filename, data)
		},
		Now: systemNow,
	}
}

func applyBusinessRequest(b *models.Business, req models.BusinessRequest) error {
	phone, err := utils.SanitizePhone(req.Phone)
	if err != nil {
		return invalid("%s", err.Error())
	}
	email := ""
	if req.Email != "" {
		if email, err = utils.SanitizeEmail(req.Email); err != nil {
			return invalid("%s", err.Error())
		}
	}
	b.Name = utils.SanitizeInput(req.Name)
	b.Description = utils.SanitizeInput(req.Description)
	b.Category = strings.ToLower(strings.TrimSpace(req.Category))
	b.Address = utils.SanitizeInput(req.Address)
	b.City = utils.SanitizeInput(req.City)
	b.State = utils.SanitizeInput(req.State)
	b.ZipCode = utils.SanitizeInput(req.ZipCode)
	b.Phone = phone
	b.Website = req.Website
	b.Email = email
	b.Lat = req.Lat
	b.Lng = req.Lng
	return nil
}

// uniqueSlug appends -2, -3, ... until the slug is free
func (s *BusinessService) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := utils.Slugify(name)
	slug := base
	for n := 2; n <= maxSlugAttempts+1; n++ {
		taken, err := s.businesses.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
	return "", ErrConflict
}

// Create lists a new business owned by the actor. A valid agent code links
// the business to the referring agent.
func (s *BusinessService) Create(ctx context.Context, actor Actor, req models.BusinessRequest) (*models.Business, error) {
	if actor.UserType != models.UserTypeBusiness && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	now := s.Now()
	b := &models.Business{
		OwnerID:          actor.ID,
		IsActive:         true,
		SubscriptionTier: models.TierFree,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := applyBusinessRequest(b, req); err != nil {
		return nil, err
	}
	// Slugs come from the raw name; the stored name is HTML-escaped
	slug, err := s.uniqueSlug(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	b.Slug = slug
	if err := s.businesses.Insert(ctx, b); err != nil {
		return nil, err
	}

	if req.AgentCode != "" && s.referrer != nil {
		if _, err := s.referrer.AttachBusiness(ctx, b.ID, req.AgentCode); err != nil {
			// the listing stands even if the code is bad
			logIfErr(err, "Failed to attach agent code %q to business %s", req.AgentCode, b.ID.Hex())
		}
	}
	return b, nil
}

func (s *BusinessService) Update(ctx context.Context, actor Actor, id primitive.ObjectID, req models.BusinessRequest) (*models.Business, error) {
	b, err := ownedBusiness(ctx, s.businesses, actor, id)
	if err != nil {
		return nil, err
	}
	oldName := b.Name
	if err := applyBusinessRequest(b, req); err != nil {
		return nil, err
	}
	if b.Name != oldName {
		if b.Slug, err = s.uniqueSlug(ctx, req.Name); err != nil {
			return nil, err
		}
	}
	b.UpdatedAt = s.Now()
	if err := s.businesses.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Get looks a business up by id or slug
func (s *BusinessService) Get(ctx context.Context, idOrSlug string) (*models.Business, error) {
	if id, err := primitive.ObjectIDFromHex(idOrSlug); err == nil {
		return s.businesses.FindByID(ctx, id)
	}
	return s.businesses.FindBySlug(ctx, strings.ToLower(idOrSlug))
}

// List pages through the directory; featured businesses come first
func (s *BusinessService) List(ctx context.Context, category, city, query string, page, limit int) (*models.Page, error) {
	skip, size := pageBounds(page, limit)
	items, total, err := s.businesses.List(ctx, models.BusinessFilter{
		Category: strings.ToLower(strings.TrimSpace(category)),
		City:     strings.TrimSpace(city),
		Query:    strings.TrimSpace(query),
		Skip:     skip,
		Limit:    size,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Business{}
	}
	return &models.Page{Items: items, Total: total, Page: int(skip/size) + 1, Limit: int(size)}, nil
}

func (s *BusinessService) Mine(ctx context.Context, actor Actor) ([]models.Business, error) {
	return s.businesses.ListByOwner(ctx, actor.ID)
}

// UploadLogo validates, squares and stores a business logo
func (s *BusinessService) UploadLogo(ctx context.Context, actor Actor, id primitive.ObjectID, filename string, size int64, r io.Reader) (string, error) {
	if _, err := ownedBusiness(ctx, s.businesses, actor, id); err != nil {
		return "", err
	}
	if err := utils.ValidateImageFile(filename, size); err != nil {
		return "", invalid("%s", err.Error())
	}
	data, err := utils.ProcessLogo(r)
	if err != nil {
		return "", invalid("%s", err.Error())
	}
	url, err := s.SaveLogo(fmt.Sprintf("%s-%s.png", id.Hex(), uuid.New().String()[:8]), data)
	if err != nil {
		return "", err
	}
	if err := s.businesses.SetLogo(ctx, id, url); err != nil {
		return "", err
	}
	return url, nil
}

// SubmitVerification files ownership documents for admin review
func (s *BusinessService) SubmitVerification(ctx context.Context, actor Actor, id primitive.ObjectID, req models.VerificationRequest) (*models.BusinessVerification, error) {
	b, err := ownedBusiness(ctx, s.businesses, actor, id)
	if err != nil {
		return nil, err
	}
	if b.IsVerified {
		return nil, invalid("business is already verified")
	}
	v := &models.BusinessVerification{
		BusinessID:      b.ID,
		SubmittedBy:     actor.ID,
		BusinessLicense: utils.SanitizeInput(req.BusinessLicense),
		TaxID:           utils.SanitizeInput(req.TaxID),
		OwnershipDocURL: req.OwnershipDocURL,
		Status:          models.VerificationPending,
		CreatedAt:       s.Now(),
	}
	if err := s.verifications.Insert(ctx, v); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, invalid("a verification is already pending")
		}
		return nil, err
	}
	return v, nil
}

func (s *BusinessService) PendingVerifications(ctx context.Context, actor Actor) ([]models.BusinessVerification, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.verifications.ListPending(ctx)
}

// DecideVerification approves or rejects a pending verification
func (s *BusinessService) DecideVerification(ctx context.Context, actor Actor, id primitive.ObjectID, decision models.VerificationDecision) (*models.BusinessVerification, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	v, err := s.verifications.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.Status != models.VerificationPending {
		return nil, invalid("verification was already decided")
	}
	status := models.VerificationRejected
	if decision.Approve {
		status = models.VerificationApproved
	}
	now := s.Now()
	notes := utils.SanitizeInput(decision.Notes)
	if err := s.verifications.Decide(ctx, v.ID, status, notes, actor.ID, now); err != nil {
		return nil, err
	}
	if err := s.businesses.SetVerified(ctx, v.BusinessID, decision.Approve); err != nil {
		return nil, err
	}
	v.Status = status
	v.AdminNotes = notes
	v.ReviewedBy = &actor.ID
	v.ReviewedAt = &now

	s.notifier.Notify(ctx, v.SubmittedBy, models.NotificationVerification, "Verification "+status,
		"Your business verification was "+status, map[string]interface{}{"businessId": v.BusinessID.Hex(), "status": status})
	return v, nil
}
