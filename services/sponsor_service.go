package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/utils"
)

// SponsorTiers is ordered from lowest to highest
var SponsorTiers = []models.SponsorTier{
	{
		Name: models.SponsorBronze, MonthlyPriceCents: 50000, FeaturedLimit: 1, Placement: "footer", Rank: 1,
		Benefits: []string{"Logo in site footer", "1 featured business"},
	},
	{
		Name: models.SponsorSilver, MonthlyPriceCents: 150000, FeaturedLimit: 3, Placement: "directory", Rank: 2,
		Benefits: []string{"Directory banner", "3 featured businesses", "Quarterly newsletter mention"},
	},
	{
		Name: models.SponsorGold, MonthlyPriceCents: 500000, FeaturedLimit: 10, Placement: "homepage", Rank: 3,
		Benefits: []string{"Homepage placement", "10 featured businesses", "Monthly newsletter mention"},
	},
	{
		Name: models.SponsorPlatinum, MonthlyPriceCents: 1500000, FeaturedLimit: 25, Placement: "homepage_hero", Rank: 4,
		Benefits: []string{"Homepage hero", "25 featured businesses", "Annual impact report", "Event co-branding"},
	},
}

// SponsorTierByName returns the tier or false
func SponsorTierByName(name string) (models.SponsorTier, bool) {
	for _, t := range SponsorTiers {
		if t.Name == name {
			return t, true
		}
	}
	return models.SponsorTier{}, false
}

type SponsorService struct {
	sponsors   SponsorStore
	businesses BusinessStore

	Now func() time.Time
}

func NewSponsorService(sponsors SponsorStore, businesses BusinessStore) *SponsorService {
	return &SponsorService{sponsors: sponsors, businesses: businesses, Now: systemNow}
}

// Create registers a pending sponsor profile; it activates once the
// sponsor's subscription is paid
func (s *SponsorService) Create(ctx context.Context, actor Actor, req models.SponsorRequest) (*models.SponsorProfile, error) {
	if _, ok := SponsorTierByName(req.Tier); !ok {
		return nil, invalid("unknown sponsor tier %q", req.Tier)
	}
	if _, err := s.sponsors.FindByUserID(ctx, actor.ID); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	email, err := utils.SanitizeEmail(req.ContactEmail)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}

	now := s.Now()
	profile := &models.SponsorProfile{
		UserID:              actor.ID,
		CompanyName:         utils.SanitizeInput(req.CompanyName),
		LogoURL:             req.LogoURL,
		Website:             req.Website,
		ContactEmail:        email,
		Tier:                req.Tier,
		Status:              models.SponsorStatusPending,
		FeaturedBusinessIDs: []primitive.ObjectID{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.sponsors.Insert(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *SponsorService) Mine(ctx context.Context, actor Actor) (*models.SponsorProfile, error) {
	return s.sponsors.FindByUserID(ctx, actor.ID)
}

// ListActive orders active sponsors by tier, highest first, then by name
func (s *SponsorService) ListActive(ctx context.Context) ([]models.SponsorProfile, error) {
	sponsors, err := s.sponsors.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	rank := func(tier string) int {
		t, _ := SponsorTierByName(tier)
		return t.Rank
	}
	sort.SliceStable(sponsors, func(i, j int) bool {
		ri, rj := rank(sponsors[i].Tier), rank(sponsors[j].Tier)
		if ri != rj {
			return ri > rj
		}
		return sponsors[i].CompanyName < sponsors[j].CompanyName
	})
	return sponsors, nil
}

// SetFeatured replaces the businesses an active sponsor features
func (s *SponsorService) SetFeatured(ctx context.Context, actor Actor, req models.FeaturedBusinessesRequest) (*models.SponsorProfile, error) {
	profile, err := s.sponsors.FindByUserID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if profile.Status != models.SponsorStatusActive {
		return nil, invalid("sponsorship is not active")
	}
	tier, _ := SponsorTierByName(profile.Tier)

	seen := make(map[primitive.ObjectID]bool, len(req.BusinessIDs))
	ids := make([]primitive.ObjectID, 0, len(req.BusinessIDs))
	for _, hex := range req.BusinessIDs {
		id, err := parseObjectID(hex, "businessIds")
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.businesses.FindByID(ctx, id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) > tier.FeaturedLimit {
		return nil, ErrFeaturedOverflow
	}

	now := s.Now()
	if err := s.sponsors.SetFeatured(ctx, profile.ID, ids, now); err != nil {
		return nil, err
	}
	profile.FeaturedBusinessIDs = ids
	profile.UpdatedAt = now
	return profile, nil
}
