package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tablemeet/venue-scheduler/internal/domain"
	"github.com/tablemeet/venue-scheduler/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CatalogRepository is the read side: venue documents with operating hours
// and party profiles. Both are owned by other systems; this core never
// writes them.
type CatalogRepository struct {
	venues   *mongo.Collection
	profiles *mongo.Collection
	logger   observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		venues:   db.Collection("venues"),
		profiles: db.Collection("profiles"),
		logger:   logger,
	}
}

type VenueDoc struct {
	ID       uuid.UUID `bson:"_id"`
	Name     string    `bson:"name"`
	Address  string    `bson:"address"`
	OpensAt  string    `bson:"opens_at"`
	ClosesAt string    `bson:"closes_at"`
	Timezone string    `bson:"timezone"`
}

type ProfileDoc struct {
	ID          uuid.UUID `bson:"_id"`
	Email       string    `bson:"email"`
	CalendarRef string    `bson:"calendar_ref,omitempty"`
	Verified    bool      `bson:"verified"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (c *CatalogRepository) GetVenue(ctx context.Context, id uuid.UUID) (domain.Venue, error) {
	var venue VenueDoc
	err := c.venues.FindOne(ctx, bson.M{"_id": id}).Decode(&venue)
	if err == mongo.ErrNoDocuments {
		return domain.Venue{}, domain.ErrNotFound
	}
	if err != nil {
		c.logger.WithField("venue_id", id).Error("failed to get venue", err)
		return domain.Venue{}, err
	}
	return domain.Venue{
		ID:       venue.ID,
		Name:     venue.Name,
		Address:  venue.Address,
		Hours:    domain.VenueHours{OpensAt: venue.OpensAt, ClosesAt: venue.ClosesAt},
		Timezone: venue.Timezone,
	}, nil
}

// VenueHours returns the venue's operating window. A missing venue record
// yields zero-value hours rather than an error; the resolver substitutes a
// generous all-day default.
func (c *CatalogRepository) VenueHours(ctx context.Context, id uuid.UUID) (domain.VenueHours, error) {
	var venue VenueDoc
	err := c.venues.FindOne(ctx, bson.M{"_id": id}).Decode(&venue)
	if err == mongo.ErrNoDocuments {
		return domain.VenueHours{}, nil
	}
	if err != nil {
		return domain.VenueHours{}, err
	}
	return domain.VenueHours{OpensAt: venue.OpensAt, ClosesAt: venue.ClosesAt}, nil
}

func (c *CatalogRepository) PartyProfile(ctx context.Context, partyID uuid.UUID) (domain.Profile, error) {
	var doc ProfileDoc
	err := c.profiles.FindOne(ctx, bson.M{"_id": partyID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return domain.Profile{}, domain.ErrNotFound
	}
	if err != nil {
		c.logger.WithField("party_id", partyID).Error("failed to get profile", err)
		return domain.Profile{}, err
	}
	return domain.Profile{
		PartyID:     doc.ID,
		Email:       doc.Email,
		CalendarRef: doc.CalendarRef,
		Verified:    doc.Verified,
	}, nil
}
