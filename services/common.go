package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mansamusa/marketplace_backend/models"
)

// Actor is the authenticated caller of an operation
type Actor struct {
	ID       primitive.ObjectID
	UserType string
}

func (a Actor) IsAdmin() bool { return a.UserType == models.UserTypeAdmin }

// Notifier delivers in-app, realtime and push notifications. Delivery is
// best effort and never fails the calling operation.
type Notifier interface {
	Notify(ctx context.Context, userID primitive.ObjectID, notifType, title, message string, data map[string]interface{})
}

// Tracker records product analytics events
type Tracker interface {
	Track(distinctID, event string, properties map[string]interface{})
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, primitive.ObjectID, string, string, string, map[string]interface{}) {
}

type nopTracker struct{}

func (nopTracker) Track(string, string, map[string]interface{}) {}

func orNopNotifier(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func orNopTracker(t Tracker) Tracker {
	if t == nil {
		return nopTracker{}
	}
	if pt, ok := t.(*PostHogTracker); ok && pt == nil {
		return nopTracker{}
	}
	return t
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pageBounds turns 1-based page/limit query values into skip/limit
func pageBounds(page, limit int) (int64, int64) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return int64((page - 1) * limit), int64(limit)
}

// ownedBusiness loads a business and checks the actor may manage it
func ownedBusiness(ctx context.Context, store BusinessStore, actor Actor, id primitive.ObjectID) (*models.Business, error) {
	business, err := store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if business.OwnerID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return business, nil
}

func parseObjectID(hex, field string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, invalid("%s is not a valid id", field)
	}
	return id, nil
}

func logIfErr(err error, format string, args ...interface{}) {
	if err != nil {
		log.Printf(format+": %v", append(args, err)...)
	}
}

func systemNow() time.Time { return time.Now().UTC() }
