package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository implements the repositories.NotificationRepository interface
type NotificationRepository struct {
	collection *mongo.Collection
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *mongo.Database) repositories.NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
	}
}

// Create appends a notification to the outbox
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = now
	}
	notification.UpdatedAt = now
	if notification.Status == "" {
		notification.Status = models.NotificationStatusPending
	}
	_, err := r.collection.InsertOne(ctx, notification)
	return err
}

// FindByID finds a notification by ID
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	var notification models.Notification
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&notification)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &notification, nil
}

// FindPending returns the oldest undelivered notifications
func (r *NotificationRepository) FindPending(ctx context.Context, limit int) ([]*models.Notification, error) {
	opts := options.Find().
		SetSort(bson.M{"createdAt": 1}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{"status": models.NotificationStatusPending}, opts)
}

// FindByReference lists the notifications produced for one order
func (r *NotificationRepository) FindByReference(ctx context.Context, raffleID, reference string) ([]*models.Notification, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": 1})
	return r.find(ctx, bson.M{"raffleId": raffleID, "reference": reference}, opts)
}

// UpdateStatus records a delivery attempt
func (r *NotificationRepository) UpdateStatus(ctx context.Context, id, status, gateway, messageID, statusMessage string) error {
	now := time.Now().UTC()
	set := bson.M{
		"status":        status,
		"gateway":       gateway,
		"messageId":     messageID,
		"statusMessage": statusMessage,
		"updatedAt":     now,
	}
	if status == models.NotificationStatusSent {
		set["sentAt"] = now
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": set,
		"$inc": bson.M{"attempts": 1},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Notification, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []*models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}
