package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DrawRepository implements the repositories.DrawRepository interface
type DrawRepository struct {
	collection *mongo.Collection
}

// NewDrawRepository creates a new DrawRepository
func NewDrawRepository(db *mongo.Database) repositories.DrawRepository {
	return &DrawRepository{
		collection: db.Collection("draws"),
	}
}

// Create creates a new draw. The unique (raffleId, prizeId) index rejects a
// second winner for the same prize.
func (r *DrawRepository) Create(ctx context.Context, draw *models.Draw) error {
	if draw.ID == "" {
		draw.ID = primitive.NewObjectID().Hex()
	}
	if draw.CreatedAt.IsZero() {
		draw.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, draw)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrAlreadyExists
	}
	return err
}

// FindByID finds a draw by ID
func (r *DrawRepository) FindByID(ctx context.Context, id string) (*models.Draw, error) {
	var draw models.Draw
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&draw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &draw, nil
}

// FindByRaffle lists the draws of a raffle in the order they happened
func (r *DrawRepository) FindByRaffle(ctx context.Context, raffleID string) ([]*models.Draw, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"raffleId": raffleID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	draws := []*models.Draw{}
	if err := cursor.All(ctx, &draws); err != nil {
		return nil, err
	}
	return draws, nil
}

// Delete deletes a draw by ID
func (r *DrawRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// MarkAnnounced flags a draw as published to buyers
func (r *DrawRepository) MarkAnnounced(ctx context.Context, id string, at time.Time) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"announced": true, "announcedAt": at},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
