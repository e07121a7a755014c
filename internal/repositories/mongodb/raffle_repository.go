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
)

// RaffleRepository implements the repositories.RaffleRepository interface
type RaffleRepository struct {
	collection *mongo.Collection
}

// NewRaffleRepository creates a new RaffleRepository
func NewRaffleRepository(db *mongo.Database) repositories.RaffleRepository {
	return &RaffleRepository{
		collection: db.Collection("raffles"),
	}
}

// Create creates a new raffle
func (r *RaffleRepository) Create(ctx context.Context, raffle *models.Raffle) error {
	if raffle.ID == "" {
		raffle.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	raffle.CreatedAt = now
	raffle.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, raffle)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrAlreadyExists
	}
	return err
}

// FindByID finds a raffle by ID
func (r *RaffleRepository) FindByID(ctx context.Context, id string) (*models.Raffle, error) {
	var raffle models.Raffle
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&raffle)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &raffle, nil
}

// UpdateStatus updates only the lifecycle status of a raffle
func (r *RaffleRepository) UpdateStatus(ctx context.Context, id string, status models.RaffleStatus) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// CountByOrganization counts the raffles an organization has created
func (r *RaffleRepository) CountByOrganization(ctx context.Context, orgID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"organizationId": orgID})
}
