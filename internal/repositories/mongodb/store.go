package mongodb

import (
	"context"
	"fmt"

	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the stores rely on. The unique
// (raffleId, ticketNumber) index is what makes a claim conditional.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		"ticket_claims": {
			{
				Keys:    bson.D{{Key: "raffleId", Value: 1}, {Key: "ticketNumber", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("raffle_ticket_unique"),
			},
			{
				Keys: bson.D{{Key: "raffleId", Value: 1}, {Key: "paymentReference", Value: 1}},
			},
			{
				Keys: bson.D{{Key: "status", Value: 1}, {Key: "reservedUntil", Value: 1}},
			},
		},
		"draws": {
			{
				Keys:    bson.D{{Key: "raffleId", Value: 1}, {Key: "prizeId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		"notifications": {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		"admin_users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"raffles": {
			{Keys: bson.D{{Key: "organizationId", Value: 1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// NewStore wires every Mongo repository onto db
func NewStore(db *mongo.Database, defaultGateway string, closeFn func(ctx context.Context) error) *repositories.Store {
	return &repositories.Store{
		Raffles:       NewRaffleRepository(db),
		Tickets:       NewTicketRepository(db),
		Draws:         NewDrawRepository(db),
		Notifications: NewNotificationRepository(db),
		AdminUsers:    NewAdminUserRepository(db),
		Settings:      NewSystemSettingsRepository(db, defaultGateway),
		Close:         closeFn,
	}
}
