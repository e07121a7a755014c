package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// settingsID keys the single settings document
const settingsID = "global"

// SystemSettingsRepository implements repositories.SystemSettingsRepository
type SystemSettingsRepository struct {
	collection     *mongo.Collection
	defaultGateway string
}

// NewSystemSettingsRepository creates a new SystemSettingsRepository. The
// default gateway is used until staff pick one.
func NewSystemSettingsRepository(db *mongo.Database, defaultGateway string) repositories.SystemSettingsRepository {
	return &SystemSettingsRepository{
		collection:     db.Collection("system_settings"),
		defaultGateway: defaultGateway,
	}
}

// GetSettings retrieves the current system settings
func (r *SystemSettingsRepository) GetSettings(ctx context.Context) (*models.SystemSettings, error) {
	var settings models.SystemSettings
	err := r.collection.FindOne(ctx, bson.M{"_id": settingsID}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		now := time.Now().UTC()
		return &models.SystemSettings{
			NotificationGateway: r.defaultGateway,
			CreatedAt:           now,
			UpdatedAt:           now,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateNotificationGateway updates only the notification gateway setting
func (r *SystemSettingsRepository) UpdateNotificationGateway(ctx context.Context, gateway string, updatedBy string) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"notificationGateway": gateway,
			"updatedAt":           now,
			"updatedBy":           updatedBy,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": settingsID}, update, options.Update().SetUpsert(true))
	return err
}
