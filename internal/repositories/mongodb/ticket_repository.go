package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// duplicateKeyCode is the server error code for a unique index violation
const duplicateKeyCode = 11000

// Ensure ticketRepository implements repositories.TicketRepository
var _ repositories.TicketRepository = (*ticketRepository)(nil)

type ticketRepository struct {
	collection *mongo.Collection
}

// NewTicketRepository creates a new repository for ticket claims
func NewTicketRepository(db *mongo.Database) repositories.TicketRepository {
	return &ticketRepository{
		collection: db.Collection("ticket_claims"),
	}
}

// claimableFilter matches a claim row that no longer holds its number
func claimableFilter(now time.Time) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"status": models.TicketStatusCanceled},
		bson.M{"status": models.TicketStatusReserved, "reservedUntil": bson.M{"$lte": now}},
	}}
}

// activeFilter matches claim rows that hold their number at now
func activeFilter(status models.TicketStatus, now time.Time) bson.M {
	switch status {
	case models.TicketStatusSold:
		return bson.M{"status": models.TicketStatusSold}
	case models.TicketStatusReserved:
		return bson.M{"status": models.TicketStatusReserved, "reservedUntil": bson.M{"$gt": now}}
	}
	return bson.M{"$or": bson.A{
		bson.M{"status": models.TicketStatusSold},
		bson.M{"status": models.TicketStatusReserved, "reservedUntil": bson.M{"$gt": now}},
	}}
}

// Claim issues one unordered bulk write of conditional upserts. A number that
// is held by an active claim fails its upsert on the unique
// (raffleId, ticketNumber) index and is left out of the result; the caller
// compensates for any shortfall.
func (r *ticketRepository) Claim(ctx context.Context, req models.ClaimRequest) ([]*models.TicketClaim, error) {
	if len(req.Numbers) == 0 {
		return []*models.TicketClaim{}, nil
	}
	reservedUntil := req.ReservedUntil
	orderTotal := req.OrderTotal

	writes := make([]mongo.WriteModel, 0, len(req.Numbers))
	for _, number := range req.Numbers {
		filter := claimableFilter(req.Now)
		filter["raffleId"] = req.RaffleID
		filter["ticketNumber"] = number
		update := bson.M{
			"$set": bson.M{
				"status":           models.TicketStatusReserved,
				"buyer":            req.Buyer,
				"reservedUntil":    reservedUntil,
				"paymentReference": req.Reference,
				"orderTotal":       orderTotal,
				"createdAt":        req.Now,
				"updatedAt":        req.Now,
			},
			"$unset": bson.M{
				"paymentProofUrl":  "",
				"proofSubmittedAt": "",
				"approvedAt":       "",
				"soldAt":           "",
				"canceledAt":       "",
			},
		}
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(filter).
			SetUpdate(update).
			SetUpsert(true))
	}

	failed := make(map[int]bool)
	_, err := r.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		var bulkErr mongo.BulkWriteException
		if !errors.As(err, &bulkErr) || bulkErr.WriteConcernError != nil {
			return nil, fmt.Errorf("claim tickets: %w", err)
		}
		for _, we := range bulkErr.WriteErrors {
			if we.Code != duplicateKeyCode {
				return nil, fmt.Errorf("claim ticket %s: %w", req.Numbers[we.Index], err)
			}
			failed[we.Index] = true
		}
	}

	claims := make([]*models.TicketClaim, 0, len(req.Numbers)-len(failed))
	for i, number := range req.Numbers {
		if failed[i] {
			continue
		}
		claims = append(claims, &models.TicketClaim{
			RaffleID:         req.RaffleID,
			TicketNumber:     number,
			Status:           models.TicketStatusReserved,
			Buyer:            req.Buyer,
			ReservedUntil:    &reservedUntil,
			PaymentReference: req.Reference,
			OrderTotal:       &orderTotal,
			CreatedAt:        req.Now,
			UpdatedAt:        req.Now,
		})
	}
	return claims, nil
}

// ReleaseReservation removes only rows still reserved under reference, so a
// number that was since re-claimed by someone else is never touched.
func (r *ticketRepository) ReleaseReservation(ctx context.Context, raffleID, reference string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{
		"raffleId":         raffleID,
		"paymentReference": reference,
		"status":           models.TicketStatusReserved,
	})
	if err != nil {
		return 0, fmt.Errorf("release reservation %s: %w", reference, err)
	}
	return res.DeletedCount, nil
}

// FindByNumber finds the claim row of one ticket number
func (r *ticketRepository) FindByNumber(ctx context.Context, raffleID, number string) (*models.TicketClaim, error) {
	var claim models.TicketClaim
	err := r.collection.FindOne(ctx, bson.M{"raffleId": raffleID, "ticketNumber": number}).Decode(&claim)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &claim, nil
}

// FindByNumbers returns the existing claim rows among numbers
func (r *ticketRepository) FindByNumbers(ctx context.Context, raffleID string, numbers []string) ([]*models.TicketClaim, error) {
	return r.find(ctx, bson.M{"raffleId": raffleID, "ticketNumber": bson.M{"$in": numbers}},
		options.Find().SetSort(bson.M{"ticketNumber": 1}))
}

// FindByReference returns every claim row of an order
func (r *ticketRepository) FindByReference(ctx context.Context, raffleID, reference string) ([]*models.TicketClaim, error) {
	return r.find(ctx, bson.M{"raffleId": raffleID, "paymentReference": reference},
		options.Find().SetSort(bson.M{"ticketNumber": 1}))
}

// ReferenceExists reports whether any claim row carries reference
func (r *ticketRepository) ReferenceExists(ctx context.Context, raffleID, reference string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"raffleId": raffleID, "paymentReference": reference},
		options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListActive returns one page of active claims ordered by ticket number
func (r *ticketRepository) ListActive(ctx context.Context, raffleID string, status models.TicketStatus, query string, now time.Time, skip, limit int) ([]*models.TicketClaim, int64, error) {
	filter := activeFilter(status, now)
	filter["raffleId"] = raffleID
	if query != "" {
		filter["ticketNumber"] = bson.M{"$regex": regexp.QuoteMeta(query)}
	}
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count claims: %w", err)
	}
	opts := options.Find().
		SetSort(bson.M{"ticketNumber": 1}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))
	claims, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return claims, total, nil
}

// ActiveNumbers returns every ticket number held at now
func (r *ticketRepository) ActiveNumbers(ctx context.Context, raffleID string, now time.Time) ([]string, error) {
	filter := activeFilter("", now)
	filter["raffleId"] = raffleID
	opts := options.Find().SetProjection(bson.M{"ticketNumber": 1, "_id": 0})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find active numbers: %w", err)
	}
	defer cursor.Close(ctx)

	numbers := []string{}
	for cursor.Next(ctx) {
		var row struct {
			TicketNumber string `bson:"ticketNumber"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		numbers = append(numbers, row.TicketNumber)
	}
	return numbers, cursor.Err()
}

// Counts groups the active claims of a raffle by status on the server
func (r *ticketRepository) Counts(ctx context.Context, raffleID string, now time.Time) (int64, int64, error) {
	match := activeFilter("", now)
	match["raffleId"] = raffleID
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, fmt.Errorf("aggregate counts: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.TicketStatus `bson:"_id"`
		Count  int64               `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, 0, err
	}
	var reserved, sold int64
	for _, row := range rows {
		switch row.Status {
		case models.TicketStatusReserved:
			reserved = row.Count
		case models.TicketStatusSold:
			sold = row.Count
		}
	}
	return reserved, sold, nil
}

// AttachProof sets the proof URL on the live reserved rows of reference
func (r *ticketRepository) AttachProof(ctx context.Context, raffleID, reference, proofURL string, now time.Time) (int64, error) {
	filter := activeFilter(models.TicketStatusReserved, now)
	filter["raffleId"] = raffleID
	filter["paymentReference"] = reference
	res, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{
		"paymentProofUrl":  proofURL,
		"proofSubmittedAt": now,
		"updatedAt":        now,
	}})
	if err != nil {
		return 0, fmt.Errorf("attach proof to %s: %w", reference, err)
	}
	return res.MatchedCount, nil
}

// MarkSold moves every live reserved row of reference to sold in one update
func (r *ticketRepository) MarkSold(ctx context.Context, raffleID, reference string, now time.Time) (int64, error) {
	filter := bson.M{
		"raffleId":         raffleID,
		"paymentReference": reference,
		"status":           models.TicketStatusReserved,
		"reservedUntil":    bson.M{"$gt": now},
	}
	update := bson.M{
		"$set": bson.M{
			"status":     models.TicketStatusSold,
			"soldAt":     now,
			"approvedAt": now,
			"updatedAt":  now,
		},
		"$unset": bson.M{"reservedUntil": ""},
	}
	res, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("mark %s sold: %w", reference, err)
	}
	return res.ModifiedCount, nil
}

// DeleteByReference removes every row of reference regardless of status
func (r *ticketRepository) DeleteByReference(ctx context.Context, raffleID, reference string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"raffleId": raffleID, "paymentReference": reference})
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", reference, err)
	}
	return res.DeletedCount, nil
}

// PurgeExpired deletes reserved rows whose deadline passed before cutoff
func (r *ticketRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{
		"status":        models.TicketStatusReserved,
		"reservedUntil": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("purge expired reservations: %w", err)
	}
	return res.DeletedCount, nil
}

// SoldBySuffix returns sold rows whose number ends with suffix
func (r *ticketRepository) SoldBySuffix(ctx context.Context, raffleID, suffix string) ([]*models.TicketClaim, error) {
	filter := bson.M{"raffleId": raffleID, "status": models.TicketStatusSold}
	if suffix != "" {
		filter["ticketNumber"] = bson.M{"$regex": regexp.QuoteMeta(suffix) + "$"}
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.M{"ticketNumber": 1}))
}

// SoldOrderTotals groups sold rows by reference so each order counts once
func (r *ticketRepository) SoldOrderTotals(ctx context.Context, raffleID string) ([]models.OrderTotals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"raffleId": raffleID, "status": models.TicketStatusSold}}},
		{{Key: "$group", Value: bson.M{
			"_id":        "$paymentReference",
			"tickets":    bson.M{"$sum": 1},
			"orderTotal": bson.M{"$first": "$orderTotal"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate order totals: %w", err)
	}
	defer cursor.Close(ctx)

	totals := []models.OrderTotals{}
	if err := cursor.All(ctx, &totals); err != nil {
		return nil, err
	}
	return totals, nil
}

// ListOrderReferences returns distinct references of active claims, newest first
func (r *ticketRepository) ListOrderReferences(ctx context.Context, raffleID string, status models.TicketStatus, now time.Time, skip, limit int) ([]string, error) {
	match := activeFilter(status, now)
	match["raffleId"] = raffleID
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$paymentReference", "createdAt": bson.M{"$min": "$createdAt"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$skip", Value: int64(skip)}},
		{{Key: "$limit", Value: int64(limit)}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate orders: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Reference string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	refs := make([]string, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, row.Reference)
	}
	return refs, nil
}

func (r *ticketRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.TicketClaim, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find claims: %w", err)
	}
	defer cursor.Close(ctx)

	claims := []*models.TicketClaim{}
	if err := cursor.All(ctx, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}
