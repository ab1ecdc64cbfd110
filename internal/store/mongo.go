package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yatrik/fleetml/internal/models"
)

// MongoReports stores reports in the ERP database next to the operational
// collections.
type MongoReports struct {
	coll *mongo.Collection
}

// NewMongoReports stores reports in the given collection.
func NewMongoReports(db *mongo.Database, collection string) *MongoReports {
	return &MongoReports{coll: db.Collection(collection)}
}

func (m *MongoReports) SaveReport(ctx context.Context, r models.ModelReport) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if _, err := m.coll.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (m *MongoReports) LatestReport(ctx context.Context, modelName string) (*models.ModelReport, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	var r models.ModelReport
	err := m.coll.FindOne(ctx, bson.M{"model_name": modelName}, opts).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest report: %w", err)
	}
	return &r, nil
}

func (m *MongoReports) ReportHistory(ctx context.Context, modelName string, limit int) ([]models.ModelReport, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(int64(limit))
	cur, err := m.coll.Find(ctx, bson.M{"model_name": modelName}, opts)
	if err != nil {
		return nil, fmt.Errorf("find report history: %w", err)
	}
	var reports []models.ModelReport
	if err := cur.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("decode report history: %w", err)
	}
	return reports, nil
}
