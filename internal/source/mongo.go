package source

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yatrik/fleetml/internal/config"
	"github.com/yatrik/fleetml/internal/models"
)

// ErrDataUnavailable is returned when the operational store cannot be reached
// or a query against it fails.
var ErrDataUnavailable = errors.New("data unavailable")

// Source reads flat, pre-joined operational records. An empty result is not an
// error; callers decide what to do with it.
type Source interface {
	FetchTrips(ctx context.Context) ([]models.TripRecord, error)
	FetchBookings(ctx context.Context) ([]models.BookingRecord, error)
	FetchDuties(ctx context.Context) ([]models.DutyRecord, error)
}

// Connect opens a client and waits for the server to answer a ping. Only the
// initial connection is retried.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", ErrDataUnavailable, err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	ping := func() error {
		return client.Ping(ctx, readpref.Primary())
	}
	notify := func(err error, wait time.Duration) {
		log.Printf("source: ping failed, retrying in %s: %v", wait.Round(time.Millisecond), err)
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(bo, ctx), notify); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping: %w", ErrDataUnavailable, err)
	}
	return client, nil
}

// Mongo runs the join aggregations server-side against the ERP database.
type Mongo struct {
	db  *mongo.Database
	cfg config.Config
}

// NewMongo reads from the collections named in cfg.
func NewMongo(db *mongo.Database, cfg config.Config) *Mongo {
	return &Mongo{db: db, cfg: cfg}
}

func (m *Mongo) FetchTrips(ctx context.Context) ([]models.TripRecord, error) {
	var trips []models.TripRecord
	if err := m.aggregate(ctx, m.cfg.TripsCollection, tripPipeline(m.cfg), &trips); err != nil {
		return nil, fmt.Errorf("fetch trips: %w", err)
	}
	return trips, nil
}

func (m *Mongo) FetchBookings(ctx context.Context) ([]models.BookingRecord, error) {
	var bookings []models.BookingRecord
	if err := m.aggregate(ctx, m.cfg.BookingsCollection, bookingPipeline(m.cfg), &bookings); err != nil {
		return nil, fmt.Errorf("fetch bookings: %w", err)
	}
	return bookings, nil
}

func (m *Mongo) FetchDuties(ctx context.Context) ([]models.DutyRecord, error) {
	var duties []models.DutyRecord
	if err := m.aggregate(ctx, m.cfg.DutiesCollection, dutyPipeline(m.cfg), &duties); err != nil {
		return nil, fmt.Errorf("fetch duties: %w", err)
	}
	return duties, nil
}

func (m *Mongo) aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline, out any) error {
	cur, err := m.db.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("%w: aggregate %s: %w", ErrDataUnavailable, collection, err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrDataUnavailable, collection, err)
	}
	return nil
}
