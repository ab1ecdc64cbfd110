package features

import (
	"sort"

	"github.com/yatrik/fleetml/internal/models"
)

var DemandFeatures = []string{"route_code", "day_of_week", "hour_of_day", "avg_fare", "avg_distance"}

type demandKey struct {
	route string
	day   int
	hour  int
}

type demandBucket struct {
	seats    float64
	fare     mean
	distance mean
}

// Demand groups bookings into (route, day of week, hour) buckets and builds
// the passenger demand regression table: total seats per bucket. The booking
// time falls back to the trip date. Bookings with neither are dropped, as are
// buckets with no known route distance. Rows are ordered by bucket key, so the
// result does not depend on booking order apart from the route codes, which
// follow encounter order. The returned Encoder maps route ids to route_code.
func Demand(bookings []models.BookingRecord) (Dataset, *Encoder) {
	enc := NewEncoder()
	buckets := make(map[demandKey]*demandBucket)
	for _, b := range bookings {
		t, ok := ParseTimestamp(b.BookedAt)
		if !ok {
			if t, ok = ParseTimestamp(b.TripDate); !ok {
				continue
			}
		}
		enc.Encode(b.RouteID)
		key := demandKey{route: b.RouteID, day: DayOfWeek(t), hour: t.Hour()}
		bucket, ok := buckets[key]
		if !ok {
			bucket = &demandBucket{}
			buckets[key] = bucket
		}
		bucket.seats += b.Seats
		bucket.fare.add(b.Fare)
		if b.Distance != nil {
			bucket.distance.add(*b.Distance)
		}
	}

	keys := make([]demandKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.route != b.route {
			return a.route < b.route
		}
		if a.day != b.day {
			return a.day < b.day
		}
		return a.hour < b.hour
	})

	ds := Dataset{Features: DemandFeatures}
	for _, k := range keys {
		bucket := buckets[k]
		distance, ok := bucket.distance.value()
		if !ok {
			continue
		}
		fare, _ := bucket.fare.value()
		code, _ := enc.Code(k.route)
		ds.X = append(ds.X, []float64{float64(code), float64(k.day), float64(k.hour), fare, distance})
		ds.Y = append(ds.Y, bucket.seats)
	}
	return ds, enc
}
