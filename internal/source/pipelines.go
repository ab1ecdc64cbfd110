package source

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yatrik/fleetml/internal/config"
)

// Field names and join keys below belong to the ERP schema.

func lookup(from, localField, foreignField, as string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.M{
		"from":         from,
		"localField":   localField,
		"foreignField": foreignField,
		"as":           as,
	}}}
}

func unwind(path string) bson.D {
	return bson.D{{Key: "$unwind", Value: path}}
}

func project(fields bson.M) bson.D {
	return bson.D{{Key: "$project", Value: fields}}
}

func ifNull(expr any, fallback any) bson.M {
	return bson.M{"$ifNull": bson.A{expr, fallback}}
}

func idString(expr any) bson.M {
	return ifNull(bson.M{"$toString": expr}, "")
}

// tripRouteLengths maps every entry of trip_list to the distance of its route,
// one value per trip. trip_routes holds each distinct route only once.
func tripRouteLengths() bson.M {
	return bson.M{"$map": bson.M{
		"input": "$trip_list",
		"as":    "t",
		"in": bson.M{"$let": bson.M{
			"vars": bson.M{"route": bson.M{"$arrayElemAt": bson.A{
				bson.M{"$filter": bson.M{
					"input": "$trip_routes",
					"as":    "r",
					"cond":  bson.M{"$eq": bson.A{"$$r._id", "$$t.route"}},
				}},
				0,
			}}},
			"in": "$$route.distance",
		}},
	}}
}

// tripPipeline joins trip -> route, trip -> bookings and trip -> duty.
func tripPipeline(c config.Config) mongo.Pipeline {
	return mongo.Pipeline{
		lookup(c.RoutesCollection, "route", "_id", "route_info"),
		unwind("$route_info"),
		lookup(c.BookingsCollection, "_id", "trip", "bookings"),
		lookup(c.DutiesCollection, "_id", "trips", "duty_info"),
		project(bson.M{
			"_id":                 0,
			"route_id":            idString("$route_info._id"),
			"route_name":          ifNull("$route_info.name", ""),
			"route_length":        "$route_info.distance",
			"capacity":            ifNull("$bus.capacity", 0),
			"seats_booked":        bson.M{"$sum": "$bookings.seats"},
			"revenue":             bson.M{"$sum": "$bookings.fare"},
			"fuel_cost":           ifNull("$fuelCost", 0),
			"shift_hours":         ifNull(bson.M{"$first": "$duty_info.hours"}, 8),
			"traffic_level":       ifNull("$trafficLevel", "medium"),
			"scheduled_departure": "$scheduledDeparture",
			"actual_departure":    "$actualDeparture",
			"scheduled_arrival":   "$scheduledArrival",
			"actual_arrival":      "$actualArrival",
		}),
	}
}

// bookingPipeline joins booking -> trip -> route.
func bookingPipeline(c config.Config) mongo.Pipeline {
	return mongo.Pipeline{
		lookup(c.TripsCollection, "trip", "_id", "trip_info"),
		unwind("$trip_info"),
		lookup(c.RoutesCollection, "trip_info.route", "_id", "route_info"),
		unwind("$route_info"),
		project(bson.M{
			"_id":       0,
			"route_id":  idString("$route_info._id"),
			"fare":      ifNull("$fare", 0),
			"seats":     ifNull("$seats", 1),
			"booked_at": "$createdAt",
			"trip_date": "$trip_info.serviceDate",
			"distance":  "$route_info.distance",
		}),
	}
}

// dutyPipeline joins duty -> driver, duty -> conductor and duty -> trips -> routes.
func dutyPipeline(c config.Config) mongo.Pipeline {
	return mongo.Pipeline{
		lookup(c.DriversCollection, "driver", "_id", "driver_info"),
		lookup(c.ConductorsCollection, "conductor", "_id", "conductor_info"),
		lookup(c.TripsCollection, "trips", "_id", "trip_list"),
		lookup(c.RoutesCollection, "trip_list.route", "_id", "trip_routes"),
		project(bson.M{
			"_id": 0,
			"crew_id": idString(ifNull(
				bson.M{"$first": "$driver_info._id"},
				bson.M{"$first": "$conductor_info._id"},
			)),
			"crew_type": bson.M{"$cond": bson.A{
				bson.M{"$gt": bson.A{bson.M{"$size": "$driver_info"}, 0}},
				"driver",
				"conductor",
			}},
			"date":         "$date",
			"shift_hours":  "$hours",
			"trips_count":  bson.M{"$size": "$trip_list"},
			"rest_hours":   ifNull("$restHours", 8),
			"route_length": bson.M{"$avg": tripRouteLengths()},
		}),
	}
}
