package source

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yatrik/fleetml/internal/config"
)

func stageOps(p mongo.Pipeline) []string {
	ops := make([]string, len(p))
	for i, stage := range p {
		ops[i] = stage[0].Key
	}
	return ops
}

func projection(t *testing.T, p mongo.Pipeline) bson.M {
	t.Helper()
	last := p[len(p)-1]
	if last[0].Key != "$project" {
		t.Fatalf("last stage = %s, want $project", last[0].Key)
	}
	fields, ok := last[0].Value.(bson.M)
	if !ok {
		t.Fatalf("projection is %T, want bson.M", last[0].Value)
	}
	return fields
}

func TestPipelineShapes(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		name       string
		pipeline   mongo.Pipeline
		wantOps    []string
		wantFields []string
	}{
		{
			name:       "trips",
			pipeline:   tripPipeline(cfg),
			wantOps:    []string{"$lookup", "$unwind", "$lookup", "$lookup", "$project"},
			wantFields: []string{"route_id", "route_length", "capacity", "seats_booked", "revenue", "fuel_cost", "shift_hours", "traffic_level", "scheduled_departure", "actual_departure"},
		},
		{
			name:       "bookings",
			pipeline:   bookingPipeline(cfg),
			wantOps:    []string{"$lookup", "$unwind", "$lookup", "$unwind", "$project"},
			wantFields: []string{"route_id", "fare", "seats", "booked_at", "trip_date", "distance"},
		},
		{
			name:       "duties",
			pipeline:   dutyPipeline(cfg),
			wantOps:    []string{"$lookup", "$lookup", "$lookup", "$lookup", "$project"},
			wantFields: []string{"crew_id", "crew_type", "date", "shift_hours", "trips_count", "rest_hours", "route_length"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := stageOps(tt.pipeline)
			if len(ops) != len(tt.wantOps) {
				t.Fatalf("stages = %v, want %v", ops, tt.wantOps)
			}
			for i := range ops {
				if ops[i] != tt.wantOps[i] {
					t.Errorf("stage %d = %s, want %s", i, ops[i], tt.wantOps[i])
				}
			}
			fields := projection(t, tt.pipeline)
			for _, f := range tt.wantFields {
				if _, ok := fields[f]; !ok {
					t.Errorf("projection missing %q", f)
				}
			}
		})
	}
}

func TestPipelinesUseConfiguredCollections(t *testing.T) {
	cfg := config.Default()
	cfg.RoutesCollection = "routes_v2"

	first := tripPipeline(cfg)[0]
	lookupStage, ok := first[0].Value.(bson.M)
	if !ok {
		t.Fatalf("lookup is %T, want bson.M", first[0].Value)
	}
	if lookupStage["from"] != "routes_v2" {
		t.Errorf("lookup from = %v, want routes_v2", lookupStage["from"])
	}
}

func TestDutyPipeline_CrewIDFallsBackToConductor(t *testing.T) {
	fields := projection(t, dutyPipeline(config.Default()))

	crewID, ok := fields["crew_id"].(bson.M)
	if !ok {
		t.Fatalf("crew_id is %T, want bson.M", fields["crew_id"])
	}
	outer, ok := crewID["$ifNull"].(bson.A)
	if !ok || len(outer) != 2 || outer[1] != "" {
		t.Fatalf("crew_id = %v, want $ifNull with empty fallback", crewID)
	}
	toString, ok := outer[0].(bson.M)
	if !ok {
		t.Fatalf("crew_id expression is %T, want bson.M", outer[0])
	}
	inner, ok := toString["$toString"].(bson.M)
	if !ok {
		t.Fatalf("$toString argument is %T, want bson.M", toString["$toString"])
	}
	choices, ok := inner["$ifNull"].(bson.A)
	if !ok || len(choices) != 2 {
		t.Fatalf("crew_id source = %v, want driver then conductor", inner)
	}
	want := []string{"$driver_info._id", "$conductor_info._id"}
	for i, choice := range choices {
		m, _ := choice.(bson.M)
		if m["$first"] != want[i] {
			t.Errorf("choice %d = %v, want $first of %s", i, choice, want[i])
		}
	}
}

func TestDutyPipeline_RouteLengthAveragesPerTrip(t *testing.T) {
	fields := projection(t, dutyPipeline(config.Default()))

	avg, ok := fields["route_length"].(bson.M)
	if !ok {
		t.Fatalf("route_length is %T, want bson.M", fields["route_length"])
	}
	perTrip, ok := avg["$avg"].(bson.M)
	if !ok {
		t.Fatalf("$avg argument is %T, want a per-trip $map", avg["$avg"])
	}
	m, ok := perTrip["$map"].(bson.M)
	if !ok {
		t.Fatalf("$avg argument = %v, want $map", perTrip)
	}
	if m["input"] != "$trip_list" {
		t.Errorf("$map input = %v, want $trip_list", m["input"])
	}

	let, _ := m["in"].(bson.M)["$let"].(bson.M)
	if let["in"] != "$$route.distance" {
		t.Errorf("$let in = %v, want $$route.distance", let["in"])
	}
	elem, _ := let["vars"].(bson.M)["route"].(bson.M)["$arrayElemAt"].(bson.A)
	if len(elem) != 2 {
		t.Fatalf("route var = %v, want $arrayElemAt", let["vars"])
	}
	filter, _ := elem[0].(bson.M)["$filter"].(bson.M)
	if filter["input"] != "$trip_routes" {
		t.Errorf("$filter input = %v, want $trip_routes", filter["input"])
	}
	cond, _ := filter["cond"].(bson.M)["$eq"].(bson.A)
	if len(cond) != 2 || cond[0] != "$$r._id" || cond[1] != "$$t.route" {
		t.Errorf("$filter cond = %v, want route id matched to trip route", filter["cond"])
	}
}
