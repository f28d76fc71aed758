package gtfsdb

import (
	"database/sql"
	"math"
	"strings"

	"github.com/theoremus-urban-solutions/gtfs-transformer/gtfs"
)

type column struct {
	name string
	typ  string
}

// table maps one dataset collection to one SQL table. Composite ids are
// split into an agency column and an id column.
type table struct {
	name    string
	columns []column
	rows    func(ds *gtfs.Dataset) [][]any
}

func text(name string) column    { return column{name, "TEXT"} }
func integer(name string) column { return column{name, "INTEGER"} }
func double(name string) column  { return column{name, "DOUBLE PRECISION"} }

// nullable stores NaN as NULL.
func nullable(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: !math.IsNaN(f)}
}

func (t table) createSQL() string {
	defs := make([]string, len(t.columns))
	for i, c := range t.columns {
		defs[i] = c.name + " " + c.typ
	}
	return "CREATE TABLE IF NOT EXISTS " + t.name + " (" + strings.Join(defs, ", ") + ")"
}

func (t table) insertSQL(placeholder func(int) string) string {
	names := make([]string, len(t.columns))
	marks := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
		marks[i] = placeholder(i + 1)
	}
	return "INSERT INTO " + t.name + " (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
}

var tables = []table{
	{
		name: "agency",
		columns: []column{text("agency_id"), text("agency_name"), text("agency_url"), text("agency_timezone"),
			text("agency_lang"), text("agency_phone")},
		rows: func(ds *gtfs.Dataset) [][]any {
			out := make([][]any, 0, len(ds.Agencies()))
			for _, a := range ds.Agencies() {
				out = append(out, []any{a.ID, a.Name, a.URL, a.Timezone, a.Lang, a.Phone})
			}
			return out
		},
	},
	{
		name: "routes",
		columns: []column{text("agency_id"), text("route_id"), text("route_short_name"), text("route_long_name"),
			text("route_desc"), integer("route_type"), text("route_url"), text("route_color"), text("route_text_color")},
		rows: func(ds *gtfs.Dataset) [][]any {
			out := make([][]any, 0, len(ds.Routes()))
			for _, r := range ds.Routes() {
				out = append(out, []any{r.ID.AgencyID, r.ID.ID, r.ShortName, r.LongName, r.Desc, r.Type, r.URL,
					r.Color, r.TextColor})
			}
			return out
		},
	},
	{
		name: "stops",
		columns: []column{text("agency_id"), text("stop_id"), text("stop_code"), text("stop_name"), text("stop_desc"),
			double("stop_lat"), double("stop_lon"), text("zone_id"), text("stop_url"), integer("location_type"),
			text("parent_station"), integer("wheelchair_boarding"), text("platform_code")},
		rows: func(ds *gtfs.Dataset) [][]any {
			out := make([][]any, 0, len(ds.Stops()))
			for _, s := range ds.Stops() {
				parent := ""
				if s.ParentStation != nil {
					parent = s.ParentStation.ID.ID
				}
				out = append(out, []any{s.ID.AgencyID, s.ID.ID, s.Code, s.Name, s.Desc, s.Lat, s.Lon, s.ZoneID, s.URL,
					s.LocationType, parent, s.WheelchairBoarding, s.PlatformCode})
			}
			return out
		},
	},
	{
		name: "trips",
		columns: []column{text("agency_id"), text("trip_id"), text("route_agency_id"), text("route_id"),
			text("service_agency_id"), text("service_id"), text("shape_agency_id"), text("shape_id"),
			text("trip_headsign"), text("trip_short_name"), text("direction_id"), text("block_id"),
			integer("wheelchair_accessible"), integer("bikes_allowed")},
		rows: func(ds *gtfs.Dataset) [][]any {
			out := make([][]any, 0, len(ds.Trips()))
			for _, t := range ds.Trips() {
				var route gtfs.AgencyAndID
				if t.Route != nil {
					route = t.Route.ID
				}
				out = append(out, []any{t.ID.AgencyID, t.ID.ID, route.AgencyID, route.ID,
					t.ServiceID.AgencyID, t.ServiceID.ID, t.ShapeID.AgencyID, t.ShapeID.ID,
					t.Headsign, t.ShortName, t.DirectionID, t.BlockID, t.WheelchairAccessible, t.BikesAllowed})
			}
			return out
		},
	},
	{
		name: "stop_times",
		columns: []column{text("trip_agency_id"), text("trip_id"), text("stop_agency_id"), text("stop_id"),
			text("arrival_time"), text("departure_time"), integer("stop_sequence"), text("stop_headsign"),
			integer("pickup_type"), integer("drop_off_type"), double("shape_dist_traveled")},
		rows: func(ds *gtfs.Dataset) [][]any {
			out := make([][]any, 0, len(ds.StopTimes()))
			for _, st := range ds.StopTimes() {
				var trip, stop gtfs.AgencyAndID
				if st.Trip != nil {
					trip = st.Trip.ID
				}
				if st.Stop != nil {
					stop = st.Stop.ID
				}
				out = append(out, []any{trip.AgencyID, trip.ID, stop.AgencyID, stop.ID, st.ArrivalTime,
					st.DepartureTime, st.StopSequence, st.StopHeadsign, st.PickupType, st.DropOffType,
					nullable(st.ShapeDistTraveled)})
			}
			return out
		},
	},
	{
		name: "calendar",
		columns: []column{text("agency_id"), text("service_id"), integer("monday"), integer("tuesday"),
			integer("wednesday"), integer("thursday"), integer("friday"), integer("saturday"), integer("sunday"),
			text("start_date"), text("end_date")},
		rows: func(ds *gtfs.Dataset) [][]any {
			out := make([][]any, 0, len(ds.Calendars()))
			for _, c := range ds.Calendars() {
				out = append(out, []any{c.ServiceID.AgencyID, c.ServiceID.ID, c.Monday, c.Tuesday, c.Wednesday,
					c.Thursday, c.Friday, c.Saturday, c.Sunday, c.StartDate, c.EndDate})
			}
			return out
		},
	},
	{
		name:    "calendar_dates",
		columns: []column{text("agency_id"), text("service_id"), text("date"), integer("exception_type")},
		rows: func(ds *gtfs.Dataset) [][]any {
			out := make([][]any, 0, len(ds.CalendarDates()))
			for _, cd := range ds.CalendarDates() {
				out = append(out, []any{cd.ServiceID.AgencyID, cd.ServiceID.ID, cd.Date, cd.ExceptionType})
			}
			return out
		},
	},
	{
		name: "shapes",
		columns: []column{text("agency_id"), text("shape_id"), double("shape_pt_lat"), double("shape_pt_lon"),
			integer("shape_pt_sequence"), double("shape_dist_traveled")},
		rows: func(ds *gtfs.Dataset) [][]any {
			out := make([][]any, 0, len(ds.ShapePoints()))
			for _, p := range ds.ShapePoints() {
				out = append(out, []any{p.ShapeID.AgencyID, p.ShapeID.ID, p.Lat, p.Lon, p.Sequence,
					nullable(p.DistTraveled)})
			}
			return out
		},
	},
}

func lookupTable(name string) (table, bool) {
	for _, t := range tables {
		if t.name == name {
			return t, true
		}
	}
	return table{}, false
}
