package gtfs

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// Write encodes ds as a GTFS zip. Ids are written without their agency
// scope; agency_id columns carry it for agencies and routes.
func Write(w io.Writer, ds *Dataset) error {
	zw := zip.NewWriter(w)
	for _, f := range outputFiles {
		if f.skip != nil && f.skip(ds) {
			continue
		}
		fw, err := zw.Create(f.name)
		if err != nil {
			return err
		}
		cw := csv.NewWriter(fw)
		if err := cw.Write(f.header); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		for _, row := range f.rows(ds) {
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("%s: %w", f.name, err)
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return zw.Close()
}

// WriteToBytes encodes ds as GTFS zip bytes.
func WriteToBytes(ds *Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, ds); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteToFile encodes ds as a GTFS zip at path.
func WriteToFile(path string, ds *Dataset) error {
	data, err := WriteToBytes(ds)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

type outputFile struct {
	name   string
	header []string
	rows   func(ds *Dataset) [][]string
	skip   func(ds *Dataset) bool
}

var outputFiles = []outputFile{
	{
		name:   "agency.txt",
		header: []string{"agency_id", "agency_name", "agency_url", "agency_timezone", "agency_lang", "agency_phone"},
		rows: func(ds *Dataset) [][]string {
			out := make([][]string, 0, len(ds.agencies))
			for _, a := range ds.agencies {
				out = append(out, []string{a.ID, a.Name, a.URL, a.Timezone, a.Lang, a.Phone})
			}
			return out
		},
	},
	{
		name: "stops.txt",
		header: []string{"stop_id", "stop_code", "stop_name", "stop_desc", "stop_lat", "stop_lon", "zone_id",
			"stop_url", "location_type", "parent_station", "wheelchair_boarding", "platform_code"},
		rows: func(ds *Dataset) [][]string {
			out := make([][]string, 0, len(ds.stops))
			for _, s := range ds.stops {
				parent := ""
				if s.ParentStation != nil {
					parent = s.ParentStation.ID.ID
				}
				out = append(out, []string{s.ID.ID, s.Code, s.Name, s.Desc, formatFloat(s.Lat), formatFloat(s.Lon), s.ZoneID,
					s.URL, strconv.Itoa(s.LocationType), parent, strconv.Itoa(s.WheelchairBoarding), s.PlatformCode})
			}
			return out
		},
	},
	{
		name: "routes.txt",
		header: []string{"route_id", "agency_id", "route_short_name", "route_long_name", "route_desc", "route_type",
			"route_url", "route_color", "route_text_color"},
		rows: func(ds *Dataset) [][]string {
			out := make([][]string, 0, len(ds.routes))
			for _, r := range ds.routes {
				agencyID := r.ID.AgencyID
				if r.Agency != nil {
					agencyID = r.Agency.ID
				}
				out = append(out, []string{r.ID.ID, agencyID, r.ShortName, r.LongName, r.Desc, strconv.Itoa(r.Type),
					r.URL, r.Color, r.TextColor})
			}
			return out
		},
	},
	{
		name: "trips.txt",
		header: []string{"route_id", "service_id", "trip_id", "trip_headsign", "trip_short_name", "direction_id",
			"block_id", "shape_id", "wheelchair_accessible", "bikes_allowed"},
		rows: func(ds *Dataset) [][]string {
			out := make([][]string, 0, len(ds.trips))
			for _, t := range ds.trips {
				var route string
				if t.Route != nil {
					route = t.Route.ID.ID
				}
				out = append(out, []string{route, t.ServiceID.ID, t.ID.ID, t.Headsign, t.ShortName, t.DirectionID,
					t.BlockID, t.ShapeID.ID, strconv.Itoa(t.WheelchairAccessible), strconv.Itoa(t.BikesAllowed)})
			}
			return out
		},
	},
	{
		name: "stop_times.txt",
		header: []string{"trip_id", "arrival_time", "departure_time", "stop_id", "stop_sequence", "stop_headsign",
			"pickup_type", "drop_off_type", "shape_dist_traveled"},
		rows: func(ds *Dataset) [][]string {
			out := make([][]string, 0, len(ds.stopTimes))
			for _, st := range ds.stopTimes {
				var trip, stop string
				if st.Trip != nil {
					trip = st.Trip.ID.ID
				}
				if st.Stop != nil {
					stop = st.Stop.ID.ID
				}
				out = append(out, []string{trip, st.ArrivalTime, st.DepartureTime, stop,
					strconv.Itoa(st.StopSequence), st.StopHeadsign, strconv.Itoa(st.PickupType), strconv.Itoa(st.DropOffType),
					formatOptionalFloat(st.ShapeDistTraveled)})
			}
			return out
		},
	},
	{
		name: "calendar.txt",
		header: []string{"service_id", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
			"start_date", "end_date"},
		rows: func(ds *Dataset) [][]string {
			out := make([][]string, 0, len(ds.calendars))
			for _, c := range ds.calendars {
				out = append(out, []string{c.ServiceID.ID, strconv.Itoa(c.Monday), strconv.Itoa(c.Tuesday),
					strconv.Itoa(c.Wednesday), strconv.Itoa(c.Thursday), strconv.Itoa(c.Friday), strconv.Itoa(c.Saturday),
					strconv.Itoa(c.Sunday), c.StartDate, c.EndDate})
			}
			return out
		},
		skip: func(ds *Dataset) bool { return len(ds.calendars) == 0 },
	},
	{
		name:   "calendar_dates.txt",
		header: []string{"service_id", "date", "exception_type"},
		rows: func(ds *Dataset) [][]string {
			out := make([][]string, 0, len(ds.calendarDates))
			for _, cd := range ds.calendarDates {
				out = append(out, []string{cd.ServiceID.ID, cd.Date, strconv.Itoa(cd.ExceptionType)})
			}
			return out
		},
		skip: func(ds *Dataset) bool { return len(ds.calendarDates) == 0 },
	},
	{
		name:   "shapes.txt",
		header: []string{"shape_id", "shape_pt_lat", "shape_pt_lon", "shape_pt_sequence", "shape_dist_traveled"},
		rows: func(ds *Dataset) [][]string {
			out := make([][]string, 0, len(ds.shapePoints))
			for _, p := range ds.shapePoints {
				out = append(out, []string{p.ShapeID.ID, formatFloat(p.Lat), formatFloat(p.Lon), strconv.Itoa(p.Sequence),
					formatOptionalFloat(p.DistTraveled)})
			}
			return out
		},
		skip: func(ds *Dataset) bool { return len(ds.shapePoints) == 0 },
	},
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func formatOptionalFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return formatFloat(f)
}
