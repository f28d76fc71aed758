package gtfs

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"path"
	"strconv"
	"strings"
)

// LoadOptions controls how raw feed rows are scoped into AgencyAndIDs.
type LoadOptions struct {
	// DefaultAgencyID scopes stops, calendars, shapes and the service and
	// shape references of trips. It is also the id of an agency row without
	// agency_id. When empty the id of the first agency in agency.txt is used,
	// falling back to its agency_name.
	DefaultAgencyID string
}

// Files read by the loader, in the order they are consumed.
var feedFiles = []string{
	"agency.txt",
	"stops.txt",
	"routes.txt",
	"trips.txt",
	"stop_times.txt",
	"calendar.txt",
	"calendar_dates.txt",
	"shapes.txt",
}

// LoadFromBytes builds a dataset from the raw bytes of a GTFS zip.
func LoadFromBytes(data []byte, opts LoadOptions) (*Dataset, error) {
	return LoadFromReader(bytes.NewReader(data), int64(len(data)), opts)
}

// LoadFromFile opens a local GTFS zip file.
func LoadFromFile(path string, opts LoadOptions) (*Dataset, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return load(&zr.Reader, opts)
}

// LoadFromReader builds a dataset from a GTFS zip available through r.
func LoadFromReader(r io.ReaderAt, size int64, opts LoadOptions) (*Dataset, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open gtfs zip: %w", err)
	}
	return load(zr, opts)
}

type loader struct {
	ds            *Dataset
	defaultAgency string
	parents       map[*Stop]string // stop -> raw parent_station
}

func load(zr *zip.Reader, opts LoadOptions) (*Dataset, error) {
	files := map[string]*zip.File{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		// feeds are sometimes zipped with a single top-level folder
		name := strings.ToLower(path.Base(f.Name))
		if _, ok := files[name]; !ok {
			files[name] = f
		}
	}

	l := &loader{ds: NewDataset(), defaultAgency: opts.DefaultAgencyID, parents: map[*Stop]string{}}
	for _, name := range feedFiles {
		f, ok := files[name]
		if !ok {
			continue
		}
		if name == "stops.txt" && l.defaultAgency == "" && len(l.ds.agencies) == 0 {
			return nil, ErrMissingAgency
		}
		t, err := readTable(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if err := l.consume(t); err != nil {
			return nil, err
		}
	}
	if err := l.linkParentStations(); err != nil {
		return nil, err
	}
	if err := l.ds.Reindex(); err != nil {
		return nil, err
	}
	return l.ds, nil
}

// table is a parsed CSV file with case-insensitive column lookup.
type table struct {
	name string
	head map[string]int
	rows [][]string
}

func readTable(f *zip.File) (*table, error) {
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1
	rec, err := csvr.ReadAll()
	if err != nil {
		return nil, err
	}
	t := &table{name: strings.ToLower(path.Base(f.Name)), head: map[string]int{}}
	if len(rec) == 0 {
		return t, nil
	}
	for i, h := range rec[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.ToLower(strings.TrimSpace(h))
		if _, ok := t.head[h]; !ok {
			t.head[h] = i
		}
	}
	t.rows = rec[1:]
	return t, nil
}

// get returns the trimmed value of col in row, or "" when the column or cell is missing.
func (t *table) get(row []string, col string) string {
	i, ok := t.head[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) intField(row []string, line int, col string) (int, error) {
	v := t.get(row, col)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s line %d column %s: %w", t.name, line, col, err)
	}
	return n, nil
}

func (t *table) floatField(row []string, line int, col string, missing float64) (float64, error) {
	v := t.get(row, col)
	if v == "" {
		return missing, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s line %d column %s: %w", t.name, line, col, err)
	}
	return f, nil
}

func (l *loader) consume(t *table) error {
	switch t.name {
	case "agency.txt":
		return l.consumeAgencies(t)
	case "stops.txt":
		return l.consumeStops(t)
	case "routes.txt":
		return l.consumeRoutes(t)
	case "trips.txt":
		return l.consumeTrips(t)
	case "stop_times.txt":
		return l.consumeStopTimes(t)
	case "calendar.txt":
		return l.consumeCalendars(t)
	case "calendar_dates.txt":
		return l.consumeCalendarDates(t)
	case "shapes.txt":
		return l.consumeShapes(t)
	}
	return nil
}

func (l *loader) consumeAgencies(t *table) error {
	for i, row := range t.rows {
		a := &Agency{
			ID:       t.get(row, "agency_id"),
			Name:     t.get(row, "agency_name"),
			URL:      t.get(row, "agency_url"),
			Timezone: t.get(row, "agency_timezone"),
			Lang:     t.get(row, "agency_lang"),
			Phone:    t.get(row, "agency_phone"),
		}
		if a.ID == "" {
			// a single-agency feed may omit agency_id
			a.ID = l.defaultAgency
			if a.ID == "" {
				a.ID = a.Name
			}
		}
		if i == 0 && l.defaultAgency == "" {
			l.defaultAgency = a.ID
		}
		l.ds.AddAgency(a)
	}
	// index agencies now so routes can resolve agency_id
	for _, a := range l.ds.agencies {
		l.ds.agencyByID[a.ID] = a
	}
	return nil
}

func (l *loader) consumeStops(t *table) error {
	for i, row := range t.rows {
		line := i + 2
		s := &Stop{
			ID:           NewAgencyAndID(l.defaultAgency, t.get(row, "stop_id")),
			Code:         t.get(row, "stop_code"),
			Name:         t.get(row, "stop_name"),
			Desc:         t.get(row, "stop_desc"),
			ZoneID:       t.get(row, "zone_id"),
			URL:          t.get(row, "stop_url"),
			PlatformCode: t.get(row, "platform_code"),
		}
		var err error
		if s.Lat, err = t.floatField(row, line, "stop_lat", 0); err != nil {
			return err
		}
		if s.Lon, err = t.floatField(row, line, "stop_lon", 0); err != nil {
			return err
		}
		if s.LocationType, err = t.intField(row, line, "location_type"); err != nil {
			return err
		}
		if s.WheelchairBoarding, err = t.intField(row, line, "wheelchair_boarding"); err != nil {
			return err
		}
		if p := t.get(row, "parent_station"); p != "" {
			l.parents[s] = p
		}
		l.ds.AddStop(s)
		l.ds.stopByID[s.ID] = s
	}
	return nil
}

func (l *loader) linkParentStations() error {
	for _, s := range l.ds.stops {
		raw, ok := l.parents[s]
		if !ok {
			continue
		}
		parent := l.ds.stopByID[NewAgencyAndID(s.ID.AgencyID, raw)]
		if parent == nil {
			return fmt.Errorf("stop %s parent_station %s: %w", s.ID, raw, ErrUnknownReference)
		}
		s.ParentStation = parent
	}
	return nil
}

func (l *loader) consumeRoutes(t *table) error {
	for i, row := range t.rows {
		line := i + 2
		agencyID := t.get(row, "agency_id")
		if agencyID == "" {
			agencyID = l.defaultAgency
		}
		r := &Route{
			ID:        NewAgencyAndID(agencyID, t.get(row, "route_id")),
			Agency:    l.ds.agencyByID[agencyID],
			ShortName: t.get(row, "route_short_name"),
			LongName:  t.get(row, "route_long_name"),
			Desc:      t.get(row, "route_desc"),
			URL:       t.get(row, "route_url"),
			Color:     t.get(row, "route_color"),
			TextColor: t.get(row, "route_text_color"),
		}
		var err error
		if r.Type, err = t.intField(row, line, "route_type"); err != nil {
			return err
		}
		l.ds.AddRoute(r)
	}
	// routes.txt names routes by local id only
	for _, r := range l.ds.routes {
		l.ds.routeByID[NewAgencyAndID("", r.ID.ID)] = r
	}
	return nil
}

func (l *loader) consumeTrips(t *table) error {
	for i, row := range t.rows {
		line := i + 2
		routeID := t.get(row, "route_id")
		route := l.ds.routeByID[NewAgencyAndID("", routeID)]
		if route == nil {
			return fmt.Errorf("trips.txt line %d route_id %s: %w", line, routeID, ErrUnknownReference)
		}
		agencyID := route.ID.AgencyID
		tr := &Trip{
			ID:          NewAgencyAndID(agencyID, t.get(row, "trip_id")),
			Route:       route,
			Headsign:    t.get(row, "trip_headsign"),
			ShortName:   t.get(row, "trip_short_name"),
			DirectionID: t.get(row, "direction_id"),
			BlockID:     t.get(row, "block_id"),
		}
		// calendars and shapes carry no agency, so their references share the default scope
		if v := t.get(row, "service_id"); v != "" {
			tr.ServiceID = NewAgencyAndID(l.defaultAgency, v)
		}
		if v := t.get(row, "shape_id"); v != "" {
			tr.ShapeID = NewAgencyAndID(l.defaultAgency, v)
		}
		var err error
		if tr.WheelchairAccessible, err = t.intField(row, line, "wheelchair_accessible"); err != nil {
			return err
		}
		if tr.BikesAllowed, err = t.intField(row, line, "bikes_allowed"); err != nil {
			return err
		}
		l.ds.AddTrip(tr)
		l.ds.tripByID[NewAgencyAndID("", tr.ID.ID)] = tr
	}
	return nil
}

func (l *loader) consumeStopTimes(t *table) error {
	for i, row := range t.rows {
		line := i + 2
		tripID := t.get(row, "trip_id")
		trip := l.ds.tripByID[NewAgencyAndID("", tripID)]
		if trip == nil {
			return fmt.Errorf("stop_times.txt line %d trip_id %s: %w", line, tripID, ErrUnknownReference)
		}
		stopID := t.get(row, "stop_id")
		stop := l.ds.stopByID[NewAgencyAndID(l.defaultAgency, stopID)]
		if stop == nil {
			return fmt.Errorf("stop_times.txt line %d stop_id %s: %w", line, stopID, ErrUnknownReference)
		}
		st := &StopTime{
			Trip:          trip,
			Stop:          stop,
			ArrivalTime:   t.get(row, "arrival_time"),
			DepartureTime: t.get(row, "departure_time"),
			StopHeadsign:  t.get(row, "stop_headsign"),
		}
		var err error
		if st.StopSequence, err = t.intField(row, line, "stop_sequence"); err != nil {
			return err
		}
		if st.PickupType, err = t.intField(row, line, "pickup_type"); err != nil {
			return err
		}
		if st.DropOffType, err = t.intField(row, line, "drop_off_type"); err != nil {
			return err
		}
		if st.ShapeDistTraveled, err = t.floatField(row, line, "shape_dist_traveled", math.NaN()); err != nil {
			return err
		}
		l.ds.AddStopTime(st)
	}
	return nil
}

func (l *loader) consumeCalendars(t *table) error {
	for i, row := range t.rows {
		line := i + 2
		c := &ServiceCalendar{
			ServiceID: NewAgencyAndID(l.defaultAgency, t.get(row, "service_id")),
			StartDate: t.get(row, "start_date"),
			EndDate:   t.get(row, "end_date"),
		}
		days := []struct {
			col string
			dst *int
		}{
			{"monday", &c.Monday},
			{"tuesday", &c.Tuesday},
			{"wednesday", &c.Wednesday},
			{"thursday", &c.Thursday},
			{"friday", &c.Friday},
			{"saturday", &c.Saturday},
			{"sunday", &c.Sunday},
		}
		for _, d := range days {
			v, err := t.intField(row, line, d.col)
			if err != nil {
				return err
			}
			*d.dst = v
		}
		l.ds.AddCalendar(c)
	}
	return nil
}

func (l *loader) consumeCalendarDates(t *table) error {
	for i, row := range t.rows {
		line := i + 2
		cd := &ServiceCalendarDate{
			ServiceID: NewAgencyAndID(l.defaultAgency, t.get(row, "service_id")),
			Date:      t.get(row, "date"),
		}
		var err error
		if cd.ExceptionType, err = t.intField(row, line, "exception_type"); err != nil {
			return err
		}
		l.ds.AddCalendarDate(cd)
	}
	return nil
}

func (l *loader) consumeShapes(t *table) error {
	for i, row := range t.rows {
		line := i + 2
		p := &ShapePoint{ShapeID: NewAgencyAndID(l.defaultAgency, t.get(row, "shape_id"))}
		var err error
		if p.Lat, err = t.floatField(row, line, "shape_pt_lat", 0); err != nil {
			return err
		}
		if p.Lon, err = t.floatField(row, line, "shape_pt_lon", 0); err != nil {
			return err
		}
		if p.Sequence, err = t.intField(row, line, "shape_pt_sequence"); err != nil {
			return err
		}
		if p.DistTraveled, err = t.floatField(row, line, "shape_dist_traveled", math.NaN()); err != nil {
			return err
		}
		l.ds.AddShapePoint(p)
	}
	return nil
}
