package gtfs

import (
	"errors"
	"fmt"
	"slices"
)

// Dataset stores a GTFS feed in memory. Collections keep the order in which
// entities were added; id-keyed lookups are served from indices rebuilt by
// Reindex.
//
// A Dataset is not safe for concurrent mutation. Once loaded it may be read
// from several goroutines.
type Dataset struct {
	agencies      []*Agency
	routes        []*Route
	trips         []*Trip
	stops         []*Stop
	stopTimes     []*StopTime
	calendars     []*ServiceCalendar
	calendarDates []*ServiceCalendarDate
	shapePoints   []*ShapePoint

	agencyByID        map[string]*Agency                     // agency_id -> agency
	routeByID         map[AgencyAndID]*Route                 // route_id -> route
	tripByID          map[AgencyAndID]*Trip                  // trip_id -> trip
	stopByID          map[AgencyAndID]*Stop                  // stop_id -> stop
	calendarByService map[AgencyAndID]*ServiceCalendar       // service_id -> calendar
	datesByService    map[AgencyAndID][]*ServiceCalendarDate // service_id -> exceptions
	pointsByShape     map[AgencyAndID][]*ShapePoint          // shape_id -> points sorted by sequence
	tripsByRoute      map[AgencyAndID][]*Trip                // route_id -> trips
	stopTimesByTrip   map[AgencyAndID][]*StopTime            // trip_id -> stop times sorted by sequence
	serviceIDs        []AgencyAndID                          // first-seen order
	shapeIDs          []AgencyAndID                          // first-seen order
}

// NewDataset creates an empty dataset.
func NewDataset() *Dataset {
	ds := &Dataset{}
	ds.resetIndices()
	return ds
}

func (ds *Dataset) resetIndices() {
	ds.agencyByID = map[string]*Agency{}
	ds.routeByID = map[AgencyAndID]*Route{}
	ds.tripByID = map[AgencyAndID]*Trip{}
	ds.stopByID = map[AgencyAndID]*Stop{}
	ds.calendarByService = map[AgencyAndID]*ServiceCalendar{}
	ds.datesByService = map[AgencyAndID][]*ServiceCalendarDate{}
	ds.pointsByShape = map[AgencyAndID][]*ShapePoint{}
	ds.tripsByRoute = map[AgencyAndID][]*Trip{}
	ds.stopTimesByTrip = map[AgencyAndID][]*StopTime{}
	ds.serviceIDs = nil
	ds.shapeIDs = nil
}

// Add methods append to the collections. Lookups see new entities after the next Reindex.

func (ds *Dataset) AddAgency(a *Agency) { ds.agencies = append(ds.agencies, a) }
func (ds *Dataset) AddRoute(r *Route) { ds.routes = append(ds.routes, r) }
func (ds *Dataset) AddTrip(t *Trip) { ds.trips = append(ds.trips, t) }
func (ds *Dataset) AddStop(s *Stop) { ds.stops = append(ds.stops, s) }
func (ds *Dataset) AddStopTime(st *StopTime) { ds.stopTimes = append(ds.stopTimes, st) }
func (ds *Dataset) AddCalendar(c *ServiceCalendar) { ds.calendars = append(ds.calendars, c) }
func (ds *Dataset) AddCalendarDate(cd *ServiceCalendarDate) { ds.calendarDates = append(ds.calendarDates, cd) }
func (ds *Dataset) AddShapePoint(p *ShapePoint) { ds.shapePoints = append(ds.shapePoints, p) }

// Collection accessors return the backing slices in insertion order.

func (ds *Dataset) Agencies() []*Agency { return ds.agencies }
func (ds *Dataset) Routes() []*Route { return ds.routes }
func (ds *Dataset) Trips() []*Trip { return ds.trips }
func (ds *Dataset) Stops() []*Stop { return ds.stops }
func (ds *Dataset) StopTimes() []*StopTime { return ds.stopTimes }
func (ds *Dataset) Calendars() []*ServiceCalendar { return ds.calendars }
func (ds *Dataset) CalendarDates() []*ServiceCalendarDate { return ds.calendarDates }
func (ds *Dataset) ShapePoints() []*ShapePoint { return ds.shapePoints }

// Reindex rebuilds every id-keyed lookup from the collections. It must be
// called after ids are mutated in place. Duplicate primary ids are reported
// as ErrDuplicateID; the indices are still rebuilt with the last entity
// winning.
func (ds *Dataset) Reindex() error {
	ds.resetIndices()
	var errs []error
	dup := func(kind string, id fmt.Stringer) {
		errs = append(errs, fmt.Errorf("%s %s: %w", kind, id, ErrDuplicateID))
	}

	for _, a := range ds.agencies {
		if _, ok := ds.agencyByID[a.ID]; ok {
			errs = append(errs, fmt.Errorf("agency %s: %w", a.ID, ErrDuplicateID))
		}
		ds.agencyByID[a.ID] = a
	}
	for _, r := range ds.routes {
		if _, ok := ds.routeByID[r.ID]; ok {
			dup("route", r.ID)
		}
		ds.routeByID[r.ID] = r
	}
	for _, s := range ds.stops {
		if _, ok := ds.stopByID[s.ID]; ok {
			dup("stop", s.ID)
		}
		ds.stopByID[s.ID] = s
	}

	seenService := map[AgencyAndID]struct{}{}
	addService := func(id AgencyAndID) {
		if id.IsZero() {
			return
		}
		if _, ok := seenService[id]; !ok {
			seenService[id] = struct{}{}
			ds.serviceIDs = append(ds.serviceIDs, id)
		}
	}
	for _, c := range ds.calendars {
		if _, ok := ds.calendarByService[c.ServiceID]; ok {
			dup("calendar", c.ServiceID)
		}
		ds.calendarByService[c.ServiceID] = c
		addService(c.ServiceID)
	}
	for _, cd := range ds.calendarDates {
		ds.datesByService[cd.ServiceID] = append(ds.datesByService[cd.ServiceID], cd)
		addService(cd.ServiceID)
	}

	seenShape := map[AgencyAndID]struct{}{}
	addShape := func(id AgencyAndID) {
		if id.IsZero() {
			return
		}
		if _, ok := seenShape[id]; !ok {
			seenShape[id] = struct{}{}
			ds.shapeIDs = append(ds.shapeIDs, id)
		}
	}
	for _, p := range ds.shapePoints {
		ds.pointsByShape[p.ShapeID] = append(ds.pointsByShape[p.ShapeID], p)
		addShape(p.ShapeID)
	}
	for _, pts := range ds.pointsByShape {
		slices.SortStableFunc(pts, func(a, b *ShapePoint) int { return a.Sequence - b.Sequence })
	}

	for _, t := range ds.trips {
		if _, ok := ds.tripByID[t.ID]; ok {
			dup("trip", t.ID)
		}
		ds.tripByID[t.ID] = t
		if t.Route != nil {
			ds.tripsByRoute[t.Route.ID] = append(ds.tripsByRoute[t.Route.ID], t)
		}
		addService(t.ServiceID)
		addShape(t.ShapeID)
	}
	for _, st := range ds.stopTimes {
		if st.Trip == nil {
			continue
		}
		ds.stopTimesByTrip[st.Trip.ID] = append(ds.stopTimesByTrip[st.Trip.ID], st)
	}
	for _, sts := range ds.stopTimesByTrip {
		slices.SortStableFunc(sts, func(a, b *StopTime) int { return a.StopSequence - b.StopSequence })
	}
	return errors.Join(errs...)
}

// Accessor methods
func (ds *Dataset) AgencyForID(id string) *Agency { return ds.agencyByID[id] }
func (ds *Dataset) RouteForID(id AgencyAndID) *Route { return ds.routeByID[id] }
func (ds *Dataset) TripForID(id AgencyAndID) *Trip { return ds.tripByID[id] }
func (ds *Dataset) StopForID(id AgencyAndID) *Stop { return ds.stopByID[id] }
func (ds *Dataset) TripsForRoute(route *Route) []*Trip { return ds.tripsByRoute[route.ID] }
func (ds *Dataset) StopTimesForTrip(trip *Trip) []*StopTime { return ds.stopTimesByTrip[trip.ID] }

func (ds *Dataset) CalendarForServiceID(id AgencyAndID) *ServiceCalendar {
	return ds.calendarByService[id]
}

func (ds *Dataset) CalendarDatesForServiceID(id AgencyAndID) []*ServiceCalendarDate {
	return ds.datesByService[id]
}

// ShapePointsForShapeID returns the points of a shape ordered by shape_pt_sequence.
func (ds *Dataset) ShapePointsForShapeID(id AgencyAndID) []*ShapePoint {
	return ds.pointsByShape[id]
}

// AllServiceIDs returns every service id referenced by calendars, calendar
// dates and trips, in that first-seen order.
func (ds *Dataset) AllServiceIDs() []AgencyAndID { return slices.Clone(ds.serviceIDs) }

// AllShapeIDs returns every shape id referenced by shape points and trips.
func (ds *Dataset) AllShapeIDs() []AgencyAndID { return slices.Clone(ds.shapeIDs) }

// Counts returns the size of every collection keyed by GTFS file stem.
func (ds *Dataset) Counts() map[string]int {
	return map[string]int{
		"agency":         len(ds.agencies),
		"routes":         len(ds.routes),
		"trips":          len(ds.trips),
		"stops":          len(ds.stops),
		"stop_times":     len(ds.stopTimes),
		"calendar":       len(ds.calendars),
		"calendar_dates": len(ds.calendarDates),
		"shapes":         len(ds.shapePoints),
	}
}
