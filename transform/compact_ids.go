package transform

import (
	"strconv"

	"github.com/theoremus-urban-solutions/gtfs-transformer/gtfs"
)

// CompactIDsName is the registry name of CompactIDsStrategy.
const CompactIDsName = "compact_ids"

// Prefixes of the compact ids.
const (
	agencyPrefix  = "a"
	routePrefix   = "r"
	tripPrefix    = "t"
	stopPrefix    = "s"
	servicePrefix = "c"
	shapePrefix   = "sh"
)

// CompactIDsStrategy replaces every agency, route, trip, stop, service and
// shape id with a short sequential one ("a0", "r0", "t0", "s0", "c0", "sh0")
// to shrink the feed. Ids are assigned in dataset order, so two identical
// datasets always compact to the same ids. Running it twice renumbers again.
type CompactIDsStrategy struct{}

func (s *CompactIDsStrategy) Name() string { return CompactIDsName }

func (s *CompactIDsStrategy) Run(tctx *TransformContext, ds *gtfs.Dataset) error {
	c := newCompactor()
	c.compact(ds)

	logger := tctx.Logger()
	c.notices.LogAll(logger, s.Name())
	logger.Info("compacted identifiers",
		"strategy", s.Name(),
		"agencies", len(c.agencyIDs),
		"routes", len(ds.Routes()),
		"trips", len(ds.Trips()),
		"stops", len(ds.Stops()),
		"service_ids", len(c.serviceIDs),
		"shape_ids", len(c.shapeIDs),
	)
	return ds.Reindex()
}

// compactor holds the mappings of a single run.
type compactor struct {
	agencyIDs  map[string]string
	serviceIDs map[gtfs.AgencyAndID]gtfs.AgencyAndID
	shapeIDs   map[gtfs.AgencyAndID]gtfs.AgencyAndID

	agenciesDone bool
	notices      *Notices
}

func newCompactor() *compactor {
	return &compactor{
		agencyIDs:  map[string]string{},
		serviceIDs: map[gtfs.AgencyAndID]gtfs.AgencyAndID{},
		shapeIDs:   map[gtfs.AgencyAndID]gtfs.AgencyAndID{},
		notices:    NewNotices(),
	}
}

func (c *compactor) compact(ds *gtfs.Dataset) {
	for _, a := range ds.Agencies() {
		if a.ID == "" {
			c.notices.Add(NoticeEmptyAgencyID, a.Name)
			continue
		}
		a.ID = c.mapAgencyID(a.ID)
	}
	c.agenciesDone = true

	renameAll(c, ds.Routes(), routePrefix,
		func(r *gtfs.Route) gtfs.AgencyAndID { return r.ID },
		func(r *gtfs.Route, id gtfs.AgencyAndID) { r.ID = id })
	renameAll(c, ds.Trips(), tripPrefix,
		func(t *gtfs.Trip) gtfs.AgencyAndID { return t.ID },
		func(t *gtfs.Trip, id gtfs.AgencyAndID) { t.ID = id })
	renameAll(c, ds.Stops(), stopPrefix,
		func(s *gtfs.Stop) gtfs.AgencyAndID { return s.ID },
		func(s *gtfs.Stop, id gtfs.AgencyAndID) { s.ID = id })

	for _, cal := range ds.Calendars() {
		cal.ServiceID = c.mapID(c.serviceIDs, cal.ServiceID, servicePrefix)
	}
	for _, cd := range ds.CalendarDates() {
		cd.ServiceID = c.mapID(c.serviceIDs, cd.ServiceID, servicePrefix)
	}
	for _, t := range ds.Trips() {
		if t.ServiceID.IsZero() {
			c.notices.Add(NoticeNoServiceID, t.ID.String())
		}
		t.ServiceID = c.mapID(c.serviceIDs, t.ServiceID, servicePrefix)
	}

	for _, p := range ds.ShapePoints() {
		p.ShapeID = c.mapID(c.shapeIDs, p.ShapeID, shapePrefix)
	}
	for _, t := range ds.Trips() {
		if t.ShapeID.IsZero() {
			c.notices.Add(NoticeNoShapeID, t.ID.String())
		}
		t.ShapeID = c.mapID(c.shapeIDs, t.ShapeID, shapePrefix)
	}
}

// mapAgencyID returns the compact id of agencyID, allocating the next one on
// first sight.
func (c *compactor) mapAgencyID(agencyID string) string {
	if id, ok := c.agencyIDs[agencyID]; ok {
		return id
	}
	id := agencyPrefix + strconv.Itoa(len(c.agencyIDs))
	c.agencyIDs[agencyID] = id
	if c.agenciesDone {
		c.notices.Add(NoticeUnlistedAgency, agencyID)
	}
	return id
}

// mapID translates a cross reference through table. The absent id maps to
// itself and is not recorded.
func (c *compactor) mapID(table map[gtfs.AgencyAndID]gtfs.AgencyAndID, old gtfs.AgencyAndID, prefix string) gtfs.AgencyAndID {
	if old.IsZero() {
		return old
	}
	if id, ok := table[old]; ok {
		return id
	}
	id := gtfs.NewAgencyAndID(c.mapAgencyID(old.AgencyID), prefix+strconv.Itoa(len(table)))
	table[old] = id
	return id
}

// renameAll gives the i-th entity the id prefix+i within its remapped agency.
func renameAll[T any](c *compactor, items []*T, prefix string, get func(*T) gtfs.AgencyAndID, set func(*T, gtfs.AgencyAndID)) {
	for i, item := range items {
		old := get(item)
		set(item, gtfs.NewAgencyAndID(c.mapAgencyID(old.AgencyID), prefix+strconv.Itoa(i)))
	}
}
