package gtfs

import (
	"cmp"
	"strings"
)

// AgencyAndID identifies an entity within the agency that scopes it.
// The zero value stands for an absent reference.
type AgencyAndID struct {
	AgencyID string `json:"agencyId"`
	ID       string `json:"id"`
}

// NewAgencyAndID builds an id scoped to agencyID.
func NewAgencyAndID(agencyID, id string) AgencyAndID {
	return AgencyAndID{AgencyID: agencyID, ID: id}
}

// ParseAgencyAndID splits "AGENCY_ID" on the first underscore. A value without
// an underscore is returned as a local id with an empty agency.
func ParseAgencyAndID(s string) AgencyAndID {
	agency, id, ok := strings.Cut(s, "_")
	if !ok {
		return AgencyAndID{ID: s}
	}
	return AgencyAndID{AgencyID: agency, ID: id}
}

// IsZero reports whether the id is the absent reference.
func (a AgencyAndID) IsZero() bool { return a.AgencyID == "" && a.ID == "" }

func (a AgencyAndID) String() string { return a.AgencyID + "_" + a.ID }

// Compare orders ids by agency, then by local id.
func Compare(a, b AgencyAndID) int {
	if c := cmp.Compare(a.AgencyID, b.AgencyID); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Agency is a row of agency.txt. Its id is a plain string, not an AgencyAndID.
type Agency struct {
	ID       string // agency_id
	Name     string // agency_name
	URL      string // agency_url
	Timezone string // agency_timezone
	Lang     string // agency_lang
	Phone    string // agency_phone
}

// Route is a row of routes.txt.
type Route struct {
	ID        AgencyAndID // route_id
	Agency    *Agency     // agency_id
	ShortName string      // route_short_name
	LongName  string      // route_long_name
	Desc      string      // route_desc
	Type      int         // route_type
	URL       string      // route_url
	Color     string      // route_color
	TextColor string      // route_text_color
}

// Stop is a row of stops.txt.
type Stop struct {
	ID                 AgencyAndID // stop_id
	Code               string      // stop_code
	Name               string      // stop_name
	Desc               string      // stop_desc
	Lat                float64     // stop_lat
	Lon                float64     // stop_lon
	ZoneID             string      // zone_id
	URL                string      // stop_url
	LocationType       int         // location_type
	ParentStation      *Stop       // parent_station
	WheelchairBoarding int         // wheelchair_boarding
	PlatformCode       string      // platform_code
}

// Trip is a row of trips.txt. ServiceID and ShapeID are value references and
// may be zero when the feed leaves them empty.
type Trip struct {
	ID                   AgencyAndID // trip_id
	Route                *Route      // route_id
	ServiceID            AgencyAndID // service_id
	ShapeID              AgencyAndID // shape_id
	Headsign             string      // trip_headsign
	ShortName            string      // trip_short_name
	DirectionID          string      // direction_id ("0"|"1"|"")
	BlockID              string      // block_id
	WheelchairAccessible int         // wheelchair_accessible
	BikesAllowed         int         // bikes_allowed
}

// StopTime is a row of stop_times.txt.
type StopTime struct {
	Trip              *Trip   // trip_id
	Stop              *Stop   // stop_id
	ArrivalTime       string  // arrival_time (HH:MM:SS, may exceed 24h)
	DepartureTime     string  // departure_time
	StopSequence      int     // stop_sequence
	StopHeadsign      string  // stop_headsign
	PickupType        int     // pickup_type
	DropOffType       int     // drop_off_type
	ShapeDistTraveled float64 // shape_dist_traveled, NaN when missing
}

// ServiceCalendar is a row of calendar.txt.
type ServiceCalendar struct {
	ServiceID AgencyAndID // service_id
	Monday    int         // monday
	Tuesday   int         // tuesday
	Wednesday int         // wednesday
	Thursday  int         // thursday
	Friday    int         // friday
	Saturday  int         // saturday
	Sunday    int         // sunday
	StartDate string      // start_date (YYYYMMDD)
	EndDate   string      // end_date (YYYYMMDD)
}

// ServiceCalendarDate is a row of calendar_dates.txt.
type ServiceCalendarDate struct {
	ServiceID     AgencyAndID // service_id
	Date          string      // date (YYYYMMDD)
	ExceptionType int         // exception_type (1 = added, 2 = removed)
}

// ShapePoint is a row of shapes.txt.
type ShapePoint struct {
	ShapeID      AgencyAndID // shape_id
	Lat          float64     // shape_pt_lat
	Lon          float64     // shape_pt_lon
	Sequence     int         // shape_pt_sequence
	DistTraveled float64     // shape_dist_traveled, NaN when missing
}
