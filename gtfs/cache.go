package gtfs

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// snapshot is the gob form of a Dataset. Object references are stored as
// indices into the owning collection (-1 for nil) so that shared entities are
// not duplicated by the encoder.
type snapshot struct {
	Agencies      []Agency
	Routes        []routeRecord
	Stops         []stopRecord
	Trips         []tripRecord
	StopTimes     []stopTimeRecord
	Calendars     []ServiceCalendar
	CalendarDates []ServiceCalendarDate
	ShapePoints   []ShapePoint
}

type routeRecord struct {
	ID                                               AgencyAndID
	Agency                                           int
	ShortName, LongName, Desc, URL, Color, TextColor string
	Type                                             int
}

type stopRecord struct {
	ID                                          AgencyAndID
	Code, Name, Desc, ZoneID, URL, PlatformCode string
	Lat, Lon                                    float64
	LocationType, WheelchairBoarding            int
	ParentStation                               int
}

type tripRecord struct {
	ID, ServiceID, ShapeID                    AgencyAndID
	Route                                     int
	Headsign, ShortName, DirectionID, BlockID string
	WheelchairAccessible, BikesAllowed        int
}

type stopTimeRecord struct {
	Trip, Stop                            int
	ArrivalTime, DepartureTime, Headsign  string
	StopSequence, PickupType, DropOffType int
	ShapeDistTraveled                     float64
}

func indexOf[T comparable](m map[T]int, v T, isNil bool) int {
	if isNil {
		return -1
	}
	if i, ok := m[v]; ok {
		return i
	}
	return -1
}

func positions[T comparable](items []T) map[T]int {
	m := make(map[T]int, len(items))
	for i, it := range items {
		m[it] = i
	}
	return m
}

func toSnapshot(ds *Dataset) *snapshot {
	agencyPos := positions(ds.agencies)
	routePos := positions(ds.routes)
	stopPos := positions(ds.stops)
	tripPos := positions(ds.trips)

	s := &snapshot{}
	for _, a := range ds.agencies {
		s.Agencies = append(s.Agencies, *a)
	}
	for _, r := range ds.routes {
		s.Routes = append(s.Routes, routeRecord{
			ID: r.ID, Agency: indexOf(agencyPos, r.Agency, r.Agency == nil),
			ShortName: r.ShortName, LongName: r.LongName, Desc: r.Desc, URL: r.URL,
			Color: r.Color, TextColor: r.TextColor, Type: r.Type,
		})
	}
	for _, st := range ds.stops {
		s.Stops = append(s.Stops, stopRecord{
			ID: st.ID, Code: st.Code, Name: st.Name, Desc: st.Desc, ZoneID: st.ZoneID, URL: st.URL,
			PlatformCode: st.PlatformCode, Lat: st.Lat, Lon: st.Lon, LocationType: st.LocationType,
			WheelchairBoarding: st.WheelchairBoarding,
			ParentStation:      indexOf(stopPos, st.ParentStation, st.ParentStation == nil),
		})
	}
	for _, t := range ds.trips {
		s.Trips = append(s.Trips, tripRecord{
			ID: t.ID, ServiceID: t.ServiceID, ShapeID: t.ShapeID,
			Route:    indexOf(routePos, t.Route, t.Route == nil),
			Headsign: t.Headsign, ShortName: t.ShortName, DirectionID: t.DirectionID, BlockID: t.BlockID,
			WheelchairAccessible: t.WheelchairAccessible, BikesAllowed: t.BikesAllowed,
		})
	}
	for _, st := range ds.stopTimes {
		s.StopTimes = append(s.StopTimes, stopTimeRecord{
			Trip: indexOf(tripPos, st.Trip, st.Trip == nil), Stop: indexOf(stopPos, st.Stop, st.Stop == nil),
			ArrivalTime: st.ArrivalTime, DepartureTime: st.DepartureTime, Headsign: st.StopHeadsign,
			StopSequence: st.StopSequence, PickupType: st.PickupType, DropOffType: st.DropOffType,
			ShapeDistTraveled: st.ShapeDistTraveled,
		})
	}
	for _, c := range ds.calendars {
		s.Calendars = append(s.Calendars, *c)
	}
	for _, cd := range ds.calendarDates {
		s.CalendarDates = append(s.CalendarDates, *cd)
	}
	for _, p := range ds.shapePoints {
		s.ShapePoints = append(s.ShapePoints, *p)
	}
	return s
}

func at[T any](items []*T, i int) (*T, error) {
	if i == -1 {
		return nil, nil
	}
	if i < 0 || i >= len(items) {
		return nil, fmt.Errorf("snapshot reference %d out of range: %w", i, ErrUnknownReference)
	}
	return items[i], nil
}

func (s *snapshot) toDataset() (*Dataset, error) {
	ds := NewDataset()
	for i := range s.Agencies {
		a := s.Agencies[i]
		ds.AddAgency(&a)
	}
	for _, r := range s.Routes {
		agency, err := at(ds.agencies, r.Agency)
		if err != nil {
			return nil, err
		}
		ds.AddRoute(&Route{
			ID: r.ID, Agency: agency, ShortName: r.ShortName, LongName: r.LongName, Desc: r.Desc,
			Type: r.Type, URL: r.URL, Color: r.Color, TextColor: r.TextColor,
		})
	}
	for _, st := range s.Stops {
		ds.AddStop(&Stop{
			ID: st.ID, Code: st.Code, Name: st.Name, Desc: st.Desc, Lat: st.Lat, Lon: st.Lon,
			ZoneID: st.ZoneID, URL: st.URL, LocationType: st.LocationType,
			WheelchairBoarding: st.WheelchairBoarding, PlatformCode: st.PlatformCode,
		})
	}
	// parents can point forward in the collection
	for i, st := range s.Stops {
		parent, err := at(ds.stops, st.ParentStation)
		if err != nil {
			return nil, err
		}
		ds.stops[i].ParentStation = parent
	}
	for _, t := range s.Trips {
		route, err := at(ds.routes, t.Route)
		if err != nil {
			return nil, err
		}
		ds.AddTrip(&Trip{
			ID: t.ID, Route: route, ServiceID: t.ServiceID, ShapeID: t.ShapeID,
			Headsign: t.Headsign, ShortName: t.ShortName, DirectionID: t.DirectionID, BlockID: t.BlockID,
			WheelchairAccessible: t.WheelchairAccessible, BikesAllowed: t.BikesAllowed,
		})
	}
	for _, st := range s.StopTimes {
		trip, err := at(ds.trips, st.Trip)
		if err != nil {
			return nil, err
		}
		stop, err := at(ds.stops, st.Stop)
		if err != nil {
			return nil, err
		}
		ds.AddStopTime(&StopTime{
			Trip: trip, Stop: stop, ArrivalTime: st.ArrivalTime, DepartureTime: st.DepartureTime,
			StopSequence: st.StopSequence, StopHeadsign: st.Headsign, PickupType: st.PickupType,
			DropOffType: st.DropOffType, ShapeDistTraveled: st.ShapeDistTraveled,
		})
	}
	for i := range s.Calendars {
		c := s.Calendars[i]
		ds.AddCalendar(&c)
	}
	for i := range s.CalendarDates {
		cd := s.CalendarDates[i]
		ds.AddCalendarDate(&cd)
	}
	for i := range s.ShapePoints {
		p := s.ShapePoints[i]
		ds.AddShapePoint(&p)
	}
	if err := ds.Reindex(); err != nil {
		return nil, err
	}
	return ds, nil
}

// SerializeDataset encodes a Dataset to bytes using gob encoding.
// This is useful for caching a parsed feed between pipeline runs.
func SerializeDataset(ds *Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := SerializeDatasetToWriter(ds, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeDataset decodes a Dataset previously produced by SerializeDataset.
// The returned dataset is already reindexed.
func DeserializeDataset(data []byte) (*Dataset, error) {
	return DeserializeDatasetFromReader(bytes.NewReader(data))
}

// SerializeDatasetToFile writes a Dataset snapshot to a file.
func SerializeDatasetToFile(ds *Dataset, filepath string) error {
	data, err := SerializeDataset(ds)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, data, 0644)
}

// DeserializeDatasetFromFile reads a Dataset snapshot from a file.
func DeserializeDatasetFromFile(filepath string) (*Dataset, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	return DeserializeDataset(data)
}

// SerializeDatasetToWriter writes a Dataset snapshot to an io.Writer.
func SerializeDatasetToWriter(ds *Dataset, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(toSnapshot(ds)); err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	return nil
}

// DeserializeDatasetFromReader reads a Dataset snapshot from an io.Reader.
func DeserializeDatasetFromReader(r io.Reader) (*Dataset, error) {
	var s snapshot
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	return s.toDataset()
}
