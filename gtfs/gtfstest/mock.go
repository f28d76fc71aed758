// Package gtfstest builds small GTFS feeds in memory for tests.
//
// Column overrides follow the form "column=v1,v2,v3". Values are assigned to rows
// in order and cycle when there are fewer values than rows; a single value
// applies to every row.
package gtfstest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/theoremus-urban-solutions/gtfs-transformer/gtfs"
)

// MockGTFS accumulates feed files and serializes them as a GTFS zip.
type MockGTFS struct {
	files map[string][]string
	order []string

	// Options are passed to the loader by Read.
	Options gtfs.LoadOptions
}

// New creates an empty feed.
func New() *MockGTFS {
	return &MockGTFS{files: map[string][]string{}}
}

// PutLines replaces the content of file with raw CSV lines, header first.
func (m *MockGTFS) PutLines(file string, lines ...string) {
	if _, ok := m.files[file]; !ok {
		m.order = append(m.order, file)
	}
	m.files[file] = lines
}

type column struct {
	name  string
	value func(i int) string
}

func fixed(name, v string) column {
	return column{name: name, value: func(int) string { return v }}
}

func indexed(name, format string) column {
	return column{name: name, value: func(i int) string { return fmt.Sprintf(format, i) }}
}

func parseColumn(s string) column {
	name, raw, _ := strings.Cut(s, "=")
	values := strings.Split(raw, ",")
	return column{name: name, value: func(i int) string { return values[i%len(values)] }}
}

// putTable writes n rows. overrides replace defaults with the same name and
// append new columns otherwise.
func (m *MockGTFS) putTable(file string, n int, defaults []column, overrides []string) {
	cols := append([]column(nil), defaults...)
	for _, o := range overrides {
		c := parseColumn(o)
		replaced := false
		for i := range cols {
			if cols[i].name == c.name {
				cols[i] = c
				replaced = true
			}
		}
		if !replaced {
			cols = append(cols, c)
		}
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	lines := []string{strings.Join(names, ",")}
	for i := 0; i < n; i++ {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = c.value(i)
		}
		lines = append(lines, strings.Join(row, ","))
	}
	m.PutLines(file, lines...)
}

// PutAgencies writes n agencies to agency.txt.
func (m *MockGTFS) PutAgencies(n int, columns ...string) {
	m.putTable("agency.txt", n, []column{
		indexed("agency_id", "agency%d"),
		indexed("agency_name", "Agency %d"),
		fixed("agency_url", "http://agency.gov/"),
		fixed("agency_timezone", "America/Los_Angeles"),
	}, columns)
}

// PutDefaultAgency writes a single agency with the given id.
func (m *MockGTFS) PutDefaultAgency(id string) {
	m.PutAgencies(1, "agency_id="+id)
}

// PutStops writes n stops to stops.txt.
func (m *MockGTFS) PutStops(n int, columns ...string) {
	m.putTable("stops.txt", n, []column{
		indexed("stop_id", "stop%d"),
		indexed("stop_name", "Stop %d"),
		{name: "stop_lat", value: func(i int) string { return fmt.Sprintf("%.4f", 47.6+float64(i)*0.001) }},
		{name: "stop_lon", value: func(i int) string { return fmt.Sprintf("%.4f", -122.3-float64(i)*0.001) }},
	}, columns)
}

// PutRoutes writes n bus routes to routes.txt.
func (m *MockGTFS) PutRoutes(n int, columns ...string) {
	m.putTable("routes.txt", n, []column{
		indexed("route_id", "r%d"),
		indexed("route_short_name", "%d"),
		fixed("route_type", "3"),
	}, columns)
}

// PutCalendars writes n calendars. The pseudo column "mask=1111100" sets the
// weekday flags monday through sunday.
func (m *MockGTFS) PutCalendars(n int, columns ...string) {
	mask := "1111111"
	rest := make([]string, 0, len(columns))
	for _, c := range columns {
		if v, ok := strings.CutPrefix(c, "mask="); ok {
			mask = v
			continue
		}
		rest = append(rest, c)
	}
	defaults := []column{indexed("service_id", "sid%d")}
	for i, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
		defaults = append(defaults, fixed(day, mask[i:i+1]))
	}
	defaults = append(defaults, fixed("start_date", "20240101"), fixed("end_date", "20241231"))
	m.putTable("calendar.txt", n, defaults, rest)
}

// PutTrips writes n trips. routeIDs and serviceIDs are comma separated lists
// that cycle over the rows.
func (m *MockGTFS) PutTrips(n int, routeIDs, serviceIDs string, columns ...string) {
	m.putTable("trips.txt", n, []column{
		parseColumn("route_id=" + routeIDs),
		parseColumn("service_id=" + serviceIDs),
		indexed("trip_id", "t%d"),
	}, columns)
}

// PutStopTimes writes one stop time per stop for every trip, five minutes
// apart starting at 08:00.
func (m *MockGTFS) PutStopTimes(tripIDs, stopIDs string) {
	lines := []string{"trip_id,arrival_time,departure_time,stop_id,stop_sequence"}
	for _, trip := range strings.Split(tripIDs, ",") {
		for seq, stop := range strings.Split(stopIDs, ",") {
			at := fmt.Sprintf("%02d:%02d:00", 8+seq*5/60, seq*5%60)
			lines = append(lines, strings.Join([]string{trip, at, at, stop, fmt.Sprint(seq)}, ","))
		}
	}
	m.PutLines("stop_times.txt", lines...)
}

// Bytes serializes the feed as a zip.
func (m *MockGTFS) Bytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for _, name := range m.order {
		f, err := w.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := f.Write([]byte(strings.Join(m.files[name], "\n") + "\n")); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read loads the feed into a dataset.
func (m *MockGTFS) Read() (*gtfs.Dataset, error) {
	data, err := m.Bytes()
	if err != nil {
		return nil, err
	}
	return gtfs.LoadFromBytes(data, m.Options)
}
