package gtfs_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/theoremus-urban-solutions/gtfs-transformer/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-transformer/gtfs/gtfstest"
)

func sampleFeed() *gtfstest.MockGTFS {
	m := gtfstest.New()
	m.PutAgencies(1, "agency_id=A")
	m.PutStops(3)
	m.PutRoutes(2)
	m.PutCalendars(1, "mask=1111100")
	m.PutTrips(2, "r0,r1", "sid0", "shape_id=shp")
	m.PutStopTimes("t0,t1", "stop0,stop1,stop2")
	m.PutLines("shapes.txt",
		"shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence",
		"shp,47.1,-122.1,2",
		"shp,47.0,-122.0,1",
	)
	return m
}

func TestLoadScopesIdentifiers(t *testing.T) {
	ds, err := sampleFeed().Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	counts := ds.Counts()
	want := map[string]int{"agency": 1, "stops": 3, "routes": 2, "trips": 2, "stop_times": 6, "calendar": 1, "shapes": 2}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("Counts()[%q] = %d, want %d", k, counts[k], v)
		}
	}

	r0 := ds.RouteForID(gtfs.NewAgencyAndID("A", "r0"))
	if r0 == nil {
		t.Fatal("route A_r0 not indexed")
	}
	if r0.Agency == nil || r0.Agency.ID != "A" {
		t.Errorf("route agency = %+v, want A", r0.Agency)
	}

	t1 := ds.TripForID(gtfs.NewAgencyAndID("A", "t1"))
	if t1 == nil {
		t.Fatal("trip A_t1 not indexed")
	}
	if t1.Route.ID.ID != "r1" {
		t.Errorf("trip route = %s, want r1", t1.Route.ID)
	}
	if t1.ServiceID != gtfs.NewAgencyAndID("A", "sid0") {
		t.Errorf("trip service = %s, want A_sid0", t1.ServiceID)
	}
	if t1.ShapeID != gtfs.NewAgencyAndID("A", "shp") {
		t.Errorf("trip shape = %s, want A_shp", t1.ShapeID)
	}

	sts := ds.StopTimesForTrip(t1)
	if len(sts) != 3 {
		t.Fatalf("got %d stop times for t1, want 3", len(sts))
	}
	if sts[2].Stop.ID != gtfs.NewAgencyAndID("A", "stop2") {
		t.Errorf("last stop = %s, want A_stop2", sts[2].Stop.ID)
	}
	if !math.IsNaN(sts[0].ShapeDistTraveled) {
		t.Errorf("missing shape_dist_traveled should be NaN, got %v", sts[0].ShapeDistTraveled)
	}

	cal := ds.CalendarForServiceID(gtfs.NewAgencyAndID("A", "sid0"))
	if cal == nil {
		t.Fatal("calendar A_sid0 not indexed")
	}
	if cal.Friday != 1 || cal.Saturday != 0 {
		t.Errorf("calendar mask friday=%d saturday=%d, want 1 and 0", cal.Friday, cal.Saturday)
	}

	pts := ds.ShapePointsForShapeID(gtfs.NewAgencyAndID("A", "shp"))
	if len(pts) != 2 || pts[0].Sequence != 1 {
		t.Errorf("shape points not sorted by sequence: %+v", pts)
	}

	t.Logf("✓ Loaded %v", counts)
}

func TestLoadRouteAgencyColumn(t *testing.T) {
	m := gtfstest.New()
	m.PutAgencies(2, "agency_id=A,B")
	m.PutStops(2)
	m.PutRoutes(2, "agency_id=A,B")
	m.PutCalendars(1)
	m.PutTrips(2, "r0,r1", "sid0", "shape_id=shp")
	m.PutLines("shapes.txt",
		"shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence",
		"shp,47.0,-122.0,1",
	)

	ds, err := m.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	trip := ds.TripForID(gtfs.NewAgencyAndID("B", "t1"))
	if trip == nil {
		t.Fatal("trip B_t1 not indexed")
	}
	// calendars and shapes have no agency column, so trips of every agency
	// reference them in the default scope
	if trip.ServiceID != gtfs.NewAgencyAndID("A", "sid0") {
		t.Errorf("service id = %s, want A_sid0", trip.ServiceID)
	}
	if ds.CalendarForServiceID(trip.ServiceID) == nil {
		t.Errorf("calendar for %s not found", trip.ServiceID)
	}
	if len(ds.ShapePointsForShapeID(trip.ShapeID)) != 1 {
		t.Errorf("shape points for %s not found", trip.ShapeID)
	}
	// stops stay on the default agency
	if ds.StopForID(gtfs.NewAgencyAndID("A", "stop1")) == nil {
		t.Error("stop A_stop1 not indexed")
	}
}

func TestLoadDefaultAgencyOption(t *testing.T) {
	m := gtfstest.New()
	m.PutLines("agency.txt",
		"agency_name,agency_url,agency_timezone",
		"Metro,http://metro.example/,Europe/Sofia",
	)
	m.PutStops(1)
	m.Options.DefaultAgencyID = "metro"

	ds, err := m.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ds.AgencyForID("metro") == nil {
		t.Error("agency without agency_id should take the default id")
	}
	if ds.StopForID(gtfs.NewAgencyAndID("metro", "stop0")) == nil {
		t.Error("stop not scoped to the default agency")
	}
}

func TestLoadAgencyWithoutID(t *testing.T) {
	m := gtfstest.New()
	m.PutLines("agency.txt",
		"agency_name,agency_url,agency_timezone",
		"Metro,http://metro.example/,Europe/Sofia",
	)
	m.PutStops(1)
	m.PutRoutes(1)
	m.PutTrips(1, "r0", "sid0")

	ds, err := m.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ds.AgencyForID("Metro") == nil {
		t.Fatal("agency without agency_id should take its name as id")
	}
	route := ds.Routes()[0]
	if route.ID.AgencyID != "Metro" || route.Agency == nil {
		t.Errorf("route = %s agency %v, want scope Metro", route.ID, route.Agency)
	}
	if ds.AgencyForID(ds.Stops()[0].ID.AgencyID) == nil {
		t.Errorf("stop %s scoped to unknown agency", ds.Stops()[0].ID)
	}
}

func TestLoadDefaultAgencyFromFirstRow(t *testing.T) {
	m := gtfstest.New()
	m.PutLines("agency.txt",
		"agency_id,agency_name,agency_url,agency_timezone",
		",First,http://first.example/,Europe/Sofia",
		"B,Second,http://second.example/,Europe/Sofia",
	)
	m.PutStops(1)

	ds, err := m.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ds.StopForID(gtfs.NewAgencyAndID("First", "stop0")) == nil {
		t.Errorf("stop scoped to %q, want the first agency", ds.Stops()[0].ID.AgencyID)
	}
}

func TestLoadAbsentReferences(t *testing.T) {
	m := gtfstest.New()
	m.PutAgencies(1, "agency_id=A")
	m.PutRoutes(1)
	m.PutLines("trips.txt", "route_id,service_id,trip_id,shape_id", "r0,,t0,")

	ds, err := m.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	trip := ds.Trips()[0]
	if !trip.ServiceID.IsZero() || !trip.ShapeID.IsZero() {
		t.Errorf("empty columns should load as absent references, got %s / %s", trip.ServiceID, trip.ShapeID)
	}
	if len(ds.AllServiceIDs()) != 0 || len(ds.AllShapeIDs()) != 0 {
		t.Error("absent references should not be listed")
	}
}

func TestLoadParentStation(t *testing.T) {
	m := gtfstest.New()
	m.PutAgencies(1, "agency_id=A")
	m.PutLines("stops.txt",
		"stop_id,stop_name,stop_lat,stop_lon,location_type,parent_station",
		"platform,Platform 1,1,2,0,station",
		"station,Central,1,2,1,",
	)

	ds, err := m.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	platform := ds.StopForID(gtfs.NewAgencyAndID("A", "platform"))
	if platform == nil || platform.ParentStation == nil {
		t.Fatal("parent station not linked")
	}
	if platform.ParentStation.ID.ID != "station" {
		t.Errorf("parent = %s, want station", platform.ParentStation.ID)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(m *gtfstest.MockGTFS)
		want  error
	}{
		{
			name: "unknown route",
			build: func(m *gtfstest.MockGTFS) {
				m.PutAgencies(1)
				m.PutRoutes(1)
				m.PutTrips(1, "missing", "sid0")
			},
			want: gtfs.ErrUnknownReference,
		},
		{
			name: "unknown stop",
			build: func(m *gtfstest.MockGTFS) {
				m.PutAgencies(1)
				m.PutStops(1)
				m.PutRoutes(1)
				m.PutTrips(1, "r0", "sid0")
				m.PutStopTimes("t0", "stop0,nowhere")
			},
			want: gtfs.ErrUnknownReference,
		},
		{
			name: "unknown parent station",
			build: func(m *gtfstest.MockGTFS) {
				m.PutAgencies(1)
				m.PutStops(1, "parent_station=ghost")
			},
			want: gtfs.ErrUnknownReference,
		},
		{
			name: "no agency",
			build: func(m *gtfstest.MockGTFS) {
				m.PutStops(1)
			},
			want: gtfs.ErrMissingAgency,
		},
		{
			name: "duplicate stop",
			build: func(m *gtfstest.MockGTFS) {
				m.PutAgencies(1)
				m.PutStops(2, "stop_id=same")
			},
			want: gtfs.ErrDuplicateID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := gtfstest.New()
			tt.build(m)
			_, err := m.Read()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Read() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadBadNumber(t *testing.T) {
	m := gtfstest.New()
	m.PutAgencies(1)
	m.PutRoutes(1, "route_type=bus")

	_, err := m.Read()
	if err == nil {
		t.Fatal("expected parse error")
	}
	const want = "routes.txt line 2 column route_type"
	if !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not name %q", err, want)
	}
}

func TestLoadNestedFolderAndBOM(t *testing.T) {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	files := map[string]string{
		"feed/agency.txt": "\ufeffAgency_ID,agency_name,agency_url,agency_timezone\nX,X,http://x/,UTC\n",
		"feed/stops.txt":  "STOP_ID,stop_name\nq\n",
	}
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	ds, err := gtfs.LoadFromBytes(buf.Bytes(), gtfs.LoadOptions{})
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}
	if ds.AgencyForID("X") == nil {
		t.Error("BOM-prefixed header not recognised")
	}
	stop := ds.StopForID(gtfs.NewAgencyAndID("X", "q"))
	if stop == nil {
		t.Fatal("stop in nested folder not loaded")
	}
	if stop.Name != "" {
		t.Errorf("short row should yield empty name, got %q", stop.Name)
	}
}
