/*
Package gtfs provides an in-memory, mutable model of a static GTFS feed.

The package reads a GTFS zip into a Dataset, lets transformation strategies
rewrite entities in place, and writes the result back as a zip or as a gob
snapshot. It does NOT handle HTTP downloads or object storage; see the
feedstore package for that.

# Basic Usage

Load from raw bytes:

	data := fetchGTFSFromYourSource()

	ds, err := gtfs.LoadFromBytes(data, gtfs.LoadOptions{})
	if err != nil {
	    log.Fatal(err)
	}

	trip := ds.TripForID(gtfs.NewAgencyAndID("AGENCY", "trip_123"))

# Identifiers

Routes, trips, stops and the service/shape references are AgencyAndID values:
a (agency id, local id) pair. The loader scopes them as follows:

  - routes: their agency_id column, else the default agency
  - trips, and their service_id/shape_id: the agency of the trip's route
  - stops, calendars, calendar dates, shape points: the default agency

The default agency is LoadOptions.DefaultAgencyID, else the first agency in
agency.txt.

Routes, stops and trips are linked by pointer (Trip.Route, StopTime.Trip,
StopTime.Stop, Stop.ParentStation), so changing an entity's ID never leaves
those references dangling. Service and shape ids are plain values and must be
rewritten together with their owners.

# Reindexing

Collections keep insertion order. Lookups such as TripForID are served from
indices; after mutating ids in place call Reindex so that lookups resolve the
new ids.
*/
package gtfs
