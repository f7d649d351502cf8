// Package domain models Vélib' (Paris bike share) availability data.
//
// # Data Source
//
// Snapshots originate from the OpenDataSoft real-time export of the
// "velib-disponibilite-en-temps-reel" dataset published by the city of Paris.
// The extraction run fetches the full export every few minutes and appends it
// unmodified to the raw snapshot store; the transform run reads the most
// recent snapshot and derives two relations from it: station metadata
// (slowly changing, upserted) and station availability (an append-only
// time series).
//
// # Feed Conventions
//
// Each record carries a "fields" object with loosely typed values:
//
//	stationcode              station identifier, required; records without it
//	                         are dropped
//	coordonnees_geo          [latitude, longitude] pair; missing or short
//	                         pairs default both coordinates to 0
//	capacity, numbikesavailable, mechanical, ebike, numdocksavailable
//	                         counts; missing or non-numeric values default to 0
//	is_installed, is_renting, is_returning
//	                         "OUI" means yes; anything else, including
//	                         absence, means no
//	duedate                  ISO-8601 event time with a "+00:00" suffix,
//	                         e.g. "2024-01-15T10:30:00+00:00"
//
// # Event Time Fallback
//
// When duedate is absent or unparseable the availability row gets the current
// processing time instead. The substitution is an explicit outcome
// ([EventTimeSubstituted]) rather than a silent default, and the time source
// is the package clock, so tests that freeze the clock get deterministic
// output. See [ParseEventTime].
package domain
