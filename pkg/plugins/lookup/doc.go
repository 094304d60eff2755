// Package lookup provides a SQL-backed lookup-table capability for schema
// expressions. Integration mappings often translate codes through reference
// tables; the lookup module exposes those tables as plain functions:
//
//	plugins:
//	  - lookup
//	mapping:
//	  type: expr
//	  mapping: [["$1.lookup:get"], "countries", "iso2", "$0.country", "name"]
//
// The database is opened with the pure Go modernc.org/sqlite driver.
package lookup
