// Package bunstore implements entitystore.Client on top of a SQL database
// through bun. It backs local development and tests where no remote
// organization is reachable: entities are stored as a logical name plus a
// JSON attribute bag, fetch expressions are prefiltered in SQL by entity
// type and evaluated in memory.
package bunstore
