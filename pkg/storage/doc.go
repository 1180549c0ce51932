// Package storage provides what the store implementations share: sentinel
// errors and the YAML fixture format used to seed a database.
//
// Stores (memory, postgres, sqlite) implement the search.Store interface
// defined in pkg/search. SQL generation lives in the sqlquery subpackage and
// the schema migrations in the schema subpackage.
package storage
