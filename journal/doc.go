// Package journal provides the persistence layer for the Aradel connection
// journal. It encapsulates all interactions with the underlying SQLite
// database, managing storage for executed statements and connection logs.
//
// This package is responsible for:
// - Establishing and managing the journal database connection (`journal.go`).
// - Defining database-specific data structures that map to SQL table schemas.
// - Implementing the repository interfaces from the `domain` package
//   (`QueryRepository`, `LogRepository`) to perform CRUD operations.
// - Handling data conversion between domain structs and database-friendly
//   structs, including the use of `sql.Null*` types for nullable fields.
// - Managing database migrations (`migrations/`).
// - Providing common database utility types (`types.go`).
package journal
