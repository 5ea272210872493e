// Package domain defines the core data structures shared across the Aradel
// connection layer. It contains the primary domain models, such as Log,
// QueryRecord and ErrorInfo, as well as the repository interfaces that define
// the contracts for journal persistence.
//
// This package serves as the central point for layer-wide types,
// ensuring a clean separation between the connection logic and its
// implementation details, such as the journal database or the MySQL driver.
// By defining interfaces for repositories, the domain package remains
// independent of the data storage technology.
package domain
