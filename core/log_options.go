// Package core provides fundamental utilities for the Aradel connection layer.
// This file contains option functions for customizing log entries.
package core

import (
	"github.com/google/uuid"
	"github.com/tfkr-ae/aradel/domain"
)

// LogWithContext is an option to add a context map to a log entry.
func LogWithContext(context map[string]any) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		log.Context = context
		return nil
	}
}

// LogWithQueryID is an option to associate a log entry with a query record ID.
func LogWithQueryID(id uuid.UUID) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		log.QueryID = &id
		return nil
	}
}
