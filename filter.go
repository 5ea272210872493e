package aradel

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule represents a single filtering rule in the journal filter.
// It contains a compiled regular expression and the type of matching to perform.
type Rule struct {
	Pattern   *regexp.Regexp // Compiled regular expression pattern
	MatchType string         // Type of matching: "statement" or "kind"
}

// Filter represents the inclusion/exclusion rules and default behavior for
// deciding which statements the connection records. It manages sets of rules
// and determines whether a statement should be journaled based on its text
// or on the kind of call that produced it.
type Filter struct {
	IncludeRules map[string]Rule // Map of inclusion rules, key format: "pattern|matchType"
	ExcludeRules map[string]Rule // Map of exclusion rules, key format: "pattern|matchType"
	DefaultAllow bool            // Default behavior for statements not matching any rule
}

// NewFilter creates a new Filter with the specified default behavior.
//
// Parameters:
//   - defaultAllow: Whether to record statements that don't match any rules
//
// Returns:
//   - *Filter: New filter instance with empty rule sets
func NewFilter(defaultAllow bool) *Filter {
	return &Filter{
		IncludeRules: make(map[string]Rule),
		ExcludeRules: make(map[string]Rule),
		DefaultAllow: defaultAllow,
	}
}

// Matches determines if a statement should be recorded, checking exclusion
// rules first, then inclusion rules, then the default behavior. Statement
// rules run against the statement text, kind rules against the kind of call
// (exec, query or prepare).
func (f *Filter) Matches(statement string, kind string) bool {
	// Check exclusion rules first
	for _, rule := range f.ExcludeRules {
		var target string
		switch rule.MatchType {
		case "statement":
			target = statement
		case "kind":
			target = kind
		default:
			continue // Skip unknown match types
		}
		if rule.Pattern.MatchString(target) {
			return false // Denied by exclude rule
		}
	}

	// Check inclusion rules
	for _, rule := range f.IncludeRules {
		var target string
		switch rule.MatchType {
		case "statement":
			target = statement
		case "kind":
			target = kind
		default:
			continue // Skip unknown match types
		}
		if rule.Pattern.MatchString(target) {
			return true // Allowed by include rule
		}
	}

	// Default behavior
	return f.DefaultAllow
}

// ClearRules clears all inclusion and exclusion rules from the filter
func (f *Filter) ClearRules() {
	f.IncludeRules = make(map[string]Rule)
	f.ExcludeRules = make(map[string]Rule)
}

// AddRule adds a rule to the filter
func (f *Filter) AddRule(pattern, matchType string, exclude bool) error {
	matchType = strings.ToLower(matchType)
	if matchType != "statement" && matchType != "kind" {
		return fmt.Errorf("invalid match type: %s", matchType)
	}

	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid regex pattern: %w", err)
	}
	rule := Rule{
		Pattern:   compiled,
		MatchType: matchType,
	}
	key := fmt.Sprintf("%s|%s", compiled.String(), matchType)

	if exclude {
		if _, exists := f.ExcludeRules[key]; exists {
			return fmt.Errorf("rule already exists in exclude list")
		}
		f.ExcludeRules[key] = rule
	} else {
		if _, exists := f.IncludeRules[key]; exists {
			return fmt.Errorf("rule already exists in include list")
		}
		f.IncludeRules[key] = rule
	}

	return nil
}

// RemoveRule removes a rule from the filter
func (f *Filter) RemoveRule(pattern, matchType string, exclude bool) error {
	matchType = strings.ToLower(matchType)
	key := fmt.Sprintf("%s|%s", pattern, matchType)

	if exclude {
		if _, exists := f.ExcludeRules[key]; !exists {
			return fmt.Errorf("rule not found in exclude list")
		}
		delete(f.ExcludeRules, key)
	} else {
		if _, exists := f.IncludeRules[key]; !exists {
			return fmt.Errorf("rule not found in include list")
		}
		delete(f.IncludeRules, key)
	}

	return nil
}
