// Package mock provides an in-memory mock implementation of
// [capture.Source] for use in unit tests.
//
// The mock records every method call so tests can assert on call counts, and
// exposes exported fields the test sets to control return values.
//
// Typical usage:
//
//	src := &mock.Source{InfoResult: capture.StreamInfo{Backend: "mock"}}
//
// Safe for concurrent use.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/soundfield/pkg/capture"
)

// Source is a mock implementation of [capture.Source].
// Set the exported Result/Error fields before use; inspect the Call* fields
// after.
type Source struct {
	mu sync.Mutex

	// StartError is returned by [Source.Start].
	StartError error

	// InfoResult is returned by [Source.Info].
	InfoResult capture.StreamInfo

	// CloseError is returned by the first call to [Source.Close].
	CloseError error

	// CallCountStart records how many times Start was called.
	CallCountStart int

	// CallCountInfo records how many times Info was called.
	CallCountInfo int

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

// Start implements [capture.Source]. Returns StartError.
func (s *Source) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStart++
	return s.StartError
}

// Info implements [capture.Source]. Returns InfoResult.
func (s *Source) Info() capture.StreamInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountInfo++
	return s.InfoResult
}

// Close implements [capture.Source]. Returns CloseError on the first call
// and nil afterwards, matching the idempotence contract.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	if s.CallCountClose == 1 {
		return s.CloseError
	}
	return nil
}
