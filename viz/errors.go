package viz

import "errors"

var (
	// ErrUnknownAlgorithm is returned for an Algorithm outside the closed
	// set or a name ParseAlgorithm does not recognize.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrNoGraph is returned when a graph traversal is run before a graph
	// was submitted.
	ErrNoGraph = errors.New("no graph submitted")

	// ErrStartNotFound is returned when the submitted start node is not a
	// node of the submitted graph.
	ErrStartNotFound = errors.New("start node not found in graph")

	// ErrNoArchive is returned by Replay when no archive is configured.
	ErrNoArchive = errors.New("no archive configured")
)
