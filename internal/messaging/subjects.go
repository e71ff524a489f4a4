// Package messaging defines standard subject names for the Mercury network bus.
package messaging

// Subject constants for the Mercury network bus.
// Follow the pattern: {domain}.{resource}.{action}
const (
	// SubjectAntibodiesCreated carries newly registered antibodies,
	// published by the originating node.
	SubjectAntibodiesCreated = "mercury.antibodies.created"
)

// Queue group names for load-balanced consumers.
// Workers in the same queue group share messages (each message processed once).
const (
	QueueRegistryWorkers = "registry-workers" // Pool of antibody merge workers
)
