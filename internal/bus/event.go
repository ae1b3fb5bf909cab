package bus

import (
	"github.com/skein-net/skein/internal/circuit"
	"github.com/skein-net/skein/internal/journal"
)

// Mode names one of the two independent pipelines.
type Mode string

const (
	ModeClient Mode = "client"
	ModeRelay  Mode = "relay"
)

// Event names published on the hub.
const (
	// EventCircuitsUpdated carries the full current circuit set for a mode.
	EventCircuitsUpdated = "circuits-updated"
	// EventCircuitInUse carries the circuit currently believed to be
	// carrying traffic.
	EventCircuitInUse = "circuit-in-use-changed"
	// EventLogEntry carries one deduplicated log entry for display.
	EventLogEntry = "log-entry"
	// EventConnection signals a mode's source connecting or dropping.
	EventConnection = "connection-changed"
)

// Event is the unit the hub fans out. Name selects which payload field is
// populated. Origin identifies the publishing process on the network
// transport so a process can drop its own republished events; it is empty
// for purely local delivery.
type Event struct {
	Name   string `json:"name"`
	Mode   Mode   `json:"mode"`
	Origin string `json:"origin,omitempty"`

	Circuits  []circuit.Circuit `json:"circuits,omitempty"`
	Circuit   *circuit.Circuit  `json:"circuit,omitempty"`
	Entry     *journal.Entry    `json:"entry,omitempty"`
	Connected bool              `json:"connected,omitempty"`
}
