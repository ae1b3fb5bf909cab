package circuit

import (
	"encoding/json"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SignalKind identifies what a parsed line contributes to circuit state.
type SignalKind int

const (
	// SignalOpened marks the first heuristic sighting of a circuit id.
	SignalOpened SignalKind = iota
	// SignalBuilt carries an authoritative envelope event with the full
	// ordered relay list.
	SignalBuilt
	// SignalStatus updates the lifecycle status of a circuit.
	SignalStatus
	// SignalCreated carries creation-time diagnostics (idle timeout and
	// predicted build time).
	SignalCreated
	// SignalFingerprint appends a hop fingerprint to the current circuit.
	SignalFingerprint
	// SignalIP contributes a relay IP to the current circuit.
	SignalIP
	// SignalUsed records traffic flow on a circuit.
	SignalUsed
)

// Signal is the typed result of parsing one diagnostic line. Only the
// fields relevant to its Kind are populated; CircuitID is always set (the
// parser resolves cursor-relative lines before emitting).
type Signal struct {
	Kind      SignalKind
	CircuitID int64

	Relays      []Relay // SignalBuilt
	Fingerprint string  // SignalFingerprint
	IP          string  // SignalIP
	Status      Status  // SignalStatus

	IdleTimeoutSec int // SignalCreated
	BuildTimeSec   int // SignalCreated

	At time.Time
}

// Envelope delimiters for the structured micro-format skeind embeds in
// otherwise free-form lines.
const (
	envelopeStart = "EVENT:"
	envelopeEnd   = ":ENDEVENT"
)

// Envelope event names.
const (
	eventCircuitBuilt  = "CIRCUIT_BUILT"
	eventCircuitClosed = "CIRCUIT_CLOSED"
	eventCircuitFailed = "CIRCUIT_FAILED"
)

var (
	statusRe  = regexp.MustCompile(`Circuit (\d+) \((BUILT|EXTENDED|FAILED|CLOSED)\)`)
	createdRe = regexp.MustCompile(`Circuit (\d+).*idle timeout[: ]+(\d+).*build time[: ]+(\d+)`)
	usedRe    = regexp.MustCompile(`Circuit (\d+).*\b(?:USED|keepalive)\b`)
	idRe      = regexp.MustCompile(`Circuit (\d+)`)
	hopRe     = regexp.MustCompile(`\$([0-9A-Fa-f]{40})\b`)
	ipRe      = regexp.MustCompile(`\b(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})\b`)
)

// Parser turns skeind diagnostic lines into Signals. It holds exactly one
// piece of state: the most recently referenced circuit id, which
// cursor-relative lines (hop fingerprints, relay IPs) attach to. One Parser
// serves one mode's stream and is not safe for concurrent use.
type Parser struct {
	current int64
	now     func() time.Time
}

// NewParser returns a parser with an empty cursor.
func NewParser() *Parser {
	return &Parser{now: time.Now}
}

type envelope struct {
	Event     string  `json:"event"`
	CircuitID int64   `json:"circuit_id"`
	Relays    []Relay `json:"relays"`
}

// ParseLine extracts at most one signal from line. The boolean is false for
// unrecognized lines and for malformed envelopes; neither is an error.
// Envelope events are authoritative and short-circuit heuristic matching.
func (p *Parser) ParseLine(line string) (Signal, bool) {
	if sig, handled, ok := p.parseEnvelope(line); handled {
		return sig, ok
	}

	if m := statusRe.FindStringSubmatch(line); m != nil {
		id := parseID(m[1])
		p.current = id
		return Signal{Kind: SignalStatus, CircuitID: id, Status: statusFromToken(m[2]), At: p.now()}, true
	}

	if m := createdRe.FindStringSubmatch(line); m != nil {
		id := parseID(m[1])
		idle, _ := strconv.Atoi(m[2])
		build, _ := strconv.Atoi(m[3])
		p.current = id
		return Signal{Kind: SignalCreated, CircuitID: id, IdleTimeoutSec: idle, BuildTimeSec: build, At: p.now()}, true
	}

	if m := usedRe.FindStringSubmatch(line); m != nil {
		id := parseID(m[1])
		p.current = id
		return Signal{Kind: SignalUsed, CircuitID: id, At: p.now()}, true
	}

	if m := hopRe.FindStringSubmatch(line); m != nil {
		// A hop line may name its circuit inline; that moves the cursor.
		if im := idRe.FindStringSubmatch(line); im != nil {
			p.current = parseID(im[1])
		}
		if p.current == 0 {
			return Signal{}, false
		}
		return Signal{Kind: SignalFingerprint, CircuitID: p.current, Fingerprint: strings.ToUpper(m[1]), At: p.now()}, true
	}

	if m := idRe.FindStringSubmatch(line); m != nil {
		id := parseID(m[1])
		p.current = id
		// An id sighting that also carries a dotted quad is an IP
		// contribution to that circuit, not a bare open.
		if im := ipRe.FindStringSubmatch(line); im != nil {
			return Signal{Kind: SignalIP, CircuitID: id, IP: im[1], At: p.now()}, true
		}
		return Signal{Kind: SignalOpened, CircuitID: id, At: p.now()}, true
	}

	if m := ipRe.FindStringSubmatch(line); m != nil {
		if p.current == 0 {
			return Signal{}, false
		}
		return Signal{Kind: SignalIP, CircuitID: p.current, IP: m[1], At: p.now()}, true
	}

	return Signal{}, false
}

// parseEnvelope reports (signal, handled, ok). handled is true whenever the
// line contains envelope delimiters, even if the payload turns out to be
// garbage, so heuristics never run on envelope lines.
func (p *Parser) parseEnvelope(line string) (Signal, bool, bool) {
	start := strings.Index(line, envelopeStart)
	if start < 0 {
		return Signal{}, false, false
	}
	rest := line[start+len(envelopeStart):]
	end := strings.LastIndex(rest, envelopeEnd)
	if end < 0 {
		return Signal{}, false, false
	}

	var env envelope
	if err := json.Unmarshal([]byte(rest[:end]), &env); err != nil {
		log.Printf("circuit: malformed event envelope skipped: %v", err)
		return Signal{}, true, false
	}

	p.current = env.CircuitID
	switch env.Event {
	case eventCircuitBuilt:
		return Signal{Kind: SignalBuilt, CircuitID: env.CircuitID, Relays: env.Relays, At: p.now()}, true, true
	case eventCircuitClosed:
		return Signal{Kind: SignalStatus, CircuitID: env.CircuitID, Status: StatusClosed, At: p.now()}, true, true
	case eventCircuitFailed:
		return Signal{Kind: SignalStatus, CircuitID: env.CircuitID, Status: StatusFailed, At: p.now()}, true, true
	default:
		log.Printf("circuit: unknown envelope event %q skipped", env.Event)
		return Signal{}, true, false
	}
}

func statusFromToken(token string) Status {
	switch token {
	case "BUILT":
		return StatusBuilt
	case "EXTENDED":
		return StatusExtended
	case "FAILED":
		return StatusFailed
	case "CLOSED":
		return StatusClosed
	default:
		return StatusUnknown
	}
}

func parseID(s string) int64 {
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}
