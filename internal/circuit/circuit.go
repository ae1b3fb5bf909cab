package circuit

import "time"

// Status is the lifecycle state of a circuit as reported by skeind.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusBuilding Status = "building"
	StatusBuilt    Status = "built"
	StatusExtended Status = "extended"
	StatusFailed   Status = "failed"
	StatusClosed   Status = "closed"
)

// Relay is one hop in a circuit's path. RateMsat is the hop's advertised
// bandwidth compensation in millisatoshi per megabyte; zero when the hop
// relays for free or the rate has not been observed yet.
type Relay struct {
	Fingerprint string `json:"fingerprint"`
	Nickname    string `json:"nickname,omitempty"`
	IP          string `json:"ip,omitempty"`
	RateMsat    int64  `json:"rate_msat,omitempty"`
}

// Circuit is a reconstructed path through the network, rebuilt from
// skeind's diagnostic stream. Fingerprints and IPs are kept in hop order;
// IPs may lag behind fingerprints while IP-bearing lines are still arriving.
type Circuit struct {
	ID           int64    `json:"id"`
	Fingerprints []string `json:"fingerprints,omitempty"`
	IPs          []string `json:"ips,omitempty"`
	Relays       []Relay  `json:"relays,omitempty"`
	Status       Status   `json:"status"`

	IdleTimeoutSec int `json:"idle_timeout_sec,omitempty"`
	BuildTimeSec   int `json:"build_time_sec,omitempty"`

	CreatedAt  time.Time `json:"created_at,omitempty"`
	LastUsedAt time.Time `json:"last_used_at,omitempty"`

	// Derived on read, never written by a signal.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Expired   bool      `json:"expired"`
}

// Clone returns a deep copy so snapshots cannot alias store internals.
func (c Circuit) Clone() Circuit {
	dup := c
	dup.Fingerprints = append([]string(nil), c.Fingerprints...)
	dup.IPs = append([]string(nil), c.IPs...)
	dup.Relays = append([]Relay(nil), c.Relays...)
	return dup
}

// HasFingerprint reports whether fp is already part of the path.
func (c Circuit) HasFingerprint(fp string) bool {
	for _, have := range c.Fingerprints {
		if have == fp {
			return true
		}
	}
	return false
}

// HasIP reports whether ip has already been recorded for the path.
func (c Circuit) HasIP(ip string) bool {
	for _, have := range c.IPs {
		if have == ip {
			return true
		}
	}
	return false
}

// derive recomputes expiry against now. Circuits missing either CreatedAt
// or the idle timeout report Expired = false.
func (c *Circuit) derive(now time.Time) {
	c.ExpiresAt = time.Time{}
	c.Expired = false
	if c.CreatedAt.IsZero() || c.IdleTimeoutSec <= 0 {
		return
	}
	c.ExpiresAt = c.CreatedAt.Add(time.Duration(c.IdleTimeoutSec) * time.Second)
	c.Expired = now.After(c.ExpiresAt)
}
