package model

import "time"

// UnknownUser is shown when the owner of a process cannot be resolved.
const UnknownUser = "N/A"

// ProcessRecord is one process as seen by a single collection cycle.
// Fields the host refused to disclose carry their documented default
// instead of being left out.
type ProcessRecord struct {
	PID         int32
	Name        string
	Path        string    // empty if inaccessible
	CreateTime  time.Time // host boot time if unavailable
	Cores       int       // CPUs the process may run on, 0 if unknown
	CPUUsage    float64   // percent over the last interval
	Status      string
	Nice        int
	MemoryUsage uint64 // unique set size in bytes
	ReadBytes   uint64
	WriteBytes  uint64
	NumThreads  int
	Username    string
}

// Snapshot is the full set of records gathered in one collection cycle,
// in enumeration order.
type Snapshot struct {
	Taken   time.Time
	Records []ProcessRecord
	System  *System // nil when host figures were not sampled
}

// Len returns the number of records.
func (s Snapshot) Len() int { return len(s.Records) }

// System holds host wide figures sampled alongside the process table.
type System struct {
	CPU       float64 // percent busy across all cores since the previous sample
	Load1     float64
	Load5     float64
	Load15    float64
	MemUsed   uint64
	MemTotal  uint64
	SwapUsed  uint64
	SwapTotal uint64
}
