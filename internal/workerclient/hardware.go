// Package workerclient is a reference Worker API client: it probes the
// host's hardware offer, polls /jobs with resource-aware retry, and reports
// status transitions. Running the workload itself is out of scope (§1
// Non-goals); this package stops at "acquire a lease and tell the broker
// about it."
package workerclient

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HardwareOffer is the subset of a host's resources the Worker API's
// selection algorithm compares a job's demands against (§4.2, §8).
type HardwareOffer struct {
	CPUCores int     `json:"cpu_cores"`
	MemoryGB float64 `json:"memory"`
}

// ProbeHardware reads the host's available CPU core count and total
// memory, the same gopsutil sources the teacher's ResourceMonitor used for
// its metrics summary, trimmed to just the fields a JobFilter needs.
func ProbeHardware() (*HardwareOffer, error) {
	offer := &HardwareOffer{CPUCores: runtime.NumCPU()}

	if counts, err := cpu.Counts(true); err == nil && counts > 0 {
		offer.CPUCores = counts
	}

	if vmStat, err := mem.VirtualMemory(); err == nil {
		offer.MemoryGB = float64(vmStat.Total) / (1024 * 1024 * 1024)
	}

	return offer, nil
}
