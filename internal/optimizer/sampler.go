package optimizer

import (
	"fmt"
	"sync"
	"time"

	"github.com/c9s/goprocinfo/linux"
)

// ProcSampler reads host CPU and memory pressure from the Linux proc
// filesystem.
//
// CPU percentage is computed from the delta of /proc/stat counters between
// consecutive samples; the very first sample uses totals since boot, which
// is close enough for a signal that only has to clear a watermark. Memory
// percentage is taken from MemAvailable, the kernel's own estimate of
// reclaimable headroom.
type ProcSampler struct {
	statPath    string
	meminfoPath string
	prevTotal   uint64
	prevBusy    uint64
	mu          sync.Mutex
}

// NewProcSampler creates a sampler over the standard /proc paths.
func NewProcSampler() *ProcSampler {
	return &ProcSampler{
		statPath:    "/proc/stat",
		meminfoPath: "/proc/meminfo",
	}
}

// Sample reads one ResourceSample from /proc.
func (s *ProcSampler) Sample() (ResourceSample, error) {
	stat, err := linux.ReadStat(s.statPath)
	if err != nil {
		return ResourceSample{}, fmt.Errorf("read %s: %w", s.statPath, err)
	}
	mem, err := linux.ReadMemInfo(s.meminfoPath)
	if err != nil {
		return ResourceSample{}, fmt.Errorf("read %s: %w", s.meminfoPath, err)
	}

	cpu := stat.CPUStatAll
	idle := cpu.Idle + cpu.IOWait
	busy := cpu.User + cpu.Nice + cpu.System + cpu.IRQ + cpu.SoftIRQ + cpu.Steal
	total := busy + idle

	s.mu.Lock()
	dTotal := total - s.prevTotal
	dBusy := busy - s.prevBusy
	s.prevTotal = total
	s.prevBusy = busy
	s.mu.Unlock()

	var cpuPercent float64
	if dTotal > 0 {
		cpuPercent = float64(dBusy) / float64(dTotal) * 100
	}

	var memPercent float64
	if mem.MemTotal > 0 {
		memPercent = (1 - float64(mem.MemAvailable)/float64(mem.MemTotal)) * 100
	}

	return ResourceSample{
		Time:          time.Now(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
	}, nil
}
