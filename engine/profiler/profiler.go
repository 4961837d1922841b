package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-renderstate/common"
)

// Stats is one reporting window of the profiler.
type Stats struct {
	Frames int
	FPS    float64
	// PeakArenaBytes is the largest per-frame uniform arena usage seen in the window.
	PeakArenaBytes uint32
	ArenaCapacity  uint32
	HeapMB         float64
	AllocRateMB    float64
	NumGC          uint32
	MaxPauseUs     uint64
}

// Profiler tracks frame rate, frame uniform arena pressure and memory statistics.
// Stats are logged at Debug level once per update interval.
type Profiler struct {
	frameCount     int
	peakArena      uint32
	lastTime       time.Time
	updateInterval time.Duration
	now            func() time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: a variadic list of options
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick records one finished frame and its arena usage.
//
// Parameters:
//   - arenaUsed: the bytes allocated from the uniform arena during the frame
//   - arenaCapacity: the arena capacity
//
// Returns:
//   - Stats: the statistics of the window that just closed, zero if none closed
//   - bool: true if the update interval elapsed and the stats were logged
func (p *Profiler) Tick(arenaUsed, arenaCapacity uint32) (Stats, bool) {
	p.frameCount++
	p.peakArena = max(p.peakArena, arenaUsed)

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return Stats{}, false
	}

	runtime.ReadMemStats(&p.memStats)
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	gcCount := p.memStats.NumGC

	// PauseNs is a circular buffer of the last 256 pauses.
	var maxPauseUs uint64
	startIdx := p.lastGCCount
	if gcCount-startIdx > 256 {
		startIdx = gcCount - 256
	}
	for i := startIdx; i < gcCount; i++ {
		maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
	}

	stats := Stats{
		Frames:         p.frameCount,
		FPS:            float64(p.frameCount) / elapsed.Seconds(),
		PeakArenaBytes: p.peakArena,
		ArenaCapacity:  arenaCapacity,
		HeapMB:         float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB:    float64(allocDelta) / 1024 / 1024 / elapsed.Seconds(),
		NumGC:          gcCount,
		MaxPauseUs:     maxPauseUs,
	}
	common.Logger().Debug("frame stats",
		"fps", stats.FPS,
		"arenaPeak", stats.PeakArenaBytes,
		"arenaCapacity", stats.ArenaCapacity,
		"heapMB", stats.HeapMB,
		"allocRateMB", stats.AllocRateMB,
		"gc", stats.NumGC,
		"maxPauseUs", stats.MaxPauseUs,
	)

	p.frameCount = 0
	p.peakArena = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return stats, true
}
