package agent

import (
	"context"
	"sync"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
)

// Monitor samples host health on an interval, publishes it as metrics and
// hands each sample to its reporters.
type Monitor struct {
	interval  time.Duration
	clock     clockwork.Clock
	reporters []Reporter
	collect   func(ctx context.Context) models.HostStats

	mu     sync.RWMutex
	latest *models.HostStats
}

func NewMonitor(interval time.Duration, clock clockwork.Clock, reporters ...Reporter) *Monitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{interval: interval, clock: clock, reporters: reporters, collect: collectHostStats}
}

func (m *Monitor) Run(ctx context.Context) error {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	m.sample(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			m.sample(ctx)
		}
	}
}

// Latest returns the most recent sample, if any was taken.
func (m *Monitor) Latest() (models.HostStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return models.HostStats{}, false
	}
	return *m.latest, true
}

func (m *Monitor) sample(ctx context.Context) {
	stats := m.collect(ctx)
	stats.CollectedAt = m.clock.Now().UTC()

	m.mu.Lock()
	m.latest = &stats
	m.mu.Unlock()
	observability.UpdateHostMetrics(stats)

	for _, r := range m.reporters {
		if err := r.Report(ctx, stats); err != nil {
			log.Error().Err(err).Msg("failed to report host stats")
		} else {
			log.Debug().Float64("cpu_percent", stats.CPUPercent).Msg("host stats reported")
		}
	}
}

func collectHostStats(ctx context.Context) models.HostStats {
	var info models.HostStats

	if h, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = h.Hostname
		info.OS = h.OS
		info.KernelVersion = h.KernelVersion
		info.Platform = h.Platform
		info.Uptime = h.Uptime
	}

	if c, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPUCount = c
	}

	if p, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(p) > 0 {
		info.CPUPercent = p[0]
	}

	if v, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotal = v.Total
		info.MemoryUsed = v.Used
		info.MemoryPercent = v.UsedPercent
	}

	if d, err := disk.UsageWithContext(ctx, "/"); err == nil {
		info.DiskTotal = d.Total
		info.DiskUsed = d.Used
		info.DiskPercent = d.UsedPercent
	}

	if l, err := load.AvgWithContext(ctx); err == nil {
		info.LoadAverage = l.Load1
	}

	if n, err := net.IOCountersWithContext(ctx, false); err == nil && len(n) > 0 {
		info.NetBytesSent = n[0].BytesSent
		info.NetBytesRecv = n[0].BytesRecv
	}

	return info
}
