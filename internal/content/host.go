package content

import (
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/stlalpha/tecnoter/internal/logging"
)

// HostStats is a point-in-time sample of the machine running the node.
type HostStats struct {
	Uptime      time.Duration
	Load1       float64
	Load5       float64
	Load15      float64
	MemTotal    uint64
	MemUsed     uint64
	MemPercent  float64
	ProcsTotal  int
	ProcsActive int
}

// SampleHost collects uptime, load averages and memory usage. Missing
// values stay zero.
func SampleHost() HostStats {
	var s HostStats
	if up, err := host.Uptime(); err == nil {
		s.Uptime = time.Duration(up) * time.Second
	} else {
		logging.Debug("host uptime unavailable: %v", err)
	}
	if avg, err := load.Avg(); err == nil {
		s.Load1, s.Load5, s.Load15 = avg.Load1, avg.Load5, avg.Load15
	} else {
		logging.Debug("load average unavailable: %v", err)
	}
	if misc, err := load.Misc(); err == nil {
		s.ProcsTotal, s.ProcsActive = misc.ProcsTotal, misc.ProcsRunning
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemTotal, s.MemUsed, s.MemPercent = vm.Total, vm.Used, vm.UsedPercent
	}
	return s
}

// FormatUptime renders d like uptime(1): "3 days, 4:05" or "12 min".
func FormatUptime(d time.Duration) string {
	if d <= 0 {
		return "unknown"
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	switch {
	case days > 0:
		unit := "days"
		if days == 1 {
			unit = "day"
		}
		return fmt.Sprintf("%d %s, %d:%02d", days, unit, hours, mins)
	case hours > 0:
		return fmt.Sprintf("%d:%02d", hours, mins)
	default:
		return fmt.Sprintf("%d min", mins)
	}
}

// FormatLoad renders the three load averages.
func (s HostStats) FormatLoad() string {
	return fmt.Sprintf("%.2f, %.2f, %.2f", s.Load1, s.Load5, s.Load15)
}

// ApplyHost overlays live host values on info when the site did not
// publish its own. Site-provided values win.
func ApplyHost(info SystemInfo, s HostStats) SystemInfo {
	def := DefaultSystemInfo()
	if (info.Uptime == "" || info.Uptime == def.Uptime) && s.Uptime > 0 {
		info.Uptime = FormatUptime(s.Uptime)
	}
	if (info.LoadAverage == "" || info.LoadAverage == def.LoadAverage) && (s.Load1+s.Load5+s.Load15) > 0 {
		info.LoadAverage = s.FormatLoad()
	}
	if info.NodeName == "" {
		info.NodeName = def.NodeName
	}
	if info.MotdSuggestion == "" {
		info.MotdSuggestion = def.MotdSuggestion
	}
	return info
}

// LiveSystemInfo is the hostInfo hook for NewLibrary.
func LiveSystemInfo(info SystemInfo) SystemInfo {
	return ApplyHost(info, SampleHost())
}

// HostMonitor caches the latest host sample so screens do not hit
// gopsutil on every keystroke. Sample is run by the host-sample job.
type HostMonitor struct {
	mu   sync.RWMutex
	last HostStats
	at   time.Time
}

// Sample takes a fresh reading.
func (m *HostMonitor) Sample() HostStats {
	s := SampleHost()
	m.mu.Lock()
	m.last, m.at = s, time.Now()
	m.mu.Unlock()
	return s
}

// Stats returns the cached reading, sampling once if there is none yet.
func (m *HostMonitor) Stats() HostStats {
	m.mu.RLock()
	s, at := m.last, m.at
	m.mu.RUnlock()
	if at.IsZero() {
		return m.Sample()
	}
	return s
}

// SystemInfo is the hostInfo hook for NewLibrary using the cached sample.
func (m *HostMonitor) SystemInfo(info SystemInfo) SystemInfo {
	return ApplyHost(info, m.Stats())
}
