package utils

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemInfo is a snapshot of host and process metrics.
type SystemInfo struct {
	Platform      string
	KernelVersion string
	GoVersion     string
	CPUCount      int
	CPUPercent    float64
	MemUsed       uint64
	MemTotal      uint64
	MemPercent    float64
	Uptime        uint64
	Goroutines    int
}

// CollectSystemInfo gathers host metrics. Individual probes that fail are left zero.
func CollectSystemInfo() SystemInfo {
	info := SystemInfo{
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
	}
	if n, err := cpu.Counts(true); err == nil {
		info.CPUCount = n
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		info.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemUsed = vm.Used
		info.MemTotal = vm.Total
		info.MemPercent = vm.UsedPercent
	}
	if h, err := host.Info(); err == nil {
		info.Platform = fmt.Sprintf("%s %s", h.Platform, h.PlatformVersion)
		info.KernelVersion = h.KernelVersion
		info.Uptime = h.Uptime
	}
	return info
}

// String renders a one-line summary for logs.
func (s SystemInfo) String() string {
	return fmt.Sprintf("cpu %d x %.1f%%, mem %.1f%% (%d MB / %d MB), goroutines %d, %s",
		s.CPUCount, s.CPUPercent, s.MemPercent, s.MemUsed/1024/1024, s.MemTotal/1024/1024, s.Goroutines, s.GoVersion)
}
