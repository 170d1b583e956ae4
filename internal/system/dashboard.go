package system

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// cpuSampleWindow is how long CPU usage is measured for
const cpuSampleWindow = 200 * time.Millisecond

// Dashboard is a point-in-time view of system resources
type Dashboard struct {
	CPUPercent      float64       `json:"cpu_percent"`
	MemoryUsed      uint64        `json:"memory_used"`
	MemoryTotal     uint64        `json:"memory_total"`
	MemoryPercent   float64       `json:"memory_percent"`
	DiskPath        string        `json:"disk_path"`
	DiskUsed        uint64        `json:"disk_used"`
	DiskTotal       uint64        `json:"disk_total"`
	DiskPercent     float64       `json:"disk_percent"`
	Uptime          time.Duration `json:"uptime"`
	Hostname        string        `json:"hostname"`
	Platform        string        `json:"platform"`
	PlatformVersion string        `json:"platform_version"`
	Timestamp       time.Time     `json:"timestamp"`
}

// SystemDrivePath returns the root of drive on Windows, or "/" elsewhere
func SystemDrivePath(drive string) string {
	if runtime.GOOS != "windows" {
		return "/"
	}
	if drive == "" {
		drive = "C:"
	}
	return drive + `\`
}

// Snapshot collects CPU, memory, disk and host figures. diskPath selects the
// volume to report; it is usually SystemDrivePath.
func Snapshot(ctx context.Context, diskPath string) (*Dashboard, error) {
	d := &Dashboard{DiskPath: diskPath, Timestamp: time.Now()}

	percents, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false)
	if err != nil {
		return nil, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	if len(percents) > 0 {
		d.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory usage: %w", err)
	}
	d.MemoryUsed = vm.Used
	d.MemoryTotal = vm.Total
	d.MemoryPercent = vm.UsedPercent

	usage, err := disk.UsageWithContext(ctx, diskPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read disk usage for %s: %w", diskPath, err)
	}
	d.DiskUsed = usage.Used
	d.DiskTotal = usage.Total
	d.DiskPercent = usage.UsedPercent

	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read host info: %w", err)
	}
	d.Uptime = time.Duration(info.Uptime) * time.Second
	d.Hostname = info.Hostname
	d.Platform = info.Platform
	d.PlatformVersion = info.PlatformVersion

	return d, nil
}
