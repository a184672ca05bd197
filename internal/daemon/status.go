package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ProcessInfo holds diagnostic information about the running daemon.
type ProcessInfo struct {
	PID         int
	Uptime      time.Duration
	CPUTime     float64 // total user+system CPU seconds
	MemoryRSSKB int64   // resident set size in KB
}

// CPUPercent returns the average CPU usage as a percentage over the process
// lifetime.
func (p *ProcessInfo) CPUPercent() float64 {
	uptimeSec := p.Uptime.Seconds()
	if uptimeSec <= 0 {
		return 0
	}
	return (p.CPUTime / uptimeSec) * 100
}

// Status returns process diagnostics if the daemon is running, or nil if not.
func Status(dataDir string) *ProcessInfo {
	pid := RunningPID(dataDir)
	if pid == 0 {
		return nil
	}

	return &ProcessInfo{
		PID:         pid,
		Uptime:      parseUptime(pid),
		CPUTime:     parseCPUTime(pid),
		MemoryRSSKB: parseVmRSS(pid),
	}
}

// sysconf(_SC_CLK_TCK), 100 on virtually all Linux
const clkTck = 100

// statFields returns the fields of /proc/<pid>/stat after the comm field,
// which is parenthesized and may itself contain spaces.
func statFields(pid int) []string {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return nil
	}
	closeParen := strings.LastIndex(string(data), ")")
	if closeParen < 0 || closeParen+2 >= len(data) {
		return nil
	}
	return strings.Fields(string(data)[closeParen+2:])
}

// parseUptime calculates how long the process has been running by comparing
// its start time (field 22 of /proc/<pid>/stat) against system uptime.
func parseUptime(pid int) time.Duration {
	data, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return 0
	}
	fields := strings.Fields(string(data))
	if len(fields) < 1 {
		return 0
	}
	systemUptime, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}

	// statFields starts at field 3, so field 22 lands at index 19.
	rest := statFields(pid)
	if len(rest) < 20 {
		return 0
	}
	startTicks, err := strconv.ParseInt(rest[19], 10, 64)
	if err != nil {
		return 0
	}

	uptimeSec := systemUptime - float64(startTicks)/clkTck
	if uptimeSec < 0 {
		return 0
	}
	return time.Duration(uptimeSec * float64(time.Second))
}

// parseCPUTime returns total user+system CPU seconds from /proc/<pid>/stat
// fields 14 and 15.
func parseCPUTime(pid int) float64 {
	rest := statFields(pid)
	if len(rest) < 13 {
		return 0
	}
	utime, err1 := strconv.ParseInt(rest[11], 10, 64)
	stime, err2 := strconv.ParseInt(rest[12], 10, 64)
	if err1 != nil || err2 != nil {
		return 0
	}
	return float64(utime+stime) / clkTck
}

// parseVmRSS reads the VmRSS line from /proc/<pid>/status, in KB.
func parseVmRSS(pid int) int64 {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/status", pid))
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "VmRSS:") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				val, err := strconv.ParseInt(fields[1], 10, 64)
				if err == nil {
					return val
				}
			}
		}
	}
	return 0
}
