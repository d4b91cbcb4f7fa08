// Package metrics samples CPU%, RSS, and network byte counters for a live
// PID over a short window (spec.md §4 "Process Metrics Probe"). It is a
// pure consumer of /proc: no corpus example (teacher or otherwise) pulls in
// a process-metrics library such as gopsutil, so this reads procfs directly
// rather than adopting an out-of-pack dependency. See DESIGN.md for the
// stdlib justification.
package metrics

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Sample is one point-in-time reading for a PID.
type Sample struct {
	PID        int
	CPUPercent float64
	RSSBytes   int64
	NetRxBytes int64
	NetTxBytes int64
	Timestamp  time.Time
}

// clockTicks is the kernel's CLOCK_TICKS value (USER_HZ), almost always
// 100 on Linux; /proc/stat's jiffies are expressed in this unit.
const clockTicks = 100

// cpuSnapshot is the raw counters read from /proc/<pid>/stat needed to
// compute CPU% between two samples of the same PID.
type cpuSnapshot struct {
	utime, stime int64
	sampledAt    time.Time
}

// Probe samples a PID repeatedly, computing CPU% as the delta of process
// jiffies over the delta of wall-clock time between consecutive calls to
// Sample for the same PID. The first sample for a PID reports CPUPercent 0
// (no prior snapshot to diff against).
type Probe struct {
	mu   sync.Mutex
	last map[int]cpuSnapshot
}

// New creates an empty Probe.
func New() *Probe {
	return &Probe{last: make(map[int]cpuSnapshot)}
}

// Sample reads current CPU/RSS/net counters for pid. Returns an error if the
// process no longer exists or /proc is unreadable.
func (p *Probe) Sample(pid int) (Sample, error) {
	utime, stime, rss, err := readStat(pid)
	if err != nil {
		return Sample{}, err
	}
	now := time.Now()

	p.mu.Lock()
	prev, had := p.last[pid]
	p.last[pid] = cpuSnapshot{utime: utime, stime: stime, sampledAt: now}
	p.mu.Unlock()

	var cpuPct float64
	if had {
		elapsed := now.Sub(prev.sampledAt).Seconds()
		if elapsed > 0 {
			deltaJiffies := float64((utime + stime) - (prev.utime + prev.stime))
			cpuPct = (deltaJiffies / clockTicks) / elapsed * 100
			if cpuPct < 0 {
				cpuPct = 0
			}
		}
	}

	rx, tx := readNetDev(pid)

	return Sample{
		PID:        pid,
		CPUPercent: cpuPct,
		RSSBytes:   rss,
		NetRxBytes: rx,
		NetTxBytes: tx,
		Timestamp:  now,
	}, nil
}

// Forget drops any retained CPU snapshot for pid, e.g. once the process has
// exited, so a future reused pid doesn't diff against stale counters.
func (p *Probe) Forget(pid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.last, pid)
}

// readStat parses /proc/<pid>/stat for utime, stime (field 14, 15) and
// /proc/<pid>/status for VmRSS.
func readStat(pid int) (utime, stime, rssBytes int64, err error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("read /proc/%d/stat: %w", pid, err)
	}
	// Fields after the parenthesized comm name are space separated; comm
	// itself may contain spaces, so split on the last ')'.
	line := string(data)
	idx := strings.LastIndexByte(line, ')')
	if idx < 0 || idx+2 >= len(line) {
		return 0, 0, 0, fmt.Errorf("malformed /proc/%d/stat", pid)
	}
	fields := strings.Fields(line[idx+2:])
	// After comm, field 1 is state; utime is field 14 overall, i.e. index
	// 14-3=11 in this post-comm slice (state=0, ppid=1, ...).
	const utimeIdx = 11
	const stimeIdx = 12
	if len(fields) <= stimeIdx {
		return 0, 0, 0, fmt.Errorf("short /proc/%d/stat", pid)
	}
	utime, _ = strconv.ParseInt(fields[utimeIdx], 10, 64)
	stime, _ = strconv.ParseInt(fields[stimeIdx], 10, 64)

	rss, err := readRSS(pid)
	if err != nil {
		return utime, stime, 0, err
	}
	return utime, stime, rss, nil
}

func readRSS(pid int) (int64, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/status", pid))
	if err != nil {
		return 0, fmt.Errorf("open /proc/%d/status: %w", pid, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		return kb * 1024, nil
	}
	return 0, nil
}

// readNetDev sums rx/tx bytes across interfaces in the process's network
// namespace. Best-effort: returns zero values rather than an error when the
// file is unreadable (containers may restrict /proc/<pid>/net).
func readNetDev(pid int) (rx, tx int64) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/net/dev", pid))
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo <= 2 {
			continue // header lines
		}
		line := scanner.Text()
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		fields := strings.Fields(parts[1])
		if len(fields) < 9 {
			continue
		}
		rxBytes, _ := strconv.ParseInt(fields[0], 10, 64)
		txBytes, _ := strconv.ParseInt(fields[8], 10, 64)
		rx += rxBytes
		tx += txBytes
	}
	return rx, tx
}
