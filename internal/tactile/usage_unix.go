//go:build unix

package tactile

import (
	"os/exec"
	"runtime"
	"syscall"
)

// processResourceUsage extracts rusage on Unix systems.
func processResourceUsage(cmd *exec.Cmd) *ResourceUsage {
	if cmd.ProcessState == nil {
		return nil
	}

	rusage, ok := cmd.ProcessState.SysUsage().(*syscall.Rusage)
	if !ok || rusage == nil {
		return nil
	}

	return &ResourceUsage{
		UserTimeMs:                 int64(rusage.Utime.Sec)*1000 + int64(rusage.Utime.Usec)/1000,
		SystemTimeMs:               int64(rusage.Stime.Sec)*1000 + int64(rusage.Stime.Usec)/1000,
		MaxRSSBytes:                maxRSSBytes(int64(rusage.Maxrss)),
		VoluntaryContextSwitches:   int64(rusage.Nvcsw),
		InvoluntaryContextSwitches: int64(rusage.Nivcsw),
	}
}

// Linux and the BSDs report ru_maxrss in kilobytes, Darwin in bytes.
func maxRSSBytes(v int64) int64 {
	if runtime.GOOS == "darwin" || runtime.GOOS == "ios" {
		return v
	}
	return v * 1024
}
