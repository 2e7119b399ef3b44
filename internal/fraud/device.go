package fraud

import (
	"fmt"
	"strings"
	"time"

	"github.com/campuswatch/checkin-fraud/internal/behavior"
)

const rapidSwitchWindow = 24 * time.Hour

var (
	automationMarkers = []string{"bot", "crawler", "spider"}
	virtualizationMarkers = []string{
		"virtualbox", "vmware", "qemu", "xen", "hyper-v", "parallels", "docker", "container",
	}
)

// HeuristicDeviceAnalyzer is the built-in DeviceAnalyzer: device-count and
// switching heuristics over history, plus user-agent signature scans.
type HeuristicDeviceAnalyzer struct {
	// DeviceLimit is how many distinct devices a student may legitimately own.
	DeviceLimit int
}

var _ DeviceAnalyzer = (*HeuristicDeviceAnalyzer)(nil)

// NewHeuristicDeviceAnalyzer creates the default device analyzer.
func NewHeuristicDeviceAnalyzer(deviceLimit int) *HeuristicDeviceAnalyzer {
	if deviceLimit <= 0 {
		deviceLimit = 3
	}
	return &HeuristicDeviceAnalyzer{DeviceLimit: deviceLimit}
}

// AnalyzeDevice scores a fingerprint in [0,1] with factors for each check that fired.
func (a *HeuristicDeviceAnalyzer) AnalyzeDevice(device *DeviceFingerprint, pattern *behavior.Pattern, now time.Time) SignalResult {
	var result SignalResult
	if device == nil {
		return result
	}

	// Distinct devices over retained history, counting the current one.
	allDevices := distinctWith(pattern, time.Time{}, device.ID)
	if len(allDevices) > a.DeviceLimit {
		result.Score += 0.4
		result.Factors = append(result.Factors,
			fmt.Sprintf("%d distinct devices exceeds the %d-device tolerance", len(allDevices), a.DeviceLimit))
	}

	// Rapid switching within the trailing 24 hours.
	recentDevices := distinctWith(pattern, now.Add(-rapidSwitchWindow), device.ID)
	if len(recentDevices) > 2 {
		result.Score += 0.3
		result.Factors = append(result.Factors,
			fmt.Sprintf("%d distinct devices within 24 hours", len(recentDevices)))
	}

	ua := strings.ToLower(device.UserAgent)
	for _, marker := range automationMarkers {
		if strings.Contains(ua, marker) {
			result.Score += 0.6
			result.Factors = append(result.Factors,
				fmt.Sprintf("automation signature %q in user agent", marker))
			break
		}
	}
	for _, marker := range virtualizationMarkers {
		if strings.Contains(ua, marker) {
			result.Score += 0.4
			result.Factors = append(result.Factors,
				fmt.Sprintf("virtualization signature %q in user agent", marker))
			break
		}
	}

	result.Score = clamp01(result.Score)
	return result
}

// distinctWith is the student's distinct device ids since a cutoff, unioned
// with the device currently being presented.
func distinctWith(pattern *behavior.Pattern, since time.Time, currentID string) []string {
	var devices []string
	if pattern != nil {
		devices = pattern.DistinctDevices(since)
	}
	if currentID == "" {
		return devices
	}
	for _, id := range devices {
		if id == currentID {
			return devices
		}
	}
	return append(devices, currentID)
}
