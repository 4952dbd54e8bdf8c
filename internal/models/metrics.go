// Package models defines the data structures exchanged with the collector.
// These structures are serialized to JSON for transmission to the API.
package models

import "strconv"

// ServerID is the opaque identity the collector issues at registration.
type ServerID string

// String returns the identifier as a plain string.
func (id ServerID) String() string { return string(id) }

// HostDescriptor is the static identity and capacity snapshot sent on
// POST /check_register. It is rebuilt on every registration attempt.
type HostDescriptor struct {
	ServerName    string  `json:"server_name"`
	IPAddress     string  `json:"ip_address"`
	Location      string  `json:"location"`
	OS            string  `json:"os"`
	Kernel        string  `json:"kernel"`
	Architecture  string  `json:"architecture"`
	CPUModel      string  `json:"cpu_model"`
	TotalCores    int     `json:"total_cores"`
	TotalThreads  int     `json:"total_threads"`
	TotalMemoryGB float64 `json:"total_memory_gb"`
	TotalDiskGB   float64 `json:"total_disk_gb"`
}

// Normalize clamps capacity fields to their safe minimums so the collector
// never receives a zero-capacity host.
func (h *HostDescriptor) Normalize() {
	if h.TotalCores < 1 {
		h.TotalCores = 1
	}
	if h.TotalThreads < 1 {
		h.TotalThreads = 1
	}
	if h.TotalMemoryGB < 0 {
		h.TotalMemoryGB = 0
	}
	if h.TotalDiskGB < 0 {
		h.TotalDiskGB = 0
	}
}

// MinimalHostDescriptor is used when host description fails outright.
func MinimalHostDescriptor(hostname, osName, kernel, arch string) HostDescriptor {
	return HostDescriptor{
		ServerName:    hostname,
		IPAddress:     "127.0.0.1",
		Location:      "Unknown",
		OS:            osName,
		Kernel:        kernel,
		Architecture:  arch,
		CPUModel:      "Unknown",
		TotalCores:    1,
		TotalThreads:  1,
		TotalMemoryGB: 1.0,
		TotalDiskGB:   1.0,
	}
}

// MetricSample is a point-in-time reading sent on POST /metrics/{server_id}.
type MetricSample struct {
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
	DiskUsage   float64 `json:"disk_usage"`
	NetworkRxGB float64 `json:"network_rx_gb"`
	NetworkTxGB float64 `json:"network_tx_gb"`
	Uptime      string  `json:"uptime"`
}

// DefaultSample is the all-zero sample reported when collection fails.
func DefaultSample() MetricSample {
	return MetricSample{Uptime: "0"}
}

// UptimeText formats an uptime in seconds the way the collector expects it.
func UptimeText(seconds uint64) string {
	return strconv.FormatUint(seconds, 10)
}

