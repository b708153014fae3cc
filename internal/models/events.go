package models

import "time"

// ChangeEvent announces that a persisted record was created, updated or deleted.
type ChangeEvent struct {
	EventType   string    `json:"event_type"`
	DataType    string    `json:"data_type"`
	RecordID    int64     `json:"record_id"`
	ChangeType  string    `json:"change_type"`
	Description string    `json:"description,omitempty"`
	Time        time.Time `json:"time"`
}

const (
	ChangeCreate = "create"
	ChangeUpdate = "update"
	ChangeDelete = "delete"
)

// HostStats is a point-in-time sample of the host running the server.
type HostStats struct {
	Hostname      string    `json:"hostname"`
	OS            string    `json:"os"`
	Platform      string    `json:"platform"`
	KernelVersion string    `json:"kernel_version"`
	Uptime        uint64    `json:"uptime"`
	CPUCount      int       `json:"cpu_count"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryTotal   uint64    `json:"memory_total"`
	MemoryUsed    uint64    `json:"memory_used"`
	MemoryPercent float64   `json:"memory_percent"`
	DiskTotal     uint64    `json:"disk_total"`
	DiskUsed      uint64    `json:"disk_used"`
	DiskPercent   float64   `json:"disk_percent"`
	LoadAverage   float64   `json:"load_average"`
	NetBytesSent  uint64    `json:"net_bytes_sent"`
	NetBytesRecv  uint64    `json:"net_bytes_recv"`
	CollectedAt   time.Time `json:"collected_at"`
}
