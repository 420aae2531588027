package models

import "time"

// Standard API Response wrapper
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Meta      *MetaData   `json:"meta,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Field   string      `json:"field,omitempty"`
}

type MetaData struct {
	Page       int   `json:"page,omitempty"`
	PageSize   int   `json:"pageSize,omitempty"`
	Total      int64 `json:"total,omitempty"`
	TotalPages int   `json:"totalPages,omitempty"`
}

// Health Check Response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	ActiveAlerts     int64                 `json:"activeAlerts"`
	AlertsByStatus   map[AlertStatus]int64 `json:"alertsByStatus"`
	AlertsByType     map[AlertType]int64   `json:"alertsByType"`
	ActiveZones      int                   `json:"activeZones"`
	AvgResponseTime  float64               `json:"avgResponseTimeSec"`
	CoordinationJobs WorkerStats           `json:"coordinationJobs"`
	Since            time.Time             `json:"since"`
}

type WorkerStats struct {
	Queued    int64 `json:"queued"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Retried   int64 `json:"retried"`
	Dropped   int64 `json:"dropped"`
}
