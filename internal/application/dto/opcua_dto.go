package dto

// OPCUAStatusResponse estado del enlace con el PLC.
type OPCUAStatusResponse struct {
	State        string `json:"state"` // disconnected | connecting | connected | reconnecting | failed
	Endpoint     string `json:"endpoint"`
	Attempts     int64  `json:"attempts"`
	LastError    string `json:"last_error,omitempty"`
	LastChangeAt string `json:"last_change_at,omitempty"`
	Stale        bool   `json:"stale"`
}

// OPCUAReadRequest lectura puntual de un nodo.
type OPCUAReadRequest struct {
	NodeID string `json:"node_id" validate:"required"`
}

// OPCUAReadResponse valor leído.
type OPCUAReadResponse struct {
	NodeID string `json:"node_id"`
	Value  any    `json:"value"`
}

// OPCUAWriteRequest escritura puntual de un nodo.
type OPCUAWriteRequest struct {
	NodeID string `json:"node_id" validate:"required"`
	Value  any    `json:"value"`
}

// HMICommandRequest comando HMI inyectado por API (mismo camino que el panel).
type HMICommandRequest struct {
	Command string `json:"command" validate:"required"`
}

// SyncStatusResponse estado del lazo de sincronización.
type SyncStatusResponse struct {
	Stale       bool   `json:"stale"`
	LastCycleAt string `json:"last_cycle_at,omitempty"`
	HMIStatus   string `json:"hmi_status"`
}
