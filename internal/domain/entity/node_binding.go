package entity

// Dirección de una vinculación con un nodo del PLC.
const (
	DirectionRead  = "read"
	DirectionWrite = "write"
	DirectionBoth  = "both"
)

// Nombres de las señales de dominio espejadas en el PLC.
const (
	BindingItemCount    = "item_count"
	BindingTrafficLight = "traffic_light"
	BindingHMIStatus    = "hmi_status"
	BindingHMICommand   = "hmi_command"
)

// Estados del semáforo publicado en el PLC.
const (
	TrafficLightOff    = "OFF"
	TrafficLightGreen  = "GREEN"
	TrafficLightYellow = "YELLOW"
	TrafficLightRed    = "RED"
)

// Comandos HMI aceptados desde el panel del operario.
var HMICommands = []string{"START", "STOP", "RESET", "EMERGENCY_STOP", "LOAD", "UNLOAD", "MAINTENANCE_MODE"}

// Comandos que fijan el modo de operación: mientras rige un modo, cada tag de
// producto leído por un lector carga o retira una unidad.
const (
	HMICommandLoad   = "LOAD"
	HMICommandUnload = "UNLOAD"
)

// HMICommandNone valor neutro del nodo de comando.
const HMICommandNone = "NONE"

// IsHMICommand indica si s es un comando HMI reconocido.
func IsHMICommand(s string) bool {
	for _, c := range HMICommands {
		if c == s {
			return true
		}
	}
	return false
}

// NodeBinding vincula una señal de dominio con un nodo remoto del PLC
// (direcciones "ns=<namespace>;s=<nombre>"). La capa de configuración
// la construye; el lazo de sincronización la consume.
type NodeBinding struct {
	Name      string // una de las constantes Binding*
	NodeID    string
	Direction string
}
