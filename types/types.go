package types

// Shared bus payloads. Fixed-point, small types to suit TinyGo.

// ---- Irrigation control ----

// ZoneCommand starts (or, with Minutes==0, stops) one zone.
type ZoneCommand struct {
	Zone    int `json:"zone"`    // 1..48
	Minutes int `json:"minutes"` // 0..240
}

// ProgramCommand starts one of the stored controller programs.
type ProgramCommand struct {
	Program int `json:"program"` // 1..4
}

// RunState is the last dispatched command (retained on water/state).
// Zone/Minutes are set for zone commands, Program for program commands.
type RunState struct {
	Zone    int   `json:"zone"`
	Minutes int   `json:"minutes"`
	Program int   `json:"program"`
	TS      int64 `json:"ts_ms"`
}

// ---- Environment sensor ----

// EnvValue is the retained humidity/temperature reading on env/value.
type EnvValue struct {
	DeciC  int16  `json:"deci_c"`  // tenths of °C (e.g. 231 => 23.1°C)
	DeciRH uint16 `json:"deci_rh"` // tenths of %RH (e.g. 505 => 50.5%)
	TS     int64  `json:"ts_ms"`
}

// ---- Connectivity ----

// WifiInfo is retained on net/wifi.
type WifiInfo struct {
	SSID string `json:"ssid"`
	IP   string `json:"ip"`
	Up   bool   `json:"up"`
}

// BridgeState is retained on bridge/state.
type BridgeState struct {
	Level  string `json:"level"`  // "idle", "up", "degraded", "error"
	Status string `json:"status"` // freeform short code
	TS     int64  `json:"ts_ms"`
}

// ---- Generic replies ----

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
