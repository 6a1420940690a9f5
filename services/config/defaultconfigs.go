package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development.
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgHunterNode = `{
  "wifi": {
      "ssid": "",
      "pw": ""
  },
  "mqtt": {
      "ip": "",
      "port": 1883
  },
  "dht": {
      "t_offset": 0,
      "t_hold": 0.1,
      "h_hold": 1,
      "interval_s": 10
  },
  "pump": {
      "enabled": false
  },
  "heartbeat": {
      "interval": 2
  }
}`

var embeddedConfigs = map[string][]byte{
	"hunter-node": []byte(cfgHunterNode),
}
