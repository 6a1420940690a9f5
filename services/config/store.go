package config

// Store persists the merged settings blob across reboots. The embedded
// defaults are never written back; only the live settings map is.
type Store interface {
	Load() ([]byte, bool)
	Save(blob []byte) error
}

// MemStore keeps settings for the life of the process. Used in tests and
// as the MCU store until a flash-backed one exists for the target board.
type MemStore struct {
	blob []byte
}

func (m *MemStore) Load() ([]byte, bool) {
	if len(m.blob) == 0 {
		return nil, false
	}
	return m.blob, true
}

func (m *MemStore) Save(blob []byte) error {
	m.blob = append(m.blob[:0], blob...)
	return nil
}
