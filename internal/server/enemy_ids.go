package server

import "fmt"

// EnemyIdMode selects who decides the identity of a newly spawned enemy.
type EnemyIdMode int

const (
	// EnemyIdsClient trusts the id chosen by the spawning client. Two clients
	// spawning at once may pick the same id; the later spawn overwrites.
	EnemyIdsClient EnemyIdMode = iota
	// EnemyIdsServer mints every id from the session counter and echoes the
	// client's own id back as local_id.
	EnemyIdsServer
)

func (m *EnemyIdMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "client":
		*m = EnemyIdsClient
	case "server":
		*m = EnemyIdsServer
	default:
		return fmt.Errorf("unknown enemy id mode: %s", text)
	}
	return nil
}

func (m EnemyIdMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m EnemyIdMode) String() string {
	switch m {
	case EnemyIdsServer:
		return "server"
	default:
		return "client"
	}
}
