package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pixil98/go-errors"
)

// Message is one of the payloads that can travel in a frame.
type Message interface {
	Tag() Tag
	Validate() error
}

// PlayerState is the replicated record of a single player.
type PlayerState struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Health int     `json:"health"`
	Hunger int     `json:"hunger"`
}

// BuildingRecord is a placed structure. Durability is only set once a
// BuildingUpdate has been applied to it.
type BuildingRecord struct {
	Kind       string `json:"kind"`
	GridX      int    `json:"grid_x"`
	GridY      int    `json:"grid_y"`
	Durability *int   `json:"durability,omitempty"`
}

type EnemyRecord struct {
	Kind   string  `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Health int     `json:"health"`
}

// Inventory maps a resource name to a quantity. Keys beginning with an
// underscore are local bookkeeping and never leave or enter the process.
type Inventory map[string]int

// Clean returns a copy of inv without underscore-prefixed keys. The result is
// never nil.
func (inv Inventory) Clean() Inventory {
	out := make(Inventory, len(inv))
	for k, v := range inv {
		if strings.HasPrefix(k, "_") {
			continue
		}
		out[k] = v
	}
	return out
}

func (inv Inventory) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]int(inv.Clean()))
}

func (inv *Inventory) UnmarshalJSON(b []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*inv = Inventory(raw).Clean()
	return nil
}

// Hello tells a freshly accepted connection which identity it was assigned.
type Hello struct {
	Identity int `json:"identity"`
}

func (Hello) Tag() Tag { return TagHello }

func (m Hello) Validate() error {
	if m.Identity <= 0 {
		return fmt.Errorf("identity must be positive")
	}
	return nil
}

// Goodbye announces that a player left. Sent by a client it requests an
// orderly disconnect.
type Goodbye struct {
	Identity int `json:"identity"`
}

func (Goodbye) Tag() Tag { return TagGoodbye }

func (m Goodbye) Validate() error {
	if m.Identity < 0 {
		return fmt.Errorf("identity must not be negative")
	}
	return nil
}

type PlayerDelta struct {
	Identity int     `json:"identity"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Health   int     `json:"health"`
	Hunger   int     `json:"hunger"`
}

func (PlayerDelta) Tag() Tag { return TagPlayerDelta }

func (m PlayerDelta) Validate() error {
	if m.Identity < 0 {
		return fmt.Errorf("identity must not be negative")
	}
	return nil
}

// State returns the record carried by the delta.
func (m PlayerDelta) State() PlayerState {
	return PlayerState{X: m.X, Y: m.Y, Health: m.Health, Hunger: m.Hunger}
}

type InventorySnapshot struct {
	Inventory Inventory `json:"inventory"`
}

func (InventorySnapshot) Tag() Tag { return TagInventorySnapshot }

func (m InventorySnapshot) Validate() error {
	if m.Inventory == nil {
		return fmt.Errorf("inventory is required")
	}
	return nil
}

type BuildingPlaced struct {
	Kind  string `json:"kind"`
	GridX int    `json:"grid_x"`
	GridY int    `json:"grid_y"`
}

func (BuildingPlaced) Tag() Tag { return TagBuildingPlaced }

func (m BuildingPlaced) Validate() error {
	if m.Kind == "" {
		return fmt.Errorf("kind is required")
	}
	return nil
}

// Record returns the building described by the message.
func (m BuildingPlaced) Record() BuildingRecord {
	return BuildingRecord{Kind: m.Kind, GridX: m.GridX, GridY: m.GridY}
}

// BuildingUpdate reports a changed durability for the building at Index in
// the ordered building list.
type BuildingUpdate struct {
	Index      int `json:"building_index"`
	Durability int `json:"durability"`
}

func (BuildingUpdate) Tag() Tag { return TagBuildingUpdate }

func (m BuildingUpdate) Validate() error {
	if m.Index < 0 {
		return fmt.Errorf("building_index must not be negative")
	}
	return nil
}

// EnemySpawned announces a new hostile entity. LocalId is only set when the
// server minted EnemyId and echoes back the id the spawning client used.
// Health is filled in by the server from the stored record; clients leave it
// unset.
type EnemySpawned struct {
	EnemyId int     `json:"enemy_id"`
	Kind    string  `json:"kind"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Health  int     `json:"health,omitempty"`
	LocalId int     `json:"local_id,omitempty"`
}

func (EnemySpawned) Tag() Tag { return TagEnemySpawned }

func (m EnemySpawned) Validate() error {
	el := errors.NewErrorList()
	if m.EnemyId < 0 {
		el.Add(fmt.Errorf("enemy_id must not be negative"))
	}
	if m.Kind == "" {
		el.Add(fmt.Errorf("kind is required"))
	}
	if m.Health < 0 {
		el.Add(fmt.Errorf("health must not be negative"))
	}
	return el.Err()
}

type EnemyDelta struct {
	EnemyId int     `json:"enemy_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Health  int     `json:"health"`
}

func (EnemyDelta) Tag() Tag { return TagEnemyDelta }

func (m EnemyDelta) Validate() error {
	if m.EnemyId < 0 {
		return fmt.Errorf("enemy_id must not be negative")
	}
	return nil
}

type EnemyRemoved struct {
	EnemyId int `json:"enemy_id"`
}

func (EnemyRemoved) Tag() Tag { return TagEnemyRemoved }

func (m EnemyRemoved) Validate() error {
	if m.EnemyId < 0 {
		return fmt.Errorf("enemy_id must not be negative")
	}
	return nil
}

// FullStateSnapshot is a complete copy of the authoritative world.
type FullStateSnapshot struct {
	Players     map[int]PlayerState `json:"players"`
	Buildings   []BuildingRecord    `json:"buildings"`
	Enemies     map[int]EnemyRecord `json:"enemies"`
	Inventory   Inventory           `json:"inventory"`
	ElapsedTime float64             `json:"elapsed_time"`
}

func (FullStateSnapshot) Tag() Tag { return TagFullStateSnapshot }

func (m FullStateSnapshot) Validate() error {
	if m.ElapsedTime < 0 {
		return fmt.Errorf("elapsed_time must not be negative")
	}
	return nil
}

// Heartbeat is a liveness pulse with an empty payload.
type Heartbeat struct{}

func (Heartbeat) Tag() Tag { return TagHeartbeat }

func (Heartbeat) Validate() error { return nil }

var factories = map[Tag]func() Message{
	TagHello:             func() Message { return &Hello{} },
	TagGoodbye:           func() Message { return &Goodbye{} },
	TagPlayerDelta:       func() Message { return &PlayerDelta{} },
	TagInventorySnapshot: func() Message { return &InventorySnapshot{} },
	TagBuildingPlaced:    func() Message { return &BuildingPlaced{} },
	TagBuildingUpdate:    func() Message { return &BuildingUpdate{} },
	TagEnemySpawned:      func() Message { return &EnemySpawned{} },
	TagEnemyDelta:        func() Message { return &EnemyDelta{} },
	TagEnemyRemoved:      func() Message { return &EnemyRemoved{} },
	TagFullStateSnapshot: func() Message { return &FullStateSnapshot{} },
	TagHeartbeat:         func() Message { return &Heartbeat{} },
}
