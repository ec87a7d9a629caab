package world

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/pixil98/go-forge/internal/protocol"
)

const DefaultEnemyHealth = 30

var (
	DefaultPlayer = protocol.PlayerState{X: 500, Y: 500, Health: 100, Hunger: 100}

	DefaultInventory = protocol.Inventory{
		"metal":  50,
		"food":   30,
		"energy": 10,
		"wood":   20,
		"stone":  20,
	}
)

// WorldState is the single source of truth for all replicated game state.
// All access must go through its methods to ensure thread-safety. Callers that
// need a mutation and the resulting broadcast to be atomic must serialize
// around it themselves.
type WorldState struct {
	mu sync.RWMutex

	players     map[int]protocol.PlayerState
	buildings   []protocol.BuildingRecord
	enemies     map[int]protocol.EnemyRecord
	inventory   protocol.Inventory
	elapsed     time.Duration
	nextEnemyId int

	defaultPlayer protocol.PlayerState
	enemyHealth   int
}

func NewWorldState(opts ...WorldStateOpt) *WorldState {
	w := &WorldState{
		players:       make(map[int]protocol.PlayerState),
		enemies:       make(map[int]protocol.EnemyRecord),
		inventory:     DefaultInventory.Clean(),
		nextEnemyId:   1,
		defaultPlayer: DefaultPlayer,
		enemyHealth:   DefaultEnemyHealth,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// AddPlayer inserts the default record for a newly joined player.
func (w *WorldState) AddPlayer(id int) (protocol.PlayerState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.players[id]; exists {
		return protocol.PlayerState{}, ErrPlayerExists
	}

	w.players[id] = w.defaultPlayer
	return w.defaultPlayer, nil
}

// RemovePlayer deletes a player's record.
func (w *WorldState) RemovePlayer(id int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.players[id]; !exists {
		return ErrPlayerNotFound
	}

	delete(w.players, id)
	return nil
}

// SetPlayer overwrites the whole record of an existing player.
func (w *WorldState) SetPlayer(id int, ps protocol.PlayerState) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.players[id]; !exists {
		return ErrPlayerNotFound
	}

	w.players[id] = ps
	return nil
}

// GetPlayer returns the player's record and whether it exists.
func (w *WorldState) GetPlayer(id int) (protocol.PlayerState, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ps, ok := w.players[id]
	return ps, ok
}

// PlayerCount returns the number of players in the world.
func (w *WorldState) PlayerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return len(w.players)
}

// SetInventory replaces the shared inventory wholesale. There is no per
// resource merge: the last snapshot applied wins.
func (w *WorldState) SetInventory(inv protocol.Inventory) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.inventory = inv.Clean()
}

// Inventory returns a copy of the shared inventory.
func (w *WorldState) Inventory() protocol.Inventory {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return maps.Clone(w.inventory)
}

// AddBuilding appends a building and returns its index. Placement is not
// validated and duplicates are kept.
func (w *WorldState) AddBuilding(b protocol.BuildingRecord) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buildings = append(w.buildings, b)
	return len(w.buildings) - 1
}

// UpdateBuilding sets the durability of the building at index.
func (w *WorldState) UpdateBuilding(index int, durability int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if index < 0 || index >= len(w.buildings) {
		return ErrBuildingNotFound
	}

	w.buildings[index].Durability = &durability
	return nil
}

// Buildings returns a copy of the ordered building list.
func (w *WorldState) Buildings() []protocol.BuildingRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return copyBuildings(w.buildings)
}

// MintEnemyId returns the next enemy id from the session counter.
func (w *WorldState) MintEnemyId() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextEnemyId
	w.nextEnemyId++
	return id
}

// SpawnEnemy stores an enemy under id with the default health. It reports
// whether an existing enemy with the same id was overwritten.
func (w *WorldState) SpawnEnemy(id int, kind string, x, y float64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, replaced := w.enemies[id]
	w.enemies[id] = protocol.EnemyRecord{
		Kind:   kind,
		X:      x,
		Y:      y,
		Health: w.enemyHealth,
	}
	if id >= w.nextEnemyId {
		w.nextEnemyId = id + 1
	}
	return replaced
}

// UpdateEnemy moves an existing enemy and sets its health. Unknown ids are
// ignored and reported as false.
func (w *WorldState) UpdateEnemy(id int, x, y float64, health int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.enemies[id]
	if !ok {
		return false
	}

	e.X = x
	e.Y = y
	e.Health = health
	w.enemies[id] = e
	return true
}

// RemoveEnemy deletes an enemy. Removing an unknown id is a no-op.
func (w *WorldState) RemoveEnemy(id int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, ok := w.enemies[id]
	delete(w.enemies, id)
	return ok
}

// GetEnemy returns the enemy record and whether it exists.
func (w *WorldState) GetEnemy(id int) (protocol.EnemyRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	e, ok := w.enemies[id]
	return e, ok
}

// Advance moves the world clock forward. Negative durations are ignored so the
// clock never runs backwards.
func (w *WorldState) Advance(d time.Duration) {
	if d <= 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.elapsed += d
}

// Elapsed returns the time the world has been running.
func (w *WorldState) Elapsed() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.elapsed
}

// Snapshot returns a deep copy of the whole world.
func (w *WorldState) Snapshot() protocol.FullStateSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return protocol.FullStateSnapshot{
		Players:     maps.Clone(w.players),
		Buildings:   copyBuildings(w.buildings),
		Enemies:     maps.Clone(w.enemies),
		Inventory:   maps.Clone(w.inventory),
		ElapsedTime: w.elapsed.Seconds(),
	}
}

func copyBuildings(in []protocol.BuildingRecord) []protocol.BuildingRecord {
	out := slices.Clone(in)
	if out == nil {
		out = []protocol.BuildingRecord{}
	}
	for i, b := range out {
		if b.Durability != nil {
			d := *b.Durability
			out[i].Durability = &d
		}
	}
	return out
}
