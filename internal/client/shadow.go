package client

import (
	"maps"
	"slices"

	"github.com/pixil98/go-forge/internal/protocol"
	"github.com/pixil98/go-forge/internal/world"
)

// ShadowState is the client's copy of the replicated world. Players never
// includes the local player.
type ShadowState struct {
	Players   map[int]protocol.PlayerState
	Buildings []protocol.BuildingRecord
	Enemies   map[int]protocol.EnemyRecord
	Inventory protocol.Inventory
	Elapsed   float64
}

func newShadowState() ShadowState {
	return ShadowState{
		Players:   map[int]protocol.PlayerState{},
		Buildings: []protocol.BuildingRecord{},
		Enemies:   map[int]protocol.EnemyRecord{},
		Inventory: protocol.Inventory{},
	}
}

// apply folds a message received from the server into the shadow. self is
// the local identity, zero until Hello has arrived.
func (s *ShadowState) apply(self int, msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.FullStateSnapshot:
		s.Players = maps.Clone(m.Players)
		if s.Players == nil {
			s.Players = map[int]protocol.PlayerState{}
		}
		delete(s.Players, self)
		s.Buildings = slices.Clone(m.Buildings)
		if s.Buildings == nil {
			s.Buildings = []protocol.BuildingRecord{}
		}
		s.Enemies = maps.Clone(m.Enemies)
		if s.Enemies == nil {
			s.Enemies = map[int]protocol.EnemyRecord{}
		}
		s.Inventory = m.Inventory.Clean()
		s.Elapsed = m.ElapsedTime

	case protocol.PlayerDelta:
		if m.Identity == self {
			return
		}
		s.Players[m.Identity] = m.State()

	case protocol.Goodbye:
		delete(s.Players, m.Identity)

	case protocol.InventorySnapshot:
		s.Inventory = m.Inventory.Clean()

	case protocol.BuildingPlaced:
		s.Buildings = append(s.Buildings, m.Record())

	case protocol.BuildingUpdate:
		if m.Index < 0 || m.Index >= len(s.Buildings) {
			return
		}
		durability := m.Durability
		s.Buildings[m.Index].Durability = &durability

	case protocol.EnemySpawned:
		health := m.Health
		if health == 0 {
			health = world.DefaultEnemyHealth
		}
		s.Enemies[m.EnemyId] = protocol.EnemyRecord{
			Kind:   m.Kind,
			X:      m.X,
			Y:      m.Y,
			Health: health,
		}

	case protocol.EnemyDelta:
		e, ok := s.Enemies[m.EnemyId]
		if !ok {
			return
		}
		e.X, e.Y, e.Health = m.X, m.Y, m.Health
		s.Enemies[m.EnemyId] = e

	case protocol.EnemyRemoved:
		delete(s.Enemies, m.EnemyId)
	}
}

func (s ShadowState) clone() ShadowState {
	out := ShadowState{
		Players:   maps.Clone(s.Players),
		Buildings: slices.Clone(s.Buildings),
		Enemies:   maps.Clone(s.Enemies),
		Inventory: maps.Clone(s.Inventory),
		Elapsed:   s.Elapsed,
	}
	for i, b := range out.Buildings {
		if b.Durability != nil {
			d := *b.Durability
			out.Buildings[i].Durability = &d
		}
	}
	return out
}
