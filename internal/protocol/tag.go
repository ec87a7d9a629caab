package protocol

// Tag identifies the payload carried by a frame. Values match the strings the
// game clients put on the wire.
type Tag string

const (
	TagNone              Tag = ""
	TagHello             Tag = "connect"
	TagGoodbye           Tag = "disconnect"
	TagPlayerDelta       Tag = "player_update"
	TagInventorySnapshot Tag = "inventory_update"
	TagBuildingPlaced    Tag = "building_place"
	TagBuildingUpdate    Tag = "building_update"
	TagEnemySpawned      Tag = "enemy_spawn"
	TagEnemyDelta        Tag = "enemy_update"
	TagEnemyRemoved      Tag = "enemy_death"
	TagFullStateSnapshot Tag = "game_state"
	TagHeartbeat         Tag = "heartbeat"
)

// Tags lists every known tag.
var Tags = []Tag{
	TagHello,
	TagGoodbye,
	TagPlayerDelta,
	TagInventorySnapshot,
	TagBuildingPlaced,
	TagBuildingUpdate,
	TagEnemySpawned,
	TagEnemyDelta,
	TagEnemyRemoved,
	TagFullStateSnapshot,
	TagHeartbeat,
}

func (t Tag) String() string {
	if t == TagNone {
		return "none"
	}
	return string(t)
}

// Known reports whether t is one of the tags in Tags.
func (t Tag) Known() bool {
	_, ok := factories[t]
	return ok
}
