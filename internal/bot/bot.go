package bot

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/pixil98/go-forge/internal/client"
	"github.com/pixil98/go-forge/internal/driver"
	"github.com/pixil98/go-forge/internal/protocol"
)

const (
	TileSize = 32

	DefaultTickLength    = 100 * time.Millisecond
	DefaultBuildEvery    = 50
	DefaultSpawnEvery    = 30
	DefaultEnemyLifetime = 60
	DefaultRadius        = 64.0
)

var (
	buildingKinds = []string{"wall", "farm", "mine", "generator"}
	enemyKinds    = []string{"zombie", "mutant", "wolf"}
)

// Bot is a headless player. It walks in a circle around where it spawned,
// places buildings under its feet, and spawns enemies it later kills.
type Bot struct {
	addr string
	opts []client.SynchronizerOpt

	tickLength    time.Duration
	buildEvery    int
	spawnEvery    int
	enemyLifetime int
	radius        float64

	mu      sync.Mutex
	sync    *client.Synchronizer
	tick    int
	origin  protocol.PlayerState
	nextId  int
	pending map[int]int
	owned   map[int]int
}

func NewBot(addr string, opts ...BotOpt) *Bot {
	b := &Bot{
		addr:          addr,
		tickLength:    DefaultTickLength,
		buildEvery:    DefaultBuildEvery,
		spawnEvery:    DefaultSpawnEvery,
		enemyLifetime: DefaultEnemyLifetime,
		radius:        DefaultRadius,
		pending:       map[int]int{},
		owned:         map[int]int{},
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Start connects to the server and plays until ctx ends or the server goes
// away.
func (b *Bot) Start(ctx context.Context) error {
	s, err := client.Dial(ctx, b.addr,
		client.WithUpdateInterval(b.tickLength),
		client.WithHandler(protocol.TagEnemySpawned, b.onEnemySpawned),
		client.WithHandler(protocol.TagEnemyRemoved, b.onEnemyRemoved),
		client.WithHandler(protocol.TagGoodbye, b.onGoodbye),
	)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.WaitJoined(ctx); err != nil {
		return fmt.Errorf("joining %s: %w", b.addr, err)
	}

	b.mu.Lock()
	b.sync = s
	b.origin = s.LocalPlayer()
	// Client ids live in a per-identity range so two bots never collide.
	b.nextId = s.Identity() * 100000
	b.mu.Unlock()

	slog.InfoContext(ctx, "bot joined", "addr", b.addr, "identity", s.Identity())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	d := driver.NewDriver([]driver.Ticker{b}, driver.WithTickLength(b.tickLength))
	if err := d.Start(runCtx); err != nil {
		return err
	}

	if err := s.Err(); err != nil {
		return err
	}
	slog.InfoContext(ctx, "bot leaving", "identity", s.Identity())
	return nil
}

// Tick advances the bot by one step.
func (b *Bot) Tick(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sync == nil {
		return nil
	}
	b.tick++

	angle := float64(b.tick) * 2 * math.Pi / 64
	pos := b.origin
	pos.X += b.radius * math.Cos(angle)
	pos.Y += b.radius * math.Sin(angle)
	if err := b.sync.UpdateLocalPlayer(pos); err != nil {
		return fmt.Errorf("updating player: %w", err)
	}

	if b.buildEvery > 0 && b.tick%b.buildEvery == 0 {
		kind := buildingKinds[(b.tick/b.buildEvery)%len(buildingKinds)]
		if err := b.sync.SendBuildingPlaced(kind, int(pos.X)/TileSize, int(pos.Y)/TileSize); err != nil {
			return fmt.Errorf("placing building: %w", err)
		}
	}

	if b.spawnEvery > 0 && b.tick%b.spawnEvery == 0 {
		b.nextId++
		kind := enemyKinds[(b.tick/b.spawnEvery)%len(enemyKinds)]
		if err := b.sync.SendEnemySpawned(b.nextId, kind, pos.X+TileSize, pos.Y); err != nil {
			return fmt.Errorf("spawning enemy: %w", err)
		}
		b.pending[b.nextId] = b.tick
	}

	for id, born := range b.owned {
		if b.tick-born < b.enemyLifetime {
			continue
		}
		if err := b.sync.SendEnemyRemoved(id); err != nil {
			return fmt.Errorf("removing enemy %d: %w", id, err)
		}
		delete(b.owned, id)
	}

	return nil
}

// Owned returns the ids of live enemies this bot spawned.
func (b *Bot) Owned() []int {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]int, 0, len(b.owned))
	for id := range b.owned {
		ids = append(ids, id)
	}
	return ids
}

func (b *Bot) onEnemySpawned(msg protocol.Message) {
	m := msg.(protocol.EnemySpawned)

	b.mu.Lock()
	defer b.mu.Unlock()

	// A minted id arrives with our own id as LocalId.
	local := m.EnemyId
	if m.LocalId != 0 {
		local = m.LocalId
	}
	born, ok := b.pending[local]
	if !ok {
		return
	}
	delete(b.pending, local)
	b.owned[m.EnemyId] = born
}

func (b *Bot) onEnemyRemoved(msg protocol.Message) {
	m := msg.(protocol.EnemyRemoved)

	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.owned, m.EnemyId)
}

func (b *Bot) onGoodbye(msg protocol.Message) {
	slog.Info("player left", "identity", msg.(protocol.Goodbye).Identity)
}
