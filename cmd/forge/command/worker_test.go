package command

import (
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestBuildWorkers(t *testing.T) {
	tests := map[string]struct {
		config     *Config
		expWorkers []string
	}{
		"local bus": {
			config: &Config{
				Listeners: []ListenerConfig{{Protocol: ListenerTypeTcp}, {Protocol: ListenerTypeWebSocket}},
			},
			expWorkers: []string{"clock", "heartbeat", "listeners"},
		},
		"nats bus": {
			config: &Config{
				Listeners: []ListenerConfig{{Protocol: ListenerTypeTcp}},
				Bus:       BusConfig{Type: BusTypeNats, Nats: NatsConfig{Port: -1}},
			},
			expWorkers: []string{"clock", "heartbeat", "listeners", "nats"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			workers, err := BuildWorkers(tt.config)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			testutil.AssertEqual(t, "worker count", len(workers), len(tt.expWorkers))
			for _, name := range tt.expWorkers {
				if _, ok := workers[name]; !ok {
					t.Errorf("missing worker %q", name)
				}
			}
		})
	}
}

func TestBuildWorkers_WrongConfig(t *testing.T) {
	_, err := BuildWorkers(struct{}{})
	testutil.AssertErrorContains(t, err, "unable to cast config")
}
