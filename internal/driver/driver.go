package driver

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultTickLength = time.Second
)

// Ticker is a periodic task run by a Driver.
type Ticker interface {
	Tick(context.Context) error
}

// TickerFunc adapts a plain function to a Ticker.
type TickerFunc func(context.Context) error

func (f TickerFunc) Tick(ctx context.Context) error {
	return f(ctx)
}

// Driver runs its tickers in order on a fixed interval until its context ends.
type Driver struct {
	tickLength time.Duration
	tickers    []Ticker
}

func NewDriver(tickers []Ticker, opts ...DriverOpt) *Driver {
	d := &Driver{
		tickLength: DefaultTickLength,
		tickers:    tickers,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// TickLength returns the interval between ticks.
func (d *Driver) TickLength() time.Duration {
	return d.tickLength
}

func (d *Driver) Start(ctx context.Context) error {
	if d.tickLength <= 0 {
		return fmt.Errorf("tick length must be positive, got %s", d.tickLength)
	}

	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := d.Tick(ctx)
			if err != nil {
				return err
			}
		}
	}
}

func (d *Driver) Tick(ctx context.Context) error {
	for _, t := range d.tickers {
		if err := t.Tick(ctx); err != nil {
			return err
		}
	}
	return nil
}
