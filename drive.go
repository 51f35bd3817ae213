package main

import (
	"context"
	"errors"

	tea "charm.land/bubbletea/v2"
)

// errIdle means every command returned without done being satisfied.
var errIdle = errors.New("no commands left to run")

// drive runs cmd the way the Bubble Tea runtime would, without a terminal:
// each command runs on its own goroutine and every message it produces goes
// back through Update. It returns once done(m) holds, the commands run dry,
// or ctx ends. Commands still blocked when it returns are abandoned, so
// callers release what they wait on (the screen's exit does).
func drive(ctx context.Context, m model, cmd tea.Cmd, done func(model) bool) (model, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs := make(chan tea.Msg)
	pending := 0
	start := func(c tea.Cmd) {
		if c == nil {
			return
		}
		pending++
		go func() {
			select {
			case msgs <- c():
			case <-ctx.Done():
			}
		}()
	}

	start(cmd)
	for !done(m) {
		if pending == 0 {
			return m, errIdle
		}
		select {
		case <-ctx.Done():
			return m, ctx.Err()
		case msg := <-msgs:
			pending--
			switch msg := msg.(type) {
			case nil:
			case tea.BatchMsg:
				for _, c := range msg {
					start(c)
				}
			default:
				next, c := m.Update(msg)
				m = next.(model)
				start(c)
			}
		}
	}
	return m, nil
}
