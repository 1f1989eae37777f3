package form

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formstate/pkg/validation"
)

// validateKey runs the field's rules. Synchronous results are applied
// immediately; asynchronous checks are started in the background and any
// earlier run for the same field is cancelled. Callers hold c.mu.
func (c *Controller) validateKey(ctx context.Context, key string) {
	f, st := c.fields[key], c.meta[key]
	if f == nil || st == nil {
		return
	}
	path, ok := c.pathOf(key)
	if !ok {
		return
	}

	st.abort(c.nextGen())
	if st.disabled {
		st.err = nil
		return
	}
	if st.coerceErr != nil {
		e := *st.coerceErr
		e.Path = path
		st.err = &e
		return
	}

	value, _ := getPath(c.values, path)
	if ferr := validation.RunSync(path, value, f.rules); ferr != nil {
		st.err = ferr
		return
	}
	st.err = nil
	if f.rules.HasAsync() {
		c.startAsync(ctx, key, path, deepCopy(value), f.rules, st)
	}
}

func (c *Controller) startAsync(ctx context.Context, key, path string, value any, rules validation.Rules, st *fieldState) {
	actx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	st.cancel = cancel
	st.validating = true
	gen := st.gen

	if c.inflight == 0 {
		c.idle = make(chan struct{})
	}
	c.inflight++
	c.logger.Debug("async validation started", zap.String("field", path), zap.Uint64("generation", gen))

	timeout := c.asyncTimeout
	go func() {
		defer cancel()
		ferr := validation.RunAsync(actx, path, value, rules, timeout)
		c.finishAsync(key, gen, ferr)
	}()
}

// finishAsync applies an async result unless a newer validation, a reset or
// an unregister superseded it.
func (c *Controller) finishAsync(key string, gen uint64, ferr *validation.FieldError) {
	c.mu.Lock()
	st := c.meta[key]
	current := st != nil && st.gen == gen
	var events []WatchEvent
	if current {
		st.validating = false
		st.cancel = nil
		st.err = ferr
		path, _ := c.pathOf(key)
		if ferr != nil {
			ferr.Path = path
		}
		events = c.events(EventState, path)
	}
	c.inflight--
	if c.inflight == 0 {
		close(c.idle)
	}
	c.mu.Unlock()

	switch {
	case !current:
		c.logger.Debug("stale async validation discarded", zap.String("key", key), zap.Uint64("generation", gen))
	case ferr != nil && ferr.Kind == validation.KindCollaborator:
		c.logger.Warn("async validation could not complete",
			zap.String("field", ferr.Path),
			zap.String("check", ferr.Rule),
			zap.Error(ferr.Cause),
		)
	default:
		c.logger.Debug("async validation finished", zap.String("key", key), zap.Bool("valid", ferr == nil))
	}
	c.emit(events)
}

// validateDeps re-validates the fields listed in the rules' Deps.
func (c *Controller) validateDeps(ctx context.Context, rules validation.Rules) {
	for _, dep := range rules.Deps {
		for _, key := range c.keysUnder(NormalizePath(dep)) {
			c.validateKey(ctx, key)
		}
	}
}

// Settle blocks until no asynchronous validation is running or ctx is done.
func (c *Controller) Settle(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.inflight == 0 {
			c.mu.Unlock()
			return nil
		}
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Trigger validates the fields at paths (every registered field when no path
// is given), waits for their asynchronous checks and reports whether all of
// them are valid.
func (c *Controller) Trigger(ctx context.Context, paths ...string) (bool, error) {
	c.mu.Lock()
	var keys []string
	if len(paths) == 0 {
		keys = c.keysUnder("")
	}
	for _, raw := range paths {
		path := NormalizePath(raw)
		matched := c.keysUnder(path)
		if path == "" || len(matched) == 0 {
			c.mu.Unlock()
			return false, fmt.Errorf("%w: %s", ErrUnknownField, raw)
		}
		keys = append(keys, matched...)
	}
	for _, key := range keys {
		c.validateKey(ctx, key)
	}
	events := c.events(EventState, "")
	c.mu.Unlock()
	c.emit(events)

	if err := c.Settle(ctx); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		if st := c.meta[key]; st != nil && st.err != nil {
			return false, nil
		}
	}
	return true, nil
}

// TriggerEach validates each group of paths concurrently and returns the
// validity per group, keyed by the group's first path.
func (c *Controller) TriggerEach(ctx context.Context, groups ...[]string) (map[string]bool, error) {
	results := make([]bool, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	for i, group := range groups {
		g.Go(func() error {
			ok, err := c.Trigger(gctx, group...)
			results[i] = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(groups))
	for i, group := range groups {
		name := ""
		if len(group) > 0 {
			name = NormalizePath(group[0])
		}
		out[name] = results[i]
	}
	return out, nil
}
