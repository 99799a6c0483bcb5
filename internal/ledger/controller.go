// Package ledger owns the in-memory state of every period the service has
// touched: it applies mutations, keeps running balances current, carries
// closing balances into the following quarter and debounces saves through
// the persistence gateway.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"skledger/internal/core"
	"skledger/internal/export"
	"skledger/internal/sheets"
)

var (
	// ErrSaveFailed wraps every gateway failure returned by Save.
	ErrSaveFailed = errors.New("save failed")
	// ErrLoadFailed wraps gateway failures while loading a period.
	ErrLoadFailed = errors.New("load failed")
)

// Config holds configuration for the controller
type Config struct {
	// AutosaveDelay is the quiet period before a dirty period is saved
	// automatically. Zero or negative disables autosave; periods are then
	// written only by Save and Flush.
	AutosaveDelay time.Duration

	// AccountLimit caps each sub-account list (default: 3)
	AccountLimit int

	Scheduler Scheduler
	Now       func() time.Time

	// OnChange is called with the controller lock held whenever a loaded
	// period's record changes. It must not call back into the controller.
	OnChange func(core.PeriodKey)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		AutosaveDelay: 2 * time.Second,
		AccountLimit:  core.DefaultAccountLimit,
		Scheduler:     ClockScheduler{},
		Now:           time.Now,
	}
}

// Controller is the period-keyed store of ledger state. A single mutex
// serializes all operations; gateway I/O runs outside it on copies.
type Controller struct {
	gateway sheets.PeriodGateway
	config  Config

	mu      sync.Mutex
	periods map[core.PeriodKey]*periodState
	carried map[core.PeriodKey]decimal.Decimal
	active  *core.PeriodKey
}

func NewController(gateway sheets.PeriodGateway, config Config) *Controller {
	if config.Scheduler == nil {
		config.Scheduler = ClockScheduler{}
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	config.AccountLimit = core.EffectiveLimit(config.AccountLimit)
	return &Controller{
		gateway: gateway,
		config:  config,
		periods: make(map[core.PeriodKey]*periodState),
		carried: make(map[core.PeriodKey]decimal.Decimal),
	}
}

// AccountLimit is the configured number of columns per account kind.
func (c *Controller) AccountLimit() int {
	return c.config.AccountLimit
}

// Open makes key the active period, loading it if needed, and returns its view.
func (c *Controller) Open(ctx context.Context, key core.PeriodKey) (View, error) {
	var v View
	err := c.withPeriod(ctx, key, func(ps *periodState) error {
		k := key
		c.active = &k
		c.carryLocked(key)
		v = c.viewLocked(key, ps)
		return nil
	})
	return v, err
}

// Active returns the most recently opened period.
func (c *Controller) Active() (core.PeriodKey, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return core.PeriodKey{}, false
	}
	return *c.active, true
}

// View returns the period's record, totals and status without changing the
// active period.
func (c *Controller) View(ctx context.Context, key core.PeriodKey) (View, error) {
	var v View
	err := c.withPeriod(ctx, key, func(ps *periodState) error {
		v = c.viewLocked(key, ps)
		return nil
	})
	return v, err
}

// Record returns a copy of the period's triple with balances computed.
func (c *Controller) Record(ctx context.Context, key core.PeriodKey) (core.PeriodRecord, error) {
	var rec core.PeriodRecord
	err := c.withPeriod(ctx, key, func(ps *periodState) error {
		rec = ps.rec.Clone()
		return nil
	})
	return rec, err
}

// Schema returns the period's schema. A period seen for the first time gets
// the default schema, which is then scheduled for saving.
func (c *Controller) Schema(ctx context.Context, key core.PeriodKey) (core.Schema, error) {
	var s core.Schema
	err := c.withPeriod(ctx, key, func(ps *periodState) error {
		s = ps.rec.Schema.Clone()
		return nil
	})
	return s, err
}

// AddAccount appends a sub-account label. Adding past the limit is a silent
// no-op reported as false.
func (c *Controller) AddAccount(ctx context.Context, key core.PeriodKey, kind core.AccountKind, label string) (bool, error) {
	var added bool
	err := c.mutate(ctx, key, func(rec *core.PeriodRecord) (bool, error) {
		added = rec.Schema.AddAccount(kind, label, c.config.AccountLimit)
		return added, nil
	})
	return added, err
}

func (c *Controller) RenameAccount(ctx context.Context, key core.PeriodKey, kind core.AccountKind, index int, label string) (bool, error) {
	var renamed bool
	err := c.mutate(ctx, key, func(rec *core.PeriodRecord) (bool, error) {
		renamed = rec.Schema.RenameAccount(kind, index, label)
		return renamed, nil
	})
	return renamed, err
}

func (c *Controller) RemoveAccount(ctx context.Context, key core.PeriodKey, kind core.AccountKind, index int) (bool, error) {
	var removed bool
	err := c.mutate(ctx, key, func(rec *core.PeriodRecord) (bool, error) {
		removed = rec.Schema.RemoveAccount(kind, index)
		return removed, nil
	})
	return removed, err
}

// Append validates the draft and appends it to the period. A rejected draft
// returns a *core.ValidationError and changes nothing.
func (c *Controller) Append(ctx context.Context, key core.PeriodKey, d core.Draft) error {
	return c.mutate(ctx, key, func(rec *core.PeriodRecord) (bool, error) {
		if err := rec.Append(d); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Withdraw removes the entry at index and returns it as a prefilled draft.
// Appending the edited draft completes an edit.
func (c *Controller) Withdraw(ctx context.Context, key core.PeriodKey, index int) (core.Draft, error) {
	var d core.Draft
	err := c.mutate(ctx, key, func(rec *core.PeriodRecord) (bool, error) {
		e, err := rec.RemoveAt(index)
		if err != nil {
			return false, err
		}
		d = e.Draft()
		return true, nil
	})
	return d, err
}

// Entries returns the period's entries in append order.
func (c *Controller) Entries(ctx context.Context, key core.PeriodKey) ([]core.Entry, error) {
	rec, err := c.Record(ctx, key)
	if err != nil {
		return nil, err
	}
	return rec.Entries, nil
}

// SetMetadata updates the register header. Blank values restore defaults.
func (c *Controller) SetMetadata(ctx context.Context, key core.PeriodKey, fund, sheetNo string) error {
	return c.mutate(ctx, key, func(rec *core.PeriodRecord) (bool, error) {
		before := rec.Metadata
		rec.SetHeader(fund, sheetNo)
		return before.Fund != rec.Metadata.Fund || before.SheetNo != rec.Metadata.SheetNo, nil
	})
}

// SetOpeningBalance is an explicit user edit of the brought forward balance.
func (c *Controller) SetOpeningBalance(ctx context.Context, key core.PeriodKey, amount decimal.Decimal) error {
	return c.mutate(ctx, key, func(rec *core.PeriodRecord) (bool, error) {
		return rec.SetOpening(amount), nil
	})
}

func (c *Controller) Totals(ctx context.Context, key core.PeriodKey) (core.Totals, error) {
	var t core.Totals
	err := c.withPeriod(ctx, key, func(ps *periodState) error {
		t = ps.rec.Totals()
		return nil
	})
	return t, err
}

// Snapshot builds the export snapshot of a period.
func (c *Controller) Snapshot(ctx context.Context, key core.PeriodKey) (export.Snapshot, error) {
	rec, err := c.Record(ctx, key)
	if err != nil {
		return export.Snapshot{}, err
	}
	return export.Build(key, rec, c.config.AccountLimit), nil
}

// Status reports the save state of key without loading it.
func (c *Controller) Status(key core.PeriodKey) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	ps, ok := c.periods[key]
	if !ok {
		return Status{Key: key, State: NotVisited}
	}
	return ps.status(key)
}

// CarriedOpening returns the closing balance most recently carried into key.
func (c *Controller) CarriedOpening(key core.PeriodKey) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.carried[key]
	return v, ok
}

// Save writes the period through the gateway. Saving a clean or unloaded
// period is a no-op, as is saving one whose save is already in flight. A
// mutation during the flight is saved by a follow-up: scheduled through the
// debounce when autosave is on, written by this call before returning when
// it is off. On failure the period stays dirty and the error is returned
// wrapping ErrSaveFailed.
func (c *Controller) Save(ctx context.Context, key core.PeriodKey) error {
	c.mu.Lock()
	ps, ok := c.periods[key]
	if !ok || ps.state != Dirty {
		c.mu.Unlock()
		return nil
	}
	for {
		c.stopTimerLocked(ps)
		rec := ps.rec.Clone()
		ps.state = Saving
		ps.mutatedDuringSave = false
		c.mu.Unlock()

		err := c.gateway.Save(ctx, key, rec)

		c.mu.Lock()
		mutated := ps.mutatedDuringSave
		ps.mutatedDuringSave = false
		ps.state = Dirty
		if err != nil {
			ps.lastErr = err
			if mutated {
				c.scheduleLocked(key, ps)
			}
			c.mu.Unlock()
			slog.WarnContext(ctx, "Period save failed", "period", key.String(), "error", err)
			return fmt.Errorf("%w: period %s: %w", ErrSaveFailed, key, err)
		}
		ps.lastErr = nil
		ps.lastSaved = c.config.Now()
		if !mutated {
			ps.state = Clean
			c.mu.Unlock()
			slog.DebugContext(ctx, "Period saved", "period", key.String(), "entries", len(rec.Entries))
			return nil
		}
		if c.config.AutosaveDelay > 0 {
			c.scheduleLocked(key, ps)
			c.mu.Unlock()
			slog.DebugContext(ctx, "Period changed during save, follow-up scheduled", "period", key.String())
			return nil
		}
		slog.DebugContext(ctx, "Period changed during save, saving again", "period", key.String())
	}
}

// Flush saves every dirty period, typically on shutdown.
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	keys := make([]core.PeriodKey, 0, len(c.periods))
	for k, ps := range c.periods {
		if ps.state == Dirty {
			keys = append(keys, k)
		}
	}
	c.mu.Unlock()

	var errs []error
	for _, k := range keys {
		if err := c.Save(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close cancels all pending autosaves.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ps := range c.periods {
		c.stopTimerLocked(ps)
	}
}

// ResolveOpening returns the opening balance key should carry in, derived
// from the periods stored by loader. It walks back through stored
// predecessors until one is missing and folds their endings forward, so a
// stored opening that was carried in before an earlier quarter changed is
// never trusted. ok is false when the period before key was never saved.
func ResolveOpening(ctx context.Context, loader sheets.PeriodLoader, key core.PeriodKey) (decimal.Decimal, bool, error) {
	return resolveChain(ctx, loader, key, nil, nil)
}

// resolveChain is ResolveOpening with knowledge of in-memory state: endings
// holds loaded periods whose ending is authoritative, openings holds pending
// carries that override a stored opening. Either stops the walk.
func resolveChain(ctx context.Context, loader sheets.PeriodLoader, key core.PeriodKey,
	endings, openings map[core.PeriodKey]decimal.Decimal) (decimal.Decimal, bool, error) {
	var (
		chain   []core.PeriodRecord // newest first
		base    decimal.Decimal
		hasBase bool
	)
	for p := key.Prev(); p.Validate() == nil; p = p.Prev() {
		if e, ok := endings[p]; ok {
			base, hasBase = e, true
			break
		}
		rec, found, err := loader.Load(ctx, p)
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("load period %s: %w", p, err)
		}
		if !found {
			break
		}
		if o, ok := openings[p]; ok {
			rec.Metadata.Opening = o
			chain = append(chain, rec)
			break
		}
		chain = append(chain, rec)
	}
	if len(chain) == 0 {
		return base, hasBase, nil
	}

	running := base
	for i := len(chain) - 1; i >= 0; i-- {
		rec := chain[i]
		if i < len(chain)-1 || hasBase {
			rec.Metadata.Opening = running
		}
		rec.Recompute()
		running = rec.Ending()
	}
	return running, true, nil
}

func (c *Controller) withPeriod(ctx context.Context, key core.PeriodKey, fn func(*periodState) error) error {
	if err := c.ensureLoaded(ctx, key); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.periods[key])
}

func (c *Controller) mutate(ctx context.Context, key core.PeriodKey, fn func(*core.PeriodRecord) (bool, error)) error {
	return c.withPeriod(ctx, key, func(ps *periodState) error {
		changed, err := fn(&ps.rec)
		if err != nil || !changed {
			return err
		}
		ps.revision++
		c.markDirtyLocked(key, ps)
		c.changedLocked(key)
		c.carryLocked(key)
		return nil
	})
}

// ensureLoaded loads key through the gateway the first time it is needed.
// A period without a pending carry resolves its opening from the chain of
// stored predecessors so that a quarter opens with an up to date balance
// even after a restart.
func (c *Controller) ensureLoaded(ctx context.Context, key core.PeriodKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	_, loaded := c.periods[key]
	_, hasCarry := c.carried[key]
	var endings, openings map[core.PeriodKey]decimal.Decimal
	if !loaded && !hasCarry {
		endings = make(map[core.PeriodKey]decimal.Decimal, len(c.periods))
		for k, ps := range c.periods {
			endings[k] = ps.rec.Ending()
		}
		openings = make(map[core.PeriodKey]decimal.Decimal, len(c.carried))
		for k, v := range c.carried {
			openings[k] = v
		}
	}
	c.mu.Unlock()
	if loaded {
		return nil
	}

	rec, found, err := c.gateway.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: period %s: %w", ErrLoadFailed, key, err)
	}
	var (
		prevEnding decimal.Decimal
		hasPrev    bool
	)
	if !hasCarry {
		prevEnding, hasPrev, err = resolveChain(ctx, c.gateway, key, endings, openings)
		if err != nil {
			slog.WarnContext(ctx, "Could not resolve carried balance", "period", key.String(), "error", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.periods[key]; ok {
		return nil
	}
	ps := &periodState{state: Clean}
	if found {
		ps.rec = normalizeRecord(rec)
	} else {
		ps.rec = core.NewPeriodRecord()
	}
	if v, ok := c.carried[key]; ok {
		ps.rec.Metadata.Opening = v
	} else if hasPrev {
		ps.rec.Metadata.Opening = prevEnding
		c.carried[key] = prevEnding
	}
	ps.rec.Recompute()
	c.periods[key] = ps
	if !found {
		c.markDirtyLocked(key, ps)
	}
	c.carryLocked(key)
	slog.DebugContext(ctx, "Period loaded", "period", key.String(), "found", found, "entries", len(ps.rec.Entries))
	return nil
}

// carryLocked writes key's ending balance as the opening balance of the next
// period and cascades through loaded successors. Carried writes never mark
// the receiving period dirty.
func (c *Controller) carryLocked(key core.PeriodKey) {
	for {
		ps, ok := c.periods[key]
		if !ok {
			return
		}
		ending := ps.rec.Ending()
		next := key.Next()
		if prev, ok := c.carried[next]; ok && prev.Equal(ending) {
			return
		}
		c.carried[next] = ending
		nps, ok := c.periods[next]
		if !ok || !nps.rec.SetOpening(ending) {
			return
		}
		nps.revision++
		c.changedLocked(next)
		key = next
	}
}

func (c *Controller) markDirtyLocked(key core.PeriodKey, ps *periodState) {
	if ps.state == Saving {
		ps.mutatedDuringSave = true
		return
	}
	ps.state = Dirty
	c.scheduleLocked(key, ps)
}

// scheduleLocked (re)starts the period's debounce timer.
func (c *Controller) scheduleLocked(key core.PeriodKey, ps *periodState) {
	c.stopTimerLocked(ps)
	if c.config.AutosaveDelay <= 0 {
		return
	}
	seq := ps.timerSeq
	ps.timer = c.config.Scheduler.AfterFunc(c.config.AutosaveDelay, func() {
		c.autosave(key, seq)
	})
}

func (c *Controller) stopTimerLocked(ps *periodState) {
	if ps.timer != nil {
		ps.timer.Stop()
		ps.timer = nil
	}
	ps.timerSeq++
}

func (c *Controller) autosave(key core.PeriodKey, seq uint64) {
	c.mu.Lock()
	ps, ok := c.periods[key]
	if !ok || ps.timerSeq != seq {
		c.mu.Unlock()
		return
	}
	ps.timer = nil
	c.mu.Unlock()

	ctx := context.Background()
	if err := c.Save(ctx, key); err != nil {
		slog.ErrorContext(ctx, "Autosave failed", "period", key.String(), "error", err)
	}
}

func (c *Controller) changedLocked(key core.PeriodKey) {
	if c.config.OnChange != nil {
		c.config.OnChange(key)
	}
}

func (c *Controller) viewLocked(key core.PeriodKey, ps *periodState) View {
	return View{
		Key:    key,
		Label:  key.Label(),
		Record: ps.rec.Clone(),
		Totals: ps.rec.Totals(),
		Limit:  c.config.AccountLimit,
		Status: ps.status(key),
	}
}

func normalizeRecord(rec core.PeriodRecord) core.PeriodRecord {
	rec = rec.Clone()
	if rec.Metadata.Fund == "" {
		rec.Metadata.Fund = core.DefaultFund
	}
	if rec.Metadata.SheetNo == "" {
		rec.Metadata.SheetNo = core.DefaultSheetNo
	}
	return rec
}
