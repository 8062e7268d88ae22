// Package cart implements the reconciliation engine that keeps the
// locally cached, optimistically updated cart consistent with the remote
// authoritative cart.
//
// Local state is the durable record of user intent: mutations commit to
// the local store synchronously and the matching remote call runs in the
// background. Only selection toggles wait for the remote, because a
// deselect that the backend rejected must not be reported as done.
package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/akenterprises/storefront/pkg/errors"
	"github.com/akenterprises/storefront/pkg/localstore"
	"github.com/akenterprises/storefront/pkg/logger"
	"github.com/akenterprises/storefront/pkg/metrics"
	"github.com/akenterprises/storefront/pkg/notify"

	"github.com/akenterprises/storefront/internal/catalog"
	"github.com/akenterprises/storefront/pkg/backend"
)

// Persisted store keys.
const (
	keyCart      = "cart"
	keyUnchecked = "uncheckedCartItems"
)

const warnSyncPending = "saved locally; syncing with your cart failed, will retry on next load"

// RemoteCart is the slice of the backend the engine needs.
type RemoteCart interface {
	FetchCart(ctx context.Context, userID string) (backend.CartSnapshot, error)
	UpsertCartItem(ctx context.Context, userID string, productID, quantity int, price decimal.Decimal, size string) error
}

// EngineParams carries Engine dependencies.
type EngineParams struct {
	Store    localstore.Store
	Remote   RemoteCart
	Catalog  *catalog.Store
	Logger   *logger.Logger
	Metrics  *metrics.SyncMetrics
	Notifier notify.Sink
	Pricing  PricingPolicy
}

// Engine owns the merged cart. All exported methods are safe for
// concurrent use; local mutations apply in call order under one lock.
type Engine struct {
	store    localstore.Store
	remote   RemoteCart
	catalog  *catalog.Store
	log      *logger.Logger
	metrics  *metrics.SyncMetrics
	notifier notify.Sink
	pricing  PricingPolicy

	mu          sync.Mutex
	lines       []Line
	unchecked   map[LineKey]Line
	remoteTotal *decimal.Decimal

	syncs sync.WaitGroup
}

// NewEngine validates dependencies and returns an Engine with no cart
// loaded.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Store == nil {
		return nil, errors.New(errors.CodeInternal, "cart engine requires a local store")
	}
	if params.Remote == nil {
		return nil, errors.New(errors.CodeInternal, "cart engine requires a remote cart client")
	}
	if params.Logger == nil {
		return nil, errors.New(errors.CodeInternal, "cart engine requires a logger")
	}
	if params.Notifier == nil {
		params.Notifier = notify.LoggerSink{Log: params.Logger}
	}
	return &Engine{
		store:     params.Store,
		remote:    params.Remote,
		catalog:   params.Catalog,
		log:       params.Logger,
		metrics:   params.Metrics,
		notifier:  params.Notifier,
		pricing:   params.Pricing,
		unchecked: map[LineKey]Line{},
	}, nil
}

// Load merges local and remote state into the engine's in-memory cart.
//
// With a user id, the remote cart is authoritative for the lines it
// returns; every remote line starts selected. Soft-deselected lines from
// the persisted unchecked set are appended unselected even when the
// remote has forgotten them. A remote failure degrades to the local-only
// merge and sets View.Warning instead of failing the call.
func (e *Engine) Load(ctx context.Context, userID string) (View, error) {
	local, unchecked, err := e.readPersisted(ctx)
	if err != nil {
		return View{}, err
	}

	var warning string
	var merged []Line
	var remoteTotal *decimal.Decimal

	if userID != "" {
		snap, err := e.remote.FetchCart(ctx, userID)
		if err != nil {
			e.log.Warn(e.log.WithComponent(ctx, "cart"), "remote cart unavailable, using local state")
			e.metrics.IncSyncFailure("cart.load")
			warning = "cart service unavailable; showing your locally saved cart"
			merged = mergeLocal(local, unchecked)
		} else {
			e.metrics.IncSyncSuccess("cart.load")
			merged = e.mergeRemote(snap.Items, unchecked)
			remoteTotal = snap.TotalPrice
		}
	} else {
		merged = mergeLocal(local, unchecked)
	}

	e.mu.Lock()
	e.lines = merged
	e.unchecked = keyed(unchecked)
	e.remoteTotal = remoteTotal
	view := e.viewLocked()
	e.mu.Unlock()

	view.Warning = warning
	return view, nil
}

// mergeRemote builds the merged view from the authoritative remote lines
// plus retained soft-deselected lines.
func (e *Engine) mergeRemote(items []backend.CartItem, unchecked []Line) []Line {
	merged := make([]Line, 0, len(items)+len(unchecked))
	present := make(map[LineKey]struct{}, len(items))
	for _, item := range items {
		line := e.lineFromRemote(item)
		if _, dup := present[line.Key]; dup {
			continue
		}
		present[line.Key] = struct{}{}
		merged = append(merged, line)
	}
	for _, line := range unchecked {
		if _, ok := present[line.Key]; ok {
			// Remote still has the line; unchecked wins selection.
			for i := range merged {
				if merged[i].Key == line.Key {
					merged[i].Selected = false
				}
			}
			continue
		}
		line.Selected = false
		merged = append(merged, line)
	}
	return merged
}

// mergeLocal is the anonymous merge: cached lines selected unless in the
// unchecked set, plus unchecked lines the cache no longer carries.
func mergeLocal(local, unchecked []Line) []Line {
	uncheckedKeys := keyed(unchecked)
	merged := make([]Line, 0, len(local)+len(unchecked))
	present := map[LineKey]struct{}{}
	for _, line := range local {
		if _, dup := present[line.Key]; dup {
			continue
		}
		present[line.Key] = struct{}{}
		_, off := uncheckedKeys[line.Key]
		line.Selected = !off
		merged = append(merged, line)
	}
	for _, line := range unchecked {
		if _, ok := present[line.Key]; ok {
			continue
		}
		present[line.Key] = struct{}{}
		line.Selected = false
		merged = append(merged, line)
	}
	return merged
}

func (e *Engine) lineFromRemote(item backend.CartItem) Line {
	line := Line{
		Key:             NewLineKey(item.ProductID, item.Size),
		Name:            item.ItemName,
		Price:           item.Price,
		DiscountedPrice: item.DiscountedPrice,
		DiscountPercent: item.DiscountPercent,
		Quantity:        item.Quantity,
		Selected:        true,
	}
	if e.catalog != nil {
		if p, ok := e.catalog.ByID(item.ProductID); ok {
			line.Image = p.Image
			if line.Name == "" {
				line.Name = p.Name
			}
		}
	}
	return line
}

// AddLine adds a product to the cart, or bumps quantity when a line with
// the same key already exists. The existing line keeps its position; new
// lines append. The local commit always succeeds; the remote upsert runs
// in the background and a failure only flags the view as sync-pending.
func (e *Engine) AddLine(ctx context.Context, userID string, product catalog.Product, size string, quantity int) (View, error) {
	if quantity < 1 {
		quantity = 1
	}
	key := NewLineKey(product.ID, size)

	e.mu.Lock()
	found := false
	for i := range e.lines {
		if e.lines[i].Key == key {
			e.lines[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		e.lines = append(e.lines, newLine(product, size, quantity))
	}
	view, err := e.persistCartLocked(ctx)
	e.mu.Unlock()
	if err != nil {
		return view, err
	}

	if userID != "" {
		e.syncAsync(ctx, "cart.add", func(ctx context.Context) error {
			return e.remote.UpsertCartItem(ctx, userID, key.ProductID, quantity, product.EffectivePrice(), sizeForWire(key))
		})
	}
	return view, nil
}

// SetQuantity updates a line in place, preserving its position. A target
// of zero or less removes the line.
func (e *Engine) SetQuantity(ctx context.Context, userID string, key LineKey, quantity int) (View, error) {
	if quantity <= 0 {
		return e.RemoveLine(ctx, userID, key)
	}

	e.mu.Lock()
	var line *Line
	for i := range e.lines {
		if e.lines[i].Key == key {
			e.lines[i].Quantity = quantity
			line = &e.lines[i]
			break
		}
	}
	if line == nil {
		e.mu.Unlock()
		return e.Current(), errors.New(errors.CodeNotFound, "cart line not found")
	}
	price := line.EffectivePrice()
	view, err := e.persistCartLocked(ctx)
	e.mu.Unlock()
	if err != nil {
		return view, err
	}

	if userID != "" {
		e.syncAsync(ctx, "cart.quantity", func(ctx context.Context) error {
			return e.remote.UpsertCartItem(ctx, userID, key.ProductID, quantity, price, sizeForWire(key))
		})
	}
	return view, nil
}

// RemoveLine hard-deletes a line. Local removal stands regardless of the
// background remote zero-out.
func (e *Engine) RemoveLine(ctx context.Context, userID string, key LineKey) (View, error) {
	e.mu.Lock()
	var removed *Line
	kept := e.lines[:0]
	for _, line := range e.lines {
		if line.Key == key {
			l := line
			removed = &l
			continue
		}
		kept = append(kept, line)
	}
	e.lines = kept
	if removed == nil {
		e.mu.Unlock()
		return e.Current(), errors.New(errors.CodeNotFound, "cart line not found")
	}
	delete(e.unchecked, key)
	view, err := e.persistAllLocked(ctx)
	e.mu.Unlock()
	if err != nil {
		return view, err
	}

	if userID != "" {
		price := removed.EffectivePrice()
		e.syncAsync(ctx, "cart.remove", func(ctx context.Context) error {
			return e.remote.UpsertCartItem(ctx, userID, key.ProductID, 0, price, sizeForWire(key))
		})
	}
	return view, nil
}

// RemoveLines deletes several lines at once, the post-order cleanup path.
func (e *Engine) RemoveLines(ctx context.Context, userID string, keys []LineKey) (View, error) {
	drop := make(map[LineKey]Line, len(keys))

	e.mu.Lock()
	want := map[LineKey]struct{}{}
	for _, k := range keys {
		want[k] = struct{}{}
	}
	kept := e.lines[:0]
	for _, line := range e.lines {
		if _, ok := want[line.Key]; ok {
			drop[line.Key] = line
			delete(e.unchecked, line.Key)
			continue
		}
		kept = append(kept, line)
	}
	e.lines = kept
	view, err := e.persistAllLocked(ctx)
	e.mu.Unlock()
	if err != nil {
		return view, err
	}

	if userID != "" {
		for key, line := range drop {
			key, price := key, line.EffectivePrice()
			e.syncAsync(ctx, "cart.remove", func(ctx context.Context) error {
				return e.remote.UpsertCartItem(ctx, userID, key.ProductID, 0, price, sizeForWire(key))
			})
		}
	}
	return view, nil
}

// ToggleSelection flips a line between selected and soft-deselected.
//
// Unlike the content mutations this one waits for the remote call and
// rolls the flag back on failure: selection exists to suppress or restore
// the line in the authoritative cart, so a failed suppression must not be
// shown as done.
func (e *Engine) ToggleSelection(ctx context.Context, userID string, key LineKey) (View, error) {
	e.mu.Lock()
	idx := -1
	for i := range e.lines {
		if e.lines[i].Key == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.mu.Unlock()
		return e.Current(), errors.New(errors.CodeNotFound, "cart line not found")
	}

	line := e.lines[idx]
	deselecting := line.Selected
	e.lines[idx].Selected = !line.Selected
	if deselecting {
		if _, dup := e.unchecked[key]; !dup {
			snapshot := line
			snapshot.Selected = false
			e.unchecked[key] = snapshot
		}
	} else {
		delete(e.unchecked, key)
	}
	view, err := e.persistAllLocked(ctx)
	e.mu.Unlock()
	if err != nil {
		return view, err
	}
	if userID == "" {
		return view, nil
	}

	remoteQty := line.Quantity
	if deselecting {
		remoteQty = 0
	}
	op := "cart.select"
	if deselecting {
		op = "cart.deselect"
	}

	if err := e.remote.UpsertCartItem(ctx, userID, key.ProductID, remoteQty, line.EffectivePrice(), sizeForWire(key)); err != nil {
		e.metrics.IncSyncFailure(op)
		e.log.Error(e.log.WithComponent(ctx, "cart"), "selection sync failed, reverting", err)

		e.mu.Lock()
		for i := range e.lines {
			if e.lines[i].Key == key {
				e.lines[i].Selected = line.Selected
			}
		}
		if deselecting {
			delete(e.unchecked, key)
		} else {
			snapshot := line
			snapshot.Selected = false
			e.unchecked[key] = snapshot
		}
		view, perr := e.persistAllLocked(ctx)
		e.mu.Unlock()
		if perr != nil {
			return view, perr
		}
		view.Warning = "could not update selection with the cart service"
		e.notifier.Push(ctx, notify.Error("cart", view.Warning))
		return view, nil
	}

	e.metrics.IncSyncSuccess(op)
	return view, nil
}

// SelectAll sets every line to the target selection state. The remote
// calls run in parallel and the batch is all-or-nothing: any failure rolls
// the whole cart back to its pre-call state.
func (e *Engine) SelectAll(ctx context.Context, userID string, target bool) (View, error) {
	e.mu.Lock()
	prevLines := append([]Line(nil), e.lines...)
	prevUnchecked := make(map[LineKey]Line, len(e.unchecked))
	for k, v := range e.unchecked {
		prevUnchecked[k] = v
	}

	e.unchecked = map[LineKey]Line{}
	for i := range e.lines {
		e.lines[i].Selected = target
		if !target {
			snapshot := e.lines[i]
			e.unchecked[snapshot.Key] = snapshot
		}
	}
	lines := append([]Line(nil), e.lines...)
	view, err := e.persistAllLocked(ctx)
	e.mu.Unlock()
	if err != nil {
		return view, err
	}
	if userID == "" || len(lines) == 0 {
		return view, nil
	}

	var g errgroup.Group
	var errMu sync.Mutex
	var syncErr error
	for _, line := range lines {
		line := line
		g.Go(func() error {
			qty := 0
			if target {
				qty = line.Quantity
			}
			err := e.remote.UpsertCartItem(ctx, userID, line.Key.ProductID, qty, line.EffectivePrice(), sizeForWire(line.Key))
			if err != nil {
				errMu.Lock()
				syncErr = multierr.Append(syncErr, err)
				errMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if syncErr == nil {
		e.metrics.IncSyncSuccess("cart.selectAll")
		return view, nil
	}

	e.metrics.IncSyncFailure("cart.selectAll")
	e.log.Error(e.log.WithComponent(ctx, "cart"), "bulk selection sync failed, rolling back", syncErr)

	e.mu.Lock()
	e.lines = prevLines
	e.unchecked = prevUnchecked
	view, perr := e.persistAllLocked(ctx)
	e.mu.Unlock()
	if perr != nil {
		return view, perr
	}
	view.Warning = "could not update selection with the cart service"
	e.notifier.Push(ctx, notify.Error("cart", view.Warning))
	return view, nil
}

// RestoreUnchecked pushes every soft-deselected line back into the remote
// cart and clears the unchecked set. Used on logout so the authoritative
// cart is whole again for the next session.
func (e *Engine) RestoreUnchecked(ctx context.Context, userID string) error {
	e.mu.Lock()
	lines := make([]Line, 0, len(e.unchecked))
	for _, line := range e.unchecked {
		lines = append(lines, line)
	}
	e.mu.Unlock()

	var restoreErr error
	if userID != "" {
		for _, line := range lines {
			if err := e.remote.UpsertCartItem(ctx, userID, line.Key.ProductID, line.Quantity, line.EffectivePrice(), sizeForWire(line.Key)); err != nil {
				restoreErr = multierr.Append(restoreErr, err)
			}
		}
	}
	if restoreErr != nil {
		e.metrics.IncSyncFailure("cart.restore")
		e.log.Error(e.log.WithComponent(ctx, "cart"), "restoring deselected lines failed", restoreErr)
	}

	e.mu.Lock()
	e.unchecked = map[LineKey]Line{}
	for i := range e.lines {
		e.lines[i].Selected = true
	}
	_, err := e.persistAllLocked(ctx)
	e.mu.Unlock()
	return err
}

// Clear wipes the cart and unchecked set, locally and in memory.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lines = nil
	e.unchecked = map[LineKey]Line{}
	e.remoteTotal = nil
	_, err := e.persistAllLocked(ctx)
	return err
}

// Reset drops in-memory state without touching persistence.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lines = nil
	e.unchecked = map[LineKey]Line{}
	e.remoteTotal = nil
}

// Current returns the merged view without touching local or remote state.
func (e *Engine) Current() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

// Count is the badge number: total units across all lines.
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, line := range e.lines {
		total += line.Quantity
	}
	return total
}

// RemoteCount returns the backend's unit count for an authenticated user,
// falling back to the local count when the user is anonymous or the backend
// is unreachable.
func (e *Engine) RemoteCount(ctx context.Context, userID string) int {
	if userID != "" {
		if snapshot, err := e.remote.FetchCart(ctx, userID); err == nil {
			total := 0
			for _, item := range snapshot.Items {
				total += item.Quantity
			}
			return total
		} else {
			e.log.Warn(ctx, "remote cart count unavailable, using local: "+err.Error())
		}
	}
	return e.Count()
}

// Wait blocks until all background syncs have settled. Called on shutdown
// and by tests.
func (e *Engine) Wait() {
	e.syncs.Wait()
}

// syncAsync runs a remote call in the background on a detached context so
// the caller's request finishing does not cancel it.
func (e *Engine) syncAsync(ctx context.Context, op string, call func(ctx context.Context) error) {
	detached := context.WithoutCancel(ctx)
	e.syncs.Add(1)
	go func() {
		defer e.syncs.Done()
		if err := call(detached); err != nil {
			e.metrics.IncSyncFailure(op)
			e.log.Error(e.log.WithComponent(detached, "cart"), "background cart sync failed", err)
			e.notifier.Push(detached, notify.Error("cart", warnSyncPending))
			return
		}
		e.metrics.IncSyncSuccess(op)
	}()
}

func (e *Engine) viewLocked() View {
	lines := append([]Line(nil), e.lines...)
	return View{
		Lines:  lines,
		Totals: ComputeTotals(lines, e.remoteTotal, e.pricing),
	}
}

// persistCartLocked writes the cart cache; callers hold e.mu.
func (e *Engine) persistCartLocked(ctx context.Context) (View, error) {
	if err := localstore.SetJSON(ctx, e.store, keyCart, e.lines); err != nil {
		return e.viewLocked(), errors.Wrap(errors.CodeInternal, err, "persisting cart")
	}
	return e.viewLocked(), nil
}

// persistAllLocked writes both the cart cache and the unchecked set.
func (e *Engine) persistAllLocked(ctx context.Context) (View, error) {
	if _, err := e.persistCartLocked(ctx); err != nil {
		return e.viewLocked(), err
	}
	unchecked := make([]Line, 0, len(e.unchecked))
	for _, line := range e.lines {
		if u, ok := e.unchecked[line.Key]; ok {
			unchecked = append(unchecked, u)
		}
	}
	// Unchecked lines the cart no longer shows still persist.
	for key, line := range e.unchecked {
		if !containsKey(e.lines, key) {
			unchecked = append(unchecked, line)
		}
	}
	if err := localstore.SetJSON(ctx, e.store, keyUnchecked, unchecked); err != nil {
		return e.viewLocked(), errors.Wrap(errors.CodeInternal, err, "persisting unchecked set")
	}
	return e.viewLocked(), nil
}

func (e *Engine) readPersisted(ctx context.Context) (local, unchecked []Line, err error) {
	if _, err = localstore.GetJSON(ctx, e.store, keyCart, &local); err != nil {
		return nil, nil, errors.Wrap(errors.CodeInternal, err, "reading cart cache")
	}
	if _, err = localstore.GetJSON(ctx, e.store, keyUnchecked, &unchecked); err != nil {
		return nil, nil, errors.Wrap(errors.CodeInternal, err, "reading unchecked set")
	}
	return local, unchecked, nil
}

func keyed(lines []Line) map[LineKey]Line {
	out := make(map[LineKey]Line, len(lines))
	for _, line := range lines {
		out[line.Key] = line
	}
	return out
}

func containsKey(lines []Line, key LineKey) bool {
	for _, line := range lines {
		if line.Key == key {
			return true
		}
	}
	return false
}

// sizeForWire maps the sentinel back to an empty wire value.
func sizeForWire(key LineKey) string {
	if key.Size == DefaultSize {
		return ""
	}
	return key.Size
}
