package cart

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akenterprises/storefront/internal/catalog"
	"github.com/akenterprises/storefront/pkg/backend"
	"github.com/akenterprises/storefront/pkg/localstore"
	"github.com/akenterprises/storefront/pkg/logger"
	"github.com/akenterprises/storefront/pkg/notify"
)

type upsertCall struct {
	UserID    string
	ProductID int
	Quantity  int
	Price     decimal.Decimal
	Size      string
}

type fakeRemote struct {
	mu        sync.Mutex
	snapshot  backend.CartSnapshot
	fetchErr  error
	upsertErr error
	upserts   []upsertCall
}

func (f *fakeRemote) FetchCart(context.Context, string) (backend.CartSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return backend.CartSnapshot{}, f.fetchErr
	}
	return f.snapshot, nil
}

func (f *fakeRemote) UpsertCartItem(_ context.Context, userID string, productID, quantity int, price decimal.Decimal, size string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, upsertCall{UserID: userID, ProductID: productID, Quantity: quantity, Price: price, Size: size})
	return f.upsertErr
}

func (f *fakeRemote) calls() []upsertCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]upsertCall(nil), f.upserts...)
}

func (f *fakeRemote) setUpsertErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertErr = err
}

type fixture struct {
	engine  *Engine
	remote  *fakeRemote
	store   localstore.Store
	notices *notify.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	remote := &fakeRemote{}
	store := localstore.NewMemory()
	notices := notify.NewBuffer(32)
	engine, err := NewEngine(EngineParams{
		Store:    store,
		Remote:   remote,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Notifier: notices,
		Pricing:  PricingPolicy{PlatformFee: decimal.NewFromInt(23)},
	})
	require.NoError(t, err)
	return &fixture{engine: engine, remote: remote, store: store, notices: notices}
}

func bangle() catalog.Product {
	dp := decimal.NewFromInt(90)
	return catalog.Product{
		ID: 7, Name: "Ruby Bangle",
		Price: decimal.NewFromInt(120), DiscountedPrice: &dp,
		DiscountPercent: decimal.NewFromInt(25),
	}
}

func ring() catalog.Product {
	return catalog.Product{ID: 9, Name: "Gold Ring", Price: decimal.NewFromInt(200)}
}

func lineKeys(lines []Line) []LineKey {
	keys := make([]LineKey, len(lines))
	for i, l := range lines {
		keys[i] = l.Key
	}
	return keys
}

func TestAddLineTwiceMergesIntoOneLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.AddLine(ctx, "", bangle(), "M", 1)
	require.NoError(t, err)
	_, err = f.engine.AddLine(ctx, "", ring(), "", 1)
	require.NoError(t, err)

	before := lineKeys(f.engine.Current().Lines)
	view, err := f.engine.AddLine(ctx, "", bangle(), "M", 1)
	require.NoError(t, err)

	require.Len(t, view.Lines, 2)
	assert.Equal(t, before, lineKeys(view.Lines), "re-add must not reorder")
	assert.Equal(t, 2, view.Lines[0].Quantity)
}

func TestSameProductDifferentSizesAreDistinctLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.AddLine(ctx, "", bangle(), "S", 1)
	require.NoError(t, err)
	view, err := f.engine.AddLine(ctx, "", bangle(), "M", 1)
	require.NoError(t, err)

	require.Len(t, view.Lines, 2)
	seen := map[LineKey]bool{}
	for _, l := range view.Lines {
		assert.False(t, seen[l.Key], "duplicate key %v", l.Key)
		seen[l.Key] = true
	}
}

func TestSizelessProductUsesDefaultSentinel(t *testing.T) {
	f := newFixture(t)
	view, err := f.engine.AddLine(context.Background(), "", ring(), "", 2)
	require.NoError(t, err)
	assert.Equal(t, DefaultSize, view.Lines[0].Key.Size)
}

func TestAddLineSyncsDeltaAndEffectivePrice(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.AddLine(context.Background(), "u-1", bangle(), "M", 2)
	require.NoError(t, err)
	f.engine.Wait()

	calls := f.remote.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "u-1", calls[0].UserID)
	assert.Equal(t, 7, calls[0].ProductID)
	assert.Equal(t, 2, calls[0].Quantity)
	assert.True(t, calls[0].Price.Equal(decimal.NewFromInt(90)), "must post effective price")
	assert.Equal(t, "M", calls[0].Size)
}

func TestAddLineKeepsLocalStateWhenSyncFails(t *testing.T) {
	f := newFixture(t)
	f.remote.setUpsertErr(assert.AnError)

	view, err := f.engine.AddLine(context.Background(), "u-1", bangle(), "M", 1)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	f.engine.Wait()

	assert.Len(t, f.engine.Current().Lines, 1, "local add must survive remote failure")
	notices := f.notices.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, notify.SeverityError, notices[0].Severity)
}

func TestLoadMergesRemoteSelectedWithUncheckedAppended(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.AddLine(ctx, "", bangle(), "M", 1)
	require.NoError(t, err)
	_, err = f.engine.ToggleSelection(ctx, "", NewLineKey(7, "M"))
	require.NoError(t, err)

	// Remote no longer has the deselected line, only a different one.
	f.remote.snapshot = backend.CartSnapshot{Items: []backend.CartItem{
		{ProductID: 9, ItemName: "Gold Ring", Price: decimal.NewFromInt(200), Quantity: 1},
	}}

	view, err := f.engine.Load(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, view.Lines, 2)
	assert.True(t, view.Lines[0].Selected, "remote lines default to selected")
	assert.Equal(t, 9, view.Lines[0].Key.ProductID)
	assert.False(t, view.Lines[1].Selected, "deselected line survives refetch")
	assert.Equal(t, NewLineKey(7, "M"), view.Lines[1].Key)
}

func TestLoadUncheckedWinsWhenRemoteStillHasLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.AddLine(ctx, "", bangle(), "M", 1)
	require.NoError(t, err)
	_, err = f.engine.ToggleSelection(ctx, "", NewLineKey(7, "M"))
	require.NoError(t, err)

	f.remote.snapshot = backend.CartSnapshot{Items: []backend.CartItem{
		{ProductID: 7, Size: "M", ItemName: "Ruby Bangle", Price: decimal.NewFromInt(120), Quantity: 3},
	}}

	view, err := f.engine.Load(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.False(t, view.Lines[0].Selected)
}

func TestLoadRemoteFailureDegradesToLocalWithWarning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.AddLine(ctx, "", bangle(), "M", 1)
	require.NoError(t, err)
	f.remote.fetchErr = assert.AnError

	view, err := f.engine.Load(ctx, "u-1")
	require.NoError(t, err, "remote outage must not fail the load")
	assert.NotEmpty(t, view.Warning)
	require.Len(t, view.Lines, 1)
	assert.True(t, view.Lines[0].Selected)
}

func TestLoadAnonymousMergesCacheAndUnchecked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.AddLine(ctx, "", bangle(), "M", 1)
	require.NoError(t, err)
	_, err = f.engine.AddLine(ctx, "", ring(), "", 1)
	require.NoError(t, err)
	_, err = f.engine.ToggleSelection(ctx, "", NewLineKey(7, "M"))
	require.NoError(t, err)

	f.engine.Reset()
	view, err := f.engine.Load(ctx, "")
	require.NoError(t, err)
	require.Len(t, view.Lines, 2)
	assert.False(t, view.Lines[0].Selected)
	assert.True(t, view.Lines[1].Selected)
}

func TestCorruptPersistedStateSelfHeals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, keyCart, []byte("{not json")))
	require.NoError(t, f.store.Set(ctx, keyUnchecked, []byte("also not json")))

	view, err := f.engine.Load(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
}

func TestToggleDeselectPostsZeroAndPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.AddLine(ctx, "u-1", bangle(), "M", 2)
	require.NoError(t, err)
	f.engine.Wait()

	view, err := f.engine.ToggleSelection(ctx, "u-1", NewLineKey(7, "M"))
	require.NoError(t, err)
	assert.False(t, view.Lines[0].Selected)
	assert.Empty(t, view.Warning)

	calls := f.remote.calls()
	last := calls[len(calls)-1]
	assert.Equal(t, 0, last.Quantity)

	var persisted []Line
	found, err := localstore.GetJSON(ctx, f.store, keyUnchecked, &persisted)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, persisted, 1)
	assert.Equal(t, NewLineKey(7, "M"), persisted[0].Key)
}

func TestToggleDeselectFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.AddLine(ctx, "u-1", bangle(), "M", 2)
	require.NoError(t, err)
	f.engine.Wait()
	f.remote.setUpsertErr(assert.AnError)

	view, err := f.engine.ToggleSelection(ctx, "u-1", NewLineKey(7, "M"))
	require.NoError(t, err)
	assert.True(t, view.Lines[0].Selected, "failed deselect must revert")
	assert.NotEmpty(t, view.Warning)

	var persisted []Line
	_, err = localstore.GetJSON(ctx, f.store, keyUnchecked, &persisted)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestToggleReselectFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.AddLine(ctx, "u-1", bangle(), "M", 2)
	require.NoError(t, err)
	f.engine.Wait()
	_, err = f.engine.ToggleSelection(ctx, "u-1", NewLineKey(7, "M"))
	require.NoError(t, err)

	f.remote.setUpsertErr(assert.AnError)
	view, err := f.engine.ToggleSelection(ctx, "u-1", NewLineKey(7, "M"))
	require.NoError(t, err)
	assert.False(t, view.Lines[0].Selected, "failed reselect must revert to deselected")
}

func TestSelectAllRollsBackWholeBatchOnAnyFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.AddLine(ctx, "u-1", bangle(), "M", 1)
	require.NoError(t, err)
	_, err = f.engine.AddLine(ctx, "u-1", ring(), "", 1)
	require.NoError(t, err)
	f.engine.Wait()
	f.remote.setUpsertErr(assert.AnError)

	view, err := f.engine.SelectAll(ctx, "u-1", false)
	require.NoError(t, err)
	assert.NotEmpty(t, view.Warning)
	for _, line := range view.Lines {
		assert.True(t, line.Selected, "rollback must restore pre-call selection")
	}

	var persisted []Line
	_, err = localstore.GetJSON(ctx, f.store, keyUnchecked, &persisted)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestSelectAllDeselectsEveryLineRemotely(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.AddLine(ctx, "u-1", bangle(), "M", 1)
	require.NoError(t, err)
	_, err = f.engine.AddLine(ctx, "u-1", ring(), "", 2)
	require.NoError(t, err)
	f.engine.Wait()
	before := len(f.remote.calls())

	view, err := f.engine.SelectAll(ctx, "u-1", false)
	require.NoError(t, err)
	assert.Empty(t, view.Warning)
	for _, line := range view.Lines {
		assert.False(t, line.Selected)
	}
	calls := f.remote.calls()[before:]
	require.Len(t, calls, 2)
	for _, c := range calls {
		assert.Equal(t, 0, c.Quantity)
	}
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.AddLine(ctx, "", bangle(), "M", 2)
	require.NoError(t, err)

	view, err := f.engine.SetQuantity(ctx, "", NewLineKey(7, "M"), 0)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
}

func TestRemoveLineStandsDespiteRemoteFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.AddLine(ctx, "u-1", bangle(), "M", 1)
	require.NoError(t, err)
	f.engine.Wait()
	f.remote.setUpsertErr(assert.AnError)

	view, err := f.engine.RemoveLine(ctx, "u-1", NewLineKey(7, "M"))
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	f.engine.Wait()
	assert.Empty(t, f.engine.Current().Lines)

	calls := f.remote.calls()
	assert.Equal(t, 0, calls[len(calls)-1].Quantity)
}

func TestRemoveLinesDropsKeysAndUnchecked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.AddLine(ctx, "u-1", bangle(), "M", 1)
	require.NoError(t, err)
	_, err = f.engine.AddLine(ctx, "u-1", ring(), "", 1)
	require.NoError(t, err)
	_, err = f.engine.ToggleSelection(ctx, "u-1", NewLineKey(7, "M"))
	require.NoError(t, err)

	view, err := f.engine.RemoveLines(ctx, "u-1", []LineKey{NewLineKey(7, "M"), NewLineKey(9, "")})
	require.NoError(t, err)
	assert.Empty(t, view.Lines)

	var persisted []Line
	_, err = localstore.GetJSON(ctx, f.store, keyUnchecked, &persisted)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestRestoreUncheckedPushesQuantitiesAndClears(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.AddLine(ctx, "u-1", bangle(), "M", 3)
	require.NoError(t, err)
	f.engine.Wait()
	_, err = f.engine.ToggleSelection(ctx, "u-1", NewLineKey(7, "M"))
	require.NoError(t, err)
	before := len(f.remote.calls())

	require.NoError(t, f.engine.RestoreUnchecked(ctx, "u-1"))

	calls := f.remote.calls()[before:]
	require.Len(t, calls, 1)
	assert.Equal(t, 3, calls[0].Quantity, "restore must push the stored quantity")

	var persisted []Line
	_, err = localstore.GetJSON(ctx, f.store, keyUnchecked, &persisted)
	require.NoError(t, err)
	assert.Empty(t, persisted)
	assert.True(t, f.engine.Current().Lines[0].Selected)
}

func TestCountSumsQuantities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.AddLine(ctx, "", bangle(), "M", 2)
	require.NoError(t, err)
	_, err = f.engine.AddLine(ctx, "", ring(), "", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, f.engine.Count())
}

func TestRemoteCountPrefersBackend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.AddLine(ctx, "", bangle(), "M", 2)
	require.NoError(t, err)
	f.engine.Wait()

	f.remote.snapshot = backend.CartSnapshot{Items: []backend.CartItem{
		{ProductID: 1, ItemName: "Gold Bangle", Price: decimal.NewFromInt(100), Quantity: 5, Size: "M"},
	}}
	assert.Equal(t, 5, f.engine.RemoteCount(ctx, "user-1"))

	// Anonymous callers and backend outages fall back to the local sum.
	assert.Equal(t, 2, f.engine.RemoteCount(ctx, ""))
	f.remote.fetchErr = assert.AnError
	assert.Equal(t, 2, f.engine.RemoteCount(ctx, "user-1"))
}

func TestClearWipesMemoryAndPersistence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.AddLine(ctx, "", bangle(), "M", 1)
	require.NoError(t, err)
	require.NoError(t, f.engine.Clear(ctx))

	assert.Empty(t, f.engine.Current().Lines)
	view, err := f.engine.Load(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
}
