package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctrack/internal/domain"
	"doctrack/internal/repository/memory"
	"doctrack/internal/tracker"
)

func historyOf(t *testing.T, doc *domain.Document, name string) domain.HistoryList {
	t.Helper()
	history, err := doc.LoadHistory(name)
	require.NoError(t, err)
	return history
}

func setupStore(t *testing.T, opts ...tracker.ConfigOption) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	opts = append([]tracker.ConfigOption{tracker.WithFieldsToTrack("price", "stock")}, opts...)
	cfg, err := tracker.NewConfig(opts...)
	require.NoError(t, err)
	_, err = tracker.Register(store, "product", cfg)
	require.NoError(t, err)
	return store
}

func createProduct(t *testing.T, store *memory.Store, sku string, price float64) *domain.Document {
	t.Helper()
	doc, err := store.New("product")
	require.NoError(t, err)
	doc.Set("sku", sku)
	doc.Set("price", price)
	require.NoError(t, store.Save(context.Background(), doc))
	return doc
}

func reload(t *testing.T, store *memory.Store, id uuid.UUID) *domain.Document {
	t.Helper()
	doc, err := store.FindByID(context.Background(), "product", id)
	require.NoError(t, err)
	return doc
}

func fields(history domain.HistoryList) []string {
	out := make([]string, len(history))
	for i, e := range history {
		out[i] = e.Field
	}
	return out
}

// --- Save ---

func TestStore_NewDocumentHasEmptyHistory(t *testing.T) {
	store := setupStore(t)

	doc, err := store.New("product")
	require.NoError(t, err)

	got, ok := doc.Get("__updates")
	require.True(t, ok)
	assert.Equal(t, domain.HistoryList{}, got)
	assert.True(t, doc.IsNew())
}

func TestStore_SaveNewRecordsTrackedFields(t *testing.T) {
	store := setupStore(t)

	doc := createProduct(t, store, "A-1", 10)

	assert.False(t, doc.IsNew())
	assert.Equal(t, int64(1), doc.Version)

	stored := reload(t, store, doc.ID)
	history := historyOf(t, stored, "__updates")
	require.Len(t, history, 1)
	assert.Equal(t, "price", history[0].Field)
	assert.Equal(t, 10.0, history[0].ChangedTo)
}

func TestStore_SaveLoadedAppends(t *testing.T) {
	store := setupStore(t)
	doc := createProduct(t, store, "A-1", 10)

	loaded := reload(t, store, doc.ID)
	loaded.Set("stock", 3.0)
	loaded.Set("sku", "A-2")
	require.NoError(t, store.Save(context.Background(), loaded))

	stored := reload(t, store, doc.ID)
	assert.Equal(t, []string{"price", "stock"}, fields(historyOf(t, stored, "__updates")))
	assert.Equal(t, int64(2), stored.Version)
	sku, _ := stored.Get("sku")
	assert.Equal(t, "A-2", sku)
}

func TestStore_SaveUnknownType(t *testing.T) {
	store := setupStore(t)

	err := store.Save(context.Background(), domain.NewDocument("invoice"))
	assert.ErrorIs(t, err, domain.ErrUnknownDocumentType)
}

func TestStore_SaveDeleted(t *testing.T) {
	store := setupStore(t)
	doc := createProduct(t, store, "A-1", 10)
	loaded := reload(t, store, doc.ID)
	require.NoError(t, store.Delete(context.Background(), "product", doc.ID))

	loaded.Set("price", 11.0)
	assert.ErrorIs(t, store.Save(context.Background(), loaded), domain.ErrDocumentNotFound)
}

// --- Query-based updates ---

func TestStore_UpdateOneRecordsAndApplies(t *testing.T) {
	store := setupStore(t)
	doc := createProduct(t, store, "A-1", 10)

	res, err := store.UpdateOne(context.Background(), "product",
		domain.Query{"sku": "A-1"}, domain.NewUpdate("stock", 5.0, "name", "box", "price", 12.0))

	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Matched)
	assert.Equal(t, int64(1), res.Modified)

	stored := reload(t, store, doc.ID)
	assert.Equal(t, []string{"price", "stock", "price"}, fields(historyOf(t, stored, "__updates")))
	price, _ := stored.Get("price")
	assert.Equal(t, 12.0, price)
}

func TestStore_SingleDocumentOpsTouchFirstMatchOnly(t *testing.T) {
	store := setupStore(t)
	first := createProduct(t, store, "A-1", 10)
	second := createProduct(t, store, "A-1", 20)

	_, err := store.Update(context.Background(), "product",
		domain.Query{"sku": "A-1"}, domain.NewUpdate("price", 30.0))
	require.NoError(t, err)

	assert.Len(t, historyOf(t, reload(t, store, first.ID), "__updates"), 2)
	assert.Len(t, historyOf(t, reload(t, store, second.ID), "__updates"), 1)
	price, _ := reload(t, store, second.ID).Get("price")
	assert.Equal(t, 20.0, price)
}

func TestStore_UpdateManyRecordsOnEveryMatch(t *testing.T) {
	store := setupStore(t)
	a := createProduct(t, store, "A-1", 10)
	b := createProduct(t, store, "A-1", 20)
	other := createProduct(t, store, "B-1", 30)

	res, err := store.UpdateMany(context.Background(), "product",
		domain.Query{"sku": "A-1"}, domain.NewUpdate("stock", 0.0))

	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Matched)
	for _, id := range []uuid.UUID{a.ID, b.ID} {
		history := historyOf(t, reload(t, store, id), "__updates")
		require.Len(t, history, 2)
		assert.Equal(t, domain.HistoryEntry{Field: "stock", ChangedTo: 0.0, At: history[1].At}, history[1])
	}
	assert.Len(t, historyOf(t, reload(t, store, other.ID), "__updates"), 1)
}

func TestStore_FindOneAndUpdateReturnsUpdated(t *testing.T) {
	store := setupStore(t)
	doc := createProduct(t, store, "A-1", 10)

	updated, err := store.FindOneAndUpdate(context.Background(), "product",
		domain.ByID(doc.ID), domain.NewUpdate("price", 11.0))

	require.NoError(t, err)
	price, _ := updated.Get("price")
	assert.Equal(t, 11.0, price)
	assert.Equal(t, []string{"price", "price"}, fields(historyOf(t, updated, "__updates")))
	assert.Greater(t, updated.Version, doc.Version)
}

func TestStore_FindOneAndUpdateNoMatch(t *testing.T) {
	store := setupStore(t)

	_, err := store.FindOneAndUpdate(context.Background(), "product",
		domain.Query{"sku": "missing"}, domain.NewUpdate("price", 1.0))

	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestStore_UpdateNoMatch(t *testing.T) {
	store := setupStore(t)
	createProduct(t, store, "A-1", 10)

	res, err := store.UpdateOne(context.Background(), "product",
		domain.Query{"sku": "missing"}, domain.NewUpdate("price", 1.0))

	require.NoError(t, err)
	assert.Zero(t, res.Matched)
	assert.Zero(t, res.Modified)
}

func TestStore_UntrackedUpdateLeavesHistory(t *testing.T) {
	store := setupStore(t)
	doc := createProduct(t, store, "A-1", 10)

	_, err := store.UpdateOne(context.Background(), "product",
		domain.ByID(doc.ID), domain.NewUpdate("name", "crate"))
	require.NoError(t, err)

	stored := reload(t, store, doc.ID)
	assert.Len(t, historyOf(t, stored, "__updates"), 1)
	assert.Equal(t, int64(2), stored.Version)
}

func TestStore_EmptyUpdateCountsOnly(t *testing.T) {
	store := setupStore(t)
	doc := createProduct(t, store, "A-1", 10)

	res, err := store.UpdateMany(context.Background(), "product",
		domain.Query{"sku": "A-1"}, domain.NewUpdate())

	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Matched)
	assert.Zero(t, res.Modified)
	assert.Equal(t, int64(1), reload(t, store, doc.ID).Version)
}

func TestStore_InvalidIDQuery(t *testing.T) {
	store := setupStore(t)

	_, err := store.UpdateOne(context.Background(), "product",
		domain.Query{"_id": "nope"}, domain.NewUpdate("price", 1.0))

	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

// --- Retention ---

func TestStore_DefaultLimitKeepsNewest(t *testing.T) {
	store := setupStore(t)
	doc := createProduct(t, store, "A-1", 0)

	for i := 1; i <= 35; i++ {
		_, err := store.UpdateOne(context.Background(), "product",
			domain.ByID(doc.ID), domain.NewUpdate("price", float64(i)))
		require.NoError(t, err)
	}

	history := historyOf(t, reload(t, store, doc.ID), "__updates")
	require.Len(t, history, tracker.DefaultLimit)
	assert.Equal(t, 6.0, history[0].ChangedTo)
	assert.Equal(t, 35.0, history[len(history)-1].ChangedTo)
}

func TestStore_CustomLimit(t *testing.T) {
	store := setupStore(t, tracker.WithLimit(50))
	doc := createProduct(t, store, "A-1", 0)

	for i := 1; i <= 60; i++ {
		loaded := reload(t, store, doc.ID)
		loaded.Set("price", float64(i))
		require.NoError(t, store.Save(context.Background(), loaded))
	}

	history := historyOf(t, reload(t, store, doc.ID), "__updates")
	require.Len(t, history, 50)
	assert.Equal(t, 11.0, history[0].ChangedTo)
	assert.Equal(t, 60.0, history[49].ChangedTo)
}

func TestStore_ZeroLimitKeepsNothing(t *testing.T) {
	store := setupStore(t, tracker.WithLimit(0))
	doc := createProduct(t, store, "A-1", 1)

	_, err := store.UpdateOne(context.Background(), "product",
		domain.ByID(doc.ID), domain.NewUpdate("price", 2.0))
	require.NoError(t, err)

	assert.Empty(t, historyOf(t, reload(t, store, doc.ID), "__updates"))
}

func TestStore_CustomHistoryName(t *testing.T) {
	store := setupStore(t, tracker.WithName("changes"))
	doc := createProduct(t, store, "A-1", 1)

	stored := reload(t, store, doc.ID)
	assert.Len(t, historyOf(t, stored, "changes"), 1)
	_, hasDefault := stored.Get("__updates")
	assert.False(t, hasDefault)
}

// --- Concurrency ---

func TestStore_ConcurrentUpdatesKeepEveryEntry(t *testing.T) {
	store := setupStore(t)
	doc := createProduct(t, store, "A-1", 0)

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.UpdateOne(context.Background(), "product",
				domain.ByID(doc.ID), domain.NewUpdate("stock", float64(i)))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	history := historyOf(t, reload(t, store, doc.ID), "__updates")
	assert.Len(t, history, writers+1)
}

func TestStore_MultipleTypesAreIndependent(t *testing.T) {
	store := setupStore(t)
	cfg, err := tracker.NewConfig(tracker.WithFieldsToTrack("status"), tracker.WithLimit(2))
	require.NoError(t, err)
	_, err = tracker.Register(store, "order", cfg)
	require.NoError(t, err)

	order, err := store.New("order")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		order.Set("status", fmt.Sprintf("s%d", i))
		require.NoError(t, store.Save(context.Background(), order))
	}
	createProduct(t, store, "A-1", 1)

	stored, err := store.FindByID(context.Background(), "order", order.ID)
	require.NoError(t, err)
	assert.Len(t, historyOf(t, stored, "__updates"), 2)
	assert.Equal(t, []string{"order", "product"}, store.Types())

	_, err = store.FindByID(context.Background(), "product", order.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

// --- Delete and lookups ---

func TestStore_Delete(t *testing.T) {
	store := setupStore(t)
	doc := createProduct(t, store, "A-1", 1)

	require.NoError(t, store.Delete(context.Background(), "product", doc.ID))

	_, err := store.FindByID(context.Background(), "product", doc.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	assert.ErrorIs(t, store.Delete(context.Background(), "product", doc.ID), domain.ErrDocumentNotFound)
}

func TestStore_FindReturnsCopies(t *testing.T) {
	store := setupStore(t)
	doc := createProduct(t, store, "A-1", 1)

	found, err := store.Find(context.Background(), "product", domain.Query{"sku": "A-1"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	found[0].Set("price", 99.0)

	price, _ := reload(t, store, doc.ID).Get("price")
	assert.Equal(t, 1.0, price)
}

func TestStore_CancelledContext(t *testing.T) {
	store := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.UpdateOne(ctx, "product", domain.Query{}, domain.NewUpdate("price", 1.0))
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Ping(ctx), context.Canceled)
}
