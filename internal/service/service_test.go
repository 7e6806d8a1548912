package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setCall records one write into the fake cache.
type setCall struct {
	key   string
	value []ProductDto
	ttl   time.Duration
}

// recordingCache is an in-memory cache that records reads and writes.
type recordingCache struct {
	entries map[string][]ProductDto
	gets    []string
	sets    []setCall
	getErr  error
	setErr  error
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[string][]ProductDto)}
}

func (c *recordingCache) Get(_ context.Context, key string) ([]ProductDto, bool, error) {
	c.gets = append(c.gets, key)
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *recordingCache) Set(_ context.Context, key string, value []ProductDto, ttl time.Duration) error {
	c.sets = append(c.sets, setCall{key: key, value: value, ttl: ttl})
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = value
	return nil
}

// countingStore wraps a ProductStore and counts Find calls.
type countingStore struct {
	store.ProductStore
	finds   int
	filters []store.Filter
}

func (s *countingStore) Find(ctx context.Context, filter store.Filter, order store.SortOrder) ([]store.Product, error) {
	s.finds++
	s.filters = append(s.filters, filter)
	return s.ProductStore.Find(ctx, filter, order)
}

// mockProductStore is a testify mock of store.ProductStore for failure paths.
type mockProductStore struct {
	mock.Mock
}

func (m *mockProductStore) Find(ctx context.Context, filter store.Filter, order store.SortOrder) ([]store.Product, error) {
	args := m.Called(ctx, filter, order)
	products, _ := args.Get(0).([]store.Product)
	return products, args.Error(1)
}

func (m *mockProductStore) Create(ctx context.Context, product *store.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockProductStore) Update(ctx context.Context, filter store.Filter, patch store.Patch) (int64, error) {
	args := m.Called(ctx, filter, patch)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockProductStore) FindOne(ctx context.Context, filter store.Filter) (*store.Product, error) {
	args := m.Called(ctx, filter)
	product, _ := args.Get(0).(*store.Product)
	return product, args.Error(1)
}

func (m *mockProductStore) Delete(ctx context.Context, filter store.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func ptr[T any](v T) *T { return &v }

func newTestService(t *testing.T, st store.ProductStore, c *recordingCache) *Service {
	t.Helper()
	svc, err := NewService(st, c, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return svc
}

func seededStore(t *testing.T, products ...*store.Product) *countingStore {
	t.Helper()
	st := store.NewInMemoryStore()
	for _, p := range products {
		require.NoError(t, st.Create(context.Background(), p))
	}
	return &countingStore{ProductStore: st}
}

func Test_CacheKey(t *testing.T) {
	tests := []struct {
		code, location string
		want           string
	}{
		{code: "P001", location: "Loc1", want: "product_P001_Loc1"},
		{code: "P001", location: "", want: "products"},
		{code: "", location: "Loc1", want: "products"},
		{code: "", location: "", want: "products"},
	}
	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.code+"/"+tt.location, func(t *testing.T) {
			assert.Equal(t, tt.want, CacheKey(tt.code, tt.location))
		})
	}
}

func Test_GetProducts_ScopedMissThenHit(t *testing.T) {
	// given
	st := seededStore(t,
		store.NewProduct("P001", "Desc", "Loc1", 100),
		store.NewProduct("P001", "Desc", "Loc2", 110),
	)
	c := newRecordingCache()
	svc := newTestService(t, st, c)
	ctx := context.Background()

	// when
	first, err := svc.GetProducts(ctx, "P001", "Loc1")
	require.NoError(t, err)
	second, err := svc.GetProducts(ctx, "P001", "Loc1")
	require.NoError(t, err)

	// then
	want := []ProductDto{{ID: 1, ProductCode: "P001", ProductDescription: "Desc", Location: "Loc1", Price: 100}}
	assert.Equal(t, want, first)
	assert.Equal(t, want, second)
	assert.Equal(t, 1, st.finds, "second call must be served from cache")
	require.Len(t, c.sets, 1)
	assert.Equal(t, "product_P001_Loc1", c.sets[0].key)
	assert.Equal(t, 300*time.Second, c.sets[0].ttl)
	assert.Equal(t, want, c.sets[0].value)
	assert.Equal(t, []string{"product_P001_Loc1", "product_P001_Loc1"}, c.gets)
}

func Test_GetProducts_PartialFilterUsesFullListKey(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		location   string
		wantFilter store.Filter
		wantIDs    []int64
	}{
		{name: "code only", code: "P001", wantFilter: store.Filter{ProductCode: "P001"}, wantIDs: []int64{1, 2}},
		{name: "location only", location: "Loc1", wantFilter: store.Filter{Location: "Loc1"}, wantIDs: []int64{1, 3}},
		{name: "no filter", wantFilter: store.Filter{}, wantIDs: []int64{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			st := seededStore(t,
				store.NewProduct("P001", "A", "Loc1", 100),
				store.NewProduct("P001", "B", "Loc2", 110),
				store.NewProduct("P002", "C", "Loc1", 120),
			)
			c := newRecordingCache()
			svc := newTestService(t, st, c)

			// when
			got, err := svc.GetProducts(context.Background(), tt.code, tt.location)

			// then
			require.NoError(t, err)
			ids := make([]int64, len(got))
			for i, p := range got {
				ids[i] = p.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, []store.Filter{tt.wantFilter}, st.filters)
			require.Len(t, c.sets, 1)
			assert.Equal(t, "products", c.sets[0].key)
		})
	}
}

func Test_GetProducts_PartialFilterServedFromSharedKey(t *testing.T) {
	// given
	st := seededStore(t,
		store.NewProduct("P001", "A", "Loc1", 100),
		store.NewProduct("P002", "B", "Loc1", 110),
	)
	c := newRecordingCache()
	svc := newTestService(t, st, c)
	ctx := context.Background()

	// when
	all, err := svc.GetProducts(ctx, "", "")
	require.NoError(t, err)
	byCode, err := svc.GetProducts(ctx, "P002", "")
	require.NoError(t, err)

	// then
	assert.Len(t, all, 2)
	assert.Equal(t, all, byCode, "partial filters share the full-list entry while it is cached")
	assert.Equal(t, 1, st.finds)
}

func Test_GetProducts_EmptyResult(t *testing.T) {
	// given
	st := seededStore(t)
	c := newRecordingCache()
	svc := newTestService(t, st, c)

	// when
	got, err := svc.GetProducts(context.Background(), "P404", "Nowhere")

	// then
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	require.Len(t, c.sets, 1)
	assert.Equal(t, "product_P404_Nowhere", c.sets[0].key)

	// and the cached empty listing is a hit
	_, err = svc.GetProducts(context.Background(), "P404", "Nowhere")
	require.NoError(t, err)
	assert.Equal(t, 1, st.finds)
}

func Test_GetProducts_NilCachedValueIsMiss(t *testing.T) {
	// given
	st := seededStore(t, store.NewProduct("P001", "A", "Loc1", 100))
	c := newRecordingCache()
	c.entries["products"] = nil
	svc := newTestService(t, st, c)

	// when
	got, err := svc.GetProducts(context.Background(), "", "")

	// then
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, st.finds)
}

func Test_GetProducts_Failures(t *testing.T) {
	errCache := errors.New("cache down")
	errStore := errors.New("store down")

	t.Run("cache read error", func(t *testing.T) {
		c := newRecordingCache()
		c.getErr = errCache
		m := new(mockProductStore)
		svc := newTestService(t, m, c)

		got, err := svc.GetProducts(context.Background(), "P001", "Loc1")

		assert.ErrorIs(t, err, errCache)
		assert.Nil(t, got)
		m.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store error is not cached", func(t *testing.T) {
		c := newRecordingCache()
		m := new(mockProductStore)
		m.On("Find", mock.Anything, store.Filter{ProductCode: "P001", Location: "Loc1"}, store.SortAsc).
			Return(nil, errStore)
		svc := newTestService(t, m, c)

		got, err := svc.GetProducts(context.Background(), "P001", "Loc1")

		assert.ErrorIs(t, err, errStore)
		assert.Nil(t, got)
		assert.Empty(t, c.sets)
		m.AssertExpectations(t)
	})

	t.Run("cache write error", func(t *testing.T) {
		c := newRecordingCache()
		c.setErr = errCache
		svc := newTestService(t, seededStore(t), c)

		_, err := svc.GetProducts(context.Background(), "", "")

		assert.ErrorIs(t, err, errCache)
	})
}

func Test_CreateProduct(t *testing.T) {
	// given
	st := seededStore(t, store.NewProduct("P001", "Existing", "Loc1", 100))
	c := newRecordingCache()
	svc := newTestService(t, st, c)

	// when
	got, err := svc.CreateProduct(context.Background(), ProductCreateDto{
		ProductCode:        "P002",
		ProductDescription: "New",
		Location:           "Loc2",
		Price:              ptr(int64(0)),
	})

	// then
	require.NoError(t, err)
	assert.Equal(t, []ProductDto{
		{ID: 2, ProductCode: "P002", ProductDescription: "New", Location: "Loc2", Price: 0},
		{ID: 1, ProductCode: "P001", ProductDescription: "Existing", Location: "Loc1", Price: 100},
	}, got)
	assert.Empty(t, c.gets, "create does not touch the cache")
	assert.Empty(t, c.sets)

	// and an uncached read sees the new row
	listed, err := svc.GetProducts(context.Background(), "P002", "Loc2")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, int64(2), listed[0].ID)
}

func Test_CreateProduct_StoreError(t *testing.T) {
	errStore := errors.New("insert failed")
	m := new(mockProductStore)
	m.On("Create", mock.Anything, mock.AnythingOfType("*store.Product")).Return(errStore)
	svc := newTestService(t, m, newRecordingCache())

	got, err := svc.CreateProduct(context.Background(), ProductCreateDto{ProductCode: "P001", Price: ptr(int64(1))})

	assert.ErrorIs(t, err, errStore)
	assert.Nil(t, got)
	m.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
}

func Test_UpdateProduct(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		patch   ProductUpdateDto
		want    []ProductDto
		wantErr error
	}{
		{
			name:  "location and price on existing pair",
			code:  "P001",
			patch: ProductUpdateDto{Location: ptr("Loc2"), Price: ptr(int64(999))},
			want: []ProductDto{
				{ID: 1, ProductCode: "P001", ProductDescription: "A", Location: "Loc1", Price: 100},
				{ID: 2, ProductCode: "P001", ProductDescription: "B", Location: "Loc2", Price: 999},
				{ID: 3, ProductCode: "P002", ProductDescription: "C", Location: "Loc1", Price: 120},
			},
		},
		{
			name:  "price only patches every location of the code",
			code:  "P001",
			patch: ProductUpdateDto{Price: ptr(int64(5))},
			want: []ProductDto{
				{ID: 1, ProductCode: "P001", ProductDescription: "A", Location: "Loc1", Price: 5},
				{ID: 2, ProductCode: "P001", ProductDescription: "B", Location: "Loc2", Price: 5},
				{ID: 3, ProductCode: "P002", ProductDescription: "C", Location: "Loc1", Price: 120},
			},
		},
		{
			name:    "nonexistent pair",
			code:    "P001",
			patch:   ProductUpdateDto{Location: ptr("Loc9"), Price: ptr(int64(1))},
			wantErr: perrors.ErrProductNotFound,
		},
		{
			name:    "nonexistent code",
			code:    "P404",
			patch:   ProductUpdateDto{Price: ptr(int64(1))},
			wantErr: perrors.ErrProductNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			st := seededStore(t,
				store.NewProduct("P001", "A", "Loc1", 100),
				store.NewProduct("P001", "B", "Loc2", 110),
				store.NewProduct("P002", "C", "Loc1", 120),
			)
			c := newRecordingCache()
			svc := newTestService(t, st, c)

			// when
			got, err := svc.UpdateProduct(context.Background(), tt.code, tt.patch)

			// then
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Empty(t, c.gets)
			assert.Empty(t, c.sets)
		})
	}
}

func Test_UpdateProduct_NotFoundIgnoresAffectedCount(t *testing.T) {
	// given
	m := new(mockProductStore)
	filter := store.Filter{ProductCode: "P001", Location: "Loc1"}
	m.On("Update", mock.Anything, filter, mock.Anything).Return(int64(3), nil)
	m.On("FindOne", mock.Anything, filter).Return(nil, perrors.ErrProductNotFound)
	svc := newTestService(t, m, newRecordingCache())

	// when
	_, err := svc.UpdateProduct(context.Background(), "P001", ProductUpdateDto{Location: ptr("Loc1")})

	// then
	assert.ErrorIs(t, err, perrors.ErrProductNotFound)
	m.AssertExpectations(t)
	m.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
}

func Test_UpdateProduct_StoreErrors(t *testing.T) {
	errStore := errors.New("db down")

	t.Run("update fails", func(t *testing.T) {
		m := new(mockProductStore)
		m.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errStore)
		svc := newTestService(t, m, newRecordingCache())

		_, err := svc.UpdateProduct(context.Background(), "P001", ProductUpdateDto{Price: ptr(int64(1))})

		assert.ErrorIs(t, err, errStore)
		assert.NotErrorIs(t, err, perrors.ErrProductNotFound)
	})

	t.Run("read back fails", func(t *testing.T) {
		m := new(mockProductStore)
		m.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
		m.On("FindOne", mock.Anything, mock.Anything).Return(nil, errStore)
		svc := newTestService(t, m, newRecordingCache())

		_, err := svc.UpdateProduct(context.Background(), "P001", ProductUpdateDto{Price: ptr(int64(1))})

		assert.ErrorIs(t, err, errStore)
	})
}

func Test_DeleteProduct(t *testing.T) {
	// given
	st := seededStore(t,
		store.NewProduct("P001", "A", "Loc1", 100),
		store.NewProduct("P002", "B", "Loc1", 110),
		store.NewProduct("P001", "C", "Loc2", 120),
	)
	c := newRecordingCache()
	svc := newTestService(t, st, c)

	// when
	got, err := svc.DeleteProduct(context.Background(), "P001")

	// then
	require.NoError(t, err)
	assert.Equal(t, []ProductDto{{ID: 2, ProductCode: "P002", ProductDescription: "B", Location: "Loc1", Price: 110}}, got)
	assert.Empty(t, c.gets)
	assert.Empty(t, c.sets)
}

func Test_DeleteProduct_NothingToDelete(t *testing.T) {
	st := seededStore(t, store.NewProduct("P002", "B", "Loc1", 110))
	svc := newTestService(t, st, newRecordingCache())

	got, err := svc.DeleteProduct(context.Background(), "P404")

	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func Test_DeleteProduct_SurvivorIsNotDeleted(t *testing.T) {
	// given
	m := new(mockProductStore)
	m.On("Delete", mock.Anything, store.Filter{ProductCode: "P001"}).Return(int64(0), nil)
	m.On("Find", mock.Anything, store.Filter{}, store.SortAsc).Return([]store.Product{
		{ID: 1, ProductCode: "P001", ProductDescription: "A", Location: "Loc1", Price: 100},
	}, nil)
	svc := newTestService(t, m, newRecordingCache())

	// when
	got, err := svc.DeleteProduct(context.Background(), "P001")

	// then
	assert.ErrorIs(t, err, perrors.ErrProductNotDeleted)
	assert.Nil(t, got)
	m.AssertExpectations(t)
}

func Test_DeleteProduct_StoreError(t *testing.T) {
	errStore := errors.New("db down")
	m := new(mockProductStore)
	m.On("Delete", mock.Anything, mock.Anything).Return(int64(0), errStore)
	svc := newTestService(t, m, newRecordingCache())

	_, err := svc.DeleteProduct(context.Background(), "P001")

	assert.ErrorIs(t, err, errStore)
}

func Test_GetProducts_CountsHitsAndMisses(t *testing.T) {
	// given
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	st := seededStore(t, store.NewProduct("P001", "A", "Loc1", 100))
	svc := newTestService(t, st, newRecordingCache())
	ctx := context.Background()

	// when
	_, err := svc.GetProducts(ctx, "P001", "Loc1")
	require.NoError(t, err)
	_, err = svc.GetProducts(ctx, "P001", "Loc1")
	require.NoError(t, err)
	_, err = svc.GetProducts(ctx, "", "")
	require.NoError(t, err)

	// then
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				scope, _ := dp.Attributes.Value("scope")
				totals[m.Name+"/"+scope.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(1), totals["product_cache_hits_total/scoped"])
	assert.Equal(t, int64(1), totals["product_cache_misses_total/scoped"])
	assert.Equal(t, int64(1), totals["product_cache_misses_total/all"])
}
