package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelift/migrator/internal/database/runs"
	"github.com/storelift/migrator/internal/entities"
	"github.com/storelift/migrator/internal/orchestrator"
)

type fakeRunStore struct {
	runs      map[string]*entities.ImportRun
	created   []*entities.ImportRun
	deleteErr error
	deleted   []string
}

func newFakeRunStore(existing ...*entities.ImportRun) *fakeRunStore {
	store := &fakeRunStore{runs: map[string]*entities.ImportRun{}}
	for _, run := range existing {
		store.runs[run.ID] = run
	}
	return store
}

func (s *fakeRunStore) Create(run *entities.ImportRun) error {
	run.Status = entities.RunStatusPending
	s.created = append(s.created, run)
	s.runs[run.ID] = run
	return nil
}

func (s *fakeRunStore) Get(id string) (*entities.ImportRun, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, runs.ErrRunNotFound
	}
	return run, nil
}

func (s *fakeRunStore) List() ([]entities.ImportRun, error) {
	out := make([]entities.ImportRun, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, *run)
	}
	return out, nil
}

func (s *fakeRunStore) RequestDelete(id string) error {
	if _, ok := s.runs[id]; !ok {
		return runs.ErrRunNotFound
	}
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type fakeRecordStore struct {
	records []entities.MigrationRecord
	counts  map[entities.EntityKind]int
}

func (s *fakeRecordStore) ListByRun(_ string, kind entities.EntityKind) ([]entities.MigrationRecord, error) {
	if kind == "" {
		return s.records, nil
	}
	var filtered []entities.MigrationRecord
	for _, record := range s.records {
		if record.EntityKind == kind {
			filtered = append(filtered, record)
		}
	}
	return filtered, nil
}

func (s *fakeRecordStore) CountsByKind(_ string) (map[entities.EntityKind]int, error) {
	if s.counts == nil {
		return map[entities.EntityKind]int{}, nil
	}
	return s.counts, nil
}

type fakeDispatcher struct {
	dispatched []string
	err        error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, runID string) error {
	d.dispatched = append(d.dispatched, runID)
	return d.err
}

func setupRouter(store *fakeRunStore, records *fakeRecordStore, dispatcher *fakeDispatcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	controller := NewRunController(store, records, dispatcher)

	router := gin.New()
	api := router.Group("/api")
	api.POST("/runs", controller.CreateRun)
	api.GET("/runs", controller.ListRuns)
	api.GET("/runs/:id", controller.GetRun)
	api.GET("/runs/:id/progress", controller.Progress)
	api.POST("/runs/:id/dispatch", controller.DispatchRun)
	api.DELETE("/runs/:id", controller.DeleteRun)
	api.GET("/runs/:id/records", controller.ListRecords)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateRun(t *testing.T) {
	store := newFakeRunStore()
	router := setupRouter(store, &fakeRecordStore{}, &fakeDispatcher{})

	rec := doJSON(t, router, http.MethodPost, "/api/runs", CreateRunRequest{
		RequestedBy:   "ops@example.com",
		SourceAccount: "acme-store",
		CategoryTree:  `[{"id":"c1","name":"Shoes"}]`,
		ImportPrices:  true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created entities.ImportRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, entities.RunStatusPending, created.Status)
	assert.Equal(t, entities.StockPolicyKeepSource, created.StockPolicy,
		"omitted stock policy defaults to keeping source quantities")
	require.Len(t, store.created, 1)
}

func TestCreateRun_Validation(t *testing.T) {
	router := setupRouter(newFakeRunStore(), &fakeRecordStore{}, &fakeDispatcher{})

	t.Run("unknown stock policy", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/runs", CreateRunRequest{
			SourceAccount: "acme-store",
			StockPolicy:   "SOMETHING_ELSE",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing source account", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/runs", CreateRunRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("default source needs no account", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/runs", CreateRunRequest{
			UseDefaultSource: true,
		})
		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}

func TestGetRun_NotFound(t *testing.T) {
	router := setupRouter(newFakeRunStore(), &fakeRecordStore{}, &fakeDispatcher{})
	rec := doJSON(t, router, http.MethodGet, "/api/runs/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProgress(t *testing.T) {
	run := &entities.ImportRun{
		ID:            "run-1",
		Status:        entities.RunStatusRunning,
		CurrentEntity: entities.EntityKindSku,
		SourceCategoriesTotal: 2,
		SourceProductsTotal:   1,
		SourceSkusTotal:       1,
	}
	records := &fakeRecordStore{counts: map[entities.EntityKind]int{
		entities.EntityKindCategory: 2,
		entities.EntityKindProduct:  1,
	}}
	router := setupRouter(newFakeRunStore(run), records, &fakeDispatcher{})

	rec := doJSON(t, router, http.MethodGet, "/api/runs/run-1/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProgressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, entities.RunStatusRunning, resp.Status)
	assert.Equal(t, entities.EntityKindSku, resp.Current)
	assert.Equal(t, 2, resp.Counts[entities.EntityKindCategory])
	assert.Equal(t, 1, resp.Totals[entities.EntityKindSku])
	assert.False(t, resp.Completed, "one sku is still outstanding")
}

func TestProgress_FreshPendingRunNotCompleted(t *testing.T) {
	// All totals are still zero before the pipeline starts; that must
	// not read as a finished run.
	run := &entities.ImportRun{ID: "run-1", Status: entities.RunStatusPending}
	router := setupRouter(newFakeRunStore(run), &fakeRecordStore{}, &fakeDispatcher{})

	rec := doJSON(t, router, http.MethodGet, "/api/runs/run-1/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProgressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Completed)
}

func TestProgress_SuccessfulRunReportsCompleted(t *testing.T) {
	run := &entities.ImportRun{ID: "run-1", Status: entities.RunStatusSuccess, SourceSkusTotal: 1}
	records := &fakeRecordStore{counts: map[entities.EntityKind]int{entities.EntityKindSku: 1}}
	router := setupRouter(newFakeRunStore(run), records, &fakeDispatcher{})

	rec := doJSON(t, router, http.MethodGet, "/api/runs/run-1/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProgressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Completed)
}

func TestProgress_ErroredRunReportsCompleted(t *testing.T) {
	run := &entities.ImportRun{
		ID:              "run-1",
		Status:          entities.RunStatusError,
		ErrorMessage:    "sku create rejected",
		SourceSkusTotal: 1,
	}
	router := setupRouter(newFakeRunStore(run), &fakeRecordStore{}, &fakeDispatcher{})

	rec := doJSON(t, router, http.MethodGet, "/api/runs/run-1/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProgressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Completed)
	assert.Equal(t, "sku create rejected", resp.Error)
}

func TestDispatchRun(t *testing.T) {
	run := &entities.ImportRun{ID: "run-1", Status: entities.RunStatusPending}

	t.Run("accepted", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		router := setupRouter(newFakeRunStore(run), &fakeRecordStore{}, dispatcher)
		rec := doJSON(t, router, http.MethodPost, "/api/runs/run-1/dispatch", nil)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, []string{"run-1"}, dispatcher.dispatched)
	})

	t.Run("another run active", func(t *testing.T) {
		dispatcher := &fakeDispatcher{err: orchestrator.ErrAnotherRunActive}
		router := setupRouter(newFakeRunStore(run), &fakeRecordStore{}, dispatcher)
		rec := doJSON(t, router, http.MethodPost, "/api/runs/run-1/dispatch", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "RUN_ACTIVE", resp.Code)
	})

	t.Run("not dispatchable", func(t *testing.T) {
		dispatcher := &fakeDispatcher{err: orchestrator.ErrRunNotDispatchable}
		router := setupRouter(newFakeRunStore(run), &fakeRecordStore{}, dispatcher)
		rec := doJSON(t, router, http.MethodPost, "/api/runs/run-1/dispatch", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "NOT_DISPATCHABLE", resp.Code)
	})

	t.Run("unknown run", func(t *testing.T) {
		router := setupRouter(newFakeRunStore(), &fakeRecordStore{}, &fakeDispatcher{})
		rec := doJSON(t, router, http.MethodPost, "/api/runs/nope/dispatch", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDeleteRun(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		store := newFakeRunStore(&entities.ImportRun{ID: "run-1", Status: entities.RunStatusSuccess})
		router := setupRouter(store, &fakeRecordStore{}, &fakeDispatcher{})
		rec := doJSON(t, router, http.MethodDelete, "/api/runs/run-1", nil)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, []string{"run-1"}, store.deleted)
	})

	t.Run("running run is rejected", func(t *testing.T) {
		store := newFakeRunStore(&entities.ImportRun{ID: "run-1", Status: entities.RunStatusRunning})
		store.deleteErr = runs.ErrRunActive
		router := setupRouter(store, &fakeRecordStore{}, &fakeDispatcher{})
		rec := doJSON(t, router, http.MethodDelete, "/api/runs/run-1", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "RUN_ACTIVE", resp.Code)
		assert.Empty(t, store.deleted)
	})
}

func TestListRecords_KindFilter(t *testing.T) {
	store := newFakeRunStore(&entities.ImportRun{ID: "run-1"})
	records := &fakeRecordStore{records: []entities.MigrationRecord{
		{RunID: "run-1", EntityKind: entities.EntityKindCategory, SourceID: "c1"},
		{RunID: "run-1", EntityKind: entities.EntityKindSku, SourceID: "s1"},
	}}
	router := setupRouter(store, records, &fakeDispatcher{})

	rec := doJSON(t, router, http.MethodGet, "/api/runs/run-1/records?kind=sku", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []entities.MigrationRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "s1", out[0].SourceID)
}
