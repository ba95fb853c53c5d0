package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/storelift/migrator/internal/database/runs"
	"github.com/storelift/migrator/internal/entities"
	"github.com/storelift/migrator/internal/orchestrator"
)

// RunStore defines database operations for import runs.
type RunStore interface {
	Create(run *entities.ImportRun) error
	Get(id string) (*entities.ImportRun, error)
	List() ([]entities.ImportRun, error)
	RequestDelete(id string) error
}

// RecordStore defines the ledger reads exposed to clients.
type RecordStore interface {
	ListByRun(runID string, kind entities.EntityKind) ([]entities.MigrationRecord, error)
	CountsByKind(runID string) (map[entities.EntityKind]int, error)
}

// Dispatcher sends a run into execution, either inline through the
// orchestrator or via the background task queue.
type Dispatcher interface {
	Dispatch(ctx context.Context, runID string) error
}

type RunController struct {
	runs       RunStore
	records    RecordStore
	dispatcher Dispatcher
}

func NewRunController(runStore RunStore, recordStore RecordStore, dispatcher Dispatcher) *RunController {
	return &RunController{runs: runStore, records: recordStore, dispatcher: dispatcher}
}

// CreateRunRequest is the body accepted when creating an import run.
type CreateRunRequest struct {
	RequestedBy       string               `json:"requested_by"`
	SourceAccount     string               `json:"source_account"`
	SourceToken       string               `json:"source_token"`
	UseDefaultSource  bool                 `json:"use_default_source"`
	CategoryTree      string               `json:"category_tree"`
	ImportImages      bool                 `json:"import_images"`
	ImportPrices      bool                 `json:"import_prices"`
	StockPolicy       entities.StockPolicy `json:"stock_policy"`
	StockValue        int                  `json:"stock_value"`
	TargetWarehouseID string               `json:"target_warehouse_id"`
}

// CreateRun creates a PENDING run.
// POST /api/runs
func (rc *RunController) CreateRun(c *gin.Context) {
	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	switch req.StockPolicy {
	case "":
		req.StockPolicy = entities.StockPolicyKeepSource
	case entities.StockPolicyKeepSource, entities.StockPolicyUnlimited, entities.StockPolicyToBeDefined:
	default:
		respondBadRequest(c, "unknown stock policy: "+string(req.StockPolicy))
		return
	}
	if !req.UseDefaultSource && req.SourceAccount == "" {
		respondBadRequest(c, "source_account is required unless use_default_source is set")
		return
	}

	run := &entities.ImportRun{
		ID:                uuid.NewString(),
		RequestedBy:       req.RequestedBy,
		SourceAccount:     req.SourceAccount,
		SourceToken:       req.SourceToken,
		UseDefaultSource:  req.UseDefaultSource,
		CategoryTree:      req.CategoryTree,
		ImportImages:      req.ImportImages,
		ImportPrices:      req.ImportPrices,
		StockPolicy:       req.StockPolicy,
		StockValue:        req.StockValue,
		TargetWarehouseID: req.TargetWarehouseID,
	}
	if err := rc.runs.Create(run); err != nil {
		respondInternalError(c, err, "create run")
		return
	}

	c.JSON(http.StatusCreated, run)
}

// ListRuns returns all runs, newest first.
// GET /api/runs
func (rc *RunController) ListRuns(c *gin.Context) {
	allRuns, err := rc.runs.List()
	if err != nil {
		respondInternalError(c, err, "list runs")
		return
	}
	c.JSON(http.StatusOK, allRuns)
}

// GetRun returns one run.
// GET /api/runs/:id
func (rc *RunController) GetRun(c *gin.Context) {
	run, err := rc.runs.Get(c.Param("id"))
	if errors.Is(err, runs.ErrRunNotFound) {
		respondNotFound(c, "run not found")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get run")
		return
	}
	c.JSON(http.StatusOK, run)
}

// ProgressResponse reports how far a run has advanced per entity kind.
type ProgressResponse struct {
	Status    entities.RunStatus          `json:"status"`
	Current   entities.EntityKind         `json:"current_entity,omitempty"`
	Counts    map[entities.EntityKind]int `json:"counts"`
	Totals    map[entities.EntityKind]int `json:"totals"`
	Completed bool                        `json:"completed"`
	Error     string                      `json:"error,omitempty"`
}

// Progress computes processed/total per entity kind.
// GET /api/runs/:id/progress
func (rc *RunController) Progress(c *gin.Context) {
	run, err := rc.runs.Get(c.Param("id"))
	if errors.Is(err, runs.ErrRunNotFound) {
		respondNotFound(c, "run not found")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get run")
		return
	}

	counts, err := rc.records.CountsByKind(run.ID)
	if err != nil {
		respondInternalError(c, err, "count records")
		return
	}

	resp := ProgressResponse{
		Status:  run.Status,
		Current: run.CurrentEntity,
		Counts:  counts,
		Totals:  make(map[entities.EntityKind]int),
		Error:   run.ErrorMessage,
	}

	done := true
	kinds := append([]entities.EntityKind{entities.EntityKindBrand}, entities.MigrationKinds...)
	for _, kind := range kinds {
		total := run.SourceTotal(kind)
		resp.Totals[kind] = total
		if counts[kind] < total {
			done = false
		}
	}
	// A run that never started has all-zero totals; counts matching
	// them means nothing until the pipeline has been entered.
	resp.Completed = run.Terminal() || (run.Status == entities.RunStatusRunning && done)

	c.JSON(http.StatusOK, resp)
}

// DispatchRun sends a run into execution.
// POST /api/runs/:id/dispatch
func (rc *RunController) DispatchRun(c *gin.Context) {
	runID := c.Param("id")
	if _, err := rc.runs.Get(runID); errors.Is(err, runs.ErrRunNotFound) {
		respondNotFound(c, "run not found")
		return
	} else if err != nil {
		respondInternalError(c, err, "get run")
		return
	}

	err := rc.dispatcher.Dispatch(c.Request.Context(), runID)
	if errors.Is(err, orchestrator.ErrAnotherRunActive) {
		respondConflict(c, "another run is active", "RUN_ACTIVE")
		return
	}
	if errors.Is(err, orchestrator.ErrRunNotDispatchable) {
		respondConflict(c, err.Error(), "NOT_DISPATCHABLE")
		return
	}
	if err != nil {
		respondInternalError(c, err, "dispatch run")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "run dispatched"})
}

// DeleteRun marks a run for deletion. Deleting a RUNNING run is
// rejected with a distinct error; the cascade itself happens in the
// recovery scanner.
// DELETE /api/runs/:id
func (rc *RunController) DeleteRun(c *gin.Context) {
	err := rc.runs.RequestDelete(c.Param("id"))
	if errors.Is(err, runs.ErrRunNotFound) {
		respondNotFound(c, "run not found")
		return
	}
	if errors.Is(err, runs.ErrRunActive) {
		respondConflict(c, "run is currently active and cannot be deleted", "RUN_ACTIVE")
		return
	}
	if err != nil {
		respondInternalError(c, err, "delete run")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "run marked for deletion"})
}

// ListRecords returns the migration records of a run, optionally
// filtered by entity kind.
// GET /api/runs/:id/records?kind=product
func (rc *RunController) ListRecords(c *gin.Context) {
	runID := c.Param("id")
	if _, err := rc.runs.Get(runID); errors.Is(err, runs.ErrRunNotFound) {
		respondNotFound(c, "run not found")
		return
	} else if err != nil {
		respondInternalError(c, err, "get run")
		return
	}

	kind := entities.EntityKind(c.Query("kind"))
	records, err := rc.records.ListByRun(runID, kind)
	if err != nil {
		respondInternalError(c, err, "list records")
		return
	}
	c.JSON(http.StatusOK, records)
}
