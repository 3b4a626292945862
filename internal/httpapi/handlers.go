package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"momo/internal/model"
	"momo/internal/schedule"
)

// JobsHandler forwards HTTP requests to a Schedule, per §6's public
// API surface. It registers handlers, not business logic: validation
// of interval parseability and concurrency/maxRunning happens in
// Schedule.DefineJob, and HandlerName resolution to an actual
// callable happens in the registry this handler was built with.
type JobsHandler struct {
	log      *zap.Logger
	sched    *schedule.Schedule
	registry *HandlerRegistry
}

func NewJobsHandler(log *zap.Logger, sched *schedule.Schedule, registry *HandlerRegistry) *JobsHandler {
	return &JobsHandler{log: log, sched: sched, registry: registry}
}

func (h *JobsHandler) CreateJob(c *gin.Context) {
	var req jobCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeValidationError(c, err)
		return
	}

	handler, ok := h.registry.Get(req.HandlerName)
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "unknown handlerName: " + req.HandlerName})
		return
	}

	err := h.sched.DefineJob(c.Request.Context(), schedule.Definition{
		Name:        req.Name,
		IntervalRaw: req.Interval,
		Concurrency: req.Concurrency,
		MaxRunning:  req.MaxRunning,
		Immediate:   req.Immediate,
		HandlerName: req.HandlerName,
		Payload:     req.Payload,
		Handler:     handler,
	})
	if err != nil {
		h.writeDefineError(c, err)
		return
	}

	desc, err := h.sched.Get(c.Request.Context(), req.Name)
	if err != nil {
		h.writeInternalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toJobResponse(desc))
}

func (h *JobsHandler) ListJobs(c *gin.Context) {
	descs, err := h.sched.List(c.Request.Context())
	if err != nil {
		h.writeInternalError(c, err)
		return
	}

	out := make([]jobResponse, 0, len(descs))
	for _, desc := range descs {
		out = append(out, toJobResponse(desc))
	}
	c.JSON(http.StatusOK, out)
}

func (h *JobsHandler) GetJob(c *gin.Context) {
	name := c.Param("name")
	desc, err := h.sched.Get(c.Request.Context(), name)
	if err != nil {
		h.writeJobLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(desc))
}

func (h *JobsHandler) DeleteJob(c *gin.Context) {
	name := c.Param("name")
	if err := h.sched.RemoveJob(c.Request.Context(), name); err != nil {
		h.writeJobLookupError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *JobsHandler) StartJob(c *gin.Context) {
	name := c.Param("name")
	if err := h.sched.Start(c.Request.Context(), name); err != nil {
		h.writeJobLookupError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *JobsHandler) StopJob(c *gin.Context) {
	name := c.Param("name")
	if err := h.sched.Stop(name); err != nil {
		h.writeJobLookupError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *JobsHandler) StartAllJobs(c *gin.Context) {
	h.sched.StartAll(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (h *JobsHandler) StopAllJobs(c *gin.Context) {
	h.sched.StopAll()
	c.Status(http.StatusNoContent)
}

func (h *JobsHandler) RunJob(c *gin.Context) {
	name := c.Param("name")
	outcome, err := h.sched.Run(c.Request.Context(), name)
	if err != nil {
		h.writeInternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, runResultResponse{Name: name, Status: outcome})
}

func (h *JobsHandler) writeValidationError(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation error: " + ve.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func (h *JobsHandler) writeDefineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrNonParsableInterval),
		errors.Is(err, model.ErrInvalidConcurrency),
		errors.Is(err, model.ErrInvalidMaxRunning):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		h.writeInternalError(c, err)
	}
}

func (h *JobsHandler) writeJobLookupError(c *gin.Context, err error) {
	if errors.Is(err, model.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	h.writeInternalError(c, err)
}

func (h *JobsHandler) writeInternalError(c *gin.Context, err error) {
	h.log.Error("unexpected error serving request", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
