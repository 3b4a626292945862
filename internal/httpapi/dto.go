package httpapi

import (
	"time"

	"momo/internal/model"
	"momo/internal/schedule"
)

// jobCreateRequest is the request body for POST /api/v1/jobs.
type jobCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Interval    string `json:"interval" binding:"required"`
	Concurrency int    `json:"concurrency" binding:"required,min=1"`
	MaxRunning  int    `json:"maxRunning" binding:"min=0"`
	Immediate   bool   `json:"immediate"`
	HandlerName string `json:"handlerName" binding:"required"`
	Payload     any    `json:"payload,omitempty"`
}

type executionInfoResponse struct {
	LastStarted  *string       `json:"lastStarted,omitempty"`
	LastFinished *string       `json:"lastFinished,omitempty"`
	LastOutcome  model.Outcome `json:"lastOutcome,omitempty"`
	LastError    string        `json:"lastError,omitempty"`
}

type jobResponse struct {
	Name          string                `json:"name"`
	Interval      string                `json:"interval"`
	Concurrency   int                   `json:"concurrency"`
	MaxRunning    int                   `json:"maxRunning"`
	Running       int                   `json:"running"`
	Immediate     bool                  `json:"immediate"`
	HandlerName   string                `json:"handlerName"`
	Started       bool                  `json:"started"`
	ExecutionInfo executionInfoResponse `json:"executionInfo"`
}

type runResultResponse struct {
	Name   string        `json:"name"`
	Status model.Outcome `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toJobResponse(desc schedule.Description) jobResponse {
	info := desc.Job.ExecutionInfo
	resp := jobResponse{
		Name:        desc.Job.Name,
		Interval:    desc.Job.IntervalRaw,
		Concurrency: desc.Job.Concurrency,
		MaxRunning:  desc.Job.MaxRunning,
		Running:     desc.Job.Running,
		Immediate:   desc.Job.Immediate,
		HandlerName: desc.Job.HandlerName,
		Started:     desc.Started,
		ExecutionInfo: executionInfoResponse{
			LastOutcome: info.LastOutcome,
			LastError:   info.LastError,
		},
	}
	if info.LastStarted != nil {
		resp.ExecutionInfo.LastStarted = formatTime(*info.LastStarted)
	}
	if info.LastFinished != nil {
		resp.ExecutionInfo.LastFinished = formatTime(*info.LastFinished)
	}
	return resp
}

func formatTime(t time.Time) *string {
	s := t.Format(time.RFC3339Nano)
	return &s
}
