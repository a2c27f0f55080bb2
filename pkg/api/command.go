package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dc1-ops/nexus/pkg/alert"
	"github.com/dc1-ops/nexus/pkg/billing"
	"github.com/dc1-ops/nexus/pkg/log"
	"github.com/dc1-ops/nexus/pkg/storage"
	"github.com/dc1-ops/nexus/pkg/types"
)

type commandHandler struct {
	scheduler  JobScheduler
	jobs       storage.JobStore
	heartbeats HeartbeatSource
	network    NetworkSource
	logger     zerolog.Logger
}

func newCommandHandler(scheduler JobScheduler, jobs storage.JobStore, heartbeats HeartbeatSource, network NetworkSource) *commandHandler {
	return &commandHandler{
		scheduler:  scheduler,
		jobs:       jobs,
		heartbeats: heartbeats,
		network:    network,
		logger:     log.WithComponent("command"),
	}
}

type commandResponse struct {
	Status  string            `json:"status"`
	Command types.CommandType `json:"command"`
	JobID   string            `json:"job_id,omitempty"`
	Report  map[string]any    `json:"report,omitempty"`
}

// dispatch handles POST /v1/command
func (h *commandHandler) dispatch(w http.ResponseWriter, r *http.Request) {
	var cmd types.AgentCommand
	if err := decodeBody(w, r, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.logger.Info().
		Str("command", string(cmd.Type)).
		Str("job_id", cmd.JobID).
		Msg("Command received")

	switch cmd.Type {
	case types.CommandStartJob:
		h.startJob(w, cmd)
	case types.CommandStopJob:
		h.stopJob(w, cmd)
	case types.CommandCheckpointNow:
		h.checkpointNow(w, r, cmd)
	case types.CommandStatusReport:
		h.statusReport(w, cmd)
	default:
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("%v: %q", types.ErrUnknownCommand, string(cmd.Type)))
	}
}

func (h *commandHandler) startJob(w http.ResponseWriter, cmd types.AgentCommand) {
	if cmd.JobID == "" || cmd.GPUID == "" {
		writeError(w, http.StatusBadRequest, "start_job requires job_id and gpu_id")
		return
	}

	spec := types.JobSpec{
		JobID:         cmd.JobID,
		GPUID:         cmd.GPUID,
		ContainerID:   cmd.ContainerID,
		SaveIntervalS: cmd.SaveIntervalS,
		RegisteredAt:  time.Now().UTC(),
	}

	// Persist first: a job the registry knows about survives an agent
	// restart even if the scheduler never got to start its loop.
	if err := h.jobs.Put(&spec); err != nil {
		h.logger.Error().Err(err).Str("job_id", cmd.JobID).Msg("Job registry write failed")
		writeError(w, http.StatusInternalServerError, "failed to register job")
		return
	}
	h.scheduler.StartJob(spec)

	writeJSON(w, http.StatusOK, commandResponse{Status: "ok", Command: cmd.Type, JobID: cmd.JobID})
}

func (h *commandHandler) stopJob(w http.ResponseWriter, cmd types.AgentCommand) {
	if cmd.JobID == "" {
		writeError(w, http.StatusBadRequest, "stop_job requires job_id")
		return
	}

	h.scheduler.StopJob(cmd.JobID)
	if err := h.jobs.Delete(cmd.JobID); err != nil {
		h.logger.Warn().Err(err).Str("job_id", cmd.JobID).Msg("Job registry delete failed")
	}

	writeJSON(w, http.StatusOK, commandResponse{Status: "ok", Command: cmd.Type, JobID: cmd.JobID})
}

func (h *commandHandler) checkpointNow(w http.ResponseWriter, r *http.Request, cmd types.AgentCommand) {
	if cmd.JobID == "" {
		writeError(w, http.StatusBadRequest, "checkpoint_now requires job_id")
		return
	}

	if err := h.scheduler.CheckpointNow(r.Context(), cmd.JobID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not scheduled: "+cmd.JobID)
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("checkpoint save failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{Status: "ok", Command: cmd.Type, JobID: cmd.JobID})
}

func (h *commandHandler) statusReport(w http.ResponseWriter, cmd types.AgentCommand) {
	report := map[string]any{
		"agent": alert.SelfSource,
		"ts":    time.Now().UTC(),
	}

	specs := h.scheduler.Scheduled()
	ids := make([]string, 0, len(specs))
	for _, s := range specs {
		ids = append(ids, s.JobID)
	}
	report["scheduled_jobs"] = ids

	if statuses, err := h.heartbeats.Statuses(); err == nil {
		alive := 0
		for _, s := range statuses {
			if s.Alive {
				alive++
			}
		}
		report["peers_alive"] = alive
		report["peers_total"] = len(statuses)
	}

	if ns, err := h.network.Status(); err == nil {
		report["network"] = ns
	}

	if cmd.MTDHalala > 0 {
		provider, site := billing.Split(cmd.MTDHalala)
		report["revenue_split"] = map[string]any{
			"provider_halala": provider,
			"site_halala":     site,
			"provider_sar":    billing.DisplaySAR(provider),
			"site_sar":        billing.DisplaySAR(site),
		}
	}

	writeJSON(w, http.StatusOK, commandResponse{Status: "ok", Command: cmd.Type, Report: report})
}
