// Package http provides http transport for backfill submissions
package http

import (
	stdhttp "net/http"

	"github.com/google/uuid"

	"threadmirror/internal/modkit/httpkit"
	perr "threadmirror/internal/platform/errors"
	"threadmirror/internal/services/api/backfill/domain"
	qdomain "threadmirror/internal/services/queue/domain"
)

// Register mounts backfill endpoints on the given router
func Register(r httpkit.Router, submitter qdomain.SubmitterPort, status qdomain.StatusPort) {
	h := &handlers{submitter: submitter, status: status}

	httpkit.PostJSON[domain.SubmitInput](r, "/", h.submit)
	httpkit.Get(r, "/{jobId}", h.get)
}

type handlers struct {
	submitter qdomain.SubmitterPort
	status    qdomain.StatusPort
}

func (h *handlers) submit(r *stdhttp.Request, in domain.SubmitInput) (any, error) {
	job, err := h.submitter.Submit(r.Context(), in.GuildID, in.ForumChannelID)
	if err != nil {
		return nil, err
	}
	return httpkit.Created(domain.SubmitResult{JobID: job.ID.String()}), nil
}

func (h *handlers) get(r *stdhttp.Request) (any, error) {
	raw := httpkit.Param(r, "jobId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, perr.InvalidArgf("jobId %q is not a valid id", raw)
	}
	job, err := h.status.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return domain.StatusResult{
		ID:       job.ID.String(),
		State:    string(job.State),
		Progress: job.Progress,
		Error:    job.Error,
	}, nil
}
