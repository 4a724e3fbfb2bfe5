package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"scrapedesk/pkg/api"
)

func (h *Handlers) getJobResults(ctx context.Context, body json.RawMessage) (any, error) {
	args, err := decode[api.JobResultsArgs](body)
	if err != nil {
		return nil, err
	}
	limit := 0
	if args.Limit != nil {
		limit = *args.Limit
	}
	results, err := h.store.ListResults(ctx, args.JobID, limit)
	if err != nil {
		return nil, err
	}
	return resultsToAPI(results), nil
}

func (h *Handlers) exportJobResults(ctx context.Context, body json.RawMessage) (any, error) {
	args, err := decode[api.ExportArgs](body)
	if err != nil {
		return nil, err
	}
	req := args.Request

	job, err := h.store.GetJob(ctx, req.JobID)
	if err != nil {
		return nil, fmt.Errorf("job %d: %w", req.JobID, err)
	}
	results, err := h.store.ListResultsBetween(ctx, req.JobID, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	return h.exporter.ExportJob(jobToAPI(*job), resultsToAPI(results), req.Format)
}

func (h *Handlers) exportIndividualResult(ctx context.Context, body json.RawMessage) (any, error) {
	args, err := decode[api.IndividualExportArgs](body)
	if err != nil {
		return nil, err
	}
	req := args.Request

	result, err := h.store.GetResult(ctx, req.ResultID)
	if err != nil {
		return nil, fmt.Errorf("result %d: %w", req.ResultID, err)
	}
	job, err := h.store.GetJob(ctx, result.JobID)
	if err != nil {
		return nil, fmt.Errorf("job %d: %w", result.JobID, err)
	}
	return h.exporter.ExportResult(jobToAPI(*job), resultToAPI(*result), req.Format)
}

func (h *Handlers) listExportFiles(ctx context.Context, _ json.RawMessage) (any, error) {
	return h.exporter.List()
}

func (h *Handlers) readExportFile(ctx context.Context, body json.RawMessage) (any, error) {
	args, err := decode[api.PathArgs](body)
	if err != nil {
		return nil, err
	}
	return h.exporter.Read(args.FilePath)
}

func (h *Handlers) deleteExportFile(ctx context.Context, body json.RawMessage) (any, error) {
	args, err := decode[api.PathArgs](body)
	if err != nil {
		return nil, err
	}
	return nil, h.exporter.Delete(args.FilePath)
}

func (h *Handlers) openExportDirectory(ctx context.Context, _ json.RawMessage) (any, error) {
	return nil, h.openDir(h.exporter.Dir())
}
