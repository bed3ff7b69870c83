package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nao1215/homeowners/internal/metrics"
	"github.com/nao1215/homeowners/internal/model"
	"github.com/nao1215/homeowners/internal/pipeline"
	"github.com/nao1215/homeowners/internal/report"
)

// Form fields of an upload.
const (
	FieldFile      = "file"
	FieldHasHeader = "csvHasHeader"
)

// MessageProcessingFailed is the message of a 500 upload response.
const MessageProcessingFailed = "File processing failed"

// allowedExtensions are the accepted upload file extensions.
var allowedExtensions = []string{".csv", ".txt"}

// ValidationResponse is the 422 body: a summary message plus the messages
// of every invalid field.
type ValidationResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// FailureResponse is the 500 body.
type FailureResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)

	file, header, err := r.FormFile(FieldFile)
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			s.validationFailed(w, fmt.Sprintf("The file field must not be greater than %d kilobytes.", maxErr.Limit/1024))
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			s.validationFailed(w, "The file field is required.")
		default:
			s.validationFailed(w, "The file field must be a file.")
		}
		return
	}
	defer file.Close()

	if !slices.Contains(allowedExtensions, strings.ToLower(filepath.Ext(header.Filename))) {
		s.validationFailed(w, "The file field must be a file of type: csv, txt.")
		return
	}

	rep := model.NewImportReport(header.Filename, parseBool(r.FormValue(FieldHasHeader)))

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineOpener(pipeline.ReaderOpener(file)),
		pipeline.WithPipelineConcurrency(s.concurrency),
		pipeline.WithPipelineLogger(s.logger),
	}
	if s.store != nil {
		configOpts = append(configOpts, pipeline.WithPipelineStore(s.store))
	}
	if s.recorder != nil {
		configOpts = append(configOpts, pipeline.WithPipelineRecorder(s.recorder, metrics.ChannelHTTP))
	}

	p := pipeline.DefaultPipeline([]pipeline.Option{pipeline.WithLogger(s.logger)}, configOpts...)

	if err := p.Execute(r.Context(), rep); err != nil {
		s.recorder.ObserveImport(metrics.ChannelHTTP, rep)
		s.logger.Error("upload failed",
			"source", rep.Source,
			"import_id", rep.ID,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, FailureResponse{
			Message: MessageProcessingFailed,
			Error:   err.Error(),
		})
		return
	}

	status := http.StatusOK
	if rep.ErrorCount() > 0 {
		status = http.StatusMultiStatus
	}

	s.logger.Info("upload processed",
		"source", rep.Source,
		"import_id", rep.ID,
		"status", status,
		"processed_count", rep.ProcessedCount(),
		"error_count", rep.ErrorCount(),
	)

	writeJSON(w, status, report.NewResponse(rep.Result))
}

func (s *Server) validationFailed(w http.ResponseWriter, message string) {
	s.logger.Debug("upload rejected", "reason", message)
	writeJSON(w, http.StatusUnprocessableEntity, ValidationResponse{
		Message: message,
		Errors:  map[string][]string{FieldFile: {message}},
	})
}

// parseBool accepts the usual HTML form truthy values: "1", "true", "on"
// and "yes", case-insensitively. Anything else is false.
func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
