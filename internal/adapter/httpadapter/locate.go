package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/couchcryptid/student-map/internal/adapter/geojson"
	"github.com/couchcryptid/student-map/internal/adapter/xlsx"
	"github.com/couchcryptid/student-map/internal/domain"
	"github.com/couchcryptid/student-map/internal/locator"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const (
	formatJSON    = "json"
	formatGeoJSON = "geojson"

	multipartMemory = 8 << 20
)

type errorBody struct {
	Error  string                `json:"error"`
	Failed []domain.FailedLookup `json:"failed,omitempty"`
}

// streamEvent is one NDJSON line of a streamed run.
type streamEvent struct {
	Type     string           `json:"type"`
	Progress *domain.Progress `json:"progress,omitempty"`
	Report   *locator.Report  `json:"report,omitempty"`
	GeoJSON  json.RawMessage  `json:"geojson,omitempty"`
	Error    *errorBody       `json:"error,omitempty"`
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = formatJSON
	}
	if format != formatJSON && format != formatGeoJSON {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorBody{Error: "format must be json or geojson"})
		return
	}

	data, status, err := s.readUpload(w, r)
	if err != nil {
		sharedobs.WriteJSON(w, status, errorBody{Error: err.Error()})
		return
	}

	roster, err := s.extractor.Extract(data)
	if err != nil {
		s.logger.Info("rejected upload", "error", err)
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorBody{Error: domain.ErrorMessage(err)})
		return
	}
	s.logger.Debug("roster extracted", "sheet", roster.Layout.Sheet, "rows", len(roster.Records))

	opts := locator.Options{School: q.Get("school")}
	if q.Get("stream") == "1" {
		s.streamLocate(r.Context(), w, roster.Records, opts, format)
		return
	}

	report, err := s.locator.Locate(r.Context(), roster.Records, opts, nil)
	if err != nil {
		status, body := locateError(report, err)
		if status == 0 {
			s.logger.Info("client went away mid-run", "error", err)
			return
		}
		sharedobs.WriteJSON(w, status, body)
		return
	}

	if format == formatGeoJSON {
		s.writeGeoJSON(w, report.Sites)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}

// readUpload returns the bytes of the multipart "file" field, or the status to
// answer with.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, uploadStatus(err), errors.New("invalid upload: " + err.Error())
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, http.StatusBadRequest, errors.New(`missing multipart field "file"`)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, uploadStatus(err), errors.New("read upload: " + err.Error())
	}
	return data, 0, nil
}

func uploadStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// locateError maps a failed run to a response. A zero status means the
// request context ended and nobody is listening.
func locateError(report locator.Report, err error) (int, errorBody) {
	switch {
	case errors.Is(err, domain.ErrZeroResolutions):
		return http.StatusUnprocessableEntity, errorBody{Error: report.Summary, Failed: report.Result.Failed}
	case errors.Is(err, domain.ErrEmptyInput), errors.Is(err, xlsx.ErrMissingColumns):
		return http.StatusBadRequest, errorBody{Error: domain.ErrorMessage(err)}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return 0, errorBody{}
	default:
		return http.StatusInternalServerError, errorBody{Error: err.Error()}
	}
}

func (s *Server) writeGeoJSON(w http.ResponseWriter, sites []domain.AggregatedSite) {
	data, err := geojson.Marshal(sites)
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("write geojson response", "error", err)
	}
}

// streamLocate answers with NDJSON: one progress event per processed record,
// then a final report or error event. The status is always 200 since it is
// sent before the run starts.
func (s *Server) streamLocate(ctx context.Context, w http.ResponseWriter, records []domain.RawRecord, opts locator.Options, format string) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	emit := func(ev streamEvent) {
		if err := enc.Encode(ev); err != nil {
			s.logger.Debug("write stream event", "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	report, err := s.locator.Locate(ctx, records, opts, func(p domain.Progress) {
		emit(streamEvent{Type: "progress", Progress: &p})
	})
	if err != nil {
		status, body := locateError(report, err)
		if status == 0 {
			return
		}
		emit(streamEvent{Type: "error", Error: &body})
		return
	}

	ev := streamEvent{Type: "report", Report: &report}
	if format == formatGeoJSON {
		data, err := geojson.Marshal(report.Sites)
		if err != nil {
			emit(streamEvent{Type: "error", Error: &errorBody{Error: err.Error()}})
			return
		}
		ev.GeoJSON = data
	}
	emit(ev)
}
