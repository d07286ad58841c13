package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"

	"github.com/matzehuels/deptree/pkg/buildinfo"
	"github.com/matzehuels/deptree/pkg/deptree"
	deperrors "github.com/matzehuels/deptree/pkg/errors"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// TreeResponse is the body of a successful resolution.
type TreeResponse struct {
	DependencyTrees []*deptree.Node `json:"dependencyTrees"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// handleDependencyTree handles POST /api/dependency-tree.
//
// The body must be an object whose "packages" field is an array of
// {"name", "version", "isDev"?, "isPeer"?}. Only a missing or non-array
// list fails the request. Elements without a name or version, and packages
// the registry cannot serve, are left out of the result.
func (s *Server) handleDependencyTree(w http.ResponseWriter, r *http.Request) {
	logger := s.opts.Logger.With("request_id", RequestID(r.Context()))

	roots, skipped, err := decodePackages(w, r)
	if skipped > 0 {
		logger.Warn("skipped invalid packages", "count", skipped)
	}
	if err != nil {
		logger.Warn("rejected request", "err", err)
		writeError(w, deperrors.HTTPStatus(deperrors.GetCode(err)), deperrors.UserMessage(err), string(deperrors.GetCode(err)))
		return
	}

	ctx := r.Context()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	trees := s.resolver.Build(ctx, roots)
	if trees == nil {
		trees = []*deptree.Node{}
	}
	logger.Debug("resolved", "roots", len(roots), "trees", len(trees))
	writeJSON(w, http.StatusOK, TreeResponse{DependencyTrees: trees})
}

// decodePackages returns the well-formed roots of the request body and the
// number of elements it had to skip.
func decodePackages(w http.ResponseWriter, r *http.Request) ([]deptree.Request, int, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, 0, deperrors.New(deperrors.ErrCodeInvalidInput, "request body too large")
		}
		return nil, 0, deperrors.Wrap(deperrors.ErrCodeInvalidInput, err, "could not read request body")
	}
	if !gjson.ValidBytes(body) {
		return nil, 0, deperrors.New(deperrors.ErrCodeInvalidInput, "request body must be valid JSON")
	}

	packages := gjson.GetBytes(body, "packages")
	if !packages.Exists() || packages.Type == gjson.Null {
		return nil, 0, deperrors.New(deperrors.ErrCodeInvalidInput, "packages is required")
	}
	if !packages.IsArray() {
		return nil, 0, deperrors.New(deperrors.ErrCodeInvalidInput, "packages must be an array")
	}

	roots := make([]deptree.Request, 0, len(packages.Array()))
	skipped := 0
	packages.ForEach(func(_, el gjson.Result) bool {
		var req deptree.Request
		if !el.IsObject() || json.Unmarshal([]byte(el.Raw), &req) != nil || validate.Struct(req) != nil {
			skipped++
			return true
		}
		roots = append(roots, req)
		return true
	})
	return roots, skipped, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: buildinfo.Version})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error", string(deperrors.ErrCodeInternal))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	data, _ := json.Marshal(ErrorResponse{Error: msg, Code: code})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
