// ABOUTME: JSON HTTP handlers for the version API
// ABOUTME: Translates Service results and errors into {success, ...} responses

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/2389/sitever/internal/versionstore"
)

// maxRequestBody bounds POST bodies.
const maxRequestBody = 1 << 20

// VersionResponse is the body of GET /api/version.
type VersionResponse struct {
	Success     bool   `json:"success"`
	Version     string `json:"version"`
	ReleaseDate string `json:"releaseDate"`
	Timestamp   string `json:"timestamp"`
}

// CheckResponse is the body of a successful POST /api/version/check.
type CheckResponse struct {
	Success         bool   `json:"success"`
	ClientVersion   string `json:"clientVersion"`
	LatestVersion   string `json:"latestVersion"`
	UpdateAvailable bool   `json:"updateAvailable"`
	Message         string `json:"message"`
}

// ChangelogResponse is the body of GET /api/changelog.
type ChangelogResponse struct {
	Success   bool                          `json:"success"`
	Changelog []versionstore.ChangelogEntry `json:"changelog"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// handleGetVersion handles GET /api/version
func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetVersion(r.Context())
	if err != nil {
		sendJSONError(w, http.StatusInternalServerError, "Could not read version", err.Error())
		return
	}

	sendJSON(w, http.StatusOK, VersionResponse{
		Success:     true,
		Version:     info.Version,
		ReleaseDate: info.ReleaseDate,
		Timestamp:   info.Timestamp.UTC().Format(versionstore.ISOTimeFormat),
	})
}

// handleCheckVersion handles POST /api/version/check
func (s *Server) handleCheckVersion(w http.ResponseWriter, r *http.Request) {
	clientVersion, err := parseCheckRequest(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		sendJSONError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	res, err := s.service.CheckVersion(r.Context(), clientVersion)
	if errors.Is(err, ErrBadRequest) {
		sendJSONError(w, http.StatusBadRequest, "clientVersion is required", "")
		return
	}
	if err != nil {
		sendJSONError(w, http.StatusInternalServerError, "Error checking version", err.Error())
		return
	}

	sendJSON(w, http.StatusOK, CheckResponse{
		Success:         true,
		ClientVersion:   res.ClientVersion,
		LatestVersion:   res.LatestVersion,
		UpdateAvailable: res.UpdateAvailable,
		Message:         res.Message,
	})
}

// handleGetChangelog handles GET /api/changelog
func (s *Server) handleGetChangelog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.GetChangelog(r.Context())
	if err != nil {
		sendJSONError(w, http.StatusInternalServerError, "Could not read changelog", "")
		return
	}

	sendJSON(w, http.StatusOK, ChangelogResponse{Success: true, Changelog: entries})
}

// parseCheckRequest extracts clientVersion from a check body. A missing body
// reads as an empty object; validation of the value is left to the Service.
func parseCheckRequest(r io.Reader) (string, error) {
	var req struct {
		ClientVersion any `json:"clientVersion"`
	}
	if err := json.NewDecoder(r).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return "", errors.New("invalid JSON body")
	}

	switch v := req.ClientVersion.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", errors.New("clientVersion must be a string")
	}
}

func sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func sendJSONError(w http.ResponseWriter, status int, message, detail string) {
	sendJSON(w, status, ErrorResponse{Success: false, Error: message, Message: detail})
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
