package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	service "github.com/okian/scout/internal/app"
	"github.com/okian/scout/internal/domain/snapshot"
)

const maxBodyBytes = 4 << 20

// MatchesHandler serves the match resources.
type MatchesHandler struct {
	deps     MatchDependencies
	streamer FrameStreamer
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies, streamer FrameStreamer) *MatchesHandler {
	return &MatchesHandler{deps: deps, streamer: streamer}
}

// HandleCreate handles POST /matches.
func (h *MatchesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_match"
	var req service.CreateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	v, err := h.deps.Create(r.Context(), req)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// HandleList handles GET /matches.
func (h *MatchesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.List(r.Context()))
}

// HandleGet handles GET /matches/{id}.
func (h *MatchesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, "api.get_match", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleRemove handles DELETE /matches/{id}.
func (h *MatchesHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, "api.remove_match", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCommand handles POST /matches/{id}/commands. A refused command
// answers 409 with the violated precondition.
func (h *MatchesHandler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	const op = "api.command"
	var cmd service.Command
	if err := decode(r, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Execute(r.Context(), r.PathValue("id"), cmd)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleExport handles GET /matches/{id}/snapshot.
func (h *MatchesHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	rec, err := h.deps.Export(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, "api.export", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleImport handles POST /matches/import with a snapshot body.
func (h *MatchesHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	const op = "api.import"
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := snapshot.Unmarshal(body)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	v, err := h.deps.Import(r.Context(), rec)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// HandleSave handles POST /matches/{id}/save[?archive=true].
func (h *MatchesHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	const op = "api.save"
	archive := false
	if s := r.URL.Query().Get("archive"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		archive = b
	}
	res, err := h.deps.Save(r.Context(), r.PathValue("id"), archive)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSaved handles GET /snapshots.
func (h *MatchesHandler) HandleSaved(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Saved(r.Context())
	if err != nil {
		writeFailure(w, "api.saved", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleLoad handles POST /snapshots/{key}/load.
func (h *MatchesHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.Load(r.Context(), r.PathValue("key"))
	if err != nil {
		writeFailure(w, "api.load", err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// HandleStream handles GET /matches/{id}/ws.
func (h *MatchesHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream"
	if h.streamer == nil {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	id := r.PathValue("id")
	f, err := h.deps.Frame(r.Context(), id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	// Serve has written its own response once the upgrade was attempted.
	_ = h.streamer.Serve(w, r, id, &f)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
