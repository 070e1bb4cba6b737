package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/colsephiroth/storyreel/common"
)

// Handler exposes the backend over the same paths the real service uses.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, b.logRequests, b.authorize)

	r.Route("/api", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", b.listProjectsHandlerFunc)
			r.Post("/", b.createProjectHandlerFunc)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", b.getProjectHandlerFunc)
				r.Patch("/", b.renameProjectHandlerFunc)
				r.Delete("/", b.deleteProjectHandlerFunc)
				r.Get("/suggest-continuations/", b.suggestHandlerFunc)
			})
		})

		r.Post("/initial_generator/generate/", b.generateHandlerFunc)
		r.Get("/initial_generator/{id}/check-status/", b.checkStatusHandlerFunc)

		r.Get("/generator/", b.listSegmentsHandlerFunc)
		r.Post("/generator/continue/", b.continueHandlerFunc)
		r.Post("/generator/delete-last/", b.deleteLastHandlerFunc)
		r.Post("/generator/assemble/", b.assembleHandlerFunc)
	})

	return r
}

func (b *Backend) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.token != "" && r.Header.Get(common.AuthHeader) != "Token "+b.token {
			writeError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		b.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (b *Backend) listProjectsHandlerFunc(w http.ResponseWriter, r *http.Request) {
	projects := b.Projects()
	if projects == nil {
		projects = []common.ProjectDTO{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (b *Backend) createProjectHandlerFunc(w http.ResponseWriter, r *http.Request) {
	var body common.ProjectCreate
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	writeJSON(w, http.StatusCreated, b.CreateProject(body.Name))
}

func (b *Backend) getProjectHandlerFunc(w http.ResponseWriter, r *http.Request) {
	p, ok := b.Project(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrProjectNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) renameProjectHandlerFunc(w http.ResponseWriter, r *http.Request) {
	var body common.ProjectCreate
	if !decodeBody(w, r, &body) {
		return
	}
	p, err := b.RenameProject(chi.URLParam(r, "id"), body.Name)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) deleteProjectHandlerFunc(w http.ResponseWriter, r *http.Request) {
	if err := b.DeleteProject(chi.URLParam(r, "id")); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.ErrorResponse{Detail: "deleted"})
}

func (b *Backend) suggestHandlerFunc(w http.ResponseWriter, r *http.Request) {
	res, err := b.Suggest(chi.URLParam(r, "id"), r.URL.Query().Get("prompt"))
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (b *Backend) generateHandlerFunc(w http.ResponseWriter, r *http.Request) {
	var body common.InitialGenerationCreate
	if !decodeBody(w, r, &body) {
		return
	}
	if body.ProjectID == "" || strings.TrimSpace(body.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "project_id and prompt are required")
		return
	}
	gen, err := b.StartGeneration(body.ProjectID, body.Prompt)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, gen)
}

func (b *Backend) checkStatusHandlerFunc(w http.ResponseWriter, r *http.Request) {
	gen, ok := b.Generation(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrGenerationNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, gen)
}

func (b *Backend) listSegmentsHandlerFunc(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		writeError(w, http.StatusBadRequest, "project_id is required")
		return
	}
	segs := b.Segments(projectID)
	if segs == nil {
		segs = []common.StorySegment{}
	}
	writeJSON(w, http.StatusOK, segs)
}

func (b *Backend) continueHandlerFunc(w http.ResponseWriter, r *http.Request) {
	var body common.ContinueRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.ProjectID == "" || strings.TrimSpace(body.NextPrompt) == "" {
		writeError(w, http.StatusBadRequest, "project_id and next_prompt are required")
		return
	}
	seg, err := b.Continue(r.Context(), body.ProjectID, body.NextPrompt)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, seg)
}

func (b *Backend) deleteLastHandlerFunc(w http.ResponseWriter, r *http.Request) {
	var body common.ProjectRef
	if !decodeBody(w, r, &body) {
		return
	}
	if err := b.DeleteLast(body.ProjectID); err != nil {
		writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) assembleHandlerFunc(w http.ResponseWriter, r *http.Request) {
	var body common.ProjectRef
	if !decodeBody(w, r, &body) {
		return
	}
	res, err := b.Assemble(body.ProjectID)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, common.ErrorResponse{Error: msg})
}

func writeBackendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProjectNotFound), errors.Is(err, ErrGenerationNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNoBaseVideo), errors.Is(err, ErrNoSegments), errors.Is(err, ErrPromptRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrModelOverload):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
