package documents

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/scribeflow/scribeflow/internal/api"
	"github.com/scribeflow/scribeflow/internal/projects"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	project := projects.GetProjectFromContext(r.Context())
	if project == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	doc, err := h.svc.Create(r.Context(), project.ID, project.OwnerUserID, &req)
	if err != nil {
		slog.Error("creating document", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	project := projects.GetProjectFromContext(r.Context())
	if project == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	params := projects.ParseListParams(r)

	docs, totalCount, err := h.svc.ListByProject(r.Context(), project.ID, params.Page, params.PageSize)
	if err != nil {
		slog.Error("listing documents", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, docs, totalCount, params.Page, params.PageSize)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	doc := h.documentFromRequest(w, r)
	if doc == nil {
		return
	}

	api.JSON(w, http.StatusOK, doc)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	doc := h.documentFromRequest(w, r)
	if doc == nil {
		return
	}

	var req UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	updated, err := h.svc.Update(r.Context(), doc, &req)
	if err != nil {
		slog.Error("updating document", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	doc := h.documentFromRequest(w, r)
	if doc == nil {
		return
	}

	if err := h.svc.Delete(r.Context(), doc.ID); err != nil {
		slog.Error("deleting document", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "document deleted successfully")
}

// documentFromRequest resolves {documentID} and checks it belongs to the
// project already ownership-checked by the project middleware. Writes the
// error response and returns nil when the document cannot be served.
func (h *Handler) documentFromRequest(w http.ResponseWriter, r *http.Request) *Document {
	project := projects.GetProjectFromContext(r.Context())
	if project == nil {
		api.HandleError(w, api.ErrNotFound)
		return nil
	}

	docID, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid document ID"))
		return nil
	}

	doc, err := h.svc.GetByID(r.Context(), docID)
	if err != nil {
		slog.Error("fetching document", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return nil
	}
	if doc == nil || doc.ProjectID != project.ID {
		api.HandleError(w, api.NewNotFoundError("document not found"))
		return nil
	}

	return doc
}
