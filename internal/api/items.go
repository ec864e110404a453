package api

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/negotiation"
	"github.com/erazemk/najdeno/internal/store"
	"github.com/erazemk/najdeno/internal/vision"
)

// maxImageUpload caps accepted upload bodies at 10 MiB.
const maxImageUpload = 10 << 20

// ItemsHandler handles lost and found item endpoints.
type ItemsHandler struct {
	DB        *sql.DB
	Service   *negotiation.Service
	Describer vision.Describer
}

type createItemRequest struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

type updateItemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// Create handles POST /api/items. Reporting a lost item immediately starts a
// matching run against the reported found items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type != model.TypeLost && req.Type != model.TypeFound {
		jsonError(w, http.StatusBadRequest, "type must be lost or found")
		return
	}
	if req.Title == "" {
		jsonError(w, http.StatusBadRequest, "title required")
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, claims.UserID, req.Type, req.Title, req.Description, req.Location)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	slog.Info("item reported", "item", item.ID, "type", item.Type, "user", claims.Username)

	if item.Type == model.TypeLost {
		go func(id int64) {
			if _, err := h.Service.RunAutoMatching(context.Background(), id); err != nil {
				slog.Warn("matching run failed", "item", id, "error", err)
			}
		}(item.ID)
	}

	jsonResponse(w, http.StatusCreated, item)
}

// List handles GET /api/items. Supports type, status and mine=true filters.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var ownerID int64
	if r.URL.Query().Get("mine") == "true" {
		ownerID = claims.UserID
	}

	items, err := store.ListItems(r.Context(), h.DB,
		r.URL.Query().Get("type"), r.URL.Query().Get("status"), ownerID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// ownedItem loads an item and checks the caller owns it. Writes the error
// response and returns nil when the item cannot be touched.
func (h *ItemsHandler) ownedItem(w http.ResponseWriter, r *http.Request) *model.Item {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return nil
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return nil
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil
	}
	if item.OwnerID != GetClaims(r.Context()).UserID {
		jsonError(w, http.StatusForbidden, "not your item")
		return nil
	}
	return item
}

// Update handles PUT /api/items/{id}. Items locked into a negotiation cannot
// be edited; their text is what the agents argued over.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	item := h.ownedItem(w, r)
	if item == nil {
		return
	}
	if !item.Matchable() {
		jsonError(w, http.StatusConflict, "item is locked by a negotiation")
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		jsonError(w, http.StatusBadRequest, "title required")
		return
	}

	if err := store.UpdateItemFields(r.Context(), h.DB, item.ID, req.Title, req.Description, req.Location); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	updated, err := store.GetItem(r.Context(), h.DB, item.ID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/items/{id}. Refused while any live session
// still holds the item.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item := h.ownedItem(w, r)
	if item == nil {
		return
	}

	live, err := store.CountLiveSessionsForItem(r.Context(), h.DB, item.ID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if live > 0 {
		jsonError(w, http.StatusConflict, "item is part of an ongoing negotiation")
		return
	}

	if err := store.DeleteFailedMatchesForItem(r.Context(), h.DB, item.ID); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	if err := store.DeleteItem(r.Context(), h.DB, item.ID); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	slog.Info("item deleted", "item", item.ID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadImage handles PUT /api/items/{id}/image. The photo is normalized,
// stored, and run through the vision describer so the matcher can use what
// the photo shows.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	item := h.ownedItem(w, r)
	if item == nil {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageUpload))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "failed to read image data")
		return
	}

	processed, mime, err := imaging.Process(data)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, item.ID, processed, mime); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	description, err := h.Describer.Describe(r.Context(), processed, mime)
	if err != nil {
		slog.Warn("image description failed", "item", item.ID, "error", err)
	} else if description != "" {
		if err := store.SetItemAIDescription(r.Context(), h.DB, item.ID, description); err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to store description")
			return
		}
	}

	updated, err := store.GetItem(r.Context(), h.DB, item.ID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "item has no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Error("writing image response failed", "error", err)
	}
}

// Match handles POST /api/items/{id}/match: a manual matching run for a lost
// item, executed synchronously.
func (h *ItemsHandler) Match(w http.ResponseWriter, r *http.Request) {
	item := h.ownedItem(w, r)
	if item == nil {
		return
	}

	session, err := h.Service.RunAutoMatching(r.Context(), item.ID)
	if err != nil {
		serviceError(w, err)
		return
	}
	if session == nil {
		jsonResponse(w, http.StatusOK, map[string]any{"matched": false})
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"matched": true, "session": session})
}
