package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"refdata-backend/application/services"
	"refdata-backend/interfaces/http/rest/middleware"
)

// BookHandler handles reference book HTTP requests
type BookHandler struct {
	books  *services.BookService
	logger *zap.Logger
}

// NewBookHandler creates a new book handler
func NewBookHandler(books *services.BookService, logger *zap.Logger) *BookHandler {
	return &BookHandler{books: books, logger: logger}
}

// moveItemRequest carries both sides of a move: the source view doubles
// as the expected subtree version vector, the target view carries the
// target's observed version
type moveItemRequest struct {
	Source services.ItemView `json:"source"`
	Target services.ItemView `json:"target"`
}

// ListBooks handles GET /books
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.books.AllBooks(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, books)
}

// CreateBook handles POST /books
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req services.CreateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	book, err := h.books.CreateBook(r.Context(), req, actor)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, book)
}

// GetBook handles GET /books/{bookID}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.books.BookByID(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, book)
}

// GetBookByOwner handles GET /aspects/{ownerID}/book
func (h *BookHandler) GetBookByOwner(w http.ResponseWriter, r *http.Request) {
	book, err := h.books.BookByOwner(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, book)
}

// UpdateBook handles PUT /books
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	var req services.RootEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.books.UpdateBook(r.Context(), req, actor); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondMessage(w, h.logger, "Book updated successfully")
}

// DeleteBook handles DELETE /books/{bookID}. The body is the caller's
// last observed view of the book, used as the expected version vector.
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	var book services.BookView
	if err := json.NewDecoder(r.Body).Decode(&book); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	book.ID = chi.URLParam(r, "bookID")
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	force := r.URL.Query().Get("force") == "true"
	if err := h.books.RemoveBook(r.Context(), book, actor, force); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateItem handles POST /items
func (h *BookHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req services.ItemCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	id, err := h.books.AddItem(r.Context(), req, actor)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, map[string]string{"id": id})
}

// GetItem handles GET /items/{itemID}
func (h *BookHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.books.Item(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, item)
}

// GetItemPath handles GET /items/{itemID}/path
func (h *BookHandler) GetItemPath(w http.ResponseWriter, r *http.Request) {
	path, err := h.books.Path(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, path)
}

// UpdateItem handles PUT /items/{itemID}
func (h *BookHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req services.LeafEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.ID = chi.URLParam(r, "itemID")
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	force := r.URL.Query().Get("force") == "true"
	if err := h.books.EditItem(r.Context(), req, actor, force); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondMessage(w, h.logger, "Item updated successfully")
}

// DeleteItem handles DELETE /items/{itemID}. The body is the caller's
// last observed view of the item's subtree.
func (h *BookHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	var item services.ItemView
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	item.ID = chi.URLParam(r, "itemID")
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	force := r.URL.Query().Get("force") == "true"
	if err := h.books.RemoveItem(r.Context(), item, actor, force); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveItem handles POST /items/{itemID}/move
func (h *BookHandler) MoveItem(w http.ResponseWriter, r *http.Request) {
	var req moveItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.Source.ID = chi.URLParam(r, "itemID")
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.books.MoveItem(r.Context(), req.Source, req.Target, actor); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondMessage(w, h.logger, "Item moved successfully")
}
