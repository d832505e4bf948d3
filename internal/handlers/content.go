package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"game-portal/internal/common/errors"
	"game-portal/internal/common/logging"
	"game-portal/internal/storage"
)

// ListPosts returns published posts for the public news page
func (h *Handlers) ListPosts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	posts, err := h.storage.ListPosts(true, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, posts)
}

// GetPost returns a single published post
func (h *Handlers) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	post, err := h.storage.GetPost(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !post.Published {
		h.writeError(w, errors.NotFoundError("post"))
		return
	}
	h.writeJSON(w, http.StatusOK, post)
}

// ListAllPosts returns every post, drafts included. Admin only.
func (h *Handlers) ListAllPosts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	posts, err := h.storage.ListPosts(false, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, posts)
}

// CreatePost creates a news post. Admin only.
func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Title     string `json:"title"`
		Body      string `json:"body"`
		Published bool   `json:"published"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Title == "" || req.Body == "" {
		h.writeError(w, errors.ValidationError("title and body are required"))
		return
	}

	post := &storage.Post{
		Title:     req.Title,
		Body:      req.Body,
		Author:    session.UserID,
		Published: req.Published,
	}
	if err := h.storage.CreatePost(post); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("Post created",
		logging.Int64("post_id", post.ID),
		logging.String("author", session.UserID),
	)
	h.writeJSON(w, http.StatusCreated, post)
}

// UpdatePost edits a news post. Admin only.
func (h *Handlers) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	post, err := h.storage.GetPost(id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		Title     *string `json:"title"`
		Body      *string `json:"body"`
		Published *bool   `json:"published"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Title != nil {
		post.Title = *req.Title
	}
	if req.Body != nil {
		post.Body = *req.Body
	}
	if req.Published != nil {
		post.Published = *req.Published
	}
	if post.Title == "" || post.Body == "" {
		h.writeError(w, errors.ValidationError("title and body are required"))
		return
	}

	if err := h.storage.UpdatePost(post); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, post)
}

// DeletePost removes a news post. Admin only.
func (h *Handlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.storage.DeletePost(id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "post deleted"})
}

func postID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.ValidationError("invalid post id")
	}
	return id, nil
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
