package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"school-counseling-backend/internal/search"
	"school-counseling-backend/internal/storage"
)

// minSearchQueryRunes is the shortest accepted semantic search query.
const minSearchQueryRunes = 3

// articleCard is the list/search representation: card fields without the body.
type articleCard struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	Excerpt  string   `json:"excerpt"`
	Tags     []string `json:"tags"`
	ReadTime int16    `json:"read_time"`
}

type articleDetail struct {
	articleCard
	Text string `json:"text"`
}

func cardFromPost(p storage.Post) articleCard {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return articleCard{
		ID:       p.ID,
		Title:    p.Title,
		Excerpt:  p.Excerpt,
		Tags:     tags,
		ReadTime: p.ReadTimeMinutes,
	}
}

func detailFromPost(p storage.Post) articleDetail {
	return articleDetail{articleCard: cardFromPost(p), Text: p.Body}
}

// requirePsychologist applies the write-for-psychologists rule on the
// article catalog; reads stay open to everyone.
func (h *handler) requirePsychologist(w http.ResponseWriter, r *http.Request) bool {
	p, ok := principalFromContext(r.Context())
	if !ok {
		http.Error(w, "Missing credentials", http.StatusUnauthorized)
		return false
	}
	if !p.IsPsychologist {
		http.Error(w, "Only psychologists can manage articles", http.StatusForbidden)
		return false
	}
	return true
}

// listArticles handles HTTP requests on "/articles/" endpoint
func (h *handler) listArticles(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.Posts(r.Context())
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	cards := make([]articleCard, 0, len(posts))
	for _, p := range posts {
		cards = append(cards, cardFromPost(p))
	}

	h.respondJSON(w, http.StatusOK, cards)
}

// getArticle handles HTTP requests on "/articles/{id}" endpoint
func (h *handler) getArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(r)
	if !ok {
		http.Error(w, "Path parameter \"id\" must be a valid post id greater than zero", http.StatusBadRequest)
		return
	}

	post, err := h.store.PostByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrPostNotFound) {
			http.Error(w, "Post does not exist", http.StatusNotFound)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, detailFromPost(post))
}

// parsePostInput reads the writable article fields from the request body
func (h *handler) parsePostInput(w http.ResponseWriter, r *http.Request) (storage.PostInput, bool) {
	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.articlePool.Get()
	defer h.parsers.articlePool.Put(parser)
	v, _ := parser.ParseBytes(body)

	in := storage.PostInput{
		Title:           string(v.GetStringBytes("title")),
		Excerpt:         string(v.GetStringBytes("excerpt")),
		Body:            string(v.GetStringBytes("text")),
		ReadTimeMinutes: 5,
		TagsInput:       string(v.GetStringBytes("tags_input")),
	}

	for _, field := range []struct{ name, value string }{
		{"title", in.Title},
		{"excerpt", in.Excerpt},
		{"text", in.Body},
	} {
		if len(field.value) == 0 {
			http.Error(w, "Field \""+field.name+"\" must be a string and have non-zero length", http.StatusBadRequest)
			return storage.PostInput{}, false
		}
	}

	if rt := v.Get("read_time"); rt != nil {
		n, err := rt.Int()
		if err != nil || n < 1 {
			http.Error(w, "Field \"read_time\" must be a positive integer", http.StatusBadRequest)
			return storage.PostInput{}, false
		}
		in.ReadTimeMinutes = int16(n)
	}

	return in, true
}

// createArticle handles HTTP requests on "POST /articles/" endpoint
func (h *handler) createArticle(w http.ResponseWriter, r *http.Request) {
	if !h.requirePsychologist(w, r) {
		return
	}

	in, ok := h.parsePostInput(w, r)
	if !ok {
		return
	}

	post, err := h.store.CreatePost(r.Context(), in)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusCreated, detailFromPost(post))
}

// updateArticle handles HTTP requests on "PUT /articles/{id}" endpoint
func (h *handler) updateArticle(w http.ResponseWriter, r *http.Request) {
	if !h.requirePsychologist(w, r) {
		return
	}

	id, ok := idFromPath(r)
	if !ok {
		http.Error(w, "Path parameter \"id\" must be a valid post id greater than zero", http.StatusBadRequest)
		return
	}

	in, ok := h.parsePostInput(w, r)
	if !ok {
		return
	}

	post, err := h.store.UpdatePost(r.Context(), id, in)
	if err != nil {
		if errors.Is(err, storage.ErrPostNotFound) {
			http.Error(w, "Post does not exist", http.StatusNotFound)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, detailFromPost(post))
}

// deleteArticle handles HTTP requests on "DELETE /articles/{id}" endpoint
func (h *handler) deleteArticle(w http.ResponseWriter, r *http.Request) {
	if !h.requirePsychologist(w, r) {
		return
	}

	id, ok := idFromPath(r)
	if !ok {
		http.Error(w, "Path parameter \"id\" must be a valid post id greater than zero", http.StatusBadRequest)
		return
	}

	if err := h.store.DeletePost(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrPostNotFound) {
			http.Error(w, "Post does not exist", http.StatusNotFound)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// aiSearch handles HTTP requests on "/articles/ai-search" endpoint.
// Embedding failures degrade to an empty 200 list so a broken model never
// takes the endpoint down.
func (h *handler) aiSearch(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.searchPool.Get()
	defer h.parsers.searchPool.Put(parser)
	v, _ := parser.ParseBytes(body)

	query := strings.TrimSpace(string(v.GetStringBytes("query")))
	if utf8.RuneCountInString(query) < minSearchQueryRunes {
		http.Error(w, "Query is too short", http.StatusBadRequest)
		return
	}

	empty := []articleCard{}

	if h.searcher == nil {
		h.respondJSON(w, http.StatusOK, empty)
		return
	}

	posts, err := h.store.Posts(r.Context())
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	docs := make([]search.Document, 0, len(posts))
	byID := make(map[int64]storage.Post, len(posts))
	for _, p := range posts {
		docs = append(docs, search.Document{ID: p.ID, Text: p.Title + ". " + p.Excerpt})
		byID[p.ID] = p
	}

	ids, err := h.searcher.Search(r.Context(), query, docs)
	if err != nil {
		h.logger.Errorf("semantic search failed: %v", err)
		h.respondJSON(w, http.StatusOK, empty)
		return
	}

	cards := make([]articleCard, 0, len(ids))
	for _, id := range ids {
		cards = append(cards, cardFromPost(byID[id]))
	}

	h.respondJSON(w, http.StatusOK, cards)
}
