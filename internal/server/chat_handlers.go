package server

import (
	"errors"
	"io"
	"net/http"

	"school-counseling-backend/internal/storage"
)

// initiateChat handles HTTP requests on "/chats/initiate" endpoint
func (h *handler) initiateChat(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		http.Error(w, "Missing credentials", http.StatusUnauthorized)
		return
	}

	if p.IsPsychologist {
		http.Error(w, "Psychologists cannot initiate chats", http.StatusForbidden)
		return
	}

	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.initiatePool.Get()
	defer h.parsers.initiatePool.Put(parser)
	v, _ := parser.ParseBytes(body)

	content := string(v.GetStringBytes("content"))
	if len(content) == 0 {
		http.Error(w, "Field \"content\" must be a string and have non-zero length", http.StatusBadRequest)
		return
	}

	if h.filter.Rejected(content) {
		http.Error(w, "Content rejected", http.StatusBadRequest)
		return
	}

	chat, err := h.store.InitiateChat(r.Context(), p.ID, content)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrActiveChatExists):
			http.Error(w, "You already have an active chat", http.StatusConflict)
		case errors.Is(err, storage.ErrNoPsychologist):
			http.Error(w, "No psychologists are available right now", http.StatusServiceUnavailable)
		default:
			h.logger.Error(err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.respondJSON(w, http.StatusCreated, chat)
}

// listChats handles HTTP requests on "/chats/" endpoint.
// Psychologists see every chat assigned to them, students their active one.
func (h *handler) listChats(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		http.Error(w, "Missing credentials", http.StatusUnauthorized)
		return
	}

	var (
		chats []storage.Chat
		err   error
	)
	if p.IsPsychologist {
		chats, err = h.store.ChatsByPsychologist(r.Context(), p.ID)
	} else {
		chats, err = h.store.ActiveChatsByStudent(r.Context(), p.ID)
	}
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if chats == nil {
		chats = []storage.Chat{}
	}

	h.respondJSON(w, http.StatusOK, chats)
}

// authorizedChat loads the chat from the path id and applies the access
// rule, writing the error response itself when access is denied.
func (h *handler) authorizedChat(w http.ResponseWriter, r *http.Request) (storage.Chat, principal, bool) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		http.Error(w, "Missing credentials", http.StatusUnauthorized)
		return storage.Chat{}, principal{}, false
	}

	id, ok := idFromPath(r)
	if !ok {
		http.Error(w, "Path parameter \"id\" must be a valid chat id greater than zero", http.StatusBadRequest)
		return storage.Chat{}, principal{}, false
	}

	chat, err := h.store.ChatByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrChatNotFound) {
			http.Error(w, "Chat does not exist", http.StatusNotFound)
			return storage.Chat{}, principal{}, false
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return storage.Chat{}, principal{}, false
	}

	if !chatAccessAllowed(p, chat) {
		http.Error(w, "You are not a party of this chat", http.StatusForbidden)
		return storage.Chat{}, principal{}, false
	}

	return chat, p, true
}

// chatMessages handles HTTP requests on "/chats/{id}/messages" endpoint
func (h *handler) chatMessages(w http.ResponseWriter, r *http.Request) {
	chat, _, ok := h.authorizedChat(w, r)
	if !ok {
		return
	}

	messages, err := h.store.MessagesByChatID(r.Context(), chat.ID)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if messages == nil {
		messages = []storage.Message{}
	}

	h.respondJSON(w, http.StatusOK, messages)
}

// sendMessage handles HTTP requests on "/chats/{id}/send_message" endpoint.
// Sender and chat are always derived from authenticated context and the
// path; body-supplied sender/chat fields are ignored.
func (h *handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	chat, p, ok := h.authorizedChat(w, r)
	if !ok {
		return
	}

	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.sendMessagePool.Get()
	defer h.parsers.sendMessagePool.Put(parser)
	v, _ := parser.ParseBytes(body)

	content := string(v.GetStringBytes("content"))
	if len(content) == 0 {
		http.Error(w, "Field \"content\" must be a string and have non-zero length", http.StatusBadRequest)
		return
	}

	if h.filter.Rejected(content) {
		http.Error(w, "Content rejected", http.StatusBadRequest)
		return
	}

	message, err := h.store.CreateMessage(r.Context(), chat.ID, p.ID, content)
	if err != nil {
		if errors.Is(err, storage.ErrChatNotFound) {
			http.Error(w, "Chat does not exist", http.StatusNotFound)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusCreated, message)
}

// markRead handles HTTP requests on "/chats/{id}/mark_read" endpoint
func (h *handler) markRead(w http.ResponseWriter, r *http.Request) {
	chat, p, ok := h.authorizedChat(w, r)
	if !ok {
		return
	}

	updated, err := h.store.MarkMessagesRead(r.Context(), chat.ID, p.ID)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}
