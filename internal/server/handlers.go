package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"school-counseling-backend/internal/auth"
	"school-counseling-backend/internal/moderation"
	"school-counseling-backend/internal/search"
	"school-counseling-backend/internal/storage"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"
)

// TODO limit reading from body

type parsers struct {
	loginPool       fastjson.ParserPool
	registerPool    fastjson.ParserPool
	refreshPool     fastjson.ParserPool
	initiatePool    fastjson.ParserPool
	sendMessagePool fastjson.ParserPool
	articlePool     fastjson.ParserPool
	searchPool      fastjson.ParserPool
}

type handler struct {
	logger   *zap.SugaredLogger
	store    Store
	issuer   *auth.Issuer
	filter   *moderation.Filter
	searcher *search.Searcher
	parsers  parsers
}

func (h *handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(data); err != nil {
		h.logger.Errorf("writing marshaled data to ResponseWriter: %v", err)
	}
}

// idFromPath parses the {id} path segment
func idFromPath(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// chatAccessAllowed is the single authorization rule for chat objects:
// the assigned psychologist or the chat's own student, nobody else.
func chatAccessAllowed(p principal, chat storage.Chat) bool {
	if p.IsPsychologist {
		return chat.PsychologistID == p.ID
	}
	return chat.StudentID == p.ID
}
