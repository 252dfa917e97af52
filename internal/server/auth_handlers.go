package server

import (
	"errors"
	"io"
	"net/http"

	"school-counseling-backend/internal/auth"
	"school-counseling-backend/internal/storage"
)

// maxTokenAttempts bounds token regeneration on collision during student
// registration. Collisions in a 40-bit space are vanishingly rare; running
// out means something is wrong with the randomness source.
const maxTokenAttempts = 5

type loginResponse struct {
	Access         string `json:"access"`
	Refresh        string `json:"refresh"`
	IsPsychologist bool   `json:"is_psychologist"`
}

// login handles HTTP requests on "/auth/login" endpoint.
// The identifier is classified by "@" presence: email lookup for staff,
// token lookup for students. Unknown identifier and wrong password produce
// identical responses so the caller cannot probe which one occurred.
func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.loginPool.Get()
	defer h.parsers.loginPool.Put(parser)
	v, _ := parser.ParseBytes(body)

	identifier := string(v.GetStringBytes("identifier"))
	if len(identifier) == 0 {
		http.Error(w, "Field \"identifier\" must be a string and have non-zero length", http.StatusBadRequest)
		return
	}

	password := string(v.GetStringBytes("password"))
	if len(password) == 0 {
		http.Error(w, "Field \"password\" must be a string and have non-zero length", http.StatusBadRequest)
		return
	}

	var (
		user storage.User
		err  error
	)
	switch id := auth.ClassifyIdentifier(identifier); id.Kind {
	case auth.KindEmail:
		user, err = h.store.UserByEmail(r.Context(), id.Value)
	case auth.KindToken:
		user, err = h.store.UserByToken(r.Context(), id.Value)
	}
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.logger.Debug("login rejected: identifier did not resolve")
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if !auth.VerifyPassword(user.PasswordHash, password) {
		h.logger.Debugf("login rejected: password mismatch for user %d", user.ID)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	pair, err := h.issuer.IssuePair(user.ID, user.IsPsychologist)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, loginResponse{
		Access:         pair.Access,
		Refresh:        pair.Refresh,
		IsPsychologist: user.IsPsychologist,
	})
}

// registerStudent handles HTTP requests on "/auth/register-student" endpoint.
// The generated token is the only means for the student to authenticate
// later; it is returned once and never otherwise displayed.
func (h *handler) registerStudent(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.registerPool.Get()
	defer h.parsers.registerPool.Put(parser)
	v, _ := parser.ParseBytes(body)

	password := string(v.GetStringBytes("password"))
	if len(password) == 0 {
		http.Error(w, "Field \"password\" must be a string and have non-zero length", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		user, err := h.store.CreateStudent(r.Context(), auth.NewStudentToken(), hash)
		if errors.Is(err, storage.ErrTokenExists) {
			continue
		}
		if err != nil {
			h.logger.Error(err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		h.respondJSON(w, http.StatusCreated, map[string]string{"token": user.Token})
		return
	}

	h.logger.Errorf("student registration exhausted %d token attempts", maxTokenAttempts)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// refresh handles HTTP requests on "/auth/refresh" endpoint.
// The capability flag is re-read from the identity store, so revoking it
// takes effect on the next refresh.
func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.refreshPool.Get()
	defer h.parsers.refreshPool.Put(parser)
	v, _ := parser.ParseBytes(body)

	raw := string(v.GetStringBytes("refresh"))
	if len(raw) == 0 {
		http.Error(w, "Field \"refresh\" must be a string and have non-zero length", http.StatusBadRequest)
		return
	}

	claims, err := h.issuer.ParseRefresh(raw)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	user, err := h.store.UserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	pair, err := h.issuer.IssuePair(user.ID, user.IsPsychologist)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, loginResponse{
		Access:         pair.Access,
		Refresh:        pair.Refresh,
		IsPsychologist: user.IsPsychologist,
	})
}
