package http

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"wlingo-quiz-service/internal/app"
	"wlingo-quiz-service/internal/domain"
	"wlingo-quiz-service/internal/logger"
)

var errBadOptionIndex = errors.New("selected_option_index must be an integer")

// ArithmeticTopicID is the pseudo topic clients send to start an arithmetic quiz.
const ArithmeticTopicID = "__arithmetic__"

// Options configures the session cookie.
type Options struct {
	CookieName string
	// CookieMaxAge should match the service's session max age.
	CookieMaxAge time.Duration
}

// Handler exposes the quiz use cases over JSON HTTP.
type Handler struct {
	service *app.QuizService
	log     *logger.Logger
	opts    Options
}

func NewHandler(service *app.QuizService, log *logger.Logger, opts Options) *Handler {
	if opts.CookieName == "" {
		opts.CookieName = "quiz_session_id"
	}
	return &Handler{service: service, log: log.With("component", "http"), opts: opts}
}

// NewRouter wires the REST and websocket endpoints onto a gorilla/mux router.
func NewRouter(service *app.QuizService, log *logger.Logger, opts Options) *mux.Router {
	h := NewHandler(service, log, opts)
	ws := NewWSHandler(service, log, opts.CookieName)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/topics", h.Topics).Methods(http.MethodGet)
	api.HandleFunc("/start", h.Start).Methods(http.MethodPost)
	api.HandleFunc("/quiz/{index}", h.Question).Methods(http.MethodGet)
	api.HandleFunc("/quiz/{index}/answer", h.Answer).Methods(http.MethodPost)
	api.HandleFunc("/result", h.Result).Methods(http.MethodGet)
	api.HandleFunc("/reset", h.Reset).Methods(http.MethodPost)

	r.HandleFunc("/ws", ws.ServeWS)
	return r
}

type topicsResponse struct {
	Topics          []domain.Topic `json:"topics"`
	ArithmeticTopic string         `json:"arithmeticTopic"`
}

type startRequest struct {
	Topic string `json:"topic"`
	Mode  string `json:"mode"`
}

type sessionResponse struct {
	SessionID string      `json:"sessionId"`
	Topic     string      `json:"topic"`
	Mode      domain.Mode `json:"mode"`
	Total     int         `json:"total"`
	NextIndex int         `json:"nextIndex"`
	Created   bool        `json:"created"`
}

type answerRequest struct {
	SelectedOptionIndex *int    `json:"selected_option_index"`
	Answer              *string `json:"answer"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Topics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, topicsResponse{Topics: h.service.Topics(), ArithmeticTopic: ArithmeticTopicID})
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeRequest(r, &req, func() error {
		req.Topic = r.FormValue("topic")
		req.Mode = r.FormValue("mode")
		return nil
	}); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	mode := domain.ParseMode(req.Mode)
	if req.Topic == ArithmeticTopicID {
		mode = domain.ModeArithmetic
	}
	session, created, err := h.service.StartSession(r.Context(), h.sessionID(r), req.Topic, mode)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.setCookie(w, session.ID)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, sessionResponse{
		SessionID: session.ID,
		Topic:     session.Topic,
		Mode:      session.Mode,
		Total:     session.Total(),
		NextIndex: len(session.Answers),
		Created:   created,
	})
}

func (h *Handler) Question(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetQuestion(r.Context(), h.sessionID(r), index)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if err := decodeRequest(r, &req, func() error {
		if raw := r.FormValue("selected_option_index"); raw != "" {
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return errBadOptionIndex
			}
			req.SelectedOptionIndex = &n
		}
		if raw, ok := r.Form["answer"]; ok && len(raw) > 0 {
			req.Answer = &raw[0]
		}
		return nil
	}); err != nil {
		msg := "invalid request body"
		if errors.Is(err, errBadOptionIndex) {
			msg = err.Error()
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return
	}

	var sel domain.Selection
	switch {
	case req.SelectedOptionIndex != nil:
		sel = domain.SelectIndex(*req.SelectedOptionIndex)
	case req.Answer != nil:
		sel = domain.SelectValue(*req.Answer)
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "selected_option_index or answer is required"})
		return
	}

	record, err := h.service.SubmitAnswer(r.Context(), h.sessionID(r), index, sel)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.GetResult(r.Context(), h.sessionID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetSession(r.Context(), h.sessionID(r)); err != nil {
		h.writeError(w, err)
		return
	}
	h.clearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sessionID(r *http.Request) string {
	c, err := r.Cookie(h.opts.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *Handler) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.opts.CookieMaxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "error", err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	if errors.Is(err, domain.ErrSessionInvalid) {
		h.clearCookie(w)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyAnswered),
		errors.Is(err, domain.ErrOutOfOrder),
		errors.Is(err, domain.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidOption):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "index must be an integer"})
		return 0, false
	}
	return index, true
}

// decodeRequest reads a JSON body into dst, or parses the form and calls
// fromForm for any other content type.
func decodeRequest(r *http.Request, dst any, fromForm func() error) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.EqualFold(mediaType, "application/json") {
		if r.ContentLength == 0 {
			return nil
		}
		return json.NewDecoder(r.Body).Decode(dst)
	}
	if err := r.ParseForm(); err != nil {
		return err
	}
	return fromForm()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
