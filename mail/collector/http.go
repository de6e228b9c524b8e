package collector

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/pure-golang/mailer/logger"
)

// HandlerOptions contains options for NewHandler.
type HandlerOptions struct {
	// AllowedOrigins enables CORS for browser based panels. Empty disables it.
	AllowedOrigins []string
}

// NewHandler exposes the collector over HTTP:
//
//	GET    /messages           all entries
//	GET    /messages/:index    one entry
//	GET    /messages/:index/raw  the entry as plain text
//	GET    /summary            totals
//	DELETE /messages           reset
func NewHandler(c *Collector, options *HandlerOptions) http.Handler {
	if options == nil {
		options = &HandlerOptions{}
	}

	h := &handler{collector: c}
	r := &httprouter.Router{
		RedirectTrailingSlash:  true,
		HandleMethodNotAllowed: true,
		HandleOPTIONS:          true,
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, errorResponse{Message: "endpoint not found"})
		}),
		MethodNotAllowed: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Message: "method not allowed"})
		}),
	}
	r.GET("/messages", h.list)
	r.GET("/messages/:index", h.get)
	r.GET("/messages/:index/raw", h.raw)
	r.GET("/summary", h.summary)
	r.DELETE("/messages", h.reset)

	if len(options.AllowedOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins: options.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
	}).Handler(r)
}

type handler struct {
	collector *Collector
}

type errorResponse struct {
	Message string `json:"message"`
}

func (h *handler) list(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	entries, err := h.collector.Collected(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) get(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if entry, ok := h.entry(w, r, p); ok {
		writeJSON(w, http.StatusOK, entry)
	}
}

func (h *handler) raw(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	entry, ok := h.entry(w, r, p)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(entry.Raw))
}

func (h *handler) summary(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	summary, err := h.collector.Summary(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handler) reset(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := h.collector.Reset(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) entry(w http.ResponseWriter, r *http.Request, p httprouter.Params) (Entry, bool) {
	index, err := strconv.Atoi(p.ByName("index"))
	if err != nil || index < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid message index"})
		return Entry{}, false
	}
	entries, err := h.collector.Collected(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return Entry{}, false
	}
	if index >= len(entries) {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "message not found"})
		return Entry{}, false
	}
	return entries[index], true
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContextWithErr(r.Context(), err).Error("collector request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
