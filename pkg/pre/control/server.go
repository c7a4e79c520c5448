package control

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/manishvishnoi2/nucypher/pkg/pre"
	"github.com/manishvishnoi2/nucypher/pkg/pre/logging"
	"github.com/manishvishnoi2/nucypher/pkg/pre/messagekit"
	"github.com/manishvishnoi2/nucypher/pkg/pre/policy"
	"github.com/manishvishnoi2/nucypher/pkg/pre/retrieval"
)

// DefaultMaxBodySize bounds request bodies. It leaves room for a
// base64-encoded message of messagekit.MaxPlaintextSize.
const DefaultMaxBodySize = 4 << 20

// RequestIDHeader carries the request id on every response.
const RequestIDHeader = "X-Request-Id"

// Server hosts the control routes of whichever roles it is given.
type Server struct {
	grantor    *policy.Grantor
	nodes      NodeDirectory
	grantee    *retrieval.Grantee
	encryptor  *messagekit.Encryptor
	log        logging.Logger
	maxBody    int64
	retryAfter time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithGrantor enables /create_policy and /grant. Grants sample their nodes
// from nodes.
func WithGrantor(g *policy.Grantor, nodes NodeDirectory) Option {
	return func(s *Server) {
		s.grantor = g
		s.nodes = nodes
	}
}

// WithGrantee enables /join_policy and /retrieve.
func WithGrantee(g *retrieval.Grantee) Option {
	return func(s *Server) { s.grantee = g }
}

// WithEncryptor enables /encrypt_message.
func WithEncryptor(e *messagekit.Encryptor) Option {
	return func(s *Server) { s.encryptor = e }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMaxBodySize overrides DefaultMaxBodySize.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// WithRetryAfter sets the Retry-After hint sent with 503 responses.
func WithRetryAfter(d time.Duration) Option {
	return func(s *Server) { s.retryAfter = d }
}

// New returns a server for the configured roles.
func New(opts ...Option) *Server {
	s := &Server{
		log:        logging.Discard(),
		maxBody:    DefaultMaxBodySize,
		retryAfter: 5 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("component", "control")
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.limitBody)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, errors.New("no such operation"))
	})

	if s.grantor != nil {
		r.Put("/create_policy", s.createPolicy)
		r.Put("/grant", s.grant)
	}
	if s.grantee != nil {
		r.Post("/join_policy", s.joinPolicy)
		r.Post("/retrieve", s.retrieve)
	}
	if s.encryptor != nil {
		r.Post("/encrypt_message", s.encryptMessage)
	}
	return r
}

type ctxKey struct{}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		next.ServeHTTP(w, r)
	})
}

// decode reads a JSON body into v. Unknown fields and trailing data are
// rejected.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &ValidationError{Reason: "body too large"}
		}
		return &ValidationError{Reason: "malformed JSON body"}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return &ValidationError{Reason: "trailing data after JSON body"}
	}
	return nil
}

// StatusOf maps an error to its HTTP status.
func StatusOf(err error) int {
	switch pre.KindOf(err) {
	case pre.KindValidation:
		return http.StatusBadRequest
	case pre.KindPolicyState:
		if errors.Is(err, pre.ErrExpired) {
			return http.StatusGone
		}
		return http.StatusNotFound
	case pre.KindVerification:
		return http.StatusUnprocessableEntity
	case pre.KindAvailability:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	kind := pre.KindOf(err).String()
	if status == http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", "path", r.URL.Path, "request_id", RequestID(r.Context()), "error", err)
		err, kind = errors.New("internal error"), ""
	} else {
		s.log.Info(r.Context(), "request rejected", "path", r.URL.Path, "request_id", RequestID(r.Context()), "status", status, "error", err)
	}
	if status == http.StatusServiceUnavailable && s.retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(s.retryAfter.Round(time.Second)/time.Second)))
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind, RequestID: RequestID(r.Context())})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error(), RequestID: RequestID(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, msg)
}

type envelope struct {
	Result any `json:"result"`
}
