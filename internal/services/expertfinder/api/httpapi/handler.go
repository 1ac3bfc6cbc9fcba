// Package httpapi exposes the search pipeline and the sign-in callback over
// HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/expertfinder/internal/platform/branding"
	apperrors "github.com/louisbranch/expertfinder/internal/platform/errors"
	"github.com/louisbranch/expertfinder/internal/platform/errors/i18n"
	"github.com/louisbranch/expertfinder/internal/platform/requestctx"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/domain"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/search"
)

const maxRequestBytes = 1 << 20

// Searcher runs one query.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (search.Result, error)
}

// SignInCompleter finishes the OAuth redirect and returns the verification
// code shown to the user.
type SignInCompleter interface {
	CompleteSignIn(ctx context.Context, authCode, state string) (string, error)
}

// Config wires the handler.
type Config struct {
	Search Searcher
	SignIn SignInCompleter
	// CodeTTL is how long a shown verification code stays valid.
	CodeTTL time.Duration
	Logf    func(string, ...any)
}

type handler struct {
	search  Searcher
	signIn  SignInCompleter
	codeTTL time.Duration
	logf    func(string, ...any)
}

type queryRequest struct {
	UserID     string             `json:"userId"`
	State      string             `json:"state"`
	Parameters []domain.Parameter `json:"parameters"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type callbackView struct {
	AppName   string
	Code      string
	ExpiresIn string
}

type errorView struct {
	AppName string
	Code    string
	Message string
}

// NewHandler builds the HTTP routes wrapped in request-id and access-log
// middleware.
func NewHandler(cfg Config) http.Handler {
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	h := &handler{search: cfg.Search, signIn: cfg.SignIn, codeTTL: cfg.CodeTTL, logf: cfg.Logf}

	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/v1/query", h.handleQuery)
	mux.HandleFunc("/oauth/callback", h.handleCallback)
	return withRequestID(withAccessLog(mux, cfg.Logf))
}

func (h *handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.search == nil {
		writeError(w, r, apperrors.New(apperrors.CodeConfigurationInvalid, "search is not configured"))
		return
	}

	var req queryRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := decoder.Decode(&req); err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.CodeInvalidRequest, "decode query body", err))
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, r, apperrors.New(apperrors.CodeInvalidRequest, "userId is required"))
		return
	}

	ctx := requestctx.WithUserID(r.Context(), req.UserID)
	result, err := h.search.Search(ctx, search.Request{
		UserID:           req.UserID,
		VerificationCode: req.State,
		Parameters:       domain.Query(req.Parameters),
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			h.logf("query %s request %s: %v", req.UserID, requestctx.RequestIDFromContext(ctx), err)
			return
		}
		writeError(w, r, apperrors.Wrap(apperrors.CodeUnknown, "search failed", err))
		return
	}
	if degraded := result.DegradedSources(); len(degraded) > 0 {
		w.Header().Set("X-Degraded-Sources", strings.Join(degraded, ","))
	}
	writeJSON(w, http.StatusOK, result.Response)
}

func (h *handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.signIn == nil {
		h.renderError(w, r, apperrors.New(apperrors.CodeConfigurationInvalid, "sign-in is not configured"))
		return
	}

	params := r.URL.Query()
	if oauthErr := params.Get("error"); oauthErr != "" {
		h.renderError(w, r, apperrors.New(apperrors.CodeInvalidRequest, oauthErr+": "+params.Get("error_description")))
		return
	}

	code, err := h.signIn.CompleteSignIn(r.Context(), params.Get("code"), params.Get("state"))
	if err != nil {
		h.logf("complete sign-in: %v", err)
		h.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_ = templates.ExecuteTemplate(w, "callback.html", callbackView{
		AppName:   branding.AppName,
		Code:      code,
		ExpiresIn: h.codeTTL.String(),
	})
}

func (h *handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code.HTTPStatus())
	_ = templates.ExecuteTemplate(w, "error.html", errorView{
		AppName: branding.AppName,
		Code:    string(code),
		Message: publicMessage(r, err),
	})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	writeJSON(w, code.HTTPStatus(), errorResponse{Code: string(code), Message: publicMessage(r, err)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}

// publicMessage localizes the error code for the caller. Internal messages
// and causes stay in the logs.
func publicMessage(r *http.Request, err error) string {
	var metadata map[string]string
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		metadata = appErr.Metadata
	}
	catalog := i18n.GetCatalog(i18n.Negotiate(r.Header.Get("Accept-Language")))
	return catalog.Format(string(apperrors.CodeOf(err)), metadata)
}
