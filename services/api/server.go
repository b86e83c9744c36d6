package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/ceramicnetwork/go-mint/models"
	"github.com/ceramicnetwork/go-mint/services"
)

const SessionHeader = "X-Session-Id"
const SessionCookie = "mint_session"

const shutdownTimeout = 10 * time.Second

type Server struct {
	sessions *services.SessionManager
	logger   models.Logger
	server   *http.Server
	// Runs outlive the request that started them and are only cancelled when the server shuts down
	runCtx    context.Context
	runCancel context.CancelFunc
}

type errorResponse struct {
	Error string           `json:"error"`
	Kind  models.ErrorKind `json:"kind,omitempty"`
}

type startResponse struct {
	RunId string `json:"runId"`
}

type cancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

type accountResponse struct {
	Address   string `json:"address,omitempty"`
	Connected bool   `json:"connected"`
}

type imageResponse struct {
	DataUrl string `json:"dataUrl"`
}

func NewServer(logger models.Logger, addr string, sessions *services.SessionManager) *Server {
	runCtx, runCancel := context.WithCancel(context.Background())
	s := &Server{
		sessions:  sessions,
		logger:    logger,
		runCtx:    runCtx,
		runCancel: runCancel,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	v0 := router.PathPrefix("/api/v0").Subrouter()
	v0.HandleFunc("/mints", s.handleStartMint).Methods(http.MethodPost)
	v0.HandleFunc("/mints", s.handleCancelMint).Methods(http.MethodDelete)
	v0.HandleFunc("/status", s.handleGetStatus).Methods(http.MethodGet)
	v0.HandleFunc("/image", s.handleGetImage).Methods(http.MethodGet)
	v0.HandleFunc("/account", s.handleGetAccount).Methods(http.MethodGet)
	return router
}

func (s *Server) Start() error {
	s.logger.Infof("api: listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, shutdownTimeout)
	defer shutdownCancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Errorf("api: error shutting down: %v", err)
	}
	s.runCancel()
	s.logger.Infof("api: stopped")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartMint(w http.ResponseWriter, r *http.Request) {
	request := models.MintRequest{}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024)).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Kind: models.ErrorKind_Validation})
		return
	}
	orchestrator := s.sessions.Get(s.sessionId(w, r))
	if runId, err := orchestrator.Start(s.runCtx, request); err != nil {
		writeMintError(w, err)
	} else {
		writeJSON(w, http.StatusAccepted, startResponse{runId})
	}
}

func (s *Server) handleCancelMint(w http.ResponseWriter, r *http.Request) {
	cancelled := false
	if orchestrator, found := s.sessions.Lookup(s.sessionId(w, r)); found {
		cancelled = orchestrator.Cancel()
	}
	writeJSON(w, http.StatusOK, cancelResponse{cancelled})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Get(s.sessionId(w, r)).Status())
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	image := s.sessions.Get(s.sessionId(w, r)).Image()
	if image == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.URL.Query().Get("format") == "dataurl" {
		writeJSON(w, http.StatusOK, imageResponse{image.DataUrl()})
		return
	}
	w.Header().Set("Content-Type", image.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(image.Data); err != nil {
		s.logger.Warnf("api: error writing image: %v", err)
	}
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	address, connected := s.sessions.Get(s.sessionId(w, r)).Account(r.Context())
	writeJSON(w, http.StatusOK, accountResponse{address, connected})
}

// sessionId reads the session from the header or cookie, issuing a new one if the client has none.
func (s *Server) sessionId(w http.ResponseWriter, r *http.Request) string {
	if sessionId := r.Header.Get(SessionHeader); len(sessionId) > 0 {
		return sessionId
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil && len(cookie.Value) > 0 {
		return cookie.Value
	}
	sessionId := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionId,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(SessionHeader, sessionId)
	return sessionId
}

func writeMintError(w http.ResponseWriter, err error) {
	var mintErr *models.MintError
	if !errors.As(err, &mintErr) {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	status := http.StatusInternalServerError
	switch mintErr.Kind {
	case models.ErrorKind_Busy:
		status = http.StatusConflict
	case models.ErrorKind_Validation:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{mintErr.Message, mintErr.Kind})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
