package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// ComponentHealth is the health of one dependency
type ComponentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse reports overall and per-component health
type HealthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version"`
	Components map[string]ComponentHealth `json:"components"`
	Runtime    *domain.RuntimeStatus      `json:"runtime,omitempty"`
}

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDisabled  = "disabled"
)

// readinessTimeout bounds each dependency probe
const readinessTimeout = 3 * time.Second

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Liveness probe; does not touch dependencies
// @Tags         Health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     statusHealthy,
		Version:    s.version,
		Components: map[string]ComponentHealth{"server": {Status: statusHealthy}},
	})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Checks the database, session store, vector index and AI services
// @Tags         Health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:     statusHealthy,
		Version:    s.version,
		Components: make(map[string]ComponentHealth),
	}

	probe := func(name string, required bool, check func(ctx context.Context) error) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := check(ctx); err != nil {
			resp.Components[name] = ComponentHealth{Status: statusUnhealthy, Error: err.Error()}
			if required {
				resp.Status = statusUnhealthy
			}
			return
		}
		resp.Components[name] = ComponentHealth{Status: statusHealthy}
	}

	if s.db != nil {
		probe("database", true, s.db.Ping)
	}
	if s.redisClient != nil {
		probe("redis", true, s.redisClient.Ping)
	}
	if s.runtimeServices != nil {
		if idx := s.runtimeServices.VectorIndex(); idx != nil {
			probe("vector_index", true, idx.HealthCheck)
		} else {
			resp.Components["vector_index"] = ComponentHealth{Status: statusUnhealthy, Error: "not configured"}
			resp.Status = statusUnhealthy
		}
		if svc := s.runtimeServices.EmbeddingService(); svc != nil {
			resp.Components["embedding"] = ComponentHealth{Status: statusHealthy}
		} else {
			resp.Components["embedding"] = ComponentHealth{Status: statusDisabled}
		}
		if svc := s.runtimeServices.LLMService(); svc != nil {
			resp.Components["llm"] = ComponentHealth{Status: statusHealthy}
		} else {
			resp.Components["llm"] = ComponentHealth{Status: statusDisabled}
		}
		status := s.runtimeServices.Config().Status()
		resp.Runtime = &status
	}

	code := http.StatusOK
	if resp.Status != statusHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// Auth endpoints

// handleRegister godoc
// @Summary      Register
// @Description  Create an account with username, email and password
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.RegisterRequest  true  "Account details"
// @Success      201      {object}  domain.UserSummary
// @Failure      400      {object}  ErrorResponse  "Invalid input or account already exists"
// @Router       /auth/register [post]
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.userService.Register(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user.ToSummary())
}

// handleLogin godoc
// @Summary      User login
// @Description  Authenticate with username and password to receive access and refresh tokens
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "Login credentials"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials"
// @Router       /auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.authService.Authenticate(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRefresh godoc
// @Summary      Refresh token
// @Description  Exchange a refresh token for a new token pair
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.RefreshRequest  true  "Refresh token"
// @Success      200      {object}  domain.LoginResponse
// @Failure      401      {object}  ErrorResponse  "Invalid refresh token"
// @Router       /auth/refresh [post]
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.authService.RefreshToken(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleLogout godoc
// @Summary      Logout user
// @Description  Invalidate the current session
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Router       /auth/logout [post]
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.authService.Logout(r.Context(), extractBearerToken(r)); err != nil {
		s.logger.Warn("logout failed", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleLogoutAll godoc
// @Summary      Logout everywhere
// @Description  Invalidate every session of the current user
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/logout-all [post]
func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.authService.LogoutAll(r.Context(), authCtx.UserID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleGetMe godoc
// @Summary      Get current user
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.UserSummary
// @Router       /me [get]
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := s.userService.Get(r.Context(), authCtx.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user.ToSummary())
}

// Collection endpoints

// handleCreateCollection godoc
// @Summary      Create collection
// @Description  Create a collection and provision its vector index
// @Tags         Collections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.CreateCollectionRequest  true  "Collection"
// @Success      201      {object}  domain.Collection
// @Router       /collections [post]
func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	var req driving.CreateCollectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	collection, err := s.collectionService.Create(r.Context(), authCtx.UserID, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, collection)
}

// handleListCollections godoc
// @Summary      List collections
// @Description  The caller's collections, newest first
// @Tags         Collections
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  domain.Collection
// @Router       /collections [get]
func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	collections, err := s.collectionService.List(r.Context(), authCtx.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if collections == nil {
		collections = []*domain.Collection{}
	}

	writeJSON(w, http.StatusOK, collections)
}

// handleGetCollection godoc
// @Summary      Get collection
// @Tags         Collections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Collection ID"
// @Success      200  {object}  domain.Collection
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /collections/{id} [get]
func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	collection, err := s.collectionService.Get(r.Context(), authCtx.UserID, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, collection)
}

// handleUpdateCollection godoc
// @Summary      Update collection
// @Description  Rename a collection or change its description
// @Tags         Collections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                               true  "Collection ID"
// @Param        request  body      driving.UpdateCollectionRequest  true  "Changes"
// @Success      200      {object}  domain.Collection
// @Failure      403      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /collections/{id} [put]
func (s *Server) handleUpdateCollection(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req driving.UpdateCollectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	collection, err := s.collectionService.Update(r.Context(), authCtx.UserID, id, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, collection)
}

// handleDeleteCollection godoc
// @Summary      Delete collection
// @Description  Delete a collection, its documents and its vector index
// @Tags         Collections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Collection ID"
// @Success      200  {object}  StatusResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /collections/{id} [delete]
func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := s.collectionService.Delete(r.Context(), authCtx.UserID, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// Document endpoints

// handleCreateDocument godoc
// @Summary      Create document
// @Description  Store a document and index its paragraphs. Omitting title and content creates an UNTITLED placeholder; only one may exist per collection.
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                             true  "Collection ID"
// @Param        request  body      driving.CreateDocumentRequest  true  "Document"
// @Success      201      {object}  domain.Document
// @Failure      422      {object}  ErrorResponse  "Blank document already exists"
// @Router       /collections/{id}/documents [post]
func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	collectionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req driving.CreateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	doc, err := s.documentService.Create(r.Context(), authCtx.UserID, collectionID, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// handleListDocuments godoc
// @Summary      List documents
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     int  true  "Collection ID"
// @Success      200  {array}  domain.Document
// @Failure      403  {object}  ErrorResponse
// @Router       /collections/{id}/documents [get]
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	collectionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	docs, err := s.documentService.List(r.Context(), authCtx.UserID, collectionID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if docs == nil {
		docs = []*domain.Document{}
	}

	writeJSON(w, http.StatusOK, docs)
}

// handleGetDocument godoc
// @Summary      Get document
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id          path      int  true  "Collection ID"
// @Param        documentID  path      int  true  "Document ID"
// @Success      200         {object}  domain.Document
// @Failure      404         {object}  ErrorResponse
// @Router       /collections/{id}/documents/{documentID} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	collectionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	documentID, ok := pathID(w, r, "documentID")
	if !ok {
		return
	}

	doc, err := s.documentService.Get(r.Context(), authCtx.UserID, collectionID, documentID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// handleUpdateDocument godoc
// @Summary      Update document
// @Description  Store changes and replace the document's vectors
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id          path      int                             true  "Collection ID"
// @Param        documentID  path      int                             true  "Document ID"
// @Param        request     body      driving.UpdateDocumentRequest  true  "Changes"
// @Success      200         {object}  domain.Document
// @Router       /collections/{id}/documents/{documentID} [put]
func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	collectionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	documentID, ok := pathID(w, r, "documentID")
	if !ok {
		return
	}
	var req driving.UpdateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	doc, err := s.documentService.Update(r.Context(), authCtx.UserID, collectionID, documentID, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// handleDeleteDocument godoc
// @Summary      Delete document
// @Description  Delete a document and every vector of its namespace
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id          path      int  true  "Collection ID"
// @Param        documentID  path      int  true  "Document ID"
// @Success      200         {object}  StatusResponse
// @Failure      404         {object}  ErrorResponse
// @Router       /collections/{id}/documents/{documentID} [delete]
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	collectionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	documentID, ok := pathID(w, r, "documentID")
	if !ok {
		return
	}

	if err := s.documentService.Delete(r.Context(), authCtx.UserID, collectionID, documentID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// Search and chat endpoints

// normalizeScope maps the legacy collection id 0 to the all-collections flag.
func normalizeScope(ids []int64, all bool) ([]int64, bool) {
	if all {
		return nil, true
	}
	for _, id := range ids {
		if id == 0 {
			return nil, true
		}
	}
	return ids, false
}

// handleSearch godoc
// @Summary      Search paragraphs
// @Description  Raw retrieval over the selected collections, without answer generation
// @Tags         Search
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.SearchRequest  true  "Search query"
// @Success      200      {object}  domain.SearchResult
// @Router       /search [post]
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	var req domain.SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CollectionIDs, req.AllCollections = normalizeScope(req.CollectionIDs, req.AllCollections)

	result, err := s.searchService.Search(r.Context(), authCtx.UserID, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleChatQuery godoc
// @Summary      Ask a question
// @Description  Retrieve paragraphs from the selected collections and answer from them. A collection id of 0 selects every collection.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.ChatRequest  true  "Question"
// @Success      200      {object}  domain.ChatResponse
// @Failure      429      {object}  ErrorResponse  "Rate limit exceeded"
// @Router       /chat/query [post]
func (s *Server) handleChatQuery(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	var req domain.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CollectionIDs, req.AllCollections = normalizeScope(req.CollectionIDs, req.AllCollections)

	resp, err := s.chatService.Query(r.Context(), authCtx.UserID, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleChatHistory godoc
// @Summary      Chat history
// @Description  Every chat exchange of the current user, oldest first
// @Tags         Chat
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  domain.ChatHistory
// @Router       /chat/history [get]
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	history, err := s.chatService.History(r.Context(), authCtx.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if history == nil {
		history = []*domain.ChatHistory{}
	}

	writeJSON(w, http.StatusOK, history)
}

// Helpers

// errorStatus maps a service error to its HTTP status and public message.
// Authentication failures share one message so they reveal nothing.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusBadRequest, "already exists"
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrBlankDocumentExists):
		return http.StatusUnprocessableEntity, "blank document already exists"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "service unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request error",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeError(w, status, message)
}

// pathID parses a positive integer path parameter, answering 400 otherwise.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// maxBodyBytes caps request bodies; documents are the largest payload.
const maxBodyBytes = 8 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
