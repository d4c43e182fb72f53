package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/xhad/tome/internal/models"
	"github.com/xhad/tome/pkg/llm"
	"github.com/xhad/tome/pkg/rag"
)

// maxUploadBytes caps a single PDF upload.
const maxUploadBytes = 64 << 20

// fallbackAnswer is shown when answering fails internally. The real
// cause is logged, never sent to the client.
const fallbackAnswer = "The assistant could not answer this question right now. Please try again."

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Message is the WebSocket chat frame.
type Message struct {
	Type     string `json:"type"`
	TenantID string `json:"tenant_id,omitempty"`
	Content  string `json:"content"`
}

// Server exposes the pipeline surface to the UI layer over HTTP, plus
// a WebSocket endpoint for streamed answers. The tenant id in each
// request is assumed to be authenticated upstream.
type Server struct {
	pipeline *rag.Pipeline
	chat     *llm.ChatEngine
}

func New(pipeline *rag.Pipeline, chat *llm.ChatEngine) *Server {
	return &Server{
		pipeline: pipeline,
		chat:     chat,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /tenants", s.handleCreateTenant)
	mux.HandleFunc("GET /tenants", s.handleListTenants)
	mux.HandleFunc("DELETE /tenants/{tenant}", s.handleDeleteTenant)
	mux.HandleFunc("POST /upload/{tenant}", s.handleUpload)
	mux.HandleFunc("GET /files/{tenant}", s.handleListFiles)
	mux.HandleFunc("DELETE /files/{tenant}/{file}", s.handleDeleteFile)
	mux.HandleFunc("POST /query/{tenant}", s.handleQuery)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}

func (s *Server) ListenAndServe(port string) error {
	log.Printf("Starting API server on port %s", port)
	return http.ListenAndServe(":"+port, s.Handler())
}

func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tenant, err := s.pipeline.CreateTenant(r.Context(), req.Name)
	if err != nil {
		writeTypedError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tenant)
}

func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.pipeline.ListTenants(r.Context())
	if err != nil {
		writeTypedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
}

func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")

	if err := s.pipeline.DeleteTenant(r.Context(), tenantID); err != nil {
		writeTypedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Tenant %s deleted successfully", tenantID),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file upload")
		return
	}

	result, err := s.pipeline.Ingest(r.Context(), tenantID, header.Filename, content)
	if err != nil {
		writeTypedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")

	docs, err := s.pipeline.ListDocuments(r.Context(), tenantID)
	if err != nil {
		writeTypedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"files": docs})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")
	fileID := r.PathValue("file")

	if err := s.pipeline.DeleteDocument(r.Context(), tenantID, fileID); err != nil {
		writeTypedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("File %s deleted successfully", fileID),
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")

	var req struct {
		Text string `json:"text"`
		K    int    `json:"k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.pipeline.AnswerQuery(r.Context(), tenantID, req.Text, req.K)
	if err != nil {
		// Degrade to a safe answer; the cause stays in the log.
		log.Printf("query for tenant %s failed: %v", tenantID, err)
		writeJSON(w, http.StatusOK, models.QueryResult{Answer: fallbackAnswer})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendMessage(conn, "error", "invalid message")
			continue
		}

		s.handleChatMessage(r, conn, msg)
	}
}

func (s *Server) handleChatMessage(r *http.Request, conn *websocket.Conn, msg Message) {
	prompt, sources, err := s.pipeline.PreparePrompt(r.Context(), msg.TenantID, msg.Content, 0)
	if err != nil {
		log.Printf("chat query for tenant %s failed: %v", msg.TenantID, err)
		s.sendMessage(conn, "error", fallbackAnswer)
		return
	}
	if prompt == "" {
		s.sendMessage(conn, "response", rag.NoRelevantInformation)
		return
	}

	stream, errc := s.chat.GenerateStream(r.Context(), prompt)
	for chunk := range stream {
		s.sendMessage(conn, "stream", chunk)
	}
	if err := <-errc; err != nil {
		log.Printf("chat generation for tenant %s failed: %v", msg.TenantID, err)
		s.sendMessage(conn, "error", fallbackAnswer)
		return
	}

	for _, source := range sources {
		s.sendMessage(conn, "source", source)
	}
	s.sendMessage(conn, "done", "")
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType, content string) {
	msg := Message{
		Type:    msgType,
		Content: content,
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeTypedError maps the pipeline's error taxonomy onto HTTP
// statuses with safe messages. Anything unrecognized is logged and
// reported as a plain internal error.
func writeTypedError(w http.ResponseWriter, err error) {
	var notFound *models.NotFoundError
	var extraction *models.ExtractionError

	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &extraction):
		writeError(w, http.StatusBadRequest, "file is not a readable PDF")
	case errors.Is(err, rag.ErrInvalidTenantName):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
