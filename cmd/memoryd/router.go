package main

import (
	"encoding/json"
	"net/http"

	"github.com/chayo-ai/memoryd/config"
	"github.com/chayo-ai/memoryd/errors"
	"github.com/chayo-ai/memoryd/internal/mylog"
	"github.com/chayo-ai/memoryd/memory"
	"github.com/chayo-ai/memoryd/organization"
	"github.com/chayo-ai/memoryd/prompt"
	"github.com/gorilla/mux"
)

func createMemoryRouter(
	router *mux.Router,
	memoryService memory.Service,
	orgStore organization.Store,
	promptBuilder *prompt.Builder,
	profiles map[string]*config.AssistantProfile,
	logger *mylog.Logger,
) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}).Methods("GET")

	// Store one chat message as a memory segment
	router.HandleFunc("/organizations/{orgId}/memory/messages", func(w http.ResponseWriter, r *http.Request) {
		orgID := mux.Vars(r)["orgId"]
		if _, err := orgStore.Get(r.Context(), orgID); err != nil {
			writeError(w, err)
			return
		}

		var req struct {
			Text  string         `json:"text"`
			Role  string         `json:"role"`
			Extra map[string]any `json:"extra,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		segment, err := memoryService.StoreSingleMessage(r.Context(), orgID, req.Text, req.Role, req.Extra)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"stored":  true,
			"segment": segment,
		})
	}).Methods("POST")

	// Batch-ingest conversation transcripts
	router.HandleFunc("/organizations/{orgId}/memory/conversations", func(w http.ResponseWriter, r *http.Request) {
		orgID := mux.Vars(r)["orgId"]
		if _, err := orgStore.Get(r.Context(), orgID); err != nil {
			writeError(w, err)
			return
		}

		var req struct {
			Conversations []memory.Conversation   `json:"conversations"`
			Format        memory.TranscriptFormat `json:"format,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Format == "" {
			req.Format = memory.FormatMessages
		}

		segments, err := memoryService.ProcessBusinessConversations(r.Context(), orgID, req.Conversations, req.Format)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"storedSegments": len(segments),
			"segments":       segments,
		})
	}).Methods("POST")

	// Similarity search, by precomputed embedding or by query text
	router.HandleFunc("/organizations/{orgId}/memory/search", func(w http.ResponseWriter, r *http.Request) {
		orgID := mux.Vars(r)["orgId"]
		if _, err := orgStore.Get(r.Context(), orgID); err != nil {
			writeError(w, err)
			return
		}

		var req struct {
			Embedding []float32 `json:"embedding,omitempty"`
			Query     string    `json:"query,omitempty"`
			Threshold float64   `json:"threshold,omitempty"`
			Limit     int       `json:"limit,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var (
			results []memory.ScoredSegment
			err     error
		)
		if len(req.Embedding) > 0 {
			results, err = memoryService.SearchSimilarConversations(r.Context(), orgID, req.Embedding, req.Threshold, req.Limit)
		} else {
			results, err = memoryService.RetrieveRelevantMemory(r.Context(), orgID, req.Query, req.Limit)
		}
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	}).Methods("POST")

	// Conflict-aware memory update
	router.HandleFunc("/organizations/{orgId}/memory/update", func(w http.ResponseWriter, r *http.Request) {
		orgID := mux.Vars(r)["orgId"]
		if _, err := orgStore.Get(r.Context(), orgID); err != nil {
			writeError(w, err)
			return
		}

		var req struct {
			Text     string                  `json:"text"`
			Metadata *memory.Metadata        `json:"metadata,omitempty"`
			Strategy memory.ConflictStrategy `json:"strategy,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := memoryService.UpdateMemory(r.Context(), orgID, memory.MemoryUpdate{
			Text:     req.Text,
			Metadata: req.Metadata,
		}, req.Strategy)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}).Methods("POST")

	router.HandleFunc("/organizations/{orgId}/memory/summary", func(w http.ResponseWriter, r *http.Request) {
		orgID := mux.Vars(r)["orgId"]
		if _, err := orgStore.Get(r.Context(), orgID); err != nil {
			writeError(w, err)
			return
		}

		summary, err := memoryService.GetBusinessKnowledgeSummary(r.Context(), orgID)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, summary)
	}).Methods("GET")

	router.HandleFunc("/organizations/{orgId}/memory/{segmentId}", func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		orgID := vars["orgId"]
		if _, err := orgStore.Get(r.Context(), orgID); err != nil {
			writeError(w, err)
			return
		}

		if err := memoryService.DeleteMemory(r.Context(), orgID, vars["segmentId"]); err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	}).Methods("DELETE")

	// Purge every segment of the tenant, used on offboarding
	router.HandleFunc("/organizations/{orgId}/memory", func(w http.ResponseWriter, r *http.Request) {
		orgID := mux.Vars(r)["orgId"]
		if _, err := orgStore.Get(r.Context(), orgID); err != nil {
			writeError(w, err)
			return
		}

		if err := memoryService.DeleteOrganizationEmbeddings(r.Context(), orgID); err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	}).Methods("DELETE")

	// Render the assistant system prompt with relevant memory inlined
	router.HandleFunc("/organizations/{orgId}/prompt", func(w http.ResponseWriter, r *http.Request) {
		orgID := mux.Vars(r)["orgId"]
		org, err := orgStore.Get(r.Context(), orgID)
		if err != nil {
			writeError(w, err)
			return
		}

		var req struct {
			Message string `json:"message,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		systemPrompt, err := promptBuilder.BuildSystemPrompt(r.Context(), org, profiles[orgID], req.Message)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"prompt": systemPrompt})
	}).Methods("POST")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrInvalidParams), errors.Is(err, errors.ErrUnsupportedStrategy):
		status = http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errors.ErrUpstream):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
