package handlers

import (
	"net/http"

	"medmind-api/internal/app"
)

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		next.ServeHTTP(w, r)
	}
}

func corsPreflight(w http.ResponseWriter, r *http.Request) {
	enableCORS(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})(w, r)
}

// RegisterRoutes mounts every API route on mux using Go 1.22 method and path-parameter patterns
func RegisterRoutes(mux *http.ServeMux, config *app.Config) {
	authHandlers := NewAuthHandlers(config)
	conversationHandlers := NewConversationHandlers(config)
	protect := func(h http.HandlerFunc) http.HandlerFunc {
		return enableCORS(config.Auth.Middleware(h))
	}

	// Public routes
	mux.HandleFunc("POST /api/register", enableCORS(authHandlers.RegisterHandler))
	mux.HandleFunc("POST /api/login", enableCORS(authHandlers.LoginHandler))
	mux.HandleFunc("GET /api/health", enableCORS(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))

	// Protected routes
	mux.HandleFunc("POST /api/conversations", protect(conversationHandlers.CreateConversationHandler))
	mux.HandleFunc("GET /api/conversations", protect(conversationHandlers.ListConversationsHandler))
	mux.HandleFunc("GET /api/conversations/user/limits", protect(conversationHandlers.GetUserLimitsHandler))
	mux.HandleFunc("GET /api/conversations/user/stats", protect(conversationHandlers.GetUserStatsHandler))
	mux.HandleFunc("GET /api/conversations/{id}", protect(conversationHandlers.GetConversationHandler))
	mux.HandleFunc("POST /api/conversations/{id}/messages", protect(conversationHandlers.SendMessageHandler))
	mux.HandleFunc("PATCH /api/conversations/{id}/archive", protect(conversationHandlers.ArchiveConversationHandler))
	mux.HandleFunc("DELETE /api/conversations/{id}", protect(conversationHandlers.DeleteConversationHandler))

	mux.HandleFunc("OPTIONS /api/", corsPreflight)
}
