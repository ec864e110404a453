package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/najdeno/internal/negotiation"
	"github.com/erazemk/najdeno/internal/vision"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, service *negotiation.Service, describer vision.Describer) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	itemsHandler := &ItemsHandler{DB: db, Service: service, Describer: describer}
	sessionsHandler := &SessionsHandler{DB: db, Service: service}
	notificationsHandler := &NotificationsHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)

	// Public: registration and login.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Account.
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Items.
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))
	mux.Handle("PUT /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.UploadImage)))
	mux.Handle("GET /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.GetImage)))
	mux.Handle("POST /api/items/{id}/match", authMW(http.HandlerFunc(itemsHandler.Match)))

	// Negotiation sessions.
	mux.Handle("GET /api/sessions", authMW(http.HandlerFunc(sessionsHandler.List)))
	mux.Handle("GET /api/sessions/{id}", authMW(http.HandlerFunc(sessionsHandler.Get)))
	mux.Handle("POST /api/sessions/{id}/confirm", authMW(http.HandlerFunc(sessionsHandler.Confirm)))
	mux.Handle("POST /api/sessions/{id}/force", authMW(http.HandlerFunc(sessionsHandler.ForceMatch)))
	mux.Handle("POST /api/sessions/{id}/schedule", authMW(http.HandlerFunc(sessionsHandler.ProposeSchedule)))
	mux.Handle("POST /api/sessions/{id}/schedule/approve", authMW(http.HandlerFunc(sessionsHandler.ApproveSchedule)))
	mux.Handle("POST /api/sessions/{id}/schedule/reject", authMW(http.HandlerFunc(sessionsHandler.RejectSchedule)))
	mux.Handle("POST /api/sessions/{id}/return", authMW(http.HandlerFunc(sessionsHandler.ConfirmReturn)))

	// Notifications.
	mux.Handle("GET /api/notifications", authMW(http.HandlerFunc(notificationsHandler.List)))
	mux.Handle("POST /api/notifications/{id}/read", authMW(http.HandlerFunc(notificationsHandler.MarkRead)))

	return mux
}
