package handlers

import (
	"github.com/gorilla/mux"
)

// Routes groups every handler the API serves.
type Routes struct {
	Users         *UserHandler
	Therapy       *TherapyHandler
	Mood          *MoodHandler
	Breathing     *BreathingHandler
	Chat          *ChatHandler
	ChatSocket    *ChatSocketHandler
	Notifications *NotificationHandler
}

// MountSocket registers the websocket endpoint. It authenticates through the
// token query parameter, so it sits outside the protected subrouter.
func (rt *Routes) MountSocket(r *mux.Router) {
	r.HandleFunc("/api/v1/chat/ws/{sessionID}", rt.ChatSocket.Connect)
}

// MountPublic registers the unauthenticated /api/v1 routes.
func (rt *Routes) MountPublic(api *mux.Router) {
	api.HandleFunc("/auth/register", rt.Users.Register).Methods("POST")
	api.HandleFunc("/auth/login", rt.Users.Login).Methods("POST")
	api.HandleFunc("/auth/refresh", rt.Users.Refresh).Methods("POST")
	api.HandleFunc("/auth/forgot-password", rt.Users.ForgotPassword).Methods("POST")
	api.HandleFunc("/auth/reset-password", rt.Users.ResetPassword).Methods("POST")
}

// MountProtected registers the routes that require an access token.
func (rt *Routes) MountProtected(protected *mux.Router) {
	protected.HandleFunc("/auth/logout", rt.Users.Logout).Methods("POST")
	protected.HandleFunc("/auth/verify", rt.Users.Verify).Methods("GET")
	protected.HandleFunc("/auth/change-password", rt.Users.ChangePassword).Methods("POST")
	protected.HandleFunc("/auth/profile", rt.Users.GetProfile).Methods("GET")
	protected.HandleFunc("/auth/profile", rt.Users.UpdateProfile).Methods("PUT")

	protected.HandleFunc("/therapy/exercises", rt.Therapy.ListExercises).Methods("GET")
	protected.HandleFunc("/therapy/exercises/{id}", rt.Therapy.GetExercise).Methods("GET")
	protected.HandleFunc("/therapy/exercises/{id}/complete", rt.Therapy.CompleteExercise).Methods("POST")
	protected.HandleFunc("/therapy/completed-exercises", rt.Therapy.ListCompletedExercises).Methods("GET")
	protected.HandleFunc("/therapy/daily-prompts", rt.Therapy.ListDailyPrompts).Methods("GET")
	protected.HandleFunc("/therapy/daily-prompts/today", rt.Therapy.TodayPrompt).Methods("GET")
	protected.HandleFunc("/therapy/achievements", rt.Therapy.ListAchievements).Methods("GET")
	protected.HandleFunc("/therapy/achievements/{id}", rt.Therapy.GetAchievement).Methods("GET")
	protected.HandleFunc("/therapy/progress", rt.Therapy.GetProgress).Methods("GET")

	protected.HandleFunc("/mood/entries", rt.Mood.ListEntries).Methods("GET")
	protected.HandleFunc("/mood/entries", rt.Mood.CreateEntry).Methods("POST")
	protected.HandleFunc("/mood/entries/{id}", rt.Mood.GetEntry).Methods("GET")
	protected.HandleFunc("/mood/entries/{id}", rt.Mood.UpdateEntry).Methods("PUT", "PATCH")
	protected.HandleFunc("/mood/entries/{id}", rt.Mood.DeleteEntry).Methods("DELETE")
	protected.HandleFunc("/mood/today", rt.Mood.Today).Methods("GET")
	protected.HandleFunc("/mood/history", rt.Mood.History).Methods("GET")
	protected.HandleFunc("/mood/stats", rt.Mood.Stats).Methods("GET")

	protected.HandleFunc("/breathing/techniques", rt.Breathing.ListTechniques).Methods("GET")
	protected.HandleFunc("/breathing/techniques/recommended", rt.Breathing.Recommended).Methods("GET")
	protected.HandleFunc("/breathing/techniques/{id}", rt.Breathing.GetTechnique).Methods("GET")
	protected.HandleFunc("/breathing/sessions", rt.Breathing.ListSessions).Methods("GET")
	protected.HandleFunc("/breathing/sessions", rt.Breathing.CreateSession).Methods("POST")
	protected.HandleFunc("/breathing/sessions/{id}", rt.Breathing.GetSession).Methods("GET")
	protected.HandleFunc("/breathing/history", rt.Breathing.History).Methods("GET")

	protected.HandleFunc("/chat/sessions", rt.Chat.ListSessions).Methods("GET")
	protected.HandleFunc("/chat/sessions", rt.Chat.CreateSession).Methods("POST")
	protected.HandleFunc("/chat/sessions/{id}", rt.Chat.GetSession).Methods("GET")
	protected.HandleFunc("/chat/sessions/{id}", rt.Chat.UpdateSession).Methods("PUT")
	protected.HandleFunc("/chat/sessions/{id}", rt.Chat.DeleteSession).Methods("DELETE")
	protected.HandleFunc("/chat/sessions/{id}/send_message", rt.Chat.SendMessage).Methods("POST")
	protected.HandleFunc("/chat/sessions/{id}/messages", rt.Chat.Messages).Methods("GET")
	protected.HandleFunc("/chat/ai-prompts", rt.Chat.Prompts).Methods("GET")

	protected.HandleFunc("/notifications/register-device", rt.Notifications.RegisterDevice).Methods("POST")
	protected.HandleFunc("/notifications/register-device", rt.Notifications.UnregisterDevice).Methods("DELETE")
}
