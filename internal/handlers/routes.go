package handlers

import "net/http"

// RegisterRoutes wires the quiz routes onto mux
func RegisterRoutes(mux *http.ServeMux, m *Middleware, quizHandler *QuizHandler, healthHandler *HealthHandler) {
	mux.HandleFunc("GET /healthz", healthHandler.Health)

	mux.HandleFunc("GET /{$}", m.RequireSession(quizHandler.Home))
	mux.HandleFunc("GET /quiz/images/{id}", m.RequireSession(quizHandler.Image))
	mux.HandleFunc("GET /quiz/samples/{key}", quizHandler.Sample)
	mux.HandleFunc("GET /challenge/{token}", m.RequireSession(quizHandler.ApplyChallenge))

	mux.HandleFunc("POST /quiz/configure", m.RequireSession(m.RateLimit(m.CSRFProtect(quizHandler.Configure))))
	mux.HandleFunc("POST /quiz/visualize", m.RequireSession(m.RateLimit(m.CSRFProtect(quizHandler.Visualize))))
	mux.HandleFunc("POST /quiz/guess", m.RequireSession(m.RateLimit(m.CSRFProtect(quizHandler.Guess))))
	mux.HandleFunc("POST /quiz/reset", m.RequireSession(m.CSRFProtect(quizHandler.Reset)))
	mux.HandleFunc("POST /quiz/challenge", m.RequireSession(m.CSRFProtect(quizHandler.Challenge)))
	mux.HandleFunc("POST /quiz/summary", m.RequireSession(m.RateLimit(m.CSRFProtect(quizHandler.Summary))))
}
