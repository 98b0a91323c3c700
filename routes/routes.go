package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"

	"github.com/futsal-hq/match-tracker/handlers"
	"github.com/futsal-hq/match-tracker/middleware"
)

// SetupRoutes собирает весь HTTP-интерфейс трекера: публичные маршруты
// для просмотра, WebSocket для зрителей и защищённую консоль оператора.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret []byte,
	authHandler *handlers.AuthHandler,
	teamHandler *handlers.TeamHandler,
	playerHandler *handlers.PlayerHandler,
	matchHandler *handlers.MatchHandler,
	liveHandler *handlers.LiveMatchHandler,
	wsHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Post("/auth/login", authHandler.Login)

	// Зрителям трансляция доступна без авторизации.
	router.Get("/ws/matches/{matchID}", wsHandler.ServeWs)

	router.Route("/teams", func(r chi.Router) {
		r.Get("/", teamHandler.ListTeams)
		r.Get("/{teamID}", teamHandler.GetTeamByID)
		r.Get("/{teamID}/players", teamHandler.ListTeamPlayers)
		r.Get("/{teamID}/matches", matchHandler.ListTeamMatches)

		// Защищённые маршруты только для оператора
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize("operator"))

			r.Post("/", teamHandler.CreateTeam)
			r.Delete("/{teamID}", teamHandler.DeleteTeam)
			r.Post("/{teamID}/crest", teamHandler.UploadCrest)
		})
	})

	router.Route("/players", func(r chi.Router) {
		r.Get("/", playerHandler.ListPlayers)
		r.Get("/{playerID}", playerHandler.GetPlayerByID)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize("operator"))

			r.Post("/", playerHandler.CreatePlayer)
			r.Put("/{playerID}", playerHandler.UpdatePlayer)
			r.Delete("/{playerID}", playerHandler.DeletePlayer)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/", matchHandler.ListMatches)
		r.Get("/{matchID}", matchHandler.GetMatchByID)
		r.Get("/{matchID}/events", matchHandler.ListMatchEvents)
		r.Get("/{matchID}/stats", matchHandler.ListMatchStats)
		r.Get("/{matchID}/summary", matchHandler.GetMatchSummary)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize("operator"))

			r.Post("/", matchHandler.CreateMatch)
			r.Delete("/{matchID}", matchHandler.DeleteMatch)

			// Консоль оператора: live-операции над идущим матчем.
			r.Post("/{matchID}/start", liveHandler.StartMatch)
			r.Post("/{matchID}/timer", liveHandler.ToggleTimer)
			r.Post("/{matchID}/clock", liveHandler.AdvanceClock)
			r.Post("/{matchID}/goals", liveHandler.RecordGoal)
			r.Post("/{matchID}/cards", liveHandler.RecordCard)
			r.Post("/{matchID}/events", liveHandler.RecordEvent)
			r.Post("/{matchID}/substitutions", liveHandler.Substitute)
			r.Post("/{matchID}/halftime", liveHandler.ApplyHalftimeChanges)
			r.Post("/{matchID}/next-half", liveHandler.StartNextHalf)
			r.Post("/{matchID}/end", liveHandler.EndMatch)
		})
	})
}
