package main

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/httputil"
	"github.com/AdamBeresnev/bracket-engine/internal/live"
	"github.com/AdamBeresnev/bracket-engine/internal/middleware"
	"github.com/AdamBeresnev/bracket-engine/internal/service"
	"github.com/AdamBeresnev/bracket-engine/views"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type app struct {
	db             *sqlx.DB
	tournaments    *service.TournamentService
	matches        *service.MatchService
	hub            *live.Hub
	jwtSecret      []byte
	allowedOrigins []string
	gatherer       prometheus.Gatherer
}

type createTournamentInput struct {
	Name                 string     `json:"name"`
	Game                 string     `json:"game"`
	MaxTeams             int        `json:"max_teams"`
	MaxPlayers           int        `json:"max_players"`
	StartDate            *time.Time `json:"start_date"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
}

type registerInput struct {
	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id"`
}

type registrationStatusInput struct {
	Status bracket.RegistrationStatus `json:"status"`
}

type reportInput struct {
	WinnerID      string `json:"winner_id"`
	ScoreA        int    `json:"score_a"`
	ScoreB        int    `json:"score_b"`
	Details       string `json:"details"`
	Authoritative bool   `json:"authoritative"`
}

type statusResponse struct {
	Complete bool   `json:"complete"`
	WinnerID string `json:"winner_id,omitempty"`
}

func newRouter(a *app) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.NotFound(w, "Route not found", nil)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.db.PingContext(r.Context()); err != nil {
			httputil.InternalServerError(w, "Database ping failed", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	r.Get("/tournaments/{id}/live", live.NewHandler(a.hub, a.allowedOrigins).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(a.jwtSecret))

		r.Get("/tournaments/{id}/bracket", func(w http.ResponseWriter, r *http.Request) {
			id, ok := uuidParam(w, r, "id")
			if !ok {
				return
			}

			b, err := a.tournaments.GetBracket(r.Context(), id)
			if err != nil {
				httputil.Error(w, "Failed to get bracket", err)
				return
			}

			if strings.Contains(r.Header.Get("Accept"), "text/html") {
				tournament, err := a.tournaments.GetTournament(r.Context(), id)
				if err != nil {
					httputil.Error(w, "Failed to get tournament", err)
					return
				}
				if err := views.Render(w, r, views.BracketPage(tournament.Name, b)); err != nil {
					httputil.InternalServerError(w, "Failed to render bracket", err)
				}
				return
			}
			writeJSON(w, http.StatusOK, b)
		})

		r.Get("/tournaments/{id}/status", func(w http.ResponseWriter, r *http.Request) {
			id, ok := uuidParam(w, r, "id")
			if !ok {
				return
			}

			done, winner, err := a.tournaments.IsComplete(r.Context(), id)
			if err != nil {
				httputil.Error(w, "Failed to get tournament status", err)
				return
			}
			writeJSON(w, http.StatusOK, statusResponse{Complete: done, WinnerID: winner})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Post("/tournaments", func(w http.ResponseWriter, r *http.Request) {
				claims, _ := middleware.ClaimsFromContext(r.Context())

				var in createTournamentInput
				if err := httputil.ReadJSON(w, r, &in); err != nil {
					httputil.BadRequest(w, err.Error(), err)
					return
				}

				tournament, err := a.tournaments.CreateTournament(r.Context(), service.CreateTournamentRequest{
					ActorID:              claims.Subject,
					Organizer:            claims.Organizer,
					Name:                 in.Name,
					Game:                 in.Game,
					MaxTeams:             in.MaxTeams,
					MaxPlayers:           in.MaxPlayers,
					StartDate:            in.StartDate,
					RegistrationDeadline: in.RegistrationDeadline,
				})
				if err != nil {
					httputil.Error(w, "Failed to create tournament", err)
					return
				}
				writeJSON(w, http.StatusCreated, tournament)
			})

			r.Post("/tournaments/{id}/registrations", func(w http.ResponseWriter, r *http.Request) {
				id, ok := uuidParam(w, r, "id")
				if !ok {
					return
				}

				var in registerInput
				if err := httputil.ReadJSON(w, r, &in); err != nil {
					httputil.BadRequest(w, err.Error(), err)
					return
				}

				reg, err := a.tournaments.Register(r.Context(), id, service.RegisterRequest{PlayerID: in.PlayerID, TeamID: in.TeamID})
				if err != nil {
					httputil.Error(w, "Failed to register", err)
					return
				}
				writeJSON(w, http.StatusCreated, reg)
			})

			r.Patch("/registrations/{id}", func(w http.ResponseWriter, r *http.Request) {
				claims, _ := middleware.ClaimsFromContext(r.Context())

				regID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
				if err != nil {
					httputil.BadRequest(w, "Invalid registration ID", err)
					return
				}

				var in registrationStatusInput
				if err := httputil.ReadJSON(w, r, &in); err != nil {
					httputil.BadRequest(w, err.Error(), err)
					return
				}

				reg, err := a.tournaments.SetRegistrationStatus(r.Context(), regID, in.Status, claims.Organizer)
				if err != nil {
					httputil.Error(w, "Failed to update registration", err)
					return
				}
				writeJSON(w, http.StatusOK, reg)
			})

			r.Post("/tournaments/{id}/bracket", func(w http.ResponseWriter, r *http.Request) {
				claims, _ := middleware.ClaimsFromContext(r.Context())

				id, ok := uuidParam(w, r, "id")
				if !ok {
					return
				}

				force := false
				if raw := r.URL.Query().Get("force"); raw != "" {
					var err error
					if force, err = strconv.ParseBool(raw); err != nil {
						httputil.BadRequest(w, "Invalid force flag", err)
						return
					}
				}

				b, err := a.tournaments.BuildBracket(r.Context(), id, service.BuildRequest{
					Force:     force,
					Organizer: claims.Organizer,
					ActorID:   claims.Subject,
				})
				if err != nil {
					httputil.Error(w, "Failed to build bracket", err)
					return
				}
				writeJSON(w, http.StatusCreated, b)
			})

			r.Post("/matches/{id}/result", func(w http.ResponseWriter, r *http.Request) {
				claims, _ := middleware.ClaimsFromContext(r.Context())

				id, ok := uuidParam(w, r, "id")
				if !ok {
					return
				}

				var in reportInput
				if err := httputil.ReadJSON(w, r, &in); err != nil {
					httputil.BadRequest(w, err.Error(), err)
					return
				}
				if in.Authoritative && !claims.Organizer {
					httputil.Error(w, "Authoritative report without organizer claim", bracket.ErrForbidden)
					return
				}

				m, err := a.matches.ReportResult(r.Context(), service.ReportRequest{
					MatchID:       id,
					WinnerID:      in.WinnerID,
					Scores:        bracket.Scores{A: in.ScoreA, B: in.ScoreB, Details: in.Details},
					ReporterID:    claims.Subject,
					Authoritative: in.Authoritative,
				})
				if err != nil {
					httputil.Error(w, "Failed to report result", err)
					return
				}
				writeJSON(w, http.StatusOK, m)
			})
		})
	})

	return r
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httputil.BadRequest(w, "Invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	if err := httputil.WriteJSON(w, status, data); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
