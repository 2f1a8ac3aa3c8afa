package httpapi

import (
	"net/http"

	"github.com/riskibarqy/touchline/internal/domain/event"
	"github.com/riskibarqy/touchline/internal/domain/lineup"
	"github.com/riskibarqy/touchline/internal/domain/match"
	"github.com/riskibarqy/touchline/internal/domain/player"
	"github.com/riskibarqy/touchline/internal/domain/season"
	"github.com/riskibarqy/touchline/internal/domain/team"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerSessionRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/me", handler.GetIdentity)
	mux.HandleFunc("PUT /v1/session", handler.SignIn)
	mux.HandleFunc("DELETE /v1/session", handler.SignOut)
}

func registerSyncRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/sync/status", handler.GetSyncStatus)
	mux.HandleFunc("POST /v1/sync/run", handler.RunSync)
	mux.HandleFunc("POST /v1/sync/connectivity", handler.ConnectivityRestored)
}

func registerRecordRoutes(mux *http.ServeMux, handler *Handler) {
	registerRecordCollection[team.Team](mux, handler, "teams")
	registerRecordCollection[player.Player](mux, handler, "players")
	registerRecordCollection[season.Season](mux, handler, "seasons")
	registerRecordCollection[match.Match](mux, handler, "matches")
	registerRecordCollection[event.Event](mux, handler, "events")

	mux.HandleFunc("GET /v1/seasons/current", handler.ListCurrentSeasons)
	mux.HandleFunc("PUT /v1/seasons/{id}/current", handler.SetCurrentSeason)
	mux.HandleFunc("GET /v1/teams/{id}/lineup", handler.GetDefaultLineup)
	mux.HandleFunc("PUT /v1/teams/{id}/lineup", handler.SaveDefaultLineup)

	// Lineups are written only through the singleton endpoint above.
	mux.HandleFunc("GET /v1/lineups", listRecords[lineup.DefaultLineup](handler))
}

func registerMatchRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/matches/{id}/clock", handler.GetClock)
	mux.HandleFunc("GET /v1/matches/{id}/clock/stream", handler.StreamClock)
	mux.HandleFunc("POST /v1/matches/{id}/clock/kickoff", handler.Kickoff)
	mux.HandleFunc("POST /v1/matches/{id}/clock/end-period", handler.EndPeriod)
	mux.HandleFunc("POST /v1/matches/{id}/clock/pause", handler.PauseClock)
	mux.HandleFunc("POST /v1/matches/{id}/clock/resume", handler.ResumeClock)
	mux.HandleFunc("POST /v1/matches/{id}/clock/complete", handler.CompleteMatch)
	mux.HandleFunc("GET /v1/matches/{id}/timeline", handler.GetTimeline)
}

func registerViewerRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/viewer", handler.OpenViewer)
	mux.HandleFunc("DELETE /v1/viewer", handler.CloseViewer)
	mux.HandleFunc("GET /v1/viewer/timeline", handler.GetViewerTimeline)
}
