package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Herranzzz/estado/config"
	"github.com/Herranzzz/estado/syncer"
	"github.com/go-chi/chi/v5"
	"github.com/riandyrn/otelchi"
	"github.com/rs/zerolog/log"
)

const applicationJSON = "application/json"

type Routing struct {
	ServerName   string
	ParentRouter chi.Router

	AppConfig config.ApplicationConfiguration
	Syncer    *syncer.Syncer
}

func (rtr *Routing) SetupFunctionalRoutes(r chi.Router) error {
	if e := rtr.enableOTelForRouter(r); e != nil {
		return e
	}

	r.Post("/sync", rtr.dispatchSyncHandler())
	r.Get("/sync/last", rtr.lastReportHandler())

	return nil
}

// dispatchSyncHandler The manual trigger: runs a sync to completion and returns its report.
// A trigger arriving while a run is active gets a 409, not a queued run.
func (rtr *Routing) dispatchSyncHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info().Msg("Sync triggered via manual dispatch")

		report, err := rtr.Syncer.Run(r.Context())
		if err != nil {
			if errors.Is(err, syncer.ErrSyncInProgress) {
				rtr.writeError(w, http.StatusConflict, err)
			} else {
				rtr.writeError(w, http.StatusInternalServerError, err)
			}
			return
		}

		rtr.writeJson(w, http.StatusAccepted, report)
	}
}

func (rtr *Routing) lastReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := rtr.Syncer.LastReport()
		if report == nil {
			rtr.writeError(w, http.StatusNotFound, errors.New("no sync has completed yet"))
			return
		}

		rtr.writeJson(w, http.StatusOK, report)
	}
}

func (rtr *Routing) writeJson(w http.ResponseWriter, statusCode int, val interface{}) {
	bs, err := json.Marshal(val)
	if err != nil {
		rtr.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", applicationJSON)
	w.WriteHeader(statusCode)
	_, _ = w.Write(bs)
}

func (rtr *Routing) writeError(w http.ResponseWriter, statusCode int, err error) {
	w.Header().Set("Content-Type", applicationJSON)
	w.WriteHeader(statusCode)

	info := map[string]interface{}{"message": err.Error()}
	_ = json.NewEncoder(w).Encode(info)

	log.Error().Err(err).Stack().Msg("Response error")
}

func (rtr *Routing) enableOTelForRouter(r chi.Router) error {
	if !rtr.AppConfig.Tracing.Enabled {
		return nil
	}

	if rtr.ServerName == "" || rtr.ParentRouter == nil {
		return errors.New("OTel not configured")
	}

	r.Use(otelchi.Middleware(rtr.ServerName, otelchi.WithChiRoutes(rtr.ParentRouter)))

	log.Info().Msgf("OpenTelemetry trace is enabled")
	return nil
}
