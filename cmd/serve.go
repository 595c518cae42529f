package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oregrid/facility-cli/internal/model"
	"github.com/oregrid/facility-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only review API for relationships and facilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		facilities, err := openFacilityStore(cfg)
		if err != nil {
			return err
		}
		rels, err := openRelationshipStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer rels.Close()

		r := newReviewRouter(facilities, rels)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down review API")
			_ = srv.Close()
		}()

		zap.L().Info("review API listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

// newReviewRouter builds the read-only review API over the facility and
// relationship stores.
func newReviewRouter(facilities store.FacilityStore, rels store.RelationshipStore) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/relationships", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()

		gate := model.Gate(q.Get("gate"))
		if q.Get("gate") != "" && !gate.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid gate"})
			return
		}
		minConf := 0.0
		if s := q.Get("min_confidence"); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid min_confidence"})
				return
			}
			minConf = v
		}

		rows, err := rels.List(req.Context(), store.RelationshipFilter{
			FacilityID:    q.Get("facility_id"),
			Gate:          gate,
			MinConfidence: minConf,
		})
		if err != nil {
			zap.L().Error("serve: list relationships", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
			return
		}
		if rows == nil {
			rows = []model.Relationship{}
		}
		writeJSON(w, http.StatusOK, rows)
	})

	r.Get("/facilities/{id}", func(w http.ResponseWriter, req *http.Request) {
		rec, err := facilities.Get(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			zap.L().Error("serve: get facility", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
			return
		}
		if rec == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
