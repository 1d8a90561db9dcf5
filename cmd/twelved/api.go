package main

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/anuragxone/twelve-remix/internal/infra/mpd"
	"github.com/anuragxone/twelve-remix/internal/media"
	"github.com/anuragxone/twelve-remix/internal/provider"
	"github.com/anuragxone/twelve-remix/internal/repository"
	"github.com/anuragxone/twelve-remix/internal/resumption"
	"github.com/anuragxone/twelve-remix/internal/version"
)

type providerJSON struct {
	Kind     string `json:"kind"`
	Instance int64  `json:"instance"`
	Name     string `json:"name"`
}

type addProviderRequest struct {
	Kind string            `json:"kind"`
	Name string            `json:"name"`
	Args map[string]string `json:"args"`
}

type resumptionRequest struct {
	Queue      []string `json:"queue"`
	Index      int      `json:"index"`
	PositionMs int64    `json:"positionMs"`
}

// registerAPI wires the REST surface. The API is a thin management layer:
// listing and CRUD of providers, navigation selection and the resumption
// queue. Browsing itself happens over the repository's watch streams and is
// consumed in-process by player frontends.
func registerAPI(mux *http.ServeMux, repo *repository.Repository, mgr *resumption.Manager, mpdClient *mpd.Client) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := mpdClient.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","mpd":"disconnected"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","mpd":"connected"}`))
	})

	mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, version.GetInfo())
	})

	mux.HandleFunc("/api/v1/providers", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			var out []providerJSON
			for _, p := range repo.AllVisibleProviders() {
				out = append(out, providerJSON{
					Kind:     p.Identifier.Kind.String(),
					Instance: p.Identifier.InstanceID,
					Name:     p.Name,
				})
			}
			if out == nil {
				out = []providerJSON{}
			}
			writeJSON(w, http.StatusOK, out)

		case http.MethodPost:
			var req addProviderRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			kind, err := provider.ParseKind(req.Kind)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			id, err := repo.AddProvider(kind, req.Name, req.Args)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			writeJSON(w, http.StatusCreated, providerJSON{
				Kind:     id.Kind.String(),
				Instance: id.InstanceID,
				Name:     req.Name,
			})

		case http.MethodDelete:
			id, err := identifierFromQuery(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := repo.DeleteProvider(id); err != nil {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/providers/status", func(w http.ResponseWriter, r *http.Request) {
		id, err := identifierFromQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		res := repo.ProviderStatus(r.Context(), id)
		fields, ok := res.Get()
		if !ok {
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"error": res.Kind().String(),
			})
			return
		}
		writeJSON(w, http.StatusOK, fields)
	})

	mux.HandleFunc("/api/v1/navigation", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			id := repo.NavigationProvider()
			writeJSON(w, http.StatusOK, providerJSON{
				Kind:     id.Kind.String(),
				Instance: id.InstanceID,
			})

		case http.MethodPost:
			id, err := identifierFromQuery(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := repo.SetNavigationProvider(id); err != nil {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/resumption", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, mgr.Current())

		case http.MethodPost:
			var req resumptionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			queue := make([]media.URI, len(req.Queue))
			for i, u := range req.Queue {
				queue[i] = media.URI(u)
			}
			if err := mgr.SetQueue(queue, req.Index, req.PositionMs); err != nil {
				log.Error().Err(err).Msg("Failed to persist resumption queue")
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		case http.MethodDelete:
			if err := mgr.Clear(); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}
