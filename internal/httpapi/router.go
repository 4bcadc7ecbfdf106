package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAdvisorRoutes 注册调度顾问路由
func (r *Router) RegisterAdvisorRoutes(h *AdvisorHandler) {
	// batches
	r.Handle("/api/v1/batches", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.ListBatches(w, req)
		case http.MethodPost:
			h.AddBatch(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// batches/{id} 与 batches/{id}/{action}
	r.Handle("/api/v1/batches/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/api/v1/batches/")
		parts := strings.Split(rest, "/")

		switch {
		case len(parts) == 1 && parts[0] != "":
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.GetBatch(w, req, parts[0])
		case len(parts) == 2 && parts[0] != "":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.BatchAction(w, req, parts[0], parts[1])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	// zones
	r.Handle("/api/v1/zones", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListZones(w, req)
	})

	// recommendations
	r.Handle("/api/v1/recommendations", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListRecommendations(w, req)
	})

	// recommendations/{id}/{action}
	r.Handle("/api/v1/recommendations/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/api/v1/recommendations/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.RecommendationAction(w, req, parts[0], parts[1])
	})

	// metrics
	r.Handle("/api/v1/metrics", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetMetrics(w, req)
	})

	// simulation
	r.Handle("/api/v1/simulation/trigger", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.TriggerSimulation(w, req)
	})

	// inventory export
	r.Handle("/api/v1/inventory/export", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ExportInventory(w, req)
	})

	// health
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
