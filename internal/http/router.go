package httpapi

import (
	"net/http"
	"strings"

	"wisefleet-dashboard/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
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

// HandleHandler 支持 http.Handler 接口（用于 websocket、metrics 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterFleetRoutes 注册与仪表盘前端对齐的车队路由
func (r *Router) RegisterFleetRoutes(h *FleetHandler) {
	// list / create
	r.Handle("/fleet/api/v1/vehicles", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.ListVehicles(w, req)
		case http.MethodPost:
			h.CreateVehicle(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// vehicles/{id} 以及 export / seed / import 子路径
	r.Handle("/fleet/api/v1/vehicles/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/fleet/api/v1/vehicles/")
		switch rest {
		case "export":
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.ExportVehicles(w, req)
		case "seed":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.SeedVehicles(w, req)
		case "import":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.ImportVehicles(w, req)
		default:
			if rest == "" || strings.Contains(rest, "/") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.GetVehicle(w, req, rest)
		}
	})

	// stats
	r.Handle("/fleet/api/v1/stats", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetStats(w, req)
	})

	// vin/{vin} 预填解码
	r.Handle("/fleet/api/v1/vin/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		vin := strings.TrimPrefix(req.URL.Path, "/fleet/api/v1/vin/")
		if vin == "" || strings.Contains(vin, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.DecodeVIN(w, req, vin)
	})

	// health
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Healthz(w, req)
	})
}

// RegisterLiveRoutes 注册 WebSocket 实时推送路由
func (r *Router) RegisterLiveRoutes(h *LiveFeedHandler) {
	r.HandleHandler("/fleet/api/v1/live", h)
}

// RegisterMetricsRoute 暴露 Prometheus 指标
func (r *Router) RegisterMetricsRoute() {
	metrics.RegisterMetrics()
	r.HandleHandler("/metrics", promhttp.Handler())
}
