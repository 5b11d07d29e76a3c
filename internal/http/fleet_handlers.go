package httpapi

import (
	"errors"
	"net/http"

	"wisefleet-dashboard/internal/domain"
	"wisefleet-dashboard/internal/fleet"
	"wisefleet-dashboard/internal/service"

	"go.uber.org/zap"
)

// FleetHandler 车队视图 API Handler
type FleetHandler struct {
	engine    *service.FleetViewEngine
	vinClient *service.VINClient // 可为 nil，未配置时 VIN 预填不可用
	logger    *zap.Logger
}

// NewFleetHandler 创建车队 Handler
func NewFleetHandler(engine *service.FleetViewEngine, vinClient *service.VINClient, logger *zap.Logger) *FleetHandler {
	return &FleetHandler{
		engine:    engine,
		vinClient: vinClient,
		logger:    logger,
	}
}

// ListVehicles 返回当前有序视图 + 统计 + 逐车派生块
// 分页在排序之后进行，limit=0 表示不截断
func (h *FleetHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	view := h.engine.View()
	if view == nil {
		// 首份快照尚未到达，返回空视图而不是错误
		writeJSON(w, http.StatusOK, Ok(map[string]any{
			"vehicles":   []service.VehicleView{},
			"stats":      fleet.Stats{},
			"generation": 0,
			"pagination": map[string]any{"total": 0, "limit": 0, "offset": 0},
		}))
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), 0)
	offset := parseInt(r.URL.Query().Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	vehicles := view.Vehicles
	total := len(vehicles)
	if offset > total {
		offset = total
	}
	vehicles = vehicles[offset:]
	if limit > 0 && limit < len(vehicles) {
		vehicles = vehicles[:limit]
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"vehicles":   vehicles,
		"stats":      view.Stats,
		"generation": view.Generation,
		"updated_at": view.UpdatedAt,
		"pagination": map[string]any{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	}))
}

// GetVehicle 按 id 返回单条记录 + 派生块
func (h *FleetHandler) GetVehicle(w http.ResponseWriter, r *http.Request, vehicleID string) {
	view := h.engine.View()
	if view == nil {
		writeJSON(w, http.StatusOK, Fail("fleet view not ready"))
		return
	}

	for i := range view.Vehicles {
		if view.Vehicles[i].ID == vehicleID {
			writeJSON(w, http.StatusOK, Ok(view.Vehicles[i]))
			return
		}
	}
	writeJSON(w, http.StatusOK, Fail("vehicle not found"))
}

// CreateVehicle 校验草稿后写入存储。
// 校验失败只返回包络错误（带规则名），不产生任何插入。
func (h *FleetHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var draft domain.VehicleDraft
	if err := readBodyJSON(r, 1<<20, &draft); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid request body"))
		return
	}

	normalized, err := fleet.ValidateDraft(draft)
	if err != nil {
		var ve *fleet.ValidationError
		if errors.As(err, &ve) {
			h.logger.Warn("vehicle draft rejected",
				zap.String("rule", ve.Rule),
				zap.String("field", ve.Field),
			)
		}
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	id, err := h.engine.Insert(r.Context(), normalized)
	if err != nil {
		h.logger.Error("failed to insert vehicle", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"vehicle_id": id}))
}

type seedRequest struct {
	Vehicles []domain.VehicleDraft `json:"vehicles"`
}

// SeedVehicles 批量播种。部分成功时返回错误包络，同时带上已插入条数。
func (h *FleetHandler) SeedVehicles(w http.ResponseWriter, r *http.Request) {
	var req seedRequest
	if err := readBodyJSON(r, 4<<20, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid request body"))
		return
	}
	if len(req.Vehicles) == 0 {
		writeJSON(w, http.StatusOK, Fail("no vehicles to seed"))
		return
	}

	inserted, err := h.engine.Seed(r.Context(), req.Vehicles)
	if err != nil {
		h.logger.Error("seed failed",
			zap.Int("inserted", inserted),
			zap.Int("total", len(req.Vehicles)),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, FailWith(err.Error(), map[string]any{
			"inserted": inserted,
			"total":    len(req.Vehicles),
		}))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"inserted": inserted,
		"total":    len(req.Vehicles),
	}))
}

// GetStats 仅返回聚合统计
func (h *FleetHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	view := h.engine.View()
	if view == nil {
		writeJSON(w, http.StatusOK, Ok(fleet.Stats{}))
		return
	}
	writeJSON(w, http.StatusOK, Ok(view.Stats))
}

// DecodeVIN VIN 解码透传（表单预填辅助）
func (h *FleetHandler) DecodeVIN(w http.ResponseWriter, r *http.Request, vin string) {
	if h.vinClient == nil {
		writeJSON(w, http.StatusOK, Fail("vin decoder not configured"))
		return
	}

	details, err := h.vinClient.Decode(r.Context(), vin)
	if err != nil {
		h.logger.Warn("vin decode failed", zap.String("vin", vin), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(details))
}

// Healthz 存活探针，附带引擎健康快照
func (h *FleetHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.engine.Health()))
}
