package httpapi

import (
	"net/http"
	"time"

	"wisefleet-dashboard/internal/service"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const liveWriteTimeout = 10 * time.Second

// LiveFeedHandler 车队视图的 WebSocket 推送。
// 连接建立后先收到一帧当前视图（若已有），之后每次视图刷新推一帧；
// 慢客户端只会丢中间帧，最新帧总会送达。
type LiveFeedHandler struct {
	engine   *service.FleetViewEngine
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewLiveFeedHandler(engine *service.FleetViewEngine, logger *zap.Logger) *LiveFeedHandler {
	return &LiveFeedHandler{
		engine: engine,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 8192,
			CheckOrigin: func(r *http.Request) bool {
				// 仪表盘前端与 API 不同源，放行全部来源
				return true
			},
		},
	}
}

func (h *LiveFeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	defer conn.Close()

	views, unregister := h.engine.Watch()
	defer unregister()

	h.logger.Info("live feed client connected",
		zap.String("remote_addr", r.RemoteAddr),
	)

	// 读循环只为感知断连，收到的消息一律丢弃
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			h.logger.Info("live feed client disconnected",
				zap.String("remote_addr", r.RemoteAddr),
			)
			return
		case view, ok := <-views:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := conn.WriteJSON(view); err != nil {
				h.logger.Warn("live feed write failed",
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				return
			}
		}
	}
}
