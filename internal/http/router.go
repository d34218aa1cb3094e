package httpapi

import (
	"net/http"

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

// HandleHandler 支持 http.Handler 接口（用于 pprof 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAimsRoutes 注册 AIMS 网关路由（站点/租户维度的厂家操作）
func (r *Router) RegisterAimsRoutes(h *AimsHandler) {
	r.Handle("/aims/api/v1/stores/", h.ServeHTTP)
	r.Handle("/aims/api/v1/companies/", h.ServeHTTP)
}

// RegisterAdminTenantRoutes：Tenant management（platform-level）+ AIMS 对接配置
func (r *Router) RegisterAdminTenantRoutes(h *TenantsHandler) {
	r.Handle("/admin/api/v1/tenants", h.ServeHTTP)
	r.Handle("/admin/api/v1/tenants/", h.ServeHTTP)
}

// RegisterAdminSpaceRoutes：站点 + 空间管理
func (r *Router) RegisterAdminSpaceRoutes(h *SpacesHandler) {
	r.Handle("/admin/api/v1/stores", h.ServeHTTP)
	r.Handle("/admin/api/v1/stores/", h.ServeHTTP)
	r.Handle("/admin/api/v1/spaces/", h.ServeHTTP)
}

// RegisterHealthRoute 进程存活探针（不触发任何厂家调用）
func (r *Router) RegisterHealthRoute() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})
}
