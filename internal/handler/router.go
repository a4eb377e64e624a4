package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hostelhq/maintenance-api/internal/middleware"
	"github.com/hostelhq/maintenance-api/internal/models"
	"github.com/hostelhq/maintenance-api/internal/repository"
	"github.com/hostelhq/maintenance-api/pkg/config"
)

// Handlers bundles the HTTP surface of the API.
type Handlers struct {
	Requests    *RequestHandler
	Approvals   *ApprovalHandler
	Assignments *AssignmentHandler
	Costs       *CostHandler
	Completions *CompletionHandler
	Schedules   *ScheduleHandler
	Dashboard   *DashboardHandler
	Hostels     *HostelHandler
	Metrics     *MetricsHandler
}

// RouterDeps carries the cross-cutting wiring route registration needs.
type RouterDeps struct {
	Config *config.Config
	Audit  *repository.AuditRepository
}

// RegisterRoutes mounts every endpoint on the engine. Everything under the
// API prefix requires a bearer token; certificate downloads authenticate via
// the signed token embedded in the URL instead.
func RegisterRoutes(r *gin.Engine, deps RouterDeps, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(deps.Config.APIPrefix)

	// The signed token in the URL is the download credential; a bearer token,
	// when supplied, only attributes the audit row to an actor.
	api.GET("/certificates/download",
		middleware.OptionalJWT(deps.Config.JWT.Secret),
		middleware.Audit(deps.Audit, "CERTIFICATE_DOWNLOAD", "certificate"),
		h.Completions.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.Config.JWT.Secret))

	supervisorUp := middleware.RequireRoles(models.RoleSupervisor, models.RoleAdmin)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	requests := authed.Group("/requests")
	{
		requests.POST("", h.Requests.Create)
		requests.GET("", h.Requests.List)
		requests.GET("/export", h.Requests.Export)
		requests.GET("/:id", h.Requests.Get)
		requests.DELETE("/:id", adminOnly, h.Requests.Delete)
		requests.GET("/:id/history", h.Requests.History)
		requests.POST("/:id/transition", h.Requests.Transition)
		requests.POST("/:id/assign", supervisorUp, h.Requests.Assign)
		requests.GET("/:id/approvals", h.Approvals.ListByRequest)
		requests.GET("/:id/assignments", h.Assignments.History)
		requests.POST("/:id/reassign", supervisorUp, h.Assignments.Reassign)
		requests.POST("/:id/assignments/close", supervisorUp, h.Assignments.CloseOut)
		requests.PUT("/:id/costs", h.Costs.Record)
		requests.GET("/:id/costs", h.Costs.Get)
		requests.POST("/:id/complete", h.Completions.Complete)
		requests.GET("/:id/completion", h.Completions.GetByRequest)
	}

	approvals := authed.Group("/approvals")
	{
		approvals.GET("/overdue", h.Approvals.ListOverdue)
		approvals.GET("/:id", h.Approvals.Get)
		approvals.POST("/:id/decision", supervisorUp, h.Approvals.Decide)
		approvals.POST("/:id/escalate", supervisorUp, h.Approvals.Escalate)
	}

	costs := authed.Group("/costs")
	{
		costs.GET("/over-budget", h.Costs.ListOverBudget)
		costs.GET("/over-budget/export", h.Costs.ExportOverBudget)
	}

	completions := authed.Group("/completions")
	{
		completions.POST("/:id/quality-checks", supervisorUp, h.Completions.RecordQualityCheck)
		completions.GET("/:id/quality-checks", h.Completions.QualityChecks)
		completions.POST("/:id/certificate", supervisorUp, h.Completions.IssueCertificate)
		completions.GET("/:id/certificate", h.Completions.Certificate)
	}

	schedules := authed.Group("/schedules")
	{
		schedules.POST("", supervisorUp, h.Schedules.Create)
		schedules.GET("", h.Schedules.List)
		schedules.GET("/:id", h.Schedules.Get)
		schedules.GET("/:id/executions", h.Schedules.Executions)
		schedules.POST("/:id/executions", h.Schedules.RecordExecution)
		schedules.PATCH("/:id/active", supervisorUp, h.Schedules.SetActive)
	}

	authed.POST("/scheduler/sweep", adminOnly,
		middleware.Audit(deps.Audit, "SCHEDULE_SWEEP", "maintenance_schedule"), h.Schedules.Sweep)

	dashboard := authed.Group("/dashboard")
	{
		dashboard.GET("/overview", h.Dashboard.Overview)
		dashboard.GET("/bottlenecks", h.Dashboard.Bottlenecks)
		dashboard.POST("/invalidate", adminOnly,
			middleware.Audit(deps.Audit, "CACHE_INVALIDATE", "dashboard"), h.Dashboard.Invalidate)
	}

	hostels := authed.Group("/hostels")
	{
		hostels.GET("", h.Hostels.List)
		hostels.GET("/:id", h.Hostels.Get)
	}
}
