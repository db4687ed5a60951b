package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// NewEcho builds the server with validation, panic recovery and zap
// request logging.
func NewEcho(log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.String("route", v.RoutePath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	}))
	return e
}

type Handlers struct {
	Health        *Handler
	Groups        *GroupHandler
	Contributions *ContributionHandler
	Loans         *LoanHandler
}

type commandRoutes struct {
	e  *echo.Echo
	mw []echo.MiddlewareFunc
}

func (r commandRoutes) POST(path string, h echo.HandlerFunc)   { r.e.POST(path, h, r.mw...) }
func (r commandRoutes) PUT(path string, h echo.HandlerFunc)    { r.e.PUT(path, h, r.mw...) }
func (r commandRoutes) DELETE(path string, h echo.HandlerFunc) { r.e.DELETE(path, h, r.mw...) }

// Register mounts every route. commands wraps the mutating routes, e.g.
// with the idempotency middleware.
func Register(e *echo.Echo, h Handlers, commands ...echo.MiddlewareFunc) {
	e.GET("/health", h.Health.Health)

	cmd := commandRoutes{e: e, mw: commands}

	e.GET("/groups/:group_id", h.Groups.GetGroup)
	e.GET("/groups/:group_id/summary", h.Groups.GetSummary)
	e.GET("/groups/:group_id/members", h.Groups.ListMembers)
	cmd.POST("/groups", h.Groups.CreateGroup)
	cmd.POST("/groups/:group_id/members", h.Groups.AddMember)
	cmd.DELETE("/groups/:group_id/members/:member_id", h.Groups.RemoveMember)
	cmd.PUT("/groups/:group_id/loan-settings", h.Groups.UpdateLoanSettings)
	cmd.PUT("/groups/:group_id/status", h.Groups.ChangeStatus)
	cmd.POST("/groups/:group_id/reconcile", h.Groups.Reconcile)

	e.GET("/groups/:group_id/members/:member_id/contributions", h.Contributions.MemberStatus)
	e.GET("/groups/:group_id/contributions/overdue", h.Contributions.ListOverdue)
	cmd.POST("/groups/:group_id/cycles", h.Contributions.RequestCycle)
	cmd.POST("/contributions/:contribution_id/payments", h.Contributions.RecordPayment)

	e.GET("/groups/:group_id/loans", h.Loans.ListActive)
	e.GET("/groups/:group_id/members/:member_id/eligibility", h.Loans.Eligibility)
	e.GET("/loans/:loan_id", h.Loans.GetLoan)
	e.GET("/loans/:loan_id/votes", h.Loans.ListVotes)
	cmd.POST("/groups/:group_id/loans", h.Loans.RequestLoan)
	cmd.POST("/loans/:loan_id/votes", h.Loans.CastVote)
	cmd.POST("/loans/:loan_id/decision", h.Loans.Decide)
	cmd.POST("/loans/:loan_id/activate", h.Loans.Activate)
	cmd.POST("/loans/:loan_id/repayments", h.Loans.Repay)
	cmd.POST("/loans/:loan_id/cancel", h.Loans.Cancel)
}
