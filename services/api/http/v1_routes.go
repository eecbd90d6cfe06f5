package http

import "golang.org/x/time/rate"

// registerV1Routes sets up the v1 API
// Groups: /api/v1/stations, /api/v1/dashboard, /api/v1/comments, /api/v1/users
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware()) // Add X-API-Version: v1 header

	v1.GET("/stations/with-data", s.handleV1StationsWithData)

	// Dashboard endpoints, rate limited per client IP
	dashboards := v1.Group("/dashboard")
	if s.cfg.DashboardRatePerMin > 0 {
		perSecond := rate.Limit(float64(s.cfg.DashboardRatePerMin) / 60)
		dashboards.Use(NewRateLimiter(perSecond, max(s.cfg.DashboardRatePerMin/10, 1)).Middleware())
	}
	{
		dashboards.GET("/:station", s.handleV1Dashboard)
		dashboards.GET("/:station/flexible", s.handleV1FlexibleDashboard)
	}

	comments := v1.Group("/comments")
	{
		comments.GET("", s.handleV1ListComments)
		comments.POST("", s.handleV1CreateComment)
		comments.GET("/:id", s.handleV1GetComment)
		comments.DELETE("/:id", s.handleV1DeleteComment)
	}

	v1.POST("/users/login", s.handleV1Login)
}
