package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gewaesserguete/digitale-gewaesserguete/services/api/dashboard"
)

// statusClientClosedRequest is logged when the caller went away mid-render.
const statusClientClosedRequest = 499

// headroom on top of the engine timeout for the snapshot queries
const dashboardQueryBudget = 15 * time.Second

type stationURI struct {
	Station string `uri:"station" binding:"required,stationid"`
}

type flexibleQuery struct {
	Start string `form:"start" binding:"omitempty,isodate"`
	End   string `form:"end" binding:"omitempty,isodate"`
}

// handleV1Dashboard renders the dashboard over the full available history
// GET /api/v1/dashboard/:station
func (s *Server) handleV1Dashboard(c *gin.Context) {
	var uri stationURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid station id"})
		return
	}

	s.renderDashboard(c, dashboard.Request{StationID: uri.Station})
}

// handleV1FlexibleDashboard renders the dashboard with the time-range selector
// GET /api/v1/dashboard/:station/flexible?start=YYYY-MM-DD&end=YYYY-MM-DD
func (s *Server) handleV1FlexibleDashboard(c *gin.Context) {
	var uri stationURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid station id"})
		return
	}

	var q flexibleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end must be YYYY-MM-DD dates"})
		return
	}

	req := dashboard.Request{StationID: uri.Station, Flexible: true}
	switch {
	case q.Start == "" && q.End == "":
	case q.Start == "" || q.End == "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end must be given together"})
		return
	default:
		r, err := dashboard.ParseDateRange(q.Start, q.End)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.Range = &r
	}

	s.renderDashboard(c, req)
}

func (s *Server) renderDashboard(c *gin.Context, req dashboard.Request) {
	ctx := c.Request.Context()
	if s.cfg.DashboardTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DashboardTimeout+dashboardQueryBudget)
		defer cancel()
	}

	res, err := s.deps.Dashboards.Generate(ctx, req)
	if err != nil {
		s.dashboardError(c, req.StationID, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Header("X-Dashboard-Period", res.Period.Start()+"/"+res.Period.End())
	if res.NoData {
		c.Header("X-Dashboard-Status", "no-data")
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(res.HTML))
}

func (s *Server) dashboardError(c *gin.Context, stationID string, err error) {
	var toolErr *dashboard.ExternalToolError

	switch {
	case errors.Is(err, dashboard.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, dashboard.ErrDataUnavailable):
		c.JSON(http.StatusNotFound, gin.H{"error": "station not found", "station": stationID})
	case errors.Is(err, dashboard.ErrBusy):
		c.Header("Retry-After", "30")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dashboard renderer busy, try again later"})
	case errors.Is(err, dashboard.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "dashboard generation timed out"})
	case errors.Is(err, context.Canceled):
		c.AbortWithStatus(statusClientClosedRequest)
	case errors.As(err, &toolErr):
		body := gin.H{"error": "dashboard engine failed"}
		if s.cfg.ExposeToolErrors {
			body["details"] = toolErr.Stderr
			body["exit_code"] = toolErr.ExitCode
		}
		c.JSON(http.StatusBadGateway, body)
	case errors.Is(err, dashboard.ErrQueryFailed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "station data could not be loaded"})
	default:
		s.log.Error("dashboard failed", "station", stationID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dashboard generation failed"})
	}
}
