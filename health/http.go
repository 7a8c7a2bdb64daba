package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Response is the JSON body of the detailed health endpoint.
type Response struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Checks    map[string]CheckResponse `json:"checks,omitempty"`
}

// CheckResponse is the JSON form of one check.
type CheckResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func httpStatus(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Liveness reports that the process is serving requests.
func Liveness() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}

// Readiness runs every check and answers OK, DEGRADED or UNHEALTHY.
func Readiness(agg *Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := agg.CheckAll(c.Request.Context())
		body := "OK"
		switch report.Status {
		case StatusDegraded:
			body = "DEGRADED"
		case StatusUnhealthy:
			body = "UNHEALTHY"
		}
		c.String(httpStatus(report.Status), body)
	}
}

// Detailed runs every check and returns a Response.
func Detailed(agg *Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := agg.CheckAll(c.Request.Context())
		resp := Response{
			Status:    report.Status.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]CheckResponse, len(report.Results)),
		}
		for name, r := range report.Results {
			check := CheckResponse{
				Status:   r.Status.String(),
				Message:  r.Message,
				Duration: r.Duration.String(),
				Details:  r.Details,
			}
			if r.Error != nil {
				check.Error = r.Error.Error()
			}
			resp.Checks[name] = check
		}
		c.JSON(httpStatus(report.Status), resp)
	}
}

// RegisterRoutes mounts /healthz, /readyz and /health.
func RegisterRoutes(r gin.IRoutes, agg *Aggregator) {
	r.GET("/healthz", Liveness())
	r.GET("/readyz", Readiness(agg))
	r.GET("/health", Detailed(agg))
}
