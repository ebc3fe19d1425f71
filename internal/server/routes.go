package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/takehome/internal/archive"
	"github.com/zulandar/takehome/internal/jobs"
	"github.com/zulandar/takehome/internal/metrics"
	"github.com/zulandar/takehome/internal/models"
	"github.com/zulandar/takehome/internal/pipeline"
)

// registerRoutes sets up all routes on the Gin router.
func registerRoutes(router *gin.Engine, d Deps) {
	router.GET("/", handleIndex(d))
	router.GET("/healthz", handleHealth())
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	api.GET("/agents", handleAgents(d))
	api.POST("/generate", handleGenerate(d))
	api.GET("/status/:id", handleStatus(d))
	api.GET("/logs/:id", handleLogs(d))
	api.GET("/jobs", handleJobs(d))
	api.GET("/events/:id", handleEvents(d))
	api.GET("/history", handleHistory(d))

	router.GET(pipeline.OutputURLPrefix+"*path", handleOutput(d.OutputRoot))
}

func handleIndex(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"agents": d.Runner.Descriptors(),
		})
	}
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func handleAgents(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "agents": d.Runner.Descriptors()})
	}
}

// generateRequest is the POST /api/generate body. Language is a pointer so an
// absent field can be told apart from an empty one.
type generateRequest struct {
	JobRole  string  `json:"job_role"`
	JobLevel string  `json:"job_level"`
	Language *string `json:"language"`
}

func handleGenerate(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body *generateRequest
		raw, err := c.GetRawData()
		if err == nil {
			err = json.Unmarshal(raw, &body)
		}
		if err != nil || body == nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No data provided"})
			return
		}

		req := models.JobRequest{JobRole: body.JobRole, JobLevel: body.JobLevel}
		if body.Language != nil {
			req.Language = *body.Language
		}

		jobID, err := d.Runner.Submit(d.JobContext, req)
		switch {
		case errors.Is(err, pipeline.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Job role and level are required"})
			return
		case errors.Is(err, jobs.ErrDuplicateJob):
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   "A job for this role and level was started this second; retry shortly",
			})
			return
		case err != nil:
			d.Logger.Error().Err(err).Msg("submit job")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"job_id":  jobID,
			"message": "Generation started",
		})
	}
}

func handleStatus(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		rec, err := d.Tracker.Get(id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success":        false,
				"error":          "Job not found",
				"job_id":         id,
				"available_jobs": d.Tracker.IDs(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "status": rec})
	}
}

func handleLogs(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := d.Tracker.Get(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Job not found"})
			return
		}
		logs := rec.Logs
		if logs == nil {
			logs = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "logs": logs, "count": len(logs)})
	}
}

func handleJobs(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "jobs": d.Tracker.List()})
	}
}

func handleHistory(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d.History == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Job history is not configured"})
			return
		}
		limit := 0
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "limit must be a non-negative integer"})
				return
			}
			limit = n
		}
		rows, err := d.History.Recent(c.Request.Context(), archive.Filter{Status: c.Query("status"), Limit: limit})
		if err != nil {
			d.Logger.Error().Err(err).Msg("list history")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		if rows == nil {
			rows = []models.JobArchive{}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "jobs": rows, "count": len(rows)})
	}
}
