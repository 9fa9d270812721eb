package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"teslacam/database"
	"teslacam/logger"
	"teslacam/services"
)

const internalError = "Internal Server Error"

// Server exposes the library over HTTP.
type Server struct {
	Library        *services.LibraryService
	HighlightLimit int
	MaxUploadBytes int64
	// UploadDir holds staged uploads; empty means the system temp dir.
	UploadDir string
}

func SetupRoutes(r *gin.Engine, srv *Server) {
	api := r.Group("/api")
	{
		api.GET("/events", srv.listEvents)
		api.GET("/events/:id", srv.getEvent)
		api.PUT("/events/:id/selection", srv.updateSelection)
		api.POST("/events/:id/playback", srv.createPlayback)
		api.GET("/events/:id/segments/:segmentID/telemetry", srv.getTelemetry)
		api.GET("/stats", srv.getStats)
		api.GET("/index", srv.searchIndex)
		api.POST("/reload", srv.reload)

		upload := api.Group("/upload")
		if srv.MaxUploadBytes > 0 {
			upload.Use(MaxBodySizeMiddleware(srv.MaxUploadBytes))
		}
		upload.POST("", srv.upload)

		media := api.Group("/media")
		media.Use(CORSMiddleware())
		media.GET("/:handle", srv.serveMedia)
		// Preflight is answered by CORSMiddleware.
		media.OPTIONS("/:handle", func(c *gin.Context) {})
	}
}

func (srv *Server) highlightLimit() int {
	if srv.HighlightLimit > 0 {
		return srv.HighlightLimit
	}
	return services.DefaultHighlightLimit
}

func (srv *Server) listEvents(c *gin.Context) {
	session := srv.Library.Session()
	filter := c.DefaultQuery("category", session.Filter())
	if !services.ValidFilter(filter) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
		return
	}

	collection := srv.Library.Collection()
	visible := session.ApplyFilter(collection, filter)
	selected := session.SelectedEvent()

	summaries := make([]EventSummary, 0, len(visible))
	for _, e := range visible {
		summaries = append(summaries, newEventSummary(e, selected))
	}
	c.JSON(http.StatusOK, gin.H{
		"filter":            filter,
		"selected_event_id": selected,
		"stats":             collection.Stats,
		"events":            summaries,
	})
}

func (srv *Server) getEvent(c *gin.Context) {
	event := srv.Library.Collection().Event(c.Param("id"))
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	session := srv.Library.Session()
	session.SelectEvent(event.ID)

	segment := services.ResolveSegment(event, session)
	if segment == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No playable segments found for this event."})
		return
	}
	camera, _ := services.ChooseDefaultCamera(event, segment, session)
	highlights := services.ChooseHighlightSegments(event, srv.highlightLimit())

	c.JSON(http.StatusOK, newEventDetail(event, segment, camera, highlights))
}

type selectionRequest struct {
	SegmentID *string `json:"segment_id"`
	Camera    *string `json:"camera"`
}

func (srv *Server) updateSelection(c *gin.Context) {
	event := srv.Library.Collection().Event(c.Param("id"))
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid selection"})
		return
	}
	session := srv.Library.Session()

	if req.SegmentID != nil {
		if event.Segment(*req.SegmentID) == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown segment"})
			return
		}
		session.SelectSegment(event.ID, *req.SegmentID)
	}

	segment := services.ResolveSegment(event, session)
	if req.Camera != nil {
		if !segment.HasCamera(*req.Camera) && !event.HasCamera(*req.Camera) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown camera"})
			return
		}
		session.SelectCamera(event.ID, *req.Camera)
	}

	camera, _ := services.ChooseDefaultCamera(event, segment, session)
	highlights := services.ChooseHighlightSegments(event, srv.highlightLimit())
	c.JSON(http.StatusOK, newEventDetail(event, segment, camera, highlights))
}

type playbackEntry struct {
	services.MediaEntry
	URL string `json:"url"`
}

func (srv *Server) createPlayback(c *gin.Context) {
	event := srv.Library.Collection().Event(c.Param("id"))
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	session := srv.Library.Session()
	segment := services.ResolveSegment(event, session)

	entries, err := srv.Library.Playback().Acquire(c.Request.Context(), segment)
	if err != nil {
		if errors.Is(err, services.ErrNoPlayableMedia) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unable to load videos for this segment."})
			return
		}
		logger.WithComponent("api").WithError(err).Error("Playback failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": internalError})
		return
	}

	active := entries[0]
	if label, ok := services.ChooseDefaultCamera(event, segment, session); ok {
		for _, e := range entries {
			if e.Label == label {
				active = e
				break
			}
		}
	}
	session.SelectCamera(event.ID, active.Label)

	out := make([]playbackEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, playbackEntry{MediaEntry: e, URL: "/api/media/" + e.Handle})
	}
	c.JSON(http.StatusOK, gin.H{
		"segment_id": segment.ID,
		"active":     active.Label,
		"entries":    out,
	})
}

func (srv *Server) serveMedia(c *gin.Context) {
	rc, clip, err := srv.Library.Playback().Open(c.Request.Context(), c.Param("handle"))
	if err != nil {
		if errors.Is(err, services.ErrHandleRevoked) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Media not found"})
			return
		}
		logger.WithComponent("api").WithError(err).Error("Failed to open media")
		c.JSON(http.StatusInternalServerError, gin.H{"error": internalError})
		return
	}
	defer rc.Close()

	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(c.Writer, c.Request, clip.Filename, time.Time{}, rs)
		return
	}
	c.DataFromReader(http.StatusOK, -1, "video/mp4", rc, nil)
}

func (srv *Server) getTelemetry(c *gin.Context) {
	event := srv.Library.Collection().Event(c.Param("id"))
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	segment := event.Segment(c.Param("segmentID"))
	if segment == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Segment not found"})
		return
	}

	telemetry, err := services.SegmentTelemetry(c.Request.Context(), segment)
	if err != nil {
		if errors.Is(err, services.ErrNoTelemetry) || errors.Is(err, services.ErrNoMdat) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No telemetry for this segment"})
			return
		}
		logger.WithComponent("api").WithError(err).Error("Telemetry extraction failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": internalError})
		return
	}

	// Without a city in event.json, the GPS fix names the place.
	location := services.FormatCoordinates(telemetry.Latitude, telemetry.Longitude)
	if md := event.Metadata; md != nil && md.City != nil && *md.City != "" {
		location = *md.City
	}
	c.JSON(http.StatusOK, gin.H{"telemetry": telemetry, "location": location})
}

func (srv *Server) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stats":  srv.Library.Collection().Stats,
		"filter": srv.Library.Session().Filter(),
	})
}

func (srv *Server) searchIndex(c *gin.Context) {
	db := srv.Library.DB
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Index unavailable"})
		return
	}
	q := database.EventQuery{
		Category: c.Query("category"),
		Reason:   c.Query("reason"),
		City:     c.Query("city"),
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		q.Limit = limit
	}

	records, err := database.SearchEvents(db, q)
	if err != nil {
		logger.WithComponent("api").WithError(err).Error("Index search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": internalError})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (srv *Server) reload(c *gin.Context) {
	res, err := srv.Library.Reload(c.Request.Context())
	srv.respondLoad(c, res, err)
}

func (srv *Server) upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload"})
		return
	}

	// Multipart filenames lose their directories, so the browser sends the
	// relative paths alongside in upload order.
	headers := form.File["files"]
	paths := form.Value["paths"]
	if len(paths) != 0 && len(paths) != len(headers) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paths must match files"})
		return
	}
	if len(headers) == 0 {
		srv.respondLoad(c, services.LoadResult{}, services.ErrSelectionCancelled)
		return
	}

	// Request temp files vanish with the request; clips must outlive it.
	staging, err := os.MkdirTemp(srv.UploadDir, "teslacam-upload-")
	if err != nil {
		logger.WithComponent("api").WithError(err).Error("Failed to create upload staging")
		c.JSON(http.StatusInternalServerError, gin.H{"error": internalError})
		return
	}

	files := make([]services.UploadedFile, 0, len(headers))
	for i, h := range headers {
		rel := h.Filename
		if len(paths) != 0 {
			rel = paths[i]
		}
		dst := filepath.Join(staging, fmt.Sprintf("%06d%s", i, filepath.Ext(h.Filename)))
		if err := c.SaveUploadedFile(h, dst); err != nil {
			os.RemoveAll(staging)
			logger.WithComponent("api").WithError(err).Error("Failed to stage upload")
			c.JSON(http.StatusInternalServerError, gin.H{"error": internalError})
			return
		}
		files = append(files, &services.StagedFile{Path: rel, Location: dst})
	}

	res, err := srv.Library.IngestStaged(c.Request.Context(), files, staging)
	srv.respondLoad(c, res, err)
}

func (srv *Server) respondLoad(c *gin.Context, res services.LoadResult, err error) {
	if err != nil {
		if errors.Is(err, services.ErrSelectionCancelled) {
			c.JSON(http.StatusOK, gin.H{"status": "cancelled", "message": "Footage selection cancelled."})
			return
		}
		logger.WithComponent("api").WithError(err).Error("Load failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to read TeslaCam data."})
		return
	}
	c.JSON(http.StatusOK, res)
}
