package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"roastbot-api/internal/helpers"
	"roastbot-api/internal/logging"
	"roastbot-api/internal/models"
	"roastbot-api/internal/services/stream"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

type StreamHandler struct {
	manager  *stream.Manager
	ingest   *stream.Ingestor
	upgrader websocket.Upgrader
}

func NewStreamHandler(manager *stream.Manager, ingest *stream.Ingestor) *StreamHandler {
	return &StreamHandler{
		manager: manager,
		ingest:  ingest,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// StreamFrame ingests a base64-encoded frame from the device
// @Summary Ingest a video frame
// @Description Accept a base64-encoded frame from the device, analyze it and buffer it for viewers
// @Tags device
// @Accept json
// @Produce json
// @Param X-API-Key header string true "Device API key"
// @Param request body models.VideoFramePayload true "Frame payload"
// @Success 200 {object} StatusResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/raspi/stream-frame [post]
func (h *StreamHandler) StreamFrame(c *gin.Context) {
	var req models.VideoFramePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	logging.SetStreamID(c, req.StreamID)

	frame, err := helpers.DecodeBase64Image(req.Frame)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("Invalid image data: %v", err)})
		return
	}

	if _, err := h.ingest.Ingest(c.Request.Context(), req.StreamID, frame); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("Invalid image data: %v", err)})
		return
	}

	c.JSON(http.StatusOK, StatusResponse{Status: "received"})
}

// UploadFrame ingests a frame uploaded as a multipart file
// @Summary Upload a video frame
// @Description Accept a frame file from the device camera, analyze it and buffer it for viewers
// @Tags device
// @Accept multipart/form-data
// @Produce json
// @Param stream_id formData string true "Stream identifier"
// @Param frame formData file true "JPEG frame"
// @Success 200 {object} models.IngestResponse
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/raspi/upload_frame [post]
func (h *StreamHandler) UploadFrame(c *gin.Context) {
	streamID := c.PostForm("stream_id")
	fileHeader, err := c.FormFile("frame")
	if streamID == "" || err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "stream_id and frame are required"})
		return
	}
	logging.SetStreamID(c, streamID)

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("Invalid image data: %v", err)})
		return
	}
	defer file.Close()

	frame, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("Invalid image data: %v", err)})
		return
	}

	result, err := h.ingest.Ingest(c.Request.Context(), streamID, frame)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("Invalid image data: %v", err)})
		return
	}

	if result.AnalysisErr != nil {
		c.JSON(http.StatusOK, models.IngestResponse{
			Status:   "received",
			Analysis: "failed",
			Error:    result.AnalysisErr.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, models.IngestResponse{Status: "received", Analysis: "success"})
}

// ListStreams reports which streams delivered a frame recently
// @Summary List active streams
// @Description Return every stream that delivered a frame within the liveness window
// @Tags streams
// @Produce json
// @Success 200 {object} map[string]models.StreamActivity
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/streams [get]
func (h *StreamHandler) ListStreams(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.ActiveStreams())
}

// StreamAnalysis returns the latest face analysis for a stream
// @Summary Get stream analysis
// @Description Return the most recent face analysis for the stream, or null when none succeeded yet
// @Tags streams
// @Produce json
// @Param stream_id path string true "Stream identifier"
// @Success 200 {object} models.FaceAnalysis
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/stream/{stream_id}/analysis [get]
func (h *StreamHandler) StreamAnalysis(c *gin.Context) {
	streamID := c.Param("stream_id")
	analysis, ok := h.manager.Analysis(streamID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Stream not found or inactive"})
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// StreamFeed serves the MJPEG feed for a stream
// @Summary Watch a stream
// @Description Serve a multipart MJPEG feed of the stream's latest frames
// @Tags streams
// @Produce mpfd
// @Param stream_id path string true "Stream identifier"
// @Success 200 {string} string "multipart/x-mixed-replace stream"
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/stream/{stream_id}/feed [get]
func (h *StreamHandler) StreamFeed(c *gin.Context) {
	h.manager.ServeMJPEG(c.Writer, c.Request, c.Param("stream_id"))
}

// PublicStream serves the MJPEG feed with the device key in the URL
// @Summary Watch a stream without a session
// @Description Serve the MJPEG feed to viewers that embed the device key in the URL
// @Tags streams
// @Produce mpfd
// @Param stream_id path string true "Stream identifier"
// @Param api_key path string true "Device API key"
// @Success 200 {string} string "multipart/x-mixed-replace stream"
// @Failure 401 {object} ErrorResponse
// @Router /api/public-stream/{stream_id}/{api_key} [get]
func (h *StreamHandler) PublicStream(deviceKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Param("api_key") != deviceKey {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid API Key"})
			return
		}
		h.manager.ServeMJPEG(c.Writer, c.Request, c.Param("stream_id"))
	}
}

// LiveAnalysis pushes analysis events over a websocket
// @Summary Subscribe to live analysis
// @Description Upgrade to a websocket and push each new face analysis for the stream as JSON
// @Tags streams
// @Param stream_id path string true "Stream identifier"
// @Success 101 {string} string "switching protocols"
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/streams/{stream_id}/live [get]
func (h *StreamHandler) LiveAnalysis(c *gin.Context) {
	streamID := c.Param("stream_id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("stream_id", streamID).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	events, cancel := h.manager.SubscribeAnalysis(streamID)
	defer cancel()

	log.Debug().Str("stream_id", streamID).Msg("Live analysis subscriber connected")

	// Reader loop exists only to notice the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			log.Debug().Str("stream_id", streamID).Msg("Live analysis subscriber disconnected")
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case event := <-events:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}
