package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ctxKey string

const (
	ctxRequestID ctxKey = "request_id"
	ctxStartTime ctxKey = "start_time"
	ctxUserID    ctxKey = "user_id"
	ctxStreamID  ctxKey = "stream_id"
)

// SetUserID records the authenticated user on the request so subsequent log
// events carry it. Called by the auth middleware after token validation.
func SetUserID(c *gin.Context, userID string) {
	c.Set(string(ctxUserID), userID)
}

// SetStreamID tags the request with the camera stream it concerns.
func SetStreamID(c *gin.Context, streamID string) {
	c.Set(string(ctxStreamID), streamID)
}

func withGinContext(c *gin.Context, e *zerolog.Event) *zerolog.Event {
	if c == nil {
		return e
	}
	if v, ok := c.Get(string(ctxRequestID)); ok {
		if s, ok2 := v.(string); ok2 && s != "" {
			e.Str("request_id", s)
		}
	}
	if v, ok := c.Get(string(ctxUserID)); ok {
		if s, ok2 := v.(string); ok2 && s != "" {
			e.Str("user_id", s)
		}
	}
	if v, ok := c.Get(string(ctxStreamID)); ok {
		if s, ok2 := v.(string); ok2 && s != "" {
			e.Str("stream_id", s)
		}
	}
	if v, ok := c.Get(string(ctxStartTime)); ok {
		if t, ok2 := v.(time.Time); ok2 {
			e.Dur("duration", time.Since(t))
		}
	}
	return e
}

func Info(c *gin.Context) *zerolog.Event  { return withGinContext(c, log.Info()) }
func Debug(c *gin.Context) *zerolog.Event { return withGinContext(c, log.Debug()) }
func Warn(c *gin.Context) *zerolog.Event  { return withGinContext(c, log.Warn()) }
func Error(c *gin.Context) *zerolog.Event { return withGinContext(c, log.Error()) }
