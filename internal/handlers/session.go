package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"disaster-classifier/internal/logger"
	"disaster-classifier/internal/models"
	"disaster-classifier/internal/session"
	"disaster-classifier/internal/view"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SessionHandler serves the classifier page and the controls that mutate a
// browser session.
type SessionHandler struct {
	renderer *view.Renderer
	maxBytes int64
}

func NewSessionHandler(renderer *view.Renderer, maxBytes int64) *SessionHandler {
	return &SessionHandler{
		renderer: renderer,
		maxBytes: maxBytes,
	}
}

func (h *SessionHandler) Register(r gin.IRoutes) {
	r.GET("/", h.Page)
	r.POST("/session/mode", h.SetMode)
	r.POST("/session/text", h.SetText)
	r.POST("/session/image", h.SelectImage)
	r.POST("/session/image/remove", h.RemoveImage)
	r.POST("/session/analyze", h.Analyze)
	r.POST("/session/reset", h.Reset)
	r.GET("/session/state", h.State)
	r.GET("/session/events", h.Events)
}

func (h *SessionHandler) Page(c *gin.Context) {
	c.HTML(http.StatusOK, "page", view.NewPage(storeFrom(c).State()))
}

func (h *SessionHandler) SetMode(c *gin.Context) {
	var req models.ModeRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid mode",
			"details": fieldErrors(err),
		})
		return
	}
	st := storeFrom(c).SetMode(models.Mode(req.Mode))
	h.respond(c, st)
}

func (h *SessionHandler) SetText(c *gin.Context) {
	var req models.TextRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	st := storeFrom(c).SetTextSeq(req.Text, req.Seq)
	h.respond(c, st)
}

func (h *SessionHandler) SelectImage(c *gin.Context) {
	store := storeFrom(c)
	limitBody(c, h.maxBytes)

	up, err := readImage(c, "image", h.maxBytes)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"session": store.ID(),
			"error":   err.Error(),
		}).Warn("Rejected image upload")
		msg := "Invalid image upload"
		if errors.Is(err, http.ErrMissingFile) {
			msg = "Image file required"
		}
		c.JSON(uploadStatus(err), gin.H{
			"error":   msg,
			"details": err.Error(),
		})
		return
	}

	logger.WithFields(logrus.Fields{
		"session":  store.ID(),
		"image":    up.Name,
		"mimeType": up.MimeType,
		"size":     len(up.Data),
	}).Info("Image selected")

	st := store.SelectImage(up.Name, up.MimeType, up.Data)
	h.respond(c, st)
}

func (h *SessionHandler) RemoveImage(c *gin.Context) {
	h.respond(c, storeFrom(c).RemoveImage())
}

func (h *SessionHandler) Analyze(c *gin.Context) {
	accepted := storeFrom(c).Analyze()
	if !isFetch(c) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.JSON(http.StatusOK, models.AnalyzeResponse{Accepted: accepted})
}

func (h *SessionHandler) Reset(c *gin.Context) {
	h.respond(c, storeFrom(c).Reset())
}

func (h *SessionHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, stateResponse(storeFrom(c).State()))
}

// Events streams a render event on connect and after every state change
// until the client goes away or the session is closed.
func (h *SessionHandler) Events(c *gin.Context) {
	store := storeFrom(c)
	updates, unsubscribe := store.Subscribe()
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	if !h.sendRender(c, store.State()) {
		return
	}
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case st, ok := <-updates:
			if !ok {
				return false
			}
			return h.sendRender(c, st)
		}
	})
}

func (h *SessionHandler) sendRender(c *gin.Context, st session.State) bool {
	u, err := h.renderer.Update(view.NewPage(st))
	if err != nil {
		logger.WithFields(logrus.Fields{"error": err.Error()}).Error("Failed to render update")
		return false
	}
	payload, err := json.Marshal(u)
	if err != nil {
		logger.WithFields(logrus.Fields{"error": err.Error()}).Error("Failed to encode update")
		return false
	}
	c.SSEvent("render", string(payload))
	return true
}

func (h *SessionHandler) respond(c *gin.Context, st session.State) {
	if !isFetch(c) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.JSON(http.StatusOK, stateResponse(st))
}

func isFetch(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "fetch"
}

func stateResponse(st session.State) models.SessionStateResponse {
	resp := models.SessionStateResponse{
		Mode:       st.Mode,
		Text:       st.Text,
		Processing: st.Processing,
		CanAnalyze: session.CanAnalyze(st),
		Result:     st.Result,
		Error:      st.Err,
	}
	if st.Image != nil {
		resp.Image = &models.ImageInfo{
			Name:       st.Image.Name,
			MimeType:   st.Image.MimeType,
			Size:       len(st.Image.Data),
			HasPreview: st.Image.Preview != "",
		}
	}
	return resp
}
