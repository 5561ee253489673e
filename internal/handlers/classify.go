package handlers

import (
	"errors"
	"net/http"

	"disaster-classifier/internal/fusion"
	"disaster-classifier/internal/logger"
	"disaster-classifier/internal/models"
	"disaster-classifier/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ClassifyHandler is the stateless JSON API: one request, one fused label,
// no simulated delay.
type ClassifyHandler struct {
	classifier services.Classifier
	maxBytes   int64
}

func NewClassifyHandler(classifier services.Classifier, maxBytes int64) *ClassifyHandler {
	return &ClassifyHandler{
		classifier: classifier,
		maxBytes:   maxBytes,
	}
}

func (h *ClassifyHandler) Classify(c *gin.Context) {
	limitBody(c, h.maxBytes)

	var req models.ClassifyRequest
	if err := c.ShouldBind(&req); err != nil {
		logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Validation error for /api/classify")
		c.JSON(http.StatusBadRequest, models.ClassifyResponse{
			Success: false,
			Error:   "Invalid request body",
			Details: fieldErrors(err),
		})
		return
	}

	mode := models.DefaultMode
	if req.Mode != "" {
		mode = models.Mode(req.Mode)
	}

	in := services.Input{Mode: mode}
	if mode.WantsText() {
		in.Text = req.Text
	}
	if mode.WantsImage() {
		up, err := readImage(c, "image", h.maxBytes)
		switch {
		case err == nil:
			in.Image = up.Data
			in.MimeType = up.MimeType
		case errors.Is(err, http.ErrMissingFile):
		default:
			c.JSON(uploadStatus(err), models.ClassifyResponse{
				Success: false,
				Error:   err.Error(),
			})
			return
		}
	}

	logger.WithFields(logrus.Fields{
		"mode":     mode,
		"hasText":  in.Text != "",
		"hasImage": len(in.Image) > 0,
	}).Info("Received /api/classify request")

	labels, err := h.classifier.Classify(c.Request.Context(), in)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Classification failed")
		c.JSON(http.StatusInternalServerError, models.ClassifyResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	// A modality without input is not classified.
	if in.Text == "" {
		labels.Text = ""
	}
	if len(in.Image) == 0 {
		labels.Image = ""
	}

	c.JSON(http.StatusOK, models.ClassifyResponse{
		Success: true,
		Mode:    mode,
		Results: &models.ClassifyResults{
			TextLabel:  labelPtr(labels.Text),
			ImageLabel: labelPtr(labels.Image),
			FinalLabel: fusion.Fuse(labels.Text, labels.Image),
		},
	})
}

func labelPtr(l models.Label) *models.Label {
	if !l.Present() {
		return nil
	}
	return &l
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
