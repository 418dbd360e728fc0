package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"medidown/internal/model"
	"medidown/internal/service"
	"medidown/internal/sign"
)

type downloadInput struct {
	URL      string `json:"url"`
	Platform string `json:"platform"`
	Format   string `json:"format"`
}

func (h *Handler) startDownload(c *gin.Context) {
	var input downloadInput
	if err := c.ShouldBindJSON(&input); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.services.Downloads.Submit(c.Request.Context(), service.SubmitRequest{
		URL:      input.URL,
		Platform: input.Platform,
		Format:   input.Format,
	})
	if err != nil {
		mapError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": task.ID,
		"status":  task.Status,
	})
}

func (h *Handler) listTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.services.Downloads.List()})
}

func (h *Handler) taskStatus(c *gin.Context) {
	id := c.Param("id")

	task, exists := h.services.Downloads.Get(id)
	if !exists {
		mapError(c, model.ErrTaskNotFound)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *Handler) cancelTask(c *gin.Context) {
	id := c.Param("id")

	if err := h.services.Downloads.Cancel(id); err != nil {
		mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancel_requested"})
}

func (h *Handler) taskFile(c *gin.Context) {
	id := c.Param("id")

	task, exists := h.services.Downloads.Get(id)
	if !exists {
		mapError(c, model.ErrTaskNotFound)
		return
	}
	if task.Status != model.StatusFinished || task.ResultPath == "" {
		newErrorResponse(c, http.StatusNotFound, "artifact not ready")
		return
	}
	if _, err := os.Stat(task.ResultPath); err != nil {
		newErrorResponse(c, http.StatusNotFound, "artifact missing or expired")
		return
	}

	name := task.Title
	if name == "" {
		name = task.ID
	}
	c.FileAttachment(task.ResultPath, name+filepath.Ext(task.ResultPath))
}

func (h *Handler) listHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusOK, gin.H{"downloads": []any{}})
		return
	}
	entries, err := h.history.List(c.Request.Context(), 100)
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "history unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"downloads": entries})
}

// signLink issues a time-limited token for direct, untracked delivery. No
// task is created on this path.
func (h *Handler) signLink(c *gin.Context) {
	rawURL := c.Query("url")
	format := c.DefaultQuery("format", model.FormatBest)

	if rawURL == "" {
		newErrorResponse(c, http.StatusBadRequest, "url is required")
		return
	}
	if !model.ValidFormat(format) {
		newErrorResponse(c, http.StatusBadRequest, "unknown format")
		return
	}

	token, expiresAt, err := h.signer.Sign(rawURL, format)
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not sign link")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.Unix(),
	})
}

func (h *Handler) directLink(c *gin.Context) {
	link, err := h.signer.Verify(c.Param("token"))
	if err != nil {
		if errors.Is(err, sign.ErrExpiredToken) {
			newErrorResponse(c, http.StatusGone, "link expired")
			return
		}
		newErrorResponse(c, http.StatusBadRequest, "invalid link")
		return
	}

	c.Redirect(http.StatusFound, link.URL)
}
