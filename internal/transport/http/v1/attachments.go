package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"taskdesk/internal/domain"
)

// attachmentView is an attachment plus its public URL.
type attachmentView struct {
	domain.Attachment
	URL string `json:"url"`
}

// UploadAttachment stores a multipart file upload for a task.
// POST /v1/tasks/:task_id/attachments
func (h *Handler) UploadAttachment(c echo.Context) error {
	ctx := c.Request().Context()

	userID := actingUser(c)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "X-User-ID header is required"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}
	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read file"})
	}
	defer src.Close()

	attachment, err := h.service.UploadAttachment(ctx, c.Param("task_id"), userID,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), src)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, attachmentView{
		Attachment: *attachment,
		URL:        h.service.AttachmentURL(attachment),
	})
}

// ListAttachments lists a task's attachments.
// GET /v1/tasks/:task_id/attachments
func (h *Handler) ListAttachments(c echo.Context) error {
	ctx := c.Request().Context()

	attachments, err := h.service.ListAttachments(ctx, c.Param("task_id"))
	if err != nil {
		return jsonError(c, err)
	}

	views := make([]attachmentView, len(attachments))
	for i := range attachments {
		views[i] = attachmentView{
			Attachment: attachments[i],
			URL:        h.service.AttachmentURL(&attachments[i]),
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"attachments": views})
}

// DeleteAttachment removes an attachment and its stored file.
// DELETE /v1/attachments/:attachment_id
func (h *Handler) DeleteAttachment(c echo.Context) error {
	ctx := c.Request().Context()

	userID := actingUser(c)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "X-User-ID header is required"})
	}

	if err := h.service.DeleteAttachment(ctx, c.Param("attachment_id"), userID); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
