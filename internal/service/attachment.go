package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"taskdesk/internal/domain"
)

// UploadAttachment stores the file content and records the attachment. If
// the record cannot be written the blob is removed again.
func (s *Service) UploadAttachment(ctx context.Context, taskID, actingUserID, fileName, contentType string, r io.Reader) (*domain.Attachment, error) {
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return nil, err
	}

	key, size, err := s.blobs.Save(taskID, fileName, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	attachment := &domain.Attachment{
		AttachmentID: newID("att"),
		TaskID:       taskID,
		FileName:     fileName,
		ContentType:  contentType,
		SizeBytes:    size,
		Path:         key,
		UploadedBy:   actingUserID,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateAttachment(ctx, attachment); err != nil {
		if rmErr := s.blobs.Remove(key); rmErr != nil {
			s.log.Warn("failed to remove orphaned blob", zap.String("key", key), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("failed to record attachment: %w", err)
	}

	s.auditAttachment(ctx, taskID, actingUserID, domain.AuditAttachmentAdded, attachment)
	s.publish("attachment", "insert", taskID, attachment)
	return attachment, nil
}

// DeleteAttachment removes the record and the stored file. A blob that
// cannot be removed is logged; the record is gone either way.
func (s *Service) DeleteAttachment(ctx context.Context, attachmentID, actingUserID string) error {
	attachment, err := s.store.GetAttachment(ctx, attachmentID)
	if err != nil {
		return fmt.Errorf("failed to get attachment: %w", err)
	}
	if attachment == nil {
		return ErrNotFound
	}

	if err := s.store.DeleteAttachment(ctx, attachmentID); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	if err := s.blobs.Remove(attachment.Path); err != nil {
		s.log.Warn("failed to remove blob", zap.String("key", attachment.Path), zap.Error(err))
	}

	s.auditAttachment(ctx, attachment.TaskID, actingUserID, domain.AuditAttachmentRemoved, attachment)
	s.publish("attachment", "delete", attachment.TaskID, map[string]string{"attachment_id": attachmentID})
	return nil
}

// ListAttachments returns a task's attachments.
func (s *Service) ListAttachments(ctx context.Context, taskID string) ([]domain.Attachment, error) {
	attachments, err := s.store.ListAttachments(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return attachments, nil
}

// AttachmentURL returns the public URL an attachment is served under.
func (s *Service) AttachmentURL(a *domain.Attachment) string {
	return s.blobs.PublicURL(a.Path)
}

func (s *Service) auditAttachment(ctx context.Context, taskID, actingUserID string, action domain.AuditAction, attachment *domain.Attachment) {
	newValue, _ := json.Marshal(map[string]string{
		"attachment_id": attachment.AttachmentID,
		"file_name":     attachment.FileName,
	})
	entry := &domain.AuditEntry{
		EntryID:   newID("aud"),
		TaskID:    taskID,
		UserID:    actingUserID,
		Action:    action,
		NewValue:  newValue,
		CreatedAt: time.Now(),
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.log.Warn("failed to append audit entry", zap.String("task_id", taskID), zap.Error(err))
	}
}
