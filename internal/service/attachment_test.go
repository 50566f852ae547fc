package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskdesk/internal/domain"
)

func TestUploadAttachmentStoresFileAndRecord(t *testing.T) {
	svc, _, _ := newTestService(t)
	task := createTask(t, svc)
	ctx := context.Background()

	attachment, err := svc.UploadAttachment(ctx, task.TaskID, "usr_1",
		"rechnung.pdf", "application/pdf", strings.NewReader("pdf-bytes"))
	if err != nil {
		t.Fatalf("UploadAttachment failed: %v", err)
	}
	if attachment.SizeBytes != int64(len("pdf-bytes")) {
		t.Fatalf("unexpected size: %d", attachment.SizeBytes)
	}
	if !strings.HasPrefix(svc.AttachmentURL(attachment), "/files/") {
		t.Fatalf("unexpected URL: %s", svc.AttachmentURL(attachment))
	}

	full := filepath.Join(svc.blobs.Root(), filepath.FromSlash(attachment.Path))
	if _, err := os.Stat(full); err != nil {
		t.Fatalf("blob missing on disk: %v", err)
	}

	list, err := svc.ListAttachments(ctx, task.TaskID)
	if err != nil {
		t.Fatalf("ListAttachments failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one attachment, got %d", len(list))
	}

	entries, err := svc.ListAudit(ctx, task.TaskID)
	if err != nil {
		t.Fatalf("ListAudit failed: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Action == domain.AuditAttachmentAdded {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an attachment_added audit entry")
	}
}

func TestUploadAttachmentUnknownTask(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.UploadAttachment(context.Background(), "tsk_nope", "usr_1",
		"a.txt", "text/plain", strings.NewReader("x"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteAttachmentRemovesRecordAndBlob(t *testing.T) {
	svc, _, _ := newTestService(t)
	task := createTask(t, svc)
	ctx := context.Background()

	attachment, err := svc.UploadAttachment(ctx, task.TaskID, "usr_1",
		"foto.jpg", "image/jpeg", strings.NewReader("jpeg"))
	if err != nil {
		t.Fatalf("UploadAttachment failed: %v", err)
	}

	if err := svc.DeleteAttachment(ctx, attachment.AttachmentID, "usr_1"); err != nil {
		t.Fatalf("DeleteAttachment failed: %v", err)
	}

	full := filepath.Join(svc.blobs.Root(), filepath.FromSlash(attachment.Path))
	if _, err := os.Stat(full); !os.IsNotExist(err) {
		t.Fatal("blob still on disk after delete")
	}

	list, err := svc.ListAttachments(ctx, task.TaskID)
	if err != nil {
		t.Fatalf("ListAttachments failed: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no attachments, got %d", len(list))
	}

	if err := svc.DeleteAttachment(ctx, attachment.AttachmentID, "usr_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on repeated delete, got %v", err)
	}
}
