// Package service implements the task lifecycle, session accounting and
// dialog orchestration on top of the store.
package service

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskdesk/internal/adapter/completion"
	"taskdesk/internal/blob"
	"taskdesk/internal/config"
	"taskdesk/internal/domain"
	"taskdesk/internal/feed"
	"taskdesk/internal/policy"
	"taskdesk/internal/store"
)

// Sentinel errors surfaced to the transport layer.
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidStatus          = errors.New("invalid task status")
	ErrTransitionBlocked      = errors.New("status transition not allowed")
	ErrClosingCommentRequired = errors.New("closing comment required")
	ErrValidation             = errors.New("validation failed")
)

type Service struct {
	store      store.Store
	completion completion.Client
	policy     *policy.Engine
	feed       *feed.Hub
	blobs      *blob.Store
	config     *config.Config
	log        *zap.Logger
}

func New(store store.Store, completionClient completion.Client, policyEngine *policy.Engine, feedHub *feed.Hub, blobs *blob.Store, cfg *config.Config, log *zap.Logger) *Service {
	return &Service{
		store:      store,
		completion: completionClient,
		policy:     policyEngine,
		feed:       feedHub,
		blobs:      blobs,
		config:     cfg,
		log:        log,
	}
}

// newID returns a short prefixed identifier.
func newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// newTaskNumber returns a human-readable task identifier like T-3F9A2C.
func newTaskNumber() string {
	return "T-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
}

// publish pushes a change event on the feed. Marshal failures are logged
// and swallowed; the feed is advisory.
func (s *Service) publish(entity, action, taskID string, payload interface{}) {
	if s.feed == nil {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			s.log.Warn("failed to marshal feed payload", zap.String("entity", entity), zap.Error(err))
		} else {
			raw = data
		}
	}
	s.feed.Publish(domain.ChangeEvent{
		Entity:  entity,
		Action:  action,
		TaskID:  taskID,
		Payload: raw,
	})
}
