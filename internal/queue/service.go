package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"guildwatch/internal/permissions"
	"guildwatch/internal/storage"

	"go.uber.org/zap"
)

const (
	ActionResolve  = "resolve"
	ActionDismiss  = "dismiss"
	ActionEscalate = "escalate"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

var (
	ErrForbidden = errors.New("moderation capability required")
	ErrBadAction = errors.New("unknown queue action")
)

// Service is the human review queue over stored content flags.
type Service struct {
	store   *storage.Store
	perms   *permissions.Checker
	logger  *zap.Logger
	guildID string
}

func New(store *storage.Store, perms *permissions.Checker, logger *zap.Logger, guildID string) *Service {
	return &Service{store: store, perms: perms, logger: logger, guildID: guildID}
}

type ListParams struct {
	Page     int
	Limit    int
	Resolved bool
	FlagType string
}

// ArtworkSummary is the gallery projection attached to flags that reference
// an artwork.
type ArtworkSummary struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	UploaderID   string `json:"uploaderId"`
	UploaderName string `json:"uploaderName"`
	Published    bool   `json:"published"`
}

type FlagView struct {
	ID          int64           `json:"id"`
	ArtworkID   *int64          `json:"artworkId"`
	MessageID   *string         `json:"messageId"`
	Content     string          `json:"content"`
	FlagType    string          `json:"flagType"`
	Severity    float64         `json:"severity"`
	RawResponse json.RawMessage `json:"rawResponse"`
	Resolved    bool            `json:"resolved"`
	ResolvedBy  *string         `json:"resolvedBy"`
	ResolvedAt  *time.Time      `json:"resolvedAt"`
	CreatedAt   time.Time       `json:"createdAt"`
	Artwork     *ArtworkSummary `json:"artwork,omitempty"`
}

type ListResult struct {
	Flags []FlagView
	Page  int
	Limit int
	Total int
	Pages int
}

// List returns one page of flags, newest first. The row and count queries
// are independent and run concurrently.
func (s *Service) List(ctx context.Context, moderatorID string, params ListParams) (ListResult, error) {
	if err := s.authorize(ctx, moderatorID); err != nil {
		return ListResult{}, err
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	filter := storage.FlagFilter{
		Resolved: params.Resolved,
		FlagType: params.FlagType,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}

	var (
		wg       sync.WaitGroup
		flags    []storage.ModFlag
		total    int
		listErr  error
		countErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		flags, listErr = s.store.ListModFlags(ctx, filter)
	}()
	go func() {
		defer wg.Done()
		total, countErr = s.store.CountModFlags(ctx, filter)
	}()
	wg.Wait()
	if listErr != nil {
		return ListResult{}, fmt.Errorf("list flags: %w", listErr)
	}
	if countErr != nil {
		return ListResult{}, fmt.Errorf("count flags: %w", countErr)
	}

	views := make([]FlagView, 0, len(flags))
	for _, flag := range flags {
		views = append(views, s.enrich(ctx, flag))
	}

	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}
	return ListResult{Flags: views, Page: page, Limit: limit, Total: total, Pages: pages}, nil
}

// Act applies a moderator decision to one flag.
func (s *Service) Act(ctx context.Context, moderatorID string, flagID int64, action string) error {
	if err := s.authorize(ctx, moderatorID); err != nil {
		return err
	}

	switch action {
	case ActionResolve:
		flag, err := s.store.GetModFlag(ctx, flagID)
		if err != nil {
			return err
		}
		if err := s.store.ResolveModFlag(ctx, flagID, moderatorID, time.Now()); err != nil {
			return err
		}
		if flag.ArtworkID != nil {
			if err := s.store.SetArtworkPublished(ctx, *flag.ArtworkID, false); err != nil {
				s.logger.Error("artwork unpublish failed", zap.Int64("artwork_id", *flag.ArtworkID), zap.Error(err))
				return fmt.Errorf("unpublish artwork: %w", err)
			}
		}
		return nil
	case ActionDismiss:
		if _, err := s.store.GetModFlag(ctx, flagID); err != nil {
			return err
		}
		return s.store.ResolveModFlag(ctx, flagID, moderatorID, time.Now())
	case ActionEscalate:
		flag, err := s.store.GetModFlag(ctx, flagID)
		if err != nil {
			return err
		}
		merged, err := escalatePayload(flag.RawResponse, moderatorID, time.Now())
		if err != nil {
			return fmt.Errorf("escalate payload: %w", err)
		}
		return s.store.UpdateFlagRawResponse(ctx, flagID, merged)
	default:
		return ErrBadAction
	}
}

func (s *Service) authorize(ctx context.Context, moderatorID string) error {
	if moderatorID == "" {
		return ErrForbidden
	}
	ok, err := s.perms.HasAny(ctx, s.guildID, moderatorID, permissions.Moderator...)
	if err != nil {
		return fmt.Errorf("permission lookup: %w", err)
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *Service) enrich(ctx context.Context, flag storage.ModFlag) FlagView {
	view := FlagView{
		ID:          flag.ID,
		ArtworkID:   flag.ArtworkID,
		MessageID:   flag.MessageID,
		Content:     flag.Content,
		FlagType:    flag.FlagType,
		Severity:    flag.Severity,
		RawResponse: json.RawMessage(flag.RawResponse),
		Resolved:    flag.Resolved,
		ResolvedBy:  flag.ResolvedBy,
		ResolvedAt:  flag.ResolvedAt,
		CreatedAt:   flag.CreatedAt,
	}
	if flag.ArtworkID != nil {
		art, err := s.store.GetArtwork(ctx, *flag.ArtworkID)
		if err != nil {
			s.logger.Warn("artwork enrichment failed", zap.Int64("artwork_id", *flag.ArtworkID), zap.Error(err))
		} else {
			view.Artwork = &ArtworkSummary{
				ID:           art.ID,
				Title:        art.Title,
				UploaderID:   art.UploaderID,
				UploaderName: art.UploaderName,
				Published:    art.Published,
			}
		}
	}
	return view
}

// escalatePayload merges the escalation annotation into the raw classifier
// payload, preserving whatever fields are already there. A payload that is
// not a JSON object is replaced by a fresh one.
func escalatePayload(raw, moderatorID string, at time.Time) (string, error) {
	payload := make(map[string]any)
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			payload = make(map[string]any)
		}
	}
	payload["escalated"] = true
	payload["escalatedBy"] = moderatorID
	payload["escalatedAt"] = at.UTC().Format(time.RFC3339)

	merged, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(merged), nil
}
