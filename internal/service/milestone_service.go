package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/events"
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMilestoneTemplates стандартный план выпускной работы
var DefaultMilestoneTemplates = []model.MilestoneTemplate{
	{Title: "Topic and research proposal", OrderIndex: 1},
	{Title: "Literature review", OrderIndex: 2},
	{Title: "Methodology", OrderIndex: 3},
	{Title: "Implementation and data collection", OrderIndex: 4},
	{Title: "Results and discussion", OrderIndex: 5},
	{Title: "Final draft", OrderIndex: 6},
	{Title: "Defense preparation", OrderIndex: 7},
}

// MilestoneOverview этапы работы вместе с прогрессом и ближайшим этапом
type MilestoneOverview struct {
	Milestones []model.Milestone       `json:"milestones"`
	Progress   model.MilestoneProgress `json:"progress"`
	Next       *model.Milestone        `json:"next"`
}

type MilestoneService struct {
	store     MilestoneStore
	theses    ThesisStore
	cache     Cache
	cacheTTL  time.Duration
	inflight  *InFlight
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewMilestoneService(
	store MilestoneStore,
	theses ThesisStore,
	cache Cache,
	cacheTTL time.Duration,
	publisher events.Publisher,
	logger *zap.Logger,
) *MilestoneService {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &MilestoneService{
		store:     store,
		theses:    theses,
		cache:     cache,
		cacheTTL:  cacheTTL,
		inflight:  NewInFlight(),
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// List возвращает этапы работы по порядку, сводку прогресса и следующий этап
func (s *MilestoneService) List(ctx context.Context, actor Actor, thesisID uuid.UUID) (*MilestoneOverview, error) {
	thesis, err := s.accessibleThesis(ctx, actor, thesisID)
	if err != nil {
		return nil, err
	}

	milestones, err := s.milestones(ctx, thesis.ID)
	if err != nil {
		return nil, err
	}

	return &MilestoneOverview{
		Milestones: milestones,
		Progress:   SummarizeMilestones(milestones),
		Next:       NextMilestone(milestones),
	}, nil
}

// InitFromTemplates создаёт этапы работы из шаблонов, если этапов ещё нет
func (s *MilestoneService) InitFromTemplates(ctx context.Context, actor Actor, thesisID uuid.UUID, templates []model.MilestoneTemplate) ([]model.Milestone, error) {
	if err := requireRole(actor, model.RoleSupervisor, "initialize milestones"); err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		templates = DefaultMilestoneTemplates
	}

	thesis, err := s.accessibleThesis(ctx, actor, thesisID)
	if err != nil {
		return nil, err
	}

	release, ok := s.inflight.Acquire("milestones:init:" + thesis.ID.String())
	if !ok {
		return nil, ErrOperationInFlight
	}
	defer release()

	existing, err := s.store.ListByThesis(ctx, thesis.ID)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	if len(existing) > 0 {
		return nil, newValidationError("thesisId", "milestones are already initialized")
	}

	now := s.now()
	milestones := make([]model.Milestone, 0, len(templates))
	for _, t := range templates {
		title := strings.TrimSpace(t.Title)
		if title == "" {
			return nil, newValidationError("title", "milestone title is required")
		}
		milestones = append(milestones, model.Milestone{
			ID:         uuid.New(),
			ThesisID:   thesis.ID,
			Title:      title,
			OrderIndex: t.OrderIndex,
			Status:     model.MilestoneStatusNotStarted,
			UpdatedAt:  now,
		})
	}
	sort.SliceStable(milestones, func(i, j int) bool {
		return milestones[i].OrderIndex < milestones[j].OrderIndex
	})

	if err := s.store.CreateBatch(ctx, milestones); err != nil {
		return nil, fmt.Errorf("create milestones: %w", err)
	}
	s.invalidate(ctx, thesis.ID)

	s.logger.Info("Milestones initialized",
		zap.String("thesis_id", thesis.ID.String()),
		zap.Int("count", len(milestones)))

	return milestones, nil
}

// SubmitProgress студент отмечает прогресс по этапу
func (s *MilestoneService) SubmitProgress(ctx context.Context, actor Actor, milestoneID uuid.UUID, percentage int, notes string) (*model.Milestone, error) {
	if err := requireRole(actor, model.RoleStudent, "submit progress"); err != nil {
		return nil, err
	}
	if percentage < 0 || percentage > 100 {
		return nil, newValidationError("progressPercentage", "progress must be between 0 and 100")
	}

	return s.update(ctx, actor, milestoneID, events.MilestoneProgressSubmitted, func(m *model.Milestone) {
		m.Status = model.MilestoneStatusInProgress
		m.ProgressPercentage = percentage
		m.StudentNotes = strings.TrimSpace(notes)
	})
}

// Validate руководитель принимает этап или возвращает на доработку
func (s *MilestoneService) Validate(ctx context.Context, actor Actor, milestoneID uuid.UUID, approved bool, feedback string) (*model.Milestone, error) {
	if err := requireRole(actor, model.RoleSupervisor, "validate milestones"); err != nil {
		return nil, err
	}

	feedback = strings.TrimSpace(feedback)
	if !approved && feedback == "" {
		return nil, newValidationError("feedback", "feedback is required when requesting a revision")
	}

	return s.update(ctx, actor, milestoneID, events.MilestoneValidated, func(m *model.Milestone) {
		if approved {
			m.Status = model.MilestoneStatusCompleted
			m.ProgressPercentage = 100
		} else {
			m.Status = model.MilestoneStatusRevisionNeeded
		}
		m.SupervisorFeedback = feedback
	})
}

func (s *MilestoneService) update(ctx context.Context, actor Actor, milestoneID uuid.UUID, eventType string, apply func(m *model.Milestone)) (*model.Milestone, error) {
	release, ok := s.inflight.Acquire("milestone:" + milestoneID.String())
	if !ok {
		return nil, ErrOperationInFlight
	}
	defer release()

	milestone, err := s.store.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, fmt.Errorf("get milestone: %w", err)
	}
	if milestone == nil {
		return nil, ErrNotFound
	}

	thesis, err := s.accessibleThesis(ctx, actor, milestone.ThesisID)
	if err != nil {
		return nil, err
	}

	if milestone.IsCompleted() {
		return nil, newValidationError("status", "milestone is already completed")
	}

	expected := milestone.Status
	apply(milestone)
	milestone.UpdatedAt = s.now()

	saved, err := s.store.Update(ctx, milestone, expected)
	if err != nil {
		return nil, fmt.Errorf("update milestone: %w", err)
	}
	if !saved {
		return nil, newValidationError("status", "milestone was changed by someone else, reload and try again")
	}
	s.invalidate(ctx, thesis.ID)

	if err := s.publisher.Publish(ctx, events.Event{
		EventType:    eventType,
		EntityID:     milestone.ID,
		StudentID:    thesis.StudentID,
		SupervisorID: thesis.SupervisorID,
		Status:       string(milestone.Status),
		OccurredAt:   milestone.UpdatedAt,
	}); err != nil {
		s.logger.Warn("Failed to publish milestone event", zap.String("event", eventType), zap.Error(err))
	}

	s.logger.Info("Milestone updated",
		zap.String("milestone_id", milestone.ID.String()),
		zap.String("status", string(milestone.Status)),
		zap.Int("progress", milestone.ProgressPercentage))

	return milestone, nil
}

func (s *MilestoneService) accessibleThesis(ctx context.Context, actor Actor, thesisID uuid.UUID) (*model.Thesis, error) {
	thesis, err := s.theses.GetByID(ctx, thesisID)
	if err != nil {
		return nil, fmt.Errorf("get thesis: %w", err)
	}
	if thesis == nil {
		return nil, ErrNotFound
	}
	if err := canAccessThesis(actor, thesis); err != nil {
		return nil, err
	}
	return thesis, nil
}

func (s *MilestoneService) milestones(ctx context.Context, thesisID uuid.UUID) ([]model.Milestone, error) {
	key := CacheKey(cacheEntityMilestones, thesisID)

	var cached []model.Milestone
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("Failed to read milestone cache", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return cached, nil
	}

	milestones, err := s.store.ListByThesis(ctx, thesisID)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	if milestones == nil {
		milestones = []model.Milestone{}
	}

	if err := s.cache.Set(ctx, key, milestones, s.cacheTTL); err != nil {
		s.logger.Warn("Failed to write milestone cache", zap.String("key", key), zap.Error(err))
	}
	return milestones, nil
}

func (s *MilestoneService) invalidate(ctx context.Context, thesisID uuid.UUID) {
	key := CacheKey(cacheEntityMilestones, thesisID)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.logger.Warn("Failed to invalidate milestone cache", zap.String("key", key), zap.Error(err))
	}
}
