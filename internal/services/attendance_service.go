package services

import (
	"context"
	"log"
	"time"

	"github.com/prudhvinik1/parlourpunch/internal/models"
	"github.com/prudhvinik1/parlourpunch/internal/observability"
	"github.com/prudhvinik1/parlourpunch/internal/repositories"
)

// postCommitTimeout bounds the view update and publish that follow a
// successful append.
const postCommitTimeout = 5 * time.Second

// Publisher fans a confirmed event out to live subscribers.
type Publisher interface {
	PublishAttendance(ctx context.Context, event *models.AttendanceEvent) error
}

type AttendanceService struct {
	attendanceRepo repositories.AttendanceRepository
	statusRepo     repositories.StatusRepository
	publisher      Publisher
	logger         *log.Logger
	defaultLimit   int
	maxLimit       int
}

type AttendanceServiceOptions struct {
	// StatusRepo is optional; without it current status is derived from the log.
	StatusRepo   repositories.StatusRepository
	DefaultLimit int
	MaxLimit     int
	Logger       *log.Logger
}

func NewAttendanceService(
	attendanceRepo repositories.AttendanceRepository,
	publisher Publisher,
	opts AttendanceServiceOptions,
) *AttendanceService {
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = repositories.MaxListLimit
	}
	if opts.DefaultLimit <= 0 || opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = min(repositories.DefaultListLimit, opts.MaxLimit)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &AttendanceService{
		attendanceRepo: attendanceRepo,
		statusRepo:     opts.StatusRepo,
		publisher:      publisher,
		logger:         opts.Logger,
		defaultLimit:   opts.DefaultLimit,
		maxLimit:       opts.MaxLimit,
	}
}

// SetPublisher attaches the broadcast side once the hub exists.
func (s *AttendanceService) SetPublisher(publisher Publisher) {
	s.publisher = publisher
}

// Record persists one punch and then publishes it. Nothing is published
// unless the append succeeded; publish failures are logged, not returned,
// because the event is already durable. The steps after the append outlive
// the caller's context so a dropped request cannot skip the broadcast.
func (s *AttendanceService) Record(ctx context.Context, source string, actor *models.Identity, submission models.PunchSubmission) (*models.AttendanceEvent, error) {
	event, err := s.attendanceRepo.Append(ctx, submission)
	if err != nil {
		if repositories.IsValidationError(err) {
			observability.RecordSubmission(source, observability.ResultInvalid)
		} else {
			observability.RecordSubmission(source, observability.ResultFailed)
			s.logger.Printf("attendance append failed (%s via %s): %v", actorName(actor), source, err)
		}
		return nil, err
	}

	observability.RecordSubmission(source, observability.ResultAccepted)
	observability.RecordEventPersisted(event.CreatedAt)
	s.logger.Printf("%s recorded for %s by %s via %s", event.Action, event.EmployeeID, actorName(actor), source)

	postCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), postCommitTimeout)
	defer cancel()

	if s.statusRepo != nil {
		if err := s.statusRepo.SetIfNewer(postCtx, models.EmployeeStatusFor(event)); err != nil {
			s.logger.Printf("status view update failed for %s: %v", event.EmployeeID, err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishAttendance(postCtx, event); err != nil {
			s.logger.Printf("publish attendance %s failed: %v", event.ID, err)
		}
	}

	return event, nil
}

func actorName(actor *models.Identity) string {
	if actor == nil {
		return "system"
	}
	if actor.Email != "" {
		return actor.Email
	}
	return actor.UserID
}

func (s *AttendanceService) ListRecent(ctx context.Context, limit int) ([]*models.AttendanceEvent, error) {
	return s.attendanceRepo.ListRecent(ctx, s.clampLimit(limit))
}

// CurrentStatus returns the latest known status per employee, from the
// materialized view when configured and from the recent log otherwise.
func (s *AttendanceService) CurrentStatus(ctx context.Context) (map[string]models.EmployeeStatus, error) {
	if s.statusRepo != nil {
		statuses, err := s.statusRepo.GetAll(ctx)
		if err == nil {
			return statuses, nil
		}
		s.logger.Printf("status view read failed, deriving from log: %v", err)
	}

	events, err := s.attendanceRepo.ListRecent(ctx, s.maxLimit)
	if err != nil {
		return nil, err
	}
	return repositories.LatestPerEmployee(events), nil
}

// RebuildStatusView recomputes the materialized view from the recent log.
func (s *AttendanceService) RebuildStatusView(ctx context.Context) error {
	if s.statusRepo == nil {
		return nil
	}
	events, err := s.attendanceRepo.ListRecent(ctx, s.maxLimit)
	if err != nil {
		return err
	}
	return s.statusRepo.Rebuild(ctx, events)
}

func (s *AttendanceService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}
