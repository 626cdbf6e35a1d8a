package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/nodues-go-api/internal/models"
	"github.com/noah-isme/nodues-go-api/pkg/config"
	"github.com/noah-isme/nodues-go-api/pkg/jobs"
)

type staffDirectory interface {
	ListActiveByDepartment(ctx context.Context, departmentName string) ([]models.StaffProfile, error)
}

type outboxStore interface {
	Create(ctx context.Context, entry *models.NotificationOutboxEntry) error
	ListPending(ctx context.Context, limit int) ([]models.NotificationOutboxEntry, error)
	MarkSent(ctx context.Context, id string) error
	RecordFailure(ctx context.Context, id, lastError string, maxAttempts int) error
}

// MailSender delivers messages; satisfied by pkg/mailer.
type MailSender interface {
	Send(to []string, subject, body string) error
}

// NotificationService is the dispatcher behind the notification boundary.
// Events are persisted to the outbox in the request path and delivered
// asynchronously, so a crashed dispatcher cannot silently lose them and a
// slow SMTP server never blocks a reapplication.
type NotificationService struct {
	outbox  outboxStore
	staff   staffDirectory
	mailer  MailSender
	metrics *MetricsService
	logger  *zap.Logger
	cfg     config.NotificationsConfig

	queue  *jobs.Queue
	cancel context.CancelFunc

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewNotificationService constructs the dispatcher.
func NewNotificationService(outbox outboxStore, staff staffDirectory, mailer MailSender, metrics *MetricsService, logger *zap.Logger, cfg config.NotificationsConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		outbox:   outbox,
		staff:    staff,
		mailer:   mailer,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		inFlight: make(map[string]struct{}),
	}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers: cfg.WorkerConcurrency,
		Logger:  logger,
	})
	return s
}

// Publish writes an event to the outbox. Callers treat failure as
// log-and-continue; it never affects the originating operation.
func (s *NotificationService) Publish(ctx context.Context, event models.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification event: %w", err)
	}
	entry := &models.NotificationOutboxEntry{
		EventType: event.Type,
		Payload:   payload,
	}
	if err := s.outbox.Create(ctx, entry); err != nil {
		return err
	}
	return nil
}

// Start launches the delivery workers and the outbox poller.
func (s *NotificationService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info("notification dispatcher disabled")
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.queue.Start(ctx)

	go func() {
		interval := s.cfg.PollInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.drain(ctx)
			}
		}
	}()
}

// Stop halts the poller and waits for in-flight deliveries.
func (s *NotificationService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.queue.Stop()
}

func (s *NotificationService) drain(ctx context.Context) {
	entries, err := s.outbox.ListPending(ctx, 20)
	if err != nil {
		s.logger.Warn("failed to poll notification outbox", zap.Error(err))
		return
	}
	for _, entry := range entries {
		if !s.claim(entry.ID) {
			continue
		}
		if err := s.queue.Enqueue(jobs.Job{ID: entry.ID, Type: string(entry.EventType), Payload: entry}); err != nil {
			s.release(entry.ID)
			s.logger.Warn("failed to enqueue notification", zap.String("outbox_id", entry.ID), zap.Error(err))
		}
	}
}

// deliver resolves recipients and sends the mail for one outbox entry.
// Returning nil always: delivery bookkeeping lives in the outbox row, and
// still-pending rows are retried on the next poll until the attempt cap.
func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.NotificationOutboxEntry)
	if !ok {
		s.logger.Error("unexpected notification job payload", zap.String("job_id", job.ID))
		return nil
	}
	defer s.release(entry.ID)

	var event models.NotificationEvent
	if err := json.Unmarshal(entry.Payload, &event); err != nil {
		s.fail(ctx, entry.ID, fmt.Sprintf("malformed payload: %v", err))
		return nil
	}

	recipients, err := s.resolveRecipients(ctx, event)
	if err != nil {
		s.fail(ctx, entry.ID, err.Error())
		return nil
	}
	if len(recipients) == 0 {
		// Nobody in scope; the event is consumed.
		if err := s.outbox.MarkSent(ctx, entry.ID); err != nil {
			s.logger.Warn("failed to mark empty notification sent", zap.String("outbox_id", entry.ID), zap.Error(err))
		}
		return nil
	}

	subject, body := composeMail(event)
	if err := s.mailer.Send(recipients, subject, body); err != nil {
		s.fail(ctx, entry.ID, err.Error())
		return nil
	}

	if err := s.outbox.MarkSent(ctx, entry.ID); err != nil {
		s.logger.Warn("failed to mark notification sent", zap.String("outbox_id", entry.ID), zap.Error(err))
		return nil
	}
	if s.metrics != nil {
		s.metrics.RecordNotification(true)
	}
	s.logger.Info("notification delivered",
		zap.String("outbox_id", entry.ID),
		zap.String("event", string(event.Type)),
		zap.String("department", event.DepartmentName),
		zap.Int("recipients", len(recipients)),
	)
	return nil
}

// resolveRecipients returns the staff emails in scope for the event:
// everyone in the department, with school-HOD profiles further narrowed by
// their school/course assignments. An empty assignment list is unrestricted.
func (s *NotificationService) resolveRecipients(ctx context.Context, event models.NotificationEvent) ([]string, error) {
	staff, err := s.staff.ListActiveByDepartment(ctx, event.DepartmentName)
	if err != nil {
		return nil, fmt.Errorf("resolve notification recipients: %w", err)
	}
	recipients := make([]string, 0, len(staff))
	for _, profile := range staff {
		if profile.Role == models.StaffRoleSchoolHOD {
			if !scopeMatches(profile.AssignedSchools, event.School) || !scopeMatches(profile.AssignedCourses, event.Course) {
				continue
			}
		}
		if profile.Email != "" {
			recipients = append(recipients, profile.Email)
		}
	}
	return recipients, nil
}

func (s *NotificationService) fail(ctx context.Context, id, reason string) {
	maxAttempts := s.cfg.WorkerRetries
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if err := s.outbox.RecordFailure(ctx, id, reason, maxAttempts); err != nil {
		s.logger.Warn("failed to record notification failure", zap.String("outbox_id", id), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordNotification(false)
	}
	s.logger.Warn("notification delivery failed", zap.String("outbox_id", id), zap.String("reason", reason))
}

func (s *NotificationService) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *NotificationService) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

func scopeMatches(assigned []string, value string) bool {
	if len(assigned) == 0 {
		return true
	}
	for _, candidate := range assigned {
		if strings.EqualFold(candidate, value) {
			return true
		}
	}
	return false
}

func composeMail(event models.NotificationEvent) (subject, body string) {
	switch event.Type {
	case models.EventReapplicationProcessed:
		subject = fmt.Sprintf("No-dues reapplication: %s (%s)", event.StudentName, event.RegistrationNo)
		body = fmt.Sprintf(
			"Student %s (%s, %s / %s / %s) has reapplied to the %s department.\n\nAttempt %d, %d remaining.\n\nStudent message:\n%s\n",
			event.StudentName, event.RegistrationNo, event.School, event.Course, event.Branch,
			event.DepartmentName, event.AttemptNumber, event.RemainingAttempts, event.Message,
		)
	case models.EventStatusChanged:
		subject = fmt.Sprintf("No-dues status update: %s (%s)", event.StudentName, event.RegistrationNo)
		body = fmt.Sprintf(
			"The %s department marked %s (%s) as %s. Form status is now %s.\n",
			event.DepartmentName, event.StudentName, event.RegistrationNo,
			event.NewDepartmentStatus, event.NewFormStatus,
		)
	default:
		subject = fmt.Sprintf("No-dues notification: %s", event.RegistrationNo)
		body = fmt.Sprintf("Event %s for form %s.\n", event.Type, event.FormID)
	}
	return subject, body
}
