package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/bimbel-api/internal/models"
	"github.com/noah-isme/bimbel-api/pkg/config"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
	"github.com/noah-isme/bimbel-api/pkg/jobs"
	"github.com/noah-isme/bimbel-api/pkg/mailer"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, page, size int) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID string) error
}

type notificationUsers interface {
	FindByStudentID(ctx context.Context, studentID string) (*models.User, error)
}

// emailPayload is the job body handed to the dispatch queue.
type emailPayload struct {
	ToName  string
	ToEmail string
	Subject string
	Body    string
}

// NotificationService records in-app notifications and dispatches the
// matching emails through a background queue so lifecycle transitions
// never wait on SMTP.
type NotificationService struct {
	store  notificationStore
	users  notificationUsers
	mailer mailer.Mailer
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the service and its dispatch queue.
func NewNotificationService(store notificationStore, users notificationUsers, m mailer.Mailer, jobsCfg config.JobsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{store: store, users: users, mailer: m, logger: logger}
	s.queue = jobs.NewQueue("notification-email", s.handleEmailJob, jobs.QueueConfig{
		Workers:    jobsCfg.Workers,
		BufferSize: jobsCfg.BufferSize,
		MaxRetries: jobsCfg.MaxRetries,
		RetryDelay: jobsCfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start begins email dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyStudent records an in-app notification for the student's user
// account and optionally queues an email. Students without an account get
// neither; that is not an error.
func (s *NotificationService) NotifyStudent(ctx context.Context, studentID string, typ models.NotificationType, title, body string, email bool) error {
	user, err := s.users.FindByStudentID(ctx, studentID)
	if err != nil {
		return err
	}
	if user == nil {
		s.logger.Debug("student has no user account, skipping notification",
			zap.String("student_id", studentID), zap.String("type", string(typ)))
		return nil
	}

	n := &models.Notification{UserID: user.ID, Type: typ, Title: title, Body: body}
	if err := s.store.Create(ctx, n); err != nil {
		return err
	}

	if email {
		job := jobs.Job{
			ID:   uuid.NewString(),
			Type: string(typ),
			Payload: emailPayload{
				ToName:  user.FullName,
				ToEmail: user.Email,
				Subject: title,
				Body:    body,
			},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue notification email",
				zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return nil
}

// List returns a user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, page, size int) ([]models.Notification, *models.Pagination, error) {
	notifications, total, err := s.store.ListByUser(ctx, userID, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return notifications, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// MarkRead flags one notification as read for its owner.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.store.MarkRead(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

func (s *NotificationService) handleEmailJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(emailPayload)
	if !ok {
		s.logger.Error("unexpected email job payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.mailer.Send(ctx, mailer.Message{
		ToName:  payload.ToName,
		ToEmail: payload.ToEmail,
		Subject: payload.Subject,
		Body:    payload.Body,
	})
}
