package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/bimbel-api/internal/dto"
	"github.com/noah-isme/bimbel-api/internal/models"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
)

type fakeEnrollmentStore struct {
	enrollment *models.Enrollment
	detail     *models.EnrollmentDetail
	existsOpen bool
	created    *models.Enrollment
	activated  *struct {
		ID       string
		Start    time.Time
		Expiry   time.Time
		Grace    time.Time
		Meetings int
	}
}

func (f *fakeEnrollmentStore) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	if f.detail == nil {
		return nil, 0, nil
	}
	return []models.EnrollmentDetail{*f.detail}, 1, nil
}

func (f *fakeEnrollmentStore) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	return f.enrollment, nil
}

func (f *fakeEnrollmentStore) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	return f.detail, nil
}

func (f *fakeEnrollmentStore) ExistsOpen(ctx context.Context, studentID, sectionID string) (bool, error) {
	return f.existsOpen, nil
}

func (f *fakeEnrollmentStore) CreateTx(ctx context.Context, q sqlx.ExtContext, enrollment *models.Enrollment) error {
	enrollment.ID = "enr-new"
	f.created = enrollment
	return nil
}

func (f *fakeEnrollmentStore) ActivateTx(ctx context.Context, q sqlx.ExtContext, id string, start, expiry, grace time.Time, meetings int) error {
	f.activated = &struct {
		ID       string
		Start    time.Time
		Expiry   time.Time
		Grace    time.Time
		Meetings int
	}{id, start, expiry, grace, meetings}
	return nil
}

type fakeEnrollWaitlist struct {
	entry    *models.WaitlistEntry
	byPair   *models.WaitlistEntry
	created  *models.WaitlistEntry
	statuses map[string]models.WaitlistStatus
	enrolled [][2]string
}

func (f *fakeEnrollWaitlist) FindByID(ctx context.Context, id string) (*models.WaitlistEntry, error) {
	return f.entry, nil
}

func (f *fakeEnrollWaitlist) FindByStudentAndProgram(ctx context.Context, studentID, programID string) (*models.WaitlistEntry, error) {
	return f.byPair, nil
}

func (f *fakeEnrollWaitlist) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	entry.ID = "wl-new"
	f.created = entry
	return nil
}

func (f *fakeEnrollWaitlist) UpdateStatusTx(ctx context.Context, q sqlx.ExtContext, id string, status models.WaitlistStatus) error {
	if f.statuses == nil {
		f.statuses = map[string]models.WaitlistStatus{}
	}
	f.statuses[id] = status
	return nil
}

func (f *fakeEnrollWaitlist) MarkEnrolledTx(ctx context.Context, q sqlx.ExtContext, studentID, programID string) error {
	f.enrolled = append(f.enrolled, [2]string{studentID, programID})
	return nil
}

func (f *fakeEnrollWaitlist) ListByProgram(ctx context.Context, programID string) ([]models.WaitlistEntry, error) {
	if f.entry == nil {
		return nil, nil
	}
	return []models.WaitlistEntry{*f.entry}, nil
}

type fakeEnrollPrograms struct {
	program *models.Program
}

func (f *fakeEnrollPrograms) FindByID(ctx context.Context, id string) (*models.Program, error) {
	return f.program, nil
}

func (f *fakeEnrollPrograms) FindBySection(ctx context.Context, sectionID string) (*models.Program, error) {
	return f.program, nil
}

func newEnrollmentFixture() (*EnrollmentService, *fakeEnrollmentStore, *fakeLifecycleSections, *fakeEnrollWaitlist, *fakeEnrollPrograms, *fakeCache) {
	enrollments := &fakeEnrollmentStore{}
	sections := &fakeLifecycleSections{section: &models.SectionDetail{
		Section: models.Section{
			ID:                 "sec-1",
			ProgramID:          "prg-1",
			TutorID:            "tut-1",
			Status:             models.SectionStatusActive,
			CurrentEnrollments: 5,
		},
		MaxStudents: 10,
	}}
	waitlist := &fakeEnrollWaitlist{}
	programs := &fakeEnrollPrograms{program: &models.Program{
		ID:                "prg-1",
		Price:             500000,
		DurationDays:      30,
		GraceDays:         7,
		MeetingsPerPeriod: 8,
	}}
	cache := newFakeCache()
	tx := &fakeTx{}
	svc := NewEnrollmentService(enrollments, sections, waitlist, programs, cache, tx, validator.New(), zap.NewNop())
	return svc, enrollments, sections, waitlist, programs, cache
}

func TestEnrollmentServiceEnrollClaimsSeat(t *testing.T) {
	svc, enrollments, sections, _, _, cache := newEnrollmentFixture()

	enrollment, err := svc.Enroll(context.Background(), dto.EnrollRequest{StudentID: "std-1", SectionID: "sec-1"})
	require.NoError(t, err)
	require.Equal(t, "enr-new", enrollment.ID)
	require.Equal(t, models.EnrollmentStatusPending, enrollment.Status)
	require.Equal(t, 1, sections.adjusted["sec-1"])
	require.Empty(t, sections.statuses)
	require.Equal(t, []string{availabilityCacheKey("prg-1")}, cache.deleted)
	require.NotNil(t, enrollments.created)
}

func TestEnrollmentServiceEnrollFlipsSectionFull(t *testing.T) {
	svc, _, sections, _, _, _ := newEnrollmentFixture()
	sections.section.CurrentEnrollments = 9

	_, err := svc.Enroll(context.Background(), dto.EnrollRequest{StudentID: "std-1", SectionID: "sec-1"})
	require.NoError(t, err)
	require.Equal(t, models.SectionStatusFull, sections.statuses["sec-1"])
}

func TestEnrollmentServiceEnrollRejectsFullSection(t *testing.T) {
	svc, enrollments, sections, _, _, _ := newEnrollmentFixture()
	sections.section.CurrentEnrollments = 10

	_, err := svc.Enroll(context.Background(), dto.EnrollRequest{StudentID: "std-1", SectionID: "sec-1"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrSectionFull.Code, appErrors.FromError(err).Code)
	require.Nil(t, enrollments.created)
}

func TestEnrollmentServiceEnrollRejectsDuplicate(t *testing.T) {
	svc, enrollments, _, _, _, _ := newEnrollmentFixture()
	enrollments.existsOpen = true

	_, err := svc.Enroll(context.Background(), dto.EnrollRequest{StudentID: "std-1", SectionID: "sec-1"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceApproveWaitlist(t *testing.T) {
	svc, enrollments, _, waitlist, _, _ := newEnrollmentFixture()
	waitlist.entry = &models.WaitlistEntry{
		ID:        "wl-1",
		StudentID: "std-1",
		ProgramID: "prg-1",
		Status:    models.WaitlistStatusWaiting,
	}

	enrollment, err := svc.ApproveWaitlist(context.Background(), dto.ApproveWaitlistRequest{WaitlistID: "wl-1", SectionID: "sec-1"})
	require.NoError(t, err)
	require.Equal(t, "std-1", enrollment.StudentID)
	require.Equal(t, models.WaitlistStatusApproved, waitlist.statuses["wl-1"])
	require.NotNil(t, enrollments.created)
}

func TestEnrollmentServiceApproveWaitlistWrongProgram(t *testing.T) {
	svc, _, _, waitlist, _, _ := newEnrollmentFixture()
	waitlist.entry = &models.WaitlistEntry{
		ID:        "wl-1",
		StudentID: "std-1",
		ProgramID: "prg-other",
		Status:    models.WaitlistStatusWaiting,
	}

	_, err := svc.ApproveWaitlist(context.Background(), dto.ApproveWaitlistRequest{WaitlistID: "wl-1", SectionID: "sec-1"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceActivateStampsWindowAndQuota(t *testing.T) {
	svc, enrollments, _, waitlist, _, _ := newEnrollmentFixture()
	enrollments.enrollment = &models.Enrollment{
		ID:        "enr-1",
		StudentID: "std-1",
		SectionID: strPtr("sec-1"),
		Status:    models.EnrollmentStatusPaid,
	}
	enrollments.detail = &models.EnrollmentDetail{Enrollment: *enrollments.enrollment}

	_, err := svc.Activate(context.Background(), "enr-1")
	require.NoError(t, err)
	require.NotNil(t, enrollments.activated)
	require.Equal(t, "enr-1", enrollments.activated.ID)
	require.Equal(t, enrollments.activated.Start.AddDate(0, 0, 30), enrollments.activated.Expiry)
	require.Equal(t, enrollments.activated.Expiry.AddDate(0, 0, 7), enrollments.activated.Grace)
	require.Equal(t, 8, enrollments.activated.Meetings)
	require.Equal(t, [][2]string{{"std-1", "prg-1"}}, waitlist.enrolled)
}

func TestEnrollmentServiceActivateRequiresPaid(t *testing.T) {
	svc, enrollments, _, _, _, _ := newEnrollmentFixture()
	enrollments.enrollment = &models.Enrollment{
		ID:        "enr-1",
		StudentID: "std-1",
		SectionID: strPtr("sec-1"),
		Status:    models.EnrollmentStatusPending,
	}

	_, err := svc.Activate(context.Background(), "enr-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.Nil(t, enrollments.activated)
}

func TestEnrollmentServiceJoinWaitlistRejectsExisting(t *testing.T) {
	svc, _, _, waitlist, _, _ := newEnrollmentFixture()
	waitlist.byPair = &models.WaitlistEntry{ID: "wl-1", Status: models.WaitlistStatusWaiting}

	_, err := svc.JoinWaitlist(context.Background(), dto.JoinWaitlistRequest{StudentID: "std-1", ProgramID: "prg-1"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.Nil(t, waitlist.created)
}
