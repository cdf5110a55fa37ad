package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/study-plan-api/internal/dto"
	"github.com/noah-isme/study-plan-api/internal/event"
	"github.com/noah-isme/study-plan-api/internal/models"
	"github.com/noah-isme/study-plan-api/internal/planner"
	appErrors "github.com/noah-isme/study-plan-api/pkg/errors"
	"github.com/noah-isme/study-plan-api/pkg/export"
	"github.com/noah-isme/study-plan-api/pkg/storage"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
	FormatICS  = "ics"
	FormatJSON = "json"
)

var contentTypes = map[string]string{
	FormatCSV:  "text/csv; charset=utf-8",
	FormatPDF:  "application/pdf",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatICS:  "text/calendar; charset=utf-8",
	FormatJSON: "application/json",
}

// SessionHeaders are the tabular export columns. Together they carry every session field.
var SessionHeaders = []string{
	"Index", "Day", "Date", "Time", "Subject", "Topic", "Session Type",
	"Priority", "Completed", "Duration", "Notes", "Resources",
}

type planReader interface {
	FindByLearner(ctx context.Context, learnerID string) (*models.StudyPlan, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type tabularRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type calendarRenderer interface {
	Render(calendarName string, events []export.CalendarEvent) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportRenderers groups the format writers. Nil members fall back to the pkg/export defaults.
type ExportRenderers struct {
	CSV  tabularRenderer
	PDF  tabularRenderer
	XLSX tabularRenderer
	ICS  calendarRenderer
}

// ExportDownload is an opened export ready to stream.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
}

// ExportService renders a learner's plan and progress, stores the file and
// hands out signed download links.
type ExportService struct {
	plans     planReader
	storage   fileStorage
	renderers ExportRenderers
	signer    *storage.SignedURLSigner
	events    eventPublisher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(
	plans planReader,
	files fileStorage,
	signer *storage.SignedURLSigner,
	renderers ExportRenderers,
	events eventPublisher,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ExportConfig,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if renderers.CSV == nil {
		renderers.CSV = export.NewCSVExporter()
	}
	if renderers.PDF == nil {
		renderers.PDF = export.NewPDFExporter()
	}
	if renderers.XLSX == nil {
		renderers.XLSX = export.NewXLSXExporter()
	}
	if renderers.ICS == nil {
		renderers.ICS = export.NewICSExporter()
	}
	return &ExportService{
		plans:     plans,
		storage:   files,
		renderers: renderers,
		signer:    signer,
		events:    events,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Export renders the learner's current plan in the requested format.
func (s *ExportService) Export(ctx context.Context, learnerID string, req dto.ExportRequest) (*dto.ExportResponse, error) {
	req.Format = strings.ToLower(strings.TrimSpace(req.Format))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnsupported.Code, appErrors.ErrUnsupported.Status, appErrors.ErrUnsupported.Message)
	}
	plan, err := s.plans.FindByLearner(ctx, learnerID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load study plan")
	}

	now := s.now()
	progress := planner.Recompute(plan.Sessions, plan.ExamDate, now)
	payload, err := s.Render(plan, progress, req.Format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("study-plan-%s.%s", now.UTC().Format("20060102-150405"), req.Format)
	relPath, err := s.storage.Save(path.Join(plan.ID, filename), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(plan.ID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	s.metrics.RecordExport(req.Format)
	if s.events != nil {
		ev := event.New(event.PlanExported, learnerID, plan.ID, now, map[string]interface{}{"format": req.Format})
		if err := s.events.Publish(ctx, ev); err != nil {
			s.logger.Warn("failed to publish event", zap.String("type", string(ev.Type)), zap.Error(err))
		}
	}
	s.logger.Info("study plan exported",
		zap.String("learner_id", learnerID),
		zap.String("plan_id", plan.ID),
		zap.String("format", req.Format),
		zap.Int("bytes", len(payload)),
	)

	return &dto.ExportResponse{
		Format:      req.Format,
		Filename:    filename,
		DownloadURL: s.downloadURL(token),
		ExpiresAt:   expiresAt,
	}, nil
}

// Render serialises a plan and its progress without storing anything.
func (s *ExportService) Render(plan *models.StudyPlan, progress models.Progress, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return s.renderers.CSV.Render(planDataset(plan, progress))
	case FormatPDF:
		return s.renderers.PDF.Render(planDataset(plan, progress))
	case FormatXLSX:
		return s.renderers.XLSX.Render(planDataset(plan, progress))
	case FormatICS:
		return s.renderers.ICS.Render("Study plan", calendarEvents(plan))
	case FormatJSON:
		return json.MarshalIndent(dto.StudyPlanResponse{Plan: plan, Progress: progress}, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// Download validates a download token and opens the referenced file.
func (s *ExportService) Download(token string) (*ExportDownload, error) {
	planID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download link")
	}
	if !strings.HasPrefix(relPath, planID+"/") {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download link")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	name := path.Base(relPath)
	return &ExportDownload{
		File:        file,
		Filename:    name,
		ContentType: contentTypes[strings.TrimPrefix(path.Ext(name), ".")],
	}, nil
}

// Cleanup removes stored exports older than the configured TTL.
func (s *ExportService) Cleanup() ([]string, error) {
	return s.storage.CleanupOlderThan(s.cfg.ResultTTL)
}

func (s *ExportService) downloadURL(token string) string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return prefix + "/exports/download?token=" + url.QueryEscape(token)
}

// sessionDate anchors a plan day on the calendar day the plan was generated.
func sessionDate(plan *models.StudyPlan, day int) time.Time {
	g := plan.GeneratedAt.UTC()
	return time.Date(g.Year(), g.Month(), g.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, day-1)
}

func planDataset(plan *models.StudyPlan, progress models.Progress) export.Dataset {
	rows := make([][]string, 0, len(plan.Sessions))
	for i, session := range plan.Sessions {
		resources, _ := json.Marshal(session.Resources)
		if session.Resources == nil {
			resources = []byte("[]")
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			strconv.Itoa(session.Day),
			sessionDate(plan, session.Day).Format("2006-01-02"),
			session.Time,
			session.Subject,
			session.Topic,
			string(session.SessionType),
			string(session.Priority),
			strconv.FormatBool(session.Completed),
			strconv.Itoa(session.Duration),
			session.Notes,
			string(resources),
		})
	}

	subjects := make([]string, 0, len(progress.SubjectProgress))
	for subject := range progress.SubjectProgress {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	perSubject := make([]string, 0, len(subjects))
	for _, subject := range subjects {
		perSubject = append(perSubject, fmt.Sprintf("%s %d%%", subject, progress.SubjectProgress[subject]))
	}

	return export.Dataset{
		Title:   fmt.Sprintf("Study Plan (exam %s)", plan.ExamDate.UTC().Format("2006-01-02")),
		Headers: SessionHeaders,
		Rows:    rows,
		Summary: []string{
			fmt.Sprintf("Completion: %d%%", progress.CompletionRate),
			fmt.Sprintf("Study streak: %d days", progress.StudyStreak),
			fmt.Sprintf("Completed hours: %d", progress.TotalHours),
			fmt.Sprintf("Days left: %d", progress.DaysLeft),
			"Subject progress: " + strings.Join(perSubject, ", "),
		},
	}
}

func calendarEvents(plan *models.StudyPlan) []export.CalendarEvent {
	events := make([]export.CalendarEvent, 0, len(plan.Sessions))
	for i, session := range plan.Sessions {
		hour, _ := strconv.Atoi(strings.TrimSuffix(session.Time, ":00"))
		start := sessionDate(plan, session.Day).Add(time.Duration(hour) * time.Hour)
		duration := session.Duration
		if duration <= 0 {
			duration = 1
		}

		var desc strings.Builder
		fmt.Fprintf(&desc, "Type: %s\nPriority: %s\nCompleted: %t", session.SessionType, session.Priority, session.Completed)
		if session.Notes != "" {
			fmt.Fprintf(&desc, "\nNotes: %s", session.Notes)
		}
		for _, r := range session.Resources {
			fmt.Fprintf(&desc, "\n%s: %s (%s)", r.Type, r.Title, r.URL)
		}

		events = append(events, export.CalendarEvent{
			UID:         fmt.Sprintf("%s-%d@study-plan-api", plan.ID, i),
			Start:       start,
			End:         start.Add(time.Duration(duration) * time.Hour),
			Summary:     fmt.Sprintf("%s: %s", session.Subject, session.Topic),
			Description: desc.String(),
			Categories:  []string{string(session.SessionType), string(session.Priority)},
		})
	}
	return events
}
