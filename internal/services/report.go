package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forps/taskboard/internal/config"
	"github.com/forps/taskboard/internal/models"
	"github.com/forps/taskboard/pkg/logger"
	"github.com/forps/taskboard/pkg/response"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// ReportService builds weekly activity digests per project and ships them to
// the project's webhook. Digest building is a pure function of the database;
// delivery failures never touch stored data.
type ReportService struct {
	db           *gorm.DB
	notification *NotificationService
	permission   *PermissionService
	queue        DigestQueue
	scheduler    *cron.Cron
}

func NewReportService(db *gorm.DB, notification *NotificationService, queue DigestQueue) *ReportService {
	return &ReportService{
		db:           db,
		notification: notification,
		permission:   NewPermissionService(db),
		queue:        queue,
	}
}

// ProjectDigest is the aggregated weekly view before rendering.
type ProjectDigest struct {
	ProjectID   uuid.UUID
	ProjectName string
	From        time.Time
	To          time.Time
	Done        []models.Task
	Doing       []models.Task
	Todo        []models.Task
	Blocked     []models.Task
	Overdue     []models.Task
}

// Empty reports whether nothing qualified for any bucket.
func (d *ProjectDigest) Empty() bool {
	return len(d.Done) == 0 && len(d.Doing) == 0 && len(d.Todo) == 0 &&
		len(d.Blocked) == 0 && len(d.Overdue) == 0
}

// BuildProjectDigest partitions the project's tasks updated in the trailing
// 7-day window ending at now into status buckets, and computes the overdue
// bucket over all tasks: due strictly before today and still todo or doing.
// A done or blocked task is never overdue.
func (s *ReportService) BuildProjectDigest(projectID uuid.UUID, now time.Time) (*ProjectDigest, error) {
	var project models.Project
	err := s.db.First(&project, "id = ?", projectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, err
	}

	weekAgo := now.AddDate(0, 0, -7)
	digest := &ProjectDigest{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		From:        weekAgo,
		To:          now,
	}

	var tasks []models.Task
	if err := s.db.Preload("Assignee").
		Where("project_id = ?", projectID).
		Order("updated_at").Find(&tasks).Error; err != nil {
		return nil, err
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for _, t := range tasks {
		if t.UpdatedAt.After(weekAgo) && !t.UpdatedAt.After(now) {
			switch t.Status {
			case models.StatusDone:
				digest.Done = append(digest.Done, t)
			case models.StatusDoing:
				digest.Doing = append(digest.Doing, t)
			case models.StatusTodo:
				digest.Todo = append(digest.Todo, t)
			case models.StatusBlocked:
				digest.Blocked = append(digest.Blocked, t)
			}
		}
		if t.DueDate != nil && t.DueDate.Before(today) &&
			(t.Status == models.StatusTodo || t.Status == models.StatusDoing) {
			digest.Overdue = append(digest.Overdue, t)
		}
	}

	return digest, nil
}

// Render turns a digest into the webhook message text.
func (d *ProjectDigest) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Weekly report: %s (%s ~ %s)\n",
		d.ProjectName, d.From.Format("01/02"), d.To.Format("01/02"))

	if d.Empty() {
		b.WriteString("\n_No tasks updated in the last 7 days._\n")
		return b.String()
	}

	writeBucket(&b, "Done", d.Done)
	writeBucket(&b, "Doing", d.Doing)
	writeBucket(&b, "Todo", d.Todo)
	writeBucket(&b, "Blocked", d.Blocked)

	if len(d.Overdue) > 0 {
		fmt.Fprintf(&b, "\n**Overdue (%d)**\n", len(d.Overdue))
		for _, t := range d.Overdue {
			fmt.Fprintf(&b, "- [%s] %s%s %s\n",
				strings.ToUpper(string(t.Status)), assigneeTag(&t), dueTag(&t), t.Title)
		}
	}

	return b.String()
}

func writeBucket(b *strings.Builder, label string, tasks []models.Task) {
	if len(tasks) == 0 {
		return
	}
	fmt.Fprintf(b, "\n**%s (%d)**\n", label, len(tasks))
	for _, t := range tasks {
		fmt.Fprintf(b, "- %s%s %s\n", assigneeTag(&t), dueTag(&t), t.Title)
		if t.Description != nil && *t.Description != "" {
			fmt.Fprintf(b, "    %s\n", strings.ReplaceAll(*t.Description, "\n", "\n    "))
		}
	}
}

func assigneeTag(t *models.Task) string {
	if t.Assignee != nil {
		return "@" + t.Assignee.Name
	}
	return "@unassigned"
}

func dueTag(t *models.Task) string {
	if t.DueDate == nil {
		return ""
	}
	return " (due " + t.DueDate.Format("01/02") + ")"
}

// webhookURLFor returns the project's webhook URL, falling back to the
// owning workspace's URL when the project has none. Empty means neither
// level is configured.
func (s *ReportService) webhookURLFor(project *models.Project) string {
	if project.WebhookURL != nil && *project.WebhookURL != "" {
		return *project.WebhookURL
	}
	var workspace models.Workspace
	if err := s.db.Select("id", "webhook_url").
		First(&workspace, "id = ?", project.WorkspaceID).Error; err != nil {
		return ""
	}
	if workspace.WebhookURL != nil {
		return *workspace.WebhookURL
	}
	return ""
}

// SendProjectDigest builds and delivers one project's digest.
func (s *ReportService) SendProjectDigest(projectID uuid.UUID, now time.Time) error {
	var project models.Project
	err := s.db.First(&project, "id = ?", projectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewNotFound("project not found")
		}
		return err
	}

	url := s.webhookURLFor(&project)
	if url == "" {
		return response.NewInvalidState("no webhook URL configured for project or workspace")
	}

	digest, err := s.BuildProjectDigest(projectID, now)
	if err != nil {
		return err
	}

	return s.notification.SendMessage(url, digest.Render())
}

// TriggerProjectReport is the manual trigger behind the API. Owner only.
func (s *ReportService) TriggerProjectReport(projectID, userID uuid.UUID) error {
	var count int64
	s.db.Model(&models.Project{}).Where("id = ?", projectID).Count(&count)
	if count == 0 {
		return response.NewNotFound("project not found")
	}

	role, err := s.permission.EffectiveRole(projectID, userID)
	if err != nil {
		return err
	}
	if !CanManage(role) {
		return response.NewPermissionDenied("only owner can trigger reports")
	}

	if s.queue != nil {
		return s.queue.EnqueueDigest(projectID)
	}
	return s.SendProjectDigest(projectID, time.Now().UTC())
}

// RunWeeklyReports iterates every project that resolves to a webhook URL.
// Each project is isolated: a failed send is logged and skipped, never
// aborting the rest of the batch.
func (s *ReportService) RunWeeklyReports() {
	now := time.Now().UTC()

	var projects []models.Project
	if err := s.db.Find(&projects).Error; err != nil {
		logger.Error().Err(err).Msg("weekly report: listing projects failed")
		return
	}

	sent, skipped := 0, 0
	for _, project := range projects {
		if s.webhookURLFor(&project) == "" {
			continue
		}
		var err error
		if s.queue != nil {
			err = s.queue.EnqueueDigest(project.ID)
		} else {
			err = s.SendProjectDigest(project.ID, now)
		}
		if err != nil {
			skipped++
			logger.Warn().
				Err(err).
				Str("project_id", project.ID.String()).
				Msg("weekly report: digest delivery failed")
			continue
		}
		sent++
	}

	logger.Info().Int("sent", sent).Int("skipped", skipped).Msg("weekly report batch finished")
}

// StartScheduler registers the weekly cron slot from config and starts the
// timer loop. No-op when reporting is disabled.
func (s *ReportService) StartScheduler(cfg *config.ReportConfig) error {
	if !cfg.Enabled {
		logger.Info().Msg("weekly report scheduler disabled")
		return nil
	}

	s.scheduler = cron.New(cron.WithLocation(time.UTC))
	expr := fmt.Sprintf("0 %d * * %d", cfg.Hour, cfg.Weekday)
	if _, err := s.scheduler.AddFunc(expr, s.RunWeeklyReports); err != nil {
		return fmt.Errorf("invalid report schedule %q: %w", expr, err)
	}

	s.scheduler.Start()
	logger.Info().Str("cron", expr).Msg("weekly report scheduler started")
	return nil
}

func (s *ReportService) StopScheduler() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
