package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yukikurage/pmbot/internal/database"
	"github.com/yukikurage/pmbot/internal/models"
)

// RepositoryTestSuite exercises the gorm repositories against sqlite
type RepositoryTestSuite struct {
	suite.Suite
	db         *gorm.DB
	projects   ProjectRepository
	milestones MilestoneRepository
	issues     IssueRepository
	decisions  DecisionRepository
	documents  DocumentRepository
	settings   GuildSettingsRepository
	base       time.Time
}

// SetupTest runs before each test
func (suite *RepositoryTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), database.NewGormConfig(logger.Silent))
	suite.Require().NoError(err)
	suite.Require().NoError(database.Migrate(suite.db))

	suite.projects = NewProjectRepository(suite.db)
	suite.milestones = NewMilestoneRepository(suite.db)
	suite.issues = NewIssueRepository(suite.db)
	suite.decisions = NewDecisionRepository(suite.db)
	suite.documents = NewDocumentRepository(suite.db)
	suite.settings = NewGuildSettingsRepository(suite.db)
	suite.base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

// TearDownTest runs after each test
func (suite *RepositoryTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *RepositoryTestSuite) createTestProject(guildID, name string, status models.ProjectStatus) *models.Project {
	project := &models.Project{
		GuildID:   guildID,
		Name:      name,
		PMID:      "pm-1",
		StartDate: suite.base,
		EndDate:   suite.base.AddDate(0, 1, 0),
		Status:    status,
		Participants: []models.ProjectParticipant{
			{UserID: "pm-1", Role: models.ParticipantRolePM},
		},
	}
	suite.Require().NoError(suite.projects.Create(project))
	return project
}

func (suite *RepositoryTestSuite) createTestMilestone(projectID, name string, target time.Time, status models.MilestoneStatus) *models.Milestone {
	milestone := &models.Milestone{
		ProjectID:  projectID,
		Name:       name,
		TargetDate: target,
		Status:     status,
	}
	suite.Require().NoError(suite.milestones.Create(milestone))
	return milestone
}

func (suite *RepositoryTestSuite) createTestIssue(projectID, title string, impact models.IssueImpact, status models.IssueStatus, createdAt time.Time) *models.Issue {
	issue := &models.Issue{
		ProjectID:  projectID,
		Title:      title,
		Content:    "details",
		ReporterID: "reporter",
		Impact:     impact,
		Status:     status,
		CreatedAt:  createdAt,
	}
	suite.Require().NoError(suite.issues.Create(issue))
	return issue
}

func (suite *RepositoryTestSuite) TestProjectCreate_WithParticipants() {
	project := suite.createTestProject("g1", "Alpha", models.ProjectStatusPlanning)
	suite.NotEmpty(project.ID)

	found, err := suite.projects.FindByID(project.ID, "Participants")
	suite.Require().NoError(err)
	suite.Require().Len(found.Participants, 1)
	suite.Equal(models.ParticipantRolePM, found.Participants[0].Role)

	_, err = suite.projects.FindByID("missing")
	suite.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (suite *RepositoryTestSuite) TestProjectList_Filters() {
	alpha := suite.createTestProject("g1", "Alpha launch", models.ProjectStatusInProgress)
	suite.createTestProject("g1", "Beta", models.ProjectStatusPlanning)
	suite.createTestProject("g2", "Gamma", models.ProjectStatusInProgress)
	suite.Require().NoError(suite.projects.AddParticipant(&models.ProjectParticipant{ProjectID: alpha.ID, UserID: "u-9", Role: models.ParticipantRoleMember}))

	all, total, err := suite.projects.List(ProjectFilter{GuildID: "g1"})
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
	suite.Len(all, 2)

	status := models.ProjectStatusInProgress
	active, _, err := suite.projects.List(ProjectFilter{GuildID: "g1", Status: &status})
	suite.Require().NoError(err)
	suite.Require().Len(active, 1)
	suite.Equal(alpha.ID, active[0].ID)

	member := "u-9"
	mine, _, err := suite.projects.List(ProjectFilter{GuildID: "g1", ParticipantID: &member})
	suite.Require().NoError(err)
	suite.Require().Len(mine, 1)

	search := "launch"
	found, _, err := suite.projects.List(ProjectFilter{GuildID: "g1", Search: &search})
	suite.Require().NoError(err)
	suite.Len(found, 1)

	paged, total, err := suite.projects.List(ProjectFilter{GuildID: "g1", Page: 2, PageSize: 1})
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
	suite.Len(paged, 1)
}

func (suite *RepositoryTestSuite) TestProjectUpdateStatus_Guarded() {
	project := suite.createTestProject("g1", "Alpha", models.ProjectStatusInProgress)

	changed, err := suite.projects.UpdateStatus(project.ID, models.ProjectStatusInProgress, models.ProjectStatusIssue)
	suite.Require().NoError(err)
	suite.True(changed)

	changed, err = suite.projects.UpdateStatus(project.ID, models.ProjectStatusInProgress, models.ProjectStatusIssue)
	suite.Require().NoError(err)
	suite.False(changed)

	found, err := suite.projects.FindByID(project.ID)
	suite.Require().NoError(err)
	suite.Equal(models.ProjectStatusIssue, found.Status)
}

func (suite *RepositoryTestSuite) TestProjectParticipants() {
	project := suite.createTestProject("g1", "Alpha", models.ProjectStatusPlanning)
	participant := &models.ProjectParticipant{ProjectID: project.ID, UserID: "u-2", Role: models.ParticipantRoleMember}

	suite.Require().NoError(suite.projects.AddParticipant(participant))
	suite.Require().NoError(suite.projects.AddParticipant(&models.ProjectParticipant{ProjectID: project.ID, UserID: "u-2", Role: models.ParticipantRoleMember}))

	found, err := suite.projects.FindParticipant(project.ID, "u-2")
	suite.Require().NoError(err)
	suite.Equal(models.ParticipantRoleMember, found.Role)

	suite.Require().NoError(suite.projects.RemoveParticipant(project.ID, "u-2"))
	_, err = suite.projects.FindParticipant(project.ID, "u-2")
	suite.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (suite *RepositoryTestSuite) TestProjectDelete_RemovesOwnedRows() {
	project := suite.createTestProject("g1", "Alpha", models.ProjectStatusInProgress)
	milestone := suite.createTestMilestone(project.ID, "M1", suite.base.AddDate(0, 0, 10), models.MilestoneStatusScheduled)
	suite.Require().NoError(suite.milestones.MarkNotified(milestone.ID, models.NotificationD7, suite.base))
	suite.createTestIssue(project.ID, "I1", models.IssueImpactLow, models.IssueStatusOpen, suite.base)
	suite.Require().NoError(suite.decisions.Create(&models.Decision{ProjectID: project.ID, Content: "go", DeciderID: "pm-1"}))

	suite.Require().NoError(suite.projects.Delete(project.ID))

	for _, model := range []interface{}{
		&models.Project{}, &models.Milestone{}, &models.MilestoneNotification{},
		&models.Issue{}, &models.Decision{}, &models.ProjectParticipant{},
	} {
		var count int64
		suite.Require().NoError(suite.db.Model(model).Count(&count).Error)
		suite.Zero(count)
	}
}

func (suite *RepositoryTestSuite) TestProjectCounts() {
	suite.createTestProject("g1", "A", models.ProjectStatusInProgress)
	suite.createTestProject("g1", "B", models.ProjectStatusIssue)
	done := suite.createTestProject("g1", "C", models.ProjectStatusCompleted)
	completedAt := suite.base.AddDate(0, 0, 3)
	done.CompletedAt = &completedAt
	suite.Require().NoError(suite.projects.Update(done))

	active, err := suite.projects.Count(ProjectCountFilter{GuildID: "g1", ExcludeStatuses: []models.ProjectStatus{models.ProjectStatusCompleted}})
	suite.Require().NoError(err)
	suite.Equal(int64(2), active)

	from, to := suite.base, suite.base.AddDate(0, 0, 7)
	completed, err := suite.projects.Count(ProjectCountFilter{GuildID: "g1", CompletedFrom: &from, CompletedTo: &to})
	suite.Require().NoError(err)
	suite.Equal(int64(1), completed)

	byStatus, err := suite.projects.CountByStatus("g1")
	suite.Require().NoError(err)
	suite.Equal(int64(1), byStatus[models.ProjectStatusIssue])
	suite.Equal(int64(0), byStatus[models.ProjectStatusOnHold])
}

func (suite *RepositoryTestSuite) TestMilestoneList_NotNotified() {
	project := suite.createTestProject("g1", "Alpha", models.ProjectStatusInProgress)
	sent := suite.createTestMilestone(project.ID, "sent", suite.base.AddDate(0, 0, 7), models.MilestoneStatusScheduled)
	pending := suite.createTestMilestone(project.ID, "pending", suite.base.AddDate(0, 0, 7), models.MilestoneStatusScheduled)
	suite.createTestMilestone(project.ID, "later", suite.base.AddDate(0, 0, 8), models.MilestoneStatusScheduled)

	suite.Require().NoError(suite.milestones.MarkNotified(sent.ID, models.NotificationD7, suite.base))

	kind := models.NotificationD7
	status := models.MilestoneStatusScheduled
	from, to := suite.base.AddDate(0, 0, 7), suite.base.AddDate(0, 0, 8)
	due, err := suite.milestones.List(MilestoneFilter{Status: &status, TargetFrom: &from, TargetTo: &to, NotNotified: &kind})
	suite.Require().NoError(err)
	suite.Require().Len(due, 1)
	suite.Equal(pending.ID, due[0].ID)
	suite.Require().NotNil(due[0].Project)
	suite.Equal("g1", due[0].Project.GuildID)

	// the D-1 record is independent
	d1 := models.NotificationD1
	undelivered, err := suite.milestones.List(MilestoneFilter{NotNotified: &d1})
	suite.Require().NoError(err)
	suite.Len(undelivered, 3)
}

func (suite *RepositoryTestSuite) TestMilestoneMarkNotified_Upserts() {
	project := suite.createTestProject("g1", "Alpha", models.ProjectStatusInProgress)
	milestone := suite.createTestMilestone(project.ID, "M1", suite.base, models.MilestoneStatusDelayed)

	suite.Require().NoError(suite.milestones.MarkNotified(milestone.ID, models.NotificationDelayed, suite.base))
	suite.Require().NoError(suite.milestones.MarkNotified(milestone.ID, models.NotificationDelayed, suite.base.Add(time.Hour)))

	found, err := suite.milestones.FindByID(milestone.ID)
	suite.Require().NoError(err)
	suite.Require().Len(found.Notifications, 1)
	suite.True(found.Notified(models.NotificationDelayed))
	suite.False(found.Notified(models.NotificationD1))
}

func (suite *RepositoryTestSuite) TestMilestoneMarkDelayed_OnlyScheduled() {
	project := suite.createTestProject("g1", "Alpha", models.ProjectStatusInProgress)
	stale := suite.createTestMilestone(project.ID, "stale", suite.base, models.MilestoneStatusScheduled)
	done := suite.createTestMilestone(project.ID, "done", suite.base, models.MilestoneStatusCompleted)

	changed, err := suite.milestones.MarkDelayed([]string{stale.ID, done.ID})
	suite.Require().NoError(err)
	suite.Equal(int64(1), changed)

	changed, err = suite.milestones.MarkDelayed([]string{stale.ID})
	suite.Require().NoError(err)
	suite.Zero(changed)

	changed, err = suite.milestones.MarkDelayed(nil)
	suite.Require().NoError(err)
	suite.Zero(changed)

	found, err := suite.milestones.FindByID(done.ID)
	suite.Require().NoError(err)
	suite.Equal(models.MilestoneStatusCompleted, found.Status)
}

func (suite *RepositoryTestSuite) TestMilestoneStatsAndGuildFilter() {
	project := suite.createTestProject("g1", "Alpha", models.ProjectStatusInProgress)
	other := suite.createTestProject("g2", "Other", models.ProjectStatusInProgress)
	suite.createTestMilestone(project.ID, "a", suite.base, models.MilestoneStatusScheduled)
	suite.createTestMilestone(project.ID, "b", suite.base, models.MilestoneStatusDelayed)
	suite.createTestMilestone(project.ID, "c", suite.base, models.MilestoneStatusCompleted)
	suite.createTestMilestone(other.ID, "d", suite.base, models.MilestoneStatusDelayed)

	stats, err := suite.milestones.StatsByProject(project.ID)
	suite.Require().NoError(err)
	suite.Equal(MilestoneStats{Total: 3, Scheduled: 1, Completed: 1, Delayed: 1}, stats)

	guild := "g1"
	delayed := models.MilestoneStatusDelayed
	count, err := suite.milestones.Count(MilestoneFilter{GuildID: &guild, Status: &delayed})
	suite.Require().NoError(err)
	suite.Equal(int64(1), count)
}

func (suite *RepositoryTestSuite) TestIssueList_UrgencyOrder() {
	project := suite.createTestProject("g1", "Alpha", models.ProjectStatusInProgress)
	suite.createTestIssue(project.ID, "low", models.IssueImpactLow, models.IssueStatusOpen, suite.base.Add(5*time.Hour))
	suite.createTestIssue(project.ID, "crit-old", models.IssueImpactCritical, models.IssueStatusOpen, suite.base.Add(1*time.Hour))
	suite.createTestIssue(project.ID, "high", models.IssueImpactHigh, models.IssueStatusOpen, suite.base.Add(2*time.Hour))
	suite.createTestIssue(project.ID, "crit-new", models.IssueImpactCritical, models.IssueStatusOpen, suite.base.Add(3*time.Hour))

	issues, total, err := suite.issues.List(IssueFilter{ProjectID: &project.ID})
	suite.Require().NoError(err)
	suite.Equal(int64(4), total)

	titles := make([]string, len(issues))
	for i, issue := range issues {
		titles[i] = issue.Title
	}
	suite.Equal([]string{"crit-new", "crit-old", "high", "low"}, titles)
}

func (suite *RepositoryTestSuite) TestIssueList_WarningPrefilter() {
	project := suite.createTestProject("g1", "Alpha", models.ProjectStatusInProgress)
	now := suite.base.AddDate(0, 0, 10)
	fresh := suite.createTestIssue(project.ID, "fresh", models.IssueImpactLow, models.IssueStatusOpen, now.Add(-time.Hour))
	stale := suite.createTestIssue(project.ID, "stale", models.IssueImpactLow, models.IssueStatusOpen, now.AddDate(0, 0, -4))
	warned := suite.createTestIssue(project.ID, "warned", models.IssueImpactLow, models.IssueStatusOpen, now.AddDate(0, 0, -4))
	suite.createTestIssue(project.ID, "handled", models.IssueImpactLow, models.IssueStatusInAction, now.AddDate(0, 0, -4))
	suite.Require().NoError(suite.issues.MarkWarning(warned.ID, now.Add(-time.Hour)))

	status := models.IssueStatusOpen
	createdBefore := now.AddDate(0, 0, -3)
	warnedBefore := now.Add(-6 * time.Hour)
	due, _, err := suite.issues.List(IssueFilter{Status: &status, CreatedBefore: &createdBefore, WarnedBefore: &warnedBefore})
	suite.Require().NoError(err)
	suite.Require().Len(due, 1)
	suite.Equal(stale.ID, due[0].ID)
	suite.NotEqual(fresh.ID, due[0].ID)
}

func (suite *RepositoryTestSuite) TestIssueCountActiveCritical() {
	project := suite.createTestProject("g1", "Alpha", models.ProjectStatusIssue)
	first := suite.createTestIssue(project.ID, "a", models.IssueImpactCritical, models.IssueStatusOpen, suite.base)
	suite.createTestIssue(project.ID, "b", models.IssueImpactCritical, models.IssueStatusInAction, suite.base)
	suite.createTestIssue(project.ID, "c", models.IssueImpactCritical, models.IssueStatusClosed, suite.base)
	suite.createTestIssue(project.ID, "d", models.IssueImpactHigh, models.IssueStatusOpen, suite.base)

	count, err := suite.issues.CountActiveCritical(project.ID, "")
	suite.Require().NoError(err)
	suite.Equal(int64(2), count)

	count, err = suite.issues.CountActiveCritical(project.ID, first.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(1), count)

	stats, err := suite.issues.StatsByProject(project.ID)
	suite.Require().NoError(err)
	suite.Equal(IssueStats{Total: 4, Open: 2, InAction: 1, Closed: 1, Critical: 2}, stats)
}

func (suite *RepositoryTestSuite) TestDecisionsAndDocuments() {
	project := suite.createTestProject("g1", "Alpha", models.ProjectStatusInProgress)
	decision := &models.Decision{
		ProjectID:    project.ID,
		Content:      "Adopt plan B",
		DeciderID:    "pm-1",
		RelatedLinks: []string{"https://example.com/a"},
	}
	suite.Require().NoError(suite.decisions.Create(decision))

	found, err := suite.decisions.FindByID(decision.ID)
	suite.Require().NoError(err)
	suite.Equal([]string{"https://example.com/a"}, []string(found.RelatedLinks))

	recent, err := suite.decisions.ListRecentByGuild("g1", 10)
	suite.Require().NoError(err)
	suite.Len(recent, 1)

	count, err := suite.decisions.CountByProject(project.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(1), count)

	suite.Require().NoError(suite.documents.Create(&models.Document{ProjectID: project.ID, Name: "Plan", Type: models.DocumentTypePlan, URL: "https://example.com/plan", RegistrantID: "pm-1"}))
	suite.Require().NoError(suite.documents.Create(&models.Document{ProjectID: project.ID, Name: "Minutes", Type: models.DocumentTypeMeeting, URL: "https://example.com/m", RegistrantID: "pm-1"}))

	docType := models.DocumentTypeMeeting
	docs, err := suite.documents.List(DocumentFilter{ProjectID: &project.ID, Type: &docType})
	suite.Require().NoError(err)
	suite.Require().Len(docs, 1)
	suite.Equal("Minutes", docs[0].Name)

	byType, err := suite.documents.CountByProjectAndType(project.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(1), byType[models.DocumentTypePlan])
}

func (suite *RepositoryTestSuite) TestGuildSettingsUpsert() {
	created, err := suite.settings.FindOrCreate("g1")
	suite.Require().NoError(err)
	suite.Equal(models.DefaultTimezone, created.Timezone)
	suite.False(created.HasNotificationChannel())

	channel := "chan-1"
	updated, err := suite.settings.Upsert("g1", GuildSettingsUpdate{NotificationChannelID: &channel})
	suite.Require().NoError(err)
	suite.True(updated.HasNotificationChannel())

	_, err = suite.settings.Upsert("g2", GuildSettingsUpdate{})
	suite.Require().NoError(err)

	withChannel, err := suite.settings.ListWithNotificationChannel()
	suite.Require().NoError(err)
	suite.Require().Len(withChannel, 1)
	suite.Equal("g1", withChannel[0].GuildID)

	empty := ""
	cleared, err := suite.settings.Upsert("g1", GuildSettingsUpdate{NotificationChannelID: &empty})
	suite.Require().NoError(err)
	suite.Nil(cleared.NotificationChannelID)
}

// TestRepositoryTestSuite runs the test suite
func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
