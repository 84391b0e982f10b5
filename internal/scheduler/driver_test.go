package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yukikurage/pmbot/internal/database"
	"github.com/yukikurage/pmbot/internal/dto"
	"github.com/yukikurage/pmbot/internal/lock"
	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/notifier"
	"github.com/yukikurage/pmbot/internal/repository"
	"github.com/yukikurage/pmbot/internal/services"
)

var kst = time.FixedZone("KST", 9*60*60)

type sentMessage struct {
	guildID   string
	channelID string
	msg       notifier.Message
}

type fakeSender struct {
	mu           sync.Mutex
	sent         []sentMessage
	failGuilds   map[string]bool
	failChannels map[string]bool
	panicGuild   string
}

func (f *fakeSender) Send(_ context.Context, guildID string, msg notifier.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if guildID == f.panicGuild {
		panic("sender exploded")
	}
	if f.failGuilds[guildID] {
		return notifier.ErrDeliveryFailed
	}
	f.sent = append(f.sent, sentMessage{guildID: guildID, msg: msg})
	return nil
}

func (f *fakeSender) SendTo(_ context.Context, channelID string, msg notifier.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failChannels[channelID] {
		return notifier.ErrDeliveryFailed
	}
	f.sent = append(f.sent, sentMessage{channelID: channelID, msg: msg})
	return nil
}

// flakyReports fails report building for the listed guilds
type flakyReports struct {
	ReportBuilder
	failGuilds map[string]bool
}

func (f *flakyReports) WeeklyReport(guildID string, now time.Time) (*dto.WeeklyReport, error) {
	if f.failGuilds[guildID] {
		return nil, errors.New("report query failed")
	}
	return f.ReportBuilder.WeeklyReport(guildID, now)
}

func (f *fakeSender) kinds() []notifier.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()

	kinds := make([]notifier.Kind, 0, len(f.sent))
	for _, s := range f.sent {
		kinds = append(kinds, s.msg.Kind)
	}
	return kinds
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

// DriverTestSuite runs the sweeps against sqlite
type DriverTestSuite struct {
	suite.Suite
	db         *gorm.DB
	now        time.Time
	sender     *fakeSender
	reports    *flakyReports
	locker     *lock.LocalLocker
	milestones repository.MilestoneRepository
	issues     repository.IssueRepository
	driver     *Driver
}

// SetupTest runs before each test
func (suite *DriverTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), database.NewGormConfig(logger.Silent))
	suite.Require().NoError(err)
	suite.Require().NoError(database.Migrate(suite.db))

	projectRepo := repository.NewProjectRepository(suite.db)
	suite.milestones = repository.NewMilestoneRepository(suite.db)
	suite.issues = repository.NewIssueRepository(suite.db)
	settingsRepo := repository.NewGuildSettingsRepository(suite.db)
	decisionRepo := repository.NewDecisionRepository(suite.db)

	suite.sender = &fakeSender{failGuilds: map[string]bool{}, failChannels: map[string]bool{}}
	suite.locker = lock.NewLocalLocker()
	suite.now = time.Date(2024, 1, 3, 9, 0, 0, 0, kst)

	suite.reports = &flakyReports{
		ReportBuilder: services.NewReportService(projectRepo, suite.milestones, suite.issues, decisionRepo, kst),
		failGuilds:    map[string]bool{},
	}

	suite.driver = NewDriver(Deps{
		Milestones: suite.milestones,
		Issues:     suite.issues,
		Settings:   settingsRepo,
		Reports:    suite.reports,
		Sender:     suite.sender,
		Locker:     suite.locker,
	}, Options{
		Location:        kst,
		LeadDays:        []int{7, 1},
		UnattendedDays:  3,
		WarningCooldown: 6 * time.Hour,
	}, nil).WithClock(func() time.Time { return suite.now.UTC() })
}

// TearDownTest runs after each test
func (suite *DriverTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func kstDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, kst).UTC()
}

func (suite *DriverTestSuite) createTestProject(guildID string) *models.Project {
	project := &models.Project{
		GuildID:   guildID,
		Name:      "Project " + guildID,
		PMID:      "pm-1",
		StartDate: kstDay(2023, 12, 1),
		EndDate:   kstDay(2024, 2, 29),
		Status:    models.ProjectStatusInProgress,
	}
	suite.Require().NoError(suite.db.Create(project).Error)
	return project
}

func (suite *DriverTestSuite) createTestMilestone(projectID string, target time.Time, status models.MilestoneStatus) *models.Milestone {
	assignee := "dev-1"
	milestone := &models.Milestone{
		ProjectID:  projectID,
		Name:       "Milestone " + target.Format("0102"),
		TargetDate: target,
		AssigneeID: &assignee,
		Status:     status,
	}
	suite.Require().NoError(suite.db.Create(milestone).Error)
	return milestone
}

func (suite *DriverTestSuite) createTestIssue(projectID string, status models.IssueStatus, createdAt time.Time) *models.Issue {
	issue := &models.Issue{
		ProjectID:  projectID,
		Title:      "Broken build",
		Content:    "ci is red",
		ReporterID: "u-1",
		Impact:     models.IssueImpactHigh,
		Status:     status,
		CreatedAt:  createdAt.UTC(),
	}
	suite.Require().NoError(suite.db.Create(issue).Error)
	return issue
}

func (suite *DriverTestSuite) reload(id string) *models.Milestone {
	milestone, err := suite.milestones.FindByID(id)
	suite.Require().NoError(err)
	return milestone
}

// Deadline sweep tests

func (suite *DriverTestSuite) TestDeadlineSweep_LeadReminders() {
	project := suite.createTestProject("g-1")
	d7 := suite.createTestMilestone(project.ID, kstDay(2024, 1, 10), models.MilestoneStatusScheduled)
	d1 := suite.createTestMilestone(project.ID, kstDay(2024, 1, 4), models.MilestoneStatusScheduled)
	suite.createTestMilestone(project.ID, kstDay(2024, 1, 5), models.MilestoneStatusScheduled)
	suite.createTestMilestone(project.ID, kstDay(2024, 1, 10), models.MilestoneStatusCompleted)

	res, err := suite.driver.RunDeadlineSweep(context.Background())
	suite.NoError(err)
	suite.Equal(2, res.Sent)
	suite.Equal(0, res.Failed)
	suite.ElementsMatch([]notifier.Kind{notifier.KindMilestoneD7, notifier.KindMilestoneD1}, suite.sender.kinds())

	suite.True(suite.reload(d7.ID).Notified(models.NotificationD7))
	suite.False(suite.reload(d7.ID).Notified(models.NotificationD1))
	suite.True(suite.reload(d1.ID).Notified(models.NotificationD1))
}

func (suite *DriverTestSuite) TestDeadlineSweep_Idempotent() {
	project := suite.createTestProject("g-1")
	suite.createTestMilestone(project.ID, kstDay(2024, 1, 10), models.MilestoneStatusScheduled)

	_, err := suite.driver.RunDeadlineSweep(context.Background())
	suite.Require().NoError(err)
	suite.Len(suite.sender.kinds(), 1)

	suite.sender.reset()
	res, err := suite.driver.RunDeadlineSweep(context.Background())
	suite.NoError(err)
	suite.Equal(0, res.Sent)
	suite.Empty(suite.sender.kinds())
}

func (suite *DriverTestSuite) TestDeadlineSweep_AdvancesStaleMilestones() {
	project := suite.createTestProject("g-1")
	stale := suite.createTestMilestone(project.ID, kstDay(2024, 1, 10), models.MilestoneStatusScheduled)
	dueToday := suite.createTestMilestone(project.ID, kstDay(2024, 1, 11), models.MilestoneStatusScheduled)

	suite.now = time.Date(2024, 1, 11, 9, 0, 0, 0, kst)

	res, err := suite.driver.RunDeadlineSweep(context.Background())
	suite.NoError(err)
	suite.Equal(int64(1), res.Advanced)

	suite.Equal(models.MilestoneStatusDelayed, suite.reload(stale.ID).Status)
	suite.Equal(models.MilestoneStatusScheduled, suite.reload(dueToday.ID).Status)

	suite.Equal([]notifier.Kind{notifier.KindMilestoneDelayed}, suite.sender.kinds())
	suite.True(suite.reload(stale.ID).Notified(models.NotificationDelayed))

	suite.sender.reset()
	suite.now = suite.now.Add(24 * time.Hour)
	res, err = suite.driver.RunDeadlineSweep(context.Background())
	suite.NoError(err)
	// The milestone due yesterday is delayed now; the one delayed before stays silent
	suite.Equal(int64(1), res.Advanced)
	suite.Equal([]notifier.Kind{notifier.KindMilestoneDelayed}, suite.sender.kinds())
}

func (suite *DriverTestSuite) TestDeadlineSweep_FailureIsolation() {
	ok := suite.createTestProject("g-ok")
	bad := suite.createTestProject("g-bad")
	okMilestone := suite.createTestMilestone(ok.ID, kstDay(2024, 1, 10), models.MilestoneStatusScheduled)
	badMilestone := suite.createTestMilestone(bad.ID, kstDay(2024, 1, 10), models.MilestoneStatusScheduled)
	suite.sender.failGuilds["g-bad"] = true

	res, err := suite.driver.RunDeadlineSweep(context.Background())
	suite.NoError(err)
	suite.Equal(1, res.Sent)
	suite.Equal(1, res.Failed)

	suite.True(suite.reload(okMilestone.ID).Notified(models.NotificationD7))
	suite.False(suite.reload(badMilestone.ID).Notified(models.NotificationD7))

	// A failed delivery is retried on the next run
	suite.sender.reset()
	suite.sender.failGuilds = map[string]bool{}
	res, err = suite.driver.RunDeadlineSweep(context.Background())
	suite.NoError(err)
	suite.Equal(1, res.Sent)
	suite.True(suite.reload(badMilestone.ID).Notified(models.NotificationD7))
}

func (suite *DriverTestSuite) TestDeadlineSweep_RecoversFromPanic() {
	boom := suite.createTestProject("g-boom")
	ok := suite.createTestProject("g-ok")
	suite.createTestMilestone(boom.ID, kstDay(2024, 1, 10), models.MilestoneStatusScheduled)
	suite.createTestMilestone(ok.ID, kstDay(2024, 1, 10), models.MilestoneStatusScheduled)
	suite.sender.panicGuild = "g-boom"

	res, err := suite.driver.RunDeadlineSweep(context.Background())
	suite.NoError(err)
	suite.Equal(1, res.Sent)
	suite.Equal(1, res.Failed)
}

func (suite *DriverTestSuite) TestDeadlineSweep_InProgress() {
	release, err := suite.locker.Acquire(context.Background(), SweepDeadline)
	suite.Require().NoError(err)
	defer release()

	_, err = suite.driver.RunDeadlineSweep(context.Background())
	suite.True(errors.Is(err, ErrSweepInProgress))

	// Other sweeps hold their own locks
	_, err = suite.driver.RunIssueWatch(context.Background())
	suite.NoError(err)
}

func (suite *DriverTestSuite) TestDeadlineSweep_CancelledContext() {
	project := suite.createTestProject("g-1")
	suite.createTestMilestone(project.ID, kstDay(2024, 1, 10), models.MilestoneStatusScheduled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := suite.driver.RunDeadlineSweep(ctx)
	suite.True(errors.Is(err, context.Canceled))
	suite.Empty(suite.sender.kinds())
}

// Issue watch tests

func (suite *DriverTestSuite) TestIssueWatch_WarnsUnattendedIssues() {
	project := suite.createTestProject("g-1")
	old := suite.createTestIssue(project.ID, models.IssueStatusOpen, suite.now.Add(-4*24*time.Hour))
	suite.createTestIssue(project.ID, models.IssueStatusOpen, suite.now.Add(-2*24*time.Hour))
	suite.createTestIssue(project.ID, models.IssueStatusInAction, suite.now.Add(-10*24*time.Hour))

	res, err := suite.driver.RunIssueWatch(context.Background())
	suite.NoError(err)
	suite.Equal(1, res.Sent)
	suite.Equal([]notifier.Kind{notifier.KindIssueWarning}, suite.sender.kinds())

	issue, err := suite.issues.FindByID(old.ID)
	suite.Require().NoError(err)
	suite.Require().NotNil(issue.LastWarningAt)
	suite.True(issue.LastWarningAt.Equal(suite.now))
}

func (suite *DriverTestSuite) TestIssueWatch_Cooldown() {
	project := suite.createTestProject("g-1")
	suite.createTestIssue(project.ID, models.IssueStatusOpen, suite.now.Add(-4*24*time.Hour))

	_, err := suite.driver.RunIssueWatch(context.Background())
	suite.Require().NoError(err)
	suite.sender.reset()

	suite.now = suite.now.Add(5 * time.Hour)
	res, err := suite.driver.RunIssueWatch(context.Background())
	suite.NoError(err)
	suite.Equal(0, res.Sent)

	suite.now = suite.now.Add(time.Hour)
	res, err = suite.driver.RunIssueWatch(context.Background())
	suite.NoError(err)
	suite.Equal(1, res.Sent)
}

func (suite *DriverTestSuite) TestIssueWatch_FailureLeavesIssueUnwarned() {
	project := suite.createTestProject("g-bad")
	created := suite.createTestIssue(project.ID, models.IssueStatusOpen, suite.now.Add(-4*24*time.Hour))
	suite.sender.failGuilds["g-bad"] = true

	res, err := suite.driver.RunIssueWatch(context.Background())
	suite.NoError(err)
	suite.Equal(1, res.Failed)

	issue, err := suite.issues.FindByID(created.ID)
	suite.Require().NoError(err)
	suite.Nil(issue.LastWarningAt)
}

// Weekly report tests

func (suite *DriverTestSuite) TestWeeklyReport_SendsToConfiguredGuilds() {
	channel := "chan-1"
	suite.Require().NoError(suite.db.Create(&models.GuildSettings{GuildID: "g-1", NotificationChannelID: &channel, Timezone: "Asia/Seoul"}).Error)
	suite.Require().NoError(suite.db.Create(&models.GuildSettings{GuildID: "g-2", Timezone: "Asia/Seoul"}).Error)
	suite.createTestProject("g-1")

	res, err := suite.driver.RunWeeklyReport(context.Background())
	suite.NoError(err)
	suite.Equal(1, res.Sent)

	suite.Require().Len(suite.sender.sent, 1)
	suite.Equal("chan-1", suite.sender.sent[0].channelID)
	suite.Equal(notifier.KindWeeklyReport, suite.sender.sent[0].msg.Kind)
}

func (suite *DriverTestSuite) TestWeeklyReport_FailureIsolation() {
	for _, guild := range []string{"g-1", "g-2", "g-3"} {
		channel := "chan-" + guild
		suite.Require().NoError(suite.db.Create(&models.GuildSettings{GuildID: guild, NotificationChannelID: &channel, Timezone: "Asia/Seoul"}).Error)
		suite.createTestProject(guild)
	}
	suite.reports.failGuilds["g-1"] = true
	suite.sender.failChannels["chan-g-2"] = true

	res, err := suite.driver.RunWeeklyReport(context.Background())
	suite.NoError(err)
	suite.Equal(3, res.Examined)
	suite.Equal(2, res.Failed)
	suite.Equal(1, res.Sent)

	suite.Require().Len(suite.sender.sent, 1)
	suite.Equal("chan-g-3", suite.sender.sent[0].channelID)

	// the next run delivers once the guilds recover
	suite.sender.reset()
	delete(suite.reports.failGuilds, "g-1")
	delete(suite.sender.failChannels, "chan-g-2")

	res, err = suite.driver.RunWeeklyReport(context.Background())
	suite.NoError(err)
	suite.Equal(3, res.Sent)
	suite.Equal(0, res.Failed)
}

func TestDriverTestSuite(t *testing.T) {
	suite.Run(t, new(DriverTestSuite))
}
