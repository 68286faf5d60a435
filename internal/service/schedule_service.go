package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anton-kx/timetable-api/internal/models"
	appErrors "github.com/anton-kx/timetable-api/pkg/errors"
)

// EmptyWeekText is the fixed sentinel the chat front end shows for a week
// without a single lesson. The exact string is part of the bot contract.
const EmptyWeekText = "ℹ️ На этой неделе занятий нет."

type lessonReader interface {
	LessonsForDay(ctx context.Context, groupID int64, date time.Time) ([]models.LessonDetail, error)
}

type groupReader interface {
	FindByID(ctx context.Context, id int64) (*models.Group, error)
	List(ctx context.Context, filter models.GroupFilter) ([]models.Group, int, error)
}

// ScheduleService answers "what classes does group G have" for the chat
// front end, with rendered texts cached per day and per week.
type ScheduleService struct {
	lessons lessonReader
	groups  groupReader
	cache   *CacheService
	dayTTL  time.Duration
	weekTTL time.Duration
	logger  *zap.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(lessons lessonReader, groups groupReader, cache *CacheService, dayTTL, weekTTL time.Duration, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{lessons: lessons, groups: groups, cache: cache, dayTTL: dayTTL, weekTTL: weekTTL, logger: logger}
}

// Groups lists study groups for the selection keyboard.
func (s *ScheduleService) Groups(ctx context.Context, filter models.GroupFilter) ([]models.Group, *models.Pagination, error) {
	groups, total, err := s.groups.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return groups, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// LessonsForDay returns a group's lessons on a date ordered by start time.
func (s *ScheduleService) LessonsForDay(ctx context.Context, groupID int64, date time.Time) ([]models.LessonDetail, error) {
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	lessons, err := s.lessons.LessonsForDay(ctx, groupID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	return lessons, nil
}

// DayText renders the schedule text for one day, serving from cache when
// possible.
func (s *ScheduleService) DayText(ctx context.Context, groupID int64, date time.Time) (string, error) {
	key := fmt.Sprintf("schedule:day:%d:%s", groupID, date.Format("2006-01-02"))
	var cached string
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	text, _, err := s.dayText(ctx, groupID, date)
	if err != nil {
		return "", err
	}
	_ = s.cache.Set(ctx, key, text, s.dayTTL)
	return text, nil
}

// WeekText renders the schedule for the study week (Monday through Saturday)
// containing the given date. Days without lessons are omitted; a week with
// none at all yields EmptyWeekText.
func (s *ScheduleService) WeekText(ctx context.Context, groupID int64, date time.Time) (string, error) {
	monday := MondayOf(date)
	key := fmt.Sprintf("schedule:week:%d:%s", groupID, monday.Format("2006-01-02"))
	var cached string
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	var blocks []string
	for i := 0; i < 6; i++ {
		day := monday.AddDate(0, 0, i)
		text, hasLessons, err := s.dayText(ctx, groupID, day)
		if err != nil {
			return "", err
		}
		if !hasLessons {
			continue
		}
		blocks = append(blocks, text)
	}

	result := EmptyWeekText
	if len(blocks) > 0 {
		result = strings.Join(blocks, "\n\n")
	}
	_ = s.cache.Set(ctx, key, result, s.weekTTL)
	return result, nil
}

// InvalidateGroup drops cached texts after new data lands for a group.
func (s *ScheduleService) InvalidateGroup(ctx context.Context, groupID int64) {
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("schedule:day:%d:*", groupID))
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("schedule:week:%d:*", groupID))
}

// InvalidateAll drops every cached schedule text, used after sync runs.
func (s *ScheduleService) InvalidateAll(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, "schedule:day:*")
	_ = s.cache.Invalidate(ctx, "schedule:week:*")
}

func (s *ScheduleService) dayText(ctx context.Context, groupID int64, date time.Time) (string, bool, error) {
	lessons, err := s.lessons.LessonsForDay(ctx, groupID, date)
	if err != nil {
		return "", false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	if len(lessons) == 0 {
		return fmt.Sprintf("📅 На %s занятий нет!", date.Format("02.01.2006")), false, nil
	}

	lines := []string{fmt.Sprintf("📅 **Расписание на %s**", date.Format("02.01.2006"))}
	for i, l := range lessons {
		room := ""
		if l.RoomNumber != nil {
			if l.RoomBuilding != nil && *l.RoomBuilding != "" {
				room = fmt.Sprintf(" (%s-%s)", *l.RoomBuilding, *l.RoomNumber)
			} else {
				room = fmt.Sprintf(" (%s)", *l.RoomNumber)
			}
		}
		teacher := ""
		if l.TeacherName != nil {
			teacher = fmt.Sprintf("\n_преп.: %s_", *l.TeacherName)
		}
		lines = append(lines, fmt.Sprintf("%d. `%s–%s` **%s**%s%s", i+1, l.StartTime, l.EndTime, l.Subject, room, teacher))
	}
	return strings.Join(lines, "\n"), true, nil
}

// MondayOf returns the Monday of the week containing d, at midnight UTC.
func MondayOf(d time.Time) time.Time {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
