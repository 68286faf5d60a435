package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anton-kx/timetable-api/internal/models"
	appErrors "github.com/anton-kx/timetable-api/pkg/errors"
)

func testLesson(t *testing.T) models.Lesson {
	t.Helper()
	lesson, err := models.NewLesson(
		"БИ-101",
		time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC),
		models.TimeOfDay{Hour: 10, Minute: 30},
		models.TimeOfDay{Hour: 12, Minute: 5},
		"Математика",
		"Иванов И.И.",
		"Б-204",
	)
	require.NoError(t, err)
	return lesson
}

func TestLoadBatchInsertsEverything(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLessonRepository(db)
	meta := models.SourceFileMeta{URL: "https://guu.ru/f.xlsx", SHA256: "abc", FetchedAt: time.Now()}
	lesson := testLesson(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO source_file")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM "group" WHERE code`)).
		WithArgs("БИ-101").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO teacher")).
		WithArgs("Иванов И.И.").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO room")).
		WithArgs("Б", "204").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lesson")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := repo.LoadBatch(context.Background(), meta, []models.Lesson{lesson})
	require.NoError(t, err)
	assert.Equal(t, int64(9), result.SourceID)
	assert.Equal(t, 1, result.Inserted)
	assert.False(t, result.Skipped)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadBatchSkipsKnownSource(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLessonRepository(db)
	meta := models.SourceFileMeta{URL: "https://guu.ru/f.xlsx", SHA256: "abc", FetchedAt: time.Now()}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO source_file")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM source_file WHERE sha256")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectRollback()

	result, err := repo.LoadBatch(context.Background(), meta, []models.Lesson{testLesson(t)})
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, int64(4), result.SourceID)
	assert.Equal(t, 0, result.Inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadBatchUnknownGroupRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLessonRepository(db)
	meta := models.SourceFileMeta{URL: "https://guu.ru/f.xlsx", SHA256: "abc", FetchedAt: time.Now()}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO source_file")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM "group" WHERE code`)).
		WithArgs("БИ-101").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.LoadBatch(context.Background(), meta, []models.Lesson{testLesson(t)})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrUnknownGroup.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonsForDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLessonRepository(db)
	date := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "group_id", "date", "start_time", "end_time", "subject", "teacher_name", "room_building", "room_number"}).
		AddRow(1, 1, date, "10:30:00", "12:05:00", "Математика", "Иванов И.И.", "Б", "204").
		AddRow(2, 1, date, "12:15:00", "13:50:00", "Физика", nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN teacher")).
		WithArgs(int64(1), date).
		WillReturnRows(rows)

	lessons, err := repo.LessonsForDay(context.Background(), 1, date)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, "10:30", lessons[0].StartTime.String())
	require.NotNil(t, lessons[0].TeacherName)
	assert.Nil(t, lessons[1].TeacherName)
	require.NoError(t, mock.ExpectationsWereMet())
}
