package parser

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	appErrors "github.com/anton-kx/timetable-api/pkg/errors"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) io.Reader {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestLayoutFromNames(t *testing.T) {
	layout, err := LayoutFromNames(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultLayout(), layout)

	layout, err = LayoutFromNames([]string{"group", "date", "time", "subject"})
	require.NoError(t, err)
	assert.Equal(t, 0, layout.Group)
	assert.Equal(t, 1, layout.Date)
	assert.Equal(t, -1, layout.Teacher)

	_, err = LayoutFromNames([]string{"date", "time", "subject", "weekday"})
	assert.Error(t, err)

	_, err = LayoutFromNames([]string{"date", "time", "subject"})
	assert.Error(t, err)
}

func TestWorkbookParse(t *testing.T) {
	w, err := NewWorkbook(nil, nil)
	require.NoError(t, err)

	rows := [][]interface{}{
		{"Расписание занятий"},
		{"Дата", "Время", "Дисциплина", "Преподаватель", "Аудитория", "БИ-101"},
		{"02.09.2024", "10:30-12:05", "Математика", "Иванов И.И.", "Б-204", "би-101"},
		{"02.09.2024", "12:15-13:50", "Физика", "", "", "БИ-101"},
		{"", "", "", "", "", ""},
		{"02.09.2024", "не время", "История", "Петров П.П.", "101", "БИ-101"},
	}

	lessons, err := w.Parse(buildWorkbook(t, rows))
	require.NoError(t, err)
	require.Len(t, lessons, 2)

	first := lessons[0]
	assert.Equal(t, "БИ-101", first.GroupCode)
	assert.Equal(t, time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "10:30", first.StartTime.String())
	assert.Equal(t, "12:05", first.EndTime.String())
	assert.Equal(t, "Математика", first.Subject)
	require.NotNil(t, first.Teacher)
	assert.Equal(t, "Иванов И.И.", *first.Teacher)
	require.NotNil(t, first.Room)
	assert.Equal(t, "Б-204", *first.Room)

	second := lessons[1]
	assert.Nil(t, second.Teacher)
	assert.Nil(t, second.Room)
}

func TestWorkbookParseSerialDates(t *testing.T) {
	w, err := NewWorkbook(nil, nil)
	require.NoError(t, err)

	rows := [][]interface{}{
		{"Дата", "Время", "Дисциплина", "Преподаватель", "Аудитория", "БИ-101"},
		{45537, "10:30-12:05", "Математика", "", "", "БИ-101"},
	}

	lessons, err := w.Parse(buildWorkbook(t, rows))
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC), lessons[0].Date)
}

func TestWorkbookParseHeaderNotFound(t *testing.T) {
	w, err := NewWorkbook(nil, nil)
	require.NoError(t, err)

	rows := [][]interface{}{
		{"Расписание"},
		{"без заголовка"},
	}

	_, err = w.Parse(buildWorkbook(t, rows))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrHeaderNotFound)
}
