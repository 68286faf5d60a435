package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anton-kx/timetable-api/internal/models"
	appErrors "github.com/anton-kx/timetable-api/pkg/errors"
)

type mockUserStore struct {
	ensured []int64
	active  map[int64]int64
	groups  map[int64]*models.Group
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{active: map[int64]int64{}, groups: map[int64]*models.Group{}}
}

func (m *mockUserStore) Ensure(ctx context.Context, userID int64) error {
	m.ensured = append(m.ensured, userID)
	return nil
}

func (m *mockUserStore) SetActiveGroup(ctx context.Context, userID, groupID int64) error {
	m.active[userID] = groupID
	return nil
}

func (m *mockUserStore) ActiveGroup(ctx context.Context, userID int64) (*models.Group, error) {
	if groupID, ok := m.active[userID]; ok {
		return m.groups[groupID], nil
	}
	return nil, nil
}

type mockGroupFinder struct {
	byID   map[int64]*models.Group
	byCode map[string]*models.Group
}

func (m *mockGroupFinder) FindByID(ctx context.Context, id int64) (*models.Group, error) {
	if g, ok := m.byID[id]; ok {
		return g, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGroupFinder) FindByCode(ctx context.Context, code string) (*models.Group, error) {
	if g, ok := m.byCode[code]; ok {
		return g, nil
	}
	return nil, sql.ErrNoRows
}

func newUserFixture() (*UserService, *mockUserStore) {
	group := &models.Group{ID: 7, Code: "БИ-101"}
	store := newMockUserStore()
	store.groups[7] = group
	finder := &mockGroupFinder{
		byID:   map[int64]*models.Group{7: group},
		byCode: map[string]*models.Group{"БИ-101": group},
	}
	return NewUserService(store, finder, nil), store
}

func TestSelectGroup(t *testing.T) {
	svc, store := newUserFixture()

	group, err := svc.SelectGroup(context.Background(), 42, 7)
	require.NoError(t, err)
	assert.Equal(t, "БИ-101", group.Code)
	assert.Equal(t, []int64{42}, store.ensured)
	assert.Equal(t, int64(7), store.active[42])
}

func TestSelectGroupUnknownID(t *testing.T) {
	svc, _ := newUserFixture()

	_, err := svc.SelectGroup(context.Background(), 42, 99)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSelectGroupByCode(t *testing.T) {
	svc, store := newUserFixture()

	group, err := svc.SelectGroupByCode(context.Background(), 42, "БИ-101")
	require.NoError(t, err)
	assert.Equal(t, int64(7), group.ID)
	assert.Equal(t, int64(7), store.active[42])
}

func TestActiveGroupNoneSelected(t *testing.T) {
	svc, _ := newUserFixture()

	_, err := svc.ActiveGroup(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestActiveGroupAfterSelection(t *testing.T) {
	svc, _ := newUserFixture()

	_, err := svc.SelectGroup(context.Background(), 42, 7)
	require.NoError(t, err)

	group, err := svc.ActiveGroup(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "БИ-101", group.Code)
}
