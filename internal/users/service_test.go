package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumbung-wms/lumbung-wms/internal/masterdata/shared"
	"github.com/lumbung-wms/lumbung-wms/internal/platform/httpx"
	"github.com/lumbung-wms/lumbung-wms/internal/rbac"
)

type memoryRepo struct {
	nextID int64
	users  map[int64]User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, users: map[int64]User{}}
}

func (m *memoryRepo) List(ctx context.Context, filters shared.ListFilters) ([]User, int, error) {
	var out []User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, httpx.ErrNotFound
	}
	return u, nil
}

func (m *memoryRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, httpx.ErrNotFound
}

func (m *memoryRepo) Create(ctx context.Context, user User) (User, error) {
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, user User) error {
	if _, ok := m.users[id]; !ok {
		return httpx.ErrNotFound
	}
	user.ID = id
	m.users[id] = user
	return nil
}

func (m *memoryRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return httpx.ErrNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	u, ok := m.users[id]
	if !ok {
		return httpx.ErrNotFound
	}
	u.IsActive = false
	m.users[id] = u
	return nil
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	return NewService(repo, rbac.NewService()), repo
}

func TestCreateHashesPassword(t *testing.T) {
	svc, repo := newTestService()

	created, err := svc.Create(context.Background(), User{
		Email:    "gudang@lumbung.local",
		Name:     "Staf Gudang",
		Role:     rbac.RoleStaff,
		IsActive: true,
	}, "rahasia-betul")
	require.NoError(t, err)
	require.NotEqual(t, "rahasia-betul", created.PasswordHash)

	stored := repo.users[created.ID]
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("rahasia-betul")))
}

func TestCreateRejectsShortPassword(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), User{
		Email: "a@b.c", Name: "A", Role: rbac.RoleStaff,
	}, "pendek")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), User{
		Email: "a@b.c", Name: "A", Role: "superuser",
	}, "cukup-panjang")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestChangePassword(t *testing.T) {
	svc, repo := newTestService()
	created, err := svc.Create(context.Background(), User{
		Email: "a@b.c", Name: "A", Role: rbac.RoleViewer, IsActive: true,
	}, "sandi-lama-1")
	require.NoError(t, err)
	oldHash := repo.users[created.ID].PasswordHash

	require.NoError(t, svc.ChangePassword(context.Background(), created.ID, "sandi-baru-1"))
	require.NotEqual(t, oldHash, repo.users[created.ID].PasswordHash)

	err = svc.ChangePassword(context.Background(), created.ID, "x")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDeleteMissingUser(t *testing.T) {
	svc, _ := newTestService()
	err := svc.Delete(context.Background(), 99)
	require.True(t, errors.Is(err, httpx.ErrNotFound))
}
