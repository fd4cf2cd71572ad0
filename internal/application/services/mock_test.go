package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

// MockUserRepository keeps users in memory.
type MockUserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entities.User
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[uuid.UUID]*entities.User)}
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return entities.ErrEmailTaken
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (m *MockUserRepository) MarkConfirmed(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return entities.ErrUserNotFound
	}
	if u.ConfirmedAt == nil {
		u.ConfirmedAt = &at
	}
	return nil
}

type mockCode struct {
	userID    uuid.UUID
	expiresAt time.Time
	used      bool
}

// MockAuthRepository keeps confirmation codes in memory.
type MockAuthRepository struct {
	mu    sync.Mutex
	codes map[string]*mockCode
}

func NewMockAuthRepository() *MockAuthRepository {
	return &MockAuthRepository{codes: make(map[string]*mockCode)}
}

func (m *MockAuthRepository) CreateConfirmationCode(ctx context.Context, userID uuid.UUID, codeHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[codeHash] = &mockCode{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *MockAuthRepository) ConsumeConfirmationCode(ctx context.Context, codeHash string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[codeHash]
	if !ok || c.used || time.Now().After(c.expiresAt) {
		return uuid.Nil, entities.ErrInvalidCode
	}
	c.used = true
	return c.userID, nil
}

func (m *MockAuthRepository) CleanupExpiredCodes(ctx context.Context) error {
	return nil
}

// MockProfileRepository keeps profile rows in memory.
type MockProfileRepository struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*entities.ProfileRecord
}

func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{profiles: make(map[uuid.UUID]*entities.ProfileRecord)}
}

func (m *MockProfileRepository) Create(ctx context.Context, profile *entities.ProfileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[profile.ID]; ok {
		return nil
	}
	cp := *profile
	m.profiles[profile.ID] = &cp
	return nil
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.ProfileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, entities.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockProfileRepository) Update(ctx context.Context, id uuid.UUID, patch entities.ProfilePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return entities.ErrProfileNotFound
	}
	if patch.Username != nil {
		p.Username = entities.NullableString(*patch.Username)
	}
	if patch.Email != nil {
		p.Email = entities.NullableString(*patch.Email)
	}
	if patch.ProfilePicture != nil {
		p.AvatarURL = entities.NullableString(*patch.ProfilePicture)
	}
	return nil
}

// MockBoardRepositories implements the project, task and sub-task
// repositories over one in-memory store so deletes can cascade.
type MockBoardRepositories struct {
	mu       sync.Mutex
	projects []entities.ProjectRecord
	tasks    []entities.TaskRecord
	subTasks []entities.SubTaskRecord
	calls    map[string]int

	ListByUserFunc func(ctx context.Context, userID uuid.UUID) ([]entities.ProjectRecord, error)
	// OnGetProject runs before every project lookup, outside the lock.
	OnGetProject func(id uuid.UUID)
}

func NewMockBoardRepositories() *MockBoardRepositories {
	return &MockBoardRepositories{calls: make(map[string]int)}
}

func (m *MockBoardRepositories) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *MockBoardRepositories) Projects() ports.ProjectRepository { return mockProjects{m} }
func (m *MockBoardRepositories) Tasks() ports.TaskRepository       { return mockTasks{m} }
func (m *MockBoardRepositories) SubTasks() ports.SubTaskRepository { return mockSubTasks{m} }

type mockProjects struct{ m *MockBoardRepositories }

func (r mockProjects) Create(ctx context.Context, p *entities.ProjectRecord) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.calls["Projects.Create"]++
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.SortOrder = len(r.m.projects)
	p.CreatedAt = time.Now()
	r.m.projects = append(r.m.projects, *p)
	return nil
}

func (r mockProjects) GetByID(ctx context.Context, id uuid.UUID) (*entities.ProjectRecord, error) {
	if r.m.OnGetProject != nil {
		r.m.OnGetProject(id)
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.projects {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, entities.ErrProjectNotFound
}

func (r mockProjects) Update(ctx context.Context, id uuid.UUID, patch entities.ProjectPatch) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := range r.m.projects {
		if r.m.projects[i].ID == id {
			if patch.Name != nil {
				r.m.projects[i].Name = *patch.Name
			}
			if patch.Icon != nil {
				r.m.projects[i].Icon = entities.NullableString(*patch.Icon)
			}
			return nil
		}
	}
	return entities.ErrProjectNotFound
}

func (r mockProjects) Delete(ctx context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.calls["Projects.Delete"]++
	return r.deleteLocked(id)
}

func (r mockProjects) DeleteUnlessLast(ctx context.Context, userID, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	owned := 0
	for _, p := range r.m.projects {
		if p.UserID == userID {
			owned++
		}
	}
	if owned <= 1 {
		return entities.ErrLastProject
	}
	r.m.calls["Projects.Delete"]++
	return r.deleteLocked(id)
}

func (r mockProjects) deleteLocked(id uuid.UUID) error {
	for i, p := range r.m.projects {
		if p.ID == id {
			r.m.projects = append(r.m.projects[:i], r.m.projects[i+1:]...)
			kept := r.m.tasks[:0]
			for _, t := range r.m.tasks {
				if t.ProjectID != id {
					kept = append(kept, t)
				}
			}
			r.m.tasks = kept
			return nil
		}
	}
	return entities.ErrProjectNotFound
}

func (r mockProjects) ListByUser(ctx context.Context, userID uuid.UUID) ([]entities.ProjectRecord, error) {
	if r.m.ListByUserFunc != nil {
		return r.m.ListByUserFunc(ctx, userID)
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.calls["Projects.ListByUser"]++
	out := []entities.ProjectRecord{}
	for _, p := range r.m.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r mockProjects) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	list, err := r.ListByUser(ctx, userID)
	return len(list), err
}

type mockTasks struct{ m *MockBoardRepositories }

func (r mockTasks) Create(ctx context.Context, t *entities.TaskRecord) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	r.m.tasks = append(r.m.tasks, *t)
	return nil
}

func (r mockTasks) GetByID(ctx context.Context, id uuid.UUID) (*entities.TaskRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, t := range r.m.tasks {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, entities.ErrTaskNotFound
}

func (r mockTasks) Update(ctx context.Context, id uuid.UUID, patch entities.TaskPatch) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.calls["Tasks.Update"]++
	for i := range r.m.tasks {
		t := &r.m.tasks[i]
		if t.ID != id {
			continue
		}
		if patch.Title != nil {
			t.Title = *patch.Title
		}
		if patch.Status != nil {
			t.Status = *patch.Status
		}
		if patch.DueDate != nil {
			t.DueDate, _ = entities.ParseDatePtr(*patch.DueDate)
		}
		return nil
	}
	return entities.ErrTaskNotFound
}

func (r mockTasks) Delete(ctx context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i, t := range r.m.tasks {
		if t.ID == id {
			r.m.tasks = append(r.m.tasks[:i], r.m.tasks[i+1:]...)
			return nil
		}
	}
	return entities.ErrTaskNotFound
}

func (r mockTasks) ListByProjects(ctx context.Context, projectIDs []uuid.UUID) ([]entities.TaskRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []entities.TaskRecord{}
	for _, t := range r.m.tasks {
		for _, id := range projectIDs {
			if t.ProjectID == id {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (r mockTasks) ListDue(ctx context.Context, projectIDs []uuid.UUID, from, to entities.Date) ([]entities.TaskRecord, error) {
	all, _ := r.ListByProjects(ctx, projectIDs)
	out := []entities.TaskRecord{}
	for _, t := range all {
		if t.DueDate != nil && !t.DueDate.Before(from) && !t.DueDate.After(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

type mockSubTasks struct{ m *MockBoardRepositories }

func (r mockSubTasks) Create(ctx context.Context, st *entities.SubTaskRecord) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	r.m.subTasks = append(r.m.subTasks, *st)
	return nil
}

func (r mockSubTasks) GetByID(ctx context.Context, id uuid.UUID) (*entities.SubTaskRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, st := range r.m.subTasks {
		if st.ID == id {
			return &st, nil
		}
	}
	return nil, entities.ErrSubTaskNotFound
}

func (r mockSubTasks) Update(ctx context.Context, id uuid.UUID, patch entities.SubTaskPatch) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := range r.m.subTasks {
		if r.m.subTasks[i].ID == id {
			if patch.Title != nil {
				r.m.subTasks[i].Title = *patch.Title
			}
			if patch.IsCompleted != nil {
				r.m.subTasks[i].IsCompleted = *patch.IsCompleted
			}
			return nil
		}
	}
	return entities.ErrSubTaskNotFound
}

func (r mockSubTasks) Delete(ctx context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i, st := range r.m.subTasks {
		if st.ID == id {
			r.m.subTasks = append(r.m.subTasks[:i], r.m.subTasks[i+1:]...)
			return nil
		}
	}
	return entities.ErrSubTaskNotFound
}

func (r mockSubTasks) ListByTasks(ctx context.Context, taskIDs []uuid.UUID) ([]entities.SubTaskRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []entities.SubTaskRecord{}
	for _, st := range r.m.subTasks {
		for _, id := range taskIDs {
			if st.TaskID == id {
				out = append(out, st)
			}
		}
	}
	return out, nil
}

// MockCache stores JSON values in memory.
type MockCache struct {
	mu     sync.Mutex
	values map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{values: make(map[string][]byte)}
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = data
	return nil
}

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	data, ok := m.values[key]
	m.mu.Unlock()
	if !ok {
		return ports.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MockCache) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	if data, ok := m.values[key]; ok {
		if err := json.Unmarshal(data, &n); err != nil {
			return 0, err
		}
	}
	n++
	data, _ := json.Marshal(n)
	m.values[key] = data
	return n, nil
}

// MockStorage keeps uploaded files in memory.
type MockStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewMockStorage() *MockStorage {
	return &MockStorage{files: make(map[string][]byte)}
}

func (m *MockStorage) Upload(ctx context.Context, bucket, path, contentType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[bucket+"/"+path] = data
	return nil
}

func (m *MockStorage) Open(ctx context.Context, bucket, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[bucket+"/"+path]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockStorage) PublicURL(bucket, path string) string {
	return "http://files.test/" + bucket + "/" + path
}

// MockMailer records the last confirmation link per address.
type MockMailer struct {
	mu    sync.Mutex
	links map[string]string
}

func NewMockMailer() *MockMailer {
	return &MockMailer{links: make(map[string]string)}
}

func (m *MockMailer) SendConfirmation(ctx context.Context, email, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[email] = link
	return nil
}

func (m *MockMailer) Link(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[email]
}

// recordingRecorder counts mutation outcomes.
type recordingRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingRecorder) RecordMutation(entity, op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.outcomes = append(r.outcomes, entity+"/"+op+"/"+result)
}
