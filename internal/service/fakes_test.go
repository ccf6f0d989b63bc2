package service_test

import (
	"context"
	"saas-auth-server/internal/apperror"
	"saas-auth-server/internal/model"
	"sort"
	"strings"
	"sync"
	"time"
)

// ===== IN-MEMORY STORES =====

type memUsers struct {
	mu     sync.Mutex
	rows   map[int64]*model.User
	nextID int64
	err    error
}

func newMemUsers() *memUsers {
	return &memUsers{rows: map[int64]*model.User{}}
}

func (m *memUsers) Create(ctx context.Context, user *model.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	for _, row := range m.rows {
		if strings.EqualFold(row.Email, user.Email) || strings.EqualFold(row.Username, user.Username) {
			return 0, apperror.Conflict("User already exists")
		}
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	m.rows[user.ID] = &stored
	return user.ID, nil
}

func (m *memUsers) FindByID(ctx context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if row, ok := m.rows[id]; ok {
		copied := *row
		return &copied, nil
	}
	return nil, nil
}

func (m *memUsers) FindByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	return m.FindByEmailOrUsername(ctx, identifier, identifier)
}

func (m *memUsers) FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for id := int64(1); id <= m.nextID; id++ {
		row, ok := m.rows[id]
		if ok && (strings.EqualFold(row.Email, email) || strings.EqualFold(row.Username, username)) {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memUsers) UpdateProfile(ctx context.Context, id int64, update model.ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || row.IsDeleted {
		return apperror.NotFound("User not found")
	}
	if update.Email != nil {
		row.Email = *update.Email
	}
	if update.Username != nil {
		row.Username = *update.Username
	}
	if update.DisplayName != nil {
		row.DisplayName = *update.DisplayName
	}
	return nil
}

func (m *memUsers) UpdatePassword(ctx context.Context, id int64, digest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return apperror.NotFound("User not found")
	}
	row.PasswordHash = digest
	return nil
}

func (m *memUsers) SoftDelete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || row.IsDeleted {
		return apperror.NotFound("User not found")
	}
	now := time.Now()
	row.IsDeleted = true
	row.DeletedAt = &now
	return nil
}

func (m *memUsers) set(id int64, mutate func(*model.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mutate(m.rows[id])
}

type memSessions struct {
	mu        sync.Mutex
	refresh   map[int64]*model.RefreshSession
	access    map[string]*model.AccessToken
	blacklist []model.BlacklistEntry
	nextID    int64
	now       func() time.Time
	err       error
}

func newMemSessions(now func() time.Time) *memSessions {
	return &memSessions{refresh: map[int64]*model.RefreshSession{}, access: map[string]*model.AccessToken{}, now: now}
}

func (m *memSessions) StoreRefreshToken(ctx context.Context, userID int64, deviceID *int64, token string, expiresAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.nextID++
	m.refresh[m.nextID] = &model.RefreshSession{ID: m.nextID, UserID: userID, DeviceID: deviceID, Token: token, Valid: 1, ExpiresAt: expiresAt}
	return m.nextID, nil
}

func (m *memSessions) StoreAccessToken(ctx context.Context, userID, refreshID int64, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.nextID++
	m.access[token] = &model.AccessToken{ID: m.nextID, UserID: userID, RefreshID: refreshID, Token: token, ExpiresAt: expiresAt}
	return nil
}

func (m *memSessions) GetRefreshToken(ctx context.Context, token string) (*model.RefreshSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, session := range m.refresh {
		if session.Token == token {
			copied := *session
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memSessions) GetRefreshByID(ctx context.Context, id int64) (*model.RefreshSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if session, ok := m.refresh[id]; ok {
		copied := *session
		return &copied, nil
	}
	return nil, nil
}

func (m *memSessions) GetAccessToken(ctx context.Context, token string) (*model.AccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if access, ok := m.access[token]; ok {
		copied := *access
		return &copied, nil
	}
	return nil, nil
}

func (m *memSessions) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, entry := range m.blacklist {
		if entry.Token == token && (entry.ExpiresAt == nil || entry.ExpiresAt.After(m.now())) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memSessions) BlacklistToken(ctx context.Context, userID int64, token string, tokenType model.TokenType, expiresAt *time.Time, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blacklist = append(m.blacklist, model.BlacklistEntry{UserID: userID, Token: token, TokenType: tokenType, Reason: reason, ExpiresAt: expiresAt})
	return nil
}

func (m *memSessions) InvalidateRefreshToken(ctx context.Context, session *model.RefreshSession, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidateLocked(session.ID)
	expires := session.ExpiresAt
	m.blacklist = append(m.blacklist, model.BlacklistEntry{UserID: session.UserID, Token: session.Token, TokenType: model.TokenTypeRefresh, Reason: reason, ExpiresAt: &expires})
	return nil
}

func (m *memSessions) invalidateLocked(refreshID int64) bool {
	session, ok := m.refresh[refreshID]
	if !ok {
		return false
	}
	wasValid := session.IsValid()
	session.Valid = 0
	for token, access := range m.access {
		if access.RefreshID == refreshID {
			delete(m.access, token)
		}
	}
	return wasValid
}

func (m *memSessions) RevokeByRefreshToken(ctx context.Context, token, reason string) (bool, error) {
	session, err := m.GetRefreshToken(ctx, token)
	if err != nil || session == nil {
		return false, err
	}
	return true, m.InvalidateRefreshToken(ctx, session, reason)
}

func (m *memSessions) RevokeByAccessToken(ctx context.Context, token, reason string) (bool, error) {
	access, err := m.GetAccessToken(ctx, token)
	if err != nil || access == nil {
		return false, err
	}
	session, err := m.GetRefreshByID(ctx, access.RefreshID)
	if err != nil || session == nil {
		return false, err
	}
	expires := access.ExpiresAt
	if err := m.BlacklistToken(ctx, access.UserID, token, model.TokenTypeAccess, &expires, reason); err != nil {
		return false, err
	}
	return true, m.InvalidateRefreshToken(ctx, session, reason)
}

func (m *memSessions) RevokeAllDevices(ctx context.Context, userID int64) (int64, error) {
	return m.revokeWhere(func(s *model.RefreshSession) bool { return s.UserID == userID })
}

func (m *memSessions) RevokeByDeviceID(ctx context.Context, userID, deviceID int64) (int64, error) {
	return m.revokeWhere(func(s *model.RefreshSession) bool {
		return s.UserID == userID && s.DeviceID != nil && *s.DeviceID == deviceID
	})
}

func (m *memSessions) RevokeAllUsers(ctx context.Context) (int64, error) {
	return m.revokeWhere(func(*model.RefreshSession) bool { return true })
}

func (m *memSessions) revokeWhere(match func(*model.RefreshSession) bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var revoked int64
	for id, session := range m.refresh {
		if match(session) && m.invalidateLocked(id) {
			revoked++
		}
	}
	return revoked, nil
}

func (m *memSessions) ListActiveSessions(ctx context.Context, userID int64) ([]model.RefreshSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessions := []model.RefreshSession{}
	for _, session := range m.refresh {
		if session.UserID == userID && session.IsValid() && session.ExpiresAt.After(m.now()) {
			sessions = append(sessions, *session)
		}
	}
	return sessions, nil
}

func (m *memSessions) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (m *memSessions) accessCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.access)
}

type memDevices struct {
	mu      sync.Mutex
	rows    []model.Device
	touches int
}

func (m *memDevices) UpsertDevice(ctx context.Context, userID int64, device *model.DeviceContext) (*int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if device == nil {
		return nil, false, nil
	}
	if device.HasFingerprint() {
		for i := range m.rows {
			row := &m.rows[i]
			if row.UserID == userID && row.Fingerprint != nil && *row.Fingerprint == device.Fingerprint {
				row.UserAgent = device.UserAgent
				row.LastLoginAt = time.Now()
				m.touches++
				id := row.ID
				return &id, false, nil
			}
		}
	}
	id := int64(len(m.rows) + 1)
	row := model.Device{ID: id, UserID: userID, UserAgent: device.UserAgent, IP: device.IP, Name: device.Name, LastLoginAt: time.Now()}
	if device.HasFingerprint() {
		fingerprint := device.Fingerprint
		row.Fingerprint = &fingerprint
	}
	m.rows = append(m.rows, row)
	return &id, true, nil
}

func (m *memDevices) FindByID(ctx context.Context, userID, deviceID int64) (*model.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == deviceID && row.UserID == userID {
			copied := row
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memDevices) ListByUser(ctx context.Context, userID int64) ([]model.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	devices := []model.Device{}
	for _, row := range m.rows {
		if row.UserID == userID {
			devices = append(devices, row)
		}
	}
	return devices, nil
}

type memPermissions struct {
	mu     sync.Mutex
	grants map[int64]map[string]*string
}

func newMemPermissions() *memPermissions {
	return &memPermissions{grants: map[int64]map[string]*string{}}
}

func (m *memPermissions) HasPermissions(ctx context.Context, userID int64, permissions []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range permissions {
		if _, ok := m.grants[userID][name]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (m *memPermissions) Grant(ctx context.Context, userID int64, name string, value *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grants[userID] == nil {
		m.grants[userID] = map[string]*string{}
	}
	m.grants[userID][name] = value
	return nil
}

func (m *memPermissions) Revoke(ctx context.Context, userID int64, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.grants[userID][name]; !ok {
		return false, nil
	}
	delete(m.grants[userID], name)
	return true, nil
}

func (m *memPermissions) List(ctx context.Context, userID int64) ([]model.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.grants[userID]))
	for name := range m.grants[userID] {
		names = append(names, name)
	}
	sort.Strings(names)
	permissions := make([]model.Permission, 0, len(names))
	for _, name := range names {
		permissions = append(permissions, model.Permission{UserID: userID, Name: name, Value: m.grants[userID][name]})
	}
	return permissions, nil
}

type chanNotifier struct {
	events chan model.DeviceEvent
}

func (n *chanNotifier) NotifyNewDevice(ctx context.Context, event model.DeviceEvent) error {
	n.events <- event
	return nil
}
