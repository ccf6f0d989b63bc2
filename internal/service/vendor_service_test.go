package service_test

import (
	"context"
	"errors"
	"net/http"
	"saas-auth-server/internal/apperror"
	"saas-auth-server/internal/model"
	"saas-auth-server/internal/service"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParseProfile(t *testing.T) {
	resolver := service.NewVendorLinkResolver(nil, nil)

	cases := []struct {
		name     string
		vendor   string
		raw      map[string]any
		want     model.VendorProfile
		randomID bool
	}{
		{
			name:   "full github profile",
			vendor: "github",
			raw:    map[string]any{"id": float64(583231), "login": "octocat", "email": "Octo@GitHub.com", "name": "The Octocat"},
			want:   model.VendorProfile{Vendor: "github", ID: "583231", Email: "octo@github.com", Username: "octocat", DisplayName: "The Octocat"},
		},
		{
			name:   "subject only",
			vendor: "google",
			raw:    map[string]any{"sub": "ABC-123"},
			want:   model.VendorProfile{Vendor: "google", ID: "ABC-123", Email: "google-abc-123@google.local", Username: "google-abc-123", DisplayName: "google-abc-123"},
		},
		{
			name:   "email without at sign is replaced",
			vendor: "gitlab",
			raw:    map[string]any{"user_id": 7, "preferred_username": "Dev", "email": "hidden"},
			want:   model.VendorProfile{Vendor: "gitlab", ID: "7", Email: "dev@gitlab.local", Username: "Dev", DisplayName: "Dev"},
		},
		{
			name:   "username outside local policy is slugged",
			vendor: "github",
			raw:    map[string]any{"id": 9, "login": "Jane Doe", "email": "jane@x.com"},
			want:   model.VendorProfile{Vendor: "github", ID: "9", Email: "jane@x.com", Username: "jane-doe", DisplayName: "Jane Doe"},
		},
		{
			name:   "email-shaped username cannot shadow an email",
			vendor: "gitlab",
			raw:    map[string]any{"sub": "u1", "nickname": "x@y.com"},
			want:   model.VendorProfile{Vendor: "gitlab", ID: "u1", Email: "x-y-com@gitlab.local", Username: "x-y-com", DisplayName: "x@y.com"},
		},
		{
			name:   "unusable username falls back to vendor slug",
			vendor: "google",
			raw:    map[string]any{"sub": "42", "preferred_username": "??"},
			want:   model.VendorProfile{Vendor: "google", ID: "42", Email: "google-42@google.local", Username: "google-42", DisplayName: "??"},
		},
		{
			name:   "long username is cut to the length limit",
			vendor: "github",
			raw:    map[string]any{"id": 3, "login": "A Very Long Display Handle From The Vendor", "email": "long@x.com"},
			want:   model.VendorProfile{Vendor: "github", ID: "3", Email: "long@x.com", Username: "a-very-long-display-handle-from", DisplayName: "A Very Long Display Handle From The Vendor"},
		},
		{
			name:     "empty profile",
			vendor:   "github",
			raw:      map[string]any{},
			randomID: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			profile := resolver.ParseProfile(tc.vendor, tc.raw)
			if tc.randomID {
				assert.Len(t, profile.ID, 36)
				assert.Equal(t, "github-"+profile.ID[:25], profile.Username)
				assert.Equal(t, profile.Username+"@github.local", profile.Email)
				return
			}
			assert.Equal(t, tc.want, profile)
		})
	}
}

func TestVendorLogin_CreatesThenMatches(t *testing.T) {
	notifier := &chanNotifier{events: make(chan model.DeviceEvent, 4)}
	h := newHarness(t, func(deps *service.AuthDependencies) {
		deps.Notifier = notifier
		deps.AllowedVendors = []string{"GitHub"}
	})
	ctx := context.Background()
	raw := map[string]any{"id": "583231", "login": "octocat", "email": "octo@github.com", "name": "The Octocat"}

	first, err := h.svc.VendorLogin(ctx, "github", raw)
	require.NoError(t, err)
	assert.Equal(t, "octocat", first.User.Username)

	validation := h.validate(t, first.Tokens.Access.Token)
	require.True(t, validation.Valid)
	assert.Equal(t, "github", validation.Payload.Vendor)

	second, err := h.svc.VendorLogin(ctx, "GitHub", raw)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)

	select {
	case event := <-notifier.events:
		t.Fatalf("vendor login without fingerprint announced device %d", event.DeviceID)
	case <-time.After(100 * time.Millisecond):
	}
	devices, err := h.svc.ListDevices(ctx, first.User.ID)
	require.NoError(t, err)
	assert.Len(t, devices, 2)

	refreshed, err := h.svc.Refresh(ctx, first.Tokens.Refresh.Token, nil)
	require.NoError(t, err)
	assert.Equal(t, "github", h.validate(t, refreshed.Tokens.Access.Token).Payload.Vendor)

	_, err = h.svc.VendorLogin(ctx, "gitlab", raw)
	assert.Equal(t, "Unsupported vendor", apperror.PublicReason(err))

	_, err = h.svc.VendorLogin(ctx, " ", raw)
	assert.Equal(t, http.StatusBadRequest, apperror.HTTPStatus(err))
}

func TestVendorLogin_MatchesPasswordAccountByEmail(t *testing.T) {
	h := newHarness(t)
	session := h.register(t, "bob")

	linked, err := h.svc.VendorLogin(context.Background(), "github", map[string]any{"id": 1, "login": "bobby", "email": "BOB@x.com"})
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, linked.User.ID)
}

func TestVendorLogin_DisabledAccount(t *testing.T) {
	h := newHarness(t)
	session := h.register(t, "dora")
	h.users.set(session.User.ID, func(u *model.User) { u.IsDisabled = true })

	_, err := h.svc.VendorLogin(context.Background(), "github", map[string]any{"id": 2, "email": "dora@x.com"})
	assert.Equal(t, http.StatusForbidden, apperror.HTTPStatus(err))
}

func TestResolve_LosesCreationRace(t *testing.T) {
	users := new(MockUserRepository)
	hasher := new(MockHasher)
	winner := &model.User{ID: 12, Email: "octo@github.com", Username: "octocat"}

	users.On("FindByEmailOrUsername", mock.Anything, "octo@github.com", "octocat").Return(nil, nil).Once()
	users.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(int64(0), apperror.Conflict("User already exists")).Once()
	users.On("FindByEmailOrUsername", mock.Anything, "octo@github.com", "octocat").Return(winner, nil).Once()
	hasher.On("Hash", mock.AnythingOfType("string")).Return("digest", nil)

	resolver := service.NewVendorLinkResolver(users, hasher)
	user, profile, err := resolver.Resolve(context.Background(), "github", map[string]any{"id": 1, "login": "octocat", "email": "octo@github.com"})

	require.NoError(t, err)
	assert.Equal(t, winner, user)
	assert.Equal(t, "octocat", profile.Username)
	users.AssertExpectations(t)
}

func TestResolve_CreateFailure(t *testing.T) {
	users := new(MockUserRepository)
	hasher := new(MockHasher)

	users.On("FindByEmailOrUsername", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	users.On("Create", mock.Anything, mock.Anything).Return(int64(0), errors.New("connection reset"))
	hasher.On("Hash", mock.Anything).Return("digest", nil)

	resolver := service.NewVendorLinkResolver(users, hasher)
	_, _, err := resolver.Resolve(context.Background(), "github", map[string]any{"id": 1})

	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperror.HTTPStatus(err))
	users.AssertNumberOfCalls(t, "FindByEmailOrUsername", 1)
}
