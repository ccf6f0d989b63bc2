package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"saas-auth-server/internal/apperror"
	"saas-auth-server/internal/model"
	"saas-auth-server/internal/ports"
	"saas-auth-server/internal/util"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	vendorIDKeys       = []string{"id", "sub", "user_id", "uid"}
	vendorUsernameKeys = []string{"username", "login", "preferred_username", "nickname"}
	vendorNameKeys     = []string{"name", "display_name", "displayName"}

	slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)
)

// VendorLinkResolver : maps an external OAuth profile onto a local account, creating one on first sight
type VendorLinkResolver struct {
	users  ports.UserRepository
	hasher ports.CredentialHasher
}

func NewVendorLinkResolver(users ports.UserRepository, hasher ports.CredentialHasher) *VendorLinkResolver {
	return &VendorLinkResolver{users: users, hasher: hasher}
}

// ParseProfile : missing fields fall back to a random id, a vendor-id slug and a synthetic @<vendor>.local email
func (r *VendorLinkResolver) ParseProfile(vendor string, raw map[string]any) model.VendorProfile {
	id := firstValue(raw, vendorIDKeys)
	if id == "" {
		id = uuid.NewString()
	}

	rawUsername := firstValue(raw, vendorUsernameKeys)
	username := vendorUsername(rawUsername)
	if username == "" {
		username = vendorUsername(vendor + "-" + id)
	}
	if username == "" {
		username = vendorUsername(vendor + "-" + uuid.NewString())
	}

	email := normalizeEmail(firstValue(raw, []string{"email"}))
	if !strings.Contains(email, "@") {
		email = strings.ToLower(username) + "@" + slugify(vendor) + ".local"
	}

	displayName := firstValue(raw, vendorNameKeys)
	if displayName == "" {
		displayName = rawUsername
	}
	if displayName == "" {
		displayName = username
	}

	return model.VendorProfile{Vendor: vendor, ID: id, Email: email, Username: username, DisplayName: displayName}
}

// Resolve : match by email or username; a concurrent first login that loses the unique-constraint race re-reads the winner
func (r *VendorLinkResolver) Resolve(ctx context.Context, vendor string, raw map[string]any) (*model.User, *model.VendorProfile, error) {
	profile := r.ParseProfile(vendor, raw)

	existing, err := r.users.FindByEmailOrUsername(ctx, profile.Email, profile.Username)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return existing, &profile, nil
	}

	secret, err := util.RandomHex(32)
	if err != nil {
		return nil, nil, err
	}
	digest, err := r.hasher.Hash(secret)
	if err != nil {
		return nil, nil, util.LogError("[VendorResolver] password hashing failed", err)
	}

	user := &model.User{
		Email:        profile.Email,
		Username:     profile.Username,
		PasswordHash: digest,
		DisplayName:  profile.DisplayName,
		IsActive:     true,
	}
	if _, err := r.users.Create(ctx, user); err != nil {
		if !apperror.IsKind(err, apperror.KindConflict) {
			return nil, nil, err
		}
		log.Printf("[VendorResolver] concurrent creation for %s profile, matching existing account", vendor)
		existing, findErr := r.users.FindByEmailOrUsername(ctx, profile.Email, profile.Username)
		if findErr != nil {
			return nil, nil, findErr
		}
		if existing == nil {
			return nil, nil, err
		}
		return existing, &profile, nil
	}

	log.Printf("[VendorResolver] created user %d from %s profile", user.ID, vendor)
	return user, &profile, nil
}

func firstValue(raw map[string]any, keys []string) string {
	for _, key := range keys {
		if value := stringify(raw[key]); value != "" {
			return value
		}
	}
	return ""
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case bool, map[string]any, []any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// vendorUsername : keeps a name the local policy accepts, otherwise slugs it; "" when even the slug is too short
func vendorUsername(value string) string {
	if usernamePattern.MatchString(value) {
		return value
	}
	slug := slugify(value)
	if len(slug) > maxUsernameLength {
		slug = strings.Trim(slug[:maxUsernameLength], "-")
	}
	if !usernamePattern.MatchString(slug) {
		return ""
	}
	return slug
}

func slugify(value string) string {
	return strings.Trim(slugSeparators.ReplaceAllString(strings.ToLower(value), "-"), "-")
}
