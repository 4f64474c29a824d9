package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type contextKey string

const identityKey contextKey = "focusd.identity"

const deviceIDHeader = "X-Device-ID"

var errNoIdentity = errors.New("authentication token or device id required")

// withIdentity resolves the caller to a user record: a bearer token maps to
// a registered user, otherwise a device id header upserts a guest user.
// Requests carrying neither are rejected.
func (a *API) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.resolveIdentity(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, errNoIdentity)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, user)))
	})
}

func (a *API) resolveIdentity(r *http.Request) (User, error) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if token := bearerToken(r); token != "" {
		var model userModel
		err := a.store.ORM.WithContext(ctx).Where("api_token = ?", token).First(&model).Error
		if err != nil {
			return User{}, err
		}
		return model.toAPI(), nil
	}

	if deviceID := strings.TrimSpace(r.Header.Get(deviceIDHeader)); deviceID != "" {
		return a.upsertGuest(ctx, deviceID)
	}

	return User{}, errNoIdentity
}

// upsertGuest finds or creates the synthetic user for a device id. The
// insert ignores conflicts so two first requests from the same device
// racing each other both resolve to the same row.
func (a *API) upsertGuest(ctx context.Context, deviceID string) (User, error) {
	orm := a.store.ORM.WithContext(ctx)

	var model userModel
	err := orm.Where("device_id = ?", deviceID).First(&model).Error
	if err == nil {
		return model.toAPI(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, err
	}

	now := time.Now().UTC()
	model = userModel{
		ID:        uuid.New(),
		Username:  "guest-" + deviceID,
		DeviceID:  &deviceID,
		Anonymous: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := orm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoNothing: true,
	}).Create(&model).Error; err != nil {
		return User{}, err
	}

	if err := orm.Where("device_id = ?", deviceID).First(&model).Error; err != nil {
		return User{}, err
	}
	return model.toAPI(), nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func identityFromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(identityKey).(User)
	return user, ok
}
