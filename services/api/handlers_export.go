package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/klauspost/compress/zstd"
)

// handleExportSessions writes a zstd-compressed JSON archive of the
// caller's session history to object storage and returns a presigned
// download URL.
func (a *API) handleExportSessions(w http.ResponseWriter, r *http.Request) {
	user, ok := identityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errNoIdentity)
		return
	}
	if a.store.S3 == nil || a.config.ExportBucket == "" {
		respondError(w, http.StatusServiceUnavailable, errors.New("export is not configured"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	var models []sessionModel
	if err := a.store.ORM.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Order("started_at").
		Find(&models).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	sessions := make([]Session, 0, len(models))
	for _, m := range models {
		sessions = append(sessions, m.toAPI())
	}

	archive, err := compressJSON(map[string]any{
		"user":       user,
		"exportedAt": time.Now().UTC(),
		"sessions":   sessions,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	digest := sha256.Sum256(archive)
	key := fmt.Sprintf("exports/%s/%d.json.zst", user.ID, time.Now().UTC().Unix())

	if err := a.store.S3.PutObject(r.Context(), a.config.ExportBucket, key,
		bytes.NewReader(archive), int64(len(archive)), hex.EncodeToString(digest[:])); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	url, err := a.store.S3.PresignGet(r.Context(), a.config.ExportBucket, key, a.config.ExportURLTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"url":       url,
		"expiresAt": time.Now().UTC().Add(a.config.ExportURLTTL).Format(time.RFC3339),
	})
}

func compressJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
