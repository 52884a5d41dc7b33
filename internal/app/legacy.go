package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/diplomado/internal/activity"
	"github.com/p-n-ai/diplomado/internal/auth"
	"github.com/p-n-ai/diplomado/internal/progress"
)

// ImportResult counts what a legacy import did.
type ImportResult struct {
	UsersImported    int `json:"usersImported"`
	UsersSkipped     int `json:"usersSkipped"`
	ProgressImported int `json:"progressImported"`
}

type legacyExport struct {
	Users    json.RawMessage `json:"diplomadoUsers"`
	Progress json.RawMessage `json:"diplomadoProgress"`
}

// ImportLegacy loads a browser storage export. Users whose username already
// exists are skipped. Progress keyed by a known username is stored under
// that user's id; other keys are kept as they are.
func (a *App) ImportLegacy(ctx context.Context, data []byte) (ImportResult, error) {
	var export legacyExport
	if err := json.Unmarshal(data, &export); err != nil {
		return ImportResult{}, fmt.Errorf("decode export: %w", err)
	}

	var res ImportResult
	if raw, err := storageValue(export.Users); err != nil {
		return res, fmt.Errorf("diplomadoUsers: %w", err)
	} else if raw != nil {
		users, err := auth.DecodeLegacyUsers(raw)
		if err != nil {
			return res, err
		}
		for _, lu := range users {
			u, err := a.Auth.ImportUser(ctx, lu.User, lu.Password)
			var verr *auth.ValidationError
			switch {
			case errors.Is(err, auth.ErrUsernameTaken):
				res.UsersSkipped++
				slog.Info("legacy user already exists, skipping", "username", lu.User.Credentials.Username)
			case errors.As(err, &verr):
				res.UsersSkipped++
				slog.Warn("legacy user is incomplete, skipping", "username", lu.User.Credentials.Username, "fields", verr.Fields)
			case err != nil:
				return res, fmt.Errorf("import user %q: %w", lu.User.Credentials.Username, err)
			default:
				res.UsersImported++
				a.emit(activity.Event{UserID: u.ID, EventType: activity.UserCreated, Data: map[string]any{"source": "legacy"}})
			}
		}
	}

	raw, err := storageValue(export.Progress)
	if err != nil {
		return res, fmt.Errorf("diplomadoProgress: %w", err)
	}
	if raw == nil {
		return res, nil
	}
	docs, err := progress.DecodeLegacy(raw)
	if err != nil {
		return res, err
	}

	ids, err := a.userKeys(ctx)
	if err != nil {
		return res, err
	}
	for key, doc := range docs {
		userID, ok := ids[key]
		if !ok {
			userID = key
			slog.Warn("legacy progress has no matching user", "key", key)
		}
		if err := a.Progress.Replace(ctx, userID, doc); err != nil {
			return res, err
		}
		res.ProgressImported++
		a.emit(activity.Event{UserID: userID, EventType: activity.ProgressImported, Data: map[string]any{"source_key": key}})
	}

	slog.Info("legacy import finished",
		"users_imported", res.UsersImported,
		"users_skipped", res.UsersSkipped,
		"progress_imported", res.ProgressImported,
	)
	return res, nil
}

// userKeys maps both ids and usernames to user ids.
func (a *App) userKeys(ctx context.Context) (map[string]string, error) {
	users, err := a.Auth.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]string, 2*len(users))
	for _, u := range users {
		ids[u.Credentials.Username] = u.ID
	}
	for _, u := range users {
		ids[u.ID] = u.ID
	}
	return ids, nil
}

func (a *App) emit(e activity.Event) {
	if err := a.Hub.LogEvent(e); err != nil {
		slog.Warn("failed to log activity event", "type", e.EventType, "user_id", e.UserID, "error", err)
	}
}

// storageValue unwraps a local-storage value, which is either a JSON string
// holding JSON or the JSON itself. Missing and null values yield nil.
func storageValue(raw json.RawMessage) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '"' {
		return raw, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	return []byte(s), nil
}
