package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/poyrazK/clinicrm/internal/core/apikey"
	"github.com/poyrazK/clinicrm/internal/core/domain"
	"github.com/poyrazK/clinicrm/internal/core/ports"
)

const keyCreatedMessage = "API key created successfully. Please save this key securely - it will not be shown again."

type apiKeyView struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description *string             `json:"description"`
	KeyPreview  string              `json:"key_preview"`
	Permissions []domain.Permission `json:"permissions"`
	Active      bool                `json:"is_active"`
	CreatedAt   time.Time           `json:"created_at"`
	ExpiresAt   *time.Time          `json:"expires_at"`
	LastUsed    *time.Time          `json:"last_used"`
	UsageCount  int64               `json:"usage_count"`
}

func viewOf(k *domain.APIKey) apiKeyView {
	return apiKeyView{
		ID:          k.ID,
		Name:        k.Name,
		Description: k.Description,
		KeyPreview:  apikey.DisplayPreview(k.KeyHash, apikey.DefaultPreviewChars),
		Permissions: k.Permissions,
		Active:      k.Active,
		CreatedAt:   k.CreatedAt,
		ExpiresAt:   k.ExpiresAt,
		LastUsed:    k.LastUsed,
		UsageCount:  k.UsageCount,
	}
}

func (h *APIHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.Keys.List(r.Context(), callerID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]apiKeyView, 0, len(keys))
	for i := range keys {
		out = append(out, viewOf(&keys[i]))
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

type createKeyBody struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	ExpiresInDays int      `json:"expiresInDays"`
	Permissions   []string `json:"permissions"`
	KeyType       string   `json:"keyType"`
}

type createdKey struct {
	ID          string              `json:"id"`
	Key         string              `json:"key"`
	Name        string              `json:"name"`
	Description *string             `json:"description"`
	CreatedAt   time.Time           `json:"created_at"`
	ExpiresAt   *time.Time          `json:"expires_at"`
	Permissions []domain.Permission `json:"permissions"`
	Message     string              `json:"message"`
}

func (h *APIHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var body createKeyBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	perms, err := domain.ParsePermissions(body.Permissions)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	secret, key, err := h.svc.Keys.Create(r.Context(), callerID(r), ports.CreateKeyRequest{
		Name:          body.Name,
		Description:   body.Description,
		ExpiresInDays: body.ExpiresInDays,
		Permissions:   perms,
		Kind:          body.KeyType,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, createdKey{
		ID:          key.ID,
		Key:         secret,
		Name:        key.Name,
		Description: key.Description,
		CreatedAt:   key.CreatedAt,
		ExpiresAt:   key.ExpiresAt,
		Permissions: key.Permissions,
		Message:     keyCreatedMessage,
	})
}

// updateKeyBody keeps expiresInDays raw so an explicit null can clear the
// expiry while an absent field leaves it alone.
type updateKeyBody struct {
	ID            string          `json:"id"`
	Name          *string         `json:"name"`
	Description   *string         `json:"description"`
	Active        *bool           `json:"is_active"`
	Permissions   []string        `json:"permissions"`
	ExpiresInDays json.RawMessage `json:"expiresInDays"`
}

func (b updateKeyBody) patch() (domain.APIKeyPatch, error) {
	p := domain.APIKeyPatch{
		Name:        b.Name,
		Description: b.Description,
		Active:      b.Active,
	}
	if b.Permissions != nil {
		perms, err := domain.ParsePermissions(b.Permissions)
		if err != nil {
			return p, err
		}
		p.Permissions = perms
	}
	switch raw := bytes.TrimSpace(b.ExpiresInDays); {
	case len(raw) == 0:
	case bytes.Equal(raw, []byte("null")):
		p.ClearExpiry = true
	default:
		var days int
		if err := json.Unmarshal(raw, &days); err != nil {
			return p, domain.NewValidationError("expiresInDays", "must be an integer or null")
		}
		p.ExpiresInDays = &days
	}
	return p, nil
}

func (h *APIHandler) UpdateAPIKey(w http.ResponseWriter, r *http.Request) {
	var body updateKeyBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	id := body.ID
	if pv := r.PathValue("id"); pv != "" {
		id = pv
	}
	patch, err := body.patch()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	key, err := h.svc.Keys.Update(r.Context(), callerID(r), id, patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, viewOf(key))
}

func (h *APIHandler) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		id = r.URL.Query().Get("id")
	}
	if err := h.svc.Keys.Delete(r.Context(), callerID(r), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "API key deleted successfully",
	})
}
