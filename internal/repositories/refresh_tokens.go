package repositories

import (
	"context"
	"encoding/json"
	"fmt"
)

const RefreshTokenDocumentID = "seek_refresh_token"

type refreshTokenFile struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshTokens persists the Seek refresh token as {"refresh_token": "..."}.
type RefreshTokens struct {
	store Blob
}

func NewRefreshTokens(store Blob) *RefreshTokens {
	return &RefreshTokens{store: store}
}

func (r *RefreshTokens) LoadRefreshToken(ctx context.Context) (string, error) {

	raw, err := r.store.Load(ctx)
	if err != nil || len(raw) == 0 {
		return "", err
	}

	var file refreshTokenFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return "", fmt.Errorf("error decoding refresh token: %w", err)
	}
	return file.RefreshToken, nil
}

func (r *RefreshTokens) SaveRefreshToken(ctx context.Context, token string) error {

	raw, err := json.Marshal(refreshTokenFile{RefreshToken: token})
	if err != nil {
		return err
	}
	return r.store.Save(ctx, raw)
}
