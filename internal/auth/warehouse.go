package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
)

// TokenSource builds an oauth2 token source from the opaque
// service-account JSON loaded by LoadWarehouseCredential. The core
// never inspects the JSON's fields itself — it only ever hands the
// blob to golang.org/x/oauth2/google, which is the vendor-agnostic
// equivalent of the Python client's own service-account passthrough.
func (w WarehouseCredential) TokenSource(ctx context.Context, scopes ...string) (interface {
	Token() (string, error)
}, error) {
	creds, err := google.CredentialsFromJSON(ctx, w.ServiceAccountJSON, scopes...)
	if err != nil {
		return nil, fmt.Errorf("auth: warehouse credential: %w", err)
	}
	return tokenSourceAdapter{creds}, nil
}

type tokenSourceAdapter struct {
	creds *google.Credentials
}

func (a tokenSourceAdapter) Token() (string, error) {
	tok, err := a.creds.TokenSource.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}
