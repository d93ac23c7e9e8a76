package remote

import (
	"context"
	"net/http"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

// Authenticator delegates credential checks to the data service.
type Authenticator struct {
	client *Client
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(client *Client) *Authenticator {
	return &Authenticator{client: client}
}

type loginResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

// Authenticate posts the credentials to /auth/login.
func (a *Authenticator) Authenticate(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	var res loginResult
	if err := a.client.do(ctx, http.MethodPost, "/auth/login", req, &res); err != nil {
		return nil, err
	}
	if !res.Success || res.User == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, res.Message)
	}
	return res.User, nil
}
