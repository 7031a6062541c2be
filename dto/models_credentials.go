package dto

import "golang.org/x/oauth2"

// Credentials is the current access/refresh pair. Both values are opaque.
type Credentials struct {
	AccessToken  string `json:"access" yaml:"access"`
	RefreshToken string `json:"refresh,omitempty" yaml:"refresh,omitempty"`
}

func (c Credentials) IsEmpty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

func (c Credentials) HasAccess() bool {
	return c.AccessToken != ""
}

func (c Credentials) HasRefresh() bool {
	return c.RefreshToken != ""
}

// Rotate returns the pair to store after a refresh. The access token is always
// replaced; the refresh token only when the backend issued a new one.
func (c Credentials) Rotate(issued Credentials) Credentials {
	next := Credentials{
		AccessToken:  issued.AccessToken,
		RefreshToken: c.RefreshToken,
	}
	if issued.RefreshToken != "" {
		next.RefreshToken = issued.RefreshToken
	}
	return next
}

// OAuthToken exposes the pair as a bearer oauth2.Token.
func (c Credentials) OAuthToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
	}
}
