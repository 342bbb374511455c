package api

import (
	"encoding/json"
	"net/http"
	"net/url"
)

// sessionKey is the credential entry holding the serialized session
// cookies.
const sessionKey = "session-cookies"

// CredentialStore persists the session cookie between process runs.
// Implementations are expected to be backed by the OS keychain.
type CredentialStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// persistedCookie is the serialized form of a session cookie.
type persistedCookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Path   string `json:"path,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// saveSession writes the jar's cookies for the backend origin to the
// credential store. Persistence failures are ignored; the in-memory
// session keeps working.
func (c *Client) saveSession() {
	if c.credentials == nil {
		return
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return
	}

	cookies := c.jar.Cookies(u)
	if len(cookies) == 0 {
		return
	}

	persisted := make([]persistedCookie, 0, len(cookies))
	for _, ck := range cookies {
		persisted = append(persisted, persistedCookie{
			Name:   ck.Name,
			Value:  ck.Value,
			Path:   ck.Path,
			Domain: ck.Domain,
		})
	}

	data, err := json.Marshal(persisted)
	if err != nil {
		return
	}
	_ = c.credentials.Set(sessionKey, string(data))
}

// restoreSession loads previously persisted cookies into the jar.
func (c *Client) restoreSession() error {
	raw, err := c.credentials.Get(sessionKey)
	if err != nil {
		return err
	}

	var persisted []persistedCookie
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		return err
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}

	cookies := make([]*http.Cookie, 0, len(persisted))
	for _, pc := range persisted {
		cookies = append(cookies, &http.Cookie{
			Name:   pc.Name,
			Value:  pc.Value,
			Path:   pc.Path,
			Domain: pc.Domain,
		})
	}
	c.jar.SetCookies(u, cookies)
	return nil
}

// ClearSession drops the persisted session cookie, if any.
func (c *Client) ClearSession() {
	if c.credentials == nil {
		return
	}
	_ = c.credentials.Delete(sessionKey)
}
