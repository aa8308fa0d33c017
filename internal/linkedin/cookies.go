package linkedin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Cookie is the persisted form of a browser cookie. The snapshot keeps only
// the fields needed to restore a session later.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
	Expires  float64 `json:"expires,omitempty"`
}

func (c *Cookie) expired(now time.Time) bool {
	if c.Expires <= 0 {
		return false
	}
	return time.Unix(int64(c.Expires), 0).Before(now)
}

// HTTPCookies converts a snapshot to the form the net/http cookie jar takes.
func HTTPCookies(cookies []*Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0)
		}
		out = append(out, hc)
	}

	return out
}

// LoadCookieSnapshot reads a snapshot file, dropping cookies that have
// already expired. A missing file yields an empty snapshot, not an error.
func LoadCookieSnapshot(path string) ([]*Cookie, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cookie snapshot: %w", err)
	}

	var cookies []*Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("parsing cookie snapshot: %w", err)
	}

	now := time.Now()
	live := cookies[:0]
	for _, c := range cookies {
		if !c.expired(now) {
			live = append(live, c)
		}
	}

	return live, nil
}

// SaveCookieSnapshot writes the snapshot atomically so a crash mid-write
// never leaves a truncated file behind.
func SaveCookieSnapshot(path string, cookies []*Cookie) error {
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cookie snapshot: %w", err)
	}

	return WriteFileAtomic(path, data)
}
