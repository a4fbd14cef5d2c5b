package session

import "github.com/buyukakyuz/bpx/internal/httpkit"

// getSessionIDFromCookie looks up the session cookie in the request's "Cookie"
// header and stores its value in sessionID. The cookie name is cfg.sessionName,
// or cfg.CookieName when no name was derived from KeyLookup.
func getSessionIDFromCookie(c *httpkit.Ctx, cfg *Config, sessionID *string) {
	name := cfg.sessionName
	if name == "" {
		name = cfg.CookieName
	}
	*sessionID = parseCookies(c.Request.Header.Get(httpkit.HeaderCookie))[name]
}
