package logging

import (
	"log/slog"
	"net/url"
)

// RedactedURL wraps a url.URL for logging without exposing credentials
// embedded in the userinfo part
type RedactedURL struct {
	url *url.URL
}

// LogValue implements slog.LogValuer to avoid revealing passwords
func (u RedactedURL) LogValue() slog.Value {
	return slog.StringValue(u.url.Redacted())
}

// RedactURL returns a safely loggable URL value
func RedactURL(url *url.URL) RedactedURL {
	return RedactedURL{url: url}
}

// RedactedStringURL is a string containing a URL for safe logging
type RedactedStringURL string

// LogValue implements slog.LogValuer to avoid revealing passwords
func (s RedactedStringURL) LogValue() slog.Value {
	u, err := url.Parse(string(s))
	if err != nil {
		return slog.StringValue(string(s))
	}
	return slog.StringValue(u.Redacted())
}

// RedactStringURL returns a safely loggable URL string
func RedactStringURL(s string) slog.LogValuer {
	return RedactedStringURL(s)
}
