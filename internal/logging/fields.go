package logging

import "log/slog"

// Common field names for consistent logging across components.
const (
	FieldComponent   = "component"
	FieldAgentID     = "agent_id"
	FieldFingerprint = "fingerprint"
	FieldLabel       = "threat_label"
	FieldVerdict     = "verdict"
	FieldIP          = "ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatus      = "status"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldSubject     = "subject"
)

// Component returns a slog attribute for the component name.
func Component(name string) slog.Attr {
	return slog.String(FieldComponent, name)
}

// AgentID returns a slog attribute for the submitting agent.
func AgentID(id string) slog.Attr {
	return slog.String(FieldAgentID, id)
}

// Fingerprint returns a slog attribute for an antibody fingerprint.
func Fingerprint(fp string) slog.Attr {
	return slog.String(FieldFingerprint, fp)
}

// Verdict returns a slog attribute for a detection verdict.
func Verdict(v string) slog.Attr {
	return slog.String(FieldVerdict, v)
}

// IP returns a slog attribute for the IP address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error value.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// Subject returns a slog attribute for a message bus subject.
func Subject(s string) slog.Attr {
	return slog.String(FieldSubject, s)
}
