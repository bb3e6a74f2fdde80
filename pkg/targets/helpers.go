package targets

import "strings"

// ConfigString returns the trimmed string value for key from target.Config or a fallback.
func ConfigString(t Target, key, fallback string) string {
	if t.Config != nil {
		if raw, ok := t.Config[key]; ok {
			if val, ok := raw.(string); ok {
				if trimmed := strings.TrimSpace(val); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return fallback
}

const (
	ConfigUserAgentKey = "user_agent"
	ConfigAcceptKey    = "accept"
	ConfigSelectorKey  = "selector"
	ConfigRequiredKey  = "required_key"
)

// Headers builds the common request headers from a target config (skips empty values).
func Headers(t Target) map[string]string {
	headers := make(map[string]string, 2)

	if v := ConfigString(t, ConfigUserAgentKey, ""); v != "" {
		headers["User-Agent"] = v
	}
	if v := ConfigString(t, ConfigAcceptKey, ""); v != "" {
		headers["Accept"] = v
	}

	return headers
}
