package flow

// StaticClientIDSelector resolves client identifiers from a fixed table.
// Platform classification is a caller-supplied label; the selector never
// inspects its runtime environment.
type StaticClientIDSelector struct {
	// Default is returned when no per-platform entry matches.
	Default string

	// ByPlatform maps platform labels to client identifiers.
	ByPlatform map[string]string
}

// SelectClientID implements ClientIDSelector.
func (s StaticClientIDSelector) SelectClientID(platform string) (string, error) {
	if id, ok := s.ByPlatform[platform]; ok && id != "" {
		return id, nil
	}
	if s.Default != "" {
		return s.Default, nil
	}
	return "", NewConfigError("no client id configured for platform %q", platform)
}
