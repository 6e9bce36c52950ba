package config

import "strings"

// normalize expands user-relative paths and trims string settings so the
// rest of the codebase can rely on absolute, clean values.
func (c *Config) normalize() error {
	var err error
	if c.Paths.ConfigDir, err = expandPath(c.Paths.ConfigDir); err != nil {
		return err
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	c.Fulfillment.UserAgent = strings.TrimSpace(c.Fulfillment.UserAgent)
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}
