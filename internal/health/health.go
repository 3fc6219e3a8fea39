// Package health reports whether the grab pipeline can do its work.
package health

import (
	"fmt"
	"os/exec"

	"github.com/serialgrab/serialgrab/internal/config"
)

// Status is the outcome of one check.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Check is one named readiness probe.
type Check struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Report is the result of all checks. Warnings do not make it unhealthy.
type Report struct {
	Healthy bool    `json:"healthy"`
	Checks  []Check `json:"checks"`
}

// Integrations reports which optional collaborators are configured.
type Integrations struct {
	TMDB   bool
	Sonarr bool
	Radarr bool
}

// Service runs the readiness checks.
type Service struct {
	fs           *FilesystemChecker
	lookPath     func(string) (string, error)
	downloadsDir string
	binary       string
	integrations Integrations
}

// NewService creates a checker for cfg.
func NewService(cfg *config.Config, in Integrations) *Service {
	return &Service{
		fs:           NewFilesystemChecker(),
		lookPath:     exec.LookPath,
		downloadsDir: cfg.Downloads.Dir,
		binary:       cfg.Extractor.YtdlpBinary,
		integrations: in,
	}
}

// Check runs every probe.
func (s *Service) Check() Report {
	checks := []Check{
		s.check("downloads", StatusError, s.fs.EnsureWritable(s.downloadsDir)),
		s.check("yt-dlp", StatusError, s.binaryError()),
		s.configured("tmdb", s.integrations.TMDB),
		s.configured("sonarr", s.integrations.Sonarr),
		s.configured("radarr", s.integrations.Radarr),
	}

	healthy := true
	for _, c := range checks {
		if c.Status == StatusError {
			healthy = false
		}
	}
	return Report{Healthy: healthy, Checks: checks}
}

func (s *Service) binaryError() error {
	if s.binary == "" {
		return fmt.Errorf("no yt-dlp binary configured")
	}
	if _, err := s.lookPath(s.binary); err != nil {
		return fmt.Errorf("yt-dlp not found: %w", err)
	}
	return nil
}

func (s *Service) check(name string, onFail Status, err error) Check {
	if err != nil {
		return Check{Name: name, Status: onFail, Message: err.Error()}
	}
	return Check{Name: name, Status: StatusOK}
}

func (s *Service) configured(name string, ok bool) Check {
	if !ok {
		return Check{Name: name, Status: StatusWarning, Message: "not configured"}
	}
	return Check{Name: name, Status: StatusOK}
}
