package doctor

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	appconfig "github.com/doeshing/dirctx/internal/application/config"
	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/ports"
)

const defaultAuthEnv = "OPENAI_API_KEY"

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	// DataDir holds the history, prefix cache and index cache.
	DataDir string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	if err := appconfig.Validate(cfg); err != nil {
		checks = append(checks, fail("Config file", err.Error()))
	} else {
		checks = append(checks, ok("Config file", fmt.Sprintf("format version %s, %d models", cfg.ConfigFormatVersion, len(cfg.Models))))
	}

	checks = append(checks, s.dataDirCheck())
	for _, model := range cfg.Models {
		checks = append(checks, s.authCheck("Model "+model.Name, model.Endpoint, model.AuthEnvVar))
	}
	checks = append(checks, s.authCheck("Embedding "+cfg.Embedding.ModelID, cfg.Embedding.Endpoint, cfg.Embedding.AuthEnvVar))

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) dataDirCheck() domain.HealthCheck {
	if err := os.MkdirAll(s.DataDir, domain.DirectoryPermissions); err != nil {
		return fail("Data directory", err.Error())
	}
	probe, err := os.CreateTemp(s.DataDir, ".doctor-*")
	if err != nil {
		return fail("Data directory", fmt.Sprintf("%s is not writable: %v", s.DataDir, err))
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return ok("Data directory", filepath.Clean(s.DataDir))
}

// authCheck warns when a remote endpoint has no API key. Local endpoints
// usually run without one.
func (s *Service) authCheck(name, endpoint, authEnv string) domain.HealthCheck {
	if isLocal(endpoint) {
		return ok(name, "local endpoint "+endpoint)
	}
	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if authEnv != "" && getenv(authEnv) != "" {
		return ok(name, authEnv+" set")
	}
	if getenv(defaultAuthEnv) != "" {
		return ok(name, defaultAuthEnv+" set")
	}
	missing := defaultAuthEnv
	if authEnv != "" {
		missing = authEnv
	}
	return warn(name, missing+" missing")
}

func isLocal(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
