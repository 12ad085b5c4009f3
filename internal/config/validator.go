package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/auriora/timelocker/internal/errs"
	"github.com/auriora/timelocker/internal/schemes"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validator validates a Document's typed sections and cross-references
// (repositories, backup targets) per spec.md §4.2. It never returns an
// error for a missing filesystem path — that's a warning, matching
// spec.md's boundary behavior ("Missing filesystem paths produce warnings,
// not errors").
type Validator struct {
	v *validator.Validate
}

// NewValidator constructs a Validator with struct-tag validation wired the
// way the teacher wires go-playground/validator for its request DTOs.
func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Result carries the outcome of validating a Document: Warnings are
// advisory (e.g. a target path that doesn't exist yet); a non-nil Err means
// the document is rejected outright.
type Result struct {
	Warnings []string
	Err      error
}

// Validate checks doc's typed sections, repository/target cross references,
// and cron schedules, returning advisory warnings plus a hard error when the
// document violates a structural invariant.
func (vd *Validator) Validate(doc *Document) Result {
	var warnings []string

	if err := vd.v.Struct(doc.General); err != nil {
		return Result{Err: &errs.InvalidConfigurationError{Field: "general", Reason: err.Error()}}
	}
	if err := vd.v.Struct(doc.Backup); err != nil {
		return Result{Err: &errs.InvalidConfigurationError{Field: "backup", Reason: err.Error()}}
	}
	if err := vd.v.Struct(doc.Restore); err != nil {
		return Result{Err: &errs.InvalidConfigurationError{Field: "restore", Reason: err.Error()}}
	}
	if err := vd.v.Struct(doc.Security); err != nil {
		return Result{Err: &errs.InvalidConfigurationError{Field: "security", Reason: err.Error()}}
	}
	if err := vd.v.Struct(doc.Monitoring); err != nil {
		return Result{Err: &errs.InvalidConfigurationError{Field: "monitoring", Reason: err.Error()}}
	}
	if doc.Notifications.Enabled {
		if err := vd.v.Struct(doc.Notifications); err != nil {
			return Result{Err: &errs.InvalidConfigurationError{Field: "notifications", Reason: err.Error()}}
		}
	}

	for name, repo := range doc.Repositories {
		if name == "" || strings.ContainsAny(name, "/\\") {
			return Result{Err: &errs.InvalidConfigurationError{
				Field:  "repositories." + name,
				Reason: "repository name must be non-empty and path-separator-free",
			}}
		}
		if repo.Name != name {
			return Result{Err: &errs.InvalidConfigurationError{
				Field:  "repositories." + name,
				Reason: "map key does not match descriptor name",
			}}
		}
		if err := vd.v.Struct(repo); err != nil {
			return Result{Err: &errs.InvalidConfigurationError{Field: "repositories." + name, Reason: err.Error()}}
		}
		scheme, err := schemeOf(repo.Location)
		if err != nil {
			return Result{Err: &errs.InvalidConfigurationError{Field: "repositories." + name + ".location", Reason: err.Error()}}
		}
		if !schemes.IsKnown(scheme) {
			return Result{Err: &errs.InvalidConfigurationError{
				Field:  "repositories." + name + ".location",
				Reason: fmt.Sprintf("unregistered scheme %q", scheme),
			}}
		}
	}

	for name, target := range doc.BackupTargets {
		if target.Name != name {
			return Result{Err: &errs.InvalidConfigurationError{
				Field:  "backup_targets." + name,
				Reason: "map key does not match descriptor name",
			}}
		}
		if err := vd.v.Struct(target); err != nil {
			return Result{Err: &errs.InvalidConfigurationError{Field: "backup_targets." + name, Reason: err.Error()}}
		}
		if _, ok := doc.Repositories[target.RepositoryName]; !ok {
			return Result{Err: &errs.InvalidConfigurationError{
				Field:  "backup_targets." + name + ".repository_name",
				Reason: fmt.Sprintf("references unknown repository %q", target.RepositoryName),
			}}
		}
		if target.Schedule != "" {
			if _, err := cronParser.Parse(target.Schedule); err != nil {
				return Result{Err: &errs.InvalidConfigurationError{
					Field:  "backup_targets." + name + ".schedule",
					Reason: fmt.Sprintf("invalid cron expression %q: %v", target.Schedule, err),
				}}
			}
		}
		for _, p := range target.Paths {
			if _, err := os.Stat(p); err != nil {
				warnings = append(warnings, fmt.Sprintf("target %q: path %q is not currently accessible: %v", name, p, err))
			}
		}
	}

	return Result{Warnings: warnings}
}

// schemeOf extracts the scheme portion of a repository location URI. A bare
// path with no "://" and no leading "scheme:" is treated as local, per
// spec.md §4.5 step 1 — but schemeOf alone doesn't decide whether that's an
// error; the factory (C5) step 1 intentionally accepts it, while the CLI's
// remediation-hint validation (spec.md §6.5) is enforced by the CLI's
// `repos add` command (cmd/timelocker/cmd/repos.go), not here.
func schemeOf(location string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("empty location")
	}
	if idx := strings.Index(location, "://"); idx >= 0 {
		return location[:idx], nil
	}
	if idx := strings.Index(location, ":"); idx >= 0 {
		// Avoid misreading a Windows drive letter or sftp "user@host:path" as a scheme.
		candidate := location[:idx]
		if schemes.IsKnown(candidate) {
			return candidate, nil
		}
	}
	u, err := url.Parse(location)
	if err == nil && u.Scheme != "" {
		return u.Scheme, nil
	}
	return "local", nil
}
