package backup

import (
	"context"

	"github.com/auriora/timelocker/internal/repository"
)

// VerifyBackupIntegrity runs the engine's check (optionally --read-data)
// against a repository and returns a structured report. It never mutates
// repository state (spec.md §4.8).
func (o *Orchestrator) VerifyBackupIntegrity(ctx context.Context, repositoryName string, thorough bool) (*IntegrityReport, error) {
	repoDescriptor, err := o.store.GetRepository(repositoryName)
	if err != nil {
		return nil, err
	}
	handle, err := o.factory.Create(repositoryName, repoDescriptor.Location, repository.CreateOptions{RequirePassword: true})
	if err != nil {
		return nil, err
	}

	svc := repository.NewService(o.adapter, handle, o.logger)
	var checkReport *repository.CheckReport
	if thorough {
		checkReport, err = svc.CheckWithReadData(ctx)
	} else {
		checkReport, err = svc.Check(ctx)
	}
	if err != nil && checkReport == nil {
		return nil, err
	}

	return &IntegrityReport{Clean: checkReport.Clean, Errors: checkReport.Errors}, nil
}
