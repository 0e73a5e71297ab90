package board

import (
	"context"

	"driftboard/internal/api"
	"driftboard/internal/schema"
)

// TaskSource is a lazy page sequence of tasks. The reconciler consumes pages
// incrementally and may stop early without error.
type TaskSource interface {
	Next(ctx context.Context) ([]api.Task, bool, error)
}

// Service is the slice of the remote API the reconciler drives. Tests
// substitute a fake; production wraps *api.Client.
type Service interface {
	ListSections(ctx context.Context, projectGID string) ([]api.Section, error)
	ListFields(ctx context.Context, projectGID string) ([]schema.WireField, error)
	Tasks(projectGID string) TaskSource
	CreateTask(ctx context.Context, projectGID, name, sectionGID string) (api.Task, error)
	UpdateTask(ctx context.Context, taskGID string, fields map[string]any) (api.Task, error)
	MoveTask(ctx context.Context, taskGID, sectionGID, insertBefore string) error
}

type apiService struct {
	client *api.Client
}

// NewAPIService adapts the API client to the Service interface.
func NewAPIService(client *api.Client) Service {
	return apiService{client: client}
}

func (s apiService) ListSections(ctx context.Context, projectGID string) ([]api.Section, error) {
	return s.client.ListSections(ctx, projectGID)
}

func (s apiService) ListFields(ctx context.Context, projectGID string) ([]schema.WireField, error) {
	return s.client.ListFields(ctx, projectGID)
}

func (s apiService) Tasks(projectGID string) TaskSource {
	return s.client.Tasks(projectGID)
}

// CreateTask creates the task in the project and then places it in the
// requested section. The create itself is the non-recoverable half; a failed
// placement still leaves a usable task, so that error is reported but the
// created task is returned.
func (s apiService) CreateTask(ctx context.Context, projectGID, name, sectionGID string) (api.Task, error) {
	task, err := s.client.CreateTask(ctx, projectGID, name)
	if err != nil {
		return api.Task{}, err
	}
	if sectionGID != "" {
		if err := s.client.MoveTask(ctx, task.GID, sectionGID, ""); err != nil {
			return task, err
		}
	}
	return task, nil
}

func (s apiService) UpdateTask(ctx context.Context, taskGID string, fields map[string]any) (api.Task, error) {
	return s.client.UpdateTask(ctx, taskGID, fields)
}

func (s apiService) MoveTask(ctx context.Context, taskGID, sectionGID, insertBefore string) error {
	return s.client.MoveTask(ctx, taskGID, sectionGID, insertBefore)
}
