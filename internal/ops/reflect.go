package ops

import (
	"context"

	"github.com/pithlabs/pith/internal/errors"
	"github.com/pithlabs/pith/internal/reflection"
)

// ReflectInput contains parameters for the Reflect operation.
type ReflectInput struct {
	WorkspaceID string
	Force       bool // run even when the auto-reflect threshold is not met
}

// ReflectOutput contains the result of the Reflect operation.
type ReflectOutput struct {
	Result *reflection.Result `json:"result"`
}

// Reflect runs a reflection cycle. Without Force, the call is a no-op
// (status "skipped") when the threshold has not been reached, so schedulers
// can invoke it unconditionally.
func (e *Env) Reflect(ctx context.Context, input ReflectInput) (*ReflectOutput, error) {
	if input.WorkspaceID == "" {
		return nil, errors.NewInvalidRequest("workspace_id is required")
	}

	if !input.Force {
		due, err := e.Reflector.ShouldAutoReflect(input.WorkspaceID)
		if err != nil {
			return nil, err
		}
		if !due {
			return &ReflectOutput{Result: &reflection.Result{Status: reflection.StatusSkipped}}, nil
		}
	}

	result, err := e.Reflector.Reflect(ctx, input.WorkspaceID)
	if err != nil {
		return nil, err
	}
	return &ReflectOutput{Result: result}, nil
}

// ReflectCheckInput contains parameters for the ReflectCheck operation.
type ReflectCheckInput struct {
	WorkspaceID string
}

// ReflectCheckOutput contains the result of the ReflectCheck operation.
type ReflectCheckOutput struct {
	ShouldReflect bool `json:"should_reflect"`
}

// ReflectCheck reports whether enough feedback has accumulated for an
// automatic reflection.
func (e *Env) ReflectCheck(input ReflectCheckInput) (*ReflectCheckOutput, error) {
	if input.WorkspaceID == "" {
		return nil, errors.NewInvalidRequest("workspace_id is required")
	}

	due, err := e.Reflector.ShouldAutoReflect(input.WorkspaceID)
	if err != nil {
		return nil, err
	}
	return &ReflectCheckOutput{ShouldReflect: due}, nil
}
