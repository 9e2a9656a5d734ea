package camunda

import (
	"context"
	"encoding/json"
	"fmt"

	"mindfork-recommender/internal/common/errors"
	"mindfork-recommender/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// DecodeVariables validates the job variables against schema and decodes
// them into dst. Failures are INVALID_INPUT errors so the process gets a
// BPMN error instead of a retry.
func DecodeVariables(job entities.Job, schema *validation.Schema, dst interface{}) error {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("job variables are not a JSON object: %v", err))
	}

	if result := schema.Validate(variables); !result.Valid {
		return errors.NewInvalidInputError(result.Summary())
	}

	if err := json.Unmarshal([]byte(job.GetVariables()), dst); err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("decode job variables: %v", err))
	}
	return nil
}

// CompleteJob completes the job with the given output variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, variables map[string]interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromMap(variables)
	if err != nil {
		return fmt.Errorf("build complete command: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return fmt.Errorf("send complete command: %w", err)
	}
	return nil
}

// ErrorCode returns the metric label for a job error.
func ErrorCode(err error) string {
	if stdErr, ok := errors.AsStandard(err); ok {
		return string(stdErr.Code)
	}
	return string(errors.ErrCodeInternal)
}
