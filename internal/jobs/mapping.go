package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/JaimeStill/scribe/pkg/repository"
)

const columns = `id, status, size_bytes, page_count, text, error, failed_stage, reports, created_at, updated_at, completed_at`

func scanJob(s repository.Scanner) (Job, error) {
	var (
		j       Job
		reports []byte
	)

	err := s.Scan(
		&j.ID,
		&j.Status,
		&j.SizeBytes,
		&j.PageCount,
		&j.Text,
		&j.Error,
		&j.FailedStage,
		&reports,
		&j.CreatedAt,
		&j.UpdatedAt,
		&j.CompletedAt,
	)
	if err != nil {
		return j, err
	}

	if len(reports) > 0 {
		if err := json.Unmarshal(reports, &j.Reports); err != nil {
			return j, fmt.Errorf("decode reports: %w", err)
		}
	}

	return j, nil
}
