package postgresql

import (
	"context"
	"testing"

	"github.com/dukex/flowcanvas/pkg/log"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sort parameters are validated before any query is built, so no database is needed.
func TestWorkflowRepository_List_RejectsSortInput(t *testing.T) {
	t.Parallel()

	repo := NewWorkflowRepository(nil, log.Discard())

	tests := []struct {
		name    string
		opts    persistence.ListOptions
		wantErr error
	}{
		{
			name:    "unknown sort field",
			opts:    persistence.ListOptions{SortBy: "invalid_field"},
			wantErr: persistence.ErrInvalidSortField,
		},
		{
			name:    "sql injection in sort field",
			opts:    persistence.ListOptions{SortBy: "name; DROP TABLE workflows; --"},
			wantErr: persistence.ErrInvalidSortField,
		},
		{
			name:    "unknown sort order",
			opts:    persistence.ListOptions{SortOrder: "sideways"},
			wantErr: persistence.ErrInvalidSortOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := repo.List(context.Background(), tt.opts)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, result)
		})
	}
}

func TestSortColumns_CoverEverySortField(t *testing.T) {
	t.Parallel()

	for _, field := range []string{persistence.SortByCreatedAt, persistence.SortByUpdatedAt, persistence.SortByName} {
		assert.Contains(t, sortColumns, field)
	}
}
