package file

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdw/internal/etlerr"
)

func TestLocalOpen(t *testing.T) {
	t.Parallel()

	type tc struct {
		name      string
		prepare   func(t *testing.T) string
		ctx       func() context.Context
		wantKind  etlerr.Kind
		wantErrIs error
		want      string
	}

	writeFile := func(t *testing.T) string {
		t.Helper()
		p := filepath.Join(t.TempDir(), "customers.csv")
		require.NoError(t, os.WriteFile(p, []byte("CustomerID\n1\n"), 0o644))
		return p
	}

	cases := []tc{
		{
			name:    "success_reads_content",
			prepare: writeFile,
			ctx:     context.Background,
			want:    "CustomerID\n1\n",
		},
		{
			name: "missing_file_is_source_not_found",
			prepare: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.csv")
			},
			ctx:       context.Background,
			wantKind:  etlerr.SourceNotFound,
			wantErrIs: fs.ErrNotExist,
		},
		{
			name:     "directory_is_source_not_found",
			prepare:  func(t *testing.T) string { return t.TempDir() },
			ctx:      context.Background,
			wantKind: etlerr.SourceNotFound,
		},
		{
			name:    "pre_canceled_context_short_circuits",
			prepare: writeFile,
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			wantErrIs: context.Canceled,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			src := NewLocal(c.prepare(t), "customer")
			rc, err := src.Open(c.ctx())

			if c.wantKind != 0 || c.wantErrIs != nil {
				require.Error(t, err)
				assert.Nil(t, rc)
				if c.wantKind != 0 {
					assert.True(t, etlerr.IsKind(err, c.wantKind), "got %v", err)
					assert.Contains(t, err.Error(), "dataset=customer")
				}
				if c.wantErrIs != nil {
					assert.ErrorIs(t, err, c.wantErrIs)
				}
				return
			}

			require.NoError(t, err)
			defer rc.Close()
			got, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, c.want, string(got))
		})
	}
}
