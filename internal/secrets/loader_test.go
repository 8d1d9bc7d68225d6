package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	require.NoError(t, os.WriteFile(keyFile, []byte("  from-file\n"), 0o600))
	emptyFile := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(emptyFile, []byte("\n"), 0o600))

	t.Setenv("CARE_MATCHER_TEST_KEY", " from-env ")

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{name: "file wins", src: Source{File: keyFile, Value: "inline", Env: "CARE_MATCHER_TEST_KEY"}, want: "from-file"},
		{name: "inline before env", src: Source{Value: " inline ", Env: "CARE_MATCHER_TEST_KEY"}, want: "inline"},
		{name: "env", src: Source{Env: "CARE_MATCHER_TEST_KEY"}, want: "from-env"},
		{name: "empty env", src: Source{Name: "api key", Env: "CARE_MATCHER_TEST_UNSET"}, wantErr: "api key is not configured (CARE_MATCHER_TEST_UNSET is empty)"},
		{name: "empty file", src: Source{Name: "api key", File: emptyFile}, wantErr: "is empty"},
		{name: "missing file", src: Source{File: filepath.Join(dir, "missing")}, wantErr: "reading secret from file"},
		{name: "nothing", src: Source{}, wantErr: "secret is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
