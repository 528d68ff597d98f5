package resource

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onlycut/internal/errs"
)

func TestResolve(t *testing.T) {
	base := t.TempDir()
	r, err := NewResolver(base)
	require.NoError(t, err)

	tests := []struct {
		name    string
		rel     string
		want    string
		wantErr error
	}{
		{name: "plain file", rel: "foo.txt", want: filepath.Join(base, "foo.txt")},
		{name: "nested", rel: "media/clip.mp4", want: filepath.Join(base, "media", "clip.mp4")},
		{name: "dot segments inside base", rel: "media/../foo.txt", want: filepath.Join(base, "foo.txt")},
		{name: "empty", rel: "", wantErr: ErrEmptyPath},
		{name: "blank", rel: "   ", wantErr: ErrEmptyPath},
		{name: "absolute", rel: "/etc/passwd", wantErr: ErrAbsolutePath},
		{name: "escape", rel: "../secret", wantErr: ErrOutsideBase},
		{name: "nested escape", rel: "media/../../secret", wantErr: ErrOutsideBase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.rel)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, errs.KindPlatform, errs.KindOf(err))
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewResolver_MakesBaseAbsolute(t *testing.T) {
	r, err := NewResolver("resources")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(r.BaseDir()))
}

func TestNewResolver_Empty(t *testing.T) {
	_, err := NewResolver("")
	require.ErrorIs(t, err, ErrEmptyPath)
	assert.Equal(t, errs.KindPlatform, errs.KindOf(err))
}
