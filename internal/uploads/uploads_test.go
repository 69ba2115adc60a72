package uploads

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storefronthq/storefront-backend/pkg/config"
	pkgerrors "github.com/storefronthq/storefront-backend/pkg/errors"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(config.UploadsConfig{Dir: t.TempDir(), MaxUploadMB: 1})
	require.NoError(t, err)
	return svc
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"photo.png", "photo.png", false},
		{"my photo!.jpg", "my_photo_.jpg", false},
		{"../../etc/passwd", "", true},
		{"..%2fescape.png", ".._2fescape.png", false},
		{"noextension", "", true},
		{".png", "", true},
		{"script.exe", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := SanitizeFilename(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestSaveAndResolve(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	stored, err := svc.Save(ctx, "photo.png", strings.NewReader("fake image bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(stored, "_photo.png"))

	path, err := svc.Resolve(stored)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "fake image bytes", string(data))
}

func TestSaveGeneratesUniqueNames(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Save(ctx, "photo.png", strings.NewReader("a"))
	require.NoError(t, err)
	second, err := svc.Save(ctx, "photo.png", strings.NewReader("b"))
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestSaveRejectsOversizedFile(t *testing.T) {
	svc, err := NewService(config.UploadsConfig{Dir: t.TempDir(), MaxUploadMB: 1})
	require.NoError(t, err)

	big := strings.NewReader(strings.Repeat("x", (1<<20)+1))
	_, err = svc.Save(context.Background(), "big.png", big)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	entries, err := os.ReadDir(svc.Dir())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestResolveRejectsTraversal(t *testing.T) {
	svc := newTestService(t)

	secret := filepath.Join(filepath.Dir(svc.Dir()), "secret.png")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0o644))

	_, err := svc.Resolve("../secret.png")
	require.Error(t, err)

	_, err = svc.Resolve("missing.png")
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
