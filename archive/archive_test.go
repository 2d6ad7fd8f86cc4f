package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPreservesOrder(t *testing.T) {
	files := []File{
		{Name: "1-ANA.pdf", Content: []byte("first")},
		{Name: "2-BEN.pdf", Content: []byte("second")},
		{Name: "3-CARLA.pdf", Content: []byte("third")},
	}

	blob, err := Build(files)
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	require.NoError(t, err)
	require.Len(t, reader.File, len(files))

	for i, entry := range reader.File {
		require.Equal(t, files[i].Name, entry.Name)

		rc, err := entry.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		require.Equal(t, files[i].Content, content)
	}
}

func TestBuildEmpty(t *testing.T) {
	blob, err := Build(nil)
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	require.NoError(t, err)
	require.Empty(t, reader.File)
}
