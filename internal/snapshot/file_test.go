package snapshot_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/snapshot"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

func xmlPayload(t *testing.T, title string) alma.Payload {
	t.Helper()

	payload, err := alma.ParseXML([]byte(fmt.Sprintf("<bib><mms_id>991</mms_id><title>%s</title></bib>", title)))
	require.NoError(t, err)

	return payload
}

func TestFileStore_Save(t *testing.T) {
	t.Parallel()

	t.Run("successive saves never overwrite", func(t *testing.T) {
		t.Parallel()

		fs := afero.NewMemMapFs()
		store := snapshot.NewFileStore(fs, "records", nil)

		paths := make([]string, 0, 3)

		for i := 1; i <= 3; i++ {
			path, err := store.Save(context.Background(), xmlPayload(t, fmt.Sprintf("v%d", i)), "UBS_991/bib991.xml")
			require.NoError(t, err)

			paths = append(paths, path)
		}

		assert.Equal(t, []string{
			filepath.Join("records", "UBS_991", "bib991_01.xml"),
			filepath.Join("records", "UBS_991", "bib991_02.xml"),
			filepath.Join("records", "UBS_991", "bib991_03.xml"),
		}, paths)

		first, err := afero.ReadFile(fs, paths[0])
		require.NoError(t, err)
		assert.Contains(t, string(first), "<title>v1</title>")
	})

	t.Run("json payload", func(t *testing.T) {
		t.Parallel()

		fs := afero.NewMemMapFs()
		store := snapshot.NewFileStore(fs, "records", nil)

		payload, err := alma.ParseJSON([]byte(`{"primary_id":"jdoe"}`))
		require.NoError(t, err)

		path, err := store.Save(context.Background(), payload, "jdoe/user_UBS_jdoe.json")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("records", "jdoe", "user_UBS_jdoe_01.json"), path)
	})

	t.Run("missing extension", func(t *testing.T) {
		t.Parallel()

		store := snapshot.NewFileStore(afero.NewMemMapFs(), "records", nil)

		_, err := store.Save(context.Background(), xmlPayload(t, "x"), "UBS_991/bib991")
		require.ErrorIs(t, err, constants.ErrMissingExtension)
	})

	t.Run("path escaping the root", func(t *testing.T) {
		t.Parallel()

		store := snapshot.NewFileStore(afero.NewMemMapFs(), "records", nil)

		_, err := store.Save(context.Background(), xmlPayload(t, "x"), "../etc/bib.xml")
		require.ErrorIs(t, err, constants.ErrDirectoryTraversalDetected)
	})
}

func TestFileStore_Latest(t *testing.T) {
	t.Parallel()

	t.Run("round trip returns the last version", func(t *testing.T) {
		t.Parallel()

		store := snapshot.NewFileStore(afero.NewMemMapFs(), "records", nil)

		for _, title := range []string{"first", "second"} {
			_, err := store.Save(context.Background(), xmlPayload(t, title), "UBS_991/bib991.xml")
			require.NoError(t, err)
		}

		payload, err := store.Latest(context.Background(), "UBS_991", "bib991")
		require.NoError(t, err)
		assert.Equal(t, alma.FormatXML, payload.Format())

		title, ok := payload.Find(".//title")
		require.True(t, ok)
		assert.Equal(t, "second", title)
	})

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()

		store := snapshot.NewFileStore(afero.NewMemMapFs(), "records", nil)

		payload, err := store.Latest(context.Background(), "UBS_000", "bib000")
		require.ErrorIs(t, err, alma.ErrSnapshotNotFound)
		assert.Nil(t, payload)
	})

	t.Run("no matching file", func(t *testing.T) {
		t.Parallel()

		store := snapshot.NewFileStore(afero.NewMemMapFs(), "records", nil)

		_, err := store.Save(context.Background(), xmlPayload(t, "x"), "UBS_991/bib991.xml")
		require.NoError(t, err)

		_, err = store.Latest(context.Background(), "UBS_991", "hol_22")
		require.ErrorIs(t, err, alma.ErrSnapshotNotFound)
	})
}
