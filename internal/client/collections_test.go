package client_test

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

const collectionJSON = `{"pid":"81123","name":"Fonds ancien","description":"Livres anciens","link":"https://api/bibs/collections/81123"}`

func collectionHandler(t *testing.T) http.HandlerFunc {
	t.Helper()

	return func(writer http.ResponseWriter, request *http.Request) {
		switch {
		case request.URL.Path == "/bibs/collections/81123":
			respondJSON(writer, http.StatusOK, collectionJSON)
		case request.URL.Path == "/bibs/collections/81123/bibs" && request.Method == http.MethodGet:
			if request.URL.Query().Get("offset") == "0" {
				respondJSON(writer, http.StatusOK, `{"bib":[{"mms_id":"9911"},{"mms_id":"9912"}],"total_record_count":3}`)

				return
			}

			respondJSON(writer, http.StatusOK, `{"bib":[{"mms_id":"9913"}],"total_record_count":3}`)
		case request.URL.Path == "/bibs/collections/81123/bibs" && request.Method == http.MethodPost:
			respondXML(writer, http.StatusOK, `<bib><mms_id>9914</mms_id></bib>`)
		case request.Method == http.MethodDelete:
			writer.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", request.Method, request.URL.Path)
		}
	}
}

func TestCollection_Bibs(t *testing.T) {
	t.Parallel()

	t.Run("institution zone", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, collectionHandler(t))

		collection := env.client.Collection("81123", "UBS", alma.Production)
		assert.Equal(t, "Collection('81123', 'UBS', 'P')", collection.String())

		bibs, err := collection.Bibs(context.Background())
		require.NoError(t, err)
		require.Len(t, bibs, 3)

		assert.Equal(t, "9913", bibs[2].ID)

		_, isIz := bibs[0].Entity.(alma.IzBib)
		assert.True(t, isIz)

		requests := env.recorded()
		require.Len(t, requests, 3)
		assert.Equal(t, []string{"2"}, requests[2].Query["offset"])

		_, err = collection.Bibs(context.Background())
		require.NoError(t, err)
		assert.Len(t, env.recorded(), 3)
	})

	t.Run("network zone", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, collectionHandler(t))

		bibs, err := env.client.Collection("81123", "NZ", alma.Production).Bibs(context.Background())
		require.NoError(t, err)
		require.Len(t, bibs, 3)
		assert.Equal(t, "NzBib('9911', 'P')", bibs[0].Entity.String())
	})

	t.Run("construction error", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, collectionHandler(t))

		collection := env.client.Collection("", "UBS", alma.Production)

		_, err := collection.Bibs(context.Background())
		require.ErrorIs(t, err, alma.ErrInsufficientParameters)
		assert.Empty(t, env.recorded())
	})
}

func TestCollection_AddRemoveBib(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, collectionHandler(t))

	collection := env.client.Collection("81123", "UBS", alma.Production)

	_, err := collection.Bibs(context.Background())
	require.NoError(t, err)

	collection.AddBib(context.Background(), "9914").RemoveBib(context.Background(), "9911")
	require.False(t, collection.HasError())

	requests := env.recorded()
	require.Len(t, requests, 5)

	assert.Equal(t, http.MethodPost, requests[3].Method)
	assert.Equal(t, "application/xml", requests[3].ContentType)
	assert.Contains(t, requests[3].Body, "<mms_id>9914</mms_id>")

	assert.Equal(t, http.MethodDelete, requests[4].Method)
	assert.Equal(t, "/bibs/collections/81123/bibs/9911", requests[4].Path)

	_, err = collection.Bibs(context.Background())
	require.NoError(t, err)
	assert.Len(t, env.recorded(), 7)
}

func TestCollection_Save(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, collectionHandler(t))

	env.client.Collection("81123", "UBS", alma.Production).Save(context.Background())

	exists, err := afero.Exists(env.fs, filepath.Join("records", "UBS_collections", "col_81123_01.json"))
	require.NoError(t, err)
	assert.True(t, exists)
}
