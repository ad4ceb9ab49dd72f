package client_test

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

const bibXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<bib>
  <mms_id>991170891000000000</mms_id>
  <linked_record_id type="NZ">991000000000005501</linked_record_id>
  <title>Le grand livre</title>
  <record>
    <leader>00000nam a2200000 c 4500</leader>
    <datafield tag="245" ind1="1" ind2="0"><subfield code="a">Le grand livre</subfield></datafield>
    <controlfield tag="001">991170891000000000</controlfield>
    <datafield tag="100" ind1="1" ind2=" "><subfield code="a">Dupont, Jean</subfield></datafield>
    <datafield tag="900" ind1=" " ind2=" "><subfield code="a">Note</subfield><subfield code="9">LOCAL</subfield></datafield>
  </record>
</bib>`

const bibID = "991170891000000000"

func bibPayload(t *testing.T) alma.Payload {
	t.Helper()

	payload, err := alma.ParseXML([]byte(bibXML))
	require.NoError(t, err)

	return payload
}

func fieldTags(t *testing.T, payload alma.Payload) []string {
	t.Helper()

	doc, ok := payload.(*alma.XMLPayload)
	require.True(t, ok)

	var tags []string
	for _, field := range doc.Element(".//record").ChildElements() {
		tags = append(tags, field.SelectAttrValue("tag", "-"))
	}

	return tags
}

func TestIzBib_Data(t *testing.T) {
	t.Parallel()

	t.Run("fetched once and cached", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, func(writer http.ResponseWriter, request *http.Request) {
			respondXML(writer, http.StatusOK, bibXML)
		})

		bib := env.client.IzBib(bibID, "UBS", alma.Production)

		first, err := bib.Data(context.Background())
		require.NoError(t, err)

		second, err := bib.Data(context.Background())
		require.NoError(t, err)

		assert.Same(t, first, second)

		requests := env.recorded()
		require.Len(t, requests, 1)
		assert.Equal(t, http.MethodGet, requests[0].Method)
		assert.Equal(t, "/bibs/"+bibID, requests[0].Path)
		assert.Equal(t, "apikey key-UBS", requests[0].Authorization)
		assert.Equal(t, "application/xml", requests[0].ContentType)
		assert.False(t, bib.HasError())
	})

	t.Run("supplied payload is not fetched", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, func(writer http.ResponseWriter, request *http.Request) {
			t.Errorf("unexpected request %s %s", request.Method, request.URL.Path)
		})

		bib := env.client.IzBib(bibID, "UBS", alma.Production, alma.WithData(bibPayload(t)))

		mmsID, err := bib.RecordMMSID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, bibID, mmsID)
		assert.Empty(t, env.recorded())
	})

	t.Run("describes itself", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, func(http.ResponseWriter, *http.Request) {})

		assert.Equal(t, "IzBib('991', 'UBS', 'P')", env.client.IzBib("991", "UBS", alma.Production).String())
		assert.Equal(t, "NzBib('991', 'S')", env.client.NzBib("991", alma.Sandbox).String())
	})
}

func TestIzBib_ErrorState(t *testing.T) {
	t.Parallel()

	t.Run("remote error puts the record in error state", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, func(writer http.ResponseWriter, request *http.Request) {
			respondXML(writer, http.StatusBadRequest, xmlError("Input parameters mmsId 991 is not valid."))
		})

		bib := env.client.IzBib("991", "UBS", alma.Production)

		_, err := bib.Data(context.Background())
		require.Error(t, err)
		require.ErrorIs(t, err, alma.ErrApplication)

		assert.True(t, bib.HasError())
		assert.Equal(t, "Input parameters mmsId 991 is not valid.", bib.ErrorMessage())

		var entityErr *alma.EntityError
		require.ErrorAs(t, bib.Err(), &entityErr)
		assert.Equal(t, http.StatusBadRequest, entityErr.StatusCode)
	})

	t.Run("operations are skipped without request", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, func(writer http.ResponseWriter, request *http.Request) {
			respondXML(writer, http.StatusBadRequest, xmlError("not valid"))
		})

		bib := env.client.IzBib("991", "UBS", alma.Production)
		_, _ = bib.Data(context.Background())
		require.Len(t, env.recorded(), 1)

		returned := bib.SortFields(context.Background()).Update(context.Background()).Save(context.Background())
		bib.Delete(context.Background())

		assert.Same(t, bib, returned)
		assert.Len(t, env.recorded(), 1)
		assert.True(t, containsMessage(env.logger.messages("error"), `IzBib('991', 'UBS', 'P'): due to error to the record, process "update" skipped`))
		assert.True(t, containsMessage(env.logger.messages("error"), `process "delete" skipped`))

		exists, err := afero.DirExists(env.fs, "records")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("missing identifier is a construction error", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, func(writer http.ResponseWriter, request *http.Request) {
			t.Errorf("unexpected request %s %s", request.Method, request.URL.Path)
		})

		bib := env.client.IzBib("", "UBS", alma.Production)

		assert.True(t, bib.HasError())
		require.ErrorIs(t, bib.Err(), alma.ErrInsufficientParameters)

		bib.Update(context.Background())
		assert.Empty(t, env.recorded())
	})

	t.Run("reset clears the error state", func(t *testing.T) {
		t.Parallel()

		calls := 0
		env := newTestEnv(t, func(writer http.ResponseWriter, request *http.Request) {
			calls++
			if calls == 1 {
				respondXML(writer, http.StatusBadRequest, xmlError("temporarily unavailable"))

				return
			}

			respondXML(writer, http.StatusOK, bibXML)
		})

		bib := env.client.IzBib(bibID, "UBS", alma.Production)
		_, _ = bib.Data(context.Background())
		require.True(t, bib.HasError())

		bib.ResetError()

		_, err := bib.Data(context.Background())
		require.NoError(t, err)
		assert.False(t, bib.HasError())
		assert.Empty(t, bib.ErrorMessage())
	})
}

func TestBib_Fields(t *testing.T) {
	t.Parallel()

	t.Run("sort fields by tag", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, func(http.ResponseWriter, *http.Request) {})

		bib := env.client.IzBib(bibID, "UBS", alma.Production, alma.WithData(bibPayload(t)))
		returned := bib.SortFields(context.Background())

		_, isIz := returned.(alma.IzBib)
		assert.True(t, isIz)

		payload, err := bib.Data(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"-", "001", "100", "245", "900"}, fieldTags(t, payload))
	})

	t.Run("add fields keeps the record sorted", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, func(http.ResponseWriter, *http.Request) {})

		field := etree.NewElement("datafield")
		field.CreateAttr("tag", "090")
		field.CreateElement("subfield").SetText("added")

		bib := env.client.NzBib(bibID, alma.Production, alma.WithData(bibPayload(t)))
		returned := bib.AddFields(context.Background(), field)

		_, isNz := returned.(alma.NzBib)
		assert.True(t, isNz)

		payload, err := bib.Data(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"-", "001", "090", "100", "245", "900"}, fieldTags(t, payload))
	})

	t.Run("supplied payload is copied", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, func(http.ResponseWriter, *http.Request) {})

		original := bibPayload(t)
		before := original.String()

		env.client.IzBib(bibID, "UBS", alma.Production, alma.WithData(original)).SortFields(context.Background())

		assert.Equal(t, before, original.String())
	})

	t.Run("linked NZ id and local fields", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, func(http.ResponseWriter, *http.Request) {})

		bib := env.client.IzBib(bibID, "UBS", alma.Production, alma.WithData(bibPayload(t)))

		nzID, err := bib.NZMMSID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "991000000000005501", nzID)

		fields, err := bib.LocalFields(context.Background())
		require.NoError(t, err)
		require.Len(t, fields, 1)
		assert.Equal(t, "900", fields[0].SelectAttrValue("tag", ""))
	})
}

func TestBib_Update(t *testing.T) {
	t.Parallel()

	updated := strings.Replace(bibXML, "<title>Le grand livre</title>", "<title>Le petit livre</title>", 1)

	env := newTestEnv(t, func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodPut, request.Method)
		respondXML(writer, http.StatusOK, updated)
	})

	bib := env.client.IzBib(bibID, "UBS", alma.Production, alma.WithData(bibPayload(t)))
	bib.Update(context.Background())

	require.False(t, bib.HasError())

	requests := env.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, "/bibs/"+bibID, requests[0].Path)
	assert.Contains(t, requests[0].Body, "<title>Le grand livre</title>")

	payload, err := bib.Data(context.Background())
	require.NoError(t, err)

	title, ok := payload.Find("bib/title")
	require.True(t, ok)
	assert.Equal(t, "Le petit livre", title)
}

func TestIzBib_Delete(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.Method == http.MethodPost {
			respondXML(writer, http.StatusOK, bibXML)

			return
		}

		writer.WriteHeader(http.StatusNoContent)
	})

	bib := env.client.IzBib(bibID, "UBS", alma.Production, alma.WithData(bibPayload(t)))
	bib.Delete(context.Background())

	require.False(t, bib.HasError())

	requests := env.recorded()
	require.Len(t, requests, 2)
	assert.Equal(t, http.MethodPost, requests[0].Method)
	assert.Equal(t, []string{"unlink_from_nz"}, requests[0].Query["op"])
	assert.Equal(t, http.MethodDelete, requests[1].Method)
	assert.Equal(t, "/bibs/"+bibID, requests[1].Path)
}

func TestBib_Save(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(http.ResponseWriter, *http.Request) {})

	bib := env.client.IzBib(bibID, "UBS", alma.Production, alma.WithData(bibPayload(t)))
	bib.Save(context.Background()).Save(context.Background())

	for _, name := range []string{"bib" + bibID + "_01.xml", "bib" + bibID + "_02.xml"} {
		exists, err := afero.Exists(env.fs, filepath.Join("records", "UBS_"+bibID, name))
		require.NoError(t, err)
		assert.True(t, exists, name)
	}

	latest, err := env.client.Snapshots().Latest(context.Background(), "UBS_"+bibID, "bib"+bibID)
	require.NoError(t, err)

	mmsID, ok := latest.Find("bib/mms_id")
	require.True(t, ok)
	assert.Equal(t, bibID, mmsID)
}
