package client_test

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

const (
	holdingID   = "22314215780005504"
	holdingPath = "/bibs/" + bibID + "/holdings/" + holdingID
)

const holdingXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<holding>
  <holding_id>22314215780005504</holding_id>
  <record>
    <leader>#####nx##a22#####1n#4500</leader>
    <controlfield tag="001">22314215780005504</controlfield>
    <datafield ind1="0" ind2=" " tag="852">
      <subfield code="b">UBS</subfield>
      <subfield code="c">MAG</subfield>
      <subfield code="h">UBH Ai 1234</subfield>
    </datafield>
  </record>
</holding>`

const holdingsListXML = `<holdings total_record_count="2">
  <holding><holding_id>22314215780005504</holding_id></holding>
  <holding><holding_id>22314215790005504</holding_id></holding>
</holdings>`

func itemsListXML(total int, pids ...string) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, `<items total_record_count="%d">`, total)

	for _, pid := range pids {
		fmt.Fprintf(&builder, `<item><item_data><pid>%s</pid></item_data></item>`, pid)
	}

	builder.WriteString(`</items>`)

	return builder.String()
}

func holdingHandler(t *testing.T) http.HandlerFunc {
	t.Helper()

	return func(writer http.ResponseWriter, request *http.Request) {
		switch {
		case request.URL.Path == "/bibs/"+bibID+"/holdings" && request.Method == http.MethodGet:
			respondXML(writer, http.StatusOK, holdingsListXML)
		case request.URL.Path == "/bibs/"+bibID+"/holdings" && request.Method == http.MethodPost:
			respondXML(writer, http.StatusOK, holdingXML)
		case request.URL.Path == holdingPath && request.Method == http.MethodDelete:
			writer.WriteHeader(http.StatusNoContent)
		case request.URL.Path == holdingPath:
			respondXML(writer, http.StatusOK, holdingXML)
		case request.URL.Path == holdingPath+"/items":
			if request.URL.Query().Get("offset") == "0" {
				respondXML(writer, http.StatusOK, itemsListXML(3, "2301", "2302"))

				return
			}

			respondXML(writer, http.StatusOK, itemsListXML(3, "2303"))
		case strings.HasPrefix(request.URL.Path, holdingPath+"/items/") && request.Method == http.MethodGet:
			pid := strings.TrimPrefix(request.URL.Path, holdingPath+"/items/")
			respondXML(writer, http.StatusOK, itemXML(pid, "BC"+pid))
		case strings.HasPrefix(request.URL.Path, holdingPath+"/items/") && request.Method == http.MethodDelete:
			writer.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", request.Method, request.URL.Path)
		}
	}
}

func TestIzBib_Holdings(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, holdingHandler(t))

	bib := env.client.IzBib(bibID, "UBS", alma.Production)

	holdings, err := bib.Holdings(context.Background())
	require.NoError(t, err)
	require.Len(t, holdings, 2)

	assert.Equal(t, "Holding('"+bibID+"', '22314215790005504', 'UBS', 'P')", holdings[1].String())
	assert.Equal(t, holdingID, holdings[0].HoldingID())
	assert.Equal(t, bibID, holdings[0].MMSID())

	_, err = bib.Holdings(context.Background())
	require.NoError(t, err)
	assert.Len(t, env.recorded(), 1)

	bib.InvalidateHoldings()

	_, err = bib.Holdings(context.Background())
	require.NoError(t, err)
	assert.Len(t, env.recorded(), 2)
}

func TestHolding_LocationFields(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, holdingHandler(t))

	holding := env.client.Holding(bibID, holdingID, "UBS", alma.Production)

	library, err := holding.Library(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "UBS", library)

	location, err := holding.Location(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "MAG", location)

	callNumber, err := holding.CallNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "UBH Ai 1234", callNumber)

	holding.SetLocation(context.Background(), "FREI").SetCallNumber(context.Background(), "UBH Ai 99").Update(context.Background())
	require.False(t, holding.HasError())

	requests := env.recorded()
	require.Len(t, requests, 2)
	assert.Equal(t, http.MethodPut, requests[1].Method)
	assert.Equal(t, holdingPath, requests[1].Path)
	assert.Contains(t, requests[1].Body, `<subfield code="c">FREI</subfield>`)
	assert.Contains(t, requests[1].Body, `<subfield code="h">UBH Ai 99</subfield>`)
}

func TestHolding_MissingSubfield(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, holdingHandler(t))

	payload, err := alma.ParseXML([]byte(`<holding><holding_id>1</holding_id><record/></holding>`))
	require.NoError(t, err)

	holding := env.client.Holding(bibID, "", "UBS", alma.Production, alma.WithData(payload))
	assert.Equal(t, "1", holding.HoldingID())

	_, err = holding.Library(context.Background())
	require.ErrorIs(t, err, alma.ErrPathNotFound)
	assert.True(t, containsMessage(env.logger.messages("warn"), "no library in the holding"))

	holding.SetLibrary(context.Background(), "UBS")
	assert.True(t, holding.HasError())
	assert.Empty(t, env.recorded())
}

func TestHolding_Items(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, holdingHandler(t))

	holding := env.client.Holding(bibID, holdingID, "UBS", alma.Production)

	items, err := holding.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "2303", items[2].ItemID())
	assert.Equal(t, holdingID, items[2].HoldingID())

	requests := env.recorded()
	require.Len(t, requests, 2)
	assert.Equal(t, []string{"100"}, requests[0].Query["limit"])
	assert.Equal(t, []string{"2"}, requests[1].Query["offset"])

	_, err = holding.Items(context.Background())
	require.NoError(t, err)
	assert.Len(t, env.recorded(), 2)
}

func TestHolding_DeleteWithItems(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, holdingHandler(t))

	holding := env.client.Holding(bibID, holdingID, "UBS", alma.Production)
	holding.Delete(context.Background(), true)
	require.False(t, holding.HasError())

	var deleted []string

	for _, request := range env.recorded() {
		if request.Method == http.MethodDelete {
			deleted = append(deleted, request.Path)
		}
	}

	assert.Equal(t, []string{
		holdingPath + "/items/2301",
		holdingPath + "/items/2302",
		holdingPath + "/items/2303",
		holdingPath,
	}, deleted)
}

func TestHolding_Save(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, holdingHandler(t))

	env.client.Holding(bibID, holdingID, "UBS", alma.Production).Save(context.Background())

	exists, err := afero.Exists(env.fs, filepath.Join("records", "UBS_"+bibID, "hol_"+holdingID+"_01.xml"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestHolding_Construction(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, holdingHandler(t))

	holding := env.client.Holding(bibID, "", "UBS", alma.Production)
	require.ErrorIs(t, holding.Err(), alma.ErrInsufficientParameters)

	_, err := holding.Items(context.Background())
	require.ErrorIs(t, err, alma.ErrInsufficientParameters)
	assert.Empty(t, env.recorded())
}

func TestNewHolding_Create(t *testing.T) {
	t.Parallel()

	t.Run("created", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, holdingHandler(t))

		payload, err := alma.ParseXML([]byte(holdingXML))
		require.NoError(t, err)

		holding := env.client.NewHolding(bibID, "UBS", alma.Production, payload).Create(context.Background())
		require.False(t, holding.HasError())
		assert.Equal(t, holdingID, holding.HoldingID())

		requests := env.recorded()
		require.Len(t, requests, 1)
		assert.Equal(t, http.MethodPost, requests[0].Method)
		assert.Equal(t, "/bibs/"+bibID+"/holdings", requests[0].Path)
	})

	t.Run("rejected", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, func(writer http.ResponseWriter, request *http.Request) {
			respondXML(writer, http.StatusBadRequest, xmlError("Library code is not valid"))
		})

		payload, err := alma.ParseXML([]byte(`<holding><record/></holding>`))
		require.NoError(t, err)

		draft := env.client.NewHolding(bibID, "UBS", alma.Production, payload)
		holding := draft.Create(context.Background())

		assert.True(t, draft.HasError())
		assert.True(t, holding.HasError())
		assert.Equal(t, draft.ErrorMessage(), holding.ErrorMessage())
		assert.Equal(t, "Library code is not valid", holding.ErrorMessage())
	})
}
