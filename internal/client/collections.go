package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/beevik/etree"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	almahttp "github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/http"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

type collection struct {
	record
	pid  string
	bibs []alma.Member
}

// Collection builds a collection handle.
func (c *Client) Collection(pid string, zone alma.Zone, env alma.Environment) alma.Collection {
	col := &collection{
		record: newRecord(c, zone, env, alma.FormatJSON, constants.AreaBibs),
		pid:    pid,
	}
	col.fetch = col.fetchData
	col.describe = func() string { return fmt.Sprintf("Collection('%s', '%s', '%s')", col.pid, col.zone, col.env) }

	if pid == "" {
		col.failConstruction()
	}

	return col
}

func (col *collection) path() string {
	return "/bibs/collections/" + url.PathEscape(col.pid)
}

func (col *collection) fetchData(ctx context.Context) (alma.Payload, error) {
	resp, err := col.do(ctx, "unable to fetch collection data", &almahttp.Request{
		Method:     http.MethodGet,
		Path:       col.path(),
		Permission: alma.ReadOnly,
	})
	if err != nil {
		return nil, err
	}

	payload, err := col.parse("unable to fetch collection data", resp.Body)
	if err != nil {
		return nil, err
	}

	col.logger().Info(fmt.Sprintf("%s: collection data available", col.String()), nil)

	return payload, nil
}

func (col *collection) PID() string {
	return col.pid
}

// Bibs returns the records of the collection, fetched once and cached until
// AddBib, RemoveBib or InvalidateMembers.
func (col *collection) Bibs(ctx context.Context) ([]alma.Member, error) {
	if col.bibs != nil {
		return col.bibs, nil
	}

	_, err := col.Data(ctx)
	if err != nil {
		return nil, err
	}

	mmsIDs, err := newPager(col.logger(), col.String(), col.fetchBibsPage).fetchAll(ctx, unknownTotal)
	if err != nil {
		return nil, err
	}

	members := make([]alma.Member, 0, len(mmsIDs))

	for _, mmsID := range mmsIDs {
		var entity alma.Entity
		if col.zone.IsNetwork() {
			entity = col.client.NzBib(mmsID, col.env)
		} else {
			entity = col.client.IzBib(mmsID, col.zone, col.env)
		}

		members = append(members, alma.Member{ID: mmsID, Entity: entity})
	}

	col.bibs = members

	return members, nil
}

func (col *collection) fetchBibsPage(ctx context.Context, limit, offset int) (page, error) {
	resp, err := col.do(ctx, "unable to fetch collection members", &almahttp.Request{
		Method:     http.MethodGet,
		Path:       col.path() + "/bibs",
		Query:      url.Values{"limit": []string{strconv.Itoa(limit)}, "offset": []string{strconv.Itoa(offset)}},
		Permission: alma.ReadOnly,
	})
	if err != nil {
		return page{}, err
	}

	listing, err := alma.ParseJSON(resp.Body)
	if err != nil {
		return page{}, col.fail(alma.KindApplication, "unable to fetch collection members", 0, err.Error())
	}

	return jsonPage(listing, "bib", "mms_id"), nil
}

// AddBib links a record to the collection.
func (col *collection) AddBib(ctx context.Context, mmsID string) alma.Collection {
	col.guard(ctx, "add_bib", func(alma.Payload) {
		body := etree.NewDocument()
		body.CreateElement("bib").CreateElement("mms_id").SetText(mmsID)

		data, err := body.WriteToBytes()
		if err != nil {
			col.fail(alma.KindApplication, "add_bib", 0, err.Error())

			return
		}

		_, err = col.do(ctx, fmt.Sprintf("unable to add bib %s to collection", mmsID), &almahttp.Request{
			Method: http.MethodPost,
			Path:   col.path() + "/bibs",
			Body:   data,
			Format: alma.FormatXML,
		})
		if err != nil {
			return
		}

		col.InvalidateMembers()
		col.logger().Info(fmt.Sprintf("%s: bib %s added to collection", col.String(), mmsID), nil)
	})

	return col
}

// RemoveBib unlinks a record from the collection.
func (col *collection) RemoveBib(ctx context.Context, mmsID string) alma.Collection {
	col.guard(ctx, "remove_bib", func(alma.Payload) {
		_, err := col.do(ctx, fmt.Sprintf("unable to remove bib %s from collection", mmsID), &almahttp.Request{
			Method: http.MethodDelete,
			Path:   col.path() + "/bibs/" + url.PathEscape(mmsID),
		})
		if err != nil {
			return
		}

		col.InvalidateMembers()
		col.logger().Info(fmt.Sprintf("%s: bib %s removed from collection", col.String(), mmsID), nil)
	})

	return col
}

func (col *collection) InvalidateMembers() {
	col.bibs = nil
}

// Save writes records/<zone>_collections/col_<pid>_<vv>.json.
func (col *collection) Save(ctx context.Context) alma.Collection {
	col.save(ctx, fmt.Sprintf("%s_collections/col_%s.json", col.zone, col.pid))

	return col
}

// jsonPage reads a JSON listing: total_record_count and the idKey of every
// entry of listKey.
func jsonPage(listing *alma.JSONPayload, listKey, idKey string) page {
	current := page{total: unknownTotal}

	if total, ok := listing.Find("total_record_count"); ok {
		if n, err := strconv.Atoi(total); err == nil {
			current.total = n
		}
	}

	entries, _ := listing.Get(listKey)

	list, _ := entries.([]any)
	for _, entry := range list {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		if id, ok := fields[idKey].(string); ok {
			current.ids = append(current.ids, id)
		}
	}

	return current
}
