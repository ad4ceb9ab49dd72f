package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	almahttp "github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/http"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

// Subfields of the 852 location field of a holding.
const (
	subfieldLibrary    = "b"
	subfieldLocation   = "c"
	subfieldCallNumber = "h"
)

type holding struct {
	record
	mmsID     string
	holdingID string
	items     []alma.Item
}

// Holding builds a holding handle of an institution zone record.
func (c *Client) Holding(mmsID, holdingID string, zone alma.Zone, env alma.Environment, opts ...alma.EntityOption) alma.Holding {
	return c.newHolding(mmsID, holdingID, zone, env, opts...)
}

func (c *Client) newHolding(mmsID, holdingID string, zone alma.Zone, env alma.Environment, opts ...alma.EntityOption) *holding {
	options := alma.ApplyEntityOptions(opts...)

	h := &holding{
		record:    newRecord(c, zone, env, alma.FormatXML, constants.AreaBibs),
		mmsID:     mmsID,
		holdingID: holdingID,
	}
	h.fetch = h.fetchData
	h.describe = func() string {
		return fmt.Sprintf("Holding('%s', '%s', '%s', '%s')", h.mmsID, h.holdingID, h.zone, h.env)
	}

	if options.Data != nil {
		h.data = options.Data.Clone()

		if h.holdingID == "" {
			h.holdingID, _ = h.data.Find("holding/holding_id")
		}
	}

	if h.mmsID == "" || (h.holdingID == "" && h.data == nil) {
		h.failConstruction()
	}

	return h
}

func holdingsPath(mmsID string) string {
	return "/bibs/" + url.PathEscape(mmsID) + "/holdings"
}

func (h *holding) path() string {
	return holdingsPath(h.mmsID) + "/" + url.PathEscape(h.holdingID)
}

func (h *holding) fetchData(ctx context.Context) (alma.Payload, error) {
	resp, err := h.do(ctx, "unable to fetch holding data", &almahttp.Request{
		Method:     http.MethodGet,
		Path:       h.path(),
		Permission: alma.ReadOnly,
	})
	if err != nil {
		return nil, err
	}

	payload, err := h.parse("unable to fetch holding data", resp.Body)
	if err != nil {
		return nil, err
	}

	h.logger().Info(fmt.Sprintf("%s: holding data available", h.String()), nil)

	return payload, nil
}

func (h *holding) MMSID() string {
	return h.mmsID
}

func (h *holding) HoldingID() string {
	return h.holdingID
}

func locationSubfield(code string) string {
	return fmt.Sprintf(".//datafield[@tag='852']/subfield[@code='%s']", code)
}

func (h *holding) subfield(ctx context.Context, code, label string) (string, error) {
	payload, err := h.Data(ctx)
	if err != nil {
		return "", err
	}

	value, ok := payload.Find(locationSubfield(code))
	if !ok {
		h.logger().Warn(fmt.Sprintf("%s: no %s in the holding", h.String(), label), nil)

		return "", fmt.Errorf("%s: %w: 852$%s", h.String(), alma.ErrPathNotFound, code)
	}

	return value, nil
}

func (h *holding) Library(ctx context.Context) (string, error) {
	return h.subfield(ctx, subfieldLibrary, "library")
}

func (h *holding) Location(ctx context.Context) (string, error) {
	return h.subfield(ctx, subfieldLocation, "location")
}

func (h *holding) CallNumber(ctx context.Context) (string, error) {
	return h.subfield(ctx, subfieldCallNumber, "call number")
}

// setSubfield replaces the text of an existing 852 subfield.
func (h *holding) setSubfield(ctx context.Context, op, code, value string) alma.Holding {
	h.guard(ctx, op, func(p alma.Payload) {
		err := p.Set(locationSubfield(code), value)
		if err != nil {
			h.fail(alma.KindApplication, op, 0, err.Error())

			return
		}

		h.logger().Info(fmt.Sprintf("%s: 852$%s changed to '%s'", h.String(), code, value), nil)
	})

	return h
}

func (h *holding) SetLibrary(ctx context.Context, code string) alma.Holding {
	return h.setSubfield(ctx, "set_library", subfieldLibrary, code)
}

func (h *holding) SetLocation(ctx context.Context, code string) alma.Holding {
	return h.setSubfield(ctx, "set_location", subfieldLocation, code)
}

func (h *holding) SetCallNumber(ctx context.Context, callNumber string) alma.Holding {
	return h.setSubfield(ctx, "set_callnumber", subfieldCallNumber, callNumber)
}

// Items returns the items of the holding. The listing is paged like any
// other and cached until InvalidateItems or Delete.
func (h *holding) Items(ctx context.Context) ([]alma.Item, error) {
	if h.items != nil {
		return h.items, nil
	}

	if h.failed != nil {
		return nil, h.failed
	}

	pids, err := newPager(h.logger(), h.String(), h.fetchItemsPage).fetchAll(ctx, unknownTotal)
	if err != nil {
		return nil, err
	}

	if len(pids) == 0 {
		h.logger().Warn(fmt.Sprintf("%s: no item found", h.String()), nil)
	}

	items := make([]alma.Item, 0, len(pids))
	for _, pid := range pids {
		items = append(items, h.client.Item(h.mmsID, h.holdingID, pid, h.zone, h.env))
	}

	h.items = items

	return h.items, nil
}

func (h *holding) fetchItemsPage(ctx context.Context, limit, offset int) (page, error) {
	resp, err := h.do(ctx, "unable to fetch items", &almahttp.Request{
		Method:     http.MethodGet,
		Path:       h.path() + "/items",
		Query:      url.Values{"limit": []string{strconv.Itoa(limit)}, "offset": []string{strconv.Itoa(offset)}},
		Permission: alma.ReadOnly,
	})
	if err != nil {
		return page{}, err
	}

	listing, err := alma.ParseXML(resp.Body)
	if err != nil {
		return page{}, h.fail(alma.KindApplication, "unable to fetch items", 0, err.Error())
	}

	return xmlPage(listing, "items/item/item_data/pid"), nil
}

func (h *holding) InvalidateItems() {
	h.items = nil
}

func (h *holding) Update(ctx context.Context) alma.Holding {
	h.guard(ctx, "update", func(p alma.Payload) {
		resp, err := h.do(ctx, "unable to update holding data", &almahttp.Request{
			Method: http.MethodPut,
			Path:   h.path(),
			Body:   p.Bytes(),
		})
		if err != nil {
			return
		}

		payload, err := h.parse("unable to update holding data", resp.Body)
		if err != nil {
			return
		}

		h.SetData(payload)
		h.logger().Info(fmt.Sprintf("%s: holding data updated", h.String()), nil)
	})

	return h
}

func (h *holding) Delete(ctx context.Context, force bool) alma.Holding {
	h.guard(ctx, "delete", func(alma.Payload) {
		if force && !h.deleteItems(ctx) {
			return
		}

		_, err := h.do(ctx, "unable to delete the holding", &almahttp.Request{
			Method: http.MethodDelete,
			Path:   h.path(),
		})
		if err != nil {
			return
		}

		h.items = nil
		h.logger().Info(fmt.Sprintf("%s deleted", h.String()), nil)
	})

	return h
}

// deleteItems deletes every item of the holding and stops at the first failure.
func (h *holding) deleteItems(ctx context.Context) bool {
	items, err := h.Items(ctx)
	if err != nil {
		return false
	}

	for _, it := range items {
		if it.Delete(ctx).HasError() {
			h.fail(alma.KindApplication, "unable to delete the items of the holding", 0, it.ErrorMessage())

			return false
		}
	}

	h.items = nil

	return true
}

// Save writes records/<zone>_<mms_id>/hol_<holding_id>_<vv>.xml.
func (h *holding) Save(ctx context.Context) alma.Holding {
	h.save(ctx, fmt.Sprintf("%s_%s/hol_%s.xml", h.zone, h.mmsID, h.holdingID))

	return h
}

// draftHolding is a holding payload waiting to be created.
type draftHolding struct {
	record
	mmsID string
}

// NewHolding wraps a holding payload to create under mmsID. The payload is copied.
func (c *Client) NewHolding(mmsID string, zone alma.Zone, env alma.Environment, data alma.Payload) alma.NewHolding {
	d := &draftHolding{record: newRecord(c, zone, env, alma.FormatXML, constants.AreaBibs), mmsID: mmsID}
	d.describe = func() string { return fmt.Sprintf("NewHolding('%s', '%s', '%s')", d.mmsID, d.zone, d.env) }

	if data == nil || mmsID == "" {
		d.failConstruction()

		return d
	}

	d.data = data.Clone()

	return d
}

// Create posts the payload under the bibliographic record. On failure the
// returned holding carries the error of the draft.
func (d *draftHolding) Create(ctx context.Context) alma.Holding {
	var created alma.Holding

	d.guard(ctx, "create", func(p alma.Payload) {
		resp, err := d.do(ctx, "unable to create the new holding", &almahttp.Request{
			Method: http.MethodPost,
			Path:   holdingsPath(d.mmsID),
			Body:   p.Bytes(),
		})
		if err != nil {
			return
		}

		payload, err := d.parse("unable to create the new holding", resp.Body)
		if err != nil {
			return
		}

		created = d.client.newHolding(d.mmsID, "", d.zone, d.env, alma.WithData(payload))
		d.logger().Info(fmt.Sprintf("%s: holding created", created.String()), nil)
	})

	if created != nil {
		return created
	}

	var opts []alma.EntityOption
	if d.data != nil {
		opts = append(opts, alma.WithData(d.data))
	}

	failed := d.client.newHolding(d.mmsID, "", d.zone, d.env, opts...)
	failed.failed = d.failedCopy()

	return failed
}

// xmlPage reads the identifiers at idPath and the total_record_count
// attribute of the listing root.
func xmlPage(listing *alma.XMLPayload, idPath string) page {
	current := page{total: unknownTotal}

	if root := listing.Root(); root != nil {
		if total, err := strconv.Atoi(root.SelectAttrValue("total_record_count", "")); err == nil {
			current.total = total
		}
	}

	for _, id := range listing.Elements(idPath) {
		current.ids = append(current.ids, id.Text())
	}

	return current
}

// Holdings lists the holdings of the record. The listing is not paged by the
// remote service.
func (i *izBib) Holdings(ctx context.Context) ([]alma.Holding, error) {
	if i.holdings != nil {
		return i.holdings, nil
	}

	if i.failed != nil {
		return nil, i.failed
	}

	resp, err := i.do(ctx, "unable to fetch holdings", &almahttp.Request{
		Method:     http.MethodGet,
		Path:       holdingsPath(i.mmsID),
		Permission: alma.ReadOnly,
	})
	if err != nil {
		return nil, err
	}

	listing, err := alma.ParseXML(resp.Body)
	if err != nil {
		return nil, i.fail(alma.KindApplication, "unable to fetch holdings", 0, err.Error())
	}

	ids := listing.Elements("holdings/holding/holding_id")
	if len(ids) == 0 {
		i.logger().Warn(fmt.Sprintf("%s: no holding found", i.String()), nil)
	} else {
		i.logger().Info(fmt.Sprintf("%s: %d holdings fetched", i.String(), len(ids)), nil)
	}

	holdings := make([]alma.Holding, 0, len(ids))
	for _, id := range ids {
		holdings = append(holdings, i.client.Holding(i.mmsID, id.Text(), i.zone, i.env))
	}

	i.holdings = holdings

	return i.holdings, nil
}

func (i *izBib) InvalidateHoldings() {
	i.holdings = nil
}
