package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	almahttp "github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/http"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

const itemsPath = "/items"

// Paths of the identifiers inside an item payload.
const (
	itemMMSIDPath     = "item/bib_data/mms_id"
	itemHoldingIDPath = "item/holding_data/holding_id"
	itemPIDPath       = "item/item_data/pid"
	itemBarcodePath   = "item/item_data/barcode"
)

type item struct {
	record
	mmsID     string
	holdingID string
	itemID    string
	barcode   string
}

// Item builds an item handle addressed by its record, holding and item ids.
func (c *Client) Item(mmsID, holdingID, itemID string, zone alma.Zone, env alma.Environment, opts ...alma.EntityOption) alma.Item {
	return c.newItem(mmsID, holdingID, itemID, zone, env, opts...)
}

// ItemByBarcode builds an item handle resolved by barcode on first fetch.
func (c *Client) ItemByBarcode(barcode string, zone alma.Zone, env alma.Environment) alma.Item {
	it := c.newItemRecord(zone, env)
	it.barcode = barcode

	if barcode == "" {
		it.failConstruction()
	}

	return it
}

func (c *Client) newItemRecord(zone alma.Zone, env alma.Environment) *item {
	it := &item{record: newRecord(c, zone, env, alma.FormatXML, constants.AreaBibs)}
	it.fetch = it.fetchData
	it.describe = func() string {
		if it.itemID == "" && it.barcode != "" {
			return fmt.Sprintf("Item(barcode='%s', zone='%s', env='%s')", it.barcode, it.zone, it.env)
		}

		return fmt.Sprintf("Item('%s', '%s', '%s', '%s', '%s')", it.mmsID, it.holdingID, it.itemID, it.zone, it.env)
	}

	return it
}

func (c *Client) newItem(mmsID, holdingID, itemID string, zone alma.Zone, env alma.Environment, opts ...alma.EntityOption) *item {
	options := alma.ApplyEntityOptions(opts...)

	it := c.newItemRecord(zone, env)
	it.mmsID = mmsID
	it.holdingID = holdingID
	it.itemID = itemID

	if options.Data != nil {
		it.data = options.Data.Clone()
		it.readIDs(it.data)
	}

	if it.data == nil && (it.mmsID == "" || it.holdingID == "" || it.itemID == "") {
		it.failConstruction()
	}

	return it
}

// readIDs fills the missing identifiers from p.
func (it *item) readIDs(p alma.Payload) {
	fill := func(target *string, path string) {
		if *target == "" {
			*target, _ = p.Find(path)
		}
	}

	fill(&it.mmsID, itemMMSIDPath)
	fill(&it.holdingID, itemHoldingIDPath)
	fill(&it.itemID, itemPIDPath)
}

func (it *item) path() string {
	return holdingsPath(it.mmsID) + "/" + url.PathEscape(it.holdingID) + "/items/" + url.PathEscape(it.itemID)
}

func (it *item) fetchData(ctx context.Context) (alma.Payload, error) {
	req := &almahttp.Request{
		Method:     http.MethodGet,
		Path:       it.path(),
		Permission: alma.ReadOnly,
	}
	op := "unable to fetch item data"

	if it.itemID == "" {
		req.Path = itemsPath
		req.Query = url.Values{"item_barcode": []string{it.barcode}}
		op = fmt.Sprintf("unable to get item data from barcode '%s'", it.barcode)
	}

	resp, err := it.do(ctx, op, req)
	if err != nil {
		return nil, err
	}

	payload, err := it.parse(op, resp.Body)
	if err != nil {
		return nil, err
	}

	it.readIDs(payload)

	it.logger().Info(fmt.Sprintf("%s: item data available", it.String()), nil)

	return payload, nil
}

func (it *item) MMSID() string {
	return it.mmsID
}

func (it *item) HoldingID() string {
	return it.holdingID
}

func (it *item) ItemID() string {
	return it.itemID
}

func (it *item) Barcode(ctx context.Context) (string, error) {
	payload, err := it.Data(ctx)
	if err != nil {
		return "", err
	}

	value, ok := payload.Find(itemBarcodePath)
	if !ok {
		return "", fmt.Errorf("%s: %w: barcode", it.String(), alma.ErrPathNotFound)
	}

	return value, nil
}

// SetBarcode changes the barcode locally; Update sends it.
func (it *item) SetBarcode(ctx context.Context, barcode string) alma.Item {
	it.guard(ctx, "set_barcode", func(p alma.Payload) {
		err := p.Set(itemBarcodePath, barcode)
		if err != nil {
			it.fail(alma.KindApplication, "set_barcode", 0, err.Error())

			return
		}

		it.logger().Info(fmt.Sprintf("%s: barcode changed to '%s'", it.String(), barcode), nil)
	})

	return it
}

func (it *item) Update(ctx context.Context) alma.Item {
	it.guard(ctx, "update", func(p alma.Payload) {
		resp, err := it.do(ctx, "unable to update item data", &almahttp.Request{
			Method: http.MethodPut,
			Path:   it.path(),
			Body:   p.Bytes(),
		})
		if err != nil {
			return
		}

		payload, err := it.parse("unable to update item data", resp.Body)
		if err != nil {
			return
		}

		it.SetData(payload)
		it.logger().Info(fmt.Sprintf("%s: item data updated", it.String()), nil)
	})

	return it
}

func (it *item) Delete(ctx context.Context) alma.Item {
	it.guard(ctx, "delete", func(alma.Payload) {
		_, err := it.do(ctx, "unable to delete the item", &almahttp.Request{
			Method: http.MethodDelete,
			Path:   it.path(),
		})
		if err != nil {
			return
		}

		it.logger().Info(fmt.Sprintf("%s deleted", it.String()), nil)
	})

	return it
}

// Save writes records/<zone>_<mms_id>/item_<holding_id>_<item_id>_<vv>.xml.
func (it *item) Save(ctx context.Context) alma.Item {
	if it.itemID == "" && it.failed == nil {
		_, _ = it.Data(ctx)
	}

	it.save(ctx, fmt.Sprintf("%s_%s/item_%s_%s.xml", it.zone, it.mmsID, it.holdingID, it.itemID))

	return it
}

// draftItem is an item payload waiting to be created.
type draftItem struct {
	record
	mmsID     string
	holdingID string
}

// NewItem wraps an item payload to create under a holding. The payload is copied.
func (c *Client) NewItem(mmsID, holdingID string, zone alma.Zone, env alma.Environment, data alma.Payload) alma.NewItem {
	d := &draftItem{record: newRecord(c, zone, env, alma.FormatXML, constants.AreaBibs), mmsID: mmsID, holdingID: holdingID}
	d.describe = func() string {
		return fmt.Sprintf("NewItem('%s', '%s', '%s', '%s')", d.mmsID, d.holdingID, d.zone, d.env)
	}

	if data == nil || mmsID == "" || holdingID == "" {
		d.failConstruction()

		return d
	}

	d.data = data.Clone()

	return d
}

// Create posts the payload under the holding. On failure the returned item
// carries the error of the draft.
func (d *draftItem) Create(ctx context.Context) alma.Item {
	var created alma.Item

	d.guard(ctx, "create", func(p alma.Payload) {
		resp, err := d.do(ctx, "unable to create the new item", &almahttp.Request{
			Method: http.MethodPost,
			Path:   holdingsPath(d.mmsID) + "/" + url.PathEscape(d.holdingID) + "/items",
			Body:   p.Bytes(),
		})
		if err != nil {
			return
		}

		payload, err := d.parse("unable to create the new item", resp.Body)
		if err != nil {
			return
		}

		created = d.client.newItem(d.mmsID, d.holdingID, "", d.zone, d.env, alma.WithData(payload))
		d.logger().Info(fmt.Sprintf("%s: item created", created.String()), nil)
	})

	if created != nil {
		return created
	}

	var opts []alma.EntityOption
	if d.data != nil {
		opts = append(opts, alma.WithData(d.data))
	}

	failed := d.client.newItem(d.mmsID, d.holdingID, "", d.zone, d.env, opts...)
	failed.failed = d.failedCopy()

	return failed
}
