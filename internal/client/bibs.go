package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/beevik/etree"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	almahttp "github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/http"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

// bib holds what IzBib and NzBib share. self is the outer value returned by
// chained operations.
type bib struct {
	record
	mmsID string
	self  alma.Bib
}

type izBib struct {
	*bib
	holdings []alma.Holding
}

type nzBib struct {
	*bib
}

func (c *Client) newBib(kind, mmsID string, zone alma.Zone, env alma.Environment, opts []alma.EntityOption) *bib {
	options := alma.ApplyEntityOptions(opts...)

	b := &bib{
		record: newRecord(c, zone, env, alma.FormatXML, constants.AreaBibs),
		mmsID:  mmsID,
	}
	b.fetch = b.fetchData

	if zone.IsNetwork() {
		b.describe = func() string { return fmt.Sprintf("%s('%s', '%s')", kind, b.mmsID, b.env) }
	} else {
		b.describe = func() string { return fmt.Sprintf("%s('%s', '%s', '%s')", kind, b.mmsID, b.zone, b.env) }
	}

	switch {
	case options.Data != nil:
		b.data = options.Data.Clone()
	case mmsID == "":
		b.failConstruction()
	}

	return b
}

// IzBib builds a bibliographic record of an institution zone.
func (c *Client) IzBib(mmsID string, zone alma.Zone, env alma.Environment, opts ...alma.EntityOption) alma.IzBib {
	b := c.newBib("IzBib", mmsID, zone, env, opts)
	iz := &izBib{bib: b}
	b.self = iz

	return iz
}

// NzBib builds a bibliographic record of the network zone.
func (c *Client) NzBib(mmsID string, env alma.Environment, opts ...alma.EntityOption) alma.NzBib {
	b := c.newBib("NzBib", mmsID, alma.NetworkZone, env, opts)
	nz := &nzBib{bib: b}
	b.self = nz

	return nz
}

func (b *bib) path() string {
	return "/bibs/" + url.PathEscape(b.mmsID)
}

func (b *bib) fetchData(ctx context.Context) (alma.Payload, error) {
	resp, err := b.do(ctx, "unable to fetch bib data", &almahttp.Request{
		Method:     http.MethodGet,
		Path:       b.path(),
		Permission: alma.ReadOnly,
	})
	if err != nil {
		return nil, err
	}

	payload, err := b.parse("unable to fetch bib data", resp.Body)
	if err != nil {
		return nil, err
	}

	b.logger().Info(fmt.Sprintf("%s: bib data available", b.String()), nil)

	return payload, nil
}

func (b *bib) MMSID() string {
	return b.mmsID
}

// RecordMMSID reads controlfield 001. Useful when the record was fetched
// through another identifier.
func (b *bib) RecordMMSID(ctx context.Context) (string, error) {
	payload, err := b.Data(ctx)
	if err != nil {
		return "", err
	}

	value, ok := payload.Find(".//controlfield[@tag='001']")
	if !ok {
		return "", fmt.Errorf("%s: %w: controlfield 001", b.String(), alma.ErrPathNotFound)
	}

	return value, nil
}

func (b *bib) SortFields(ctx context.Context) alma.Bib {
	b.guard(ctx, "sort_fields", func(p alma.Payload) {
		doc, ok := b.xml("sort_fields", p)
		if !ok {
			return
		}

		if !sortRecordFields(doc) {
			b.logger().Error(fmt.Sprintf("%s: sorting fields failed, no record available in data", b.String()), nil)
		}
	})

	return b.self
}

func (b *bib) AddFields(ctx context.Context, fields ...*etree.Element) alma.Bib {
	b.guard(ctx, "add_fields", func(p alma.Payload) {
		doc, ok := b.xml("add_fields", p)
		if !ok {
			return
		}

		rec := doc.Element(".//record")
		if rec == nil {
			b.fail(alma.KindApplication, "add_fields", 0, "adding fields failed, no record available in data")

			return
		}

		for _, field := range fields {
			rec.AddChild(field.Copy())
		}

		b.logger().Info(fmt.Sprintf("%s: %d fields added to the record", b.String(), len(fields)), nil)

		sortRecordFields(doc)
	})

	return b.self
}

func (b *bib) Update(ctx context.Context) alma.Bib {
	b.guard(ctx, "update", func(p alma.Payload) {
		resp, err := b.do(ctx, "unable to update bib data", &almahttp.Request{
			Method: http.MethodPut,
			Path:   b.path(),
			Body:   p.Bytes(),
		})
		if err != nil {
			return
		}

		payload, err := b.parse("unable to update bib data", resp.Body)
		if err != nil {
			return
		}

		b.SetData(payload)
		b.logger().Info(fmt.Sprintf("%s: bib data updated in %s", b.String(), b.zone), nil)
	})

	return b.self
}

// Save writes records/<zone>_<mms_id>/bib<mms_id>_<vv>.xml.
func (b *bib) Save(ctx context.Context) alma.Bib {
	b.save(ctx, fmt.Sprintf("%s_%s/bib%s.xml", b.zone, b.mmsID, b.mmsID))

	return b.self
}

// NZMMSID returns the linked network zone identifier.
func (i *izBib) NZMMSID(ctx context.Context) (string, error) {
	payload, err := i.Data(ctx)
	if err != nil {
		return "", err
	}

	value, ok := payload.Find(".//linked_record_id[@type='NZ']")
	if !ok {
		i.logger().Error(fmt.Sprintf("%s: no NZ MMS ID available", i.String()), nil)

		return "", fmt.Errorf("%s: %w: linked_record_id", i.String(), alma.ErrPathNotFound)
	}

	return value, nil
}

// LocalFields returns the datafields carrying a "local" subfield 9.
func (i *izBib) LocalFields(ctx context.Context) ([]*etree.Element, error) {
	payload, err := i.Data(ctx)
	if err != nil {
		return nil, err
	}

	doc, ok := payload.(*alma.XMLPayload)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", i.String(), alma.ErrUnknownFormat, payload.Format())
	}

	var fields []*etree.Element

	for _, subfield := range doc.Elements(".//record/datafield/subfield[@code='9']") {
		if strings.EqualFold(subfield.Text(), "local") && subfield.Parent() != nil {
			fields = append(fields, subfield.Parent())
		}
	}

	return fields, nil
}

// Delete unlinks the record from the network zone, then deletes it.
func (i *izBib) Delete(ctx context.Context) alma.Bib {
	i.guard(ctx, "delete", func(alma.Payload) {
		_, err := i.do(ctx, "unable to unlink the record from NZ", &almahttp.Request{
			Method: http.MethodPost,
			Path:   i.path(),
			Query:  url.Values{"op": []string{"unlink_from_nz"}},
			Body:   []byte("<bib/>"),
		})
		if err != nil {
			return
		}

		i.logger().Info(fmt.Sprintf("%s unlinked from NZ", i.String()), nil)

		_, err = i.do(ctx, "unable to delete the record", &almahttp.Request{
			Method: http.MethodDelete,
			Path:   i.path(),
		})
		if err != nil {
			return
		}

		i.logger().Info(fmt.Sprintf("%s deleted", i.String()), nil)
	})

	return i.self
}

// sortRecordFields orders the fields of the MARC record by tag. Fields without
// tag (the leader) come first.
func sortRecordFields(doc *alma.XMLPayload) bool {
	rec := doc.Element(".//record")
	if rec == nil {
		return false
	}

	fields := rec.ChildElements()

	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].SelectAttrValue("tag", "000") < fields[j].SelectAttrValue("tag", "000")
	})

	for _, field := range fields {
		rec.RemoveChild(field)
	}

	for _, field := range fields {
		rec.AddChild(field)
	}

	return true
}
