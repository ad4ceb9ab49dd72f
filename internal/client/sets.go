package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	almahttp "github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/http"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

const setsPath = "/conf/sets"

// recSet is the shared part of every set variant. The variant is fixed at
// construction and never changes, even when the fetched payload says
// otherwise. self is the outer value returned by chained operations.
type recSet struct {
	record
	id          string
	name        string
	kind        alma.SetKind
	memberCount int
	hasCount    bool
	members     []alma.Member
	self        alma.RecSet
}

type genericSet struct {
	*recSet
}

type logicalSet struct {
	*recSet
}

type itemizedSet struct {
	*recSet
}

// RecSet builds a set handle. With alma.WithData the variant follows the
// payload: an ITEMIZED type gives an alma.ItemizedSet, any other type an
// alma.LogicalSet. Without payload the handle stays generic.
func (c *Client) RecSet(zone alma.Zone, env alma.Environment, opts ...alma.EntityOption) alma.RecSet {
	options := alma.ApplyEntityOptions(opts...)

	if options.Data != nil {
		return c.resolveSet(zone, env, options.Data.Clone(), options.SetID, options.SetName)
	}

	s := c.newRecSet(alma.SetKindGeneric, zone, env, options.SetID, options.SetName)
	if s.id == "" && s.name == "" {
		s.failConstruction()
	}

	return s.self
}

// resolveSet picks the variant from the type discriminator of data. data is
// owned by the returned set.
func (c *Client) resolveSet(zone alma.Zone, env alma.Environment, data alma.Payload, id, name string) alma.RecSet {
	kind := alma.SetKindLogical
	if setType, _ := data.Find("set/type"); setType == constants.SetTypeItemized {
		kind = alma.SetKindItemized
	}

	s := c.newRecSet(kind, zone, env, id, name)
	s.populate(data)

	return s.self
}

func (c *Client) newRecSet(kind alma.SetKind, zone alma.Zone, env alma.Environment, id, name string) *recSet {
	s := &recSet{
		record: newRecord(c, zone, env, alma.FormatXML, constants.AreaConf),
		id:     id,
		name:   name,
		kind:   kind,
	}
	s.fetch = s.fetchData
	s.describe = func() string {
		return fmt.Sprintf("%s('%s', '%s', '%s', '%s')", s.kind, s.id, s.name, s.zone, s.env)
	}

	switch kind {
	case alma.SetKindLogical:
		s.self = &logicalSet{recSet: s}
	case alma.SetKindItemized:
		s.self = &itemizedSet{recSet: s}
	default:
		s.self = &genericSet{recSet: s}
	}

	return s
}

// populate caches data and the keys it carries.
func (s *recSet) populate(data alma.Payload) {
	s.data = data

	if id, ok := data.Find("set/id"); ok && s.id == "" {
		s.id = id
	}

	if name, ok := data.Find("set/name"); ok && s.name == "" {
		s.name = name
	}

	s.hasCount = false

	if count, ok := data.Find("set/number_of_members"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(count)); err == nil {
			s.memberCount = n
			s.hasCount = true
		}
	}
}

func (s *recSet) fetchData(ctx context.Context) (alma.Payload, error) {
	if s.id == "" {
		err := s.resolveID(ctx)
		if err != nil {
			return nil, err
		}
	}

	resp, err := s.do(ctx, "unable to fetch set data", &almahttp.Request{
		Method:     http.MethodGet,
		Path:       setsPath + "/" + url.PathEscape(s.id),
		Permission: alma.ReadOnly,
	})
	if err != nil {
		return nil, err
	}

	payload, err := s.parse("unable to fetch set data", resp.Body)
	if err != nil {
		return nil, err
	}

	s.populate(payload)
	s.logger().Info(fmt.Sprintf("%s: set data available", s.String()), nil)

	return payload, nil
}

// resolveID looks the name up and keeps the id of the set with exactly this name.
func (s *recSet) resolveID(ctx context.Context) error {
	resp, err := s.do(ctx, "unable to search set by name", &almahttp.Request{
		Method: http.MethodGet,
		Path:   setsPath,
		Query: url.Values{
			"q":     []string{"name~" + s.name},
			"limit": []string{strconv.Itoa(constants.MaxSearchResults)},
		},
		Permission: alma.ReadOnly,
	})
	if err != nil {
		return err
	}

	listing, err := alma.ParseXML(resp.Body)
	if err != nil {
		return s.fail(alma.KindApplication, "unable to search set by name", 0, err.Error())
	}

	for _, el := range listing.Elements("sets/set") {
		if el.FindElement("name") != nil && el.FindElement("name").Text() == s.name && el.FindElement("id") != nil {
			s.id = el.FindElement("id").Text()
			s.logger().Info(fmt.Sprintf("%s: set id found", s.String()), nil)

			return nil
		}
	}

	return s.fail(alma.KindApplication, "unable to search set by name", 0, fmt.Sprintf("%s: %s", alma.ErrSetNotFound, s.name))
}

func (s *recSet) ID() string {
	return s.id
}

func (s *recSet) Name() string {
	return s.name
}

func (s *recSet) Kind() alma.SetKind {
	return s.kind
}

func (s *recSet) State() alma.SetState {
	switch {
	case s.data != nil:
		return alma.SetPopulated
	case s.id != "":
		return alma.SetIdentified
	case s.name != "":
		return alma.SetNamed
	default:
		return alma.SetUnresolved
	}
}

// SetType returns the remote type, ITEMIZED or LOGICAL.
func (s *recSet) SetType(ctx context.Context) (string, error) {
	return s.field(ctx, "set/type")
}

// ContentType returns the content type of the members, e.g. BIB_MMS.
func (s *recSet) ContentType(ctx context.Context) (string, error) {
	return s.field(ctx, "set/content")
}

func (s *recSet) field(ctx context.Context, path string) (string, error) {
	payload, err := s.Data(ctx)
	if err != nil {
		return "", err
	}

	value, ok := payload.Find(path)
	if !ok {
		return "", fmt.Errorf("%s: %w: %s", s.String(), alma.ErrPathNotFound, path)
	}

	return value, nil
}

// MemberCount returns number_of_members. When the cached payload does not
// carry it, as right after a creation, the payload is fetched again.
func (s *recSet) MemberCount(ctx context.Context) (int, error) {
	_, err := s.Data(ctx)
	if err != nil {
		return 0, err
	}

	if !s.hasCount && s.id != "" {
		s.data = nil

		_, err = s.Data(ctx)
		if err != nil {
			return 0, err
		}
	}

	if !s.hasCount {
		return 0, fmt.Errorf("%s: %w", s.String(), alma.ErrMemberCountUnavailable)
	}

	return s.memberCount, nil
}

// Members returns the typed members, fetched once and cached until a
// mutation or InvalidateMembers.
func (s *recSet) Members(ctx context.Context) ([]alma.Member, error) {
	if s.members != nil {
		return s.members, nil
	}

	total, err := s.MemberCount(ctx)
	if err != nil {
		return nil, err
	}

	contentType, err := s.ContentType(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := newPager(s.logger(), s.String(), s.fetchMembersPage).fetchAll(ctx, total)
	if err != nil {
		return nil, err
	}

	s.members = s.client.mapMembers(s.String(), ids, contentType, s.zone, s.env)

	return s.members, nil
}

// fetchMembersPage ignores the listing total: the set metadata is authoritative.
func (s *recSet) fetchMembersPage(ctx context.Context, limit, offset int) (page, error) {
	resp, err := s.do(ctx, "unable to fetch set members", &almahttp.Request{
		Method:     http.MethodGet,
		Path:       setsPath + "/" + url.PathEscape(s.id) + "/members",
		Query:      url.Values{"limit": []string{strconv.Itoa(limit)}, "offset": []string{strconv.Itoa(offset)}},
		Permission: alma.ReadOnly,
	})
	if err != nil {
		return page{}, err
	}

	listing, err := alma.ParseXML(resp.Body)
	if err != nil {
		return page{}, s.fail(alma.KindApplication, "unable to fetch set members", 0, err.Error())
	}

	current := page{total: unknownTotal}
	for _, id := range listing.Elements("members/member/id") {
		current.ids = append(current.ids, id.Text())
	}

	return current, nil
}

func (s *recSet) InvalidateMembers() {
	s.members = nil
}

func (s *recSet) Delete(ctx context.Context) alma.RecSet {
	s.guard(ctx, "delete", func(alma.Payload) {
		_, err := s.do(ctx, "unable to delete set", &almahttp.Request{
			Method: http.MethodDelete,
			Path:   setsPath + "/" + url.PathEscape(s.id),
		})
		if err != nil {
			return
		}

		s.logger().Info(fmt.Sprintf("%s: set deleted", s.String()), nil)
	})

	return s.self
}

// Save writes records/<zone>_sets/set_<id>_<vv>.xml.
func (s *recSet) Save(ctx context.Context) alma.RecSet {
	s.save(ctx, fmt.Sprintf("%s_sets/set_%s.xml", s.zone, s.id))

	return s.self
}

// Query returns the query defining the logical set.
func (l *logicalSet) Query(ctx context.Context) (string, error) {
	return l.field(ctx, "set/query")
}

// AddMembers adds records by identifier.
func (i *itemizedSet) AddMembers(ctx context.Context, ids []string, failOnInvalidID bool) alma.ItemizedSet {
	i.changeMembers(ctx, "add_members", ids, failOnInvalidID)

	return i
}

// RemoveMembers removes records by identifier.
func (i *itemizedSet) RemoveMembers(ctx context.Context, ids []string, failOnInvalidID bool) alma.ItemizedSet {
	i.changeMembers(ctx, "delete_members", ids, failOnInvalidID)

	return i
}

// changeMembers posts a copy of the set carrying only the given members.
func (i *itemizedSet) changeMembers(ctx context.Context, op string, ids []string, failOnInvalidID bool) {
	i.guard(ctx, op, func(p alma.Payload) {
		doc, ok := i.xml(op, p)
		if !ok {
			return
		}

		body := doc.Clone().(*alma.XMLPayload)
		root := body.Element("set")

		if root == nil {
			i.fail(alma.KindApplication, op, 0, "no set element in data")

			return
		}

		for _, existing := range root.SelectElements("members") {
			root.RemoveChild(existing)
		}

		members := root.CreateElement("members")
		for _, id := range ids {
			members.CreateElement("member").CreateElement("id").SetText(id)
		}

		resp, err := i.do(ctx, fmt.Sprintf("unable to %s", strings.ReplaceAll(op, "_", " ")), &almahttp.Request{
			Method: http.MethodPost,
			Path:   setsPath + "/" + url.PathEscape(i.id),
			Query: url.Values{
				"op":                 []string{op},
				"fail_on_invalid_id": []string{strconv.FormatBool(failOnInvalidID)},
			},
			Body: body.Bytes(),
		})
		if err != nil {
			return
		}

		i.InvalidateMembers()

		payload, err := i.parse(op, resp.Body)
		if err != nil {
			return
		}

		i.populate(payload)
		i.logger().Info(fmt.Sprintf("%s: %d members processed (%s)", i.String(), len(ids), op), nil)
	})
}

// draftSet is a set payload waiting to be created. For an itemized set built
// from a logical set the payload is derived on first use.
type draftSet struct {
	record
	fromLogical alma.RecSet
	spec        alma.ItemizedSetSpec
}

func (c *Client) newDraftSet(zone alma.Zone, env alma.Environment) *draftSet {
	d := &draftSet{record: newRecord(c, zone, env, alma.FormatXML, constants.AreaConf)}
	d.describe = func() string {
		name := ""
		if d.data != nil {
			name, _ = d.data.Find("set/name")
		}

		return fmt.Sprintf("NewSet('%s', '%s', '%s')", name, d.zone, d.env)
	}

	return d
}

// NewLogicalSet prepares a logical set. The content type is the first word of
// the query, as in "BIB_MMS where ...".
func (c *Client) NewLogicalSet(zone alma.Zone, env alma.Environment, spec alma.LogicalSetSpec) alma.NewSet {
	d := c.newDraftSet(zone, env)

	if spec.Name == "" || spec.Query == "" {
		d.failConstruction()

		return d
	}

	content := spec.Query
	if word, _, found := strings.Cut(spec.Query, " "); found {
		content = word
	}

	d.data = setDocument(spec.Name, spec.Description, constants.SetTypeLogical, content, spec.Owner, spec.Private, spec.Query)

	return d
}

// NewItemizedSet prepares an itemized set, empty or filled from a logical set.
func (c *Client) NewItemizedSet(zone alma.Zone, env alma.Environment, spec alma.ItemizedSetSpec) alma.NewSet {
	d := c.newDraftSet(zone, env)

	switch {
	case spec.FromLogicalSet != nil:
		d.fromLogical = spec.FromLogicalSet
		d.spec = spec
		d.fetch = d.deriveFromLogical
	case spec.Name != "" && spec.Content != "":
		d.data = setDocument(spec.Name, spec.Description, constants.SetTypeItemized, spec.Content, spec.Owner, spec.Private, "")
	default:
		d.failConstruction()
	}

	return d
}

// NewSetFromData prepares a set from a full payload, e.g. a snapshot.
func (c *Client) NewSetFromData(zone alma.Zone, env alma.Environment, data alma.Payload) alma.NewSet {
	d := c.newDraftSet(zone, env)

	if data == nil {
		d.failConstruction()

		return d
	}

	d.data = data.Clone()

	return d
}

// deriveFromLogical builds the itemized payload from the logical set: name
// defaults to "<logical name>_itemized" and the content type is copied.
func (d *draftSet) deriveFromLogical(ctx context.Context) (alma.Payload, error) {
	_, err := d.fromLogical.Data(ctx)
	if err != nil {
		return nil, d.fail(alma.KindApplication, "unable to read logical set", 0, err.Error())
	}

	content, err := d.fromLogical.ContentType(ctx)
	if err != nil {
		return nil, d.fail(alma.KindApplication, "unable to read logical set", 0, err.Error())
	}

	name := d.spec.Name
	if name == "" {
		name = d.fromLogical.Name() + "_itemized"
	}

	return setDocument(name, d.spec.Description, constants.SetTypeItemized, content, d.spec.Owner, d.spec.Private, ""), nil
}

// Create posts the payload and resolves the returned set. On failure the
// draft keeps its payload and error and a generic set carrying the same error
// is returned.
func (d *draftSet) Create(ctx context.Context) alma.RecSet {
	var created alma.RecSet

	d.guard(ctx, "create", func(p alma.Payload) {
		query := url.Values{}
		if d.fromLogical != nil {
			query.Set("from_logical_set", d.fromLogical.ID())
		}

		resp, err := d.do(ctx, "unable to create set", &almahttp.Request{
			Method: http.MethodPost,
			Path:   setsPath,
			Query:  query,
			Body:   p.Bytes(),
		})
		if err != nil {
			return
		}

		payload, err := d.parse("unable to create set", resp.Body)
		if err != nil {
			return
		}

		created = d.client.resolveSet(d.zone, d.env, payload, "", "")
		d.logger().Info(fmt.Sprintf("%s: set created", created.String()), nil)
	})

	if created != nil {
		return created
	}

	name := ""
	if d.data != nil {
		name, _ = d.data.Find("set/name")
	}

	failed := d.client.newRecSet(alma.SetKindGeneric, d.zone, d.env, "", name)
	failed.failed = d.failedCopy()

	return failed.self
}

func setDocument(name, description, setType, content, owner string, private bool, query string) *alma.XMLPayload {
	doc := etree.NewDocument()
	root := doc.CreateElement("set")

	root.CreateElement("name").SetText(name)
	root.CreateElement("description").SetText(description)
	root.CreateElement("type").SetText(setType)
	root.CreateElement("content").SetText(content)
	root.CreateElement("private").SetText(strconv.FormatBool(private))

	if query != "" {
		root.CreateElement("query").SetText(query)
	}

	if owner != "" {
		root.CreateElement("owner").SetText(owner)
	}

	return alma.NewXMLPayload(doc)
}
