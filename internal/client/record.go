package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	almahttp "github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/http"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

// fetchFunc loads the payload of an entity. It sets the error state itself
// on failure.
type fetchFunc func(ctx context.Context) (alma.Payload, error)

// record is the state shared by every entity: the cached payload, the error
// state and the natural keys used to address the remote service.
type record struct {
	client   *Client
	zone     alma.Zone
	env      alma.Environment
	format   alma.Format
	area     string
	data     alma.Payload
	failed   *alma.EntityError
	describe func() string
	fetch    fetchFunc
}

func newRecord(c *Client, zone alma.Zone, env alma.Environment, format alma.Format, area string) record {
	return record{
		client: c,
		zone:   zone,
		env:    env,
		format: format,
		area:   area,
	}
}

func (r *record) String() string {
	if r.describe == nil {
		return fmt.Sprintf("Record('%s', '%s')", r.zone, r.env)
	}

	return r.describe()
}

func (r *record) Zone() alma.Zone {
	return r.zone
}

func (r *record) Environment() alma.Environment {
	return r.env
}

func (r *record) Format() alma.Format {
	return r.format
}

// Data returns the cached payload. Without cache and outside error state the
// payload is fetched once; a failed fetch leaves the entity in error state.
func (r *record) Data(ctx context.Context) (alma.Payload, error) {
	if r.data != nil {
		return r.data, nil
	}

	if r.failed != nil {
		return nil, r.failed
	}

	if r.fetch == nil {
		return nil, fmt.Errorf("%s: %w", r.String(), alma.ErrNoPayload)
	}

	payload, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}

	r.data = payload

	return payload, nil
}

func (r *record) SetData(p alma.Payload) {
	r.data = p
}

func (r *record) HasError() bool {
	return r.failed != nil
}

func (r *record) ErrorMessage() string {
	if r.failed == nil {
		return ""
	}

	return r.failed.Message
}

func (r *record) Err() error {
	if r.failed == nil {
		return nil
	}

	return r.failed
}

func (r *record) ResetError() {
	r.failed = nil
}

func (r *record) logger() alma.Logger {
	return r.client.logger
}

// fail puts the entity in error state and logs the failure.
func (r *record) fail(kind alma.ErrorKind, op string, status int, message string) *alma.EntityError {
	r.failed = &alma.EntityError{
		Kind:       kind,
		Entity:     r.String(),
		Op:         op,
		StatusCode: status,
		Message:    message,
	}

	r.logger().Error(r.failed.Error(), map[string]interface{}{
		"entity": r.failed.Entity,
		"op":     op,
		"status": status,
	})

	return r.failed
}

// failConstruction marks an entity built without any identifying key.
func (r *record) failConstruction() {
	r.fail(alma.KindConstruction, "construction", 0, alma.ErrInsufficientParameters.Error())
}

// guard runs fn on the payload unless the entity is in error state. The
// payload is fetched first when missing. A skipped operation is logged.
func (r *record) guard(ctx context.Context, op string, fn func(p alma.Payload)) bool {
	if r.failed == nil && r.data == nil {
		_, _ = r.Data(ctx)
	}

	if r.failed != nil || r.data == nil {
		r.logger().Error(fmt.Sprintf("%s: due to error to the record, process \"%s\" skipped", r.String(), op), map[string]interface{}{
			"entity": r.String(),
			"op":     op,
		})

		return false
	}

	fn(r.data)

	return true
}

// do sends req with the keys of the entity. Any failure, including a non-2xx
// response, sets the error state with the extracted remote message.
func (r *record) do(ctx context.Context, op string, req *almahttp.Request) (*almahttp.Response, error) {
	if req.Zone == "" {
		req.Zone = r.zone
	}

	if req.Env == "" {
		req.Env = r.env
	}

	if req.Area == "" {
		req.Area = r.area
	}

	if req.Format == "" {
		req.Format = r.format
	}

	if req.Permission == "" {
		req.Permission = alma.ReadWrite
	}

	resp, err := r.client.httpClient.Do(ctx, req)
	if errors.Is(err, alma.ErrKeyNotFound) {
		return nil, r.fail(alma.KindConfiguration, op, 0, err.Error())
	}

	if err != nil {
		return nil, r.fail(alma.KindApplication, op, 0, err.Error())
	}

	if !resp.IsSuccess() {
		return nil, r.fail(alma.KindApplication, op, resp.StatusCode, resp.ErrorMessage())
	}

	return resp, nil
}

// parse decodes a response body in the format of the entity.
func (r *record) parse(op string, body []byte) (alma.Payload, error) {
	payload, err := alma.ParsePayload(r.format, body)
	if err != nil {
		return nil, r.fail(alma.KindApplication, op, 0, err.Error())
	}

	return payload, nil
}

// xml returns the payload as XML or sets the error state.
func (r *record) xml(op string, p alma.Payload) (*alma.XMLPayload, bool) {
	doc, ok := p.(*alma.XMLPayload)
	if !ok {
		r.fail(alma.KindApplication, op, 0, fmt.Sprintf("%s payload is not xml", p.Format()))

		return nil, false
	}

	return doc, true
}

// save writes a snapshot of the payload below the snapshot root. The error
// state does not block it: only a missing payload does.
func (r *record) save(ctx context.Context, basePath string) {
	if r.failed == nil && r.data == nil {
		_, _ = r.Data(ctx)
	}

	if r.data == nil {
		r.logger().Error(fmt.Sprintf("%s: no data available, process \"save\" skipped", r.String()), map[string]interface{}{
			"entity": r.String(),
			"op":     "save",
		})

		return
	}

	path, err := r.client.snapshots.Save(ctx, r.data, basePath)
	if err != nil {
		r.logger().Error(fmt.Sprintf("%s: unable to save record", r.String()), map[string]interface{}{
			"path":  basePath,
			"error": err.Error(),
		})

		return
	}

	r.logger().Info(fmt.Sprintf("%s: record saved: %s", r.String(), path), nil)
}

// failedCopy returns a copy of the error state, or a generic one when the
// entity has none.
func (r *record) failedCopy() *alma.EntityError {
	if r.failed == nil {
		return &alma.EntityError{Kind: alma.KindApplication, Entity: r.String(), Op: "create", Message: constants.UnknownErrorMessage}
	}

	errCopy := *r.failed

	return &errCopy
}
