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

const usersPath = "/users"

type user struct {
	record
	primaryID string
}

// User builds a user account handle.
func (c *Client) User(primaryID string, zone alma.Zone, env alma.Environment, opts ...alma.EntityOption) alma.User {
	return c.newUser(primaryID, zone, env, opts...)
}

func (c *Client) newUser(primaryID string, zone alma.Zone, env alma.Environment, opts ...alma.EntityOption) *user {
	options := alma.ApplyEntityOptions(opts...)

	u := &user{
		record:    newRecord(c, zone, env, alma.FormatJSON, constants.AreaUsers),
		primaryID: primaryID,
	}
	u.fetch = u.fetchData
	u.describe = func() string { return fmt.Sprintf("User('%s', '%s', '%s')", u.primaryID, u.zone, u.env) }

	if options.Data != nil {
		u.data = options.Data.Clone()

		if u.primaryID == "" {
			u.primaryID, _ = u.data.Find("primary_id")
		}
	}

	if u.primaryID == "" && u.data == nil {
		u.failConstruction()
	}

	return u
}

func (u *user) path() string {
	return usersPath + "/" + url.PathEscape(u.primaryID)
}

func (u *user) fetchData(ctx context.Context) (alma.Payload, error) {
	resp, err := u.do(ctx, "unable to fetch user data", &almahttp.Request{
		Method: http.MethodGet,
		Path:   u.path(),
	})
	if err != nil {
		return nil, err
	}

	payload, err := u.parse("unable to fetch user data", resp.Body)
	if err != nil {
		return nil, err
	}

	u.logger().Info(fmt.Sprintf("%s: user data available", u.String()), nil)

	return payload, nil
}

func (u *user) PrimaryID() string {
	return u.primaryID
}

// SetPassword sets the password and forces its change at next login.
// The change is local until Update.
func (u *user) SetPassword(ctx context.Context, password string) alma.User {
	u.guard(ctx, "set_password", func(p alma.Payload) {
		err := setPassword(p, password)
		if err != nil {
			u.fail(alma.KindApplication, "unable to set password", 0, err.Error())
		}
	})

	return u
}

// Update sends the payload. override lists the fields replaced even when
// managed externally, e.g. "user_group".
func (u *user) Update(ctx context.Context, override string) alma.User {
	u.guard(ctx, "update", func(p alma.Payload) {
		query := url.Values{}
		if override != "" {
			query.Set("override", override)
		}

		resp, err := u.do(ctx, "unable to update user", &almahttp.Request{
			Method: http.MethodPut,
			Path:   u.path(),
			Query:  query,
			Body:   p.Bytes(),
		})
		if err != nil {
			return
		}

		payload, err := u.parse("unable to update user", resp.Body)
		if err != nil {
			return
		}

		u.SetData(payload)
		u.logger().Info(fmt.Sprintf("%s: user updated", u.String()), nil)
	})

	return u
}

// Save writes records/<primary_id>/user_<zone>_<primary_id>_<vv>.json.
func (u *user) Save(ctx context.Context) alma.User {
	u.save(ctx, fmt.Sprintf("%s/user_%s_%s.json", u.primaryID, u.zone, u.primaryID))

	return u
}

func (u *user) Delete(ctx context.Context) alma.User {
	u.guard(ctx, "delete", func(alma.Payload) {
		_, err := u.do(ctx, "unable to delete user", &almahttp.Request{
			Method: http.MethodDelete,
			Path:   u.path(),
		})
		if err != nil {
			return
		}

		u.logger().Info(fmt.Sprintf("%s: user deleted", u.String()), nil)
	})

	return u
}

func setPassword(p alma.Payload, password string) error {
	err := p.Set("password", password)
	if err != nil {
		return fmt.Errorf("setting password: %w", err)
	}

	err = p.Set("force_password_change", "TRUE")
	if err != nil {
		return fmt.Errorf("forcing password change: %w", err)
	}

	return nil
}

// draftUser is a user payload waiting to be created.
type draftUser struct {
	record
}

// NewUser wraps a payload to create remotely. The payload is copied.
func (c *Client) NewUser(zone alma.Zone, env alma.Environment, data alma.Payload) alma.NewUser {
	d := &draftUser{record: newRecord(c, zone, env, alma.FormatJSON, constants.AreaUsers)}
	d.describe = func() string {
		primaryID := ""
		if d.data != nil {
			primaryID, _ = d.data.Find("primary_id")
		}

		return fmt.Sprintf("NewUser('%s', '%s', '%s')", primaryID, d.zone, d.env)
	}

	if data == nil {
		d.failConstruction()

		return d
	}

	d.data = data.Clone()

	return d
}

// Create posts the payload. On success the created user is returned with the
// payload sent back by the remote service. On failure the draft keeps its
// payload and its error, and the returned user carries the same error.
func (d *draftUser) Create(ctx context.Context) alma.User {
	var created alma.User

	d.guard(ctx, "create", func(p alma.Payload) {
		resp, err := d.do(ctx, "unable to create user", &almahttp.Request{
			Method: http.MethodPost,
			Path:   usersPath,
			Body:   p.Bytes(),
		})
		if err != nil {
			return
		}

		payload, err := d.parse("unable to create user", resp.Body)
		if err != nil {
			return
		}

		primaryID, _ := payload.Find("primary_id")
		created = d.client.newUser(primaryID, d.zone, d.env, alma.WithData(payload))
		d.logger().Info(fmt.Sprintf("%s: user created", created.String()), nil)
	})

	if created != nil {
		return created
	}

	var opts []alma.EntityOption
	if d.data != nil {
		opts = append(opts, alma.WithData(d.data))
	}

	failed := d.client.newUser("", d.zone, d.env, opts...)
	failed.failed = d.failedCopy()

	return failed
}
