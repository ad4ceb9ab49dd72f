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

// FetchUsers searches users with an Alma query such as "email~test@example.com".
// Zone "all" runs the query in every institution zone of the key store. The
// returned users are not fetched yet. On failure the users found before the
// failing call are returned with the error.
func (c *Client) FetchUsers(ctx context.Context, query string, zone alma.Zone, env alma.Environment) ([]alma.User, error) {
	zones := []alma.Zone{zone}
	if zone == constants.AllZones {
		zones = c.keys.IZCodes()
	}

	var users []alma.User

	for _, iz := range zones {
		label := fmt.Sprintf("fetch_users('%s', '%s', '%s')", query, iz, env)

		ids, err := newPager(c.logger, label, c.userSearchPage(query, iz, env)).fetchAll(ctx, unknownTotal)
		for _, primaryID := range ids {
			users = append(users, c.User(primaryID, iz, env))
		}

		if err != nil {
			c.logger.Error(fmt.Sprintf("%s - status: unable to fetch data / %s", label, err.Error()), map[string]interface{}{
				"zone":  string(iz),
				"query": query,
			})

			return users, err
		}
	}

	return users, nil
}

func (c *Client) userSearchPage(query string, zone alma.Zone, env alma.Environment) pageFunc {
	return func(ctx context.Context, limit, offset int) (page, error) {
		resp, err := c.httpClient.Do(ctx, &almahttp.Request{
			Method: http.MethodGet,
			Path:   usersPath,
			Query: url.Values{
				"q":      []string{query},
				"limit":  []string{strconv.Itoa(limit)},
				"offset": []string{strconv.Itoa(offset)},
			},
			Format:     alma.FormatJSON,
			Zone:       zone,
			Env:        env,
			Area:       constants.AreaUsers,
			Permission: alma.ReadWrite,
		})
		if err != nil {
			return page{}, err
		}

		if !resp.IsSuccess() {
			return page{}, &alma.APIError{ErrorCode: strconv.Itoa(resp.StatusCode), ErrorMessage: resp.ErrorMessage()}
		}

		listing, err := alma.ParseJSON(resp.Body)
		if err != nil {
			return page{}, fmt.Errorf("decoding user search: %w", err)
		}

		return jsonPage(listing, "user", "primary_id"), nil
	}
}
