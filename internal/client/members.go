package client

import (
	"fmt"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

// mapMembers turns raw identifiers into typed members according to the
// content type of the owning set:
//
//	BIB_MMS or IEP outside the network zone -> IzBib
//	BIB_MMS in the network zone             -> NzBib
//	USER                                    -> User
//
// Any other content type keeps the raw identifiers and logs a warning.
func (c *Client) mapMembers(owner string, ids []string, contentType string, zone alma.Zone, env alma.Environment) []alma.Member {
	members := make([]alma.Member, 0, len(ids))

	build := c.memberBuilder(contentType, zone, env)
	if build == nil {
		c.logger.Warn(fmt.Sprintf("%s: unmapped content type %q, members kept as identifiers", owner, contentType), map[string]interface{}{
			"content_type": contentType,
			"count":        len(ids),
		})
	}

	for _, id := range ids {
		member := alma.Member{ID: id}
		if build != nil {
			member.Entity = build(id)
		}

		members = append(members, member)
	}

	return members
}

func (c *Client) memberBuilder(contentType string, zone alma.Zone, env alma.Environment) func(id string) alma.Entity {
	switch {
	case (contentType == constants.ContentBibMMS || contentType == constants.ContentIEP) && !zone.IsNetwork():
		return func(id string) alma.Entity { return c.IzBib(id, zone, env) }
	case contentType == constants.ContentBibMMS && zone.IsNetwork():
		return func(id string) alma.Entity { return c.NzBib(id, env) }
	case contentType == constants.ContentUser:
		return func(id string) alma.Entity { return c.User(id, zone, env) }
	default:
		return nil
	}
}
