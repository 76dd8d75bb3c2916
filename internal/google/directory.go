package google

import (
	"context"
	"strings"

	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/people/v1"
)

const personReadMask = "names,emailAddresses"

// CurrentUserName returns the display name of the signed-in account, or an
// empty string when the profile cannot be read.
func (c *CalendarClient) CurrentUserName(ctx context.Context) string {
	var info *oauth2api.Userinfo
	err := c.withAuthRetry(ctx, "read user profile", func() (err error) {
		info, err = c.oauth.Userinfo.Get().Context(ctx).Do()
		return err
	})
	if err != nil {
		c.logger.Warn("Could not read user profile", "error", err)
		return ""
	}
	if info.Name != "" {
		return info.Name
	}
	return strings.TrimSpace(info.GivenName + " " + info.FamilyName)
}

// PersonNameByEmail looks email up in the user's contacts, then in the domain
// directory. It returns an empty string when neither knows the address.
func (c *CalendarClient) PersonNameByEmail(ctx context.Context, email string) string {
	var contacts *people.SearchResponse
	err := c.withAuthRetry(ctx, "search contacts", func() (err error) {
		contacts, err = c.people.People.SearchContacts().
			Query(email).
			ReadMask(personReadMask).
			Context(ctx).
			Do()
		return err
	})
	if err == nil {
		for _, r := range contacts.Results {
			if name := displayName(r.Person); name != "" {
				return name
			}
		}
	} else {
		c.logger.Debug("Contact search failed", "email", email, "error", err)
	}

	var dir *people.SearchDirectoryPeopleResponse
	err = c.withAuthRetry(ctx, "search directory", func() (err error) {
		dir, err = c.people.People.SearchDirectoryPeople().
			Query(email).
			ReadMask(personReadMask).
			Sources("DIRECTORY_SOURCE_TYPE_DOMAIN_PROFILE", "DIRECTORY_SOURCE_TYPE_DOMAIN_CONTACT").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		c.logger.Debug("Directory search failed", "email", email, "error", err)
		return ""
	}
	for _, p := range dir.People {
		if name := displayName(p); name != "" {
			return name
		}
	}
	return ""
}

func displayName(p *people.Person) string {
	if p == nil || len(p.Names) == 0 {
		return ""
	}
	if p.Names[0].DisplayName != "" {
		return p.Names[0].DisplayName
	}
	return p.Names[0].GivenName
}
