// Package model holds the church records served by the API.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Church is a church record as stored and served by the records API.
// Timestamps are Unix milliseconds.
type Church struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	AvatarURL        string            `json:"avatarUrl"`
	ShortDescription string            `json:"shortDescription"`
	Phone            string            `json:"phone"`
	Email            string            `json:"email"`
	Address          string            `json:"address"`
	CountryGroup     string            `json:"countryGroup"`
	ServiceTimes     []string          `json:"serviceTimes"`
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	Region           string            `json:"region"`
	FacebookURL      string            `json:"facebookUrl,omitempty"`
	InstagramURL     string            `json:"instagramUrl,omitempty"`
	SocialLinks      map[string]string `json:"socialLinks,omitempty"`
	Photos           []string          `json:"photos"`
	Donations        *Donations        `json:"donations,omitempty"`
	CreatedAt        int64             `json:"createdAt"`
	UpdatedAt        int64             `json:"updatedAt"`

	// Extra carries document keys that have no field above. They are stored
	// and served unchanged.
	Extra map[string]json.RawMessage `json:"-"`
}

// churchFields has Church's layout without its JSON methods.
type churchFields Church

// knownChurchKeys are the JSON names of Church's own fields.
var knownChurchKeys = jsonKeys(reflect.TypeOf(churchFields{}))

// MarshalJSON encodes the fields followed by any extra keys that do not shadow a field.
func (c Church) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(churchFields(c))
	if err != nil || len(c.Extra) == 0 {
		return base, err
	}

	merged := make(map[string]json.RawMessage, len(knownChurchKeys)+len(c.Extra))
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range c.Extra {
		if _, known := knownChurchKeys[k]; !known {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes the fields strictly by type and keeps unknown keys in Extra.
func (c *Church) UnmarshalJSON(data []byte) error {
	var fields churchFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var extra map[string]json.RawMessage
	for k, v := range raw {
		if _, known := knownChurchKeys[k]; known {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[k] = v
	}
	*c = Church(fields)
	c.Extra = extra
	return nil
}

func jsonKeys(t reflect.Type) map[string]struct{} {
	keys := make(map[string]struct{}, t.NumField())
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys[name] = struct{}{}
		}
	}
	return keys
}

// Donations holds the donation channels advertised by a church.
type Donations struct {
	GCashNumber string      `json:"gcashNumber"`
	BankAccount BankAccount `json:"bankAccount"`
}

// BankAccount is a bank transfer destination.
type BankAccount struct {
	AccountNumber string `json:"accountNumber"`
	BankName      string `json:"bankName"`
}

// CreateChurchRequest is the body accepted when creating a church.
// Server-managed fields (id, timestamps) are assigned on create.
type CreateChurchRequest struct {
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	AvatarURL        string            `json:"avatarUrl"`
	ShortDescription string            `json:"shortDescription"`
	Phone            string            `json:"phone"`
	Email            string            `json:"email"`
	Address          string            `json:"address"`
	CountryGroup     string            `json:"countryGroup"`
	ServiceTimes     []string          `json:"serviceTimes"`
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	Region           string            `json:"region"`
	FacebookURL      string            `json:"facebookUrl,omitempty"`
	InstagramURL     string            `json:"instagramUrl,omitempty"`
	SocialLinks      map[string]string `json:"socialLinks,omitempty"`
	Photos           []string          `json:"photos"`
	Donations        *Donations        `json:"donations,omitempty"`
}

// NewChurch builds a record from a create request.
func (r CreateChurchRequest) NewChurch(id string, nowMillis int64) Church {
	return Church{
		ID:               id,
		Name:             r.Name,
		Description:      r.Description,
		AvatarURL:        r.AvatarURL,
		ShortDescription: r.ShortDescription,
		Phone:            r.Phone,
		Email:            r.Email,
		Address:          r.Address,
		CountryGroup:     r.CountryGroup,
		ServiceTimes:     nonNilStrings(r.ServiceTimes),
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		Region:           r.Region,
		FacebookURL:      r.FacebookURL,
		InstagramURL:     r.InstagramURL,
		SocialLinks:      r.SocialLinks,
		Photos:           nonNilStrings(r.Photos),
		Donations:        r.Donations,
		CreatedAt:        nowMillis,
		UpdatedAt:        nowMillis,
	}
}

// UpdateChurchRequest is a partial document merged into the stored record.
// Any key is accepted; keys naming server-managed fields are dropped.
type UpdateChurchRequest map[string]json.RawMessage

// protectedChurchKeys cannot be changed through an update.
var protectedChurchKeys = []string{"id", "createdAt", "updatedAt"}

// Patch returns the update without server-managed keys.
func (r UpdateChurchRequest) Patch() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(r))
	for k, v := range r {
		out[k] = v
	}
	for _, k := range protectedChurchKeys {
		delete(out, k)
	}
	return out
}

// ErrInvalidPatch reports an update whose values do not fit the church fields.
var ErrInvalidPatch = errors.New("invalid church update")

// Apply merges the patch into the stored document and decodes the result.
// A value whose type does not match its field fails with ErrInvalidPatch and
// leaves the stored document untouched.
func (r UpdateChurchRequest) Apply(stored []byte, nowMillis int64) (Church, error) {
	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(stored, &doc); err != nil {
		return Church{}, fmt.Errorf("decode stored church: %w", err)
	}
	for k, v := range r.Patch() {
		doc[k] = v
	}
	doc["updatedAt"] = json.RawMessage(strconv.FormatInt(nowMillis, 10))

	merged, err := json.Marshal(doc)
	if err != nil {
		return Church{}, fmt.Errorf("encode merged church: %w", err)
	}
	var out Church
	if err := json.Unmarshal(merged, &out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return Church{}, fmt.Errorf("%w: %s must be %s", ErrInvalidPatch, typeErr.Field, typeErr.Type)
		}
		return Church{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return out, nil
}

// ChurchList is the list response envelope.
type ChurchList struct {
	Churches []*Church `json:"churches"`
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
