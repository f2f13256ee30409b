// Package notify describes the SNS topic a workflow reports its outcome to.
package notify

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// ErrInvalidAddress is returned for e-mail addresses that cannot be parsed.
var ErrInvalidAddress = errors.New("invalid notification address")

// Topic is an SNS topic with e-mail subscriptions. It satisfies
// chain.NotificationTarget.
type Topic struct {
	name      string
	region    string
	account   string
	addresses []string
}

// NewTopic validates the subscriber addresses and returns a Topic. At least
// one address is required.
func NewTopic(name, region, account string, addresses ...string) (*Topic, error) {
	if name == "" {
		return nil, errors.New("topic name is required")
	}
	if len(addresses) == 0 {
		return nil, fmt.Errorf("topic %q: %w: no addresses", name, ErrInvalidAddress)
	}
	clean := make([]string, 0, len(addresses))
	for _, a := range addresses {
		parsed, err := mail.ParseAddress(strings.TrimSpace(a))
		if err != nil {
			return nil, fmt.Errorf("topic %q: %w: %q: %v", name, ErrInvalidAddress, a, err)
		}
		clean = append(clean, parsed.Address)
	}
	return &Topic{name: name, region: region, account: account, addresses: clean}, nil
}

// Name returns the topic name.
func (t *Topic) Name() string { return t.name }

// Subscriptions returns the subscribed e-mail addresses.
func (t *Topic) Subscriptions() []string {
	return append([]string(nil), t.addresses...)
}

// TopicReference returns the topic ARN.
func (t *Topic) TopicReference() string {
	return fmt.Sprintf("arn:aws:sns:%s:%s:%s", t.region, t.account, t.name)
}

// Addresses normalizes a notification setting that may be absent, a single
// address or a list of addresses.
func Addresses(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if val == "" {
			return nil, nil
		}
		return []string{val}, nil
	case []string:
		return append([]string(nil), val...), nil
	case []any:
		out := make([]string, 0, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("notification entry %d: expected string, got %T", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("notification must be a string or a list of strings, got %T", v)
	}
}
