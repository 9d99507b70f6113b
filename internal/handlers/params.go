package handlers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dowstats/ladder-api/internal/logic"
)

// queryParser reads typed query parameters and keeps the first error.
// Paging values are lenient: garbage falls back to the default.
type queryParser struct {
	values url.Values
	err    error
}

func newQueryParser(values url.Values) *queryParser {
	return &queryParser{values: values}
}

func (p *queryParser) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: "+format, append([]any{logic.ErrValidation}, args...)...)
	}
}

func (p *queryParser) str(key string) string {
	return strings.TrimSpace(p.values.Get(key))
}

// positiveInt returns nil when the parameter is absent.
func (p *queryParser) positiveInt(key string) *int {
	raw := p.str(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		p.fail("parameter '%s' must be a positive integer", key)
		return nil
	}
	return &v
}

func (p *queryParser) nonNegativeInt(key string) *int {
	raw := p.str(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		p.fail("parameter '%s' must be a non-negative integer", key)
		return nil
	}
	return &v
}

func (p *queryParser) lenientInt(key string) int {
	v, err := strconv.Atoi(p.str(key))
	if err != nil {
		return 0
	}
	return v
}

// intList parses a comma list and drops entries that are not positive integers.
func (p *queryParser) intList(key string) []int {
	var out []int
	for _, part := range strings.Split(p.str(key), ",") {
		if v, err := strconv.Atoi(strings.TrimSpace(part)); err == nil && v > 0 {
			out = append(out, v)
		}
	}
	return out
}

// strList merges repeated and comma separated values of every key.
func (p *queryParser) strList(keys ...string) []string {
	var out []string
	for _, key := range keys {
		for _, raw := range p.values[key] {
			for _, part := range strings.Split(raw, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		}
	}
	return out
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func (p *queryParser) time(key string) *time.Time {
	raw := p.str(key)
	if raw == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	p.fail("parameter '%s' must be a date or RFC3339 timestamp", key)
	return nil
}

// flag accepts 1/true/yes/on and 0/false/no/off. Anything else means unset.
func (p *queryParser) flag(key string) *bool {
	var v bool
	switch strings.ToLower(p.str(key)) {
	case "1", "true", "yes", "on":
		v = true
	case "0", "false", "no", "off":
		v = false
	default:
		return nil
	}
	return &v
}

// checkQuery applies the validate tags of a read query.
func (h *Handler) checkQuery(query any) error {
	if err := h.validator.Struct(query); err != nil {
		return fmt.Errorf("%w: %v", logic.ErrValidation, err)
	}
	return nil
}
