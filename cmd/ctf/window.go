package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ingestdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/domain"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// timeParser understands unix seconds, RFC 3339 and English phrases such as
// "last monday" or "3 days ago".
type timeParser struct {
	w *when.Parser
}

func newTimeParser() *timeParser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &timeParser{w: w}
}

// Parse returns the instant described by input as unix seconds. An empty input is 0.
func (p *timeParser) Parse(input string, now time.Time) (int64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseInt(input, 10, 64); err == nil {
		return secs, nil
	}
	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t.Unix(), nil
	}

	r, err := p.w.Parse(strings.ToLower(input), now)
	if err != nil {
		return 0, fmt.Errorf("failed to parse time %q: %w", input, err)
	}
	if r == nil {
		return 0, fmt.Errorf("unrecognized time %q", input)
	}
	return r.Time.Unix(), nil
}

// Window resolves --after and --before. Both empty yields the zero window,
// which selects the configured one.
func (p *timeParser) Window(after, before string, now time.Time) (ingestdomain.Window, error) {
	a, err := p.Parse(after, now)
	if err != nil {
		return ingestdomain.Window{}, err
	}
	b, err := p.Parse(before, now)
	if err != nil {
		return ingestdomain.Window{}, err
	}
	if (a == 0) != (b == 0) {
		return ingestdomain.Window{}, fmt.Errorf("--after and --before must be given together")
	}
	if a != 0 && a >= b {
		return ingestdomain.Window{}, fmt.Errorf("--after (%d) must be before --before (%d)", a, b)
	}
	return ingestdomain.Window{After: a, Before: b}, nil
}
