// Package logscan recovers generated image references from the HTML
// execution log written by an example script.
//
// The log is free-form HTML; only lines carrying an image anchor matter.
// Matching is isolated behind the Matcher interface so the line contract can
// change without touching selection.
//
// Anchor contract (AnchorMatcher):
//
//	<a href="<40 lowercase hex>.png" download="<logical name>">...</a>
//
// The filename comes from href, the logical name from the download
// attribute. Inner link text is not used and may be empty. Only the first
// anchor on a line is considered.
package logscan

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/evalf/examples-gallery/internal/selector"
)

// LogFileName is the name of the execution log inside an output directory.
const LogFileName = "log.html"

// Event is one (name, filename) pair recovered from a log line.
type Event struct {
	Name     string
	Filename string
}

// Matcher extracts an Event from a single log line.
type Matcher interface {
	Match(line string) (Event, bool)
}

var anchorPattern = regexp.MustCompile(`<a href="([0-9a-f]{40}\.(?:png|jpg))" download="(.+?)">.*?</a>`)

// AnchorMatcher implements the anchor contract described in the package
// documentation.
type AnchorMatcher struct{}

// Match implements Matcher.
func (AnchorMatcher) Match(line string) (Event, bool) {
	m := anchorPattern.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}
	return Event{Name: m[2], Filename: m[1]}, true
}

// Scanner is a lazy, forward-only sequence of events read from a log.
// It cannot be restarted; open the log again instead.
type Scanner struct {
	c       io.Closer
	r       *bufio.Reader
	matcher Matcher
	event   Event
	err     error
	done    bool
}

// Open prepares a Scanner over the log at path. A missing log is not an
// error: the returned Scanner simply yields no events.
func Open(path string, matcher Matcher) (*Scanner, error) {
	if matcher == nil {
		matcher = AnchorMatcher{}
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Scanner{matcher: matcher, done: true}, nil
		}
		return nil, fmt.Errorf("failed to open log %s: %w", path, err)
	}

	return NewScanner(f, matcher, f), nil
}

// NewScanner reads events from r. If closer is non-nil it is closed by
// Close.
func NewScanner(r io.Reader, matcher Matcher, closer io.Closer) *Scanner {
	if matcher == nil {
		matcher = AnchorMatcher{}
	}
	return &Scanner{
		c:       closer,
		r:       bufio.NewReader(r),
		matcher: matcher,
	}
}

// Next advances to the next matching line. It returns false at end of input
// or on a read error; check Err afterwards.
func (s *Scanner) Next() bool {
	if s.done {
		return false
	}
	for {
		line, err := s.r.ReadString('\n')
		if len(line) > 0 {
			if ev, ok := s.matcher.Match(strings.TrimRight(line, "\r\n")); ok {
				s.event = ev
				if err != nil {
					s.finish(err)
				}
				return true
			}
		}
		if err != nil {
			s.finish(err)
			return false
		}
	}
}

func (s *Scanner) finish(err error) {
	s.done = true
	if err != io.EOF {
		s.err = fmt.Errorf("failed to read log: %w", err)
	}
}

// Event returns the event found by the last successful call to Next.
func (s *Scanner) Event() Event {
	return s.event
}

// Err returns the first non-EOF read error.
func (s *Scanner) Err() error {
	return s.err
}

// Close releases the underlying reader, if it has one.
func (s *Scanner) Close() error {
	s.done = true
	if s.c == nil {
		return nil
	}
	err := s.c.Close()
	s.c = nil
	return err
}

// Collect scans the log at path into per-name sequences. names has the same
// meaning as in selector.New.
func Collect(path string, matcher Matcher, names []string) (*selector.Sequences, error) {
	seqs := selector.New(names)

	sc, err := Open(path, matcher)
	if err != nil {
		return nil, err
	}
	defer sc.Close()

	for sc.Next() {
		ev := sc.Event()
		seqs.Add(ev.Name, ev.Filename)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}

	return seqs, nil
}
