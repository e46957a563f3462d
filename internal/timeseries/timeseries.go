// Package timeseries defines the store behind pool charts and the published snapshot.
package timeseries

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

// ErrNotFound is returned for a missing or expired snapshot.
var ErrNotFound = errors.New("not found")

// DefaultRetention is how long series points are kept.
const DefaultRetention = 72 * time.Hour

// Point is one sample. Timestamps have second resolution.
type Point struct {
	Timestamp time.Time
	Value     float64
}

// Member encodes p as "<unix-seconds>:<value>", the sorted-set member format.
func Member(p Point) string {
	return strconv.FormatInt(p.Timestamp.Unix(), 10) + ":" + strconv.FormatFloat(p.Value, 'f', -1, 64)
}

// ParseMember decodes a Member string.
func ParseMember(s string) (Point, error) {
	e, err := ParseEntry(s)
	if err != nil {
		return Point{}, err
	}
	v, err := strconv.ParseFloat(e.Payload, 64)
	if err != nil {
		return Point{}, fmt.Errorf("member %q: value: %w", s, err)
	}
	return Point{Timestamp: e.Timestamp, Value: v}, nil
}

// Entry is a timestamped member whose payload is kept verbatim, such as a
// found block recorded by the pool as "<unix-seconds>:<json>".
type Entry struct {
	Timestamp time.Time
	Payload   string
}

// ParseEntry splits a member at the first separator.
func ParseEntry(s string) (Entry, error) {
	ts, payload, ok := strings.Cut(s, ":")
	if !ok {
		return Entry{}, fmt.Errorf("member %q: missing separator", s)
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("member %q: timestamp: %w", s, err)
	}
	return Entry{Timestamp: time.Unix(sec, 0), Payload: payload}, nil
}

// PointEntries renders numeric points as entries for backends that only keep numbers.
func PointEntries(points []Point) []Entry {
	entries := make([]Entry, 0, len(points))
	for _, p := range points {
		entries = append(entries, Entry{
			Timestamp: p.Timestamp,
			Payload:   strconv.FormatFloat(p.Value, 'f', -1, 64),
		})
	}
	return entries
}

type (
	// Store is the write side used by the aggregator.
	Store interface {
		// Append adds p to metric and sets the whole metric to expire ttl from now.
		Append(ctx context.Context, metric string, p Point, ttl time.Duration) error
		// PruneOlderThan removes every point of metric with a timestamp before cutoff.
		PruneOlderThan(ctx context.Context, metric string, cutoff time.Time) error
		// PublishSnapshot stores payload under key, readable until ttl elapses.
		PublishSnapshot(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	}
	// Reader is the read side used by the API.
	Reader interface {
		// Range returns points of metric within [from, to], oldest first.
		Range(ctx context.Context, metric string, from, to time.Time) ([]Point, error)
		// Entries returns the raw members of key within [from, to], oldest first.
		Entries(ctx context.Context, key string, from, to time.Time) ([]Entry, error)
		// Snapshot returns the payload under key or ErrNotFound.
		Snapshot(ctx context.Context, key string) ([]byte, error)
	}
	Backend interface {
		Store
		Reader
		Ping(ctx context.Context) error
		Close() error
	}
)
