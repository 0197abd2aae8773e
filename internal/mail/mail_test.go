package mail

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name  string
	msgs  []Message
	err   error
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(context.Context) ([]Message, error) {
	s.calls++
	return s.msgs, s.err
}

func writeSample(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "sample_emails.json")
	content := `[
  {"id": "1", "subject": "Team lunch", "from": "alice@example.com", "body": "Pizza on Friday?"},
  {"id": "", "subject": "broken", "from": "x@example.com", "body": "no id"},
  {"id": "2", "subject": "Invoice", "from": "billing@example.com", "body": "Your invoice is attached."}
]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSampleSource_Fetch(t *testing.T) {
	path := writeSample(t, t.TempDir())

	src := NewSampleSource(path)
	assert.Equal(t, "sample", src.Name())

	msgs, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2, "records without an id are dropped")
	assert.Equal(t, "1", msgs[0].ID)
	assert.Equal(t, "Invoice", msgs[1].Subject)
}

func TestSampleSource_MissingFile(t *testing.T) {
	src := NewSampleSource(filepath.Join(t.TempDir(), "missing.json"))
	_, err := src.Fetch(context.Background())
	assert.Error(t, err)
}

func TestCache_SaveLoad(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "nested", "live.json"), 3)

	var msgs []Message
	for i := 1; i <= 5; i++ {
		msgs = append(msgs, Message{ID: strconv.Itoa(i), Subject: "s", Body: "b"})
	}
	require.NoError(t, cache.Save(msgs))

	loaded, err := cache.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 3, "cache keeps only the newest messages")
	assert.Equal(t, []string{"3", "4", "5"}, []string{loaded[0].ID, loaded[1].ID, loaded[2].ID})
}

func TestCache_LoadMissing(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "absent.json"), 10)
	msgs, err := cache.Load()
	assert.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestLoader_LiveSuccessWritesCache(t *testing.T) {
	dir := t.TempDir()
	live := &stubSource{name: "imap", msgs: []Message{{ID: "77", Subject: "Hi", Body: "hello"}}}
	cache := NewCache(filepath.Join(dir, "live.json"), 10)
	loader := &Loader{Live: live, Cache: cache, Sample: NewSampleSource(writeSample(t, dir))}

	msgs, origin, err := loader.Load(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, OriginLive, origin)
	assert.Equal(t, live.msgs, msgs)

	cached, err := cache.Load()
	require.NoError(t, err)
	assert.Equal(t, live.msgs, cached)
}

func TestLoader_LiveErrorFallsBackToCache(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache(filepath.Join(dir, "live.json"), 10)
	require.NoError(t, cache.Save([]Message{{ID: "c1", Body: "cached"}}))

	loader := &Loader{
		Live:   &stubSource{name: "imap", err: errors.New("connection refused")},
		Cache:  cache,
		Sample: NewSampleSource(writeSample(t, dir)),
	}

	msgs, origin, err := loader.Load(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, OriginCache, origin)
	require.Len(t, msgs, 1)
	assert.Equal(t, "c1", msgs[0].ID)
}

func TestLoader_LiveErrorNoCacheFallsBackToSample(t *testing.T) {
	dir := t.TempDir()
	loader := &Loader{
		Live:   &stubSource{name: "gmail", err: errors.New("token expired")},
		Cache:  NewCache(filepath.Join(dir, "live.json"), 10),
		Sample: NewSampleSource(writeSample(t, dir)),
	}

	msgs, origin, err := loader.Load(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, OriginSample, origin)
	assert.Len(t, msgs, 2)
}

func TestLoader_LiveEmptyFallsBackToSample(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache(filepath.Join(dir, "live.json"), 10)
	require.NoError(t, cache.Save([]Message{{ID: "old"}}))

	loader := &Loader{
		Live:   &stubSource{name: "imap"},
		Cache:  cache,
		Sample: NewSampleSource(writeSample(t, dir)),
	}

	_, origin, err := loader.Load(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, OriginSample, origin, "an empty inbox is not a failure, stale cache is not used")
}

func TestLoader_SkipsLiveWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	live := &stubSource{name: "imap", msgs: []Message{{ID: "x"}}}
	loader := &Loader{Live: live, Sample: NewSampleSource(writeSample(t, dir))}

	_, origin, err := loader.Load(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, OriginSample, origin)
	assert.Zero(t, live.calls)
}

func TestLoader_NothingAvailable(t *testing.T) {
	loader := &Loader{Live: &stubSource{name: "imap", err: errors.New("down")}}

	msgs, origin, err := loader.Load(context.Background(), true)
	assert.Error(t, err)
	assert.Equal(t, OriginNone, origin)
	assert.Empty(t, msgs)
}

func TestMessage_Summary(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{
			name: "short subject with display name",
			msg:  Message{Subject: "Lunch", From: "Alice <alice@example.com>"},
			want: "Lunch — alice",
		},
		{
			name: "long subject is cut",
			msg:  Message{Subject: "A very long subject line that goes on and on and on forever", From: "bob@example.com"},
			want: "A very long subject line that goes on and on and o... — bob",
		},
		{
			name: "sender without address",
			msg:  Message{Subject: "Hi", From: "Carol"},
			want: "Hi — Carol",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.Summary())
		})
	}
}

func TestMessage_Preview(t *testing.T) {
	m := Message{Body: "0123456789"}
	assert.Equal(t, "0123456789", m.Preview(10))
	assert.Equal(t, "01234...", m.Preview(5))
}
