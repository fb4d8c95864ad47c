package ident

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/dropDatabas3/mailveil/internal/store/core"
	"github.com/dropDatabas3/mailveil/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuthority reports collisions for the first `collide` checks.
type fakeAuthority struct {
	mu      sync.Mutex
	collide int
	checks  int
	err     error
}

func (f *fakeAuthority) Exists(_ context.Context, _ Kind, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	f.checks++
	return f.checks <= f.collide, nil
}

var aliasRe = regexp.MustCompile(`^[a-z]+\.[a-z]+\.[0-9a-z]{4}@mail\.test$`)

func TestGenerateAliasFormat(t *testing.T) {
	g := New(&fakeAuthority{}, "mail.test")

	got, err := g.Generate(context.Background(), KindAlias, "")
	require.NoError(t, err)
	assert.Regexp(t, aliasRe, got)
}

func TestGenerateClientIDFromName(t *testing.T) {
	g := New(&fakeAuthority{}, "mail.test")

	got, err := g.Generate(context.Background(), KindClientID, "My Cool App")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "my-cool-app-"), "got %q", got)
	assert.Len(t, got, len("my-cool-app-")+clientSuffixLen)
}

func TestGenerateClientIDEmptyName(t *testing.T) {
	g := New(&fakeAuthority{}, "mail.test")

	got, err := g.Generate(context.Background(), KindClientID, "  ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "client-"), "got %q", got)
}

func TestGenerateClientSecretLength(t *testing.T) {
	g := New(&fakeAuthority{}, "mail.test")

	got, err := g.Generate(context.Background(), KindClientSecret, "")
	require.NoError(t, err)
	assert.Len(t, got, 40)
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	auth := &fakeAuthority{collide: 3}
	g := New(auth, "mail.test")

	got, err := g.Generate(context.Background(), KindAlias, "")
	require.NoError(t, err)
	assert.NotEmpty(t, got)
	assert.Equal(t, 4, auth.checks)
}

func TestGenerateExhausted(t *testing.T) {
	auth := &fakeAuthority{collide: maxAttempts + 1}
	g := New(auth, "mail.test")

	_, err := g.Generate(context.Background(), KindAuthCode, "")
	require.ErrorIs(t, err, ErrGenerationExhausted)
	assert.Equal(t, maxAttempts, auth.checks)
}

func TestGenerateAuthorityError(t *testing.T) {
	boom := errors.New("db down")
	g := New(&fakeAuthority{err: boom}, "mail.test")

	_, err := g.Generate(context.Background(), KindAlias, "")
	require.ErrorIs(t, err, boom)
}

func TestGenerateUnknownKind(t *testing.T) {
	g := New(&fakeAuthority{}, "mail.test")

	_, err := g.Generate(context.Background(), Kind("bogus"), "")
	require.Error(t, err)
}

// Concurrent generation against a real store never allocates the same alias
// twice.
func TestGenerateConcurrentUniqueness(t *testing.T) {
	st := memory.New()
	g := New(StoreAuthority{Repo: st}, "mail.test")

	const n = 50
	results := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email, err := g.Generate(context.Background(), KindAlias, "")
			if err != nil {
				t.Error(err)
				return
			}
			err = st.CreateAlias(context.Background(), &core.Alias{
				ID:      email, // unique per alias for this test
				UserID:  "u1",
				Email:   email,
				Enabled: true,
			})
			if err != nil {
				t.Errorf("persist %s: %v", email, err)
				return
			}
			results <- email
		}(i)
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for email := range results {
		assert.False(t, seen[email], "duplicate alias %s", email)
		seen[email] = true
	}
	assert.Len(t, seen, n)
}
