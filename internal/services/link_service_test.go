package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	customerrors "github.com/axellelanca/linkshortener/internal/errors"
	"github.com/axellelanca/linkshortener/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRepository is a mutex-guarded LinkRepository for service tests.
type memoryRepository struct {
	mu    sync.Mutex
	links map[string]*models.Link
	seq   int

	creates    atomic.Int32
	increments atomic.Int32
	failWith   error
	deadlines  []bool
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{links: make(map[string]*models.Link)}
}

func (m *memoryRepository) CreateLink(ctx context.Context, code, url string) (*models.Link, error) {
	m.creates.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	_, hasDeadline := ctx.Deadline()
	m.deadlines = append(m.deadlines, hasDeadline)

	if m.failWith != nil {
		return nil, m.failWith
	}
	if _, exists := m.links[code]; exists {
		return nil, fmt.Errorf("%w: %s", customerrors.ErrDuplicateCode, code)
	}
	m.seq++
	link := &models.Link{ID: fmt.Sprintf("id-%d", m.seq), Code: code, URL: url, CreatedAt: time.Now().UTC()}
	m.links[code] = link
	copied := *link
	return &copied, nil
}

func (m *memoryRepository) GetLinkByCode(ctx context.Context, code string) (*models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	link, ok := m.links[code]
	if !ok {
		return nil, customerrors.ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

func (m *memoryRepository) ListLinks(ctx context.Context) ([]models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	links := make([]models.Link, 0, len(m.links))
	for _, link := range m.links {
		links = append(links, *link)
	}
	return links, nil
}

func (m *memoryRepository) DeleteLink(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[code]; !ok {
		return customerrors.ErrLinkNotFound
	}
	delete(m.links, code)
	return nil
}

func (m *memoryRepository) IncrementClick(ctx context.Context, code string) error {
	m.increments.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[code]
	if !ok {
		return customerrors.ErrLinkNotFound
	}
	now := time.Now().UTC()
	link.Clicks++
	link.LastClickedAt = &now
	return nil
}

func (m *memoryRepository) Ping(ctx context.Context) error { return m.failWith }

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// sequence yields the given codes in order, then repeats the last one.
func sequence(codes ...string) CodeGenerator {
	var i atomic.Int32
	return func() (string, error) {
		n := int(i.Add(1)) - 1
		if n >= len(codes) {
			n = len(codes) - 1
		}
		return codes[n], nil
	}
}

func TestGenerateShortCode(t *testing.T) {
	alphabet := regexp.MustCompile(`^[A-Za-z0-9]+$`)
	seen := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		code, err := GenerateShortCode(6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.Regexp(t, alphabet, code)
		seen[code] = true
	}
	// 1000 draws from 62^6 should essentially never collide
	assert.Greater(t, len(seen), 990)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://example.com", true},
		{"http://a.example/page?q=1#frag", true},
		{"ftp://files.example/x", true},
		{"", false},
		{"not-a-url", false},
		{"/relative/path", false},
		{"https://", false},
		{"mailto:someone@example.com", false},
		{"http://[::1", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, customerrors.ErrInvalidFormat)
			}
		})
	}
}

func TestReserveCustom_Succeeds(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepository()
	svc := NewLinkService(repo, WithLogger(quiet))

	for _, code := range []string{"abc123", "ABCDEFG", "a1B2c3D4", "000000"} {
		link, err := svc.ReserveCustom(ctx, code, "https://example.com/"+code)
		require.NoError(t, err, code)
		assert.Equal(t, code, link.Code)

		got, err := svc.GetLink(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/"+code, got.URL)
	}
}

func TestReserveCustom_Taken(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepository()
	svc := NewLinkService(repo, WithLogger(quiet))

	_, err := svc.ReserveCustom(ctx, "taken1", "https://a.example")
	require.NoError(t, err)

	for _, url := range []string{"https://a.example", "https://b.example"} {
		_, err := svc.ReserveCustom(ctx, "taken1", url)
		assert.ErrorIs(t, err, customerrors.ErrCodeTaken)
	}

	got, err := svc.GetLink(ctx, "taken1")
	require.NoError(t, err)
	assert.Equal(t, "https://a.example", got.URL)
}

func TestReserveCustom_Reserved(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewLinkService(repo, WithLogger(quiet))

	_, err := svc.ReserveCustom(context.Background(), "health", "https://a.example")
	assert.ErrorIs(t, err, customerrors.ErrCodeTaken)
	assert.Equal(t, int32(0), repo.creates.Load())
}

func TestReserveCustom_InvalidFormatTouchesNothing(t *testing.T) {
	tests := []struct {
		name string
		code string
		url  string
	}{
		{"too short", "ab", "https://x.com"},
		{"five chars", "abcde", "https://x.com"},
		{"nine chars", "abcdefghi", "https://x.com"},
		{"dash", "abc-12", "https://x.com"},
		{"underscore", "abc_12", "https://x.com"},
		{"space", "abc 12", "https://x.com"},
		{"unicode", "abcdé1", "https://x.com"},
		{"bad url", "abc123", "not-a-url"},
		{"missing url", "abc123", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepository()
			svc := NewLinkService(repo, WithLogger(quiet))

			_, err := svc.ReserveCustom(context.Background(), tt.code, tt.url)
			assert.ErrorIs(t, err, customerrors.ErrInvalidFormat)

			var verr *customerrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Message)

			assert.Equal(t, int32(0), repo.creates.Load())
			assert.Empty(t, repo.links)
		})
	}
}

func TestReserveCustom_ConcurrentSameCode(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewLinkService(repo, WithLogger(quiet))

	const callers = 32
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		taken     atomic.Int32
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.ReserveCustom(context.Background(), "same12", fmt.Sprintf("https://example.com/%d", i))
			if err == nil {
				successes.Add(1)
			} else if errors.Is(err, customerrors.ErrCodeTaken) {
				taken.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(callers-1), taken.Load())
}

func TestReserveRandom(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewLinkService(repo, WithLogger(quiet))

	link, err := svc.ReserveRandom(context.Background(), "https://a.example/page")
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Za-z0-9]{6}$`, link.Code)
	assert.Equal(t, "https://a.example/page", link.URL)
	assert.Equal(t, int64(0), link.Clicks)
}

func TestReserveRandom_CodeLength(t *testing.T) {
	svc := NewLinkService(newMemoryRepository(), WithCodeLength(8), WithLogger(quiet))

	link, err := svc.ReserveRandom(context.Background(), "https://a.example")
	require.NoError(t, err)
	assert.Len(t, link.Code, 8)
}

func TestReserveRandom_RetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepository()
	_, err := repo.CreateLink(ctx, "aaaaaa", "https://first.example")
	require.NoError(t, err)
	_, err = repo.CreateLink(ctx, "bbbbbb", "https://second.example")
	require.NoError(t, err)

	svc := NewLinkService(repo, WithCodeGenerator(sequence("aaaaaa", "bbbbbb", "health", "cccccc")), WithLogger(quiet))

	link, err := svc.ReserveRandom(ctx, "https://third.example")
	require.NoError(t, err)
	assert.Equal(t, "cccccc", link.Code)
	// two seeded creates plus two collisions and the winner; "health" never reaches the store
	assert.Equal(t, int32(5), repo.creates.Load())
}

func TestReserveRandom_Exhausted(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepository()
	_, err := repo.CreateLink(ctx, "stuck1", "https://first.example")
	require.NoError(t, err)
	repo.creates.Store(0)

	svc := NewLinkService(repo, WithCodeGenerator(sequence("stuck1")), WithLogger(quiet))

	_, err = svc.ReserveRandom(ctx, "https://second.example")
	assert.ErrorIs(t, err, customerrors.ErrAllocationExhausted)
	assert.Equal(t, int32(DefaultMaxAttempts), repo.creates.Load())
}

func TestReserveRandom_StoreErrorIsNotRetried(t *testing.T) {
	repo := newMemoryRepository()
	repo.failWith = errors.New("connection refused")
	svc := NewLinkService(repo, WithLogger(quiet))

	_, err := svc.ReserveRandom(context.Background(), "https://a.example")
	require.Error(t, err)
	assert.NotErrorIs(t, err, customerrors.ErrAllocationExhausted)
	assert.Equal(t, int32(1), repo.creates.Load())
}

func TestReserveRandom_InvalidURL(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewLinkService(repo, WithLogger(quiet))

	_, err := svc.ReserveRandom(context.Background(), "not-a-url")
	assert.ErrorIs(t, err, customerrors.ErrInvalidFormat)
	assert.Equal(t, int32(0), repo.creates.Load())
}

func TestStoreCallsCarryDeadline(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewLinkService(repo, WithStoreTimeout(time.Second), WithLogger(quiet))

	_, err := svc.CreateLink(context.Background(), "https://a.example", "")
	require.NoError(t, err)
	_, err = svc.CreateLink(context.Background(), "https://a.example", "custom1")
	require.NoError(t, err)

	require.Len(t, repo.deadlines, 2)
	assert.True(t, repo.deadlines[0])
	assert.True(t, repo.deadlines[1])
}

func TestDeleteLink(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepository()
	svc := NewLinkService(repo, WithLogger(quiet))

	_, err := svc.CreateLink(ctx, "https://a.example", "del123")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLink(ctx, "del123"))
	assert.ErrorIs(t, svc.DeleteLink(ctx, "del123"), customerrors.ErrLinkNotFound)

	_, err = svc.GetLink(ctx, "del123")
	assert.ErrorIs(t, err, customerrors.ErrLinkNotFound)
}
