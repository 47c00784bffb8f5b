package fingerprint

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

type stubRepository struct {
	name   string
	vendor string
	err    error
	calls  atomic.Int32
}

func (s *stubRepository) Name() string { return s.name }
func (s *stubRepository) Close() error { return nil }
func (s *stubRepository) LookupVendor(ctx context.Context, mac domain.MACAddress) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	if s.vendor == "" {
		return "", ErrVendorNotFound
	}
	return s.vendor, nil
}

func TestCompositeVendorRepository_Order(t *testing.T) {
	mac := domain.MustParseMAC("28:CD:C1:00:00:01")

	broken := &stubRepository{name: "db", err: errors.New("disk I/O error")}
	empty := &stubRepository{name: "gopacket"}
	remote := &stubRepository{name: "online", vendor: "Raspberry Pi Trading Ltd"}

	chain := NewCompositeVendorRepository(broken, nil, empty, remote)
	vendor, source, err := chain.Resolve(context.Background(), mac)
	require.NoError(t, err)
	assert.Equal(t, "Raspberry Pi Trading Ltd", vendor)
	assert.Equal(t, "online", source)
	assert.EqualValues(t, 1, broken.calls.Load())
	assert.EqualValues(t, 1, empty.calls.Load())
}

func TestCompositeVendorRepository_Errors(t *testing.T) {
	mac := domain.MustParseMAC("28:CD:C1:00:00:01")
	boom := errors.New("disk I/O error")

	_, _, err := NewCompositeVendorRepository(&stubRepository{name: "a"}).Resolve(context.Background(), mac)
	assert.ErrorIs(t, err, ErrVendorNotFound)

	_, _, err = NewCompositeVendorRepository(&stubRepository{name: "a", err: boom}, &stubRepository{name: "b"}).Resolve(context.Background(), mac)
	assert.ErrorIs(t, err, boom)

	_, _, err = NewCompositeVendorRepository().Resolve(context.Background(), domain.MACAddress{})
	assert.ErrorIs(t, err, ErrInvalidMAC)
}

func TestVendorResolver_CachesHits(t *testing.T) {
	repo := &stubRepository{name: "oui_db", vendor: "Ubiquiti"}
	resolver := NewVendorResolver(NewCompositeVendorRepository(repo), 16, nil)
	mac := domain.MustParseMAC("FC:EC:DA:00:00:01")

	first := resolver.LookupVendor(context.Background(), mac)
	assert.True(t, first.Found)
	assert.Equal(t, "Ubiquiti", first.Vendor)
	assert.Equal(t, "oui_db", first.Source)

	second := resolver.LookupVendor(context.Background(), domain.MustParseMAC("FC:EC:DA:99:99:99"))
	assert.True(t, second.Found)
	assert.Equal(t, "cache", second.Source)
	assert.EqualValues(t, 1, repo.calls.Load())
	assert.EqualValues(t, 1, resolver.CacheStats().Hits)
}

func TestVendorResolver_MissAndError(t *testing.T) {
	mac := domain.MustParseMAC("FC:EC:DA:00:00:01")

	miss := NewVendorResolver(NewCompositeVendorRepository(&stubRepository{name: "a"}), 16, nil)
	res := miss.LookupVendor(context.Background(), mac)
	assert.False(t, res.Found)
	assert.NoError(t, res.Err)

	failing := NewVendorResolver(NewCompositeVendorRepository(&stubRepository{name: "a", err: errors.New("timeout")}), 16, nil)
	res = failing.LookupVendor(context.Background(), mac)
	assert.False(t, res.Found)
	assert.Error(t, res.Err)
}

func TestMACsRepository(t *testing.T) {
	repo := NewMACsRepository()

	vendor, err := repo.LookupVendor(context.Background(), domain.MustParseMAC("00:09:0F:12:34:56"))
	require.NoError(t, err)
	assert.NotEmpty(t, vendor)

	_, err = repo.LookupVendor(context.Background(), domain.MACAddress{})
	assert.ErrorIs(t, err, ErrInvalidMAC)
}

func TestOnlineRepository(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/28:CD:C1":
			_, _ = w.Write([]byte("Raspberry Pi Trading Ltd\n"))
		case "/AA:AA:AA":
			http.Error(w, `{"errors":{"detail":"Not Found"}}`, http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer srv.Close()

	repo := NewOnlineRepository(srv.URL)
	ctx := context.Background()

	vendor, err := repo.LookupVendor(ctx, domain.MustParseMAC("28:CD:C1:00:00:01"))
	require.NoError(t, err)
	assert.Equal(t, "Raspberry Pi Trading Ltd", vendor)

	_, err = repo.LookupVendor(ctx, domain.MustParseMAC("AA:AA:AA:00:00:01"))
	assert.ErrorIs(t, err, ErrVendorNotFound)

	_, err = repo.LookupVendor(ctx, domain.MustParseMAC("BB:BB:BB:00:00:01"))
	var lookupErr *LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, http.StatusTooManyRequests, lookupErr.Status)
}
