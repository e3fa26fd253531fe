package schema

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func fixtureDescription() *Description {
	return &Description{
		DatabaseName: "analytics",
		Dialect:      DialectPostgres,
		Tables: []Table{
			{
				Name:        "sales",
				Description: "Sales transactions",
				Columns: []Column{
					{Name: "category", NormalizedType: TypeString, Description: "category"},
					{Name: "amount", NormalizedType: TypeDecimal, Description: "Monetary amount"},
				},
			},
		},
	}
}

func TestCacheReturnsSnapshotWithinTTL(t *testing.T) {
	calls := 0
	cache := NewCache(func(ctx context.Context) (*Description, error) {
		calls++
		return fixtureDescription(), nil
	}, time.Hour, nil)

	first, err := cache.Get(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := cache.Get(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls != 1 {
		t.Errorf("expected 1 introspection call, got %d", calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated Get within TTL should return a deep-equal snapshot")
	}
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	calls := 0
	cache := NewCache(func(ctx context.Context) (*Description, error) {
		calls++
		return fixtureDescription(), nil
	}, time.Hour, nil)

	current := time.Unix(1700000000, 0)
	cache.now = func() time.Time { return current }

	if _, err := cache.Get(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	current = current.Add(59 * time.Minute)
	if _, err := cache.Get(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("snapshot should still be fresh at 59m, got %d calls", calls)
	}

	current = current.Add(2 * time.Minute)
	if _, err := cache.Get(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("snapshot should refresh after TTL, got %d calls", calls)
	}
}

func TestCacheForceRefresh(t *testing.T) {
	calls := 0
	cache := NewCache(func(ctx context.Context) (*Description, error) {
		calls++
		return fixtureDescription(), nil
	}, time.Hour, nil)

	for i := 0; i < 3; i++ {
		if _, err := cache.Get(context.Background(), true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 3 {
		t.Errorf("forceRefresh must always re-introspect, got %d calls", calls)
	}
}

func TestCacheInvalidate(t *testing.T) {
	calls := 0
	cache := NewCache(func(ctx context.Context) (*Description, error) {
		calls++
		return fixtureDescription(), nil
	}, time.Hour, nil)

	if _, err := cache.Get(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache.Invalidate()
	if _, err := cache.Get(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls != 2 {
		t.Errorf("Get after Invalidate must re-introspect, got %d calls", calls)
	}
}

func TestCachePropagatesIntrospectionError(t *testing.T) {
	boom := errors.New("catalog unreachable")
	cache := NewCache(func(ctx context.Context) (*Description, error) {
		return nil, boom
	}, time.Hour, nil)

	if _, err := cache.Get(context.Background(), false); !errors.Is(err, boom) {
		t.Errorf("expected introspection error, got %v", err)
	}
}

func TestCacheDoesNotStoreFailedRefresh(t *testing.T) {
	calls := 0
	cache := NewCache(func(ctx context.Context) (*Description, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return fixtureDescription(), nil
	}, time.Hour, nil)

	if _, err := cache.Get(context.Background(), false); err == nil {
		t.Fatal("expected first call to fail")
	}
	snapshot, err := cache.Get(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot == nil || snapshot.DatabaseName != "analytics" {
		t.Error("second call should return the fresh snapshot")
	}
}
