package content

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeFetcher struct {
	idx Index
	err error
}

func (f *fakeFetcher) FetchIndex(ctx context.Context) (Index, error) {
	return f.idx, f.err
}

func TestLibraryRefresh(t *testing.T) {
	f := &fakeFetcher{idx: Index{Posts: []Item{{Slug: "a"}}}}
	lib := NewLibrary(f, nil)
	if lib.Loaded() {
		t.Fatal("new library should not be loaded")
	}
	if lib.Snapshot().SystemInfo.NodeName != "tecnoter.io" {
		t.Error("new library should carry default system info")
	}

	if err := lib.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !lib.Loaded() || len(lib.Snapshot().Posts) != 1 || lib.LoadedAt().IsZero() {
		t.Fatal("refresh did not install index")
	}

	boom := errors.New("boom")
	f.err = boom
	f.idx = Index{}
	if err := lib.Refresh(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if len(lib.Snapshot().Posts) != 1 {
		t.Error("failed refresh must keep previous index")
	}
	if !errors.Is(lib.Err(), boom) {
		t.Errorf("Err() = %v", lib.Err())
	}
}

func TestLibraryHostHook(t *testing.T) {
	f := &fakeFetcher{idx: Index{SystemInfo: DefaultSystemInfo()}}
	lib := NewLibrary(f, func(info SystemInfo) SystemInfo {
		return ApplyHost(info, HostStats{Uptime: 26 * time.Hour, Load1: 0.5})
	})
	if err := lib.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	info := lib.Snapshot().SystemInfo
	if info.Uptime != "1 day, 2:00" {
		t.Errorf("Uptime = %q", info.Uptime)
	}
	if info.LoadAverage != "0.50, 0.00, 0.00" {
		t.Errorf("LoadAverage = %q", info.LoadAverage)
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "unknown"},
		{12 * time.Minute, "12 min"},
		{3*time.Hour + 5*time.Minute, "3:05"},
		{50*time.Hour + 1*time.Minute, "2 days, 2:01"},
	}
	for _, tt := range tests {
		if got := FormatUptime(tt.d); got != tt.want {
			t.Errorf("FormatUptime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestApplyHostKeepsSiteValues(t *testing.T) {
	info := SystemInfo{Uptime: "forever", LoadAverage: "9.99"}
	got := ApplyHost(info, HostStats{Uptime: time.Hour, Load1: 1})
	if got.Uptime != "forever" || got.LoadAverage != "9.99" {
		t.Errorf("site values overwritten: %+v", got)
	}
	if got.NodeName != "tecnoter.io" {
		t.Errorf("NodeName default missing: %q", got.NodeName)
	}
}

func TestLibraryReady(t *testing.T) {
	isReady := func(lib *Library) bool {
		select {
		case <-lib.Ready():
			return true
		default:
			return false
		}
	}

	lib := NewLibrary(&fakeFetcher{err: errors.New("down")}, nil)
	if isReady(lib) {
		t.Fatal("library ready before any refresh")
	}
	lib.Refresh(context.Background())
	if !isReady(lib) {
		t.Fatal("failed first refresh should mark the library ready")
	}
	if lib.Loaded() || lib.Err() == nil {
		t.Errorf("Loaded = %v, Err = %v", lib.Loaded(), lib.Err())
	}
	// A second refresh must not close the channel again.
	lib.Refresh(context.Background())

	lib = NewLibrary(&fakeFetcher{idx: Index{Posts: []Item{{Slug: "a"}}}}, nil)
	lib.Refresh(context.Background())
	if !isReady(lib) || !lib.Loaded() {
		t.Error("successful refresh should mark the library ready")
	}

	if err := NewLibrary(nil, nil).Refresh(context.Background()); err == nil {
		t.Error("expected error without fetcher")
	}
}
