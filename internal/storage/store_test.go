package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	logx "churchbot/pkg/logx"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	sq, err := Open(ctx, Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "church.db")}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sq,
	}
}

func TestStoreMembers(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

			_, ok, err := st.GetMember(ctx, 42)
			require.NoError(t, err)
			require.False(t, ok)

			m := Member{RecipientID: 42, FirstName: "Ada", LastName: "Obi", Phone: "080", Birthday: "01-02", Email: "ada@example.com", RegisteredAt: at}
			require.NoError(t, st.UpsertMember(ctx, m))

			m.Phone = "081"
			require.NoError(t, st.UpsertMember(ctx, m))

			got, ok, err := st.GetMember(ctx, 42)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "081", got.Phone)
			require.Equal(t, "Ada Obi", got.FullName())
			require.True(t, got.RegisteredAt.Equal(at))

			require.NoError(t, st.UpsertMember(ctx, Member{RecipientID: 7, FirstName: "Ben", RegisteredAt: at}))
			all, err := st.ListMembers(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			require.Equal(t, int64(7), all[0].RecipientID)
			require.Equal(t, int64(42), all[1].RecipientID)
		})
	}
}

func TestStoreProgress(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now()

			p, ok, err := st.GetProgress(ctx, 5)
			require.NoError(t, err)
			require.False(t, ok)
			require.Equal(t, 0, p.Next())

			_, err = st.UpsertProgress(ctx, 5, 1, now)
			require.NoError(t, err)
			// a stale completion does not move progress back
			p, err = st.UpsertProgress(ctx, 5, 0, now)
			require.NoError(t, err)
			require.Equal(t, 1, p.LastCompleted)
			require.Equal(t, []int{0, 1}, p.Completed)

			p, err = st.UpsertProgress(ctx, 5, 1, now)
			require.NoError(t, err)
			require.Equal(t, []int{0, 1}, p.Completed)

			p, ok, err = st.GetProgress(ctx, 5)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, 2, p.Next())
			require.Equal(t, []int{0, 1}, p.Completed)
		})
	}
}

func TestStoreEventsWindow(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC)

			for i, name := range []string{"late", "early", "outside"} {
				offset := []time.Duration{2 * time.Hour, time.Hour, 48 * time.Hour}[i]
				_, err := st.AddEvent(ctx, Event{Name: name, StartsAt: base.Add(offset), Message: name, CreatedAt: base})
				require.NoError(t, err)
			}

			got, err := st.ListEvents(ctx, base, base.Add(24*time.Hour))
			require.NoError(t, err)
			require.Len(t, got, 2)
			require.Equal(t, "early", got[0].Name)
			require.Equal(t, "late", got[1].Name)
			require.NotZero(t, got[0].ID)
		})
	}
}

func TestStorePrayersAndAttendance(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id1, err := st.AppendPrayer(ctx, 9, "healing", time.Now())
			require.NoError(t, err)
			id2, err := st.AppendPrayer(ctx, 9, "healing", time.Now())
			require.NoError(t, err)
			require.NotEqual(t, id1, id2)

			require.NoError(t, st.RecordAttendance(ctx, Attendance{RecipientID: 9, ServiceDate: "2026-05-10", Status: AttendanceYes, RecordedAt: time.Now()}))
		})
	}
}

func TestSQLiteConcurrentPrayers(t *testing.T) {
	st := openStores(t)["sqlite"]
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := st.AppendPrayer(ctx, int64(i%3), "pray", time.Now())
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "church.db")
	cfg := Config{Driver: "sqlite", Path: path}

	st, err := Open(ctx, cfg, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, st.UpsertMember(ctx, Member{RecipientID: 1, FirstName: "A", RegisteredAt: time.Now()}))
	require.NoError(t, st.Close())

	st, err = Open(ctx, cfg, logx.Nop())
	require.NoError(t, err)
	defer st.Close()
	_, ok, err := st.GetMember(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMemoryClosed(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())
	_, _, err := m.GetMember(context.Background(), 1)
	require.ErrorIs(t, err, ErrClosed)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mongo"}, logx.Nop())
	require.Error(t, err)
}

func TestCompletedColumnRoundTrip(t *testing.T) {
	require.Equal(t, []int{0, 2, 5}, parseCompleted(formatCompleted([]int{0, 2, 5})))
	require.Nil(t, parseCompleted(""))
}
