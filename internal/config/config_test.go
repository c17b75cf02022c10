package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

const baseYAML = `
telegram:
  token: "123:abc"
storage:
  driver: memory
scheduler:
  timezone: Africa/Lagos
  jobs:
    uplift:
      enabled: true
      every: "10m"
      delay: "1m"
`

func TestParseYAMLKeepsDefaults(t *testing.T) {
	t.Parallel()

	p := writeFile(t, t.TempDir(), "config.yaml", baseYAML)
	cfg, err := NewConfigManager(p).Parse()
	require.NoError(t, err)

	require.Equal(t, "123:abc", cfg.Telegram.Token)
	require.Equal(t, DefaultAdminUserID, cfg.Telegram.AdminUserID)
	require.Equal(t, "memory", cfg.Storage.Driver)
	require.Equal(t, "Africa/Lagos", cfg.Scheduler.Timezone)
	require.Equal(t, IntervalJobConfig{Enabled: true, Every: "10m", Delay: "1m"}, cfg.Scheduler.Jobs.Uplift)
	require.Equal(t, DailyJobConfig{Enabled: true, At: "07:00"}, cfg.Scheduler.Jobs.MorningVerse)
	require.Equal(t, 25, cfg.Broadcast.RatePerSec)
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	p := writeFile(t, t.TempDir(), "config.json", `{"telegram":{"token":"t","admin_user_id":5},"router":{"workers":3}}`)
	cfg, err := NewConfigManager(p).Parse()
	require.NoError(t, err)
	require.EqualValues(t, 5, cfg.Telegram.AdminUserID)
	require.Equal(t, 3, cfg.Router.Workers)
}

func TestParseRejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		file string
		body string
		want string
	}{
		{"unknown key", "c.yaml", "telegram:\n  token: t\n  owner: 1\n", "unknown field"},
		{"trailing json", "c.json", `{"telegram":{"token":"t"}} {}`, "trailing data"},
		{"bad driver", "c.yaml", "telegram: {token: t}\nstorage: {driver: mysql}\n", "storage.driver must be one of"},
		{"postgres without dsn", "c.yaml", "telegram: {token: t}\nstorage: {driver: postgres}\n", "storage.dsn is required"},
		{"bad clock", "c.yaml", "telegram: {token: t}\nscheduler: {jobs: {morning_verse: {enabled: true, at: '25:00'}}}\n", "scheduler.jobs.morning_verse.at"},
		{"short interval", "c.yaml", "telegram: {token: t}\nscheduler: {jobs: {uplift: {enabled: true, every: 500ms}}}\n", "scheduler.jobs.uplift.every must be a duration of at least 1s"},
		{"bad weekday", "c.yaml", "telegram: {token: t}\nscheduler: {jobs: {evening_checkin: {enabled: true, at: '19:00', days: [mon, funday]}}}\n", "scheduler.jobs.evening_checkin.days[1]"},
		{"bad timezone", "c.yaml", "telegram: {token: t}\nscheduler: {timezone: Mars/Olympus}\n", "scheduler.timezone"},
		{"bad duration", "c.yaml", "telegram: {token: t}\nbroadcast: {send_timeout: soon}\n", `broadcast.send_timeout: invalid duration "soon"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := writeFile(t, t.TempDir(), tc.file, tc.body)
			_, err := NewConfigManager(p).Parse()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("TELEGRAM_API_TOKEN", "from-legacy")
	t.Setenv("CHURCHBOT_TELEGRAM_ADMIN_USER_ID", "42")
	t.Setenv("CHURCHBOT_BROADCAST_RATE_PER_SEC", "5")
	t.Setenv("CHURCHBOT_STORAGE_DRIVER", "memory")

	p := writeFile(t, t.TempDir(), "config.yaml", "telegram:\n  token: from-file\n")
	cfg, err := NewConfigManager(p).Parse()
	require.NoError(t, err)
	require.Equal(t, "from-legacy", cfg.Telegram.Token)
	require.EqualValues(t, 42, cfg.Telegram.AdminUserID)
	require.Equal(t, 5, cfg.Broadcast.RatePerSec)
	require.Equal(t, "memory", cfg.Storage.Driver)

	t.Setenv("CHURCHBOT_TELEGRAM_TOKEN", "from-prefixed")
	cfg, err = NewConfigManager("").Parse()
	require.NoError(t, err)
	require.Equal(t, "from-prefixed", cfg.Telegram.Token)
}

func TestTokenIsRequired(t *testing.T) {
	t.Setenv("TELEGRAM_API_TOKEN", "")
	t.Setenv("CHURCHBOT_TELEGRAM_TOKEN", "")

	_, err := NewConfigManager("").Parse()
	require.ErrorContains(t, err, "telegram.token is required")
}

func TestReloadPublishesOnlyChanges(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", baseYAML)
	m := NewConfigManager(p)
	_, err := m.Load()
	require.NoError(t, err)
	sub := m.Subscribe(1)

	changed, err := m.Reload()
	require.NoError(t, err)
	require.False(t, changed)

	writeFile(t, dir, "config.yaml", baseYAML+"logging:\n  level: debug\n")
	changed, err = m.Reload()
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "debug", (<-sub).Logging.Level)

	// invalid edits keep the current config
	writeFile(t, dir, "config.yaml", "telegram: [")
	_, err = m.Reload()
	require.Error(t, err)
	require.Equal(t, "debug", m.Get().Logging.Level)

	m.Unsubscribe(sub)
	_, open := <-sub
	require.False(t, open)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", baseYAML)
	m := NewConfigManager(p)
	_, err := m.Load()
	require.NoError(t, err)
	sub := m.Subscribe(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()

	// give the watcher time to register the directory
	time.Sleep(200 * time.Millisecond)
	writeFile(t, dir, "config.yaml", baseYAML+"broadcast:\n  rate_per_sec: 7\n")

	select {
	case cfg := <-sub:
		require.Equal(t, 7, cfg.Broadcast.RatePerSec)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload published")
	}
	cancel()
	<-done
}

func TestDiff(t *testing.T) {
	t.Parallel()

	a := Defaults()
	b := Defaults()
	require.True(t, Diff(a, b).Empty())

	b.Logging.Level = "debug"
	b.Storage.Driver = "memory"
	b.Telegram.AdminUserID = 1
	c := Diff(a, b)
	require.Equal(t, []string{"admin", "logging", "storage"}, c.Sections)
	require.Equal(t, []string{"storage"}, c.Restart)
}

func TestDurationOr(t *testing.T) {
	t.Parallel()

	d, err := DurationOr("x", "", time.Second)
	require.NoError(t, err)
	require.Equal(t, time.Second, d)

	d, err = DurationOr("x", " 90s ", time.Second)
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, d)

	_, err = Duration("router.timeout", "-1s")
	require.ErrorContains(t, err, "router.timeout")
}
