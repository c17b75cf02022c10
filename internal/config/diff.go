package config

import (
	"reflect"
	"sort"

	logx "churchbot/pkg/logx"
)

// Sections that only take effect after a restart.
var restartSections = map[string]bool{
	"storage":  true,
	"router":   true,
	"content":  true,
	"telegram": true,
}

// Change describes a reload.
type Change struct {
	Sections []string
	// Restart lists changed sections the running process cannot apply.
	Restart []string
	Fields  []logx.Field
}

func (c Change) Empty() bool { return len(c.Sections) == 0 }

// Diff compares two configs section by section. Secrets are never put in
// Fields.
func Diff(oldCfg, newCfg *Config) Change {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var c Change
	add := func(name string, fields ...logx.Field) {
		c.Sections = append(c.Sections, name)
		c.Fields = append(c.Fields, fields...)
		if restartSections[name] {
			c.Restart = append(c.Restart, name)
		}
	}

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if ot.Token != nt.Token || ot.PollTimeout != nt.PollTimeout {
		add("telegram",
			logx.Bool("telegram.token_changed", ot.Token != nt.Token),
			logx.String("telegram.poll_timeout", nt.PollTimeout),
		)
	}
	// The admin id is applied live, so it is its own section.
	if ot.AdminUserID != nt.AdminUserID {
		add("admin", logx.Int64("telegram.admin_user_id", nt.AdminUserID))
	}
	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		add("logging",
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file", newCfg.Logging.File.Enabled),
			logx.Bool("logging.admin", newCfg.Logging.Admin.Enabled),
		)
	}
	oStore, nStore := oldCfg.Storage, newCfg.Storage
	if oStore != nStore {
		add("storage",
			logx.String("storage.driver", nStore.Driver),
			logx.Bool("storage.dsn_set", nStore.DSN != ""),
		)
	}
	if oldCfg.Content != newCfg.Content {
		add("content", logx.String("content.catalog_path", newCfg.Content.CatalogPath))
	}
	if oldCfg.Router != newCfg.Router {
		add("router",
			logx.Int("router.workers", newCfg.Router.Workers),
			logx.Int("router.queue_size", newCfg.Router.QueueSize),
		)
	}
	if oldCfg.Broadcast != newCfg.Broadcast {
		add("broadcast",
			logx.Int("broadcast.workers", newCfg.Broadcast.Workers),
			logx.Int("broadcast.rate_per_sec", newCfg.Broadcast.RatePerSec),
		)
	}
	if oldCfg.Notifier != newCfg.Notifier {
		add("notifier",
			logx.Bool("notifier.enabled", newCfg.Notifier.Enabled),
			logx.Int("notifier.rate_per_sec", newCfg.Notifier.RatePerSec),
		)
	}
	if !reflect.DeepEqual(oldCfg.Scheduler, newCfg.Scheduler) {
		add("scheduler",
			logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
			logx.String("scheduler.timezone", newCfg.Scheduler.Timezone),
		)
	}
	if oldCfg.Ops != newCfg.Ops {
		add("ops",
			logx.Bool("ops.enabled", newCfg.Ops.Enabled),
			logx.String("ops.addr", newCfg.Ops.Addr),
			logx.Bool("ops.token_set", newCfg.Ops.Token != ""),
		)
	}

	sort.Strings(c.Sections)
	sort.Strings(c.Restart)
	return c
}
