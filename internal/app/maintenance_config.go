package app

import (
	"github.com/TryOmar/LabShare-sub001/internal/app/maintenance"
)

// SchedulerOptions assembles cleanup scheduler options from the relevant
// corners of the configuration. Code retention and session age both live
// under auth because they mirror the credential lifetimes.
func (c Config) SchedulerOptions() []maintenance.Option {
	var opts []maintenance.Option

	if c.Maintenance.Cleanup.Interval > 0 {
		opts = append(opts, maintenance.WithInterval(c.Maintenance.Cleanup.Interval))
	}
	if c.Maintenance.Cleanup.Schedule != "" {
		opts = append(opts, maintenance.WithSchedule(c.Maintenance.Cleanup.Schedule))
	}
	if c.Maintenance.Cleanup.RevokedGrace > 0 {
		opts = append(opts, maintenance.WithRevokedGrace(c.Maintenance.Cleanup.RevokedGrace))
	}
	if c.Maintenance.Cleanup.EventRetention > 0 {
		opts = append(opts, maintenance.WithEventRetention(c.Maintenance.Cleanup.EventRetention))
	}
	if c.Auth.Code.Retention > 0 {
		opts = append(opts, maintenance.WithCodeRetention(c.Auth.Code.Retention))
	}
	if c.Auth.JWT.TTL > 0 {
		opts = append(opts, maintenance.WithSessionTTL(c.Auth.JWT.TTL))
	}

	return opts
}
