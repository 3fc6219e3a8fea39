package tasks

import (
	"github.com/serialgrab/serialgrab/internal/config"
	"github.com/serialgrab/serialgrab/internal/grab"
	"github.com/serialgrab/serialgrab/internal/scheduler"
)

// GrabTaskID identifies the grab job in the scheduler.
const GrabTaskID = "grab"

// RegisterGrabTask registers the pending-media grab job with the scheduler.
func RegisterGrabTask(sched *scheduler.Scheduler, job *grab.Job, cfg *config.SchedulerConfig) error {
	if cfg.GrabCron == "" {
		return nil // Task disabled, don't register
	}

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          GrabTaskID,
		Name:        "Grab Pending Media",
		Description: "Downloads titles added through Sonarr and Radarr webhooks and imports them",
		Cron:        cfg.GrabCron,
		RunOnStart:  false, // Webhook items need their grace delay first
		Func:        job.Run,
	})
}
