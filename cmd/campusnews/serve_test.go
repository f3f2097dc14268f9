package main

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/campusnews/internal/reminder"
)

func TestRunServe_EmitsDueReminder(t *testing.T) {
	env := newTestEnv(t, `
[retry]
initial_backoff_ms = 1
max_backoff_ms = 5
`)

	a, err := openApp(&globalOptions{configPath: env.configPath, envFile: env.dir + "/missing.env"})
	require.NoError(t, err)
	defer a.Close()

	now := time.Now().UTC()
	due := now.Add(-time.Minute).Truncate(time.Second)
	r := reminder.Reminder{
		CreatedAt:       now,
		ModifiedAt:      now,
		StartDate:       due,
		EndDate:         due,
		IntervalSeconds: reminder.OneTime,
		IsActive:        true,
		ChannelID:       "news",
		AuthorID:        "moderator-1",
		Title:           "Exam schedule",
		Text:            "The exam schedule is published.",
		Priority:        reminder.PriorityNormal,
	}
	require.NoError(t, a.store.Upsert(context.Background(), &r))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, a, prometheus.NewRegistry()) }()

	logContains := func(s string) func() bool {
		return func() bool {
			data, err := os.ReadFile(env.logPath)
			return err == nil && strings.Contains(string(data), s)
		}
	}
	assert.Eventually(t, logContains("📣 announcement"), 5*time.Second, 20*time.Millisecond)
	assert.Eventually(t, logContains(r.ID), 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runServe did not return after cancel")
	}
	assert.True(t, logContains("campusnews stopped")())

	stored, err := a.store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsExpired, "a fired one-time reminder expires")
}

func TestRunServe_MetricsEndpointRegistersCollectors(t *testing.T) {
	env := newTestEnv(t, `
[metrics]
enabled = true
listen = "127.0.0.1:0"
`)

	a, err := openApp(&globalOptions{configPath: env.configPath, envFile: env.dir + "/missing.env"})
	require.NoError(t, err)
	defer a.Close()

	reg := prometheus.NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, a, reg) }()

	assert.Eventually(t, func() bool {
		families, err := reg.Gather()
		if err != nil {
			return false
		}
		for _, f := range families {
			if f.GetName() == "campusnews_reminders_tracked" {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
