package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispute-analytics/internal/analytics"
	"dispute-analytics/internal/fetcher"
)

func TestSyncAlertsOnceWithinCooldown(t *testing.T) {
	notifier := &fakeNotifier{}
	alerts := &fakeAlertStore{}
	svc := newTestService(scenarioSource(), Deps{Notifier: notifier, AlertStore: alerts})

	now := at("2024-05-01T12:00:00Z")
	svc.now = func() time.Time { return now }

	if err := svc.Sync(context.Background(), now); err != nil {
		t.Fatalf("Sync 应成功: %v", err)
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("Critical 应告警一次, 实际 %d", len(notifier.notes))
	}
	note := notifier.notes[0]
	if note.TenantID != "acme" || note.Tier != "Critical" || note.Disputes != 3 || note.Orders != 10 {
		t.Fatalf("告警内容不正确: %+v", note)
	}
	if len(alerts.alerts) != 1 {
		t.Fatal("应记录审计告警")
	}

	now = now.Add(30 * time.Minute)
	if err := svc.Sync(context.Background(), now); err != nil {
		t.Fatalf("Sync 应成功: %v", err)
	}
	if len(notifier.notes) != 1 {
		t.Fatal("冷却期内不应再次告警")
	}

	now = now.Add(time.Hour)
	if err := svc.Sync(context.Background(), now); err != nil {
		t.Fatalf("Sync 应成功: %v", err)
	}
	if len(notifier.notes) != 2 {
		t.Fatal("冷却期后应再次告警")
	}
}

func TestCooldownReadsAlertStore(t *testing.T) {
	notifier := &fakeNotifier{}
	alerts := &fakeAlertStore{}
	svc := newTestService(scenarioSource(), Deps{Notifier: notifier, AlertStore: alerts})
	now := at("2024-05-01T12:00:00Z")
	svc.now = func() time.Time { return now }

	// A previous process already alerted ten minutes ago.
	if _, err := alerts.InsertHealthAlert(context.Background(), analyticsAlert("acme", now.Add(-10*time.Minute))); err != nil {
		t.Fatal(err)
	}

	sent, err := svc.AlertHealth(context.Background(), "acme", analytics.ScoreHealth(3, 10))
	if err != nil || sent {
		t.Fatalf("存储中的上次告警应触发冷却: sent=%v err=%v", sent, err)
	}
}

func TestAlertHealthSkipsHealthy(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := newTestService(scenarioSource(), Deps{Notifier: notifier})

	sent, err := svc.AlertHealth(context.Background(), "acme", analytics.ScoreHealth(1, 1000))
	if err != nil || sent || len(notifier.notes) != 0 {
		t.Fatalf("Healthy 不应告警: sent=%v err=%v", sent, err)
	}
}

func TestAlertHealthReportsNotifierFailure(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("telegram down")}
	svc := newTestService(scenarioSource(), Deps{Notifier: notifier})

	if _, err := svc.AlertHealth(context.Background(), "acme", analytics.ScoreHealth(9, 1000)); err == nil {
		t.Fatal("通知失败应返回错误")
	}
}

func TestSyncContinuesAfterTenantFailure(t *testing.T) {
	broken := scenarioSource()
	broken.disputesErr = &fetcher.StatusError{Status: 500, URL: "https://broken"}
	healthy := scenarioSource()

	notifier := &fakeNotifier{}
	svc := newTestService(nil, Deps{
		Sources:  map[string]fetcher.CommerceSource{"a-broken": broken, "b-healthy": healthy},
		Notifier: notifier,
	})

	err := svc.Sync(context.Background(), time.Now())
	if err == nil || KindOf(err) != KindUpstream {
		t.Fatalf("应返回失败租户的错误, 实际 %v", err)
	}
	if healthy.calls != 1 || len(notifier.notes) != 1 || notifier.notes[0].TenantID != "b-healthy" {
		t.Fatalf("其余租户应继续同步: calls=%d notes=%+v", healthy.calls, notifier.notes)
	}
}

func TestSyncSkipsWhenLockHeld(t *testing.T) {
	src := scenarioSource()
	locker := &fakeLocker{acquired: false}
	svc := newTestService(src, Deps{Locker: locker})

	if err := svc.Sync(context.Background(), time.Now()); err != nil {
		t.Fatalf("锁被占用时应静默跳过: %v", err)
	}
	if src.calls != 0 {
		t.Fatal("锁被占用时不应拉取数据")
	}

	locker.acquired = true
	if err := svc.Sync(context.Background(), time.Now()); err != nil {
		t.Fatalf("Sync 应成功: %v", err)
	}
	if src.calls != 1 || locker.released != 1 {
		t.Fatalf("应拉取一次并释放锁: calls=%d released=%d", src.calls, locker.released)
	}
}
