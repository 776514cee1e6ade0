package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func openTestBolt(t *testing.T) *BoltStore {
	t.Helper()
	store, err := OpenBolt(filepath.Join(t.TempDir(), "disputes.db"))
	if err != nil {
		t.Fatalf("打开 bolt 失败: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleDispute(id string, initiated time.Time) StoredDispute {
	return StoredDispute{
		TenantID:        "acme",
		DisputeID:       id,
		Type:            "chargeback",
		Status:          "needs_response",
		Reason:          "fraudulent",
		Amount:          decimal.RequireFromString("12.50"),
		Currency:        "USD",
		ReportingAmount: decimal.RequireFromString("12.50"),
		InitiatedAt:     initiated,
		SyncedAt:        time.Now().UTC(),
	}
}

func TestBoltUpsertAndList(t *testing.T) {
	store := openTestBolt(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	batch := []StoredDispute{
		sampleDispute("1", base),
		sampleDispute("2", base.Add(48*time.Hour)),
		sampleDispute("3", base.Add(24*time.Hour)),
	}
	if err := store.UpsertDisputes(ctx, batch); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	got, err := store.ListRecentDisputes(ctx, 2)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("应返回 2 条, 实际 %d", len(got))
	}
	if got[0].DisputeID != "2" || got[1].DisputeID != "3" {
		t.Fatalf("排序不正确: %s, %s", got[0].DisputeID, got[1].DisputeID)
	}
	if !got[0].Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("金额不正确: %s", got[0].Amount)
	}
}

func TestBoltUpsertReplacesByKey(t *testing.T) {
	store := openTestBolt(t)
	ctx := context.Background()
	d := sampleDispute("1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	if err := store.UpsertDisputes(ctx, []StoredDispute{d}); err != nil {
		t.Fatalf("首次写入失败: %v", err)
	}
	d.Status = "won"
	if err := store.UpsertDisputes(ctx, []StoredDispute{d}); err != nil {
		t.Fatalf("二次写入失败: %v", err)
	}

	got, err := store.ListRecentDisputes(ctx, 10)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if len(got) != 1 || got[0].Status != "won" {
		t.Fatalf("应只保留更新后的记录: %+v", got)
	}
}

func TestBoltEmptyListIsNotNil(t *testing.T) {
	store := openTestBolt(t)
	got, err := store.ListRecentDisputes(context.Background(), 5)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("应返回空切片: %#v", got)
	}
}

func TestBoltHealthAlerts(t *testing.T) {
	store := openTestBolt(t)
	ctx := context.Background()

	last, err := store.LastHealthAlert(ctx, "acme")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if last != nil {
		t.Fatalf("尚无告警时应返回 nil")
	}

	for _, tier := range []string{"attention", "critical"} {
		if _, err := store.InsertHealthAlert(ctx, HealthAlert{TenantID: "acme", Tier: tier, Ratio: decimal.NewFromInt(1)}); err != nil {
			t.Fatalf("写入告警失败: %v", err)
		}
	}
	if _, err := store.InsertHealthAlert(ctx, HealthAlert{TenantID: "other", Tier: "attention"}); err != nil {
		t.Fatalf("写入告警失败: %v", err)
	}

	last, err = store.LastHealthAlert(ctx, "acme")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if last == nil || last.Tier != "critical" {
		t.Fatalf("应返回最近一条告警: %+v", last)
	}
	if last.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt 应被填充")
	}
}
