package services

import (
	"context"
	"errors"
	"testing"

	"monthlynet/internal/amqp"
)

type fakeExporter struct {
	got []amqp.SnapshotRecorded
	err error
}

func (f *fakeExporter) ExportSnapshot(_ context.Context, s amqp.SnapshotRecorded) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.got = append(f.got, s)
	return "History!A2:E2", nil
}

func TestSnapshotExportHandler(t *testing.T) {
	ctx := context.Background()
	exp := &fakeExporter{}
	h := SnapshotExportHandler(exp, quietLogger())

	ev, _ := amqp.NewEvent(amqp.EventSnapshotRecorded, amqp.SnapshotRecorded{EntryID: "e1", NetWorth: 42})
	if err := h(ctx, ev); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if len(exp.got) != 1 || exp.got[0].EntryID != "e1" || exp.got[0].NetWorth != 42 {
		t.Fatalf("exported %+v", exp.got)
	}

	bad := &amqp.Event{ID: "z", Type: amqp.EventSnapshotRecorded, Payload: []byte(`[1]`)}
	if err := h(ctx, bad); err != nil {
		t.Errorf("malformed payloads are dropped, got %v", err)
	}

	exp.err = errors.New("quota exceeded")
	if err := h(ctx, ev); err == nil {
		t.Error("export errors should requeue")
	}
}

func TestRouteEvents(t *testing.T) {
	ctx := context.Background()
	var seen []amqp.EventType
	record := func(_ context.Context, ev *amqp.Event) error {
		seen = append(seen, ev.Type)
		return nil
	}
	h := RouteEvents(map[amqp.EventType]amqp.Handler{
		amqp.EventBillReminder:     record,
		amqp.EventSnapshotRecorded: record,
		amqp.EventBillsReset:       nil,
	}, quietLogger())

	for _, typ := range []amqp.EventType{amqp.EventBillReminder, amqp.EventBillsReset, amqp.EventSnapshotRecorded, "unknown"} {
		if err := h(ctx, &amqp.Event{ID: "1", Type: typ, Payload: []byte(`{}`)}); err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
	}
	if len(seen) != 2 || seen[0] != amqp.EventBillReminder || seen[1] != amqp.EventSnapshotRecorded {
		t.Errorf("seen = %v", seen)
	}
}
