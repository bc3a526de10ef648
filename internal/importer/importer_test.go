package importer

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/remote"
)

type stubSource struct {
	orders []domain.Order
	err    error
}

func (s *stubSource) List(context.Context) ([]domain.Order, error) {
	return s.orders, s.err
}

type stubSink struct {
	remote    map[string]bool
	created   []domain.Order
	getErr    error
	rejectIDs map[string]bool
}

func (s *stubSink) GetOrder(_ context.Context, id string) (domain.Order, error) {
	if s.getErr != nil {
		return domain.Order{}, s.getErr
	}
	if s.remote[id] {
		return domain.Order{ID: id}, nil
	}
	return domain.Order{}, domain.ErrNotFound
}

func (s *stubSink) CreateOrder(_ context.Context, o domain.Order) (string, error) {
	if s.rejectIDs[o.ID] {
		return "", remote.ErrRejected
	}
	s.created = append(s.created, o)
	return o.ID, nil
}

func localOrders(ids ...string) []domain.Order {
	out := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Order{ID: id, SessionID: "guest_1", Source: domain.SourceLocal})
	}
	return out
}

func TestImporter_Run(t *testing.T) {
	src := &stubSource{orders: localOrders("ORD-1", "ORD-2", "ORD-3")}
	sink := &stubSink{
		remote:    map[string]bool{"ORD-1": true},
		rejectIDs: map[string]bool{"ORD-3": true},
	}

	rep, err := New(src, sink, false, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Scanned != 3 || rep.AlreadyRemote != 1 || rep.Imported != 1 || rep.Failed != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if len(rep.FailedIDs) != 1 || rep.FailedIDs[0] != "ORD-3" {
		t.Fatalf("expected ORD-3 to fail, got %v", rep.FailedIDs)
	}
	if len(sink.created) != 1 || sink.created[0].ID != "ORD-2" {
		t.Fatalf("expected only ORD-2 to be created, got %+v", sink.created)
	}
	if sink.created[0].Source != "" {
		t.Fatalf("source label should not be sent, got %q", sink.created[0].Source)
	}
}

func TestImporter_DryRunWritesNothing(t *testing.T) {
	sink := &stubSink{}
	rep, err := New(&stubSource{orders: localOrders("ORD-1", "ORD-2")}, sink, true, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Imported != 2 || len(sink.created) != 0 {
		t.Fatalf("dry run should count but not create: %+v created=%d", rep, len(sink.created))
	}
}

func TestImporter_StopsWhenRemoteUnavailable(t *testing.T) {
	sink := &stubSink{getErr: remote.ErrUnavailable}
	rep, err := New(&stubSource{orders: localOrders("ORD-1", "ORD-2")}, sink, false, nil).Run(context.Background())
	if !errors.Is(err, remote.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if rep.Scanned != 1 {
		t.Fatalf("expected the run to stop at the first order, scanned=%d", rep.Scanned)
	}
}

func TestImporter_LedgerUnreadable(t *testing.T) {
	_, err := New(&stubSource{err: errors.New("redis down")}, &stubSink{}, false, nil).Run(context.Background())
	if err == nil {
		t.Fatalf("expected error for unreadable ledger")
	}
}
