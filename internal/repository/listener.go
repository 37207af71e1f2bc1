package repository

import "context"

// ChangeEvent describes one committed write.
type ChangeEvent struct {
	Entity string
	Op     string
	ID     int64
	Origin Origin
}

// ChangeListener observes committed writes. Exporters skip events whose
// origin is a directory import.
type ChangeListener func(ctx context.Context, event ChangeEvent)

type listeners []ChangeListener

func (l listeners) notify(ctx context.Context, entity, op string, id int64) {
	if len(l) == 0 {
		return
	}
	ev := ChangeEvent{Entity: entity, Op: op, ID: id, Origin: OriginFrom(ctx)}
	for _, fn := range l {
		fn(ctx, ev)
	}
}
